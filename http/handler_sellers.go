package http

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"boxoffice/entity"
)

type postSellerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	Quota    int    `json:"quota"`
	EventID  string `json:"event_id"`
}

type sellerResponse struct {
	SellerID    string `json:"seller_id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Username    string `json:"username"`
	Quota       int    `json:"quota"`
	TicketsSold int    `json:"tickets_sold"`
	Remaining   int    `json:"remaining"`
	Active      bool   `json:"active"`
	EventID     string `json:"event_id"`
}

func (s *Server) PostSeller(c echo.Context) error {
	requestingAdmin, err := adminID(c)
	if err != nil {
		return err
	}

	var request postSellerRequest
	if err := c.Bind(&request); err != nil {
		return err
	}

	var bad []string
	if request.Name == "" {
		bad = append(bad, "name")
	}
	if request.Username == "" {
		bad = append(bad, "username")
	}
	if request.Password == "" {
		bad = append(bad, "password")
	}
	if request.Quota < 0 {
		bad = append(bad, "quota")
	}
	if request.EventID == "" {
		bad = append(bad, "event_id")
	}
	if len(bad) > 0 {
		return asHTTPError(entity.NewFormatError(bad...))
	}

	if _, err := s.eventsRepo.Get(c.Request().Context(), request.EventID); err != nil {
		return asHTTPError(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(request.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	seller := entity.Seller{
		SellerID:     uuid.NewString(),
		Name:         request.Name,
		Email:        request.Email,
		Username:     request.Username,
		PasswordHash: string(hash),
		Quota:        request.Quota,
		Active:       true,
		EventID:      request.EventID,
		CreatedBy:    requestingAdmin,
	}

	if err := s.sellersRepo.Store(c.Request().Context(), seller); err != nil {
		return asHTTPError(err)
	}

	return c.JSON(http.StatusCreated, sellerResponse{
		SellerID:  seller.SellerID,
		Name:      seller.Name,
		Email:     seller.Email,
		Username:  seller.Username,
		Quota:     seller.Quota,
		Remaining: seller.Quota,
		Active:    seller.Active,
		EventID:   seller.EventID,
	})
}

func (s *Server) GetSeller(c echo.Context) error {
	if _, err := adminID(c); err != nil {
		return err
	}

	ctx := c.Request().Context()
	seller, err := s.sellersRepo.Get(ctx, c.Param("seller_id"))
	if err != nil {
		return asHTTPError(err)
	}

	remaining, err := s.ledger.Remaining(ctx, seller.SellerID)
	if err != nil {
		return asHTTPError(err)
	}

	return c.JSON(http.StatusOK, sellerResponse{
		SellerID:    seller.SellerID,
		Name:        seller.Name,
		Email:       seller.Email,
		Username:    seller.Username,
		Quota:       seller.Quota,
		TicketsSold: seller.TicketsSold,
		Remaining:   remaining,
		Active:      seller.Active,
		EventID:     seller.EventID,
	})
}

type sellerActivationResponse struct {
	SellerID       string `json:"seller_id"`
	Active         bool   `json:"active"`
	TicketsFlipped int    `json:"tickets_flipped"`
}

func (s *Server) PutDeactivateSeller(c echo.Context) error {
	if _, err := adminID(c); err != nil {
		return err
	}

	revoked, err := s.sellersRepo.Deactivate(c.Request().Context(), c.Param("seller_id"))
	if err != nil {
		return asHTTPError(err)
	}
	return c.JSON(http.StatusOK, sellerActivationResponse{
		SellerID:       c.Param("seller_id"),
		Active:         false,
		TicketsFlipped: revoked,
	})
}

func (s *Server) PutReactivateSeller(c echo.Context) error {
	if _, err := adminID(c); err != nil {
		return err
	}

	restored, err := s.sellersRepo.Reactivate(c.Request().Context(), c.Param("seller_id"))
	if err != nil {
		return asHTTPError(err)
	}
	return c.JSON(http.StatusOK, sellerActivationResponse{
		SellerID:       c.Param("seller_id"),
		Active:         true,
		TicketsFlipped: restored,
	})
}

type putSellerQuotaRequest struct {
	Quota *int `json:"quota"`
	Delta *int `json:"delta"`
}

type putSellerQuotaResponse struct {
	SellerID string `json:"seller_id"`
	Quota    int    `json:"quota"`
}

// PutSellerQuota sets the quota outright or adjusts it by a delta. Exactly
// one of the two fields must be present.
func (s *Server) PutSellerQuota(c echo.Context) error {
	if _, err := adminID(c); err != nil {
		return err
	}

	var request putSellerQuotaRequest
	if err := c.Bind(&request); err != nil {
		return err
	}
	if (request.Quota == nil) == (request.Delta == nil) {
		return asHTTPError(entity.NewFormatError("quota", "delta"))
	}

	ctx := c.Request().Context()
	targetSeller := c.Param("seller_id")

	var quota int
	if request.Quota != nil {
		if err := s.ledger.Set(ctx, targetSeller, *request.Quota); err != nil {
			return asHTTPError(err)
		}
		quota = *request.Quota
	} else {
		var err error
		quota, err = s.ledger.Adjust(ctx, targetSeller, *request.Delta)
		if err != nil {
			return asHTTPError(err)
		}
	}

	return c.JSON(http.StatusOK, putSellerQuotaResponse{
		SellerID: targetSeller,
		Quota:    quota,
	})
}
