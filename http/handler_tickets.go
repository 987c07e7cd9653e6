package http

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"boxoffice/entity"
)

type postTicketRequest struct {
	EventID    string `json:"event_id"`
	BuyerName  string `json:"buyer_name"`
	BuyerPhone string `json:"buyer_phone"`
	BuyerEmail string `json:"buyer_email"`
}

type ticketResponse struct {
	TicketID         string     `json:"ticket_id"`
	TicketNumber     string     `json:"ticket_number"`
	VerificationCode string     `json:"verification_code"`
	BuyerName        string     `json:"buyer_name"`
	Status           string     `json:"status"`
	Price            string     `json:"price"`
	GeneratedAt      time.Time  `json:"generated_at"`
	UsedAt           *time.Time `json:"used_at,omitempty"`
	DownloadToken    string     `json:"download_token,omitempty"`
	DownloadURL      string     `json:"download_url,omitempty"`
}

func newTicketResponse(ticket entity.Ticket) ticketResponse {
	return ticketResponse{
		TicketID:         ticket.TicketID,
		TicketNumber:     ticket.TicketNumber,
		VerificationCode: ticket.VerificationCode,
		BuyerName:        ticket.BuyerName,
		Status:           string(ticket.Status),
		Price:            ticket.Price.String(),
		GeneratedAt:      ticket.GeneratedAt,
		UsedAt:           ticket.UsedAt,
	}
}

func (s *Server) PostTicket(c echo.Context) error {
	requestingSeller, err := sellerID(c)
	if err != nil {
		return err
	}

	var request postTicketRequest
	if err := c.Bind(&request); err != nil {
		return err
	}
	var missing []string
	if request.EventID == "" {
		missing = append(missing, "event_id")
	}
	if request.BuyerName == "" {
		missing = append(missing, "buyer_name")
	}
	if len(missing) > 0 {
		return asHTTPError(entity.NewFormatError(missing...))
	}

	generated, err := s.lifecycle.Generate(
		c.Request().Context(),
		requestingSeller,
		request.EventID,
		request.BuyerName,
		request.BuyerPhone,
		request.BuyerEmail,
	)
	if err != nil {
		return asHTTPError(err)
	}

	response := newTicketResponse(generated.Ticket)
	response.DownloadToken = generated.Token.Secret
	response.DownloadURL = generated.DownloadURL

	return c.JSON(http.StatusCreated, response)
}

func (s *Server) GetTickets(c echo.Context) error {
	requestingSeller, err := sellerID(c)
	if err != nil {
		return err
	}

	tickets, err := s.ticketsRepo.FindBySeller(c.Request().Context(), requestingSeller)
	if err != nil {
		return asHTTPError(err)
	}

	response := make([]ticketResponse, 0, len(tickets))
	for _, ticket := range tickets {
		response = append(response, newTicketResponse(ticket))
	}
	return c.JSON(http.StatusOK, response)
}

type regenerateTokenResponse struct {
	DownloadToken string    `json:"download_token"`
	DownloadURL   string    `json:"download_url"`
	ExpiresAt     time.Time `json:"expires_at"`
}

func (s *Server) PostRegenerateToken(c echo.Context) error {
	requestingSeller, err := sellerID(c)
	if err != nil {
		return err
	}

	freshToken, url, err := s.lifecycle.RegenerateToken(c.Request().Context(), c.Param("ticket_id"), requestingSeller)
	if err != nil {
		return asHTTPError(err)
	}

	return c.JSON(http.StatusCreated, regenerateTokenResponse{
		DownloadToken: freshToken.Secret,
		DownloadURL:   url,
		ExpiresAt:     freshToken.ExpiresAt,
	})
}

type shareTicketRequest struct {
	Method        string `json:"method"`
	Destination   string `json:"destination"`
	CustomMessage string `json:"custom_message"`
}

func (s *Server) PostShareTicket(c echo.Context) error {
	requestingSeller, err := sellerID(c)
	if err != nil {
		return err
	}

	var request shareTicketRequest
	if err := c.Bind(&request); err != nil {
		return err
	}

	method := entity.ShareMethod(request.Method)
	if !method.Known() {
		return asHTTPError(entity.NewFormatError("method"))
	}

	ticketID := c.Param("ticket_id")
	ticket, err := s.ticketsRepo.GetByID(c.Request().Context(), ticketID)
	if err != nil {
		return asHTTPError(err)
	}
	if ticket.SellerID != requestingSeller {
		return asHTTPError(entity.ErrForbidden)
	}

	err = s.commandBus.Send(c.Request().Context(), entity.ShareTicketLink{
		Header:        entity.NewEventHeaderWithIdempotencyKey(uuid.NewString()),
		TicketID:      ticketID,
		Method:        method,
		Destination:   request.Destination,
		CustomMessage: request.CustomMessage,
	})
	if err != nil {
		return err
	}

	return c.NoContent(http.StatusAccepted)
}

func (s *Server) PutRevokeTicket(c echo.Context) error {
	if _, err := adminID(c); err != nil {
		return err
	}

	if err := s.lifecycle.Revoke(c.Request().Context(), c.Param("ticket_id")); err != nil {
		return asHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) PutRestoreTicket(c echo.Context) error {
	if _, err := adminID(c); err != nil {
		return err
	}

	if err := s.lifecycle.Restore(c.Request().Context(), c.Param("ticket_id")); err != nil {
		return asHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

type scanLogResponse struct {
	Outcome   string    `json:"outcome"`
	AdminID   string    `json:"admin_id"`
	Message   string    `json:"message"`
	Location  string    `json:"location"`
	ScannedAt time.Time `json:"scanned_at"`
}

func (s *Server) GetTicketScans(c echo.Context) error {
	if _, err := adminID(c); err != nil {
		return err
	}

	logs, err := s.gate.AuditTrail(c.Request().Context(), c.Param("ticket_id"))
	if err != nil {
		return asHTTPError(err)
	}

	response := make([]scanLogResponse, 0, len(logs))
	for _, l := range logs {
		response = append(response, scanLogResponse{
			Outcome:   string(l.Outcome),
			AdminID:   l.AdminID,
			Message:   l.Message,
			Location:  l.Location,
			ScannedAt: l.ScannedAt,
		})
	}
	return c.JSON(http.StatusOK, response)
}
