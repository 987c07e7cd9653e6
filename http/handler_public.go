package http

import (
	"net/http"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/labstack/echo/v4"
)

type publicTicketResponse struct {
	TicketNumber     string    `json:"ticket_number"`
	BuyerName        string    `json:"buyer_name"`
	Status           string    `json:"status"`
	EventID          string    `json:"event_id"`
	EventName        string    `json:"event_name"`
	EventLocation    string    `json:"event_location"`
	EventStartsAt    time.Time `json:"event_starts_at"`
	SellerName       string    `json:"seller_name"`
	SecondsRemaining int64     `json:"seconds_remaining"`
	QRImageURL       string    `json:"qr_image_url"`
}

// GetPublicTicket is the buyer-facing ticket view behind a download link. It
// validates the token without consuming it, so the page can be refreshed
// until the QR image is actually fetched.
func (s *Server) GetPublicTicket(c echo.Context) error {
	ctx := c.Request().Context()
	ticketID := c.Param("ticket_id")
	secret := c.Param("token")

	if _, err := s.tokens.Validate(ctx, secret, ticketID); err != nil {
		return asHTTPError(err)
	}

	ticket, err := s.ticketsRepo.GetByID(ctx, ticketID)
	if err != nil {
		return asHTTPError(err)
	}
	event, err := s.eventsRepo.Get(ctx, ticket.EventID)
	if err != nil {
		return asHTTPError(err)
	}
	seller, err := s.sellersRepo.Get(ctx, ticket.SellerID)
	if err != nil {
		return asHTTPError(err)
	}
	status, err := s.tokens.Status(ctx, secret)
	if err != nil {
		return asHTTPError(err)
	}

	return c.JSON(http.StatusOK, publicTicketResponse{
		TicketNumber:     ticket.TicketNumber,
		BuyerName:        ticket.BuyerName,
		Status:           string(ticket.Status),
		EventID:          ticket.EventID,
		EventName:        event.Name,
		EventLocation:    event.Location,
		EventStartsAt:    event.StartsAt,
		SellerName:       seller.Name,
		SecondsRemaining: status.SecondsRemaining,
		QRImageURL:       c.Request().URL.Path + "/qr.png",
	})
}

// GetPublicTicketQR serves the scannable QR image and consumes the token:
// the artifact can be fetched once per link. A consumption failure after the
// image is rendered is logged but never retried or surfaced, the buyer
// already has their ticket.
func (s *Server) GetPublicTicketQR(c echo.Context) error {
	ctx := c.Request().Context()
	ticketID := c.Param("ticket_id")
	secret := c.Param("token")

	if _, err := s.tokens.Validate(ctx, secret, ticketID); err != nil {
		return asHTTPError(err)
	}

	ticket, err := s.ticketsRepo.GetByID(ctx, ticketID)
	if err != nil {
		return asHTTPError(err)
	}

	png, err := s.renderer.RenderPNG(ctx, ticket.QRPayload)
	if err != nil {
		return err
	}

	if err := s.tokens.Consume(ctx, secret); err != nil {
		log.FromContext(ctx).WithError(err).
			WithField("ticket_id", ticketID).
			Error("Could not consume token after serving artifact")
	}

	return c.Blob(http.StatusOK, "image/png", png)
}

type tokenTimerResponse struct {
	Valid            bool  `json:"valid"`
	SecondsRemaining int64 `json:"seconds_remaining"`
	IsExpired        bool  `json:"is_expired"`
	IsUsed           bool  `json:"is_used"`
}

// GetTokenTimer is the polling endpoint behind the countdown shown on the
// download page. It never consumes or extends the token.
func (s *Server) GetTokenTimer(c echo.Context) error {
	status, err := s.tokens.Status(c.Request().Context(), c.Param("token"))
	if err != nil {
		return asHTTPError(err)
	}

	return c.JSON(http.StatusOK, tokenTimerResponse{
		Valid:            status.Valid,
		SecondsRemaining: status.SecondsRemaining,
		IsExpired:        status.IsExpired,
		IsUsed:           status.IsUsed,
	})
}
