package http

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"boxoffice/entity"
)

type postEventRequest struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	StartsAt    time.Time `json:"starts_at"`
	Location    string    `json:"location"`
	MaxCapacity int       `json:"max_capacity"`
	TicketPrice string    `json:"ticket_price"`
}

type eventResponse struct {
	EventID     string    `json:"event_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	StartsAt    time.Time `json:"starts_at"`
	Location    string    `json:"location"`
	MaxCapacity int       `json:"max_capacity"`
	TicketPrice string    `json:"ticket_price"`
	Active      bool      `json:"active"`
	CreatedBy   string    `json:"created_by"`
	CoAdminIDs  []string  `json:"co_admin_ids"`
}

func newEventResponse(event entity.Event) eventResponse {
	return eventResponse{
		EventID:     event.EventID,
		Name:        event.Name,
		Description: event.Description,
		StartsAt:    event.StartsAt,
		Location:    event.Location,
		MaxCapacity: event.MaxCapacity,
		TicketPrice: event.TicketPrice.String(),
		Active:      event.Active,
		CreatedBy:   event.CreatedBy,
		CoAdminIDs:  event.CoAdminIDs,
	}
}

func (s *Server) PostEvent(c echo.Context) error {
	requestingAdmin, err := adminID(c)
	if err != nil {
		return err
	}

	var request postEventRequest
	if err := c.Bind(&request); err != nil {
		return err
	}

	var bad []string
	if request.Name == "" {
		bad = append(bad, "name")
	}
	price, err := decimal.NewFromString(request.TicketPrice)
	if err != nil || price.IsNegative() {
		bad = append(bad, "ticket_price")
	}
	if request.MaxCapacity < 0 {
		bad = append(bad, "max_capacity")
	}
	if len(bad) > 0 {
		return asHTTPError(entity.NewFormatError(bad...))
	}

	event := entity.Event{
		EventID:     uuid.NewString(),
		Name:        request.Name,
		Description: request.Description,
		StartsAt:    request.StartsAt,
		Location:    request.Location,
		MaxCapacity: request.MaxCapacity,
		TicketPrice: price,
		Active:      true,
		CreatedBy:   requestingAdmin,
	}

	if err := s.eventsRepo.Store(c.Request().Context(), event); err != nil {
		return asHTTPError(err)
	}

	return c.JSON(http.StatusCreated, newEventResponse(event))
}

func (s *Server) GetEvent(c echo.Context) error {
	event, err := s.eventsRepo.Get(c.Request().Context(), c.Param("event_id"))
	if err != nil {
		return asHTTPError(err)
	}
	return c.JSON(http.StatusOK, newEventResponse(event))
}

type postCoAdminRequest struct {
	AdminID string `json:"admin_id"`
}

// PostEventCoAdmin adds a co-admin. Only a current admin of the event may add
// another, and the total is capped.
func (s *Server) PostEventCoAdmin(c echo.Context) error {
	requestingAdmin, err := adminID(c)
	if err != nil {
		return err
	}

	var request postCoAdminRequest
	if err := c.Bind(&request); err != nil {
		return err
	}
	if request.AdminID == "" {
		return asHTTPError(entity.NewFormatError("admin_id"))
	}

	ctx := c.Request().Context()
	event, err := s.eventsRepo.Get(ctx, c.Param("event_id"))
	if err != nil {
		return asHTTPError(err)
	}
	if !event.IsAdmin(requestingAdmin) {
		return asHTTPError(entity.ErrForbidden)
	}

	if err := s.eventsRepo.AddCoAdmin(ctx, event.EventID, request.AdminID); err != nil {
		return asHTTPError(err)
	}

	return c.NoContent(http.StatusNoContent)
}
