package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"boxoffice/entity"
)

type gateScanRequest struct {
	VerificationCode string `json:"verification_code"`
	Location         string `json:"location"`
}

type gateScanResponse struct {
	Outcome string          `json:"outcome"`
	Admit   bool            `json:"admit"`
	Message string          `json:"message"`
	Ticket  *ticketResponse `json:"ticket,omitempty"`
}

// PostGateScan is the door-staff endpoint. A malformed code is rejected
// before touching the datastore; a well-formed code always produces a scan
// result, never an error, so the gate UI stays simple.
func (s *Server) PostGateScan(c echo.Context) error {
	requestingAdmin, err := adminID(c)
	if err != nil {
		return err
	}

	var request gateScanRequest
	if err := c.Bind(&request); err != nil {
		return err
	}
	if !entity.VerificationCodePattern.MatchString(request.VerificationCode) {
		return asHTTPError(entity.NewFormatError("verification_code"))
	}

	result, err := s.gate.Scan(c.Request().Context(), request.VerificationCode, requestingAdmin, request.Location)
	if err != nil {
		return err
	}

	response := gateScanResponse{
		Outcome: string(result.Outcome),
		Admit:   result.Outcome.Admit(),
		Message: result.Message,
	}
	if result.Ticket != nil {
		ticket := newTicketResponse(*result.Ticket)
		response.Ticket = &ticket
	}

	return c.JSON(http.StatusOK, response)
}
