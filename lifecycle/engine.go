// Package lifecycle owns the ticket state machine and orchestrates identity
// generation, QR encoding, quota gating and download-token issuance.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/google/uuid"

	"boxoffice/db/tickets"
	"boxoffice/entity"
	"boxoffice/identity"
	"boxoffice/metrics"
	"boxoffice/qr"
	"boxoffice/token"
)

type TicketsRepository interface {
	Create(ctx context.Context, ticket entity.Ticket) error
	GetByID(ctx context.Context, ticketID string) (entity.Ticket, error)
	GetByVerificationCode(ctx context.Context, code string) (entity.Ticket, error)
	FindBySeller(ctx context.Context, sellerID string) ([]entity.Ticket, error)
	Revoke(ctx context.Context, ticketID string) error
	Restore(ctx context.Context, ticketID string) error
}

type EventsRepository interface {
	Get(ctx context.Context, eventID string) (entity.Event, error)
}

// GeneratedTicket is the full result of a generation: the persisted ticket
// plus its first download token and public URL. Token and URL are zero when
// token issuance failed after the ticket committed; the ticket is still
// usable and the seller recovers by regenerating.
type GeneratedTicket struct {
	Ticket      entity.Ticket
	Token       entity.DownloadToken
	DownloadURL string
}

type Engine struct {
	tickets TicketsRepository
	events  EventsRepository
	ledger  *Ledger
	tokens  *token.Manager
	now     func() time.Time
}

func NewEngine(
	ticketsRepo TicketsRepository,
	eventsRepo EventsRepository,
	ledger *Ledger,
	tokens *token.Manager,
) *Engine {
	return &Engine{
		tickets: ticketsRepo,
		events:  eventsRepo,
		ledger:  ledger,
		tokens:  tokens,
		now:     time.Now,
	}
}

// Generate creates a ticket for a buyer on behalf of a seller. The quota is
// checked up front for a fast failure and re-checked authoritatively inside
// the insert transaction, so concurrent generations can never oversell. The
// ticket price is the event's price at this instant and never changes
// afterwards.
func (e *Engine) Generate(ctx context.Context, sellerID, eventID, buyerName, buyerPhone, buyerEmail string) (GeneratedTicket, error) {
	if err := e.ledger.CanSell(ctx, sellerID); err != nil {
		return GeneratedTicket{}, err
	}

	event, err := e.events.Get(ctx, eventID)
	if err != nil {
		return GeneratedTicket{}, fmt.Errorf("could not load event: %w", err)
	}
	if !event.Active {
		return GeneratedTicket{}, fmt.Errorf("event %s is not active: %w", eventID, entity.ErrForbidden)
	}

	var ticket entity.Ticket
	// one retry re-rolls the identifiers on the rare uniqueness collision
	for attempt := 0; attempt < 2; attempt++ {
		now := e.now().UTC()
		ticketNumber := identity.NewTicketNumber(now)
		verificationCode := identity.NewVerificationCode()

		payload, err := qr.Encode(ticketNumber, verificationCode, eventID, now, event.TicketPrice)
		if err != nil {
			return GeneratedTicket{}, fmt.Errorf("could not encode QR payload: %w", err)
		}

		ticket = entity.Ticket{
			TicketID:         uuid.NewString(),
			TicketNumber:     ticketNumber,
			VerificationCode: verificationCode,
			BuyerName:        buyerName,
			BuyerPhone:       buyerPhone,
			BuyerEmail:       buyerEmail,
			Price:            event.TicketPrice,
			Status:           entity.TicketStatusValid,
			GeneratedAt:      now,
			SellerID:         sellerID,
			EventID:          eventID,
		}
		ticket.QRPayload = payload

		err = e.tickets.Create(ctx, ticket)
		if err == nil {
			break
		}
		if attempt == 0 && tickets.IsUniqueViolation(err) {
			continue
		}
		return GeneratedTicket{}, err
	}

	metrics.TicketsGenerated.Inc()

	downloadToken, url, err := e.tokens.Issue(ctx, ticket.TicketID)
	if err != nil {
		// the ticket is committed; the seller regenerates the link later
		log.FromContext(ctx).WithError(err).
			WithField("ticket_id", ticket.TicketID).
			Error("Ticket created but token issuance failed")
		return GeneratedTicket{Ticket: ticket}, nil
	}

	return GeneratedTicket{
		Ticket:      ticket,
		Token:       downloadToken,
		DownloadURL: url,
	}, nil
}

// LookupByVerificationCode resolves a ticket from its 16-character cryptic
// code. The code must already be well-formed.
func (e *Engine) LookupByVerificationCode(ctx context.Context, code string) (entity.Ticket, error) {
	if !entity.VerificationCodePattern.MatchString(code) {
		return entity.Ticket{}, entity.NewFormatError("verification_code")
	}
	return e.tickets.GetByVerificationCode(ctx, code)
}

// Revoke and Restore flip a single ticket between valid and revoked. A used
// ticket cannot move in either direction.
func (e *Engine) Revoke(ctx context.Context, ticketID string) error {
	return e.tickets.Revoke(ctx, ticketID)
}

func (e *Engine) Restore(ctx context.Context, ticketID string) error {
	return e.tickets.Restore(ctx, ticketID)
}

// RegenerateToken issues a fresh download token for a ticket the requesting
// seller owns, superseding any still-active link.
func (e *Engine) RegenerateToken(ctx context.Context, ticketID, requestingSellerID string) (entity.DownloadToken, string, error) {
	ticket, err := e.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return entity.DownloadToken{}, "", err
	}
	if ticket.SellerID != requestingSellerID {
		return entity.DownloadToken{}, "", entity.ErrForbidden
	}

	return e.tokens.Issue(ctx, ticketID)
}

// VerifyPayload is the defensive cross-check between a decoded QR payload
// and the ticket it names.
func (e *Engine) VerifyPayload(ctx context.Context, payload []byte) (entity.Ticket, error) {
	fields, err := qr.Decode(payload)
	if err != nil {
		return entity.Ticket{}, err
	}

	ticket, err := e.tickets.GetByVerificationCode(ctx, fields.VerificationCode)
	if err != nil {
		return entity.Ticket{}, err
	}

	if err := qr.Reconcile(fields, ticket); err != nil {
		return entity.Ticket{}, err
	}
	return ticket, nil
}
