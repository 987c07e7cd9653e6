// Package gate decides admission at the venue entrance and keeps the
// immutable audit trail of every attempt.
package gate

import (
	"context"
	"errors"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/google/uuid"

	"boxoffice/entity"
	"boxoffice/metrics"
)

type TicketsRepository interface {
	GetByVerificationCode(ctx context.Context, code string) (entity.Ticket, error)
	MarkUsed(ctx context.Context, ticketID string, at time.Time) (bool, error)
}

type SellersRepository interface {
	Get(ctx context.Context, sellerID string) (entity.Seller, error)
}

type ScanLogsRepository interface {
	Append(ctx context.Context, scanLog entity.ScanLog) error
	FindByTicket(ctx context.Context, ticketID string) ([]entity.ScanLog, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event any) error
}

type Engine struct {
	tickets   TicketsRepository
	sellers   SellersRepository
	scanLogs  ScanLogsRepository
	publisher EventPublisher
	now       func() time.Time
}

func NewEngine(
	tickets TicketsRepository,
	sellers SellersRepository,
	scanLogs ScanLogsRepository,
	publisher EventPublisher,
) *Engine {
	return &Engine{
		tickets:   tickets,
		sellers:   sellers,
		scanLogs:  scanLogs,
		publisher: publisher,
		now:       time.Now,
	}
}

// Scan verifies a cryptic code at the gate and records the attempt. Exactly
// one of two concurrent scans of the same valid ticket is admitted; the
// conditional status flip in the tickets repository is the tie-breaker. Every
// attempt lands in the scan log, including codes matching no ticket.
func (e *Engine) Scan(ctx context.Context, code, adminID, location string) (entity.ScanResult, error) {
	now := e.now().UTC()

	ticket, err := e.tickets.GetByVerificationCode(ctx, code)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return e.conclude(ctx, nil, adminID, location, now, entity.ScanResult{
				Outcome: entity.ScanOutcomeInvalid,
				Message: "no ticket matches this code",
			}), nil
		}
		e.record(ctx, nil, adminID, location, now, entity.ScanOutcomeSystemError, err.Error())
		return entity.ScanResult{}, err
	}

	switch ticket.Status {
	case entity.TicketStatusRevoked:
		return e.conclude(ctx, &ticket, adminID, location, now, entity.ScanResult{
			Outcome: entity.ScanOutcomeRevoked,
			Message: "ticket has been revoked",
		}), nil

	case entity.TicketStatusUsed:
		return e.conclude(ctx, &ticket, adminID, location, now, entity.ScanResult{
			Outcome: entity.ScanOutcomeAlreadyUsed,
			Message: alreadyUsedMessage(ticket),
		}), nil

	case entity.TicketStatusValid:
		// a deactivation cascade normally revokes the ticket itself, but a
		// still-valid ticket of an inactive seller must not be admitted either
		seller, err := e.sellers.Get(ctx, ticket.SellerID)
		if err != nil {
			e.record(ctx, &ticket.TicketID, adminID, location, now, entity.ScanOutcomeSystemError, err.Error())
			return entity.ScanResult{}, err
		}
		if !seller.Active {
			return e.conclude(ctx, &ticket, adminID, location, now, entity.ScanResult{
				Outcome: entity.ScanOutcomeSellerRevoked,
				Message: "ticket belongs to a deactivated seller",
			}), nil
		}

		won, err := e.tickets.MarkUsed(ctx, ticket.TicketID, now)
		if err != nil {
			e.record(ctx, &ticket.TicketID, adminID, location, now, entity.ScanOutcomeSystemError, err.Error())
			return entity.ScanResult{}, err
		}
		if !won {
			// another scan flipped the ticket between our read and the update
			fresh, err := e.tickets.GetByVerificationCode(ctx, code)
			if err == nil {
				ticket = fresh
			}
			return e.conclude(ctx, &ticket, adminID, location, now, entity.ScanResult{
				Outcome: entity.ScanOutcomeAlreadyUsed,
				Message: alreadyUsedMessage(ticket),
			}), nil
		}

		ticket.Status = entity.TicketStatusUsed
		ticket.UsedAt = &now
		return e.conclude(ctx, &ticket, adminID, location, now, entity.ScanResult{
			Outcome: entity.ScanOutcomeValidFirstScan,
			Message: "admit",
		}), nil

	default:
		e.record(ctx, &ticket.TicketID, adminID, location, now, entity.ScanOutcomeSystemError, "unknown ticket status "+string(ticket.Status))
		return entity.ScanResult{}, entity.ErrInvalidTransition
	}
}

// AuditTrail returns every recorded scan attempt against a ticket, oldest
// first.
func (e *Engine) AuditTrail(ctx context.Context, ticketID string) ([]entity.ScanLog, error) {
	return e.scanLogs.FindByTicket(ctx, ticketID)
}

func (e *Engine) conclude(ctx context.Context, ticket *entity.Ticket, adminID, location string, at time.Time, result entity.ScanResult) entity.ScanResult {
	var ticketID *string
	if ticket != nil {
		id := ticket.TicketID
		ticketID = &id
		result.Ticket = ticket
	}

	e.record(ctx, ticketID, adminID, location, at, result.Outcome, result.Message)

	err := e.publisher.Publish(ctx, entity.TicketScanned{
		Header:    entity.NewEventHeader(),
		TicketID:  ticketID,
		Outcome:   result.Outcome,
		AdminID:   adminID,
		Location:  location,
		ScannedAt: at,
	})
	if err != nil {
		log.FromContext(ctx).WithError(err).Error("Could not publish TicketScanned")
	}

	metrics.ScansTotal.WithLabelValues(string(result.Outcome)).Inc()
	return result
}

// record appends to the audit trail. The admission decision is already made
// at this point, so a logging failure is reported but never blocks the gate.
func (e *Engine) record(ctx context.Context, ticketID *string, adminID, location string, at time.Time, outcome entity.ScanOutcome, message string) {
	err := e.scanLogs.Append(ctx, entity.ScanLog{
		ScanLogID: uuid.NewString(),
		TicketID:  ticketID,
		AdminID:   adminID,
		Outcome:   outcome,
		Message:   message,
		Location:  location,
		ScannedAt: at,
	})
	if err != nil {
		log.FromContext(ctx).WithError(err).Error("Could not append scan log")
	}
}

func alreadyUsedMessage(ticket entity.Ticket) string {
	if ticket.UsedAt == nil {
		return "ticket already used"
	}
	return "ticket already used at " + ticket.UsedAt.UTC().Format(time.RFC3339)
}
