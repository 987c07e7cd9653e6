package tickets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"boxoffice/entity"
	"boxoffice/pubsub/bus"
	"boxoffice/pubsub/outbox"
)

type PostgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a ticket after re-checking the owning seller's quota inside
// the transaction. The seller row lock serializes quota decisions per seller,
// so the live count is authoritative under concurrent generations. The
// TicketGenerated event goes through the outbox, so it is only published if
// the ticket commits.
func (r *PostgresRepository) Create(ctx context.Context, ticket entity.Ticket) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			rollbackErr := tx.Rollback()
			if rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				err = errors.Join(err, rollbackErr)
			}
			return
		}
		err = tx.Commit()
	}()

	var seller entity.Seller
	err = tx.GetContext(ctx, &seller, `
		SELECT seller_id, name, email, username, password_hash, quota, tickets_sold, active, event_id, created_by
		FROM sellers
		WHERE seller_id = $1
		FOR UPDATE
	`, ticket.SellerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("seller %s: %w", ticket.SellerID, entity.ErrNotFound)
		}
		return fmt.Errorf("could not load seller: %w", err)
	}

	if !seller.Active {
		return entity.ErrSellerInactive
	}

	var sold int
	err = tx.GetContext(ctx, &sold, `SELECT COUNT(*) FROM tickets WHERE seller_id = $1`, ticket.SellerID)
	if err != nil {
		return fmt.Errorf("could not count seller tickets: %w", err)
	}

	if sold >= seller.Quota {
		return entity.ErrQuotaExceeded
	}

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO tickets (
			ticket_id, ticket_number, verification_code,
			buyer_name, buyer_phone, buyer_email,
			price, status, generated_at, seller_id, event_id, qr_payload
		) VALUES (
			:ticket_id, :ticket_number, :verification_code,
			:buyer_name, :buyer_phone, :buyer_email,
			:price, :status, :generated_at, :seller_id, :event_id, :qr_payload
		)
	`, ticket)
	if err != nil {
		return fmt.Errorf("could not insert ticket: %w", err)
	}

	_, err = tx.ExecContext(ctx, `UPDATE sellers SET tickets_sold = $1 WHERE seller_id = $2`, sold+1, ticket.SellerID)
	if err != nil {
		return fmt.Errorf("could not update seller counter: %w", err)
	}

	outboxPublisher, err := outbox.NewPublisherForDb(ctx, tx)
	if err != nil {
		return fmt.Errorf("could not create outbox publisher: %w", err)
	}

	eventBus, err := bus.NewEventBus(outboxPublisher)
	if err != nil {
		return err
	}

	err = eventBus.Publish(ctx, entity.TicketGenerated{
		Header:       entity.NewEventHeader(),
		TicketID:     ticket.TicketID,
		TicketNumber: ticket.TicketNumber,
		SellerID:     ticket.SellerID,
		EventID:      ticket.EventID,
		BuyerName:    ticket.BuyerName,
		BuyerEmail:   ticket.BuyerEmail,
		Price:        ticket.Price,
	})
	if err != nil {
		return fmt.Errorf("could not publish event: %w", err)
	}

	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, ticketID string) (entity.Ticket, error) {
	return r.get(ctx, `ticket_id`, ticketID)
}

func (r *PostgresRepository) GetByVerificationCode(ctx context.Context, code string) (entity.Ticket, error) {
	return r.get(ctx, `verification_code`, code)
}

func (r *PostgresRepository) get(ctx context.Context, column, value string) (entity.Ticket, error) {
	var ticket entity.Ticket
	err := r.db.GetContext(ctx, &ticket, `
		SELECT ticket_id, ticket_number, verification_code,
			buyer_name, buyer_phone, buyer_email,
			price, status, generated_at, used_at, seller_id, event_id, qr_payload, revoked_by_cascade
		FROM tickets
		WHERE `+column+` = $1
	`, value)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Ticket{}, entity.ErrNotFound
	}
	return ticket, err
}

func (r *PostgresRepository) FindBySeller(ctx context.Context, sellerID string) ([]entity.Ticket, error) {
	var tickets []entity.Ticket
	err := r.db.SelectContext(ctx, &tickets, `
		SELECT ticket_id, ticket_number, verification_code,
			buyer_name, buyer_phone, buyer_email,
			price, status, generated_at, used_at, seller_id, event_id, qr_payload, revoked_by_cascade
		FROM tickets
		WHERE seller_id = $1
		ORDER BY generated_at
	`, sellerID)
	return tickets, err
}

// MarkUsed flips a ticket to used only if it is currently valid. Under
// concurrent scans of the same code exactly one caller sees true.
func (r *PostgresRepository) MarkUsed(ctx context.Context, ticketID string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tickets
		SET status = 'used', used_at = $2
		WHERE ticket_id = $1 AND status = 'valid'
	`, ticketID, at)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// Revoke moves a valid ticket to revoked. Revoking a revoked ticket is a
// no-op; revoking a used ticket is an illegal transition.
func (r *PostgresRepository) Revoke(ctx context.Context, ticketID string) error {
	return r.flipStatus(ctx, ticketID, entity.TicketStatusValid, entity.TicketStatusRevoked)
}

// Restore moves a revoked ticket back to valid and clears the cascade marker.
func (r *PostgresRepository) Restore(ctx context.Context, ticketID string) error {
	return r.flipStatus(ctx, ticketID, entity.TicketStatusRevoked, entity.TicketStatusValid)
}

func (r *PostgresRepository) flipStatus(ctx context.Context, ticketID string, from, to entity.TicketStatus) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			rollbackErr := tx.Rollback()
			if rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				err = errors.Join(err, rollbackErr)
			}
			return
		}
		err = tx.Commit()
	}()

	var status entity.TicketStatus
	err = tx.GetContext(ctx, &status, `SELECT status FROM tickets WHERE ticket_id = $1 FOR UPDATE`, ticketID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.ErrNotFound
		}
		return fmt.Errorf("could not load ticket status: %w", err)
	}

	switch status {
	case to:
		// already there, idempotent
		return nil
	case entity.TicketStatusUsed:
		return entity.ErrInvalidTransition
	case from:
	default:
		return entity.ErrInvalidTransition
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE tickets
		SET status = $2, revoked_by_cascade = FALSE
		WHERE ticket_id = $1
	`, ticketID, to)
	if err != nil {
		return fmt.Errorf("could not update ticket status: %w", err)
	}

	outboxPublisher, err := outbox.NewPublisherForDb(ctx, tx)
	if err != nil {
		return fmt.Errorf("could not create outbox publisher: %w", err)
	}

	eventBus, err := bus.NewEventBus(outboxPublisher)
	if err != nil {
		return err
	}

	if to == entity.TicketStatusRevoked {
		err = eventBus.Publish(ctx, entity.TicketRevoked{
			Header:   entity.NewEventHeader(),
			TicketID: ticketID,
		})
	} else {
		err = eventBus.Publish(ctx, entity.TicketRestored{
			Header:   entity.NewEventHeader(),
			TicketID: ticketID,
		})
	}
	if err != nil {
		return fmt.Errorf("could not publish event: %w", err)
	}

	return nil
}

// IsUniqueViolation reports whether the error is a Postgres unique-constraint
// failure, which the caller handles by re-rolling identifiers and retrying.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
