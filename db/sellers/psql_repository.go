package sellers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

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

func (r *PostgresRepository) Store(ctx context.Context, seller entity.Seller) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO sellers (seller_id, name, email, username, password_hash, quota, tickets_sold, active, event_id, created_by)
		VALUES (:seller_id, :name, :email, :username, :password_hash, :quota, :tickets_sold, :active, :event_id, :created_by)
		ON CONFLICT DO NOTHING -- ignore if already exists
	`, seller)
	return err
}

func (r *PostgresRepository) Get(ctx context.Context, sellerID string) (entity.Seller, error) {
	var seller entity.Seller
	err := r.db.GetContext(ctx, &seller, `
		SELECT seller_id, name, email, username, password_hash, quota, tickets_sold, active, event_id, created_by
		FROM sellers
		WHERE seller_id = $1
	`, sellerID)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Seller{}, entity.ErrNotFound
	}
	return seller, err
}

// CountTickets is the live count quota decisions are based on; the cached
// tickets_sold column is only for display.
func (r *PostgresRepository) CountTickets(ctx context.Context, sellerID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM tickets WHERE seller_id = $1`, sellerID)
	return count, err
}

// AdjustQuota adds delta to the seller's quota (delta may be negative). The
// resulting quota must not go below zero.
func (r *PostgresRepository) AdjustQuota(ctx context.Context, sellerID string, delta int) (int, error) {
	var quota int
	err := r.db.GetContext(ctx, &quota, `
		UPDATE sellers
		SET quota = quota + $2
		WHERE seller_id = $1 AND quota + $2 >= 0
		RETURNING quota
	`, sellerID, delta)
	if errors.Is(err, sql.ErrNoRows) {
		// seller missing or quota would go negative
		if _, getErr := r.Get(ctx, sellerID); getErr != nil {
			return 0, getErr
		}
		return 0, fmt.Errorf("quota may not go negative: %w", entity.ErrInvalidTransition)
	}
	return quota, err
}

func (r *PostgresRepository) SetQuota(ctx context.Context, sellerID string, quota int) error {
	if quota < 0 {
		return fmt.Errorf("quota may not go negative: %w", entity.ErrInvalidTransition)
	}
	res, err := r.db.ExecContext(ctx, `UPDATE sellers SET quota = $2 WHERE seller_id = $1`, sellerID, quota)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return entity.ErrNotFound
	}
	return nil
}

// Deactivate flips the seller inactive and cascade-revokes all their valid
// tickets in one transaction. Cascaded rows are marked so a later
// reactivation restores exactly those and nothing else.
func (r *PostgresRepository) Deactivate(ctx context.Context, sellerID string) (int, error) {
	return r.setActive(ctx, sellerID, false)
}

// Reactivate flips the seller active and restores only tickets revoked by
// the deactivation cascade. Individually revoked tickets stay revoked.
func (r *PostgresRepository) Reactivate(ctx context.Context, sellerID string) (int, error) {
	return r.setActive(ctx, sellerID, true)
}

func (r *PostgresRepository) setActive(ctx context.Context, sellerID string, active bool) (flipped int, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("could not begin transaction: %w", err)
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

	res, err := tx.ExecContext(ctx, `UPDATE sellers SET active = $2 WHERE seller_id = $1`, sellerID, active)
	if err != nil {
		return 0, fmt.Errorf("could not update seller: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if affected == 0 {
		return 0, entity.ErrNotFound
	}

	if active {
		res, err = tx.ExecContext(ctx, `
			UPDATE tickets
			SET status = 'valid', revoked_by_cascade = FALSE
			WHERE seller_id = $1 AND status = 'revoked' AND revoked_by_cascade = TRUE
		`, sellerID)
	} else {
		res, err = tx.ExecContext(ctx, `
			UPDATE tickets
			SET status = 'revoked', revoked_by_cascade = TRUE
			WHERE seller_id = $1 AND status = 'valid'
		`, sellerID)
	}
	if err != nil {
		return 0, fmt.Errorf("could not cascade ticket statuses: %w", err)
	}

	count, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	outboxPublisher, err := outbox.NewPublisherForDb(ctx, tx)
	if err != nil {
		return 0, fmt.Errorf("could not create outbox publisher: %w", err)
	}

	eventBus, err := bus.NewEventBus(outboxPublisher)
	if err != nil {
		return 0, err
	}

	if active {
		err = eventBus.Publish(ctx, entity.SellerReactivated{
			Header:          entity.NewEventHeader(),
			SellerID:        sellerID,
			TicketsRestored: int(count),
		})
	} else {
		err = eventBus.Publish(ctx, entity.SellerDeactivated{
			Header:         entity.NewEventHeader(),
			SellerID:       sellerID,
			TicketsRevoked: int(count),
		})
	}
	if err != nil {
		return 0, fmt.Errorf("could not publish event: %w", err)
	}

	return int(count), nil
}
