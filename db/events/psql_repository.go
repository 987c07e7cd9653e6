package events

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"boxoffice/entity"
)

type PostgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Store(ctx context.Context, event entity.Event) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO events (event_id, name, description, starts_at, location, max_capacity, ticket_price, active, created_by, co_admin_ids)
		VALUES (:event_id, :name, :description, :starts_at, :location, :max_capacity, :ticket_price, :active, :created_by, :co_admin_ids)
		ON CONFLICT DO NOTHING -- ignore if already exists
	`, event)
	return err
}

func (r *PostgresRepository) Get(ctx context.Context, eventID string) (entity.Event, error) {
	var event entity.Event
	err := r.db.GetContext(ctx, &event, `
		SELECT event_id, name, description, starts_at, location, max_capacity, ticket_price, active, created_by, co_admin_ids
		FROM events
		WHERE event_id = $1
	`, eventID)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Event{}, entity.ErrNotFound
	}
	return event, err
}

// AddCoAdmin appends a co-admin, holding the row lock while enforcing the
// cap of three admins per event (creator included).
func (r *PostgresRepository) AddCoAdmin(ctx context.Context, eventID, adminID string) (err error) {
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

	var event entity.Event
	err = tx.GetContext(ctx, &event, `
		SELECT event_id, name, description, starts_at, location, max_capacity, ticket_price, active, created_by, co_admin_ids
		FROM events
		WHERE event_id = $1
		FOR UPDATE
	`, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.ErrNotFound
		}
		return fmt.Errorf("could not load event: %w", err)
	}

	if event.IsAdmin(adminID) {
		return nil
	}
	if 1+len(event.CoAdminIDs) >= entity.MaxEventAdmins {
		return fmt.Errorf("event already has %d admins: %w", entity.MaxEventAdmins, entity.ErrForbidden)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE events
		SET co_admin_ids = $2
		WHERE event_id = $1
	`, eventID, append(event.CoAdminIDs, adminID))
	if err != nil {
		return fmt.Errorf("could not update co-admins: %w", err)
	}

	return nil
}
