package tokens

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

// Issue stores a fresh token for a ticket, invalidating any still-active
// token of that ticket in the same transaction so at most one token is live
// per ticket at any instant. Prior tokens keep their expiry; only the used
// flag flips, which makes double invalidation idempotent.
func (r *PostgresRepository) Issue(ctx context.Context, token entity.DownloadToken, downloadURL string) (err error) {
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

	_, err = tx.ExecContext(ctx, `
		UPDATE download_tokens
		SET used = TRUE, used_at = $2
		WHERE ticket_id = $1 AND used = FALSE
	`, token.TicketID, token.CreatedAt)
	if err != nil {
		return fmt.Errorf("could not invalidate previous tokens: %w", err)
	}

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO download_tokens (token_id, secret, ticket_id, created_at, expires_at, used)
		VALUES (:token_id, :secret, :ticket_id, :created_at, :expires_at, FALSE)
	`, token)
	if err != nil {
		return fmt.Errorf("could not insert token: %w", err)
	}

	outboxPublisher, err := outbox.NewPublisherForDb(ctx, tx)
	if err != nil {
		return fmt.Errorf("could not create outbox publisher: %w", err)
	}

	eventBus, err := bus.NewEventBus(outboxPublisher)
	if err != nil {
		return err
	}

	err = eventBus.Publish(ctx, entity.DownloadTokenIssued{
		Header:      entity.NewEventHeader(),
		TokenID:     token.TokenID,
		TicketID:    token.TicketID,
		ExpiresAt:   token.ExpiresAt,
		DownloadURL: downloadURL,
	})
	if err != nil {
		return fmt.Errorf("could not publish event: %w", err)
	}

	return nil
}

func (r *PostgresRepository) GetBySecret(ctx context.Context, secret string) (entity.DownloadToken, error) {
	var token entity.DownloadToken
	err := r.db.GetContext(ctx, &token, `
		SELECT token_id, secret, ticket_id, created_at, expires_at, used, used_at
		FROM download_tokens
		WHERE secret = $1
	`, secret)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.DownloadToken{}, entity.ErrNotFound
	}
	return token, err
}

// Consume marks the token used. Calling it twice is safe: the original
// used_at is preserved and no error is reported.
func (r *PostgresRepository) Consume(ctx context.Context, secret string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE download_tokens
		SET used = TRUE, used_at = COALESCE(used_at, $2)
		WHERE secret = $1
	`, secret, at)
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

// ActiveForTicket lists unexpired, unused tokens of a ticket. The issuing
// invariant keeps this at one or zero rows; the query does not enforce that.
func (r *PostgresRepository) ActiveForTicket(ctx context.Context, ticketID string, now time.Time) ([]entity.DownloadToken, error) {
	var tokens []entity.DownloadToken
	err := r.db.SelectContext(ctx, &tokens, `
		SELECT token_id, secret, ticket_id, created_at, expires_at, used, used_at
		FROM download_tokens
		WHERE ticket_id = $1 AND used = FALSE AND expires_at > $2
		ORDER BY created_at DESC
	`, ticketID, now)
	return tokens, err
}

// SweepExpired batch-marks expired-but-unused tokens as used. Validation
// checks expiry on every read anyway, so this is cleanup, not correctness.
func (r *PostgresRepository) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE download_tokens
		SET used = TRUE, used_at = $1
		WHERE used = FALSE AND expires_at <= $1
	`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// IsUniqueViolation reports a secret collision, which the manager handles by
// drawing a new secret and retrying once.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
