package sharelogs

import (
	"context"

	"github.com/jmoiron/sqlx"

	"boxoffice/entity"
)

// PostgresRepository records link-delivery attempts. Append-only.
type PostgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Append(ctx context.Context, log entity.ShareLog) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO share_logs (share_log_id, ticket_id, method, destination, success, sent_at)
		VALUES (:share_log_id, :ticket_id, :method, :destination, :success, :sent_at)
	`, log)
	return err
}

func (r *PostgresRepository) FindByTicket(ctx context.Context, ticketID string) ([]entity.ShareLog, error) {
	var logs []entity.ShareLog
	err := r.db.SelectContext(ctx, &logs, `
		SELECT share_log_id, ticket_id, method, destination, success, sent_at
		FROM share_logs
		WHERE ticket_id = $1
		ORDER BY sent_at
	`, ticketID)
	return logs, err
}
