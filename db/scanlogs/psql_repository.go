package scanlogs

import (
	"context"

	"github.com/jmoiron/sqlx"

	"boxoffice/entity"
)

// PostgresRepository appends to the immutable gate audit trail. There is no
// update or delete on purpose.
type PostgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Append(ctx context.Context, log entity.ScanLog) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO scan_logs (scan_log_id, ticket_id, admin_id, outcome, message, location, scanned_at)
		VALUES (:scan_log_id, :ticket_id, :admin_id, :outcome, :message, :location, :scanned_at)
	`, log)
	return err
}

func (r *PostgresRepository) FindByTicket(ctx context.Context, ticketID string) ([]entity.ScanLog, error) {
	var logs []entity.ScanLog
	err := r.db.SelectContext(ctx, &logs, `
		SELECT scan_log_id, ticket_id, admin_id, outcome, message, location, scanned_at
		FROM scan_logs
		WHERE ticket_id = $1
		ORDER BY scanned_at
	`, ticketID)
	return logs, err
}
