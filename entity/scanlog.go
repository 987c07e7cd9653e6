package entity

import (
	"time"
)

type ScanOutcome string

const (
	ScanOutcomeValidFirstScan ScanOutcome = "valid_first_scan"
	ScanOutcomeAlreadyUsed    ScanOutcome = "already_used"
	ScanOutcomeRevoked        ScanOutcome = "revoked"
	ScanOutcomeSellerRevoked  ScanOutcome = "seller_revoked"
	ScanOutcomeInvalid        ScanOutcome = "invalid"
	ScanOutcomeSystemError    ScanOutcome = "system_error"
)

// Admit reports whether the outcome grants entry. Only the first successful
// scan of a valid ticket does.
func (o ScanOutcome) Admit() bool {
	return o == ScanOutcomeValidFirstScan
}

// ScanLog is the append-only audit trail of every gate attempt, successful or
// not. Rows are never mutated or deleted. TicketID is nil when the scanned
// code matched no ticket.
type ScanLog struct {
	ScanLogID string      `db:"scan_log_id"`
	TicketID  *string     `db:"ticket_id"`
	AdminID   string      `db:"admin_id"`
	Outcome   ScanOutcome `db:"outcome"`
	Message   string      `db:"message"`
	Location  string      `db:"location"`
	ScannedAt time.Time   `db:"scanned_at"`
}

// ScanResult is what the gate hands back to scanning staff.
type ScanResult struct {
	Outcome ScanOutcome `json:"outcome"`
	Message string      `json:"message"`
	Ticket  *Ticket     `json:"ticket,omitempty"`
}
