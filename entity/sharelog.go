package entity

import (
	"time"
)

type ShareMethod string

const (
	ShareMethodEmail    ShareMethod = "email"
	ShareMethodSMS      ShareMethod = "sms"
	ShareMethodWhatsApp ShareMethod = "whatsapp"
)

func (m ShareMethod) Known() bool {
	switch m {
	case ShareMethodEmail, ShareMethodSMS, ShareMethodWhatsApp:
		return true
	}
	return false
}

// ShareLog records every link-delivery attempt for accountability. Append-only.
type ShareLog struct {
	ShareLogID  string      `db:"share_log_id"`
	TicketID    string      `db:"ticket_id"`
	Method      ShareMethod `db:"method"`
	Destination string      `db:"destination"`
	Success     bool        `db:"success"`
	SentAt      time.Time   `db:"sent_at"`
}
