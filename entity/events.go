package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EventHeader struct {
	ID             string    `json:"id"`
	PublishedAt    time.Time `json:"published_at"`
	IdempotencyKey string    `json:"idempotency_key"`
}

func NewEventHeader() EventHeader {
	return EventHeader{
		ID:          uuid.NewString(),
		PublishedAt: time.Now().UTC(),
	}
}

func NewEventHeaderWithIdempotencyKey(idempotencyKey string) EventHeader {
	return EventHeader{
		ID:             uuid.NewString(),
		PublishedAt:    time.Now().UTC(),
		IdempotencyKey: idempotencyKey,
	}
}

type TicketGenerated struct {
	Header       EventHeader     `json:"header"`
	TicketID     string          `json:"ticket_id"`
	TicketNumber string          `json:"ticket_number"`
	SellerID     string          `json:"seller_id"`
	EventID      string          `json:"event_id"`
	BuyerName    string          `json:"buyer_name"`
	BuyerEmail   string          `json:"buyer_email"`
	Price        decimal.Decimal `json:"price"`
}

type DownloadTokenIssued struct {
	Header      EventHeader `json:"header"`
	TokenID     string      `json:"token_id"`
	TicketID    string      `json:"ticket_id"`
	ExpiresAt   time.Time   `json:"expires_at"`
	DownloadURL string      `json:"download_url"`
}

type TicketScanned struct {
	Header    EventHeader `json:"header"`
	TicketID  *string     `json:"ticket_id"`
	Outcome   ScanOutcome `json:"outcome"`
	AdminID   string      `json:"admin_id"`
	Location  string      `json:"location"`
	ScannedAt time.Time   `json:"scanned_at"`
}

type TicketRevoked struct {
	Header   EventHeader `json:"header"`
	TicketID string      `json:"ticket_id"`
	Cascade  bool        `json:"cascade"`
}

type TicketRestored struct {
	Header   EventHeader `json:"header"`
	TicketID string      `json:"ticket_id"`
}

type SellerDeactivated struct {
	Header         EventHeader `json:"header"`
	SellerID       string      `json:"seller_id"`
	TicketsRevoked int         `json:"tickets_revoked"`
}

type SellerReactivated struct {
	Header          EventHeader `json:"header"`
	SellerID        string      `json:"seller_id"`
	TicketsRestored int         `json:"tickets_restored"`
}

type TicketLinkShared struct {
	Header      EventHeader `json:"header"`
	TicketID    string      `json:"ticket_id"`
	Method      ShareMethod `json:"method"`
	Destination string      `json:"destination"`
	Success     bool        `json:"success"`
}
