package entity

import (
	"regexp"
	"time"

	"github.com/shopspring/decimal"
)

type TicketStatus string

const (
	TicketStatusValid   TicketStatus = "valid"
	TicketStatusUsed    TicketStatus = "used"
	TicketStatusRevoked TicketStatus = "revoked"
)

// VerificationCodePattern is the exact shape of the cryptic code embedded in
// a ticket's QR payload and presented at the gate.
var VerificationCodePattern = regexp.MustCompile(`^[A-Z0-9]{16}$`)

// TicketNumberPattern matches human-readable ticket numbers, e.g. TKT-20260901-7KQ2M.
var TicketNumberPattern = regexp.MustCompile(`^TKT-\d{8}-[A-Z0-9]{5}$`)

type Ticket struct {
	TicketID         string          `json:"ticket_id" db:"ticket_id"`
	TicketNumber     string          `json:"ticket_number" db:"ticket_number"`
	VerificationCode string          `json:"verification_code" db:"verification_code"`
	BuyerName        string          `json:"buyer_name" db:"buyer_name"`
	BuyerPhone       string          `json:"buyer_phone" db:"buyer_phone"`
	BuyerEmail       string          `json:"buyer_email" db:"buyer_email"`
	Price            decimal.Decimal `json:"price" db:"price"`
	Status           TicketStatus    `json:"status" db:"status"`
	GeneratedAt      time.Time       `json:"generated_at" db:"generated_at"`
	UsedAt           *time.Time      `json:"used_at" db:"used_at"`
	SellerID         string          `json:"seller_id" db:"seller_id"`
	EventID          string          `json:"event_id" db:"event_id"`
	QRPayload        []byte          `json:"-" db:"qr_payload"`
	RevokedByCascade bool            `json:"-" db:"revoked_by_cascade"`
}
