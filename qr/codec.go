// Package qr serializes and validates the payload embedded in a ticket's QR
// code. Rendering the payload into a scannable image is the gateway's job.
package qr

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"boxoffice/entity"
)

// Payload is the exact field set embedded in every QR code. TicketID carries
// the human-readable ticket number, not the opaque database id.
type Payload struct {
	TicketID    string `json:"ticketId"`
	CrypticCode string `json:"crypticCode"`
	EventID     string `json:"eventId"`
	Timestamp   string `json:"timestamp"`
	TicketPrice string `json:"ticketPrice"`
}

// Fields is the decoded, validated form of a payload.
type Fields struct {
	TicketNumber     string
	VerificationCode string
	EventID          string
	Timestamp        time.Time
	Price            decimal.Decimal
}

func Encode(ticketNumber, verificationCode, eventID string, timestamp time.Time, price decimal.Decimal) ([]byte, error) {
	return json.Marshal(Payload{
		TicketID:    ticketNumber,
		CrypticCode: verificationCode,
		EventID:     eventID,
		Timestamp:   timestamp.UTC().Format(time.RFC3339),
		TicketPrice: price.String(),
	})
}

// Decode parses and validates a payload. It reports every missing or invalid
// field at once, so a mangled code can be diagnosed in one pass.
func Decode(payload []byte) (Fields, error) {
	var p Payload
	if err := json.Unmarshal(payload, &p); err != nil {
		return Fields{}, entity.NewFormatError("payload")
	}

	var bad []string
	if p.TicketID == "" {
		bad = append(bad, "ticketId")
	}
	if p.CrypticCode == "" {
		bad = append(bad, "crypticCode")
	}
	if p.EventID == "" {
		bad = append(bad, "eventId")
	}

	var ts time.Time
	if p.Timestamp == "" {
		bad = append(bad, "timestamp")
	} else {
		var err error
		ts, err = time.Parse(time.RFC3339, p.Timestamp)
		if err != nil {
			bad = append(bad, "timestamp")
		}
	}

	var price decimal.Decimal
	if p.TicketPrice == "" {
		bad = append(bad, "ticketPrice")
	} else {
		var err error
		price, err = decimal.NewFromString(p.TicketPrice)
		if err != nil || price.IsNegative() {
			bad = append(bad, "ticketPrice")
		}
	}

	if len(bad) > 0 {
		return Fields{}, entity.NewFormatError(bad...)
	}

	return Fields{
		TicketNumber:     p.TicketID,
		VerificationCode: p.CrypticCode,
		EventID:          p.EventID,
		Timestamp:        ts,
		Price:            price,
	}, nil
}

// Reconcile cross-checks decoded QR fields against the ticket record they
// claim to represent. It is a hardening check for detecting tampered or
// swapped payloads, not a mandatory part of gate verification.
func Reconcile(fields Fields, ticket entity.Ticket) error {
	var bad []string
	if fields.TicketNumber != ticket.TicketNumber {
		bad = append(bad, "ticketId")
	}
	if fields.VerificationCode != ticket.VerificationCode {
		bad = append(bad, "crypticCode")
	}
	if fields.EventID != ticket.EventID {
		bad = append(bad, "eventId")
	}
	if !fields.Price.Equal(ticket.Price) {
		bad = append(bad, "ticketPrice")
	}

	if len(bad) > 0 {
		return &entity.MismatchError{Fields: bad}
	}
	return nil
}
