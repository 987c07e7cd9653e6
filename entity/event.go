package entity

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// MaxEventAdmins caps the total number of admins per event, creator included.
const MaxEventAdmins = 3

type Event struct {
	EventID     string          `json:"event_id" db:"event_id"`
	Name        string          `json:"name" db:"name"`
	Description string          `json:"description" db:"description"`
	StartsAt    time.Time       `json:"starts_at" db:"starts_at"`
	Location    string          `json:"location" db:"location"`
	MaxCapacity int             `json:"max_capacity" db:"max_capacity"`
	TicketPrice decimal.Decimal `json:"ticket_price" db:"ticket_price"`
	Active      bool            `json:"active" db:"active"`
	CreatedBy   string          `json:"created_by" db:"created_by"`
	CoAdminIDs  pq.StringArray  `json:"co_admin_ids" db:"co_admin_ids"`
}

// IsAdmin reports whether the given admin may manage this event. The creator
// role is immutable and always included.
func (e Event) IsAdmin(adminID string) bool {
	if adminID == e.CreatedBy {
		return true
	}
	for _, id := range e.CoAdminIDs {
		if id == adminID {
			return true
		}
	}
	return false
}
