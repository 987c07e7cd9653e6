package entity

import (
	"time"
)

// DownloadTokenTTL is the fixed lifetime of a download link.
const DownloadTokenTTL = 10 * time.Minute

type DownloadToken struct {
	TokenID   string     `json:"token_id" db:"token_id"`
	Secret    string     `json:"secret" db:"secret"`
	TicketID  string     `json:"ticket_id" db:"ticket_id"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	ExpiresAt time.Time  `json:"expires_at" db:"expires_at"`
	Used      bool       `json:"used" db:"used"`
	UsedAt    *time.Time `json:"used_at" db:"used_at"`
}

// Active reports whether the token still grants access at the given instant.
// A token is dead at exactly its expiry time.
func (t DownloadToken) Active(now time.Time) bool {
	return !t.Used && now.Before(t.ExpiresAt)
}

// TokenStatus is the countdown projection served to frontends.
type TokenStatus struct {
	Valid            bool  `json:"valid"`
	SecondsRemaining int64 `json:"seconds_remaining"`
	IsExpired        bool  `json:"is_expired"`
	IsUsed           bool  `json:"is_used"`
}
