package identity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boxoffice/entity"
)

func TestNewTicketNumber_format(t *testing.T) {
	now := time.Date(2026, 9, 1, 23, 59, 0, 0, time.FixedZone("UTC+7", 7*3600))

	number := NewTicketNumber(now)

	require.Regexp(t, entity.TicketNumberPattern, number)
	// the date part is the UTC day, not the local one
	assert.Equal(t, "TKT-20260901-", number[:13])
}

func TestNewVerificationCode_format(t *testing.T) {
	code := NewVerificationCode()

	require.Len(t, code, 16)
	require.Regexp(t, entity.VerificationCodePattern, code)
}

func TestNewVerificationCode_uniqueness(t *testing.T) {
	seen := make(map[string]struct{}, 10_000)

	for i := 0; i < 10_000; i++ {
		code := NewVerificationCode()

		_, dup := seen[code]
		require.False(t, dup, "duplicate verification code after %d draws: %s", i, code)
		seen[code] = struct{}{}
	}
}

func TestNewTokenSecret(t *testing.T) {
	first := NewTokenSecret()
	second := NewTokenSecret()

	assert.Len(t, first, 64)
	assert.NotEqual(t, first, second)
}
