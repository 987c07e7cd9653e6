// Package identity produces ticket numbers, verification codes and download
// token secrets. Everything here is pure apart from the randomness source;
// uniqueness is enforced by database constraints, with the caller retrying on
// the (astronomically unlikely) collision.
package identity

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const (
	ticketNumberSuffixLen = 5
	verificationCodeLen   = 16
	tokenSecretBytes      = 32
)

// NewTicketNumber returns a human-readable ticket number of the form
// TKT-YYYYMMDD-XXXXX, dated with the generation day in UTC.
func NewTicketNumber(now time.Time) string {
	return fmt.Sprintf("TKT-%s-%s", now.UTC().Format("20060102"), randomCode(ticketNumberSuffixLen))
}

// NewVerificationCode returns a 16-character uppercase alphanumeric cryptic
// code. Global uniqueness is the tickets table's job, not ours.
func NewVerificationCode() string {
	return randomCode(verificationCodeLen)
}

// NewTokenSecret returns the high-entropy secret of a download token.
func NewTokenSecret() string {
	buf := make([]byte, tokenSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Errorf("reading random bytes: %w", err))
	}
	return hex.EncodeToString(buf)
}

func randomCode(length int) string {
	max := big.NewInt(int64(len(codeAlphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(fmt.Errorf("reading random int: %w", err))
		}
		out[i] = codeAlphabet[n.Int64()]
	}
	return string(out)
}
