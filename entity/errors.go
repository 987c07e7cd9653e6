package entity

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrExpired           = errors.New("expired")
	ErrAlreadyUsed       = errors.New("already used")
	ErrTokenMismatch     = errors.New("token is bound to a different ticket")
	ErrQuotaExceeded     = errors.New("seller quota exceeded")
	ErrSellerInactive    = errors.New("seller is inactive")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// FormatError reports every malformed or missing field of an input, not just
// the first one encountered.
type FormatError struct {
	Fields []string
}

func (e *FormatError) Error() string {
	return "invalid format: " + strings.Join(e.Fields, ", ")
}

func NewFormatError(fields ...string) *FormatError {
	return &FormatError{Fields: fields}
}

// MismatchError names every QR payload field that disagrees with the ticket
// record it claims to represent.
type MismatchError struct {
	Fields []string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("payload does not match ticket: %s", strings.Join(e.Fields, ", "))
}
