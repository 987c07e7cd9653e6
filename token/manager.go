// Package token owns the ephemeral download-token lifecycle: short-lived,
// single-purpose secrets granting time-boxed access to one ticket's artifact.
package token

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"boxoffice/db/tokens"
	"boxoffice/entity"
	"boxoffice/identity"
	"boxoffice/metrics"
)

type Repository interface {
	Issue(ctx context.Context, token entity.DownloadToken, downloadURL string) error
	GetBySecret(ctx context.Context, secret string) (entity.DownloadToken, error)
	Consume(ctx context.Context, secret string, at time.Time) error
	ActiveForTicket(ctx context.Context, ticketID string, now time.Time) ([]entity.DownloadToken, error)
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
}

// URLBuilder shapes the public link handed to buyers:
// {frontendBase}/ticket/{ticketID}/{token}. Both path segments are checked
// independently on the way back in.
type URLBuilder struct {
	frontendBase string
}

func NewURLBuilder(frontendBase string) URLBuilder {
	return URLBuilder{frontendBase: strings.TrimRight(frontendBase, "/")}
}

func (b URLBuilder) DownloadURL(ticketID, secret string) string {
	return fmt.Sprintf("%s/ticket/%s/%s", b.frontendBase, ticketID, secret)
}

type Manager struct {
	repo Repository
	urls URLBuilder
	ttl  time.Duration
	now  func() time.Time
}

func NewManager(repo Repository, urls URLBuilder) *Manager {
	return &Manager{
		repo: repo,
		urls: urls,
		ttl:  entity.DownloadTokenTTL,
		now:  time.Now,
	}
}

// Issue mints a token for the ticket and returns it with its public URL. Any
// previously active token of the ticket is invalidated in the same
// transaction. A secret collision is retried once with a fresh secret.
func (m *Manager) Issue(ctx context.Context, ticketID string) (entity.DownloadToken, string, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		now := m.now().UTC()
		token := entity.DownloadToken{
			TokenID:   uuid.NewString(),
			Secret:    identity.NewTokenSecret(),
			TicketID:  ticketID,
			CreatedAt: now,
			ExpiresAt: now.Add(m.ttl),
		}
		url := m.urls.DownloadURL(ticketID, token.Secret)

		err := m.repo.Issue(ctx, token, url)
		if err == nil {
			metrics.TokensIssued.Inc()
			return token, url, nil
		}
		if !tokens.IsUniqueViolation(err) {
			return entity.DownloadToken{}, "", err
		}
		lastErr = err
	}
	return entity.DownloadToken{}, "", fmt.Errorf("could not issue token after retry: %w", lastErr)
}

// Validate checks a token without mutating it. With a non-empty ticketID the
// token must be bound to that exact ticket; the mismatch is reported before
// used/expired so a wrong link never masquerades as an expired one.
func (m *Manager) Validate(ctx context.Context, secret, ticketID string) (entity.DownloadToken, error) {
	token, err := m.repo.GetBySecret(ctx, secret)
	if err != nil {
		return entity.DownloadToken{}, err
	}

	if ticketID != "" && token.TicketID != ticketID {
		return token, entity.ErrTokenMismatch
	}
	if token.Used {
		return token, entity.ErrAlreadyUsed
	}
	if !m.now().Before(token.ExpiresAt) {
		return token, entity.ErrExpired
	}

	return token, nil
}

// Consume idempotently marks the token used.
func (m *Manager) Consume(ctx context.Context, secret string) error {
	return m.repo.Consume(ctx, secret, m.now().UTC())
}

// Status is the read-only countdown projection for frontends.
func (m *Manager) Status(ctx context.Context, secret string) (entity.TokenStatus, error) {
	token, err := m.repo.GetBySecret(ctx, secret)
	if err != nil {
		return entity.TokenStatus{}, err
	}

	now := m.now()
	remaining := token.ExpiresAt.Sub(now)
	if remaining < 0 {
		remaining = 0
	}

	return entity.TokenStatus{
		Valid:            token.Active(now),
		SecondsRemaining: int64(remaining.Seconds()),
		IsExpired:        !now.Before(token.ExpiresAt),
		IsUsed:           token.Used,
	}, nil
}

func (m *Manager) ActiveTokensFor(ctx context.Context, ticketID string) ([]entity.DownloadToken, error) {
	return m.repo.ActiveForTicket(ctx, ticketID, m.now())
}

// URLFor rebuilds the public download link of an already issued token.
func (m *Manager) URLFor(token entity.DownloadToken) string {
	return m.urls.DownloadURL(token.TicketID, token.Secret)
}

// SweepExpired marks stale expired tokens as used. Validation rechecks expiry
// on every call, so failures here are harmless and never retried.
func (m *Manager) SweepExpired(ctx context.Context) (int64, error) {
	swept, err := m.repo.SweepExpired(ctx, m.now().UTC())
	if err != nil {
		return 0, err
	}
	metrics.TokensSwept.Add(float64(swept))
	return swept, nil
}
