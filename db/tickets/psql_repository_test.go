package tickets

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boxoffice/db"
	"boxoffice/db/events"
	"boxoffice/db/sellers"
	"boxoffice/entity"
	"boxoffice/identity"
)

func seedSeller(t *testing.T, quota int) entity.Seller {
	t.Helper()
	ctx := context.Background()

	eventsRepo := events.NewPostgresRepository(db.GetDb(t))
	sellersRepo := sellers.NewPostgresRepository(db.GetDb(t))

	event := entity.Event{
		EventID:     uuid.NewString(),
		Name:        "Test Event",
		StartsAt:    time.Now().Add(24 * time.Hour),
		TicketPrice: decimal.RequireFromString("25.00"),
		Active:      true,
		CreatedBy:   uuid.NewString(),
	}
	require.NoError(t, eventsRepo.Store(ctx, event))

	seller := entity.Seller{
		SellerID:     uuid.NewString(),
		Name:         "Test Seller",
		Email:        "seller@example.com",
		Username:     uuid.NewString(),
		PasswordHash: "x",
		Quota:        quota,
		Active:       true,
		EventID:      event.EventID,
		CreatedBy:    event.CreatedBy,
	}
	require.NoError(t, sellersRepo.Store(ctx, seller))

	return seller
}

func newTicket(seller entity.Seller) entity.Ticket {
	now := time.Now().UTC()
	return entity.Ticket{
		TicketID:         uuid.NewString(),
		TicketNumber:     identity.NewTicketNumber(now),
		VerificationCode: identity.NewVerificationCode(),
		BuyerName:        "Jane Doe",
		BuyerPhone:       "+48123456789",
		Price:            decimal.RequireFromString("25.00"),
		Status:           entity.TicketStatusValid,
		GeneratedAt:      now,
		SellerID:         seller.SellerID,
		EventID:          seller.EventID,
		QRPayload:        []byte(`{}`),
	}
}

func TestPostgresRepository_Create_quotaBoundary(t *testing.T) {
	ctx := context.Background()
	repo := NewPostgresRepository(db.GetDb(t))

	seller := seedSeller(t, 1)

	require.NoError(t, repo.Create(ctx, newTicket(seller)))

	err := repo.Create(ctx, newTicket(seller))
	assert.ErrorIs(t, err, entity.ErrQuotaExceeded)
}

func TestPostgresRepository_Create_concurrentNeverOversells(t *testing.T) {
	ctx := context.Background()
	repo := NewPostgresRepository(db.GetDb(t))

	const quota = 5
	seller := seedSeller(t, quota)

	const attempts = 100
	errs := make(chan error, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- repo.Create(ctx, newTicket(seller))
		}()
	}
	wg.Wait()
	close(errs)

	created := 0
	for err := range errs {
		if err == nil {
			created++
		} else {
			assert.ErrorIs(t, err, entity.ErrQuotaExceeded)
		}
	}
	assert.Equal(t, quota, created, "exactly quota tickets are created")

	tickets, err := repo.FindBySeller(ctx, seller.SellerID)
	require.NoError(t, err)
	assert.Len(t, tickets, quota)
}

func TestPostgresRepository_Create_inactiveSeller(t *testing.T) {
	ctx := context.Background()
	repo := NewPostgresRepository(db.GetDb(t))
	sellersRepo := sellers.NewPostgresRepository(db.GetDb(t))

	seller := seedSeller(t, 10)
	_, err := sellersRepo.Deactivate(ctx, seller.SellerID)
	require.NoError(t, err)

	err = repo.Create(ctx, newTicket(seller))
	assert.ErrorIs(t, err, entity.ErrSellerInactive)
}

func TestPostgresRepository_MarkUsed_exactlyOneWinner(t *testing.T) {
	ctx := context.Background()
	repo := NewPostgresRepository(db.GetDb(t))

	seller := seedSeller(t, 1)
	ticket := newTicket(seller)
	require.NoError(t, repo.Create(ctx, ticket))

	const scanners = 10
	wins := make(chan bool, scanners)

	var wg sync.WaitGroup
	for i := 0; i < scanners; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			won, err := repo.MarkUsed(ctx, ticket.TicketID, time.Now().UTC())
			assert.NoError(t, err)
			wins <- won
		}()
	}
	wg.Wait()
	close(wins)

	winners := 0
	for won := range wins {
		if won {
			winners++
		}
	}
	assert.Equal(t, 1, winners, "exactly one concurrent MarkUsed wins")

	stored, err := repo.GetByID(ctx, ticket.TicketID)
	require.NoError(t, err)
	assert.Equal(t, entity.TicketStatusUsed, stored.Status)
	assert.NotNil(t, stored.UsedAt)
}

func TestPostgresRepository_RevokeRestore(t *testing.T) {
	ctx := context.Background()
	repo := NewPostgresRepository(db.GetDb(t))

	seller := seedSeller(t, 1)
	ticket := newTicket(seller)
	require.NoError(t, repo.Create(ctx, ticket))

	require.NoError(t, repo.Revoke(ctx, ticket.TicketID))
	// revoking again is a no-op
	require.NoError(t, repo.Revoke(ctx, ticket.TicketID))

	stored, err := repo.GetByID(ctx, ticket.TicketID)
	require.NoError(t, err)
	assert.Equal(t, entity.TicketStatusRevoked, stored.Status)

	require.NoError(t, repo.Restore(ctx, ticket.TicketID))

	stored, err = repo.GetByID(ctx, ticket.TicketID)
	require.NoError(t, err)
	assert.Equal(t, entity.TicketStatusValid, stored.Status)
}

func TestPostgresRepository_Revoke_usedTicket(t *testing.T) {
	ctx := context.Background()
	repo := NewPostgresRepository(db.GetDb(t))

	seller := seedSeller(t, 1)
	ticket := newTicket(seller)
	require.NoError(t, repo.Create(ctx, ticket))

	won, err := repo.MarkUsed(ctx, ticket.TicketID, time.Now().UTC())
	require.NoError(t, err)
	require.True(t, won)

	err = repo.Revoke(ctx, ticket.TicketID)
	assert.ErrorIs(t, err, entity.ErrInvalidTransition)

	err = repo.Restore(ctx, ticket.TicketID)
	assert.ErrorIs(t, err, entity.ErrInvalidTransition)
}

func TestPostgresRepository_GetByVerificationCode(t *testing.T) {
	ctx := context.Background()
	repo := NewPostgresRepository(db.GetDb(t))

	seller := seedSeller(t, 1)
	ticket := newTicket(seller)
	require.NoError(t, repo.Create(ctx, ticket))

	found, err := repo.GetByVerificationCode(ctx, ticket.VerificationCode)
	require.NoError(t, err)
	assert.Equal(t, ticket.TicketID, found.TicketID)

	_, err = repo.GetByVerificationCode(ctx, "ZZZZZZZZZZZZZZZZ")
	assert.ErrorIs(t, err, entity.ErrNotFound)
}
