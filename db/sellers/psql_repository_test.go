package sellers

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boxoffice/db"
	"boxoffice/db/events"
	"boxoffice/db/tickets"
	"boxoffice/entity"
	"boxoffice/identity"
)

func seedSeller(t *testing.T, quota int) entity.Seller {
	t.Helper()
	ctx := context.Background()

	eventsRepo := events.NewPostgresRepository(db.GetDb(t))
	repo := NewPostgresRepository(db.GetDb(t))

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
	require.NoError(t, repo.Store(ctx, seller))

	return seller
}

func seedTicket(t *testing.T, seller entity.Seller) entity.Ticket {
	t.Helper()
	ctx := context.Background()

	ticketsRepo := tickets.NewPostgresRepository(db.GetDb(t))

	now := time.Now().UTC()
	ticket := entity.Ticket{
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
	require.NoError(t, ticketsRepo.Create(ctx, ticket))
	return ticket
}

func TestPostgresRepository_DeactivateReactivate_cascade(t *testing.T) {
	ctx := context.Background()
	repo := NewPostgresRepository(db.GetDb(t))
	ticketsRepo := tickets.NewPostgresRepository(db.GetDb(t))

	seller := seedSeller(t, 10)
	cascaded := seedTicket(t, seller)
	manuallyRevoked := seedTicket(t, seller)

	// one ticket is revoked by hand before the cascade
	require.NoError(t, ticketsRepo.Revoke(ctx, manuallyRevoked.TicketID))

	revoked, err := repo.Deactivate(ctx, seller.SellerID)
	require.NoError(t, err)
	assert.Equal(t, 1, revoked, "only valid tickets are cascaded")

	stored, err := ticketsRepo.GetByID(ctx, cascaded.TicketID)
	require.NoError(t, err)
	assert.Equal(t, entity.TicketStatusRevoked, stored.Status)
	assert.True(t, stored.RevokedByCascade)

	restored, err := repo.Reactivate(ctx, seller.SellerID)
	require.NoError(t, err)
	assert.Equal(t, 1, restored, "only cascade-revoked tickets are restored")

	stored, err = ticketsRepo.GetByID(ctx, cascaded.TicketID)
	require.NoError(t, err)
	assert.Equal(t, entity.TicketStatusValid, stored.Status)
	assert.False(t, stored.RevokedByCascade)

	// the manually revoked ticket must stay revoked
	stored, err = ticketsRepo.GetByID(ctx, manuallyRevoked.TicketID)
	require.NoError(t, err)
	assert.Equal(t, entity.TicketStatusRevoked, stored.Status)
}

func TestPostgresRepository_Deactivate_unknownSeller(t *testing.T) {
	ctx := context.Background()
	repo := NewPostgresRepository(db.GetDb(t))

	_, err := repo.Deactivate(ctx, uuid.NewString())
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestPostgresRepository_AdjustQuota(t *testing.T) {
	ctx := context.Background()
	repo := NewPostgresRepository(db.GetDb(t))

	seller := seedSeller(t, 5)

	quota, err := repo.AdjustQuota(ctx, seller.SellerID, 3)
	require.NoError(t, err)
	assert.Equal(t, 8, quota)

	quota, err = repo.AdjustQuota(ctx, seller.SellerID, -8)
	require.NoError(t, err)
	assert.Equal(t, 0, quota)

	_, err = repo.AdjustQuota(ctx, seller.SellerID, -1)
	assert.ErrorIs(t, err, entity.ErrInvalidTransition)
}

func TestPostgresRepository_CountTickets_countsAllStatuses(t *testing.T) {
	ctx := context.Background()
	repo := NewPostgresRepository(db.GetDb(t))
	ticketsRepo := tickets.NewPostgresRepository(db.GetDb(t))

	seller := seedSeller(t, 10)
	ticket := seedTicket(t, seller)
	seedTicket(t, seller)

	require.NoError(t, ticketsRepo.Revoke(ctx, ticket.TicketID))

	// quota consumption is cumulative, revoked tickets still count
	count, err := repo.CountTickets(ctx, seller.SellerID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
