package lifecycle

import (
	"context"

	"boxoffice/entity"
)

type SellersRepository interface {
	Get(ctx context.Context, sellerID string) (entity.Seller, error)
	CountTickets(ctx context.Context, sellerID string) (int, error)
	AdjustQuota(ctx context.Context, sellerID string, delta int) (int, error)
	SetQuota(ctx context.Context, sellerID string, quota int) error
}

// Ledger answers quota questions from live ticket counts. The cached
// tickets_sold column on sellers is advisory only; every decision here counts
// rows, so a drifted cache can never oversell or undersell.
type Ledger struct {
	sellers SellersRepository
}

func NewLedger(sellers SellersRepository) *Ledger {
	return &Ledger{sellers: sellers}
}

// Remaining reports how many tickets the seller may still generate. It never
// goes negative, even when an admin lowered the quota below the sold count.
func (l *Ledger) Remaining(ctx context.Context, sellerID string) (int, error) {
	seller, err := l.sellers.Get(ctx, sellerID)
	if err != nil {
		return 0, err
	}

	sold, err := l.sellers.CountTickets(ctx, sellerID)
	if err != nil {
		return 0, err
	}

	remaining := seller.Quota - sold
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// CanSell is the pre-flight gate for ticket generation. A nil return means
// the seller is active and under quota; otherwise the error says why not.
func (l *Ledger) CanSell(ctx context.Context, sellerID string) error {
	seller, err := l.sellers.Get(ctx, sellerID)
	if err != nil {
		return err
	}

	if !seller.Active {
		return entity.ErrSellerInactive
	}

	sold, err := l.sellers.CountTickets(ctx, sellerID)
	if err != nil {
		return err
	}
	if sold >= seller.Quota {
		return entity.ErrQuotaExceeded
	}

	return nil
}

// Adjust moves the seller's quota by delta and returns the new quota.
// Adjustments that would take it negative are rejected.
func (l *Ledger) Adjust(ctx context.Context, sellerID string, delta int) (int, error) {
	return l.sellers.AdjustQuota(ctx, sellerID, delta)
}

// Set replaces the quota outright. Lowering it below the sold count is
// allowed; it simply blocks further sales until the quota is raised again.
func (l *Ledger) Set(ctx context.Context, sellerID string, quota int) error {
	return l.sellers.SetQuota(ctx, sellerID, quota)
}
