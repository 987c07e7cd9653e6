package gate

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boxoffice/entity"
)

type fakeStore struct {
	mu       sync.Mutex
	tickets  map[string]entity.Ticket
	sellers  map[string]entity.Seller
	scanLogs []entity.ScanLog
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tickets: map[string]entity.Ticket{},
		sellers: map[string]entity.Seller{},
	}
}

func (s *fakeStore) GetByVerificationCode(_ context.Context, code string) (entity.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ticket := range s.tickets {
		if ticket.VerificationCode == code {
			return ticket, nil
		}
	}
	return entity.Ticket{}, entity.ErrNotFound
}

func (s *fakeStore) MarkUsed(_ context.Context, ticketID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ticket, ok := s.tickets[ticketID]
	if !ok || ticket.Status != entity.TicketStatusValid {
		return false, nil
	}
	ticket.Status = entity.TicketStatusUsed
	usedAt := at
	ticket.UsedAt = &usedAt
	s.tickets[ticketID] = ticket
	return true, nil
}

func (s *fakeStore) Get(_ context.Context, sellerID string) (entity.Seller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seller, ok := s.sellers[sellerID]
	if !ok {
		return entity.Seller{}, entity.ErrNotFound
	}
	return seller, nil
}

func (s *fakeStore) Append(_ context.Context, scanLog entity.ScanLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scanLogs = append(s.scanLogs, scanLog)
	return nil
}

func (s *fakeStore) FindByTicket(_ context.Context, ticketID string) ([]entity.ScanLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.ScanLog
	for _, l := range s.scanLogs {
		if l.TicketID != nil && *l.TicketID == ticketID {
			out = append(out, l)
		}
	}
	return out, nil
}

type capturingPublisher struct {
	mu     sync.Mutex
	events []any
}

func (p *capturingPublisher) Publish(_ context.Context, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturingPublisher) published() []any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]any(nil), p.events...)
}

func newTestEngine(t *testing.T) (*Engine, *fakeStore, *capturingPublisher) {
	t.Helper()
	store := newFakeStore()
	publisher := &capturingPublisher{}
	return NewEngine(store, store, store, publisher), store, publisher
}

func (s *fakeStore) addTicket(status entity.TicketStatus, sellerActive bool) entity.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()

	sellerID := uuid.NewString()
	s.sellers[sellerID] = entity.Seller{SellerID: sellerID, Active: sellerActive}

	ticket := entity.Ticket{
		TicketID:         uuid.NewString(),
		TicketNumber:     "TKT-20260901-ABC12",
		VerificationCode: "ABCDEFGH12345678",
		Status:           status,
		SellerID:         sellerID,
	}
	s.tickets[ticket.TicketID] = ticket
	return ticket
}

func TestEngine_Scan_validFirstScan(t *testing.T) {
	ctx := context.Background()
	engine, store, publisher := newTestEngine(t)

	ticket := store.addTicket(entity.TicketStatusValid, true)

	result, err := engine.Scan(ctx, ticket.VerificationCode, "admin-1", "north gate")
	require.NoError(t, err)

	assert.Equal(t, entity.ScanOutcomeValidFirstScan, result.Outcome)
	assert.True(t, result.Outcome.Admit())
	require.NotNil(t, result.Ticket)
	assert.Equal(t, entity.TicketStatusUsed, result.Ticket.Status)
	assert.NotNil(t, result.Ticket.UsedAt)

	logs, err := engine.AuditTrail(ctx, ticket.TicketID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, entity.ScanOutcomeValidFirstScan, logs[0].Outcome)
	assert.Equal(t, "admin-1", logs[0].AdminID)
	assert.Equal(t, "north gate", logs[0].Location)

	events := publisher.published()
	require.Len(t, events, 1)
	scanned, ok := events[0].(entity.TicketScanned)
	require.True(t, ok)
	assert.Equal(t, entity.ScanOutcomeValidFirstScan, scanned.Outcome)
}

func TestEngine_Scan_secondScanRejected(t *testing.T) {
	ctx := context.Background()
	engine, store, _ := newTestEngine(t)

	ticket := store.addTicket(entity.TicketStatusValid, true)

	first, err := engine.Scan(ctx, ticket.VerificationCode, "admin-1", "gate")
	require.NoError(t, err)
	require.Equal(t, entity.ScanOutcomeValidFirstScan, first.Outcome)

	second, err := engine.Scan(ctx, ticket.VerificationCode, "admin-2", "gate")
	require.NoError(t, err)
	assert.Equal(t, entity.ScanOutcomeAlreadyUsed, second.Outcome)
	assert.False(t, second.Outcome.Admit())
	assert.Contains(t, second.Message, "already used at", "rejection names the first scan time")

	logs, err := engine.AuditTrail(ctx, ticket.TicketID)
	require.NoError(t, err)
	assert.Len(t, logs, 2, "both attempts are on the audit trail")
}

func TestEngine_Scan_concurrentScansAdmitExactlyOne(t *testing.T) {
	ctx := context.Background()
	engine, store, _ := newTestEngine(t)

	ticket := store.addTicket(entity.TicketStatusValid, true)

	const scanners = 20
	results := make(chan entity.ScanOutcome, scanners)

	var wg sync.WaitGroup
	for i := 0; i < scanners; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := engine.Scan(ctx, ticket.VerificationCode, "admin-1", "gate")
			assert.NoError(t, err)
			results <- result.Outcome
		}()
	}
	wg.Wait()
	close(results)

	admitted := 0
	for outcome := range results {
		if outcome.Admit() {
			admitted++
		}
	}
	assert.Equal(t, 1, admitted, "exactly one concurrent scan wins")

	logs, err := engine.AuditTrail(ctx, ticket.TicketID)
	require.NoError(t, err)
	assert.Len(t, logs, scanners)
}

func TestEngine_Scan_revokedTicket(t *testing.T) {
	ctx := context.Background()
	engine, store, _ := newTestEngine(t)

	ticket := store.addTicket(entity.TicketStatusRevoked, true)

	result, err := engine.Scan(ctx, ticket.VerificationCode, "admin-1", "gate")
	require.NoError(t, err)
	assert.Equal(t, entity.ScanOutcomeRevoked, result.Outcome)
	assert.False(t, result.Outcome.Admit())
}

func TestEngine_Scan_cascadeRevokedTicket(t *testing.T) {
	ctx := context.Background()
	engine, store, _ := newTestEngine(t)

	// a seller deactivation cascade revokes the ticket and deactivates the
	// seller; the outcome names the ticket state
	ticket := store.addTicket(entity.TicketStatusRevoked, false)

	result, err := engine.Scan(ctx, ticket.VerificationCode, "admin-1", "gate")
	require.NoError(t, err)
	assert.Equal(t, entity.ScanOutcomeRevoked, result.Outcome)
	assert.False(t, result.Outcome.Admit())
}

func TestEngine_Scan_validTicketInactiveSeller(t *testing.T) {
	ctx := context.Background()
	engine, store, _ := newTestEngine(t)

	ticket := store.addTicket(entity.TicketStatusValid, false)

	result, err := engine.Scan(ctx, ticket.VerificationCode, "admin-1", "gate")
	require.NoError(t, err)
	assert.Equal(t, entity.ScanOutcomeSellerRevoked, result.Outcome)

	// the ticket itself must stay valid for a later seller reactivation
	stored, err := store.GetByVerificationCode(ctx, ticket.VerificationCode)
	require.NoError(t, err)
	assert.Equal(t, entity.TicketStatusValid, stored.Status)
}

func TestEngine_Scan_unknownCode(t *testing.T) {
	ctx := context.Background()
	engine, store, publisher := newTestEngine(t)

	result, err := engine.Scan(ctx, "ZZZZZZZZZZZZZZZZ", "admin-1", "gate")
	require.NoError(t, err)
	assert.Equal(t, entity.ScanOutcomeInvalid, result.Outcome)
	assert.Nil(t, result.Ticket)

	// the attempt is logged even though no ticket matched
	store.mu.Lock()
	defer store.mu.Unlock()
	require.Len(t, store.scanLogs, 1)
	assert.Nil(t, store.scanLogs[0].TicketID)

	events := publisher.published()
	require.Len(t, events, 1)
}
