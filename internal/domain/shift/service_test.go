package shift

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rioprayoga/kasirpos/internal/config"
	"github.com/rioprayoga/kasirpos/internal/domain/errs"
	"github.com/rioprayoga/kasirpos/internal/domain/recon"
	"github.com/rioprayoga/kasirpos/internal/domain/sales"
	"github.com/rioprayoga/kasirpos/internal/infra/logger"
	"github.com/rioprayoga/kasirpos/internal/infra/notify"
)

// memStore mimics the repo's guarantees in memory: open-per-scope
// uniqueness and exactly-once close, both under a mutex the way the
// database enforces them with its index and conditional update.
type memStore struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*Shift
	parts  map[int64][]Participant
}

func newMemStore() *memStore {
	return &memStore{byID: map[int64]*Shift{}, parts: map[int64][]Participant{}}
}

func (s *memStore) Open(_ context.Context, p OpenParams) (*Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	maxNo := 0
	for _, sh := range s.byID {
		if sh.TenantID == p.TenantID && sh.ScopeKey == p.ScopeKey && sh.Status == StatusOpen {
			return nil, errs.Conflictf("an open shift already exists for %s", p.ScopeKey)
		}
		if sh.TenantID == p.TenantID && sh.ShiftDate.Equal(p.Date) && sh.ShiftNo > maxNo {
			maxNo = sh.ShiftNo
		}
	}

	s.nextID++
	sh := &Shift{
		ID:            s.nextID,
		TenantID:      p.TenantID,
		UserID:        p.UserID,
		StationID:     p.StationID,
		ScopeKey:      p.ScopeKey,
		ShiftNo:       maxNo + 1,
		ShiftDate:     p.Date,
		OpenedAt:      time.Now(),
		StartingFloat: p.StartingFloat,
		FloatSource:   p.FloatSource,
		OpenNote:      p.OpenNote,
		Status:        StatusOpen,
	}
	s.byID[sh.ID] = sh
	return sh, nil
}

func (s *memStore) Close(_ context.Context, tenantID, shiftID, closedBy int64, note string, c recon.Closing) (*Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sh, ok := s.byID[shiftID]
	if !ok || sh.TenantID != tenantID {
		return nil, errs.NotFoundf("shift %d", shiftID)
	}
	if sh.Status != StatusOpen {
		return nil, errs.InvalidStatef("shift %d is already closed", shiftID)
	}

	now := time.Now()
	counted := c.CountedCash
	sh.Status = StatusClosed
	sh.ClosedAt = &now
	sh.ClosedBy = &closedBy
	sh.CloseNote = note
	sh.TxCount = c.TxCount
	sh.GrossSales = c.GrossSales
	sh.Discount = c.Discount
	sh.NetSales = c.NetSales
	sh.SalesCash = c.SalesCash
	sh.SalesCard = c.SalesCard
	sh.SalesTransfer = c.SalesTransfer
	sh.SalesQRIS = c.SalesQRIS
	sh.SalesCredit = c.SalesCredit
	sh.CashIn = c.CashIn
	sh.CashOut = c.CashOut
	sh.ExpectedCash = c.ExpectedCash
	sh.CountedCash = &counted
	sh.Discrepancy = c.Discrepancy
	sh.Classification = c.Classification
	cp := *sh
	return &cp, nil
}

func (s *memStore) Get(_ context.Context, tenantID, shiftID int64) (*Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, ok := s.byID[shiftID]
	if !ok || sh.TenantID != tenantID {
		return nil, errs.NotFoundf("shift %d", shiftID)
	}
	cp := *sh
	return &cp, nil
}

func (s *memStore) GetOpenByScope(_ context.Context, tenantID int64, scopeKey string) (*Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sh := range s.byID {
		if sh.TenantID == tenantID && sh.ScopeKey == scopeKey && sh.Status == StatusOpen {
			cp := *sh
			return &cp, nil
		}
	}
	return nil, errs.NotFoundf("no open shift for %s", scopeKey)
}

func (s *memStore) List(_ context.Context, tenantID int64, _ ListFilter) ([]Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Shift
	for _, sh := range s.byID {
		if sh.TenantID == tenantID {
			out = append(out, *sh)
		}
	}
	return out, nil
}

func (s *memStore) AddParticipant(_ context.Context, tenantID, shiftID, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, ok := s.byID[shiftID]
	if !ok || sh.TenantID != tenantID {
		return errs.NotFoundf("shift %d", shiftID)
	}
	if sh.Status != StatusOpen {
		return errs.InvalidStatef("shift %d is closed", shiftID)
	}
	for _, p := range s.parts[shiftID] {
		if p.UserID == userID {
			return nil
		}
	}
	s.parts[shiftID] = append(s.parts[shiftID], Participant{ShiftID: shiftID, UserID: userID, JoinedAt: time.Now()})
	return nil
}

func (s *memStore) Participants(_ context.Context, tenantID, shiftID int64) ([]Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Participant(nil), s.parts[shiftID]...), nil
}

type fakeSales struct {
	byMethod map[sales.Method]int64
	count    int64
	gross    int64
	discount int64
}

func (f fakeSales) TotalsByMethod(context.Context, int64, int64) (map[sales.Method]int64, error) {
	return f.byMethod, nil
}
func (f fakeSales) CountSuccessful(context.Context, int64, int64) (int64, error) { return f.count, nil }
func (f fakeSales) Totals(context.Context, int64, int64) (int64, int64, error) {
	return f.gross, f.discount, nil
}

type fakeCash struct{ in, out int64 }

func (f fakeCash) SumForShift(context.Context, int64, int64) (int64, int64, error) {
	return f.in, f.out, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.ShiftClosedEvent
}

func (n *recordingNotifier) ShiftClosed(_ context.Context, ev notify.ShiftClosedEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func testConfig(mode config.ShiftMode) config.Config {
	var cfg config.Config
	cfg.Shift.Mode = mode
	cfg.Shift.AllowForceClose = true
	cfg.Shift.AlertThreshold = 1_000
	return cfg
}

func newTestManager(mode config.ShiftMode, s fakeSales, c fakeCash) (*Manager, *memStore, *recordingNotifier) {
	store := newMemStore()
	n := &recordingNotifier{}
	m := NewManager(store, c, s, n, logger.New("test"), testConfig(mode))
	return m, store, n
}

func TestOpenCloseRoundTripBalanced(t *testing.T) {
	ctx := context.Background()
	m, _, n := newTestManager(config.ModePerUser,
		fakeSales{byMethod: map[sales.Method]int64{sales.MethodCash: 300_000}, count: 10, gross: 300_000},
		fakeCash{in: 20_000, out: 5_000})

	s, err := m.Open(ctx, 1, 42, nil, 100_000, "vault", "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if s.Status != StatusOpen || s.ShiftNo != 1 {
		t.Fatalf("unexpected shift: %+v", s)
	}

	closed, err := m.Close(ctx, 1, s.ID, 42, 415_000, "end of day")
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if closed.ExpectedCash != 415_000 {
		t.Fatalf("expected cash = %d, want 415000", closed.ExpectedCash)
	}
	if closed.Discrepancy != 0 || closed.Classification != recon.Balanced {
		t.Fatalf("got (%d, %s), want (0, balanced)", closed.Discrepancy, closed.Classification)
	}
	if closed.CountedCash == nil || *closed.CountedCash != 415_000 {
		t.Fatalf("counted cash not stamped: %+v", closed.CountedCash)
	}
	if closed.ClosedAt == nil || closed.ClosedBy == nil || *closed.ClosedBy != 42 {
		t.Fatal("close metadata not stamped")
	}
	if len(n.events) != 0 {
		t.Fatalf("balanced close must not alert, got %d events", len(n.events))
	}
}

func TestCloseShortageAlerts(t *testing.T) {
	ctx := context.Background()
	m, _, n := newTestManager(config.ModePerUser,
		fakeSales{byMethod: map[sales.Method]int64{sales.MethodCash: 300_000}, count: 10, gross: 300_000},
		fakeCash{in: 20_000, out: 5_000})

	s, err := m.Open(ctx, 1, 42, nil, 100_000, "vault", "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	closed, err := m.Close(ctx, 1, s.ID, 42, 410_000, "")
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if closed.Discrepancy != -5_000 || closed.Classification != recon.Shortage {
		t.Fatalf("got (%d, %s), want (-5000, shortage)", closed.Discrepancy, closed.Classification)
	}

	if len(n.events) != 1 {
		t.Fatalf("want 1 alert, got %d", len(n.events))
	}
	ev := n.events[0]
	if ev.Discrepancy != -5_000 || ev.Classification != recon.Shortage || ev.ShiftID != s.ID {
		t.Fatalf("bad event: %+v", ev)
	}
}

func TestCloseExactlyOnce(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(config.ModePerUser, fakeSales{}, fakeCash{})

	s, err := m.Open(ctx, 1, 42, nil, 0, "", "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := m.Close(ctx, 1, s.ID, 42, 0, ""); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if _, err := m.Close(ctx, 1, s.ID, 42, 0, ""); !errors.Is(err, errs.ErrInvalidState) {
		t.Fatalf("second close: want ErrInvalidState, got %v", err)
	}
	if _, err := m.ForceClose(ctx, 1, s.ID, 99, 0, ""); !errors.Is(err, errs.ErrInvalidState) {
		t.Fatalf("force close after close: want ErrInvalidState, got %v", err)
	}
}

func TestConcurrentOpenSingleWinner(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(config.ModeMultiStation, fakeSales{}, fakeCash{})

	stationID := int64(1) // "K1"
	const callers = 16

	var wg sync.WaitGroup
	results := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := m.Open(ctx, 1, int64(100+i), &stationID, 50_000, "vault", "")
			results[i] = err
		}(i)
	}
	wg.Wait()

	var wins, conflicts int
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, errs.ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || conflicts != callers-1 {
		t.Fatalf("got %d winners and %d conflicts, want 1 and %d", wins, conflicts, callers-1)
	}
}

func TestOpenScopeConflictPerUser(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(config.ModePerUser, fakeSales{}, fakeCash{})

	if _, err := m.Open(ctx, 1, 42, nil, 0, "", ""); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := m.Open(ctx, 1, 42, nil, 0, "", ""); !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("want ErrConflict, got %v", err)
	}
	// A different cashier gets their own scope.
	if _, err := m.Open(ctx, 1, 43, nil, 0, "", ""); err != nil {
		t.Fatalf("second user open: %v", err)
	}
}

func TestForceCloseDisabled(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	cfg := testConfig(config.ModePerUser)
	cfg.Shift.AllowForceClose = false
	m := NewManager(store, fakeCash{}, fakeSales{}, nil, logger.New("test"), cfg)

	s, err := m.Open(ctx, 1, 42, nil, 0, "", "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := m.ForceClose(ctx, 1, s.ID, 99, 0, ""); !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("want ErrConflict, got %v", err)
	}
	// Regular close by the opener still works.
	if _, err := m.Close(ctx, 1, s.ID, 42, 0, ""); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestOpenValidation(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(config.ModePerUser, fakeSales{}, fakeCash{})

	if _, err := m.Open(ctx, 1, 42, nil, -1, "", ""); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("negative float: want ErrValidation, got %v", err)
	}

	stationID := int64(5)
	if _, err := m.Open(ctx, 1, 42, &stationID, 0, "", ""); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("station outside multi_station: want ErrValidation, got %v", err)
	}
}

func TestOpenUsesBusinessDate(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	cfg := testConfig(config.ModePerUser)
	cfg.App.Timezone = "Asia/Jakarta"
	m := NewManager(store, fakeCash{}, fakeSales{}, nil, logger.New("test"), cfg)
	// 19:30 UTC is 02:30 the next day in Jakarta.
	m.now = func() time.Time { return time.Date(2025, 6, 1, 19, 30, 0, 0, time.UTC) }

	s, err := m.Open(ctx, 1, 42, nil, 0, "", "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	want := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	if !s.ShiftDate.Equal(want) {
		t.Fatalf("shift date = %s, want %s", s.ShiftDate, want)
	}
}

func TestJoinRecordsParticipants(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(config.ModeMultiStation, fakeSales{}, fakeCash{})

	stationID := int64(1)
	s, err := m.Open(ctx, 1, 42, &stationID, 0, "", "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := m.Join(ctx, 1, s.ID, 43); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := m.Join(ctx, 1, s.ID, 43); err != nil {
		t.Fatalf("repeat join must be a no-op: %v", err)
	}
	ps, err := m.Participants(ctx, 1, s.ID)
	if err != nil {
		t.Fatalf("participants: %v", err)
	}
	if len(ps) != 1 || ps[0].UserID != 43 {
		t.Fatalf("unexpected participants: %+v", ps)
	}
}
