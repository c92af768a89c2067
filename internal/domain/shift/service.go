package shift

import (
	"context"
	"log/slog"
	"time"

	"github.com/rioprayoga/kasirpos/internal/config"
	"github.com/rioprayoga/kasirpos/internal/domain/errs"
	"github.com/rioprayoga/kasirpos/internal/domain/recon"
	"github.com/rioprayoga/kasirpos/internal/domain/sales"
	"github.com/rioprayoga/kasirpos/internal/infra/metrics"
	"github.com/rioprayoga/kasirpos/internal/infra/notify"
)

// Store is the persistence surface the manager needs; *Repo implements it.
type Store interface {
	Open(ctx context.Context, p OpenParams) (*Shift, error)
	Close(ctx context.Context, tenantID, shiftID, closedBy int64, note string, c recon.Closing) (*Shift, error)
	Get(ctx context.Context, tenantID, shiftID int64) (*Shift, error)
	GetOpenByScope(ctx context.Context, tenantID int64, scopeKey string) (*Shift, error)
	List(ctx context.Context, tenantID int64, f ListFilter) ([]Shift, error)
	AddParticipant(ctx context.Context, tenantID, shiftID, userID int64) error
	Participants(ctx context.Context, tenantID, shiftID int64) ([]Participant, error)
}

// CashSummer is the slice of the cash ledger reconciliation reads.
type CashSummer interface {
	SumForShift(ctx context.Context, tenantID, shiftID int64) (cashIn, cashOut int64, err error)
}

// Manager drives the shift lifecycle. It owns no state; every transition
// is a store round trip.
type Manager struct {
	store    Store
	cash     CashSummer
	sales    sales.Reader
	notifier notify.Notifier
	log      *slog.Logger

	mode            config.ShiftMode
	allowForceClose bool
	alertThreshold  int64
	loc             *time.Location

	now func() time.Time
}

func NewManager(store Store, cash CashSummer, salesReader sales.Reader, notifier notify.Notifier, log *slog.Logger, cfg config.Config) *Manager {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &Manager{
		store:           store,
		cash:            cash,
		sales:           salesReader,
		notifier:        notifier,
		log:             log,
		mode:            cfg.Shift.Mode,
		allowForceClose: cfg.Shift.AllowForceClose,
		alertThreshold:  cfg.Shift.AlertThreshold,
		loc:             cfg.Location(),
		now:             time.Now,
	}
}

// Open starts a new shift. Scope uniqueness is enforced by the store
// inside the insert, so concurrent opens for the same scope yield exactly
// one shift and ErrConflict for everyone else.
func (m *Manager) Open(ctx context.Context, tenantID, userID int64, stationID *int64, startingFloat int64, floatSource, note string) (*Shift, error) {
	if startingFloat < 0 {
		return nil, errs.Validationf("starting float must not be negative, got %d", startingFloat)
	}
	if m.mode != config.ModeMultiStation && stationID != nil {
		return nil, errs.Validationf("stations are only used in multi_station mode")
	}
	key, err := ScopeKey(m.mode, userID, stationID)
	if err != nil {
		return nil, err
	}

	s, err := m.store.Open(ctx, OpenParams{
		TenantID:      tenantID,
		UserID:        userID,
		StationID:     stationID,
		ScopeKey:      key,
		Date:          m.businessDate(),
		StartingFloat: startingFloat,
		FloatSource:   floatSource,
		OpenNote:      note,
	})
	if err != nil {
		return nil, err
	}

	metrics.ShiftsOpened.Inc()
	m.log.Info("shift opened",
		"tenant_id", tenantID, "shift_id", s.ID, "shift_no", s.ShiftNo,
		"scope", key, "starting_float", startingFloat)
	return s, nil
}

// Close reconciles and finalizes a shift. The closing update only matches
// an open row, so a second close always fails with ErrInvalidState.
func (m *Manager) Close(ctx context.Context, tenantID, shiftID, userID, countedCash int64, note string) (*Shift, error) {
	return m.close(ctx, tenantID, shiftID, userID, countedCash, note)
}

// ForceClose closes on behalf of someone other than the opener, typically
// a supervisor ending an abandoned session. Gated by tenant policy.
func (m *Manager) ForceClose(ctx context.Context, tenantID, shiftID, supervisorID, countedCash int64, note string) (*Shift, error) {
	if !m.allowForceClose {
		return nil, errs.Conflictf("force close is disabled for this tenant")
	}
	return m.close(ctx, tenantID, shiftID, supervisorID, countedCash, note)
}

func (m *Manager) close(ctx context.Context, tenantID, shiftID, closedBy, countedCash int64, note string) (*Shift, error) {
	if countedCash < 0 {
		return nil, errs.Validationf("counted cash must not be negative, got %d", countedCash)
	}

	open, err := m.store.Get(ctx, tenantID, shiftID)
	if err != nil {
		return nil, err
	}
	if open.Status != StatusOpen {
		return nil, errs.InvalidStatef("shift %d is already closed", shiftID)
	}

	byMethod, err := m.sales.TotalsByMethod(ctx, tenantID, shiftID)
	if err != nil {
		return nil, err
	}
	txCount, err := m.sales.CountSuccessful(ctx, tenantID, shiftID)
	if err != nil {
		return nil, err
	}
	gross, discount, err := m.sales.Totals(ctx, tenantID, shiftID)
	if err != nil {
		return nil, err
	}
	cashIn, cashOut, err := m.cash.SumForShift(ctx, tenantID, shiftID)
	if err != nil {
		return nil, err
	}

	closing := recon.BuildClosing(open.StartingFloat, byMethod, gross, discount, txCount, cashIn, cashOut, countedCash)

	closed, err := m.store.Close(ctx, tenantID, shiftID, closedBy, note, closing)
	if err != nil {
		return nil, err
	}

	metrics.ShiftsClosed.WithLabelValues(string(closed.Classification)).Inc()
	m.log.Info("shift closed",
		"tenant_id", tenantID, "shift_id", closed.ID,
		"expected", closing.ExpectedCash, "counted", countedCash,
		"discrepancy", closing.Discrepancy, "classification", closing.Classification)

	if m.alertThreshold > 0 && abs(closing.Discrepancy) >= m.alertThreshold {
		closedAt := m.now()
		if closed.ClosedAt != nil {
			closedAt = *closed.ClosedAt
		}
		m.notifier.ShiftClosed(ctx, notify.ShiftClosedEvent{
			TenantID:       tenantID,
			ShiftID:        closed.ID,
			ShiftNo:        closed.ShiftNo,
			CashierID:      closed.UserID,
			ClosedBy:       closedBy,
			ClosedAt:       closedAt,
			ExpectedCash:   closing.ExpectedCash,
			CountedCash:    countedCash,
			Discrepancy:    closing.Discrepancy,
			Classification: closing.Classification,
		})
	}
	return closed, nil
}

// GetOpenShift resolves the currently open shift for a scope, if any.
func (m *Manager) GetOpenShift(ctx context.Context, tenantID, userID int64, stationID *int64) (*Shift, error) {
	key, err := ScopeKey(m.mode, userID, stationID)
	if err != nil {
		return nil, err
	}
	return m.store.GetOpenByScope(ctx, tenantID, key)
}

func (m *Manager) GetShift(ctx context.Context, tenantID, shiftID int64) (*Shift, error) {
	return m.store.Get(ctx, tenantID, shiftID)
}

func (m *Manager) ListShifts(ctx context.Context, tenantID int64, f ListFilter) ([]Shift, error) {
	return m.store.List(ctx, tenantID, f)
}

// Join records a user taking part in a shared-till shift.
func (m *Manager) Join(ctx context.Context, tenantID, shiftID, userID int64) error {
	return m.store.AddParticipant(ctx, tenantID, shiftID, userID)
}

func (m *Manager) Participants(ctx context.Context, tenantID, shiftID int64) ([]Participant, error) {
	return m.store.Participants(ctx, tenantID, shiftID)
}

// businessDate is today in the tenant's configured timezone: a shift
// opened at 02:00 local time belongs to that local calendar day, not to
// whatever day it is in UTC.
func (m *Manager) businessDate() time.Time {
	t := m.now().In(m.loc)
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
