package cashledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/rioprayoga/kasirpos/internal/domain/errs"
	"github.com/rioprayoga/kasirpos/internal/infra/metrics"
)

// Store is the persistence surface the ledger needs; *Repo implements it.
type Store interface {
	Insert(ctx context.Context, in InsertMovement) (*CashMovement, error)
	Transition(ctx context.Context, tenantID, id, actor int64, to Status) (*CashMovement, error)
	Get(ctx context.Context, tenantID, id int64) (*CashMovement, error)
	Query(ctx context.Context, tenantID int64, f Filter) ([]CashMovement, int64, error)
	Summarize(ctx context.Context, tenantID int64, f Filter, groupBy GroupBy) ([]SummaryRow, error)
	SumForShift(ctx context.Context, tenantID, shiftID int64) (cashIn, cashOut int64, err error)
}

// Ledger applies policy on top of the store: input validation, reference
// numbers, the approval flow and offsetting corrections.
type Ledger struct {
	store Store
	// autoApprove records new movements as approved immediately
	// (tenant policy; small shops without a supervisor step).
	autoApprove bool
}

func NewLedger(store Store, autoApprove bool) *Ledger {
	return &Ledger{store: store, autoApprove: autoApprove}
}

// newReferenceNo uses the full UUID: reference numbers are unique across
// all tenants forever, so a truncated id would eventually collide.
func newReferenceNo() string {
	return "CM-" + strings.ToUpper(uuid.NewString())
}

type RecordInput struct {
	TenantID   int64
	ShiftID    *int64
	Direction  Direction
	Amount     int64
	CategoryID int64
	Recipient  string
	Note       string
	CreatedBy  int64
}

func (in RecordInput) validate() error {
	if in.TenantID == 0 {
		return errs.Validationf("tenant is required")
	}
	if in.Amount <= 0 {
		return errs.Validationf("amount must be positive, got %d", in.Amount)
	}
	if in.Direction != In && in.Direction != Out {
		return errs.Validationf("direction must be in or out, got %q", in.Direction)
	}
	if in.ShiftID == nil {
		return errs.Validationf("cash movement requires an open shift")
	}
	if in.CategoryID == 0 {
		return errs.Validationf("category is required")
	}
	return nil
}

// Record appends a new movement. The store only accepts the row while the
// referenced shift is open for the same tenant, so a movement can never
// land on a shift whose reconciliation already ran.
func (l *Ledger) Record(ctx context.Context, in RecordInput) (*CashMovement, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	status := StatusPending
	var approvedBy *int64
	if l.autoApprove {
		status = StatusApproved
		approvedBy = &in.CreatedBy
	}

	m, err := l.store.Insert(ctx, InsertMovement{
		TenantID:    in.TenantID,
		ShiftID:     *in.ShiftID,
		Direction:   in.Direction,
		Amount:      in.Amount,
		CategoryID:  in.CategoryID,
		Recipient:   in.Recipient,
		ReferenceNo: newReferenceNo(),
		Note:        in.Note,
		Status:      status,
		CreatedBy:   in.CreatedBy,
		ApprovedBy:  approvedBy,
	})
	if err != nil {
		return nil, err
	}
	metrics.CashMovements.WithLabelValues(string(m.Direction)).Inc()
	return m, nil
}

// Approve moves a pending entry to approved, exactly once.
func (l *Ledger) Approve(ctx context.Context, tenantID, id, approver int64) (*CashMovement, error) {
	return l.store.Transition(ctx, tenantID, id, approver, StatusApproved)
}

// Void rejects a pending entry. Voided rows stay in the table and are
// excluded from every sum.
func (l *Ledger) Void(ctx context.Context, tenantID, id, actor int64) (*CashMovement, error) {
	return l.store.Transition(ctx, tenantID, id, actor, StatusVoid)
}

// reversal builds the offsetting entry for an approved movement: same
// amount, shift and category, opposite direction, approved immediately,
// so any approved sum nets the pair to zero.
func reversal(orig *CashMovement, actor int64, note string) InsertMovement {
	if note == "" {
		note = fmt.Sprintf("reversal of %s", orig.ReferenceNo)
	} else {
		note = fmt.Sprintf("%s (reversal of %s)", note, orig.ReferenceNo)
	}
	var shiftID int64
	if orig.ShiftID != nil {
		shiftID = *orig.ShiftID
	}
	return InsertMovement{
		TenantID:    orig.TenantID,
		ShiftID:     shiftID,
		Direction:   orig.Direction.Opposite(),
		Amount:      orig.Amount,
		CategoryID:  orig.CategoryID,
		Recipient:   orig.Recipient,
		ReferenceNo: newReferenceNo(),
		Note:        note,
		Status:      StatusApproved,
		CreatedBy:   actor,
		ApprovedBy:  &actor,
	}
}

// Reverse corrects an approved entry with a new offsetting entry in the
// opposite direction. The original row is never touched; the correction
// must land while the shift is still open so the close sums see it.
func (l *Ledger) Reverse(ctx context.Context, tenantID, id, actor int64, note string) (*CashMovement, error) {
	orig, err := l.store.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if orig.Status != StatusApproved {
		return nil, errs.InvalidStatef("only approved movements can be reversed, %d is %s", id, orig.Status)
	}

	m, err := l.store.Insert(ctx, reversal(orig, actor, note))
	if err != nil {
		return nil, err
	}
	metrics.CashMovements.WithLabelValues(string(m.Direction)).Inc()
	return m, nil
}

func (l *Ledger) Get(ctx context.Context, tenantID, id int64) (*CashMovement, error) {
	return l.store.Get(ctx, tenantID, id)
}

func (l *Ledger) Query(ctx context.Context, tenantID int64, f Filter) ([]CashMovement, int64, error) {
	return l.store.Query(ctx, tenantID, f)
}

func (l *Ledger) Summarize(ctx context.Context, tenantID int64, f Filter, groupBy GroupBy) ([]SummaryRow, error) {
	return l.store.Summarize(ctx, tenantID, f, groupBy)
}

func (l *Ledger) SumForShift(ctx context.Context, tenantID, shiftID int64) (cashIn, cashOut int64, err error) {
	return l.store.SumForShift(ctx, tenantID, shiftID)
}
