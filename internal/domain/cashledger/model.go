package cashledger

import "time"

type Direction string

const (
	In  Direction = "in"
	Out Direction = "out"
)

// Opposite is the direction of an offsetting correction entry.
func (d Direction) Opposite() Direction {
	if d == In {
		return Out
	}
	return In
}

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	// StatusVoid marks a rejected pending entry. The row stays in the
	// table (the ledger never deletes) but is excluded from every sum.
	StatusVoid Status = "void"
)

// CashMovement is one manual drawer adjustment. Amounts are minor units
// (whole rupiah); rows are append-only — a wrong approved entry is fixed
// by a new offsetting entry, never by editing this one.
type CashMovement struct {
	ID          int64
	TenantID    int64
	ShiftID     *int64
	Direction   Direction
	Amount      int64
	CategoryID  int64
	Recipient   string
	ReferenceNo string
	Note        string
	Status      Status
	CreatedBy   int64
	ApprovedBy  *int64
	CreatedAt   time.Time
}

// InsertMovement is the fully resolved row handed to the store. Policy
// (validation, reference numbers, approval state) is decided before this
// point; the store only persists it, conditional on the shift being open.
type InsertMovement struct {
	TenantID    int64
	ShiftID     int64
	Direction   Direction
	Amount      int64
	CategoryID  int64
	Recipient   string
	ReferenceNo string
	Note        string
	Status      Status
	CreatedBy   int64
	ApprovedBy  *int64
}

type GroupBy string

const (
	GroupByCategory GroupBy = "category"
	GroupByDay      GroupBy = "day"
)

// SummaryRow is one aggregate bucket over approved movements.
type SummaryRow struct {
	Key      string
	TotalIn  int64
	TotalOut int64
}

type Filter struct {
	From      *time.Time
	To        *time.Time
	Direction *Direction
	Category  *int64
	CreatedBy *int64
	ShiftID   *int64
	Search    string
	Limit     int
	Offset    int
}
