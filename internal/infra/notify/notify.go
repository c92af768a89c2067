package notify

import (
	"context"
	"time"

	"github.com/rioprayoga/kasirpos/internal/domain/recon"
)

// ShiftClosedEvent is raised when a shift closes with a discrepancy at or
// beyond the tenant's alert threshold.
type ShiftClosedEvent struct {
	TenantID       int64
	ShiftID        int64
	ShiftNo        int
	CashierID      int64
	ClosedBy       int64
	ClosedAt       time.Time
	ExpectedCash   int64
	CountedCash    int64
	Discrepancy    int64
	Classification recon.Classification
}

// Notifier delivers shift-close alerts. Delivery is best-effort by
// contract: the close itself never depends on it.
type Notifier interface {
	ShiftClosed(ctx context.Context, ev ShiftClosedEvent)
}

// Noop is used when no delivery channel is configured.
type Noop struct{}

func (Noop) ShiftClosed(context.Context, ShiftClosedEvent) {}
