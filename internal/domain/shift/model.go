package shift

import (
	"fmt"
	"time"

	"github.com/rioprayoga/kasirpos/internal/config"
	"github.com/rioprayoga/kasirpos/internal/domain/errs"
	"github.com/rioprayoga/kasirpos/internal/domain/recon"
)

type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// Shift is one cashier working session. Closed shifts are immutable
// history; every mutation happens through the repo while status is open.
type Shift struct {
	ID        int64
	TenantID  int64
	UserID    int64
	StationID *int64
	ScopeKey  string
	ShiftNo   int
	ShiftDate time.Time
	OpenedAt  time.Time
	ClosedAt  *time.Time
	ClosedBy  *int64

	StartingFloat int64
	FloatSource   string
	OpenNote      string
	CloseNote     string
	Status        Status

	// Aggregates, stamped at close.
	TxCount       int64
	GrossSales    int64
	Discount      int64
	NetSales      int64
	SalesCash     int64
	SalesCard     int64
	SalesTransfer int64
	SalesQRIS     int64
	SalesCredit   int64
	CashIn        int64
	CashOut       int64

	ExpectedCash   int64
	CountedCash    *int64
	Discrepancy    int64
	Classification recon.Classification
}

// Participant is an append-only record of who worked a shared-till shift.
// It never changes the shift's own state.
type Participant struct {
	ShiftID  int64
	UserID   int64
	JoinedAt time.Time
}

// ScopeKey encodes the tenant's operating mode into the value the partial
// unique index guards: the whole "at most one open shift per scope" rule
// reduces to uniqueness of (tenant_id, scope_key) among open rows.
func ScopeKey(mode config.ShiftMode, userID int64, stationID *int64) (string, error) {
	switch mode {
	case config.ModeSingleRegister:
		return "register", nil
	case config.ModePerUser:
		if userID == 0 {
			return "", errs.Validationf("per_user mode requires a user")
		}
		return fmt.Sprintf("user:%d", userID), nil
	case config.ModeMultiStation:
		if stationID == nil {
			return "", errs.Validationf("multi_station mode requires a station")
		}
		return fmt.Sprintf("station:%d", *stationID), nil
	default:
		return "", errs.Validationf("unknown shift mode %q", mode)
	}
}

type ListFilter struct {
	From      *time.Time
	To        *time.Time
	UserID    *int64
	StationID *int64
	Status    *Status
	Limit     int
	Offset    int
}
