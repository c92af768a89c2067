package recon

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rioprayoga/kasirpos/internal/domain/errs"
)

// PeriodSummary is the reporting rollup over closed shifts in a range.
type PeriodSummary struct {
	TenantID    int64
	From        time.Time
	To          time.Time
	ShiftCount  int64
	TxCount     int64
	GrossSales  int64
	NetSales    int64
	CashIn      int64
	CashOut     int64
	Discrepancy int64
	Balanced    int64
	Surpluses   int64
	Shortages   int64
	Shifts      []ShiftLine
}

// ShiftLine is one closed shift inside a period summary.
type ShiftLine struct {
	ShiftID        int64
	ShiftNo        int
	ShiftDate      time.Time
	CashierID      int64
	StationID      *int64
	ExpectedCash   int64
	CountedCash    int64
	Discrepancy    int64
	Classification Classification
}

type SummaryRepo struct{ pool *pgxpool.Pool }

func NewSummaryRepo(pool *pgxpool.Pool) *SummaryRepo { return &SummaryRepo{pool: pool} }

// SummaryForPeriod reads closed shifts only; it never mutates anything.
func (r *SummaryRepo) SummaryForPeriod(ctx context.Context, tenantID int64, from, to time.Time) (*PeriodSummary, error) {
	sum := PeriodSummary{TenantID: tenantID, From: from, To: to}

	rows, err := r.pool.Query(ctx, `
		SELECT id, shift_no, shift_date, user_id, station_id,
		       tx_count, gross_sales, net_sales, cash_in, cash_out,
		       expected_cash, counted_cash, discrepancy, classification
		FROM shifts
		WHERE tenant_id=$1 AND status='closed'
		  AND closed_at >= $2 AND closed_at < $3
		ORDER BY closed_at
	`, tenantID, from, to)
	if err != nil {
		return nil, errs.Storage(err)
	}
	defer rows.Close()

	for rows.Next() {
		var l ShiftLine
		var txCount, gross, net, cashIn, cashOut int64
		if err := rows.Scan(&l.ShiftID, &l.ShiftNo, &l.ShiftDate, &l.CashierID, &l.StationID,
			&txCount, &gross, &net, &cashIn, &cashOut,
			&l.ExpectedCash, &l.CountedCash, &l.Discrepancy, &l.Classification); err != nil {
			return nil, errs.Storage(err)
		}

		sum.ShiftCount++
		sum.TxCount += txCount
		sum.GrossSales += gross
		sum.NetSales += net
		sum.CashIn += cashIn
		sum.CashOut += cashOut
		sum.Discrepancy += l.Discrepancy
		switch l.Classification {
		case Surplus:
			sum.Surpluses++
		case Shortage:
			sum.Shortages++
		default:
			sum.Balanced++
		}
		sum.Shifts = append(sum.Shifts, l)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Storage(err)
	}
	return &sum, nil
}
