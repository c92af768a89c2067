package sales

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rioprayoga/kasirpos/internal/domain/errs"
)

// Method is a payment method as the sales processor records it.
type Method string

const (
	MethodCash     Method = "cash"
	MethodCard     Method = "card"
	MethodTransfer Method = "transfer"
	MethodQRIS     Method = "qris"
	MethodCredit   Method = "credit"
)

// Reader is the read-only view of the external sales transaction
// processor. The engine never writes sales.
type Reader interface {
	// TotalsByMethod sums successful sale amounts for one shift.
	TotalsByMethod(ctx context.Context, tenantID, shiftID int64) (map[Method]int64, error)
	// CountSuccessful counts successful transactions for one shift.
	CountSuccessful(ctx context.Context, tenantID, shiftID int64) (int64, error)
	// Totals returns gross and discount sums for one shift.
	Totals(ctx context.Context, tenantID, shiftID int64) (gross, discount int64, err error)
}

type PGReader struct{ pool *pgxpool.Pool }

func NewPGReader(pool *pgxpool.Pool) *PGReader { return &PGReader{pool: pool} }

func (r *PGReader) TotalsByMethod(ctx context.Context, tenantID, shiftID int64) (map[Method]int64, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT payment_method, COALESCE(SUM(total_amount), 0)
		FROM sales
		WHERE tenant_id=$1 AND shift_id=$2 AND status='success'
		GROUP BY payment_method
	`, tenantID, shiftID)
	if err != nil {
		return nil, errs.Storage(err)
	}
	defer rows.Close()

	out := map[Method]int64{}
	for rows.Next() {
		var m Method
		var total int64
		if err := rows.Scan(&m, &total); err != nil {
			return nil, errs.Storage(err)
		}
		out[m] = total
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Storage(err)
	}
	return out, nil
}

func (r *PGReader) CountSuccessful(ctx context.Context, tenantID, shiftID int64) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM sales
		WHERE tenant_id=$1 AND shift_id=$2 AND status='success'
	`, tenantID, shiftID).Scan(&n)
	if err != nil {
		return 0, errs.Storage(err)
	}
	return n, nil
}

func (r *PGReader) Totals(ctx context.Context, tenantID, shiftID int64) (gross, discount int64, err error) {
	err = r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(total_amount), 0), COALESCE(SUM(discount_amount), 0)
		FROM sales
		WHERE tenant_id=$1 AND shift_id=$2 AND status='success'
	`, tenantID, shiftID).Scan(&gross, &discount)
	if err != nil {
		return 0, 0, errs.Storage(err)
	}
	return gross, discount, nil
}
