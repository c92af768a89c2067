package cashledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rioprayoga/kasirpos/internal/domain/errs"
	"github.com/rioprayoga/kasirpos/internal/infra/metrics"
)

// Repo is the Postgres store behind Ledger.
type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

const movementCols = `id, tenant_id, shift_id, direction, amount, category_id, recipient, reference_no, note, status, created_by, approved_by, created_at`

func scanMovement(row pgx.Row) (*CashMovement, error) {
	var m CashMovement
	err := row.Scan(&m.ID, &m.TenantID, &m.ShiftID, &m.Direction, &m.Amount, &m.CategoryID,
		&m.Recipient, &m.ReferenceNo, &m.Note, &m.Status, &m.CreatedBy, &m.ApprovedBy, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Insert appends one row, conditional on the referenced shift being open
// and owned by the same tenant. The shift check and the insert are one
// statement, so a concurrent close cannot slip a movement onto a shift
// that reconciliation has already summed.
func (r *Repo) Insert(ctx context.Context, in InsertMovement) (*CashMovement, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO cash_movements
			(tenant_id, shift_id, direction, amount, category_id, recipient, reference_no, note, status, created_by, approved_by)
		SELECT $1, s.id, $3, $4, $5, $6, $7, $8, $9, $10, $11
		FROM shifts s
		WHERE s.id = $2 AND s.tenant_id = $1 AND s.status = 'open'
		RETURNING `+movementCols+`
	`, in.TenantID, in.ShiftID, in.Direction, in.Amount, in.CategoryID,
		in.Recipient, in.ReferenceNo, in.Note, in.Status, in.CreatedBy, in.ApprovedBy)

	m, err := scanMovement(row)
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		metrics.LedgerWriteFailures.WithLabelValues("cash").Inc()
		return nil, errs.Storage(err)
	}

	// The guard matched nothing: shift closed, or not this tenant's.
	var status string
	err = r.pool.QueryRow(ctx, `
		SELECT status FROM shifts WHERE id=$1 AND tenant_id=$2
	`, in.ShiftID, in.TenantID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFoundf("shift %d", in.ShiftID)
	}
	if err != nil {
		return nil, errs.Storage(err)
	}
	return nil, errs.InvalidStatef("shift %d is %s, cash moves only on an open shift", in.ShiftID, status)
}

// Transition moves a pending entry to another status, exactly once. The
// WHERE clause carries the state check so two concurrent transitions
// cannot both win.
func (r *Repo) Transition(ctx context.Context, tenantID, id, actor int64, to Status) (*CashMovement, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE cash_movements
		SET status=$4, approved_by=$3
		WHERE id=$1 AND tenant_id=$2 AND status='pending'
		RETURNING `+movementCols+`
	`, id, tenantID, actor, to)

	m, err := scanMovement(row)
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.Storage(err)
	}

	var status Status
	err = r.pool.QueryRow(ctx, `
		SELECT status FROM cash_movements WHERE id=$1 AND tenant_id=$2
	`, id, tenantID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFoundf("cash movement %d", id)
	}
	if err != nil {
		return nil, errs.Storage(err)
	}
	return nil, errs.InvalidStatef("cash movement %d is %s, not pending", id, status)
}

func (r *Repo) Get(ctx context.Context, tenantID, id int64) (*CashMovement, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+movementCols+` FROM cash_movements WHERE id=$1 AND tenant_id=$2
	`, id, tenantID)
	m, err := scanMovement(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.NotFoundf("cash movement %d", id)
		}
		return nil, errs.Storage(err)
	}
	return m, nil
}

func (r *Repo) Query(ctx context.Context, tenantID int64, f Filter) ([]CashMovement, int64, error) {
	where := []string{"tenant_id = $1"}
	args := []any{tenantID}

	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if f.From != nil {
		add("created_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("created_at < $%d", *f.To)
	}
	if f.Direction != nil {
		add("direction = $%d", *f.Direction)
	}
	if f.Category != nil {
		add("category_id = $%d", *f.Category)
	}
	if f.CreatedBy != nil {
		add("created_by = $%d", *f.CreatedBy)
	}
	if f.ShiftID != nil {
		add("shift_id = $%d", *f.ShiftID)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+s+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(recipient ILIKE $%d OR note ILIKE $%d OR reference_no ILIKE $%d)", n, n, n))
	}

	cond := strings.Join(where, " AND ")

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM cash_movements WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, errs.Storage(err)
	}

	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	args = append(args, limit, f.Offset)
	q := fmt.Sprintf(`
		SELECT `+movementCols+`
		FROM cash_movements
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, cond, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, errs.Storage(err)
	}
	defer rows.Close()

	var out []CashMovement
	for rows.Next() {
		var m CashMovement
		if err := rows.Scan(&m.ID, &m.TenantID, &m.ShiftID, &m.Direction, &m.Amount, &m.CategoryID,
			&m.Recipient, &m.ReferenceNo, &m.Note, &m.Status, &m.CreatedBy, &m.ApprovedBy, &m.CreatedAt); err != nil {
			return nil, 0, errs.Storage(err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errs.Storage(err)
	}
	return out, total, nil
}

// Summarize aggregates approved movements only.
func (r *Repo) Summarize(ctx context.Context, tenantID int64, f Filter, groupBy GroupBy) ([]SummaryRow, error) {
	var key string
	switch groupBy {
	case GroupByCategory:
		key = "category_id::text"
	case GroupByDay:
		key = "to_char(created_at, 'YYYY-MM-DD')"
	default:
		return nil, errs.Validationf("unknown group key %q", groupBy)
	}

	args := []any{tenantID}
	cond := "tenant_id = $1 AND status = 'approved'"
	if f.From != nil {
		args = append(args, *f.From)
		cond += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if f.To != nil {
		args = append(args, *f.To)
		cond += fmt.Sprintf(" AND created_at < $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT %s,
		       COALESCE(SUM(amount) FILTER (WHERE direction='in'), 0),
		       COALESCE(SUM(amount) FILTER (WHERE direction='out'), 0)
		FROM cash_movements
		WHERE %s
		GROUP BY 1
		ORDER BY 1
	`, key, cond), args...)
	if err != nil {
		return nil, errs.Storage(err)
	}
	defer rows.Close()

	var out []SummaryRow
	for rows.Next() {
		var s SummaryRow
		if err := rows.Scan(&s.Key, &s.TotalIn, &s.TotalOut); err != nil {
			return nil, errs.Storage(err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Storage(err)
	}
	return out, nil
}

// SumForShift feeds reconciliation: totals of approved in/out for one shift.
func (r *Repo) SumForShift(ctx context.Context, tenantID, shiftID int64) (cashIn, cashOut int64, err error) {
	err = r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount) FILTER (WHERE direction='in'), 0),
		       COALESCE(SUM(amount) FILTER (WHERE direction='out'), 0)
		FROM cash_movements
		WHERE tenant_id=$1 AND shift_id=$2 AND status='approved'
	`, tenantID, shiftID).Scan(&cashIn, &cashOut)
	if err != nil {
		return 0, 0, errs.Storage(err)
	}
	return cashIn, cashOut, nil
}
