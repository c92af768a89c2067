package shift

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rioprayoga/kasirpos/internal/domain/errs"
	"github.com/rioprayoga/kasirpos/internal/domain/recon"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

const shiftCols = `id, tenant_id, user_id, station_id, scope_key, shift_no, shift_date,
	opened_at, closed_at, closed_by, starting_float, float_source, open_note, close_note, status,
	tx_count, gross_sales, discount_total, net_sales,
	sales_cash, sales_card, sales_transfer, sales_qris, sales_credit,
	cash_in, cash_out, expected_cash, counted_cash, discrepancy, classification`

func scanShift(row pgx.Row) (*Shift, error) {
	var s Shift
	var class *string
	err := row.Scan(&s.ID, &s.TenantID, &s.UserID, &s.StationID, &s.ScopeKey, &s.ShiftNo, &s.ShiftDate,
		&s.OpenedAt, &s.ClosedAt, &s.ClosedBy, &s.StartingFloat, &s.FloatSource, &s.OpenNote, &s.CloseNote, &s.Status,
		&s.TxCount, &s.GrossSales, &s.Discount, &s.NetSales,
		&s.SalesCash, &s.SalesCard, &s.SalesTransfer, &s.SalesQRIS, &s.SalesCredit,
		&s.CashIn, &s.CashOut, &s.ExpectedCash, &s.CountedCash, &s.Discrepancy, &class)
	if err != nil {
		return nil, err
	}
	if class != nil {
		s.Classification = recon.Classification(*class)
	}
	return &s, nil
}

type OpenParams struct {
	TenantID      int64
	UserID        int64
	StationID     *int64
	ScopeKey      string
	Date          time.Time
	StartingFloat int64
	FloatSource   string
	OpenNote      string
}

// Open is a single conditional INSERT. The partial unique index on
// (tenant_id, scope_key) WHERE status='open' turns a concurrent second
// open into a unique violation, so the scope check and the insert are one
// atomic statement — there is no check-then-insert window.
//
// The sequence number is computed in the same statement; the
// (tenant_id, shift_date, shift_no) index can still collide when two
// different scopes open at the same instant, so those collisions retry.
func (r *Repo) Open(ctx context.Context, p OpenParams) (*Shift, error) {
	const attempts = 3
	for i := 0; i < attempts; i++ {
		row := r.pool.QueryRow(ctx, `
			INSERT INTO shifts
				(tenant_id, user_id, station_id, scope_key, shift_no, shift_date,
				 starting_float, float_source, open_note, status)
			VALUES ($1,$2,$3,$4,
				(SELECT COALESCE(MAX(shift_no),0)+1 FROM shifts WHERE tenant_id=$1 AND shift_date=$5),
				$5,$6,$7,$8,'open')
			RETURNING `+shiftCols+`
		`, p.TenantID, p.UserID, p.StationID, p.ScopeKey, p.Date, p.StartingFloat, p.FloatSource, p.OpenNote)

		s, err := scanShift(row)
		if err == nil {
			return s, nil
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			switch pgErr.ConstraintName {
			case "shifts_open_scope_uq":
				return nil, errs.Conflictf("an open shift already exists for %s", p.ScopeKey)
			case "shifts_tenant_date_no_uq":
				continue // sequence race with another scope, renumber
			}
		}
		return nil, errs.Storage(err)
	}
	return nil, errs.Storage(fmt.Errorf("could not allocate shift number after %d attempts", attempts))
}

// Close finalizes the shift in one conditional UPDATE. Only a row that is
// still open matches, so of two concurrent closes exactly one wins; the
// loser gets ErrInvalidState.
func (r *Repo) Close(ctx context.Context, tenantID, shiftID, closedBy int64, note string, c recon.Closing) (*Shift, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE shifts SET
			status='closed', closed_at=now(), closed_by=$3, close_note=$4,
			tx_count=$5, gross_sales=$6, discount_total=$7, net_sales=$8,
			sales_cash=$9, sales_card=$10, sales_transfer=$11, sales_qris=$12, sales_credit=$13,
			cash_in=$14, cash_out=$15,
			expected_cash=$16, counted_cash=$17, discrepancy=$18, classification=$19
		WHERE id=$1 AND tenant_id=$2 AND status='open'
		RETURNING `+shiftCols+`
	`, shiftID, tenantID, closedBy, note,
		c.TxCount, c.GrossSales, c.Discount, c.NetSales,
		c.SalesCash, c.SalesCard, c.SalesTransfer, c.SalesQRIS, c.SalesCredit,
		c.CashIn, c.CashOut,
		c.ExpectedCash, c.CountedCash, c.Discrepancy, string(c.Classification))

	s, err := scanShift(row)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.Storage(err)
	}

	// No open row matched: already closed, or not ours at all.
	if _, err := r.Get(ctx, tenantID, shiftID); err != nil {
		return nil, err
	}
	return nil, errs.InvalidStatef("shift %d is already closed", shiftID)
}

func (r *Repo) Get(ctx context.Context, tenantID, shiftID int64) (*Shift, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+shiftCols+` FROM shifts WHERE id=$1 AND tenant_id=$2
	`, shiftID, tenantID)
	s, err := scanShift(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.NotFoundf("shift %d", shiftID)
		}
		return nil, errs.Storage(err)
	}
	return s, nil
}

func (r *Repo) GetOpenByScope(ctx context.Context, tenantID int64, scopeKey string) (*Shift, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+shiftCols+` FROM shifts
		WHERE tenant_id=$1 AND scope_key=$2 AND status='open'
	`, tenantID, scopeKey)
	s, err := scanShift(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.NotFoundf("no open shift for %s", scopeKey)
		}
		return nil, errs.Storage(err)
	}
	return s, nil
}

func (r *Repo) List(ctx context.Context, tenantID int64, f ListFilter) ([]Shift, error) {
	where := []string{"tenant_id = $1"}
	args := []any{tenantID}

	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.From != nil {
		add("shift_date >= $%d", *f.From)
	}
	if f.To != nil {
		add("shift_date <= $%d", *f.To)
	}
	if f.UserID != nil {
		add("user_id = $%d", *f.UserID)
	}
	if f.StationID != nil {
		add("station_id = $%d", *f.StationID)
	}
	if f.Status != nil {
		add("status = $%d", *f.Status)
	}

	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	args = append(args, limit, f.Offset)

	q := fmt.Sprintf(`
		SELECT `+shiftCols+`
		FROM shifts
		WHERE %s
		ORDER BY shift_date DESC, shift_no DESC
		LIMIT $%d OFFSET $%d
	`, strings.Join(where, " AND "), len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, errs.Storage(err)
	}
	defer rows.Close()

	var out []Shift
	for rows.Next() {
		s, err := scanShift(rows)
		if err != nil {
			return nil, errs.Storage(err)
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Storage(err)
	}
	return out, nil
}

// AddParticipant appends to the shared-till participation list. Adding the
// same user twice is a no-op.
func (r *Repo) AddParticipant(ctx context.Context, tenantID, shiftID, userID int64) error {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO shift_participants (shift_id, user_id)
		SELECT id, $3 FROM shifts WHERE id=$1 AND tenant_id=$2 AND status='open'
		ON CONFLICT (shift_id, user_id) DO NOTHING
	`, shiftID, tenantID, userID)
	if err != nil {
		return errs.Storage(err)
	}
	if tag.RowsAffected() == 0 {
		s, err := r.Get(ctx, tenantID, shiftID)
		if err != nil {
			return err
		}
		if s.Status == StatusClosed {
			return errs.InvalidStatef("shift %d is closed", shiftID)
		}
	}
	return nil
}

func (r *Repo) Participants(ctx context.Context, tenantID, shiftID int64) ([]Participant, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.shift_id, p.user_id, p.joined_at
		FROM shift_participants p
		JOIN shifts s ON s.id = p.shift_id
		WHERE s.id=$1 AND s.tenant_id=$2
		ORDER BY p.joined_at
	`, shiftID, tenantID)
	if err != nil {
		return nil, errs.Storage(err)
	}
	defer rows.Close()

	var out []Participant
	for rows.Next() {
		var p Participant
		if err := rows.Scan(&p.ShiftID, &p.UserID, &p.JoinedAt); err != nil {
			return nil, errs.Storage(err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Storage(err)
	}
	return out, nil
}
