package station

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rioprayoga/kasirpos/internal/domain/errs"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

const stationCols = `id, tenant_id, code, name, description, active, sort_order, created_at, updated_at`

func scanStation(row pgx.Row) (*Station, error) {
	var s Station
	err := row.Scan(&s.ID, &s.TenantID, &s.Code, &s.Name, &s.Description, &s.Active, &s.SortOrder, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repo) Create(ctx context.Context, tenantID int64, code, name, description string, sortOrder int) (*Station, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, errs.Validationf("station code is required")
	}
	if strings.TrimSpace(name) == "" {
		return nil, errs.Validationf("station name is required")
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO stations (tenant_id, code, name, description, sort_order)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING `+stationCols+`
	`, tenantID, code, name, description, sortOrder)

	s, err := scanStation(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, errs.Conflictf("station code %q already exists", code)
		}
		return nil, errs.Storage(err)
	}
	return s, nil
}

func (r *Repo) Update(ctx context.Context, tenantID, id int64, name, description string, active bool, sortOrder int) (*Station, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE stations
		SET name=$3, description=$4, active=$5, sort_order=$6, updated_at=now()
		WHERE id=$1 AND tenant_id=$2
		RETURNING `+stationCols+`
	`, id, tenantID, name, description, active, sortOrder)

	s, err := scanStation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.NotFoundf("station %d", id)
		}
		return nil, errs.Storage(err)
	}
	return s, nil
}

// Delete refuses to remove a station that an open shift still references;
// the guard runs inside the DELETE so there is no window between check
// and removal.
func (r *Repo) Delete(ctx context.Context, tenantID, id int64) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM stations
		WHERE id=$1 AND tenant_id=$2
		  AND NOT EXISTS (
			SELECT 1 FROM shifts
			WHERE tenant_id=$2 AND station_id=$1 AND status='open'
		  )
	`, id, tenantID)
	if err != nil {
		return errs.Storage(err)
	}
	if tag.RowsAffected() == 0 {
		var open bool
		err := r.pool.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM shifts
				WHERE tenant_id=$2 AND station_id=$1 AND status='open'
			)
		`, id, tenantID).Scan(&open)
		if err != nil {
			return errs.Storage(err)
		}
		if open {
			return errs.Conflictf("station %d has an open shift", id)
		}
		return errs.NotFoundf("station %d", id)
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, tenantID, id int64) (*Station, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+stationCols+` FROM stations WHERE id=$1 AND tenant_id=$2
	`, id, tenantID)
	s, err := scanStation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.NotFoundf("station %d", id)
		}
		return nil, errs.Storage(err)
	}
	return s, nil
}

func (r *Repo) List(ctx context.Context, tenantID int64) ([]Station, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+stationCols+`
		FROM stations
		WHERE tenant_id=$1
		ORDER BY sort_order, code
	`, tenantID)
	if err != nil {
		return nil, errs.Storage(err)
	}
	defer rows.Close()

	var out []Station
	for rows.Next() {
		var s Station
		if err := rows.Scan(&s.ID, &s.TenantID, &s.Code, &s.Name, &s.Description, &s.Active, &s.SortOrder, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, errs.Storage(err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Storage(err)
	}
	return out, nil
}
