package stockledger

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rioprayoga/kasirpos/internal/domain/errs"
	"github.com/rioprayoga/kasirpos/internal/infra/metrics"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

func validate(e Entry) error {
	if e.TenantID == 0 || e.ProductID == 0 {
		return errs.Validationf("tenant and product are required")
	}
	switch e.Type {
	case TypeIn, TypeReturn:
		if e.QtyDelta <= 0 {
			return errs.Validationf("%s movement requires a positive delta, got %d", e.Type, e.QtyDelta)
		}
	case TypeOut:
		if e.QtyDelta >= 0 {
			return errs.Validationf("out movement requires a negative delta, got %d", e.QtyDelta)
		}
	case TypeAdjustment:
		// either sign; the identity check below still applies
	default:
		return errs.Validationf("unknown movement type %q", e.Type)
	}
	if e.QtyAfter != e.QtyBefore+e.QtyDelta {
		return errs.Validationf("quantity mismatch: %d + %d != %d", e.QtyBefore, e.QtyDelta, e.QtyAfter)
	}
	return nil
}

// Append writes one audit row. Validation errors come back before any
// write; store errors come back wrapped as ErrStorage.
func (r *Repo) Append(ctx context.Context, e Entry) (*StockMovement, error) {
	if err := validate(e); err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO stock_movements
			(tenant_id, product_id, variant_id, actor_id, type, qty_before, qty_delta, qty_after, reference_type, reference_id, note)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING id, created_at
	`, e.TenantID, e.ProductID, e.VariantID, e.ActorID, e.Type,
		e.QtyBefore, e.QtyDelta, e.QtyAfter, e.ReferenceType, e.ReferenceID, e.Note)

	m := StockMovement{
		TenantID:      e.TenantID,
		ProductID:     e.ProductID,
		VariantID:     e.VariantID,
		ActorID:       e.ActorID,
		Type:          e.Type,
		QtyBefore:     e.QtyBefore,
		QtyDelta:      e.QtyDelta,
		QtyAfter:      e.QtyAfter,
		ReferenceType: e.ReferenceType,
		ReferenceID:   e.ReferenceID,
		Note:          e.Note,
	}
	if err := row.Scan(&m.ID, &m.CreatedAt); err != nil {
		metrics.LedgerWriteFailures.WithLabelValues("stock").Inc()
		return nil, errs.Storage(err)
	}
	metrics.StockMovements.WithLabelValues(string(m.Type)).Inc()
	return &m, nil
}

// Log is Append for callers on the sale path: it never returns an error,
// so a failed audit write cannot be confused with a failure of the
// triggering operation. The caller decides what a !OK outcome means.
func (r *Repo) Log(ctx context.Context, e Entry) AppendOutcome {
	m, err := r.Append(ctx, e)
	if err != nil {
		return AppendOutcome{Reason: err.Error()}
	}
	return AppendOutcome{OK: true, Movement: m}
}

func saleEntry(tenantID, productID int64, variantID, actorID *int64, before, qty int64, saleRef string) Entry {
	return Entry{
		TenantID: tenantID, ProductID: productID, VariantID: variantID, ActorID: actorID,
		Type: TypeOut, QtyBefore: before, QtyDelta: -qty, QtyAfter: before - qty,
		ReferenceType: RefSale, ReferenceID: saleRef,
	}
}

func restockEntry(tenantID, productID int64, variantID, actorID *int64, before, qty int64, ref, note string) Entry {
	return Entry{
		TenantID: tenantID, ProductID: productID, VariantID: variantID, ActorID: actorID,
		Type: TypeIn, QtyBefore: before, QtyDelta: qty, QtyAfter: before + qty,
		ReferenceType: RefRestock, ReferenceID: ref, Note: note,
	}
}

// adjustmentEntry takes the counted target quantity and derives the delta.
func adjustmentEntry(tenantID, productID int64, variantID, actorID *int64, before, target int64, note string) Entry {
	return Entry{
		TenantID: tenantID, ProductID: productID, VariantID: variantID, ActorID: actorID,
		Type: TypeAdjustment, QtyBefore: before, QtyDelta: target - before, QtyAfter: target,
		ReferenceType: RefStockCount, Note: note,
	}
}

func returnEntry(tenantID, productID int64, variantID, actorID *int64, before, qty int64, saleRef string) Entry {
	return Entry{
		TenantID: tenantID, ProductID: productID, VariantID: variantID, ActorID: actorID,
		Type: TypeReturn, QtyBefore: before, QtyDelta: qty, QtyAfter: before + qty,
		ReferenceType: RefSalesReturn, ReferenceID: saleRef,
	}
}

// RecordSale logs stock leaving the shelf for a sale line item.
func (r *Repo) RecordSale(ctx context.Context, tenantID, productID int64, variantID, actorID *int64, before, qty int64, saleRef string) AppendOutcome {
	return r.Log(ctx, saleEntry(tenantID, productID, variantID, actorID, before, qty, saleRef))
}

func (r *Repo) RecordRestock(ctx context.Context, tenantID, productID int64, variantID, actorID *int64, before, qty int64, ref string, note string) AppendOutcome {
	return r.Log(ctx, restockEntry(tenantID, productID, variantID, actorID, before, qty, ref, note))
}

func (r *Repo) RecordAdjustment(ctx context.Context, tenantID, productID int64, variantID, actorID *int64, before, target int64, note string) AppendOutcome {
	return r.Log(ctx, adjustmentEntry(tenantID, productID, variantID, actorID, before, target, note))
}

func (r *Repo) RecordReturn(ctx context.Context, tenantID, productID int64, variantID, actorID *int64, before, qty int64, saleRef string) AppendOutcome {
	return r.Log(ctx, returnEntry(tenantID, productID, variantID, actorID, before, qty, saleRef))
}

// BatchAppend is best-effort: each entry stands alone, one failure never
// aborts the rest.
func (r *Repo) BatchAppend(ctx context.Context, entries []Entry) BatchResult {
	var res BatchResult
	for _, e := range entries {
		m, err := r.Append(ctx, e)
		if err != nil {
			res.Failed = append(res.Failed, BatchFailure{Entry: e, Reason: err.Error()})
			continue
		}
		res.Succeeded = append(res.Succeeded, m.ID)
	}
	return res
}

func (r *Repo) History(ctx context.Context, tenantID, productID int64, variantID *int64, limit int) ([]StockMovement, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, tenant_id, product_id, variant_id, actor_id, type,
		       qty_before, qty_delta, qty_after, reference_type, reference_id, note, created_at
		FROM stock_movements
		WHERE tenant_id=$1 AND product_id=$2
		  AND ($3::bigint IS NULL OR variant_id=$3)
		ORDER BY created_at DESC, id DESC
		LIMIT $4
	`, tenantID, productID, variantID, limit)
	if err != nil {
		return nil, errs.Storage(err)
	}
	defer rows.Close()

	var out []StockMovement
	for rows.Next() {
		var m StockMovement
		if err := rows.Scan(&m.ID, &m.TenantID, &m.ProductID, &m.VariantID, &m.ActorID, &m.Type,
			&m.QtyBefore, &m.QtyDelta, &m.QtyAfter, &m.ReferenceType, &m.ReferenceID, &m.Note, &m.CreatedAt); err != nil {
			return nil, errs.Storage(err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Storage(err)
	}
	return out, nil
}

// CurrentQuantity reads the live quantity from the catalog-owned product
// or variant row. The ledger is the audit trail, not the source of truth
// for current stock.
func (r *Repo) CurrentQuantity(ctx context.Context, tenantID, productID int64, variantID *int64) (int64, error) {
	var qty int64
	var err error
	if variantID != nil {
		err = r.pool.QueryRow(ctx, `
			SELECT stock_qty FROM product_variants
			WHERE tenant_id=$1 AND product_id=$2 AND id=$3
		`, tenantID, productID, *variantID).Scan(&qty)
	} else {
		err = r.pool.QueryRow(ctx, `
			SELECT stock_qty FROM products
			WHERE tenant_id=$1 AND id=$2
		`, tenantID, productID).Scan(&qty)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, errs.NotFoundf("product %d", productID)
	}
	if err != nil {
		return 0, errs.Storage(err)
	}
	return qty, nil
}
