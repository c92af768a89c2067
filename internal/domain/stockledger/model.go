package stockledger

import "time"

type MovementType string

const (
	TypeIn         MovementType = "in"
	TypeOut        MovementType = "out"
	TypeAdjustment MovementType = "adjustment"
	TypeReturn     MovementType = "return"
)

// ReferenceType says why stock changed; together with ReferenceID it links
// the movement back to the triggering record.
type ReferenceType string

const (
	RefSale             ReferenceType = "sale"
	RefRestock          ReferenceType = "restock"
	RefNewProduct       ReferenceType = "new_product"
	RefManualAdjustment ReferenceType = "manual_adjustment"
	RefStockCount       ReferenceType = "stock_count"
	RefSalesReturn      ReferenceType = "sales_return"
	RefPurchaseReturn   ReferenceType = "purchase_return"
	RefTransfer         ReferenceType = "transfer"
	RefDamage           ReferenceType = "damage"
)

// StockMovement is the sole audit trail for "why did stock change".
// Rows are written once and never mutated; QtyAfter must always equal
// QtyBefore + QtyDelta.
type StockMovement struct {
	ID            int64
	TenantID      int64
	ProductID     int64
	VariantID     *int64
	ActorID       *int64
	Type          MovementType
	QtyBefore     int64
	QtyDelta      int64
	QtyAfter      int64
	ReferenceType ReferenceType
	ReferenceID   string
	Note          string
	CreatedAt     time.Time
}

type Entry struct {
	TenantID      int64
	ProductID     int64
	VariantID     *int64
	ActorID       *int64
	Type          MovementType
	QtyBefore     int64
	QtyDelta      int64
	QtyAfter      int64
	ReferenceType ReferenceType
	ReferenceID   string
	Note          string
}

// AppendOutcome is the no-error reporting shape for callers whose own
// operation must not be masked by an audit write failure.
type AppendOutcome struct {
	OK       bool
	Movement *StockMovement
	Reason   string
}

type BatchFailure struct {
	Entry  Entry
	Reason string
}

type BatchResult struct {
	Succeeded []int64
	Failed    []BatchFailure
}
