package stockledger

import (
	"errors"
	"testing"

	"github.com/rioprayoga/kasirpos/internal/domain/errs"
)

func entry(t MovementType, before, delta, after int64) Entry {
	return Entry{
		TenantID:  1,
		ProductID: 7,
		Type:      t,
		QtyBefore: before,
		QtyDelta:  delta,
		QtyAfter:  after,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		e       Entry
		wantErr bool
	}{
		{"sale out", entry(TypeOut, 10, -3, 7), false},
		{"restock in", entry(TypeIn, 7, 5, 12), false},
		{"return", entry(TypeReturn, 7, 1, 8), false},
		{"count down to 42", entry(TypeAdjustment, 50, -8, 42), false},
		{"count up", entry(TypeAdjustment, 50, 8, 58), false},

		{"out with positive delta", entry(TypeOut, 10, 3, 13), true},
		{"out with zero delta", entry(TypeOut, 10, 0, 10), true},
		{"in with negative delta", entry(TypeIn, 10, -3, 7), true},
		{"return with negative delta", entry(TypeReturn, 10, -3, 7), true},
		{"identity broken", entry(TypeIn, 10, 3, 14), true},
		{"adjustment identity broken", entry(TypeAdjustment, 50, -8, 43), true},
		{"unknown type", entry(MovementType("transfer"), 10, 1, 11), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate(tt.e)
			if tt.wantErr {
				if !errors.Is(err, errs.ErrValidation) {
					t.Fatalf("want ErrValidation, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestEntryBuilders(t *testing.T) {
	tests := []struct {
		name    string
		e       Entry
		wantT   MovementType
		wantRef ReferenceType
		after   int64
	}{
		{"sale", saleEntry(1, 7, nil, nil, 10, 3, "S-1"), TypeOut, RefSale, 7},
		{"restock", restockEntry(1, 7, nil, nil, 7, 5, "PO-9", ""), TypeIn, RefRestock, 12},
		{"adjustment", adjustmentEntry(1, 7, nil, nil, 50, 42, "count"), TypeAdjustment, RefStockCount, 42},
		{"return", returnEntry(1, 7, nil, nil, 7, 1, "S-1"), TypeReturn, RefSalesReturn, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.e.Type != tt.wantT || tt.e.ReferenceType != tt.wantRef {
				t.Fatalf("got (%s, %s), want (%s, %s)", tt.e.Type, tt.e.ReferenceType, tt.wantT, tt.wantRef)
			}
			if tt.e.QtyAfter != tt.after {
				t.Fatalf("after = %d, want %d", tt.e.QtyAfter, tt.after)
			}
			if err := validate(tt.e); err != nil {
				t.Fatalf("built entry does not validate: %v", err)
			}
		})
	}
}

func TestValidateRequiresIdentifiers(t *testing.T) {
	e := entry(TypeIn, 0, 1, 1)
	e.ProductID = 0
	if err := validate(e); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want ErrValidation for missing product, got %v", err)
	}

	e = entry(TypeIn, 0, 1, 1)
	e.TenantID = 0
	if err := validate(e); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want ErrValidation for missing tenant, got %v", err)
	}
}
