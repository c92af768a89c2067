package recon

import (
	"testing"

	"github.com/rioprayoga/kasirpos/internal/domain/sales"
)

func TestExpectedCash(t *testing.T) {
	// Starting float 100k, 300k cash sales, 20k in, 5k out.
	got := ExpectedCash(100_000, 300_000, 20_000, 5_000)
	if got != 415_000 {
		t.Fatalf("expected 415000, got %d", got)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		discrepancy int64
		want        Classification
	}{
		{"zero is balanced", 0, Balanced},
		{"positive is surplus", 1, Surplus},
		{"negative is shortage", -1, Shortage},
		{"large surplus", 1_000_000, Surplus},
		{"large shortage", -5_000, Shortage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.discrepancy); got != tt.want {
				t.Fatalf("Classify(%d) = %s, want %s", tt.discrepancy, got, tt.want)
			}
		})
	}
}

func TestDiscrepancy(t *testing.T) {
	d, class := Discrepancy(415_000, 410_000)
	if d != -5_000 || class != Shortage {
		t.Fatalf("got (%d, %s), want (-5000, shortage)", d, class)
	}

	d, class = Discrepancy(415_000, 415_000)
	if d != 0 || class != Balanced {
		t.Fatalf("got (%d, %s), want (0, balanced)", d, class)
	}
}

func TestBuildClosingBalanced(t *testing.T) {
	byMethod := map[sales.Method]int64{
		sales.MethodCash: 300_000,
		sales.MethodQRIS: 150_000,
	}
	c := BuildClosing(100_000, byMethod, 450_000, 10_000, 12, 20_000, 5_000, 415_000)

	if c.ExpectedCash != 415_000 {
		t.Fatalf("expected cash = %d, want 415000", c.ExpectedCash)
	}
	if c.Discrepancy != 0 || c.Classification != Balanced {
		t.Fatalf("got (%d, %s), want (0, balanced)", c.Discrepancy, c.Classification)
	}
	if c.NetSales != 440_000 {
		t.Fatalf("net sales = %d, want 440000", c.NetSales)
	}
	if c.SalesQRIS != 150_000 || c.SalesCard != 0 {
		t.Fatalf("per-method totals wrong: qris=%d card=%d", c.SalesQRIS, c.SalesCard)
	}
	if c.TxCount != 12 {
		t.Fatalf("tx count = %d, want 12", c.TxCount)
	}
}

func TestBuildClosingShortage(t *testing.T) {
	byMethod := map[sales.Method]int64{sales.MethodCash: 300_000}
	c := BuildClosing(100_000, byMethod, 300_000, 0, 5, 20_000, 5_000, 410_000)

	if c.Discrepancy != -5_000 {
		t.Fatalf("discrepancy = %d, want -5000", c.Discrepancy)
	}
	if c.Classification != Shortage {
		t.Fatalf("classification = %s, want shortage", c.Classification)
	}
	// Non-cash methods must not move the drawer expectation.
	if c.ExpectedCash != 415_000 {
		t.Fatalf("expected cash = %d, want 415000", c.ExpectedCash)
	}
}
