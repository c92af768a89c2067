package recon

import (
	"github.com/rioprayoga/kasirpos/internal/domain/sales"
)

type Classification string

const (
	Balanced Classification = "balanced"
	Surplus  Classification = "surplus"
	Shortage Classification = "shortage"
)

// Closing is the full aggregate stamped onto a shift when it closes.
// All amounts are minor units; equality checks are exact.
type Closing struct {
	TxCount    int64
	GrossSales int64
	Discount   int64
	NetSales   int64

	SalesCash     int64
	SalesCard     int64
	SalesTransfer int64
	SalesQRIS     int64
	SalesCredit   int64

	CashIn  int64
	CashOut int64

	ExpectedCash   int64
	CountedCash    int64
	Discrepancy    int64
	Classification Classification
}

// ExpectedCash is what the drawer should hold at close: the starting
// float, plus cash-method sales, plus approved cash in, minus approved
// cash out. Non-cash methods never touch the drawer.
func ExpectedCash(startingFloat, cashSales, cashIn, cashOut int64) int64 {
	return startingFloat + cashSales + cashIn - cashOut
}

func Classify(discrepancy int64) Classification {
	switch {
	case discrepancy > 0:
		return Surplus
	case discrepancy < 0:
		return Shortage
	default:
		return Balanced
	}
}

// Discrepancy is counted minus expected.
func Discrepancy(expected, counted int64) (int64, Classification) {
	d := counted - expected
	return d, Classify(d)
}

// BuildClosing assembles the closing aggregate from the collaborators'
// numbers. Pure; callers fetch the inputs.
func BuildClosing(startingFloat int64, byMethod map[sales.Method]int64, gross, discount, txCount, cashIn, cashOut, counted int64) Closing {
	c := Closing{
		TxCount:       txCount,
		GrossSales:    gross,
		Discount:      discount,
		NetSales:      gross - discount,
		SalesCash:     byMethod[sales.MethodCash],
		SalesCard:     byMethod[sales.MethodCard],
		SalesTransfer: byMethod[sales.MethodTransfer],
		SalesQRIS:     byMethod[sales.MethodQRIS],
		SalesCredit:   byMethod[sales.MethodCredit],
		CashIn:        cashIn,
		CashOut:       cashOut,
		CountedCash:   counted,
	}
	c.ExpectedCash = ExpectedCash(startingFloat, c.SalesCash, cashIn, cashOut)
	c.Discrepancy, c.Classification = Discrepancy(c.ExpectedCash, counted)
	return c
}
