package report

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/rioprayoga/kasirpos/internal/domain/recon"
)

// WriteShiftSummary renders a period reconciliation summary as an .xlsx
// workbook. Read-only consumer of the reporting queries.
func WriteShiftSummary(sum *recon.PeriodSummary) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())

	header := []any{"Shift #", "Date", "Cashier", "Station", "Expected", "Counted", "Difference", "Result"}
	for col, h := range header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}

	row := 2
	for _, l := range sum.Shifts {
		station := ""
		if l.StationID != nil {
			station = fmt.Sprintf("%d", *l.StationID)
		}
		values := []any{
			l.ShiftNo,
			l.ShiftDate.Format("2006-01-02"),
			l.CashierID,
			station,
			l.ExpectedCash,
			l.CountedCash,
			l.Discrepancy,
			string(l.Classification),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
		row++
	}

	// Totals block under the table.
	row++
	totals := [][2]any{
		{"Shifts", sum.ShiftCount},
		{"Transactions", sum.TxCount},
		{"Gross sales", sum.GrossSales},
		{"Net sales", sum.NetSales},
		{"Cash in", sum.CashIn},
		{"Cash out", sum.CashOut},
		{"Net difference", sum.Discrepancy},
		{"Balanced / surplus / shortage", fmt.Sprintf("%d / %d / %d", sum.Balanced, sum.Surpluses, sum.Shortages)},
	}
	for _, t := range totals {
		for col, v := range []any{t[0], t[1]} {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
		row++
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
