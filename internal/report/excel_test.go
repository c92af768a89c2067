package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/rioprayoga/kasirpos/internal/domain/recon"
)

func TestWriteShiftSummary(t *testing.T) {
	station := int64(2)
	sum := &recon.PeriodSummary{
		TenantID:   1,
		From:       time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		To:         time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		ShiftCount: 2,
		TxCount:    30,
		GrossSales: 1_200_000,
		NetSales:   1_150_000,
		Balanced:   1,
		Shortages:  1,
		Shifts: []recon.ShiftLine{
			{ShiftID: 1, ShiftNo: 1, ShiftDate: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), CashierID: 42, ExpectedCash: 415_000, CountedCash: 415_000, Classification: recon.Balanced},
			{ShiftID: 2, ShiftNo: 2, ShiftDate: time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC), CashierID: 43, StationID: &station, ExpectedCash: 415_000, CountedCash: 410_000, Discrepancy: -5_000, Classification: recon.Shortage},
		},
	}

	data, err := WriteShiftSummary(sum)
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("workbook does not reopen: %v", err)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	rows, err := f.GetRows(sheet)
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	// header + 2 shifts + blank + totals block
	if len(rows) < 3 {
		t.Fatalf("too few rows: %d", len(rows))
	}
	if rows[0][0] != "Shift #" {
		t.Fatalf("unexpected header row: %v", rows[0])
	}
	if rows[2][7] != "shortage" {
		t.Fatalf("shortage row not rendered: %v", rows[2])
	}
}
