package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ShiftsOpened = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kasirpos_shifts_opened_total",
		Help: "Shifts opened.",
	})

	ShiftsClosed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kasirpos_shifts_closed_total",
		Help: "Shifts closed, by discrepancy classification.",
	}, []string{"classification"})

	CashMovements = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kasirpos_cash_movements_total",
		Help: "Cash ledger entries recorded, by direction.",
	}, []string{"direction"})

	StockMovements = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kasirpos_stock_movements_total",
		Help: "Stock ledger entries recorded, by movement type.",
	}, []string{"type"})

	LedgerWriteFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kasirpos_ledger_write_failures_total",
		Help: "Ledger appends that failed at the store, by ledger.",
	}, []string{"ledger"})
)
