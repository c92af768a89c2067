package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/rioprayoga/kasirpos/internal/domain/cashledger"
	"github.com/rioprayoga/kasirpos/internal/domain/errs"
	"github.com/rioprayoga/kasirpos/internal/domain/recon"
	"github.com/rioprayoga/kasirpos/internal/domain/shift"
	"github.com/rioprayoga/kasirpos/internal/domain/station"
	"github.com/rioprayoga/kasirpos/internal/domain/stockledger"
	"github.com/rioprayoga/kasirpos/internal/report"
)

// Handler is the JSON surface of the engine. Authentication and tenant
// resolution happen in the gateway in front of this service; it forwards
// the result as X-Tenant-ID and X-User-ID.
type Handler struct {
	log      *slog.Logger
	shifts   *shift.Manager
	cash     *cashledger.Ledger
	stock    *stockledger.Repo
	stations *station.Repo
	summary  *recon.SummaryRepo
}

func NewHandler(log *slog.Logger, shifts *shift.Manager, cash *cashledger.Ledger, stock *stockledger.Repo, stations *station.Repo, summary *recon.SummaryRepo) *Handler {
	return &Handler{log: log, shifts: shifts, cash: cash, stock: stock, stations: stations, summary: summary}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /shifts/open", h.openShift)
	mux.HandleFunc("POST /shifts/{id}/close", h.closeShift)
	mux.HandleFunc("POST /shifts/{id}/force-close", h.forceCloseShift)
	mux.HandleFunc("POST /shifts/{id}/join", h.joinShift)
	mux.HandleFunc("GET /shifts/{id}", h.getShift)
	mux.HandleFunc("GET /shifts/{id}/participants", h.participants)
	mux.HandleFunc("GET /shifts", h.listShifts)
	mux.HandleFunc("GET /shifts/open", h.openShiftForScope)

	mux.HandleFunc("POST /cash-movements", h.recordCash)
	mux.HandleFunc("POST /cash-movements/{id}/approve", h.approveCash)
	mux.HandleFunc("POST /cash-movements/{id}/void", h.voidCash)
	mux.HandleFunc("POST /cash-movements/{id}/reverse", h.reverseCash)
	mux.HandleFunc("GET /cash-movements", h.queryCash)
	mux.HandleFunc("GET /cash-movements/summary", h.summarizeCash)

	mux.HandleFunc("POST /stock-movements", h.appendStock)
	mux.HandleFunc("POST /stock-movements/batch", h.batchStock)
	mux.HandleFunc("GET /stock-movements", h.stockHistory)
	mux.HandleFunc("GET /stock-quantity", h.stockQuantity)

	mux.HandleFunc("POST /stations", h.createStation)
	mux.HandleFunc("PUT /stations/{id}", h.updateStation)
	mux.HandleFunc("DELETE /stations/{id}", h.deleteStation)
	mux.HandleFunc("GET /stations", h.listStations)

	mux.HandleFunc("GET /reports/shift-summary", h.shiftSummary)
	mux.HandleFunc("GET /reports/shift-summary.xlsx", h.shiftSummaryXLSX)
}

/* request plumbing */

func identity(r *http.Request) (tenantID, userID int64, err error) {
	tenantID, err = strconv.ParseInt(r.Header.Get("X-Tenant-ID"), 10, 64)
	if err != nil || tenantID <= 0 {
		return 0, 0, errs.Validationf("missing or invalid X-Tenant-ID header")
	}
	userID, err = strconv.ParseInt(r.Header.Get("X-User-ID"), 10, 64)
	if err != nil || userID <= 0 {
		return 0, 0, errs.Validationf("missing or invalid X-User-ID header")
	}
	return tenantID, userID, nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errs.Validationf("invalid id in path")
	}
	return id, nil
}

func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errs.Validationf("malformed JSON body: %v", err)
	}
	return nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("response encode failed", "err", err)
	}
}

// writeErr maps the error taxonomy to HTTP statuses. Deterministic
// outcomes keep their message; storage failures get a generic retryable
// one.
func (h *Handler) writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errs.ErrValidation):
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, errs.ErrNotFound):
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, errs.ErrConflict):
		h.writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, errs.ErrInvalidState):
		h.writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	default:
		h.log.Error("request failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "temporary failure, try again"})
	}
}

func queryInt64(r *http.Request, name string) *int64 {
	if s := r.URL.Query().Get(name); s != "" {
		if v, err := strconv.ParseInt(s, 10, 64); err == nil {
			return &v
		}
	}
	return nil
}

func queryTime(r *http.Request, name string) *time.Time {
	if s := r.URL.Query().Get(name); s != "" {
		if t, err := time.Parse("2006-01-02", s); err == nil {
			return &t
		}
	}
	return nil
}

func queryRange(r *http.Request) (time.Time, time.Time, error) {
	from := queryTime(r, "from")
	to := queryTime(r, "to")
	if from == nil || to == nil {
		return time.Time{}, time.Time{}, errs.Validationf("from and to (YYYY-MM-DD) are required")
	}
	return *from, to.AddDate(0, 0, 1), nil
}

/* shifts */

func (h *Handler) openShift(w http.ResponseWriter, r *http.Request) {
	tenantID, userID, err := identity(r)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	var req struct {
		StationID     *int64 `json:"station_id"`
		StartingFloat int64  `json:"starting_float"`
		FloatSource   string `json:"float_source"`
		Note          string `json:"note"`
	}
	if err := decode(r, &req); err != nil {
		h.writeErr(w, err)
		return
	}
	s, err := h.shifts.Open(r.Context(), tenantID, userID, req.StationID, req.StartingFloat, req.FloatSource, req.Note)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, s)
}

func (h *Handler) closeShift(w http.ResponseWriter, r *http.Request) {
	h.doClose(w, r, false)
}

func (h *Handler) forceCloseShift(w http.ResponseWriter, r *http.Request) {
	h.doClose(w, r, true)
}

func (h *Handler) doClose(w http.ResponseWriter, r *http.Request, force bool) {
	tenantID, userID, err := identity(r)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	var req struct {
		CountedCash int64  `json:"counted_cash"`
		Note        string `json:"note"`
	}
	if err := decode(r, &req); err != nil {
		h.writeErr(w, err)
		return
	}
	var s *shift.Shift
	if force {
		s, err = h.shifts.ForceClose(r.Context(), tenantID, id, userID, req.CountedCash, req.Note)
	} else {
		s, err = h.shifts.Close(r.Context(), tenantID, id, userID, req.CountedCash, req.Note)
	}
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, s)
}

func (h *Handler) joinShift(w http.ResponseWriter, r *http.Request) {
	tenantID, userID, err := identity(r)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	if err := h.shifts.Join(r.Context(), tenantID, id, userID); err != nil {
		h.writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getShift(w http.ResponseWriter, r *http.Request) {
	tenantID, _, err := identity(r)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	s, err := h.shifts.GetShift(r.Context(), tenantID, id)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, s)
}

func (h *Handler) participants(w http.ResponseWriter, r *http.Request) {
	tenantID, _, err := identity(r)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	ps, err := h.shifts.Participants(r.Context(), tenantID, id)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, ps)
}

func (h *Handler) openShiftForScope(w http.ResponseWriter, r *http.Request) {
	tenantID, userID, err := identity(r)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	s, err := h.shifts.GetOpenShift(r.Context(), tenantID, userID, queryInt64(r, "station_id"))
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, s)
}

func (h *Handler) listShifts(w http.ResponseWriter, r *http.Request) {
	tenantID, _, err := identity(r)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	f := shift.ListFilter{
		From:      queryTime(r, "from"),
		To:        queryTime(r, "to"),
		UserID:    queryInt64(r, "user_id"),
		StationID: queryInt64(r, "station_id"),
	}
	if s := r.URL.Query().Get("status"); s != "" {
		st := shift.Status(s)
		f.Status = &st
	}
	if v := queryInt64(r, "limit"); v != nil {
		f.Limit = int(*v)
	}
	if v := queryInt64(r, "offset"); v != nil {
		f.Offset = int(*v)
	}
	out, err := h.shifts.ListShifts(r.Context(), tenantID, f)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, out)
}

/* cash ledger */

func (h *Handler) recordCash(w http.ResponseWriter, r *http.Request) {
	tenantID, userID, err := identity(r)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	var req struct {
		ShiftID    *int64 `json:"shift_id"`
		Direction  string `json:"direction"`
		Amount     int64  `json:"amount"`
		CategoryID int64  `json:"category_id"`
		Recipient  string `json:"recipient"`
		Note       string `json:"note"`
	}
	if err := decode(r, &req); err != nil {
		h.writeErr(w, err)
		return
	}
	m, err := h.cash.Record(r.Context(), cashledger.RecordInput{
		TenantID:   tenantID,
		ShiftID:    req.ShiftID,
		Direction:  cashledger.Direction(req.Direction),
		Amount:     req.Amount,
		CategoryID: req.CategoryID,
		Recipient:  req.Recipient,
		Note:       req.Note,
		CreatedBy:  userID,
	})
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, m)
}

func (h *Handler) approveCash(w http.ResponseWriter, r *http.Request) {
	h.cashTransition(w, r, h.cash.Approve)
}

func (h *Handler) voidCash(w http.ResponseWriter, r *http.Request) {
	h.cashTransition(w, r, h.cash.Void)
}

func (h *Handler) cashTransition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, tenantID, id, actor int64) (*cashledger.CashMovement, error)) {
	tenantID, userID, err := identity(r)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	m, err := fn(r.Context(), tenantID, id, userID)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, m)
}

func (h *Handler) reverseCash(w http.ResponseWriter, r *http.Request) {
	tenantID, userID, err := identity(r)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	var req struct {
		Note string `json:"note"`
	}
	if err := decode(r, &req); err != nil {
		h.writeErr(w, err)
		return
	}
	m, err := h.cash.Reverse(r.Context(), tenantID, id, userID, req.Note)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, m)
}

func (h *Handler) queryCash(w http.ResponseWriter, r *http.Request) {
	tenantID, _, err := identity(r)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	f := cashledger.Filter{
		From:      queryTime(r, "from"),
		To:        queryTime(r, "to"),
		Category:  queryInt64(r, "category_id"),
		CreatedBy: queryInt64(r, "created_by"),
		ShiftID:   queryInt64(r, "shift_id"),
		Search:    r.URL.Query().Get("q"),
	}
	if d := r.URL.Query().Get("direction"); d != "" {
		dir := cashledger.Direction(d)
		f.Direction = &dir
	}
	if v := queryInt64(r, "limit"); v != nil {
		f.Limit = int(*v)
	}
	if v := queryInt64(r, "offset"); v != nil {
		f.Offset = int(*v)
	}
	rows, total, err := h.cash.Query(r.Context(), tenantID, f)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"rows": rows, "total": total})
}

func (h *Handler) summarizeCash(w http.ResponseWriter, r *http.Request) {
	tenantID, _, err := identity(r)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	groupBy := cashledger.GroupBy(r.URL.Query().Get("group_by"))
	f := cashledger.Filter{From: queryTime(r, "from"), To: queryTime(r, "to")}
	rows, err := h.cash.Summarize(r.Context(), tenantID, f, groupBy)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, rows)
}

/* stock ledger */

func (h *Handler) appendStock(w http.ResponseWriter, r *http.Request) {
	tenantID, userID, err := identity(r)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	var req struct {
		ProductID     int64  `json:"product_id"`
		VariantID     *int64 `json:"variant_id"`
		Type          string `json:"type"`
		QtyBefore     int64  `json:"qty_before"`
		QtyDelta      int64  `json:"qty_delta"`
		QtyAfter      int64  `json:"qty_after"`
		ReferenceType string `json:"reference_type"`
		ReferenceID   string `json:"reference_id"`
		Note          string `json:"note"`
	}
	if err := decode(r, &req); err != nil {
		h.writeErr(w, err)
		return
	}
	m, err := h.stock.Append(r.Context(), stockledger.Entry{
		TenantID:      tenantID,
		ProductID:     req.ProductID,
		VariantID:     req.VariantID,
		ActorID:       &userID,
		Type:          stockledger.MovementType(req.Type),
		QtyBefore:     req.QtyBefore,
		QtyDelta:      req.QtyDelta,
		QtyAfter:      req.QtyAfter,
		ReferenceType: stockledger.ReferenceType(req.ReferenceType),
		ReferenceID:   req.ReferenceID,
		Note:          req.Note,
	})
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, m)
}

func (h *Handler) batchStock(w http.ResponseWriter, r *http.Request) {
	tenantID, userID, err := identity(r)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	var req []struct {
		ProductID     int64  `json:"product_id"`
		VariantID     *int64 `json:"variant_id"`
		Type          string `json:"type"`
		QtyBefore     int64  `json:"qty_before"`
		QtyDelta      int64  `json:"qty_delta"`
		QtyAfter      int64  `json:"qty_after"`
		ReferenceType string `json:"reference_type"`
		ReferenceID   string `json:"reference_id"`
		Note          string `json:"note"`
	}
	if err := decode(r, &req); err != nil {
		h.writeErr(w, err)
		return
	}
	entries := make([]stockledger.Entry, 0, len(req))
	for _, e := range req {
		entries = append(entries, stockledger.Entry{
			TenantID:      tenantID,
			ProductID:     e.ProductID,
			VariantID:     e.VariantID,
			ActorID:       &userID,
			Type:          stockledger.MovementType(e.Type),
			QtyBefore:     e.QtyBefore,
			QtyDelta:      e.QtyDelta,
			QtyAfter:      e.QtyAfter,
			ReferenceType: stockledger.ReferenceType(e.ReferenceType),
			ReferenceID:   e.ReferenceID,
			Note:          e.Note,
		})
	}
	res := h.stock.BatchAppend(r.Context(), entries)
	h.writeJSON(w, http.StatusOK, res)
}

func (h *Handler) stockHistory(w http.ResponseWriter, r *http.Request) {
	tenantID, _, err := identity(r)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	productID := queryInt64(r, "product_id")
	if productID == nil {
		h.writeErr(w, errs.Validationf("product_id is required"))
		return
	}
	limit := 0
	if v := queryInt64(r, "limit"); v != nil {
		limit = int(*v)
	}
	out, err := h.stock.History(r.Context(), tenantID, *productID, queryInt64(r, "variant_id"), limit)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) stockQuantity(w http.ResponseWriter, r *http.Request) {
	tenantID, _, err := identity(r)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	productID := queryInt64(r, "product_id")
	if productID == nil {
		h.writeErr(w, errs.Validationf("product_id is required"))
		return
	}
	qty, err := h.stock.CurrentQuantity(r.Context(), tenantID, *productID, queryInt64(r, "variant_id"))
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]int64{"quantity": qty})
}

/* stations */

func (h *Handler) createStation(w http.ResponseWriter, r *http.Request) {
	tenantID, _, err := identity(r)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	var req struct {
		Code        string `json:"code"`
		Name        string `json:"name"`
		Description string `json:"description"`
		SortOrder   int    `json:"sort_order"`
	}
	if err := decode(r, &req); err != nil {
		h.writeErr(w, err)
		return
	}
	s, err := h.stations.Create(r.Context(), tenantID, req.Code, req.Name, req.Description, req.SortOrder)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, s)
}

func (h *Handler) updateStation(w http.ResponseWriter, r *http.Request) {
	tenantID, _, err := identity(r)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Active      bool   `json:"active"`
		SortOrder   int    `json:"sort_order"`
	}
	if err := decode(r, &req); err != nil {
		h.writeErr(w, err)
		return
	}
	s, err := h.stations.Update(r.Context(), tenantID, id, req.Name, req.Description, req.Active, req.SortOrder)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, s)
}

func (h *Handler) deleteStation(w http.ResponseWriter, r *http.Request) {
	tenantID, _, err := identity(r)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	if err := h.stations.Delete(r.Context(), tenantID, id); err != nil {
		h.writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listStations(w http.ResponseWriter, r *http.Request) {
	tenantID, _, err := identity(r)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	out, err := h.stations.List(r.Context(), tenantID)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, out)
}

/* reporting */

func (h *Handler) shiftSummary(w http.ResponseWriter, r *http.Request) {
	tenantID, _, err := identity(r)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	from, to, err := queryRange(r)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	sum, err := h.summary.SummaryForPeriod(r.Context(), tenantID, from, to)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sum)
}

func (h *Handler) shiftSummaryXLSX(w http.ResponseWriter, r *http.Request) {
	tenantID, _, err := identity(r)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	from, to, err := queryRange(r)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	sum, err := h.summary.SummaryForPeriod(r.Context(), tenantID, from, to)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	data, err := report.WriteShiftSummary(sum)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="shift-summary.xlsx"`)
	_, _ = w.Write(data)
}
