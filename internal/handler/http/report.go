package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Felix251/marketplace/internal/service"
	"github.com/Felix251/marketplace/pkg/httputil"
)

// ReportHandler handles admin reporting endpoints.
type ReportHandler struct {
	reports *service.ReportService
	logger  *slog.Logger
}

// NewReportHandler creates a new report HTTP handler.
func NewReportHandler(reports *service.ReportService, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{reports: reports, logger: logger}
}

// SalesByMonth handles GET /api/v1/admin/reports/sales-by-month
func (h *ReportHandler) SalesByMonth(w http.ResponseWriter, r *http.Request) {
	sales, err := h.reports.SalesByMonth(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, sales)
}

// OrderActivity handles GET /api/v1/admin/reports/order-activity
func (h *ReportHandler) OrderActivity(w http.ResponseWriter, r *http.Request) {
	activity, err := h.reports.GetOrderActivity(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, activity)
}

// OrdersByStore handles GET /api/v1/admin/reports/orders-by-store with an
// optional from/to date range.
func (h *ReportHandler) OrdersByStore(w http.ResponseWriter, r *http.Request) {
	from, err := parseTimeQueryParam(r.URL.Query(), "from")
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorBody{Code: "INVALID_INPUT", Message: err.Error()})
		return
	}
	to, err := parseTimeQueryParam(r.URL.Query(), "to")
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorBody{Code: "INVALID_INPUT", Message: err.Error()})
		return
	}

	counts, err := h.reports.OrdersByStore(r.Context(), from, to)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, counts)
}

// PaymentMethods handles GET /api/v1/admin/reports/payment-methods with an
// optional from/to date range.
func (h *ReportHandler) PaymentMethods(w http.ResponseWriter, r *http.Request) {
	from, err := parseTimeQueryParam(r.URL.Query(), "from")
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorBody{Code: "INVALID_INPUT", Message: err.Error()})
		return
	}
	to, err := parseTimeQueryParam(r.URL.Query(), "to")
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorBody{Code: "INVALID_INPUT", Message: err.Error()})
		return
	}

	stats, err := h.reports.PaymentMethodBreakdown(r.Context(), from, to)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, stats)
}

// PaymentActivity handles GET /api/v1/admin/reports/payment-activity
func (h *ReportHandler) PaymentActivity(w http.ResponseWriter, r *http.Request) {
	activity, err := h.reports.GetPaymentActivity(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, activity)
}

// AbandonedCarts handles GET /api/v1/admin/reports/abandoned-carts
func (h *ReportHandler) AbandonedCarts(w http.ResponseWriter, r *http.Request) {
	count, err := h.reports.CountAbandonedCarts(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]int{"abandoned_carts": count})
}

// TopCategories handles GET /api/v1/admin/reports/top-categories?limit=...
func (h *ReportHandler) TopCategories(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	counts, err := h.reports.TopCategories(r.Context(), limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, counts)
}
