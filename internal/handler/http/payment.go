package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/Felix251/marketplace/internal/repository"
	"github.com/Felix251/marketplace/internal/service"
	"github.com/Felix251/marketplace/pkg/httputil"
	"github.com/Felix251/marketplace/pkg/pagination"
	"github.com/Felix251/marketplace/pkg/validator"
)

// PaymentHandler handles payment processing endpoints.
type PaymentHandler struct {
	payments *service.PaymentService
	logger   *slog.Logger
}

// NewPaymentHandler creates a new payment HTTP handler.
func NewPaymentHandler(payments *service.PaymentService, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{payments: payments, logger: logger}
}

// ProcessPaymentRequest is the JSON request body for charging an order.
type ProcessPaymentRequest struct {
	Method string `json:"method" validate:"required,oneof=STRIPE PAYPAL"`
}

// ProcessPayment handles POST /api/v1/orders/{id}/payment
func (h *PaymentHandler) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	orderID, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req ProcessPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorBody{Code: "INVALID_INPUT", Message: "invalid request body"})
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	payment, err := h.payments.ProcessPayment(r.Context(), actorFrom(r), orderID, req.Method)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, payment)
}

// GetPayment handles GET /api/v1/orders/{id}/payment
func (h *PaymentHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	orderID, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	payment, err := h.payments.GetPayment(r.Context(), actorFrom(r), orderID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, payment)
}

// RefundPayment handles POST /api/v1/orders/{id}/payment/refund
func (h *PaymentHandler) RefundPayment(w http.ResponseWriter, r *http.Request) {
	orderID, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	payment, err := h.payments.RefundPayment(r.Context(), actorFrom(r), orderID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, payment)
}

// ListPayments handles GET /api/v1/admin/payments with optional status,
// method, date-range and minimum-amount filters.
func (h *PaymentHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	filter, err := paymentFilterFromQuery(r)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorBody{Code: "INVALID_INPUT", Message: err.Error()})
		return
	}

	result, err := h.payments.ListPayments(r.Context(), filter, pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

func paymentFilterFromQuery(r *http.Request) (repository.PaymentFilter, error) {
	q := r.URL.Query()
	var filter repository.PaymentFilter

	if v := q.Get("status"); v != "" {
		filter.Status = &v
	}
	if v := q.Get("method"); v != "" {
		filter.Method = &v
	}

	from, err := parseTimeQueryParam(q, "from")
	if err != nil {
		return filter, err
	}
	filter.From = from

	to, err := parseTimeQueryParam(q, "to")
	if err != nil {
		return filter, err
	}
	filter.To = to

	if v := q.Get("min_amount"); v != "" {
		amount, err := decimal.NewFromString(v)
		if err != nil {
			return filter, errInvalidQueryParam("min_amount")
		}
		filter.MinAmount = &amount
	}

	return filter, nil
}

// GetPaymentByTransactionID handles GET /api/v1/admin/payments/{transactionId}
func (h *PaymentHandler) GetPaymentByTransactionID(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "transactionId")
	if transactionID == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorBody{Code: "INVALID_INPUT", Message: "transaction id is required"})
		return
	}

	payment, err := h.payments.GetPaymentByTransactionID(r.Context(), transactionID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, payment)
}
