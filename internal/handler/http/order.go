package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/Felix251/marketplace/internal/repository"
	"github.com/Felix251/marketplace/internal/service"
	"github.com/Felix251/marketplace/pkg/httputil"
	"github.com/Felix251/marketplace/pkg/pagination"
	"github.com/Felix251/marketplace/pkg/validator"
)

// OrderHandler handles checkout and order lifecycle endpoints.
type OrderHandler struct {
	orders *service.OrderService
	logger *slog.Logger
}

// NewOrderHandler creates a new order HTTP handler.
func NewOrderHandler(orders *service.OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, logger: logger}
}

// CheckoutRequest is the JSON request body for placing an order. The billing
// address falls back to the shipping address when omitted.
type CheckoutRequest struct {
	ShippingAddressID string `json:"shipping_address_id" validate:"required,uuid"`
	BillingAddressID  string `json:"billing_address_id" validate:"omitempty,uuid"`
}

// UpdateOrderStatusRequest is the JSON request body for advancing an order.
type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// SetTrackingRequest is the JSON request body for attaching a tracking number.
type SetTrackingRequest struct {
	TrackingNumber string `json:"tracking_number" validate:"required,min=1,max=100"`
}

// Checkout handles POST /api/v1/orders/checkout
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorBody{Code: "INVALID_INPUT", Message: "invalid request body"})
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	order, err := h.orders.Checkout(r.Context(), actorFrom(r).ID, service.CheckoutInput{
		ShippingAddressID: req.ShippingAddressID,
		BillingAddressID:  req.BillingAddressID,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, order)
}

// GetOrder handles GET /api/v1/orders/{id}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(r.Context(), actorFrom(r), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, order)
}

// TrackOrder handles GET /api/v1/orders/track/{orderNumber}
// Order numbers are the customer-facing reference, not UUIDs.
func (h *OrderHandler) TrackOrder(w http.ResponseWriter, r *http.Request) {
	orderNumber := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "orderNumber")))
	if orderNumber == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorBody{Code: "INVALID_INPUT", Message: "order number is required"})
		return
	}

	order, err := h.orders.TrackOrder(r.Context(), actorFrom(r), orderNumber)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, order)
}

// ListOrders handles GET /api/v1/orders
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	var status *string
	if v := r.URL.Query().Get("status"); v != "" {
		status = &v
	}

	result, err := h.orders.ListOrders(r.Context(), actorFrom(r).ID, status, pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// CancelOrder handles POST /api/v1/orders/{id}/cancel
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	order, err := h.orders.CancelOrder(r.Context(), actorFrom(r), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, order)
}

// --- Admin order management ---

// ListAllOrders handles GET /api/v1/admin/orders with optional user,
// status, date-range and minimum-total filters.
func (h *OrderHandler) ListAllOrders(w http.ResponseWriter, r *http.Request) {
	filter, err := orderFilterFromQuery(r)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorBody{Code: "INVALID_INPUT", Message: err.Error()})
		return
	}

	result, err := h.orders.ListAllOrders(r.Context(), filter, pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

func orderFilterFromQuery(r *http.Request) (repository.OrderFilter, error) {
	q := r.URL.Query()
	var filter repository.OrderFilter

	if v := q.Get("user_id"); v != "" {
		filter.UserID = &v
	}
	if v := q.Get("status"); v != "" {
		filter.Status = &v
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

	if v := q.Get("min_total"); v != "" {
		total, err := decimal.NewFromString(v)
		if err != nil {
			return filter, errInvalidQueryParam("min_total")
		}
		filter.MinTotal = &total
	}

	return filter, nil
}

// UpdateOrderStatus handles PUT /api/v1/admin/orders/{id}/status
func (h *OrderHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req UpdateOrderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorBody{Code: "INVALID_INPUT", Message: "invalid request body"})
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	order, err := h.orders.UpdateOrderStatus(r.Context(), id, strings.ToUpper(req.Status))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, order)
}

// SetTracking handles PUT /api/v1/admin/orders/{id}/tracking
func (h *OrderHandler) SetTracking(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req SetTrackingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorBody{Code: "INVALID_INPUT", Message: "invalid request body"})
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	order, err := h.orders.SetTracking(r.Context(), id, req.TrackingNumber)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, order)
}
