package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/Felix251/marketplace/internal/repository"
	"github.com/Felix251/marketplace/internal/search"
	"github.com/Felix251/marketplace/internal/service"
	"github.com/Felix251/marketplace/pkg/httputil"
	"github.com/Felix251/marketplace/pkg/pagination"
	"github.com/Felix251/marketplace/pkg/validator"
)

// ProductHandler handles product catalog and search endpoints.
type ProductHandler struct {
	products *service.ProductService
	logger   *slog.Logger
}

// NewProductHandler creates a new product HTTP handler.
func NewProductHandler(products *service.ProductService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{products: products, logger: logger}
}

// ProductRequest is the JSON request body for creating or updating a product.
type ProductRequest struct {
	Name        string   `json:"name" validate:"required,min=1,max=255"`
	Description string   `json:"description" validate:"omitempty,max=5000"`
	Price       string   `json:"price" validate:"required"`
	Quantity    int      `json:"quantity"`
	Images      []string `json:"images" validate:"omitempty,dive,max=500"`
	Featured    bool     `json:"featured"`
	Active      bool     `json:"active"`
	CategoryIDs []string `json:"category_ids" validate:"omitempty,dive,uuid"`
	StoreID     string   `json:"store_id" validate:"omitempty,uuid"`
}

// CreateProduct handles POST /api/v1/products
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorBody{Code: "INVALID_INPUT", Message: "invalid request body"})
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	product, err := h.products.CreateProduct(r.Context(), actorFrom(r), productInput(req))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, product)
}

// GetProduct handles GET /api/v1/products/{id}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	product, err := h.products.GetProduct(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, product)
}

// ListProducts handles GET /api/v1/products with optional filters.
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	filter, err := productFilterFromQuery(r)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorBody{Code: "INVALID_INPUT", Message: err.Error()})
		return
	}

	result, err := h.products.ListProducts(r.Context(), filter, pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// SearchProducts handles GET /api/v1/products/search
func (h *ProductHandler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	query, err := searchQueryFromRequest(r)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorBody{Code: "INVALID_INPUT", Message: err.Error()})
		return
	}

	result, err := h.products.SearchProducts(r.Context(), query)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// SuggestProducts handles GET /api/v1/products/suggest?q=...
func (h *ProductHandler) SuggestProducts(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("q")
	if prefix == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorBody{Code: "INVALID_INPUT", Message: "q query parameter is required"})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	suggestions, err := h.products.SuggestProducts(r.Context(), prefix, limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, suggestions)
}

// TopSellingProducts handles GET /api/v1/products/top-selling?limit=...
func (h *ProductHandler) TopSellingProducts(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	sales, err := h.products.TopSellingProducts(r.Context(), limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, sales)
}

// CheckAvailability handles GET /api/v1/products/{id}/availability?quantity=...
func (h *ProductHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	quantity := 1
	if v := r.URL.Query().Get("quantity"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorBody{Code: "INVALID_INPUT", Message: errInvalidQueryParam("quantity").Error()})
			return
		}
		quantity = parsed
	}

	available, err := h.products.CheckAvailability(r.Context(), id, quantity)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"product_id": id,
		"quantity":   quantity,
		"available":  available,
	})
}

// AdjustStockRequest is the JSON request body for a relative stock change.
type AdjustStockRequest struct {
	Delta int `json:"delta" validate:"required"`
}

// AdjustStock handles PUT /api/v1/products/{id}/stock
func (h *ProductHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req AdjustStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorBody{Code: "INVALID_INPUT", Message: "invalid request body"})
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	product, err := h.products.AdjustStock(r.Context(), actorFrom(r), id, req.Delta)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, product)
}

// UpdateProduct handles PUT /api/v1/products/{id}
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req ProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorBody{Code: "INVALID_INPUT", Message: "invalid request body"})
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	product, err := h.products.UpdateProduct(r.Context(), actorFrom(r), id, productInput(req))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, product)
}

// DeleteProduct handles DELETE /api/v1/products/{id}
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.products.DeleteProduct(r.Context(), actorFrom(r), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteNoContent(w)
}

// ReindexAll handles POST /api/v1/admin/products/reindex. The rebuild is
// detached from the request lifetime so a slow catalog walk is not cut
// short when the client disconnects; progress lands in the log.
func (h *ProductHandler) ReindexAll(w http.ResponseWriter, r *http.Request) {
	ctx := context.WithoutCancel(r.Context())
	go func() {
		indexed, err := h.products.ReindexAll(ctx)
		if err != nil {
			h.logger.Error("reindex failed", slog.String("error", err.Error()))
			return
		}
		h.logger.Info("reindex finished", slog.Int("indexed", indexed))
	}()

	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func productInput(req ProductRequest) service.ProductInput {
	return service.ProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Quantity:    req.Quantity,
		Images:      req.Images,
		Featured:    req.Featured,
		Active:      req.Active,
		CategoryIDs: req.CategoryIDs,
		StoreID:     req.StoreID,
	}
}

func productFilterFromQuery(r *http.Request) (repository.ProductFilter, error) {
	q := r.URL.Query()
	var filter repository.ProductFilter

	if v := q.Get("name"); v != "" {
		filter.Name = &v
	}
	if v := q.Get("category_id"); v != "" {
		filter.CategoryID = &v
	}
	if v := q.Get("store_id"); v != "" {
		filter.StoreID = &v
	}
	if v := q.Get("min_price"); v != "" {
		price, err := decimal.NewFromString(v)
		if err != nil {
			return filter, errInvalidQueryParam("min_price")
		}
		filter.MinPrice = &price
	}
	if v := q.Get("max_price"); v != "" {
		price, err := decimal.NewFromString(v)
		if err != nil {
			return filter, errInvalidQueryParam("max_price")
		}
		filter.MaxPrice = &price
	}
	if v := q.Get("featured"); v != "" {
		featured, err := strconv.ParseBool(v)
		if err != nil {
			return filter, errInvalidQueryParam("featured")
		}
		filter.Featured = &featured
	}
	if v := q.Get("active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			return filter, errInvalidQueryParam("active")
		}
		filter.Active = &active
	}
	if v := q.Get("in_stock"); v != "" {
		inStock, err := strconv.ParseBool(v)
		if err != nil {
			return filter, errInvalidQueryParam("in_stock")
		}
		filter.InStock = &inStock
	}

	return filter, nil
}

func searchQueryFromRequest(r *http.Request) (*search.Query, error) {
	q := r.URL.Query()
	query := &search.Query{
		Keyword: q.Get("q"),
		SortBy:  q.Get("sort"),
	}

	if v := q.Get("category_id"); v != "" {
		query.CategoryID = &v
	}
	if v := q.Get("store_id"); v != "" {
		query.StoreID = &v
	}
	if v := q.Get("min_price"); v != "" {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, errInvalidQueryParam("min_price")
		}
		query.MinPrice = &price
	}
	if v := q.Get("max_price"); v != "" {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, errInvalidQueryParam("max_price")
		}
		query.MaxPrice = &price
	}
	if v := q.Get("advanced"); v != "" {
		advanced, err := strconv.ParseBool(v)
		if err != nil {
			return nil, errInvalidQueryParam("advanced")
		}
		query.Advanced = advanced
	}
	if v := q.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil {
			return nil, errInvalidQueryParam("page")
		}
		query.Page = page
	}
	if v := q.Get("size"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil {
			return nil, errInvalidQueryParam("size")
		}
		query.Size = size
	}

	return query, nil
}
