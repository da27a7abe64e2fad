package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Felix251/marketplace/internal/service"
	"github.com/Felix251/marketplace/pkg/httputil"
	"github.com/Felix251/marketplace/pkg/validator"
)

// WishlistHandler handles the authenticated user's wishlists.
type WishlistHandler struct {
	wishlists *service.WishlistService
	logger    *slog.Logger
}

// NewWishlistHandler creates a new wishlist HTTP handler.
func NewWishlistHandler(wishlists *service.WishlistService, logger *slog.Logger) *WishlistHandler {
	return &WishlistHandler{wishlists: wishlists, logger: logger}
}

// WishlistRequest is the JSON request body for creating or renaming a wishlist.
type WishlistRequest struct {
	Name string `json:"name" validate:"required,min=1,max=255"`
}

// CreateWishlist handles POST /api/v1/wishlists
func (h *WishlistHandler) CreateWishlist(w http.ResponseWriter, r *http.Request) {
	var req WishlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorBody{Code: "INVALID_INPUT", Message: "invalid request body"})
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	wishlist, err := h.wishlists.CreateWishlist(r.Context(), actorFrom(r).ID, req.Name)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, wishlist)
}

// GetWishlist handles GET /api/v1/wishlists/{id}
func (h *WishlistHandler) GetWishlist(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	wishlist, err := h.wishlists.GetWishlist(r.Context(), actorFrom(r).ID, id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, wishlist)
}

// ListWishlists handles GET /api/v1/wishlists
func (h *WishlistHandler) ListWishlists(w http.ResponseWriter, r *http.Request) {
	wishlists, err := h.wishlists.ListWishlists(r.Context(), actorFrom(r).ID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, wishlists)
}

// AddProduct handles POST /api/v1/wishlists/{id}/products/{productId}
func (h *WishlistHandler) AddProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	productID, ok := httputil.ParseUUID(w, chi.URLParam(r, "productId"))
	if !ok {
		return
	}

	wishlist, err := h.wishlists.AddProduct(r.Context(), actorFrom(r).ID, id, productID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, wishlist)
}

// RemoveProduct handles DELETE /api/v1/wishlists/{id}/products/{productId}
func (h *WishlistHandler) RemoveProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	productID, ok := httputil.ParseUUID(w, chi.URLParam(r, "productId"))
	if !ok {
		return
	}

	wishlist, err := h.wishlists.RemoveProduct(r.Context(), actorFrom(r).ID, id, productID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, wishlist)
}

// RenameWishlist handles PUT /api/v1/wishlists/{id}
func (h *WishlistHandler) RenameWishlist(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req WishlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorBody{Code: "INVALID_INPUT", Message: "invalid request body"})
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	wishlist, err := h.wishlists.RenameWishlist(r.Context(), actorFrom(r).ID, id, req.Name)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, wishlist)
}

// DeleteWishlist handles DELETE /api/v1/wishlists/{id}
func (h *WishlistHandler) DeleteWishlist(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.wishlists.DeleteWishlist(r.Context(), actorFrom(r).ID, id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteNoContent(w)
}
