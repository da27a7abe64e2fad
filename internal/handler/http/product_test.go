package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Felix251/marketplace/internal/domain"
	"github.com/Felix251/marketplace/internal/search"
	"github.com/Felix251/marketplace/pkg/middleware"
)

type productHandlerEnv struct {
	products   *mockProductRepo
	stores     *mockStoreRepo
	categories *mockCategoryRepo
	index      *mockIndex
	repair     *mockRepair
	handler    *ProductHandler
}

func newProductHandlerEnv(t *testing.T) *productHandlerEnv {
	t.Helper()
	env := &productHandlerEnv{
		products:   new(mockProductRepo),
		stores:     new(mockStoreRepo),
		categories: new(mockCategoryRepo),
		index:      new(mockIndex),
		repair:     new(mockRepair),
	}
	svc := newProductTestService(t, env.products, env.stores, env.categories, env.index, env.repair)
	env.handler = NewProductHandler(svc, testLogger())
	return env
}

// setupProductRouter mirrors the production product routes, authenticating
// every request as the given principal.
func setupProductRouter(env *productHandlerEnv, p *middleware.Principal) *chi.Mux {
	r := chi.NewRouter()
	authn := middleware.Auth(fakeResolver(p), "", "")

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", env.handler.ListProducts)
		r.Get("/search", env.handler.SearchProducts)
		r.Get("/suggest", env.handler.SuggestProducts)
		r.Get("/{id}", env.handler.GetProduct)

		r.Group(func(r chi.Router) {
			r.Use(authn, middleware.RequireRole(domain.RoleSeller, domain.RoleAdmin))
			r.Post("/", env.handler.CreateProduct)
			r.Put("/{id}", env.handler.UpdateProduct)
			r.Delete("/{id}", env.handler.DeleteProduct)
		})
	})
	return r
}

func TestGetProduct_Success(t *testing.T) {
	env := newProductHandlerEnv(t)
	router := setupProductRouter(env, testPrincipal(domain.RoleBuyer))

	env.products.On("GetByID", mock.Anything, testProductID).Return(sampleDomainProduct(), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/"+testProductID, nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var product domain.Product
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&product))
	assert.Equal(t, "Walnut Desk Organizer", product.Name)
}

func TestGetProduct_InvalidID(t *testing.T) {
	env := newProductHandlerEnv(t)
	router := setupProductRouter(env, testPrincipal(domain.RoleBuyer))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/not-a-uuid", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeErrorBody(t, rec)
	assert.Equal(t, "INVALID_INPUT", resp.Code)
	env.products.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestCreateProduct_SellerSuccess(t *testing.T) {
	env := newProductHandlerEnv(t)
	router := setupProductRouter(env, testPrincipal(domain.RoleSeller))

	store := sampleDomainStore()
	env.stores.On("GetByOwnerID", mock.Anything, testUserID).Return(store, nil)
	env.stores.On("GetByID", mock.Anything, testStoreID).Return(store, nil)
	env.products.On("Create", mock.Anything, mock.MatchedBy(func(p *domain.Product) bool {
		return p.StoreID == testStoreID && p.Price.StringFixed(2) == "49.99"
	})).Return(nil)
	env.index.On("Index", mock.Anything, mock.Anything).Return(nil)

	body := `{"name":"Walnut Desk Organizer","price":"49.99","quantity":12,"active":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/products", bytes.NewBufferString(body))
	req.Header.Set("Authorization", "Bearer test-token")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	env.products.AssertExpectations(t)
	env.index.AssertExpectations(t)
}

func TestCreateProduct_BuyerForbidden(t *testing.T) {
	env := newProductHandlerEnv(t)
	router := setupProductRouter(env, testPrincipal(domain.RoleBuyer))

	body := `{"name":"Walnut Desk Organizer","price":"49.99","quantity":12}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/products", bytes.NewBufferString(body))
	req.Header.Set("Authorization", "Bearer test-token")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	env.products.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateProduct_MissingToken(t *testing.T) {
	env := newProductHandlerEnv(t)
	router := setupProductRouter(env, testPrincipal(domain.RoleSeller))

	body := `{"name":"Walnut Desk Organizer","price":"49.99","quantity":12}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/products", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateProduct_InvalidPrice(t *testing.T) {
	env := newProductHandlerEnv(t)
	router := setupProductRouter(env, testPrincipal(domain.RoleSeller))

	env.stores.On("GetByOwnerID", mock.Anything, testUserID).Return(sampleDomainStore(), nil)

	body := `{"name":"Walnut Desk Organizer","price":"-5.00","quantity":12}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/products", bytes.NewBufferString(body))
	req.Header.Set("Authorization", "Bearer test-token")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeErrorBody(t, rec)
	assert.Equal(t, "INVALID_INPUT", resp.Code)
	env.products.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSearchProducts_PassesQuery(t *testing.T) {
	env := newProductHandlerEnv(t)
	router := setupProductRouter(env, testPrincipal(domain.RoleBuyer))

	env.index.On("Search", mock.Anything, mock.MatchedBy(func(q *search.Query) bool {
		return q.Keyword == "walnut" && q.Advanced && q.MinPrice != nil && *q.MinPrice == 10
	})).Return(&search.Result{Total: 1, Products: []search.ProductDocument{{ID: testProductID}}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/search?q=walnut&advanced=true&min_price=10", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var result search.Result
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.Equal(t, 1, result.Total)
}

func TestReindexAll_AcceptedAndRunsDetached(t *testing.T) {
	env := newProductHandlerEnv(t)
	router := chi.NewRouter()
	authn := middleware.Auth(fakeResolver(testPrincipal(domain.RoleAdmin)), "", "")
	router.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(authn, middleware.RequireRole(domain.RoleAdmin))
		r.Post("/products/reindex", env.handler.ReindexAll)
	})

	started := make(chan struct{})
	env.index.On("Clear", mock.Anything).Return(nil)
	env.products.On("ListPage", mock.Anything, "", mock.Anything).
		Run(func(mock.Arguments) { close(started) }).
		Return([]domain.Product{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/products/reindex", nil)
	req.Header.Set("Authorization", "Bearer test-token")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	// The response comes back before the rebuild finishes.
	assert.Equal(t, http.StatusAccepted, rec.Code)

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("rebuild never started")
	}
	env.index.AssertCalled(t, "Clear", mock.Anything)
}

func TestSuggestProducts_MissingPrefix(t *testing.T) {
	env := newProductHandlerEnv(t)
	router := setupProductRouter(env, testPrincipal(domain.RoleBuyer))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/suggest", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env.index.AssertNotCalled(t, "Suggest", mock.Anything, mock.Anything, mock.Anything)
}
