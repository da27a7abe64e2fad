package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Felix251/marketplace/internal/domain"
	"github.com/Felix251/marketplace/internal/service"
	"github.com/Felix251/marketplace/pkg/health"
	"github.com/Felix251/marketplace/pkg/middleware"
)

// RouterConfig bundles the services and settings the router needs.
type RouterConfig struct {
	Users      *service.UserService
	Addresses  *service.AddressService
	Stores     *service.StoreService
	Categories *service.CategoryService
	Products   *service.ProductService
	Carts      *service.CartService
	Wishlists  *service.WishlistService
	Orders     *service.OrderService
	Payments   *service.PaymentService
	Reviews    *service.ReviewService
	Reports    *service.ReportService

	Health   *health.Handler
	Logger   *slog.Logger
	Resolver middleware.PrincipalResolver

	AuthHeader string
	AuthPrefix string
	CORS       middleware.CORSConfig
}

// NewRouter creates a chi router with all API routes registered. Public
// catalog reads need no token; everything that acts on behalf of a user
// requires authentication, with role checks on seller and admin surfaces.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(cfg.Logger))
	r.Use(middleware.CORS(cfg.CORS))

	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())

	authHandler := NewAuthHandler(cfg.Users, cfg.Logger)
	userHandler := NewUserHandler(cfg.Users, cfg.Addresses, cfg.Logger)
	storeHandler := NewStoreHandler(cfg.Stores, cfg.Logger)
	categoryHandler := NewCategoryHandler(cfg.Categories, cfg.Logger)
	productHandler := NewProductHandler(cfg.Products, cfg.Logger)
	cartHandler := NewCartHandler(cfg.Carts, cfg.Logger)
	wishlistHandler := NewWishlistHandler(cfg.Wishlists, cfg.Logger)
	orderHandler := NewOrderHandler(cfg.Orders, cfg.Logger)
	paymentHandler := NewPaymentHandler(cfg.Payments, cfg.Logger)
	reviewHandler := NewReviewHandler(cfg.Reviews, cfg.Logger)
	reportHandler := NewReportHandler(cfg.Reports, cfg.Logger)

	authn := middleware.Auth(cfg.Resolver, cfg.AuthHeader, cfg.AuthPrefix)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Get("/email-available", authHandler.EmailAvailable)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", categoryHandler.ListCategories)
			r.Get("/roots", categoryHandler.ListRootCategories)
			r.Get("/active", categoryHandler.ListActiveCategories)
			r.Get("/search", categoryHandler.SearchCategories)
			r.Get("/hierarchy", categoryHandler.GetHierarchy)
			r.Get("/top", categoryHandler.TopCategories)
			r.Get("/{id}", categoryHandler.GetCategory)
			r.Get("/{id}/children", categoryHandler.ListSubcategories)
			r.Get("/{id}/path", categoryHandler.GetCategoryPath)

			r.Group(func(r chi.Router) {
				r.Use(authn, middleware.RequireRole(domain.RoleAdmin))
				r.Post("/", categoryHandler.CreateCategory)
				r.Put("/{id}", categoryHandler.UpdateCategory)
				r.Delete("/{id}", categoryHandler.DeleteCategory)
			})
		})

		r.Route("/stores", func(r chi.Router) {
			r.Get("/", storeHandler.ListStores)

			r.Group(func(r chi.Router) {
				r.Use(authn)
				// Any authenticated user may open a store; doing so
				// promotes a buyer to seller.
				r.Post("/", storeHandler.CreateStore)
				r.Get("/me", storeHandler.GetOwnStore)
			})

			r.Get("/{id}", storeHandler.GetStore)

			r.Group(func(r chi.Router) {
				r.Use(authn, middleware.RequireRole(domain.RoleSeller, domain.RoleAdmin))
				r.Put("/{id}", storeHandler.UpdateStore)
				r.Put("/{id}/active", storeHandler.SetStoreActive)
				r.Delete("/{id}", storeHandler.DeleteStore)
			})
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", productHandler.ListProducts)
			r.Get("/search", productHandler.SearchProducts)
			r.Get("/suggest", productHandler.SuggestProducts)
			r.Get("/top-selling", productHandler.TopSellingProducts)
			r.Get("/{id}", productHandler.GetProduct)
			r.Get("/{id}/availability", productHandler.CheckAvailability)
			r.Get("/{id}/reviews", reviewHandler.ListProductReviews)
			r.Get("/{id}/rating", reviewHandler.GetProductRating)

			r.Group(func(r chi.Router) {
				r.Use(authn, middleware.RequireRole(domain.RoleSeller, domain.RoleAdmin))
				r.Post("/", productHandler.CreateProduct)
				r.Put("/{id}", productHandler.UpdateProduct)
				r.Put("/{id}/stock", productHandler.AdjustStock)
				r.Delete("/{id}", productHandler.DeleteProduct)
			})

			r.Group(func(r chi.Router) {
				r.Use(authn)
				r.Post("/{id}/reviews", reviewHandler.CreateReview)
			})
		})

		r.Route("/reviews", func(r chi.Router) {
			r.Get("/{id}", reviewHandler.GetReview)

			r.Group(func(r chi.Router) {
				r.Use(authn)
				r.Put("/{id}", reviewHandler.UpdateReview)
				r.Delete("/{id}", reviewHandler.DeleteReview)
			})
		})

		r.Route("/users/me", func(r chi.Router) {
			r.Use(authn)
			r.Get("/", userHandler.GetProfile)
			r.Put("/", userHandler.UpdateProfile)
			r.Put("/password", userHandler.ChangePassword)
			r.Get("/reviews", reviewHandler.ListOwnReviews)

			r.Route("/addresses", func(r chi.Router) {
				r.Get("/", userHandler.ListAddresses)
				r.Post("/", userHandler.CreateAddress)
				r.Put("/{id}", userHandler.UpdateAddress)
				r.Put("/{id}/default", userHandler.SetDefaultAddress)
				r.Delete("/{id}", userHandler.DeleteAddress)
			})
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(authn)
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{productId}", cartHandler.SetItemQuantity)
			r.Delete("/items/{productId}", cartHandler.RemoveItem)
		})

		r.Route("/wishlists", func(r chi.Router) {
			r.Use(authn)
			r.Post("/", wishlistHandler.CreateWishlist)
			r.Get("/", wishlistHandler.ListWishlists)
			r.Get("/{id}", wishlistHandler.GetWishlist)
			r.Put("/{id}", wishlistHandler.RenameWishlist)
			r.Delete("/{id}", wishlistHandler.DeleteWishlist)
			r.Post("/{id}/products/{productId}", wishlistHandler.AddProduct)
			r.Delete("/{id}/products/{productId}", wishlistHandler.RemoveProduct)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Use(authn)
			r.Post("/checkout", orderHandler.Checkout)
			r.Get("/", orderHandler.ListOrders)
			r.Get("/track/{orderNumber}", orderHandler.TrackOrder)
			r.Get("/{id}", orderHandler.GetOrder)
			r.Post("/{id}/cancel", orderHandler.CancelOrder)

			r.Post("/{id}/payment", paymentHandler.ProcessPayment)
			r.Get("/{id}/payment", paymentHandler.GetPayment)
			r.Post("/{id}/payment/refund", paymentHandler.RefundPayment)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(authn, middleware.RequireRole(domain.RoleAdmin))

			r.Route("/users", func(r chi.Router) {
				r.Get("/", userHandler.ListUsers)
				r.Get("/{id}", userHandler.GetUser)
				r.Put("/{id}/role", userHandler.SetUserRole)
				r.Put("/{id}/enabled", userHandler.SetUserEnabled)
				r.Delete("/{id}", userHandler.DeleteUser)
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", orderHandler.ListAllOrders)
				r.Put("/{id}/status", orderHandler.UpdateOrderStatus)
				r.Put("/{id}/tracking", orderHandler.SetTracking)
			})

			r.Post("/products/reindex", productHandler.ReindexAll)
			r.Get("/payments", paymentHandler.ListPayments)
			r.Get("/payments/{transactionId}", paymentHandler.GetPaymentByTransactionID)

			r.Route("/reports", func(r chi.Router) {
				r.Get("/sales-by-month", reportHandler.SalesByMonth)
				r.Get("/order-activity", reportHandler.OrderActivity)
				r.Get("/orders-by-store", reportHandler.OrdersByStore)
				r.Get("/payment-methods", reportHandler.PaymentMethods)
				r.Get("/payment-activity", reportHandler.PaymentActivity)
				r.Get("/abandoned-carts", reportHandler.AbandonedCarts)
				r.Get("/top-categories", reportHandler.TopCategories)
			})
		})
	})

	return r
}
