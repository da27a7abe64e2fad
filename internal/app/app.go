// Package app wires configuration, storage, search, and HTTP transport
// into a runnable marketplace server.
package app

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/Felix251/marketplace/internal/auth"
	"github.com/Felix251/marketplace/internal/cache"
	"github.com/Felix251/marketplace/internal/config"
	handler "github.com/Felix251/marketplace/internal/handler/http"
	"github.com/Felix251/marketplace/internal/payment"
	"github.com/Felix251/marketplace/internal/repository/postgres"
	"github.com/Felix251/marketplace/internal/search"
	"github.com/Felix251/marketplace/internal/service"
	"github.com/Felix251/marketplace/pkg/database"
	"github.com/Felix251/marketplace/pkg/health"
	"github.com/Felix251/marketplace/pkg/middleware"
)

//go:embed migrations/*.up.sql
var migrationsFS embed.FS

// App holds the application's long-lived resources.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	pool   *pgxpool.Pool
	redis  *redis.Client
	repair *search.RepairQueue

	httpServer *http.Server
}

// NewApp connects to all backing services, runs migrations, and builds
// the HTTP server. It does not start listening; call Run for that.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pgCfg := database.DefaultPostgresConfig()
	pgCfg.URL = cfg.PostgresDSN()
	pgCfg.User = cfg.PostgresUser
	pgCfg.Password = cfg.PostgresPass

	pool, err := database.NewPostgresPoolWithLogger(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := database.RunMigrations(ctx, pool, migrationsFS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	redisClient, err := database.NewRedisClient(ctx, database.RedisConfig{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	cacheStore := cache.New(redisClient, logger, cache.TTLs{
		Default:    cfg.CacheDefaultTTL,
		Products:   cfg.CacheProductTTL,
		Categories: cfg.CacheCategoryTTL,
		Users:      cfg.CacheUserTTL,
		Stores:     cfg.CacheStoreTTL,
	})

	engine, err := search.NewEngine(cfg.ElasticsearchURL, cfg.SearchIndexName, logger)
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("connect elasticsearch: %w", err)
	}
	repair := search.NewRepairQueue(engine, logger, cfg.SearchRepairBuffer)

	userRepo := postgres.NewUserRepository(pool)
	addressRepo := postgres.NewAddressRepository(pool)
	storeRepo := postgres.NewStoreRepository(pool)
	categoryRepo := postgres.NewCategoryRepository(pool)
	productRepo := postgres.NewProductRepository(pool)
	cartRepo := postgres.NewCartRepository(pool)
	wishlistRepo := postgres.NewWishlistRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	paymentRepo := postgres.NewPaymentRepository(pool)
	reviewRepo := postgres.NewReviewRepository(pool)

	hasher := auth.NewHasher(cfg.BcryptCost)
	tokens := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration, cfg.JWTLeeway)

	taxRate, shippingFee, err := cfg.Pricing()
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, err
	}

	userService := service.NewUserService(userRepo, hasher, tokens, cacheStore, logger)
	addressService := service.NewAddressService(addressRepo, logger)
	storeService := service.NewStoreService(storeRepo, userRepo, cacheStore, logger)
	categoryService := service.NewCategoryService(categoryRepo, cacheStore, logger)
	productService := service.NewProductService(productRepo, storeRepo, categoryRepo, engine, repair, cacheStore, logger)
	cartService := service.NewCartService(cartRepo, productRepo, logger)
	wishlistService := service.NewWishlistService(wishlistRepo, productRepo, logger)
	orderService := service.NewOrderService(
		pool,
		func(db database.DBTX) service.CheckoutRepos {
			return service.CheckoutRepos{
				Orders:   postgres.NewOrderRepository(db),
				Products: postgres.NewProductRepository(db),
				Carts:    postgres.NewCartRepository(db),
			}
		},
		orderRepo,
		cartRepo,
		addressRepo,
		service.Pricing{TaxRate: taxRate, ShippingFee: shippingFee},
		logger,
	)
	paymentService := service.NewPaymentService(paymentRepo, orderRepo, []payment.Provider{
		payment.NewStripeProvider(cfg.StripeAPIKey, logger),
		payment.NewPayPalProvider(cfg.PayPalClientID, cfg.PayPalClientSecret, logger),
	}, logger)
	reviewService := service.NewReviewService(reviewRepo, orderRepo, productRepo, logger)
	reportService := service.NewReportService(orderRepo, paymentRepo, cartRepo, categoryRepo, logger)

	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.Register("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	healthHandler.Register("elasticsearch", engine.Ping)

	resolver := func(ctx context.Context, token string) (*middleware.Principal, error) {
		user, err := userService.AuthenticateToken(ctx, token)
		if err != nil {
			return nil, err
		}
		return &middleware.Principal{
			UserID: user.ID,
			Email:  user.Email,
			Role:   user.Role,
		}, nil
	}

	router := handler.NewRouter(handler.RouterConfig{
		Users:      userService,
		Addresses:  addressService,
		Stores:     storeService,
		Categories: categoryService,
		Products:   productService,
		Carts:      cartService,
		Wishlists:  wishlistService,
		Orders:     orderService,
		Payments:   paymentService,
		Reviews:    reviewService,
		Reports:    reportService,
		Health:     healthHandler,
		Logger:     logger,
		Resolver:   resolver,
		AuthHeader: cfg.JWTHeader,
		AuthPrefix: cfg.JWTPrefix,
		CORS: middleware.CORSConfig{
			AllowedOrigins: cfg.CORSAllowedOrigins,
		},
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		cfg:        cfg,
		logger:     logger,
		pool:       pool,
		redis:      redisClient,
		repair:     repair,
		httpServer: httpServer,
	}, nil
}

// Run starts the index repair worker and the HTTP server, then blocks
// until the context is cancelled or the server fails.
func (a *App) Run(ctx context.Context) error {
	a.repair.Start()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", a.httpServer.Addr)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	return a.Shutdown()
}

// Shutdown stops the HTTP server and releases all resources.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var firstErr error
	if err := a.httpServer.Shutdown(ctx); err != nil {
		firstErr = fmt.Errorf("shutdown http server: %w", err)
	}

	a.repair.Stop()

	if err := a.redis.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close redis: %w", err)
	}
	a.pool.Close()

	a.logger.Info("shutdown complete")
	return firstErr
}
