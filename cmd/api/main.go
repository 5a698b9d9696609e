package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/texnomart-dev/storefront-backend/api/controllers"
	"github.com/texnomart-dev/storefront-backend/api/routes"
	"github.com/texnomart-dev/storefront-backend/internal/auth"
	"github.com/texnomart-dev/storefront-backend/internal/cart"
	checkoutsvc "github.com/texnomart-dev/storefront-backend/internal/checkout"
	"github.com/texnomart-dev/storefront-backend/internal/messages"
	"github.com/texnomart-dev/storefront-backend/internal/orders"
	"github.com/texnomart-dev/storefront-backend/internal/payments"
	"github.com/texnomart-dev/storefront-backend/internal/products"
	"github.com/texnomart-dev/storefront-backend/internal/settings"
	"github.com/texnomart-dev/storefront-backend/internal/users"
	"github.com/texnomart-dev/storefront-backend/pkg/auth/session"
	"github.com/texnomart-dev/storefront-backend/pkg/config"
	"github.com/texnomart-dev/storefront-backend/pkg/db"
	"github.com/texnomart-dev/storefront-backend/pkg/logger"
	"github.com/texnomart-dev/storefront-backend/pkg/metrics"
	"github.com/texnomart-dev/storefront-backend/pkg/migrate"
	"github.com/texnomart-dev/storefront-backend/pkg/redis"
	"github.com/texnomart-dev/storefront-backend/pkg/storage/bucket"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	storageClient, err := bucket.NewClient(context.Background(), cfg.Storage, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap storage", err)
		os.Exit(1)
	}

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	checkoutMetrics := metrics.NewCheckoutMetrics(prometheus.DefaultRegisterer)

	usersRepo := users.NewRepository(dbClient.DB())
	productsRepo := products.NewRepository(dbClient.DB())
	cartRepo := cart.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())
	settingsRepo := settings.NewRepository(dbClient.DB())
	messagesRepo := messages.NewRepository(dbClient.DB())
	paymentTxRepo := payments.NewRepository(dbClient.DB())

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       usersRepo,
		SessionManager: sessionManager,
		RateLimiter:    redisClient,
		RateLimit:      cfg.AuthRateLimit,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	productService, err := products.NewService(productsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create product service", err)
		os.Exit(1)
	}

	settingsService, err := settings.NewService(settingsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create settings service", err)
		os.Exit(1)
	}

	cartService, err := cart.NewService(cartRepo, dbClient, productsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	checkoutService, err := checkoutsvc.NewService(
		dbClient,
		ordersRepo,
		cartRepo,
		storageClient,
		settingsService,
		cfg.Checkout,
		cfg.Storage.ReceiptBucket,
		logg,
		checkoutMetrics,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(ordersRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	messagesService, err := messages.NewService(messagesRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create message service", err)
		os.Exit(1)
	}

	clickGateway, err := payments.NewClickGateway(cfg.Click)
	if err != nil {
		logg.Error(context.Background(), "failed to create click gateway", err)
		os.Exit(1)
	}
	paymeGateway, err := payments.NewPaymeGateway(cfg.Payme)
	if err != nil {
		logg.Error(context.Background(), "failed to create payme gateway", err)
		os.Exit(1)
	}
	uzcardGateway, err := payments.NewUzcardGateway(cfg.Uzcard)
	if err != nil {
		logg.Error(context.Background(), "failed to create uzcard gateway", err)
		os.Exit(1)
	}

	paymentRouter := payments.NewRouter(clickGateway, paymeGateway, uzcardGateway)
	paymentInitiate, err := payments.NewInitiateService(ordersRepo, paymentRouter)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment service", err)
		os.Exit(1)
	}

	clickWebhook, err := payments.NewClickWebhookService(dbClient, ordersRepo, paymentTxRepo, checkoutMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create click webhook service", err)
		os.Exit(1)
	}
	paymeWebhook, err := payments.NewPaymeWebhookService(dbClient, ordersRepo, paymentTxRepo, checkoutMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create payme webhook service", err)
		os.Exit(1)
	}
	uzcardWebhook, err := payments.NewUzcardWebhookService(dbClient, ordersRepo, paymentTxRepo, checkoutMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create uzcard webhook service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	handler := routes.NewRouter(cfg, logg, redisClient, sessionManager,
		map[string]controllers.Pinger{
			"database": dbClient,
			"redis":    redisClient,
			"storage":  storageClient,
		},
		routes.Services{
			Auth:            authService,
			Products:        productService,
			Settings:        settingsService,
			Cart:            cartService,
			Checkout:        checkoutService,
			Orders:          ordersService,
			Messages:        messagesService,
			PaymentInitiate: paymentInitiate,
			ClickWebhook:    clickWebhook,
			PaymeWebhook:    paymeWebhook,
			UzcardWebhook:   uzcardWebhook,
		},
	)

	server := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
