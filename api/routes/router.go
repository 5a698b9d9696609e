package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/texnomart-dev/storefront-backend/api/controllers"
	"github.com/texnomart-dev/storefront-backend/api/middleware"
	authsvc "github.com/texnomart-dev/storefront-backend/internal/auth"
	cartsvc "github.com/texnomart-dev/storefront-backend/internal/cart"
	checkoutsvc "github.com/texnomart-dev/storefront-backend/internal/checkout"
	messagesvc "github.com/texnomart-dev/storefront-backend/internal/messages"
	ordersvc "github.com/texnomart-dev/storefront-backend/internal/orders"
	paymentsvc "github.com/texnomart-dev/storefront-backend/internal/payments"
	productsvc "github.com/texnomart-dev/storefront-backend/internal/products"
	settingsvc "github.com/texnomart-dev/storefront-backend/internal/settings"
	"github.com/texnomart-dev/storefront-backend/pkg/auth/session"
	"github.com/texnomart-dev/storefront-backend/pkg/config"
	"github.com/texnomart-dev/storefront-backend/pkg/logger"
	"github.com/texnomart-dev/storefront-backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, string) (string, string, error)
	Revoke(context.Context, string) error
}

// Services bundles everything the router mounts.
type Services struct {
	Auth            authsvc.Service
	Products        productsvc.Service
	Settings        settingsvc.Service
	Cart            cartsvc.Service
	Checkout        checkoutsvc.Service
	Orders          ordersvc.Service
	Messages        messagesvc.Service
	PaymentInitiate *paymentsvc.InitiateService
	ClickWebhook    controllers.ClickWebhookHandler
	PaymeWebhook    controllers.PaymeWebhookHandler
	UzcardWebhook   controllers.UzcardWebhookHandler
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	redisClient *redis.Client,
	sessionMgr sessionManager,
	healthDeps map[string]controllers.Pinger,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, healthDeps))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/click", controllers.ClickWebhook(svcs.ClickWebhook, logg))
		r.Post("/payme", controllers.PaymeWebhook(svcs.PaymeWebhook, logg))
		r.Post("/uzcard", controllers.UzcardWebhook(svcs.UzcardWebhook, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/register", controllers.Register(svcs.Auth, logg))
		r.Post("/login", controllers.Login(svcs.Auth, logg))
		r.Post("/refresh", controllers.Refresh(svcs.Auth, logg))
	})

	// Public catalog surface.
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", controllers.ProductList(svcs.Products, logg))
		r.Get("/products/{productID}", controllers.ProductGet(svcs.Products, logg))
		r.Get("/categories", controllers.CategoryList(svcs.Products, logg))
		r.Get("/settings", controllers.SettingsList(svcs.Settings, logg))
		r.Post("/messages", controllers.ContactMessageCreate(svcs.Messages, logg))

		// Customer surface behind bearer auth.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, sessionMgr, logg))
			r.Use(middleware.Idempotency(idempotencyStore(redisClient), logg))

			r.Post("/auth/logout", controllers.Logout(svcs.Auth, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartGet(svcs.Cart, logg))
				r.Delete("/", controllers.CartClear(svcs.Cart, logg))
				r.Post("/items", controllers.CartAddItem(svcs.Cart, logg))
				r.Put("/items/{lineKey}", controllers.CartUpdateItem(svcs.Cart, logg))
				r.Delete("/items/{lineKey}", controllers.CartRemoveItem(svcs.Cart, logg))
			})

			r.Post("/checkout", controllers.Checkout(svcs.Checkout, cfg.Checkout.MaxReceiptBytes, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.MyOrders(svcs.Orders, logg))
				r.Get("/{orderID}", controllers.MyOrder(svcs.Orders, logg))
				r.Post("/{orderID}/pay", controllers.PaymentInitiate(svcs.PaymentInitiate, logg))
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionMgr, logg))
		r.Use(middleware.RequireRole("admin", logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.AdminOrderList(svcs.Orders, logg))
			r.Patch("/{orderID}/status", controllers.AdminOrderUpdateStatus(svcs.Orders, logg))
			r.Delete("/{orderID}", controllers.AdminOrderDelete(svcs.Orders, logg))
		})
		r.Route("/messages", func(r chi.Router) {
			r.Get("/", controllers.AdminMessageList(svcs.Messages, logg))
			r.Patch("/{messageID}/status", controllers.AdminMessageUpdateStatus(svcs.Messages, logg))
			r.Delete("/{messageID}", controllers.AdminMessageDelete(svcs.Messages, logg))
		})
		r.Put("/settings", controllers.AdminSettingUpdate(svcs.Settings, logg))
	})

	return r
}

// idempotencyStore avoids handing the middleware a typed nil when Redis is
// not wired (router tests run without it).
func idempotencyStore(client *redis.Client) redis.IdempotencyStore {
	if client == nil {
		return nil
	}
	return client
}
