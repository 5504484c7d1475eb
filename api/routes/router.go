package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/boticalabs/botica-backend/api/controllers"
	webhookcontrollers "github.com/boticalabs/botica-backend/api/controllers/webhooks"
	"github.com/boticalabs/botica-backend/api/middleware"
	"github.com/boticalabs/botica-backend/internal/auth"
	"github.com/boticalabs/botica-backend/internal/cart"
	"github.com/boticalabs/botica-backend/internal/customers"
	"github.com/boticalabs/botica-backend/internal/inventory"
	"github.com/boticalabs/botica-backend/internal/invoices"
	"github.com/boticalabs/botica-backend/internal/notifications"
	"github.com/boticalabs/botica-backend/internal/orders"
	"github.com/boticalabs/botica-backend/internal/payments"
	"github.com/boticalabs/botica-backend/internal/prescriptions"
	products "github.com/boticalabs/botica-backend/internal/products"
	squarewebhook "github.com/boticalabs/botica-backend/internal/webhooks/square"
	"github.com/boticalabs/botica-backend/pkg/auth/session"
	"github.com/boticalabs/botica-backend/pkg/bigquery"
	"github.com/boticalabs/botica-backend/pkg/config"
	"github.com/boticalabs/botica-backend/pkg/db"
	"github.com/boticalabs/botica-backend/pkg/enums"
	"github.com/boticalabs/botica-backend/pkg/logger"
	"github.com/boticalabs/botica-backend/pkg/redis"
	"github.com/boticalabs/botica-backend/pkg/square"
	"github.com/boticalabs/botica-backend/pkg/storage/gcs"
)

type redisStore interface {
	redis.Pinger
	redis.IdempotencyStore
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
}

// Deps carries everything the route table wires into controllers.
type Deps struct {
	Config         *config.Config
	Logger         *logger.Logger
	DB             db.Pinger
	Redis          redisStore
	GCS            gcs.Pinger
	BigQuery       bigquery.Pinger
	SessionManager session.AccessSessionChecker
	SquareClient   *square.Client

	Auth          auth.Service
	Products      products.Service
	Inventory     inventory.Service
	Cart          cart.Service
	Orders        orders.Service
	Payments      payments.Service
	Invoices      invoices.Service
	Prescriptions prescriptions.Service
	Customers     customers.Service
	Notifications notifications.Service
	SquareWebhook *squarewebhook.Service
	WebhookGuard  *squarewebhook.IdempotencyGuard
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis, deps.GCS, deps.BigQuery))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/square", webhookcontrollers.SquareWebhook(deps.SquareWebhook, deps.SquareClient, deps.WebhookGuard, cfg.Square.WebhookURL, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(registerPolicy, deps.Redis, logg), middleware.Idempotency(deps.Redis, logg)).
			Post("/register", controllers.AuthRegister(deps.Auth, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).
			Post("/login", controllers.AuthLogin(deps.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(deps.Auth, cfg.JWT, logg))
	})

	// Public catalog. Pricing in the response is retail; wholesale prices
	// come from authenticated cart/order flows.
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ListProducts(deps.Products, logg))
		r.Get("/{productId}", controllers.GetProduct(deps.Products, logg))
		r.Get("/{productId}/bulk-pricing", controllers.GetBulkPricing(deps.Products, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.SessionManager, logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Get("/me", controllers.MyProfile(deps.Customers, logg))

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireCustomer(logg))

			r.Put("/me/shipping-address", controllers.UpdateMyShippingAddress(deps.Customers, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.GetCart(deps.Cart, logg))
				r.Put("/items", controllers.SetCartItem(deps.Cart, logg))
				r.Delete("/items/{productId}", controllers.RemoveCartItem(deps.Cart, logg))
				r.Delete("/", controllers.ClearCart(deps.Cart, logg))
			})

		})

		r.Route("/prescriptions", func(r chi.Router) {
			r.With(middleware.RequireCustomer(logg)).Post("/upload-url", controllers.RequestPrescriptionUpload(deps.Prescriptions, logg))
			r.With(middleware.RequireCustomer(logg)).Post("/", controllers.SubmitPrescription(deps.Prescriptions, logg))
			r.With(middleware.RequireCustomer(logg)).Get("/", controllers.ListMyPrescriptions(deps.Prescriptions, logg))
			r.Get("/{prescriptionId}", controllers.GetPrescription(deps.Prescriptions, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.With(middleware.RequireCustomer(logg)).Post("/", controllers.CreateOrder(deps.Orders, logg))
			r.With(middleware.RequireCustomer(logg)).Get("/", controllers.ListMyOrders(deps.Orders, logg))
			r.Get("/{orderId}", controllers.GetOrder(deps.Orders, logg))
			r.Get("/{orderId}/invoice", controllers.OrderInvoice(deps.Invoices, logg))
			r.With(middleware.RequireCustomer(logg)).Post("/{orderId}/cancel", controllers.CancelOrder(deps.Orders, logg))
			r.With(middleware.RequireCustomer(logg)).Post("/{orderId}/payments", controllers.CaptureOrderPayment(deps.Payments, logg))
		})
	})

	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.SessionManager, logg))
		r.Use(middleware.RequireStaff(logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))

		r.Get("/ping", controllers.AdminPing())

		r.Route("/products", func(r chi.Router) {
			r.Post("/", controllers.CreateProduct(deps.Products, logg))
			r.Patch("/{productId}", controllers.UpdateProduct(deps.Products, logg))
			r.Put("/{productId}/bulk-pricing", controllers.SetBulkPricing(deps.Products, logg))
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Post("/adjustments", controllers.ApplyInventoryAdjustment(deps.Inventory, logg))
			r.Get("/low-stock", controllers.ListLowStock(deps.Inventory, logg))
			r.Get("/{productId}/batches", controllers.ListInventoryBatches(deps.Inventory, logg))
			r.Get("/{productId}/movements", controllers.ListInventoryMovements(deps.Inventory, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.AdminListOrders(deps.Orders, logg))
			r.Patch("/{orderId}/status", controllers.AdminUpdateOrderStatus(deps.Orders, logg))
		})

		r.Route("/prescriptions", func(r chi.Router) {
			r.Get("/pending", controllers.ListPendingPrescriptions(deps.Prescriptions, logg))
			r.Post("/{prescriptionId}/review", controllers.ReviewPrescription(deps.Prescriptions, logg))
		})

		// Verification is an admin call, not a pharmacist one.
		r.Route("/customers", func(r chi.Router) {
			r.With(middleware.RequireRoles(logg, enums.RoleAdmin)).Get("/pending", controllers.AdminListPendingCustomers(deps.Customers, logg))
			r.With(middleware.RequireRoles(logg, enums.RoleAdmin)).Post("/{customerId}/verify", controllers.AdminVerifyCustomer(deps.Customers, logg))
		})
	})

	return r
}
