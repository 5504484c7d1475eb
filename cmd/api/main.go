package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/boticalabs/botica-backend/api/routes"
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
	"github.com/boticalabs/botica-backend/internal/users"
	squarewebhook "github.com/boticalabs/botica-backend/internal/webhooks/square"
	"github.com/boticalabs/botica-backend/pkg/auth/session"
	"github.com/boticalabs/botica-backend/pkg/bigquery"
	"github.com/boticalabs/botica-backend/pkg/config"
	"github.com/boticalabs/botica-backend/pkg/db"
	"github.com/boticalabs/botica-backend/pkg/instance"
	"github.com/boticalabs/botica-backend/pkg/logger"
	"github.com/boticalabs/botica-backend/pkg/migrate"
	"github.com/boticalabs/botica-backend/pkg/outbox"
	"github.com/boticalabs/botica-backend/pkg/redis"
	"github.com/boticalabs/botica-backend/pkg/square"
	"github.com/boticalabs/botica-backend/pkg/storage/gcs"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	fatalOn(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	fatalOn(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	fatalOn(ctx, logg, "dev migrations", migrate.MaybeRunDev(ctx, cfg, logg, dbClient))

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	fatalOn(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	gcsClient, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
	fatalOn(ctx, logg, "gcs", err)
	defer func() {
		if err := gcsClient.Close(); err != nil {
			logg.Error(ctx, "error closing gcs client", err)
		}
	}()

	bqClient, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
	fatalOn(ctx, logg, "bigquery", err)
	defer func() {
		if err := bqClient.Close(); err != nil {
			logg.Error(ctx, "error closing bigquery client", err)
		}
	}()

	squareClient, err := square.NewClient(ctx, cfg.Square, logg)
	fatalOn(ctx, logg, "square", err)

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	fatalOn(ctx, logg, "session manager", err)

	gormDB := dbClient.DB()
	usersRepo := users.NewRepository(gormDB)
	customersRepo := customers.NewRepository(gormDB)
	productsRepo := products.NewRepository(gormDB)
	inventoryRepo := inventory.NewRepository(gormDB)
	cartRepo := cart.NewRepository(gormDB)
	ordersRepo := orders.NewRepository(gormDB)
	paymentsRepo := payments.NewRepository(gormDB)
	prescriptionsRepo := prescriptions.NewRepository(gormDB)
	notificationsRepo := notifications.NewRepository(gormDB)
	outboxSvc := outbox.NewService(outbox.NewRepository(gormDB), logg)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       usersRepo,
		CustomerRepo:   customersRepo,
		SessionManager: sessionManager,
		TxRunner:       dbClient,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	fatalOn(ctx, logg, "auth service", err)

	productsService, err := products.NewService(productsRepo, dbClient)
	fatalOn(ctx, logg, "products service", err)

	inventoryService, err := inventory.NewService(inventoryRepo, dbClient, outboxSvc)
	fatalOn(ctx, logg, "inventory service", err)

	cartService, err := cart.NewService(cartRepo, productsRepo, customersRepo)
	fatalOn(ctx, logg, "cart service", err)

	ordersService, err := orders.NewService(ordersRepo, cartRepo, customersRepo, prescriptionsRepo, dbClient, outboxSvc)
	fatalOn(ctx, logg, "orders service", err)

	paymentsService, err := payments.NewService(paymentsRepo, ordersRepo, customersRepo, squareClient, dbClient, outboxSvc, cfg.Square)
	fatalOn(ctx, logg, "payments service", err)

	invoicesService, err := invoices.NewService(ordersRepo, customersRepo)
	fatalOn(ctx, logg, "invoices service", err)

	prescriptionsService, err := prescriptions.NewService(prescriptionsRepo, gcsClient, dbClient, outboxSvc, cfg.GCS, logg)
	fatalOn(ctx, logg, "prescriptions service", err)

	customersService, err := customers.NewService(customersRepo, dbClient, outboxSvc)
	fatalOn(ctx, logg, "customers service", err)

	notificationsService, err := notifications.NewService(notificationsRepo)
	fatalOn(ctx, logg, "notifications service", err)

	webhookService, err := squarewebhook.NewService(squarewebhook.ServiceParams{
		Payments: paymentsService,
		Logger:   logg,
	})
	fatalOn(ctx, logg, "square webhook service", err)

	webhookGuard, err := squarewebhook.NewIdempotencyGuard(redisClient, cfg.Eventing.OutboxIdempotencyTTL, "square")
	fatalOn(ctx, logg, "square webhook guard", err)

	handler := routes.NewRouter(routes.Deps{
		Config:         cfg,
		Logger:         logg,
		DB:             dbClient,
		Redis:          redisClient,
		GCS:            gcsClient,
		BigQuery:       bqClient,
		SessionManager: sessionManager,
		SquareClient:   squareClient,
		Auth:           authService,
		Products:       productsService,
		Inventory:      inventoryService,
		Cart:           cartService,
		Orders:         ordersService,
		Payments:       paymentsService,
		Invoices:       invoicesService,
		Prescriptions:  prescriptionsService,
		Customers:      customersService,
		Notifications:  notificationsService,
		SquareWebhook:  webhookService,
		WebhookGuard:   webhookGuard,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	runCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(runCtx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(runCtx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func fatalOn(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "failed to bootstrap "+resource, err)
	os.Exit(1)
}
