package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/tmcewen/vanir/internal"
	"github.com/tmcewen/vanir/internal/events"
	"github.com/tmcewen/vanir/internal/handler/api"
	"github.com/tmcewen/vanir/internal/middleware"
	"github.com/tmcewen/vanir/internal/postgres"
	"github.com/tmcewen/vanir/internal/router"
	"github.com/tmcewen/vanir/internal/routes"
	"github.com/tmcewen/vanir/internal/service"
	"github.com/tmcewen/vanir/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

func run() error {
	ctx := context.Background()

	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// database/sql connection is only used for migrations
	logger.Info("Connecting to database...")
	sqlDB, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	logger.Info("Running database migrations...")
	if err := internal.RunMigrations(sqlDB); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database migrations completed")

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer pool.Close()
	logger.Info("Database connection established")

	store := postgres.NewStore(pool)

	// Event publishing is optional: without a NATS URL, order events are
	// dropped.
	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.NATSURL != "" {
		natsPublisher, err := events.NewNATSPublisher(cfg.NATSURL, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		defer natsPublisher.Close()
		publisher = natsPublisher
		logger.Info("Connected to NATS", "url", cfg.NATSURL)
	}

	businessMetrics := telemetry.NewBusinessMetrics("vanir")
	metrics := middleware.NewMetrics("vanir")

	productService := service.NewProductService(store.Products(), businessMetrics, logger)
	cartService := service.NewCartService(store.Carts(), store.Products(), businessMetrics, logger)
	checkoutService := service.NewCheckoutService(store, publisher, businessMetrics, logger, cfg.Checkout)
	orderService := service.NewOrderService(store, store.Orders(), publisher, businessMetrics, logger)

	auth := middleware.NewAuthenticator(cfg.JWTSecret)

	deps := routes.Deps{
		ProductHandler:    api.NewProductHandler(productService),
		CartHandler:       api.NewCartHandler(cartService),
		OrderHandler:      api.NewOrderHandler(checkoutService, orderService),
		AdminOrderHandler: api.NewAdminOrderHandler(orderService),
		Auth:              auth,
		Metrics:           metrics,
	}

	r := router.New(
		router.Recovery(logger),
		middleware.RequestID,
		metrics.Middleware,
		router.CORS(cfg.AllowedOrigins),
		middleware.WithRequestLogger(logger),
		router.Logger(logger),
	)
	routes.Register(r, deps)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "address", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-stop:
		logger.Info("Shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	logger.Info("Server stopped")
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
