package main

import (
	"context"
	"encoding/hex"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rookgm/orderflow/config"
	"github.com/rookgm/orderflow/internal/auth"
	handler "github.com/rookgm/orderflow/internal/handler/http"
	"github.com/rookgm/orderflow/internal/logger"
	"github.com/rookgm/orderflow/internal/metrics"
	"github.com/rookgm/orderflow/internal/middleware"
	"github.com/rookgm/orderflow/internal/models"
	"github.com/rookgm/orderflow/internal/notify"
	"github.com/rookgm/orderflow/internal/provider"
	"github.com/rookgm/orderflow/internal/repository"
	"github.com/rookgm/orderflow/internal/repository/postgres"
	"github.com/rookgm/orderflow/internal/service"
	"github.com/rookgm/orderflow/internal/webhook"
	"github.com/rookgm/orderflow/internal/worker"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {

	// create new config
	cfg, err := config.New()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// initialize logger
	zl, err := logger.Initialize(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Error initializing logger: %v", err)
	}
	defer zl.Sync()

	// create context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// initialize database
	db, err := postgres.New(ctx, cfg.DatabaseDSN)
	if err != nil {
		zl.Fatal("Error initializing database", zap.Error(err))
	}
	defer db.Close()

	// migrate database
	if err := db.Migrate(); err != nil {
		zl.Fatal("Error migrating database", zap.Error(err))
	}

	// metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.New(registry)

	// notifications
	var notifier service.Notifier
	if brokers := notify.ParseBrokers(cfg.KafkaBrokers); len(brokers) > 0 {
		emitter := notify.NewKafkaEmitter(notify.NewKafkaWriter(brokers, cfg.NotificationTopic))
		defer emitter.Close()
		notifier = emitter
		zl.Info("Publishing notifications to kafka",
			zap.Strings("brokers", brokers),
			zap.String("topic", cfg.NotificationTopic))
	} else {
		notifier = notify.NewLogEmitter(zl)
		zl.Warn("No kafka brokers configured, notifications are only logged")
	}

	// dependency injection
	// order
	orderRepo := repository.NewOrderRepository(db)
	orderService := service.NewOrderService(orderRepo, recorder)
	orderHandler := handler.NewOrderHandler(orderService)

	// reconciliation
	reconciler, err := service.NewReconciler(service.ReconcilerDeps{
		Orders:       orderRepo,
		Payments:     repository.NewPaymentRepository(db),
		Provider:     provider.NewClient(cfg.ProviderBaseURL, cfg.ProviderAccessToken, cfg.ProviderTimeout),
		Inventory:    repository.NewInventoryRepository(db),
		Discounts:    repository.NewDiscountRepository(db),
		Notifier:     notifier,
		Metrics:      recorder,
		FetchTimeout: cfg.ProviderTimeout,
		AdminEmail:   cfg.AdminEmail,
	})
	if err != nil {
		zl.Fatal("Error creating reconciler", zap.Error(err))
	}

	if cfg.WebhookSecret == "" {
		zl.Warn("Webhook secret is not set, every notification will be rejected")
	}
	verifier := webhook.NewVerifier(cfg.WebhookSecret, webhook.WithTolerance(cfg.SignatureTolerance))
	webhookHandler := handler.NewWebhookHandler(verifier, reconciler, recorder)

	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(middleware.Logging(zl))
	router.Use(chimiddleware.Recoverer)

	router.Post("/api/webhooks/payments", webhookHandler.PaymentNotification())
	router.Post("/api/orders", orderHandler.CreateOrder())
	router.Get("/api/orders/{businessID}/tracking", orderHandler.TrackOrder())
	router.Get("/api/statuses", handler.ListStatuses())
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	// routes that require an operator token
	if cfg.AuthTokenKey != "" {
		tokenKey, err := hex.DecodeString(cfg.AuthTokenKey)
		if err != nil {
			zl.Fatal("Error extracting token key", zap.Error(err))
		}
		token := auth.NewAuthToken(tokenKey)

		router.Route("/api/admin", func(group chi.Router) {
			group.Use(middleware.Auth(token))
			group.Use(middleware.RequireRole(models.RoleAdmin))
			group.Get("/orders", orderHandler.ListOrders())
			group.Get("/orders/{id}", orderHandler.GetOrder())
			group.Delete("/orders/{id}", orderHandler.DeleteOrder())
			group.Post("/orders/{id}/status", orderHandler.UpdateStatus())
			group.Post("/orders/{id}/issues", orderHandler.ReportIssue())
			group.Post("/orders/{id}/issues/{issueID}/resolve", orderHandler.ResolveIssue())
		})
	} else {
		zl.Warn("Auth token key is not set, admin API is disabled")
	}

	// pending payment sweeper
	sweeper := worker.NewPaymentSweeper(orderRepo, reconciler, cfg.SweepInterval)
	go sweeper.Run(ctx)

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			zl.Error("Error shutting down server", zap.Error(err))
		}
	}()

	zl.Info("Running server", zap.String("addr", cfg.ServerAddr))

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		zl.Fatal("Error starting server", zap.Error(err))
	}
}
