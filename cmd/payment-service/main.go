// Package main is the entry point of the payment service. It consumes payment
// requests and relays the payment responses.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/Jbiscode/MSA-Order-Service/internal/platform/httpserver"
	"github.com/Jbiscode/MSA-Order-Service/internal/platform/memtx"
	"github.com/Jbiscode/MSA-Order-Service/internal/platform/messaging"
	"github.com/Jbiscode/MSA-Order-Service/internal/platform/metrics"
	"github.com/Jbiscode/MSA-Order-Service/internal/platform/outbox"
	"github.com/Jbiscode/MSA-Order-Service/internal/platform/participant"
	"github.com/Jbiscode/MSA-Order-Service/internal/platform/postgres"
	"github.com/Jbiscode/MSA-Order-Service/modules/payments"
	"github.com/Jbiscode/MSA-Order-Service/modules/payments/infrastructure/persistence"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/types"
)

const serviceName = "payment-service"

func main() {
	// Initialize logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel()}))
	slog.SetDefault(logger)
	logger = logger.With(slog.String("service", serviceName))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger); err != nil {
		logger.Error("payment service stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("payment service stopped")
}

func run(ctx context.Context, logger *slog.Logger) error {
	transport, err := messaging.Open(transportConfig(serviceName), logger)
	if err != nil {
		return err
	}
	defer transport.Close()

	cfg, closeStore, err := storage(ctx, logger)
	if err != nil {
		return err
	}
	defer closeStore()
	cfg.Sender = transport
	cfg.Logger = logger

	module := payments.New(cfg)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	outboxMetrics := metrics.NewOutboxMetrics("payment_service", registry)

	runner := participant.New(module, cfg.Outbox, cfg.TxScope, transport, workerConfig(serviceName), logger, outboxMetrics)

	mux := http.NewServeMux()
	httpserver.Health(mux, serviceName)
	mux.Handle("GET /metrics", metrics.Handler(registry))

	handler := httpserver.Middleware(mux, httpserver.Recovery(logger), httpserver.Logging(logger))
	server := httpserver.New(serverConfig(8182), handler, logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Run(ctx) })
	g.Go(func() error { return runner.Run(ctx) })
	return g.Wait()
}

// storage connects the repositories selected by STORE.
func storage(ctx context.Context, logger *slog.Logger) (payments.Config, func(), error) {
	switch getEnv("STORE", "postgres") {
	case "memory":
		logger.Warn("using in-memory storage; data is lost on restart")
		repo := persistence.NewInMemoryRepository()
		customerID, _ := types.ParseCustomerID(demoCustomerID)
		repo.Seed(customerID, types.MustParseMoney("500.00"))
		return payments.Config{
			Payments:  repo.Payments(),
			Credits:   repo.Credits(),
			Histories: repo.Histories(),
			Outbox:    outbox.NewMemoryStore(),
			TxScope:   memtx.NewScope(),
		}, func() {}, nil
	default:
		pgCfg := postgres.DefaultConfig()
		pgCfg.URL = getEnv("DATABASE_URL", pgCfg.URL)
		pool, err := postgres.NewPool(ctx, pgCfg)
		if err != nil {
			return payments.Config{}, nil, err
		}
		if err := postgres.Migrate(ctx, pool, outbox.PostgresSchema, persistence.Schema); err != nil {
			pool.Close()
			return payments.Config{}, nil, err
		}
		logger.Info("connected to postgres")

		repo := persistence.NewPostgresRepository(pool)
		return payments.Config{
			Payments:  repo.Payments(),
			Credits:   repo.Credits(),
			Histories: repo.Histories(),
			Outbox:    outbox.NewPostgresStore(pool),
			TxScope:   postgres.NewTransactionScope(pool),
		}, pool.Close, nil
	}
}
