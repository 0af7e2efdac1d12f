// Package main is the entry point of the restaurant service. It consumes
// approval requests and relays the restaurants' decisions.
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
	"github.com/Jbiscode/MSA-Order-Service/modules/restaurants"
	"github.com/Jbiscode/MSA-Order-Service/modules/restaurants/domain"
	"github.com/Jbiscode/MSA-Order-Service/modules/restaurants/infrastructure/persistence"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/types"
)

const serviceName = "restaurant-service"

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel()}))
	slog.SetDefault(logger)
	logger = logger.With(slog.String("service", serviceName))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger); err != nil {
		logger.Error("restaurant service stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("restaurant service stopped")
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

	module := restaurants.New(cfg)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	outboxMetrics := metrics.NewOutboxMetrics("restaurant_service", registry)

	runner := participant.New(module, cfg.Outbox, cfg.TxScope, transport, workerConfig(serviceName), logger, outboxMetrics)

	mux := http.NewServeMux()
	httpserver.Health(mux, serviceName)
	mux.Handle("GET /metrics", metrics.Handler(registry))

	handler := httpserver.Middleware(mux, httpserver.Recovery(logger), httpserver.Logging(logger))
	server := httpserver.New(serverConfig(8183), handler, logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Run(ctx) })
	g.Go(func() error { return runner.Run(ctx) })
	return g.Wait()
}

func storage(ctx context.Context, logger *slog.Logger) (restaurants.Config, func(), error) {
	switch getEnv("STORE", "postgres") {
	case "memory":
		logger.Warn("using in-memory storage; data is lost on restart")
		repo := persistence.NewInMemoryRepository()
		seedRestaurant(repo)
		return restaurants.Config{
			Restaurants: repo,
			Approvals:   repo,
			Outbox:      outbox.NewMemoryStore(),
			TxScope:     memtx.NewScope(),
		}, func() {}, nil
	default:
		pgCfg := postgres.DefaultConfig()
		pgCfg.URL = getEnv("DATABASE_URL", pgCfg.URL)
		pool, err := postgres.NewPool(ctx, pgCfg)
		if err != nil {
			return restaurants.Config{}, nil, err
		}
		if err := postgres.Migrate(ctx, pool, outbox.PostgresSchema, persistence.Schema); err != nil {
			pool.Close()
			return restaurants.Config{}, nil, err
		}
		logger.Info("connected to postgres")

		repo := persistence.NewPostgresRepository(pool)
		return restaurants.Config{
			Restaurants: repo,
			Approvals:   repo,
			Outbox:      outbox.NewPostgresStore(pool),
			TxScope:     postgres.NewTransactionScope(pool),
		}, pool.Close, nil
	}
}

func seedRestaurant(repo *persistence.InMemoryRepository) {
	restaurantID, _ := types.ParseRestaurantID(demoRestaurantID)
	product1, _ := types.ParseProductID(demoProduct1ID)
	product2, _ := types.ParseProductID(demoProduct2ID)
	repo.AddRestaurant(domain.RestaurantInfo{
		ID:     restaurantID,
		Active: true,
		Products: []domain.Product{
			{ID: product1, Name: "product_1", Price: types.MustParseMoney("25.00"), Available: true},
			{ID: product2, Name: "product_2", Price: types.MustParseMoney("50.00"), Available: true},
		},
	})
}
