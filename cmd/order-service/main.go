// Package main is the entry point of the order service. It serves the order
// API and runs the payment and approval outbox relays and the response
// consumers.
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
	"github.com/Jbiscode/MSA-Order-Service/internal/platform/spanner"
	"github.com/Jbiscode/MSA-Order-Service/modules/orders"
	"github.com/Jbiscode/MSA-Order-Service/modules/orders/domain"
	"github.com/Jbiscode/MSA-Order-Service/modules/orders/infrastructure/persistence"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/types"
)

const serviceName = "order-service"

func main() {
	// Initialize logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel()}))
	slog.SetDefault(logger)
	logger = logger.With(slog.String("service", serviceName))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger); err != nil {
		logger.Error("order service stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("order service stopped")
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
	cfg.Logger = logger

	module := orders.New(cfg)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	outboxMetrics := metrics.NewOutboxMetrics("order_service", registry)

	runner := participant.New(module, cfg.Outbox, cfg.TxScope, transport, workerConfig(serviceName), logger, outboxMetrics)

	// Build HTTP router
	mux := http.NewServeMux()
	httpserver.Health(mux, serviceName)
	mux.Handle("GET /metrics", metrics.Handler(registry))
	module.RegisterRoutes(mux)

	handler := httpserver.Middleware(mux, httpserver.Recovery(logger), httpserver.Logging(logger), httpserver.CORS([]string{"*"}))
	server := httpserver.New(serverConfig(8181), handler, logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Run(ctx) })
	g.Go(func() error { return runner.Run(ctx) })
	return g.Wait()
}

// storage connects the repositories selected by STORE.
func storage(ctx context.Context, logger *slog.Logger) (orders.Config, func(), error) {
	switch getEnv("STORE", "spanner") {
	case "memory":
		logger.Warn("using in-memory storage; data is lost on restart")
		catalog := persistence.NewInMemoryCatalog()
		seedCatalog(catalog)
		return orders.Config{
			Orders:      persistence.NewInMemoryRepository(),
			Customers:   catalog,
			Restaurants: catalog,
			Outbox:      outbox.NewMemoryStore(),
			TxScope:     memtx.NewScope(),
		}, func() {}, nil
	default:
		spannerCfg := spanner.Config{
			ProjectID:  getEnv("SPANNER_PROJECT_ID", "local-project"),
			InstanceID: getEnv("SPANNER_INSTANCE_ID", "local-instance"),
			DatabaseID: getEnv("SPANNER_DATABASE_ID", "order-db"),
		}
		client, err := spanner.NewClient(ctx, spannerCfg)
		if err != nil {
			return orders.Config{}, nil, err
		}
		logger.Info("connected to spanner", slog.String("dsn", spannerCfg.DSN()))

		catalog := persistence.NewSpannerCatalog(client)
		return orders.Config{
			Orders:      persistence.NewSpannerRepository(client),
			Customers:   catalog,
			Restaurants: catalog,
			Outbox:      outbox.NewSpannerStore(client),
			TxScope:     spanner.NewReadWriteTransactionScope(client),
		}, client.Close, nil
	}
}

// seedCatalog registers the local development customer and restaurant.
func seedCatalog(catalog *persistence.InMemoryCatalog) {
	customerID, _ := types.ParseCustomerID(demoCustomerID)
	restaurantID, _ := types.ParseRestaurantID(demoRestaurantID)
	product1, _ := types.ParseProductID(demoProduct1ID)
	product2, _ := types.ParseProductID(demoProduct2ID)

	catalog.AddCustomer(domain.Customer{ID: customerID, Username: "user_1"})
	catalog.AddRestaurant(domain.Restaurant{
		ID:     restaurantID,
		Active: true,
		Products: []domain.Product{
			{ID: product1, Name: "product_1", Price: types.MustParseMoney("25.00")},
			{ID: product2, Name: "product_2", Price: types.MustParseMoney("50.00")},
		},
	})
}
