package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"

	"github.com/JulianR23/Vertex-Store/internal/application/catalog"
	appOrder "github.com/JulianR23/Vertex-Store/internal/application/order"
	appPayment "github.com/JulianR23/Vertex-Store/internal/application/payment"
	"github.com/JulianR23/Vertex-Store/internal/config"
	domOrder "github.com/JulianR23/Vertex-Store/internal/domain/order"
	domPayment "github.com/JulianR23/Vertex-Store/internal/domain/payment"
	"github.com/JulianR23/Vertex-Store/internal/infrastructure/boltjournal"
	"github.com/JulianR23/Vertex-Store/internal/infrastructure/gateway"
	"github.com/JulianR23/Vertex-Store/internal/infrastructure/id"
	infraobs "github.com/JulianR23/Vertex-Store/internal/infrastructure/observability"
	"github.com/JulianR23/Vertex-Store/internal/infrastructure/observability/oteltrace"
	"github.com/JulianR23/Vertex-Store/internal/infrastructure/observability/prometrics"
	"github.com/JulianR23/Vertex-Store/internal/infrastructure/observability/zaplogger"
	"github.com/JulianR23/Vertex-Store/internal/infrastructure/outbox"
	"github.com/JulianR23/Vertex-Store/internal/observability"
	"github.com/JulianR23/Vertex-Store/internal/pkg/logging"
	httppresentation "github.com/JulianR23/Vertex-Store/internal/presentation/http"
	workerpresentation "github.com/JulianR23/Vertex-Store/internal/presentation/worker"
)

func main() {
	seedOnly := flag.Bool("seed", false, "seed the product catalog, print it and exit")
	flag.Parse()

	cfg, err := config.FromEnv()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(2)
	}

	baseLogger := logging.MustNewLogger(cfg.Log)
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)

	systemLogger := zaplogger.New(baseLogger,
		observability.F("trace_id", logging.SystemTraceID),
		observability.F("span_id", logging.SystemSpanID),
	)

	if err := run(cfg, *seedOnly, systemLogger); err != nil {
		systemLogger.Error("service_exit", observability.F("error", err))
		_ = baseLogger.Sync()
		os.Exit(1)
	}
}

func run(cfg config.Config, seedOnly bool, systemLogger observability.Logger) error {
	repos, err := openStores(context.Background(), cfg.DB)
	if err != nil {
		return err
	}
	defer func() { _ = repos.close() }()
	systemLogger.Info("store_opened", observability.F("driver", cfg.DB.Driver))

	productRepo, customerRepo, orderRepo := repos.products, repos.customers, repos.orders

	if seedOnly {
		seeded, err := catalog.Seed(context.Background(), productRepo)
		if err != nil {
			return err
		}
		return printCatalog(os.Stdout, seeded)
	}

	journal, err := boltjournal.Open(cfg.JournalPath)
	if err != nil {
		return fmt.Errorf("open webhook journal: %w", err)
	}
	defer func() { _ = journal.Close() }()
	if n, err := journal.Count(); err == nil {
		systemLogger.Info("webhook_journal_opened",
			observability.F("path", cfg.JournalPath),
			observability.F("entries", n),
		)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	tel := infraobs.New(
		oteltrace.New("vertex-store"),
		systemLogger,
		prometrics.Standard(prometrics.New(reg, "", "")),
	)

	bus := outbox.NewBus(systemLogger,
		outbox.WithContextDecorator(workerpresentation.EventDecorator(systemLogger)),
	)
	bus.Start(context.Background())
	defer bus.Stop(context.Background())

	signer := domPayment.NewSigner(cfg.IntegrityKey)
	gatewayClient := gateway.New(cfg.Gateway, nil, tel)

	createOrder := appOrder.NewCreateOrderUseCase(
		orderRepo, productRepo, customerRepo,
		cfg.Fees,
		domOrder.NewReferenceGenerator(cfg.ReferencePrefix),
		id.NewUUIDGenerator(),
		bus,
		tel,
	)
	updateStatus := appOrder.NewUpdateStatusUseCase(orderRepo, productRepo, customerRepo, bus, tel)
	appOrder.NewWorker(bus, tel).Start()

	poller := appPayment.NewPoller(orderRepo, gatewayClient, updateStatus, cfg.Poller, tel)

	handler := httppresentation.NewHandler(httppresentation.UseCases{
		CreateOrder:    createOrder,
		GetOrder:       appOrder.NewGetOrderUseCase(orderRepo, productRepo, customerRepo, tel),
		UpdateStatus:   updateStatus,
		ChargeOrder:    appPayment.NewChargeOrderUseCase(orderRepo, customerRepo, gatewayClient, signer, cfg.Gateway.Timeout, tel),
		ReconcileEvent: appPayment.NewReconcileWebhookUseCase(orderRepo, updateStatus, signer, journal, tel),
		ListProducts:   catalog.NewListProductsUseCase(productRepo, tel),
		GetProduct:     catalog.NewGetProductUseCase(productRepo, tel),
	}, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), tel)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go poller.Run(ctx)

	serveErr := make(chan error, 1)
	go func() {
		systemLogger.Info("http_server_start",
			observability.F("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		systemLogger.Error("http_server_shutdown_error",
			observability.F("error", err),
		)
	} else {
		systemLogger.Info("http_server_stopped")
	}
	return nil
}
