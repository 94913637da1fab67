package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/vladislavdragonenkov/pos/internal/cache"
	"github.com/vladislavdragonenkov/pos/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/pos/internal/health"
	"github.com/vladislavdragonenkov/pos/internal/metrics"
	"github.com/vladislavdragonenkov/pos/internal/service/catalog"
	"github.com/vladislavdragonenkov/pos/internal/service/checkout"
	grpcsvc "github.com/vladislavdragonenkov/pos/internal/service/grpc"
	"github.com/vladislavdragonenkov/pos/internal/service/idempotency"
	"github.com/vladislavdragonenkov/pos/internal/service/outbox"
	"github.com/vladislavdragonenkov/pos/internal/service/preorder"
	"github.com/vladislavdragonenkov/pos/internal/service/pricing"
	"github.com/vladislavdragonenkov/pos/internal/transport/httpapi"
	"github.com/vladislavdragonenkov/pos/internal/version"
	posv1 "github.com/vladislavdragonenkov/pos/proto/pos/v1"
)

const shutdownTimeout = 5 * time.Second

// Run собирает граф зависимостей и обслуживает REST, gRPC и метрики до отмены ctx.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")
	logger.WithFields(version.Fields()).Info("starting pos service")
	registerCollector(version.Collector(), "build info", logger)

	loc, err := loadLocation(cfg.Timezone)
	if err != nil {
		return err
	}

	deps, err := initRuntimeDependencies(ctx, cfg, logger.WithField("layer", "storage"))
	if err != nil {
		return err
	}
	defer deps.close(logger)

	promotions := deps.promotions
	redisCache := initPromotionCache(ctx, cfg, logger)
	if redisCache != nil {
		defer func() { _ = redisCache.Close() }()
		promotions = cache.NewPromotionRepository(promotions, redisCache, cfg.PromotionCacheTTL, logger.WithField("component", "promotion-cache"))
	}

	if cfg.SeedDemoCatalog {
		if _, err := seedDemoCatalog(ctx, deps.products, promotions, logger); err != nil {
			return fmt.Errorf("seed demo catalog: %w", err)
		}
	}

	// Kafka необязательна: без неё продажи работают, события копятся в outbox.
	broker := connectKafka(cfg.KafkaBrokers, logger)
	defer broker.close()

	engine := pricing.NewEngine()
	checkoutDeps := checkout.Dependencies{
		Products:      deps.products,
		Promotions:    promotions,
		Sales:         deps.sales,
		Outbox:        deps.outboxRepo,
		Timeline:      deps.timelineRepo,
		Engine:        engine,
		Metrics:       metrics.NewCheckoutMetrics(),
		Logger:        logger.WithField("component", "checkout"),
		CommitTimeout: cfg.CommitTimeout,
	}
	if broker.connected() {
		checkoutDeps.Events = broker.producer
	}
	sales, err := checkout.NewService(checkoutDeps)
	if err != nil {
		return err
	}
	catalogSvc := catalog.NewService(deps.products, promotions, logger.WithField("component", "catalog"))
	preorderSvc := preorder.NewService(deps.preorders, deps.products, promotions, engine, logger.WithField("component", "preorder"))
	guard := idempotency.NewGuard(deps.idempotencyRepo, cfg.IdempotencyTTL, logger.WithField("component", "idempotency-guard"))

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	healthHandler.RegisterChecker("storage", deps.storageChecker)
	if redisCache != nil {
		healthHandler.RegisterChecker("redis", healthcheck.NewSimpleChecker("redis", redisCache.Ping))
	}
	healthHandler.RegisterChecker("outbox", newOutboxBacklogChecker(deps.outboxRepo, cfg.OutboxMaxPending))

	grpcServer, healthServer := newGRPCServer(sales, guard, logger)
	grpcLis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return err
	}
	httpLis, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		_ = grpcLis.Close()
		return err
	}
	apiSrv := &http.Server{
		Handler: httpapi.NewHandler(httpapi.Config{
			Sales:     sales,
			Catalog:   catalogSvc,
			Preorders: preorderSvc,
			Guard:     guard,
			Metrics:   metrics.NewHTTPMetrics(),
			Logger:    logger.WithField("layer", "http"),
			Location:  loc,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	metricsSrv := startMetricsServer(gctx, cfg.MetricsAddr, logger, healthHandler)

	if publisher, dlq := broker.outboxPublishers(cfg.AllowMockIntegrations); publisher != nil {
		worker := outbox.NewWorker(deps.outboxRepo, publisher, outbox.Config{
			PollInterval:   cfg.OutboxPollInterval,
			BatchSize:      cfg.OutboxBatchSize,
			MaxAttempts:    cfg.OutboxMaxAttempts,
			RetryBaseDelay: cfg.OutboxRetryDelay,
			DLQ:            dlq,
			Logger:         logger.WithField("component", "outbox-worker"),
		})
		g.Go(func() error { return worker.Run(gctx) })
	} else {
		logger.Warn("outbox worker is disabled: kafka is not configured and mock integrations are not allowed")
	}

	sweeper := idempotency.NewSweeper(deps.idempotencyRepo, idempotency.SweeperConfig{
		Interval:  cfg.IdempotencyCleanupInterval,
		BatchSize: cfg.IdempotencyCleanupBatchSize,
		Logger:    logger.WithField("component", "idempotency-sweeper"),
	})
	g.Go(func() error { return sweeper.Run(gctx) })

	broker.startPaymentConsumer(gctx, cfg.KafkaConsumerGroup, sales)

	g.Go(func() error {
		logger.Infof("gRPC server listening on %s", grpcLis.Addr())
		return grpcServer.Serve(grpcLis)
	})
	g.Go(func() error {
		logger.Infof("REST API listening on %s", httpLis.Addr())
		if err := apiSrv.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown requested, stopping servers")
		healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
		stopGRPC(grpcServer, logger)
		shutdownHTTP(apiSrv, logger)
		shutdownHTTP(metricsSrv, logger)
		return nil
	})

	err = g.Wait()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, grpc.ErrServerStopped) {
		return nil
	}
	return err
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return loc, nil
}

// initPromotionCache подключает Redis-кеш акций. Недоступный Redis не мешает старту.
func initPromotionCache(ctx context.Context, cfg Config, logger *log.Entry) *cache.RedisPromotionCache {
	if cfg.RedisAddr == "" {
		return nil
	}
	redisCache := cache.NewRedisPromotionCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := redisCache.Ping(pingCtx); err != nil {
		logger.WithError(err).WithField("addr", cfg.RedisAddr).Warn("redis is not reachable, promotion cache will retry on demand")
	} else {
		logger.WithField("addr", cfg.RedisAddr).Info("promotion cache connected")
	}
	return redisCache
}

func newOutboxBacklogChecker(repo domain.OutboxRepository, maxPending int) healthcheck.Checker {
	return healthcheck.NewThresholdChecker("outbox", maxPending, func(ctx context.Context) (int, error) {
		stats, err := repo.Stats(ctx)
		if err != nil {
			return 0, err
		}
		return stats.PendingCount, nil
	})
}

// newGRPCServer регистрирует SaleService, health, reflection и prometheus-интерцепторы.
func newGRPCServer(sales grpcsvc.Sales, guard *idempotency.Guard, logger *log.Entry) (*grpc.Server, *health.Server) {
	grpcMetrics := promgrpc.NewServerMetrics()
	if err := prometheus.Register(grpcMetrics); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*promgrpc.ServerMetrics); ok {
				grpcMetrics = existing
			}
		} else {
			logger.WithError(err).Warn("failed to register grpc metrics")
		}
	}

	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(grpcMetrics.UnaryServerInterceptor()))
	posv1.RegisterSaleServiceServer(grpcServer, grpcsvc.NewSaleService(sales, guard, logger.WithField("layer", "grpc")))
	grpcMetrics.InitializeMetrics(grpcServer)
	reflection.Register(grpcServer)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	return grpcServer, healthServer
}

// stopGRPC останавливает сервер gracefully, а по таймауту принудительно.
func stopGRPC(srv *grpc.Server, logger *log.Entry) {
	stopped := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(shutdownTimeout):
		logger.Warn("graceful stop timed out, forcing grpc shutdown")
		srv.Stop()
	}
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus и health-проверок.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Infof("metrics available at %s/metrics", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
