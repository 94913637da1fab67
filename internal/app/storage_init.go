package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pos/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/pos/internal/health"
	"github.com/vladislavdragonenkov/pos/internal/storage/memory"
	"github.com/vladislavdragonenkov/pos/internal/storage/postgres"
)

// runtimeDependencies — репозитории выбранного хранилища.
type runtimeDependencies struct {
	products        domain.ProductRepository
	promotions      domain.PromotionRepository
	sales           domain.SaleRepository
	preorders       domain.PreorderRepository
	outboxRepo      domain.OutboxRepository
	timelineRepo    domain.TimelineRepository
	idempotencyRepo domain.IdempotencyRepository

	storageChecker healthcheck.Checker
	closeFn        func() error
}

func (d *runtimeDependencies) close(logger *log.Entry) {
	if d == nil || d.closeFn == nil {
		return
	}
	if err := d.closeFn(); err != nil {
		logger.WithError(err).Warn("failed to close storage")
	}
}

// initRuntimeDependencies создаёт репозитории для cfg.StorageDriver.
func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.StorageDriver))
	if driver == "" {
		driver = StorageDriverMemory
	}

	switch driver {
	case StorageDriverMemory:
		logger.Info("using in-memory storage")
		return &runtimeDependencies{
			products:        memory.NewProductRepository(),
			promotions:      memory.NewPromotionRepository(),
			sales:           memory.NewSaleRepository(),
			preorders:       memory.NewPreorderRepository(),
			outboxRepo:      memory.NewOutboxRepository(),
			timelineRepo:    memory.NewTimelineRepository(),
			idempotencyRepo: memory.NewIdempotencyRepository(),
		}, nil
	case StorageDriverPostgres:
		return initPostgresDependencies(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

func initPostgresDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	dsn := strings.TrimSpace(cfg.PostgresDSN)
	if dsn == "" {
		return nil, fmt.Errorf("postgres storage requires POS_POSTGRES_DSN")
	}

	store, err := postgres.OpenWithPool(ctx, dsn, postgres.PoolConfig{MaxOpenConns: cfg.PostgresMaxConns})
	if err != nil {
		return nil, err
	}
	registerPoolCollector(store, logger)
	if cfg.PostgresAutoMigrate {
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("apply postgres migrations: %w", err)
		}
		logger.Info("postgres migrations applied")
	}

	logger.Info("using postgres storage")
	return &runtimeDependencies{
		products:        postgres.NewProductRepository(store),
		promotions:      postgres.NewPromotionRepository(store),
		sales:           postgres.NewSaleRepository(store),
		preorders:       postgres.NewPreorderRepository(store),
		outboxRepo:      postgres.NewOutboxRepository(store),
		timelineRepo:    postgres.NewTimelineRepository(store),
		idempotencyRepo: postgres.NewIdempotencyRepository(store),
		storageChecker:  healthcheck.NewSimpleChecker("postgres", store.Ping),
		closeFn:         store.Close,
	}, nil
}

// registerPoolCollector публикует статистику пула как go_sql_* с меткой db_name="pos".
// Повторный запуск в одном процессе (тесты) оставляет первый коллектор.
func registerPoolCollector(store *postgres.Store, logger *log.Entry) {
	registerCollector(collectors.NewDBStatsCollector(store.DB(), "pos"), "postgres pool", logger)
}

func registerCollector(c prometheus.Collector, what string, logger *log.Entry) {
	err := prometheus.Register(c)
	var are prometheus.AlreadyRegisteredError
	if err != nil && !errors.As(err, &are) {
		logger.WithError(err).WithField("collector", what).Warn("failed to register metrics collector")
	}
}
