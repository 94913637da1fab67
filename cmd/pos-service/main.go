package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pos/internal/app"
)

const (
	envGRPCAddr                    = "POS_GRPC_ADDR"
	envHTTPAddr                    = "POS_HTTP_ADDR"
	envMetricsAddr                 = "POS_METRICS_ADDR"
	envStorageDriver               = "POS_STORAGE_DRIVER"
	envPostgresDSN                 = "POS_POSTGRES_DSN"
	envPostgresAutoMigrate         = "POS_POSTGRES_AUTO_MIGRATE"
	envPostgresMaxConns            = "POS_POSTGRES_MAX_CONNS"
	envRedisAddr                   = "POS_REDIS_ADDR"
	envRedisPassword               = "POS_REDIS_PASSWORD"
	envRedisDB                     = "POS_REDIS_DB"
	envPromotionCacheTTL           = "POS_PROMOTION_CACHE_TTL"
	envKafkaBrokers                = "KAFKA_BROKERS"
	envKafkaConsumerGroup          = "POS_KAFKA_CONSUMER_GROUP"
	envAllowMockIntegrations       = "POS_ALLOW_MOCK_INTEGRATIONS"
	envOutboxPollInterval          = "POS_OUTBOX_POLL_INTERVAL"
	envOutboxBatchSize             = "POS_OUTBOX_BATCH_SIZE"
	envOutboxMaxAttempts           = "POS_OUTBOX_MAX_ATTEMPTS"
	envOutboxRetryDelay            = "POS_OUTBOX_RETRY_DELAY"
	envOutboxMaxPending            = "POS_OUTBOX_MAX_PENDING"
	envIdempotencyTTL              = "POS_IDEMPOTENCY_TTL"
	envIdempotencyCleanupInterval  = "POS_IDEMPOTENCY_CLEANUP_INTERVAL"
	envIdempotencyCleanupBatchSize = "POS_IDEMPOTENCY_CLEANUP_BATCH_SIZE"
	envCommitTimeout               = "POS_COMMIT_TIMEOUT"
	envTimezone                    = "POS_TIMEZONE"
	envSeedDemoCatalog             = "POS_SEED_DEMO_CATALOG"
	envLogLevel                    = "POS_LOG_LEVEL"
	envLogFormat                   = "POS_LOG_FORMAT"
)

// envLookup совпадает по сигнатуре с os.LookupEnv и подменяется в тестах.
type envLookup func(key string) (string, bool)

func positiveInt(v int) bool                { return v > 0 }
func nonNegativeInt(v int) bool             { return v >= 0 }
func positiveDuration(v time.Duration) bool { return v > 0 }
func nonNegativeDuration(v time.Duration) bool {
	return v >= 0
}

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger(lookup envLookup) []string {
	var warnings []string

	if format, ok := lookup(envLogFormat); ok && strings.EqualFold(strings.TrimSpace(format), "json") {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	log.SetLevel(log.InfoLevel)
	if raw, ok := lookup(envLogLevel); ok && strings.TrimSpace(raw) != "" {
		level, err := log.ParseLevel(strings.TrimSpace(raw))
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", envLogLevel, err))
		} else {
			log.SetLevel(level)
		}
	}
	return warnings
}

// readConfigFromEnv применяет переопределения из окружения поверх DefaultConfig.
// Некорректные значения не роняют запуск: остаётся значение по умолчанию, а причина
// возвращается в списке предупреждений.
func readConfigFromEnv(lookup envLookup) (app.Config, []string) {
	cfg := app.DefaultConfig()
	var warnings []string

	warn := func(key string, err error) {
		warnings = append(warnings, fmt.Sprintf("%s: %v", key, err))
	}
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	boolean := func(key string, dst *bool) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		parsed, err := parseBool(v)
		if err != nil {
			warn(key, err)
			return
		}
		*dst = parsed
	}
	integer := func(key string, dst *int, valid func(int) bool, rule string) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		parsed, err := parseInt(v, valid, rule)
		if err != nil {
			warn(key, err)
			return
		}
		*dst = parsed
	}
	duration := func(key string, dst *time.Duration, valid func(time.Duration) bool, rule string) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		parsed, err := parseDuration(v, valid, rule)
		if err != nil {
			warn(key, err)
			return
		}
		*dst = parsed
	}

	str(envGRPCAddr, &cfg.GRPCAddr)
	str(envHTTPAddr, &cfg.HTTPAddr)
	str(envMetricsAddr, &cfg.MetricsAddr)

	if v, ok := lookup(envStorageDriver); ok && strings.TrimSpace(v) != "" {
		cfg.StorageDriver = strings.ToLower(strings.TrimSpace(v))
	}
	str(envPostgresDSN, &cfg.PostgresDSN)
	boolean(envPostgresAutoMigrate, &cfg.PostgresAutoMigrate)
	integer(envPostgresMaxConns, &cfg.PostgresMaxConns, positiveInt, "must be > 0")

	str(envRedisAddr, &cfg.RedisAddr)
	if v, ok := lookup(envRedisPassword); ok {
		cfg.RedisPassword = v
	}
	integer(envRedisDB, &cfg.RedisDB, nonNegativeInt, "must be >= 0")
	duration(envPromotionCacheTTL, &cfg.PromotionCacheTTL, positiveDuration, "must be > 0")

	str(envKafkaBrokers, &cfg.KafkaBrokers)
	str(envKafkaConsumerGroup, &cfg.KafkaConsumerGroup)
	boolean(envAllowMockIntegrations, &cfg.AllowMockIntegrations)

	duration(envOutboxPollInterval, &cfg.OutboxPollInterval, positiveDuration, "must be > 0")
	integer(envOutboxBatchSize, &cfg.OutboxBatchSize, positiveInt, "must be > 0")
	integer(envOutboxMaxAttempts, &cfg.OutboxMaxAttempts, positiveInt, "must be > 0")
	duration(envOutboxRetryDelay, &cfg.OutboxRetryDelay, nonNegativeDuration, "must be >= 0")
	integer(envOutboxMaxPending, &cfg.OutboxMaxPending, nonNegativeInt, "must be >= 0")

	duration(envIdempotencyTTL, &cfg.IdempotencyTTL, positiveDuration, "must be > 0")
	duration(envIdempotencyCleanupInterval, &cfg.IdempotencyCleanupInterval, positiveDuration, "must be > 0")
	integer(envIdempotencyCleanupBatchSize, &cfg.IdempotencyCleanupBatchSize, positiveInt, "must be > 0")

	duration(envCommitTimeout, &cfg.CommitTimeout, positiveDuration, "must be > 0")
	str(envTimezone, &cfg.Timezone)
	boolean(envSeedDemoCatalog, &cfg.SeedDemoCatalog)

	return cfg, warnings
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "y", "on":
		return true, nil
	case "0", "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid bool value %q", raw)
	}
}

func parseInt(raw string, valid func(int) bool, rule string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid int value %q: %w", raw, err)
	}
	if valid != nil && !valid(value) {
		return 0, fmt.Errorf("invalid int value %d: %s", value, rule)
	}
	return value, nil
}

func parseDuration(raw string, valid func(time.Duration) bool, rule string) (time.Duration, error) {
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid duration value %q: %w", raw, err)
	}
	if valid != nil && !valid(value) {
		return 0, fmt.Errorf("invalid duration value %s: %s", value, rule)
	}
	return value, nil
}

func main() {
	logWarnings := setupLogger(os.LookupEnv)
	cfg, warnings := readConfigFromEnv(os.LookupEnv)
	for _, w := range append(logWarnings, warnings...) {
		log.Warnf("invalid environment value, using default (%s)", w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"grpc_addr":    cfg.GRPCAddr,
		"http_addr":    cfg.HTTPAddr,
		"metrics_addr": cfg.MetricsAddr,
		"storage":      cfg.StorageDriver,
	}).Info("запускаем кассовый сервис")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("кассовый сервис остановлен")
}
