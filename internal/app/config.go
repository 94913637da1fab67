package app

import "time"

const (
	// StorageDriverMemory хранит данные в памяти процесса.
	StorageDriverMemory = "memory"
	// StorageDriverPostgres использует PostgreSQL через pgx.
	StorageDriverPostgres = "postgres"
)

// Config описывает настройки запуска кассового сервиса.
// Значения по умолчанию задаёт DefaultConfig; cmd/pos-service читает переопределения из окружения.
type Config struct {
	GRPCAddr    string
	HTTPAddr    string
	MetricsAddr string

	StorageDriver       string
	PostgresDSN         string
	PostgresAutoMigrate bool
	// PostgresMaxConns ограничивает пул соединений; 0 означает значение по умолчанию драйвера хранилища.
	PostgresMaxConns int

	// RedisAddr включает кеш активных акций; пустое значение отключает кеш.
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	PromotionCacheTTL time.Duration

	// KafkaBrokers — список брокеров через запятую; пустое значение отключает Kafka.
	KafkaBrokers       string
	KafkaConsumerGroup string

	// AllowMockIntegrations разрешает без Kafka публиковать outbox-события в лог.
	AllowMockIntegrations bool

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration
	// OutboxMaxPending — порог backlog, после которого readiness-проверка outbox деградирует.
	// 0 отключает проверку.
	OutboxMaxPending int

	IdempotencyTTL              time.Duration
	IdempotencyCleanupInterval  time.Duration
	IdempotencyCleanupBatchSize int

	// CommitTimeout ограничивает списание склада и компенсацию.
	CommitTimeout time.Duration
	// Timezone — часовой пояс для дат в истории продаж (IANA).
	Timezone string
	// SeedDemoCatalog заполняет пустой каталог демонстрационными товарами.
	SeedDemoCatalog bool
}

// DefaultConfig возвращает настройки для локального запуска в памяти.
func DefaultConfig() Config {
	return Config{
		GRPCAddr:    ":50051",
		HTTPAddr:    ":8080",
		MetricsAddr: ":9090",

		StorageDriver:       StorageDriverMemory,
		PostgresAutoMigrate: true,
		PostgresMaxConns:    25,

		PromotionCacheTTL: 5 * time.Minute,

		KafkaConsumerGroup: "pos-service",

		OutboxPollInterval: time.Second,
		OutboxBatchSize:    100,
		OutboxMaxAttempts:  3,
		OutboxRetryDelay:   50 * time.Millisecond,
		OutboxMaxPending:   1000,

		IdempotencyTTL:              24 * time.Hour,
		IdempotencyCleanupInterval:  10 * time.Minute,
		IdempotencyCleanupBatchSize: 500,

		CommitTimeout: 10 * time.Second,
		Timezone:      "America/Sao_Paulo",
	}
}
