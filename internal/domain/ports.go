package domain

import (
	"context"
	"time"
)

// ProductRepository описывает хранилище каталога.
type ProductRepository interface {
	// FindByID возвращает товар или ErrProductNotFound.
	FindByID(ctx context.Context, id string) (Product, error)
	// FindByIDs возвращает найденные товары; отсутствующие ID просто пропускаются.
	FindByIDs(ctx context.Context, ids []string) ([]Product, error)
	// List возвращает товары, отсортированные по названию.
	List(ctx context.Context, activeOnly bool) ([]Product, error)
	// Save создаёт товар или обновляет его, если сохранённая версия равна product.Version.
	// Иначе возвращает ErrProductVersionConflict и ничего не меняет.
	Save(ctx context.Context, product Product) error
	// DecrementStock атомарно списывает qty единиц, только если остатка хватает.
	// При нехватке возвращает *InsufficientStockError и ничего не меняет.
	DecrementStock(ctx context.Context, id string, qty int) error
	// IncrementStock возвращает qty единиц на склад.
	IncrementStock(ctx context.Context, id string, qty int) error
}

// PromotionRepository описывает хранилище акций.
type PromotionRepository interface {
	// FindActive возвращает активные акции в порядке (priority, created_at).
	FindActive(ctx context.Context) ([]Promotion, error)
	FindByID(ctx context.Context, id string) (Promotion, error)
	Save(ctx context.Context, promotion Promotion) error
}

// SaleRepository описывает хранилище продаж.
type SaleRepository interface {
	// Create атомарно сохраняет шапку продажи и все позиции.
	Create(ctx context.Context, sale Sale) error
	// FindByID возвращает продажу или ErrSaleNotFound.
	FindByID(ctx context.Context, id string) (Sale, error)
	// Save обновляет статус с учётом optimistic locking.
	Save(ctx context.Context, sale Sale) error
	// Delete удаляет продажу вместе с позициями (используется компенсацией).
	Delete(ctx context.Context, id string) error
	// List возвращает последние продажи, новые первыми.
	List(ctx context.Context, limit int) ([]Sale, error)
}

// PreorderRepository описывает хранилище предзаказов.
type PreorderRepository interface {
	Create(ctx context.Context, preorder Preorder) error
	FindByID(ctx context.Context, id string) (Preorder, error)
	// List возвращает предзаказы по дате доставки; пустой status означает все статусы.
	List(ctx context.Context, status PreorderStatus, limit int) ([]Preorder, error)
	// Save обновляет статус с учётом optimistic locking.
	Save(ctx context.Context, preorder Preorder) error
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(ctx context.Context, msg OutboxMessage) (OutboxMessage, error)
	PullPending(ctx context.Context, limit int) ([]OutboxMessage, error)
	Stats(ctx context.Context) (OutboxStats, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string) error
}

// TimelineRepository хранит события жизненного цикла продажи.
type TimelineRepository interface {
	Append(ctx context.Context, event TimelineEvent) error
	List(ctx context.Context, saleID string) ([]TimelineEvent, error)
}

// IdempotencyRepository хранит состояние обработки запросов по idempotency-key.
type IdempotencyRepository interface {
	CreateProcessing(ctx context.Context, key, requestHash string, ttlAt time.Time) (IdempotencyRecord, error)
	Get(ctx context.Context, key string) (IdempotencyRecord, error)
	MarkDone(ctx context.Context, key string, responseBody []byte, httpStatus int) error
	MarkFailed(ctx context.Context, key string, responseBody []byte, httpStatus int) error
	DeleteExpired(ctx context.Context, before time.Time, limit int) (int, error)
}

// CheckoutStep задаёт константы шагов оформления продажи для метрик/логов.
type CheckoutStep string

const (
	CheckoutStepResolve    CheckoutStep = "resolve"
	CheckoutStepPreflight  CheckoutStep = "preflight"
	CheckoutStepPrice      CheckoutStep = "price"
	CheckoutStepPersist    CheckoutStep = "persist"
	CheckoutStepCommit     CheckoutStep = "commit"
	CheckoutStepCompensate CheckoutStep = "compensate"
)

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
