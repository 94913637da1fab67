package cache

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

// DefaultPromotionTTL — время жизни снимка, если TTL не задан.
const DefaultPromotionTTL = 30 * time.Second

// PromotionRepository читает активные акции через кеш. Ошибки кеша не ломают
// тарификацию: при любой ошибке запрос уходит в основное хранилище.
type PromotionRepository struct {
	next   domain.PromotionRepository
	cache  PromotionCache
	ttl    time.Duration
	logger *log.Entry
}

// NewPromotionRepository оборачивает репозиторий кешем.
func NewPromotionRepository(next domain.PromotionRepository, cache PromotionCache, ttl time.Duration, logger *log.Entry) *PromotionRepository {
	if cache == nil {
		cache = NoopPromotionCache{}
	}
	if ttl <= 0 {
		ttl = DefaultPromotionTTL
	}
	if logger == nil {
		logger = log.WithField("component", "promotion-cache")
	}
	return &PromotionRepository{next: next, cache: cache, ttl: ttl, logger: logger}
}

func (r *PromotionRepository) FindActive(ctx context.Context) ([]domain.Promotion, error) {
	cached, ok, err := r.cache.Get(ctx)
	if err != nil {
		r.logger.WithError(err).Warn("promotion cache read failed")
	} else if ok {
		return cached, nil
	}

	promotions, err := r.next.FindActive(ctx)
	if err != nil {
		return nil, err
	}
	if err := r.cache.Set(ctx, promotions, r.ttl); err != nil {
		r.logger.WithError(err).Warn("promotion cache write failed")
	}
	return promotions, nil
}

func (r *PromotionRepository) FindByID(ctx context.Context, id string) (domain.Promotion, error) {
	return r.next.FindByID(ctx, id)
}

// Save сохраняет акцию и сбрасывает снимок, чтобы изменение сразу попало в тарификацию.
func (r *PromotionRepository) Save(ctx context.Context, promotion domain.Promotion) error {
	if err := r.next.Save(ctx, promotion); err != nil {
		return err
	}
	if err := r.cache.Invalidate(ctx); err != nil {
		r.logger.WithError(err).WithField("promotion_id", promotion.ID).Warn("promotion cache invalidation failed")
	}
	return nil
}

var _ domain.PromotionRepository = (*PromotionRepository)(nil)
