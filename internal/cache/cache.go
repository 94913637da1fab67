// Package cache кеширует список активных акций, который читается при каждой тарификации.
package cache

import (
	"context"
	"time"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

// PromotionCache хранит снимок активных акций.
type PromotionCache interface {
	// Get возвращает снимок; ok=false означает промах.
	Get(ctx context.Context) ([]domain.Promotion, bool, error)
	Set(ctx context.Context, promotions []domain.Promotion, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

// NoopPromotionCache — кеш, который ничего не хранит (Redis не настроен).
type NoopPromotionCache struct{}

func (NoopPromotionCache) Get(context.Context) ([]domain.Promotion, bool, error) {
	return nil, false, nil
}

func (NoopPromotionCache) Set(context.Context, []domain.Promotion, time.Duration) error {
	return nil
}

func (NoopPromotionCache) Invalidate(context.Context) error {
	return nil
}
