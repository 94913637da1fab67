package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

type promotionRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Promotion
}

// NewPromotionRepository возвращает in-memory репозиторий акций.
func NewPromotionRepository(seed ...domain.Promotion) domain.PromotionRepository {
	repo := &promotionRepositoryInMemory{items: make(map[string]domain.Promotion, len(seed))}
	for _, p := range seed {
		repo.items[p.ID] = clonePromotion(p)
	}
	return repo
}

// FindActive возвращает активные акции в порядке (priority, created_at, id).
func (r *promotionRepositoryInMemory) FindActive(_ context.Context) ([]domain.Promotion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Promotion, 0, len(r.items))
	for _, p := range r.items {
		if p.Active {
			result = append(result, clonePromotion(p))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return result, nil
}

func (r *promotionRepositoryInMemory) FindByID(_ context.Context, id string) (domain.Promotion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.items[id]
	if !ok {
		return domain.Promotion{}, domain.ErrPromotionNotFound
	}
	return clonePromotion(p), nil
}

func (r *promotionRepositoryInMemory) Save(_ context.Context, promotion domain.Promotion) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	if promotion.CreatedAt.IsZero() {
		promotion.CreatedAt = now
	}
	promotion.UpdatedAt = now
	r.items[promotion.ID] = clonePromotion(promotion)
	return nil
}

func clonePromotion(src domain.Promotion) domain.Promotion {
	dst := src
	dst.TargetProductIDs = append([]string(nil), src.TargetProductIDs...)
	return dst
}

var _ domain.PromotionRepository = (*promotionRepositoryInMemory)(nil)
