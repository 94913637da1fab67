package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

type preorderRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Preorder
}

// NewPreorderRepository возвращает in-memory репозиторий предзаказов.
func NewPreorderRepository() domain.PreorderRepository {
	return &preorderRepositoryInMemory{items: make(map[string]domain.Preorder)}
}

func (r *preorderRepositoryInMemory) Create(_ context.Context, preorder domain.Preorder) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[preorder.ID]; exists {
		return domain.ErrPreorderVersionConflict
	}
	r.items[preorder.ID] = clonePreorder(preorder)
	return nil
}

func (r *preorderRepositoryInMemory) FindByID(_ context.Context, id string) (domain.Preorder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.items[id]
	if !ok {
		return domain.Preorder{}, domain.ErrPreorderNotFound
	}
	return clonePreorder(p), nil
}

// List сортирует по ближайшей дате доставки.
func (r *preorderRepositoryInMemory) List(_ context.Context, status domain.PreorderStatus, limit int) ([]domain.Preorder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Preorder, 0, len(r.items))
	for _, p := range r.items {
		if status != "" && p.Status != status {
			continue
		}
		result = append(result, clonePreorder(p))
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].DeliveryDate.Equal(result[j].DeliveryDate) {
			return result[i].DeliveryDate.Before(result[j].DeliveryDate)
		}
		return result[i].ID < result[j].ID
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *preorderRepositoryInMemory) Save(_ context.Context, preorder domain.Preorder) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[preorder.ID]
	if !ok {
		return domain.ErrPreorderNotFound
	}
	if current.Version != preorder.Version {
		return domain.ErrPreorderVersionConflict
	}
	preorder.Version++
	r.items[preorder.ID] = clonePreorder(preorder)
	return nil
}

func clonePreorder(src domain.Preorder) domain.Preorder {
	dst := src
	dst.Items = append([]domain.PreorderItem(nil), src.Items...)
	return dst
}

var _ domain.PreorderRepository = (*preorderRepositoryInMemory)(nil)
