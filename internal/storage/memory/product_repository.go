package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

// productRepositoryInMemory — in-memory каталог. Проверка остатка и списание
// выполняются под одной блокировкой, поэтому DecrementStock атомарен.
type productRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Product
}

// NewProductRepository возвращает in-memory репозиторий товаров.
func NewProductRepository(seed ...domain.Product) domain.ProductRepository {
	repo := &productRepositoryInMemory{items: make(map[string]domain.Product, len(seed))}
	for _, p := range seed {
		repo.items[p.ID] = p
	}
	return repo
}

func (r *productRepositoryInMemory) FindByID(_ context.Context, id string) (domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.items[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return p, nil
}

func (r *productRepositoryInMemory) FindByIDs(_ context.Context, ids []string) ([]domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{}, len(ids))
	result := make([]domain.Product, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if p, ok := r.items[id]; ok {
			result = append(result, p)
		}
	}
	return result, nil
}

func (r *productRepositoryInMemory) List(_ context.Context, activeOnly bool) ([]domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Product, 0, len(r.items))
	for _, p := range r.items {
		if activeOnly && !p.Active {
			continue
		}
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (r *productRepositoryInMemory) Save(_ context.Context, product domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	if current, ok := r.items[product.ID]; ok {
		if current.Version != product.Version {
			return domain.ErrProductVersionConflict
		}
		product.CreatedAt = current.CreatedAt
		product.Version = current.Version + 1
	} else if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now
	r.items[product.ID] = product
	return nil
}

func (r *productRepositoryInMemory) DecrementStock(_ context.Context, id string, qty int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.items[id]
	if !ok {
		return domain.ErrProductNotFound
	}
	if err := p.DecrementStock(qty); err != nil {
		return err
	}
	p.Version++
	r.items[id] = p
	return nil
}

func (r *productRepositoryInMemory) IncrementStock(_ context.Context, id string, qty int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.items[id]
	if !ok {
		return domain.ErrProductNotFound
	}
	p.IncrementStock(qty)
	p.Version++
	r.items[id] = p
	return nil
}

var _ domain.ProductRepository = (*productRepositoryInMemory)(nil)
