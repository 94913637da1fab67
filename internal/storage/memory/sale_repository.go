package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

// saleRepositoryInMemory — in-memory реализация SaleRepository.
type saleRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Sale
}

// NewSaleRepository возвращает in-memory репозиторий продаж для локальной разработки и тестов.
func NewSaleRepository() domain.SaleRepository {
	return &saleRepositoryInMemory{items: make(map[string]domain.Sale)}
}

// Create сохраняет продажу целиком, если ID ещё не занят.
func (r *saleRepositoryInMemory) Create(_ context.Context, sale domain.Sale) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[sale.ID]; exists {
		return domain.ErrSaleAlreadyExists
	}
	r.items[sale.ID] = cloneSale(sale)
	return nil
}

func (r *saleRepositoryInMemory) FindByID(_ context.Context, id string) (domain.Sale, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sale, ok := r.items[id]
	if !ok {
		return domain.Sale{}, domain.ErrSaleNotFound
	}
	return cloneSale(sale), nil
}

// Save перезаписывает продажу, проверяя версию (optimistic locking).
func (r *saleRepositoryInMemory) Save(_ context.Context, sale domain.Sale) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[sale.ID]
	if !ok {
		return domain.ErrSaleNotFound
	}
	if current.Version != sale.Version {
		return domain.ErrSaleVersionConflict
	}
	sale.Version++
	r.items[sale.ID] = cloneSale(sale)
	return nil
}

func (r *saleRepositoryInMemory) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return domain.ErrSaleNotFound
	}
	delete(r.items, id)
	return nil
}

// List возвращает продажи, новые первыми, ограничивая выборку limit (если >0).
func (r *saleRepositoryInMemory) List(_ context.Context, limit int) ([]domain.Sale, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Sale, 0, len(r.items))
	for _, sale := range r.items {
		result = append(result, cloneSale(sale))
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func cloneSale(src domain.Sale) domain.Sale {
	dst := src
	dst.Lines = append([]domain.SaleLine(nil), src.Lines...)
	return dst
}

var _ domain.SaleRepository = (*saleRepositoryInMemory)(nil)
