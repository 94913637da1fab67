package memory_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/vladislavdragonenkov/pos/internal/domain"
	"github.com/vladislavdragonenkov/pos/internal/storage/memory"
)

func seedProducts() []domain.Product {
	return []domain.Product{
		{ID: "p1", Name: "Cookie", SalePrice: 590, StockQuantity: 10, Active: true},
		{ID: "p2", Name: "Brownie", SalePrice: 650, StockQuantity: 2, Active: true},
		{ID: "p3", Name: "Antigo", SalePrice: 100, StockQuantity: 0, Active: false},
	}
}

func TestProductRepository_FindByIDs(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewProductRepository(seedProducts()...)

	got, err := repo.FindByIDs(ctx, []string{"p2", "missing", "p1", "p2"})
	if err != nil {
		t.Fatalf("FindByIDs failed: %v", err)
	}
	if len(got) != 2 || got[0].ID != "p2" || got[1].ID != "p1" {
		t.Fatalf("expected [p2 p1], got %+v", got)
	}

	if _, err := repo.FindByID(ctx, "missing"); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestProductRepository_List(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewProductRepository(seedProducts()...)

	all, _ := repo.List(ctx, false)
	if len(all) != 3 || all[0].Name != "Antigo" {
		t.Fatalf("expected 3 products sorted by name, got %+v", all)
	}
	active, _ := repo.List(ctx, true)
	if len(active) != 2 {
		t.Fatalf("expected 2 active products, got %d", len(active))
	}
}

func TestProductRepository_DecrementStock(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewProductRepository(seedProducts()...)

	if err := repo.DecrementStock(ctx, "p2", 2); err != nil {
		t.Fatalf("decrement failed: %v", err)
	}
	err := repo.DecrementStock(ctx, "p2", 1)
	var stockErr *domain.InsufficientStockError
	if !errors.As(err, &stockErr) || stockErr.Available != 0 {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if err := repo.DecrementStock(ctx, "missing", 1); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}

	if err := repo.IncrementStock(ctx, "p2", 3); err != nil {
		t.Fatalf("increment failed: %v", err)
	}
	p, _ := repo.FindByID(ctx, "p2")
	if p.StockQuantity != 3 {
		t.Fatalf("expected stock 3, got %d", p.StockQuantity)
	}
}

func TestProductRepository_DecrementStockIsAtomic(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewProductRepository(domain.Product{ID: "p1", Name: "Cookie", StockQuantity: 10})

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := repo.DecrementStock(ctx, "p1", 1); err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	p, _ := repo.FindByID(ctx, "p1")
	if success != 10 || p.StockQuantity != 0 {
		t.Fatalf("expected exactly 10 successful decrements and zero stock, got %d and %d", success, p.StockQuantity)
	}
}

func TestProductRepository_SaveKeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewProductRepository()

	if err := repo.Save(ctx, domain.Product{ID: "p1", Name: "Cookie"}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	first, _ := repo.FindByID(ctx, "p1")
	if first.CreatedAt.IsZero() {
		t.Fatal("expected CreatedAt to be set")
	}

	first.Name = "Cookie Tradicional"
	if err := repo.Save(ctx, first); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	second, _ := repo.FindByID(ctx, "p1")
	if second.Name != "Cookie Tradicional" || !second.CreatedAt.Equal(first.CreatedAt) || second.Version != first.Version+1 {
		t.Fatalf("unexpected product after update: %+v", second)
	}
}

func TestProductRepository_SaveRejectsStaleVersion(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewProductRepository(domain.Product{ID: "p1", Name: "Cookie", SalePrice: 590, StockQuantity: 10})

	stale, _ := repo.FindByID(ctx, "p1")
	if err := repo.DecrementStock(ctx, "p1", 3); err != nil {
		t.Fatalf("decrement failed: %v", err)
	}

	stale.SalePrice = 600
	if err := repo.Save(ctx, stale); !errors.Is(err, domain.ErrProductVersionConflict) {
		t.Fatalf("expected ErrProductVersionConflict, got %v", err)
	}
	p, _ := repo.FindByID(ctx, "p1")
	if p.StockQuantity != 7 || p.SalePrice != 590 {
		t.Fatalf("stale save must not change the product, got %+v", p)
	}
}
