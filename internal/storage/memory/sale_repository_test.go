package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/pos/internal/domain"
	"github.com/vladislavdragonenkov/pos/internal/storage/memory"
)

func newSale(id string, createdAt time.Time) domain.Sale {
	return domain.NewSale(id, []domain.SaleLine{
		{ID: id + "-l1", ProductID: "p1", ProductName: "Cookie", Quantity: 2, UnitPrice: 590, TotalPaid: 1180},
	}, createdAt)
}

func TestSaleRepository_CreateFind(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewSaleRepository()
	sale := newSale("s1", time.Now().UTC())

	if err := repo.Create(ctx, sale); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := repo.Create(ctx, sale); !errors.Is(err, domain.ErrSaleAlreadyExists) {
		t.Fatalf("expected ErrSaleAlreadyExists, got %v", err)
	}

	stored, err := repo.FindByID(ctx, "s1")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if stored.Total != 1180 || len(stored.Lines) != 1 {
		t.Fatalf("unexpected sale: %+v", stored)
	}
}

func TestSaleRepository_SaveVersioning(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewSaleRepository()
	sale := newSale("s1", time.Now().UTC())
	if err := repo.Create(ctx, sale); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := sale.MarkPaid(); err != nil {
		t.Fatalf("mark paid failed: %v", err)
	}
	if err := repo.Save(ctx, sale); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := repo.Save(ctx, sale); !errors.Is(err, domain.ErrSaleVersionConflict) {
		t.Fatalf("expected version conflict, got %v", err)
	}

	stored, _ := repo.FindByID(ctx, "s1")
	if stored.Status != domain.SaleStatusPaid || stored.Version != 1 {
		t.Fatalf("unexpected stored sale: %+v", stored)
	}
}

func TestSaleRepository_DeleteAndList(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewSaleRepository()
	base := time.Now().UTC()

	for i, id := range []string{"old", "mid", "new"} {
		if err := repo.Create(ctx, newSale(id, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	list, err := repo.List(ctx, 2)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list) != 2 || list[0].ID != "new" || list[1].ID != "mid" {
		t.Fatalf("expected newest first, got %+v", list)
	}

	if err := repo.Delete(ctx, "mid"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := repo.FindByID(ctx, "mid"); !errors.Is(err, domain.ErrSaleNotFound) {
		t.Fatalf("expected ErrSaleNotFound, got %v", err)
	}
	if err := repo.Delete(ctx, "mid"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("second delete must report not found, got %v", err)
	}
}
