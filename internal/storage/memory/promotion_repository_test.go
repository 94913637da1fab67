package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/pos/internal/domain"
	"github.com/vladislavdragonenkov/pos/internal/storage/memory"
)

func TestPromotionRepository_FindActiveOrdering(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewPromotionRepository(
		domain.Promotion{ID: "b", Active: true, Priority: 2},
		domain.Promotion{ID: "a", Active: true, Priority: 1},
		domain.Promotion{ID: "off", Active: false, Priority: 0},
	)

	active, err := repo.FindActive(ctx)
	if err != nil {
		t.Fatalf("FindActive failed: %v", err)
	}
	if len(active) != 2 || active[0].ID != "a" || active[1].ID != "b" {
		t.Fatalf("unexpected order: %+v", active)
	}
}

func TestPromotionRepository_SaveAndFind(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewPromotionRepository()

	promo := domain.Promotion{ID: "p", Name: "2 por R$ 10", TargetProductIDs: []string{"x"}}
	if err := repo.Save(ctx, promo); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	promo.TargetProductIDs[0] = "mutated"

	got, err := repo.FindByID(ctx, "p")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if got.TargetProductIDs[0] != "x" {
		t.Fatal("repository must keep its own copy of targets")
	}
	if _, err := repo.FindByID(ctx, "missing"); !errors.Is(err, domain.ErrPromotionNotFound) {
		t.Fatalf("expected ErrPromotionNotFound, got %v", err)
	}
}
