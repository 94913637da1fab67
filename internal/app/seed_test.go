package app

import (
	"context"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/pos/internal/domain"
	"github.com/vladislavdragonenkov/pos/internal/storage/memory"
)

func TestSeedDemoCatalog(t *testing.T) {
	ctx := context.Background()
	products := memory.NewProductRepository()
	promotions := memory.NewPromotionRepository()
	logger := log.WithField("test", "seed")

	seeded, err := seedDemoCatalog(ctx, products, promotions, logger)
	require.NoError(t, err)
	require.Equal(t, len(demoCatalog(time.Now().UTC())), seeded)

	all, err := products.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, all, seeded)
	for _, p := range all {
		require.NoError(t, p.Validate())
	}

	active, err := promotions.FindActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, domain.PromotionPercentageDiscount, active[0].Kind)

	again, err := seedDemoCatalog(ctx, products, promotions, logger)
	require.NoError(t, err)
	require.Zero(t, again)
}

func TestSeedDemoCatalogHasTierPrices(t *testing.T) {
	prices := map[domain.Money]int{}
	for _, p := range demoCatalog(time.Now().UTC()) {
		prices[p.SalePrice]++
	}
	require.Positive(t, prices[590])
	require.Positive(t, prices[650])
}
