package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

func TestTimelineRepository_PostgresAppendAndList(t *testing.T) {
	store := newIntegrationStore(t)
	timelineRepo := NewTimelineRepository(store)
	ctx := context.Background()

	occurred := time.Now().UTC().Round(time.Microsecond)
	require.NoError(t, timelineRepo.Append(ctx, domain.TimelineEvent{
		SaleID:   "sale-timeline",
		Type:     domain.TimelineSaleCreated,
		Occurred: occurred,
	}))
	require.NoError(t, timelineRepo.Append(ctx, domain.TimelineEvent{
		SaleID:   "sale-timeline",
		Type:     domain.TimelineStockCommitted,
		Reason:   "2 entries",
		Occurred: occurred.Add(time.Millisecond),
	}))
	// Нулевое время заполняется репозиторием.
	require.NoError(t, timelineRepo.Append(ctx, domain.TimelineEvent{
		SaleID: "sale-timeline",
		Type:   domain.TimelineSalePaid,
	}))

	events, err := timelineRepo.List(ctx, "sale-timeline")
	require.NoError(t, err)
	require.Len(t, events, 3)
	require.Equal(t, domain.TimelineSaleCreated, events[0].Type)
	require.Equal(t, "2 entries", events[1].Reason)
	require.False(t, events[2].Occurred.IsZero())
}

func TestTimelineRepository_PostgresSurvivesSaleDeletion(t *testing.T) {
	store := newIntegrationStore(t)
	sales := NewSaleRepository(store)
	timelineRepo := NewTimelineRepository(store)
	ctx := context.Background()

	sale := sampleSale("sale-compensated", time.Now().UTC())
	require.NoError(t, sales.Create(ctx, sale))
	require.NoError(t, timelineRepo.Append(ctx, domain.TimelineEvent{SaleID: sale.ID, Type: domain.TimelineStockCommitFailed}))
	require.NoError(t, sales.Delete(ctx, sale.ID))
	require.NoError(t, timelineRepo.Append(ctx, domain.TimelineEvent{SaleID: sale.ID, Type: domain.TimelineSaleDeleted}))

	events, err := timelineRepo.List(ctx, sale.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)

	empty, err := timelineRepo.List(ctx, "missing-sale")
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestTimelineRepository_PostgresRejectsMissingSaleID(t *testing.T) {
	store := newIntegrationStore(t)
	err := NewTimelineRepository(store).Append(context.Background(), domain.TimelineEvent{SaleID: "  ", Type: domain.TimelineSaleCreated})
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}
