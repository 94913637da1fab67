package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/pos/internal/domain"
	"github.com/vladislavdragonenkov/pos/internal/storage/memory"
)

func TestTimelineRepository_OrderAndIsolation(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewTimelineRepository()
	base := time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)

	appends := []domain.TimelineEvent{
		{SaleID: "s1", Type: domain.TimelineSaleDeleted, Occurred: base.Add(2 * time.Second)},
		{SaleID: "s1", Type: domain.TimelineSaleCreated, Occurred: base},
		{SaleID: "s1", Type: domain.TimelineStockCommitFailed, Occurred: base.Add(time.Second)},
		{SaleID: "s1", Type: domain.TimelineStockRestored, Occurred: base.Add(time.Second)},
		{SaleID: "s2", Type: domain.TimelineSaleCreated, Occurred: base},
	}
	for _, ev := range appends {
		require.NoError(t, repo.Append(ctx, ev))
	}

	events, err := repo.List(ctx, "s1")
	require.NoError(t, err)

	var types []string
	for _, ev := range events {
		types = append(types, ev.Type)
	}
	require.Equal(t, []string{
		domain.TimelineSaleCreated,
		domain.TimelineStockCommitFailed,
		domain.TimelineStockRestored,
		domain.TimelineSaleDeleted,
	}, types, "equal timestamps keep append order")

	events[0].Type = "mutated"
	again, err := repo.List(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, domain.TimelineSaleCreated, again[0].Type)

	unknown, err := repo.List(ctx, "missing")
	require.NoError(t, err)
	require.NotNil(t, unknown)
	require.Empty(t, unknown)
}

func TestTimelineRepository_AppendValidation(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewTimelineRepository()

	require.ErrorIs(t, repo.Append(ctx, domain.TimelineEvent{Type: domain.TimelineSaleCreated}), domain.ErrInvalidArgument)

	require.NoError(t, repo.Append(ctx, domain.TimelineEvent{SaleID: "s1", Type: domain.TimelineSaleCreated}))
	events, err := repo.List(ctx, "s1")
	require.NoError(t, err)
	require.WithinDuration(t, time.Now(), events[0].Occurred, time.Minute)
}
