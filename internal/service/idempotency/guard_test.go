package idempotency

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/pos/internal/domain"
	"github.com/vladislavdragonenkov/pos/internal/storage/memory"
)

func TestGuardRunsOnceAndReplays(t *testing.T) {
	repo := memory.NewIdempotencyRepository()
	guard := NewGuard(repo, 0, nil)
	ctx := context.Background()

	var calls atomic.Int32
	fn := func(context.Context) (Response, error) {
		calls.Add(1)
		return Response{Body: []byte(`{"vendaId":"s-1"}`), Status: http.StatusCreated}, nil
	}

	resp, replayed, err := guard.Do(ctx, "key-1", "hash-1", fn)
	require.NoError(t, err)
	require.False(t, replayed)
	require.Equal(t, http.StatusCreated, resp.Status)

	resp, replayed, err = guard.Do(ctx, "key-1", "hash-1", fn)
	require.NoError(t, err)
	require.True(t, replayed)
	require.JSONEq(t, `{"vendaId":"s-1"}`, string(resp.Body))
	require.Equal(t, int32(1), calls.Load())

	record, err := repo.Get(ctx, "key-1")
	require.NoError(t, err)
	require.Equal(t, domain.IdempotencyStatusDone, record.Status)
}

func TestGuardHashMismatch(t *testing.T) {
	guard := NewGuard(memory.NewIdempotencyRepository(), 0, nil)
	ctx := context.Background()
	ok := func(context.Context) (Response, error) { return Response{Body: []byte("{}"), Status: 201}, nil }

	_, _, err := guard.Do(ctx, "key-1", "hash-1", ok)
	require.NoError(t, err)

	_, _, err = guard.Do(ctx, "key-1", "hash-2", ok)
	require.ErrorIs(t, err, domain.ErrIdempotencyHashMismatch)
}

func TestGuardInProgress(t *testing.T) {
	repo := memory.NewIdempotencyRepository()
	guard := NewGuard(repo, 0, nil)
	ctx := context.Background()

	_, err := repo.CreateProcessing(ctx, "key-1", "hash-1", guard.now().Add(DefaultTTL))
	require.NoError(t, err)

	_, _, err = guard.Do(ctx, "key-1", "hash-1", func(context.Context) (Response, error) {
		t.Fatal("fn must not run while the key is processing")
		return Response{}, nil
	})
	require.ErrorIs(t, err, ErrRequestInProgress)
}

func TestGuardStoresFailure(t *testing.T) {
	repo := memory.NewIdempotencyRepository()
	guard := NewGuard(repo, 0, nil)
	ctx := context.Background()
	boom := errors.New("insufficient stock")

	resp, replayed, err := guard.Do(ctx, "key-1", "hash-1", func(context.Context) (Response, error) {
		return Response{Body: []byte(`{"error":"insufficient stock"}`), Status: http.StatusConflict}, boom
	})
	require.ErrorIs(t, err, boom)
	require.False(t, replayed)
	require.Equal(t, http.StatusConflict, resp.Status)

	resp, replayed, err = guard.Do(ctx, "key-1", "hash-1", func(context.Context) (Response, error) {
		t.Fatal("failed request must be replayed, not re-run")
		return Response{}, nil
	})
	require.NoError(t, err)
	require.True(t, replayed)
	require.Equal(t, http.StatusConflict, resp.Status)

	record, err := repo.Get(ctx, "key-1")
	require.NoError(t, err)
	require.Equal(t, domain.IdempotencyStatusFailed, record.Status)
}

func TestGuardWithoutKeyAlwaysRuns(t *testing.T) {
	guard := NewGuard(memory.NewIdempotencyRepository(), 0, nil)
	calls := 0
	for i := 0; i < 2; i++ {
		_, replayed, err := guard.Do(context.Background(), "  ", "hash", func(context.Context) (Response, error) {
			calls++
			return Response{}, nil
		})
		require.NoError(t, err)
		require.False(t, replayed)
	}
	require.Equal(t, 2, calls)

	var nilGuard *Guard
	_, _, err := nilGuard.Do(context.Background(), "key", "hash", func(context.Context) (Response, error) {
		calls++
		return Response{}, nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestHashRequest(t *testing.T) {
	type cart struct {
		Items []string `json:"itens"`
	}

	a, err := HashRequest("CreateSale", cart{Items: []string{"p"}})
	require.NoError(t, err)
	b, err := HashRequest("CreateSale", cart{Items: []string{"p"}})
	require.NoError(t, err)
	c, err := HashRequest("CreateSale", cart{Items: []string{"q"}})
	require.NoError(t, err)
	d, err := HashRequest("OtherMethod", cart{Items: []string{"p"}})
	require.NoError(t, err)

	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
	require.NotEqual(t, a, d)
	require.Len(t, a, 64)

	_, err = HashRequest("CreateSale", nil)
	require.Error(t, err)
}
