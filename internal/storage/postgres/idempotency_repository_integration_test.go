package postgres

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

func TestIdempotencyRepository_PostgresStoresOutcome(t *testing.T) {
	repo := NewIdempotencyRepository(newIntegrationStore(t))
	ctx := context.Background()
	ttl := time.Now().UTC().Add(2 * time.Hour).Truncate(time.Second)

	tests := []struct {
		name   string
		key    string
		finish func(key string) error
		want   domain.IdempotencyStatus
		code   int
		body   string
	}{
		{
			name: "sale receipt",
			key:  "venda-ok",
			finish: func(key string) error {
				return repo.MarkDone(ctx, key, []byte(`{"vendaId":"v-1","totalPagoEmCentavos":1180}`), http.StatusCreated)
			},
			want: domain.IdempotencyStatusDone,
			code: http.StatusCreated,
			body: `{"vendaId":"v-1","totalPagoEmCentavos":1180}`,
		},
		{
			name: "stock failure",
			key:  "venda-sem-estoque",
			finish: func(key string) error {
				return repo.MarkFailed(ctx, key, []byte(`{"error":"insufficient stock"}`), http.StatusConflict)
			},
			want: domain.IdempotencyStatusFailed,
			code: http.StatusConflict,
			body: `{"error":"insufficient stock"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claim, err := repo.CreateProcessing(ctx, tt.key, "hash-"+tt.key, ttl)
			require.NoError(t, err)
			assert.Equal(t, domain.IdempotencyStatusProcessing, claim.Status)

			require.NoError(t, tt.finish(tt.key))

			got, err := repo.Get(ctx, tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Status)
			assert.Equal(t, tt.code, got.HTTPStatus)
			assert.Equal(t, "hash-"+tt.key, got.RequestHash)
			assert.JSONEq(t, tt.body, string(got.ResponseBody))
			assert.True(t, got.TTLAt.Equal(ttl), "ttl_at %s, want %s", got.TTLAt, ttl)
		})
	}
}

func TestIdempotencyRepository_PostgresLiveKeyConflicts(t *testing.T) {
	repo := NewIdempotencyRepository(newIntegrationStore(t))
	ctx := context.Background()
	ttl := time.Now().UTC().Add(time.Hour)

	_, err := repo.CreateProcessing(ctx, "pagamento-42", "hash-a", ttl)
	require.NoError(t, err)

	existing, err := repo.CreateProcessing(ctx, "pagamento-42", "hash-a", ttl)
	require.ErrorIs(t, err, domain.ErrIdempotencyKeyAlreadyExists)
	assert.Equal(t, domain.IdempotencyStatusProcessing, existing.Status)

	_, err = repo.CreateProcessing(ctx, "pagamento-42", "hash-b", ttl)
	require.ErrorIs(t, err, domain.ErrIdempotencyHashMismatch)
}

func TestIdempotencyRepository_PostgresUnknownAndBlankKeys(t *testing.T) {
	repo := NewIdempotencyRepository(newIntegrationStore(t))
	ctx := context.Background()

	_, err := repo.Get(ctx, "nunca-vista")
	require.ErrorIs(t, err, domain.ErrIdempotencyKeyNotFound)
	require.ErrorIs(t, repo.MarkDone(ctx, "nunca-vista", nil, http.StatusOK), domain.ErrIdempotencyKeyNotFound)

	_, err = repo.Get(ctx, "   ")
	require.ErrorIs(t, err, domain.ErrIdempotencyKeyRequired)
	require.ErrorIs(t, repo.MarkFailed(ctx, "", nil, http.StatusInternalServerError), domain.ErrIdempotencyKeyRequired)
}

func TestIdempotencyRepository_PostgresDeleteExpiredInBatches(t *testing.T) {
	repo := NewIdempotencyRepository(newIntegrationStore(t))
	ctx := context.Background()
	now := time.Now().UTC()

	for key, offset := range map[string]time.Duration{
		"expirada-1": -5 * time.Minute,
		"expirada-2": -4 * time.Minute,
		"expirada-3": -3 * time.Minute,
		"ativa":      time.Hour,
	} {
		_, err := repo.CreateProcessing(ctx, key, "h-"+key, now.Add(offset))
		require.NoError(t, err)
	}

	removed, err := repo.DeleteExpired(ctx, now, 2)
	require.NoError(t, err)
	require.Equal(t, 2, removed)

	// Самая свежая из просроченных переживает первый проход.
	_, err = repo.Get(ctx, "expirada-3")
	require.NoError(t, err)

	removed, err = repo.DeleteExpired(ctx, now, 0)
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	_, err = repo.Get(ctx, "ativa")
	require.NoError(t, err)
}

func TestIdempotencyRepository_PostgresReclaimsExpiredKey(t *testing.T) {
	repo := NewIdempotencyRepository(newIntegrationStore(t))
	ctx := context.Background()

	_, err := repo.CreateProcessing(ctx, "venda-antiga", "hash-old", time.Now().UTC().Add(-time.Minute))
	require.NoError(t, err)
	require.NoError(t, repo.MarkDone(ctx, "venda-antiga", []byte(`{"vendaId":"v-1"}`), http.StatusCreated))

	claimed, err := repo.CreateProcessing(ctx, "venda-antiga", "hash-new", time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, domain.IdempotencyStatusProcessing, claimed.Status)
	assert.Equal(t, "hash-new", claimed.RequestHash)
	assert.Empty(t, claimed.ResponseBody)
	assert.Zero(t, claimed.HTTPStatus)
}
