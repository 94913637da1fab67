package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/pos/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/pos/internal/health"
	"github.com/vladislavdragonenkov/pos/internal/storage/memory"
)

// loopbackConfig слушает на случайных портах 127.0.0.1 и не трогает Kafka/Redis.
func loopbackConfig() Config {
	cfg := DefaultConfig()
	cfg.GRPCAddr = "127.0.0.1:0"
	cfg.HTTPAddr = "127.0.0.1:0"
	cfg.MetricsAddr = "127.0.0.1:0"
	cfg.StorageDriver = StorageDriverMemory
	cfg.KafkaBrokers = ""
	cfg.RedisAddr = ""
	return cfg
}

func TestRun_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	require.ErrorIs(t, Run(ctx, loopbackConfig()), context.DeadlineExceeded)
}

func TestRun_RejectsBadConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "storage driver", mutate: func(c *Config) { c.StorageDriver = "invalid-driver" }, wantErr: "unsupported storage driver"},
		{name: "timezone", mutate: func(c *Config) { c.Timezone = "Mars/Olympus_Mons" }, wantErr: "load timezone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := loopbackConfig()
			tt.mutate(&cfg)
			require.ErrorContains(t, Run(context.Background(), cfg), tt.wantErr)
		})
	}
}

func TestRun_SellsFromSeededCatalog(t *testing.T) {
	port := findFreePort(t)
	cfg := loopbackConfig()
	cfg.HTTPAddr = fmt.Sprintf("127.0.0.1:%d", port)
	cfg.SeedDemoCatalog = true
	cfg.AllowMockIntegrations = true
	cfg.Timezone = "UTC"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, cfg) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	base := fmt.Sprintf("http://127.0.0.1:%d", port)
	var products []struct {
		ID   string `json:"id"`
		Nome string `json:"nome"`
	}
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/produtos?ativos=true")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK && json.NewDecoder(resp.Body).Decode(&products) == nil
	}, 2*time.Second, 20*time.Millisecond)
	require.Len(t, products, len(demoCatalog(time.Now())))

	var brownieID string
	for _, p := range products {
		if p.Nome == "Brownie" {
			brownieID = p.ID
		}
	}
	require.NotEmpty(t, brownieID)

	body, err := json.Marshal(map[string]any{"itens": []map[string]any{{"produtoId": brownieID, "quantidade": 1}}})
	require.NoError(t, err)
	resp, err := http.Post(base+"/vendas", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var receipt struct {
		VendaID             string `json:"vendaId"`
		TotalPagoEmCentavos int64  `json:"totalPagoEmCentavos"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&receipt))
	assert.NotEmpty(t, receipt.VendaID)
	assert.EqualValues(t, 800, receipt.TotalPagoEmCentavos)

	history, err := http.Get(base + "/vendas?limit=5")
	require.NoError(t, err)
	defer history.Body.Close()
	var sales []struct {
		VendaID     string `json:"vendaId"`
		ResumoItens string `json:"resumoItens"`
	}
	require.NoError(t, json.NewDecoder(history.Body).Decode(&sales))
	require.Len(t, sales, 1)
	assert.Equal(t, receipt.VendaID, sales[0].VendaID)
	assert.Equal(t, "Brownie (1)", sales[0].ResumoItens)
}

func TestInitRuntimeDependencies_PostgresHealthy(t *testing.T) {
	dsn := strings.TrimSpace(os.Getenv("POS_POSTGRES_TEST_DSN"))
	if dsn == "" {
		t.Skip("POS_POSTGRES_TEST_DSN is not set")
	}

	cfg := DefaultConfig()
	cfg.StorageDriver = StorageDriverPostgres
	cfg.PostgresDSN = dsn
	cfg.PostgresAutoMigrate = true

	logger := log.WithField("test", "postgres-init")
	deps, err := initRuntimeDependencies(context.Background(), cfg, logger)
	if err != nil {
		t.Skipf("postgres is not available: %v", err)
	}
	defer deps.close(logger)

	require.NotNil(t, deps.sales)
	require.NotNil(t, deps.outboxRepo)
	require.NotNil(t, deps.idempotencyRepo)
	require.NotNil(t, deps.storageChecker)
	assert.Equal(t, healthcheck.StatusHealthy, deps.storageChecker.Check(context.Background()).Status)
}

func TestOutboxBacklogChecker(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewOutboxRepository()
	checker := newOutboxBacklogChecker(repo, 1)
	require.Equal(t, healthcheck.StatusHealthy, checker.Check(ctx).Status)

	for _, saleID := range []string{"sale-1", "sale-2"} {
		_, err := repo.Enqueue(ctx, domain.OutboxMessage{
			AggregateType: "sale",
			AggregateID:   saleID,
			EventType:     "SaleCreated",
			Payload:       []byte(`{}`),
		})
		require.NoError(t, err)
	}
	check := checker.Check(ctx)
	require.Equal(t, healthcheck.StatusDegraded, check.Status)
	require.NotNil(t, check.Value)
	require.Equal(t, 2, *check.Value)
}

func TestLoadLocation(t *testing.T) {
	loc, err := loadLocation("")
	require.NoError(t, err)
	require.Equal(t, time.UTC, loc)

	loc, err = loadLocation("America/Sao_Paulo")
	require.NoError(t, err)
	require.Equal(t, "America/Sao_Paulo", loc.String())
}
