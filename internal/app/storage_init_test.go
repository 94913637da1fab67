package app

import (
	"context"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestInitRuntimeDependencies(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "memory", cfg: Config{StorageDriver: StorageDriverMemory}},
		{name: "driver defaults to memory", cfg: Config{}},
		{name: "driver name is case insensitive", cfg: Config{StorageDriver: " Memory "}},
		{name: "postgres without dsn", cfg: Config{StorageDriver: StorageDriverPostgres, PostgresDSN: "  "}, wantErr: "requires POS_POSTGRES_DSN"},
		{name: "unknown driver", cfg: Config{StorageDriver: "sqlite"}, wantErr: "unsupported storage driver"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			logger := log.WithField("test", tc.name)

			deps, err := initRuntimeDependencies(context.Background(), tc.cfg, logger)
			if tc.wantErr != "" {
				require.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			defer deps.close(logger)

			require.NotNil(t, deps.products)
			require.NotNil(t, deps.promotions)
			require.NotNil(t, deps.sales)
			require.NotNil(t, deps.preorders)
			require.NotNil(t, deps.outboxRepo)
			require.NotNil(t, deps.timelineRepo)
			require.NotNil(t, deps.idempotencyRepo)
			require.Nil(t, deps.storageChecker, "memory storage has no readiness checker")
		})
	}
}

func TestRuntimeDependenciesCloseReportsError(t *testing.T) {
	t.Parallel()

	closed := 0
	deps := &runtimeDependencies{closeFn: func() error {
		closed++
		return context.Canceled
	}}
	deps.close(log.WithField("test", "close"))
	require.Equal(t, 1, closed)

	var nilDeps *runtimeDependencies
	nilDeps.close(log.WithField("test", "close"))
}
