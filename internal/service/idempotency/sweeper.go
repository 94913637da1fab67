package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

var (
	sweepRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_idempotency_sweep_runs_total",
		Help: "Idempotency sweep runs grouped by result (ok, truncated, error).",
	}, []string{"result"})
	sweepDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pos_idempotency_sweep_deleted_total",
		Help: "Expired Idempotency-Key records removed by the sweeper.",
	})
	sweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pos_idempotency_sweep_duration_seconds",
		Help:    "Duration of a single idempotency sweep run.",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
	})
)

// SweeperConfig — параметры очистки просроченных ключей.
type SweeperConfig struct {
	Interval  time.Duration
	BatchSize int
	// MaxBatches ограничивает число DELETE за один запуск; остаток дочищается на следующем тике.
	MaxBatches int
	Logger     *log.Entry
}

// DefaultSweeperConfig возвращает значения по умолчанию.
func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		Interval:   10 * time.Minute,
		BatchSize:  500,
		MaxBatches: 20,
	}
}

// SweepResult описывает один запуск очистки.
type SweepResult struct {
	Deleted int
	Batches int
	// Truncated выставляется, когда запуск упёрся в MaxBatches.
	Truncated bool
}

// Sweeper удаляет записи Idempotency-Key с истёкшим TTL, после чего
// повтор продажи с давним ключом снова создаёт продажу.
type Sweeper struct {
	repo domain.IdempotencyRepository
	cfg  SweeperConfig
	now  func() time.Time
}

// NewSweeper создаёт Sweeper; нулевые поля cfg заменяются значениями по умолчанию.
func NewSweeper(repo domain.IdempotencyRepository, cfg SweeperConfig) *Sweeper {
	def := DefaultSweeperConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.MaxBatches <= 0 {
		cfg.MaxBatches = def.MaxBatches
	}
	if cfg.Logger == nil {
		cfg.Logger = log.WithField("component", "idempotency-sweeper")
	}
	return &Sweeper{repo: repo, cfg: cfg, now: func() time.Time { return time.Now().UTC() }}
}

// Run чистит ключи сразу и затем раз в Interval. Возвращает nil после отмены ctx.
func (s *Sweeper) Run(ctx context.Context) error {
	if s.repo == nil {
		s.cfg.Logger.Warn("idempotency sweeper is disabled: repository is nil")
		return nil
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		s.runOnce(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (s *Sweeper) runOnce(ctx context.Context) {
	started := time.Now()
	res, err := s.Sweep(ctx, s.now())
	sweepDuration.Observe(time.Since(started).Seconds())

	switch {
	case errors.Is(err, context.Canceled):
		return
	case err != nil:
		sweepRunsTotal.WithLabelValues("error").Inc()
		s.cfg.Logger.WithError(err).WithField("deleted", res.Deleted).Warn("idempotency sweep failed")
		return
	case res.Truncated:
		sweepRunsTotal.WithLabelValues("truncated").Inc()
	default:
		sweepRunsTotal.WithLabelValues("ok").Inc()
	}

	if res.Deleted > 0 {
		s.cfg.Logger.WithFields(log.Fields{
			"deleted":   res.Deleted,
			"batches":   res.Batches,
			"truncated": res.Truncated,
		}).Info("expired idempotency keys removed")
	}
}

// Sweep удаляет записи с ttl <= before порциями BatchSize, не более MaxBatches порций.
func (s *Sweeper) Sweep(ctx context.Context, before time.Time) (SweepResult, error) {
	var res SweepResult
	if before.IsZero() {
		before = s.now()
	}

	for res.Batches < s.cfg.MaxBatches {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		n, err := s.repo.DeleteExpired(ctx, before, s.cfg.BatchSize)
		if err != nil {
			return res, err
		}
		res.Batches++
		res.Deleted += n
		sweepDeletedTotal.Add(float64(n))

		if n < s.cfg.BatchSize {
			return res, nil
		}
	}

	res.Truncated = true
	return res, nil
}
