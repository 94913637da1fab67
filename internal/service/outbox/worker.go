package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

var (
	publishTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_outbox_publish_total",
		Help: "Sale event publish outcomes from the outbox by event type (sent, retry, dead_letter, dlq_error).",
	}, []string{"event_type", "result"})
	pendingRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pos_outbox_pending_records",
		Help: "Sale events waiting in the transactional outbox.",
	})
	oldestPendingAge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pos_outbox_oldest_pending_age_seconds",
		Help: "Age of the oldest pending outbox record.",
	})
)

// Config — параметры outbox worker. Нулевые значения заменяются DefaultConfig.
type Config struct {
	PollInterval   time.Duration
	BatchSize      int
	MaxAttempts    int
	RetryBaseDelay time.Duration
	MaxRetryDelay  time.Duration
	// DLQ получает события, которые не удалось опубликовать за MaxAttempts попыток.
	DLQ    domain.OutboxPublisher
	Logger *log.Entry
}

// DefaultConfig возвращает значения по умолчанию.
func DefaultConfig() Config {
	return Config{
		PollInterval:   time.Second,
		BatchSize:      100,
		MaxAttempts:    3,
		RetryBaseDelay: 50 * time.Millisecond,
		MaxRetryDelay:  2 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.PollInterval <= 0 {
		c.PollInterval = def.PollInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = def.BatchSize
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = def.MaxAttempts
	}
	if c.RetryBaseDelay < 0 {
		c.RetryBaseDelay = 0
	}
	if c.MaxRetryDelay <= 0 {
		c.MaxRetryDelay = def.MaxRetryDelay
	}
	if c.Logger == nil {
		c.Logger = log.WithField("component", "outbox-worker")
	}
	return c
}

// DeadLetter — содержимое DLQ-сообщения для события продажи.
// Его же разбирает cmd/dlq-reprocess.
type DeadLetter struct {
	OutboxID       string          `json:"outbox_id"`
	AggregateType  string          `json:"aggregate_type"`
	SaleID         string          `json:"sale_id"`
	EventType      string          `json:"event_type"`
	Payload        json.RawMessage `json:"payload"`
	PublishError   string          `json:"publish_error"`
	Attempts       int             `json:"attempts"`
	DLQPublishedAt time.Time       `json:"dlq_published_at"`
}

// Result — итог одного цикла.
type Result struct {
	Sent         int
	Failed       int
	DeadLettered int
}

// Worker публикует события продаж (SaleCreated, SalePaid, SaleCancelled, SaleCompensated)
// из outbox в брокер в порядке постановки.
type Worker struct {
	repo      domain.OutboxRepository
	publisher domain.OutboxPublisher
	cfg       Config
	now       func() time.Time
}

// NewWorker создаёт outbox worker.
func NewWorker(repo domain.OutboxRepository, publisher domain.OutboxPublisher, cfg Config) *Worker {
	return &Worker{
		repo:      repo,
		publisher: publisher,
		cfg:       cfg.withDefaults(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run опрашивает outbox каждые PollInterval до отмены ctx.
func (w *Worker) Run(ctx context.Context) error {
	if w.repo == nil || w.publisher == nil {
		w.cfg.Logger.Warn("outbox worker is disabled: repository or publisher is nil")
		return nil
	}

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		w.ProcessOnce(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// ProcessOnce публикует одну порцию pending-событий.
func (w *Worker) ProcessOnce(ctx context.Context) Result {
	var res Result
	if ctx.Err() != nil {
		return res
	}
	defer w.observeBacklog(ctx)

	batch, err := w.repo.PullPending(ctx, w.cfg.BatchSize)
	if err != nil {
		w.cfg.Logger.WithError(err).Warn("failed to pull pending outbox messages")
		return res
	}

	for _, msg := range batch {
		if ctx.Err() != nil {
			break
		}
		w.deliver(ctx, msg, &res)
	}

	if len(batch) > 0 {
		w.cfg.Logger.WithFields(log.Fields{
			"sent":          res.Sent,
			"failed":        res.Failed,
			"dead_lettered": res.DeadLettered,
		}).Debug("outbox batch processed")
	}
	return res
}

func (w *Worker) deliver(ctx context.Context, msg domain.OutboxMessage, res *Result) {
	logger := w.cfg.Logger.WithFields(log.Fields{
		"outbox_id":  msg.ID,
		"event_type": msg.EventType,
		"sale_id":    msg.AggregateID,
	})

	attempts, err := w.publish(ctx, msg)
	if err == nil {
		res.Sent++
		if markErr := w.repo.MarkSent(ctx, msg.ID); markErr != nil {
			logger.WithError(markErr).Warn("failed to mark outbox message as sent")
		}
		return
	}
	if ctx.Err() != nil {
		// Сообщение остаётся pending и уйдёт после рестарта.
		return
	}

	res.Failed++
	logger.WithError(err).WithField("attempts", attempts).Error("outbox publish failed")

	if w.cfg.DLQ != nil {
		if dlqErr := w.deadLetter(msg, err, attempts); dlqErr != nil {
			publishTotal.WithLabelValues(msg.EventType, "dlq_error").Inc()
			logger.WithError(dlqErr).Warn("failed to publish outbox message to DLQ")
		} else {
			res.DeadLettered++
			publishTotal.WithLabelValues(msg.EventType, "dead_letter").Inc()
		}
	}
	if markErr := w.repo.MarkFailed(ctx, msg.ID); markErr != nil {
		logger.WithError(markErr).Warn("failed to mark outbox message as failed")
	}
}

// publish делает до MaxAttempts попыток и возвращает число выполненных.
func (w *Worker) publish(ctx context.Context, msg domain.OutboxMessage) (int, error) {
	var lastErr error
	for attempt := 1; attempt <= w.cfg.MaxAttempts; attempt++ {
		if lastErr = w.publisher.Publish(msg); lastErr == nil {
			publishTotal.WithLabelValues(msg.EventType, "sent").Inc()
			return attempt, nil
		}
		publishTotal.WithLabelValues(msg.EventType, "retry").Inc()

		if attempt == w.cfg.MaxAttempts {
			break
		}
		if delay := w.backoff(attempt); delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return attempt, ctx.Err()
			case <-timer.C:
			}
		}
	}
	return w.cfg.MaxAttempts, fmt.Errorf("publish %s after %d attempts: %w", msg.EventType, w.cfg.MaxAttempts, lastErr)
}

// backoff: RetryBaseDelay * 2^(attempt-1), но не больше MaxRetryDelay.
func (w *Worker) backoff(attempt int) time.Duration {
	delay := w.cfg.RetryBaseDelay
	for i := 1; i < attempt && delay > 0; i++ {
		if delay >= w.cfg.MaxRetryDelay/2 {
			return w.cfg.MaxRetryDelay
		}
		delay *= 2
	}
	if delay > w.cfg.MaxRetryDelay {
		return w.cfg.MaxRetryDelay
	}
	return delay
}

func (w *Worker) deadLetter(msg domain.OutboxMessage, cause error, attempts int) error {
	body, err := json.Marshal(DeadLetter{
		OutboxID:       msg.ID,
		AggregateType:  msg.AggregateType,
		SaleID:         msg.AggregateID,
		EventType:      msg.EventType,
		Payload:        json.RawMessage(msg.Payload),
		PublishError:   cause.Error(),
		Attempts:       attempts,
		DLQPublishedAt: w.now(),
	})
	if err != nil {
		return fmt.Errorf("marshal dead letter: %w", err)
	}

	dlqMsg := msg
	dlqMsg.Payload = body
	if err := w.cfg.DLQ.Publish(dlqMsg); err != nil {
		return fmt.Errorf("publish dead letter: %w", err)
	}
	return nil
}

func (w *Worker) observeBacklog(ctx context.Context) {
	stats, err := w.repo.Stats(ctx)
	if err != nil {
		w.cfg.Logger.WithError(err).Warn("failed to collect outbox backlog stats")
		return
	}

	pendingRecords.Set(float64(stats.PendingCount))
	if stats.PendingCount == 0 || stats.OldestPendingAt.IsZero() {
		oldestPendingAge.Set(0)
		return
	}
	oldestPendingAge.Set(max(0, w.now().Sub(stats.OldestPendingAt).Seconds()))
}
