package checkout

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

// RetryConfig задаёт повторы шагов компенсации.
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryConfig возвращает конфигурацию по умолчанию.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  50 * time.Millisecond,
		MaxDelay:      2 * time.Second,
		BackoffFactor: 2.0,
	}
}

// delay возвращает паузу перед попыткой attempt+1 (attempt считается с 1).
func (c RetryConfig) delay(attempt int) time.Duration {
	d := float64(c.InitialDelay)
	for i := 1; i < attempt; i++ {
		d *= c.BackoffFactor
		if c.MaxDelay > 0 && d >= float64(c.MaxDelay) {
			return c.MaxDelay
		}
	}
	return time.Duration(d)
}

// retry повторяет шаг компенсации с экспоненциальной паузой.
// Ошибки, которые повтор не исправит, возвращаются сразу.
func retry(ctx context.Context, cfg RetryConfig, logger *log.Entry, step string, fn func(context.Context) error) error {
	attempts := max(cfg.MaxAttempts, 1)
	fields := log.Fields{"step": step}

	for attempt := 1; ; attempt++ {
		fields["attempt"] = attempt
		err := fn(ctx)
		switch {
		case err == nil:
			if attempt > 1 {
				logger.WithFields(fields).Info("compensation step recovered")
			}
			return nil
		case attempt == attempts || !shouldRetry(err):
			return err
		}

		pause := cfg.delay(attempt)
		logger.WithError(err).WithFields(fields).WithField("pause", pause).Warn("compensation step failed, retrying")
		if pause <= 0 {
			continue
		}
		timer := time.NewTimer(pause)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Join(err, ctx.Err())
		case <-timer.C:
		}
	}
}

func shouldRetry(err error) bool {
	for _, permanent := range []error{
		domain.ErrNotFound,
		domain.ErrInsufficientStock,
		domain.ErrInvalidArgument,
		domain.ErrInvalidStateTransition,
		context.Canceled,
		context.DeadlineExceeded,
	} {
		if errors.Is(err, permanent) {
			return false
		}
	}
	return true
}

// CircuitState — состояние circuit breaker.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen возвращается, пока breaker открыт.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker защищает необязательные внешние вызовы (публикация saga-событий),
// чтобы недоступный брокер не замедлял каждое оформление продажи.
type CircuitBreaker struct {
	mu           sync.Mutex
	maxFailures  int
	resetTimeout time.Duration
	failures     int
	lastFailure  time.Time
	state        CircuitState
	logger       *log.Entry
	now          func() time.Time
}

// NewCircuitBreaker создаёт breaker в закрытом состоянии.
func NewCircuitBreaker(maxFailures int, resetTimeout time.Duration, logger *log.Entry) *CircuitBreaker {
	if logger == nil {
		logger = log.WithField("component", "circuit-breaker")
	}
	if maxFailures <= 0 {
		maxFailures = 1
	}
	return &CircuitBreaker{
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		state:        CircuitClosed,
		logger:       logger,
		now:          time.Now,
	}
}

// State возвращает текущее состояние.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Execute выполняет fn, если breaker не открыт.
func (cb *CircuitBreaker) Execute(operation string, fn func() error) error {
	cb.mu.Lock()
	if cb.state == CircuitOpen {
		if cb.now().Sub(cb.lastFailure) <= cb.resetTimeout {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
		cb.state = CircuitHalfOpen
		cb.logger.WithField("operation", operation).Info("circuit breaker half-open")
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err != nil {
		cb.failures++
		cb.lastFailure = cb.now()
		if cb.state == CircuitHalfOpen || cb.failures >= cb.maxFailures {
			cb.logger.WithFields(log.Fields{
				"operation": operation,
				"failures":  cb.failures,
				"from":      cb.state.String(),
			}).Warn("circuit breaker opened")
			cb.state = CircuitOpen
		}
		return err
	}

	if cb.state == CircuitHalfOpen {
		cb.logger.WithField("operation", operation).Info("circuit breaker closed")
	}
	cb.state = CircuitClosed
	cb.failures = 0
	return nil
}
