package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics содержит метрики оформления и жизненного цикла продаж.
type CheckoutMetrics struct {
	salesCreated   prometheus.Counter
	salesFailed    *prometheus.CounterVec
	compensations  *prometheus.CounterVec
	statusChanges  *prometheus.CounterVec
	checkoutTime   prometheus.Histogram
	stepDuration   *prometheus.HistogramVec
	saleAmount     prometheus.Histogram
	timelineEvents prometheus.Counter
	outboxEvents   prometheus.Counter
	active         prometheus.Gauge
}

// NewCheckoutMetrics регистрирует метрики в prometheus.DefaultRegisterer.
// Повторный вызов возвращает уже зарегистрированные коллекторы.
func NewCheckoutMetrics() *CheckoutMetrics {
	return NewCheckoutMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewCheckoutMetricsWithRegisterer регистрирует метрики в заданном registerer (удобно в тестах).
func NewCheckoutMetricsWithRegisterer(registerer prometheus.Registerer) *CheckoutMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &CheckoutMetrics{
		salesCreated: register(registerer, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pos_sales_created_total",
			Help: "Total number of sales created with stock committed",
		})),
		salesFailed: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pos_sales_failed_total",
			Help: "Total number of rejected or failed checkouts grouped by reason",
		}, []string{"reason"})),
		compensations: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pos_sale_compensations_total",
			Help: "Total number of stock compensations grouped by result",
		}, []string{"result"})),
		statusChanges: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pos_sale_status_changes_total",
			Help: "Total number of sale status transitions grouped by target status",
		}, []string{"status"})),
		checkoutTime: register(registerer, prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pos_checkout_duration_seconds",
			Help:    "Duration of sale creation in seconds",
			Buckets: prometheus.DefBuckets,
		})),
		stepDuration: register(registerer, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pos_checkout_step_duration_seconds",
			Help:    "Duration of individual checkout steps in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"step"})),
		saleAmount: register(registerer, prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pos_sale_amount_cents",
			Help:    "Distribution of sale totals in cents",
			Buckets: []float64{500, 1000, 2000, 5000, 10000, 20000, 50000},
		})),
		timelineEvents: register(registerer, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pos_timeline_events_total",
			Help: "Total number of sale timeline events recorded",
		})),
		outboxEvents: register(registerer, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pos_outbox_events_total",
			Help: "Total number of sale events enqueued to the outbox",
		})),
		active: register(registerer, prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pos_active_checkouts",
			Help: "Number of checkouts currently in progress",
		})),
	}
}

// register регистрирует коллектор; при повторной регистрации возвращает существующий.
func register[T prometheus.Collector](registerer prometheus.Registerer, collector T) T {
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(T)
			if !ok {
				panic(fmt.Sprintf("collector already registered with unexpected type %T", alreadyRegistered.ExistingCollector))
			}
			return existing
		}
		panic(fmt.Sprintf("register collector: %v", err))
	}
	return collector
}

// CheckoutStarted отмечает начало оформления продажи.
func (m *CheckoutMetrics) CheckoutStarted() {
	if m == nil {
		return
	}
	m.active.Inc()
}

// CheckoutFinished записывает длительность и уменьшает число активных оформлений.
func (m *CheckoutMetrics) CheckoutFinished(duration time.Duration) {
	if m == nil {
		return
	}
	m.active.Dec()
	m.checkoutTime.Observe(duration.Seconds())
}

// SaleCreated учитывает успешно оформленную продажу.
func (m *CheckoutMetrics) SaleCreated(totalCents int64) {
	if m == nil {
		return
	}
	m.salesCreated.Inc()
	m.saleAmount.Observe(float64(totalCents))
}

// SaleFailed учитывает отказ с причиной (not_found, insufficient_stock, reconciliation, ...).
func (m *CheckoutMetrics) SaleFailed(reason string) {
	if m == nil {
		return
	}
	m.salesFailed.WithLabelValues(reason).Inc()
}

// Compensation учитывает результат компенсации: restored или degraded.
func (m *CheckoutMetrics) Compensation(result string) {
	if m == nil {
		return
	}
	m.compensations.WithLabelValues(result).Inc()
}

// StatusChanged учитывает переход продажи в статус.
func (m *CheckoutMetrics) StatusChanged(status string) {
	if m == nil {
		return
	}
	m.statusChanges.WithLabelValues(status).Inc()
}

// StepDuration записывает время выполнения шага оформления.
func (m *CheckoutMetrics) StepDuration(step string, duration time.Duration) {
	if m == nil {
		return
	}
	m.stepDuration.WithLabelValues(step).Observe(duration.Seconds())
}

// TimelineEvent увеличивает счётчик событий timeline.
func (m *CheckoutMetrics) TimelineEvent() {
	if m == nil {
		return
	}
	m.timelineEvents.Inc()
}

// OutboxEvent увеличивает счётчик событий outbox.
func (m *CheckoutMetrics) OutboxEvent() {
	if m == nil {
		return
	}
	m.outboxEvents.Inc()
}
