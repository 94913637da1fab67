package kafka

import "time"

// EventType определяет тип события
type EventType string

const (
	// События саги оформления продажи
	EventTypeSagaStarted     EventType = "saga.started"
	EventTypeSagaCompleted   EventType = "saga.completed"
	EventTypeSagaFailed      EventType = "saga.failed"
	EventTypeSagaCompensated EventType = "saga.compensated"

	// Входящие события платёжного шлюза
	EventTypePaymentConfirmed EventType = "payment.confirmed"
	EventTypePaymentCancelled EventType = "payment.cancelled"
)

// Topics для Kafka
const (
	TopicSagaEvents = "pos.saga.events"
	// TopicSaleEvents получает outbox-события продаж.
	TopicSaleEvents      = "pos.sale.events"
	TopicPaymentEvents   = "pos.payment.events"
	TopicDeadLetterQueue = "pos.dlq"
)

// Kafka headers для retry логики
const (
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderReplayedAt    = "x-replayed-at"

	// Заголовки outbox-записей: по ним потребители фильтруют события без разбора тела.
	HeaderEventType     = "x-event-type"
	HeaderAggregateType = "x-aggregate-type"
	HeaderOutboxID      = "x-outbox-id"
)

// SagaEvent представляет событие саги оформления продажи
type SagaEvent struct {
	EventType EventType              `json:"event_type"`
	SaleID    string                 `json:"sale_id"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// PaymentEvent — сообщение платёжного шлюза о судьбе оплаты продажи.
type PaymentEvent struct {
	EventType EventType `json:"event_type"`
	SaleID    string    `json:"sale_id"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewSagaEvent создает новое событие саги
func NewSagaEvent(eventType EventType, saleID string, metadata map[string]interface{}) *SagaEvent {
	return &SagaEvent{
		EventType: eventType,
		SaleID:    saleID,
		Timestamp: time.Now(),
		Metadata:  metadata,
	}
}
