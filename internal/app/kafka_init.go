package app

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pos/internal/domain"
	"github.com/vladislavdragonenkov/pos/internal/messaging/kafka"
)

// kafkaRuntime владеет producer и consumer платёжных событий.
// Без брокеров или при недоступной Kafka продажи продолжают работать:
// события остаются в outbox до появления брокера.
type kafkaRuntime struct {
	brokers  []string
	producer *kafka.Producer
	consumer *kafka.Consumer
	logger   *log.Entry
}

// splitBrokers разбирает KAFKA_BROKERS, отбрасывая пустые элементы.
func splitBrokers(brokers string) []string {
	var out []string
	for _, broker := range strings.Split(brokers, ",") {
		if broker = strings.TrimSpace(broker); broker != "" {
			out = append(out, broker)
		}
	}
	return out
}

func connectKafka(brokers string, logger *log.Entry) *kafkaRuntime {
	k := &kafkaRuntime{brokers: splitBrokers(brokers), logger: logger}
	if len(k.brokers) == 0 {
		return k
	}

	producer, err := kafka.NewProducer(k.brokers)
	if err != nil {
		logger.WithError(err).WithField("brokers", k.brokers).Warn("kafka is not reachable, continuing without it")
		return k
	}
	k.producer = producer
	logger.WithField("brokers", k.brokers).Info("kafka producer initialized")
	return k
}

func (k *kafkaRuntime) connected() bool {
	return k != nil && k.producer != nil
}

// outboxPublishers выбирает основной publisher outbox и publisher для исчерпавших попытки.
// С Kafka это pos.sale.events и pos.dlq; без неё и с разрешёнными mock-интеграциями события пишутся в лог.
func (k *kafkaRuntime) outboxPublishers(allowMock bool) (publisher, dlq domain.OutboxPublisher) {
	switch {
	case k.connected():
		return kafka.NewOutboxPublisher(k.producer, kafka.TopicSaleEvents),
			kafka.NewOutboxPublisher(k.producer, kafka.TopicDeadLetterQueue)
	case allowMock:
		return logPublisher{logger: k.logger.WithField("component", "outbox-log-publisher")}, nil
	default:
		return nil, nil
	}
}

// startPaymentConsumer подписывает продажи на pos.payment.events.
// Необработанные сообщения уходят в DLQ через тот же producer.
func (k *kafkaRuntime) startPaymentConsumer(ctx context.Context, group string, sales kafka.SalePaymentService) {
	if !k.connected() {
		return
	}

	handler := kafka.NewPaymentEventHandler(sales, k.logger.WithField("component", "payment-event-handler"))
	consumer, err := kafka.NewConsumer(k.brokers, group, []string{kafka.TopicPaymentEvents}, handler,
		kafka.WithDLQProducer(k.producer),
		kafka.WithConsumerLogger(k.logger.WithField("component", "kafka-consumer")),
	)
	if err != nil {
		k.logger.WithError(err).Warn("failed to create payment consumer, continuing without it")
		return
	}
	if err := consumer.Start(ctx); err != nil {
		k.logger.WithError(err).Warn("failed to start payment consumer")
		return
	}
	k.consumer = consumer
}

// close останавливает consumer раньше producer: DLQ-отправка ещё может идти.
func (k *kafkaRuntime) close() {
	if k == nil {
		return
	}
	if k.consumer != nil {
		if err := k.consumer.Stop(); err != nil {
			k.logger.WithError(err).Warn("failed to stop kafka consumer")
		}
		k.consumer = nil
	}
	if k.producer != nil {
		if err := k.producer.Close(); err != nil {
			k.logger.WithError(err).Warn("failed to close kafka producer")
		} else {
			k.logger.Info("kafka producer closed")
		}
		k.producer = nil
	}
}

// logPublisher пишет outbox-события в лог вместо Kafka (POS_ALLOW_MOCK_INTEGRATIONS=true).
type logPublisher struct {
	logger *log.Entry
}

func (p logPublisher) Publish(event domain.OutboxMessage) error {
	p.logger.WithFields(log.Fields{
		"event_id":     event.ID,
		"aggregate_id": event.AggregateID,
		"event_type":   event.EventType,
	}).Info("outbox event published to log")
	return nil
}
