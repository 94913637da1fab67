package kafka

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/IBM/sarama"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
)

var producedMessages = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "pos_kafka_produced_messages_total",
	Help: "Messages sent to Kafka by topic and outcome (ok, failed).",
}, []string{"topic", "result"})

// Producer публикует JSON-события кассы: события саги, outbox-конверты и DLQ.
type Producer struct {
	producer sarama.SyncProducer
	logger   *log.Entry
}

// NewSyncProducer настраивает идемпотентный producer (acks=all, одна запись в полёте).
// Им пользуются сервис и утилита dlq-reprocess.
func NewSyncProducer(brokers []string) (sarama.SyncProducer, error) {
	config := sarama.NewConfig()
	config.ClientID = "pos-service"
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Idempotent = true
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return producer, nil
}

func NewProducer(brokers []string) (*Producer, error) {
	producer, err := NewSyncProducer(brokers)
	if err != nil {
		return nil, err
	}
	return &Producer{
		producer: producer,
		logger:   log.WithField("component", "kafka-producer"),
	}, nil
}

// PublishEvent кодирует event в JSON и отправляет его с ключом key.
// Ключ продажи держит события одной продажи в одной партиции.
func (p *Producer) PublishEvent(topic string, key string, event interface{}) error {
	return p.PublishWithHeaders(topic, key, event, nil)
}

// PublishWithHeaders дополнительно проставляет заголовки записи.
func (p *Producer) PublishWithHeaders(topic, key string, event interface{}, headers map[string]string) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event for %s: %w", topic, err)
	}

	msg := &sarama.ProducerMessage{
		Topic:     topic,
		Key:       sarama.StringEncoder(key),
		Value:     sarama.ByteEncoder(value),
		Headers:   recordHeaders(headers),
		Timestamp: time.Now(),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	entry := p.logger.WithFields(log.Fields{"topic": topic, "key": key})
	if err != nil {
		producedMessages.WithLabelValues(topic, "failed").Inc()
		entry.WithError(err).Error("failed to send message to kafka")
		return fmt.Errorf("send to %s: %w", topic, err)
	}
	producedMessages.WithLabelValues(topic, "ok").Inc()
	entry.WithFields(log.Fields{"partition": partition, "offset": offset}).Debug("message sent to kafka")
	return nil
}

// recordHeaders сортирует заголовки по ключу, чтобы порядок не зависел от map.
func recordHeaders(headers map[string]string) []sarama.RecordHeader {
	if len(headers) == 0 {
		return nil
	}
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]sarama.RecordHeader, 0, len(keys))
	for _, k := range keys {
		out = append(out, sarama.RecordHeader{Key: []byte(k), Value: []byte(headers[k])})
	}
	return out
}

func (p *Producer) Close() error {
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka producer: %w", err)
	}
	return nil
}
