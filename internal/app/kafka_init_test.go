package app

import (
	"context"
	"testing"

	log "github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

func TestSplitBrokers(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{in: "", want: nil},
		{in: "  ", want: nil},
		{in: "kafka:9092", want: []string{"kafka:9092"}},
		{in: " broker1:9092, ,broker2:9092,", want: []string{"broker1:9092", "broker2:9092"}},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, splitBrokers(tc.in), "input %q", tc.in)
	}
}

func TestConnectKafka(t *testing.T) {
	tests := []struct {
		name    string
		brokers string
		wantLog string
	}{
		{name: "disabled without brokers", brokers: " , "},
		{name: "unreachable broker", brokers: "invalid-broker:9999", wantLog: "kafka is not reachable, continuing without it"},
		{name: "unreachable broker list", brokers: "broker1:9092, broker2:9092", wantLog: "kafka is not reachable, continuing without it"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			logger, hook := logtest.NewNullLogger()

			broker := connectKafka(tc.brokers, log.NewEntry(logger))
			require.False(t, broker.connected())

			if tc.wantLog == "" {
				require.Empty(t, hook.AllEntries())
			} else {
				require.NotNil(t, hook.LastEntry())
				require.Equal(t, log.WarnLevel, hook.LastEntry().Level)
				require.Equal(t, tc.wantLog, hook.LastEntry().Message)
			}

			broker.startPaymentConsumer(context.Background(), "pos-service", nil)
			require.Nil(t, broker.consumer, "consumer needs a producer for its DLQ")
			broker.close()
		})
	}
}

func TestKafkaRuntime_OutboxPublishers(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	broker := &kafkaRuntime{logger: log.NewEntry(logger)}

	publisher, dlq := broker.outboxPublishers(false)
	require.Nil(t, publisher)
	require.Nil(t, dlq)

	publisher, dlq = broker.outboxPublishers(true)
	require.IsType(t, logPublisher{}, publisher)
	require.Nil(t, dlq)

	require.NoError(t, publisher.Publish(domain.OutboxMessage{ID: "o-1", AggregateID: "sale-1", EventType: "SaleCreated"}))
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	require.Equal(t, "outbox event published to log", entry.Message)
	require.Equal(t, "sale-1", entry.Data["aggregate_id"])
	require.Equal(t, "SaleCreated", entry.Data["event_type"])
}

func TestKafkaRuntime_CloseIsSafe(t *testing.T) {
	var nilRuntime *kafkaRuntime
	nilRuntime.close()
	require.False(t, nilRuntime.connected())

	broker := &kafkaRuntime{logger: log.WithField("test", "kafka")}
	broker.close()
	broker.close()
}
