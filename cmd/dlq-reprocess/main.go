package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pos/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/pos/internal/service/outbox"
)

const (
	defaultReplayLimit = 100
	defaultIdleTimeout = 2 * time.Second
	envKafkaBrokers    = "KAFKA_BROKERS"
)

type config struct {
	brokers     []string
	sourceTopic string
	targetTopic string
	limit       int
	execute     bool
	fromNewest  bool
	idleTimeout time.Duration
	// Пустые фильтры пропускают всё.
	saleID     string
	eventTypes map[string]struct{}
}

func (c config) matches(msg replayMessage) bool {
	if c.saleID != "" && msg.saleID != c.saleID {
		return false
	}
	if len(c.eventTypes) == 0 {
		return true
	}
	_, ok := c.eventTypes[msg.eventType]
	return ok
}

type replayMessage struct {
	topic     string
	key       string
	value     []byte
	saleID    string
	eventType string
	// retryCount уходит в x-retry-count и сокращает бюджет повторов consumer-а.
	retryCount int
	lastError  string
}

type offsetClient interface {
	GetOffset(topic string, partition int32, time int64) (int64, error)
	Partitions(topic string) ([]int32, error)
	Close() error
}

type partitionConsumer interface {
	Messages() <-chan *sarama.ConsumerMessage
	Errors() <-chan *sarama.ConsumerError
	Close() error
}

type partitionConsumerSource interface {
	ConsumePartition(topic string, partition int32, offset int64) (partitionConsumer, error)
	Close() error
}

type replayProducer interface {
	SendMessage(msg *sarama.ProducerMessage) (partition int32, offset int64, err error)
	Close() error
}

type saramaConsumerAdapter struct {
	consumer sarama.Consumer
}

func (a saramaConsumerAdapter) ConsumePartition(topic string, partition int32, offset int64) (partitionConsumer, error) {
	pc, err := a.consumer.ConsumePartition(topic, partition, offset)
	if err != nil {
		return nil, err
	}
	return pc, nil
}

func (a saramaConsumerAdapter) Close() error {
	if a.consumer == nil {
		return nil
	}
	return a.consumer.Close()
}

var newReplayDependencies = func(cfg config) (offsetClient, partitionConsumerSource, replayProducer, error) {
	consumerConfig := sarama.NewConfig()
	consumerConfig.Consumer.Return.Errors = true

	client, err := sarama.NewClient(cfg.brokers, consumerConfig)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create kafka client: %w", err)
	}

	rawConsumer, err := sarama.NewConsumerFromClient(client)
	if err != nil {
		_ = client.Close()
		return nil, nil, nil, fmt.Errorf("create kafka consumer: %w", err)
	}
	consumer := saramaConsumerAdapter{consumer: rawConsumer}

	if !cfg.execute {
		return client, consumer, nil, nil
	}

	producer, err := kafka.NewSyncProducer(cfg.brokers)
	if err != nil {
		_ = consumer.Close()
		_ = client.Close()
		return nil, nil, nil, fmt.Errorf("create kafka producer: %w", err)
	}

	return client, consumer, producer, nil
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)

	cfg, err := readConfig(os.Args[1:], os.LookupEnv)
	if err != nil {
		fail("%v", err)
	}

	if err := run(context.Background(), cfg); err != nil {
		fail("dlq replay failed: %v", err)
	}
}

func readConfig(args []string, lookup func(string) (string, bool)) (config, error) {
	var (
		brokersRaw    string
		eventTypesRaw string
		cfg           config
	)

	fs := flag.NewFlagSet("dlq-reprocess", flag.ContinueOnError)
	fs.StringVar(&brokersRaw, "brokers", "", "Kafka brokers as comma-separated list (fallback: "+envKafkaBrokers+")")
	fs.StringVar(&cfg.sourceTopic, "source-topic", kafka.TopicDeadLetterQueue, "DLQ source topic")
	fs.StringVar(&cfg.targetTopic, "target-topic", kafka.TopicSaleEvents, "target topic for outbox events")
	fs.IntVar(&cfg.limit, "limit", defaultReplayLimit, "max number of messages to scan/replay")
	fs.BoolVar(&cfg.execute, "execute", false, "execute replay; default is dry-run")
	fs.BoolVar(&cfg.fromNewest, "from-newest", false, "scan latest messages first (bounded by limit)")
	fs.DurationVar(&cfg.idleTimeout, "idle-timeout", defaultIdleTimeout, "idle timeout per partition")
	fs.StringVar(&cfg.saleID, "sale-id", "", "replay only events of this sale")
	fs.StringVar(&eventTypesRaw, "event-types", "", "comma-separated event types to replay (e.g. sale.created,payment.confirmed)")
	if err := fs.Parse(args); err != nil {
		return config{}, err
	}

	if strings.TrimSpace(brokersRaw) == "" {
		brokersRaw, _ = lookup(envKafkaBrokers)
	}

	cfg.brokers = splitList(brokersRaw)
	cfg.sourceTopic = strings.TrimSpace(cfg.sourceTopic)
	cfg.targetTopic = strings.TrimSpace(cfg.targetTopic)
	cfg.saleID = strings.TrimSpace(cfg.saleID)
	if types := splitList(eventTypesRaw); len(types) > 0 {
		cfg.eventTypes = make(map[string]struct{}, len(types))
		for _, t := range types {
			cfg.eventTypes[t] = struct{}{}
		}
	}

	if err := cfg.validate(); err != nil {
		return config{}, err
	}
	return cfg, nil
}

// validate сообщает обо всех ошибках флагов сразу.
func (c config) validate() error {
	var problems []error
	if len(c.brokers) == 0 {
		problems = append(problems, errors.New("kafka brokers are required (-brokers or "+envKafkaBrokers+")"))
	}
	if c.sourceTopic == "" {
		problems = append(problems, errors.New("source-topic is required"))
	}
	if c.targetTopic == "" {
		problems = append(problems, errors.New("target-topic is required"))
	}
	if c.sourceTopic != "" && c.sourceTopic == c.targetTopic {
		problems = append(problems, errors.New("source-topic and target-topic must differ"))
	}
	if c.limit <= 0 {
		problems = append(problems, errors.New("limit must be > 0"))
	}
	if c.idleTimeout <= 0 {
		problems = append(problems, errors.New("idle-timeout must be > 0"))
	}
	return errors.Join(problems...)
}

func splitList(raw string) []string {
	chunks := strings.Split(raw, ",")
	items := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		item := strings.TrimSpace(chunk)
		if item == "" {
			continue
		}
		items = append(items, item)
	}
	return items
}

func run(ctx context.Context, cfg config) error {
	log.WithFields(log.Fields{
		"source_topic": cfg.sourceTopic,
		"target_topic": cfg.targetTopic,
		"limit":        cfg.limit,
		"execute":      cfg.execute,
		"from_newest":  cfg.fromNewest,
		"sale_id":      cfg.saleID,
	}).Info("starting dlq replay")

	client, consumer, producer, err := newReplayDependencies(cfg)
	if err != nil {
		return err
	}
	// Порядок закрытия: producer, consumer, client.
	closers := []interface{ Close() error }{}
	if producer != nil {
		closers = append(closers, producer)
	}
	if consumer != nil {
		closers = append(closers, consumer)
	}
	if client != nil {
		closers = append(closers, client)
	}
	defer func() {
		for _, c := range closers {
			if cerr := c.Close(); cerr != nil {
				log.WithError(cerr).Warn("close kafka resource")
			}
		}
	}()

	_, err = runReplay(ctx, cfg, client, consumer, producer)
	return err
}

type replayStats struct {
	processed int
	replayed  int
	skipped   int
	filtered  int
}

func (s replayStats) fields() log.Fields {
	return log.Fields{
		"processed": s.processed,
		"replayed":  s.replayed,
		"skipped":   s.skipped,
		"filtered":  s.filtered,
	}
}

func (s *replayStats) add(other replayStats) {
	s.processed += other.processed
	s.replayed += other.replayed
	s.skipped += other.skipped
	s.filtered += other.filtered
}

func runReplay(ctx context.Context, cfg config, client offsetClient, consumer partitionConsumerSource, producer replayProducer) (replayStats, error) {
	var total replayStats
	if client == nil || consumer == nil {
		return total, errors.New("kafka client and consumer are required")
	}
	if cfg.execute && producer == nil {
		return total, errors.New("producer is required in execute mode")
	}

	partitions, err := client.Partitions(cfg.sourceTopic)
	if err != nil {
		return total, fmt.Errorf("get partitions for topic %s: %w", cfg.sourceTopic, err)
	}
	if len(partitions) == 0 {
		log.WithField("topic", cfg.sourceTopic).Warn("source topic has no partitions")
		return total, nil
	}
	sort.Slice(partitions, func(i, j int) bool { return partitions[i] < partitions[j] })

	for _, partition := range partitions {
		if total.processed >= cfg.limit {
			break
		}

		stats, err := processPartition(ctx, consumer, client, producer, cfg, partition, cfg.limit-total.processed)
		total.add(stats)
		if err != nil {
			return total, err
		}
	}

	mode := "dry-run"
	if cfg.execute {
		mode = "execute"
	}

	log.WithFields(total.fields()).WithField("mode", mode).Info("dlq replay finished")

	return total, nil
}

func processPartition(
	ctx context.Context,
	consumer partitionConsumerSource,
	client offsetClient,
	producer replayProducer,
	cfg config,
	partition int32,
	limit int,
) (replayStats, error) {
	var stats replayStats
	if limit <= 0 {
		return stats, nil
	}

	oldest, err := client.GetOffset(cfg.sourceTopic, partition, sarama.OffsetOldest)
	if err != nil {
		return stats, fmt.Errorf("get oldest offset for partition %d: %w", partition, err)
	}
	newest, err := client.GetOffset(cfg.sourceTopic, partition, sarama.OffsetNewest)
	if err != nil {
		return stats, fmt.Errorf("get newest offset for partition %d: %w", partition, err)
	}
	startOffset, ok := replayWindow(oldest, newest, limit, cfg.fromNewest)
	if !ok {
		return stats, nil
	}

	pc, err := consumer.ConsumePartition(cfg.sourceTopic, partition, startOffset)
	if err != nil {
		return stats, fmt.Errorf("consume partition %d: %w", partition, err)
	}
	defer func() { _ = pc.Close() }()

	idleTimer := time.NewTimer(cfg.idleTimeout)
	defer idleTimer.Stop()

	for stats.processed < limit {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		case cerr := <-pc.Errors():
			if cerr != nil {
				return stats, fmt.Errorf("partition %d consumer error: %w", partition, cerr)
			}
		case msg, ok := <-pc.Messages():
			if !ok || msg == nil {
				return stats, nil
			}
			if !idleTimer.Stop() {
				select {
				case <-idleTimer.C:
				default:
				}
			}
			idleTimer.Reset(cfg.idleTimeout)

			if msg.Offset >= newest {
				return stats, nil
			}
			stats.processed++

			if err := handleMessage(msg, cfg, producer, &stats); err != nil {
				return stats, err
			}

			if msg.Offset+1 >= newest {
				return stats, nil
			}
		case <-idleTimer.C:
			return stats, nil
		}
	}

	return stats, nil
}

// replayWindow выбирает offset начала чтения; ok=false для пустой партиции.
// fromNewest берёт последние limit сообщений, не выходя за oldest.
func replayWindow(oldest, newest int64, limit int, fromNewest bool) (int64, bool) {
	if newest <= oldest {
		return 0, false
	}
	if !fromNewest {
		return oldest, true
	}
	return max(newest-int64(limit), oldest), true
}

func handleMessage(msg *sarama.ConsumerMessage, cfg config, producer replayProducer, stats *replayStats) error {
	fields := log.Fields{"partition": msg.Partition, "offset": msg.Offset}

	replay, ok, err := extractReplayMessage(msg, cfg.targetTopic)
	if err != nil {
		stats.skipped++
		log.WithError(err).WithFields(fields).Warn("skip unsupported dlq message")
		return nil
	}
	if !ok {
		stats.skipped++
		return nil
	}
	if !cfg.matches(replay) {
		stats.filtered++
		return nil
	}

	fields["target_topic"] = replay.topic
	fields["key"] = replay.key
	fields["event_type"] = replay.eventType

	if !cfg.execute {
		log.WithFields(fields).Info("dlq replay candidate")
		stats.replayed++
		return nil
	}
	if err := publishReplay(producer, replay, cfg.sourceTopic); err != nil {
		return fmt.Errorf("publish replay message: %w", err)
	}
	log.WithFields(fields).Info("dlq message replayed")
	stats.replayed++
	return nil
}

func publishReplay(producer replayProducer, msg replayMessage, sourceTopic string) error {
	if producer == nil {
		return errors.New("producer is nil")
	}

	now := time.Now().UTC()
	headers := []sarama.RecordHeader{
		{Key: []byte(kafka.HeaderOriginalTopic), Value: []byte(sourceTopic)},
		{Key: []byte(kafka.HeaderReplayedAt), Value: []byte(now.Format(time.RFC3339))},
	}
	if msg.retryCount > 0 {
		headers = append(headers, sarama.RecordHeader{Key: []byte(kafka.HeaderRetryCount), Value: []byte(strconv.Itoa(msg.retryCount))})
	}
	if msg.lastError != "" {
		headers = append(headers, sarama.RecordHeader{Key: []byte(kafka.HeaderErrorMessage), Value: []byte(msg.lastError)})
	}

	producerMessage := &sarama.ProducerMessage{
		Topic:     msg.topic,
		Key:       sarama.StringEncoder(msg.key),
		Value:     sarama.ByteEncoder(msg.value),
		Timestamp: now,
		Headers:   headers,
	}

	_, _, err := producer.SendMessage(producerMessage)
	return err
}

// extractReplayMessage распознаёт оба формата DLQ: сообщения consumer-а платёжных
// событий и события outbox, не опубликованные worker-ом.
func extractReplayMessage(msg *sarama.ConsumerMessage, defaultTopic string) (replayMessage, bool, error) {
	if consumerDLQ, err := kafka.ParseDLQMessage(msg); err == nil && consumerDLQ.OriginalValue != "" {
		return replayFromConsumerDLQ(*consumerDLQ), true, nil
	}

	var envelope kafka.OutboxEnvelope
	if err := json.Unmarshal(msg.Value, &envelope); err != nil || len(envelope.Payload) == 0 {
		return replayMessage{}, false, nil
	}

	var letter outbox.DeadLetter
	if err := json.Unmarshal(envelope.Payload, &letter); err != nil {
		return replayMessage{}, false, fmt.Errorf("decode outbox dead letter: %w", err)
	}
	if len(letter.Payload) == 0 {
		return replayMessage{}, false, errors.New("outbox dead letter does not contain original event payload")
	}

	replay := kafka.OutboxEnvelope{
		ID:            firstNonEmpty(letter.OutboxID, envelope.ID),
		AggregateType: firstNonEmpty(letter.AggregateType, envelope.AggregateType),
		AggregateID:   firstNonEmpty(letter.SaleID, envelope.AggregateID),
		EventType:     firstNonEmpty(letter.EventType, envelope.EventType),
		Payload:       letter.Payload,
		PublishedAt:   time.Now().UTC(),
	}
	encoded, err := json.Marshal(replay)
	if err != nil {
		return replayMessage{}, false, fmt.Errorf("encode replay envelope: %w", err)
	}

	return replayMessage{
		topic:     defaultTopic,
		key:       firstNonEmpty(replay.AggregateID, replay.ID),
		value:     encoded,
		saleID:    replay.AggregateID,
		eventType: replay.EventType,
		lastError: letter.PublishError,
	}, true, nil
}

// replayFromConsumerDLQ возвращает платёжное событие в исходный topic.
func replayFromConsumerDLQ(dlq kafka.DLQMessage) replayMessage {
	replay := replayMessage{
		topic:      firstNonEmpty(strings.TrimSpace(dlq.OriginalTopic), kafka.TopicPaymentEvents),
		key:        dlq.OriginalKey,
		value:      []byte(dlq.OriginalValue),
		retryCount: dlq.RetryCount + 1,
		lastError:  dlq.ErrorMessage,
	}
	var event kafka.PaymentEvent
	if err := json.Unmarshal(replay.value, &event); err == nil {
		replay.saleID = event.SaleID
		replay.eventType = string(event.EventType)
	}
	if replay.saleID == "" {
		replay.saleID = replay.key
	}
	return replay
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
