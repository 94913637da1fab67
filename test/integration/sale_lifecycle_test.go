package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/test/bufconn"

	"github.com/vladislavdragonenkov/pos/internal/domain"
	"github.com/vladislavdragonenkov/pos/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/pos/internal/metrics"
	"github.com/vladislavdragonenkov/pos/internal/service/checkout"
	grpcsvc "github.com/vladislavdragonenkov/pos/internal/service/grpc"
	"github.com/vladislavdragonenkov/pos/internal/service/idempotency"
	"github.com/vladislavdragonenkov/pos/internal/service/outbox"
	"github.com/vladislavdragonenkov/pos/internal/storage/memory"
	"github.com/vladislavdragonenkov/pos/internal/transport/httpapi"
	posv1 "github.com/vladislavdragonenkov/pos/proto/pos/v1"
)

// recordingPublisher запоминает события, прошедшие через outbox worker.
type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.OutboxMessage
}

func (p *recordingPublisher) Publish(event domain.OutboxMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) typesFor(saleID string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var types []string
	for _, e := range p.events {
		if e.AggregateID == saleID {
			types = append(types, e.EventType)
		}
	}
	return types
}

// SaleLifecycleTestSuite прогоняет продажу через REST, gRPC, outbox и платёжные события
// поверх общего хранилища в памяти.
type SaleLifecycleTestSuite struct {
	suite.Suite

	products  domain.ProductRepository
	outbox    *memory.OutboxRepository
	sales     *checkout.Service
	worker    *outbox.Worker
	published *recordingPublisher

	httpServer *httptest.Server
	grpcServer *grpc.Server
	grpcConn   *grpc.ClientConn
	client     posv1.SaleServiceClient
}

func (s *SaleLifecycleTestSuite) SetupTest() {
	baseLogger := log.New()
	baseLogger.SetLevel(log.WarnLevel)
	logger := baseLogger.WithField("component", "integration-test")

	s.products = memory.NewProductRepository(
		domain.Product{ID: "cookie-choco", Name: "Cookie Chocolate", Category: "cookies", StockQuantity: 10, CostPrice: 200, SalePrice: 590, Active: true},
		domain.Product{ID: "cafe", Name: "Café", Category: "bebidas", StockQuantity: 5, CostPrice: 100, SalePrice: 500, Active: true},
	)
	promotions := memory.NewPromotionRepository()
	s.outbox = memory.NewOutboxRepository()

	var err error
	s.sales, err = checkout.NewService(checkout.Dependencies{
		Products:   s.products,
		Promotions: promotions,
		Sales:      memory.NewSaleRepository(),
		Outbox:     s.outbox,
		Timeline:   memory.NewTimelineRepository(),
		Metrics:    metrics.NewCheckoutMetricsWithRegisterer(prometheus.NewRegistry()),
		Logger:     logger,
	})
	s.Require().NoError(err)

	guard := idempotency.NewGuard(memory.NewIdempotencyRepository(), time.Hour, logger)

	s.published = &recordingPublisher{}
	s.worker = outbox.NewWorker(s.outbox, s.published, outbox.Config{MaxAttempts: 1, Logger: logger})

	s.httpServer = httptest.NewServer(httpapi.NewHandler(httpapi.Config{
		Sales:  s.sales,
		Guard:  guard,
		Logger: logger,
	}))

	lis := bufconn.Listen(1 << 20)
	s.grpcServer = grpc.NewServer()
	posv1.RegisterSaleServiceServer(s.grpcServer, grpcsvc.NewSaleService(s.sales, guard, logger))
	go func() { _ = s.grpcServer.Serve(lis) }()

	s.grpcConn, err = grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) { return lis.Dial() }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	s.Require().NoError(err)
	s.client = posv1.NewSaleServiceClient(s.grpcConn)
}

func (s *SaleLifecycleTestSuite) TearDownTest() {
	_ = s.grpcConn.Close()
	s.grpcServer.Stop()
	s.httpServer.Close()
}

func (s *SaleLifecycleTestSuite) stock(id string) int {
	p, err := s.products.FindByID(context.Background(), id)
	s.Require().NoError(err)
	return p.StockQuantity
}

func (s *SaleLifecycleTestSuite) postJSON(method, path, body, idempotencyKey string) (*http.Response, map[string]any) {
	req, err := http.NewRequest(method, s.httpServer.URL+path, bytes.NewBufferString(body))
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	var decoded map[string]any
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func withKey(key string) context.Context {
	return metadata.AppendToOutgoingContext(context.Background(), "idempotency-key", key)
}

func (s *SaleLifecycleTestSuite) TestRESTSaleThenGRPCPaymentAndOutbox() {
	resp, receipt := s.postJSON(http.MethodPost, "/vendas",
		`{"itens":[{"produtoId":"cookie-choco","quantidade":2},{"produtoId":"cafe","quantidade":1}]}`, "rest-1")
	s.Require().Equal(http.StatusCreated, resp.StatusCode, receipt)
	s.Require().EqualValues(1680, receipt["totalPagoEmCentavos"])
	s.Require().Equal("R$ 16,80", receipt["totalFormatado"])
	saleID, _ := receipt["vendaId"].(string)
	s.Require().NotEmpty(saleID)

	s.Require().Equal(8, s.stock("cookie-choco"))
	s.Require().Equal(4, s.stock("cafe"))

	paid, err := s.client.ConfirmPayment(withKey("pay-1"), &posv1.ConfirmPaymentRequest{SaleId: saleID})
	s.Require().NoError(err)
	s.Require().Equal(posv1.SaleStatus_SALE_STATUS_PAID, paid.GetSale().GetStatus())

	got, err := s.client.GetSale(context.Background(), &posv1.GetSaleRequest{SaleId: saleID})
	s.Require().NoError(err)
	s.Require().EqualValues(1680, got.Sale.TotalCents)
	s.Require().Len(got.Sale.Lines, 2)
	s.Require().NotEmpty(got.Timeline)

	result := s.worker.ProcessOnce(context.Background())
	s.Require().Zero(result.Failed)
	types := s.published.typesFor(saleID)
	s.Require().Contains(types, domain.TimelineSaleCreated)
	s.Require().Contains(types, domain.TimelineSalePaid)

	stats, err := s.outbox.Stats(context.Background())
	s.Require().NoError(err)
	s.Require().Zero(stats.PendingCount)
}

func (s *SaleLifecycleTestSuite) TestGRPCSaleCancelledByPaymentGateway() {
	created, err := s.client.CreateSale(withKey("grpc-1"), &posv1.CreateSaleRequest{
		Items: []*posv1.CartItem{{ProductId: "cookie-choco", Quantity: 3}},
	})
	s.Require().NoError(err)
	saleID := created.Sale.GetId()
	s.Require().Equal(7, s.stock("cookie-choco"))

	handler := kafka.NewPaymentEventHandler(s.sales, nil)
	payload, err := json.Marshal(kafka.PaymentEvent{
		EventType: kafka.EventTypePaymentCancelled,
		SaleID:    saleID,
		Reason:    "card declined",
		Timestamp: time.Now().UTC(),
	})
	s.Require().NoError(err)
	s.Require().NoError(handler(context.Background(), &sarama.ConsumerMessage{
		Topic: kafka.TopicPaymentEvents,
		Key:   []byte(saleID),
		Value: payload,
	}))

	resp, body := s.postJSON(http.MethodGet, "/vendas/"+saleID, "", "")
	s.Require().Equal(http.StatusOK, resp.StatusCode, body)
	s.Require().Equal(string(domain.SaleStatusCancelled), body["status"])

	// Отмена не возвращает товар на склад.
	s.Require().Equal(7, s.stock("cookie-choco"))

	// Подтверждение после отмены — постоянная ошибка, consumer отправит сообщение в DLQ.
	confirm, err := json.Marshal(kafka.PaymentEvent{EventType: kafka.EventTypePaymentConfirmed, SaleID: saleID})
	s.Require().NoError(err)
	err = handler(context.Background(), &sarama.ConsumerMessage{Topic: kafka.TopicPaymentEvents, Value: confirm})
	var permanent *kafka.PermanentError
	s.Require().ErrorAs(err, &permanent)
}

func (s *SaleLifecycleTestSuite) TestIdempotencyIsSharedAcrossRetries() {
	body := `{"itens":[{"produtoId":"cafe","quantidade":2}]}`

	first, receipt := s.postJSON(http.MethodPost, "/vendas", body, "same-key")
	s.Require().Equal(http.StatusCreated, first.StatusCode)
	second, replay := s.postJSON(http.MethodPost, "/vendas", body, "same-key")
	s.Require().Equal(http.StatusCreated, second.StatusCode)
	s.Require().Equal(receipt["vendaId"], replay["vendaId"])
	s.Require().Equal(3, s.stock("cafe"))

	conflict, _ := s.postJSON(http.MethodPost, "/vendas", `{"itens":[{"produtoId":"cafe","quantidade":1}]}`, "same-key")
	s.Require().Equal(http.StatusConflict, conflict.StatusCode)
}

func (s *SaleLifecycleTestSuite) TestInsufficientStockLeavesNoTrace() {
	_, err := s.client.CreateSale(withKey("grpc-big"), &posv1.CreateSaleRequest{
		Items: []*posv1.CartItem{{ProductId: "cookie-choco", Quantity: 1}, {ProductId: "cafe", Quantity: 50}},
	})
	s.Require().Error(err)

	s.Require().Equal(10, s.stock("cookie-choco"))
	s.Require().Equal(5, s.stock("cafe"))

	list, err := s.client.ListSales(context.Background(), &posv1.ListSalesRequest{})
	s.Require().NoError(err)
	s.Require().Empty(list.Sales)
}

func TestSaleLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("integration suite skipped in short mode")
	}
	suite.Run(t, new(SaleLifecycleTestSuite))
}

func TestRecordingPublisher(t *testing.T) {
	p := &recordingPublisher{}
	require.NoError(t, p.Publish(domain.OutboxMessage{AggregateID: "a", EventType: "SaleCreated"}))
	require.NoError(t, p.Publish(domain.OutboxMessage{AggregateID: "b", EventType: "SalePaid"}))
	require.Equal(t, []string{"SaleCreated"}, p.typesFor("a"))
}
