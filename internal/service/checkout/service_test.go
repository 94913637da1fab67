package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/pos/internal/domain"
	"github.com/vladislavdragonenkov/pos/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/pos/internal/metrics"
	"github.com/vladislavdragonenkov/pos/internal/service/pricing"
	"github.com/vladislavdragonenkov/pos/internal/storage/memory"
)

// flakyProducts позволяет ронять списание/возврат конкретных товаров.
type flakyProducts struct {
	domain.ProductRepository

	mu             sync.Mutex
	decrementErr   map[string]error
	incrementErr   map[string]error
	incrementCalls map[string]int
	findByIDsCalls int
	onDecrement    func(id string)
}

func newFlakyProducts(seed ...domain.Product) *flakyProducts {
	return &flakyProducts{
		ProductRepository: memory.NewProductRepository(seed...),
		decrementErr:      map[string]error{},
		incrementErr:      map[string]error{},
		incrementCalls:    map[string]int{},
	}
}

func (f *flakyProducts) FindByIDs(ctx context.Context, ids []string) ([]domain.Product, error) {
	f.mu.Lock()
	f.findByIDsCalls++
	f.mu.Unlock()
	return f.ProductRepository.FindByIDs(ctx, ids)
}

func (f *flakyProducts) DecrementStock(ctx context.Context, id string, qty int) error {
	f.mu.Lock()
	err := f.decrementErr[id]
	hook := f.onDecrement
	f.mu.Unlock()
	if hook != nil {
		hook(id)
	}
	if err != nil {
		return err
	}
	return f.ProductRepository.DecrementStock(ctx, id, qty)
}

func (f *flakyProducts) IncrementStock(ctx context.Context, id string, qty int) error {
	f.mu.Lock()
	f.incrementCalls[id]++
	err := f.incrementErr[id]
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.ProductRepository.IncrementStock(ctx, id, qty)
}

// countingSales считает вызовы Create и позволяет ронять Delete.
type countingSales struct {
	domain.SaleRepository

	createCalls atomic.Int32
	deleteErr   error
}

func (c *countingSales) Create(ctx context.Context, sale domain.Sale) error {
	c.createCalls.Add(1)
	return c.SaleRepository.Create(ctx, sale)
}

func (c *countingSales) Delete(ctx context.Context, id string) error {
	if c.deleteErr != nil {
		return c.deleteErr
	}
	return c.SaleRepository.Delete(ctx, id)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []kafka.EventType
	err    error
}

func (r *recordingPublisher) PublishEvent(topic, key string, event interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if e, ok := event.(*kafka.SagaEvent); ok {
		r.events = append(r.events, e.EventType)
	}
	return nil
}

type fixture struct {
	svc       *Service
	products  *flakyProducts
	sales     *countingSales
	outbox    *memory.OutboxRepository
	timeline  domain.TimelineRepository
	publisher *recordingPublisher
}

func cookie(id string, price domain.Money, stock int) domain.Product {
	return domain.Product{
		ID:            id,
		Name:          "Cookie " + id,
		Category:      "cookies",
		StockQuantity: stock,
		CostPrice:     200,
		SalePrice:     price,
		Active:        true,
	}
}

func newFixture(t *testing.T, promotions []domain.Promotion, products ...domain.Product) *fixture {
	t.Helper()

	f := &fixture{
		products:  newFlakyProducts(products...),
		sales:     &countingSales{SaleRepository: memory.NewSaleRepository()},
		outbox:    memory.NewOutboxRepository(),
		timeline:  memory.NewTimelineRepository(),
		publisher: &recordingPublisher{},
	}
	logger := log.New()
	logger.SetLevel(log.PanicLevel)

	svc, err := NewService(Dependencies{
		Products:   f.products,
		Promotions: memory.NewPromotionRepository(promotions...),
		Sales:      f.sales,
		Outbox:     f.outbox,
		Timeline:   f.timeline,
		Metrics:    metrics.NewCheckoutMetricsWithRegisterer(prometheus.NewRegistry()),
		Events:     f.publisher,
		Logger:     logger.WithField("component", "checkout-test"),
		Retry:      RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 2},
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *fixture) stock(t *testing.T, id string) int {
	t.Helper()
	p, err := f.products.FindByID(context.Background(), id)
	require.NoError(t, err)
	return p.StockQuantity
}

func timelineTypes(t *testing.T, repo domain.TimelineRepository, saleID string) []string {
	t.Helper()
	events, err := repo.List(context.Background(), saleID)
	require.NoError(t, err)
	types := make([]string, 0, len(events))
	for _, e := range events {
		types = append(types, e.Type)
	}
	return types
}

func TestNewServiceRequiresRepositories(t *testing.T) {
	_, err := NewService(Dependencies{})
	require.Error(t, err)
}

func TestCreateSaleSimpleCart(t *testing.T) {
	f := newFixture(t, nil, cookie("p", 590, 10))

	receipt, err := f.svc.CreateSale(context.Background(), Cart{Items: []CartItem{{ProductID: "p", Quantity: 2}}})
	require.NoError(t, err)

	require.NotEmpty(t, receipt.SaleID)
	require.Equal(t, domain.Money(1180), receipt.Total)
	require.Equal(t, "R$ 11,80", receipt.TotalFormatted)
	require.Equal(t, domain.SaleStatusPending, receipt.Status)
	require.Len(t, receipt.Lines, 1)
	require.Equal(t, 2, receipt.Lines[0].Quantity)
	require.Equal(t, domain.Money(1180), receipt.Lines[0].AmountPaid)
	require.Equal(t, 8, f.stock(t, "p"))

	sale, err := f.sales.FindByID(context.Background(), receipt.SaleID)
	require.NoError(t, err)
	require.Empty(t, sale.ValidateInvariants())

	require.Equal(t, []string{domain.TimelineStockCommitted, domain.TimelineSaleCreated}, timelineTypes(t, f.timeline, receipt.SaleID))
	pending := f.outbox.AllPending()
	require.Len(t, pending, 1)
	require.Equal(t, domain.TimelineSaleCreated, pending[0].EventType)
	require.Equal(t, []kafka.EventType{kafka.EventTypeSagaStarted, kafka.EventTypeSagaCompleted}, f.publisher.events)
}

func TestCreateSaleStampsEventsWithEmissionTime(t *testing.T) {
	f := newFixture(t, nil, cookie("p", 590, 10))
	base := time.Date(2026, 4, 2, 15, 0, 0, 0, time.UTC)
	tick := 0
	f.svc.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	receipt, err := f.svc.CreateSale(context.Background(), Cart{Items: []CartItem{{ProductID: "p", Quantity: 1}}})
	require.NoError(t, err)

	sale, err := f.sales.FindByID(context.Background(), receipt.SaleID)
	require.NoError(t, err)
	events, err := f.timeline.List(context.Background(), receipt.SaleID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	committed, created := events[0], events[1]
	require.Equal(t, domain.TimelineStockCommitted, committed.Type)
	require.Equal(t, domain.TimelineSaleCreated, created.Type)
	require.True(t, committed.Occurred.After(sale.CreatedAt))
	require.True(t, created.Occurred.After(committed.Occurred), "sale created is stamped when emitted, not with the sale's creation time")

	pending := f.outbox.AllPending()
	require.Len(t, pending, 1)
	var payload struct {
		OccurredAt time.Time `json:"occurred_at"`
	}
	require.NoError(t, json.Unmarshal(pending[0].Payload, &payload))
	require.True(t, payload.OccurredAt.Equal(created.Occurred))
}

func TestCreateSaleFamilyTier(t *testing.T) {
	f := newFixture(t, nil, cookie("p", 590, 10))

	receipt, err := f.svc.CreateSale(context.Background(), Cart{
		Items:   []CartItem{{ProductID: "p", Quantity: 3}},
		Toggles: pricing.Toggles{Family: true},
	})
	require.NoError(t, err)

	require.Equal(t, domain.Money(1260), receipt.Total)
	require.Len(t, receipt.Lines, 2)
	require.Equal(t, 2, receipt.Lines[0].Quantity)
	require.Equal(t, domain.Money(800), receipt.Lines[0].AmountPaid)
	require.Equal(t, 1, receipt.Lines[1].Quantity)
	require.Equal(t, domain.Money(460), receipt.Lines[1].AmountPaid)
	require.Equal(t, 7, f.stock(t, "p"))
}

func TestCreateSaleBundleRule(t *testing.T) {
	rule := domain.Promotion{
		ID:               "promo-2for10",
		Name:             "2 por R$ 10,00",
		Active:           true,
		Kind:             domain.PromotionFixedPriceBundle,
		TargetCategory:   "cookies",
		MinimumItems:     2,
		FixedBundlePrice: 1000,
	}
	f := newFixture(t, []domain.Promotion{rule}, cookie("a", 700, 5), cookie("b", 700, 5))

	receipt, err := f.svc.CreateSale(context.Background(), Cart{Items: []CartItem{
		{ProductID: "a", Quantity: 2},
		{ProductID: "b", Quantity: 1},
	}})
	require.NoError(t, err)
	require.Equal(t, domain.Money(1700), receipt.Total)
	require.Equal(t, 3, f.stock(t, "a"))
	require.Equal(t, 4, f.stock(t, "b"))
}

func TestCreateSaleUnknownProduct(t *testing.T) {
	f := newFixture(t, nil, cookie("p", 590, 10))

	_, err := f.svc.CreateSale(context.Background(), Cart{Items: []CartItem{
		{ProductID: "p", Quantity: 1},
		{ProductID: "ghost", Quantity: 1},
	}})
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.ErrorIs(t, err, domain.ErrProductNotFound)
	require.Zero(t, f.sales.createCalls.Load())
	require.Equal(t, 10, f.stock(t, "p"))
}

func TestCreateSaleInsufficientStockBeforePersist(t *testing.T) {
	f := newFixture(t, nil, cookie("p", 590, 3))

	_, err := f.svc.CreateSale(context.Background(), Cart{Items: []CartItem{{ProductID: "p", Quantity: 5}}})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	var stockErr *domain.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	require.Equal(t, 3, stockErr.Available)
	require.Equal(t, 5, stockErr.Requested)
	require.Equal(t, "Cookie p", stockErr.ProductName)

	require.Zero(t, f.sales.createCalls.Load())
	require.Equal(t, 3, f.stock(t, "p"))
}

func TestCreateSaleDuplicateEntriesSummedInPreflight(t *testing.T) {
	f := newFixture(t, nil, cookie("p", 590, 3))

	_, err := f.svc.CreateSale(context.Background(), Cart{Items: []CartItem{
		{ProductID: "p", Quantity: 2},
		{ProductID: "p", Quantity: 2},
	}})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	require.Zero(t, f.sales.createCalls.Load())

	receipt, err := f.svc.CreateSale(context.Background(), Cart{Items: []CartItem{
		{ProductID: "p", Quantity: 1},
		{ProductID: "p", Quantity: 2},
	}})
	require.NoError(t, err)
	require.Equal(t, domain.Money(1770), receipt.Total)
	require.Equal(t, 0, f.stock(t, "p"))
}

func TestCreateSaleRejectsInvalidCart(t *testing.T) {
	f := newFixture(t, nil, cookie("p", 590, 3))

	cases := map[string]Cart{
		"empty":         {},
		"zero quantity": {Items: []CartItem{{ProductID: "p", Quantity: 0}}},
		"negative":      {Items: []CartItem{{ProductID: "p", Quantity: -1}}},
		"blank product": {Items: []CartItem{{ProductID: "", Quantity: 1}}},
	}
	for name, cart := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.CreateSale(context.Background(), cart)
			require.ErrorIs(t, err, domain.ErrInvalidArgument)
		})
	}
	require.Zero(t, f.products.findByIDsCalls)
}

func TestCreateSaleCompensatesFailedCommit(t *testing.T) {
	f := newFixture(t, nil, cookie("a", 590, 5), cookie("b", 650, 5), cookie("c", 700, 5))
	f.products.decrementErr["c"] = errors.New("db unavailable")

	_, err := f.svc.CreateSale(context.Background(), Cart{Items: []CartItem{
		{ProductID: "a", Quantity: 2},
		{ProductID: "b", Quantity: 1},
		{ProductID: "c", Quantity: 1},
	}})
	require.ErrorIs(t, err, domain.ErrStockReconciliation)

	var recErr *domain.StockReconciliationError
	require.True(t, errors.As(err, &recErr))
	require.False(t, recErr.Degraded)
	require.True(t, recErr.SaleDeleted)
	require.Equal(t, []string{"a", "b"}, recErr.Applied)
	require.ElementsMatch(t, []string{"a", "b"}, recErr.Restored)
	require.Equal(t, []string{"c"}, recErr.NotApplied)
	require.EqualError(t, errors.Unwrap(err), "db unavailable")

	require.Equal(t, 5, f.stock(t, "a"))
	require.Equal(t, 5, f.stock(t, "b"))
	require.Equal(t, 5, f.stock(t, "c"))

	_, err = f.sales.FindByID(context.Background(), recErr.SaleID)
	require.ErrorIs(t, err, domain.ErrSaleNotFound)

	types := timelineTypes(t, f.timeline, recErr.SaleID)
	require.Equal(t, []string{
		domain.TimelineStockCommitFailed,
		domain.TimelineStockRestored,
		domain.TimelineStockRestored,
		domain.TimelineSaleDeleted,
	}, types)

	pending := f.outbox.AllPending()
	require.Len(t, pending, 1)
	require.Equal(t, "SaleCompensated", pending[0].EventType)
	require.Contains(t, f.publisher.events, kafka.EventTypeSagaCompensated)
}

func TestCreateSaleDegradedCompensation(t *testing.T) {
	f := newFixture(t, nil, cookie("a", 590, 5), cookie("b", 650, 5))
	f.products.decrementErr["b"] = errors.New("db unavailable")
	f.products.incrementErr["a"] = errors.New("still unavailable")
	f.sales.deleteErr = errors.New("delete failed")

	_, err := f.svc.CreateSale(context.Background(), Cart{Items: []CartItem{
		{ProductID: "a", Quantity: 2},
		{ProductID: "b", Quantity: 1},
	}})

	var recErr *domain.StockReconciliationError
	require.True(t, errors.As(err, &recErr))
	require.True(t, recErr.Degraded)
	require.False(t, recErr.SaleDeleted)
	require.Empty(t, recErr.Restored)
	require.Contains(t, err.Error(), "manual reconciliation required")

	// Повтор с backoff: MaxAttempts = 2.
	require.Equal(t, 2, f.products.incrementCalls["a"])
	require.Equal(t, 3, f.stock(t, "a"))

	types := timelineTypes(t, f.timeline, recErr.SaleID)
	require.Equal(t, []string{
		domain.TimelineStockCommitFailed,
		domain.TimelineCompensationFailed,
		domain.TimelineCompensationFailed,
	}, types)
	require.Contains(t, f.publisher.events, kafka.EventTypeSagaFailed)
}

func TestCreateSaleConcurrentOverdraftRejectedAtCommit(t *testing.T) {
	f := newFixture(t, nil, cookie("a", 590, 5), cookie("b", 650, 1))

	// Конкурирующая продажа забирает последний "b" между preflight и списанием.
	var once sync.Once
	f.products.onDecrement = func(id string) {
		if id != "b" {
			return
		}
		once.Do(func() {
			require.NoError(t, f.products.ProductRepository.DecrementStock(context.Background(), "b", 1))
		})
	}

	_, err := f.svc.CreateSale(context.Background(), Cart{Items: []CartItem{
		{ProductID: "a", Quantity: 1},
		{ProductID: "b", Quantity: 1},
	}})
	require.ErrorIs(t, err, domain.ErrStockReconciliation)
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	require.Equal(t, 5, f.stock(t, "a"))
	require.Equal(t, 0, f.stock(t, "b"))
}

func TestCreateSaleParallelNeverOversells(t *testing.T) {
	f := newFixture(t, nil, cookie("p", 590, 5))

	var wg sync.WaitGroup
	var succeeded atomic.Int32
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.CreateSale(context.Background(), Cart{Items: []CartItem{{ProductID: "p", Quantity: 1}}}); err == nil {
				succeeded.Add(1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int32(5), succeeded.Load())
	require.Equal(t, 0, f.stock(t, "p"))
}

func TestCreateSaleCancelledBeforePersist(t *testing.T) {
	f := newFixture(t, nil, cookie("p", 590, 5))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.CreateSale(ctx, Cart{Items: []CartItem{{ProductID: "p", Quantity: 1}}})
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, f.sales.createCalls.Load())
	require.Equal(t, 5, f.stock(t, "p"))
}

func TestCreateSaleCancelledDuringCommit(t *testing.T) {
	f := newFixture(t, nil, cookie("a", 590, 5), cookie("b", 650, 5))
	ctx, cancel := context.WithCancel(context.Background())
	f.products.onDecrement = func(id string) {
		if id == "a" {
			cancel()
		}
	}

	_, err := f.svc.CreateSale(ctx, Cart{Items: []CartItem{
		{ProductID: "a", Quantity: 2},
		{ProductID: "b", Quantity: 1},
	}})

	var recErr *domain.StockReconciliationError
	require.True(t, errors.As(err, &recErr))
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, recErr.Degraded)
	require.Equal(t, []string{"a"}, recErr.Applied)
	require.Equal(t, 5, f.stock(t, "a"))
	require.Equal(t, 5, f.stock(t, "b"))
}

func TestCreateSaleSurvivesKafkaOutage(t *testing.T) {
	f := newFixture(t, nil, cookie("p", 590, 5))
	f.publisher.err = errors.New("broker down")

	receipt, err := f.svc.CreateSale(context.Background(), Cart{Items: []CartItem{{ProductID: "p", Quantity: 1}}})
	require.NoError(t, err)
	require.Equal(t, domain.Money(590), receipt.Total)
}

func TestConfirmPayment(t *testing.T) {
	f := newFixture(t, nil, cookie("p", 590, 5))
	ctx := context.Background()

	receipt, err := f.svc.CreateSale(ctx, Cart{Items: []CartItem{{ProductID: "p", Quantity: 1}}})
	require.NoError(t, err)

	sale, err := f.svc.ConfirmPayment(ctx, receipt.SaleID)
	require.NoError(t, err)
	require.Equal(t, domain.SaleStatusPaid, sale.Status)

	_, err = f.svc.ConfirmPayment(ctx, receipt.SaleID)
	require.ErrorIs(t, err, domain.ErrInvalidStateTransition)

	details, err := f.svc.GetSale(ctx, receipt.SaleID)
	require.NoError(t, err)
	require.Equal(t, domain.SaleStatusPaid, details.Sale.Status)
	require.Equal(t, domain.TimelineSalePaid, details.Timeline[len(details.Timeline)-1].Type)

	_, err = f.svc.ConfirmPayment(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrSaleNotFound)
}

func TestCancelSaleIsIdempotentAndKeepsStock(t *testing.T) {
	f := newFixture(t, nil, cookie("p", 590, 5))
	ctx := context.Background()

	receipt, err := f.svc.CreateSale(ctx, Cart{Items: []CartItem{{ProductID: "p", Quantity: 2}}})
	require.NoError(t, err)

	sale, err := f.svc.CancelSale(ctx, receipt.SaleID, "cliente desistiu")
	require.NoError(t, err)
	require.Equal(t, domain.SaleStatusCancelled, sale.Status)

	again, err := f.svc.CancelSale(ctx, receipt.SaleID, "again")
	require.NoError(t, err)
	require.Equal(t, domain.SaleStatusCancelled, again.Status)
	require.Equal(t, sale.Version, again.Version)

	require.Equal(t, 3, f.stock(t, "p"))

	events, err := f.svc.Timeline(ctx, receipt.SaleID)
	require.NoError(t, err)
	cancelled := 0
	for _, e := range events {
		if e.Type == domain.TimelineSaleCancelled {
			cancelled++
			require.Equal(t, "cliente desistiu", e.Reason)
		}
	}
	require.Equal(t, 1, cancelled)
}

// conflictingSales возвращает конфликт версий на первых N сохранениях.
type conflictingSales struct {
	domain.SaleRepository
	conflicts int
}

func (c *conflictingSales) Save(ctx context.Context, sale domain.Sale) error {
	if c.conflicts > 0 {
		c.conflicts--
		return domain.ErrSaleVersionConflict
	}
	return c.SaleRepository.Save(ctx, sale)
}

func TestConfirmPaymentRetriesVersionConflict(t *testing.T) {
	sales := &conflictingSales{SaleRepository: memory.NewSaleRepository(), conflicts: 2}
	svc, err := NewService(Dependencies{
		Products:   memory.NewProductRepository(),
		Promotions: memory.NewPromotionRepository(),
		Sales:      sales,
	})
	require.NoError(t, err)

	ctx := context.Background()
	sale := domain.NewSale("s-1", []domain.SaleLine{{ID: "l", ProductID: "p", Quantity: 1, UnitPrice: 100, TotalPaid: 100}}, time.Now())
	require.NoError(t, sales.Create(ctx, sale))

	paid, err := svc.ConfirmPayment(ctx, "s-1")
	require.NoError(t, err)
	require.Equal(t, domain.SaleStatusPaid, paid.Status)

	sales.conflicts = statusUpdateRetries
	_, err = svc.CancelSale(ctx, "s-1", "x")
	require.ErrorIs(t, err, domain.ErrSaleVersionConflict)
}

func TestListSalesNewestFirst(t *testing.T) {
	f := newFixture(t, nil, cookie("p", 590, 10))
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	tick := 0
	f.svc.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	var ids []string
	for i := 0; i < 3; i++ {
		r, err := f.svc.CreateSale(ctx, Cart{Items: []CartItem{{ProductID: "p", Quantity: 1}}})
		require.NoError(t, err)
		ids = append(ids, r.SaleID)
	}

	sales, err := f.svc.ListSales(ctx, 2)
	require.NoError(t, err)
	require.Len(t, sales, 2)
	require.Equal(t, ids[2], sales[0].ID)
	require.Equal(t, ids[1], sales[1].ID)

	all, err := f.svc.ListSales(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestFailureReason(t *testing.T) {
	require.Equal(t, "not_found", failureReason(domain.ErrProductNotFound))
	require.Equal(t, "insufficient_stock", failureReason(&domain.InsufficientStockError{}))
	require.Equal(t, "cancelled", failureReason(context.DeadlineExceeded))
	require.Equal(t, "internal", failureReason(fmt.Errorf("load: %w", errors.New("boom"))))
}
