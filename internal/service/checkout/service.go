// Package checkout оформляет продажу: тарификация корзины, сохранение чека,
// списание остатков и компенсация при сбое списания.
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pos/internal/domain"
	"github.com/vladislavdragonenkov/pos/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/pos/internal/metrics"
	"github.com/vladislavdragonenkov/pos/internal/service/pricing"
)

const (
	defaultCommitTimeout = 10 * time.Second
	defaultListLimit     = 50
	maxListLimit         = 200
	statusUpdateRetries  = 3
	statusRetryBaseDelay = 10 * time.Millisecond
)

// CartItem — строка корзины.
type CartItem struct {
	ProductID string
	Quantity  int
}

// Cart — корзина кассира вместе с выбранными ценовыми уровнями.
type Cart struct {
	Items   []CartItem
	Toggles pricing.Toggles
}

// ReceiptLine — строка чека для ответа клиенту.
type ReceiptLine struct {
	ProductID           string
	ProductName         string
	Quantity            int
	AmountPaid          domain.Money
	AmountPaidFormatted string
}

// Receipt — результат успешного оформления.
type Receipt struct {
	SaleID         string
	Total          domain.Money
	TotalFormatted string
	Status         domain.SaleStatus
	Lines          []ReceiptLine
}

// SaleDetails — продажа вместе с её историей.
type SaleDetails struct {
	Sale     domain.Sale
	Timeline []domain.TimelineEvent
}

// EventPublisher публикует события в брокер. *kafka.Producer удовлетворяет интерфейсу.
type EventPublisher interface {
	PublishEvent(topic, key string, event interface{}) error
}

// Dependencies — зависимости сервиса. Products, Promotions и Sales обязательны.
type Dependencies struct {
	Products   domain.ProductRepository
	Promotions domain.PromotionRepository
	Sales      domain.SaleRepository
	Outbox     domain.OutboxRepository
	Timeline   domain.TimelineRepository
	Engine     *pricing.Engine
	Metrics    *metrics.CheckoutMetrics
	Events     EventPublisher
	// Breaker ограничивает публикацию saga-событий; при nil используется breaker по умолчанию.
	Breaker *CircuitBreaker
	Logger  *log.Entry
	Retry   RetryConfig
	// CommitTimeout ограничивает списание и компенсацию, которые не зависят от отмены запроса.
	CommitTimeout time.Duration
	Now           func() time.Time
	NewID         func() string
}

// Service реализует оформление и жизненный цикл продажи.
type Service struct {
	products      domain.ProductRepository
	promotions    domain.PromotionRepository
	sales         domain.SaleRepository
	outbox        domain.OutboxRepository
	timeline      domain.TimelineRepository
	engine        *pricing.Engine
	metrics       *metrics.CheckoutMetrics
	events        EventPublisher
	breaker       *CircuitBreaker
	logger        *log.Entry
	retry         RetryConfig
	commitTimeout time.Duration
	now           func() time.Time
	newID         func() string
}

// NewService собирает сервис, подставляя значения по умолчанию.
func NewService(deps Dependencies) (*Service, error) {
	if deps.Products == nil || deps.Promotions == nil || deps.Sales == nil {
		return nil, errors.New("checkout: products, promotions and sales repositories are required")
	}
	s := &Service{
		products:      deps.Products,
		promotions:    deps.Promotions,
		sales:         deps.Sales,
		outbox:        deps.Outbox,
		timeline:      deps.Timeline,
		engine:        deps.Engine,
		metrics:       deps.Metrics,
		events:        deps.Events,
		breaker:       deps.Breaker,
		logger:        deps.Logger,
		retry:         deps.Retry,
		commitTimeout: deps.CommitTimeout,
		now:           deps.Now,
		newID:         deps.NewID,
	}
	if s.engine == nil {
		s.engine = pricing.NewEngine()
	}
	if s.logger == nil {
		s.logger = log.New().WithField("component", "checkout")
	}
	if s.retry.MaxAttempts <= 0 {
		s.retry = DefaultRetryConfig()
	}
	if s.breaker == nil {
		s.breaker = NewCircuitBreaker(5, 30*time.Second, s.logger.WithField("breaker", "saga-events"))
	}
	if s.commitTimeout <= 0 {
		s.commitTimeout = defaultCommitTimeout
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s, nil
}

// CreateSale тарифицирует корзину, сохраняет продажу и списывает остатки.
// Если списание падает после сохранения, уже списанные позиции возвращаются,
// продажа удаляется, а вызывающий получает *domain.StockReconciliationError.
func (s *Service) CreateSale(ctx context.Context, cart Cart) (Receipt, error) {
	start := time.Now()
	s.metrics.CheckoutStarted()
	defer func() { s.metrics.CheckoutFinished(time.Since(start)) }()

	if err := validateCart(cart); err != nil {
		s.metrics.SaleFailed("invalid_cart")
		return Receipt{}, err
	}

	products, err := s.resolve(ctx, cart)
	if err != nil {
		s.metrics.SaleFailed(failureReason(err))
		return Receipt{}, err
	}

	if err := s.preflight(cart, products); err != nil {
		s.metrics.SaleFailed("insufficient_stock")
		return Receipt{}, err
	}

	result, err := s.price(ctx, cart, products)
	if err != nil {
		s.metrics.SaleFailed(failureReason(err))
		return Receipt{}, err
	}

	if err := ctx.Err(); err != nil {
		s.metrics.SaleFailed("cancelled")
		return Receipt{}, err
	}

	sale := domain.NewSale(s.newID(), result.Lines, s.now())
	logger := s.logger.WithField("sale_id", sale.ID)

	stepStart := time.Now()
	if err := s.sales.Create(ctx, sale); err != nil {
		s.metrics.SaleFailed("persist")
		logger.WithError(err).Error("persist sale failed")
		return Receipt{}, fmt.Errorf("persist sale: %w", err)
	}
	s.metrics.StepDuration(string(domain.CheckoutStepPersist), time.Since(stepStart))
	s.publishSagaEvent(kafka.EventTypeSagaStarted, sale.ID, map[string]interface{}{
		"total_cents": int64(sale.Total),
		"lines":       len(sale.Lines),
	})

	if err := ctx.Err(); err != nil {
		// Продажа сохранена, но списание ещё не начиналось: убираем её.
		return Receipt{}, s.compensate(ctx, sale, cart, 0, err)
	}

	if err := s.commit(ctx, sale, cart); err != nil {
		return Receipt{}, err
	}

	// SaleCreated фиксирует завершённое оформление, поэтому идёт после StockCommitted.
	s.emitEvent(ctx, sale.ID, domain.TimelineSaleCreated, s.now(), map[string]interface{}{
		"status":      sale.Status,
		"total_cents": int64(sale.Total),
	})
	s.publishSagaEvent(kafka.EventTypeSagaCompleted, sale.ID, map[string]interface{}{
		"status": string(sale.Status),
	})
	s.metrics.SaleCreated(int64(sale.Total))

	logger.WithFields(log.Fields{
		"total": sale.FormattedTotal(),
		"lines": len(sale.Lines),
	}).Info("sale created")

	return newReceipt(sale), nil
}

func validateCart(cart Cart) error {
	if len(cart.Items) == 0 {
		return fmt.Errorf("%w: cart is empty", domain.ErrInvalidArgument)
	}
	for _, item := range cart.Items {
		if item.ProductID == "" {
			return fmt.Errorf("%w: product id is required", domain.ErrInvalidArgument)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: quantity for %s must be positive, got %d", domain.ErrInvalidArgument, item.ProductID, item.Quantity)
		}
	}
	return nil
}

// resolve загружает все товары корзины; отсутствие любого из них прерывает оформление.
func (s *Service) resolve(ctx context.Context, cart Cart) (map[string]domain.Product, error) {
	start := time.Now()
	defer func() { s.metrics.StepDuration(string(domain.CheckoutStepResolve), time.Since(start)) }()

	ids := make([]string, 0, len(cart.Items))
	seen := make(map[string]struct{}, len(cart.Items))
	for _, item := range cart.Items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}

	found, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	products := make(map[string]domain.Product, len(found))
	for _, p := range found {
		products[p.ID] = p
	}
	for _, id := range ids {
		if _, ok := products[id]; !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrProductNotFound, id)
		}
	}
	return products, nil
}

// preflight сверяет суммарное запрошенное количество с остатком до любых изменений.
func (s *Service) preflight(cart Cart, products map[string]domain.Product) error {
	start := time.Now()
	defer func() { s.metrics.StepDuration(string(domain.CheckoutStepPreflight), time.Since(start)) }()

	requested := make(map[string]int, len(products))
	order := make([]string, 0, len(products))
	for _, item := range cart.Items {
		if _, ok := requested[item.ProductID]; !ok {
			order = append(order, item.ProductID)
		}
		requested[item.ProductID] += item.Quantity
	}
	for _, id := range order {
		p := products[id]
		if requested[id] > p.StockQuantity {
			return &domain.InsufficientStockError{
				ProductID:   p.ID,
				ProductName: p.Name,
				Available:   p.StockQuantity,
				Requested:   requested[id],
			}
		}
	}
	return nil
}

func (s *Service) price(ctx context.Context, cart Cart, products map[string]domain.Product) (pricing.Result, error) {
	start := time.Now()
	defer func() { s.metrics.StepDuration(string(domain.CheckoutStepPrice), time.Since(start)) }()

	items := make([]pricing.Item, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, pricing.Item{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	units, err := pricing.ExpandUnits(products, items)
	if err != nil {
		return pricing.Result{}, err
	}
	rules, err := s.promotions.FindActive(ctx)
	if err != nil {
		return pricing.Result{}, fmt.Errorf("load promotions: %w", err)
	}
	return s.engine.Price(units, rules, cart.Toggles), nil
}

// commit списывает остатки по строкам корзины. Операции идут в контексте без отмены:
// отмена запроса посреди списания приводит к компенсации, а не к обрыву на полпути.
func (s *Service) commit(ctx context.Context, sale domain.Sale, cart Cart) error {
	start := time.Now()
	defer func() { s.metrics.StepDuration(string(domain.CheckoutStepCommit), time.Since(start)) }()

	commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.commitTimeout)
	defer cancel()

	for i, item := range cart.Items {
		if err := ctx.Err(); err != nil {
			return s.compensate(ctx, sale, cart, i, err)
		}
		if err := s.products.DecrementStock(commitCtx, item.ProductID, item.Quantity); err != nil {
			return s.compensate(ctx, sale, cart, i, err)
		}
	}

	s.appendTimeline(commitCtx, domain.TimelineEvent{
		SaleID:   sale.ID,
		Type:     domain.TimelineStockCommitted,
		Occurred: s.now(),
	})
	return nil
}

func newReceipt(sale domain.Sale) Receipt {
	lines := make([]ReceiptLine, 0, len(sale.Lines))
	for _, l := range sale.Lines {
		lines = append(lines, ReceiptLine{
			ProductID:           l.ProductID,
			ProductName:         l.ProductName,
			Quantity:            l.Quantity,
			AmountPaid:          l.TotalPaid,
			AmountPaidFormatted: l.TotalPaid.Format(),
		})
	}
	return Receipt{
		SaleID:         sale.ID,
		Total:          sale.Total,
		TotalFormatted: sale.FormattedTotal(),
		Status:         sale.Status,
		Lines:          lines,
	}
}

// ConfirmPayment переводит продажу pending -> paid.
func (s *Service) ConfirmPayment(ctx context.Context, saleID string) (domain.Sale, error) {
	sale, err := s.updateStatus(ctx, saleID, func(sale *domain.Sale) (bool, error) {
		if err := sale.MarkPaid(); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return domain.Sale{}, err
	}

	s.emitEvent(ctx, sale.ID, domain.TimelineSalePaid, sale.UpdatedAt, map[string]interface{}{
		"status":      sale.Status,
		"total_cents": int64(sale.Total),
	})
	s.metrics.StatusChanged(string(sale.Status))
	s.logger.WithField("sale_id", sale.ID).Info("payment confirmed")
	return sale, nil
}

// CancelSale отменяет продажу. Повторная отмена не меняет продажу и не пишет событий.
// Остатки при отмене не возвращаются.
func (s *Service) CancelSale(ctx context.Context, saleID, reason string) (domain.Sale, error) {
	changed := false
	sale, err := s.updateStatus(ctx, saleID, func(sale *domain.Sale) (bool, error) {
		if sale.Status == domain.SaleStatusCancelled {
			return false, nil
		}
		sale.Cancel()
		changed = true
		return true, nil
	})
	if err != nil {
		return domain.Sale{}, err
	}
	if !changed {
		return sale, nil
	}

	s.emitEvent(ctx, sale.ID, domain.TimelineSaleCancelled, sale.UpdatedAt, map[string]interface{}{
		"status": sale.Status,
		"reason": reason,
	})
	s.metrics.StatusChanged(string(sale.Status))
	s.logger.WithFields(log.Fields{
		"sale_id": sale.ID,
		"reason":  reason,
	}).Info("sale cancelled")
	return sale, nil
}

// updateStatus применяет переход и сохраняет продажу, повторяя попытку при конфликте версий.
func (s *Service) updateStatus(ctx context.Context, saleID string, apply func(*domain.Sale) (bool, error)) (domain.Sale, error) {
	for attempt := 0; attempt < statusUpdateRetries; attempt++ {
		sale, err := s.sales.FindByID(ctx, saleID)
		if err != nil {
			return domain.Sale{}, err
		}
		changed, err := apply(&sale)
		if err != nil {
			return domain.Sale{}, err
		}
		if !changed {
			return sale, nil
		}

		err = s.sales.Save(ctx, sale)
		if err == nil {
			sale.Version++
			return sale, nil
		}
		if !domain.IsVersionConflict(err) {
			s.logger.WithError(err).WithField("sale_id", saleID).Error("failed to persist status")
			return domain.Sale{}, err
		}

		s.logger.WithFields(log.Fields{
			"sale_id": saleID,
			"attempt": attempt + 1,
			"version": sale.Version,
		}).Warn("version conflict detected, retrying")

		delay := statusRetryBaseDelay * time.Duration(1<<uint(attempt))
		select {
		case <-ctx.Done():
			return domain.Sale{}, ctx.Err()
		case <-time.After(delay):
		}
	}
	return domain.Sale{}, domain.ErrSaleVersionConflict
}

// GetSale возвращает продажу с историей событий.
func (s *Service) GetSale(ctx context.Context, saleID string) (SaleDetails, error) {
	sale, err := s.sales.FindByID(ctx, saleID)
	if err != nil {
		return SaleDetails{}, err
	}
	details := SaleDetails{Sale: sale}
	if s.timeline != nil {
		events, err := s.timeline.List(ctx, saleID)
		if err != nil {
			return SaleDetails{}, fmt.Errorf("load timeline: %w", err)
		}
		details.Timeline = events
	}
	return details, nil
}

// Timeline возвращает историю продажи, в том числе удалённой компенсацией.
func (s *Service) Timeline(ctx context.Context, saleID string) ([]domain.TimelineEvent, error) {
	if s.timeline == nil {
		return nil, nil
	}
	return s.timeline.List(ctx, saleID)
}

// ListSales возвращает последние продажи, новые первыми.
func (s *Service) ListSales(ctx context.Context, limit int) ([]domain.Sale, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return s.sales.List(ctx, limit)
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, domain.ErrInvalidArgument):
		return "invalid_cart"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "internal"
	}
}

// emitEvent пишет событие в outbox и timeline с моментом occurred. Ошибки только
// логируются: на результат операции они не влияют.
func (s *Service) emitEvent(ctx context.Context, saleID, eventType string, occurred time.Time, payload map[string]interface{}) {
	if payload == nil {
		payload = make(map[string]interface{})
	}
	if occurred.IsZero() {
		occurred = s.now()
	}
	payload["occurred_at"] = occurred.UTC()
	s.enqueueOutbox(ctx, saleID, eventType, payload)

	reason, _ := payload["reason"].(string)
	s.appendTimeline(ctx, domain.TimelineEvent{
		SaleID:   saleID,
		Type:     eventType,
		Reason:   reason,
		Occurred: occurred,
	})
}

func (s *Service) enqueueOutbox(ctx context.Context, saleID, eventType string, payload map[string]interface{}) {
	if s.outbox == nil {
		return
	}
	logger := s.logger.WithFields(log.Fields{
		"sale_id": saleID,
		"event":   eventType,
	})
	payload["sale_id"] = saleID
	data, err := json.Marshal(payload)
	if err != nil {
		logger.WithError(err).Error("marshal event failed")
		return
	}
	msg := domain.OutboxMessage{
		AggregateType: "sale",
		AggregateID:   saleID,
		EventType:     eventType,
		Payload:       data,
	}
	if _, err := s.outbox.Enqueue(ctx, msg); err != nil {
		logger.WithError(err).Error("enqueue event failed")
		return
	}
	s.metrics.OutboxEvent()
}

func (s *Service) appendTimeline(ctx context.Context, event domain.TimelineEvent) {
	if s.timeline == nil {
		return
	}
	if err := s.timeline.Append(ctx, event); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"sale_id": event.SaleID,
			"event":   event.Type,
		}).Warn("append timeline event failed")
		return
	}
	s.metrics.TimelineEvent()
}

// publishSagaEvent публикует событие саги в Kafka, если producer настроен.
func (s *Service) publishSagaEvent(eventType kafka.EventType, saleID string, metadata map[string]interface{}) {
	if s.events == nil {
		return
	}
	event := kafka.NewSagaEvent(eventType, saleID, metadata)
	err := s.breaker.Execute(string(eventType), func() error {
		return s.events.PublishEvent(kafka.TopicSagaEvents, saleID, event)
	})
	if err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"event_type": eventType,
			"sale_id":    saleID,
		}).Warn("failed to publish saga event to kafka")
	}
}
