// Package preorder принимает заказы к дате (encomendas) и ведёт их по статусам производства.
package preorder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pos/internal/domain"
	"github.com/vladislavdragonenkov/pos/internal/service/pricing"
)

const (
	defaultListLimit = 100
	saveRetries      = 3
)

// NewPreorder — данные для создания предзаказа.
type NewPreorder struct {
	CustomerName  string
	CustomerPhone string
	DeliveryDate  time.Time
	Notes         string
	Items         []pricing.Item
	Toggles       pricing.Toggles
}

// Service реализует операции с предзаказами. Остатки склада не затрагиваются:
// товар производится к дате доставки.
type Service struct {
	preorders  domain.PreorderRepository
	products   domain.ProductRepository
	promotions domain.PromotionRepository
	engine     *pricing.Engine
	logger     *log.Entry
	now        func() time.Time
	newID      func() string
}

// NewService создаёт сервис предзаказов.
func NewService(
	preorders domain.PreorderRepository,
	products domain.ProductRepository,
	promotions domain.PromotionRepository,
	engine *pricing.Engine,
	logger *log.Entry,
) *Service {
	if engine == nil {
		engine = pricing.NewEngine()
	}
	if logger == nil {
		logger = log.New().WithField("component", "preorder")
	}
	return &Service{
		preorders:  preorders,
		products:   products,
		promotions: promotions,
		engine:     engine,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
		newID:      uuid.NewString,
	}
}

// Create тарифицирует позиции тем же движком, что и продажа, и сохраняет предзаказ в статусе pending.
func (s *Service) Create(ctx context.Context, in NewPreorder) (domain.Preorder, error) {
	now := s.now()
	if len(in.Items) == 0 {
		return domain.Preorder{}, fmt.Errorf("%w: preorder must contain at least one item", domain.ErrInvalidArgument)
	}

	ids := make([]string, 0, len(in.Items))
	for _, item := range in.Items {
		if item.Quantity <= 0 {
			return domain.Preorder{}, fmt.Errorf("%w: quantity for %s must be positive", domain.ErrInvalidArgument, item.ProductID)
		}
		ids = append(ids, item.ProductID)
	}
	found, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return domain.Preorder{}, fmt.Errorf("load products: %w", err)
	}
	products := make(map[string]domain.Product, len(found))
	for _, p := range found {
		products[p.ID] = p
	}

	units, err := pricing.ExpandUnits(products, in.Items)
	if err != nil {
		return domain.Preorder{}, err
	}
	rules, err := s.promotions.FindActive(ctx)
	if err != nil {
		return domain.Preorder{}, fmt.Errorf("load promotions: %w", err)
	}
	priced := s.engine.Price(units, rules, in.Toggles)

	preorder := domain.Preorder{
		ID:            s.newID(),
		CustomerName:  strings.TrimSpace(in.CustomerName),
		CustomerPhone: strings.TrimSpace(in.CustomerPhone),
		DeliveryDate:  in.DeliveryDate.UTC(),
		Notes:         strings.TrimSpace(in.Notes),
		Total:         priced.Total,
		Status:        domain.PreorderStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for _, item := range in.Items {
		p := products[item.ProductID]
		preorder.Items = append(preorder.Items, domain.PreorderItem{
			ID:          s.newID(),
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    item.Quantity,
			UnitPrice:   p.SalePrice,
		})
	}
	if err := preorder.Validate(now); err != nil {
		return domain.Preorder{}, err
	}

	if err := s.preorders.Create(ctx, preorder); err != nil {
		return domain.Preorder{}, fmt.Errorf("persist preorder: %w", err)
	}
	s.logger.WithFields(log.Fields{
		"preorder_id":   preorder.ID,
		"delivery_date": preorder.DeliveryDate.Format(time.DateOnly),
		"total":         preorder.Total.Format(),
	}).Info("preorder created")
	return preorder, nil
}

// Get возвращает предзаказ по ID.
func (s *Service) Get(ctx context.Context, id string) (domain.Preorder, error) {
	return s.preorders.FindByID(ctx, id)
}

// List возвращает предзаказы по дате доставки. Пустой status означает все статусы.
func (s *Service) List(ctx context.Context, status domain.PreorderStatus, limit int) ([]domain.Preorder, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown preorder status %q", domain.ErrInvalidArgument, status)
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	return s.preorders.List(ctx, status, limit)
}

// UpdateStatus переводит предзаказ в новый статус, повторяя сохранение при конфликте версий.
func (s *Service) UpdateStatus(ctx context.Context, id string, next domain.PreorderStatus) (domain.Preorder, error) {
	for attempt := 0; attempt < saveRetries; attempt++ {
		preorder, err := s.preorders.FindByID(ctx, id)
		if err != nil {
			return domain.Preorder{}, err
		}
		previous := preorder.Status
		if err := preorder.TransitionTo(next); err != nil {
			return domain.Preorder{}, err
		}
		if previous == preorder.Status {
			return preorder, nil
		}

		err = s.preorders.Save(ctx, preorder)
		if err == nil {
			preorder.Version++
			s.logger.WithFields(log.Fields{
				"preorder_id": id,
				"from":        previous,
				"to":          preorder.Status,
			}).Info("preorder status changed")
			return preorder, nil
		}
		if !domain.IsVersionConflict(err) {
			return domain.Preorder{}, err
		}
		s.logger.WithFields(log.Fields{
			"preorder_id": id,
			"attempt":     attempt + 1,
		}).Warn("version conflict detected, retrying")
	}
	return domain.Preorder{}, domain.ErrPreorderVersionConflict
}
