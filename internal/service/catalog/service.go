// Package catalog администрирует каталог: товары, остатки, цены и акции.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

const (
	productUpdateRetries  = 5
	productRetryBaseDelay = 5 * time.Millisecond
)

// NewProduct — данные для создания товара.
type NewProduct struct {
	Name          string
	Category      string
	StockQuantity int
	CostPrice     domain.Money
	SalePrice     domain.Money
}

// Service реализует операции каталога.
type Service struct {
	products   domain.ProductRepository
	promotions domain.PromotionRepository
	logger     *log.Entry
	now        func() time.Time
	newID      func() string
}

// NewService создаёт сервис каталога.
func NewService(products domain.ProductRepository, promotions domain.PromotionRepository, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "catalog")
	}
	return &Service{
		products:   products,
		promotions: promotions,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
		newID:      uuid.NewString,
	}
}

// ListProducts возвращает товары по названию; activeOnly скрывает выведенные из продажи.
func (s *Service) ListProducts(ctx context.Context, activeOnly bool) ([]domain.Product, error) {
	return s.products.List(ctx, activeOnly)
}

// GetProduct возвращает товар по ID.
func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	return s.products.FindByID(ctx, id)
}

// CreateProduct заводит новый активный товар.
func (s *Service) CreateProduct(ctx context.Context, in NewProduct) (domain.Product, error) {
	now := s.now()
	product := domain.Product{
		ID:            s.newID(),
		Name:          strings.TrimSpace(in.Name),
		Category:      strings.TrimSpace(in.Category),
		StockQuantity: in.StockQuantity,
		CostPrice:     in.CostPrice,
		SalePrice:     in.SalePrice,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := product.Validate(); err != nil {
		return domain.Product{}, err
	}
	if err := s.products.Save(ctx, product); err != nil {
		return domain.Product{}, fmt.Errorf("save product: %w", err)
	}

	s.warnBelowCost(product)
	s.logger.WithFields(log.Fields{
		"product_id": product.ID,
		"name":       product.Name,
	}).Info("product created")
	return product, nil
}

// AdjustStock выставляет абсолютный остаток (инвентаризация).
func (s *Service) AdjustStock(ctx context.Context, id string, quantity int) (domain.Product, error) {
	var previous int
	product, err := s.updateProduct(ctx, id, func(p *domain.Product) (bool, error) {
		previous = p.StockQuantity
		return true, p.SetStock(quantity)
	})
	if err != nil {
		return domain.Product{}, err
	}

	s.logger.WithFields(log.Fields{
		"product_id": id,
		"previous":   previous,
		"current":    quantity,
	}).Info("stock adjusted")
	return product, nil
}

// SetSalePrice меняет цену продажи. Цена ниже себестоимости разрешена, но логируется.
func (s *Service) SetSalePrice(ctx context.Context, id string, price domain.Money) (domain.Product, error) {
	product, err := s.updateProduct(ctx, id, func(p *domain.Product) (bool, error) {
		return true, p.SetSalePrice(price)
	})
	if err != nil {
		return domain.Product{}, err
	}

	s.warnBelowCost(product)
	return product, nil
}

// Deactivate выводит товар из продажи, не удаляя его из истории.
func (s *Service) Deactivate(ctx context.Context, id string) (domain.Product, error) {
	product, err := s.updateProduct(ctx, id, func(p *domain.Product) (bool, error) {
		if !p.Active {
			return false, nil
		}
		p.Active = false
		p.UpdatedAt = s.now()
		return true, nil
	})
	if err != nil {
		return domain.Product{}, err
	}
	s.logger.WithField("product_id", id).Info("product deactivated")
	return product, nil
}

// updateProduct перечитывает товар и повторяет apply, пока Save не пройдёт без
// конфликта версий. Списания остатка между чтением и записью не теряются.
func (s *Service) updateProduct(ctx context.Context, id string, apply func(*domain.Product) (bool, error)) (domain.Product, error) {
	for attempt := 0; attempt < productUpdateRetries; attempt++ {
		product, err := s.products.FindByID(ctx, id)
		if err != nil {
			return domain.Product{}, err
		}
		changed, err := apply(&product)
		if err != nil {
			return domain.Product{}, err
		}
		if !changed {
			return product, nil
		}

		err = s.products.Save(ctx, product)
		if err == nil {
			product.Version++
			return product, nil
		}
		if !errors.Is(err, domain.ErrProductVersionConflict) {
			return domain.Product{}, fmt.Errorf("save product: %w", err)
		}

		s.logger.WithFields(log.Fields{
			"product_id": id,
			"attempt":    attempt + 1,
			"version":    product.Version,
		}).Warn("product version conflict, retrying")

		select {
		case <-ctx.Done():
			return domain.Product{}, ctx.Err()
		case <-time.After(productRetryBaseDelay * time.Duration(1<<uint(attempt))):
		}
	}
	return domain.Product{}, domain.ErrProductVersionConflict
}

// ListActivePromotions возвращает акции в порядке применения.
func (s *Service) ListActivePromotions(ctx context.Context) ([]domain.Promotion, error) {
	return s.promotions.FindActive(ctx)
}

// SavePromotion создаёт или обновляет акцию.
func (s *Service) SavePromotion(ctx context.Context, promotion domain.Promotion) (domain.Promotion, error) {
	if !promotion.Kind.Valid() {
		return domain.Promotion{}, fmt.Errorf("%w: unknown promotion kind %q", domain.ErrInvalidArgument, promotion.Kind)
	}
	if !promotion.Valid() {
		return domain.Promotion{}, fmt.Errorf("%w: promotion parameters are incomplete for %s", domain.ErrInvalidArgument, promotion.Kind)
	}
	now := s.now()
	if promotion.ID == "" {
		promotion.ID = s.newID()
		promotion.CreatedAt = now
	}
	promotion.UpdatedAt = now
	if err := s.promotions.Save(ctx, promotion); err != nil {
		return domain.Promotion{}, fmt.Errorf("save promotion: %w", err)
	}
	return promotion, nil
}

// SetPromotionActive включает или выключает акцию.
func (s *Service) SetPromotionActive(ctx context.Context, id string, active bool) (domain.Promotion, error) {
	promotion, err := s.promotions.FindByID(ctx, id)
	if err != nil {
		return domain.Promotion{}, err
	}
	if active {
		promotion.Activate()
	} else {
		promotion.Deactivate()
	}
	if err := s.promotions.Save(ctx, promotion); err != nil {
		return domain.Promotion{}, fmt.Errorf("save promotion: %w", err)
	}
	s.logger.WithFields(log.Fields{
		"promotion_id": id,
		"active":       active,
	}).Info("promotion toggled")
	return promotion, nil
}

func (s *Service) warnBelowCost(product domain.Product) {
	if !product.BelowCost() {
		return
	}
	s.logger.WithFields(log.Fields{
		"product_id": product.ID,
		"name":       product.Name,
		"cost":       product.CostPrice.Format(),
		"price":      product.SalePrice.Format(),
	}).Warn("sale price is below cost")
}
