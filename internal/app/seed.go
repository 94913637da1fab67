package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

// demoCatalog — витрина кондитерской: линии по 5,90 участвуют в уровне "family",
// линии по 6,50 в уровне "special".
func demoCatalog(now time.Time) []domain.Product {
	item := func(name, category string, cost, price domain.Money, stock int) domain.Product {
		return domain.Product{
			ID:            uuid.NewString(),
			Name:          name,
			Category:      category,
			StockQuantity: stock,
			CostPrice:     cost,
			SalePrice:     price,
			Active:        true,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
	}
	return []domain.Product{
		item("Cookie Tradicional", "cookies", 240, 590, 40),
		item("Cookie Red Velvet", "cookies", 260, 590, 30),
		item("Cookie Duplo Chocolate", "cookies", 260, 590, 30),
		item("Cookie Nutella", "especiais", 310, 650, 20),
		item("Cookie Pistache", "especiais", 340, 650, 15),
		item("Brownie", "doces", 280, 800, 12),
		item("Café Coado", "bebidas", 90, 500, 100),
	}
}

// seedDemoCatalog заполняет пустой каталог демонстрационными товарами и акцией на напитки.
// Непустой каталог не трогает, поэтому безопасен при каждом старте.
func seedDemoCatalog(
	ctx context.Context,
	products domain.ProductRepository,
	promotions domain.PromotionRepository,
	logger *log.Entry,
) (int, error) {
	existing, err := products.List(ctx, false)
	if err != nil {
		return 0, fmt.Errorf("list products: %w", err)
	}
	if len(existing) > 0 {
		logger.WithField("products", len(existing)).Debug("catalog is not empty, demo seed skipped")
		return 0, nil
	}

	now := time.Now().UTC()
	catalog := demoCatalog(now)
	for _, product := range catalog {
		if err := products.Save(ctx, product); err != nil {
			return 0, fmt.Errorf("seed product %q: %w", product.Name, err)
		}
	}

	promotion := domain.Promotion{
		ID:              uuid.NewString(),
		Name:            "Bebidas 10% off",
		Active:          true,
		Kind:            domain.PromotionPercentageDiscount,
		TargetCategory:  "bebidas",
		Priority:        10,
		DiscountPercent: 10,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := promotions.Save(ctx, promotion); err != nil {
		return 0, fmt.Errorf("seed promotion: %w", err)
	}

	logger.WithField("products", len(catalog)).Info("demo catalog seeded")
	return len(catalog), nil
}
