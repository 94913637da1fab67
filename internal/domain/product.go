package domain

import (
	"fmt"
	"strings"
	"time"
)

// Product описывает товарную позицию каталога.
type Product struct {
	ID            string
	Name          string
	Category      string
	StockQuantity int
	// CostPrice — закупочная цена за единицу.
	CostPrice Money
	// SalePrice — цена продажи за единицу, по ней тарифицируются единицы в корзине.
	SalePrice Money
	Active    bool
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate проверяет базовые инварианты товара.
func (p *Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: product name is required", ErrInvalidArgument)
	}
	if p.StockQuantity < 0 {
		return fmt.Errorf("%w: stock quantity must be non-negative", ErrInvalidArgument)
	}
	if p.CostPrice < 0 || p.SalePrice < 0 {
		return fmt.Errorf("%w: prices must be non-negative", ErrInvalidArgument)
	}
	return nil
}

// SetStock выставляет абсолютный остаток. Отрицательное значение отклоняется.
func (p *Product) SetStock(qty int) error {
	if qty < 0 {
		return fmt.Errorf("%w: stock quantity must be non-negative, got %d", ErrInvalidArgument, qty)
	}
	p.StockQuantity = qty
	p.touch()
	return nil
}

// DecrementStock списывает qty единиц. qty <= 0 ничего не меняет.
func (p *Product) DecrementStock(qty int) error {
	if qty <= 0 {
		return nil
	}
	if qty > p.StockQuantity {
		return &InsufficientStockError{
			ProductID:   p.ID,
			ProductName: p.Name,
			Available:   p.StockQuantity,
			Requested:   qty,
		}
	}
	p.StockQuantity -= qty
	p.touch()
	return nil
}

// IncrementStock возвращает qty единиц на склад (используется компенсацией).
func (p *Product) IncrementStock(qty int) {
	if qty <= 0 {
		return
	}
	p.StockQuantity += qty
	p.touch()
}

// SetSalePrice меняет цену продажи. Цена ниже себестоимости допустима,
// предупреждение пишет вызывающая сторона (см. BelowCost).
func (p *Product) SetSalePrice(price Money) error {
	if price < 0 {
		return fmt.Errorf("%w: sale price must be non-negative", ErrInvalidArgument)
	}
	p.SalePrice = price
	p.touch()
	return nil
}

// BelowCost сообщает, продаётся ли товар дешевле закупки.
func (p *Product) BelowCost() bool {
	return p.SalePrice < p.CostPrice
}

// MarginBasisPoints возвращает валовую маржу относительно цены продажи в базисных пунктах
// (1234 = 12,34%). При нулевой цене продажи маржа равна нулю.
func (p *Product) MarginBasisPoints() int64 {
	if p.SalePrice <= 0 {
		return 0
	}
	return int64(p.SalePrice-p.CostPrice) * 10000 / int64(p.SalePrice)
}

// StockCostValue — стоимость остатка по закупочной цене.
func (p *Product) StockCostValue() Money {
	return p.CostPrice.Times(p.StockQuantity)
}

func (p *Product) touch() {
	p.UpdatedAt = time.Now().UTC()
}
