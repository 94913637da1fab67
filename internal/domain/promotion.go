package domain

import (
	"strings"
	"time"
)

// PromotionKind — закрытый набор видов акций.
type PromotionKind string

const (
	// PromotionFixedPriceBundle — "возьми N, заплати фиксированную сумму".
	PromotionFixedPriceBundle PromotionKind = "fixed_price_bundle"
	// PromotionPercentageDiscount — процентная скидка (моделируется, движком не применяется).
	PromotionPercentageDiscount PromotionKind = "percentage_discount"
	// PromotionBuyXGetYFree — "купи X, получи Y бесплатно" (моделируется, движком не применяется).
	PromotionBuyXGetYFree PromotionKind = "buy_x_get_y_free"
)

// Valid проверяет, что вид акции известен.
func (k PromotionKind) Valid() bool {
	switch k {
	case PromotionFixedPriceBundle, PromotionPercentageDiscount, PromotionBuyXGetYFree:
		return true
	default:
		return false
	}
}

// Promotion описывает правило акции. Нулевые параметры считаются отсутствующими.
type Promotion struct {
	ID     string
	Name   string
	Active bool
	Kind   PromotionKind
	// TargetCategory ограничивает акцию категорией товара (без учёта регистра).
	TargetCategory string
	// TargetProductIDs явно перечисляет товары, участвующие в акции.
	TargetProductIDs []string
	// Priority: меньшее значение рассматривается раньше.
	Priority int

	MinimumItems     int
	FixedBundlePrice Money
	DiscountPercent  int
	FreeItems        int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Valid проверяет, что для вида акции заданы обязательные параметры.
func (p *Promotion) Valid() bool {
	switch p.Kind {
	case PromotionFixedPriceBundle:
		return p.MinimumItems >= 1 && p.FixedBundlePrice > 0
	case PromotionPercentageDiscount:
		return p.DiscountPercent > 0 && p.DiscountPercent <= 100
	case PromotionBuyXGetYFree:
		return p.MinimumItems >= 1 && p.FreeItems >= 1
	default:
		return false
	}
}

// AppliesTo решает, участвует ли товар в акции. Акция без целей применяется ко всем товарам.
func (p *Promotion) AppliesTo(product Product) bool {
	if len(p.TargetProductIDs) == 0 && p.TargetCategory == "" {
		return true
	}
	for _, id := range p.TargetProductIDs {
		if id == product.ID {
			return true
		}
	}
	return p.TargetCategory != "" && strings.EqualFold(p.TargetCategory, product.Category)
}

// Activate включает акцию.
func (p *Promotion) Activate() {
	p.Active = true
	p.UpdatedAt = time.Now().UTC()
}

// Deactivate выключает акцию.
func (p *Promotion) Deactivate() {
	p.Active = false
	p.UpdatedAt = time.Now().UTC()
}
