// Package pricing превращает список единиц корзины в позиции чека с учётом акций.
package pricing

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

// Toggles — переключатели ценовых уровней, выбранные кассиром для текущей корзины.
type Toggles struct {
	Family  bool
	Special bool
}

// Tier описывает бандл "2 по фиксированной цене" для единиц с одинаковой базовой ценой.
type Tier struct {
	// Name используется в PromotionID бандловой позиции ("tier:<name>").
	Name string
	// Label — название бандловой позиции в чеке.
	Label string
	// Enabled решает по переключателям, включён ли уровень.
	Enabled func(Toggles) bool
	// UnitPrice — базовая цена единиц, попадающих в уровень.
	UnitPrice domain.Money
	// PairPrice — цена пары.
	PairPrice domain.Money
	// RemainderUnitPrice — цена непарной единицы.
	RemainderUnitPrice domain.Money
}

// DefaultTiers возвращает уровни "family" (5,90: 2 за 8,00, остаток 4,60)
// и "special" (6,50: 2 за 12,00, остаток по обычной цене).
func DefaultTiers() []Tier {
	return []Tier{
		{
			Name:               "family",
			Label:              "Amigos e Família (2 por R$ 8,00)",
			Enabled:            func(t Toggles) bool { return t.Family },
			UnitPrice:          590,
			PairPrice:          800,
			RemainderUnitPrice: 460,
		},
		{
			Name:               "special",
			Label:              "2 Especiais (2 por R$ 12,00)",
			Enabled:            func(t Toggles) bool { return t.Special },
			UnitPrice:          650,
			PairPrice:          1200,
			RemainderUnitPrice: 650,
		},
	}
}

// Result — результат тарификации.
type Result struct {
	Lines []domain.SaleLine
	Total domain.Money
}

// Engine тарифицирует корзину. Не выполняет I/O и не меняет входные данные,
// поэтому безопасен для конкурентного использования.
type Engine struct {
	tiers []Tier
	newID func() string
}

// Option настраивает Engine.
type Option func(*Engine)

// WithTiers заменяет набор ценовых уровней.
func WithTiers(tiers []Tier) Option {
	return func(e *Engine) {
		e.tiers = append([]Tier(nil), tiers...)
	}
}

// WithIDGenerator задаёт генератор идентификаторов позиций (удобно в тестах).
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) {
		if gen != nil {
			e.newID = gen
		}
	}
}

// NewEngine создаёт движок с уровнями по умолчанию.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		tiers: DefaultTiers(),
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Price тарифицирует единицы в три фазы: ценовые уровни, затем одно бандловое правило
// по оставшимся единицам, затем группировка остального по товарам.
// Каждая единица попадает ровно в одну позицию.
func (e *Engine) Price(units []domain.Product, rules []domain.Promotion, toggles Toggles) Result {
	if len(units) == 0 {
		return Result{}
	}

	consumed := make([]bool, len(units))
	var lines []domain.SaleLine

	lines = append(lines, e.applyTiers(units, consumed, toggles)...)
	lines = append(lines, e.applyBundleRule(units, consumed, rules)...)
	lines = append(lines, e.groupRemaining(units, consumed)...)

	var total domain.Money
	for _, l := range lines {
		total += l.TotalPaid
	}
	return Result{Lines: lines, Total: total}
}

func (e *Engine) applyTiers(units []domain.Product, consumed []bool, toggles Toggles) []domain.SaleLine {
	var lines []domain.SaleLine

	for _, tier := range e.tiers {
		if tier.Enabled == nil || !tier.Enabled(toggles) {
			continue
		}

		var matched []int
		for i, u := range units {
			if !consumed[i] && u.SalePrice == tier.UnitPrice {
				matched = append(matched, i)
			}
		}
		if len(matched) == 0 {
			continue
		}

		pairs := len(matched) / 2
		rem := len(matched) % 2
		for _, i := range matched {
			consumed[i] = true
		}

		if pairs > 0 {
			lines = append(lines, domain.SaleLine{
				ID:          e.newID(),
				Quantity:    pairs * 2,
				ProductName: tier.Label,
				TotalPaid:   tier.PairPrice.Times(pairs),
				PromotionID: "tier:" + tier.Name,
			})
		}
		if rem > 0 {
			last := units[matched[len(matched)-1]]
			lines = append(lines, domain.SaleLine{
				ID:          e.newID(),
				ProductID:   last.ID,
				Quantity:    rem,
				ProductName: last.Name,
				// В чеке показывается базовая цена, оплачивается цена остатка.
				UnitPrice: last.SalePrice,
				TotalPaid: tier.RemainderUnitPrice.Times(rem),
			})
		}
	}
	return lines
}

// applyBundleRule применяет не больше одного правила fixed_price_bundle.
func (e *Engine) applyBundleRule(units []domain.Product, consumed []bool, rules []domain.Promotion) []domain.SaleLine {
	for _, rule := range orderedBundleRules(rules) {
		var eligible []int
		for i, u := range units {
			if !consumed[i] && rule.AppliesTo(u) {
				eligible = append(eligible, i)
			}
		}
		if len(eligible) == 0 {
			continue
		}

		bundles := len(eligible) / rule.MinimumItems
		if bundles == 0 {
			return nil
		}
		take := bundles * rule.MinimumItems
		for _, i := range eligible[:take] {
			consumed[i] = true
		}
		return []domain.SaleLine{{
			ID:          e.newID(),
			Quantity:    take,
			ProductName: rule.Name,
			TotalPaid:   rule.FixedBundlePrice.Times(bundles),
			PromotionID: rule.ID,
		}}
	}
	return nil
}

func orderedBundleRules(rules []domain.Promotion) []domain.Promotion {
	out := make([]domain.Promotion, 0, len(rules))
	for _, r := range rules {
		if r.Active && r.Kind == domain.PromotionFixedPriceBundle && r.Valid() {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out
}

func (e *Engine) groupRemaining(units []domain.Product, consumed []bool) []domain.SaleLine {
	index := make(map[string]int)
	var lines []domain.SaleLine

	for i, u := range units {
		if consumed[i] {
			continue
		}
		pos, ok := index[u.ID]
		if !ok {
			index[u.ID] = len(lines)
			lines = append(lines, domain.SaleLine{
				ID:          e.newID(),
				ProductID:   u.ID,
				Quantity:    1,
				ProductName: u.Name,
				UnitPrice:   u.SalePrice,
				TotalPaid:   u.SalePrice,
			})
			continue
		}
		lines[pos].Quantity++
		lines[pos].TotalPaid += u.SalePrice
	}
	return lines
}

// ExpandUnits разворачивает позиции корзины в список единиц: количество 3 даёт три копии товара.
func ExpandUnits(products map[string]domain.Product, items []Item) ([]domain.Product, error) {
	var units []domain.Product
	for _, item := range items {
		p, ok := products[item.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrProductNotFound, item.ProductID)
		}
		for i := 0; i < item.Quantity; i++ {
			units = append(units, p)
		}
	}
	return units, nil
}

// Item — строка корзины.
type Item struct {
	ProductID string
	Quantity  int
}
