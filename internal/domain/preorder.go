package domain

import (
	"fmt"
	"strings"
	"time"
)

// PreorderStatus описывает жизненный цикл предзаказа (encomenda).
type PreorderStatus string

const (
	PreorderStatusPending      PreorderStatus = "pending"
	PreorderStatusInProduction PreorderStatus = "in_production"
	PreorderStatusReady        PreorderStatus = "ready"
	PreorderStatusDelivered    PreorderStatus = "delivered"
	PreorderStatusCancelled    PreorderStatus = "cancelled"
)

var preorderTransitions = map[PreorderStatus][]PreorderStatus{
	PreorderStatusPending:      {PreorderStatusInProduction, PreorderStatusCancelled},
	PreorderStatusInProduction: {PreorderStatusReady, PreorderStatusCancelled},
	PreorderStatusReady:        {PreorderStatusDelivered, PreorderStatusCancelled},
}

// Valid проверяет, что статус известен.
func (s PreorderStatus) Valid() bool {
	switch s {
	case PreorderStatusPending, PreorderStatusInProduction, PreorderStatusReady,
		PreorderStatusDelivered, PreorderStatusCancelled:
		return true
	default:
		return false
	}
}

// PreorderItem — позиция предзаказа. В отличие от SaleLine товар обязателен:
// производство должно знать, что готовить.
type PreorderItem struct {
	ID          string
	ProductID   string
	ProductName string
	Quantity    int
	UnitPrice   Money
}

// Subtotal — стоимость позиции без учёта акций.
func (i PreorderItem) Subtotal() Money {
	return i.UnitPrice.Times(i.Quantity)
}

// Preorder — заказ к определённой дате. Склад не резервирует.
type Preorder struct {
	ID            string
	CustomerName  string
	CustomerPhone string
	DeliveryDate  time.Time
	Notes         string
	Items         []PreorderItem
	// Total — сумма с учётом акций, рассчитанная движком тарификации.
	Total     Money
	Status    PreorderStatus
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate проверяет обязательные поля. Дата доставки должна быть позже now.
func (p *Preorder) Validate(now time.Time) error {
	if strings.TrimSpace(p.CustomerName) == "" {
		return fmt.Errorf("%w: customer name is required", ErrInvalidArgument)
	}
	if !p.DeliveryDate.After(now) {
		return fmt.Errorf("%w: delivery date must be in the future", ErrInvalidArgument)
	}
	if len(p.Items) == 0 {
		return fmt.Errorf("%w: preorder must contain at least one item", ErrInvalidArgument)
	}
	for _, item := range p.Items {
		if item.ProductID == "" || item.Quantity < 1 {
			return fmt.Errorf("%w: preorder item needs a product and a positive quantity", ErrInvalidArgument)
		}
	}
	if p.Total < 0 {
		return fmt.Errorf("%w: total must be non-negative", ErrInvalidArgument)
	}
	return nil
}

// TransitionTo меняет статус по таблице переходов. Переход в текущий статус ничего не делает.
func (p *Preorder) TransitionTo(next PreorderStatus) error {
	if !next.Valid() {
		return fmt.Errorf("%w: unknown preorder status %q", ErrInvalidArgument, next)
	}
	if p.Status == next {
		return nil
	}
	for _, allowed := range preorderTransitions[p.Status] {
		if allowed == next {
			p.Status = next
			p.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return &InvalidPreorderTransitionError{From: p.Status, To: next}
}

// ItemsSummary возвращает "Cookie (2), Brownie (1)".
func (p *Preorder) ItemsSummary() string {
	parts := make([]string, 0, len(p.Items))
	for _, item := range p.Items {
		parts = append(parts, fmt.Sprintf("%s (%d)", item.ProductName, item.Quantity))
	}
	return strings.Join(parts, ", ")
}

// InvalidPreorderTransitionError — запрещённый переход статуса предзаказа.
type InvalidPreorderTransitionError struct {
	From PreorderStatus
	To   PreorderStatus
}

func (e *InvalidPreorderTransitionError) Error() string {
	return fmt.Sprintf("cannot move preorder from %s to %s", e.From, e.To)
}

func (e *InvalidPreorderTransitionError) Is(target error) bool {
	return target == ErrInvalidStateTransition
}
