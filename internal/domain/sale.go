package domain

import (
	"fmt"
	"strings"
	"time"
)

// SaleStatus описывает жизненный цикл продажи.
type SaleStatus string

const (
	// SaleStatusPending — продажа создана, оплата ещё не подтверждена.
	SaleStatusPending SaleStatus = "pending"
	// SaleStatusPaid — оплата подтверждена.
	SaleStatusPaid SaleStatus = "paid"
	// SaleStatusCancelled — продажа отменена.
	SaleStatusCancelled SaleStatus = "cancelled"
)

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s SaleStatus) Valid() bool {
	switch s {
	case SaleStatusPending, SaleStatusPaid, SaleStatusCancelled:
		return true
	default:
		return false
	}
}

// SaleLine — позиция чека с зафиксированными на момент продажи названием и ценой.
type SaleLine struct {
	ID string
	// ProductID пуст у акционной (бандловой) позиции.
	ProductID   string
	Quantity    int
	ProductName string
	// UnitPrice — цена единицы на момент продажи; у акционной позиции равна нулю.
	UnitPrice Money
	TotalPaid Money
	// PromotionID указывает правило или ценовой уровень, породивший позицию.
	PromotionID string
}

// IsPromotional сообщает, является ли позиция бандлом.
func (l SaleLine) IsPromotional() bool {
	return l.ProductID == ""
}

// Sale агрегирует позиции чека и итоговую сумму.
type Sale struct {
	ID        string
	Lines     []SaleLine
	Total     Money
	Status    SaleStatus
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewSale создаёт продажу в статусе pending. Итог считается по позициям,
// поэтому Total всегда равен сумме TotalPaid.
func NewSale(id string, lines []SaleLine, now time.Time) Sale {
	copied := make([]SaleLine, len(lines))
	copy(copied, lines)

	var total Money
	for _, l := range copied {
		total += l.TotalPaid
	}
	return Sale{
		ID:        id,
		Lines:     copied,
		Total:     total,
		Status:    SaleStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// MarkPaid переводит продажу pending -> paid.
func (s *Sale) MarkPaid() error {
	if s.Status != SaleStatusPending {
		return &InvalidStateTransitionError{From: s.Status, To: SaleStatusPaid}
	}
	s.Status = SaleStatusPaid
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// Cancel отменяет продажу из любого статуса; повторная отмена ничего не делает.
func (s *Sale) Cancel() {
	if s.Status == SaleStatusCancelled {
		return
	}
	s.Status = SaleStatusCancelled
	s.UpdatedAt = time.Now().UTC()
}

// FormattedTotal возвращает итог в виде "R$ 10,00".
func (s *Sale) FormattedTotal() string {
	return s.Total.Format()
}

// ItemsSummary перечисляет позиции чека: "Biscoito (2), Refrigerante (1)".
func (s *Sale) ItemsSummary() string {
	parts := make([]string, 0, len(s.Lines))
	for _, l := range s.Lines {
		parts = append(parts, fmt.Sprintf("%s (%d)", l.ProductName, l.Quantity))
	}
	return strings.Join(parts, ", ")
}

// ValidateInvariants проверяет инварианты продажи и возвращает список замечаний.
func (s *Sale) ValidateInvariants() []error {
	var errs []error

	if len(s.Lines) == 0 {
		errs = append(errs, ErrSaleLinesRequired)
	}
	if !s.Status.Valid() {
		errs = append(errs, ErrSaleStatusInvalid)
	}

	var calc Money
	for _, l := range s.Lines {
		if l.Quantity < 1 {
			errs = append(errs, ErrSaleLineQtyInvalid)
		}
		if l.TotalPaid < 0 || l.UnitPrice < 0 {
			errs = append(errs, ErrSaleLineAmountNegative)
		}
		calc += l.TotalPaid
	}
	if calc != s.Total {
		errs = append(errs, ErrSaleTotalMismatch)
	}
	return errs
}
