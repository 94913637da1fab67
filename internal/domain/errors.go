package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound — общий признак отсутствующей сущности.
	ErrNotFound = errors.New("not found")
	// ErrProductNotFound возвращается, если товар не найден.
	ErrProductNotFound = fmt.Errorf("product %w", ErrNotFound)
	// ErrSaleNotFound возвращается, если продажа не найдена.
	ErrSaleNotFound = fmt.Errorf("sale %w", ErrNotFound)
	// ErrPromotionNotFound возвращается, если акция не найдена.
	ErrPromotionNotFound = fmt.Errorf("promotion %w", ErrNotFound)
	// ErrPreorderNotFound возвращается, если предзаказ не найден.
	ErrPreorderNotFound = fmt.Errorf("preorder %w", ErrNotFound)
	// ErrProductVersionConflict — товар изменился после чтения.
	ErrProductVersionConflict = errors.New("product version conflict")
	// ErrPreorderVersionConflict — конфликт версий предзаказа.
	ErrPreorderVersionConflict = errors.New("preorder version conflict")
	// ErrInvalidArgument — некорректные входные данные.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInsufficientStock — на складе недостаточно единиц.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidStateTransition — запрещённый переход статуса продажи.
	ErrInvalidStateTransition = errors.New("invalid state transition")
	// ErrStockReconciliation — продажа сохранена, но списание склада не удалось.
	ErrStockReconciliation = errors.New("stock reconciliation required")
	// ErrSaleVersionConflict сигнализирует о конфликте версий при сохранении.
	ErrSaleVersionConflict = errors.New("sale version conflict")
	// ErrSaleAlreadyExists — продажа с таким ID уже сохранена.
	ErrSaleAlreadyExists = errors.New("sale already exists")
	// Ошибка продажи без позиций.
	ErrSaleLinesRequired = errors.New("sale must contain at least one line")
	// Ошибка неизвестного статуса продажи.
	ErrSaleStatusInvalid = errors.New("sale status is invalid")
	// Ошибка количества в позиции (< 1).
	ErrSaleLineQtyInvalid = errors.New("sale line quantity must be greater than zero")
	// Ошибка отрицательной суммы в позиции.
	ErrSaleLineAmountNegative = errors.New("sale line amounts must be non-negative")
	// Ошибка несоответствия итога и суммы позиций.
	ErrSaleTotalMismatch = errors.New("sale total does not match lines sum")
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
	// ErrIdempotencyKeyRequired — пустой ключ идемпотентности.
	ErrIdempotencyKeyRequired = errors.New("idempotency key is required")
	// ErrIdempotencyRequestHashRequired — пустой хеш запроса.
	ErrIdempotencyRequestHashRequired = errors.New("idempotency request hash is required")
	// ErrIdempotencyKeyNotFound — ключ идемпотентности не найден.
	ErrIdempotencyKeyNotFound = errors.New("idempotency key not found")
	// ErrIdempotencyKeyAlreadyExists — ключ уже зарегистрирован.
	ErrIdempotencyKeyAlreadyExists = errors.New("idempotency key already exists")
	// ErrIdempotencyHashMismatch — ключ переиспользован с другим телом запроса.
	ErrIdempotencyHashMismatch = errors.New("idempotency key reused with different payload")
)

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrSaleVersionConflict) ||
		errors.Is(err, ErrPreorderVersionConflict) ||
		errors.Is(err, ErrProductVersionConflict)
}

// IsIdempotencyConflict сообщает о конфликте ключа идемпотентности.
func IsIdempotencyConflict(err error) bool {
	return errors.Is(err, ErrIdempotencyKeyAlreadyExists) || errors.Is(err, ErrIdempotencyHashMismatch)
}

// InsufficientStockError описывает нехватку остатка по конкретному товару.
type InsufficientStockError struct {
	ProductID   string
	ProductName string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: requested %d, available %d", e.ProductName, e.Requested, e.Available)
}

// Is позволяет сравнивать через errors.Is(err, ErrInsufficientStock).
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// InvalidStateTransitionError называет текущий и запрошенный статус.
type InvalidStateTransitionError struct {
	From SaleStatus
	To   SaleStatus
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("cannot move sale from %s to %s", e.From, e.To)
}

func (e *InvalidStateTransitionError) Is(target error) bool {
	return target == ErrInvalidStateTransition
}

// StockReconciliationError возвращается, когда списание склада упало после сохранения продажи.
// Degraded означает, что компенсация прошла не полностью и нужна ручная сверка.
type StockReconciliationError struct {
	SaleID string
	// Applied — товары, списание которых успело пройти.
	Applied []string
	// Restored — товары из Applied, остаток которых удалось вернуть.
	Restored []string
	// NotApplied — товары, до списания которых дело не дошло (включая упавший).
	NotApplied  []string
	SaleDeleted bool
	Degraded    bool
	Cause       error
}

func (e *StockReconciliationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "sale %s: stock commit failed", e.SaleID)
	if e.Degraded {
		b.WriteString(" (manual reconciliation required)")
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *StockReconciliationError) Is(target error) bool {
	return target == ErrStockReconciliation
}

func (e *StockReconciliationError) Unwrap() error {
	return e.Cause
}
