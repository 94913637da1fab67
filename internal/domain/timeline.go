package domain

import "time"

// Типы событий в истории продажи.
const (
	TimelineSaleCreated        = "SaleCreated"
	TimelineStockCommitted     = "StockCommitted"
	TimelineStockCommitFailed  = "StockCommitFailed"
	TimelineStockRestored      = "StockRestored"
	TimelineSaleDeleted        = "SaleDeleted"
	TimelineCompensationFailed = "CompensationFailed"
	TimelineSalePaid           = "SalePaid"
	TimelineSaleCancelled      = "SaleCancelled"
)

// TimelineEvent описывает событие в жизненном цикле продажи.
// Для отменённых через компенсацию продаж это единственный сохранённый след.
type TimelineEvent struct {
	SaleID   string
	Type     string
	Reason   string
	Occurred time.Time
}
