package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pos/internal/domain"
	"github.com/vladislavdragonenkov/pos/internal/messaging/kafka"
)

// compensate откатывает частично списанную продажу: строки корзины [0, failed)
// уже списаны и возвращаются на склад в обратном порядке, затем продажа удаляется.
// Каждый шаг фиксируется в timeline продажи.
func (s *Service) compensate(ctx context.Context, sale domain.Sale, cart Cart, failed int, cause error) error {
	start := time.Now()
	defer func() { s.metrics.StepDuration(string(domain.CheckoutStepCompensate), time.Since(start)) }()

	compCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.commitTimeout)
	defer cancel()

	logger := s.logger.WithFields(log.Fields{
		"sale_id": sale.ID,
		"step":    domain.CheckoutStepCompensate,
	})
	logger.WithError(cause).Warn("stock commit failed, compensating")

	recErr := &domain.StockReconciliationError{SaleID: sale.ID, Cause: cause}
	for _, item := range cart.Items[:failed] {
		recErr.Applied = append(recErr.Applied, item.ProductID)
	}
	for _, item := range cart.Items[failed:] {
		recErr.NotApplied = append(recErr.NotApplied, item.ProductID)
	}

	s.appendTimeline(compCtx, domain.TimelineEvent{
		SaleID:   sale.ID,
		Type:     domain.TimelineStockCommitFailed,
		Reason:   cause.Error(),
		Occurred: s.now(),
	})

	for i := failed - 1; i >= 0; i-- {
		item := cart.Items[i]
		err := retry(compCtx, s.retry, logger, "restore_stock", func(c context.Context) error {
			return s.products.IncrementStock(c, item.ProductID, item.Quantity)
		})
		if err != nil {
			recErr.Degraded = true
			logger.WithError(err).WithFields(log.Fields{
				"product_id": item.ProductID,
				"quantity":   item.Quantity,
			}).Error("restore stock failed")
			s.appendTimeline(compCtx, domain.TimelineEvent{
				SaleID:   sale.ID,
				Type:     domain.TimelineCompensationFailed,
				Reason:   fmt.Sprintf("restore %s x%d: %v", item.ProductID, item.Quantity, err),
				Occurred: s.now(),
			})
			continue
		}
		recErr.Restored = append(recErr.Restored, item.ProductID)
		s.appendTimeline(compCtx, domain.TimelineEvent{
			SaleID:   sale.ID,
			Type:     domain.TimelineStockRestored,
			Reason:   fmt.Sprintf("%s x%d", item.ProductID, item.Quantity),
			Occurred: s.now(),
		})
	}

	err := retry(compCtx, s.retry, logger, "delete_sale", func(c context.Context) error {
		return s.sales.Delete(c, sale.ID)
	})
	if err != nil && !errors.Is(err, domain.ErrSaleNotFound) {
		recErr.Degraded = true
		logger.WithError(err).Error("delete sale failed")
		s.appendTimeline(compCtx, domain.TimelineEvent{
			SaleID:   sale.ID,
			Type:     domain.TimelineCompensationFailed,
			Reason:   fmt.Sprintf("delete sale: %v", err),
			Occurred: s.now(),
		})
	} else {
		recErr.SaleDeleted = true
		s.appendTimeline(compCtx, domain.TimelineEvent{
			SaleID:   sale.ID,
			Type:     domain.TimelineSaleDeleted,
			Occurred: s.now(),
		})
	}

	result := "restored"
	sagaEvent := kafka.EventTypeSagaCompensated
	if recErr.Degraded {
		result = "degraded"
		sagaEvent = kafka.EventTypeSagaFailed
	}
	s.metrics.Compensation(result)
	s.metrics.SaleFailed("stock_commit")

	s.enqueueOutbox(compCtx, sale.ID, "SaleCompensated", map[string]interface{}{
		"applied":      recErr.Applied,
		"restored":     recErr.Restored,
		"not_applied":  recErr.NotApplied,
		"sale_deleted": recErr.SaleDeleted,
		"degraded":     recErr.Degraded,
		"reason":       cause.Error(),
	})
	s.publishSagaEvent(sagaEvent, sale.ID, map[string]interface{}{
		"reason":   cause.Error(),
		"degraded": recErr.Degraded,
	})

	entry := logger.WithFields(log.Fields{
		"applied":      len(recErr.Applied),
		"restored":     len(recErr.Restored),
		"sale_deleted": recErr.SaleDeleted,
	})
	if recErr.Degraded {
		entry.Error("compensation incomplete, manual reconciliation required")
	} else {
		entry.Info("compensation completed")
	}
	return recErr
}
