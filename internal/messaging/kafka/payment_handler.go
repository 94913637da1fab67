package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

// SalePaymentService — то, что нужно обработчику платёжных событий от сервиса продаж.
type SalePaymentService interface {
	ConfirmPayment(ctx context.Context, saleID string) (domain.Sale, error)
	CancelSale(ctx context.Context, saleID, reason string) (domain.Sale, error)
}

// NewPaymentEventHandler возвращает обработчик topic pos.payment.events.
// Неизвестная продажа, битый payload и недопустимый переход статуса считаются
// постоянными ошибками; повтор уже применённого подтверждения ничего не делает.
func NewPaymentEventHandler(sales SalePaymentService, logger *log.Entry) MessageHandler {
	if logger == nil {
		logger = log.WithField("component", "payment-event-handler")
	}

	return func(ctx context.Context, message *sarama.ConsumerMessage) error {
		event, err := ParsePaymentEvent(message)
		if err != nil {
			return Permanent(err)
		}
		entry := logger.WithFields(log.Fields{
			"sale_id":    event.SaleID,
			"event_type": event.EventType,
		})

		switch event.EventType {
		case EventTypePaymentConfirmed:
			_, err = sales.ConfirmPayment(ctx, event.SaleID)
			var transition *domain.InvalidStateTransitionError
			if errors.As(err, &transition) && transition.From == domain.SaleStatusPaid {
				entry.Debug("payment already confirmed")
				return nil
			}
		case EventTypePaymentCancelled:
			reason := event.Reason
			if reason == "" {
				reason = "payment cancelled by gateway"
			}
			_, err = sales.CancelSale(ctx, event.SaleID, reason)
		default:
			return Permanent(fmt.Errorf("unsupported payment event type %q", event.EventType))
		}

		if err == nil {
			entry.Info("payment event applied")
			return nil
		}
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidStateTransition) {
			return Permanent(err)
		}
		return err
	}
}
