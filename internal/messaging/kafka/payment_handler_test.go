package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

type fakeSaleService struct {
	confirmErr error
	cancelErr  error
	confirmed  []string
	cancelled  []string
	reasons    []string
}

func (f *fakeSaleService) ConfirmPayment(_ context.Context, saleID string) (domain.Sale, error) {
	f.confirmed = append(f.confirmed, saleID)
	return domain.Sale{ID: saleID, Status: domain.SaleStatusPaid}, f.confirmErr
}

func (f *fakeSaleService) CancelSale(_ context.Context, saleID, reason string) (domain.Sale, error) {
	f.cancelled = append(f.cancelled, saleID)
	f.reasons = append(f.reasons, reason)
	return domain.Sale{ID: saleID, Status: domain.SaleStatusCancelled}, f.cancelErr
}

func rawPaymentMessage(body string) *sarama.ConsumerMessage {
	return &sarama.ConsumerMessage{Topic: TopicPaymentEvents, Value: []byte(body)}
}

func TestPaymentEventHandler_Confirm(t *testing.T) {
	svc := &fakeSaleService{}
	handler := NewPaymentEventHandler(svc, log.WithField("test", "payment"))

	if err := handler(context.Background(), rawPaymentMessage(`{"event_type":"payment.confirmed","sale_id":"s-1"}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(svc.confirmed) != 1 || svc.confirmed[0] != "s-1" {
		t.Fatalf("expected confirmation of s-1, got %v", svc.confirmed)
	}
}

func TestPaymentEventHandler_AlreadyPaidIsIgnored(t *testing.T) {
	svc := &fakeSaleService{confirmErr: &domain.InvalidStateTransitionError{From: domain.SaleStatusPaid, To: domain.SaleStatusPaid}}
	handler := NewPaymentEventHandler(svc, nil)

	if err := handler(context.Background(), rawPaymentMessage(`{"event_type":"payment.confirmed","sale_id":"s-1"}`)); err != nil {
		t.Fatalf("duplicate confirmation must be ignored, got %v", err)
	}
}

func TestPaymentEventHandler_Cancel(t *testing.T) {
	svc := &fakeSaleService{}
	handler := NewPaymentEventHandler(svc, nil)

	if err := handler(context.Background(), rawPaymentMessage(`{"event_type":"payment.cancelled","sale_id":"s-2"}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(svc.cancelled) != 1 || svc.reasons[0] == "" {
		t.Fatalf("expected cancellation with default reason, got %v %v", svc.cancelled, svc.reasons)
	}
}

func TestPaymentEventHandler_ErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		svc       *fakeSaleService
		permanent bool
	}{
		{name: "broken json", body: `{`, svc: &fakeSaleService{}, permanent: true},
		{name: "unknown type", body: `{"event_type":"payment.refunded","sale_id":"s"}`, svc: &fakeSaleService{}, permanent: true},
		{name: "unknown sale", body: `{"event_type":"payment.confirmed","sale_id":"s"}`, svc: &fakeSaleService{confirmErr: domain.ErrSaleNotFound}, permanent: true},
		{name: "cancelled sale", body: `{"event_type":"payment.confirmed","sale_id":"s"}`, svc: &fakeSaleService{confirmErr: &domain.InvalidStateTransitionError{From: domain.SaleStatusCancelled, To: domain.SaleStatusPaid}}, permanent: true},
		{name: "storage outage", body: `{"event_type":"payment.confirmed","sale_id":"s"}`, svc: &fakeSaleService{confirmErr: errors.New("connection reset")}, permanent: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := NewPaymentEventHandler(tc.svc, nil)(context.Background(), rawPaymentMessage(tc.body))
			if err == nil {
				t.Fatal("expected error")
			}
			var permanent *PermanentError
			if errors.As(err, &permanent) != tc.permanent {
				t.Fatalf("permanent=%v expected %v (err=%v)", !tc.permanent, tc.permanent, err)
			}
		})
	}
}
