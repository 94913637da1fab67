package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestConflictClassifiers(t *testing.T) {
	tests := []struct {
		err         error
		version     bool
		idempotency bool
	}{
		{err: ErrSaleVersionConflict, version: true},
		{err: fmt.Errorf("save sale s1: %w", ErrSaleVersionConflict), version: true},
		{err: ErrPreorderVersionConflict, version: true},
		{err: ErrProductVersionConflict, version: true},
		{err: ErrIdempotencyKeyAlreadyExists, idempotency: true},
		{err: errors.Join(errors.New("replay"), ErrIdempotencyHashMismatch), idempotency: true},
		{err: ErrIdempotencyKeyNotFound},
		{err: ErrSaleNotFound},
		{err: nil},
	}

	for _, tt := range tests {
		name := "nil"
		if tt.err != nil {
			name = tt.err.Error()
		}
		t.Run(name, func(t *testing.T) {
			if got := IsVersionConflict(tt.err); got != tt.version {
				t.Errorf("IsVersionConflict = %v, want %v", got, tt.version)
			}
			if got := IsIdempotencyConflict(tt.err); got != tt.idempotency {
				t.Errorf("IsIdempotencyConflict = %v, want %v", got, tt.idempotency)
			}
		})
	}
}

func TestInvalidStateTransitionError(t *testing.T) {
	err := fmt.Errorf("pay: %w", &InvalidStateTransitionError{From: SaleStatusCancelled, To: SaleStatusPaid})
	if !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatal("expected ErrInvalidStateTransition match")
	}
	if !strings.Contains(err.Error(), string(SaleStatusCancelled)) {
		t.Fatalf("message must name the current status: %q", err.Error())
	}
}

func TestNotFoundSentinelsWrapCommon(t *testing.T) {
	for _, err := range []error{ErrProductNotFound, ErrSaleNotFound, ErrPromotionNotFound} {
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("%v must match ErrNotFound", err)
		}
	}
	if errors.Is(ErrProductNotFound, ErrSaleNotFound) {
		t.Fatal("product and sale not-found errors must differ")
	}
}

func TestInsufficientStockError(t *testing.T) {
	var err error = &InsufficientStockError{ProductID: "p1", ProductName: "Cookie", Available: 1, Requested: 3}

	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatal("expected errors.Is to match ErrInsufficientStock")
	}
	wrapped := fmt.Errorf("commit: %w", err)
	var stockErr *InsufficientStockError
	if !errors.As(wrapped, &stockErr) {
		t.Fatal("expected errors.As to extract InsufficientStockError")
	}
	if stockErr.Available != 1 || stockErr.Requested != 3 {
		t.Fatalf("unexpected payload: %+v", stockErr)
	}
	if !strings.Contains(err.Error(), "Cookie") {
		t.Fatalf("message must name the product: %q", err.Error())
	}
}

func TestStockReconciliationError(t *testing.T) {
	cause := &InsufficientStockError{ProductID: "p2", ProductName: "Soda", Available: 0, Requested: 1}
	err := &StockReconciliationError{SaleID: "s1", Applied: []string{"p1"}, Degraded: true, Cause: cause}

	if !errors.Is(err, ErrStockReconciliation) {
		t.Fatal("expected ErrStockReconciliation match")
	}
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatal("expected cause to be reachable through Unwrap")
	}
	if !strings.Contains(err.Error(), "manual reconciliation") {
		t.Fatalf("degraded error must say so: %q", err.Error())
	}
}
