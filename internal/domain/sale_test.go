package domain

import (
	"errors"
	"testing"
	"time"
)

func sampleLines() []SaleLine {
	return []SaleLine{
		{ID: "l1", Quantity: 2, ProductName: "2 por R$ 10", TotalPaid: 1000, PromotionID: "promo"},
		{ID: "l2", ProductID: "p1", Quantity: 1, ProductName: "Cookie", UnitPrice: 590, TotalPaid: 590},
	}
}

func TestNewSaleComputesTotal(t *testing.T) {
	lines := sampleLines()
	sale := NewSale("s1", lines, time.Now().UTC())

	if sale.Total != 1590 {
		t.Fatalf("expected total 1590, got %d", sale.Total)
	}
	if sale.Status != SaleStatusPending {
		t.Fatalf("expected pending, got %s", sale.Status)
	}
	if sale.FormattedTotal() != "R$ 15,90" {
		t.Fatalf("unexpected formatted total %q", sale.FormattedTotal())
	}
	if errs := sale.ValidateInvariants(); len(errs) != 0 {
		t.Fatalf("expected no violations, got %v", errs)
	}

	lines[0].TotalPaid = 1
	if sale.Lines[0].TotalPaid != 1000 {
		t.Fatal("sale must not share the caller's slice")
	}
	if !sale.Lines[0].IsPromotional() || sale.Lines[1].IsPromotional() {
		t.Fatal("promotional flag mismatch")
	}
}

func TestSaleMarkPaid(t *testing.T) {
	sale := NewSale("s1", sampleLines(), time.Now().UTC())

	if err := sale.MarkPaid(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sale.Status != SaleStatusPaid {
		t.Fatalf("expected paid, got %s", sale.Status)
	}

	err := sale.MarkPaid()
	var transition *InvalidStateTransitionError
	if !errors.As(err, &transition) {
		t.Fatalf("expected InvalidStateTransitionError, got %v", err)
	}
	if transition.From != SaleStatusPaid {
		t.Fatalf("error must name the current status, got %s", transition.From)
	}
	if !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatal("expected sentinel match")
	}
}

func TestSaleCancel(t *testing.T) {
	sale := NewSale("s1", sampleLines(), time.Now().UTC())
	sale.Cancel()
	if sale.Status != SaleStatusCancelled {
		t.Fatalf("expected cancelled, got %s", sale.Status)
	}
	stamp := sale.UpdatedAt
	sale.Cancel()
	if sale.Status != SaleStatusCancelled || !sale.UpdatedAt.Equal(stamp) {
		t.Fatal("second cancel must be a no-op")
	}
	if err := sale.MarkPaid(); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("cancelled sale cannot be paid, got %v", err)
	}

	paid := NewSale("s2", sampleLines(), time.Now().UTC())
	_ = paid.MarkPaid()
	paid.Cancel()
	if paid.Status != SaleStatusCancelled {
		t.Fatal("paid sale must be cancellable")
	}
}

func TestSaleValidateInvariants(t *testing.T) {
	sale := Sale{
		Status: "bogus",
		Total:  10,
		Lines:  []SaleLine{{Quantity: 0, TotalPaid: -1}},
	}
	errs := sale.ValidateInvariants()

	want := []error{ErrSaleStatusInvalid, ErrSaleLineQtyInvalid, ErrSaleLineAmountNegative, ErrSaleTotalMismatch}
	for _, w := range want {
		found := false
		for _, e := range errs {
			if errors.Is(e, w) {
				found = true
			}
		}
		if !found {
			t.Fatalf("expected %v in %v", w, errs)
		}
	}

	empty := Sale{Status: SaleStatusPending}
	if errs := empty.ValidateInvariants(); len(errs) != 1 || !errors.Is(errs[0], ErrSaleLinesRequired) {
		t.Fatalf("expected only ErrSaleLinesRequired, got %v", errs)
	}
}

func TestSaleItemsSummary(t *testing.T) {
	sale := NewSale("s-1", []SaleLine{
		{ProductID: "p-1", ProductName: "Biscoito", Quantity: 2, UnitPrice: 300, TotalPaid: 600},
		{ProductID: "p-2", ProductName: "Refrigerante", Quantity: 1, UnitPrice: 500, TotalPaid: 500},
	}, time.Now().UTC())

	if got := sale.ItemsSummary(); got != "Biscoito (2), Refrigerante (1)" {
		t.Fatalf("unexpected summary: %q", got)
	}

	empty := Sale{}
	if got := empty.ItemsSummary(); got != "" {
		t.Fatalf("expected empty summary, got %q", got)
	}
}
