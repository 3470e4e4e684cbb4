package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/boddenberg/financas-familia-bfa-go/internal/domain"
)

func ptr(m domain.Money) *domain.Money { return &m }

func TestDebtService_CreateDefaults(t *testing.T) {
	f := newFixture()

	d, err := f.debts.Create(context.Background(), silva, domain.DebtInput{
		Creditor:     " Banco X ",
		CurrentValue: ptr(250000),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if d.Creditor != "Banco X" || d.OriginalValue != 250000 || d.Status != domain.DebtPending || d.DueDate != "2024-03-15" {
		t.Errorf("defaults not applied: %+v", d)
	}
	if names := f.events.names(); len(names) != 1 || names[0] != domain.EventDebtsChanged {
		t.Errorf("unexpected events %v", names)
	}
}

func TestDebtService_Validation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for _, in := range []domain.DebtInput{
		{CurrentValue: ptr(100)},
		{Creditor: "Loja"},
		{Creditor: "Loja", CurrentValue: ptr(100), DueDate: "amanhã"},
		{Creditor: "Loja", CurrentValue: ptr(100), Status: "LOST"},
	} {
		_, err := f.debts.Create(ctx, silva, in)
		var invalid *domain.ErrValidation
		if !errors.As(err, &invalid) {
			t.Errorf("%+v: expected validation error, got %v", in, err)
		}
	}
	if v, _ := f.kv.Get(ctx, "fin_ai_debts_silva"); v != nil {
		t.Errorf("store was written: %s", v)
	}
}

func TestDebtService_StatusAndSummary(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	a, _ := f.debts.Create(ctx, silva, domain.DebtInput{Creditor: "Banco", CurrentValue: ptr(100000), OriginalValue: ptr(150000)})
	b, _ := f.debts.Create(ctx, silva, domain.DebtInput{Creditor: "Loja", CurrentValue: ptr(20000), Status: domain.DebtNegotiating})

	if _, err := f.debts.SetStatus(ctx, silva, a.ID, domain.DebtPaid); err != nil {
		t.Fatalf("set status: %v", err)
	}
	sum, err := f.debts.Summary(ctx, silva)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.TotalOutstanding != 20000 || sum.OpenCount != 1 || sum.PaidCount != 1 {
		t.Errorf("unexpected summary %+v", sum)
	}

	// back to pending is allowed
	if _, err := f.debts.SetStatus(ctx, silva, a.ID, domain.DebtPending); err != nil {
		t.Fatalf("reopen: %v", err)
	}

	updated, err := f.debts.Update(ctx, silva, b.ID, domain.DebtInput{Creditor: "Loja Y", CurrentValue: ptr(15000)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Creditor != "Loja Y" || updated.CurrentValue != 15000 || updated.OriginalValue != 20000 || updated.Status != domain.DebtNegotiating {
		t.Errorf("unexpected update %+v", updated)
	}

	list, _ := f.debts.List(ctx, silva)
	if len(list.Debts) != 2 || list.Debts[0].ID != b.ID || list.Summary.TotalOutstanding != 115000 {
		t.Errorf("unexpected list %+v", list)
	}
}

func TestDebtService_UnknownID(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	var notFound *domain.ErrNotFound

	if _, err := f.debts.SetStatus(ctx, silva, "ghost", domain.DebtPaid); !errors.As(err, &notFound) {
		t.Errorf("set status: expected not found, got %v", err)
	}
	if err := f.debts.Delete(ctx, silva, "ghost"); !errors.As(err, &notFound) {
		t.Errorf("delete: expected not found, got %v", err)
	}
}
