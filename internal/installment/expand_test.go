package installment_test

import (
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/financas-familia-bfa-go/internal/domain"
	"github.com/boddenberg/financas-familia-bfa-go/internal/infra/idgen"
	"github.com/boddenberg/financas-familia-bfa-go/internal/installment"
)

func request(date string, n int) installment.Request {
	return installment.Request{
		TransactionInput: domain.TransactionInput{
			Amount:       10000,
			Type:         domain.Expense,
			Category:     "Roupas",
			Description:  "Tênis",
			Date:         date,
			Installments: n,
		},
		UserID:   "u1",
		UserName: "Ana",
	}
}

var created = time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC)

func TestExpand_SingleEntry(t *testing.T) {
	for _, n := range []int{0, 1, -3} {
		got, err := installment.Expand(request("2024-01-31", n), idgen.NewSequence("tx"), created, time.UTC)
		if err != nil {
			t.Fatalf("n=%d: unexpected error %v", n, err)
		}
		if len(got) != 1 {
			t.Fatalf("n=%d: expected 1 record, got %d", n, len(got))
		}
		r := got[0]
		if r.Date != "2024-01-31" || r.Description != "Tênis" || r.IsInstallment() {
			t.Errorf("n=%d: record changed: %+v", n, r)
		}
		if r.UserID != "u1" || r.UserName != "Ana" || r.CreatedAt != created.UnixMilli() {
			t.Errorf("n=%d: missing ownership fields: %+v", n, r)
		}
	}
}

func TestExpand_MonthOverflowIsPreserved(t *testing.T) {
	got, err := installment.Expand(request("2024-01-31", 3), idgen.NewSequence("tx"), created, time.UTC)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	wantDates := []string{"2024-01-31", "2024-03-02", "2024-03-31"}
	wantDesc := []string{"Tênis (1/3)", "Tênis (2/3)", "Tênis (3/3)"}
	for i, r := range got {
		if r.Date != wantDates[i] {
			t.Errorf("record %d: date %s, want %s", i, r.Date, wantDates[i])
		}
		if r.Description != wantDesc[i] {
			t.Errorf("record %d: description %q, want %q", i, r.Description, wantDesc[i])
		}
		if r.Amount != 10000 {
			t.Errorf("record %d: amount %v", i, r.Amount)
		}
		if r.InstallmentCurrent != i+1 || r.InstallmentTotal != 3 {
			t.Errorf("record %d: installment %d/%d", i, r.InstallmentCurrent, r.InstallmentTotal)
		}
	}
}

func TestExpand_LengthAndFirstDate(t *testing.T) {
	const date = "2024-05-15T14:30:00.000Z"
	for n := 1; n <= 24; n++ {
		got, err := installment.Expand(request(date, n), idgen.NewSequence("tx"), created, time.UTC)
		if err != nil {
			t.Fatalf("n=%d: %v", n, err)
		}
		if len(got) != n {
			t.Errorf("n=%d: got %d records", n, len(got))
		}
		if got[0].Date != date {
			t.Errorf("n=%d: first date %q, want %q", n, got[0].Date, date)
		}
	}
}

func TestExpand_KeepsTimestampLayout(t *testing.T) {
	got, err := installment.Expand(request("2024-05-15T14:30:00Z", 2), idgen.NewSequence("tx"), created, time.UTC)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if got[1].Date != "2024-06-15T14:30:00Z" {
		t.Errorf("second date %q", got[1].Date)
	}
}

func TestExpand_UniqueIDs(t *testing.T) {
	got, err := installment.Expand(request("2024-01-01", 120), idgen.UUID{}, created, time.UTC)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	seen := make(map[string]bool)
	for _, r := range got {
		if seen[r.ID] {
			t.Fatalf("duplicate id %s", r.ID)
		}
		seen[r.ID] = true
	}
}

func TestExpand_InvalidDate(t *testing.T) {
	_, err := installment.Expand(request("31/01/2024", 3), idgen.NewSequence("tx"), created, time.UTC)
	var verr *domain.ErrValidation
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
