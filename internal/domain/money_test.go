package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseMoney(t *testing.T) {
	cases := []struct {
		in  string
		out Money
		ok  bool
	}{
		{"1", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"1.234,56", 123456, true},
		{"R$ 30", 3000, true},
		{"0", 0, true},
		{"1.005", 101, true},
		{" 2,50 ", 250, true},
		{"-1", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
		{"1.000.000.000,00", MaxAmount, true},
		{"1.000.000.000,01", 0, false},
		{"50000000000000000", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseMoney(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Errorf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Errorf("%q expected error", tc.in)
		}
	}
}

func TestMoney_Formatting(t *testing.T) {
	m := Money(123450)
	if m.String() != "1234.50" {
		t.Errorf("String() = %q", m.String())
	}
	if m.Comma() != "1234,50" {
		t.Errorf("Comma() = %q", m.Comma())
	}
	if Money(5).String() != "0.05" {
		t.Errorf("small amount formatted as %q", Money(5).String())
	}
}

func TestMoney_JSONAcceptsNumbersAndStrings(t *testing.T) {
	var v struct {
		A Money `json:"a"`
		B Money `json:"b"`
		C Money `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a": 30.5, "b": "1.200,10", "c": 0.1}`), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v.A != 3050 || v.B != 120010 || v.C != 10 {
		t.Errorf("unexpected values %+v", v)
	}

	out, err := json.Marshal(struct {
		A Money `json:"a"`
	}{A: 3050})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"a":30.50}` {
		t.Errorf("unexpected JSON %s", out)
	}

	if err := json.Unmarshal([]byte(`{"a": true}`), &v); err == nil {
		t.Error("expected error for boolean amount")
	}
}

func TestNormalizeFamilyID(t *testing.T) {
	cases := map[string]string{
		"Silva":               "silva",
		"  Família   Souza  ": "família-souza",
		"Os\tOliveira":        "os-oliveira",
	}
	for in, want := range cases {
		if got := NormalizeFamilyID(in); got != want {
			t.Errorf("NormalizeFamilyID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPeriod_AddAndParse(t *testing.T) {
	p, err := ParsePeriod("2024-11")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := p.Add(3).String(); got != "2025-02" {
		t.Errorf("Add(3) = %s", got)
	}
	if got := p.Add(-11).String(); got != "2023-12" {
		t.Errorf("Add(-11) = %s", got)
	}
	if _, err := ParsePeriod("11/2024"); err == nil {
		t.Error("expected error for bad period")
	}
}

func TestSummarizeDebts(t *testing.T) {
	s := SummarizeDebts([]Debt{
		{CurrentValue: 1000, Status: DebtPending},
		{CurrentValue: 500, Status: DebtNegotiating},
		{CurrentValue: 9999, Status: DebtPaid},
	})
	if s.TotalOutstanding != 1500 || s.OpenCount != 2 || s.PaidCount != 1 {
		t.Errorf("unexpected summary %+v", s)
	}
}

func TestValidate_RejectsAmountAboveCap(t *testing.T) {
	var in TransactionInput
	err := json.Unmarshal([]byte(`{"amount":50000000000000000,"type":"INCOME","category":"Salário","description":"x","date":"2024-03-05"}`), &in)
	if err == nil {
		t.Fatal("expected decode error for amount above cap")
	}

	in = TransactionInput{Amount: MaxAmount + 1, Type: Income, Category: "Salário", Description: "x", Date: "2024-03-05"}
	var verr *ErrValidation
	if err := in.Validate(); !errors.As(err, &verr) || verr.Field != "amount" {
		t.Fatalf("expected amount validation error, got %v", err)
	}
	in.Amount = MaxAmount
	if err := in.Validate(); err != nil {
		t.Fatalf("expected cap to be accepted, got %v", err)
	}

	over := MaxAmount + 1
	debt := DebtInput{Creditor: "Banco", CurrentValue: &over}
	if err := debt.Validate(); !errors.As(err, &verr) || verr.Field != "currentValue" {
		t.Fatalf("expected currentValue validation error, got %v", err)
	}
}

func TestSummary_LargeLedgerDoesNotOverflow(t *testing.T) {
	var s Summary
	for i := 0; i < 1000; i++ {
		s.Add(Transaction{Type: Income, Amount: MaxAmount})
	}
	if s.Income != MaxAmount*1000 || s.Balance != MaxAmount*1000 {
		t.Errorf("unexpected totals %+v", s)
	}
}
