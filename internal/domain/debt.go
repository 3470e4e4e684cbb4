package domain

import (
	"fmt"
	"strings"
)

// ============================================================
// Dívidas (debts)
// ============================================================

// DebtStatus tracks a debt through negotiation.
type DebtStatus string

const (
	DebtPending     DebtStatus = "PENDING"
	DebtNegotiating DebtStatus = "NEGOTIATING"
	DebtPaid        DebtStatus = "PAID"
)

// Valid reports whether s is a known status.
func (s DebtStatus) Valid() bool {
	switch s {
	case DebtPending, DebtNegotiating, DebtPaid:
		return true
	}
	return false
}

// Label returns the pt-BR label shown on the debt card.
func (s DebtStatus) Label() string {
	switch s {
	case DebtPaid:
		return "Quitado"
	case DebtNegotiating:
		return "Negociando"
	}
	return "Pendente"
}

// ParseDebtStatus accepts the wire names case-insensitively.
func ParseDebtStatus(s string) (DebtStatus, error) {
	st := DebtStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", &ErrValidation{Field: "status", Message: fmt.Sprintf("status desconhecido %q", s)}
	}
	return st, nil
}

// Debt is an amount owed by the family to a creditor.
// Status moves freely between the three values; values change only on explicit edit.
type Debt struct {
	ID            string     `json:"id"`
	Creditor      string     `json:"creditor"`
	OriginalValue Money      `json:"originalValue"`
	CurrentValue  Money      `json:"currentValue"`
	Status        DebtStatus `json:"status"`
	Description   string     `json:"description,omitempty"`
	DueDate       string     `json:"dueDate,omitempty"`
	CreatedAt     int64      `json:"createdAt"`
	UserID        string     `json:"userId,omitempty"`
}

// DebtInput is the create/edit payload. OriginalValue, DueDate and Status are optional.
type DebtInput struct {
	Creditor      string     `json:"creditor"`
	OriginalValue *Money     `json:"originalValue,omitempty"`
	CurrentValue  *Money     `json:"currentValue"`
	Status        DebtStatus `json:"status,omitempty"`
	Description   string     `json:"description,omitempty"`
	DueDate       string     `json:"dueDate,omitempty"`
}

// Validate checks creditor and current value, the two fields the form requires.
func (in DebtInput) Validate() error {
	if strings.TrimSpace(in.Creditor) == "" {
		return &ErrValidation{Field: "creditor", Message: "credor é obrigatório"}
	}
	if in.CurrentValue == nil || *in.CurrentValue <= 0 {
		return &ErrValidation{Field: "currentValue", Message: "valor atual é obrigatório"}
	}
	if *in.CurrentValue > MaxAmount {
		return &ErrValidation{Field: "currentValue", Message: fmt.Sprintf("valor máximo é R$ %s", MaxAmount.Comma())}
	}
	if in.OriginalValue != nil && *in.OriginalValue < 0 {
		return &ErrValidation{Field: "originalValue", Message: "valor original não pode ser negativo"}
	}
	if in.OriginalValue != nil && *in.OriginalValue > MaxAmount {
		return &ErrValidation{Field: "originalValue", Message: fmt.Sprintf("valor máximo é R$ %s", MaxAmount.Comma())}
	}
	if in.Status != "" && !in.Status.Valid() {
		return &ErrValidation{Field: "status", Message: fmt.Sprintf("status desconhecido %q", in.Status)}
	}
	return nil
}

// DebtSummary totals the debt list.
type DebtSummary struct {
	TotalOutstanding Money `json:"totalOutstanding"`
	OpenCount        int   `json:"openCount"`
	PaidCount        int   `json:"paidCount"`
}

// SummarizeDebts sums the current value of every debt that is not PAID.
func SummarizeDebts(debts []Debt) DebtSummary {
	var s DebtSummary
	for _, d := range debts {
		if d.Status == DebtPaid {
			s.PaidCount++
			continue
		}
		s.OpenCount++
		s.TotalOutstanding += d.CurrentValue
	}
	return s
}
