package domain

import (
	"fmt"
	"strings"
)

// ============================================================
// Lançamentos (transactions)
// ============================================================

// TransactionType separates money coming in from money going out.
type TransactionType string

const (
	Income  TransactionType = "INCOME"
	Expense TransactionType = "EXPENSE"
)

// Valid reports whether t is one of the known types.
func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// Label returns the pt-BR label used in exports.
func (t TransactionType) Label() string {
	if t == Income {
		return "Receita"
	}
	return "Despesa"
}

// ParseTransactionType accepts the wire names case-insensitively.
func ParseTransactionType(s string) (TransactionType, error) {
	switch TransactionType(strings.ToUpper(strings.TrimSpace(s))) {
	case Income:
		return Income, nil
	case Expense:
		return Expense, nil
	}
	return "", &ErrValidation{Field: "type", Message: fmt.Sprintf("tipo desconhecido %q", s)}
}

// Transaction is one ledger entry of a family. It is never edited after
// creation; the only mutation is deletion by ID.
//
// Date keeps the string exactly as stored. It is parsed on demand with
// ParseDate so that one malformed record cannot break a whole list.
type Transaction struct {
	ID                 string          `json:"id"`
	Amount             Money           `json:"amount"`
	Type               TransactionType `json:"type"`
	Category           string          `json:"category"`
	Description        string          `json:"description"`
	Date               string          `json:"date"`
	CreatedAt          int64           `json:"createdAt"`
	InstallmentCurrent int             `json:"installmentCurrent,omitempty"`
	InstallmentTotal   int             `json:"installmentTotal,omitempty"`
	UserID             string          `json:"userId,omitempty"`
	UserName           string          `json:"userName,omitempty"`
}

// IsInstallment reports whether the record was generated by an installment plan.
func (t Transaction) IsInstallment() bool {
	return t.InstallmentTotal > 0
}

// InstallmentLabel returns "current/total" or "" for single entries.
func (t Transaction) InstallmentLabel() string {
	if !t.IsInstallment() {
		return ""
	}
	return fmt.Sprintf("%d/%d", t.InstallmentCurrent, t.InstallmentTotal)
}

// TransactionInput is what a form (or the chat parser) submits.
// Installments ≤ 1 means a single entry.
type TransactionInput struct {
	Amount       Money           `json:"amount"`
	Type         TransactionType `json:"type"`
	Category     string          `json:"category"`
	Description  string          `json:"description"`
	Date         string          `json:"date"`
	Installments int             `json:"installments,omitempty"`
}

// MaxInstallments caps the size of one installment plan.
const MaxInstallments = 120

// Validate checks the required fields. Nothing is persisted when it fails.
func (in TransactionInput) Validate() error {
	if in.Amount <= 0 {
		return &ErrValidation{Field: "amount", Message: "valor é obrigatório"}
	}
	if in.Amount > MaxAmount {
		return &ErrValidation{Field: "amount", Message: fmt.Sprintf("valor máximo é R$ %s", MaxAmount.Comma())}
	}
	if strings.TrimSpace(in.Description) == "" {
		return &ErrValidation{Field: "description", Message: "descrição é obrigatória"}
	}
	if strings.TrimSpace(in.Category) == "" {
		return &ErrValidation{Field: "category", Message: "categoria é obrigatória"}
	}
	if !in.Type.Valid() {
		return &ErrValidation{Field: "type", Message: "tipo deve ser INCOME ou EXPENSE"}
	}
	if strings.TrimSpace(in.Date) == "" {
		return &ErrValidation{Field: "date", Message: "data é obrigatória"}
	}
	if in.Installments > MaxInstallments {
		return &ErrValidation{Field: "installments", Message: fmt.Sprintf("máximo de %d parcelas", MaxInstallments)}
	}
	return nil
}

// ============================================================
// Planilha mensal
// ============================================================

// MonthlySheetInput carries one amount per category for a month.
// Values are strings as typed ("1.200,50"); blank or zero entries are skipped.
type MonthlySheetInput struct {
	Month  string            `json:"month"` // YYYY-MM
	Type   TransactionType   `json:"type"`
	Values map[string]string `json:"values"`
}

// MonthlySheetDescription is the description given to sheet entries.
func MonthlySheetDescription(category string) string {
	return "Lançamento Mensal: " + category
}
