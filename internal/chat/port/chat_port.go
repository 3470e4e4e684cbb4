// Package port define as dependências do ChatService.
//
// O parser vem do port principal (port.TransactionParser); aqui ficam só
// as operações do ledger que o chat usa, para os testes não precisarem
// montar o LedgerService inteiro.
package port

import (
	"context"

	"github.com/boddenberg/financas-familia-bfa-go/internal/domain"
)

// TransactionRecorder grava um lançamento validado.
type TransactionRecorder interface {
	CreateTransaction(ctx context.Context, scope domain.Scope, in domain.TransactionInput) ([]domain.Transaction, error)
}

// MonthSummarizer totaliza um mês do ledger.
type MonthSummarizer interface {
	Summary(ctx context.Context, scope domain.Scope, p domain.Period) (domain.Summary, []domain.DataIssue, error)
}
