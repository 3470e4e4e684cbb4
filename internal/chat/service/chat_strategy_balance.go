package service

import (
	"context"
	"fmt"

	"github.com/boddenberg/financas-familia-bfa-go/internal/analytics"
	"github.com/boddenberg/financas-familia-bfa-go/internal/chat/domain"
	chatport "github.com/boddenberg/financas-familia-bfa-go/internal/chat/port"
	maindomain "github.com/boddenberg/financas-familia-bfa-go/internal/domain"
)

// BalanceStrategy responde perguntas de saldo com o resumo do mês corrente,
// sem chamar o modelo.
type BalanceStrategy struct {
	summarizer chatport.MonthSummarizer
}

// NewBalanceStrategy cria a strategy de saldo.
func NewBalanceStrategy(summarizer chatport.MonthSummarizer) *BalanceStrategy {
	return &BalanceStrategy{summarizer: summarizer}
}

func (s *BalanceStrategy) CanHandle(intent string) bool {
	return intent == domain.IntentBalance
}

func (s *BalanceStrategy) Handle(ctx context.Context, chatCtx *domain.ChatContext) (*domain.ChatMessage, error) {
	p := maindomain.PeriodOf(chatCtx.Now)
	sum, _, err := s.summarizer.Summary(ctx, chatCtx.Scope, p)
	if err != nil {
		return nil, err
	}
	return &domain.ChatMessage{
		Content: fmt.Sprintf("Resumo de %s: receitas R$ %s, despesas R$ %s, saldo R$ %s.",
			analytics.MonthLabel(p), sum.Income.Comma(), sum.Expense.Comma(), sum.Balance.Comma()),
	}, nil
}
