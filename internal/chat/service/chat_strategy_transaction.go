package service

import (
	"context"
	"errors"

	"github.com/boddenberg/financas-familia-bfa-go/internal/chat/domain"
	chatport "github.com/boddenberg/financas-familia-bfa-go/internal/chat/port"
	maindomain "github.com/boddenberg/financas-familia-bfa-go/internal/domain"
	"github.com/boddenberg/financas-familia-bfa-go/internal/port"

	"go.uber.org/zap"
)

// TransactionStrategy pede ao modelo que extraia a transação e grava o
// lançamento reconhecido para o usuário da sessão.
type TransactionStrategy struct {
	parser   port.TransactionParser
	recorder chatport.TransactionRecorder
	logger   *zap.Logger
}

// NewTransactionStrategy cria a strategy padrão do chat.
func NewTransactionStrategy(parser port.TransactionParser, recorder chatport.TransactionRecorder, logger *zap.Logger) *TransactionStrategy {
	return &TransactionStrategy{parser: parser, recorder: recorder, logger: logger}
}

func (s *TransactionStrategy) CanHandle(intent string) bool {
	return intent == domain.IntentTransaction
}

func (s *TransactionStrategy) Handle(ctx context.Context, chatCtx *domain.ChatContext) (*domain.ChatMessage, error) {
	ctx, span := chatTracer.Start(ctx, "TransactionStrategy.Handle")
	defer span.End()

	parsed, err := s.parser.ParseTransaction(ctx, chatCtx.Text, chatCtx.Now)
	if err != nil {
		s.logger.Warn("chat parse failed",
			zap.String("family_id", chatCtx.Scope.FamilyID),
			zap.Error(err),
		)
		return &domain.ChatMessage{Content: domain.MsgFailure, Retryable: true}, nil
	}
	if parsed == nil {
		return &domain.ChatMessage{Content: domain.MsgUnrecognized}, nil
	}

	// O cliente pode ter desistido da resposta; o lançamento é gravado mesmo assim.
	records, err := s.recorder.CreateTransaction(context.WithoutCancel(ctx), chatCtx.Scope, maindomain.TransactionInput{
		Amount:      parsed.Amount,
		Type:        parsed.Type,
		Category:    parsed.Category,
		Description: parsed.Description,
		Date:        parsed.Date,
	})
	if err != nil {
		var invalid *maindomain.ErrValidation
		if errors.As(err, &invalid) {
			return &domain.ChatMessage{Content: domain.MsgUnrecognized}, nil
		}
		return nil, err
	}

	return &domain.ChatMessage{
		Content:            domain.MsgRecorded,
		RelatedTransaction: &records[0],
	}, nil
}
