// Package service implementa o ChatService.
//
// ============================================================
// ARQUITETURA — Strategy Pattern para Routing de Intenção
// ============================================================
//
// Fluxo:
//  1. Handler recebe POST /v1/chat com {"text": "..."}
//  2. ChatService.SendMessage() bloqueia um segundo envio do mesmo usuário
//  3. Detecta a intenção (pergunta de saldo? lançamento?)
//  4. A primeira Strategy que aceita a intenção processa a mensagem
//  5. Sem strategy → TransactionStrategy (parser do modelo + gravação)
package service

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/boddenberg/financas-familia-bfa-go/internal/chat/domain"
	maindomain "github.com/boddenberg/financas-familia-bfa-go/internal/domain"
	"github.com/boddenberg/financas-familia-bfa-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var chatTracer = otel.Tracer("chat/service")

// ChatStrategy define o contrato de uma estratégia de processamento.
type ChatStrategy interface {
	CanHandle(intent string) bool
	Handle(ctx context.Context, chatCtx *domain.ChatContext) (*domain.ChatMessage, error)
}

// ChatService é o orquestrador do chat.
type ChatService struct {
	fallback   ChatStrategy
	strategies []ChatStrategy
	ids        port.IDGenerator
	loc        *time.Location
	now        func() time.Time
	logger     *zap.Logger

	// inFlight guarda os usuários com mensagem em processamento.
	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewChatService cria o ChatService. fallback trata toda mensagem que
// nenhuma das strategies aceita.
func NewChatService(
	fallback ChatStrategy,
	strategies []ChatStrategy,
	ids port.IDGenerator,
	loc *time.Location,
	logger *zap.Logger,
) *ChatService {
	return &ChatService{
		fallback:   fallback,
		strategies: strategies,
		ids:        ids,
		loc:        loc,
		now:        time.Now,
		logger:     logger,
		inFlight:   make(map[string]struct{}),
	}
}

// SetClock troca time.Now; usado nos testes.
func (s *ChatService) SetClock(now func() time.Time) { s.now = now }

// SendMessage processa uma frase do usuário da sessão.
// Um segundo envio do mesmo usuário enquanto o primeiro não terminou
// recebe ErrDuplicate.
func (s *ChatService) SendMessage(ctx context.Context, scope maindomain.Scope, req *domain.ChatRequest) (*domain.ChatMessage, error) {
	ctx, span := chatTracer.Start(ctx, "ChatService.SendMessage")
	defer span.End()

	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, &maindomain.ErrValidation{Field: "text", Message: "mensagem vazia"}
	}

	key := scope.FamilyID + "/" + scope.UserID
	if !s.acquire(key) {
		return nil, &maindomain.ErrDuplicate{Key: "chat:" + key}
	}
	defer s.release(key)

	intent := detectIntent(text)
	span.SetAttributes(attribute.String("chat.intent", intent))
	s.logger.Info("chat message received",
		zap.String("family_id", scope.FamilyID),
		zap.String("user_id", scope.UserID),
		zap.String("intent", intent),
		zap.Int("text_length", len(text)),
	)

	chatCtx := &domain.ChatContext{
		Scope:          scope,
		Text:           text,
		DetectedIntent: intent,
		Now:            s.now().In(s.loc),
	}

	strategy := s.fallback
	for _, st := range s.strategies {
		if st.CanHandle(intent) {
			strategy = st
			break
		}
	}

	msg, err := strategy.Handle(ctx, chatCtx)
	if err != nil {
		return nil, err
	}
	msg.ID = s.ids.NewID()
	msg.Role = domain.RoleAssistant
	msg.Intent = intent
	msg.CreatedAt = chatCtx.Now
	return msg, nil
}

func (s *ChatService) acquire(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[key]; busy {
		return false
	}
	s.inFlight[key] = struct{}{}
	return true
}

func (s *ChatService) release(key string) {
	s.mu.Lock()
	delete(s.inFlight, key)
	s.mu.Unlock()
}

// ============================================================
// detectIntent — detecção simples por keywords
// ============================================================

var hasDigit = regexp.MustCompile(`\d`)

// detectIntent só desvia do lançamento quando a frase é uma pergunta de
// saldo sem nenhum valor ("qual meu saldo?"). Qualquer número indica lançamento.
func detectIntent(text string) string {
	if hasDigit.MatchString(text) {
		return domain.IntentTransaction
	}
	lower := strings.ToLower(text)
	balanceKeywords := []string{"saldo", "quanto tenho", "quanto gastei", "balanço", "resumo do mês"}
	for _, kw := range balanceKeywords {
		if strings.Contains(lower, kw) {
			return domain.IntentBalance
		}
	}
	return domain.IntentTransaction
}
