// Package domain define os tipos da rota POST /v1/chat.
//
// O chat recebe uma frase livre ("Uber 25 reais"), pede ao modelo que
// extraia a transação e, se reconhecida, grava o lançamento para o usuário
// da sessão. A resposta é sempre uma mensagem do assistente.
package domain

import (
	"time"

	maindomain "github.com/boddenberg/financas-familia-bfa-go/internal/domain"
)

// ChatRequest é o body de POST /v1/chat.
type ChatRequest struct {
	Text string `json:"text"`
}

// Role identifica o autor da mensagem.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage é a resposta do assistente.
type ChatMessage struct {
	ID                 string                  `json:"id"`
	Role               Role                    `json:"role"`
	Content            string                  `json:"content"`
	Intent             string                  `json:"intent"`
	RelatedTransaction *maindomain.Transaction `json:"relatedTransaction,omitempty"`
	// Retryable indica falha do modelo: o usuário pode reenviar a mesma frase.
	Retryable bool      `json:"retryable,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Respostas fixas do assistente.
const (
	MsgRecorded     = "Entendido! Registrei a transação."
	MsgUnrecognized = "Desculpe, não identifiquei uma transação financeira clara. Tente dizer algo como \"Gastei 30 na padaria\"."
	MsgFailure      = "Ocorreu um erro ao processar sua mensagem. Tente novamente."
)

// Intents detectadas pelo roteador.
const (
	IntentTransaction = "transaction"
	IntentBalance     = "balance"
)

// ChatContext encapsula tudo que uma Strategy precisa para processar
// uma mensagem. É montado pelo ChatService antes de delegar.
type ChatContext struct {
	Scope          maindomain.Scope
	Text           string
	DetectedIntent string
	Now            time.Time
}
