// Package handler expõe POST /v1/chat.
//
// Request:
//
//	Authorization: Bearer <token da sessão>
//	Body: {"text": "Uber 25 reais"}
//
// Response (200 OK):
//
//	{"id": "...", "role": "assistant", "content": "Entendido! Registrei a transação.",
//	 "relatedTransaction": {...}}
//
// Falha do modelo também responde 200, com "retryable": true. Só erros de
// entrada (400), sessão (401) e envio duplicado (409) viram status de erro.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/boddenberg/financas-familia-bfa-go/internal/chat/domain"
	"github.com/boddenberg/financas-familia-bfa-go/internal/chat/service"
	maindomain "github.com/boddenberg/financas-familia-bfa-go/internal/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("chat/handler")

// ChatHandler retorna o http.HandlerFunc de POST /v1/chat. O escopo vem do
// middleware de sessão.
func ChatHandler(chatSvc *service.ChatService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/chat")
		defer span.End()

		scope, ok := maindomain.ScopeFromContext(ctx)
		if !ok {
			writeError(w, http.StatusUnauthorized, "sessão obrigatória")
			return
		}
		span.SetAttributes(attribute.String("family.id", scope.FamilyID))

		var req domain.ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "body inválido: esperado {\"text\": \"sua mensagem\"}")
			return
		}

		msg, err := chatSvc.SendMessage(ctx, scope, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, msg)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// handleServiceError mapeia os erros que o chat pode devolver.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var validation *maindomain.ErrValidation
	var duplicate *maindomain.ErrDuplicate
	var unauthorized *maindomain.ErrUnauthorized
	var external *maindomain.ErrExternalService
	var conflict *maindomain.ErrConflict

	switch {
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &duplicate):
		logger.Debug("chat message already in flight", zap.String("key", duplicate.Key))
		writeError(w, http.StatusConflict, "aguarde a resposta da mensagem anterior")
	case errors.As(err, &unauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &conflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &external):
		logger.Error("external service error", zap.String("service", external.Service), zap.Error(external.Err))
		writeError(w, http.StatusBadGateway, "serviço indisponível: "+external.Service)
	default:
		logger.Error("unexpected error in chat handler", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
