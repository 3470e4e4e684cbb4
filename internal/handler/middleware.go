package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/boddenberg/financas-familia-bfa-go/internal/domain"
	"github.com/boddenberg/financas-familia-bfa-go/internal/service"

	"go.uber.org/zap"
)

type contextKey string

const userKey contextKey = "user"

// SessionMiddleware validates the Bearer session token and injects the user
// and its ledger scope into the request context.
func SessionMiddleware(sessions *service.SessionService, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("session: missing token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "Sessão não informada")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				writeError(w, http.StatusUnauthorized, "Formato de token inválido")
				return
			}

			user, err := sessions.Validate(parts[1])
			if err != nil {
				logger.Warn("session: invalid or expired token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
					zap.Error(err),
				)
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			ctx = domain.ContextWithScope(ctx, user.Scope())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext returns the session user set by SessionMiddleware.
func UserFromContext(ctx context.Context) *domain.User {
	u, _ := ctx.Value(userKey).(*domain.User)
	return u
}

// scopeOf returns the ledger scope of the request. Routes behind
// SessionMiddleware always have one.
func scopeOf(r *http.Request) domain.Scope {
	s, _ := domain.ScopeFromContext(r.Context())
	return s
}
