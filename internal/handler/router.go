package handler

import (
	"net/http"

	chathandler "github.com/boddenberg/financas-familia-bfa-go/internal/chat/handler"
	chatservice "github.com/boddenberg/financas-familia-bfa-go/internal/chat/service"
	"github.com/boddenberg/financas-familia-bfa-go/internal/infra/observability"
	"github.com/boddenberg/financas-familia-bfa-go/internal/port"
	"github.com/boddenberg/financas-familia-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Services groups what the router dispatches to.
type Services struct {
	Ledger    *service.LedgerService
	Debts     *service.DebtService
	Sessions  *service.SessionService
	Forecasts *service.ForecastService
	Chat      *chatservice.ChatService
}

// NewRouter creates the HTTP router with all routes and middleware.
// kv is pinged by /readyz and may be nil. Chat and Forecasts are nil when no
// assistant is configured; their routes then answer 503.
func NewRouter(svc Services, kv port.KV, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler())
	r.Get("/readyz", readyzHandler(kv, logger))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// =============================================
		// 1. 🔐 Sessão
		// POST /v1/session (pública)
		// =============================================
		r.Post("/session", startSessionHandler(svc.Sessions, logger))

		r.Group(func(r chi.Router) {
			r.Use(SessionMiddleware(svc.Sessions, logger))

			r.Get("/session", currentSessionHandler())
			r.Get("/categories", categoriesHandler())

			// =============================================
			// 2. 💰 Lançamentos
			// =============================================
			r.Get("/transactions", listTransactionsHandler(svc.Ledger, logger))
			r.Post("/transactions", createTransactionHandler(svc.Ledger, logger))
			r.Get("/transactions/export", exportCSVHandler(svc.Ledger, logger))
			r.Delete("/transactions/{id}", deleteTransactionHandler(svc.Ledger, logger))

			// =============================================
			// 3. 📋 Planilha mensal
			// =============================================
			r.Get("/sheet", getSheetHandler(svc.Ledger, logger))
			r.Post("/sheet", saveSheetHandler(svc.Ledger, logger))

			// =============================================
			// 4. 📈 Análises
			// =============================================
			r.Route("/analytics", func(r chi.Router) {
				r.Get("/summary", summaryHandler(svc.Ledger, logger))
				r.Get("/categories", categoryBreakdownHandler(svc.Ledger, logger))
				r.Get("/projection", projectionHandler(svc.Ledger, logger))
				r.Get("/upcoming", upcomingHandler(svc.Ledger, logger))
			})
			r.Get("/dashboard", dashboardHandler(svc.Ledger, logger))
			r.Get("/forecast", forecastHandler(svc.Forecasts, logger))

			// =============================================
			// 5. 💬 Chat
			// =============================================
			if svc.Chat != nil {
				r.Post("/chat", chathandler.ChatHandler(svc.Chat, logger))
			} else {
				r.Post("/chat", func(w http.ResponseWriter, r *http.Request) {
					writeError(w, http.StatusServiceUnavailable, "assistente não configurado")
				})
			}

			// =============================================
			// 6. 🧾 Dívidas
			// =============================================
			r.Route("/debts", func(r chi.Router) {
				r.Get("/", listDebtsHandler(svc.Debts, logger))
				r.Post("/", createDebtHandler(svc.Debts, logger))
				r.Get("/summary", debtSummaryHandler(svc.Debts, logger))
				r.Put("/{id}", updateDebtHandler(svc.Debts, logger))
				r.Patch("/{id}/status", debtStatusHandler(svc.Debts, logger))
				r.Delete("/{id}", deleteDebtHandler(svc.Debts, logger))
			})
		})

		// =============================================
		// 7. 📊 Métricas do assistente
		// =============================================
		r.Get("/metrics/assistant", assistantMetricsHandler(metrics))
	})

	return r
}
