package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/boddenberg/financas-familia-bfa-go/internal/domain"
	"github.com/boddenberg/financas-familia-bfa-go/internal/infra/observability"
	"github.com/boddenberg/financas-familia-bfa-go/internal/port"

	"go.uber.org/zap"
)

// ============================================================
// Operational endpoints
// ============================================================

func healthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// readyzHandler pings the ledger backend. A failing backend answers 503 so
// the orchestrator stops routing traffic here.
func readyzHandler(kv port.KV, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := domain.HealthStatus{
			Status:   "healthy",
			Services: []domain.ServiceHealth{{Name: "bfa-api", Status: "healthy"}},
		}

		if kv != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			start := time.Now()
			err := kv.Ping(ctx)
			svc := domain.ServiceHealth{Name: "ledger", Status: "healthy", LatencyMs: time.Since(start).Milliseconds()}
			if err != nil {
				logger.Warn("readiness: ledger ping failed", zap.Error(err))
				svc.Status = "unhealthy"
				svc.Error = err.Error()
				status.Status = "unhealthy"
			}
			status.Services = append(status.Services, svc)
		}

		code := http.StatusOK
		if status.Status == "unhealthy" {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, status)
	}
}

func assistantMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetAssistantSnapshot())
	}
}
