package handler

import (
	"net/http"
	"strings"

	"github.com/boddenberg/financas-familia-bfa-go/internal/domain"
	"github.com/boddenberg/financas-familia-bfa-go/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// 4. Análises
// ============================================================

const (
	maxCategoryLimit = 50
	maxProjection    = 24
	maxUpcoming      = 100
)

type summaryResponse struct {
	Period   string             `json:"period"`
	Summary  domain.Summary     `json:"summary"`
	Warnings []domain.DataIssue `json:"warnings,omitempty"`
}

func summaryHandler(ledger *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/analytics/summary")
		defer span.End()

		p, err := periodParam(r, "month", ledger.Today())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		sum, issues, err := ledger.Summary(ctx, scopeOf(r), p)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, summaryResponse{Period: p.String(), Summary: sum, Warnings: issues})
	}
}

func categoryBreakdownHandler(ledger *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/analytics/categories")
		defer span.End()

		p, err := periodParam(r, "month", ledger.Today())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		typ, err := typeParam(r, domain.Expense)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		limit, err := intParam(r, "limit", 8, maxCategoryLimit)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("period", p.String()), attribute.String("type", string(typ)))

		rows, issues, err := ledger.CategoryBreakdown(ctx, scopeOf(r), p, typ, limit)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, newList(rows, issues))
	}
}

func projectionHandler(ledger *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/analytics/projection")
		defer span.End()

		start, err := periodParam(r, "start", ledger.Today())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		count, err := intParam(r, "count", 6, maxProjection)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		rows, issues, err := ledger.Projection(ctx, scopeOf(r), start, count)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, newList(rows, issues))
	}
}

func upcomingHandler(ledger *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/analytics/upcoming")
		defer span.End()

		asOf := ledger.Today()
		if v := strings.TrimSpace(r.URL.Query().Get("asOf")); v != "" {
			t, _, err := domain.ParseDate(v, ledger.Location())
			if err != nil {
				handleServiceError(w, &domain.ErrValidation{Field: "asOf", Message: "data inválida"}, logger)
				return
			}
			asOf = domain.CivilDate(t, ledger.Location())
		}
		limit, err := intParam(r, "limit", 5, maxUpcoming)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		rows, issues, err := ledger.Upcoming(ctx, scopeOf(r), asOf, limit)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, newList(rows, issues))
	}
}

func dashboardHandler(ledger *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/dashboard")
		defer span.End()

		p, err := periodParam(r, "month", ledger.Today())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		dash, err := ledger.Dashboard(ctx, scopeOf(r), p)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, dash)
	}
}

func forecastHandler(forecasts *service.ForecastService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/forecast")
		defer span.End()

		if forecasts == nil {
			writeError(w, http.StatusServiceUnavailable, "assistente não configurado")
			return
		}
		f, err := forecasts.Forecast(ctx, scopeOf(r))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, f)
	}
}
