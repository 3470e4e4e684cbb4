package handler

import (
	"net/http"

	"github.com/boddenberg/financas-familia-bfa-go/internal/domain"
	"github.com/boddenberg/financas-familia-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// 6. Dívidas
// ============================================================

func listDebtsHandler(debts *service.DebtService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/debts")
		defer span.End()

		list, err := debts.List(ctx, scopeOf(r))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if list.Debts == nil {
			list.Debts = []domain.Debt{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func debtSummaryHandler(debts *service.DebtService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/debts/summary")
		defer span.End()

		sum, err := debts.Summary(ctx, scopeOf(r))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, sum)
	}
}

func createDebtHandler(debts *service.DebtService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/debts")
		defer span.End()

		var in domain.DebtInput
		if err := decodeBody(r, &in); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		d, err := debts.Create(ctx, scopeOf(r), in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, d)
	}
}

func updateDebtHandler(debts *service.DebtService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/debts/{id}")
		defer span.End()

		id := chi.URLParam(r, "id")
		span.SetAttributes(attribute.String("debt.id", id))

		var in domain.DebtInput
		if err := decodeBody(r, &in); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		d, err := debts.Update(ctx, scopeOf(r), id, in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}

type debtStatusRequest struct {
	Status string `json:"status"`
}

func debtStatusHandler(debts *service.DebtService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/debts/{id}/status")
		defer span.End()

		id := chi.URLParam(r, "id")
		var req debtStatusRequest
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		status, err := domain.ParseDebtStatus(req.Status)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("debt.id", id), attribute.String("debt.status", string(status)))

		d, err := debts.SetStatus(ctx, scopeOf(r), id, status)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}

func deleteDebtHandler(debts *service.DebtService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/debts/{id}")
		defer span.End()

		id := chi.URLParam(r, "id")
		if err := debts.Delete(ctx, scopeOf(r), id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "Dívida removida", ID: id})
	}
}
