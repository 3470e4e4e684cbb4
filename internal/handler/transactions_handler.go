package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/boddenberg/financas-familia-bfa-go/internal/domain"
	"github.com/boddenberg/financas-familia-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// 2. Lançamentos
// ============================================================

// listTransactionsHandler returns the month view when ?month= is given and
// the whole ledger otherwise.
func listTransactionsHandler(ledger *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/transactions")
		defer span.End()

		scope := scopeOf(r)
		if strings.TrimSpace(r.URL.Query().Get("month")) == "" {
			list, err := ledger.Transactions(ctx, scope)
			if err != nil {
				handleServiceError(w, err, logger)
				return
			}
			writeJSON(w, http.StatusOK, newList(list, nil))
			return
		}

		p, err := periodParam(r, "month", ledger.Today())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("period", p.String()))

		view, err := ledger.Month(ctx, scope, p)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if view.Transactions == nil {
			view.Transactions = []domain.Transaction{}
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func createTransactionHandler(ledger *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/transactions")
		defer span.End()

		var in domain.TransactionInput
		if err := decodeBody(r, &in); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.Int("installments", in.Installments))

		created, err := ledger.CreateTransaction(ctx, scopeOf(r), in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, newList(created, nil))
	}
}

func deleteTransactionHandler(ledger *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/transactions/{id}")
		defer span.End()

		id := chi.URLParam(r, "id")
		span.SetAttributes(attribute.String("transaction.id", id))
		if err := ledger.DeleteTransaction(ctx, scopeOf(r), id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "Lançamento removido", ID: id})
	}
}

func exportCSVHandler(ledger *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/transactions/export")
		defer span.End()

		body, filename, err := ledger.ExportCSV(ctx, scopeOf(r))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(filename))
		w.WriteHeader(http.StatusOK)
		w.Write(body)
	}
}

// ============================================================
// 3. Planilha mensal
// ============================================================

type sheetResponse struct {
	Period   string             `json:"period"`
	Type     string             `json:"type"`
	Rows     []domain.SheetRow  `json:"rows"`
	Warnings []domain.DataIssue `json:"warnings,omitempty"`
}

func getSheetHandler(ledger *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/sheet")
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

		rows, issues, err := ledger.Sheet(ctx, scopeOf(r), p, typ)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, sheetResponse{Period: p.String(), Type: string(typ), Rows: rows, Warnings: issues})
	}
}

func saveSheetHandler(ledger *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/sheet")
		defer span.End()

		var in domain.MonthlySheetInput
		if err := decodeBody(r, &in); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("period", in.Month), attribute.Int("values", len(in.Values)))

		created, err := ledger.SaveMonthlySheet(ctx, scopeOf(r), in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, newList(created, nil))
	}
}
