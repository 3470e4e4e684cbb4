package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/boddenberg/financas-familia-bfa-go/internal/analytics"
	"github.com/boddenberg/financas-familia-bfa-go/internal/domain"
	"github.com/boddenberg/financas-familia-bfa-go/internal/infra/observability"
	"github.com/boddenberg/financas-familia-bfa-go/internal/installment"
	"github.com/boddenberg/financas-familia-bfa-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("service")

// DashboardOptions sizes the dashboard sections.
type DashboardOptions struct {
	TopCategories    int
	UpcomingLimit    int
	ProjectionMonths int
}

// LedgerService owns the transaction list of each family: writes go through
// it so the forecast cache and the event stream stay in step.
type LedgerService struct {
	store     port.LedgerStore
	engine    *analytics.Engine
	ids       port.IDGenerator
	forecasts *ForecastService
	events    port.EventPublisher
	opts      DashboardOptions
	metrics   *observability.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewLedgerService creates the ledger service with all dependencies injected.
func NewLedgerService(
	store port.LedgerStore,
	engine *analytics.Engine,
	ids port.IDGenerator,
	forecasts *ForecastService,
	events port.EventPublisher,
	opts DashboardOptions,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *LedgerService {
	return &LedgerService{
		store:     store,
		engine:    engine,
		ids:       ids,
		forecasts: forecasts,
		events:    events,
		opts:      opts,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// SetClock replaces time.Now; tests pin "today" with it.
func (s *LedgerService) SetClock(now func() time.Time) { s.now = now }

// Location is the time zone used for period membership.
func (s *LedgerService) Location() *time.Location { return s.engine.Location() }

// Today is the current civil date in the ledger time zone.
func (s *LedgerService) Today() time.Time { return domain.CivilDate(s.now(), s.Location()) }

// ============================================================
// Escrita
// ============================================================

// CreateTransaction validates the form, expands installments and stores every
// record in one write. Nothing is stored when validation fails.
func (s *LedgerService) CreateTransaction(ctx context.Context, scope domain.Scope, in domain.TransactionInput) ([]domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "LedgerService.CreateTransaction")
	defer span.End()
	span.SetAttributes(
		attribute.String("family.id", scope.FamilyID),
		attribute.Int("installments", in.Installments),
	)

	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	if err := in.Validate(); err != nil {
		return nil, err
	}

	records, err := installment.Expand(installment.Request{
		TransactionInput: in,
		UserID:           scope.UserID,
		UserName:         scope.UserName,
	}, s.ids, s.now(), s.Location())
	if err != nil {
		return nil, err
	}

	if err := s.store.AppendTransactions(ctx, scope, records...); err != nil {
		return nil, fmt.Errorf("append transactions: %w", err)
	}
	s.afterTransactionsChanged(ctx, scope, domain.EventTransactionsCreated, transactionIDs(records))

	s.logger.Info("transactions created",
		zap.String("family_id", scope.FamilyID),
		zap.String("user_id", scope.UserID),
		zap.Int("count", len(records)),
	)
	return records, nil
}

// SaveMonthlySheet stores one record per category with a positive amount,
// dated the 1st of the month at noon. An empty sheet is a validation error.
func (s *LedgerService) SaveMonthlySheet(ctx context.Context, scope domain.Scope, in domain.MonthlySheetInput) ([]domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "LedgerService.SaveMonthlySheet")
	defer span.End()

	p, err := domain.ParsePeriod(in.Month)
	if err != nil {
		return nil, err
	}
	if !in.Type.Valid() {
		return nil, &domain.ErrValidation{Field: "type", Message: "tipo deve ser INCOME ou EXPENSE"}
	}

	loc := s.Location()
	date := domain.FormatDate(time.Date(p.Year, p.Month, 1, 12, 0, 0, 0, loc), domain.LayoutTimestamp)
	createdAt := s.now().UnixMilli()

	var records []domain.Transaction
	for _, category := range sheetCategories(in.Type, in.Values) {
		raw := strings.TrimSpace(in.Values[category])
		if raw == "" {
			continue
		}
		amount, err := domain.ParseMoney(raw)
		if err != nil {
			return nil, &domain.ErrValidation{Field: "values." + category, Message: fmt.Sprintf("valor inválido %q", raw)}
		}
		if amount <= 0 {
			continue
		}
		records = append(records, domain.Transaction{
			ID:          s.ids.NewID(),
			Amount:      amount,
			Type:        in.Type,
			Category:    category,
			Description: domain.MonthlySheetDescription(category),
			Date:        date,
			CreatedAt:   createdAt,
			UserID:      scope.UserID,
			UserName:    scope.UserName,
		})
	}
	if len(records) == 0 {
		return nil, &domain.ErrValidation{Field: "values", Message: "nenhum valor preenchido"}
	}

	if err := s.store.AppendTransactions(ctx, scope, records...); err != nil {
		return nil, fmt.Errorf("append sheet: %w", err)
	}
	s.afterTransactionsChanged(ctx, scope, domain.EventTransactionsCreated, transactionIDs(records))
	return records, nil
}

// sheetCategories lists the catalog categories first, in catalog order,
// then any extra keys sorted by name.
func sheetCategories(typ domain.TransactionType, values map[string]string) []string {
	catalog := domain.CategoriesFor(typ)
	seen := make(map[string]bool, len(catalog))
	out := make([]string, 0, len(values))
	for _, c := range catalog {
		seen[c] = true
		if _, ok := values[c]; ok {
			out = append(out, c)
		}
	}
	var extra []string
	for c := range values {
		if !seen[c] && strings.TrimSpace(c) != "" {
			extra = append(extra, c)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

// DeleteTransaction removes one record by ID.
func (s *LedgerService) DeleteTransaction(ctx context.Context, scope domain.Scope, id string) error {
	ctx, span := tracer.Start(ctx, "LedgerService.DeleteTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.id", id))

	if err := s.store.RemoveTransaction(ctx, scope, id); err != nil {
		return err
	}
	s.afterTransactionsChanged(ctx, scope, domain.EventTransactionsDeleted, []string{id})
	return nil
}

func (s *LedgerService) afterTransactionsChanged(ctx context.Context, scope domain.Scope, event string, ids []string) {
	if s.forecasts != nil {
		s.forecasts.Invalidate(scope.FamilyID)
	}
	publish(ctx, s.events, s.logger, domain.LedgerEvent{
		Name:       event,
		FamilyID:   scope.FamilyID,
		UserID:     scope.UserID,
		IDs:        ids,
		OccurredAt: s.now().UTC(),
	})
}

// publish never fails the caller: the write already happened.
func publish(ctx context.Context, events port.EventPublisher, logger *zap.Logger, evt domain.LedgerEvent) {
	if events == nil {
		return
	}
	if err := events.Publish(context.WithoutCancel(ctx), evt); err != nil {
		logger.Warn("failed to publish ledger event",
			zap.String("event", evt.Name),
			zap.String("family_id", evt.FamilyID),
			zap.Error(err),
		)
	}
}

func transactionIDs(list []domain.Transaction) []string {
	ids := make([]string, len(list))
	for i, t := range list {
		ids[i] = t.ID
	}
	return ids
}

// ============================================================
// Leitura e agregação
// ============================================================

// MonthView is the month list with its summary.
type MonthView struct {
	Period       string               `json:"period"`
	Transactions []domain.Transaction `json:"transactions"`
	Summary      domain.Summary       `json:"summary"`
	Warnings     []domain.DataIssue   `json:"warnings,omitempty"`
}

func (s *LedgerService) load(ctx context.Context, scope domain.Scope) ([]domain.Transaction, error) {
	list, err := s.store.ListTransactions(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	return list, nil
}

// report counts excluded records by field and returns them de-duplicated.
func (s *LedgerService) report(issues ...[]domain.DataIssue) []domain.DataIssue {
	seen := make(map[string]bool)
	var out []domain.DataIssue
	for _, group := range issues {
		for _, i := range group {
			k := i.TransactionID + "|" + i.Field
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, i)
			s.metrics.IncrDataIssue(i.Field)
		}
	}
	return out
}

// Transactions returns the whole ledger in storage order.
func (s *LedgerService) Transactions(ctx context.Context, scope domain.Scope) ([]domain.Transaction, error) {
	return s.load(ctx, scope)
}

// Month returns the records of p, newest first, with their summary.
func (s *LedgerService) Month(ctx context.Context, scope domain.Scope, p domain.Period) (*MonthView, error) {
	ctx, span := tracer.Start(ctx, "LedgerService.Month")
	defer span.End()

	list, err := s.load(ctx, scope)
	if err != nil {
		return nil, err
	}
	month, issues := s.engine.MonthTransactions(list, p)
	summary, _ := s.engine.Summary(list, p)
	return &MonthView{
		Period:       p.String(),
		Transactions: month,
		Summary:      summary,
		Warnings:     s.report(issues),
	}, nil
}

// Summary totals one period.
func (s *LedgerService) Summary(ctx context.Context, scope domain.Scope, p domain.Period) (domain.Summary, []domain.DataIssue, error) {
	list, err := s.load(ctx, scope)
	if err != nil {
		return domain.Summary{}, nil, err
	}
	sum, issues := s.engine.Summary(list, p)
	return sum, s.report(issues), nil
}

// CategoryBreakdown ranks the categories of one type in a period.
func (s *LedgerService) CategoryBreakdown(ctx context.Context, scope domain.Scope, p domain.Period, typ domain.TransactionType, k int) ([]domain.CategoryTotal, []domain.DataIssue, error) {
	list, err := s.load(ctx, scope)
	if err != nil {
		return nil, nil, err
	}
	rows, issues := s.engine.CategoryBreakdown(list, p, typ, k)
	return rows, s.report(issues), nil
}

// Projection summarizes count consecutive months starting at start.
func (s *LedgerService) Projection(ctx context.Context, scope domain.Scope, start domain.Period, count int) ([]domain.MonthProjection, []domain.DataIssue, error) {
	list, err := s.load(ctx, scope)
	if err != nil {
		return nil, nil, err
	}
	rows, issues := s.engine.Projection(list, start, count)
	return rows, s.report(issues), nil
}

// Upcoming lists the next records dated on or after asOf.
func (s *LedgerService) Upcoming(ctx context.Context, scope domain.Scope, asOf time.Time, limit int) ([]domain.Transaction, []domain.DataIssue, error) {
	list, err := s.load(ctx, scope)
	if err != nil {
		return nil, nil, err
	}
	rows, issues := s.engine.Upcoming(list, asOf, limit)
	return rows, s.report(issues), nil
}

// Sheet pre-fills the monthly sheet with the current totals per category.
func (s *LedgerService) Sheet(ctx context.Context, scope domain.Scope, p domain.Period, typ domain.TransactionType) ([]domain.SheetRow, []domain.DataIssue, error) {
	list, err := s.load(ctx, scope)
	if err != nil {
		return nil, nil, err
	}
	rows, issues := s.engine.SheetTotals(list, p, typ, domain.CategoriesFor(typ))
	return rows, s.report(issues), nil
}

// Dashboard builds the home screen for p. The analytics and the forecast run
// concurrently; a forecast failure is reported in ForecastError and does not
// fail the dashboard.
func (s *LedgerService) Dashboard(ctx context.Context, scope domain.Scope, p domain.Period) (*domain.Dashboard, error) {
	ctx, span := tracer.Start(ctx, "LedgerService.Dashboard")
	defer span.End()
	span.SetAttributes(attribute.String("period", p.String()))

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("dashboard", time.Since(start))
	}()

	dash := &domain.Dashboard{Period: p.String()}
	today := s.Today()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		list, err := s.load(gCtx, scope)
		if err != nil {
			return err
		}
		var issues [4][]domain.DataIssue
		dash.Summary, issues[0] = s.engine.Summary(list, p)
		dash.TopCategories, issues[1] = s.engine.CategoryBreakdown(list, p, domain.Expense, s.opts.TopCategories)
		dash.Projection, issues[2] = s.engine.Projection(list, domain.PeriodOf(today), s.opts.ProjectionMonths)
		dash.Upcoming, issues[3] = s.engine.Upcoming(list, today, s.opts.UpcomingLimit)
		dash.Warnings = s.report(issues[:]...)
		return nil
	})

	if s.forecasts != nil {
		g.Go(func() error {
			f, err := s.forecasts.Forecast(gCtx, scope)
			if err != nil {
				// Erro de dados (família ausente) ainda derruba o dashboard.
				var unauthorized *domain.ErrUnauthorized
				if errors.As(err, &unauthorized) {
					return err
				}
				dash.ForecastError = domain.ForecastFailAdvice
				return nil
			}
			dash.Forecast = f
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return dash, nil
}

// ExportCSV renders the whole ledger and the download file name.
func (s *LedgerService) ExportCSV(ctx context.Context, scope domain.Scope) ([]byte, string, error) {
	ctx, span := tracer.Start(ctx, "LedgerService.ExportCSV")
	defer span.End()

	list, err := s.load(ctx, scope)
	if err != nil {
		return nil, "", err
	}
	return EncodeCSV(list, s.Location()), ExportFilename(scope.FamilyName), nil
}
