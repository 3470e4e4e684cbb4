package service_test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/boddenberg/financas-familia-bfa-go/internal/analytics"
	"github.com/boddenberg/financas-familia-bfa-go/internal/domain"
	"github.com/boddenberg/financas-familia-bfa-go/internal/infra/cache"
	"github.com/boddenberg/financas-familia-bfa-go/internal/infra/idgen"
	"github.com/boddenberg/financas-familia-bfa-go/internal/infra/observability"
	"github.com/boddenberg/financas-familia-bfa-go/internal/infra/storage"
	"github.com/boddenberg/financas-familia-bfa-go/internal/ledger"
	"github.com/boddenberg/financas-familia-bfa-go/internal/service"

	"go.uber.org/zap"
)

// --- Mocks ---

type mockForecaster struct {
	forecast *domain.Forecast
	err      error
	delay    time.Duration
	calls    int32
	history  []domain.HistoryPoint
	mu       sync.Mutex
}

func (m *mockForecaster) Forecast(ctx context.Context, history []domain.HistoryPoint) (*domain.Forecast, error) {
	atomic.AddInt32(&m.calls, 1)
	m.mu.Lock()
	m.history = history
	m.mu.Unlock()
	if m.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.delay):
		}
	}
	return m.forecast, m.err
}

type mockPublisher struct {
	mu     sync.Mutex
	events []domain.LedgerEvent
	err    error
}

func (m *mockPublisher) Publish(_ context.Context, evt domain.LedgerEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
	return m.err
}

func (m *mockPublisher) Close() error { return nil }

func (m *mockPublisher) names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.events))
	for i, e := range m.events {
		out[i] = e.Name
	}
	return out
}

// --- Fixture ---

var (
	saoPaulo, _ = time.LoadLocation("America/Sao_Paulo")
	silva       = domain.Scope{FamilyID: "silva", FamilyName: "Família Silva", UserID: "u1", UserName: "Ana"}
	fixedNow    = time.Date(2024, 3, 15, 10, 0, 0, 0, saoPaulo)
)

type fixture struct {
	kv         *storage.Memory
	store      *ledger.Store
	forecaster *mockForecaster
	events     *mockPublisher
	forecasts  *service.ForecastService
	ledger     *service.LedgerService
	debts      *service.DebtService
	metrics    *observability.Metrics
}

func newFixture() *fixture {
	f := &fixture{
		kv:         storage.NewMemory(),
		forecaster: &mockForecaster{forecast: &domain.Forecast{ProjectedIncome: 500000, ProjectedExpense: 120000, Advice: "ok", Confidence: domain.ConfidenceHigh}},
		events:     &mockPublisher{},
		metrics:    observability.NewMetrics(),
	}
	logger := zap.NewNop()
	f.store = ledger.NewStore(f.kv, f.metrics, logger)
	f.forecasts = service.NewForecastService(f.store, f.forecaster, cache.New[*domain.Forecast](time.Minute), 50, f.metrics, logger)
	f.ledger = service.NewLedgerService(
		f.store,
		analytics.New(saoPaulo),
		idgen.NewSequence("tx"),
		f.forecasts,
		f.events,
		service.DashboardOptions{TopCategories: 8, UpcomingLimit: 5, ProjectionMonths: 6},
		f.metrics,
		logger,
	)
	f.ledger.SetClock(func() time.Time { return fixedNow })
	f.debts = service.NewDebtService(f.store, idgen.NewSequence("debt"), f.events, saoPaulo, logger)
	f.debts.SetClock(func() time.Time { return fixedNow })
	return f
}

func money(v float64) domain.Money { return domain.FromFloat(v) }
