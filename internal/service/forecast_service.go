package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/boddenberg/financas-familia-bfa-go/internal/domain"
	"github.com/boddenberg/financas-familia-bfa-go/internal/infra/observability"
	"github.com/boddenberg/financas-familia-bfa-go/internal/port"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// forecastCallTimeout bounds the shared model call, which outlives the
// caller that started it.
const forecastCallTimeout = 30 * time.Second

// ForecastService asks the model for next month's projection of a family.
// Results are cached per family until the ledger changes, and concurrent
// requests for the same family share one model call.
type ForecastService struct {
	store      port.LedgerStore
	forecaster port.Forecaster
	cache      port.Cache[*domain.Forecast]
	group      singleflight.Group
	mu         sync.Mutex
	generation map[string]uint64
	limit      int
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewForecastService creates the forecast service. limit is how many of the
// most recent records are sent to the model.
func NewForecastService(
	store port.LedgerStore,
	forecaster port.Forecaster,
	cache port.Cache[*domain.Forecast],
	limit int,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *ForecastService {
	return &ForecastService{
		store:      store,
		forecaster: forecaster,
		cache:      cache,
		generation: make(map[string]uint64),
		limit:      limit,
		metrics:    metrics,
		logger:     logger,
	}
}

func forecastCacheKey(familyID string) string {
	return "forecast:" + familyID
}

// Forecast returns the cached projection or asks the model.
// An empty ledger gets the fixed answer without a model call.
func (s *ForecastService) Forecast(ctx context.Context, scope domain.Scope) (*domain.Forecast, error) {
	ctx, span := tracer.Start(ctx, "ForecastService.Forecast")
	defer span.End()
	span.SetAttributes(attribute.String("family.id", scope.FamilyID))

	key := forecastCacheKey(scope.FamilyID)
	if f, ok := s.cache.Get(key); ok {
		s.metrics.IncrCacheHit("forecast")
		return f, nil
	}
	s.metrics.IncrCacheMiss("forecast")

	ch := s.group.DoChan(key, func() (any, error) {
		// A chamada é compartilhada: o cancelamento de um caller não derruba os outros.
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), forecastCallTimeout)
		defer cancel()

		gen := s.currentGeneration(scope.FamilyID)
		list, err := s.store.ListTransactions(callCtx, scope)
		if err != nil {
			return nil, fmt.Errorf("load ledger: %w", err)
		}
		if len(list) == 0 {
			f := domain.EmptyHistoryForecast()
			return &f, nil
		}

		start := time.Now()
		f, err := s.forecaster.Forecast(callCtx, domain.ToHistory(list, s.limit))
		s.metrics.RecordRequestDuration("forecast", time.Since(start))
		if err != nil {
			s.logger.Error("forecast failed",
				zap.String("family_id", scope.FamilyID),
				zap.Error(err),
			)
			return nil, err
		}
		// Um lançamento gravado durante a chamada torna o resultado velho.
		if s.currentGeneration(scope.FamilyID) == gen {
			s.cache.Set(key, f)
		}
		return f, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		span.SetAttributes(attribute.Bool("forecast.shared", res.Shared))
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.Forecast), nil
	}
}

// Invalidate drops the cached projection of a family.
func (s *ForecastService) Invalidate(familyID string) {
	s.mu.Lock()
	s.generation[familyID]++
	s.mu.Unlock()

	key := forecastCacheKey(familyID)
	s.group.Forget(key)
	s.cache.Delete(key)
}

func (s *ForecastService) currentGeneration(familyID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation[familyID]
}
