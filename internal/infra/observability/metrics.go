package observability

import (
	"time"

	"github.com/boddenberg/financas-familia-bfa-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the BFA.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration   *prometheus.HistogramVec
	externalErrors    *prometheus.CounterVec
	cacheHits         *prometheus.CounterVec
	cacheMisses       *prometheus.CounterVec
	tokensUsed        *prometheus.CounterVec
	assistantRequests *prometheus.CounterVec
	ledgerWrites      *prometheus.CounterVec
	dataIssues        *prometheus.CounterVec
	eventsPublished   *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "financas_request_duration_seconds",
				Help:    "Duration of operations by name.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "financas_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "financas_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "financas_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		tokensUsed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "financas_llm_tokens_total",
				Help: "Total LLM tokens consumed.",
			},
			[]string{"type"},
		),
		assistantRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "financas_assistant_requests_total",
				Help: "Model calls by operation and outcome.",
			},
			[]string{"operation", "status"},
		),
		ledgerWrites: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "financas_ledger_writes_total",
				Help: "Ledger list rewrites by list and operation.",
			},
			[]string{"list", "op"},
		),
		dataIssues: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "financas_data_issues_total",
				Help: "Stored records excluded from reads or aggregation.",
			},
			[]string{"kind"},
		),
		eventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "financas_events_published_total",
				Help: "Ledger events published by outcome.",
			},
			[]string{"status"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// RecordTokens records prompt and completion token usage.
func (m *Metrics) RecordTokens(prompt, completion int) {
	m.tokensUsed.WithLabelValues("prompt").Add(float64(prompt))
	m.tokensUsed.WithLabelValues("completion").Add(float64(completion))
}

// IncrAssistantRequest counts a parse or forecast call.
// status is one of success, error, unrecognized.
func (m *Metrics) IncrAssistantRequest(operation, status string) {
	m.assistantRequests.WithLabelValues(operation, status).Inc()
}

// IncrLedgerWrite counts a successful list rewrite.
func (m *Metrics) IncrLedgerWrite(list, op string) {
	m.ledgerWrites.WithLabelValues(list, op).Inc()
}

// IncrDataIssue counts records that could not be used.
func (m *Metrics) IncrDataIssue(kind string) {
	m.dataIssues.WithLabelValues(kind).Inc()
}

// AddDataIssues counts n issues of the same kind.
func (m *Metrics) AddDataIssues(kind string, n int) {
	if n > 0 {
		m.dataIssues.WithLabelValues(kind).Add(float64(n))
	}
}

// IncrEvent counts published (or failed) ledger events.
func (m *Metrics) IncrEvent(status string) {
	m.eventsPublished.WithLabelValues(status).Inc()
}

// GetAssistantSnapshot returns cumulative model usage for GET /v1/metrics/assistant.
func (m *Metrics) GetAssistantSnapshot() *domain.AssistantMetrics {
	parse := sumLabels(m.assistantRequests, "parse", "success", "error", "unrecognized")
	forecast := sumLabels(m.assistantRequests, "forecast", "success", "error")
	errorsTotal := getCounterValue(m.assistantRequests, "parse", "error") +
		getCounterValue(m.assistantRequests, "forecast", "error")
	unrecognized := getCounterValue(m.assistantRequests, "parse", "unrecognized")

	promptTokens := getCounterValue(m.tokensUsed, "prompt")
	completionTokens := getCounterValue(m.tokensUsed, "completion")
	cacheHits := getCounterValue(m.cacheHits, "forecast")
	cacheMisses := getCounterValue(m.cacheMisses, "forecast")

	total := parse + forecast
	snap := &domain.AssistantMetrics{
		ParseRequests:    int64(parse),
		ForecastRequests: int64(forecast),
		Period:           "all_time",
	}
	if total > 0 {
		snap.ErrorRate = errorsTotal / total
		snap.AvgTokensPerRequest = (promptTokens + completionTokens) / total
	}
	if parse > 0 {
		snap.UnrecognizedRate = unrecognized / parse
	}
	if cacheHits+cacheMisses > 0 {
		snap.CacheHitRate = cacheHits / (cacheHits + cacheMisses)
	}

	// Gemini 2.5 Flash list price: $0.30/1M input, $2.50/1M output tokens.
	snap.EstimatedCostUsd = (promptTokens/1e6)*0.30 + (completionTokens/1e6)*2.50
	return snap
}

func sumLabels(cv *prometheus.CounterVec, first string, rest ...string) float64 {
	var total float64
	for _, r := range rest {
		total += getCounterValue(cv, first, r)
	}
	return total
}

// getCounterValue extracts the current float64 value from a CounterVec for the given labels.
func getCounterValue(cv *prometheus.CounterVec, labels ...string) float64 {
	counter := cv.WithLabelValues(labels...)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
