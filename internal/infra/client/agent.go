// Package client holds HTTP clients for remote services.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/boddenberg/financas-familia-bfa-go/internal/domain"
	"github.com/boddenberg/financas-familia-bfa-go/internal/infra/observability"
	"github.com/boddenberg/financas-familia-bfa-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("client")

// AgentClient calls a remote assistant agent that speaks the same JSON
// contract as the Gemini adapter:
//
//	POST /v1/parse    {"text": "...", "now": "RFC3339"} -> {"isValid": true, "amount": 30, ...}
//	POST /v1/forecast {"history": [...]}                -> {"projectedIncome": ..., "confidence": "Alta"}
type AgentClient struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	bulkhead   *resilience.Bulkhead
	cfg        resilience.Config
	metrics    *observability.Metrics
}

// NewAgentClient creates a new AgentClient.
func NewAgentClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, metrics *observability.Metrics) *AgentClient {
	return &AgentClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		cb:         cb,
		bulkhead:   resilience.NewBulkhead(cfg.MaxConcurrency),
		cfg:        cfg,
		metrics:    metrics,
	}
}

type parseRequest struct {
	Text string `json:"text"`
	Now  string `json:"now"`
}

type forecastRequest struct {
	History []domain.HistoryPoint `json:"history"`
}

// ParseTransaction implements port.TransactionParser.
func (c *AgentClient) ParseTransaction(ctx context.Context, text string, now time.Time) (*domain.ParsedTransaction, error) {
	ctx, span := tracer.Start(ctx, "AgentClient.ParseTransaction")
	defer span.End()

	var reply domain.ParseReply
	if err := c.post(ctx, "/v1/parse", parseRequest{Text: text, Now: now.Format(time.RFC3339)}, &reply); err != nil {
		c.metrics.IncrAssistantRequest("parse", "error")
		return nil, err
	}

	parsed := reply.Normalize(now)
	span.SetAttributes(attribute.Bool("parse.recognized", parsed != nil))
	if parsed == nil {
		c.metrics.IncrAssistantRequest("parse", "unrecognized")
		return nil, nil
	}
	c.metrics.IncrAssistantRequest("parse", "success")
	return parsed, nil
}

// Forecast implements port.Forecaster.
func (c *AgentClient) Forecast(ctx context.Context, history []domain.HistoryPoint) (*domain.Forecast, error) {
	ctx, span := tracer.Start(ctx, "AgentClient.Forecast")
	defer span.End()
	span.SetAttributes(attribute.Int("history.size", len(history)))

	if len(history) == 0 {
		f := domain.EmptyHistoryForecast()
		return &f, nil
	}

	var f domain.Forecast
	if err := c.post(ctx, "/v1/forecast", forecastRequest{History: history}, &f); err != nil {
		c.metrics.IncrAssistantRequest("forecast", "error")
		return nil, err
	}
	f.Normalize()
	c.metrics.IncrAssistantRequest("forecast", "success")
	return &f, nil
}

func (c *AgentClient) post(ctx context.Context, path string, payload, out any) error {
	if err := c.bulkhead.Acquire(ctx); err != nil {
		return &domain.ErrTimeout{Operation: "agent" + path}
	}
	defer c.bulkhead.Release()

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal agent request: %w", err)
	}

	start := time.Now()
	_, err = c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			url := fmt.Sprintf("%s%s", c.baseURL, path)
			httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
			if err != nil {
				return err
			}
			httpReq.Header.Set("Content-Type", "application/json")

			resp, err := c.httpClient.Do(httpReq)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
				return resilience.Permanent(fmt.Errorf("agent %s returned status %d: %s", path, resp.StatusCode, msg))
			}
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("agent %s returned status %d", path, resp.StatusCode)
			}

			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return resilience.Permanent(fmt.Errorf("decode agent %s: %w", path, err))
			}
			return nil
		})
	})
	c.metrics.RecordRequestDuration("agent"+path, time.Since(start))

	if err != nil {
		c.metrics.IncrExternalError("agent")
		err = resilience.MapBreakerError("agent", err)
		var open *domain.ErrCircuitOpen
		if errors.As(err, &open) {
			return err
		}
		return &domain.ErrExternalService{Service: "agent", Err: err}
	}
	return nil
}
