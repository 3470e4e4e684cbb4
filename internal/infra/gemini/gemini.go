// Package gemini adapts the Google Gemini API to the assistant ports.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/boddenberg/financas-familia-bfa-go/internal/domain"
	"github.com/boddenberg/financas-familia-bfa-go/internal/infra/observability"
	"github.com/boddenberg/financas-familia-bfa-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

var tracer = otel.Tracer("gemini")

// DefaultModel is used when GEMINI_MODEL is empty.
const DefaultModel = "gemini-2.5-flash"

// generator is the slice of the genai client we call. Tests replace it.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client implements port.Assistant on top of Gemini structured output.
type Client struct {
	models   generator
	model    string
	cb       *gobreaker.CircuitBreaker
	bulkhead *resilience.Bulkhead
	cfg      resilience.Config
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// New builds a Gemini client for apiKey.
func New(ctx context.Context, apiKey, model string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, metrics *observability.Metrics, logger *zap.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: API key not configured")
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return newWithGenerator(gc.Models, model, cb, cfg, metrics, logger), nil
}

func newWithGenerator(g generator, model string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, metrics *observability.Metrics, logger *zap.Logger) *Client {
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		models:   g,
		model:    model,
		cb:       cb,
		bulkhead: resilience.NewBulkhead(cfg.MaxConcurrency),
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger,
	}
}

// ============================================================
// Parse
// ============================================================

var parseSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"isValid":     {Type: genai.TypeBoolean, Description: "True se for uma transação financeira válida"},
		"amount":      {Type: genai.TypeNumber, Description: "Valor monetário absoluto"},
		"type":        {Type: genai.TypeString, Enum: []string{"INCOME", "EXPENSE"}, Description: "Tipo da transação"},
		"category":    {Type: genai.TypeString, Description: "Categoria curta (ex: Alimentação, Transporte, Salário)"},
		"description": {Type: genai.TypeString, Description: "Descrição curta e clara"},
		"date":        {Type: genai.TypeString, Description: "Data da transação em formato ISO 8601 (YYYY-MM-DD)"},
	},
	Required: []string{"isValid"},
}

func parsePrompt(text string, now time.Time) string {
	return fmt.Sprintf(`Hoje é %s.
Analise o seguinte texto do usuário e extraia os dados financeiros.
Se o texto não contiver uma transação financeira clara, retorne isValid=false.
Texto: %q`, now.Format(time.RFC3339), text)
}

// ParseTransaction implements port.TransactionParser.
func (c *Client) ParseTransaction(ctx context.Context, text string, now time.Time) (*domain.ParsedTransaction, error) {
	ctx, span := tracer.Start(ctx, "Gemini.ParseTransaction")
	defer span.End()

	var reply domain.ParseReply
	if err := c.generate(ctx, "parse", parsePrompt(text, now), parseSchema, &reply); err != nil {
		c.metrics.IncrAssistantRequest("parse", "error")
		return nil, err
	}

	parsed := reply.Normalize(now)
	if parsed == nil {
		c.metrics.IncrAssistantRequest("parse", "unrecognized")
		span.SetAttributes(attribute.Bool("parse.recognized", false))
		return nil, nil
	}
	c.metrics.IncrAssistantRequest("parse", "success")
	span.SetAttributes(attribute.Bool("parse.recognized", true))
	return parsed, nil
}

// ============================================================
// Forecast
// ============================================================

var forecastSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"projectedIncome":  {Type: genai.TypeNumber},
		"projectedExpense": {Type: genai.TypeNumber},
		"advice":           {Type: genai.TypeString},
		"confidence":       {Type: genai.TypeString, Enum: []string{"Alta", "Média", "Baixa"}},
	},
	Required: []string{"projectedIncome", "projectedExpense", "advice", "confidence"},
}

func forecastPrompt(history []byte) string {
	return fmt.Sprintf(`Atue como um consultor financeiro pessoal. Analise o histórico JSON de transações abaixo.
Forneça uma previsão para o próximo mês e um conselho curto e prático.

Histórico: %s`, history)
}

// Forecast implements port.Forecaster. history must already be truncated.
func (c *Client) Forecast(ctx context.Context, history []domain.HistoryPoint) (*domain.Forecast, error) {
	ctx, span := tracer.Start(ctx, "Gemini.Forecast")
	defer span.End()
	span.SetAttributes(attribute.Int("history.size", len(history)))

	if len(history) == 0 {
		f := domain.EmptyHistoryForecast()
		return &f, nil
	}

	summary, err := json.Marshal(history)
	if err != nil {
		return nil, fmt.Errorf("marshal history: %w", err)
	}

	var f domain.Forecast
	if err := c.generate(ctx, "forecast", forecastPrompt(summary), forecastSchema, &f); err != nil {
		c.metrics.IncrAssistantRequest("forecast", "error")
		return nil, err
	}
	f.Normalize()
	c.metrics.IncrAssistantRequest("forecast", "success")
	return &f, nil
}

// generate runs one structured-output call behind the bulkhead, circuit
// breaker and retry, and decodes the JSON answer into out.
func (c *Client) generate(ctx context.Context, op, prompt string, schema *genai.Schema, out any) error {
	if err := c.bulkhead.Acquire(ctx); err != nil {
		return &domain.ErrTimeout{Operation: "gemini." + op}
	}
	defer c.bulkhead.Release()

	start := time.Now()
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	}

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			resp, err := c.models.GenerateContent(ctx, c.model, genai.Text(prompt), config)
			if err != nil {
				return err
			}
			if resp.UsageMetadata != nil {
				c.metrics.RecordTokens(int(resp.UsageMetadata.PromptTokenCount), int(resp.UsageMetadata.CandidatesTokenCount))
			}

			text := strings.TrimSpace(resp.Text())
			if text == "" {
				text = "{}"
			}
			if err := json.Unmarshal([]byte(text), out); err != nil {
				// Resposta fora do schema: repetir não ajuda.
				return resilience.Permanent(fmt.Errorf("decode %s reply: %w", op, err))
			}
			return nil
		})
	})
	c.metrics.RecordRequestDuration("gemini."+op, time.Since(start))

	if err != nil {
		c.metrics.IncrExternalError("gemini")
		c.logger.Warn("gemini call failed", zap.String("operation", op), zap.Error(err))
		if errors.Is(err, context.DeadlineExceeded) {
			return &domain.ErrTimeout{Operation: "gemini." + op}
		}
		err = resilience.MapBreakerError("gemini", err)
		var open *domain.ErrCircuitOpen
		if errors.As(err, &open) {
			return err
		}
		return &domain.ErrExternalService{Service: "gemini", Err: err}
	}
	return nil
}
