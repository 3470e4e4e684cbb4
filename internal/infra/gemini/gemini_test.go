package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/boddenberg/financas-familia-bfa-go/internal/domain"
	"github.com/boddenberg/financas-familia-bfa-go/internal/infra/observability"
	"github.com/boddenberg/financas-familia-bfa-go/internal/infra/resilience"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// fakeModels answers every call with the same JSON text (or error).
type fakeModels struct {
	reply   string
	err     error
	calls   int
	prompts []string
}

func (f *fakeModels) GenerateContent(_ context.Context, _ string, contents []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.calls++
	for _, c := range contents {
		for _, p := range c.Parts {
			f.prompts = append(f.prompts, p.Text)
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: "model", Parts: []*genai.Part{{Text: f.reply}}},
		}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{PromptTokenCount: 100, CandidatesTokenCount: 20},
	}, nil
}

func newTestClient(f *fakeModels) (*Client, *observability.Metrics) {
	m := observability.NewMetrics()
	cfg := resilience.Config{MaxRetries: 1, InitialBackoff: time.Millisecond, MaxConcurrency: 2}
	return newWithGenerator(f, "", resilience.NewCircuitBreaker("gemini-test", nil), cfg, m, zap.NewNop()), m
}

var now = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func TestParseTransaction_Recognized(t *testing.T) {
	f := &fakeModels{reply: `{"isValid":true,"amount":30,"type":"EXPENSE","category":"Padaria","description":"Pão","date":"2024-03-14"}`}
	c, m := newTestClient(f)

	got, err := c.ParseTransaction(context.Background(), "Gastei 30 na padaria", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.Amount != 3000 || got.Type != domain.Expense || got.Category != "Padaria" || got.Date != "2024-03-14" {
		t.Fatalf("unexpected parse %+v", got)
	}
	if !strings.Contains(f.prompts[0], "Gastei 30 na padaria") {
		t.Errorf("prompt does not carry the text: %q", f.prompts[0])
	}
	if snap := m.GetAssistantSnapshot(); snap.ParseRequests != 1 || snap.AvgTokensPerRequest != 120 {
		t.Errorf("unexpected snapshot %+v", snap)
	}
}

func TestParseTransaction_Defaults(t *testing.T) {
	f := &fakeModels{reply: `{"isValid":true,"amount":-12.5,"type":"OTHER"}`}
	c, _ := newTestClient(f)

	got, err := c.ParseTransaction(context.Background(), "12,50 algo", now)
	if err != nil || got == nil {
		t.Fatalf("expected a parse, got %v, %v", got, err)
	}
	if got.Amount != 1250 || got.Type != domain.Expense || got.Category != "Geral" ||
		got.Description != "Sem descrição" || got.Date != "2024-03-15" {
		t.Errorf("defaults not applied: %+v", got)
	}
}

func TestParseTransaction_Unrecognized(t *testing.T) {
	for _, reply := range []string{`{"isValid":false}`, `{"isValid":true}`, ``} {
		c, m := newTestClient(&fakeModels{reply: reply})
		got, err := c.ParseTransaction(context.Background(), "bom dia", now)
		if err != nil || got != nil {
			t.Errorf("reply %q: expected nil, nil; got %+v, %v", reply, got, err)
		}
		if snap := m.GetAssistantSnapshot(); snap.UnrecognizedRate != 1 {
			t.Errorf("reply %q: expected unrecognized, got %+v", reply, snap)
		}
	}
}

func TestParseTransaction_BadJSONIsNotRetried(t *testing.T) {
	f := &fakeModels{reply: `not json`}
	c, _ := newTestClient(f)

	_, err := c.ParseTransaction(context.Background(), "x", now)
	var ext *domain.ErrExternalService
	if !errors.As(err, &ext) {
		t.Fatalf("expected external service error, got %v", err)
	}
	if f.calls != 1 {
		t.Errorf("expected 1 call, got %d", f.calls)
	}
}

func TestForecast_EmptyHistorySkipsModel(t *testing.T) {
	f := &fakeModels{}
	c, _ := newTestClient(f)

	got, err := c.Forecast(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Advice != domain.EmptyHistoryAdvice || got.Confidence != domain.ConfidenceLow {
		t.Errorf("unexpected forecast %+v", got)
	}
	if f.calls != 0 {
		t.Errorf("model called %d times", f.calls)
	}
}

func TestForecast_DecodesReply(t *testing.T) {
	f := &fakeModels{reply: `{"projectedIncome":5000,"projectedExpense":1200.5,"advice":"Guarde 10%","confidence":"Média"}`}
	c, _ := newTestClient(f)

	history := []domain.HistoryPoint{{Date: "2024-03-01", Amount: 500000, Type: domain.Income, Category: "Salário"}}
	got, err := c.Forecast(context.Background(), history)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ProjectedIncome != 500000 || got.ProjectedExpense != 120050 || got.Confidence != domain.ConfidenceMedium {
		t.Errorf("unexpected forecast %+v", got)
	}
	if !strings.Contains(f.prompts[0], `"category":"Salário"`) {
		t.Errorf("history missing from prompt: %q", f.prompts[0])
	}
}

func TestForecast_FailureIsExternal(t *testing.T) {
	f := &fakeModels{err: errors.New("quota")}
	c, _ := newTestClient(f)

	_, err := c.Forecast(context.Background(), []domain.HistoryPoint{{Date: "2024-03-01"}})
	var ext *domain.ErrExternalService
	if !errors.As(err, &ext) {
		t.Fatalf("expected external service error, got %v", err)
	}
	if f.calls != 2 {
		t.Errorf("expected 2 attempts, got %d", f.calls)
	}
}
