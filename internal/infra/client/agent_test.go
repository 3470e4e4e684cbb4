package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/boddenberg/financas-familia-bfa-go/internal/domain"
	"github.com/boddenberg/financas-familia-bfa-go/internal/infra/client"
	"github.com/boddenberg/financas-familia-bfa-go/internal/infra/observability"
	"github.com/boddenberg/financas-familia-bfa-go/internal/infra/resilience"
)

func newAgent(url string) *client.AgentClient {
	cfg := resilience.Config{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxConcurrency: 4}
	return client.NewAgentClient(http.DefaultClient, url, resilience.NewCircuitBreaker("agent-test", nil), cfg, observability.NewMetrics())
}

func TestAgentClient_Parse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/parse" || r.Method != http.MethodPost {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		var req struct{ Text string }
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Text != "Recebi 5000 de salário" {
			t.Errorf("unexpected text %q", req.Text)
		}
		w.Write([]byte(`{"isValid":true,"amount":5000,"type":"INCOME","category":"Salário","description":"Salário"}`))
	}))
	defer srv.Close()

	now := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)
	got, err := newAgent(srv.URL).ParseTransaction(context.Background(), "Recebi 5000 de salário", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Type != domain.Income || got.Amount != 500000 || got.Date != "2024-03-05" {
		t.Errorf("unexpected parse %+v", got)
	}
}

func TestAgentClient_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"projectedIncome":10,"projectedExpense":5,"advice":"ok","confidence":"Alta"}`))
	}))
	defer srv.Close()

	got, err := newAgent(srv.URL).Forecast(context.Background(), []domain.HistoryPoint{{Date: "2024-03-01"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Confidence != domain.ConfidenceHigh || calls != 3 {
		t.Errorf("got %+v after %d calls", got, calls)
	}
}

func TestAgentClient_ClientErrorIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newAgent(srv.URL).ParseTransaction(context.Background(), "x", time.Now())
	var ext *domain.ErrExternalService
	if !errors.As(err, &ext) {
		t.Fatalf("expected external service error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestAgentClient_MalformedRepliesKeepBreakerClosed(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"isValid":`))
	}))
	defer srv.Close()

	agent := newAgent(srv.URL)
	for i := 0; i < 6; i++ {
		_, err := agent.ParseTransaction(context.Background(), "x", time.Now())
		var open *domain.ErrCircuitOpen
		if errors.As(err, &open) {
			t.Fatalf("call %d: breaker opened on malformed replies", i)
		}
		var ext *domain.ErrExternalService
		if !errors.As(err, &ext) {
			t.Fatalf("call %d: expected external service error, got %v", i, err)
		}
	}
	if calls != 6 {
		t.Errorf("expected 6 calls reaching the agent, got %d", calls)
	}
}
