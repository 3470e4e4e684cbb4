package integration_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/boddenberg/financas-familia-bfa-go/internal/analytics"
	chatservice "github.com/boddenberg/financas-familia-bfa-go/internal/chat/service"
	"github.com/boddenberg/financas-familia-bfa-go/internal/domain"
	"github.com/boddenberg/financas-familia-bfa-go/internal/handler"
	"github.com/boddenberg/financas-familia-bfa-go/internal/infra/cache"
	"github.com/boddenberg/financas-familia-bfa-go/internal/infra/client"
	"github.com/boddenberg/financas-familia-bfa-go/internal/infra/idgen"
	"github.com/boddenberg/financas-familia-bfa-go/internal/infra/observability"
	"github.com/boddenberg/financas-familia-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/financas-familia-bfa-go/internal/infra/storage"
	"github.com/boddenberg/financas-familia-bfa-go/internal/ledger"
	"github.com/boddenberg/financas-familia-bfa-go/internal/service"

	"go.uber.org/zap"
)

// TestIntegration_FullFlow sobe um agent fake, o ledger em SQLite e o router
// real, e percorre sessão → chat → dashboard → exportação.
func TestIntegration_FullFlow(t *testing.T) {
	// --- Mock Agent API ---
	var forecastCalls int32
	agentServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/parse":
			var req struct {
				Text string `json:"text"`
			}
			json.NewDecoder(r.Body).Decode(&req)
			if !strings.Contains(req.Text, "25") {
				json.NewEncoder(w).Encode(map[string]any{"isValid": false})
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"isValid":     true,
				"amount":      25,
				"type":        "EXPENSE",
				"category":    "Transporte",
				"description": "Uber",
				"date":        "2024-03-15",
			})
		case "/v1/forecast":
			atomic.AddInt32(&forecastCalls, 1)
			json.NewEncoder(w).Encode(map[string]any{
				"projectedIncome":  5000,
				"projectedExpense": 1800.5,
				"advice":           "Reduza gastos com transporte.",
				"confidence":       "Média",
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer agentServer.Close()

	// --- Wiring (same as cmd/bfa) ---
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	saoPaulo, _ := time.LoadLocation("America/Sao_Paulo")
	now := func() time.Time { return time.Date(2024, 3, 15, 10, 0, 0, 0, saoPaulo) }

	kv, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer kv.Close()
	store := ledger.NewStore(kv, metrics, logger)

	resCfg := resilience.Config{MaxRetries: 1, InitialBackoff: time.Millisecond, MaxConcurrency: 4}
	agent := client.NewAgentClient(&http.Client{Timeout: 5 * time.Second}, agentServer.URL,
		resilience.NewCircuitBreaker("agent-test", logger), resCfg, metrics)

	ids := idgen.UUID{}
	forecasts := service.NewForecastService(store, agent, cache.New[*domain.Forecast](time.Minute), 50, metrics, logger)
	ledgerSvc := service.NewLedgerService(store, analytics.New(saoPaulo), ids, forecasts, nil,
		service.DashboardOptions{TopCategories: 8, UpcomingLimit: 5, ProjectionMonths: 6}, metrics, logger)
	ledgerSvc.SetClock(now)
	chatSvc := chatservice.NewChatService(
		chatservice.NewTransactionStrategy(agent, ledgerSvc, logger),
		[]chatservice.ChatStrategy{chatservice.NewBalanceStrategy(ledgerSvc)},
		ids, saoPaulo, logger,
	)
	chatSvc.SetClock(now)

	router := handler.NewRouter(handler.Services{
		Ledger:    ledgerSvc,
		Debts:     service.NewDebtService(store, ids, nil, saoPaulo, logger),
		Sessions:  service.NewSessionService("integration-secret", time.Hour, ids, logger),
		Forecasts: forecasts,
		Chat:      chatSvc,
	}, kv, metrics, logger)

	srv := httptest.NewServer(router)
	defer srv.Close()

	call := func(method, path, token, body string) *http.Response {
		t.Helper()
		req, _ := http.NewRequest(method, srv.URL+path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("%s %s: %v", method, path, err)
		}
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	// --- Sessão: dois membros da mesma família ---
	var ana, beto domain.SessionResponse
	resp := call(http.MethodPost, "/v1/session", "", `{"familyName":"Silva","userName":"Ana"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("session: expected 201, got %d", resp.StatusCode)
	}
	json.NewDecoder(resp.Body).Decode(&ana)
	resp = call(http.MethodPost, "/v1/session", "", `{"familyName":" silva ","userName":"Beto","role":"SECONDARY"}`)
	json.NewDecoder(resp.Body).Decode(&beto)
	if ana.User.FamilyID != beto.User.FamilyID {
		t.Fatalf("same family expected, got %q and %q", ana.User.FamilyID, beto.User.FamilyID)
	}

	// --- Chat: Ana lança pelo chat ---
	resp = call(http.MethodPost, "/v1/chat", ana.Token, `{"text":"Uber 25 reais"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("chat: expected 200, got %d", resp.StatusCode)
	}
	var msg struct {
		Content            string              `json:"content"`
		RelatedTransaction *domain.Transaction `json:"relatedTransaction"`
	}
	json.NewDecoder(resp.Body).Decode(&msg)
	if msg.RelatedTransaction == nil || msg.RelatedTransaction.Amount != 2500 || msg.RelatedTransaction.UserName != "Ana" {
		t.Fatalf("unexpected chat reply %+v", msg)
	}

	resp = call(http.MethodPost, "/v1/chat", ana.Token, `{"text":"bom dia"}`)
	json.NewDecoder(resp.Body).Decode(&msg)
	if !strings.HasPrefix(msg.Content, "Desculpe") {
		t.Errorf("expected unrecognized reply, got %q", msg.Content)
	}

	// --- Beto lança pelo formulário ---
	resp = call(http.MethodPost, "/v1/transactions", beto.Token,
		`{"amount":5000,"type":"INCOME","category":"Salário Mensal","description":"Salário","date":"2024-03-05"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", resp.StatusCode)
	}

	// --- Dashboard: totais da família + previsão ---
	resp = call(http.MethodGet, "/v1/dashboard?month=2024-03", ana.Token, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("dashboard: expected 200, got %d", resp.StatusCode)
	}
	var dash domain.Dashboard
	json.NewDecoder(resp.Body).Decode(&dash)
	if dash.Summary.Income != 500000 || dash.Summary.Expense != 2500 || dash.Summary.Balance != 497500 {
		t.Errorf("unexpected summary %+v", dash.Summary)
	}
	if dash.Forecast == nil || dash.Forecast.ProjectedExpense != 180050 || dash.Forecast.Confidence != domain.ConfidenceMedium {
		t.Errorf("unexpected forecast %+v (err %q)", dash.Forecast, dash.ForecastError)
	}

	// Segunda leitura vem do cache.
	call(http.MethodGet, "/v1/forecast", beto.Token, "")
	if n := atomic.LoadInt32(&forecastCalls); n != 1 {
		t.Errorf("expected 1 forecast call, got %d", n)
	}

	// --- Outra família não vê nada ---
	resp = call(http.MethodPost, "/v1/session", "", `{"familyName":"Souza","userName":"Caio"}`)
	var caio domain.SessionResponse
	json.NewDecoder(resp.Body).Decode(&caio)
	resp = call(http.MethodGet, "/v1/analytics/summary?month=2024-03", caio.Token, "")
	var sum struct {
		Summary domain.Summary `json:"summary"`
	}
	json.NewDecoder(resp.Body).Decode(&sum)
	if sum.Summary != (domain.Summary{}) {
		t.Errorf("Souza sees Silva data: %+v", sum.Summary)
	}

	// --- Exportação ---
	resp = call(http.MethodGet, "/v1/transactions/export", ana.Token, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export: expected 200, got %d", resp.StatusCode)
	}
	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	lines := strings.Split(buf.String(), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %q", buf.String())
	}
	if lines[1] != `05/03/2024,"Salário",Salário Mensal,Receita,"5000,00",Beto,` {
		t.Errorf("unexpected first row %q", lines[1])
	}
}
