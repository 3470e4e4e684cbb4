package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/financas-familia-bfa-go/internal/analytics"
	chatservice "github.com/boddenberg/financas-familia-bfa-go/internal/chat/service"
	"github.com/boddenberg/financas-familia-bfa-go/internal/config"
	"github.com/boddenberg/financas-familia-bfa-go/internal/domain"
	"github.com/boddenberg/financas-familia-bfa-go/internal/handler"
	"github.com/boddenberg/financas-familia-bfa-go/internal/infra/cache"
	"github.com/boddenberg/financas-familia-bfa-go/internal/infra/client"
	"github.com/boddenberg/financas-familia-bfa-go/internal/infra/events"
	"github.com/boddenberg/financas-familia-bfa-go/internal/infra/gemini"
	"github.com/boddenberg/financas-familia-bfa-go/internal/infra/idgen"
	"github.com/boddenberg/financas-familia-bfa-go/internal/infra/observability"
	"github.com/boddenberg/financas-familia-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/financas-familia-bfa-go/internal/infra/storage"
	"github.com/boddenberg/financas-familia-bfa-go/internal/infra/supabase"
	"github.com/boddenberg/financas-familia-bfa-go/internal/ledger"
	"github.com/boddenberg/financas-familia-bfa-go/internal/port"
	"github.com/boddenberg/financas-familia-bfa-go/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("timezone", cfg.Timezone),
		zap.String("data_backend", cfg.DataBackend),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Duration("session_ttl", cfg.SessionTTL),
	)
	if cfg.UsesDevSecret() {
		logger.Warn("SESSION_SECRET not set: using the development secret")
	}

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "financas-familia-bfa")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	loc := cfg.Location()

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStart()

	// --- Ledger backend ---
	var kv port.KV
	if cfg.DataBackend == storage.BackendSupabase {
		logger.Info("using Supabase as ledger backend", zap.String("supabase_url", cfg.SupabaseURL))
		kv = supabase.NewClient(
			httpClient,
			cfg.SupabaseURL,
			cfg.SupabaseAnonKey,
			cfg.SupabaseServiceKey,
			resilience.NewCircuitBreaker("supabase", logger),
			resilienceCfg,
			logger,
		)
	} else {
		kv, err = storage.Open(startCtx, storage.Options{
			Backend:     cfg.DataBackend,
			SQLitePath:  cfg.SQLitePath,
			PostgresDSN: cfg.PostgresDSN,
			MongoURI:    cfg.MongoURI,
			MongoDB:     cfg.MongoDB,
		}, logger)
		if err != nil {
			logger.Fatal("failed to open ledger backend", zap.Error(err))
		}
	}
	defer kv.Close()

	store := ledger.NewStore(kv, metrics, logger)

	// --- Assistant ---
	var assistant port.Assistant
	switch {
	case cfg.GeminiAPIKey != "":
		g, err := gemini.New(startCtx, cfg.GeminiAPIKey, cfg.GeminiModel,
			resilience.NewCircuitBreaker("gemini", logger), resilienceCfg, metrics, logger)
		if err != nil {
			logger.Fatal("failed to create gemini client", zap.Error(err))
		}
		logger.Info("assistant: gemini", zap.String("model", cfg.GeminiModel))
		assistant = g
	case cfg.AgentAPIURL != "":
		logger.Info("assistant: agent API", zap.String("agent_url", cfg.AgentAPIURL))
		assistant = client.NewAgentClient(httpClient, cfg.AgentAPIURL,
			resilience.NewCircuitBreaker("agent", logger), resilienceCfg, metrics)
	default:
		logger.Warn("assistant: GEMINI_API_KEY and AGENT_API_URL not set, chat and forecast unavailable")
	}

	// --- Events ---
	var publisher port.EventPublisher = events.NewNoop(logger)
	if cfg.AMQPURL != "" {
		p, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, metrics, logger)
		if err != nil {
			logger.Fatal("failed to connect to AMQP broker", zap.Error(err))
		}
		publisher = p
	}
	defer publisher.Close()

	// --- Services ---
	ids := idgen.UUID{}

	var forecasts *service.ForecastService
	if assistant != nil {
		forecastCache := cache.New[*domain.Forecast](cfg.CacheTTL)
		defer forecastCache.Stop()
		forecasts = service.NewForecastService(store, assistant, forecastCache, cfg.ForecastHistoryLimit, metrics, logger)
	}

	ledgerSvc := service.NewLedgerService(
		store,
		analytics.New(loc),
		ids,
		forecasts,
		publisher,
		service.DashboardOptions{
			TopCategories:    cfg.TopCategories,
			UpcomingLimit:    cfg.UpcomingLimit,
			ProjectionMonths: cfg.ProjectionMonths,
		},
		metrics,
		logger,
	)
	debtSvc := service.NewDebtService(store, ids, publisher, loc, logger)
	sessionSvc := service.NewSessionService(cfg.SessionSecret, cfg.SessionTTL, ids, logger)

	var chatSvc *chatservice.ChatService
	if assistant != nil {
		chatSvc = chatservice.NewChatService(
			chatservice.NewTransactionStrategy(assistant, ledgerSvc, logger),
			[]chatservice.ChatStrategy{chatservice.NewBalanceStrategy(ledgerSvc)},
			ids,
			loc,
			logger,
		)
	}

	// --- Router ---
	router := handler.NewRouter(handler.Services{
		Ledger:    ledgerSvc,
		Debts:     debtSvc,
		Sessions:  sessionSvc,
		Forecasts: forecasts,
		Chat:      chatSvc,
	}, kv, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
