package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/boddenberg/financas-familia-bfa-go/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATA_BACKEND", "")
	t.Setenv("TIMEZONE", "")
	t.Setenv("FORECAST_HISTORY_LIMIT", "")

	cfg := config.Load()
	if cfg.DataBackend != "sqlite" || cfg.Timezone != "America/Sao_Paulo" || cfg.ForecastHistoryLimit != 50 {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.TopCategories != 8 || cfg.UpcomingLimit != 5 || cfg.ProjectionMonths != 6 {
		t.Errorf("unexpected dashboard defaults %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_ReadsEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("CACHE_TTL", "90s")
	t.Setenv("DATA_BACKEND", "MEMORY")

	cfg := config.Load()
	if cfg.Port != 9090 || cfg.CacheTTL != 90*time.Second || cfg.DataBackend != "memory" {
		t.Errorf("env not applied: %+v", cfg)
	}
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := config.Load()
	cfg.Port = 0
	cfg.Timezone = "Marte/Olympus"
	cfg.DataBackend = "postgres"
	cfg.PostgresDSN = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"PORT", "TIMEZONE", "POSTGRES_DSN"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
	if cfg.Location() != time.UTC {
		t.Errorf("bad timezone should fall back to UTC")
	}
}

func TestLoadDotEnv_DoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("FIN_TEST_A=from-file\nFIN_TEST_B=\"quoted\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FIN_TEST_A", "from-env")
	t.Setenv("FIN_TEST_B", "")
	os.Unsetenv("FIN_TEST_B")

	if err := config.LoadDotEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := os.Getenv("FIN_TEST_A"); got != "from-env" {
		t.Errorf("existing var overridden: %q", got)
	}
	if got := os.Getenv("FIN_TEST_B"); got != "quoted" {
		t.Errorf("expected quoted, got %q", got)
	}
}
