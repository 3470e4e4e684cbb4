package storage

import (
	"strings"
	"testing"
	"time"
)

func TestPostgresQueries(t *testing.T) {
	sel, args, err := postgresQueries.selectValue("fin_ai_debts_silva", true)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if sel != "SELECT value FROM ledger_kv WHERE key = $1 FOR UPDATE" {
		t.Errorf("unexpected select %q", sel)
	}
	if len(args) != 1 || args[0] != "fin_ai_debts_silva" {
		t.Errorf("unexpected args %v", args)
	}

	up, args, err := postgresQueries.upsert("k", []byte(`[]`), time.Unix(0, 0))
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if !strings.Contains(up, "$2::jsonb") || !strings.Contains(up, "ON CONFLICT (key) DO UPDATE") {
		t.Errorf("unexpected upsert %q", up)
	}
	if len(args) != 4 {
		t.Errorf("expected 4 args, got %d", len(args))
	}
}

func TestSQLiteQueriesDoNotLock(t *testing.T) {
	sel, _, err := sqliteQueries.selectValue("k", true)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if strings.Contains(sel, "FOR UPDATE") || !strings.Contains(sel, "key = ?") {
		t.Errorf("unexpected select %q", sel)
	}
}

func TestPgx5URL(t *testing.T) {
	cases := map[string]string{
		"postgres://u:p@db:5432/fin":   "pgx5://u:p@db:5432/fin",
		"postgresql://u@db/fin":        "pgx5://u@db/fin",
		"pgx5://already/converted":     "pgx5://already/converted",
	}
	for in, want := range cases {
		if got := pgx5URL(in); got != want {
			t.Errorf("pgx5URL(%q) = %q, want %q", in, got, want)
		}
	}
}
