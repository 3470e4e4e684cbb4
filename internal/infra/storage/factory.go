package storage

import (
	"context"
	"fmt"

	"github.com/boddenberg/financas-familia-bfa-go/internal/port"

	"go.uber.org/zap"
)

// Backend names accepted by DATA_BACKEND.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
	BackendSupabase = "supabase"
)

// Options carries the connection settings of every local backend.
type Options struct {
	Backend     string
	SQLitePath  string
	PostgresDSN string
	MongoURI    string
	MongoDB     string
}

// Open returns the KV for opts.Backend. Supabase is built by the caller,
// since it needs the HTTP client and the resilience stack.
func Open(ctx context.Context, opts Options, logger *zap.Logger) (port.KV, error) {
	switch opts.Backend {
	case BackendMemory:
		logger.Warn("using in-memory ledger: data is lost on restart")
		return NewMemory(), nil
	case BackendSQLite:
		logger.Info("using SQLite ledger", zap.String("path", opts.SQLitePath))
		return OpenSQLite(opts.SQLitePath)
	case BackendPostgres:
		return OpenPostgres(ctx, opts.PostgresDSN, logger)
	case BackendMongo:
		return OpenMongo(ctx, opts.MongoURI, opts.MongoDB, logger)
	}
	return nil, fmt.Errorf("unsupported data backend %q", opts.Backend)
}
