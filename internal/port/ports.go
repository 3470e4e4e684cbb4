// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"
	"time"

	"github.com/boddenberg/financas-familia-bfa-go/internal/domain"
)

// KV is the persistence substrate: one opaque value per key.
//
// Update runs fn with the current value (nil when the key is absent) and
// stores what fn returns. Either the new value is stored in full or nothing
// is written. Backends that support it make the read-modify-write atomic
// with respect to other Update calls on the same key.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Update(ctx context.Context, key string, fn func(current []byte) ([]byte, error)) error
	Ping(ctx context.Context) error
	Close() error
}

// LedgerStore holds the transactions and debts of each family.
// New entries are prepended: storage order is most-recent-first.
type LedgerStore interface {
	ListTransactions(ctx context.Context, scope domain.Scope) ([]domain.Transaction, error)
	AppendTransactions(ctx context.Context, scope domain.Scope, txs ...domain.Transaction) error
	RemoveTransaction(ctx context.Context, scope domain.Scope, id string) error

	ListDebts(ctx context.Context, scope domain.Scope) ([]domain.Debt, error)
	AppendDebt(ctx context.Context, scope domain.Scope, d domain.Debt) error
	UpdateDebt(ctx context.Context, scope domain.Scope, d domain.Debt) error
	RemoveDebt(ctx context.Context, scope domain.Scope, id string) error
}

// TransactionParser turns free text into transaction fields.
// A nil result with a nil error means the text is not a financial statement.
type TransactionParser interface {
	ParseTransaction(ctx context.Context, text string, now time.Time) (*domain.ParsedTransaction, error)
}

// Forecaster asks the model for next month's projection.
// Callers truncate history before calling.
type Forecaster interface {
	Forecast(ctx context.Context, history []domain.HistoryPoint) (*domain.Forecast, error)
}

// Assistant is implemented by every model adapter.
type Assistant interface {
	TransactionParser
	Forecaster
}

// IDGenerator issues collision-free record identifiers.
type IDGenerator interface {
	NewID() string
}

// EventPublisher notifies other consumers about ledger changes.
type EventPublisher interface {
	Publish(ctx context.Context, evt domain.LedgerEvent) error
	Close() error
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
