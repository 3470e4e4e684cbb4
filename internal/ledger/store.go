// Package ledger stores each family's transactions and debts as JSON lists
// in a key-value backend, one key per family and list.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/boddenberg/financas-familia-bfa-go/internal/domain"
	"github.com/boddenberg/financas-familia-bfa-go/internal/infra/observability"
	"github.com/boddenberg/financas-familia-bfa-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("ledger")

// TransactionsKey and DebtsKey name the two lists of a family.
func TransactionsKey(familyID string) string { return "fin_ai_transactions_" + familyID }
func DebtsKey(familyID string) string        { return "fin_ai_debts_" + familyID }

// Store implements port.LedgerStore over a port.KV.
//
// Records that fail to decode are skipped on read and logged, and are
// written back untouched on every rewrite of the list.
type Store struct {
	kv      port.KV
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewStore creates a ledger store.
func NewStore(kv port.KV, metrics *observability.Metrics, logger *zap.Logger) *Store {
	return &Store{kv: kv, metrics: metrics, logger: logger}
}

type idOnly struct {
	ID string `json:"id"`
}

func requireFamily(scope domain.Scope) error {
	if scope.FamilyID == "" {
		return &domain.ErrUnauthorized{Message: "sessão sem família"}
	}
	return nil
}

// decodeRaw splits the stored list into raw items. A corrupt list is an error:
// rewriting it would drop data.
func decodeRaw(key string, data []byte) ([]json.RawMessage, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return items, nil
}

func decodeList[T any](s *Store, key string, data []byte) ([]T, error) {
	items, err := decodeRaw(key, data)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(items))
	for i, raw := range items {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			s.logger.Warn("ledger: skipping undecodable record",
				zap.String("key", key),
				zap.Int("index", i),
				zap.Error(err),
			)
			s.metrics.IncrDataIssue("decode")
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// prepend stores items ahead of the existing list.
func (s *Store) prepend(ctx context.Context, key string, items ...any) error {
	return s.kv.Update(ctx, key, func(current []byte) ([]byte, error) {
		existing, err := decodeRaw(key, current)
		if err != nil {
			return nil, err
		}
		next := make([]json.RawMessage, 0, len(items)+len(existing))
		for _, it := range items {
			b, err := json.Marshal(it)
			if err != nil {
				return nil, err
			}
			next = append(next, b)
		}
		next = append(next, existing...)
		return json.Marshal(next)
	})
}

// rewrite replaces (replacement != nil) or removes the record with id.
func (s *Store) rewrite(ctx context.Context, key, resource, id string, replacement any) error {
	return s.kv.Update(ctx, key, func(current []byte) ([]byte, error) {
		items, err := decodeRaw(key, current)
		if err != nil {
			return nil, err
		}
		var encoded json.RawMessage
		if replacement != nil {
			if encoded, err = json.Marshal(replacement); err != nil {
				return nil, err
			}
		}

		found := false
		next := make([]json.RawMessage, 0, len(items))
		for _, raw := range items {
			var ref idOnly
			if json.Unmarshal(raw, &ref) == nil && ref.ID == id {
				found = true
				if encoded != nil {
					next = append(next, encoded)
				}
				continue
			}
			next = append(next, raw)
		}
		if !found {
			return nil, &domain.ErrNotFound{Resource: resource, ID: id}
		}
		return json.Marshal(next)
	})
}

// ============================================================
// Transactions
// ============================================================

func (s *Store) ListTransactions(ctx context.Context, scope domain.Scope) ([]domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Ledger.ListTransactions")
	defer span.End()
	span.SetAttributes(attribute.String("family.id", scope.FamilyID))

	if err := requireFamily(scope); err != nil {
		return nil, err
	}
	key := TransactionsKey(scope.FamilyID)
	data, err := s.kv.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	return decodeList[domain.Transaction](s, key, data)
}

func (s *Store) AppendTransactions(ctx context.Context, scope domain.Scope, txs ...domain.Transaction) error {
	ctx, span := tracer.Start(ctx, "Ledger.AppendTransactions")
	defer span.End()
	span.SetAttributes(
		attribute.String("family.id", scope.FamilyID),
		attribute.Int("transactions.count", len(txs)),
	)

	if err := requireFamily(scope); err != nil {
		return err
	}
	if len(txs) == 0 {
		return nil
	}
	items := make([]any, len(txs))
	for i := range txs {
		items[i] = txs[i]
	}
	if err := s.prepend(ctx, TransactionsKey(scope.FamilyID), items...); err != nil {
		return fmt.Errorf("append transactions: %w", err)
	}
	s.metrics.IncrLedgerWrite("transactions", "append")
	return nil
}

func (s *Store) RemoveTransaction(ctx context.Context, scope domain.Scope, id string) error {
	ctx, span := tracer.Start(ctx, "Ledger.RemoveTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("family.id", scope.FamilyID))

	if err := requireFamily(scope); err != nil {
		return err
	}
	if err := s.rewrite(ctx, TransactionsKey(scope.FamilyID), "transaction", id, nil); err != nil {
		return fmt.Errorf("remove transaction: %w", err)
	}
	s.metrics.IncrLedgerWrite("transactions", "remove")
	return nil
}

// ============================================================
// Debts
// ============================================================

func (s *Store) ListDebts(ctx context.Context, scope domain.Scope) ([]domain.Debt, error) {
	ctx, span := tracer.Start(ctx, "Ledger.ListDebts")
	defer span.End()
	span.SetAttributes(attribute.String("family.id", scope.FamilyID))

	if err := requireFamily(scope); err != nil {
		return nil, err
	}
	key := DebtsKey(scope.FamilyID)
	data, err := s.kv.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load debts: %w", err)
	}
	return decodeList[domain.Debt](s, key, data)
}

func (s *Store) AppendDebt(ctx context.Context, scope domain.Scope, d domain.Debt) error {
	ctx, span := tracer.Start(ctx, "Ledger.AppendDebt")
	defer span.End()

	if err := requireFamily(scope); err != nil {
		return err
	}
	if err := s.prepend(ctx, DebtsKey(scope.FamilyID), d); err != nil {
		return fmt.Errorf("append debt: %w", err)
	}
	s.metrics.IncrLedgerWrite("debts", "append")
	return nil
}

func (s *Store) UpdateDebt(ctx context.Context, scope domain.Scope, d domain.Debt) error {
	ctx, span := tracer.Start(ctx, "Ledger.UpdateDebt")
	defer span.End()

	if err := requireFamily(scope); err != nil {
		return err
	}
	if err := s.rewrite(ctx, DebtsKey(scope.FamilyID), "debt", d.ID, d); err != nil {
		return fmt.Errorf("update debt: %w", err)
	}
	s.metrics.IncrLedgerWrite("debts", "update")
	return nil
}

func (s *Store) RemoveDebt(ctx context.Context, scope domain.Scope, id string) error {
	ctx, span := tracer.Start(ctx, "Ledger.RemoveDebt")
	defer span.End()

	if err := requireFamily(scope); err != nil {
		return err
	}
	if err := s.rewrite(ctx, DebtsKey(scope.FamilyID), "debt", id, nil); err != nil {
		return fmt.Errorf("remove debt: %w", err)
	}
	s.metrics.IncrLedgerWrite("debts", "remove")
	return nil
}
