package events

import (
	"context"

	"github.com/boddenberg/financas-familia-bfa-go/internal/domain"

	"go.uber.org/zap"
)

// Noop drops events. Used when AMQP_URL is empty.
type Noop struct {
	logger *zap.Logger
}

// NewNoop creates a publisher that only logs at debug level.
func NewNoop(logger *zap.Logger) *Noop {
	return &Noop{logger: logger}
}

func (n *Noop) Publish(_ context.Context, evt domain.LedgerEvent) error {
	n.logger.Debug("ledger event dropped (no broker)", zap.String("event", evt.Name), zap.String("family_id", evt.FamilyID))
	return nil
}

func (n *Noop) Close() error { return nil }
