// Package idgen provides record identifiers for the ledger.
package idgen

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// UUID issues random (v4) UUIDs.
type UUID struct{}

func (UUID) NewID() string { return uuid.NewString() }

// Sequence issues prefix-1, prefix-2, ... and is safe for concurrent use.
// Tests use it to get predictable IDs.
type Sequence struct {
	prefix string
	n      atomic.Uint64
}

// NewSequence creates a sequence starting at 1.
func NewSequence(prefix string) *Sequence {
	return &Sequence{prefix: prefix}
}

func (s *Sequence) NewID() string {
	return fmt.Sprintf("%s-%d", s.prefix, s.n.Add(1))
}
