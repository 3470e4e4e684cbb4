package domain

import "time"

// ============================================================
// Health & events
// ============================================================

// HealthStatus is returned by GET /readyz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name      string `json:"name"`
	Status    string `json:"status"`
	LatencyMs int64  `json:"latencyMs"`
	Error     string `json:"error,omitempty"`
}

// SuccessResponse wraps a successful single-entity response.
type SuccessResponse struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}

// Ledger event names published after successful writes.
const (
	EventTransactionsCreated = "transactions.created"
	EventTransactionsDeleted = "transactions.deleted"
	EventDebtsChanged        = "debts.changed"
)

// LedgerEvent notifies other consumers that a family ledger changed.
type LedgerEvent struct {
	Name       string    `json:"name"`
	FamilyID   string    `json:"familyId"`
	UserID     string    `json:"userId,omitempty"`
	IDs        []string  `json:"ids"`
	OccurredAt time.Time `json:"occurredAt"`
}
