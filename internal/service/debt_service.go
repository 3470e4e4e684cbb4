package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/boddenberg/financas-familia-bfa-go/internal/domain"
	"github.com/boddenberg/financas-familia-bfa-go/internal/port"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Dívidas
// ============================================================

// DebtService manages the debt list of each family.
type DebtService struct {
	store  port.LedgerStore
	ids    port.IDGenerator
	events port.EventPublisher
	loc    *time.Location
	logger *zap.Logger
	now    func() time.Time
}

// NewDebtService creates the debt service.
func NewDebtService(store port.LedgerStore, ids port.IDGenerator, events port.EventPublisher, loc *time.Location, logger *zap.Logger) *DebtService {
	return &DebtService{store: store, ids: ids, events: events, loc: loc, logger: logger, now: time.Now}
}

// SetClock replaces time.Now; tests pin "today" with it.
func (s *DebtService) SetClock(now func() time.Time) { s.now = now }

// DebtList is the debt list with its totals.
type DebtList struct {
	Debts   []domain.Debt      `json:"debts"`
	Summary domain.DebtSummary `json:"summary"`
}

// List returns the debts in storage order (newest first) and their totals.
func (s *DebtService) List(ctx context.Context, scope domain.Scope) (*DebtList, error) {
	debts, err := s.store.ListDebts(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("load debts: %w", err)
	}
	if debts == nil {
		debts = []domain.Debt{}
	}
	return &DebtList{Debts: debts, Summary: domain.SummarizeDebts(debts)}, nil
}

// Summary totals the outstanding debts.
func (s *DebtService) Summary(ctx context.Context, scope domain.Scope) (domain.DebtSummary, error) {
	l, err := s.List(ctx, scope)
	if err != nil {
		return domain.DebtSummary{}, err
	}
	return l.Summary, nil
}

// Create registers a debt. Original value defaults to the current value,
// due date to today and status to PENDING.
func (s *DebtService) Create(ctx context.Context, scope domain.Scope, in domain.DebtInput) (*domain.Debt, error) {
	ctx, span := tracer.Start(ctx, "DebtService.Create")
	defer span.End()

	if err := in.Validate(); err != nil {
		return nil, err
	}
	dueDate, err := s.dueDate(in.DueDate)
	if err != nil {
		return nil, err
	}

	d := domain.Debt{
		ID:            s.ids.NewID(),
		Creditor:      strings.TrimSpace(in.Creditor),
		OriginalValue: *in.CurrentValue,
		CurrentValue:  *in.CurrentValue,
		Status:        domain.DebtPending,
		Description:   strings.TrimSpace(in.Description),
		DueDate:       dueDate,
		CreatedAt:     s.now().UnixMilli(),
		UserID:        scope.UserID,
	}
	if in.OriginalValue != nil && *in.OriginalValue > 0 {
		d.OriginalValue = *in.OriginalValue
	}
	if in.Status != "" {
		d.Status = in.Status
	}

	if err := s.store.AppendDebt(ctx, scope, d); err != nil {
		return nil, fmt.Errorf("append debt: %w", err)
	}
	s.changed(ctx, scope, d.ID)
	return &d, nil
}

// Update replaces the editable fields of a debt. ID, creation time and
// author are kept.
func (s *DebtService) Update(ctx context.Context, scope domain.Scope, id string, in domain.DebtInput) (*domain.Debt, error) {
	ctx, span := tracer.Start(ctx, "DebtService.Update")
	defer span.End()
	span.SetAttributes(attribute.String("debt.id", id))

	if err := in.Validate(); err != nil {
		return nil, err
	}
	current, err := s.find(ctx, scope, id)
	if err != nil {
		return nil, err
	}

	current.Creditor = strings.TrimSpace(in.Creditor)
	current.CurrentValue = *in.CurrentValue
	if in.OriginalValue != nil && *in.OriginalValue > 0 {
		current.OriginalValue = *in.OriginalValue
	}
	if in.Status != "" {
		current.Status = in.Status
	}
	current.Description = strings.TrimSpace(in.Description)
	if in.DueDate != "" {
		if current.DueDate, err = s.dueDate(in.DueDate); err != nil {
			return nil, err
		}
	}

	if err := s.store.UpdateDebt(ctx, scope, *current); err != nil {
		return nil, err
	}
	s.changed(ctx, scope, id)
	return current, nil
}

// SetStatus moves a debt to any of the three statuses.
func (s *DebtService) SetStatus(ctx context.Context, scope domain.Scope, id string, status domain.DebtStatus) (*domain.Debt, error) {
	ctx, span := tracer.Start(ctx, "DebtService.SetStatus")
	defer span.End()

	if !status.Valid() {
		return nil, &domain.ErrValidation{Field: "status", Message: fmt.Sprintf("status desconhecido %q", status)}
	}
	current, err := s.find(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	current.Status = status
	if err := s.store.UpdateDebt(ctx, scope, *current); err != nil {
		return nil, err
	}
	s.changed(ctx, scope, id)
	return current, nil
}

// Delete removes a debt.
func (s *DebtService) Delete(ctx context.Context, scope domain.Scope, id string) error {
	ctx, span := tracer.Start(ctx, "DebtService.Delete")
	defer span.End()

	if err := s.store.RemoveDebt(ctx, scope, id); err != nil {
		return err
	}
	s.changed(ctx, scope, id)
	return nil
}

func (s *DebtService) find(ctx context.Context, scope domain.Scope, id string) (*domain.Debt, error) {
	debts, err := s.store.ListDebts(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("load debts: %w", err)
	}
	for i := range debts {
		if debts[i].ID == id {
			return &debts[i], nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "debt", ID: id}
}

// dueDate normalizes the due date to YYYY-MM-DD; empty means today.
func (s *DebtService) dueDate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.FormatDate(s.now().In(s.loc), domain.LayoutDateOnly), nil
	}
	t, _, err := domain.ParseDate(raw, s.loc)
	if err != nil {
		return "", &domain.ErrValidation{Field: "dueDate", Message: err.Error()}
	}
	return domain.FormatDate(t.In(s.loc), domain.LayoutDateOnly), nil
}

func (s *DebtService) changed(ctx context.Context, scope domain.Scope, id string) {
	publish(ctx, s.events, s.logger, domain.LedgerEvent{
		Name:       domain.EventDebtsChanged,
		FamilyID:   scope.FamilyID,
		UserID:     scope.UserID,
		IDs:        []string{id},
		OccurredAt: s.now().UTC(),
	})
}
