// Package analytics computes month-scoped aggregates over a family ledger.
//
// Every function is pure over the list it receives. Records whose date
// cannot be parsed are left out of every date-bounded result and returned
// as data issues instead of being coerced to the current date.
package analytics

import (
	"sort"
	"time"

	"github.com/boddenberg/financas-familia-bfa-go/internal/domain"
)

// Engine evaluates dates in a fixed location (the family's time zone).
type Engine struct {
	loc *time.Location
}

// New creates an engine for loc. A nil loc means UTC.
func New(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{loc: loc}
}

// Location returns the engine's time zone.
func (e *Engine) Location() *time.Location { return e.loc }

type dated struct {
	tx domain.Transaction
	at time.Time
}

// index parses every date once, keeping storage order.
func (e *Engine) index(list []domain.Transaction) ([]dated, []domain.DataIssue) {
	out := make([]dated, 0, len(list))
	var issues []domain.DataIssue
	for _, tx := range list {
		at, _, err := domain.ParseDate(tx.Date, e.loc)
		if err != nil {
			issues = append(issues, domain.DataIssue{
				TransactionID: tx.ID,
				Field:         "date",
				Value:         tx.Date,
				Reason:        err.Error(),
			})
			continue
		}
		if !tx.Type.Valid() {
			issues = append(issues, domain.DataIssue{
				TransactionID: tx.ID,
				Field:         "type",
				Value:         string(tx.Type),
				Reason:        "tipo desconhecido",
			})
			continue
		}
		out = append(out, dated{tx: tx, at: at.In(e.loc)})
	}
	return out, issues
}

// Summary totals income and expense for the period.
func (e *Engine) Summary(list []domain.Transaction, p domain.Period) (domain.Summary, []domain.DataIssue) {
	idx, issues := e.index(list)
	var s domain.Summary
	for _, d := range idx {
		if p.Contains(d.at) {
			s.Add(d.tx)
		}
	}
	return s, issues
}

// Totals sums every usable record regardless of date.
func (e *Engine) Totals(list []domain.Transaction) (domain.Summary, []domain.DataIssue) {
	idx, issues := e.index(list)
	var s domain.Summary
	for _, d := range idx {
		s.Add(d.tx)
	}
	return s, issues
}

// CategoryBreakdown sums amounts per category for one type in the period,
// ordered by amount descending (ties by category name) and cut to k rows.
// k ≤ 0 returns every category.
func (e *Engine) CategoryBreakdown(list []domain.Transaction, p domain.Period, typ domain.TransactionType, k int) ([]domain.CategoryTotal, []domain.DataIssue) {
	idx, issues := e.index(list)
	sums := make(map[string]domain.Money)
	for _, d := range idx {
		if d.tx.Type == typ && p.Contains(d.at) {
			sums[d.tx.Category] += d.tx.Amount
		}
	}

	out := make([]domain.CategoryTotal, 0, len(sums))
	for cat, amt := range sums {
		out = append(out, domain.CategoryTotal{Category: cat, Amount: amt})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount > out[j].Amount
		}
		return out[i].Category < out[j].Category
	})
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out, issues
}

// Projection returns the summary of count consecutive months starting at start.
// Future-dated installments already in the ledger show up in their months.
func (e *Engine) Projection(list []domain.Transaction, start domain.Period, count int) ([]domain.MonthProjection, []domain.DataIssue) {
	idx, issues := e.index(list)
	if count <= 0 {
		return []domain.MonthProjection{}, issues
	}

	out := make([]domain.MonthProjection, count)
	pos := make(map[domain.Period]int, count)
	for i := 0; i < count; i++ {
		p := start.Add(i)
		pos[p] = i
		out[i] = domain.MonthProjection{Period: p.String(), Label: MonthLabel(p)}
	}
	for _, d := range idx {
		if i, ok := pos[domain.PeriodOf(d.at)]; ok {
			out[i].Summary.Add(d.tx)
		}
	}
	return out, issues
}

// Upcoming returns records dated on or after asOf's calendar day,
// oldest first, at most limit items (limit ≤ 0 means no limit).
func (e *Engine) Upcoming(list []domain.Transaction, asOf time.Time, limit int) ([]domain.Transaction, []domain.DataIssue) {
	idx, issues := e.index(list)
	from := domain.CivilDate(asOf, e.loc)

	var sel []dated
	for _, d := range idx {
		if !domain.CivilDate(d.at, e.loc).Before(from) {
			sel = append(sel, d)
		}
	}
	sort.SliceStable(sel, func(i, j int) bool { return sel[i].at.Before(sel[j].at) })
	if limit > 0 && len(sel) > limit {
		sel = sel[:limit]
	}
	return unwrap(sel), issues
}

// MonthTransactions lists the period's records, newest date first.
func (e *Engine) MonthTransactions(list []domain.Transaction, p domain.Period) ([]domain.Transaction, []domain.DataIssue) {
	idx, issues := e.index(list)
	var sel []dated
	for _, d := range idx {
		if p.Contains(d.at) {
			sel = append(sel, d)
		}
	}
	sort.SliceStable(sel, func(i, j int) bool { return sel[i].at.After(sel[j].at) })
	return unwrap(sel), issues
}

// SheetTotals pre-fills the monthly sheet: one row per catalog category
// with the amount already recorded for it in the period.
func (e *Engine) SheetTotals(list []domain.Transaction, p domain.Period, typ domain.TransactionType, categories []string) ([]domain.SheetRow, []domain.DataIssue) {
	idx, issues := e.index(list)
	sums := make(map[string]domain.Money)
	for _, d := range idx {
		if d.tx.Type == typ && p.Contains(d.at) {
			sums[d.tx.Category] += d.tx.Amount
		}
	}
	rows := make([]domain.SheetRow, 0, len(categories))
	for _, c := range categories {
		rows = append(rows, domain.SheetRow{Category: c, Amount: sums[c]})
	}
	return rows, issues
}

func unwrap(ds []dated) []domain.Transaction {
	out := make([]domain.Transaction, len(ds))
	for i, d := range ds {
		out[i] = d.tx
	}
	return out
}

var monthAbbr = [...]string{"jan", "fev", "mar", "abr", "mai", "jun", "jul", "ago", "set", "out", "nov", "dez"}

// MonthLabel formats a period the way the dashboard chart labels it: "mar/24".
func MonthLabel(p domain.Period) string {
	return monthAbbr[p.Month-1] + "/" + p.String()[2:4]
}
