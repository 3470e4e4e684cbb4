package domain

import (
	"fmt"
	"time"
)

// ============================================================
// Períodos e datas
// ============================================================

// Period is a calendar month, the aggregation granularity of the ledger.
type Period struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

// PeriodOf returns the period containing t, in t's own location.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// ParsePeriod reads "YYYY-MM".
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Period{}, &ErrValidation{Field: "month", Message: fmt.Sprintf("mês inválido %q, use AAAA-MM", s)}
	}
	return PeriodOf(t), nil
}

// Add moves n months forward (or back when n < 0).
func (p Period) Add(n int) Period {
	idx := p.Year*12 + int(p.Month-1) + n
	return Period{Year: idx / 12, Month: time.Month(idx%12 + 1)}
}

// Contains reports whether t falls in the period.
func (p Period) Contains(t time.Time) bool {
	return t.Year() == p.Year && t.Month() == p.Month
}

// Start returns the first instant of the period in loc.
func (p Period) Start(loc *time.Location) time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, loc)
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// DateLayout records how a stored date string was written so that
// derived dates can be written back the same way.
type DateLayout int

const (
	LayoutDateOnly DateLayout = iota
	LayoutLocalDateTime
	LayoutTimestamp
)

const (
	dateOnly          = "2006-01-02"
	localDateTime     = "2006-01-02T15:04:05"
	localDateTimeMins = "2006-01-02T15:04"
)

// ParseDate reads the date formats found in stored ledgers: RFC 3339
// timestamps (as written by browsers), zone-less date-times and plain dates.
// Zone-less values are interpreted in loc.
func ParseDate(s string, loc *time.Location) (time.Time, DateLayout, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, LayoutTimestamp, nil
	}
	if t, err := time.ParseInLocation(localDateTime, s, loc); err == nil {
		return t, LayoutLocalDateTime, nil
	}
	if t, err := time.ParseInLocation(localDateTimeMins, s, loc); err == nil {
		return t, LayoutLocalDateTime, nil
	}
	if t, err := time.ParseInLocation(dateOnly, s, loc); err == nil {
		return t, LayoutDateOnly, nil
	}
	return time.Time{}, 0, fmt.Errorf("data inválida %q", s)
}

// FormatDate writes t back using layout.
func FormatDate(t time.Time, layout DateLayout) string {
	switch layout {
	case LayoutDateOnly:
		return t.Format(dateOnly)
	case LayoutLocalDateTime:
		return t.Format(localDateTime)
	default:
		return t.Format(time.RFC3339Nano)
	}
}

// CivilDate truncates t to midnight of its calendar day in loc.
func CivilDate(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
