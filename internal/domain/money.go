package domain

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// ErrInvalidAmount is returned when a monetary value cannot be parsed.
var ErrInvalidAmount = errors.New("valor inválido")

// MaxAmount is the largest single amount accepted (R$ 1.000.000.000,00).
// A ledger of 90 million entries at this cap still sums inside int64.
const MaxAmount Money = 100_000_000_000

// Money is a non-negative amount in BRL held as integer cents.
// On the wire it is a plain JSON number with two decimals (1234.50).
type Money int64

// Cents returns the raw amount in cents.
func (m Money) Cents() int64 { return int64(m) }

// Float64 returns the amount in reais, for display and for the model prompts.
func (m Money) Float64() float64 { return float64(m) / 100.0 }

// FromFloat converts a float amount (as returned by the model) into Money,
// rounding half away from zero on the cent.
func FromFloat(f float64) Money {
	return Money(math.Round(f * 100))
}

// String formats the amount with a dot separator: 1234.50.
func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// Comma formats the amount with a comma decimal separator and no grouping: 1234,50.
func (m Money) Comma() string {
	return strings.Replace(m.String(), ".", ",", 1)
}

// ParseMoney reads amounts typed by users in either notation:
// "12.34", "12,34", "1.234,56" and "1234" are all accepted.
// When a comma is present dots are treated as thousands grouping.
// The third decimal is rounded half-up. Negative values are rejected.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return 0, ErrInvalidAmount
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}

	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}

	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if iv > int64(MaxAmount/100) {
		return 0, ErrInvalidAmount
	}

	var frac int64
	if len(fracPart) > 0 {
		frac = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			frac += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				frac++
			}
		}
	}
	m := Money(iv*100 + frac)
	if m > MaxAmount {
		return 0, ErrInvalidAmount
	}
	return m, nil
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*m = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		s, err := strconv.Unquote(string(data))
		if err != nil {
			return ErrInvalidAmount
		}
		v, err := ParseMoney(s)
		if err != nil {
			return err
		}
		*m = v
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > MaxAmount.Float64() {
		return ErrInvalidAmount
	}
	*m = FromFloat(f)
	return nil
}
