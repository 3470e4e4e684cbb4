// Package installment turns one transaction request into the dated
// records of an installment plan.
package installment

import (
	"fmt"
	"time"

	"github.com/boddenberg/financas-familia-bfa-go/internal/domain"
	"github.com/boddenberg/financas-familia-bfa-go/internal/port"
)

// Request is a validated form submission plus the acting user.
type Request struct {
	domain.TransactionInput
	UserID   string
	UserName string
}

// Expand returns one record when Installments ≤ 1, otherwise one record per
// month. Record i is dated i calendar months after the request date using
// plain month arithmetic: a day that does not exist in the target month
// overflows into the next one (Jan 31 + 1 month = Mar 2 in a leap year).
//
// The first record keeps the request date string verbatim; later records are
// written in the same layout as the request. Nothing is persisted.
func Expand(req Request, ids port.IDGenerator, createdAt time.Time, loc *time.Location) ([]domain.Transaction, error) {
	if loc == nil {
		loc = time.UTC
	}
	base, layout, err := domain.ParseDate(req.Date, loc)
	if err != nil {
		return nil, &domain.ErrValidation{Field: "date", Message: err.Error()}
	}

	stamp := createdAt.UnixMilli()
	if req.Installments <= 1 {
		return []domain.Transaction{{
			ID:          ids.NewID(),
			Amount:      req.Amount,
			Type:        req.Type,
			Category:    req.Category,
			Description: req.Description,
			Date:        req.Date,
			CreatedAt:   stamp,
			UserID:      req.UserID,
			UserName:    req.UserName,
		}}, nil
	}

	n := req.Installments
	out := make([]domain.Transaction, n)
	for i := 0; i < n; i++ {
		date := req.Date
		if i > 0 {
			date = domain.FormatDate(base.AddDate(0, i, 0), layout)
		}
		out[i] = domain.Transaction{
			ID:                 ids.NewID(),
			Amount:             req.Amount,
			Type:               req.Type,
			Category:           req.Category,
			Description:        fmt.Sprintf("%s (%d/%d)", req.Description, i+1, n),
			Date:               date,
			CreatedAt:          stamp,
			InstallmentCurrent: i + 1,
			InstallmentTotal:   n,
			UserID:             req.UserID,
			UserName:           req.UserName,
		}
	}
	return out, nil
}
