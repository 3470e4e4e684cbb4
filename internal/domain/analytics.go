package domain

// ============================================================
// Aggregation results
// ============================================================

// Summary is the income/expense total of one period.
type Summary struct {
	Income  Money `json:"income"`
	Expense Money `json:"expense"`
	Balance Money `json:"balance"`
}

// Add accumulates one transaction into the summary.
func (s *Summary) Add(t Transaction) {
	switch t.Type {
	case Income:
		s.Income += t.Amount
	case Expense:
		s.Expense += t.Amount
	}
	s.Balance = s.Income - s.Expense
}

// CategoryTotal is one row of a category breakdown.
type CategoryTotal struct {
	Category string `json:"category"`
	Amount   Money  `json:"amount"`
}

// MonthProjection is the summary of one month of a rolling projection.
type MonthProjection struct {
	Period  string `json:"period"` // YYYY-MM
	Label   string `json:"label"`
	Summary
}

// DataIssue describes a stored record that could not be used.
type DataIssue struct {
	TransactionID string `json:"transactionId"`
	Field         string `json:"field"`
	Value         string `json:"value"`
	Reason        string `json:"reason"`
}

// SheetRow is a pre-filled line of the monthly sheet.
type SheetRow struct {
	Category string `json:"category"`
	Amount   Money  `json:"amount"`
}

// Dashboard bundles everything the home screen shows for a month.
type Dashboard struct {
	Period        string            `json:"period"`
	Summary       Summary           `json:"summary"`
	TopCategories []CategoryTotal   `json:"topCategories"`
	Projection    []MonthProjection `json:"projection"`
	Upcoming      []Transaction     `json:"upcoming"`
	Forecast      *Forecast         `json:"forecast,omitempty"`
	ForecastError string            `json:"forecastError,omitempty"`
	Warnings      []DataIssue       `json:"warnings,omitempty"`
}
