package service

import (
	"strings"
	"time"

	"github.com/boddenberg/financas-familia-bfa-go/internal/domain"
)

// ============================================================
// Exportação CSV
// ============================================================

var csvHeader = []string{"Data", "Descrição", "Categoria", "Tipo", "Valor", "Usuário", "Parcela"}

// EncodeCSV writes the ledger in storage order. The description is always
// quoted; other fields are quoted only when they contain a separator, so the
// comma in "1234,50" does not split the Valor column.
func EncodeCSV(list []domain.Transaction, loc *time.Location) []byte {
	lines := make([]string, 0, len(list)+1)
	lines = append(lines, strings.Join(csvHeader, ","))

	for _, t := range list {
		user := t.UserName
		if user == "" {
			user = "N/A"
		}
		row := []string{
			csvDate(t.Date, loc),
			quote(t.Description),
			csvField(t.Category),
			t.Type.Label(),
			csvField(t.Amount.Comma()),
			csvField(user),
			t.InstallmentLabel(),
		}
		lines = append(lines, strings.Join(row, ","))
	}
	return []byte(strings.Join(lines, "\n"))
}

// csvDate formats as dd/mm/yyyy in loc; unparseable dates go out raw.
func csvDate(s string, loc *time.Location) string {
	t, _, err := domain.ParseDate(s, loc)
	if err != nil {
		return csvField(s)
	}
	return t.In(loc).Format("02/01/2006")
}

func csvField(s string) string {
	if strings.ContainsAny(s, ",\"\r\n") {
		return quote(s)
	}
	return s
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// ExportFilename is the download name for a family's export.
func ExportFilename(familyName string) string {
	name := strings.TrimSpace(familyName)
	if name == "" {
		name = "familia"
	}
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', '"', '\r', '\n':
			return '_'
		}
		return r
	}, name)
	return "minhas_financas_" + name + ".csv"
}
