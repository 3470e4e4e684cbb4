package domain

// ExpenseCategories are the categories offered for expenses, in display order.
var ExpenseCategories = []string{
	"Aluguel",
	"Água",
	"Luz/Energia",
	"Fatura Cartão de Crédito",
	"Financiamento Casa",
	"Financiamento Carro",
	"Despesas Carro",
	"Condomínio",
	"IPTU",
	"IPVA",
	"Telefone/Internet",
	"Netflix/Streaming",
	"Mercado",
	"Refeições fora",
	"Plano de Saúde",
	"Academia",
	"Diarista",
	"Escola/Cursos",
	"Roupas",
	"Combustível",
	"Seguro Auto",
	"Seguro Vida",
	"Reserva Viagem",
	"Reserva Emergência",
	"Petshop",
	"Despesas Bancárias",
	"Beleza/Barbeiro",
	"Saúde/Exames",
	"Farmácia",
	"Água Mineral",
	"Diversos",
}

// IncomeCategories are the categories offered for income.
var IncomeCategories = []string{
	"Salário Mensal",
	"Adiantamento/Vale",
	"Renda Extra",
	"Aluguel Recebido",
	"Investimentos",
	"Reembolsos",
	"Outros",
}

// DefaultCategory is used when the chat parser does not name one.
const DefaultCategory = "Geral"

// CategoriesFor returns the catalog for a transaction type.
func CategoriesFor(t TransactionType) []string {
	if t == Income {
		return IncomeCategories
	}
	return ExpenseCategories
}

// CategoryCatalog is returned by GET /v1/categories.
type CategoryCatalog struct {
	Expense []string `json:"expense"`
	Income  []string `json:"income"`
}
