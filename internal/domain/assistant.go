package domain

import (
	"math"
	"strings"
	"time"
)

// ============================================================
// Assistente IA — contrato do parser e da previsão
// ============================================================

// ParsedTransaction são os campos extraídos de uma frase livre
// ("Gastei 30 na padaria"). Campos vazios recebem defaults no service.
type ParsedTransaction struct {
	Amount      Money           `json:"amount"`
	Type        TransactionType `json:"type"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Date        string          `json:"date"`
}

// DefaultDescription é usada quando o modelo não devolve descrição.
const DefaultDescription = "Sem descrição"

// ParseReply é o JSON devolvido pelo modelo (ou pelo agent) para uma frase.
// Todos os campos são opcionais; Normalize decide o que vale.
type ParseReply struct {
	IsValid     bool     `json:"isValid"`
	Amount      *float64 `json:"amount,omitempty"`
	Type        string   `json:"type,omitempty"`
	Category    string   `json:"category,omitempty"`
	Description string   `json:"description,omitempty"`
	Date        string   `json:"date,omitempty"`
}

// Normalize converte a resposta em ParsedTransaction.
// Retorna nil quando a frase não é uma transação (isValid=false ou valor ausente).
// now fornece a data padrão e o fuso usado para validar a data devolvida.
func (r ParseReply) Normalize(now time.Time) *ParsedTransaction {
	if !r.IsValid || r.Amount == nil {
		return nil
	}
	amount := FromFloat(math.Abs(*r.Amount))
	if amount <= 0 {
		return nil
	}

	p := &ParsedTransaction{
		Amount:      amount,
		Type:        Expense,
		Category:    strings.TrimSpace(r.Category),
		Description: strings.TrimSpace(r.Description),
		Date:        strings.TrimSpace(r.Date),
	}
	if TransactionType(strings.ToUpper(r.Type)) == Income {
		p.Type = Income
	}
	if p.Category == "" {
		p.Category = DefaultCategory
	}
	if p.Description == "" {
		p.Description = DefaultDescription
	}
	if _, _, err := ParseDate(p.Date, now.Location()); err != nil {
		p.Date = FormatDate(now, LayoutDateOnly)
	}
	return p
}

// ForecastConfidence é o nível de confiança declarado pelo modelo.
type ForecastConfidence string

const (
	ConfidenceHigh   ForecastConfidence = "Alta"
	ConfidenceMedium ForecastConfidence = "Média"
	ConfidenceLow    ForecastConfidence = "Baixa"
	ConfidenceNone   ForecastConfidence = "Nula"
)

// Forecast é a previsão do próximo mês com um conselho curto.
type Forecast struct {
	ProjectedIncome  Money              `json:"projectedIncome"`
	ProjectedExpense Money              `json:"projectedExpense"`
	Advice           string             `json:"advice"`
	Confidence       ForecastConfidence `json:"confidence"`
}

// Normalize corrige valores fora do contrato: negativos viram zero e
// confiança desconhecida vira Baixa.
func (f *Forecast) Normalize() {
	if f.ProjectedIncome < 0 {
		f.ProjectedIncome = 0
	}
	if f.ProjectedExpense < 0 {
		f.ProjectedExpense = 0
	}
	switch f.Confidence {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow, ConfidenceNone:
	default:
		f.Confidence = ConfidenceLow
	}
	f.Advice = strings.TrimSpace(f.Advice)
}

// ToHistory reduz os lançamentos mais recentes (até limit) ao formato
// enviado ao modelo. list já está na ordem de armazenamento.
func ToHistory(list []Transaction, limit int) []HistoryPoint {
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	out := make([]HistoryPoint, 0, len(list))
	for _, t := range list {
		out = append(out, HistoryPoint{Date: t.Date, Amount: t.Amount, Type: t.Type, Category: t.Category})
	}
	return out
}

// Mensagens fixas devolvidas sem consultar o modelo.
const (
	EmptyHistoryAdvice = "Adicione transações para receber uma análise."
	ForecastFailAdvice = "Não foi possível gerar previsão no momento."
)

// EmptyHistoryForecast é a resposta para uma família sem lançamentos.
func EmptyHistoryForecast() Forecast {
	return Forecast{Advice: EmptyHistoryAdvice, Confidence: ConfidenceLow}
}

// UnavailableForecast é a resposta quando o modelo falha.
func UnavailableForecast() Forecast {
	return Forecast{Advice: ForecastFailAdvice, Confidence: ConfidenceNone}
}

// HistoryPoint é a forma reduzida de um lançamento enviada ao modelo.
type HistoryPoint struct {
	Date     string          `json:"date"`
	Amount   Money           `json:"amount"`
	Type     TransactionType `json:"type"`
	Category string          `json:"category"`
}

// TokenUsage rastreia o consumo de tokens do LLM para monitoramento de custos.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// AssistantMetrics is returned by GET /v1/metrics/assistant.
type AssistantMetrics struct {
	ParseRequests       int64   `json:"parseRequests"`
	ForecastRequests    int64   `json:"forecastRequests"`
	ErrorRate           float64 `json:"errorRate"`
	UnrecognizedRate    float64 `json:"unrecognizedRate"`
	AvgTokensPerRequest float64 `json:"avgTokensPerRequest"`
	EstimatedCostUsd    float64 `json:"estimatedCostUsd"`
	CacheHitRate        float64 `json:"cacheHitRate"`
	Period              string  `json:"period"`
}
