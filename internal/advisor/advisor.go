// Package advisor derives savings tips from already-normalized spending
// figures: it builds a second model prompt from the category spending and
// budget maps, dispatches it, and normalizes the reply into canonical
// SavingTip values.
package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/avolkov/finsight/internal/domain"
	"github.com/avolkov/finsight/internal/normalize"
)

// tipsSystemPrompt frames the model as a spending-pattern advisor.
const tipsSystemPrompt = "You are a financial advisor assistant that analyzes spending patterns and provides personalized savings tips."

// CompletionService is the slice of the LLM client the advisor needs.
type CompletionService interface {
	CompleteJSON(ctx context.Context, system, prompt string) (map[string]interface{}, error)
}

// SpendingData carries the three category->amount maps the tips prompt is
// built from. Each map is optional; an empty map renders as "{}".
type SpendingData struct {
	MonthlyCategorySpending map[string]float64 `json:"monthlyCategorySpending"`
	PreviousMonthSpending   map[string]float64 `json:"previousMonthSpending"`
	UserBudget              map[string]float64 `json:"userBudget"`
}

// Advisor synthesizes savings tips via an injected completion service.
type Advisor struct {
	llm CompletionService
	log zerolog.Logger
}

// New creates an advisor.
func New(llm CompletionService, log zerolog.Logger) *Advisor {
	return &Advisor{llm: llm, log: log}
}

// Synthesize requests savings tips for the given spending data and
// normalizes the reply. The prompt asks for 4-5 tips but any count,
// including zero, is accepted. On upstream or parse failure the caller
// gets an empty tip list together with the error, never a partially
// parsed result.
func (a *Advisor) Synthesize(ctx context.Context, data SpendingData) ([]domain.SavingTip, error) {
	prompt, err := buildTipsPrompt(data)
	if err != nil {
		return []domain.SavingTip{}, fmt.Errorf("synthesize: %w", err)
	}

	raw, err := a.llm.CompleteJSON(ctx, tipsSystemPrompt, prompt)
	if err != nil {
		return []domain.SavingTip{}, fmt.Errorf("synthesize: %w", err)
	}

	tips := normalize.Tips(raw["tips"])
	a.log.Info().Int("tips", len(tips)).Msg("Savings tips synthesized")
	return tips, nil
}

// buildTipsPrompt renders the three spending maps into the tips prompt.
func buildTipsPrompt(data SpendingData) (string, error) {
	monthly, err := marshalMap(data.MonthlyCategorySpending)
	if err != nil {
		return "", err
	}
	previous, err := marshalMap(data.PreviousMonthSpending)
	if err != nil {
		return "", err
	}
	budget, err := marshalMap(data.UserBudget)
	if err != nil {
		return "", err
	}

	return "Based on the following financial data, provide personalized savings tips:\n\n" +
		"Current month spending by category:\n" + monthly + "\n\n" +
		"Previous month spending by category:\n" + previous + "\n\n" +
		"User's budget by category:\n" + budget + "\n\n" +
		"Analyze this data and provide 4-5 specific, actionable savings tips.\n" +
		"Each tip should include:\n" +
		"1. The category it applies to\n" +
		"2. A specific observation about spending in that category (increase/decrease, over budget, etc.)\n" +
		"3. A concrete recommendation to save money\n" +
		"4. An estimated potential monthly savings amount when applicable\n\n" +
		"Return the results in JSON format with an array of tips objects, each containing:\n" +
		"- id: A unique string identifier (use simple sequencing like \"tip-1\", \"tip-2\", etc.)\n" +
		"- category: The spending category\n" +
		"- tip: The savings recommendation\n" +
		"- potentialSavings: Estimated dollar amount that could be saved (optional)\n", nil
}

func marshalMap(m map[string]float64) (string, error) {
	if m == nil {
		m = map[string]float64{}
	}
	out, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode spending map: %w", err)
	}
	return string(out), nil
}

// CategorySpending buckets expense transactions of the given month into a
// category->amount map (absolute values), the aggregation the dashboard
// feeds into the tips prompt. Transactions with unparseable dates are
// skipped.
func CategorySpending(txs []domain.Transaction, year int, month time.Month) map[string]float64 {
	spending := make(map[string]float64)
	for _, tx := range txs {
		if tx.Type != domain.TypeExpense {
			continue
		}
		date, err := time.Parse("2006-01-02", tx.Date)
		if err != nil || date.Year() != year || date.Month() != month {
			continue
		}
		amt := tx.Amount
		if amt < 0 {
			amt = -amt
		}
		spending[tx.Category] += amt
	}
	return spending
}
