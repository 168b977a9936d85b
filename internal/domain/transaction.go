package domain

// TypeIncome and TypeExpense are the only transaction types the canonical
// schema admits. When the source omits the type it is inferred from the
// sign of the amount (>= 0 means income).
const (
	TypeIncome  = "income"
	TypeExpense = "expense"
)

// Transaction is one normalized transaction in the canonical schema.
// Every field is populated after normalization; malformed source data is
// replaced by documented defaults, never by zero-value surprises.
type Transaction struct {
	ID          string  `json:"id"`          // from "id", synthesized if absent
	Date        string  `json:"date"`        // "YYYY-MM-DD", today if absent
	Description string  `json:"description"` // "description" | "merchant" | "name"
	Amount      float64 `json:"amount"`      // signed: positive = inflow, negative = outflow
	Category    string  `json:"category"`    // "Uncategorized" if absent
	Type        string  `json:"type"`        // TypeIncome or TypeExpense
}

// CategoryBreakdown is one row of per-category spending.
type CategoryBreakdown struct {
	Category   string  `json:"category"`
	Amount     float64 `json:"amount"`     // absolute value
	Percentage float64 `json:"percentage"` // 0-100, 0 when the source omits it
}

// SpendingSummary holds the period totals.
type SpendingSummary struct {
	TotalIncome   float64 `json:"totalIncome"`
	TotalExpenses float64 `json:"totalExpenses"` // non-negative
	NetSavings    float64 `json:"netSavings"`    // signed
}

// Analysis pairs the category breakdown with the summary, exactly as the
// dashboard consumes it.
type Analysis struct {
	CategoryBreakdown []CategoryBreakdown `json:"categoryBreakdown"`
	Summary           SpendingSummary     `json:"summary"`
}

// AnalysisResult is the full output of one CSV analysis.
type AnalysisResult struct {
	Transactions []Transaction `json:"transactions"`
	Analysis     Analysis      `json:"analysis"`
}

// SavingTip is one normalized savings recommendation. PotentialSavings is
// nil when the model gave no quantified estimate; its presence signals
// "this tip has a number attached", so it is never defaulted to zero.
type SavingTip struct {
	ID               string   `json:"id"`
	Category         string   `json:"category"`
	Tip              string   `json:"tip"`
	PotentialSavings *float64 `json:"potentialSavings,omitempty"`
}

// TransactionPatch carries a partial update for UpdateTransaction. Nil
// fields are left untouched.
type TransactionPatch struct {
	Date        *string  `json:"date,omitempty"`
	Description *string  `json:"description,omitempty"`
	Amount      *float64 `json:"amount,omitempty"`
	Category    *string  `json:"category,omitempty"`
	Type        *string  `json:"type,omitempty"`
}

// EmptyAnalysis returns the zeroed analysis the store starts from and
// falls back to when a snapshot is absent or corrupt.
func EmptyAnalysis() Analysis {
	return Analysis{CategoryBreakdown: []CategoryBreakdown{}}
}

// Summarize computes period totals from typed transactions the way the
// dashboard widgets do: income transactions sum into TotalIncome, expense
// transactions sum (as absolute values) into TotalExpenses.
func Summarize(txs []Transaction) SpendingSummary {
	var s SpendingSummary
	for _, t := range txs {
		if t.Type == TypeIncome {
			s.TotalIncome += t.Amount
		} else {
			amt := t.Amount
			if amt < 0 {
				amt = -amt
			}
			s.TotalExpenses += amt
		}
	}
	s.NetSavings = s.TotalIncome - s.TotalExpenses
	return s
}
