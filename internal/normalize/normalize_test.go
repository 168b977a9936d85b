package normalize

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/avolkov/finsight/internal/domain"
)

// decode parses a JSON literal into the generic map form the normalizer
// consumes, the same way the HTTP layer does.
func decode(t *testing.T, raw string) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return m
}

func TestResponse_MissingTransactionsKey(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty object", raw: `{}`},
		{name: "unrelated keys", raw: `{"foo": 1, "bar": "baz"}`},
		{name: "transactions not an array", raw: `{"transactions": "nope"}`},
		{name: "transactions null", raw: `{"transactions": null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Response(decode(t, tt.raw))
			if got.Transactions == nil {
				t.Fatal("Transactions is nil, want empty slice")
			}
			if len(got.Transactions) != 0 {
				t.Errorf("got %d transactions, want 0", len(got.Transactions))
			}
		})
	}
}

func TestTransactions_AmountCoercion(t *testing.T) {
	raw := decode(t, `{"transactions": [{"amount": "-45.99"}]}`)
	got := Response(raw).Transactions

	if len(got) != 1 {
		t.Fatalf("got %d transactions, want 1", len(got))
	}
	if got[0].Amount != -45.99 {
		t.Errorf("Amount = %v, want -45.99", got[0].Amount)
	}
	if got[0].Type != domain.TypeExpense {
		t.Errorf("Type = %q, want %q", got[0].Type, domain.TypeExpense)
	}
}

func TestTransactions_TypeInference(t *testing.T) {
	tests := []struct {
		name     string
		entry    string
		wantType string
	}{
		{name: "positive amount no type", entry: `{"amount": 1200}`, wantType: domain.TypeIncome},
		{name: "negative amount no type", entry: `{"amount": -10}`, wantType: domain.TypeExpense},
		{name: "zero amount no type", entry: `{"amount": 0}`, wantType: domain.TypeIncome},
		{name: "missing amount no type", entry: `{}`, wantType: domain.TypeIncome},
		{name: "explicit type wins over sign", entry: `{"amount": -5, "type": "income"}`, wantType: domain.TypeIncome},
		{name: "explicit type lowercased", entry: `{"amount": 5, "type": "EXPENSE"}`, wantType: domain.TypeExpense},
		{name: "unknown type falls back to sign", entry: `{"amount": -5, "type": "credit"}`, wantType: domain.TypeExpense},
		{name: "unparseable amount string", entry: `{"amount": "abc"}`, wantType: domain.TypeIncome},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := decode(t, `{"transactions": [`+tt.entry+`]}`)
			got := Response(raw).Transactions
			if len(got) != 1 {
				t.Fatalf("got %d transactions, want 1", len(got))
			}
			if got[0].Type != tt.wantType {
				t.Errorf("Type = %q, want %q", got[0].Type, tt.wantType)
			}
		})
	}
}

func TestTransactions_Defaults(t *testing.T) {
	raw := decode(t, `{"transactions": [{}, {"merchant": "Corner Shop"}, "not an object"]}`)
	got := Response(raw).Transactions

	if len(got) != 3 {
		t.Fatalf("got %d transactions, want 3", len(got))
	}

	for i, tx := range got {
		if tx.ID == "" {
			t.Errorf("transaction %d: empty ID", i)
		}
		if tx.Date == "" {
			t.Errorf("transaction %d: empty Date", i)
		}
		if tx.Description == "" {
			t.Errorf("transaction %d: empty Description", i)
		}
		if tx.Category != DefaultCategory {
			t.Errorf("transaction %d: Category = %q, want %q", i, tx.Category, DefaultCategory)
		}
		if tx.Type != domain.TypeIncome {
			t.Errorf("transaction %d: Type = %q, want %q", i, tx.Type, domain.TypeIncome)
		}
	}

	if got[0].Description != DefaultDescription {
		t.Errorf("Description = %q, want %q", got[0].Description, DefaultDescription)
	}
	// "merchant" is the first alias after "description".
	if got[1].Description != "Corner Shop" {
		t.Errorf("Description = %q, want %q", got[1].Description, "Corner Shop")
	}
	// Synthesized ids must not collide within one run.
	if got[0].ID == got[1].ID {
		t.Errorf("synthesized ids collide: %q", got[0].ID)
	}
	if !strings.HasPrefix(got[0].ID, "tx-0-") {
		t.Errorf("ID = %q, want tx-0-<timestamp>", got[0].ID)
	}
}

func TestTransactions_ExplicitIDAndDateKept(t *testing.T) {
	raw := decode(t, `{"transactions": [{"id": "abc", "date": "2024-03-01", "description": "Coffee", "amount": -3.5, "category": "Dining"}]}`)
	got := Response(raw).Transactions

	want := domain.Transaction{
		ID:          "abc",
		Date:        "2024-03-01",
		Description: "Coffee",
		Amount:      -3.5,
		Category:    "Dining",
		Type:        domain.TypeExpense,
	}
	if len(got) != 1 || got[0] != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestBreakdown_MappingForm(t *testing.T) {
	raw := decode(t, `{"categoryBreakdown": {"Dining": 100, "Rent": "1200"}}`)
	got := Response(raw).Analysis.CategoryBreakdown

	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2", len(got))
	}
	// Mapping form is emitted in category-name order.
	if got[0].Category != "Dining" || got[0].Amount != 100 || got[0].Percentage != 0 {
		t.Errorf("entry 0 = %+v, want Dining/100/0", got[0])
	}
	if got[1].Category != "Rent" || got[1].Amount != 1200 || got[1].Percentage != 0 {
		t.Errorf("entry 1 = %+v, want Rent/1200/0", got[1])
	}
}

func TestBreakdown_ArrayForm(t *testing.T) {
	raw := decode(t, `{"categories": [
		{"name": "Groceries", "amount": -320.5, "percentage": 40},
		{"amount": "15"},
		{"category": "Rent", "amount": 1200}
	]}`)
	got := Response(raw).Analysis.CategoryBreakdown

	if len(got) != 3 {
		t.Fatalf("got %d entries, want 3", len(got))
	}
	if got[0].Category != "Groceries" || got[0].Amount != 320.5 || got[0].Percentage != 40 {
		t.Errorf("entry 0 = %+v, want Groceries/320.5/40", got[0])
	}
	if got[1].Category != DefaultBreakdownCategory || got[1].Amount != 15 || got[1].Percentage != 0 {
		t.Errorf("entry 1 = %+v, want %s/15/0", got[1], DefaultBreakdownCategory)
	}
	if got[2].Category != "Rent" || got[2].Amount != 1200 {
		t.Errorf("entry 2 = %+v, want Rent/1200", got[2])
	}
}

func TestBreakdown_DegenerateShapes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "scalar", raw: `{"categoryBreakdown": 42}`},
		{name: "string", raw: `{"categoryBreakdown": "none"}`},
		{name: "null", raw: `{"categoryBreakdown": null}`},
		{name: "absent", raw: `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Response(decode(t, tt.raw)).Analysis.CategoryBreakdown
			if got == nil {
				t.Fatal("breakdown is nil, want empty slice")
			}
			if len(got) != 0 {
				t.Errorf("got %d entries, want 0", len(got))
			}
		})
	}
}

func TestSummary_FallbackComputation(t *testing.T) {
	raw := decode(t, `{"summary": {"income": 1000, "expenses": 400}}`)
	got := Response(raw).Analysis.Summary

	if got.TotalIncome != 1000 {
		t.Errorf("TotalIncome = %v, want 1000", got.TotalIncome)
	}
	if got.TotalExpenses != 400 {
		t.Errorf("TotalExpenses = %v, want 400", got.TotalExpenses)
	}
	if got.NetSavings != 600 {
		t.Errorf("NetSavings = %v, want 600", got.NetSavings)
	}
}

func TestSummary_Variants(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want domain.SpendingSummary
	}{
		{
			name: "canonical keys",
			raw:  `{"summary": {"totalIncome": 2450, "totalExpenses": 85.42, "netSavings": 2364.58}}`,
			want: domain.SpendingSummary{TotalIncome: 2450, TotalExpenses: 85.42, NetSavings: 2364.58},
		},
		{
			name: "alternate summary key",
			raw:  `{"financialSummary": {"income": "100", "expenses": "-40"}}`,
			want: domain.SpendingSummary{TotalIncome: 100, TotalExpenses: 40, NetSavings: 60},
		},
		{
			name: "explicit savings key not recomputed",
			raw:  `{"summary": {"income": 1000, "expenses": 400, "savings": 500}}`,
			want: domain.SpendingSummary{TotalIncome: 1000, TotalExpenses: 400, NetSavings: 500},
		},
		{
			name: "negative expenses folded to absolute",
			raw:  `{"summary": {"totalExpenses": -250}}`,
			want: domain.SpendingSummary{TotalExpenses: 250, NetSavings: -250},
		},
		{
			name: "missing summary",
			raw:  `{}`,
			want: domain.SpendingSummary{},
		},
		{
			name: "summary not an object",
			raw:  `{"summary": "none"}`,
			want: domain.SpendingSummary{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Response(decode(t, tt.raw)).Analysis.Summary
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestTips(t *testing.T) {
	raw := decode(t, `{"tips": [
		{"id": "tip-1", "category": "Dining", "tip": "Cook at home twice a week.", "potentialSavings": 80},
		{"category": "Utilities", "tip": "Unplug idle devices."},
		{"category": "Noise"},
		{"tip": "Automate transfers to savings.", "potentialSavings": "-25"}
	]}`)
	got := Tips(raw["tips"])

	if len(got) != 3 {
		t.Fatalf("got %d tips, want 3", len(got))
	}

	if got[0].ID != "tip-1" || got[0].Category != "Dining" {
		t.Errorf("tip 0 = %+v", got[0])
	}
	if got[0].PotentialSavings == nil || *got[0].PotentialSavings != 80 {
		t.Errorf("tip 0 PotentialSavings = %v, want 80", got[0].PotentialSavings)
	}

	// Absent estimate stays absent, never zero.
	if got[1].PotentialSavings != nil {
		t.Errorf("tip 1 PotentialSavings = %v, want nil", *got[1].PotentialSavings)
	}
	if got[1].ID != "tip-2" {
		t.Errorf("tip 1 ID = %q, want tip-2", got[1].ID)
	}

	// String estimates are coerced and folded to non-negative.
	if got[2].PotentialSavings == nil || *got[2].PotentialSavings != 25 {
		t.Errorf("tip 2 PotentialSavings = %v, want 25", got[2].PotentialSavings)
	}
	if got[2].Category != "General" {
		t.Errorf("tip 2 Category = %q, want General", got[2].Category)
	}
}

func TestTips_OptionalFieldOmittedInJSON(t *testing.T) {
	raw := decode(t, `{"tips": [{"category": "Dining", "tip": "Skip delivery fees."}]}`)
	tips := Tips(raw["tips"])

	out, err := json.Marshal(tips[0])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(out), "potentialSavings") {
		t.Errorf("serialized tip leaks absent potentialSavings: %s", out)
	}
}

func TestTips_DegenerateShapes(t *testing.T) {
	for _, raw := range []interface{}{nil, "text", 12.0, map[string]interface{}{}} {
		got := Tips(raw)
		if got == nil || len(got) != 0 {
			t.Errorf("Tips(%v) = %v, want empty slice", raw, got)
		}
	}
}

func TestSummarize_FromTypedTransactions(t *testing.T) {
	txs := []domain.Transaction{
		{Description: "Grocery Store", Amount: -85.42, Type: domain.TypeExpense},
		{Description: "Paycheck", Amount: 2450, Type: domain.TypeIncome},
	}

	got := domain.Summarize(txs)
	if got.TotalIncome != 2450 {
		t.Errorf("TotalIncome = %v, want 2450", got.TotalIncome)
	}
	if got.TotalExpenses != 85.42 {
		t.Errorf("TotalExpenses = %v, want 85.42", got.TotalExpenses)
	}
	if got.NetSavings != 2450-85.42 {
		t.Errorf("NetSavings = %v, want %v", got.NetSavings, 2450-85.42)
	}
}
