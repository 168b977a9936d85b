// Package normalize converts the loosely-typed JSON a language model
// returns into the strict canonical schema. Every mapping function is a
// pure transformation: missing, mistyped or otherwise malformed fields
// are replaced by documented defaults and never cause an error. Only the
// caller that parsed the raw HTTP body can fail; by the time data reaches
// this package it is already a generic JSON value.
package normalize

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/avolkov/finsight/internal/domain"
)

const (
	// DefaultDescription is used when none of the description aliases
	// ("description", "merchant", "name") carry a usable value.
	DefaultDescription = "Unknown transaction"

	// DefaultCategory is the sentinel for uncategorized transactions.
	DefaultCategory = "Uncategorized"

	// DefaultBreakdownCategory labels breakdown rows with no name.
	DefaultBreakdownCategory = "Unknown"

	dateLayout = "2006-01-02"
)

// Response maps a raw model reply into the canonical analysis result.
// The input is expected to loosely resemble
//
//	{ "transactions": [...], "categoryBreakdown"|"categories": [...]|{...},
//	  "summary"|"financialSummary": {...} }
//
// but any shape is tolerated.
func Response(raw map[string]interface{}) *domain.AnalysisResult {
	return &domain.AnalysisResult{
		Transactions: Transactions(raw["transactions"]),
		Analysis: domain.Analysis{
			CategoryBreakdown: Breakdown(firstPresent(raw, "categoryBreakdown", "categories")),
			Summary:           Summary(firstPresent(raw, "summary", "financialSummary")),
		},
	}
}

// Transactions maps the raw transaction list, in array order, into
// canonical transactions. A non-array input yields an empty list; a
// non-object element yields a fully defaulted transaction.
func Transactions(raw interface{}) []domain.Transaction {
	entries, ok := raw.([]interface{})
	if !ok {
		return []domain.Transaction{}
	}

	// One generation timestamp per run; the entry index keeps synthesized
	// ids unique within the run.
	genTS := time.Now().UnixMilli()
	today := time.Now().Format(dateLayout)

	result := make([]domain.Transaction, 0, len(entries))
	for i, item := range entries {
		obj, _ := item.(map[string]interface{})

		amount, _ := numberValue(obj["amount"])

		id := stringValue(obj["id"])
		if id == "" {
			id = fmt.Sprintf("tx-%d-%d", i, genTS)
		}

		date := stringValue(obj["date"])
		if date == "" {
			date = today
		}

		desc := stringAlias(obj, "description", "merchant", "name")
		if desc == "" {
			desc = DefaultDescription
		}

		category := stringValue(obj["category"])
		if category == "" {
			category = DefaultCategory
		}

		result = append(result, domain.Transaction{
			ID:          id,
			Date:        date,
			Description: desc,
			Amount:      amount,
			Category:    category,
			Type:        transactionType(obj["type"], amount),
		})
	}
	return result
}

// transactionType resolves the transaction type: an explicit source value
// wins (lowercased), otherwise the sign of the amount decides. A source
// value outside the schema falls back to sign inference as well.
// Sign inference treats zero as income; that matches the observed source
// behavior and is preserved as-is pending product review.
func transactionType(raw interface{}, amount float64) string {
	switch strings.ToLower(stringValue(raw)) {
	case domain.TypeIncome:
		return domain.TypeIncome
	case domain.TypeExpense:
		return domain.TypeExpense
	}
	if amount >= 0 {
		return domain.TypeIncome
	}
	return domain.TypeExpense
}

// Breakdown maps the category breakdown from either of its two accepted
// shapes: an array of {category|name, amount, percentage} objects, or a
// plain {category name: amount} mapping. The mapping form is emitted in
// category-name order so output is deterministic. Any other shape yields
// an empty list.
func Breakdown(raw interface{}) []domain.CategoryBreakdown {
	switch v := raw.(type) {
	case []interface{}:
		result := make([]domain.CategoryBreakdown, 0, len(v))
		for _, item := range v {
			obj, _ := item.(map[string]interface{})

			category := stringAlias(obj, "category", "name")
			if category == "" {
				category = DefaultBreakdownCategory
			}

			amount, _ := numberValue(obj["amount"])
			if amount < 0 {
				amount = -amount
			}

			percentage, _ := numberValue(obj["percentage"])

			result = append(result, domain.CategoryBreakdown{
				Category:   category,
				Amount:     amount,
				Percentage: percentage,
			})
		}
		return result

	case map[string]interface{}:
		names := make([]string, 0, len(v))
		for name := range v {
			names = append(names, name)
		}
		sort.Strings(names)

		result := make([]domain.CategoryBreakdown, 0, len(names))
		for _, name := range names {
			amount, _ := numberValue(v[name])
			if amount < 0 {
				amount = -amount
			}
			result = append(result, domain.CategoryBreakdown{
				Category: name,
				Amount:   amount,
				// Percentage is never recomputed from totals; the mapping
				// form carries none, so it stays 0.
			})
		}
		return result

	default:
		return []domain.CategoryBreakdown{}
	}
}

// Summary maps the spending summary, accepting canonical and alternate
// key names per field. NetSavings is computed from the totals only when
// the source carries neither "netSavings" nor "savings".
func Summary(raw interface{}) domain.SpendingSummary {
	obj, _ := raw.(map[string]interface{})

	income, _ := numberValue(firstPresent(obj, "totalIncome", "income"))

	expenses, _ := numberValue(firstPresent(obj, "totalExpenses", "expenses"))
	if expenses < 0 {
		expenses = -expenses
	}

	net, haveNet := numberValue(firstPresent(obj, "netSavings", "savings"))
	if !haveNet {
		net = income - expenses
	}

	return domain.SpendingSummary{
		TotalIncome:   income,
		TotalExpenses: expenses,
		NetSavings:    net,
	}
}

// Tips maps the raw savings-tip reply into canonical tips. The input is
// the "tips" value of the reply; a non-array yields an empty list.
// Entries with no tip text are dropped. Ids default to a "tip-N"
// sequence; PotentialSavings stays nil when the source omits it or the
// value is not numeric.
func Tips(raw interface{}) []domain.SavingTip {
	entries, ok := raw.([]interface{})
	if !ok {
		return []domain.SavingTip{}
	}

	result := make([]domain.SavingTip, 0, len(entries))
	for _, item := range entries {
		obj, _ := item.(map[string]interface{})

		text := stringValue(obj["tip"])
		if text == "" {
			continue
		}

		id := stringValue(obj["id"])
		if id == "" {
			id = fmt.Sprintf("tip-%d", len(result)+1)
		}

		category := stringValue(obj["category"])
		if category == "" {
			category = "General"
		}

		tip := domain.SavingTip{
			ID:       id,
			Category: category,
			Tip:      text,
		}

		if savings, ok := numberValue(obj["potentialSavings"]); ok {
			if savings < 0 {
				savings = -savings
			}
			tip.PotentialSavings = &savings
		}

		result = append(result, tip)
	}
	return result
}

// firstPresent returns the value of the first key present in m, or nil.
// Presence, not truthiness, decides: an explicit zero still wins over a
// later alias.
func firstPresent(m map[string]interface{}, keys ...string) interface{} {
	for _, key := range keys {
		if v, ok := m[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

// stringValue extracts a trimmed string from a generic JSON value, or ""
// when the value is absent or not a string.
func stringValue(v interface{}) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// stringAlias walks an ordered list of alternate keys and returns the
// first usable string value.
func stringAlias(m map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if s := stringValue(m[key]); s != "" {
			return s
		}
	}
	return ""
}

// numberValue coerces a generic JSON value into a float64. Numbers pass
// through; numeric strings are parsed; everything else (including parse
// failures) yields 0 with ok=false so callers can tell "absent" from an
// explicit zero.
func numberValue(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int: // unlikely from encoding/json, but harmless to support
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
