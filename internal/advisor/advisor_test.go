package advisor

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/avolkov/finsight/internal/domain"
	"github.com/avolkov/finsight/internal/llm"
	"github.com/avolkov/finsight/internal/logger"
)

type mockCompletionService struct {
	CompleteJSONFunc func(ctx context.Context, system, prompt string) (map[string]interface{}, error)
	lastPrompt       string
}

func (m *mockCompletionService) CompleteJSON(ctx context.Context, system, prompt string) (map[string]interface{}, error) {
	m.lastPrompt = prompt
	if m.CompleteJSONFunc != nil {
		return m.CompleteJSONFunc(ctx, system, prompt)
	}
	return map[string]interface{}{}, nil
}

func sampleData() SpendingData {
	return SpendingData{
		MonthlyCategorySpending: map[string]float64{"Dining": 320.5, "Rent": 1200},
		PreviousMonthSpending:   map[string]float64{"Dining": 260},
		UserBudget:              map[string]float64{"Dining": 250},
	}
}

func TestSynthesize(t *testing.T) {
	mock := &mockCompletionService{
		CompleteJSONFunc: func(ctx context.Context, system, prompt string) (map[string]interface{}, error) {
			return map[string]interface{}{
				"tips": []interface{}{
					map[string]interface{}{"id": "tip-1", "category": "Dining", "tip": "Cook at home twice a week.", "potentialSavings": 70.0},
					map[string]interface{}{"category": "Rent", "tip": "Consider a roommate."},
				},
			}, nil
		},
	}

	a := New(mock, logger.NewWithWriter(os.Stderr))
	tips, err := a.Synthesize(context.Background(), sampleData())
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	if len(tips) != 2 {
		t.Fatalf("got %d tips, want 2", len(tips))
	}
	if tips[0].PotentialSavings == nil || *tips[0].PotentialSavings != 70 {
		t.Errorf("tip 0 PotentialSavings = %v, want 70", tips[0].PotentialSavings)
	}
	if tips[1].PotentialSavings != nil {
		t.Errorf("tip 1 PotentialSavings = %v, want nil", *tips[1].PotentialSavings)
	}
	if tips[1].ID != "tip-2" {
		t.Errorf("tip 1 ID = %q, want tip-2", tips[1].ID)
	}

	// The prompt must carry all three maps.
	for _, fragment := range []string{"Current month spending", "Previous month spending", "budget by category", "320.5", "Rent"} {
		if !strings.Contains(mock.lastPrompt, fragment) {
			t.Errorf("prompt missing %q", fragment)
		}
	}
}

func TestSynthesize_EmptyMapsTolerated(t *testing.T) {
	mock := &mockCompletionService{
		CompleteJSONFunc: func(ctx context.Context, system, prompt string) (map[string]interface{}, error) {
			return map[string]interface{}{"tips": []interface{}{}}, nil
		},
	}

	a := New(mock, logger.NewWithWriter(os.Stderr))
	tips, err := a.Synthesize(context.Background(), SpendingData{})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if tips == nil || len(tips) != 0 {
		t.Errorf("tips = %v, want empty list", tips)
	}
	if !strings.Contains(mock.lastPrompt, "{}") {
		t.Error("empty maps should render as {}")
	}
}

func TestSynthesize_UpstreamFailureYieldsEmptyList(t *testing.T) {
	upstream := &llm.UpstreamError{Err: errors.New("network down")}
	mock := &mockCompletionService{
		CompleteJSONFunc: func(ctx context.Context, system, prompt string) (map[string]interface{}, error) {
			return nil, upstream
		},
	}

	a := New(mock, logger.NewWithWriter(os.Stderr))
	tips, err := a.Synthesize(context.Background(), sampleData())

	if err == nil {
		t.Fatal("expected error")
	}
	var ue *llm.UpstreamError
	if !errors.As(err, &ue) {
		t.Errorf("error = %v, want wrapped *llm.UpstreamError", err)
	}
	// Never a partially parsed result: the list is empty, not nil.
	if tips == nil || len(tips) != 0 {
		t.Errorf("tips = %v, want empty list", tips)
	}
}

func TestSynthesize_MissingTipsKey(t *testing.T) {
	mock := &mockCompletionService{
		CompleteJSONFunc: func(ctx context.Context, system, prompt string) (map[string]interface{}, error) {
			return map[string]interface{}{"advice": "none"}, nil
		},
	}

	a := New(mock, logger.NewWithWriter(os.Stderr))
	tips, err := a.Synthesize(context.Background(), sampleData())
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(tips) != 0 {
		t.Errorf("tips = %v, want empty list", tips)
	}
}

func TestCategorySpending(t *testing.T) {
	txs := []domain.Transaction{
		{Date: "2024-03-01", Amount: -85.42, Category: "Groceries", Type: domain.TypeExpense},
		{Date: "2024-03-15", Amount: -20, Category: "Groceries", Type: domain.TypeExpense},
		{Date: "2024-03-10", Amount: -40, Category: "Dining", Type: domain.TypeExpense},
		{Date: "2024-02-10", Amount: -99, Category: "Dining", Type: domain.TypeExpense}, // previous month
		{Date: "2024-03-02", Amount: 2450, Category: "Salary", Type: domain.TypeIncome}, // income ignored
		{Date: "bogus", Amount: -5, Category: "Dining", Type: domain.TypeExpense},       // unparseable date skipped
	}

	got := CategorySpending(txs, 2024, time.March)

	if len(got) != 2 {
		t.Fatalf("got %d categories, want 2: %v", len(got), got)
	}
	if got["Groceries"] != 105.42 {
		t.Errorf("Groceries = %v, want 105.42", got["Groceries"])
	}
	if got["Dining"] != 40 {
		t.Errorf("Dining = %v, want 40", got["Dining"])
	}
}
