// Package pipeline orchestrates one CSV analysis round trip: raw CSV
// text goes to the completion service with the analysis prompt, the raw
// JSON reply is normalized into the canonical schema, and the store is
// repopulated wholesale with the result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/avolkov/finsight/internal/domain"
	"github.com/avolkov/finsight/internal/normalize"
	"github.com/avolkov/finsight/internal/store"
)

// ErrEmptyCSV is returned when an analysis is requested without CSV data.
var ErrEmptyCSV = errors.New("pipeline: csv data is required")

// CompletionService is the slice of the LLM client the pipeline needs.
// It enables mocking the upstream call in tests.
type CompletionService interface {
	CompleteJSON(ctx context.Context, system, prompt string) (map[string]interface{}, error)
}

// Analyzer runs CSV analyses against an injected completion service and
// store.
type Analyzer struct {
	llm   CompletionService
	store *store.Store
	log   zerolog.Logger
}

// NewAnalyzer creates an analyzer.
func NewAnalyzer(llm CompletionService, st *store.Store, log zerolog.Logger) *Analyzer {
	return &Analyzer{
		llm:   llm,
		store: st,
		log:   log,
	}
}

// AnalyzeCSV analyzes one CSV export and replaces the store contents with
// the normalized result. Only I/O-level failures (upstream call, body not
// JSON at all) propagate as errors; shape problems inside the reply are
// absorbed by the normalizer's defaulting rules. A failed snapshot save
// is logged but does not fail the analysis - the normalized result is
// already the store's current state.
func (a *Analyzer) AnalyzeCSV(ctx context.Context, csvData string) (*domain.AnalysisResult, error) {
	if strings.TrimSpace(csvData) == "" {
		return nil, ErrEmptyCSV
	}

	raw, err := a.llm.CompleteJSON(ctx, analysisSystemPrompt, buildAnalysisPrompt(csvData))
	if err != nil {
		return nil, fmt.Errorf("analyzeCSV: %w", err)
	}

	result := normalize.Response(raw)

	a.store.SetTransactions(result.Transactions)
	a.store.SetAnalysis(result.Analysis)

	if err := a.store.Save(ctx); err != nil {
		a.log.Warn().Err(err).Msg("Failed to persist store snapshot after analysis")
	}

	a.log.Info().
		Int("transactions", len(result.Transactions)).
		Int("categories", len(result.Analysis.CategoryBreakdown)).
		Float64("net_savings", result.Analysis.Summary.NetSavings).
		Msg("CSV analysis completed")

	return result, nil
}
