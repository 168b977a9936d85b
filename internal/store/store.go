// Package store holds the single current set of transactions and analysis
// for a session. The store is the sole writable source of truth for every
// rendering surface; it is explicitly constructed and injected rather
// than reached through package-level state.
package store

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/avolkov/finsight/internal/domain"
)

// Store is a mutex-guarded container for the session's transactions and
// analysis. All mutation operations are synchronous and atomic per call;
// reads observe the most recent write. It is safe for concurrent use,
// though the expected access pattern is a single logical writer.
type Store struct {
	mu           sync.RWMutex
	transactions []domain.Transaction
	analysis     domain.Analysis

	snapshot Snapshot
	log      zerolog.Logger
}

// New creates an empty store backed by the given snapshot. A nil snapshot
// disables persistence; Load and Save become no-ops.
func New(snapshot Snapshot, log zerolog.Logger) *Store {
	return &Store{
		transactions: []domain.Transaction{},
		analysis:     domain.EmptyAnalysis(),
		snapshot:     snapshot,
		log:          log,
	}
}

// SetTransactions replaces the full transaction list. The normalizer has
// already guaranteed the canonical invariants, so no validation happens
// here.
func (s *Store) SetTransactions(txs []domain.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = append([]domain.Transaction{}, txs...)
}

// SetAnalysis replaces the full analysis.
func (s *Store) SetAnalysis(analysis domain.Analysis) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if analysis.CategoryBreakdown == nil {
		analysis.CategoryBreakdown = []domain.CategoryBreakdown{}
	}
	s.analysis = analysis
}

// AddTransaction appends one transaction. Duplicate-id checking is the
// caller's responsibility.
func (s *Store) AddTransaction(tx domain.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = append(s.transactions, tx)
}

// RemoveTransaction removes the entry with the matching id. Removing an
// absent id is a no-op, so deletes are idempotent.
func (s *Store) RemoveTransaction(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, tx := range s.transactions {
		if tx.ID == id {
			s.transactions = append(s.transactions[:i], s.transactions[i+1:]...)
			return
		}
	}
}

// UpdateTransaction merges the non-nil patch fields into the entry with
// the matching id. Updating an absent id is a no-op. The reported bool
// tells the caller whether anything matched.
func (s *Store) UpdateTransaction(id string, patch domain.TransactionPatch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.transactions {
		if s.transactions[i].ID != id {
			continue
		}
		tx := &s.transactions[i]
		if patch.Date != nil {
			tx.Date = *patch.Date
		}
		if patch.Description != nil {
			tx.Description = *patch.Description
		}
		if patch.Amount != nil {
			tx.Amount = *patch.Amount
		}
		if patch.Category != nil {
			tx.Category = *patch.Category
		}
		if patch.Type != nil {
			tx.Type = *patch.Type
		}
		return true
	}
	return false
}

// Transactions returns a copy of the current transaction list.
func (s *Store) Transactions() []domain.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Transaction{}, s.transactions...)
}

// Analysis returns the current analysis.
func (s *Store) Analysis() domain.Analysis {
	s.mu.RLock()
	defer s.mu.RUnlock()
	analysis := s.analysis
	analysis.CategoryBreakdown = append([]domain.CategoryBreakdown{}, s.analysis.CategoryBreakdown...)
	return analysis
}

// Reset clears the store back to its empty defaults.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = []domain.Transaction{}
	s.analysis = domain.EmptyAnalysis()
}

// Load rehydrates the store from its snapshot. An absent or corrupt
// snapshot leaves the store at its empty defaults and is never an error;
// only backend I/O problems other than "not found" are logged, and even
// those do not fail the load.
func (s *Store) Load(ctx context.Context) {
	if s.snapshot == nil {
		return
	}

	state, err := s.snapshot.Read(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("Snapshot unreadable, starting from empty state")
		s.Reset()
		return
	}
	if state == nil {
		s.Reset()
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = state.Transactions
	if s.transactions == nil {
		s.transactions = []domain.Transaction{}
	}
	s.analysis = state.Analysis
	if s.analysis.CategoryBreakdown == nil {
		s.analysis.CategoryBreakdown = []domain.CategoryBreakdown{}
	}
}

// Save writes the current state to the snapshot.
func (s *Store) Save(ctx context.Context) error {
	if s.snapshot == nil {
		return nil
	}

	s.mu.RLock()
	state := &State{
		Transactions: append([]domain.Transaction{}, s.transactions...),
		Analysis:     s.analysis,
	}
	s.mu.RUnlock()

	return s.snapshot.Write(ctx, state)
}
