// Package moduletest provides an in-memory module.Scope for handler tests.
package moduletest

import (
	"context"
	"sync"

	"civitas/internal/module"
	"civitas/internal/sequence"
	"civitas/internal/sequence/store"
	id "civitas/pkg/domain"
	dErrors "civitas/pkg/domain-errors"
	"civitas/pkg/platform/sentinel"
)

// Scope numbers records with an in-memory counter and keeps every record it
// is given. Record numbers are unique, like the production index.
type Scope struct {
	gen *sequence.Generator

	mu       sync.Mutex
	records  map[id.RecordID]*module.Record
	numbers  map[string]bool
	NumberFn func(ctx context.Context, prefix string) (string, error)
}

func NewScope() *Scope {
	return &Scope{
		gen:     sequence.NewGenerator(store.NewInMemory()),
		records: make(map[id.RecordID]*module.Record),
		numbers: make(map[string]bool),
	}
}

func (s *Scope) NextNumber(ctx context.Context, prefix string) (string, error) {
	if s.NumberFn != nil {
		return s.NumberFn(ctx, prefix)
	}
	return s.gen.Next(ctx, prefix)
}

func (s *Scope) CreateRecord(_ context.Context, rec *module.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.numbers[rec.Number] {
		return sentinel.ErrDuplicateNumber
	}
	s.numbers[rec.Number] = true
	s.records[rec.ID] = rec
	return nil
}

func (s *Scope) UpdateRecord(_ context.Context, rec *module.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.ID]; !ok {
		return dErrors.New(dErrors.CodeNotFound, "record not found")
	}
	s.records[rec.ID] = rec
	return nil
}

// Records returns a snapshot of stored records.
func (s *Scope) Records() []*module.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*module.Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	return out
}
