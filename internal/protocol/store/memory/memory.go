// Package memory keeps protocols, their children and specialized records in
// process memory. Stored values are copies; callers never share pointers
// with the store, which lets Snapshot restore state by swapping maps.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"civitas/internal/module"
	"civitas/internal/protocol/models"
	"civitas/internal/protocol/ports"
	"civitas/internal/sequence"
	id "civitas/pkg/domain"
	"civitas/pkg/platform/sentinel"
)

type tables struct {
	protocols    map[id.ProtocolID]*models.Protocol
	numbers      map[string]id.ProtocolID
	documents    map[id.DocumentID]*models.Document
	pendencies   map[id.PendencyID]*models.Pendency
	interactions map[id.ProtocolID][]*models.Interaction
	records      map[id.RecordID]*module.Record
	recordNums   map[string]id.RecordID
	feedback     map[string]id.RecordID
}

func (t tables) clone() tables {
	interactions := make(map[id.ProtocolID][]*models.Interaction, len(t.interactions))
	for k, v := range t.interactions {
		interactions[k] = slices.Clone(v)
	}
	return tables{
		protocols:    maps.Clone(t.protocols),
		numbers:      maps.Clone(t.numbers),
		documents:    maps.Clone(t.documents),
		pendencies:   maps.Clone(t.pendencies),
		interactions: interactions,
		records:      maps.Clone(t.records),
		recordNums:   maps.Clone(t.recordNums),
		feedback:     maps.Clone(t.feedback),
	}
}

// DB is the shared in-memory database behind every repository of this
// package.
type DB struct {
	mu sync.RWMutex
	t  tables
}

func NewDB() *DB {
	return &DB{t: tables{
		protocols:    make(map[id.ProtocolID]*models.Protocol),
		numbers:      make(map[string]id.ProtocolID),
		documents:    make(map[id.DocumentID]*models.Document),
		pendencies:   make(map[id.PendencyID]*models.Pendency),
		interactions: make(map[id.ProtocolID][]*models.Interaction),
		records:      make(map[id.RecordID]*module.Record),
		recordNums:   make(map[string]id.RecordID),
		feedback:     make(map[string]id.RecordID),
	}}
}

// Snapshot implements tx.Snapshotter.
func (db *DB) Snapshot() func() {
	db.mu.RLock()
	saved := db.t.clone()
	db.mu.RUnlock()
	return func() {
		db.mu.Lock()
		db.t = saved
		db.mu.Unlock()
	}
}

// Repositories returns every store backed by db.
func (db *DB) Repositories() ports.Repositories {
	return ports.Repositories{
		Protocols:    &ProtocolStore{db: db},
		Documents:    &DocumentStore{db: db},
		Pendencies:   &PendencyStore{db: db},
		Interactions: &InteractionStore{db: db},
		Records:      &RecordStore{db: db},
		Numbers:      &NumberIndex{db: db},
	}
}

func copyProtocol(p *models.Protocol) *models.Protocol {
	cp := *p
	cp.Documents, cp.Pendencies, cp.Interactions = nil, nil, nil
	return &cp
}

type ProtocolStore struct{ db *DB }

func (s *ProtocolStore) Create(_ context.Context, p *models.Protocol) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, taken := s.db.t.numbers[p.TrackingNumber]; taken {
		return fmt.Errorf("tracking number %s: %w", p.TrackingNumber, sentinel.ErrDuplicateNumber)
	}
	if _, exists := s.db.t.protocols[p.ID]; exists {
		return fmt.Errorf("protocol %s: %w", p.ID, sentinel.ErrConflict)
	}
	s.db.t.protocols[p.ID] = copyProtocol(p)
	s.db.t.numbers[p.TrackingNumber] = p.ID
	return nil
}

func (s *ProtocolStore) Update(_ context.Context, p *models.Protocol) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.t.protocols[p.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.db.t.protocols[p.ID] = copyProtocol(p)
	return nil
}

func (s *ProtocolStore) FindByID(_ context.Context, protocolID id.ProtocolID) (*models.Protocol, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	p, ok := s.db.t.protocols[protocolID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyProtocol(p), nil
}

// FindByIDForUpdate is FindByID; the unit of work already serializes
// transactions.
func (s *ProtocolStore) FindByIDForUpdate(ctx context.Context, protocolID id.ProtocolID) (*models.Protocol, error) {
	return s.FindByID(ctx, protocolID)
}

func (s *ProtocolStore) FindByTrackingNumber(ctx context.Context, number string) (*models.Protocol, error) {
	s.db.mu.RLock()
	pid, ok := s.db.t.numbers[number]
	s.db.mu.RUnlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.FindByID(ctx, pid)
}

type DocumentStore struct{ db *DB }

func (s *DocumentStore) Create(_ context.Context, d *models.Document) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.t.protocols[d.ProtocolID]; !ok {
		return fmt.Errorf("protocol %s: %w", d.ProtocolID, sentinel.ErrNotFound)
	}
	cp := *d
	s.db.t.documents[d.ID] = &cp
	return nil
}

func (s *DocumentStore) Update(_ context.Context, d *models.Document) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.t.documents[d.ID]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *d
	s.db.t.documents[d.ID] = &cp
	return nil
}

func (s *DocumentStore) FindByID(_ context.Context, protocolID id.ProtocolID, docID id.DocumentID) (*models.Document, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	d, ok := s.db.t.documents[docID]
	if !ok || d.ProtocolID != protocolID {
		return nil, sentinel.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (s *DocumentStore) ListByProtocol(_ context.Context, protocolID id.ProtocolID) ([]*models.Document, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	var out []*models.Document
	for _, d := range s.db.t.documents {
		if d.ProtocolID == protocolID {
			cp := *d
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *models.Document) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Type, b.Type)
	})
	return out, nil
}

type PendencyStore struct{ db *DB }

func (s *PendencyStore) Create(_ context.Context, p *models.Pendency) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.t.protocols[p.ProtocolID]; !ok {
		return fmt.Errorf("protocol %s: %w", p.ProtocolID, sentinel.ErrNotFound)
	}
	cp := *p
	s.db.t.pendencies[p.ID] = &cp
	return nil
}

func (s *PendencyStore) Update(_ context.Context, p *models.Pendency) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.t.pendencies[p.ID]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *p
	s.db.t.pendencies[p.ID] = &cp
	return nil
}

func (s *PendencyStore) FindByID(_ context.Context, protocolID id.ProtocolID, pendencyID id.PendencyID) (*models.Pendency, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	p, ok := s.db.t.pendencies[pendencyID]
	if !ok || p.ProtocolID != protocolID {
		return nil, sentinel.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *PendencyStore) ListByProtocol(_ context.Context, protocolID id.ProtocolID) ([]*models.Pendency, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	var out []*models.Pendency
	for _, p := range s.db.t.pendencies {
		if p.ProtocolID == protocolID {
			cp := *p
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *models.Pendency) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Description, b.Description)
	})
	return out, nil
}

type InteractionStore struct{ db *DB }

func (s *InteractionStore) Append(_ context.Context, in *models.Interaction) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.t.protocols[in.ProtocolID]; !ok {
		return fmt.Errorf("protocol %s: %w", in.ProtocolID, sentinel.ErrNotFound)
	}
	cp := *in
	s.db.t.interactions[in.ProtocolID] = append(s.db.t.interactions[in.ProtocolID], &cp)
	return nil
}

// ListByProtocol returns the trail in append order.
func (s *InteractionStore) ListByProtocol(_ context.Context, protocolID id.ProtocolID) ([]*models.Interaction, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	trail := s.db.t.interactions[protocolID]
	out := make([]*models.Interaction, 0, len(trail))
	for _, in := range trail {
		cp := *in
		out = append(out, &cp)
	}
	return out, nil
}

type RecordStore struct{ db *DB }

func (s *RecordStore) Create(_ context.Context, rec *module.Record) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, taken := s.db.t.recordNums[rec.Number]; taken {
		return fmt.Errorf("record number %s: %w", rec.Number, sentinel.ErrDuplicateNumber)
	}
	if rec.FeedbackHash != "" {
		if _, taken := s.db.t.feedback[rec.FeedbackHash]; taken {
			return fmt.Errorf("feedback code: %w", sentinel.ErrDuplicateCode)
		}
		s.db.t.feedback[rec.FeedbackHash] = rec.ID
	}
	s.db.t.records[rec.ID] = copyRecord(rec)
	s.db.t.recordNums[rec.Number] = rec.ID
	return nil
}

func (s *RecordStore) Update(_ context.Context, rec *module.Record) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.t.records[rec.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.db.t.records[rec.ID] = copyRecord(rec)
	return nil
}

func (s *RecordStore) FindByID(_ context.Context, recordID id.RecordID) (*module.Record, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	rec, ok := s.db.t.records[recordID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyRecord(rec), nil
}

// copyRecord detaches the attribute maps so a caller's edits never reach
// the table, or a snapshot of it, without an Update.
func copyRecord(rec *module.Record) *module.Record {
	cp := *rec
	cp.Attributes = maps.Clone(rec.Attributes)
	cp.Extensions = maps.Clone(rec.Extensions)
	return &cp
}

func (s *RecordStore) FindByFeedbackHash(ctx context.Context, hash string) (*module.Record, error) {
	s.db.mu.RLock()
	rid, ok := s.db.t.feedback[hash]
	s.db.mu.RUnlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.FindByID(ctx, rid)
}

type NumberIndex struct{ db *DB }

func (s *NumberIndex) LastIssued(_ context.Context, prefix string, year int) (int64, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	var last int64
	scan := func(number string) {
		n, err := sequence.Parse(number)
		if err == nil && n.Prefix == prefix && n.Year == year && n.Seq > last {
			last = n.Seq
		}
	}
	for number := range s.db.t.numbers {
		scan(number)
	}
	for number := range s.db.t.recordNums {
		scan(number)
	}
	return last, nil
}

// Records lists every stored record ordered by number, for tests and
// diagnostics.
func (db *DB) Records() []*module.Record {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]*module.Record, 0, len(db.t.records))
	for _, rec := range db.t.records {
		cp := *rec
		out = append(out, &cp)
	}
	slices.SortFunc(out, func(a, b *module.Record) int { return strings.Compare(a.Number, b.Number) })
	return out
}
