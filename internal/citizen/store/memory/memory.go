// Package memory keeps citizen links and household edges in process memory.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"civitas/internal/citizen/models"
	id "civitas/pkg/domain"
	"civitas/pkg/platform/sentinel"
)

type linkKey struct {
	protocol id.ProtocolID
	citizen  id.CitizenID
	linkType models.LinkType
}

type edgeKey struct {
	head, member id.CitizenID
}

type tables struct {
	links    map[id.LinkID]*models.CitizenLink
	linkKeys map[linkKey]id.LinkID
	edges    map[edgeKey]*models.FamilyMember
}

// DB backs both stores and takes part in tx.Memory units of work.
type DB struct {
	mu sync.RWMutex
	t  tables
}

func NewDB() *DB {
	return &DB{t: tables{
		links:    make(map[id.LinkID]*models.CitizenLink),
		linkKeys: make(map[linkKey]id.LinkID),
		edges:    make(map[edgeKey]*models.FamilyMember),
	}}
}

// Snapshot implements tx.Snapshotter.
func (db *DB) Snapshot() func() {
	db.mu.RLock()
	saved := tables{
		links:    maps.Clone(db.t.links),
		linkKeys: maps.Clone(db.t.linkKeys),
		edges:    maps.Clone(db.t.edges),
	}
	db.mu.RUnlock()
	return func() {
		db.mu.Lock()
		db.t = saved
		db.mu.Unlock()
	}
}

func (db *DB) Links() *LinkStore { return &LinkStore{db: db} }

func (db *DB) Family() *FamilyStore { return &FamilyStore{db: db} }

func copyLink(l *models.CitizenLink) *models.CitizenLink {
	cp := *l
	cp.ContextData = maps.Clone(l.ContextData)
	return &cp
}

func keyOf(l *models.CitizenLink) linkKey {
	return linkKey{protocol: l.ProtocolID, citizen: l.CitizenID, linkType: l.LinkType}
}

type LinkStore struct{ db *DB }

func (s *LinkStore) Create(_ context.Context, l *models.CitizenLink) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, taken := s.db.t.linkKeys[keyOf(l)]; taken {
		return fmt.Errorf("link %s: %w", l.LinkType, sentinel.ErrConflict)
	}
	s.db.t.links[l.ID] = copyLink(l)
	s.db.t.linkKeys[keyOf(l)] = l.ID
	return nil
}

func (s *LinkStore) Update(_ context.Context, l *models.CitizenLink) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.t.links[l.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.db.t.links[l.ID] = copyLink(l)
	return nil
}

func (s *LinkStore) Delete(_ context.Context, linkID id.LinkID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	l, ok := s.db.t.links[linkID]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.db.t.linkKeys, keyOf(l))
	delete(s.db.t.links, linkID)
	return nil
}

func (s *LinkStore) FindByID(_ context.Context, linkID id.LinkID) (*models.CitizenLink, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	l, ok := s.db.t.links[linkID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyLink(l), nil
}

func (s *LinkStore) ListByProtocol(_ context.Context, protocolID id.ProtocolID) ([]*models.CitizenLink, error) {
	return s.list(func(l *models.CitizenLink) bool { return l.ProtocolID == protocolID }), nil
}

func (s *LinkStore) ListByCitizen(_ context.Context, citizenID id.CitizenID, types []models.LinkType) ([]*models.CitizenLink, error) {
	return s.list(func(l *models.CitizenLink) bool {
		return l.CitizenID == citizenID && (len(types) == 0 || slices.Contains(types, l.LinkType))
	}), nil
}

// list returns matching links oldest first.
func (s *LinkStore) list(match func(*models.CitizenLink) bool) []*models.CitizenLink {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	out := make([]*models.CitizenLink, 0)
	for _, l := range s.db.t.links {
		if match(l) {
			out = append(out, copyLink(l))
		}
	}
	slices.SortFunc(out, func(a, b *models.CitizenLink) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(string(a.LinkType), string(b.LinkType))
	})
	return out
}

type FamilyStore struct{ db *DB }

func (s *FamilyStore) Add(_ context.Context, m *models.FamilyMember) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	key := edgeKey{head: m.HeadID, member: m.MemberID}
	if _, taken := s.db.t.edges[key]; taken {
		return fmt.Errorf("household member: %w", sentinel.ErrConflict)
	}
	cp := *m
	s.db.t.edges[key] = &cp
	return nil
}

func (s *FamilyStore) Remove(_ context.Context, headID, memberID id.CitizenID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	key := edgeKey{head: headID, member: memberID}
	if _, ok := s.db.t.edges[key]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.db.t.edges, key)
	return nil
}

func (s *FamilyStore) Find(_ context.Context, headID, memberID id.CitizenID) (*models.FamilyMember, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	m, ok := s.db.t.edges[edgeKey{head: headID, member: memberID}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

// ListByHead returns the household oldest edge first.
func (s *FamilyStore) ListByHead(_ context.Context, headID id.CitizenID) ([]*models.FamilyMember, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	out := make([]*models.FamilyMember, 0)
	for k, m := range s.db.t.edges {
		if k.head == headID {
			cp := *m
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *models.FamilyMember) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.MemberID.String(), b.MemberID.String())
	})
	return out, nil
}
