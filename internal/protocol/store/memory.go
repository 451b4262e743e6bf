package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"sipro/internal/protocol/models"
	"sipro/internal/protocol/sequence"
	"sipro/pkg/domain"
	"sipro/pkg/platform/sentinel"
)

// InMemoryStore implements ProtocolStore and RoutingLedger for tests and
// development. One mutex covers both so the memory Tx can serialize whole
// operations the way a database transaction would.
type InMemoryStore struct {
	mu        sync.RWMutex
	protocols map[domain.ProtocolID]*models.Protocol
	entries   []*models.RoutingEntry
	nextSeq   int64
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{protocols: make(map[domain.ProtocolID]*models.Protocol)}
}

func (s *InMemoryStore) Create(_ context.Context, p *models.Protocol) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.protocols {
		if existing.Number == p.Number {
			return sentinel.ErrConflict
		}
	}
	cp := clone(p)
	s.protocols[p.ID] = cp
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id domain.ProtocolID) (*models.Protocol, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.protocols[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(p), nil
}

func (s *InMemoryStore) Update(_ context.Context, p *models.Protocol) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.protocols[p.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.protocols[p.ID] = clone(p)
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, id domain.ProtocolID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.protocols[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.protocols, id)
	return nil
}

func (s *InMemoryStore) List(_ context.Context, filter Filter) ([]*models.Protocol, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Protocol
	for _, p := range s.protocols {
		if matches(p, filter) {
			out = append(out, clone(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Number > out[j].Number
	})
	return out, nil
}

func matches(p *models.Protocol, f Filter) bool {
	if f.Visibility != nil {
		v := f.Visibility
		if p.CreatorID != v.UserID && p.DestinationSectorID != v.SectorID && p.OriginSectorID != v.SectorID {
			return false
		}
	}
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	if !f.DestinationSectorID.IsNil() && p.DestinationSectorID != f.DestinationSectorID {
		return false
	}
	if !f.DocumentTypeID.IsNil() && p.DocumentTypeID != f.DocumentTypeID {
		return false
	}
	if !f.CreatedFrom.IsZero() && p.CreatedAt.Before(f.CreatedFrom) {
		return false
	}
	if !f.CreatedTo.IsZero() && p.CreatedAt.After(f.CreatedTo) {
		return false
	}
	if f.Term != "" {
		term := strings.ToLower(f.Term)
		if !strings.Contains(strings.ToLower(p.Number), term) &&
			!strings.Contains(strings.ToLower(p.Subject), term) &&
			!strings.Contains(strings.ToLower(p.Description), term) {
			return false
		}
	}
	return true
}

func (s *InMemoryStore) MaxSequenceForYear(_ context.Context, year int) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	max := 0
	for _, p := range s.protocols {
		seq, numberYear, err := sequence.Parse(p.Number)
		if err != nil {
			continue
		}
		if numberYear == year && seq > max {
			max = seq
		}
	}
	return max, nil
}

func (s *InMemoryStore) Append(_ context.Context, entry *models.RoutingEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSeq++
	cp := *entry
	cp.Seq = s.nextSeq
	entry.Seq = s.nextSeq
	s.entries = append(s.entries, &cp)
	return nil
}

func (s *InMemoryStore) ListByProtocol(_ context.Context, protocolID domain.ProtocolID) ([]*models.RoutingEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.RoutingEntry
	for _, entry := range s.entries {
		if entry.ProtocolID == protocolID {
			cp := *entry
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Seq > out[j].Seq
	})
	return out, nil
}

func (s *InMemoryStore) DeleteByProtocol(_ context.Context, protocolID domain.ProtocolID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.entries[:0]
	for _, entry := range s.entries {
		if entry.ProtocolID != protocolID {
			kept = append(kept, entry)
		}
	}
	s.entries = kept
	return nil
}

func clone(p *models.Protocol) *models.Protocol {
	cp := *p
	if p.ReceivedAt != nil {
		t := *p.ReceivedAt
		cp.ReceivedAt = &t
	}
	if p.ReceivedBy != nil {
		by := *p.ReceivedBy
		cp.ReceivedBy = &by
	}
	return &cp
}
