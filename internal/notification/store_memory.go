package notification

import (
	"context"
	"sort"
	"sync"

	"sipro/pkg/domain"
	"sipro/pkg/platform/sentinel"
)

// InMemoryStore is a mutex-guarded notification store for tests and
// development.
type InMemoryStore struct {
	mu      sync.RWMutex
	byID    map[domain.NotificationID]*Notification
	seq     map[domain.NotificationID]int64
	nextSeq int64
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID: make(map[domain.NotificationID]*Notification),
		seq:  make(map[domain.NotificationID]int64),
	}
}

func (s *InMemoryStore) Create(_ context.Context, n *Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[n.ID]; ok {
		return sentinel.ErrConflict
	}
	s.nextSeq++
	s.seq[n.ID] = s.nextSeq
	s.byID[n.ID] = clone(n)
	return nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID domain.UserID) ([]*Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Notification
	for _, n := range s.byID {
		if n.UserID == userID {
			out = append(out, clone(n))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return s.seq[out[i].ID] > s.seq[out[j].ID]
	})
	if len(out) > listLimit {
		out = out[:listLimit]
	}
	return out, nil
}

func (s *InMemoryStore) CountUnread(_ context.Context, userID domain.UserID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, n := range s.byID {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (s *InMemoryStore) MarkRead(_ context.Context, id domain.NotificationID, userID domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.byID[id]
	if !ok || n.UserID != userID {
		return sentinel.ErrNotFound
	}
	n.Read = true
	return nil
}

func (s *InMemoryStore) MarkAllRead(_ context.Context, userID domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range s.byID {
		if n.UserID == userID {
			n.Read = true
		}
	}
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, id domain.NotificationID, userID domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.byID[id]
	if !ok || n.UserID != userID {
		return sentinel.ErrNotFound
	}
	delete(s.byID, id)
	delete(s.seq, id)
	return nil
}

func (s *InMemoryStore) DeleteByProtocol(_ context.Context, protocolID domain.ProtocolID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, n := range s.byID {
		if n.ProtocolID != nil && *n.ProtocolID == protocolID {
			delete(s.byID, id)
			delete(s.seq, id)
		}
	}
	return nil
}

func clone(n *Notification) *Notification {
	out := *n
	if n.ProtocolID != nil {
		pid := *n.ProtocolID
		out.ProtocolID = &pid
	}
	return &out
}
