package directory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"sipro/pkg/domain"
	"sipro/pkg/platform/sentinel"
)

// InMemorySectorStore is the test/dev sector store.
type InMemorySectorStore struct {
	mu      sync.RWMutex
	sectors map[domain.SectorID]*Sector
}

func NewInMemorySectorStore() *InMemorySectorStore {
	return &InMemorySectorStore{sectors: make(map[domain.SectorID]*Sector)}
}

func (s *InMemorySectorStore) Create(_ context.Context, sector *Sector) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.sectors {
		if strings.EqualFold(existing.Code, sector.Code) {
			return sentinel.ErrAlreadyUsed
		}
	}
	cp := *sector
	s.sectors[sector.ID] = &cp
	return nil
}

func (s *InMemorySectorStore) FindByID(_ context.Context, id domain.SectorID) (*Sector, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sector, ok := s.sectors[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *sector
	return &cp, nil
}

func (s *InMemorySectorStore) FindByCode(_ context.Context, code string) (*Sector, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sector := range s.sectors {
		if strings.EqualFold(sector.Code, code) {
			cp := *sector
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemorySectorStore) List(_ context.Context) ([]*Sector, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Sector, 0, len(s.sectors))
	for _, sector := range s.sectors {
		cp := *sector
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// InMemoryUserStore is the test/dev user store.
type InMemoryUserStore struct {
	mu    sync.RWMutex
	users map[domain.UserID]*User
}

func NewInMemoryUserStore() *InMemoryUserStore {
	return &InMemoryUserStore{users: make(map[domain.UserID]*User)}
}

func (s *InMemoryUserStore) Create(_ context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return sentinel.ErrAlreadyUsed
		}
	}
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *InMemoryUserStore) Update(_ context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *InMemoryUserStore) FindByID(_ context.Context, id domain.UserID) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *user
	return &cp, nil
}

func (s *InMemoryUserStore) FindByEmail(_ context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if strings.EqualFold(user.Email, email) {
			cp := *user
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryUserStore) ListActiveBySector(_ context.Context, sectorID domain.SectorID) ([]*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*User
	for _, user := range s.users {
		if user.SectorID == sectorID && user.Active {
			cp := *user
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

// InMemoryDocumentTypeStore is the test/dev document type store.
type InMemoryDocumentTypeStore struct {
	mu    sync.RWMutex
	types map[domain.DocumentTypeID]*DocumentType
}

func NewInMemoryDocumentTypeStore() *InMemoryDocumentTypeStore {
	return &InMemoryDocumentTypeStore{types: make(map[domain.DocumentTypeID]*DocumentType)}
}

func (s *InMemoryDocumentTypeStore) Create(_ context.Context, dt *DocumentType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.types {
		if strings.EqualFold(existing.Name, dt.Name) {
			return sentinel.ErrAlreadyUsed
		}
	}
	cp := *dt
	s.types[dt.ID] = &cp
	return nil
}

func (s *InMemoryDocumentTypeStore) FindByID(_ context.Context, id domain.DocumentTypeID) (*DocumentType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	dt, ok := s.types[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *dt
	return &cp, nil
}

func (s *InMemoryDocumentTypeStore) List(_ context.Context) ([]*DocumentType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*DocumentType, 0, len(s.types))
	for _, dt := range s.types {
		cp := *dt
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
