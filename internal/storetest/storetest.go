// Package storetest provides an in-memory store used by service and
// handler tests in place of Postgres. It enforces the same uniqueness
// rules and error sentinels as the real repository.
package storetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"urlshort/internal/model"
	"urlshort/internal/repository"
)

type MemStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]model.User
	links map[uuid.UUID]model.Link

	base time.Time
	seq  int
}

func NewMemStore() *MemStore {
	return &MemStore{
		users: make(map[uuid.UUID]model.User),
		links: make(map[uuid.UUID]model.Link),
		base:  time.Now().UTC(),
	}
}

// nextTime hands out strictly increasing timestamps so creation-order
// assertions are deterministic.
func (m *MemStore) nextTime() time.Time {
	m.seq++
	return m.base.Add(time.Duration(m.seq) * time.Millisecond)
}

func (m *MemStore) CreateLink(_ context.Context, code, original string, ownerID *uuid.UUID) (*model.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.links {
		if l.ShortCode == code {
			return nil, repository.ErrDuplicate
		}
	}
	l := model.Link{
		ID:          uuid.New(),
		ShortCode:   code,
		OriginalURL: original,
		OwnerID:     ownerID,
		CreatedAt:   m.nextTime(),
	}
	m.links[l.ID] = l
	return &l, nil
}

func (m *MemStore) GetLinkByCode(_ context.Context, code string) (*model.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.links {
		if l.ShortCode == code {
			out := l
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MemStore) ListLinksByOwner(_ context.Context, ownerID uuid.UUID) ([]model.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := make([]model.Link, 0)
	for _, l := range m.links {
		if l.OwnerID != nil && *l.OwnerID == ownerID {
			res = append(res, l)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	return res, nil
}

func (m *MemStore) DeleteLink(_ context.Context, linkID, ownerID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.links[linkID]
	if !ok || l.OwnerID == nil || *l.OwnerID != ownerID {
		return repository.ErrNotFound
	}
	delete(m.links, linkID)
	return nil
}

func (m *MemStore) DeleteLinksByOwner(_ context.Context, ownerID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, l := range m.links {
		if l.OwnerID != nil && *l.OwnerID == ownerID {
			delete(m.links, id)
			n++
		}
	}
	return n, nil
}

func (m *MemStore) IncrementClick(_ context.Context, code string) (*model.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, l := range m.links {
		if l.ShortCode == code {
			l.ClickCount++
			m.links[id] = l
			out := l
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MemStore) CreateUser(_ context.Context, username, email, passwordHash, apiKey string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.APIKey == apiKey {
			return nil, repository.ErrDuplicate
		}
		if u.Username == username || u.Email == email {
			return nil, repository.ErrConflict
		}
	}
	u := model.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		APIKey:       apiKey,
		CreatedAt:    m.nextTime(),
	}
	m.users[u.ID] = u
	return &u, nil
}

func (m *MemStore) GetUserByAPIKey(_ context.Context, apiKey string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.APIKey == apiKey {
			out := u
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MemStore) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			out := u
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MemStore) UsernameTaken(_ context.Context, username string, excludeID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username && u.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemStore) EmailTaken(_ context.Context, email string, excludeID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email && u.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemStore) UpdateUser(_ context.Context, id uuid.UUID, username, email, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	for _, other := range m.users {
		if other.ID == id {
			continue
		}
		if other.Username == username || other.Email == email {
			return repository.ErrConflict
		}
	}
	u.Username = username
	u.Email = email
	u.PasswordHash = passwordHash
	m.users[id] = u
	return nil
}
