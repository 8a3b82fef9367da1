package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/maputo/user-service/internal/domain"
)

type memoryUserRepository struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]*domain.User
}

// NewMemoryUserRepository returns a process-local store, used when no
// Postgres DSN is configured and in tests.
func NewMemoryUserRepository() UserRepository {
	return &memoryUserRepository{byID: make(map[int64]*domain.User)}
}

func (r *memoryUserRepository) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	return r.findOne(func(u *domain.User) bool { return u.Username == username })
}

func (r *memoryUserRepository) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.findOne(func(u *domain.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r *memoryUserRepository) FindAll(_ context.Context) ([]*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]*domain.User, 0, len(r.byID))
	for _, u := range r.byID {
		users = append(users, u.Clone())
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (r *memoryUserRepository) Save(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, existing := range r.byID {
		if id == user.ID {
			continue
		}
		if existing.Username == user.Username || strings.EqualFold(existing.Email, user.Email) {
			return ErrDuplicate
		}
	}

	if user.ID == 0 {
		r.nextID++
		user.ID = r.nextID
	} else if _, ok := r.byID[user.ID]; !ok {
		return ErrNotFound
	}
	r.byID[user.ID] = user.Clone()
	return nil
}

func (r *memoryUserRepository) DeleteByID(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *memoryUserRepository) findOne(match func(*domain.User) bool) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.byID {
		if match(u) {
			return u.Clone(), nil
		}
	}
	return nil, ErrNotFound
}
