package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"petromanage/internal/model"
)

// MemoryUserRepository keeps users in process memory. Update serializes on a
// per-email lock so slow work inside fn never blocks other users.
type MemoryUserRepository struct {
	mu       sync.RWMutex
	byEmail  map[string]model.User
	rowLocks map[string]*sync.Mutex
	nextID   int64
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byEmail:  map[string]model.User{},
		rowLocks: map[string]*sync.Mutex{},
	}
}

func (r *MemoryUserRepository) FindByEmail(_ context.Context, email string) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, exists := r.byEmail[email]
	if !exists {
		return model.User{}, model.ErrUserNotFound
	}
	return copyUser(u), nil
}

func (r *MemoryUserRepository) Create(_ context.Context, u model.User) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[u.Email]; exists {
		return model.User{}, model.ErrEmailAlreadyInUse
	}

	r.nextID++
	now := time.Now().UTC()
	u.ID = r.nextID
	u.CreatedAt = now
	u.UpdatedAt = now
	r.byEmail[u.Email] = copyUser(u)

	return u, nil
}

func (r *MemoryUserRepository) Update(_ context.Context, email string, fn func(*model.User) error) error {
	lock, exists := r.rowLock(email)
	if !exists {
		return model.ErrUserNotFound
	}
	lock.Lock()
	defer lock.Unlock()

	r.mu.RLock()
	u := r.byEmail[email]
	r.mu.RUnlock()

	u = copyUser(u)
	if err := fn(&u); err != nil {
		return err
	}
	u.UpdatedAt = time.Now().UTC()

	r.mu.Lock()
	r.byEmail[email] = copyUser(u)
	r.mu.Unlock()

	return nil
}

func (r *MemoryUserRepository) ListByRole(_ context.Context, role string) ([]model.User, error) {
	role = strings.TrimSpace(role)

	r.mu.RLock()
	users := make([]model.User, 0)
	for _, u := range r.byEmail {
		if u.Role == role {
			users = append(users, copyUser(u))
		}
	}
	r.mu.RUnlock()

	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (r *MemoryUserRepository) Health(context.Context) error {
	return nil
}

// rowLock returns the lock of a stored user. Users are never removed, so a
// lock only exists for an email that is in byEmail.
func (r *MemoryUserRepository) rowLock(email string) (*sync.Mutex, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[email]; !exists {
		return nil, false
	}

	lock, exists := r.rowLocks[email]
	if !exists {
		lock = &sync.Mutex{}
		r.rowLocks[email] = lock
	}
	return lock, true
}

func copyUser(u model.User) model.User {
	if u.OtpGeneratedAt != nil {
		at := *u.OtpGeneratedAt
		u.OtpGeneratedAt = &at
	}
	return u
}
