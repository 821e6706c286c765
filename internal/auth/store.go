package auth

import (
	"context"
	"sync"
)

// InMemoryDirectory implements Directory for tests and local development.
type InMemoryDirectory struct {
	mu    sync.RWMutex
	byID  map[string]User
	byNme map[string]string // username -> id
}

func NewInMemoryDirectory() *InMemoryDirectory {
	return &InMemoryDirectory{
		byID:  make(map[string]User),
		byNme: make(map[string]string),
	}
}

// SeedUser registers or replaces a user record.
func (d *InMemoryDirectory) SeedUser(u User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.byID[u.ID] = u
	d.byNme[u.Username] = u.ID
}

func (d *InMemoryDirectory) UserByID(ctx context.Context, id string) (User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.byID[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (d *InMemoryDirectory) UserByUsername(ctx context.Context, username string) (User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.byNme[username]
	if !ok {
		return User{}, ErrNotFound
	}
	return d.byID[id], nil
}

func (d *InMemoryDirectory) ActiveRoleHolders(ctx context.Context, roleCode string) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []string
	for _, u := range d.byID {
		if u.Active && u.RoleCode == roleCode {
			out = append(out, u.ID)
		}
	}
	return out, nil
}
