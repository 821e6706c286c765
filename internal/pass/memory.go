package pass

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemory implements Store and NotificationStore with in-process concurrency
// safety. It backs tests and local development; production uses the pg store.
type InMemory struct {
	mu          sync.RWMutex
	requests    map[string]*Request
	personIndex map[string]string // person id -> request id
	checkpoints map[int64]Checkpoint
	blacklist   []BlacklistEntry
	notes       []*Notification
}

// NewInMemory creates an empty store.
func NewInMemory() *InMemory {
	return &InMemory{
		requests:    make(map[string]*Request),
		personIndex: make(map[string]string),
		checkpoints: make(map[int64]Checkpoint),
	}
}

// SeedCheckpoint registers reference data.
func (s *InMemory) SeedCheckpoint(cp Checkpoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkpoints[cp.ID] = cp
}

// SeedBlacklist registers a screening entry.
func (s *InMemory) SeedBlacklist(e BlacklistEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blacklist = append(s.blacklist, e)
}

func (s *InMemory) CreateRequest(ctx context.Context, req *Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := cloneRequest(req)
	s.requests[req.ID] = cp
	for _, person := range cp.Persons {
		s.personIndex[person.ID] = req.ID
	}
	return nil
}

func (s *InMemory) GetRequest(ctx context.Context, id string) (*Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneRequest(req), nil
}

func (s *InMemory) ListRequests(ctx context.Context, f Filter) ([]*Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Request
	for _, req := range s.requests {
		if matchFilter(req, f) {
			out = append(out, cloneRequest(req))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// UpdateRequest holds the store lock for the whole mutate-plus-write
// sequence, serializing concurrent finalizations of the same request.
func (s *InMemory) UpdateRequest(ctx context.Context, id string, mutate func(*Request) error) (*Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	work := cloneRequest(req)
	if err := mutate(work); err != nil {
		return nil, err
	}
	s.requests[id] = work
	return cloneRequest(work), nil
}

func (s *InMemory) DeleteRequest(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok {
		return ErrNotFound
	}
	for _, person := range req.Persons {
		delete(s.personIndex, person.ID)
	}
	delete(s.requests, id)
	return nil
}

func (s *InMemory) PersonRequest(ctx context.Context, personID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.personIndex[personID]
	if !ok {
		return "", ErrNotFound
	}
	return id, nil
}

func (s *InMemory) Checkpoints(ctx context.Context, ids []int64) ([]Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Checkpoint
	for _, id := range ids {
		if cp, ok := s.checkpoints[id]; ok {
			out = append(out, cp)
		}
	}
	return out, nil
}

func (s *InMemory) CountShortTermSince(ctx context.Context, iin string, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, req := range s.requests {
		if req.Duration != DurationShortTerm || req.CreatedAt.Before(since) {
			continue
		}
		for _, person := range req.Persons {
			if person.IIN == iin {
				n++
				break
			}
		}
	}
	return n, nil
}

func (s *InMemory) ActiveBlacklist(ctx context.Context) ([]BlacklistEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []BlacklistEntry
	for _, e := range s.blacklist {
		if e.Active {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *InMemory) Stats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Stats{TotalRequests: len(s.requests)}
	for _, req := range s.requests {
		if req.Status == StatusPendingUSB || req.Status == StatusPendingAS {
			st.PendingRequests++
		}
	}
	for _, e := range s.blacklist {
		if e.Active {
			st.ActiveBlacklist++
		}
	}
	return st, nil
}

func (s *InMemory) AddNotification(ctx context.Context, n *Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *n
	s.notes = append(s.notes, &cp)
	return nil
}

func (s *InMemory) Notifications(ctx context.Context, recipientID string) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Notification
	for _, n := range s.notes {
		if n.RecipientID == recipientID {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemory) MarkNotificationRead(ctx context.Context, id, recipientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.notes {
		if n.ID == id && n.RecipientID == recipientID {
			n.Read = true
			return nil
		}
	}
	return ErrNotFound
}

func matchFilter(req *Request, f Filter) bool {
	if f.CreatorID != "" && req.CreatorID != f.CreatorID {
		return false
	}
	if f.Duration != "" && req.Duration != f.Duration {
		return false
	}
	if f.CheckpointID != 0 && !req.TargetsCheckpoint(f.CheckpointID) {
		return false
	}
	if len(f.Statuses) > 0 {
		ok := false
		for _, st := range f.Statuses {
			if req.Status == st {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if len(f.CreatorUnitIDs) > 0 {
		ok := false
		for _, unit := range f.CreatorUnitIDs {
			if req.CreatorUnitID == unit {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

func cloneRequest(req *Request) *Request {
	cp := *req
	cp.CheckpointIDs = append([]int64(nil), req.CheckpointIDs...)
	cp.Persons = append([]Person(nil), req.Persons...)
	return &cp
}
