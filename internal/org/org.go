package org

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound = errors.New("org: unit not found")
	ErrCycle    = errors.New("org: unit hierarchy contains a cycle")
)

// UnitKind classifies a node of the organizational tree.
type UnitKind string

const (
	KindCompany    UnitKind = "COMPANY"
	KindDepartment UnitKind = "DEPARTMENT"
	KindDivision   UnitKind = "DIVISION"
	KindUnit       UnitKind = "UNIT"
)

// Unit is a node of the parent-pointer forest. A root has an empty ParentID.
type Unit struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ParentID  string    `json:"parent_id,omitempty"`
	Kind      UnitKind  `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

// UnitStore loads the full forest. The table is small and read-mostly, so the
// resolver works over a complete snapshot instead of issuing recursive queries.
type UnitStore interface {
	ListUnits(ctx context.Context) ([]Unit, error)
}

// Resolver answers descendant queries used for department-scoped visibility.
type Resolver struct {
	store UnitStore
}

func NewResolver(store UnitStore) *Resolver {
	return &Resolver{store: store}
}

// Descendants returns unitID plus the ids of every unit below it. Traversal is
// bounded by the number of units; a child reached twice means the stored
// hierarchy is malformed and the call fails with ErrCycle.
func (r *Resolver) Descendants(ctx context.Context, unitID string) ([]string, error) {
	units, err := r.store.ListUnits(ctx)
	if err != nil {
		return nil, err
	}
	children := make(map[string][]string, len(units))
	known := make(map[string]bool, len(units))
	for _, u := range units {
		known[u.ID] = true
		if u.ParentID != "" {
			children[u.ParentID] = append(children[u.ParentID], u.ID)
		}
	}
	if !known[unitID] {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, unitID)
	}

	seen := map[string]bool{unitID: true}
	out := []string{unitID}
	queue := []string{unitID}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, child := range children[cur] {
			if seen[child] {
				return nil, fmt.Errorf("%w: at %s", ErrCycle, child)
			}
			seen[child] = true
			out = append(out, child)
			queue = append(queue, child)
		}
	}
	return out, nil
}
