package org

import (
	"context"
	"errors"
	"sort"
	"testing"
)

type staticStore []Unit

func (s staticStore) ListUnits(ctx context.Context) ([]Unit, error) { return s, nil }

func TestDescendants(t *testing.T) {
	store := staticStore{
		{ID: "company", Kind: KindCompany},
		{ID: "dep1", ParentID: "company", Kind: KindDepartment},
		{ID: "dep2", ParentID: "company", Kind: KindDepartment},
		{ID: "div1", ParentID: "dep1", Kind: KindDivision},
		{ID: "unit1", ParentID: "div1", Kind: KindUnit},
	}
	r := NewResolver(store)

	got, err := r.Descendants(context.Background(), "dep1")
	if err != nil {
		t.Fatal(err)
	}
	sort.Strings(got)
	want := []string{"dep1", "div1", "unit1"}
	if len(got) != len(want) {
		t.Fatalf("descendants = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("descendants = %v, want %v", got, want)
		}
	}

	leaf, err := r.Descendants(context.Background(), "unit1")
	if err != nil {
		t.Fatal(err)
	}
	if len(leaf) != 1 || leaf[0] != "unit1" {
		t.Fatalf("leaf descendants = %v", leaf)
	}
}

func TestDescendantsUnknownUnit(t *testing.T) {
	r := NewResolver(staticStore{{ID: "company", Kind: KindCompany}})
	if _, err := r.Descendants(context.Background(), "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDescendantsCycle(t *testing.T) {
	store := staticStore{
		{ID: "a", ParentID: "b"},
		{ID: "b", ParentID: "a"},
	}
	r := NewResolver(store)
	if _, err := r.Descendants(context.Background(), "a"); !errors.Is(err, ErrCycle) {
		t.Fatalf("expected ErrCycle, got %v", err)
	}
}
