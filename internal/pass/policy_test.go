package pass

import (
	"context"
	"testing"

	"ruqsat.org/internal/auth"
)

// fakeResolver serves a fixed unit subtree per root.
type fakeResolver struct {
	subtrees map[string][]string
}

func (r *fakeResolver) Descendants(_ context.Context, unitID string) ([]string, error) {
	if units, ok := r.subtrees[unitID]; ok {
		return units, nil
	}
	return []string{unitID}, nil
}

func principal(userID, roleCode, unitID string) auth.Principal {
	return auth.NewPrincipal(userID, roleCode, unitID, true)
}

func TestCanCreateRequest(t *testing.T) {
	cases := []struct {
		role string
		d    Duration
		want bool
	}{
		{auth.RoleCodeAdmin, DurationLongTerm, true},
		{auth.RoleCodeDepartmentHead, DurationLongTerm, true},
		{auth.RoleCodeDepartmentHead, DurationShortTerm, true},
		{auth.RoleCodeUnitHead, DurationShortTerm, true},
		{auth.RoleCodeUnitHead, DurationLongTerm, false},
		{auth.RoleCodeEmployee, DurationShortTerm, false},
		{auth.RoleCodeUSBOfficer, DurationShortTerm, false},
		{auth.CheckpointRoleCode(1), DurationShortTerm, false},
	}
	for _, tt := range cases {
		p := principal("u1", tt.role, "unit1")
		if got := CanCreateRequest(p, tt.d); got != tt.want {
			t.Errorf("CanCreateRequest(%s, %s) = %v, want %v", tt.role, tt.d, got, tt.want)
		}
	}
}

func TestCanActStage(t *testing.T) {
	cases := []struct {
		role  string
		stage Stage
		want  bool
	}{
		{auth.RoleCodeUSBOfficer, StageUSB, true},
		{auth.RoleCodeUSBOfficer, StageAS, false},
		{auth.RoleCodeASOfficer, StageAS, true},
		{auth.RoleCodeASOfficer, StageUSB, false},
		{auth.RoleCodeAdmin, StageUSB, true},
		{auth.RoleCodeAdmin, StageAS, true},
		{auth.RoleCodeDepartmentHead, StageUSB, false},
	}
	for _, tt := range cases {
		p := principal("u1", tt.role, "")
		if got := CanActStage(p, tt.stage); got != tt.want {
			t.Errorf("CanActStage(%s, %s) = %v, want %v", tt.role, tt.stage, got, tt.want)
		}
	}
}

func TestVisibilityFor(t *testing.T) {
	ctx := context.Background()
	resolver := &fakeResolver{subtrees: map[string][]string{
		"dep1": {"dep1", "div1", "div2"},
	}}

	t.Run("stage authorities see everything", func(t *testing.T) {
		for _, role := range []string{auth.RoleCodeAdmin, auth.RoleCodeUSBOfficer, auth.RoleCodeASOfficer} {
			v, err := VisibilityFor(ctx, principal("u1", role, ""), resolver)
			if err != nil {
				t.Fatalf("VisibilityFor(%s): %v", role, err)
			}
			if v.Kind != VisibilityAll {
				t.Fatalf("VisibilityFor(%s).Kind = %v", role, v.Kind)
			}
		}
	})

	t.Run("manager scopes to unit subtree", func(t *testing.T) {
		v, err := VisibilityFor(ctx, principal("u1", auth.RoleCodeDepartmentHead, "dep1"), resolver)
		if err != nil {
			t.Fatal(err)
		}
		if v.Kind != VisibilityUnits || len(v.UnitIDs) != 3 {
			t.Fatalf("visibility = %+v", v)
		}
	})

	t.Run("manager without a unit falls back to creator scope", func(t *testing.T) {
		v, err := VisibilityFor(ctx, principal("u1", auth.RoleCodeUnitHead, ""), resolver)
		if err != nil {
			t.Fatal(err)
		}
		if v.Kind != VisibilityCreator || v.CreatorID != "u1" {
			t.Fatalf("visibility = %+v", v)
		}
	})

	t.Run("checkpoint operator", func(t *testing.T) {
		v, err := VisibilityFor(ctx, principal("u1", auth.CheckpointRoleCode(4), ""), resolver)
		if err != nil {
			t.Fatal(err)
		}
		if v.Kind != VisibilityCheckpoint || v.Checkpoint != 4 {
			t.Fatalf("visibility = %+v", v)
		}
		if len(v.Statuses) != 2 {
			t.Fatalf("operator statuses = %v", v.Statuses)
		}
	})

	t.Run("employee sees own requests only", func(t *testing.T) {
		v, err := VisibilityFor(ctx, principal("u9", auth.RoleCodeEmployee, "div1"), resolver)
		if err != nil {
			t.Fatal(err)
		}
		if v.Kind != VisibilityCreator || v.CreatorID != "u9" {
			t.Fatalf("visibility = %+v", v)
		}
	})
}

func TestCanViewRequest(t *testing.T) {
	ctx := context.Background()
	resolver := &fakeResolver{subtrees: map[string][]string{
		"dep1": {"dep1", "div1"},
	}}
	req := &Request{
		ID:            "r1",
		CreatorID:     "creator",
		CreatorUnitID: "div1",
		Status:        StatusPendingAS,
		CheckpointIDs: []int64{2},
	}

	check := func(t *testing.T, p auth.Principal, want bool) {
		t.Helper()
		got, err := CanViewRequest(ctx, p, req, resolver)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Fatalf("CanViewRequest = %v, want %v", got, want)
		}
	}

	t.Run("creator", func(t *testing.T) {
		check(t, principal("creator", auth.RoleCodeUnitHead, "div1"), true)
	})
	t.Run("manager over creator unit", func(t *testing.T) {
		check(t, principal("boss", auth.RoleCodeDepartmentHead, "dep1"), true)
	})
	t.Run("manager of unrelated unit", func(t *testing.T) {
		check(t, principal("other", auth.RoleCodeDepartmentHead, "dep2"), false)
	})
	t.Run("operator before approval", func(t *testing.T) {
		check(t, principal("op", auth.CheckpointRoleCode(2), ""), false)
	})
	t.Run("operator after approval", func(t *testing.T) {
		approved := *req
		approved.Status = StatusApprovedAS
		got, err := CanViewRequest(ctx, principal("op", auth.CheckpointRoleCode(2), ""), &approved, resolver)
		if err != nil {
			t.Fatal(err)
		}
		if !got {
			t.Fatal("operator should see approved request for own checkpoint")
		}
	})
	t.Run("operator of another checkpoint", func(t *testing.T) {
		approved := *req
		approved.Status = StatusApprovedAS
		got, err := CanViewRequest(ctx, principal("op", auth.CheckpointRoleCode(9), ""), &approved, resolver)
		if err != nil {
			t.Fatal(err)
		}
		if got {
			t.Fatal("operator must not see requests for other checkpoints")
		}
	})
	t.Run("unrelated employee", func(t *testing.T) {
		check(t, principal("stranger", auth.RoleCodeEmployee, "div9"), false)
	})
}

func TestCanOperateCheckpoint(t *testing.T) {
	req := &Request{CheckpointIDs: []int64{1, 3}}
	if !CanOperateCheckpoint(principal("op", auth.CheckpointRoleCode(3), ""), req) {
		t.Fatal("operator of a target checkpoint must be allowed")
	}
	if CanOperateCheckpoint(principal("op", auth.CheckpointRoleCode(2), ""), req) {
		t.Fatal("operator of another checkpoint must be denied")
	}
	if !CanOperateCheckpoint(principal("root", auth.RoleCodeAdmin, ""), req) {
		t.Fatal("admin must be allowed")
	}
	if CanOperateCheckpoint(principal("x", auth.RoleCodeASOfficer, ""), req) {
		t.Fatal("AS officer must be denied")
	}
}
