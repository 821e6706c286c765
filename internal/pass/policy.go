package pass

import (
	"context"

	"ruqsat.org/internal/auth"
)

// HierarchyResolver answers descendant queries for department-scoped
// visibility. Implemented by org.Resolver.
type HierarchyResolver interface {
	Descendants(ctx context.Context, unitID string) ([]string, error)
}

// CanCreateRequest gates request creation by duration class. Long-term passes
// need a department head; short-term passes any manager. Admins may create
// anything.
func CanCreateRequest(p auth.Principal, d Duration) bool {
	switch p.Role.Kind {
	case auth.RoleAdmin:
		return true
	case auth.RoleDepartmentHead:
		return true
	case auth.RoleUnitHead:
		return d == DurationShortTerm
	}
	return false
}

// CanActStage reports whether the principal is an authority of the given
// approval stage.
func CanActStage(p auth.Principal, stage Stage) bool {
	if p.Role.Kind == auth.RoleAdmin {
		return true
	}
	switch stage {
	case StageUSB:
		return p.Role.Kind == auth.RoleUSBOfficer
	case StageAS:
		return p.Role.Kind == auth.RoleASOfficer
	}
	return false
}

// canViewAll: admins and both stage authorities see every request.
func canViewAll(p auth.Principal) bool {
	switch p.Role.Kind {
	case auth.RoleAdmin, auth.RoleUSBOfficer, auth.RoleASOfficer:
		return true
	}
	return false
}

// VisibilityKind enumerates list-scope shapes.
type VisibilityKind int

const (
	VisibilityAll VisibilityKind = iota
	VisibilityCreator
	VisibilityUnits
	VisibilityCheckpoint
)

// Visibility describes which requests a principal may list. The service turns
// it into store filter criteria.
type Visibility struct {
	Kind       VisibilityKind
	CreatorID  string
	UnitIDs    []string
	Checkpoint int64
	Statuses   []Status
}

// checkpointVisibleStatuses: operators only ever see approved or issued
// requests for their checkpoint.
var checkpointVisibleStatuses = []Status{StatusApprovedAS, StatusIssued}

// VisibilityFor derives the principal's listing scope. Managers resolve their
// unit subtree through the hierarchy resolver; a manager without a unit falls
// back to creator-only scope.
func VisibilityFor(ctx context.Context, p auth.Principal, resolver HierarchyResolver) (Visibility, error) {
	if canViewAll(p) {
		return Visibility{Kind: VisibilityAll}, nil
	}
	if p.Role.IsManager() && p.UnitID != "" {
		units, err := resolver.Descendants(ctx, p.UnitID)
		if err != nil {
			return Visibility{}, err
		}
		return Visibility{Kind: VisibilityUnits, UnitIDs: units}, nil
	}
	if p.Role.Kind == auth.RoleCheckpointOperator {
		return Visibility{
			Kind:       VisibilityCheckpoint,
			Checkpoint: p.Role.Checkpoint,
			Statuses:   checkpointVisibleStatuses,
		}, nil
	}
	return Visibility{Kind: VisibilityCreator, CreatorID: p.UserID}, nil
}

// CanViewRequest authorizes single-resource reads: unrestricted viewers, the
// creator, managers over the creator's unit, and operators of a targeted
// checkpoint once the request is approved or issued.
func CanViewRequest(ctx context.Context, p auth.Principal, req *Request, resolver HierarchyResolver) (bool, error) {
	if canViewAll(p) {
		return true, nil
	}
	if req.CreatorID == p.UserID {
		return true, nil
	}
	if p.Role.IsManager() && p.UnitID != "" && req.CreatorUnitID != "" {
		units, err := resolver.Descendants(ctx, p.UnitID)
		if err != nil {
			return false, err
		}
		for _, u := range units {
			if u == req.CreatorUnitID {
				return true, nil
			}
		}
	}
	if p.Role.Kind == auth.RoleCheckpointOperator &&
		(req.Status == StatusApprovedAS || req.Status == StatusIssued) &&
		req.TargetsCheckpoint(p.Role.Checkpoint) {
		return true, nil
	}
	return false, nil
}

// CanOperateCheckpoint authorizes issue/close actions on a request: admins,
// or the operator of one of the request's target checkpoints.
func CanOperateCheckpoint(p auth.Principal, req *Request) bool {
	if p.Role.Kind == auth.RoleAdmin {
		return true
	}
	return p.Role.Kind == auth.RoleCheckpointOperator && req.TargetsCheckpoint(p.Role.Checkpoint)
}

// CanDeleteRequest: the creator or an admin, while the request is untouched.
// State checks live in the service; this is the identity gate.
func CanDeleteRequest(p auth.Principal, req *Request) bool {
	return p.Role.Kind == auth.RoleAdmin || req.CreatorID == p.UserID
}
