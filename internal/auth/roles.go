package auth

import (
	"strconv"
	"strings"
)

// Role codes as stored in the roles table. The checkpoint-operator code is
// parametric: "KPP-<n>" where n is the checkpoint number.
const (
	RoleCodeAdmin          = "admin"
	RoleCodeUSBOfficer     = "usb_officer"
	RoleCodeASOfficer      = "as_officer"
	RoleCodeDepartmentHead = "head_of_department"
	RoleCodeUnitHead       = "head_of_management_unit"
	RoleCodeEmployee       = "employee"

	CheckpointRolePrefix = "KPP-"
)

// RoleKind is the resolved variant of a role code.
type RoleKind int

const (
	RoleNone RoleKind = iota
	RoleAdmin
	RoleUSBOfficer
	RoleASOfficer
	RoleDepartmentHead
	RoleUnitHead
	RoleCheckpointOperator
	RoleEmployee
)

// Role is a role code parsed into its tagged form. Checkpoint is set only for
// RoleCheckpointOperator.
type Role struct {
	Kind       RoleKind
	Checkpoint int64
}

// ResolveRole parses a role code once. Unknown codes, and operator codes with
// a malformed suffix, resolve to RoleNone: the holder is treated as a plain
// creator rather than rejected outright.
func ResolveRole(code string) Role {
	code = strings.TrimSpace(code)
	switch code {
	case RoleCodeAdmin:
		return Role{Kind: RoleAdmin}
	case RoleCodeUSBOfficer:
		return Role{Kind: RoleUSBOfficer}
	case RoleCodeASOfficer:
		return Role{Kind: RoleASOfficer}
	case RoleCodeDepartmentHead:
		return Role{Kind: RoleDepartmentHead}
	case RoleCodeUnitHead:
		return Role{Kind: RoleUnitHead}
	case RoleCodeEmployee:
		return Role{Kind: RoleEmployee}
	}
	if strings.HasPrefix(code, CheckpointRolePrefix) {
		n, err := strconv.ParseInt(code[len(CheckpointRolePrefix):], 10, 64)
		if err != nil || n <= 0 {
			return Role{Kind: RoleNone}
		}
		return Role{Kind: RoleCheckpointOperator, Checkpoint: n}
	}
	return Role{Kind: RoleNone}
}

// CheckpointRoleCode builds the operator role code for a checkpoint number.
func CheckpointRoleCode(n int64) string {
	return CheckpointRolePrefix + strconv.FormatInt(n, 10)
}

// IsManager reports whether the role carries department-scoped visibility.
func (r Role) IsManager() bool {
	return r.Kind == RoleDepartmentHead || r.Kind == RoleUnitHead
}
