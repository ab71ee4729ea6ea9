package models

// Permissions is a bitset of team capabilities. A member's bitset is resolved
// per (team, user) pair; moderators and admins act with PermissionsAll without
// requiring membership.
type Permissions uint64

const (
	PermissionUploadVersion Permissions = 1 << iota
	PermissionDeleteVersion
	PermissionEditDetails
	PermissionEditBody
	PermissionManageInvites
	PermissionRemoveMember
	PermissionEditMember
	PermissionDeleteProject

	PermissionsAll  Permissions = (1 << iota) - 1
	PermissionsNone Permissions = 0
)

// OwnerRole is the privileged display role of the team creator. Members with
// this role cannot be edited or removed through the generic member operations.
const OwnerRole = "Owner"

// Contains reports whether every bit in p2 is also set in p.
func (p Permissions) Contains(p2 Permissions) bool {
	return p&p2 == p2
}
