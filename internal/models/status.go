package models

// ProjectStatus is the lifecycle state of a project. "Searchable" and
// "hidden" are derived predicates over it, not stored columns.
type ProjectStatus string

const (
	StatusDraft      ProjectStatus = "draft"
	StatusProcessing ProjectStatus = "processing"
	StatusApproved   ProjectStatus = "approved"
	StatusRejected   ProjectStatus = "rejected"
	StatusUnlisted   ProjectStatus = "unlisted"
)

// Searchable reports whether projects in this status belong in the search
// index.
func (s ProjectStatus) Searchable() bool {
	return s == StatusApproved
}

// Hidden reports whether projects in this status are suppressed for callers
// outside the owning team (moderators excepted).
func (s ProjectStatus) Hidden() bool {
	switch s {
	case StatusDraft, StatusProcessing, StatusRejected:
		return true
	}
	return false
}

// Valid reports whether s is a known status name.
func (s ProjectStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusProcessing, StatusApproved, StatusRejected, StatusUnlisted:
		return true
	}
	return false
}

// SideType describes client/server support for a project.
type SideType string

const (
	SideRequired    SideType = "required"
	SideOptional    SideType = "optional"
	SideUnsupported SideType = "unsupported"
	SideUnknown     SideType = "unknown"
)

// VersionType is the release channel of a version.
type VersionType string

const (
	VersionTypeRelease VersionType = "release"
	VersionTypeBeta    VersionType = "beta"
	VersionTypeAlpha   VersionType = "alpha"
)

// DependencyType classifies a dependency edge between versions.
type DependencyType string

const (
	DependencyRequired     DependencyType = "required"
	DependencyOptional     DependencyType = "optional"
	DependencyIncompatible DependencyType = "incompatible"
	DependencyEmbedded     DependencyType = "embedded"
)

func (d DependencyType) Valid() bool {
	switch d {
	case DependencyRequired, DependencyOptional, DependencyIncompatible, DependencyEmbedded:
		return true
	}
	return false
}

// Role is a site-wide user role. Moderators and admins both carry the
// moderator override on visibility, status transitions and deletion.
type Role string

const (
	RoleDeveloper Role = "developer"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// IsMod reports whether the role grants moderator-level overrides.
func (r Role) IsMod() bool {
	return r == RoleModerator || r == RoleAdmin
}
