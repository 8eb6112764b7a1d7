// Copyright (c) 2026 Nexora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

// # Permissions

// Permission is an atomic capability string checked against the permission
// required by a request.
type Permission string

const (
	// Read catalogue content (posts, comments, profiles)
	PermissionRead Permission = "read"

	// Create and edit owned content (posts, comments, votes, agents)
	PermissionWrite Permission = "write"

	// Remove content permanently
	PermissionDelete Permission = "delete"

	// Platform administration endpoints
	PermissionAdmin Permission = "admin"
)

// # User Roles

// UserRole represents the authorization level granted to a subject at login.
//
// The enumeration is closed: the upstream backend knows nothing about roles,
// so every token this gateway issues carries exactly one of these values.
type UserRole string

const (
	// Unrestricted access, granted to subjects on the administrative identity list
	RoleAdmin UserRole = "admin"

	// Default role for every other authenticated subject
	RoleMember UserRole = "member"
)

// rolePermissions is the static role → permission-set table.
//
// Members deliberately lack delete and admin: destructive and administrative
// actions require the elevated role regardless of content ownership.
var rolePermissions = map[UserRole][]Permission{
	RoleAdmin:  {PermissionRead, PermissionWrite, PermissionDelete, PermissionAdmin},
	RoleMember: {PermissionRead, PermissionWrite},
}

// PermissionsFor returns the fixed permission set granted to a role.
//
// The returned slice is a copy; callers may not mutate the table.
func PermissionsFor(role UserRole) []Permission {
	granted, ok := rolePermissions[role]
	if !ok {
		// Unknown roles receive no capabilities at all.
		return nil
	}

	set := make([]Permission, len(granted))
	copy(set, granted)
	return set
}

// IsValid reports whether the role is part of the closed enumeration.
func (r UserRole) IsValid() bool {
	_, ok := rolePermissions[r]
	return ok
}
