// Package models holds the server-side domain types. They are plain
// snapshots: services never mutate a loaded User in place, all writes go
// through the repository as explicit updates.
package models

import "time"

// Role is the user's role in the system.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleTendero  Role = "TENDERO"
	RoleVendedor Role = "VENDEDOR"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTendero, RoleVendedor:
		return true
	}
	return false
}

// Roles lists every known role, in catalog order.
func Roles() []Role {
	return []Role{RoleAdmin, RoleTendero, RoleVendedor}
}

// SecretKind distinguishes the two recovery secret shapes.
type SecretKind string

const (
	// SecretToken is a long URL-safe token, valid for about an hour.
	SecretToken SecretKind = "token"
	// SecretCode is a 6-digit numeric code, valid for minutes.
	SecretCode SecretKind = "code"
)

// RecoverySecret is the single active recovery secret of a user. Holding it
// as one tagged value (instead of separate token/code fields) makes the
// at-most-one-active invariant structural.
type RecoverySecret struct {
	Kind      SecretKind
	Value     string
	ExpiresAt time.Time
}

// User is a snapshot of a user record.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	IsActive     bool

	// Optional verification channels.
	PhoneNumber        string
	SecurityQuestion   string
	SecurityAnswerHash string

	// Recovery is nil unless a reset secret is pending.
	Recovery *RecoverySecret

	CreatedAt time.Time
	UpdatedAt time.Time
}
