package domain

import "time"

// User is an account provisioned on first login through an identity provider.
type User struct {
	ID        string
	Email     string // Token identifier, unique
	TokenSalt string // Per-user MAC salt; rotating it revokes all sessions
	CreatedAt time.Time
	UpdatedAt time.Time
}
