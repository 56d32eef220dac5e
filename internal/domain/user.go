package domain

import "time"

// Role identifies the capability set granted to a user account.
type Role string

const (
	RoleRequester Role = "REQUESTER"
	RoleCertifier Role = "CERTIFIER"
)

// User is the base identity record. Capabilities live in the role tables
// (requesters, certifiers) keyed by user id.
type User struct {
	ID           string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
}
