// Package domain contains core domain types for the marketplace dashboard.
package domain

import (
	"time"
)

// Role is the marketplace role attached to a profile.
type Role string

const (
	RoleClient    Role = "Client"
	RoleDeveloper Role = "Developer"
	RoleAdmin     Role = "Admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleDeveloper, RoleAdmin:
		return true
	}
	return false
}

// User is the account identity nested inside a profile.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Profile is the resolved identity plus role and approval flag, as returned
// by the backend's current-user endpoint.
type Profile struct {
	ID         int64     `json:"id"`
	User       User      `json:"user"`
	Role       Role      `json:"role"`
	IsApproved bool      `json:"is_approved"`
	Skills     string    `json:"skills,omitempty"`
	Experience string    `json:"experience,omitempty"`
	Portfolio  string    `json:"portfolio,omitempty"`
	GithubLink string    `json:"github_link,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// IdentityID returns the account id used as sender/receiver in messages.
func (p *Profile) IdentityID() int64 {
	if p == nil {
		return 0
	}
	return p.User.ID
}

// DisplayName returns "First Last", falling back to the username.
func (p *Profile) DisplayName() string {
	if p == nil {
		return ""
	}
	name := p.User.FirstName
	if p.User.LastName != "" {
		if name != "" {
			name += " "
		}
		name += p.User.LastName
	}
	if name == "" {
		return p.User.Username
	}
	return name
}
