package model

import "time"

// Role is the authorization level of a user.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleAdmin
}

// User represents an account in the users collection.
// PasswordHash is persisted but never leaves the server; respond with Public().
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash *string   `json:"password"`
	Role         Role      `json:"role"`
	Provider     string    `json:"provider,omitempty"`
	ProviderID   string    `json:"providerId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// RecordID implements store.Record.
func (u *User) RecordID() string { return u.ID }

// Assign implements store.Record.
func (u *User) Assign(id string, createdAt time.Time) {
	u.ID = id
	u.CreatedAt = createdAt
}

// HasPassword reports whether the user can sign in with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// PublicUser is a User without its password hash.
type PublicUser struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Role       Role      `json:"role"`
	Provider   string    `json:"provider,omitempty"`
	ProviderID string    `json:"providerId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Public strips the password hash.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Role:       u.Role,
		Provider:   u.Provider,
		ProviderID: u.ProviderID,
		CreatedAt:  u.CreatedAt,
	}
}
