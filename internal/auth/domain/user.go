package domain

import "time"

// ProviderNone marks an account that signs in with a local password.
const ProviderNone = "NONE"

type User struct {
	ID           string
	Username     string // unique, the join key used by tokens
	PasswordHash string // argon2 encoded, unusable random hash for federated accounts
	DisplayName  string
	Email        string
	Provider     string // ProviderNone or a federation provider name
	ProviderID   string // empty for ProviderNone
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Principal derives the request identity from the stored user.
func (u User) Principal() Principal {
	return Principal{
		UserID:      u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Role:        u.Role,
	}
}

// IsFederated reports whether the account was provisioned by a social login.
func (u User) IsFederated() bool {
	return u.Provider != "" && u.Provider != ProviderNone
}
