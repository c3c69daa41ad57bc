package gen

import (
	"time"
)

type RefreshToken struct {
	TokenHash string
	Username  string
	IssuedAt  int64
	ExpiresAt int64
}

type User struct {
	ID           string
	Username     string
	PasswordHash string
	DisplayName  string
	Email        string
	Provider     string
	ProviderID   string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
