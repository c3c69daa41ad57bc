package jwtx_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/techpost/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestValidateIssuer(t *testing.T) {
	c := &jwtx.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer: "techpost-auth",
		},
	}

	t.Run("matching issuer", func(t *testing.T) {
		require.NoError(t, c.ValidateIssuer("techpost-auth"))
	})

	t.Run("empty expected issuer", func(t *testing.T) {
		require.NoError(t, c.ValidateIssuer(""))
	})

	t.Run("mismatched issuer", func(t *testing.T) {
		err := c.ValidateIssuer("chat-service")
		require.ErrorIs(t, err, jwtx.ErrIssuer)
	})
}

func TestValidateCategory(t *testing.T) {
	c := &jwtx.Claims{Category: jwtx.CategoryRefresh}

	require.NoError(t, c.ValidateCategory(jwtx.CategoryRefresh))
	require.ErrorIs(t, c.ValidateCategory(jwtx.CategoryAccess), jwtx.ErrWrongCategory)
}

func TestExpiredAt(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()

	tests := []struct {
		name    string
		exp     *jwt.NumericDate
		expired bool
	}{
		{"future exp", jwt.NewNumericDate(now.Add(time.Minute)), false},
		{"past exp", jwt.NewNumericDate(now.Add(-time.Minute)), true},
		{"exp equal to now", jwt.NewNumericDate(now), true},
		{"missing exp", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: tt.exp}}
			require.Equal(t, tt.expired, c.ExpiredAt(now))
		})
	}
}

func TestNewJTI(t *testing.T) {
	a, b := jwtx.NewJTI(), jwtx.NewJTI()
	require.NotEmpty(t, a)
	require.NotEqual(t, a, b)
}
