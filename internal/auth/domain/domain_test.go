package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{"USER", RoleUser, false},
		{"ROLE_USER", RoleUser, false},
		{"ADMIN", RoleAdmin, false},
		{"ROLE_ADMIN", RoleAdmin, false},
		{"root", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRole(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
			require.True(t, got.Valid())
		})
	}
}

func TestUserPrincipal(t *testing.T) {
	u := User{
		ID:          "01HQ7T3Z1MZ0JQ3M6MZQ1FQ3ZV",
		Username:    "kakao_42",
		DisplayName: "Ryan",
		Provider:    "kakao",
		ProviderID:  "42",
		Role:        RoleUser,
	}

	require.Equal(t, Principal{
		UserID:      u.ID,
		Username:    "kakao_42",
		DisplayName: "Ryan",
		Role:        RoleUser,
	}, u.Principal())
	require.True(t, u.IsFederated())
	require.False(t, u.Principal().IsAdmin())

	u.Provider = ProviderNone
	require.False(t, u.IsFederated())
}

func TestRevocationRecordLive(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	rec := RevocationRecord{ExpiresAt: now.Add(time.Minute)}

	require.True(t, rec.Live(now))
	require.Equal(t, time.Minute, rec.TTL(now))
	require.False(t, rec.Live(now.Add(time.Minute)))
}
