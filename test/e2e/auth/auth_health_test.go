package auth_test

import (
	"testing"

	"github.com/aussiebroadwan/techpost/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestLivezEndpoint verifies the liveness check endpoint.
func TestLivezEndpoint(t *testing.T) {
	baseURL := setupAuthContainer(t, containerOptions{})

	client := authsdk.NewSDKClient(baseURL)

	health, err := client.GetLiveness(t.Context())
	assertHealthy(t, health, err)

	t.Logf("Livez endpoint is healthy")
}

// TestReadyzEndpoint verifies the readiness check reports both stores.
func TestReadyzEndpoint(t *testing.T) {
	baseURL := setupAuthContainer(t, containerOptions{})

	client := authsdk.NewSDKClient(baseURL)

	health, err := client.GetReadiness(t.Context())
	assertHealthy(t, health, err)
	require.NotNil(t, health.Checks)
	require.Equal(t, "ok", health.Checks.Database)
	require.Equal(t, "ok", health.Checks.Revocations)

	t.Logf("Readyz endpoint is healthy")
}
