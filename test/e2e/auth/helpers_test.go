package auth_test

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/aussiebroadwan/techpost/pkg/authsdk"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/network"
	"github.com/testcontainers/testcontainers-go/wait"
)

/*
 * Common constants and helper functions for auth service end-to-end tests.
 * This includes container setup, account operations, and assertions.
 */

const (
	testImageName   = "techpost-auth-test:latest"
	valkeyImageName = "valkey/valkey:8-alpine"

	testUsername    = "alice"
	testDisplayName = "Alice"
	testPassword    = "Secret123"

	// A fixed key keeps tokens valid across the containers of one test.
	testJWTSecret = "MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY="
)

// dockerAvailable is false when the image could not be built; every test
// then skips instead of failing.
var dockerAvailable bool

// TestMain manages the test lifecycle, builds the Docker image once before
// all tests and cleans it up after all tests complete.
func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	fmt.Fprintf(os.Stdout, "Building Auth Service Docker image...")

	// Build the Docker image once before all tests
	if err := buildDockerImage(); err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to build Docker image, skipping e2e tests: %v\n", err)
	} else {
		dockerAvailable = true
		fmt.Fprintf(os.Stdout, " done\n")
	}

	// Run all tests
	exitCode := m.Run()

	if dockerAvailable {
		// Clean up the Docker image after all tests complete
		fmt.Fprintf(os.Stdout, "Cleaning up Auth Service Docker image...")
		cleanupDockerImage()
		fmt.Fprintf(os.Stdout, " done\n")
	}

	os.Exit(exitCode)
}

// buildDockerImage builds the test Docker image if it doesn't exist.
func buildDockerImage() error {
	if _, err := exec.LookPath("docker"); err != nil {
		return err
	}

	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "docker", "build",
		"-t", testImageName,
		"-f", "../../../cmd/auth/Dockerfile",
		"../../../")
	cmd.Dir = "." // Ensure we're in the test directory
	cmd.Stdout = os.Stdout
	cmd.Stderr = nil

	return cmd.Run()
}

// cleanupDockerImage removes the test Docker image.
func cleanupDockerImage() {
	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "docker", "rmi", "-f", testImageName)
	_ = cmd.Run() // Ignore errors - image might not exist
}

type containerOptions struct {
	// defaultRateLimits keeps the production limits instead of the relaxed
	// ones most tests need.
	defaultRateLimits bool

	// env is merged over the base environment.
	env map[string]string

	networks []string
}

func baseEnv(opts containerOptions) map[string]string {
	env := map[string]string{
		"AUTH_DATABASE_FILE": "/tmp/auth.db",
		"AUTH_PEPPER_FILE":   "/tmp/pepper",
		"AUTH_JWT_SECRET":    testJWTSecret,
		"AUTH_ISSUER":        "techpost-auth",
		"ENV":                "test",
		"LOG_LEVEL":          "info",
		"LOG_FORMAT":         "json",
	}
	if !opts.defaultRateLimits {
		// Tests often make many rapid requests which would otherwise hit the strict production limits
		env["RATELIMIT_STRICT_REQUESTS"] = "1000"
		env["RATELIMIT_STRICT_WINDOW_SEC"] = "60"
		env["RATELIMIT_STRICT_BURST"] = "1000"
		env["RATELIMIT_MODERATE_REQUESTS"] = "1000"
		env["RATELIMIT_MODERATE_BURST"] = "1000"
	}
	for k, v := range opts.env {
		env[k] = v
	}
	return env
}

// setupAuthContainer starts the auth service in a container and returns the base URL.
func setupAuthContainer(t *testing.T, opts containerOptions) string {
	t.Helper()
	if !dockerAvailable {
		t.Skip("auth image not available")
	}
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        testImageName,
		ExposedPorts: []string{"8080/tcp"},
		Env:          baseEnv(opts),
		Networks:     opts.networks,
		WaitingFor: wait.ForHTTP("/readyz").
			WithPort("8080/tcp").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	// Get the mapped port
	mappedPort, err := container.MappedPort(ctx, "8080")
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	return fmt.Sprintf("http://%s:%s", host, mappedPort.Port())
}

// setupValkeyBackedAuth starts a valkey container and an auth container that
// keeps its revocation records there. Both share a private network.
func setupValkeyBackedAuth(t *testing.T) string {
	t.Helper()
	if !dockerAvailable {
		t.Skip("auth image not available")
	}
	ctx := context.Background()

	nw, err := network.New(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = nw.Remove(context.Background()) })

	valkey, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:          valkeyImageName,
			ExposedPorts:   []string{"6379/tcp"},
			Networks:       []string{nw.Name},
			NetworkAliases: map[string][]string{nw.Name: {"valkey"}},
			WaitingFor: wait.ForListeningPort("6379/tcp").
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	testcontainers.CleanupContainer(t, valkey)
	require.NoError(t, err)

	return setupAuthContainer(t, containerOptions{
		networks: []string{nw.Name},
		env: map[string]string{
			"AUTH_REVOCATION_BACKEND": "valkey",
			"VALKEY_ADDR":             "valkey:6379",
		},
	})
}

// signupAndLogin registers the test account and opens a session for it.
func signupAndLogin(t *testing.T, client *authsdk.SDKClient) *authsdk.Session {
	t.Helper()
	ctx := context.Background()

	user, err := client.Signup(ctx, authsdk.SignupRequest{
		Username:    testUsername,
		Password:    testPassword,
		DisplayName: testDisplayName,
	})
	require.NoError(t, err, "Signup should succeed")
	require.Equal(t, testUsername, user.Username)
	require.Equal(t, "USER", user.Role)

	session, err := client.Login(ctx, testUsername, testPassword)
	require.NoError(t, err, "Login should succeed")
	require.NotNil(t, session, "Session should not be nil")
	require.NotEmpty(t, session.AccessToken(), "Access token should not be empty")

	return session
}

// assertCode checks that err is an API error with the given code.
func assertCode(t *testing.T, err error, code string, context string) {
	t.Helper()
	require.Error(t, err, context)
	require.ErrorIs(t, err, &authsdk.APIError{Code: code}, "%s - got: %v", context, err)
}

// assertStatus checks that err is an API error carrying the given HTTP status.
func assertStatus(t *testing.T, err error, status int, context string) {
	t.Helper()
	require.Error(t, err, context)

	var apiErr *authsdk.APIError
	require.True(t, errors.As(err, &apiErr), "%s - expected an API error, got: %v", context, err)
	require.Equal(t, status, apiErr.StatusCode, "%s - got: %v", context, err)
}

// assertHealthy verifies a health check response is OK.
func assertHealthy(t *testing.T, health *authsdk.HealthResponse, err error) {
	t.Helper()
	require.NoError(t, err)
	require.NotNil(t, health)
	require.Equal(t, "ok", health.Status)
}
