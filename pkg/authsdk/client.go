package authsdk

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"
)

// RefreshCookieName is the cookie the server keeps the refresh token in.
const RefreshCookieName = "refresh"

// SDKClient is a client for the techpost authentication service.
// It provides access to unauthenticated operations and can create authenticated Sessions.
//
// The refresh token never leaves the cookie jar of HTTPClient, so an
// SDKClient holds at most one refresh session at a time.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient creates a client with its own cookie jar.
func NewSDKClient(baseURL string) *SDKClient {
	jar, _ := cookiejar.New(nil) // never fails with nil options
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
			Jar:     jar,
		},
	}
}

// Signup creates a local account. It does not log in.
func (c *SDKClient) Signup(ctx context.Context, req SignupRequest) (*UserResponse, error) {
	httpReq, err := c.newRequest(ctx, http.MethodPost, "/api/auth/signup", req, "")
	if err != nil {
		return nil, err
	}
	resp, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}

	var user UserResponse
	if err := decodeJSON(resp, &user, http.StatusCreated); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login authenticates with a username and password and returns a Session.
// The refresh cookie lands in the client's jar.
func (c *SDKClient) Login(ctx context.Context, username, password string) (*Session, error) {
	httpReq, err := c.newRequest(ctx, http.MethodPost, "/api/auth/login", LoginRequest{
		Username: username,
		Password: password,
	}, "")
	if err != nil {
		return nil, err
	}
	resp, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}

	tokens, err := decodeTokens(resp)
	if err != nil {
		return nil, err
	}
	return newSession(c, tokens), nil
}

// NewSessionFromAccessToken wraps an access token obtained elsewhere, such
// as the accessToken query parameter of a federated login redirect. The
// refresh cookie must already be in the client's jar for reissue to work.
func (c *SDKClient) NewSessionFromAccessToken(accessToken string, expiresIn int64) *Session {
	return newSession(c, &TokenResponse{AccessToken: accessToken, ExpiresIn: expiresIn})
}

// GetLiveness checks if the service is alive.
func (c *SDKClient) GetLiveness(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, "/livez")
}

// GetReadiness checks if the service and its stores are ready.
func (c *SDKClient) GetReadiness(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, "/readyz")
}

func (c *SDKClient) health(ctx context.Context, path string) (*HealthResponse, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return nil, err
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var health HealthResponse
	if err := decodeJSON(resp, &health, http.StatusOK); err != nil {
		return nil, err
	}
	return &health, nil
}

// decodeTokens reads a login or reissue response. The Authorization header
// is authoritative for the access token.
func decodeTokens(resp *http.Response) (*TokenResponse, error) {
	header := resp.Header.Get("Authorization")

	var tokens TokenResponse
	if err := decodeJSON(resp, &tokens, http.StatusOK); err != nil {
		return nil, err
	}

	if token, ok := strings.CutPrefix(header, "Bearer "); ok && token != "" {
		tokens.AccessToken = token
	}
	if tokens.AccessToken == "" {
		return nil, fmt.Errorf("response carried no access token")
	}
	return &tokens, nil
}
