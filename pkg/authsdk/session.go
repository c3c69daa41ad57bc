package authsdk

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// Session represents an authenticated session with automatic token reissue.
// All Session methods reissue the access token shortly before it expires.
type Session struct {
	client *SDKClient

	mu          sync.RWMutex
	accessToken string
	expiresAt   time.Time
}

// expiryBuffer reissues ahead of the real expiry to absorb clock skew.
const expiryBuffer = 30 * time.Second

func newSession(client *SDKClient, tokens *TokenResponse) *Session {
	s := &Session{client: client}
	s.set(tokens)
	return s
}

func (s *Session) set(tokens *TokenResponse) {
	s.accessToken = tokens.AccessToken
	s.expiresAt = time.Now().Add(time.Duration(tokens.ExpiresIn)*time.Second - expiryBuffer)
}

// AccessToken returns the current access token without checking expiration.
// For most use cases, prefer using the Session methods which handle reissue automatically.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// Reissue rotates the refresh cookie and replaces the access token. The
// previous refresh token stops working as soon as this returns.
func (s *Session) Reissue(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reissueLocked(ctx)
}

func (s *Session) reissueLocked(ctx context.Context) error {
	req, err := s.client.newRequest(ctx, http.MethodPost, "/api/auth/reissue", nil, s.accessToken)
	if err != nil {
		return err
	}
	resp, err := s.client.do(req)
	if err != nil {
		return err
	}

	tokens, err := decodeTokens(resp)
	if err != nil {
		return err
	}
	s.set(tokens)
	return nil
}

// getValidToken returns a valid access token, reissuing if it is about to expire.
func (s *Session) getValidToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	if time.Now().Before(s.expiresAt) {
		token := s.accessToken
		s.mu.RUnlock()
		return token, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring write lock (another goroutine may have reissued)
	if time.Now().Before(s.expiresAt) {
		return s.accessToken, nil
	}

	if err := s.reissueLocked(ctx); err != nil {
		return "", fmt.Errorf("failed to reissue token: %w", err)
	}
	return s.accessToken, nil
}

// doAuth sends an authenticated request and decodes the expected response.
func (s *Session) doAuth(ctx context.Context, method, path string, body, target any, expectedStatus int) error {
	token, err := s.getValidToken(ctx)
	if err != nil {
		return err
	}

	req, err := s.client.newRequest(ctx, method, path, body, token)
	if err != nil {
		return err
	}
	resp, err := s.client.do(req)
	if err != nil {
		return err
	}
	return decodeJSON(resp, target, expectedStatus)
}

// Me returns the authenticated caller as the server sees it now.
func (s *Session) Me(ctx context.Context) (*PrincipalResponse, error) {
	var p PrincipalResponse
	if err := s.doAuth(ctx, http.MethodGet, "/api/auth/me", nil, &p, http.StatusOK); err != nil {
		return nil, err
	}
	return &p, nil
}

// Logout revokes this session's refresh token. It always succeeds on the
// server, so only transport errors are returned.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, err := s.client.newRequest(ctx, http.MethodPost, "/api/auth/logout", nil, "")
	if err != nil {
		return err
	}
	resp, err := s.client.do(req)
	if err != nil {
		return err
	}
	if err := decodeJSON(resp, nil, http.StatusOK); err != nil {
		return err
	}

	s.accessToken = ""
	s.expiresAt = time.Time{}
	return nil
}

// LogoutAll revokes every refresh token of the caller, on every device.
func (s *Session) LogoutAll(ctx context.Context) (int, error) {
	var out RevokedResponse
	if err := s.doAuth(ctx, http.MethodPost, "/api/auth/logout-all", nil, &out, http.StatusOK); err != nil {
		return 0, err
	}
	return out.Revoked, nil
}

// RevokeUserSessions force-logs-out another user. Requires the ADMIN role.
func (s *Session) RevokeUserSessions(ctx context.Context, username string) (int, error) {
	var out RevokedResponse
	path := "/api/admin/users/" + url.PathEscape(username) + "/sessions"
	if err := s.doAuth(ctx, http.MethodDelete, path, nil, &out, http.StatusOK); err != nil {
		return 0, err
	}
	return out.Revoked, nil
}
