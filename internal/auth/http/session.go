package http

import (
	"net/http"

	"github.com/aussiebroadwan/techpost/internal/auth/authn"
	"github.com/aussiebroadwan/techpost/internal/auth/domain"
	"github.com/aussiebroadwan/techpost/internal/auth/service"
	"github.com/aussiebroadwan/techpost/pkg/authsdk"
	"github.com/aussiebroadwan/techpost/pkg/httpx"
	"github.com/aussiebroadwan/techpost/pkg/slogx"
)

// SessionHandler serves the password login and session lifecycle routes
// under /api/auth.
type SessionHandler struct {
	Sessions *service.SessionAuthority
	Cookie   httpx.CookieConfig
}

// HandleSignup godoc
//
//	@Summary		Create an account
//	@Description	Creates a password account with role USER. It does not log in.
//	@Tags			Session
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.SignupRequest	true	"username, password, displayName"
//	@Success		201		{object}	authsdk.UserResponse
//	@Failure		400		{object}	authsdk.APIError	"VALIDATION_FAILED"
//	@Failure		409		{object}	authsdk.APIError	"USER_ALREADY_EXISTS"
//	@Router			/api/auth/signup [post].
func (h *SessionHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req authsdk.SignupRequest
	if err := httpx.DecodeJSON(w, r, &req, 0); err != nil {
		authsdk.ErrBadRequest.WriteError(w)
		return
	}

	u, err := h.Sessions.Signup(r.Context(), service.SignupRequest{
		Username:    req.Username,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, userResponse(u))
}

// HandleLogin godoc
//
//	@Summary		Log in with a password
//	@Description	Opens a session. The access token is returned in the Authorization header and the body,
//	@Description	the refresh token only in the HttpOnly refresh cookie.
//	@Tags			Session
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.LoginRequest	true	"username, password"
//	@Success		200		{object}	authsdk.TokenResponse
//	@Failure		400		{object}	authsdk.APIError	"VALIDATION_FAILED"
//	@Failure		401		{object}	authsdk.APIError	"INVALID_CREDENTIALS"
//	@Failure		503		{object}	authsdk.APIError	"TOKEN_SERVICE_UNAVAILABLE"
//	@Header			200		{string}	Authorization		"Bearer access token"
//	@Header			200		{string}	Set-Cookie			"refresh cookie"
//	@Router			/api/auth/login [post].
func (h *SessionHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if err := httpx.DecodeJSON(w, r, &req, 0); err != nil {
		authsdk.ErrBadRequest.WriteError(w)
		return
	}

	fields := map[string]string{}
	if req.Username == "" {
		fields["username"] = "required"
	}
	if req.Password == "" {
		fields["password"] = "required"
	}
	if len(fields) > 0 {
		writeError(w, r, &service.ValidationError{Fields: fields})
		return
	}

	pair, err := h.Sessions.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.writeTokens(w, pair)
}

// HandleReissue godoc
//
//	@Summary		Rotate the session
//	@Description	Exchanges the refresh cookie and the (possibly expired) access token for a new pair.
//	@Description	The presented refresh token is revoked; replaying it fails with REFRESH_TOKEN_NOT_FOUND.
//	@Tags			Session
//	@Produce		json
//	@Param			Authorization	header		string	false	"Bearer access token, expired is fine"
//	@Success		200				{object}	authsdk.TokenResponse
//	@Failure		401				{object}	authsdk.APIError	"REFRESH_TOKEN_* or INVALID_TOKEN"
//	@Failure		503				{object}	authsdk.APIError	"TOKEN_SERVICE_UNAVAILABLE"
//	@Router			/api/auth/reissue [post].
func (h *SessionHandler) HandleReissue(w http.ResponseWriter, r *http.Request) {
	access, _ := httpx.BearerToken(r)

	pair, err := h.Sessions.Reissue(r.Context(), access, h.Cookie.Read(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.writeTokens(w, pair)
}

// HandleLogout godoc
//
//	@Summary		Log out
//	@Description	Revokes the refresh cookie's token and clears the cookie. Always succeeds.
//	@Tags			Session
//	@Produce		json
//	@Success		200
//	@Router			/api/auth/logout [post].
func (h *SessionHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.Sessions.Logout(r.Context(), h.Cookie.Read(r))

	h.Cookie.ClearCookie(w)
	httpx.WriteJSON(w, http.StatusOK, struct{}{})
}

// HandleLogoutAll godoc
//
//	@Summary		Log out everywhere
//	@Description	Revokes every refresh token of the caller.
//	@Tags			Session
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.RevokedResponse
//	@Failure		401	{object}	authsdk.APIError
//	@Failure		503	{object}	authsdk.APIError	"TOKEN_SERVICE_UNAVAILABLE"
//	@Router			/api/auth/logout-all [post].
func (h *SessionHandler) HandleLogoutAll(w http.ResponseWriter, r *http.Request) {
	p, _ := authn.PrincipalFrom(r.Context())

	n, err := h.Sessions.LogoutAll(r.Context(), p.Username)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.Cookie.ClearCookie(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.RevokedResponse{Revoked: n})
}

// HandleMe godoc
//
//	@Summary		Current user
//	@Description	Returns the authenticated principal, read from the user store on every request.
//	@Tags			Session
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.PrincipalResponse
//	@Failure		401	{object}	authsdk.APIError
//	@Router			/api/auth/me [get].
func (h *SessionHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	p, _ := authn.PrincipalFrom(r.Context())
	httpx.WriteJSON(w, http.StatusOK, principalResponse(p))
}

// HandleRevokeUser godoc
//
//	@Summary		Force logout of a user
//	@Description	Revokes every refresh token of the named user. Requires role ADMIN.
//	@Tags			Admin
//	@Security		BearerAuth
//	@Produce		json
//	@Param			username	path		string	true	"Username"
//	@Success		200			{object}	authsdk.RevokedResponse
//	@Failure		401			{object}	authsdk.APIError
//	@Failure		403			{object}	authsdk.APIError	"ACCESS_DENIED"
//	@Router			/api/admin/users/{username}/sessions [delete].
func (h *SessionHandler) HandleRevokeUser(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")

	n, err := h.Sessions.LogoutAll(r.Context(), username)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slogx.FromContext(r.Context()).Info("admin revoked user sessions", "target", username, "count", n)
	httpx.WriteJSON(w, http.StatusOK, authsdk.RevokedResponse{Revoked: n})
}

// writeTokens delivers a freshly minted pair: access token in the header
// and body, refresh token in the cookie only.
func (h *SessionHandler) writeTokens(w http.ResponseWriter, pair domain.TokenPair) {
	w.Header().Set("Authorization", "Bearer "+pair.AccessToken)
	h.Cookie.SetCookie(w, pair.RefreshToken, pair.RefreshExpiresIn)
	httpx.WriteJSON(w, http.StatusOK, tokenResponse(pair))
}

func tokenResponse(pair domain.TokenPair) authsdk.TokenResponse {
	return authsdk.TokenResponse{
		AccessToken: pair.AccessToken,
		ExpiresIn:   int64(pair.AccessExpiresIn.Seconds()),
	}
}

func userResponse(u domain.User) authsdk.UserResponse {
	return authsdk.UserResponse{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Role:        u.Role.String(),
		Provider:    u.Provider,
		CreatedAt:   u.CreatedAt,
	}
}

func principalResponse(p domain.Principal) authsdk.PrincipalResponse {
	return authsdk.PrincipalResponse{
		UserID:      p.UserID,
		Username:    p.Username,
		DisplayName: p.DisplayName,
		Role:        p.Role.String(),
	}
}
