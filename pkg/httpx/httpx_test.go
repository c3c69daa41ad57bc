package httpx_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/techpost/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := httpx.Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}), mw("first"), mw("second"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"first", "second", "handler"}, order)
}

func TestParseBearer(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", true},
		{"bearer abc", "abc", true},
		{"Bearer   padded  ", "padded", true},
		{"Bearer ", "", false},
		{"Basic dXNlcjpwYXNz", "", false},
		{"", "", false},
		{"Bearer", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			token, ok := httpx.ParseBearer(tt.header)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.token, token)
		})
	}
}

func TestWriteBearerError(t *testing.T) {
	rec := httptest.NewRecorder()
	httpx.WriteBearerError(rec, http.StatusUnauthorized, "ACCESS_TOKEN_EXPIRED", "access token expired")

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Header().Get("WWW-Authenticate"), `error="invalid_token"`)
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var body httpx.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, httpx.ErrorBody{
		Status:  http.StatusUnauthorized,
		Code:    "ACCESS_TOKEN_EXPIRED",
		Message: "access token expired",
	}, body)
}

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := httpx.RequireRole("ADMIN")(ok)

	tests := []struct {
		name   string
		role   string
		status int
	}{
		{"anonymous", "", http.StatusUnauthorized},
		{"user", "USER", http.StatusForbidden},
		{"admin", "ADMIN", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.role != "" {
				req = req.WithContext(httpx.ContextWithIdentity(req.Context(), "id", tt.role))
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			require.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestCookieConfig(t *testing.T) {
	cfg := httpx.CookieConfig{Name: "refresh", SameSite: http.SameSiteLaxMode}

	t.Run("set", func(t *testing.T) {
		rec := httptest.NewRecorder()
		cfg.SetCookie(rec, "tok", 14*24*time.Hour)

		header := rec.Header().Get("Set-Cookie")
		require.Contains(t, header, "refresh=tok")
		require.Contains(t, header, "Path=/")
		require.Contains(t, header, "Max-Age=1209600")
		require.Contains(t, header, "HttpOnly")
	})

	t.Run("clear", func(t *testing.T) {
		rec := httptest.NewRecorder()
		cfg.ClearCookie(rec)

		header := rec.Header().Get("Set-Cookie")
		require.Contains(t, header, "refresh=;")
		require.Contains(t, header, "Max-Age=0")
	})

	t.Run("read", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		require.Equal(t, "", cfg.Read(req))

		req.AddCookie(&http.Cookie{Name: "refresh", Value: "tok"})
		require.Equal(t, "tok", cfg.Read(req))
	})
}

func TestDecodeJSON(t *testing.T) {
	type body struct {
		Username string `json:"username"`
	}

	tests := []struct {
		name        string
		contentType string
		payload     string
		wantErr     bool
	}{
		{"valid", "application/json", `{"username":"alice"}`, false},
		{"charset suffix", "application/json; charset=utf-8", `{"username":"alice"}`, false},
		{"unknown field", "application/json", `{"username":"alice","admin":true}`, true},
		{"trailing data", "application/json", `{"username":"alice"}{}`, true},
		{"form body", "application/x-www-form-urlencoded", `username=alice`, true},
		{"not json", "application/json", `nope`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.payload))
			req.Header.Set("Content-Type", tt.contentType)

			var b body
			err := httpx.DecodeJSON(httptest.NewRecorder(), req, &b, 0)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, "alice", b.Username)
		})
	}
}
