package federation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// fakeProvider serves a token endpoint and a user info endpoint.
func fakeProvider(t *testing.T, userInfo string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.Form.Get("code") != "good-code" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"provider-at","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("GET /userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer provider-at" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(userInfo))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestRegistry(t *testing.T, srv *httptest.Server, name string) *Registry {
	t.Helper()

	reg, err := NewRegistry(map[string]ProviderConfig{
		name: {
			ClientID:     "client",
			ClientSecret: "secret",
			RedirectURL:  "http://localhost/login/oauth2/code/" + name,
			Endpoint: oauth2.Endpoint{
				AuthURL:   srv.URL + "/authorize",
				TokenURL:  srv.URL + "/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
			UserInfoURL: srv.URL + "/userinfo",
		},
	}, srv.Client())
	require.NoError(t, err)
	return reg
}

func TestClientExchange(t *testing.T) {
	srv := fakeProvider(t, `{"id":987654321,"kakao_account":{"profile":{"nickname":"Ryan"}}}`)
	reg := newTestRegistry(t, srv, Kakao)

	c, err := reg.Lookup(Kakao)
	require.NoError(t, err)
	require.Equal(t, Kakao, c.Name())

	raw, err := c.Exchange(context.Background(), "good-code")
	require.NoError(t, err)

	id, err := Extract(c.Name(), raw)
	require.NoError(t, err)
	require.Equal(t, "kakao_987654321", id.Username())
	require.Equal(t, "Ryan", id.Name)
}

func TestClientExchangeRejectedCode(t *testing.T) {
	srv := fakeProvider(t, `{}`)
	c, err := newTestRegistry(t, srv, Google).Lookup(Google)
	require.NoError(t, err)

	_, err = c.Exchange(context.Background(), "bad-code")
	require.ErrorIs(t, err, ErrExchangeFailed)
}

func TestClientAuthCodeURL(t *testing.T) {
	srv := fakeProvider(t, `{}`)
	c, err := newTestRegistry(t, srv, Naver).Lookup(Naver)
	require.NoError(t, err)

	u, err := url.Parse(c.AuthCodeURL("state-123"))
	require.NoError(t, err)
	require.Equal(t, "/authorize", u.Path)
	require.Equal(t, "state-123", u.Query().Get("state"))
	require.Equal(t, "client", u.Query().Get("client_id"))
	require.Equal(t, "code", u.Query().Get("response_type"))
}

func TestRegistry(t *testing.T) {
	reg, err := NewRegistry(map[string]ProviderConfig{
		Google: {ClientID: "g"},
		Naver:  {}, // no client id, not enabled
		Kakao:  {ClientID: "k"},
	}, nil)
	require.NoError(t, err)
	require.Equal(t, []string{Google, Kakao}, reg.Names())

	_, err = reg.Lookup(Naver)
	require.ErrorIs(t, err, ErrUnsupportedProvider)

	_, err = NewRegistry(map[string]ProviderConfig{"github": {ClientID: "x"}}, nil)
	require.ErrorIs(t, err, ErrUnsupportedProvider)
}
