package federation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

var ErrExchangeFailed = errors.New("federation: code exchange failed")

const (
	defaultRequestTimeout = 10 * time.Second

	// maxUserInfoBytes caps the user info document.
	maxUserInfoBytes = 1 << 20
)

var (
	naverEndpoint = oauth2.Endpoint{
		AuthURL:   "https://nid.naver.com/oauth2.0/authorize",
		TokenURL:  "https://nid.naver.com/oauth2.0/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
	kakaoEndpoint = oauth2.Endpoint{
		AuthURL:   "https://kauth.kakao.com/oauth/authorize",
		TokenURL:  "https://kauth.kakao.com/oauth/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
)

type defaults struct {
	endpoint    oauth2.Endpoint
	userInfoURL string
	scopes      []string
}

var providerDefaults = map[string]defaults{
	Google: {
		endpoint:    google.Endpoint,
		userInfoURL: "https://openidconnect.googleapis.com/v1/userinfo",
		scopes:      []string{"openid", "profile", "email"},
	},
	Naver: {
		endpoint:    naverEndpoint,
		userInfoURL: "https://openapi.naver.com/v1/nid/me",
		scopes:      []string{"name", "email"},
	},
	Kakao: {
		endpoint:    kakaoEndpoint,
		userInfoURL: "https://kapi.kakao.com/v2/user/me",
		scopes:      []string{"profile_nickname", "account_email"},
	},
}

// ProviderConfig registers one provider. Endpoint and UserInfoURL default to
// the provider's public endpoints when left empty.
type ProviderConfig struct {
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	RedirectURL  string   `yaml:"redirect_url"`
	Scopes       []string `yaml:"scopes"`

	Endpoint    oauth2.Endpoint `yaml:"-"`
	UserInfoURL string          `yaml:"user_info_url"`
}

// Client performs the authorization code flow against one provider.
type Client struct {
	name        string
	conf        *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
}

func (c *Client) Name() string { return c.name }

// AuthCodeURL is where the browser is sent to start a login.
func (c *Client) AuthCodeURL(state string) string {
	return c.conf.AuthCodeURL(state)
}

// Exchange trades an authorization code for the provider's user info
// attributes.
func (c *Client) Exchange(ctx context.Context, code string) (map[string]any, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	tok, err := c.conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrExchangeFailed, c.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.conf.Client(ctx, tok).Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s user info: %w", ErrExchangeFailed, c.name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUserInfoBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %s user info: %w", ErrExchangeFailed, c.name, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s user info: status %d", ErrExchangeFailed, c.name, resp.StatusCode)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %s user info: %w", ErrExchangeFailed, c.name, err)
	}
	return raw, nil
}

// Registry holds the configured providers.
type Registry struct {
	clients map[string]*Client
}

// NewRegistry builds a client per configured provider. Providers without a
// client id are skipped. A nil httpClient gets a client with a 10s timeout.
func NewRegistry(cfgs map[string]ProviderConfig, httpClient *http.Client) (*Registry, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}

	r := &Registry{clients: make(map[string]*Client, len(cfgs))}
	for name, cfg := range cfgs {
		d, ok := providerDefaults[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, name)
		}
		if cfg.ClientID == "" {
			continue
		}

		endpoint := cfg.Endpoint
		if endpoint.AuthURL == "" && endpoint.TokenURL == "" {
			endpoint = d.endpoint
		}
		userInfoURL := cfg.UserInfoURL
		if userInfoURL == "" {
			userInfoURL = d.userInfoURL
		}
		scopes := cfg.Scopes
		if len(scopes) == 0 {
			scopes = d.scopes
		}

		r.clients[name] = &Client{
			name: name,
			conf: &oauth2.Config{
				ClientID:     cfg.ClientID,
				ClientSecret: cfg.ClientSecret,
				RedirectURL:  cfg.RedirectURL,
				Scopes:       append([]string(nil), scopes...),
				Endpoint:     endpoint,
			},
			userInfoURL: userInfoURL,
			httpClient:  httpClient,
		}
	}
	return r, nil
}

// Lookup returns the client of a configured provider.
func (r *Registry) Lookup(name string) (*Client, error) {
	c, ok := r.clients[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, name)
	}
	return c, nil
}

// Names lists the configured providers in lexical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
