package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aussiebroadwan/techpost/internal/auth/authn"
	"github.com/aussiebroadwan/techpost/internal/auth/domain"
	"github.com/aussiebroadwan/techpost/internal/auth/federation"
	"github.com/aussiebroadwan/techpost/internal/auth/service"
	"github.com/aussiebroadwan/techpost/pkg/httpx"
	"github.com/aussiebroadwan/techpost/pkg/slogx"

	_ "github.com/aussiebroadwan/techpost/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	Sessions      *service.SessionAuthority
	Unifier       *service.IdentityUnifier
	Authenticator *authn.Authenticator
	Providers     *federation.Registry // nil disables federated login
	Cookie        httpx.CookieConfig

	OAuthSuccessURL string
	OAuthFailureURL string

	// ChannelServe handles authenticated /ws channels, EchoChannel when nil.
	ChannelServe ChannelFunc

	// UsersPing and RevocationsPing back /readyz.
	UsersPing       Pinger
	RevocationsPing Pinger

	// Gatherer backs /metrics, prometheus.DefaultGatherer when nil.
	Gatherer prometheus.Gatherer
}

func NewRouter(buildVersion string, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		Cookie: httpx.CookieConfig{
			Name:     "refresh",
			Path:     "/",
			SameSite: http.SameSiteLaxMode,
		},
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerSession()
	r.registerFederated()
	r.registerAdmin()
	r.registerChannel()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			techpost Authentication Service API
//	@version		0.1.0
//	@description	Session authority for techpost: password and federated login, HS256 access tokens,
//	@description	rotating refresh tokens in an HttpOnly cookie, revocation and WebSocket channel authentication.
//
//	@contact.name	AussieBroadWAN Team
//	@contact.url	https://github.com/aussiebroadwan/techpost
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host			localhost:8080
//	@BasePath		/
//
//	@schemes		http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// filter authenticates bearer tokens and renders failures with the error
// catalogue.
func (r *Router) filter() httpx.Middleware {
	f := &authn.Filter{Auth: r.Authenticator, OnError: writeAuthError}
	return f.Middleware
}

func (r *Router) registerSession() {
	h := &SessionHandler{Sessions: r.Sessions, Cookie: r.Cookie}

	// Credential endpoints - strict rate limit by IP (brute force prevention)
	r.Mux.Handle("POST /api/auth/signup",
		httpx.Chain(http.HandlerFunc(h.HandleSignup),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /api/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// Reissue is deliberately unfiltered: the access token it carries is
	// usually expired.
	r.Mux.Handle("POST /api/auth/reissue",
		httpx.Chain(http.HandlerFunc(h.HandleReissue),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /api/auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle("POST /api/auth/logout-all",
		httpx.Chain(http.HandlerFunc(h.HandleLogoutAll),
			r.filter(),
			authn.RequireAuthenticated,
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("GET /api/auth/me",
		httpx.Chain(http.HandlerFunc(h.HandleMe),
			r.filter(),
			authn.RequireAuthenticated,
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerFederated() {
	h := &FederatedHandler{
		Providers:  r.Providers,
		Unifier:    r.Unifier,
		Sessions:   r.Sessions,
		Cookie:     r.Cookie,
		SuccessURL: r.OAuthSuccessURL,
		FailureURL: r.OAuthFailureURL,
	}

	r.Mux.Handle("GET /oauth2/authorization/{provider}",
		httpx.Chain(http.HandlerFunc(h.HandleAuthorize),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	// Callback - strict, every hit costs a provider round trip
	r.Mux.Handle("GET /login/oauth2/code/{provider}",
		httpx.Chain(http.HandlerFunc(h.HandleCallback),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerAdmin() {
	h := &SessionHandler{Sessions: r.Sessions, Cookie: r.Cookie}

	r.Mux.Handle("DELETE /api/admin/users/{username}/sessions",
		httpx.Chain(http.HandlerFunc(h.HandleRevokeUser),
			r.filter(),
			httpx.RequireRole(domain.RoleAdmin.String()),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerChannel() {
	// No Filter here: the interceptor authenticates after the upgrade so
	// failures close with 1008 instead of an HTTP error.
	r.Mux.Handle("GET /ws",
		httpx.Chain(&ChannelHandler{
			Interceptor: &authn.ChannelInterceptor{Auth: r.Authenticator},
			Serve:       r.ChannelServe,
		},
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerSystem() {
	// Health check endpoints - public rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.UsersPing, r.RevocationsPing),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)

	gatherer := r.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Mux.Handle("GET /metrics",
		httpx.Chain(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}
