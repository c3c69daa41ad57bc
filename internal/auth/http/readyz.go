package http

import (
	"context"
	"net/http"
	"time"

	"github.com/aussiebroadwan/techpost/pkg/authsdk"
	"github.com/aussiebroadwan/techpost/pkg/httpx"
)

// Pinger is anything /readyz can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

const readyzTimeout = 2 * time.Second

// ReadyzHandler godoc
//
//	@Summary		Readiness probe
//	@Description	Pings the user store and the revocation store. 503 when either is down, since no
//	@Description	session operation can succeed without both.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	authsdk.HealthResponse	"status, uptime, version, checks - service not ready"
//	@Router			/readyz [get].
func ReadyzHandler(startTime time.Time, version string, users, revocations Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyzTimeout)
		defer cancel()

		checks := &authsdk.HealthChecks{
			Database:    probe(ctx, users),
			Revocations: probe(ctx, revocations),
		}

		status, code := "ok", http.StatusOK
		if checks.Database != "ok" || checks.Revocations != "ok" {
			status, code = "degraded", http.StatusServiceUnavailable
		}

		httpx.WriteJSON(w, code, authsdk.HealthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Version: version,
			Checks:  checks,
		})
	}
}

func probe(ctx context.Context, p Pinger) string {
	if p == nil {
		return "error: not configured"
	}
	if err := p.Ping(ctx); err != nil {
		return "error: " + err.Error()
	}
	return "ok"
}
