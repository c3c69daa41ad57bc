package authn

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/aussiebroadwan/techpost/internal/auth/domain"
	"github.com/aussiebroadwan/techpost/internal/auth/service"
	"github.com/aussiebroadwan/techpost/pkg/httpx"
	"github.com/aussiebroadwan/techpost/pkg/slogx"
)

const DefaultConnectTimeout = 10 * time.Second

// Frame types of the connect handshake.
const (
	FrameConnect   = "CONNECT"
	FrameConnected = "CONNECTED"
)

// ConnectFrame is the first client frame when the upgrade request carried no
// Authorization header.
type ConnectFrame struct {
	Type          string `json:"type"`
	Authorization string `json:"authorization"`
}

// ConnectedFrame acknowledges a frame based handshake.
type ConnectedFrame struct {
	Type        string `json:"type"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
}

// Channel is an authenticated WebSocket connection. Its principal is fixed
// for the lifetime of the connection.
type Channel struct {
	conn      *websocket.Conn
	principal domain.Principal
}

func (c *Channel) Principal() domain.Principal { return c.principal }
func (c *Channel) Conn() *websocket.Conn       { return c.conn }

func (c *Channel) Close(code websocket.StatusCode, reason string) error {
	return c.conn.Close(code, reason)
}

// ChannelInterceptor authenticates WebSocket connections with the same
// checks as the HTTP Filter. There are no anonymous channels: a connection
// that fails is closed with 1008 and the reason code.
type ChannelInterceptor struct {
	Auth           *Authenticator
	ConnectTimeout time.Duration
	AcceptOptions  *websocket.AcceptOptions
}

// Accept upgrades the request and authenticates the connection, from the
// upgrade request's Authorization header or else from a CONNECT frame.
func (ci *ChannelInterceptor) Accept(w http.ResponseWriter, r *http.Request) (*Channel, error) {
	l := slogx.FromContext(r.Context())

	conn, err := websocket.Accept(w, r, ci.AcceptOptions)
	if err != nil {
		return nil, err
	}

	token, fromHeader := httpx.BearerToken(r)
	if !fromHeader && r.Header.Get("Authorization") != "" {
		l.Info("websocket authentication failed", "reason", ReasonCode(service.ErrInvalidToken))
		ci.reject(conn, service.ErrInvalidToken)
		return nil, service.ErrInvalidToken
	}
	if !fromHeader {
		token, err = ci.readConnect(r.Context(), conn)
		if err != nil {
			l.Info("websocket handshake failed", "error", err)
			ci.reject(conn, err)
			return nil, err
		}
	}

	p, err := ci.Auth.Authenticate(r.Context(), token)
	if err != nil {
		l.Info("websocket authentication failed", "reason", ReasonCode(err))
		ci.reject(conn, err)
		return nil, err
	}

	if !fromHeader {
		ctx, cancel := context.WithTimeout(r.Context(), ci.timeout())
		err := wsjson.Write(ctx, conn, ConnectedFrame{
			Type:        FrameConnected,
			Username:    p.Username,
			DisplayName: p.DisplayName,
		})
		cancel()
		if err != nil {
			_ = conn.CloseNow()
			return nil, err
		}
	}

	return &Channel{conn: conn, principal: p}, nil
}

// readConnect waits for the CONNECT frame. A read whose context expires
// tears the connection down without a close frame, so the deadline closes
// the connection with 1008 instead.
func (ci *ChannelInterceptor) readConnect(ctx context.Context, conn *websocket.Conn) (string, error) {
	deadline := time.AfterFunc(ci.timeout(), func() {
		ci.reject(conn, service.ErrAccessTokenMissing)
	})

	var frame ConnectFrame
	err := wsjson.Read(ctx, conn, &frame)
	if !deadline.Stop() {
		return "", fmt.Errorf("%w: no connect frame within %s", service.ErrAccessTokenMissing, ci.timeout())
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", service.ErrAccessTokenMissing, err)
	}
	if frame.Type != FrameConnect {
		return "", fmt.Errorf("%w: first frame %q", service.ErrAccessTokenMissing, frame.Type)
	}

	token, ok := httpx.ParseBearer(frame.Authorization)
	if !ok {
		if frame.Authorization == "" {
			return "", service.ErrAccessTokenMissing
		}
		return "", service.ErrInvalidToken
	}
	return token, nil
}

func (ci *ChannelInterceptor) reject(conn *websocket.Conn, err error) {
	_ = conn.Close(websocket.StatusPolicyViolation, ReasonCode(err))
}

func (ci *ChannelInterceptor) timeout() time.Duration {
	if ci.ConnectTimeout > 0 {
		return ci.ConnectTimeout
	}
	return DefaultConnectTimeout
}
