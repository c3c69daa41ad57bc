package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/aussiebroadwan/techpost/internal/auth/authn"
	"github.com/aussiebroadwan/techpost/pkg/slogx"
)

// ChannelFunc serves an authenticated channel until it returns. The
// channel is closed afterwards.
type ChannelFunc func(ctx context.Context, ch *authn.Channel) error

// ChannelHandler upgrades /ws connections through the interceptor and hands
// them to Serve.
type ChannelHandler struct {
	Interceptor *authn.ChannelInterceptor
	Serve       ChannelFunc
}

// Envelope is the frame EchoChannel sends back.
type Envelope struct {
	Type        string          `json:"type"`
	Username    string          `json:"username"`
	DisplayName string          `json:"displayName"`
	Payload     json.RawMessage `json:"payload"`
}

// ServeHTTP godoc
//
//	@Summary		WebSocket channel
//	@Description	Authenticates with the upgrade request's Authorization header or a first CONNECT frame
//	@Description	{"type":"CONNECT","authorization":"Bearer ..."}. Failures close with 1008 and the reason code.
//	@Tags			Channel
//	@Success		101
//	@Router			/ws [get].
func (h *ChannelHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ch, err := h.Interceptor.Accept(w, r)
	if err != nil {
		return
	}

	ctx := slogx.WithUser(r.Context(), ch.Principal().Username)
	serve := h.Serve
	if serve == nil {
		serve = EchoChannel
	}

	if err := serve(ctx, ch); err != nil {
		switch websocket.CloseStatus(err) {
		case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		default:
			slogx.FromContext(ctx).Debug("channel ended", "error", err)
		}
	}
	_ = ch.Close(websocket.StatusNormalClosure, "")
}

// EchoChannel returns every JSON frame to its sender, stamped with the
// authenticated username and display name.
func EchoChannel(ctx context.Context, ch *authn.Channel) error {
	for {
		var payload json.RawMessage
		if err := wsjson.Read(ctx, ch.Conn(), &payload); err != nil {
			return err
		}
		p := ch.Principal()
		out := Envelope{Type: "ECHO", Username: p.Username, DisplayName: p.DisplayName, Payload: payload}
		if err := wsjson.Write(ctx, ch.Conn(), out); err != nil {
			return err
		}
	}
}
