package push

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"civicdesk/pkg/platform/middleware/auth"
)

const (
	EventJoin   = "join"
	EventJoined = "joined"
	EventError  = "error"

	sendBuffer   = 32
	writeTimeout = 10 * time.Second
	readLimit    = 8 << 10
)

type inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type joinRequest struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
	Token  string `json:"token"`
}

// WSHandler upgrades GET /ws and binds the connection to hub rooms once the
// client sends a join event.
type WSHandler struct {
	hub            *Hub
	validator      auth.JWTValidator
	logger         *slog.Logger
	originPatterns []string
}

// NewWSHandler builds the websocket endpoint. With a validator, join events must
// carry a token whose subject matches userId, and the room role comes from the
// token. Without one, the join payload is trusted.
func NewWSHandler(hub *Hub, validator auth.JWTValidator, logger *slog.Logger, originPatterns ...string) *WSHandler {
	return &WSHandler{hub: hub, validator: validator, logger: logger, originPatterns: originPatterns}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.originPatterns})
	if err != nil {
		h.logger.WarnContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}
	conn.SetReadLimit(readLimit)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := &wsClient{send: make(chan Event, sendBuffer), done: ctx.Done()}
	go client.writeLoop(ctx, conn, cancel)

	defer func() {
		h.hub.Leave(client)
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		var msg inbound
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if websocket.CloseStatus(err) == -1 && !errors.Is(err, context.Canceled) {
				h.logger.Debug("websocket read ended", "error", err)
			}
			return
		}
		if msg.Event != EventJoin {
			continue
		}
		var req joinRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			client.Deliver(Event{Event: EventError, Data: "malformed join payload"})
			continue
		}
		userID, role, err := h.authorize(req)
		if err != nil {
			client.Deliver(Event{Event: EventError, Data: err.Error()})
			continue
		}
		h.hub.Join(client, userID, role)
		client.Deliver(Event{Event: EventJoined, Data: map[string]string{"userId": userID, "role": role}})
	}
}

func (h *WSHandler) authorize(req joinRequest) (string, string, error) {
	if h.validator == nil {
		if req.UserID == "" {
			return "", "", errors.New("userId is required")
		}
		return req.UserID, req.Role, nil
	}
	claims, err := h.validator.ValidateToken(req.Token)
	if err != nil {
		return "", "", errors.New("invalid or expired token")
	}
	if req.UserID != "" && req.UserID != claims.UserID {
		return "", "", errors.New("userId does not match token")
	}
	return claims.UserID, claims.Role, nil
}

type wsClient struct {
	send chan Event
	done <-chan struct{}
}

func (c *wsClient) Deliver(ev Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- ev:
		return true
	default:
		return false
	}
}

func (c *wsClient) writeLoop(ctx context.Context, conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-c.send:
			wctx, wcancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, conn, ev)
			wcancel()
			if err != nil {
				return
			}
		}
	}
}
