// Package gateway accepts authenticated long-lived WebSocket
// connections and binds them to the presence registry.
//
// Each connection moves through connecting → authenticated → active →
// closed. The handshake must carry a bearer token; a missing or invalid
// token rejects the connection before the upgrade, so it never becomes
// active and never touches the registry. While active, inbound events
// are dispatched to handlers that fail independently: a handler error
// is pushed back as a scoped error event and the connection stays open.
// Transport closure, graceful or abrupt, runs deregistration and the
// offline broadcast exactly once.
package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"messenger-lab/auth"
	"messenger-lab/domain"
	"messenger-lab/observability"
	"messenger-lab/presence"
	"messenger-lab/repositories"
	"messenger-lab/services"
	"messenger-lab/sink"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

type Gateway struct {
	log        *slog.Logger
	tokens     *auth.TokenManager
	users      repositories.IUserRepository
	messages   services.IMessageService
	registry   *presence.Registry
	monitor    *observability.Monitor
	upgrader   websocket.Upgrader
	bufferSize int
}

func NewGateway(
	log *slog.Logger,
	tokens *auth.TokenManager,
	users repositories.IUserRepository,
	messages services.IMessageService,
	registry *presence.Registry,
	monitor *observability.Monitor,
	allowedOrigin string,
	bufferSize int,
) *Gateway {
	return &Gateway{
		log:        log,
		tokens:     tokens,
		users:      users,
		messages:   messages,
		registry:   registry,
		monitor:    monitor,
		bufferSize: bufferSize,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "*" {
					return true
				}
				origin := r.Header.Get("Origin")
				return origin == "" || origin == allowedOrigin
			},
		},
	}
}

// Handle is the WebSocket endpoint. Authentication happens before the
// upgrade: a connection that fails the handshake never processes any
// event and leaves no registry entry behind.
func (g *Gateway) Handle(w http.ResponseWriter, r *http.Request) {
	user, err := g.authenticate(r)
	if err != nil {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Warn("websocket upgrade failed", "user_id", user.ID, "error", err)
		return
	}

	g.log.Info("user connected", "user_id", user.ID, "username", user.Username)
	g.serve(conn, user)
}

func (g *Gateway) authenticate(r *http.Request) (domain.User, error) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if token == "" || token == r.Header.Get("Authorization") {
		token = r.URL.Query().Get("token")
	}
	claims, err := g.tokens.Validate(token)
	if err != nil {
		return domain.User{}, err
	}
	// The token may outlive the account; the directory decides.
	return g.users.GetByID(claims.UserID)
}

// serve runs one active connection until its transport closes. Inbound
// handling stays independent per connection: this goroutine reads, a
// second goroutine drains the sink into the socket.
func (g *Gateway) serve(conn *websocket.Conn, user domain.User) {
	connSink := sink.NewChannelSink(g.log, g.bufferSize)
	g.monitor.ConnOpened()
	g.registry.Register(user.ID, connSink)
	if _, err := g.users.SetPresence(user.ID, true, time.Now().UTC()); err != nil {
		g.log.Error("presence update failed on connect", "user_id", user.ID, "error", err)
	}

	var once sync.Once
	teardown := func() {
		once.Do(func() {
			connSink.Close()
			_ = conn.Close()
			g.monitor.ConnClosed()
			// Deregister only succeeds for the current session, so a
			// superseded connection cannot broadcast a false offline.
			if g.registry.Deregister(user.ID, connSink) {
				ctx := context.Background()
				if err := g.messages.UpdateStatus(ctx, user.ID, false); err != nil {
					g.log.Error("offline transition failed", "user_id", user.ID, "error", err)
				}
			}
			g.log.Info("user disconnected", "user_id", user.ID, "username", user.Username)
		})
	}
	defer teardown()

	go g.writePump(conn, connSink, user.ID, teardown)
	g.readLoop(conn, connSink, user)
}

// writePump owns all writes to the socket: sink events, pings and the
// close frame. It exits when the sink is closed (connection superseded
// or torn down) or a write fails.
func (g *Gateway) writePump(conn *websocket.Conn, connSink *sink.ChannelSink, userID string, teardown func()) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer teardown()

	for {
		select {
		case <-connSink.Done():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
			return
		case e := <-connSink.Events:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(outbound(e)); err != nil {
				g.log.Warn("event push failed", "user_id", userID, "event", e.EventName(), "error", err)
				return
			}
			g.monitor.EventDelivered()
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop dispatches inbound events until the transport drops. Abrupt
// disconnection is the default assumption: any read error ends the
// loop and the deferred teardown handles the rest.
func (g *Gateway) readLoop(conn *websocket.Conn, connSink *sink.ChannelSink, user domain.User) {
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var env Envelope
		if err := conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				g.log.Warn("connection dropped", "user_id", user.ID, "error", err)
			}
			return
		}
		g.dispatch(connSink, user, env)
	}
}
