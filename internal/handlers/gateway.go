package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/parleychat/parley-backend/internal/models"
	"github.com/parleychat/parley-backend/internal/services"
	"github.com/parleychat/parley-backend/pkg/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS for WebSocket is handled at the HTTP layer already.
		return true
	},
}

// inboundFrame is what clients send: an event label plus an opaque payload.
type inboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// peerConn wraps a WebSocket connection with a write mutex. Gorilla
// connections support one concurrent writer only, and both the reader loop
// and the relay dispatcher write to the same socket.
type peerConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *peerConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *peerConn) Close() error {
	return c.conn.Close()
}

// Gateway is the per-connection event channel: presence registration,
// message relay, conversation queries and WebRTC signaling all flow through
// here.
type Gateway struct {
	auth      *services.Authenticator
	presence  *services.PresenceRegistry
	messages  *services.MessageStore
	relay     *services.RelayDispatcher
	signaling *services.SignalingForwarder
}

func NewGateway(
	auth *services.Authenticator,
	presence *services.PresenceRegistry,
	messages *services.MessageStore,
	relay *services.RelayDispatcher,
	signaling *services.SignalingForwarder,
) *Gateway {
	return &Gateway{
		auth:      auth,
		presence:  presence,
		messages:  messages,
		relay:     relay,
		signaling: signaling,
	}
}

// ServeWS upgrades the connection and runs the event loop until the client
// disconnects. Authentication uses the session token (Authorization: Bearer
// <token>, or ?token= for browser WebSocket clients).
func (g *Gateway) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := extractBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		token = r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "missing session token", http.StatusUnauthorized)
			return
		}
	}

	username, err := g.auth.Verify(r.Context(), token)
	if err != nil {
		http.Error(w, "invalid session token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	pc := &peerConn{conn: conn}
	defer pc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	connID := uuid.NewString()

	// Double offline marking (read error plus a late close notification)
	// is harmless; MarkOffline is idempotent.
	defer g.presence.MarkOffline(ctx, connID)

	conn.SetReadLimit(64 * 1024)
	_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}

		g.dispatch(ctx, pc, connID, username, frame)
	}
}

func (g *Gateway) dispatch(ctx context.Context, pc *peerConn, connID, username string, frame inboundFrame) {
	if services.IsSignalingEvent(frame.Event) {
		g.signaling.Forward(frame.Event, frame.Data)
		return
	}

	switch frame.Event {
	case "register":
		g.handleRegister(ctx, pc, connID, username, frame.Data)
	case "getUserStatus":
		g.handleUserStatus(ctx, frame.Data)
	case "getAllMessages":
		g.handleAllMessages(frame.Data)
	case "sendMessage":
		g.handleSendMessage(ctx, username, frame.Data)
	case "editMessage":
		g.handleEditMessage(ctx, pc, username, frame.Data)
	case "deleteMessage":
		g.handleDeleteMessage(ctx, pc, username, frame.Data)
	case "deleteAllMessages":
		g.handleDeleteAllMessages(ctx, frame.Data)
	default:
		// Ignore unknown events.
	}
}

type registerPayload struct {
	Username string `json:"username"`
}

func (g *Gateway) handleRegister(ctx context.Context, pc *peerConn, connID, username string, data json.RawMessage) {
	var p registerPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}
	// The connection may only register the name its token was issued for.
	if utils.NormalizeUsername(p.Username) != username {
		return
	}
	g.presence.Register(ctx, username, connID, pc)
	log.Printf("user registered: %s (conn %s)", username, connID)
}

type conversationPayload struct {
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
}

func (g *Gateway) handleUserStatus(ctx context.Context, data json.RawMessage) {
	var p conversationPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}
	// Each side is told about the other. Asking about a user who never
	// connected seeds an offline entry, so there is always something to
	// report.
	g.presence.EnsureEntry(ctx, p.Receiver)
	g.presence.EnsureEntry(ctx, p.Sender)

	if entry, ok := g.presence.Lookup(p.Receiver); ok {
		g.relay.Forward(p.Sender, services.EventUserStatus, entry)
	}
	if entry, ok := g.presence.Lookup(p.Sender); ok {
		g.relay.Forward(p.Receiver, services.EventUserStatus, entry)
	}
}

func (g *Gateway) handleAllMessages(data json.RawMessage) {
	var p conversationPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}
	g.relay.Forward(p.Sender, services.EventAllMessages, g.messages.Conversation(p.Sender, p.Receiver))
}

type sendMessagePayload struct {
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
	Body     string `json:"body"`
}

func (g *Gateway) handleSendMessage(ctx context.Context, username string, data json.RawMessage) {
	var p sendMessagePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}
	if p.Sender != username || p.Body == "" || p.Receiver == "" {
		return
	}

	msg := g.messages.Append(ctx, p.Sender, p.Receiver, p.Body)

	// Best-effort delivery to both ends, self-echo included. One side
	// succeeding says nothing about the other.
	g.relay.Forward(p.Sender, services.EventReceiveMessage, msg)
	g.relay.Forward(p.Receiver, services.EventReceiveMessage, msg)
}

type editMessagePayload struct {
	ID        string `json:"id,omitempty"`
	Sender    string `json:"sender"`
	Receiver  string `json:"receiver"`
	Timestamp int64  `json:"timestamp"`
	Body      string `json:"body"`
}

type editAck struct {
	IsEdited bool            `json:"isEdited"`
	Message  *models.Message `json:"message,omitempty"`
}

func (g *Gateway) handleEditMessage(ctx context.Context, pc *peerConn, username string, data json.RawMessage) {
	var p editMessagePayload
	if err := json.Unmarshal(data, &p); err != nil || p.Sender != username {
		return
	}

	ref := models.Message{ID: p.ID, Sender: p.Sender, Receiver: p.Receiver, Timestamp: p.Timestamp}
	updated, ok := g.messages.Edit(ctx, ref, p.Body)

	ack := editAck{IsEdited: ok}
	if ok {
		ack.Message = &updated
	}
	if err := pc.WriteJSON(services.Frame{Event: services.EventMessageEdited, Data: ack}); err != nil {
		log.Printf("failed to ack edit to %s: %v", username, err)
	}
	if ok {
		g.relay.Forward(p.Receiver, services.EventMessageEdited, ack)
	}
}

type deleteMessagePayload struct {
	ID        string `json:"id,omitempty"`
	Sender    string `json:"sender"`
	Receiver  string `json:"receiver"`
	Timestamp int64  `json:"timestamp"`
}

type deleteAck struct {
	IsDeleted bool `json:"isDeleted"`
}

func (g *Gateway) handleDeleteMessage(ctx context.Context, pc *peerConn, username string, data json.RawMessage) {
	var p deleteMessagePayload
	if err := json.Unmarshal(data, &p); err != nil || p.Sender != username {
		return
	}

	ref := models.Message{ID: p.ID, Sender: p.Sender, Receiver: p.Receiver, Timestamp: p.Timestamp}
	deleted := g.messages.Delete(ctx, ref)

	if err := pc.WriteJSON(services.Frame{Event: services.EventMessageDeleted, Data: deleteAck{IsDeleted: deleted}}); err != nil {
		log.Printf("failed to ack delete to %s: %v", username, err)
	}
	if deleted {
		g.relay.Forward(p.Receiver, services.EventMessageDeleted, deleteAck{IsDeleted: true})
	}
}

func (g *Gateway) handleDeleteAllMessages(ctx context.Context, data json.RawMessage) {
	var p conversationPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}
	g.messages.DeleteConversation(ctx, p.Sender, p.Receiver)

	// Both peers get the rebuilt (now empty) conversation.
	empty := g.messages.Conversation(p.Sender, p.Receiver)
	g.relay.Forward(p.Sender, services.EventAllMessages, empty)
	g.relay.Forward(p.Receiver, services.EventAllMessages, empty)
}
