// Package realtime provides the live presence and message-routing layer over
// WebSockets. Connections authenticate with a bearer token at open, are bound
// to their user in a Registry, and can route patient information to other
// online users point-to-point.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/vanuse/clinic/internal/platform/auth"
)

// Event is the wire envelope in both directions: inbound client frames and
// outbound server frames share the {"event": ..., "data": ...} shape.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Server-emitted event names.
const (
	EventConnectionStatus = "connection_status"
	EventNewPatientInfo   = "new_patient_info"
)

// Client-emitted event names.
const (
	EventSendPatientInfo = "send_patient_info"
)

// sendPatientInfo is the data payload of a send_patient_info frame.
type sendPatientInfo struct {
	RecipientID int64           `json:"recipient_id"`
	PatientInfo json.RawMessage `json:"patient_info"`
}

// Channel failure modes. All are handled locally: the hub logs and drops,
// and never reports them back over the socket.
var (
	ErrAuthenticationMissing = errors.New("authentication credential missing")
	ErrAuthenticationInvalid = errors.New("authentication credential invalid")
	ErrUnauthorizedRoute     = errors.New("sender connection is not bound")
	ErrRecipientOffline      = errors.New("recipient has no bound connection")
)

// Conn abstracts a WebSocket connection for testability.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client represents a single WebSocket connection.
type Client struct {
	ID   string
	Send chan []byte
	conn Conn
}

// Journal persists a record of a routed share so the recipient's inbox shows
// it even if they were offline at the time.
type Journal interface {
	Record(ctx context.Context, senderID, receiverID int64, message string) error
}

// Hub owns the set of live connections, binds them to users through the
// Registry, and routes patient-info messages between them. All operations
// are thread-safe via sync.RWMutex.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*Client // connection ID -> client
	registry *Registry
	verifier auth.TokenVerifier
	journal  Journal
	logger   zerolog.Logger
}

// NewHub creates a Hub. journal may be nil, in which case routed shares are
// not persisted.
func NewHub(registry *Registry, verifier auth.TokenVerifier, journal Journal, logger zerolog.Logger) *Hub {
	return &Hub{
		clients:  make(map[string]*Client),
		registry: registry,
		verifier: verifier,
		journal:  journal,
		logger:   logger,
	}
}

// Register adds a connected client to the hub. The client is not yet bound
// to a user; Authenticate does that.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
}

// Unregister removes a client, unbinds its connection, and closes its Send
// channel. Safe to call for a client that was never bound or already removed.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}

	h.registry.Unbind(client.ID)
	delete(h.clients, client.ID)
	close(client.Send)
}

// Authenticate verifies the credential presented at connection open and binds
// the connection to the token's user. Verification happens once per
// connection attempt; on failure the caller closes the socket and the client
// must reconnect to retry. On success the client receives a
// connection_status event.
func (h *Hub) Authenticate(client *Client, credential string) error {
	if credential == "" {
		h.logger.Warn().Str("conn_id", client.ID).Msg("connection rejected: missing credential")
		return ErrAuthenticationMissing
	}

	claims, err := h.verifier.Verify(credential)
	if err != nil {
		h.logger.Warn().Str("conn_id", client.ID).Err(err).Msg("connection rejected: invalid credential")
		return ErrAuthenticationInvalid
	}

	h.registry.Bind(client.ID, claims.UserID)
	h.logger.Info().Str("conn_id", client.ID).Int64("user_id", claims.UserID).Msg("connection bound")

	h.emit(client.ID, EventConnectionStatus, json.RawMessage(`"connected"`))
	return nil
}

// Route delivers a patient-info payload from the sender's connection to the
// recipient's most recently bound connection. Undeliverable messages are
// dropped; the sender is never notified over the socket.
func (h *Hub) Route(ctx context.Context, senderConnID string, recipientID int64, payload json.RawMessage) error {
	senderID, ok := h.registry.UserFor(senderConnID)
	if !ok {
		h.logger.Warn().Str("conn_id", senderConnID).Msg("route dropped: unauthorized sender")
		return ErrUnauthorizedRoute
	}

	h.record(ctx, senderID, recipientID, payload)

	connID, ok := h.registry.LookupConnection(recipientID)
	if !ok {
		h.logger.Info().
			Int64("sender_id", senderID).
			Int64("recipient_id", recipientID).
			Msg("route dropped: recipient offline")
		return ErrRecipientOffline
	}

	h.emit(connID, EventNewPatientInfo, payload)
	return nil
}

// ProcessMessage handles one inbound frame. Unknown events and malformed
// data are ignored.
func (h *Hub) ProcessMessage(ctx context.Context, client *Client, msg Event) {
	switch msg.Event {
	case EventSendPatientInfo:
		var req sendPatientInfo
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			return
		}
		_ = h.Route(ctx, client.ID, req.RecipientID, req.PatientInfo)
	}
}

// emit marshals an event and queues it on the target connection's Send
// channel. A full buffer or unknown connection drops the event. The read
// lock is held across the send: Unregister closes Send under the write
// lock, so the channel cannot be closed mid-send.
func (h *Hub) emit(connID, event string, data json.RawMessage) {
	frame, err := json.Marshal(Event{Event: event, Data: data})
	if err != nil {
		h.logger.Error().Err(err).Str("event", event).Msg("failed to marshal event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	client, ok := h.clients[connID]
	if !ok {
		return
	}

	select {
	case client.Send <- frame:
	default:
		// Client buffer full; skip to avoid blocking.
	}
}

// record journals a routed share. Failures are logged and never block the
// route.
func (h *Hub) record(ctx context.Context, senderID, receiverID int64, payload json.RawMessage) {
	if h.journal == nil {
		return
	}
	if err := h.journal.Record(ctx, senderID, receiverID, string(payload)); err != nil {
		h.logger.Error().Err(err).
			Int64("sender_id", senderID).
			Int64("receiver_id", receiverID).
			Msg("failed to journal routed share")
	}
}

// ClientCount returns the total number of connected clients, bound or not.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Registry exposes the hub's presence registry for the REST surface.
func (h *Hub) Registry() *Registry {
	return h.registry
}
