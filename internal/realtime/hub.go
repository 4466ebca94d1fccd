package realtime

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/charlesng35/taskhub/pkg/logger"
	"github.com/charlesng35/taskhub/pkg/metrics"
)

// Message represents a JSON payload delivered to realtime subscribers.
type Message struct {
	Stream string `json:"stream,omitempty"`
	Event  string `json:"event"`
	Data   any    `json:"data,omitempty"`
}

// ChatPayload is the body of a ReceiveMessage event.
type ChatPayload struct {
	SenderID string `json:"sender_id"`
	Text     string `json:"text"`
}

// Session is one live connection. Deliver must not block; it returns false when the
// message was dropped. OnClose registers a callback the connection layer runs once when
// the underlying connection ends.
type Session interface {
	ID() string
	Deliver(Message) bool
	OnClose(func())
}

// Relay forwards envelopes to other hub instances.
type Relay interface {
	Publish(ctx context.Context, env Envelope) error
}

// Hub maps groups (one per user id, plus optional fan-out group codes) to live sessions.
// Delivery is best effort: groups without members drop messages.
type Hub struct {
	mu       sync.RWMutex
	groups   map[string]map[Session]struct{}
	sessions map[Session]map[string]struct{}

	node       string
	relay      Relay
	bufferSize int
	log        *zap.Logger
}

// HubOption customises a Hub.
type HubOption func(*Hub)

// WithRelay forwards every local send to other nodes.
func WithRelay(relay Relay) HubOption {
	return func(h *Hub) {
		h.relay = relay
	}
}

// WithBufferSize sets the per-connection outbound buffer for websocket sessions.
func WithBufferSize(size int) HubOption {
	return func(h *Hub) {
		if size > 0 {
			h.bufferSize = size
		}
	}
}

// WithNodeID names this hub instance in relayed envelopes.
func WithNodeID(node string) HubOption {
	return func(h *Hub) {
		if node = strings.TrimSpace(node); node != "" {
			h.node = node
		}
	}
}

// NewHub constructs a realtime hub.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		groups:     make(map[string]map[Session]struct{}),
		sessions:   make(map[Session]map[string]struct{}),
		node:       uuid.NewString(),
		bufferSize: defaultBufferSize,
		log:        logger.WithModule("realtime"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// SetRelay attaches a relay after construction; the relay usually needs the hub first.
func (h *Hub) SetRelay(relay Relay) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.relay = relay
}

// NodeID returns the identifier used in relayed envelopes.
func (h *Hub) NodeID() string {
	return h.node
}

// Connect joins session to the group of userID and to any extra fan-out groups. Joining
// is idempotent. Membership is removed when the session closes. A blank userID is ignored.
func (h *Hub) Connect(session Session, userID string, groupCodes ...string) bool {
	userID = strings.TrimSpace(userID)
	if session == nil || userID == "" {
		return false
	}

	keys := []string{userGroup(userID)}
	for _, code := range groupCodes {
		if code = normalizeGroupCode(code); code != "" {
			keys = append(keys, codeGroup(code))
		}
	}

	h.mu.Lock()
	memberships, known := h.sessions[session]
	if !known {
		memberships = make(map[string]struct{}, len(keys))
		h.sessions[session] = memberships
	}
	for _, key := range keys {
		if h.groups[key] == nil {
			h.groups[key] = make(map[Session]struct{})
		}
		h.groups[key][session] = struct{}{}
		memberships[key] = struct{}{}
	}
	h.mu.Unlock()

	if !known {
		metrics.RealtimeSessions.Inc()
		session.OnClose(func() { h.disconnect(session) })
		h.log.Debug("session connected", zap.String("user_id", userID), zap.String("session", session.ID()))
	}
	return true
}

func (h *Hub) disconnect(session Session) {
	h.mu.Lock()
	memberships, ok := h.sessions[session]
	if ok {
		for key := range memberships {
			if members := h.groups[key]; members != nil {
				delete(members, session)
				if len(members) == 0 {
					delete(h.groups, key)
				}
			}
		}
		delete(h.sessions, session)
	}
	h.mu.Unlock()

	if ok {
		metrics.RealtimeSessions.Dec()
		h.log.Debug("session disconnected", zap.String("session", session.ID()))
	}
}

// SessionCount returns the number of connected sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// IsConnected reports whether userID has at least one live session.
func (h *Hub) IsConnected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[userGroup(strings.TrimSpace(userID))]) > 0
}

// BroadcastAll delivers a ReceiveMessage event to every connected session.
func (h *Hub) BroadcastAll(ctx context.Context, senderID, text string) error {
	return h.send(ctx, Envelope{Scope: ScopeAll, Sender: senderID, Message: chatMessage(senderID, text)})
}

// SendToUser delivers a ReceiveMessage event to every session of userID.
func (h *Hub) SendToUser(ctx context.Context, senderID, userID, text string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil
	}
	return h.send(ctx, Envelope{Scope: ScopeUser, Target: userID, Sender: senderID, Message: chatMessage(senderID, text)})
}

// SendDirect delivers a ReceiveMessage event to targetID and echoes it to the sender's
// own sessions so their other devices stay in sync.
func (h *Hub) SendDirect(ctx context.Context, senderID, targetID, text string) error {
	targetID = strings.TrimSpace(targetID)
	if targetID == "" {
		return nil
	}
	return h.send(ctx, Envelope{Scope: ScopeDirect, Target: targetID, Sender: strings.TrimSpace(senderID), Message: chatMessage(senderID, text)})
}

// NotifyUser pushes a notification lifecycle event to userID.
func (h *Hub) NotifyUser(ctx context.Context, userID, event string, data any) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil
	}
	return h.send(ctx, Envelope{Scope: ScopeUser, Target: userID, Message: Message{Stream: StreamNotifications, Event: event, Data: data}})
}

// NotifyGroup pushes a notification lifecycle event to every member of a fan-out group.
func (h *Hub) NotifyGroup(ctx context.Context, groupCode, event string, data any) error {
	groupCode = normalizeGroupCode(groupCode)
	if groupCode == "" {
		return nil
	}
	return h.send(ctx, Envelope{Scope: ScopeGroup, Target: groupCode, Message: Message{Stream: StreamNotifications, Event: event, Data: data}})
}

func (h *Hub) send(ctx context.Context, env Envelope) error {
	env.Origin = h.node
	h.deliverLocal(env)

	h.mu.RLock()
	relay := h.relay
	h.mu.RUnlock()
	if relay == nil {
		return nil
	}
	if err := relay.Publish(ctx, env); err != nil {
		h.log.Warn("relay publish failed", zap.String("scope", env.Scope), zap.Error(err))
		return err
	}
	return nil
}

// Receive delivers an envelope that arrived from another node. Envelopes published by
// this node are ignored since they were delivered locally already.
func (h *Hub) Receive(env Envelope) int {
	if env.Origin == h.node {
		return 0
	}
	return h.deliverLocal(env)
}

func (h *Hub) deliverLocal(env Envelope) int {
	targets := h.targets(env)

	delivered := 0
	for _, session := range targets {
		if session.Deliver(env.Message) {
			delivered++
			metrics.RealtimeDeliveries.WithLabelValues("delivered").Inc()
			continue
		}
		metrics.RealtimeDeliveries.WithLabelValues("dropped").Inc()
		h.log.Warn("dropping message for slow session", zap.String("session", session.ID()))
	}
	return delivered
}

// targets snapshots recipients so delivery happens without holding the hub lock.
func (h *Hub) targets(env Envelope) []Session {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[Session]struct{})
	var out []Session
	add := func(key string) {
		for session := range h.groups[key] {
			if _, dup := seen[session]; dup {
				continue
			}
			seen[session] = struct{}{}
			out = append(out, session)
		}
	}

	switch env.Scope {
	case ScopeAll:
		for session := range h.sessions {
			out = append(out, session)
		}
	case ScopeUser:
		add(userGroup(env.Target))
	case ScopeGroup:
		add(codeGroup(env.Target))
	case ScopeDirect:
		add(userGroup(env.Target))
		if env.Sender != "" {
			add(userGroup(env.Sender))
		}
	}
	return out
}

func chatMessage(senderID, text string) Message {
	return Message{
		Stream: StreamChat,
		Event:  EventReceiveMessage,
		Data:   ChatPayload{SenderID: senderID, Text: text},
	}
}

func normalizeGroupCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}
