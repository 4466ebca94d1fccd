package realtime

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10

	defaultBufferSize = 64
)

// Control actions accepted from websocket clients.
const (
	ActionBroadcastMessage  = "broadcast_message"
	ActionSendToUser        = "send_to_user"
	ActionSendMessageToUser = "send_message_to_user"
	ActionPing              = "ping"
)

type controlMessage struct {
	Action string `json:"action"`
	UserID string `json:"user_id"`
	Text   string `json:"text"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// Allow same-origin requests and explicit localhost development.
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		originHost := hostWithoutPort(origin)
		requestHost := hostWithoutPort(r.Host)
		return originHost == requestHost || isLoopback(originHost)
	},
}

// Serve upgrades the HTTP connection to a WebSocket, joins it to the user's group and
// any fan-out groups, and blocks until the connection ends.
func (h *Hub) Serve(userID string, groupCodes []string, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	session := newWSSession(h, conn, userID, h.bufferSize)
	h.Connect(session, userID, groupCodes...)

	go session.writeLoop()
	session.readLoop(r.Context())
}

type wsSession struct {
	id     string
	hub    *Hub
	socket *websocket.Conn
	userID string
	send   chan Message
	done   chan struct{}

	mu      sync.Mutex
	closed  bool
	onClose []func()
}

func newWSSession(hub *Hub, conn *websocket.Conn, userID string, buffer int) *wsSession {
	if buffer <= 0 {
		buffer = defaultBufferSize
	}
	return &wsSession{
		id:     userID + "/" + conn.RemoteAddr().String(),
		hub:    hub,
		socket: conn,
		userID: userID,
		send:   make(chan Message, buffer),
		done:   make(chan struct{}),
	}
}

func (s *wsSession) ID() string {
	return s.id
}

// Deliver enqueues without blocking. A full buffer closes the session.
func (s *wsSession) Deliver(message Message) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	select {
	case s.send <- message:
		s.mu.Unlock()
		return true
	default:
		s.mu.Unlock()
		go s.close()
		return false
	}
}

func (s *wsSession) OnClose(fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		fn()
		return
	}
	s.onClose = append(s.onClose, fn)
	s.mu.Unlock()
}

func (s *wsSession) readLoop(ctx context.Context) {
	defer s.close()

	s.socket.SetReadLimit(maxMessageSize)
	_ = s.socket.SetReadDeadline(time.Now().Add(pongWait))
	s.socket.SetPongHandler(func(string) error {
		_ = s.socket.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, payload, err := s.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.hub.log.Info("unexpected websocket close", zap.String("user_id", s.userID), zap.Error(err))
			}
			return
		}
		if len(payload) == 0 {
			continue
		}

		var ctrl controlMessage
		if err := json.Unmarshal(payload, &ctrl); err != nil {
			s.hub.log.Debug("invalid control payload", zap.String("user_id", s.userID), zap.Error(err))
			continue
		}
		s.handleControl(ctx, ctrl)
	}
}

func (s *wsSession) handleControl(ctx context.Context, ctrl controlMessage) {
	switch strings.ToLower(strings.TrimSpace(ctrl.Action)) {
	case ActionBroadcastMessage:
		_ = s.hub.BroadcastAll(ctx, s.userID, ctrl.Text)
	case ActionSendToUser:
		_ = s.hub.SendToUser(ctx, s.userID, ctrl.UserID, ctrl.Text)
	case ActionSendMessageToUser:
		_ = s.hub.SendDirect(ctx, s.userID, ctrl.UserID, ctrl.Text)
	case ActionPing:
		s.Deliver(Message{Event: EventPong})
	default:
		s.hub.log.Debug("unsupported control action", zap.String("action", ctrl.Action), zap.String("user_id", s.userID))
	}
}

func (s *wsSession) writeLoop() {
	defer s.close()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			_ = s.socket.SetWriteDeadline(time.Now().Add(writeWait))
			_ = s.socket.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case message := <-s.send:
			_ = s.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.socket.WriteJSON(message); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *wsSession) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	callbacks := s.onClose
	s.onClose = nil
	close(s.done)
	s.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
	_ = s.socket.Close()
}

func hostWithoutPort(host string) string {
	host = strings.TrimSpace(host)
	if host == "" {
		return ""
	}

	if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		parsed, err := http.NewRequest(http.MethodGet, host, nil)
		if err == nil {
			return hostWithoutPort(parsed.URL.Host)
		}
	}

	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}

func isLoopback(host string) bool {
	ip := net.ParseIP(host)
	if ip != nil {
		return ip.IsLoopback()
	}
	return strings.EqualFold(host, "localhost")
}
