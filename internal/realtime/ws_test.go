package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func dialHub(t *testing.T, hub *Hub, userID string) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(userID, nil, w, r)
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool { return hub.IsConnected(userID) }, 2*time.Second, 10*time.Millisecond)
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestWebsocketSendMessageToUser(t *testing.T) {
	hub := NewHub()
	alice := dialHub(t, hub, "alice")
	bob := dialHub(t, hub, "bob")

	require.NoError(t, alice.WriteJSON(map[string]string{
		"action":  ActionSendMessageToUser,
		"user_id": "bob",
		"text":    "hello bob",
	}))

	for _, conn := range []*websocket.Conn{bob, alice} {
		msg := readMessage(t, conn)
		require.Equal(t, EventReceiveMessage, msg.Event)
		data := msg.Data.(map[string]any)
		require.Equal(t, "alice", data["sender_id"])
		require.Equal(t, "hello bob", data["text"])
	}
}

func TestWebsocketPing(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub, "alice")

	require.NoError(t, conn.WriteJSON(map[string]string{"action": "ping"}))
	msg := readMessage(t, conn)
	require.Equal(t, EventPong, msg.Event)
}

func TestWebsocketDisconnectLeavesGroup(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub, "alice")

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return !hub.IsConnected("alice") }, 2*time.Second, 10*time.Millisecond)
}

func TestHostWithoutPort(t *testing.T) {
	require.Equal(t, "example.com", hostWithoutPort("https://example.com:8443"))
	require.Equal(t, "127.0.0.1", hostWithoutPort("127.0.0.1:80"))
	require.True(t, isLoopback("localhost"))
	require.False(t, isLoopback("example.com"))
}
