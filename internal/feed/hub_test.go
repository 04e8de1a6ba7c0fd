package feed

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, h *Hub) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, _ := strconv.Atoi(r.URL.Query().Get("user"))
		h.ServeWS(w, r, userID, &Event{Type: "hello", Data: userID})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, userID int) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?user=" + strconv.Itoa(userID)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev map[string]any
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestHub_InitialEventAndPublish(t *testing.T) {
	h := NewHub(nil)
	srv := newTestServer(t, h)

	alice := dial(t, srv, 1)
	bob := dial(t, srv, 2)

	assert.Equal(t, "hello", readEvent(t, alice)["type"])
	assert.Equal(t, "hello", readEvent(t, bob)["type"])
	require.Eventually(t, func() bool { return h.Count(1) == 1 && h.Count(2) == 1 }, time.Second, 10*time.Millisecond)

	h.Publish(1, "trade", map[string]string{"symbol": "AAPL"})

	ev := readEvent(t, alice)
	assert.Equal(t, "trade", ev["type"])
	assert.Equal(t, map[string]any{"symbol": "AAPL"}, ev["data"])

	// Events are scoped to their user
	bob.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err := bob.ReadMessage()
	assert.Error(t, err)
}

func TestHub_MultipleConnectionsPerUser(t *testing.T) {
	h := NewHub(nil)
	srv := newTestServer(t, h)

	first := dial(t, srv, 7)
	second := dial(t, srv, 7)
	readEvent(t, first)
	readEvent(t, second)
	require.Eventually(t, func() bool { return h.Count(7) == 2 }, time.Second, 10*time.Millisecond)

	h.Publish(7, "portfolio", 42)
	assert.Equal(t, float64(42), readEvent(t, first)["data"])
	assert.Equal(t, float64(42), readEvent(t, second)["data"])
}

func TestHub_DisconnectUnsubscribes(t *testing.T) {
	h := NewHub(nil)
	srv := newTestServer(t, h)

	conn := dial(t, srv, 3)
	readEvent(t, conn)
	require.Eventually(t, func() bool { return h.Count(3) == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return h.Count(3) == 0 }, 2*time.Second, 10*time.Millisecond)

	// Publishing to a user with no connections is a no-op
	h.Publish(3, "trade", nil)
}
