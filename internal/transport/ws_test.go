package transport

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongjun500/chat-relay/internal/chat"
)

func startWS(t *testing.T, capacity int) (*httptest.Server, *chat.Registry, *Gateway) {
	t.Helper()
	reg := chat.NewRegistry(capacity)
	gw := NewGateway(reg, nil, Options{})
	srv := httptest.NewServer(NewWSServer(gw))
	t.Cleanup(func() {
		gw.Close()
		srv.Close()
	})
	return srv, reg, gw
}

func dialWS(t *testing.T, srv *httptest.Server, name string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(name)))
	return conn
}

func readWS(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	return string(data)
}

func TestWebSocketJoinsSameRegistry(t *testing.T) {
	srv, reg, _ := startWS(t, 4)

	a := dialWS(t, srv, "alice")
	require.Eventually(t, func() bool { return reg.Len() == 1 }, 2*time.Second, 5*time.Millisecond)
	b := dialWS(t, srv, "bob")
	require.Eventually(t, func() bool { return reg.Len() == 2 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte("hello")))
	assert.Equal(t, "alice: hello\n", readWS(t, b))

	require.NoError(t, b.WriteMessage(websocket.TextMessage, []byte("@alice psst")))
	assert.Equal(t, "bob: psst\n", readWS(t, a))

	require.NoError(t, a.Close())
	require.Eventually(t, func() bool { return reg.Len() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"bob"}, reg.Names())
}

func TestWebSocketServerFull(t *testing.T) {
	srv, reg, _ := startWS(t, 1)

	dialWS(t, srv, "alice")
	require.Eventually(t, func() bool { return reg.Len() == 1 }, 2*time.Second, 5*time.Millisecond)

	late := dialWS(t, srv, "bob")
	assert.Equal(t, ServerFullMessage, readWS(t, late))

	require.NoError(t, late.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := late.ReadMessage()
	assert.Error(t, err)
	assert.Equal(t, 1, reg.Len())
}

func TestWebSocketMixesWithTCP(t *testing.T) {
	tcp := startTCP(t, 4, Options{})
	ws := httptest.NewServer(NewWSServer(tcp.gw))
	t.Cleanup(ws.Close)

	tc := tcp.join(t, "tcp-user")
	wc := dialWS(t, ws, "ws-user")
	tcp.waitLen(t, 2)

	_, err := tc.Write([]byte("@ws-user hi there\n"))
	require.NoError(t, err)
	assert.Equal(t, "tcp-user: hi there\n", readWS(t, wc))

	require.NoError(t, wc.WriteMessage(websocket.TextMessage, []byte("back at you")))
	expectRead(t, tc, "ws-user: back at you\n")
}
