package server

import (
	"net"
	"net/http"
	"testing"
	"time"

	"atomvideo/internal/testutil"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationsWebSocket_DeliversToTicketHolder(t *testing.T) {
	_, rdb := newMiniRedis(t)
	s, db := newTestServer(t, nil, rdb)
	user := testutil.CreateUser(t, db)

	resp := doJSON(t, s, http.MethodPost, "/api/ws/ticket", tokenFor(t, s, user), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var issued struct {
		Ticket string `json:"ticket"`
	}
	decode(t, resp, &issued)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = s.App().Listener(ln) }()
	t.Cleanup(func() { _ = s.App().Shutdown() })

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/api/ws?ticket="+issued.Ticket, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return s.hub.Connections(user.ID) == 1 }, 2*time.Second, 10*time.Millisecond)

	s.hub.Deliver(user.ID, []byte(`{"type":"new_video"}`))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"new_video"}`, string(msg))

	_, _, err = websocket.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/api/ws?ticket="+issued.Ticket, nil)
	assert.ErrorIs(t, err, websocket.ErrBadHandshake)
}
