package websocket

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"github.com/robotalks/fport.go/pkg/telemetry/msgs"
)

func TestBroadcast(t *testing.T) {
	s := NewServer()
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + DefaultPath
	conn, err := websocket.Dial(url, "", srv.URL)
	require.NoError(t, err)
	defer conn.Close()

	deadline := time.Now().Add(time.Second)
	for s.Clients() == 0 {
		require.True(t, time.Now().Before(deadline), "client not registered")
		time.Sleep(time.Millisecond)
	}

	evt := &msgs.ChannelsEvent{Channels: []uint32{1500, 880}, Rssi: 80, HasStatus: true}
	s.Broadcast(evt)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	var received msgs.ChannelsEvent
	require.NoError(t, websocket.JSON.Receive(conn, &received))
	require.Equal(t, *evt, received)

	conn.Close()
	deadline = time.Now().Add(time.Second)
	for s.Clients() != 0 {
		require.True(t, time.Now().Before(deadline), "client not removed")
		time.Sleep(time.Millisecond)
	}
}
