package wsevents

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestHubBroadcastsToSubscriber(t *testing.T) {
	pingInterval = 100 * time.Millisecond
	received := make(chan Event, 1)
	hub := NewHub()

	handler := func(w http.ResponseWriter, r *http.Request) {
		c, err := NewConn(w, r)
		require.NoError(t, err)
		hub.Subscribe(c)
		<-received
		c.Close()
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	srv := &http.Server{Handler: http.HandlerFunc(handler)}
	go srv.Serve(ln) //nolint:errcheck
	defer srv.Shutdown(context.Background())

	wsURL := "ws://" + ln.Addr().String() + "/"
	client, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer client.Close()

	// wait until the server side has subscribed
	for i := 0; i < 100 && hub.Count() == 0; i++ {
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, 1, hub.Count())

	hub.Broadcast(Event{Kind: EventVolume, SessionID: "abc", Payload: -20.0})

	var got Event
	err = client.ReadJSON(&got)
	require.NoError(t, err)
	require.Equal(t, EventVolume, got.Kind)
	require.Equal(t, "abc", got.SessionID)

	received <- got
}
