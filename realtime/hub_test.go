package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestHubRunStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	c := newClient(7)
	hub.register(c)
	hub.PublishUser(7, "notificacao.nova", map[string]any{"id": 1})

	select {
	case msg := <-c.send:
		var ev Event
		require.NoError(t, json.Unmarshal(msg, &ev))
		assert.Equal(t, "notificacao.nova", ev.Tipo)
	case <-time.After(time.Second):
		t.Fatal("evento não entregue")
	}

	cancel()
	<-hub.Done()

	_, open := <-c.send
	assert.False(t, open, "send deve ser fechado ao parar o hub")
	assert.Equal(t, 0, hub.ConnectedUsers())
}

func TestPublishUserOnlyReachesThatUser(t *testing.T) {
	hub := NewHub()
	a := newClient(1)
	b := newClient(2)
	hub.register(a)
	hub.register(b)

	hub.deliver(envelope{userID: 1, data: []byte(`{"tipo":"x"}`)})

	assert.Len(t, a.send, 1)
	assert.Len(t, b.send, 0)

	hub.deliver(envelope{data: []byte(`{"tipo":"y"}`)})
	assert.Len(t, a.send, 2)
	assert.Len(t, b.send, 1)
}

func TestSlowClientIsDropped(t *testing.T) {
	hub := NewHub()
	c := newClient(3)
	hub.register(c)

	for i := 0; i < sendBuffer; i++ {
		hub.deliver(envelope{userID: 3, data: []byte("{}")})
	}
	assert.Equal(t, 1, hub.ConnectedUsers())

	hub.deliver(envelope{userID: 3, data: []byte("{}")})
	assert.Equal(t, 0, hub.ConnectedUsers())
}

func TestServeOverWebsocket(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Serve(conn, 42)
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ConnectedUsers() == 1 }, time.Second, 10*time.Millisecond)

	hub.Broadcast("demanda.status", map[string]any{"id": 10, "status": "respondida"})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev Event
	require.NoError(t, json.Unmarshal(msg, &ev))
	assert.Equal(t, "demanda.status", ev.Tipo)
	payload, ok := ev.Payload.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "respondida", payload["status"])
}
