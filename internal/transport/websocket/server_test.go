package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func startHubServer(t *testing.T, hub *Hub, userID func(r *http.Request) int64) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.HandleWebSocket(w, r, userID(r))
	}))
	t.Cleanup(server.Close)
	return server
}

func dial(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + server.URL[4:] + query
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_RegisterAndUnregister(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	server := startHubServer(t, hub, func(*http.Request) int64 { return 1 })
	conn := dial(t, server, "")

	time.Sleep(100 * time.Millisecond)

	hub.mu.RLock()
	connections, exists := hub.connections[1]
	hub.mu.RUnlock()

	if !exists || len(connections) != 1 {
		t.Fatalf("expected 1 registered connection, got %d (exists=%v)", len(connections), exists)
	}

	conn.Close()
	time.Sleep(100 * time.Millisecond)

	hub.mu.RLock()
	_, exists = hub.connections[1]
	hub.mu.RUnlock()

	if exists {
		t.Fatal("connection should be unregistered after close")
	}
}

func TestHub_BroadcastToUser(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	server := startHubServer(t, hub, func(r *http.Request) int64 {
		if r.URL.Query().Get("user_id") == "2" {
			return 2
		}
		return 1
	})

	conn1 := dial(t, server, "?user_id=1")
	conn2 := dial(t, server, "?user_id=2")

	time.Sleep(100 * time.Millisecond)

	hub.Broadcast(1, &Message{
		Type:    "export_progress",
		Channel: "exports",
		Data:    map[string]interface{}{"progress": 50},
	})

	conn1.SetReadDeadline(time.Now().Add(time.Second))
	var received Message
	if err := conn1.ReadJSON(&received); err != nil {
		t.Fatalf("user 1 failed to read message: %v", err)
	}
	if received.Type != "export_progress" || received.UserID != 1 {
		t.Errorf("unexpected message %+v", received)
	}

	// user 2 must not see user 1's export events
	conn2.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	var leaked Message
	if err := conn2.ReadJSON(&leaked); err == nil {
		t.Errorf("user 2 received a message meant for user 1: %+v", leaked)
	}
}

func TestHub_BroadcastAll(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	server := startHubServer(t, hub, func(r *http.Request) int64 {
		if r.URL.Query().Get("user_id") == "2" {
			return 2
		}
		return 1
	})

	conn1 := dial(t, server, "?user_id=1")
	conn2 := dial(t, server, "?user_id=2")

	time.Sleep(100 * time.Millisecond)

	hub.BroadcastAll(&Message{
		Type:    "refresh_complete",
		Channel: "debts_refreshed",
		Data:    map[string]interface{}{"records": 1137},
	})

	for i, conn := range []*websocket.Conn{conn1, conn2} {
		conn.SetReadDeadline(time.Now().Add(time.Second))
		var received Message
		if err := conn.ReadJSON(&received); err != nil {
			t.Fatalf("connection %d failed to read broadcast: %v", i+1, err)
		}
		if received.Type != "refresh_complete" {
			t.Errorf("connection %d: expected refresh_complete, got %q", i+1, received.Type)
		}
	}
}

func TestHub_ShutdownClosesConnections(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	server := startHubServer(t, hub, func(*http.Request) int64 { return 1 })
	conn := dial(t, server, "")

	time.Sleep(50 * time.Millisecond)

	cancel()
	time.Sleep(100 * time.Millisecond)

	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected connection to be closed after hub shutdown")
	}
}
