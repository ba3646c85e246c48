package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/wricardo/trailgrid/game/engine"
	"github.com/wricardo/trailgrid/game/service"
)

// fakeBackend records keys and answers with canned responses
type fakeBackend struct {
	mu   sync.Mutex
	keys []string
}

func (f *fakeBackend) HandleInput(ctx context.Context, sessionID, key string) (*service.InputResponse, error) {
	if sessionID == "gone" {
		return nil, errors.New("session not found")
	}
	f.mu.Lock()
	f.keys = append(f.keys, key)
	f.mu.Unlock()
	return &service.InputResponse{
		Result:  engine.InputResult{Key: engine.ParseKey(key), Outcome: engine.Scheduled},
		Message: "ok",
	}, nil
}

func (f *fakeBackend) GetGameState(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
	if sessionID == "gone" {
		return nil, errors.New("session not found")
	}
	return &engine.Snapshot{ActiveGrid: engine.Small, Score: 7}, nil
}

func (f *fakeBackend) Keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.keys...)
}

func startHub(t *testing.T, backend Backend) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub()
	if backend != nil {
		hub.SetBackend(backend)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, r.URL.Query().Get("session"))
	}))
	t.Cleanup(func() {
		server.Close()
		cancel()
	})
	return hub, server
}

func dial(t *testing.T, server *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "?session=" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read WebSocket message: %v", err)
	}
	var message Message
	if err := json.Unmarshal(data, &message); err != nil {
		t.Fatalf("Failed to unmarshal message: %v", err)
	}
	return message
}

func TestNewHub(t *testing.T) {
	hub := NewHub()

	if hub.sessions == nil {
		t.Error("Hub sessions map is nil")
	}
	if hub.broadcast == nil || hub.direct == nil {
		t.Error("Hub outbound channels are nil")
	}
	if hub.register == nil || hub.unregister == nil {
		t.Error("Hub registration channels are nil")
	}
}

func TestHubRegisterAndUnregister(t *testing.T) {
	hub := NewHub()
	client1 := &Client{hub: hub, sessionID: "s1", send: make(chan []byte, 4)}
	client2 := &Client{hub: hub, sessionID: "s1", send: make(chan []byte, 4)}

	hub.registerClient(client1)
	hub.registerClient(client2)
	if len(hub.sessions["s1"]) != 2 {
		t.Errorf("Expected 2 clients in session, got %d", len(hub.sessions["s1"]))
	}

	hub.unregisterClient(client1)
	if !hub.sessions["s1"][client2] || len(hub.sessions["s1"]) != 1 {
		t.Error("Expected client2 to remain registered")
	}
	if _, ok := <-client1.send; ok {
		t.Error("Expected unregistered client's channel to be closed")
	}

	hub.unregisterClient(client2)
	if _, exists := hub.sessions["s1"]; exists {
		t.Error("Session should have been cleaned up after last client unregistered")
	}
}

func TestHubBroadcastOnlyToSession(t *testing.T) {
	hub := NewHub()
	mine := &Client{hub: hub, sessionID: "mine", send: make(chan []byte, 4)}
	other := &Client{hub: hub, sessionID: "other", send: make(chan []byte, 4)}
	hub.registerClient(mine)
	hub.registerClient(other)

	hub.broadcastMessage(&Message{SessionID: "mine", Event: EventRender, Render: &engine.RenderEvent{Score: 3}})

	select {
	case data := <-mine.send:
		var message Message
		if err := json.Unmarshal(data, &message); err != nil {
			t.Fatalf("Failed to unmarshal message: %v", err)
		}
		if message.Render == nil || message.Render.Score != 3 {
			t.Errorf("Unexpected message %+v", message)
		}
	default:
		t.Error("Expected a message for the session's client")
	}

	select {
	case <-other.send:
		t.Error("Expected no message for another session")
	default:
	}
}

func TestHubSlowClientIsDropped(t *testing.T) {
	hub := NewHub()
	slow := &Client{hub: hub, sessionID: "s", send: make(chan []byte)}
	hub.registerClient(slow)

	hub.broadcastMessage(&Message{SessionID: "s", Event: EventRender})
	if _, exists := hub.sessions["s"]; exists {
		t.Error("Expected a client with a full queue to be unregistered")
	}
}

func TestHubNotifyNeverBlocks(t *testing.T) {
	hub := NewHub()
	quiet := log.New()
	quiet.SetOutput(io.Discard)
	hub.logger = log.NewEntry(quiet)

	done := make(chan struct{})
	go func() {
		for i := 0; i < broadcastBuffer*2; i++ {
			hub.Notify("s", engine.RenderEvent{Type: engine.EventMove})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Expected Notify to drop events instead of blocking")
	}
	if len(hub.broadcast) != broadcastBuffer {
		t.Errorf("Expected a full queue of %d, got %d", broadcastBuffer, len(hub.broadcast))
	}
}

func TestWebSocketInitialStateAndRender(t *testing.T) {
	hub, server := startHub(t, &fakeBackend{})
	conn := dial(t, server, "abcd")

	first := readMessage(t, conn)
	if first.Event != EventState || first.State == nil || first.State.Score != 7 {
		t.Fatalf("Expected initial state message, got %+v", first)
	}

	hub.Notify("abcd", engine.RenderEvent{Type: engine.EventTeleport, Grid: engine.Main, Score: 7})

	render := readMessage(t, conn)
	if render.Event != EventRender || render.Render == nil {
		t.Fatalf("Expected render message, got %+v", render)
	}
	if render.Render.Type != engine.EventTeleport || render.Render.Grid != engine.Main {
		t.Errorf("Unexpected render payload %+v", render.Render)
	}
	if render.SessionID != "abcd" {
		t.Errorf("Expected session abcd, got %s", render.SessionID)
	}
}

func TestWebSocketClientInput(t *testing.T) {
	backend := &fakeBackend{}
	_, server := startHub(t, backend)
	conn := dial(t, server, "abcd")
	readMessage(t, conn) // initial state

	if err := conn.WriteJSON(ClientMessage{Key: "ArrowUp"}); err != nil {
		t.Fatalf("Failed to send key: %v", err)
	}

	reply := readMessage(t, conn)
	if reply.Event != EventInput || reply.Input == nil {
		t.Fatalf("Expected input reply, got %+v", reply)
	}
	if reply.Input.Result.Key != engine.KeyUp {
		t.Errorf("Expected ArrowUp, got %q", reply.Input.Result.Key)
	}
	if keys := backend.Keys(); len(keys) != 1 || keys[0] != "ArrowUp" {
		t.Errorf("Expected backend to receive ArrowUp, got %v", keys)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("Failed to send message: %v", err)
	}
	if reply := readMessage(t, conn); reply.Event != EventError {
		t.Errorf("Expected error reply for malformed message, got %+v", reply)
	}
}

func TestWebSocketInputErrors(t *testing.T) {
	_, server := startHub(t, &fakeBackend{})
	conn := dial(t, server, "gone")

	if err := conn.WriteJSON(ClientMessage{Key: "ArrowUp"}); err != nil {
		t.Fatalf("Failed to send key: %v", err)
	}
	reply := readMessage(t, conn)
	if reply.Event != EventError || !strings.Contains(reply.Error, "not found") {
		t.Errorf("Expected not found error, got %+v", reply)
	}
}

func TestWebSocketWithoutBackend(t *testing.T) {
	_, server := startHub(t, nil)
	conn := dial(t, server, "abcd")

	if err := conn.WriteJSON(ClientMessage{Key: " "}); err != nil {
		t.Fatalf("Failed to send key: %v", err)
	}
	if reply := readMessage(t, conn); reply.Event != EventError {
		t.Errorf("Expected error reply without a backend, got %+v", reply)
	}
}

func TestHubResyncAfterDroppedEvents(t *testing.T) {
	hub := NewHub()
	quiet := log.New()
	quiet.SetOutput(io.Discard)
	hub.logger = log.NewEntry(quiet)
	hub.SetBackend(&fakeBackend{})

	client := &Client{hub: hub, sessionID: "s", send: make(chan []byte, broadcastBuffer+1)}
	hub.registerClient(client)

	for i := 0; i <= broadcastBuffer; i++ {
		hub.Notify("s", engine.RenderEvent{Type: engine.EventMove, Score: i})
	}
	if len(hub.resyncSignal) != 1 {
		t.Fatal("Expected a dropped event to request a resync")
	}

	<-hub.resyncSignal
	hub.resyncSessions()

	if len(client.send) != broadcastBuffer+1 {
		t.Fatalf("Expected %d messages, got %d", broadcastBuffer+1, len(client.send))
	}

	var last Message
	for i := 0; i <= broadcastBuffer; i++ {
		data := <-client.send
		if err := json.Unmarshal(data, &last); err != nil {
			t.Fatalf("Failed to unmarshal message: %v", err)
		}
		if i < broadcastBuffer && last.Event != EventRender {
			t.Errorf("Expected queued render event at %d, got %s", i, last.Event)
		}
	}
	if last.Event != EventState || last.State == nil || last.State.Score != 7 {
		t.Errorf("Expected a state message after the queued renders, got %+v", last)
	}

	if len(hub.resync) != 0 {
		t.Error("Expected the resync set to be cleared")
	}
}
