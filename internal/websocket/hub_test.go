package websocket

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ONSdigital/blaise-export-reporting-tool/internal/auth"
	"github.com/ONSdigital/blaise-export-reporting-tool/internal/config"
	"github.com/ONSdigital/blaise-export-reporting-tool/internal/types"
)

func TestNewHub(t *testing.T) {
	logger := zerolog.New(&bytes.Buffer{})
	hub := NewHub(logger)

	if hub == nil {
		t.Fatal("expected hub to be created")
	}

	if hub.clients == nil {
		t.Error("expected clients map to be initialized")
	}

	if hub.broadcast == nil {
		t.Error("expected broadcast channel to be initialized")
	}

	if hub.register == nil {
		t.Error("expected register channel to be initialized")
	}

	if hub.unregister == nil {
		t.Error("expected unregister channel to be initialized")
	}
}

func TestHubClientCount(t *testing.T) {
	logger := zerolog.New(&bytes.Buffer{})
	hub := NewHub(logger)

	// Initial count should be 0
	if hub.ClientCount() != 0 {
		t.Errorf("expected 0 clients, got %d", hub.ClientCount())
	}

	// Simulate adding clients
	hub.mu.Lock()
	hub.clients[&Client{id: "test1"}] = true
	hub.clients[&Client{id: "test2"}] = true
	hub.mu.Unlock()

	if hub.ClientCount() != 2 {
		t.Errorf("expected 2 clients, got %d", hub.ClientCount())
	}
}

func TestHubBroadcast(t *testing.T) {
	logger := zerolog.New(&bytes.Buffer{})
	hub := NewHub(logger)

	// Start hub in goroutine
	go hub.Run()

	// Give hub time to start
	time.Sleep(10 * time.Millisecond)

	// Test broadcast
	message := []byte("test message")
	hub.Broadcast(message)

	// The broadcast should succeed without blocking
	select {
	case <-time.After(100 * time.Millisecond):
		t.Error("broadcast blocked unexpectedly")
	default:
		// Broadcast completed
	}
}

func TestHubRegisterUnregister(t *testing.T) {
	logger := zerolog.New(&bytes.Buffer{})
	hub := NewHub(logger)

	// Start hub in goroutine
	go hub.Run()

	// Create mock client
	client := &Client{
		id:   "test-client",
		hub:  hub,
		send: make(chan []byte, 1),
	}

	// Register client
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	if hub.ClientCount() != 1 {
		t.Errorf("expected 1 client after register, got %d", hub.ClientCount())
	}

	// Unregister client
	hub.unregister <- client
	time.Sleep(10 * time.Millisecond)

	if hub.ClientCount() != 0 {
		t.Errorf("expected 0 clients after unregister, got %d", hub.ClientCount())
	}
}

func TestHubBroadcastToMultipleClients(t *testing.T) {
	logger := zerolog.New(&bytes.Buffer{})
	hub := NewHub(logger)

	// Start hub
	go hub.Run()

	// Create multiple mock clients
	client1 := &Client{
		id:   "client1",
		hub:  hub,
		send: make(chan []byte, 10),
	}

	client2 := &Client{
		id:   "client2",
		hub:  hub,
		send: make(chan []byte, 10),
	}

	// Register clients
	hub.register <- client1
	hub.register <- client2
	time.Sleep(10 * time.Millisecond)

	// Broadcast message
	message := []byte("test broadcast")
	hub.Broadcast(message)

	// Wait for message to be sent
	time.Sleep(10 * time.Millisecond)

	// Check both clients received the message
	select {
	case msg := <-client1.send:
		if string(msg) != string(message) {
			t.Errorf("client1 expected %s, got %s", message, msg)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("client1 did not receive message")
	}

	select {
	case msg := <-client2.send:
		if string(msg) != string(message) {
			t.Errorf("client2 expected %s, got %s", message, msg)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("client2 did not receive message")
	}
}

func TestHubPublishFiltersByInterviewer(t *testing.T) {
	logger := zerolog.New(&bytes.Buffer{})
	hub := NewHub(logger)
	go hub.Run()

	supervisor := NewClient(hub, nil, &config.Config{}, logger, &auth.Claims{Role: auth.RoleSupervisor}, nil)
	own := NewClient(hub, nil, &config.Config{}, logger, &auth.Claims{Role: auth.RoleInterviewer, Username: "matpal"}, nil)
	other := NewClient(hub, nil, &config.Config{}, logger, &auth.Claims{Role: auth.RoleInterviewer, Username: "rich"}, nil)

	hub.register <- supervisor
	hub.register <- own
	hub.register <- other
	time.Sleep(10 * time.Millisecond)

	event := types.ReportEvent{Type: types.EventReportGenerated, RunID: "run-1", Interviewer: "matpal", Records: 3}
	if err := hub.Publish(event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	for name, c := range map[string]*Client{"supervisor": supervisor, "own": own} {
		select {
		case msg := <-c.send:
			var got types.ReportEvent
			if err := json.Unmarshal(msg, &got); err != nil {
				t.Fatalf("%s: failed to decode event: %v", name, err)
			}
			if got.RunID != "run-1" || got.Records != 3 {
				t.Errorf("%s: unexpected event %+v", name, got)
			}
		case <-time.After(100 * time.Millisecond):
			t.Errorf("%s did not receive the event", name)
		}
	}

	select {
	case msg := <-other.send:
		t.Errorf("other interviewer received %s", msg)
	default:
	}
}

func TestClientAccepts(t *testing.T) {
	logger := zerolog.New(&bytes.Buffer{})
	subscribed := NewClient(nil, nil, &config.Config{}, logger, nil, []string{" MatPal ", ""})

	tests := []struct {
		name   string
		client *Client
		event  types.ReportEvent
		want   bool
	}{
		{"subscribed interviewer", subscribed, types.ReportEvent{Interviewer: "matpal"}, true},
		{"unsubscribed interviewer", subscribed, types.ReportEvent{Interviewer: "rich"}, false},
		{"event for everyone", subscribed, types.ReportEvent{Type: types.EventSyncCompleted}, true},
		{"no claims, no subscription", &Client{}, types.ReportEvent{Interviewer: "rich"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.client.Accepts(&tt.event); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestHandlerCheckOrigin(t *testing.T) {
	logger := zerolog.New(&bytes.Buffer{})
	h := NewHandler(NewHub(logger), &config.Config{AllowedOrigins: []string{"http://localhost:5173"}}, logger)

	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"http://localhost:5173", true},
		{"http://evil.com", false},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if tt.origin != "" {
			req.Header.Set("Origin", tt.origin)
		}
		if got := h.checkOrigin(req); got != tt.want {
			t.Errorf("origin %q: expected %v, got %v", tt.origin, tt.want, got)
		}
	}
}
