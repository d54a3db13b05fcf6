package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Djarid/vinput/pkg/command"
	"github.com/Djarid/vinput/pkg/pipeline"
)

type stubStatus struct {
	stats pipeline.Stats
}

func (s stubStatus) Snapshot() pipeline.Stats { return s.stats }

func newTestServer(t *testing.T) (*Server, *Hub, context.CancelFunc) {
	t.Helper()

	table := command.NewTable([]command.Entry{
		{Phrase: "jump", Action: command.Action{Type: command.TypeButton, Button: "A"}},
		{Phrase: "combo", Action: command.Action{Type: command.TypeSequence, Actions: []command.Action{
			{Type: command.TypeButton, Button: "X"},
		}}},
	})

	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	status := stubStatus{stats: pipeline.Stats{
		State: "idle", Segments: 3, Matches: 2, FramesDropped: 1,
	}}
	s := NewServer(Config{Addr: ":0"}, status, table, hub, nil)
	return s, hub, cancel
}

func TestServer_Health(t *testing.T) {
	s, _, cancel := newTestServer(t)
	defer cancel()

	resp, err := s.testApp().Test(httptest.NewRequest("GET", "/healthz", nil))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("Status = %d, want 200", resp.StatusCode)
	}
}

func TestServer_Status(t *testing.T) {
	s, _, cancel := newTestServer(t)
	defer cancel()

	resp, err := s.testApp().Test(httptest.NewRequest("GET", "/status", nil))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)

	var got struct {
		Pipeline pipeline.Stats `json:"pipeline"`
		Commands int            `json:"commands"`
	}
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if got.Pipeline.Segments != 3 || got.Pipeline.Matches != 2 {
		t.Errorf("Pipeline stats = %+v", got.Pipeline)
	}
	if got.Commands != 2 {
		t.Errorf("Commands = %d, want 2", got.Commands)
	}
}

func TestServer_Commands(t *testing.T) {
	s, _, cancel := newTestServer(t)
	defer cancel()

	resp, err := s.testApp().Test(httptest.NewRequest("GET", "/commands", nil))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)

	var got []struct {
		Phrase string `json:"phrase"`
		Type   string `json:"type"`
	}
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if len(got) != 2 || got[0].Phrase != "jump" || got[0].Type != "button" {
		t.Errorf("Commands = %+v", got)
	}
}

func TestServer_Metrics(t *testing.T) {
	s, _, cancel := newTestServer(t)
	defer cancel()

	resp, err := s.testApp().Test(httptest.NewRequest("GET", "/metrics", nil))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("Status = %d, want 200", resp.StatusCode)
	}
}

func TestServer_WebsocketRequiresUpgrade(t *testing.T) {
	s, _, cancel := newTestServer(t)
	defer cancel()

	resp, err := s.testApp().Test(httptest.NewRequest("GET", "/ws/events", nil))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.StatusCode != 426 {
		t.Errorf("Status = %d, want 426 Upgrade Required", resp.StatusCode)
	}
}

func TestHub_BroadcastNeverBlocks(t *testing.T) {
	hub := NewHub(nil)
	// No Run loop draining: the buffered channel fills, then messages drop.
	for i := 0; i < 1000; i++ {
		hub.Broadcast([]byte("x"))
	}
}

func TestHub_ShutdownClearsClients(t *testing.T) {
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	if err := hub.BroadcastJSON(pipeline.Event{Type: "state", State: "idle"}); err != nil {
		t.Fatalf("BroadcastJSON failed: %v", err)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Hub did not stop after cancellation")
	}
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount = %d after shutdown", hub.ClientCount())
	}
}
