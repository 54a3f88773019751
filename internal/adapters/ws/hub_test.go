package ws_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	wsHub "github.com/tapline/tapline/internal/adapters/ws"
	"github.com/tapline/tapline/internal/domain/model"
)

// --- helpers ----------------------------------------------------------------

func staticSnapshot(taps int) wsHub.SnapshotFunc {
	return func(context.Context) model.Snapshot {
		return model.Snapshot{SessionID: "session-1", Taps: taps}
	}
}

// startHub starts a test HTTP server with the hub as its handler.
// Returns the ws:// URL, the hub, and a cleanup function.
func startHub(t *testing.T, snapshot wsHub.SnapshotFunc) (string, *wsHub.Hub, func()) {
	t.Helper()

	hub := wsHub.New(snapshot)
	ctx, cancel := context.WithCancel(context.Background())

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	go hub.Run(ctx)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	return wsURL, hub, func() {
		cancel()
		srv.Close()
	}
}

func dial(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) wsHub.Message {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read message: %v", err)
	}
	var msg wsHub.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal message: %v", err)
	}
	return msg
}

// --- tests ------------------------------------------------------------------

func TestHubSendsSnapshotOnConnect(t *testing.T) {
	wsURL, _, cleanup := startHub(t, staticSnapshot(7))
	defer cleanup()

	conn := dial(t, wsURL)
	msg := readMessage(t, conn)

	if msg.Event != "snapshot" {
		t.Fatalf("expected snapshot event, got %q", msg.Event)
	}
	data, _ := json.Marshal(msg.Data)
	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.Taps != 7 {
		t.Fatalf("expected 7 taps in snapshot, got %d", snap.Taps)
	}
}

func TestHubBroadcastsUpdates(t *testing.T) {
	wsURL, hub, cleanup := startHub(t, staticSnapshot(0))
	defer cleanup()

	conn := dial(t, wsURL)
	readMessage(t, conn) // consume the connect snapshot

	bpm := 120
	hub.Publish(context.Background(), model.Update{
		Result:   &model.TapResult{Taps: 2, InstantBPM: &bpm, At: time.Now()},
		Snapshot: model.Snapshot{SessionID: "session-1", Taps: 2},
	})

	msg := readMessage(t, conn)
	if msg.Event != "update" {
		t.Fatalf("expected update event, got %q", msg.Event)
	}

	data, _ := json.Marshal(msg.Data)
	var update model.Update
	if err := json.Unmarshal(data, &update); err != nil {
		t.Fatalf("decode update: %v", err)
	}
	if update.Result == nil || update.Result.InstantBPM == nil || *update.Result.InstantBPM != 120 {
		t.Fatalf("expected instant bpm 120 in update, got %+v", update.Result)
	}
}

func TestHubBroadcastReachesAllClients(t *testing.T) {
	wsURL, hub, cleanup := startHub(t, staticSnapshot(0))
	defer cleanup()

	first := dial(t, wsURL)
	second := dial(t, wsURL)
	readMessage(t, first)
	readMessage(t, second)

	waitForCount(t, hub, 2)

	hub.Publish(context.Background(), model.Update{Snapshot: model.Snapshot{Taps: 3}})

	for _, conn := range []*websocket.Conn{first, second} {
		msg := readMessage(t, conn)
		if msg.Event != "update" {
			t.Fatalf("expected update event, got %q", msg.Event)
		}
	}
}

func TestHubCountTracksConnections(t *testing.T) {
	wsURL, hub, cleanup := startHub(t, staticSnapshot(0))
	defer cleanup()

	if hub.Count() != 0 {
		t.Fatalf("expected 0 clients, got %d", hub.Count())
	}

	conn := dial(t, wsURL)
	waitForCount(t, hub, 1)

	conn.Close()
	waitForCount(t, hub, 0)
}

// TestHubConcurrentPublishDuringShutdown races broadcasts against the hub
// closing client channels. Run with the race detector enabled; a send on a
// closed channel here would panic the test.
func TestHubConcurrentPublishDuringShutdown(t *testing.T) {
	hub := wsHub.New(staticSnapshot(0))
	ctx, cancel := context.WithCancel(context.Background())
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	defer srv.Close()
	go hub.Run(ctx)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	// Clients that never read, so their send buffers fill and broadcast
	// exercises its disconnect path too.
	for i := 0; i < 4; i++ {
		dial(t, wsURL)
	}
	waitForCount(t, hub, 4)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				hub.Publish(context.Background(), model.Update{Snapshot: model.Snapshot{Taps: j}})
			}
		}()
	}
	cancel() // triggers closeAll while publishes are in flight
	wg.Wait()

	waitForCount(t, hub, 0)
}

func waitForCount(t *testing.T, hub *wsHub.Hub, want int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.Count() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected %d clients, got %d", want, hub.Count())
}
