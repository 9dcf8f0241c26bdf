package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/flowpanel/flowpanel/pkg/flow"
	"github.com/flowpanel/flowpanel/pkg/observability"
	"github.com/flowpanel/flowpanel/pkg/protocol"
)

func startServer(t *testing.T) (*flow.Flow, *httptest.Server) {
	t.Helper()
	f := flow.New(flow.Options{})
	s := NewServer(f, Options{})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return f, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) protocol.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	msg, err := protocol.Decode(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	return msg
}

func TestConnectReceivesInitialSync(t *testing.T) {
	f, ts := startServer(t)
	if _, err := f.AddNode(map[string]any{"id": "n1"}); err != nil {
		t.Fatal(err)
	}

	conn := dial(t, ts)
	msg := readMessage(t, conn)
	if msg.Type != protocol.MsgSync {
		t.Fatalf("expected sync, got %s", msg.Type)
	}
	if len(msg.Nodes) != 1 || msg.Nodes[0]["id"] != "n1" {
		t.Errorf("unexpected sync payload: %v", msg.Nodes)
	}
}

func TestServerMutationReachesAllClients(t *testing.T) {
	f, ts := startServer(t)
	a := dial(t, ts)
	b := dial(t, ts)
	readMessage(t, a) // initial sync
	readMessage(t, b)

	if _, err := f.AddNode(map[string]any{"id": "n1"}); err != nil {
		t.Fatal(err)
	}

	for _, conn := range []*websocket.Conn{a, b} {
		msg := readMessage(t, conn)
		if msg.Type != protocol.MsgNodeAdded || msg.Node["id"] != "n1" {
			t.Fatalf("expected node_added for n1, got %+v", msg)
		}
	}
}

func TestClientMutationEchoSuppressed(t *testing.T) {
	f, ts := startServer(t)
	if _, err := f.AddNode(map[string]any{"id": "n1"}); err != nil {
		t.Fatal(err)
	}
	origin := dial(t, ts)
	other := dial(t, ts)
	readMessage(t, origin)
	readMessage(t, other)

	move := `{"type":"node_moved","node_id":"n1","position":{"x":10,"y":20}}`
	if err := origin.WriteMessage(websocket.TextMessage, []byte(move)); err != nil {
		t.Fatal(err)
	}

	// The other session sees the move.
	msg := readMessage(t, other)
	if msg.Type != protocol.MsgNodeMoved || msg.Position.X != 10 {
		t.Fatalf("expected node_moved, got %+v", msg)
	}

	// The store applied it.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if n, ok := f.Node("n1"); ok && n.Position.X == 10 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("move never applied to store")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// The originating session gets nothing back.
	origin.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, data, err := origin.ReadMessage(); err == nil {
		t.Errorf("originating session received echo: %s", data)
	}
}

func TestMalformedMessageKeepsSessionAlive(t *testing.T) {
	f, ts := startServer(t)
	conn := dial(t, ts)
	readMessage(t, conn)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"no":"type"}`)); err != nil {
		t.Fatal(err)
	}

	// A follow-up valid mutation still round-trips.
	if _, err := f.AddNode(map[string]any{"id": "n1"}); err != nil {
		t.Fatal(err)
	}
	msg := readMessage(t, conn)
	if msg.Type != protocol.MsgNodeAdded {
		t.Fatalf("session broken after malformed frame: %+v", msg)
	}
}

func TestGraphExportImport(t *testing.T) {
	f, ts := startServer(t)
	if _, err := f.AddNode(map[string]any{"id": "a"}); err != nil {
		t.Fatal(err)
	}

	resp, err := http.Get(ts.URL + "/graph")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var doc struct {
		Nodes []map[string]any `json:"nodes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		t.Fatalf("export not valid JSON: %v", err)
	}
	if len(doc.Nodes) != 1 || doc.Nodes[0]["id"] != "a" {
		t.Errorf("unexpected export: %v", doc.Nodes)
	}

	body := `{"nodes":[{"id":"x"},{"id":"y"}],"edges":[{"id":"e1","source":"x","target":"y"}]}`
	resp, err = http.Post(ts.URL+"/graph", "application/json", bytes.NewReader([]byte(body)))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("import status %d", resp.StatusCode)
	}
	if len(f.Nodes()) != 2 || len(f.Edges()) != 1 {
		t.Errorf("import not applied: %d nodes %d edges", len(f.Nodes()), len(f.Edges()))
	}
}

func TestImportRejectsInvalidGraph(t *testing.T) {
	_, ts := startServer(t)
	body := `{"nodes":[{"id":"a"}],"edges":[{"id":"e1","source":"a","target":"ghost"}]}`
	resp, err := http.Post(ts.URL+"/graph", "application/json", bytes.NewReader([]byte(body)))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	_, ts := startServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

type messageHookRecorder struct {
	observability.NoopSessionHooks
	mu    sync.Mutex
	types []string
}

func (r *messageHookRecorder) OnMessage(_ context.Context, _ string, msgType string, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = append(r.types, msgType)
}

func (r *messageHookRecorder) recorded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.types...)
}

func TestMessageHookReceivesType(t *testing.T) {
	defer observability.Reset()
	rec := &messageHookRecorder{}
	observability.SetSessionHooks(rec)

	f, ts := startServer(t)
	if _, err := f.AddNode(map[string]any{"id": "n1"}); err != nil {
		t.Fatal(err)
	}
	conn := dial(t, ts)
	readMessage(t, conn) // initial sync

	frame := []byte(`{"type":"node_moved","node_id":"n1","position":{"x":5,"y":6}}`)
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		types := rec.recorded()
		if len(types) > 0 {
			if types[0] != string(protocol.MsgNodeMoved) {
				t.Fatalf("hook msgType = %q, want node_moved", types[0])
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("message hook never fired")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
