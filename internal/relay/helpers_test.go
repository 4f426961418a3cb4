package relay

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/danmuck/fmtrelay/internal/filetree"
	"github.com/danmuck/fmtrelay/internal/resolver"
)

type wireEvent struct {
	Type             string `json:"type"`
	ID               string `json:"id"`
	Data             string `json:"data"`
	ErrorDescription string `json:"errorDescription"`
	Error            *bool  `json:"error"`
	ExitCode         *int   `json:"exitCode"`
}

type testRelay struct {
	server  *Server
	http    *httptest.Server
	scratch *filetree.Scratch
	url     string
}

func newTestRelay(t *testing.T, res resolver.Resolver) *testRelay {
	t.Helper()
	return newTestRelayWith(t, res, nil)
}

// newTestRelayWith lets configure adjust the server before it starts serving.
func newTestRelayWith(t *testing.T, res resolver.Resolver, configure func(*Server)) *testRelay {
	t.Helper()
	scratch, err := filetree.NewScratch(filepath.Join(t.TempDir(), "scratch"))
	if err != nil {
		t.Fatalf("scratch: %v", err)
	}
	cfg := DefaultServiceConfig()
	cfg.ScratchRoot = scratch.Root()
	cfg.ShutdownGrace = 5 * time.Second

	srv := NewServer(cfg, scratch, res)
	if configure != nil {
		configure(srv)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Shutdown()
		ts.Close()
	})
	return &testRelay{
		server:  srv,
		http:    ts,
		scratch: scratch,
		url:     "ws" + strings.TrimPrefix(ts.URL, "http"),
	}
}

func (r *testRelay) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	dialer := websocket.Dialer{Subprotocols: []string{DefaultSubprotocol}}
	conn, resp, err := dialer.Dial(r.url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if resp.Header.Get("Sec-Websocket-Protocol") != DefaultSubprotocol {
		t.Fatalf("unexpected negotiated protocol: %q", resp.Header.Get("Sec-Websocket-Protocol"))
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func (r *testRelay) scratchEntries(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(r.scratch.Root())
	if err != nil {
		t.Fatalf("read scratch: %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

// waitScratchEmpty polls because cleanup runs right after finished is sent.
func (r *testRelay) waitScratchEmpty(t *testing.T) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		left := r.scratchEntries(t)
		if len(left) == 0 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("scratch not cleaned up: %v", left)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func sendJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	sendText(t, conn, string(data))
}

func sendText(t *testing.T, conn *websocket.Conn, text string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) wireEvent {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	messageType, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if messageType != websocket.TextMessage {
		t.Fatalf("unexpected frame type: %d", messageType)
	}
	var ev wireEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return ev
}

func expectError(t *testing.T, conn *websocket.Conn, description string) {
	t.Helper()
	ev := readEvent(t, conn)
	if ev.Type != "error" || ev.ErrorDescription != description {
		t.Fatalf("expected error %q, got %+v", description, ev)
	}
}

// readRun reads events until finished arrives for every id in order of
// arrival; it returns the events grouped by id.
func readRun(t *testing.T, conn *websocket.Conn, ids int) map[string][]wireEvent {
	t.Helper()
	byID := make(map[string][]wireEvent)
	finished := 0
	for finished < ids {
		ev := readEvent(t, conn)
		if ev.ID == "" {
			t.Fatalf("unexpected event without id: %+v", ev)
		}
		byID[ev.ID] = append(byID[ev.ID], ev)
		if ev.Type == "finished" {
			finished++
		}
	}
	return byID
}

func streamText(events []wireEvent, typ string) string {
	var b strings.Builder
	for _, ev := range events {
		if ev.Type == typ {
			b.WriteString(ev.Data)
		}
	}
	return b.String()
}

func shellResolver(script string) resolver.Resolver {
	return resolver.Func(func(ctx context.Context, args json.RawMessage, root string, tree filetree.Node) (resolver.Command, error) {
		return resolver.Command{
			Name:    "/bin/sh",
			Args:    []string{"-c", script},
			Options: resolver.Options{Dir: root, Detached: true},
		}, nil
	})
}
