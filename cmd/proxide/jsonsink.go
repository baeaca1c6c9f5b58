package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/denisvmedia/proxide/internal/session"
)

// webSocketSink broadcasts every session event as a JSON frame to any
// number of connected websocket clients, backing the `--json` live-mode
// flag described in SPEC_FULL.md §6. Wires gorilla/websocket, the only
// pack dependency suited to a push-based live feed (the alternative,
// polling a snapshot, is what `view --json` already does for the
// one-shot case).
type webSocketSink struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	log     *slog.Logger
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// newWebSocketSink starts a background HTTP server on an ephemeral local
// port serving a single "/events" endpoint and returns a Sink that
// broadcasts to it. The chosen address is logged so the operator can point
// a browser-based viewer at it.
func newWebSocketSink(ctx context.Context) (session.Sink, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}

	sink := &webSocketSink{clients: make(map[*websocket.Conn]struct{}), log: slog.Default()}

	mux := http.NewServeMux()
	mux.HandleFunc("/events", sink.serveWS)
	srv := &http.Server{Handler: mux}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	go func() {
		if err := srv.Serve(ln); err != nil && ctx.Err() == nil {
			sink.log.Warn("json live sink stopped", "error", err)
		}
	}()

	sink.log.Info("json live sink listening", "addr", "ws://"+ln.Addr().String()+"/events")
	return sink, nil
}

func (s *webSocketSink) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.clients[conn] = struct{}{}
	s.mu.Unlock()

	// Drain and discard any messages the client sends; this is a
	// push-only feed, but a connection that's never read from will never
	// notice a peer-initiated close.
	go func() {
		defer s.dropClient(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *webSocketSink) dropClient(conn *websocket.Conn) {
	s.mu.Lock()
	delete(s.clients, conn)
	s.mu.Unlock()
	conn.Close()
}

// HandleEvent implements session.Sink.
func (s *webSocketSink) HandleEvent(e session.Event) {
	payload, err := json.Marshal(jsonEnvelope(e))
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.clients {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			go s.dropClient(conn)
		}
	}
}

func jsonEnvelope(e session.Event) map[string]any {
	return map[string]any{
		"kind":  eventKindName(e),
		"event": e,
	}
}

func eventKindName(e session.Event) string {
	switch e.(type) {
	case session.NewConnectionEvent:
		return "NewConnection"
	case session.NewRequestEvent:
		return "NewRequest"
	case session.NewResponseEvent:
		return "NewResponse"
	case session.MessageDataEvent:
		return "MessageData"
	case session.MessageDoneEvent:
		return "MessageDone"
	case session.RequestDoneEvent:
		return "RequestDone"
	case session.ConnectionDoneEvent:
		return "ConnectionDone"
	case session.ClientCallstackProcessedEvent:
		return "ClientCallstackProcessed"
	default:
		return "Unknown"
	}
}
