package session

import (
	"net/http"
	"time"

	uuid "github.com/satori/go.uuid"
)

// Connection is the in-memory reconstruction of one accepted socket (§3).
type Connection struct {
	ID            uuid.UUID
	ProtocolStack []string
	ClientAddr    string
	StartTime     time.Time
	EndTime       time.Time
	Status        Status
	RequestIDs    []uuid.UUID
}

// Message is half of a Request (§3).
type Message struct {
	Part      Part
	Headers   http.Header
	Trailers  http.Header
	Content   []byte
	StartTime time.Time
	EndTime   time.Time
}

// Request is one HTTP/2 stream (§3).
type Request struct {
	ID           uuid.UUID
	ConnectionID uuid.UUID
	Method       string
	URI          string
	StartTime    time.Time
	EndTime      time.Time
	Status       Status
	Callstack    *ClientCallstackProcessedEvent

	RequestMsg  Message
	ResponseMsg Message
}

// Change is a "what changed" token returned by Apply so subscribers can
// invalidate minimal state instead of re-reading the whole session.
type Change struct {
	Kind         ChangeKind
	ConnectionID uuid.UUID
	RequestID    uuid.UUID
	Part         Part
}

type ChangeKind int

const (
	ChangeNewConnection ChangeKind = iota
	ChangeNewRequest
	ChangeRequest
	ChangeNewMessage
	ChangeMessage
	ChangeConnection
	ChangeCallstack
)

// Session is the top-level container: two insertion-ordered collections
// indexed by id, per §3.
type Session struct {
	connOrder []uuid.UUID
	conns     map[uuid.UUID]*Connection

	reqOrder []uuid.UUID
	reqs     map[uuid.UUID]*Request
}

// New returns an empty Session.
func New() *Session {
	return &Session{
		conns: make(map[uuid.UUID]*Connection),
		reqs:  make(map[uuid.UUID]*Request),
	}
}

// Connections returns connections in creation order.
func (s *Session) Connections() []*Connection {
	out := make([]*Connection, 0, len(s.connOrder))
	for _, id := range s.connOrder {
		out = append(out, s.conns[id])
	}
	return out
}

// Requests returns requests in creation order.
func (s *Session) Requests() []*Request {
	out := make([]*Request, 0, len(s.reqOrder))
	for _, id := range s.reqOrder {
		out = append(out, s.reqs[id])
	}
	return out
}

// Connection looks up a connection by id.
func (s *Session) Connection(id uuid.UUID) (*Connection, bool) {
	c, ok := s.conns[id]
	return c, ok
}

// Request looks up a request by id.
func (s *Session) Request(id uuid.UUID) (*Request, bool) {
	r, ok := s.reqs[id]
	return r, ok
}

// Snapshot is a flat, serialization-friendly view of a Session: the same
// connections and requests, in creation order, with lookup maps dropped
// since they're cheap to rebuild.
type Snapshot struct {
	Connections []*Connection
	Requests    []*Request
}

// ToSnapshot flattens s for encoding (e.g. the "view"/single-session
// capture file kind in internal/capture).
func (s *Session) ToSnapshot() Snapshot {
	return Snapshot{Connections: s.Connections(), Requests: s.Requests()}
}

// FromSnapshot rebuilds a Session from a previously flattened Snapshot,
// reconstructing the id-indexed maps.
func FromSnapshot(sn Snapshot) *Session {
	s := New()
	for _, c := range sn.Connections {
		s.conns[c.ID] = c
		s.connOrder = append(s.connOrder, c.ID)
	}
	for _, r := range sn.Requests {
		s.reqs[r.ID] = r
		s.reqOrder = append(s.reqOrder, r.ID)
	}
	return s
}

// Apply mutates the session according to ev and returns the resulting
// change tokens. It is idempotent with respect to unknown ids (§3
// invariant: a truncated capture must not panic) and is the only way the
// session is ever mutated.
func (s *Session) Apply(ev Event) []Change {
	switch e := ev.(type) {
	case NewConnectionEvent:
		return s.onNewConnection(e)
	case NewRequestEvent:
		return s.onNewRequest(e)
	case NewResponseEvent:
		return s.onNewResponse(e)
	case MessageDataEvent:
		return s.onMessageData(e)
	case MessageDoneEvent:
		return s.onMessageDone(e)
	case RequestDoneEvent:
		return s.onRequestDone(e)
	case ConnectionDoneEvent:
		return s.onConnectionDone(e)
	case ClientCallstackProcessedEvent:
		return s.onCallstack(e)
	default:
		return nil
	}
}

func (s *Session) onNewConnection(e NewConnectionEvent) []Change {
	c := &Connection{
		ID:            e.ConnectionID,
		ProtocolStack: e.ProtocolStack,
		ClientAddr:    e.ClientAddr,
		StartTime:     e.Timestamp,
		Status:        StatusInProgress,
	}
	s.conns[c.ID] = c
	s.connOrder = append(s.connOrder, c.ID)
	return []Change{{Kind: ChangeNewConnection, ConnectionID: c.ID}}
}

func (s *Session) onNewRequest(e NewRequestEvent) []Change {
	if _, ok := s.conns[e.ConnectionID]; !ok {
		return nil
	}
	r := &Request{
		ID:           e.RequestID,
		ConnectionID: e.ConnectionID,
		Method:       e.Method,
		URI:          e.URI,
		StartTime:    e.Timestamp,
		Status:       StatusInProgress,
		RequestMsg: Message{
			Part:      PartRequest,
			Headers:   e.Headers,
			StartTime: e.Timestamp,
		},
	}
	s.reqs[r.ID] = r
	s.reqOrder = append(s.reqOrder, r.ID)

	conn := s.conns[e.ConnectionID]
	conn.RequestIDs = append(conn.RequestIDs, r.ID)

	return []Change{{Kind: ChangeNewRequest, ConnectionID: e.ConnectionID, RequestID: r.ID}}
}

func (s *Session) onNewResponse(e NewResponseEvent) []Change {
	r, ok := s.reqs[e.RequestID]
	if !ok {
		return nil
	}
	r.ResponseMsg = Message{
		Part:      PartResponse,
		Headers:   e.Headers,
		StartTime: e.Timestamp,
	}
	return []Change{{Kind: ChangeNewMessage, RequestID: e.RequestID, Part: PartResponse}}
}

func (s *Session) onMessageData(e MessageDataEvent) []Change {
	r, ok := s.reqs[e.RequestID]
	if !ok {
		return nil
	}
	msg := r.message(e.Part)
	msg.Content = append(msg.Content, e.Data...)
	return []Change{{Kind: ChangeMessage, RequestID: e.RequestID, Part: e.Part}}
}

func (s *Session) onMessageDone(e MessageDoneEvent) []Change {
	r, ok := s.reqs[e.RequestID]
	if !ok {
		return nil
	}
	msg := r.message(e.Part)
	msg.EndTime = e.Timestamp
	msg.Trailers = e.Trailers
	return []Change{{Kind: ChangeMessage, RequestID: e.RequestID, Part: e.Part}}
}

func (s *Session) onRequestDone(e RequestDoneEvent) []Change {
	r, ok := s.reqs[e.RequestID]
	if !ok {
		return nil
	}
	r.Status = e.Status
	r.EndTime = e.Timestamp
	return []Change{{Kind: ChangeRequest, RequestID: e.RequestID}}
}

func (s *Session) onConnectionDone(e ConnectionDoneEvent) []Change {
	c, ok := s.conns[e.ConnectionID]
	if !ok {
		return nil
	}
	c.Status = e.Status
	c.EndTime = e.Timestamp
	return []Change{{Kind: ChangeConnection, ConnectionID: e.ConnectionID}}
}

func (s *Session) onCallstack(e ClientCallstackProcessedEvent) []Change {
	r, ok := s.reqs[e.RequestID]
	if !ok {
		return nil
	}
	ev := e
	r.Callstack = &ev
	return []Change{{Kind: ChangeCallstack, RequestID: e.RequestID}}
}

func (r *Request) message(part Part) *Message {
	if part == PartResponse {
		return &r.ResponseMsg
	}
	return &r.RequestMsg
}
