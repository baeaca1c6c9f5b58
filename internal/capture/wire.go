package capture

import (
	"fmt"
	"net/http"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	uuid "github.com/satori/go.uuid"

	"github.com/denisvmedia/proxide/internal/session"
)

// envelope is the on-disk MessagePack shape for one event record: a kind
// tag plus the kind-specific payload, so the reader can dispatch without
// needing Go-level type information (the file format itself is the
// contract, not the language).
type envelope struct {
	Kind    string          `msgpack:"kind"`
	Payload msgpack.RawMessage `msgpack:"payload"`
}

func marshalEvent(ev session.Event) ([]byte, error) {
	var kind string
	var payload any

	switch e := ev.(type) {
	case session.NewConnectionEvent:
		kind, payload = "NewConnection", wireNewConnection(e)
	case session.NewRequestEvent:
		kind, payload = "NewRequest", wireNewRequest(e)
	case session.NewResponseEvent:
		kind, payload = "NewResponse", wireNewResponse(e)
	case session.MessageDataEvent:
		kind, payload = "MessageData", wireMessageData(e)
	case session.MessageDoneEvent:
		kind, payload = "MessageDone", wireMessageDone(e)
	case session.RequestDoneEvent:
		kind, payload = "RequestDone", wireRequestDone(e)
	case session.ConnectionDoneEvent:
		kind, payload = "ConnectionDone", wireConnectionDone(e)
	case session.ClientCallstackProcessedEvent:
		kind, payload = "ClientCallstackProcessed", wireCallstack(e)
	default:
		return nil, fmt.Errorf("capture: unknown event type %T", ev)
	}

	payloadBytes, err := msgpack.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return msgpack.Marshal(envelope{Kind: kind, Payload: payloadBytes})
}

func unmarshalEvent(data []byte) (session.Event, error) {
	var env envelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return nil, err
	}

	switch env.Kind {
	case "NewConnection":
		var w wireNewConnectionT
		if err := msgpack.Unmarshal(env.Payload, &w); err != nil {
			return nil, err
		}
		return w.toEvent(), nil
	case "NewRequest":
		var w wireNewRequestT
		if err := msgpack.Unmarshal(env.Payload, &w); err != nil {
			return nil, err
		}
		return w.toEvent(), nil
	case "NewResponse":
		var w wireNewResponseT
		if err := msgpack.Unmarshal(env.Payload, &w); err != nil {
			return nil, err
		}
		return w.toEvent(), nil
	case "MessageData":
		var w wireMessageDataT
		if err := msgpack.Unmarshal(env.Payload, &w); err != nil {
			return nil, err
		}
		return w.toEvent(), nil
	case "MessageDone":
		var w wireMessageDoneT
		if err := msgpack.Unmarshal(env.Payload, &w); err != nil {
			return nil, err
		}
		return w.toEvent(), nil
	case "RequestDone":
		var w wireRequestDoneT
		if err := msgpack.Unmarshal(env.Payload, &w); err != nil {
			return nil, err
		}
		return w.toEvent(), nil
	case "ConnectionDone":
		var w wireConnectionDoneT
		if err := msgpack.Unmarshal(env.Payload, &w); err != nil {
			return nil, err
		}
		return w.toEvent(), nil
	case "ClientCallstackProcessed":
		var w wireCallstackT
		if err := msgpack.Unmarshal(env.Payload, &w); err != nil {
			return nil, err
		}
		return w.toEvent(), nil
	default:
		return nil, fmt.Errorf("capture: unknown event kind %q", env.Kind)
	}
}

// Each event variant gets a small wire struct with msgpack tags and a pair
// of conversion functions; http.Header and uuid.UUID marshal through their
// own natural encodings (map[string][]string and [16]byte respectively).

type wireNewConnectionT struct {
	ConnectionID  uuid.UUID `msgpack:"connection_id"`
	ProtocolStack []string  `msgpack:"protocol_stack"`
	ClientAddr    string    `msgpack:"client_addr"`
	Timestamp     time.Time `msgpack:"timestamp"`
}

func wireNewConnection(e session.NewConnectionEvent) wireNewConnectionT {
	return wireNewConnectionT{e.ConnectionID, e.ProtocolStack, e.ClientAddr, e.Timestamp}
}
func (w wireNewConnectionT) toEvent() session.Event {
	return session.NewConnectionEvent{ConnectionID: w.ConnectionID, ProtocolStack: w.ProtocolStack, ClientAddr: w.ClientAddr, Timestamp: w.Timestamp}
}

type wireNewRequestT struct {
	ConnectionID uuid.UUID   `msgpack:"connection_id"`
	RequestID    uuid.UUID   `msgpack:"request_id"`
	Method       string      `msgpack:"method"`
	URI          string      `msgpack:"uri"`
	Headers      http.Header `msgpack:"headers"`
	Timestamp    time.Time   `msgpack:"timestamp"`
}

func wireNewRequest(e session.NewRequestEvent) wireNewRequestT {
	return wireNewRequestT{e.ConnectionID, e.RequestID, e.Method, e.URI, e.Headers, e.Timestamp}
}
func (w wireNewRequestT) toEvent() session.Event {
	return session.NewRequestEvent{ConnectionID: w.ConnectionID, RequestID: w.RequestID, Method: w.Method, URI: w.URI, Headers: w.Headers, Timestamp: w.Timestamp}
}

type wireNewResponseT struct {
	RequestID uuid.UUID   `msgpack:"request_id"`
	Headers   http.Header `msgpack:"headers"`
	Timestamp time.Time   `msgpack:"timestamp"`
}

func wireNewResponse(e session.NewResponseEvent) wireNewResponseT {
	return wireNewResponseT{e.RequestID, e.Headers, e.Timestamp}
}
func (w wireNewResponseT) toEvent() session.Event {
	return session.NewResponseEvent{RequestID: w.RequestID, Headers: w.Headers, Timestamp: w.Timestamp}
}

type wireMessageDataT struct {
	RequestID uuid.UUID    `msgpack:"request_id"`
	Part      session.Part `msgpack:"part"`
	Data      []byte       `msgpack:"data"`
}

func wireMessageData(e session.MessageDataEvent) wireMessageDataT {
	return wireMessageDataT{e.RequestID, e.Part, e.Data}
}
func (w wireMessageDataT) toEvent() session.Event {
	return session.MessageDataEvent{RequestID: w.RequestID, Part: w.Part, Data: w.Data}
}

type wireMessageDoneT struct {
	RequestID uuid.UUID      `msgpack:"request_id"`
	Part      session.Part   `msgpack:"part"`
	Status    session.Status `msgpack:"status"`
	Trailers  http.Header    `msgpack:"trailers"`
	Timestamp time.Time      `msgpack:"timestamp"`
}

func wireMessageDone(e session.MessageDoneEvent) wireMessageDoneT {
	return wireMessageDoneT{e.RequestID, e.Part, e.Status, e.Trailers, e.Timestamp}
}
func (w wireMessageDoneT) toEvent() session.Event {
	return session.MessageDoneEvent{RequestID: w.RequestID, Part: w.Part, Status: w.Status, Trailers: w.Trailers, Timestamp: w.Timestamp}
}

type wireRequestDoneT struct {
	RequestID uuid.UUID      `msgpack:"request_id"`
	Status    session.Status `msgpack:"status"`
	Timestamp time.Time      `msgpack:"timestamp"`
}

func wireRequestDone(e session.RequestDoneEvent) wireRequestDoneT {
	return wireRequestDoneT{e.RequestID, e.Status, e.Timestamp}
}
func (w wireRequestDoneT) toEvent() session.Event {
	return session.RequestDoneEvent{RequestID: w.RequestID, Status: w.Status, Timestamp: w.Timestamp}
}

type wireConnectionDoneT struct {
	ConnectionID uuid.UUID      `msgpack:"connection_id"`
	Status       session.Status `msgpack:"status"`
	Timestamp    time.Time      `msgpack:"timestamp"`
}

func wireConnectionDone(e session.ConnectionDoneEvent) wireConnectionDoneT {
	return wireConnectionDoneT{e.ConnectionID, e.Status, e.Timestamp}
}
func (w wireConnectionDoneT) toEvent() session.Event {
	return session.ConnectionDoneEvent{ConnectionID: w.ConnectionID, Status: w.Status, Timestamp: w.Timestamp}
}

type wireCallstackT struct {
	RequestID uuid.UUID               `msgpack:"request_id"`
	Status    session.CallstackStatus `msgpack:"status"`
	Callstack string                  `msgpack:"callstack"`
}

func wireCallstack(e session.ClientCallstackProcessedEvent) wireCallstackT {
	return wireCallstackT{e.RequestID, e.Status, e.Callstack}
}
func (w wireCallstackT) toEvent() session.Event {
	return session.ClientCallstackProcessedEvent{RequestID: w.RequestID, Status: w.Status, Callstack: w.Callstack}
}
