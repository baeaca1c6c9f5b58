// Package session implements the event bus and in-memory model described in
// §4.6: a tagged union of SessionEvent variants, a pure Apply dispatcher,
// and change-notification tokens for minimal-invalidation consumers.
//
// Ported from original_source/src/session/events.rs's SessionEvent/
// Session::handle/SessionChange design. Go has no native sum type, so each
// event variant is a concrete struct implementing the Event marker
// interface, and Apply type-switches over them the way Session::handle
// matched on the Rust enum.
package session

import (
	"net/http"
	"time"

	uuid "github.com/satori/go.uuid"
)

// Part identifies which half of a Request a Message event refers to.
type Part int

const (
	PartRequest Part = iota
	PartResponse
)

func (p Part) String() string {
	if p == PartResponse {
		return "response"
	}
	return "request"
}

// Status is the terminal status of a Connection or Request.
type Status int

const (
	StatusInProgress Status = iota
	StatusSucceeded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return "in-progress"
	}
}

// CallstackStatus describes the outcome of an attempted client call-stack
// capture (§4.5.1).
type CallstackStatus int

const (
	CallstackCaptured CallstackStatus = iota
	CallstackThrottled
	CallstackUnsupported
)

func (c CallstackStatus) String() string {
	switch c {
	case CallstackCaptured:
		return "captured"
	case CallstackThrottled:
		return "throttled"
	default:
		return "unsupported"
	}
}

// Event is the marker interface implemented by every SessionEvent variant.
type Event interface {
	eventKind() string
}

// NewConnectionEvent announces a freshly accepted connection.
type NewConnectionEvent struct {
	ConnectionID  uuid.UUID
	ProtocolStack []string
	ClientAddr    string
	Timestamp     time.Time
}

func (NewConnectionEvent) eventKind() string { return "NewConnection" }

// NewRequestEvent announces a new HTTP/2 stream.
type NewRequestEvent struct {
	ConnectionID uuid.UUID
	RequestID    uuid.UUID
	Method       string
	URI          string
	Headers      http.Header
	Timestamp    time.Time
}

func (NewRequestEvent) eventKind() string { return "NewRequest" }

// NewResponseEvent announces that response headers arrived.
type NewResponseEvent struct {
	RequestID uuid.UUID
	Headers   http.Header
	Timestamp time.Time
}

func (NewResponseEvent) eventKind() string { return "NewResponse" }

// MessageDataEvent carries one chunk of body content for a request half.
type MessageDataEvent struct {
	RequestID uuid.UUID
	Part      Part
	Data      []byte
}

func (MessageDataEvent) eventKind() string { return "MessageData" }

// MessageDoneEvent marks the end of a request half.
type MessageDoneEvent struct {
	RequestID uuid.UUID
	Part      Part
	Status    Status
	Trailers  http.Header // nil if absent
	Timestamp time.Time
}

func (MessageDoneEvent) eventKind() string { return "MessageDone" }

// RequestDoneEvent marks a request as terminal.
type RequestDoneEvent struct {
	RequestID uuid.UUID
	Status    Status
	Timestamp time.Time
}

func (RequestDoneEvent) eventKind() string { return "RequestDone" }

// ConnectionDoneEvent marks a connection as terminal.
type ConnectionDoneEvent struct {
	ConnectionID uuid.UUID
	Status       Status
	Timestamp    time.Time
}

func (ConnectionDoneEvent) eventKind() string { return "ConnectionDone" }

// ClientCallstackProcessedEvent carries the outcome of an attempted
// call-stack capture.
type ClientCallstackProcessedEvent struct {
	RequestID uuid.UUID
	Status    CallstackStatus
	Callstack string // empty unless Status == CallstackCaptured
}

func (ClientCallstackProcessedEvent) eventKind() string { return "ClientCallstackProcessed" }
