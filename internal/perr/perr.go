// Package perr implements the two-axis error taxonomy used throughout the
// proxy: every error is tagged with the Stage at which it occurred and the
// Kind of failure, plus an optional Endpoint label and a short scenario
// string for logs and UI toasts.
package perr

import (
	"errors"
	"fmt"
)

// Stage identifies which part of the pipeline produced an error.
type Stage string

const (
	StageConfiguration  Stage = "configuration"
	StageClientEndpoint Stage = "client-endpoint"
	StageServerEndpoint Stage = "server-endpoint"
	StageFormat         Stage = "format"
)

// Kind identifies the nature of the failure, orthogonal to Stage.
type Kind string

const (
	KindIO        Kind = "io"
	KindTLS       Kind = "tls"
	KindHTTP2     Kind = "http2"
	KindParse     Kind = "parse"
	KindNoSource  Kind = "no-source"
	KindSemantic  Kind = "semantic"
	KindUnsupport Kind = "unsupported"
)

// Endpoint labels which side of the proxy an error is attributed to.
type Endpoint string

const (
	EndpointNone   Endpoint = ""
	EndpointClient Endpoint = "client"
	EndpointServer Endpoint = "server"
)

// Error is the proxy's structured error type. It implements error and
// Unwrap so callers can use errors.As/errors.Is against Cause, while still
// being able to switch on Stage/Kind via As against *Error itself.
type Error struct {
	Stage    Stage
	Kind     Kind
	Endpoint Endpoint
	Scenario string
	Cause    error

	// HTTP2Reason carries the HTTP/2 error code name when Kind == KindHTTP2.
	HTTP2Reason string
}

func (e *Error) Error() string {
	if e.Endpoint != EndpointNone {
		if e.Cause != nil {
			return fmt.Sprintf("%s[%s/%s] %s: %v", e.Endpoint, e.Stage, e.Kind, e.Scenario, e.Cause)
		}
		return fmt.Sprintf("%s[%s/%s] %s", e.Endpoint, e.Stage, e.Kind, e.Scenario)
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s/%s] %s: %v", e.Stage, e.Kind, e.Scenario, e.Cause)
	}
	return fmt.Sprintf("[%s/%s] %s", e.Stage, e.Kind, e.Scenario)
}

func (e *Error) Unwrap() error { return e.Cause }

func new(stage Stage, kind Kind, endpoint Endpoint, scenario string, cause error) *Error {
	return &Error{Stage: stage, Kind: kind, Endpoint: endpoint, Scenario: scenario, Cause: cause}
}

// Configuration builds a Stage=Configuration error, used for startup failures
// such as a bad CA file or an unparsable .proto descriptor.
func Configuration(kind Kind, scenario string, cause error) *Error {
	return new(StageConfiguration, kind, EndpointNone, scenario, cause)
}

// ClientIO/ClientTLS/ClientHTTP2 build ClientEndpoint errors of the given kind.
func ClientIO(scenario string, cause error) *Error {
	return new(StageClientEndpoint, KindIO, EndpointClient, scenario, cause)
}

func ClientTLS(scenario string, cause error) *Error {
	return new(StageClientEndpoint, KindTLS, EndpointClient, scenario, cause)
}

func ClientHTTP2(scenario, reason string, cause error) *Error {
	e := new(StageClientEndpoint, KindHTTP2, EndpointClient, scenario, cause)
	e.HTTP2Reason = reason
	return e
}

func ClientSemantic(scenario string, cause error) *Error {
	return new(StageClientEndpoint, KindSemantic, EndpointClient, scenario, cause)
}

// ServerIO/ServerTLS/ServerHTTP2 build ServerEndpoint errors of the given kind.
func ServerIO(scenario string, cause error) *Error {
	return new(StageServerEndpoint, KindIO, EndpointServer, scenario, cause)
}

func ServerTLS(scenario string, cause error) *Error {
	return new(StageServerEndpoint, KindTLS, EndpointServer, scenario, cause)
}

func ServerHTTP2(scenario, reason string, cause error) *Error {
	e := new(StageServerEndpoint, KindHTTP2, EndpointServer, scenario, cause)
	e.HTTP2Reason = reason
	return e
}

// Format builds a Stage=Format error for capture/replay file problems.
func Format(kind Kind, scenario string, cause error) *Error {
	return new(StageFormat, kind, EndpointNone, scenario, cause)
}

// IsBenignHTTP2 reports whether an HTTP/2 reason code should be treated as a
// graceful closure rather than a failure, per the NO_ERROR/CANCEL carve-out.
func IsBenignHTTP2(reason string) bool {
	return reason == "NO_ERROR" || reason == "CANCEL"
}

// As is a thin convenience wrapper over errors.As for *Error.
func As(err error) (*Error, bool) {
	var pe *Error
	ok := errors.As(err, &pe)
	return pe, ok
}
