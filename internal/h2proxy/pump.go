package h2proxy

import (
	"errors"
	"io"
	"net/http"
	"time"

	uuid "github.com/satori/go.uuid"
	"golang.org/x/net/http2"

	"github.com/denisvmedia/proxide/internal/perr"
	"github.com/denisvmedia/proxide/internal/session"
)

// tappedBody wraps a request or response body, emitting MessageData events
// for every chunk read and a MessageDone event once the body is exhausted
// or fails, per §4.5's request/response pump description. Go's http2
// transport/server release flow-control window credit automatically once
// Read returns, so no explicit "release capacity" call is needed here (see
// the grounding note in SPEC_FULL.md §4.5).
type tappedBody struct {
	io.ReadCloser
	bus       *session.Bus
	requestID uuid.UUID
	part      session.Part
	trailers  func() http.Header
	done      bool
}

func newTappedBody(rc io.ReadCloser, bus *session.Bus, requestID uuid.UUID, part session.Part, trailers func() http.Header) *tappedBody {
	if rc == nil {
		rc = http.NoBody
	}
	return &tappedBody{ReadCloser: rc, bus: bus, requestID: requestID, part: part, trailers: trailers}
}

func (t *tappedBody) Read(p []byte) (int, error) {
	n, err := t.ReadCloser.Read(p)
	if n > 0 {
		chunk := make([]byte, n)
		copy(chunk, p[:n])
		t.bus.Emit(session.MessageDataEvent{RequestID: t.requestID, Part: t.part, Data: chunk})
	}
	if err != nil {
		endpoint := perr.ServerHTTP2
		if t.part == session.PartRequest {
			endpoint = perr.ClientHTTP2
		}
		t.finish(wrapHTTP2StreamError(err, endpoint))
	}
	return n, err
}

func (t *tappedBody) finish(err error) {
	if t.done {
		return
	}
	t.done = true
	status := streamErrorStatus(err)
	var trailers http.Header
	if t.trailers != nil {
		trailers = t.trailers()
	}
	t.bus.Emit(session.MessageDoneEvent{RequestID: t.requestID, Part: t.part, Status: status, Trailers: trailers, Timestamp: now()})
}

func (t *tappedBody) Close() error {
	t.finish(nil)
	return t.ReadCloser.Close()
}

func now() time.Time { return time.Now() }

// streamErrorStatus classifies a pump's terminal error the way §4.5 step 4
// requires: NO_ERROR and CANCEL are normal stream closures, anything else
// marks the request Failed.
func streamErrorStatus(err error) session.Status {
	if err == nil || err == io.EOF {
		return session.StatusSucceeded
	}
	if pe, ok := perr.As(err); ok && perr.IsBenignHTTP2(pe.HTTP2Reason) {
		return session.StatusSucceeded
	}
	return session.StatusFailed
}

// wrapHTTP2StreamError tags a raw *http2.StreamError with its real error
// code name via endpoint (perr.ClientHTTP2 or perr.ServerHTTP2), so
// streamErrorStatus can recognize a benign CANCEL/NO_ERROR closure. Errors
// that aren't stream errors, nil, and io.EOF pass through unchanged.
func wrapHTTP2StreamError(err error, endpoint func(scenario, reason string, cause error) *perr.Error) error {
	if err == nil || err == io.EOF {
		return err
	}
	var se http2.StreamError
	if errors.As(err, &se) {
		return endpoint("stream closed", se.Code.String(), err)
	}
	return err
}
