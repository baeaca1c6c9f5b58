package h2proxy

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	uuid "github.com/satori/go.uuid"

	"github.com/denisvmedia/proxide/internal/session"
)

type stubRoundTripper struct {
	resp *http.Response
	err  error
	gotReq *http.Request
}

func (s *stubRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	s.gotReq = r
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

// collectingBus returns a Bus with enough buffer capacity that a single
// test's worth of events never blocks Emit; drain is called once after the
// code under test finishes emitting, so there is no need for Run to race
// against the test's own assertions.
func collectingBus() (*session.Bus, *[]session.Event) {
	bus := session.NewBus(64)
	var got []session.Event
	bus.Register(session.SinkFunc(func(e session.Event) {
		got = append(got, e)
	}))
	return bus, &got
}

func drain(bus *session.Bus) {
	bus.Close()
	bus.Run()
}

func TestServeHTTPEmitsFullRequestLifecycle(t *testing.T) {
	bus, got := collectingBus()
	rt := &stubRoundTripper{resp: &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/grpc"}},
		Body:       io.NopCloser(bytes.NewReader([]byte("hello"))),
	}}

	srv := New(Config{}, bus, uuid.NewV4(), rt)

	req := httptest.NewRequest(http.MethodPost, "https://example.com/pkg.Service/Method", bytes.NewReader([]byte("world")))
	rec := httptest.NewRecorder()

	srv.serveHTTP(rec, req)
	drain(bus)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "hello" {
		t.Fatalf("body = %q, want hello", rec.Body.String())
	}
	if rt.gotReq == nil {
		t.Fatal("round tripper was never invoked")
	}

	kinds := map[string]int{}
	for _, e := range *got {
		switch e.(type) {
		case session.NewRequestEvent:
			kinds["NewRequest"]++
		case session.NewResponseEvent:
			kinds["NewResponse"]++
		case session.MessageDataEvent:
			kinds["MessageData"]++
		case session.MessageDoneEvent:
			kinds["MessageDone"]++
		case session.RequestDoneEvent:
			kinds["RequestDone"]++
		case session.ClientCallstackProcessedEvent:
			kinds["Callstack"]++
		}
	}
	for _, want := range []string{"NewRequest", "NewResponse", "RequestDone", "Callstack"} {
		if kinds[want] == 0 {
			t.Errorf("missing %s event; got %v", want, kinds)
		}
	}
}

func TestServeHTTPAuthorityOverrideRewritesOutgoingHost(t *testing.T) {
	bus, _ := collectingBus()
	rt := &stubRoundTripper{resp: &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewReader(nil))}}
	srv := New(Config{AuthorityOverride: "internal.example:9090"}, bus, uuid.NewV4(), rt)

	req := httptest.NewRequest(http.MethodGet, "https://public.example/x", nil)
	rec := httptest.NewRecorder()
	srv.serveHTTP(rec, req)
	drain(bus)

	if rt.gotReq.URL.Host != "internal.example:9090" {
		t.Fatalf("outgoing host = %q, want override applied", rt.gotReq.URL.Host)
	}
}

func TestServeHTTPRoundTripErrorRespondsBadGateway(t *testing.T) {
	bus, got := collectingBus()
	rt := &stubRoundTripper{err: io.ErrClosedPipe}
	srv := New(Config{}, bus, uuid.NewV4(), rt)

	req := httptest.NewRequest(http.MethodGet, "https://example.com/x", nil)
	rec := httptest.NewRecorder()
	srv.serveHTTP(rec, req)
	drain(bus)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	found := false
	for _, e := range *got {
		if rd, ok := e.(session.RequestDoneEvent); ok && rd.Status == session.StatusFailed {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a Failed RequestDoneEvent")
	}
}
