package h2proxy

import (
	"errors"
	"io"
	"testing"

	"golang.org/x/net/http2"

	"github.com/denisvmedia/proxide/internal/perr"
	"github.com/denisvmedia/proxide/internal/session"
)

func TestWrapHTTP2StreamErrorTagsRealReasonCode(t *testing.T) {
	raw := http2.StreamError{StreamID: 1, Code: http2.ErrCodeCancel}

	wrapped := wrapHTTP2StreamError(raw, perr.ClientHTTP2)

	pe, ok := perr.As(wrapped)
	if !ok {
		t.Fatalf("wrapHTTP2StreamError() = %v, want a *perr.Error", wrapped)
	}
	if pe.HTTP2Reason != "CANCEL" {
		t.Fatalf("HTTP2Reason = %q, want CANCEL", pe.HTTP2Reason)
	}
	if !errors.Is(wrapped, raw) {
		t.Fatal("wrapped error should still unwrap to the original http2.StreamError")
	}
}

func TestWrapHTTP2StreamErrorPassesThroughNonStreamErrors(t *testing.T) {
	if got := wrapHTTP2StreamError(nil, perr.ClientHTTP2); got != nil {
		t.Fatalf("wrapHTTP2StreamError(nil) = %v, want nil", got)
	}
	if got := wrapHTTP2StreamError(io.EOF, perr.ClientHTTP2); got != io.EOF {
		t.Fatalf("wrapHTTP2StreamError(io.EOF) = %v, want io.EOF unchanged", got)
	}
	other := errors.New("boom")
	if got := wrapHTTP2StreamError(other, perr.ClientHTTP2); got != other {
		t.Fatalf("wrapHTTP2StreamError(other) = %v, want unchanged", got)
	}
}

func TestStreamErrorStatusTreatsWrappedBenignCodesAsSucceeded(t *testing.T) {
	cancel := wrapHTTP2StreamError(http2.StreamError{Code: http2.ErrCodeCancel}, perr.ServerHTTP2)
	if got := streamErrorStatus(cancel); got != session.StatusSucceeded {
		t.Fatalf("streamErrorStatus(CANCEL) = %v, want Succeeded", got)
	}

	internal := wrapHTTP2StreamError(http2.StreamError{Code: http2.ErrCodeInternal}, perr.ServerHTTP2)
	if got := streamErrorStatus(internal); got != session.StatusFailed {
		t.Fatalf("streamErrorStatus(INTERNAL_ERROR) = %v, want Failed", got)
	}
}
