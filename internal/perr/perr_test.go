package perr

import (
	"errors"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	cause := errors.New("boom")
	err := ClientTLS("reading ClientHello", cause)

	if err.Stage != StageClientEndpoint {
		t.Fatalf("Stage = %v, want %v", err.Stage, StageClientEndpoint)
	}
	if err.Kind != KindTLS {
		t.Fatalf("Kind = %v, want %v", err.Kind, KindTLS)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("errors.Is(err, cause) = false, want true")
	}
	want := "client[client-endpoint/tls] reading ClientHello: boom"
	if got := err.Error(); got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestAsExtractsTypedError(t *testing.T) {
	wrapped := error(ServerIO("connecting", errors.New("refused")))
	pe, ok := As(wrapped)
	if !ok {
		t.Fatal("As() = false, want true")
	}
	if pe.Stage != StageServerEndpoint || pe.Kind != KindIO {
		t.Fatalf("unexpected Stage/Kind: %v/%v", pe.Stage, pe.Kind)
	}
}

func TestIsBenignHTTP2(t *testing.T) {
	cases := map[string]bool{
		"NO_ERROR":        true,
		"CANCEL":          true,
		"STREAM_CLOSED":   false,
		"INTERNAL_ERROR":  false,
		"":                false,
	}
	for reason, want := range cases {
		if got := IsBenignHTTP2(reason); got != want {
			t.Errorf("IsBenignHTTP2(%q) = %v, want %v", reason, got, want)
		}
	}
}
