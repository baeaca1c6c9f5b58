package demux

import (
	"io"
	"net"
	"testing"
)

func dial(t *testing.T, payload []byte, closeAfter bool) (net.Conn, func()) {
	t.Helper()
	client, server := net.Pipe()
	go func() {
		server.Write(payload)
		if closeAfter {
			server.Close()
		}
	}()
	return client, func() { client.Close() }
}

func TestRecognizeTLS(t *testing.T) {
	hello := []byte{22, 3, 3, 0, 0, 1, 0, 0, 0, 3}
	conn, cleanup := dial(t, hello, false)
	defer cleanup()

	proto, wrapped, err := Recognize(conn)
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if proto != ProtocolTLS {
		t.Fatalf("proto = %v, want TLS", proto)
	}
	assertReplay(t, wrapped, hello)
}

func TestRecognizeHTTP2Preface(t *testing.T) {
	preface := []byte("PRI * HTTP/2.0\r\n\r\nSM\r\n\r\n")
	conn, cleanup := dial(t, preface, false)
	defer cleanup()

	proto, wrapped, err := Recognize(conn)
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if proto != ProtocolHTTP2 {
		t.Fatalf("proto = %v, want HTTP2", proto)
	}
	assertReplay(t, wrapped, preface[:10])
}

func TestRecognizeConnect(t *testing.T) {
	req := []byte("CONNECT api.example.test:443 HTTP/1.1\r\n\r\n")
	conn, cleanup := dial(t, req, false)
	defer cleanup()

	proto, wrapped, err := Recognize(conn)
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if proto != ProtocolConnect {
		t.Fatalf("proto = %v, want Connect", proto)
	}
	assertReplay(t, wrapped, req[:10])
}

func TestRecognizeInvalidData(t *testing.T) {
	junk := []byte("GET / HTTP")
	conn, cleanup := dial(t, junk, false)
	defer cleanup()

	_, _, err := Recognize(conn)
	if err == nil {
		t.Fatal("Recognize: want error for unrecognized preamble, got nil")
	}
}

func TestRecognizeShortReadIsInvalidData(t *testing.T) {
	conn, cleanup := dial(t, []byte("short"), true)
	defer cleanup()

	_, _, err := Recognize(conn)
	if err == nil {
		t.Fatal("Recognize: want error on short read before EOF, got nil")
	}
}

func assertReplay(t *testing.T, wrapped net.Conn, want []byte) {
	t.Helper()
	buf := make([]byte, len(want))
	if _, err := io.ReadFull(wrapped, buf); err != nil {
		t.Fatalf("replay read: %v", err)
	}
	for i := range want {
		if buf[i] != want[i] {
			t.Fatalf("replay mismatch at %d: got %v want %v", i, buf, want)
		}
	}
}
