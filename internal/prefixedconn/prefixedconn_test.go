package prefixedconn

import (
	"io"
	"net"
	"testing"
)

func TestReadReplaysPrefixThenUnderlying(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	go func() {
		server.Write([]byte("world"))
	}()

	pc := New(client, []byte("hello"))

	buf := make([]byte, 5)
	n, err := io.ReadFull(pc, buf)
	if err != nil || n != 5 || string(buf) != "hello" {
		t.Fatalf("first read = %q, %v, want hello", buf[:n], err)
	}

	n, err = io.ReadFull(pc, buf)
	if err != nil || n != 5 || string(buf) != "world" {
		t.Fatalf("second read = %q, %v, want world", buf[:n], err)
	}
}

func TestEmptyPrefixDoesNotSignalEOF(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	go func() {
		server.Write([]byte("x"))
	}()

	pc := New(client, []byte{})
	buf := make([]byte, 1)
	n, err := pc.Read(buf)
	if err != nil || n != 1 || buf[0] != 'x' {
		t.Fatalf("Read with empty prefix = %d, %v, want 1 byte 'x'", n, err)
	}
}

func TestSplitHalvesShareNoMutableState(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	pc := New(client, []byte("AB"))
	r, w := pc.Split()

	go func() {
		buf := make([]byte, 2)
		server.Read(buf)
	}()
	if _, err := w.Write([]byte("hi")); err != nil {
		t.Fatalf("write through half: %v", err)
	}

	buf := make([]byte, 2)
	n, err := r.Read(buf)
	if err != nil || string(buf[:n]) != "AB" {
		t.Fatalf("read half did not replay prefix: %q, %v", buf[:n], err)
	}
}
