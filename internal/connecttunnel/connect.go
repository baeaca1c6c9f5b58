// Package connecttunnel implements the HTTP/1.1 CONNECT tunnel preface
// (§4.3): it parses a CONNECT request incrementally off the wire, dials the
// requested target, and replies 200, handing back whatever bytes were
// already buffered past the end of the CONNECT request as a prefix for the
// next demultiplexing pass.
//
// Grounded on original_source/src/connection/connect.rs's growing-buffer
// reparse loop, adapted to Go's bufio.Reader + net/http.ReadRequest, which
// already buffers excess bytes cleanly — the "already read but unconsumed"
// remainder is recovered from the bufio.Reader rather than hand-rolled.
package connecttunnel

import (
	"bufio"
	"context"
	"io"
	"net"
	"net/http"

	"github.com/denisvmedia/proxide/internal/perr"
	"github.com/denisvmedia/proxide/internal/prefixedconn"
)

const okResponse = "HTTP/1.1 200 OK\r\n\r\n"

// Result holds the outcome of a successful tunnel establishment.
type Result struct {
	// Target is the host:port extracted from the CONNECT request-target.
	Target string
	// ClientConn replays any bytes already buffered past the CONNECT
	// request (a pipelined TLS ClientHello, typically) before falling
	// through to the raw client socket.
	ClientConn net.Conn
}

// Dialer abstracts outbound TCP dialing so tests can substitute a fake.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Handle reads a CONNECT request from client, writes the "200 OK" reply, and
// returns a Result whose ClientConn yields any pipelined bytes first. It
// does not dial the target itself — establishing the upstream leg and
// splicing the two streams together is the caller's responsibility (the
// server loop §4.5 may hand the upstream conn directly into TLS/HTTP2
// processing instead of a raw byte copy).
func Handle(client net.Conn) (*Result, error) {
	br := bufio.NewReader(client)
	req, err := http.ReadRequest(br)
	if err != nil {
		return nil, perr.ClientIO("reading CONNECT request", err)
	}
	if req.Method != http.MethodConnect {
		return nil, perr.ClientSemantic("reading CONNECT request", errNotConnect)
	}

	target := req.Host
	if target == "" {
		target = req.URL.Host
	}

	prefix, err := drainBuffered(br)
	if err != nil {
		return nil, perr.ClientIO("reading CONNECT request", err)
	}

	if _, err := io.WriteString(client, okResponse); err != nil {
		return nil, perr.ClientIO("replying to CONNECT", err)
	}

	return &Result{
		Target:     target,
		ClientConn: prefixedconn.New(client, prefix),
	}, nil
}

// drainBuffered returns whatever bytes bufio.Reader has already pulled off
// the wire but not yet handed to the CONNECT request parser.
func drainBuffered(br *bufio.Reader) ([]byte, error) {
	n := br.Buffered()
	if n == 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(br, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

type notConnectError struct{}

func (notConnectError) Error() string { return "expected CONNECT method" }

var errNotConnect = notConnectError{}

// DialTarget opens a TCP connection to result.Target.
func DialTarget(ctx context.Context, dialer Dialer, target string) (net.Conn, error) {
	conn, err := dialer.DialContext(ctx, "tcp", target)
	if err != nil {
		return nil, perr.ServerIO("connecting", err)
	}
	return conn, nil
}

type netDialer struct{ net.Dialer }

func (d *netDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	return d.Dialer.DialContext(ctx, network, address)
}

// DefaultDialer is a Dialer backed by net.Dialer, used when callers don't
// need to substitute a fake for tests.
var DefaultDialer Dialer = &netDialer{}
