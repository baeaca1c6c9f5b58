package h2proxy

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"

	"golang.org/x/net/http2"
)

// NewServerTransport returns an http.RoundTripper that always answers with
// the already-established server-side TLS connection, never dialing a new
// one. Grounded on the teacher's types.DefaultClientFactory.CreateHTTP2Client
// (proxy/internal/types/client_factory.go), generalized from "reuse this
// *tls.Conn" to accept any net.Conn so it also serves an h2c (cleartext)
// upstream leg.
func NewServerTransport(serverConn net.Conn) http.RoundTripper {
	return &http2.Transport{
		DialTLSContext: func(context.Context, string, string, *tls.Config) (net.Conn, error) {
			return serverConn, nil
		},
		AllowHTTP:          true,
		DisableCompression: true,
	}
}
