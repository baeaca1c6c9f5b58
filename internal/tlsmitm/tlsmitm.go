// Package tlsmitm drives the two independent TLS sessions described in
// §4.4: a client-facing tls.Server that captures SNI/ALPN via
// GetConfigForClient before handing back a forged certificate, and a
// server-facing tls.Client that mirrors the client's offered ALPN list.
//
// Grounded directly on the teacher's proxy/internal/attacker (attacker.go)
// HTTPSTLSDial/serverTLSHandshake pair, which already expresses the
// original's "resolve ClientHello without completing the handshake" idea
// through Go's GetConfigForClient callback rather than the original's
// read-loop-until-the-resolver-aborts workaround — see DESIGN.md for why
// that simplification is faithful to the observable contract.
package tlsmitm

import (
	"context"
	"crypto/tls"
	"net"

	"github.com/denisvmedia/proxide/cert"
	"github.com/denisvmedia/proxide/internal/helper"
	"github.com/denisvmedia/proxide/internal/perr"
)

// Result is the outcome of a successful Dial: two TLS connections ready to
// be handed to the HTTP/2 stage (§4.5), plus the ALPN negotiated with the
// upstream, which both sides ultimately speak.
type Result struct {
	ClientTLS        *tls.Conn
	ServerTLS        *tls.Conn
	NegotiatedProto  string
	ClientHello      *tls.ClientHelloInfo
}

// Dial performs the full interception sequence described in §4.4:
//  1. accepts a client-side TLS handshake whose certificate resolver blocks
//     until the upstream's negotiated ALPN is known;
//  2. once the ClientHello has arrived, completes a TLS handshake over
//     serverConn offering the client's ALPN list; the upstream certificate
//     is verified unless insecureSkipVerify is set;
//  3. forges a leaf certificate for target's hostname via ca;
//  4. completes the client handshake restricted to the negotiated ALPN.
//
// clientConn and serverConn are raw (post-demultiplex) byte streams; target
// is the operator-configured upstream address (not the SNI — the operator
// chose the target, per spec).
func Dial(ctx context.Context, clientConn, serverConn net.Conn, target string, ca cert.CA, insecureSkipVerify bool) (*Result, error) {
	clientHelloCh := make(chan *tls.ClientHelloInfo, 1)
	serverALPNCh := make(chan string, 1)
	clientHandshakeErrCh := make(chan error, 1)
	serverHandshakeErrCh := make(chan error, 1)
	clientHandshakeDoneCh := make(chan struct{})

	var sawSNI bool

	clientTLSConn := tls.Server(clientConn, &tls.Config{
		SessionTicketsDisabled: true,
		GetConfigForClient: func(chi *tls.ClientHelloInfo) (*tls.Config, error) {
			if chi.ServerName == "" {
				return nil, errSNIRequired
			}
			sawSNI = true
			clientHelloCh <- chi

			var negotiated string
			select {
			case err := <-serverHandshakeErrCh:
				return nil, err
			case negotiated = <-serverALPNCh:
			case <-ctx.Done():
				return nil, ctx.Err()
			}

			leaf, err := ca.GetCert(target)
			if err != nil {
				return nil, err
			}

			var nextProtos []string
			if negotiated != "" {
				nextProtos = []string{negotiated}
			}
			return &tls.Config{
				SessionTicketsDisabled: true,
				Certificates:           []tls.Certificate{*leaf},
				NextProtos:             nextProtos,
				KeyLogWriter:           helper.GetTLSKeyLogWriter(),
			}, nil
		},
	})

	go func() {
		if err := clientTLSConn.HandshakeContext(ctx); err != nil {
			clientHandshakeErrCh <- err
			return
		}
		close(clientHandshakeDoneCh)
	}()

	var clientHello *tls.ClientHelloInfo
	select {
	case err := <-clientHandshakeErrCh:
		clientConn.Close()
		serverConn.Close()
		if !sawSNI {
			return nil, perr.ClientTLS("reading ClientHello", errSNIRequired)
		}
		return nil, perr.ClientTLS("reading ClientHello", err)
	case clientHello = <-clientHelloCh:
	}

	serverTLSConn, negotiated, err := dialUpstream(ctx, serverConn, clientHello, insecureSkipVerify)
	if err != nil {
		clientConn.Close()
		serverConn.Close()
		serverHandshakeErrCh <- err
		return nil, perr.ServerTLS("connecting TLS", err)
	}
	serverALPNCh <- negotiated

	select {
	case err := <-clientHandshakeErrCh:
		clientConn.Close()
		serverConn.Close()
		return nil, perr.ClientTLS("reading ClientHello", err)
	case <-clientHandshakeDoneCh:
	}

	return &Result{
		ClientTLS:       clientTLSConn,
		ServerTLS:       serverTLSConn,
		NegotiatedProto: negotiated,
		ClientHello:     clientHello,
	}, nil
}

func dialUpstream(ctx context.Context, serverConn net.Conn, clientHello *tls.ClientHelloInfo, insecureSkipVerify bool) (*tls.Conn, string, error) {
	cfg := &tls.Config{
		InsecureSkipVerify: insecureSkipVerify,
		ServerName:         clientHello.ServerName,
		NextProtos:         clientHello.SupportedProtos,
		CipherSuites:       clientHello.CipherSuites,
		KeyLogWriter:       helper.GetTLSKeyLogWriter(),
	}
	if len(clientHello.SupportedVersions) > 0 {
		min, max := clientHello.SupportedVersions[0], clientHello.SupportedVersions[0]
		for _, v := range clientHello.SupportedVersions {
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
		cfg.MinVersion = min
		cfg.MaxVersion = max
	}

	tlsConn := tls.Client(serverConn, cfg)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		return nil, "", err
	}
	return tlsConn, tlsConn.ConnectionState().NegotiatedProtocol, nil
}

type sniRequiredError struct{}

func (sniRequiredError) Error() string { return "SNI required" }

var errSNIRequired = sniRequiredError{}
