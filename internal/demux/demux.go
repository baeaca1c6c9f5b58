// Package demux classifies a freshly accepted TCP connection by sniffing its
// first 10 bytes, the way a TLS record header is distinguished from an
// HTTP/2 connection preface and a plain CONNECT request, folded here into a
// single three-way classifier per the exact byte table in the
// connection-demultiplexing specification.
package demux

import (
	"bytes"
	"io"
	"net"

	"github.com/denisvmedia/proxide/internal/perr"
	"github.com/denisvmedia/proxide/internal/prefixedconn"
)

// Protocol is the classification result of Recognize.
type Protocol int

const (
	ProtocolUnknown Protocol = iota
	ProtocolTLS
	ProtocolHTTP2
	ProtocolConnect
)

func (p Protocol) String() string {
	switch p {
	case ProtocolTLS:
		return "TLS"
	case ProtocolHTTP2:
		return "HTTP/2"
	case ProtocolConnect:
		return "CONNECT"
	default:
		return "unknown"
	}
}

const sniffLen = 10

var http2Preface = []byte("PRI * HTTP")

// Recognize reads exactly 10 bytes from conn and classifies the protocol,
// returning a net.Conn whose first read replays those 10 bytes. On fewer
// than 10 bytes before EOF, or on an unrecognized pattern, it returns a
// perr.Error with Kind=KindParse ("InvalidData" per the specification).
func Recognize(conn net.Conn) (Protocol, net.Conn, error) {
	buf := make([]byte, sniffLen)
	if _, err := io.ReadFull(conn, buf); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return ProtocolUnknown, nil, invalidData(io.ErrUnexpectedEOF)
		}
		return ProtocolUnknown, nil, perr.ClientIO("demultiplexing connection", err)
	}

	proto := classify(buf)
	if proto == ProtocolUnknown {
		return ProtocolUnknown, nil, invalidData(errInvalidData)
	}

	return proto, prefixedconn.New(conn, buf), nil
}

// invalidData builds the Kind=KindParse error Recognize returns for a short
// or unrecognized preamble.
func invalidData(cause error) *perr.Error {
	return &perr.Error{
		Stage:    perr.StageClientEndpoint,
		Kind:     perr.KindParse,
		Endpoint: perr.EndpointClient,
		Scenario: "demultiplexing connection",
		Cause:    cause,
	}
}

var errInvalidData = invalidDataError{}

type invalidDataError struct{}

func (invalidDataError) Error() string { return "InvalidData: unrecognized protocol preamble" }

func classify(buf []byte) Protocol {
	if isTLSClientHello(buf) {
		return ProtocolTLS
	}
	if bytes.Equal(buf, http2Preface) {
		return ProtocolHTTP2
	}
	if isConnectPreface(buf) {
		return ProtocolConnect
	}
	return ProtocolUnknown
}

// isTLSClientHello matches 22, 3, _, _, _, 1, _, _, _, 3: a Handshake record
// (type 22) in the TLS 1.x record-version range whose handshake body begins
// with message type 1 (ClientHello) and whose *inner* protocol version byte
// pair also falls in the TLS 1.x range.
func isTLSClientHello(buf []byte) bool {
	return buf[0] == 22 &&
		buf[1] == 3 &&
		buf[5] == 1 &&
		buf[9] == 3
}

func isConnectPreface(buf []byte) bool {
	return bytes.Equal(buf[:8], []byte("CONNECT "))
}
