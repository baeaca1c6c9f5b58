// Package server wires together the demultiplexer, the optional CONNECT
// tunnel, the TLS MITM layer, and the HTTP/2 proxy core into the single
// accept loop described in SPEC_FULL.md §2/§5: one goroutine per accepted
// connection, fed by net.Listener.Accept, bounded only by OS resources.
package server

import (
	"context"
	"io"
	"log/slog"
	"net"

	uuid "github.com/satori/go.uuid"
	"golang.org/x/sync/errgroup"

	"github.com/denisvmedia/proxide/cert"
	"github.com/denisvmedia/proxide/internal/connecttunnel"
	"github.com/denisvmedia/proxide/internal/demux"
	"github.com/denisvmedia/proxide/internal/h2proxy"
	"github.com/denisvmedia/proxide/internal/helper"
	"github.com/denisvmedia/proxide/internal/perr"
	"github.com/denisvmedia/proxide/internal/session"
	"github.com/denisvmedia/proxide/internal/tlsmitm"
	"github.com/denisvmedia/proxide/internal/upstream"
)

// Config collects the knobs that vary per deployment (CLI flags).
type Config struct {
	ListenAddr         string
	AuthorityOverride  string
	InsecureSkipVerify bool
	CallstackPermits   int

	// IgnoreHosts, if non-empty, lists hosts (optionally "*."-prefixed,
	// optionally ":port"-suffixed) that bypass interception entirely and
	// are spliced through as raw bytes instead of MITM'd.
	IgnoreHosts []string
	// AllowHosts, if non-empty, is the inverse: only listed hosts are
	// intercepted, everything else is spliced through raw. AllowHosts
	// takes precedence over IgnoreHosts when both are set.
	AllowHosts []string
}

// shouldIntercept reports whether target should go through TLS MITM / HTTP2
// decoding, or be passed through untouched. Grounded on the teacher's
// cmd/go-mitmproxy SetShouldInterceptRule(helper.MatchHost(...)) gating.
func (c Config) shouldIntercept(target string) bool {
	if len(c.AllowHosts) > 0 {
		return helper.MatchHost(target, c.AllowHosts)
	}
	if len(c.IgnoreHosts) > 0 {
		return !helper.MatchHost(target, c.IgnoreHosts)
	}
	return true
}

// Server accepts client connections and runs each through the
// demux -> [CONNECT] -> TLS MITM -> HTTP/2 proxy pipeline.
type Server struct {
	cfg      Config
	ca       cert.CA
	bus      *session.Bus
	upstream *upstream.Manager
	log      *slog.Logger
}

// New constructs a Server. ca may be nil only if the deployment never
// expects to see a TLS ClientHello (unusual, but kept legal since §4.2's
// demultiplexer also accepts cleartext HTTP/2 directly).
func New(cfg Config, ca cert.CA, bus *session.Bus, um *upstream.Manager, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{cfg: cfg, ca: ca, bus: bus, upstream: um, log: log}
}

// ListenAndServe binds cfg.ListenAddr and runs the accept loop until ctx
// is cancelled or Accept returns a fatal error.
func (s *Server) ListenAndServe(ctx context.Context) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", s.cfg.ListenAddr)
	if err != nil {
		return perr.Configuration(perr.KindIO, "listen", err)
	}
	defer ln.Close()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return perr.ClientIO("accept", err)
		}
		go s.handleConn(ctx, conn)
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	clientAddr := conn.RemoteAddr().String()
	connectionID := uuid.NewV4()

	proto, conn, err := demux.Recognize(conn)
	if err != nil {
		s.log.Warn("demux failed", "client", clientAddr, "error", err)
		return
	}

	protocolStack := []string{"tcp"}

	var target string
	if proto == demux.ProtocolConnect {
		result, err := connecttunnel.Handle(conn)
		if err != nil {
			s.log.Warn("CONNECT handling failed", "client", clientAddr, "error", err)
			return
		}
		conn = result.ClientConn
		target = result.Target
		protocolStack = append(protocolStack, "connect")

		// The tunneled payload still needs classifying: it's almost
		// always a TLS ClientHello, but §4.2's recognizer runs again so
		// a cleartext h2c payload inside the tunnel is also accepted.
		proto, conn, err = demux.Recognize(conn)
		if err != nil {
			s.log.Warn("demux after CONNECT failed", "client", clientAddr, "error", err)
			return
		}
	}

	s.bus.Emit(session.NewConnectionEvent{
		ConnectionID:  connectionID,
		ProtocolStack: protocolStack,
		ClientAddr:    clientAddr,
	})

	switch proto {
	case demux.ProtocolTLS:
		s.handleTLS(ctx, conn, connectionID, target)
	case demux.ProtocolHTTP2:
		s.handleCleartextH2(ctx, conn, connectionID, target)
	default:
		s.log.Warn("unrecognized protocol after demux", "client", clientAddr)
	}
}

func (s *Server) handleTLS(ctx context.Context, conn net.Conn, connectionID uuid.UUID, target string) {
	serverConn, err := s.dialServer(ctx, target)
	if err != nil {
		s.log.Warn("server dial failed", "error", err)
		return
	}
	defer serverConn.Close()

	if !s.cfg.shouldIntercept(target) {
		s.log.Debug("target excluded from interception, splicing raw", "target", target)
		splicePassthrough(conn, serverConn)
		return
	}

	result, err := tlsmitm.Dial(ctx, conn, serverConn, target, s.ca, s.cfg.InsecureSkipVerify)
	if err != nil {
		s.log.Warn("TLS MITM failed", "error", err)
		return
	}
	defer result.ClientTLS.Close()
	defer result.ServerTLS.Close()

	rt := h2proxy.NewServerTransport(result.ServerTLS)
	proxy := h2proxy.New(h2proxy.Config{
		AuthorityOverride: s.cfg.AuthorityOverride,
		CallstackPermits:  s.cfg.CallstackPermits,
		Log:               s.log,
	}, s.bus, connectionID, rt)
	proxy.Serve(ctx, result.ClientTLS)
}

func (s *Server) handleCleartextH2(ctx context.Context, conn net.Conn, connectionID uuid.UUID, target string) {
	serverConn, err := s.dialServer(ctx, target)
	if err != nil {
		s.log.Warn("server dial failed", "error", err)
		return
	}
	defer serverConn.Close()

	if !s.cfg.shouldIntercept(target) {
		s.log.Debug("target excluded from interception, splicing raw", "target", target)
		splicePassthrough(conn, serverConn)
		return
	}

	rt := h2proxy.NewServerTransport(serverConn)
	proxy := h2proxy.New(h2proxy.Config{
		AuthorityOverride: s.cfg.AuthorityOverride,
		CallstackPermits:  s.cfg.CallstackPermits,
		Log:               s.log,
	}, s.bus, connectionID, rt)
	proxy.Serve(ctx, conn)
}

// dialServer dials the CONNECT-supplied host:port through the upstream
// manager. There is no other source of a destination: a TLS or cleartext
// HTTP/2 connection that did not arrive through CONNECT has an empty target
// and fails here with a semantic error, before any TLS or HTTP/2 handling.
func (s *Server) dialServer(ctx context.Context, target string) (net.Conn, error) {
	if target == "" {
		return nil, perr.ClientSemantic("missing CONNECT target for cleartext h2c", nil)
	}
	return s.upstream.Dial(ctx, target)
}

// splicePassthrough copies bytes bidirectionally between a client and
// server connection with no TLS MITM or HTTP/2 decoding, for targets
// excluded from interception by IgnoreHosts/AllowHosts.
func splicePassthrough(clientConn, serverConn net.Conn) {
	var g errgroup.Group
	g.Go(func() error {
		_, err := io.Copy(serverConn, clientConn)
		return err
	})
	g.Go(func() error {
		_, err := io.Copy(clientConn, serverConn)
		return err
	})
	g.Wait()
}
