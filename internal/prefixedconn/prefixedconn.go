// Package prefixedconn implements the prefixed stream adapter: a
// net.Conn wrapper that replays previously-consumed bytes before falling
// through to the underlying connection. It is how the demultiplexer (§4.2)
// and the CONNECT handler (§4.3) return bytes they already read without
// forcing every downstream consumer to be buffer-aware.
package prefixedconn

import (
	"net"
	"sync"
	"time"
)

// Conn wraps an underlying net.Conn, replaying prefix first on Read.
// An empty (but non-nil) prefix is consumed without ever reporting EOF —
// only the wrapped conn's own EOF propagates.
type Conn struct {
	net.Conn

	mu     sync.Mutex
	prefix []byte
}

// New returns a Conn that yields prefix on the first read(s), then delegates
// to inner. prefix may be nil or empty; both behave as "no prefix".
func New(inner net.Conn, prefix []byte) *Conn {
	return &Conn{Conn: inner, prefix: prefix}
}

func (c *Conn) Read(p []byte) (int, error) {
	c.mu.Lock()
	if len(c.prefix) > 0 {
		n := copy(p, c.prefix)
		c.prefix = c.prefix[n:]
		c.mu.Unlock()
		return n, nil
	}
	c.mu.Unlock()
	return c.Conn.Read(p)
}

// Split returns independent read and write halves that share no mutable
// state beyond the underlying conn itself, matching the original's
// into_split() API used when a stream must be driven by two goroutines
// concurrently (one pumping request data, the other response data).
func (c *Conn) Split() (ReadHalf, WriteHalf) {
	return ReadHalf{c}, WriteHalf{c.Conn}
}

// ReadHalf is the read-only side of a split Conn.
type ReadHalf struct {
	c *Conn
}

func (r ReadHalf) Read(p []byte) (int, error) { return r.c.Read(p) }

// WriteHalf is the write-only side of a split Conn; writes always pass
// straight through to the underlying connection, unaffected by any prefix.
type WriteHalf struct {
	net.Conn
}

func (w WriteHalf) Write(p []byte) (int, error) { return w.Conn.Write(p) }

// SetReadDeadline/SetWriteDeadline let a split half adjust its own deadline
// without reaching back into the shared Conn.
func (r ReadHalf) SetReadDeadline(t time.Time) error    { return r.c.Conn.SetReadDeadline(t) }
func (w WriteHalf) SetWriteDeadline(t time.Time) error  { return w.Conn.SetWriteDeadline(t) }
