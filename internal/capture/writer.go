package capture

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/denisvmedia/proxide/internal/session"
)

// Writer appends length-prefixed, MessagePack-encoded event records to an
// underlying file, after the 18-byte magic+version header. Grounded on the
// original's serialization.rs append-only writer, adapted from the
// teacher's addon.ResponseWriter-style "one struct owns one open file"
// shape (proxy/addons/dumper.go).
type Writer struct {
	w   *bufio.Writer
	c   io.Closer
	log *slog.Logger
}

// NewWriter opens a fresh capture file of the given kind and writes its
// header. The caller owns closing the returned Writer.
func NewWriter(f io.WriteCloser, kind FileKind, log *slog.Logger) (*Writer, error) {
	if log == nil {
		log = slog.Default()
	}
	bw := bufio.NewWriter(f)
	magic := magicCapture
	if kind == KindSession {
		magic = magicSession
	}
	if _, err := bw.Write(magic); err != nil {
		return nil, err
	}
	if _, err := bw.Write(version01); err != nil {
		return nil, err
	}
	return &Writer{w: bw, c: f, log: log}, nil
}

// WriteEvent appends one event record. A serialization failure (an event
// type the codec doesn't know about) is logged and skipped so one bad
// event doesn't lose the rest of the capture; an I/O failure is returned
// to the caller as fatal.
func (cw *Writer) WriteEvent(ev session.Event) error {
	payload, err := marshalEvent(ev)
	if err != nil {
		cw.log.Warn("capture: dropping unencodable event", "error", err)
		return nil
	}
	if err := writeVarint(cw.w, uint64(len(payload))); err != nil {
		return err
	}
	_, err = cw.w.Write(payload)
	return err
}

// Flush pushes buffered bytes to the underlying file without closing it.
func (cw *Writer) Flush() error {
	return cw.w.Flush()
}

// Close flushes and closes the underlying file.
func (cw *Writer) Close() error {
	if err := cw.w.Flush(); err != nil {
		cw.c.Close()
		return err
	}
	return cw.c.Close()
}

// WriteSession overwrites f with a single Snapshot record under the
// KindSession header, the file kind Replay reads back as one snapshot.
func WriteSession(f io.WriteCloser, sn session.Snapshot, log *slog.Logger) error {
	payload, err := marshalSnapshot(sn)
	if err != nil {
		f.Close()
		return err
	}
	bw := bufio.NewWriter(f)
	if _, err := bw.Write(magicSession); err != nil {
		f.Close()
		return err
	}
	if _, err := bw.Write(version01); err != nil {
		f.Close()
		return err
	}
	if _, err := bw.Write(payload); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// RunCapture drains events from the bus into cw until ctx is cancelled or
// a SIGINT/SIGTERM arrives, matching the original CLI's "capture runs
// until Ctrl-C, flushes, exits 0" contract. I/O errors abort the loop and
// are returned; the caller is still responsible for a final cw.Close().
func RunCapture(ctx context.Context, events <-chan session.Event, cw *Writer) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	for {
		select {
		case <-ctx.Done():
			return cw.Flush()
		case <-sigCh:
			return cw.Flush()
		case ev, ok := <-events:
			if !ok {
				return cw.Flush()
			}
			if err := cw.WriteEvent(ev); err != nil {
				return err
			}
		}
	}
}
