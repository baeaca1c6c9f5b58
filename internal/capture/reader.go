package capture

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log/slog"

	"github.com/denisvmedia/proxide/internal/session"
)

// readHeader consumes the 15-byte magic and 3-byte version, returning
// which kind of file this is.
func readHeader(r io.Reader) (FileKind, error) {
	header := make([]byte, magicLength+versionLength)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, fmt.Errorf("capture: reading header: %w", err)
	}
	magic, ver := header[:magicLength], header[magicLength:]
	if !bytes.Equal(ver, version01) {
		return 0, fmt.Errorf("capture: unsupported version %q", ver)
	}
	switch {
	case bytes.Equal(magic, magicCapture):
		return KindCapture, nil
	case bytes.Equal(magic, magicSession):
		return KindSession, nil
	default:
		return 0, fmt.Errorf("capture: unrecognized file magic")
	}
}

// Replay reads a capture or session file and rebuilds the Session it
// describes. A KindCapture file is replayed event by event through
// session.Session.Apply, exactly reproducing what the live proxy would
// have built; a KindSession file is a pre-flattened snapshot and is
// restored directly.
//
// Truncation is tolerated per the file format's append-only design: EOF
// at a record boundary ends the replay normally, while EOF in the middle
// of a length prefix or payload logs one warning and returns the session
// built from the complete prefix.
func Replay(r io.Reader, log *slog.Logger) (*session.Session, error) {
	if log == nil {
		log = slog.Default()
	}

	kind, err := readHeader(r)
	if err != nil {
		return nil, err
	}

	br := bufio.NewReader(r)

	switch kind {
	case KindSession:
		payload, err := io.ReadAll(br)
		if err != nil {
			return nil, fmt.Errorf("capture: reading session payload: %w", err)
		}
		sn, err := unmarshalSnapshot(payload)
		if err != nil {
			return nil, fmt.Errorf("capture: decoding session payload: %w", err)
		}
		return session.FromSnapshot(sn), nil
	default:
		return replayCapture(br, log), nil
	}
}

func replayCapture(br *bufio.Reader, log *slog.Logger) *session.Session {
	sess := session.New()

	for {
		length, err := readVarint(br)
		if err != nil {
			if err == io.EOF {
				return sess
			}
			log.Warn("capture: truncated length prefix, returning partial session", "error", err)
			return sess
		}

		payload := make([]byte, length)
		if _, err := io.ReadFull(br, payload); err != nil {
			log.Warn("capture: truncated event payload, returning partial session", "error", err)
			return sess
		}

		ev, err := unmarshalEvent(payload)
		if err != nil {
			log.Warn("capture: skipping malformed event record", "error", err)
			continue
		}
		sess.Apply(ev)
	}
}
