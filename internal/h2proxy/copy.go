package h2proxy

import (
	"io"
	"net/http"

	"github.com/denisvmedia/proxide/internal/perr"
)

// copyWithFlush streams src to dst, flushing after every chunk so the
// client sees response bytes as they arrive rather than buffered until
// the handler returns, matching the original's per-chunk DATA-frame
// forwarding. A raw *http2.StreamError hit while reading (the server leg
// resetting the stream) or writing (the client resetting it) is tagged via
// wrapHTTP2StreamError before being returned, so streamErrorStatus can tell
// a benign CANCEL/NO_ERROR closure from an actual failure.
func copyWithFlush(dst http.ResponseWriter, src io.Reader) (int64, error) {
	flusher, _ := dst.(http.Flusher)
	buf := make([]byte, 32*1024)
	var total int64
	for {
		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return total, wrapHTTP2StreamError(werr, perr.ClientHTTP2)
			}
			total += int64(n)
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err != nil {
			if err == io.EOF {
				return total, nil
			}
			return total, wrapHTTP2StreamError(err, perr.ServerHTTP2)
		}
	}
}
