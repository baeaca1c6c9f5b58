package grpcdecode

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

// Decompress inflates a response body according to its content-encoding
// header before gRPC frame scanning runs. Wires the teacher's brotli and
// klauspost/compress dependencies into the decoder pipeline described in
// SPEC_FULL.md's decompression stage: neither library is used by the
// gRPC/protobuf path itself (gRPC messages are rarely content-encoded, since
// gRPC has its own per-message compression flag), but HTTP/2 responses in
// general may carry any of these encodings before gRPC framing is even
// considered, so decompression runs first, unconditionally.
func Decompress(contentEncoding string, body []byte) ([]byte, error) {
	switch contentEncoding {
	case "", "identity":
		return body, nil
	case "gzip":
		r, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("grpcdecode: gzip: %w", err)
		}
		defer r.Close()
		return io.ReadAll(r)
	case "br":
		out, err := io.ReadAll(brotli.NewReader(bytes.NewReader(body)))
		if err != nil {
			return nil, fmt.Errorf("grpcdecode: brotli: %w", err)
		}
		return out, nil
	case "zstd":
		r, err := zstd.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("grpcdecode: zstd: %w", err)
		}
		defer r.Close()
		return io.ReadAll(r)
	default:
		return nil, fmt.Errorf("grpcdecode: unsupported content-encoding %q", contentEncoding)
	}
}
