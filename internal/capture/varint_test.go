package capture

import (
	"bufio"
	"bytes"
	"io"
	"testing"
)

func TestVarintRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 300, 16384, 1 << 33}
	for _, v := range values {
		var buf bytes.Buffer
		if err := writeVarint(&buf, v); err != nil {
			t.Fatalf("writeVarint(%d): %v", v, err)
		}
		got, err := readVarint(bufio.NewReader(&buf))
		if err != nil {
			t.Fatalf("readVarint(%d): %v", v, err)
		}
		if got != v {
			t.Fatalf("round trip %d -> %d", v, got)
		}
	}
}

func TestReadVarintEOFAtRecordBoundary(t *testing.T) {
	_, err := readVarint(bufio.NewReader(bytes.NewReader(nil)))
	if err != io.EOF {
		t.Fatalf("err = %v, want io.EOF", err)
	}
}

func TestReadVarintTruncatedMidValue(t *testing.T) {
	// 0x80 signals "continuation", but there's no next byte.
	_, err := readVarint(bufio.NewReader(bytes.NewReader([]byte{0x80})))
	if err != io.ErrUnexpectedEOF {
		t.Fatalf("err = %v, want io.ErrUnexpectedEOF", err)
	}
}
