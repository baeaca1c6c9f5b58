package grpcdecode

import (
	"bytes"
	"compress/gzip"
	"strings"
	"testing"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func TestDecodeBodyDecompressesFramesAndRenders(t *testing.T) {
	one, err := proto.Marshal(wrapperspb.String("first"))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	two, err := proto.Marshal(wrapperspb.String("second"))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var body bytes.Buffer
	body.Write(frameBytes(false, one))
	body.Write(frameBytes(false, two))

	var gz bytes.Buffer
	w := gzip.NewWriter(&gz)
	if _, err := w.Write(body.Bytes()); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}

	md := (&wrapperspb.StringValue{}).ProtoReflect().Descriptor()
	msgs, err := DecodeBody("gzip", gz.Bytes(), md)
	if err != nil {
		t.Fatalf("DecodeBody() error = %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("DecodeBody() = %d messages, want 2", len(msgs))
	}
	if !strings.Contains(msgs[0].Rendered, "first") || !strings.Contains(msgs[1].Rendered, "second") {
		t.Fatalf("unexpected rendered content: %+v", msgs)
	}
}

func TestDecodeBodyStopsAtCompressedFrame(t *testing.T) {
	one, err := proto.Marshal(wrapperspb.String("first"))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var body bytes.Buffer
	body.Write(frameBytes(false, one))
	body.Write(frameBytes(true, []byte{0xde, 0xad, 0xbe, 0xef}))
	body.Write(frameBytes(false, one))

	md := (&wrapperspb.StringValue{}).ProtoReflect().Descriptor()
	msgs, err := DecodeBody("", body.Bytes(), md)
	if err != nil {
		t.Fatalf("DecodeBody() error = %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("DecodeBody() = %d messages, want 1 (decoding must stop at the compressed frame)", len(msgs))
	}
	if !strings.Contains(msgs[0].Rendered, "first") {
		t.Fatalf("unexpected rendered content: %+v", msgs)
	}
}
