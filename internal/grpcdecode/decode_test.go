package grpcdecode

import (
	"strings"
	"testing"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func TestDecodeAndRenderKnownMessage(t *testing.T) {
	original := wrapperspb.String("hello world")
	payload, err := proto.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	md := original.ProtoReflect().Descriptor()
	msg, err := Decode(md, payload)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	rendered := Render(msg)
	if !strings.Contains(rendered, "hello world") {
		t.Fatalf("rendered output missing value: %q", rendered)
	}
}

func TestIndexCollectsLeafTokens(t *testing.T) {
	original := wrapperspb.Int32(42)
	payload, err := proto.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	md := original.ProtoReflect().Descriptor()
	msg, err := Decode(md, payload)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	tokens := Index(msg)
	if len(tokens) != 1 || tokens[0] != "42" {
		t.Fatalf("tokens = %v, want [42]", tokens)
	}
}

func TestRenderSurfacesUnknownFields(t *testing.T) {
	original := wrapperspb.String("base")
	payload, err := proto.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	// Append a synthetic unknown field (#3, varint 7) that StringValue's
	// descriptor (field #1 only) won't recognize.
	payload = append(payload, 0x18, 0x07)

	md := original.ProtoReflect().Descriptor()
	msg, err := Decode(md, payload)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	rendered := Render(msg)
	if !strings.Contains(rendered, "[#3]") {
		t.Fatalf("expected unknown field marker in output: %q", rendered)
	}
}
