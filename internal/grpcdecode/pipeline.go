package grpcdecode

import (
	"fmt"

	"google.golang.org/protobuf/reflect/protoreflect"
)

// DecodedMessage is one rendered gRPC message extracted from a body.
type DecodedMessage struct {
	Rendered string
	Tokens   []string
}

// DecodeBody runs the full decoder pipeline described in SPEC_FULL.md §4.8:
// decompress the transport encoding, scan gRPC length-prefixed frames, then
// decode and render each frame against msgDesc. A frame that fails to parse
// is reported as an error string rather than aborting the remaining frames,
// since one malformed message must not hide its siblings.
func DecodeBody(contentEncoding string, body []byte, msgDesc protoreflect.MessageDescriptor) ([]DecodedMessage, error) {
	plain, err := Decompress(contentEncoding, body)
	if err != nil {
		return nil, err
	}

	frames := ScanFrames(plain)
	out := make([]DecodedMessage, 0, len(frames))
	for _, f := range frames {
		msg, err := Decode(msgDesc, f.Payload)
		if err != nil {
			out = append(out, DecodedMessage{Rendered: fmt.Sprintf("!! decode error: %v", err)})
			continue
		}
		out = append(out, DecodedMessage{
			Rendered: Render(msg.ProtoReflect()),
			Tokens:   Index(msg.ProtoReflect()),
		})
	}
	return out, nil
}
