// Package grpcdecode implements §4.8: dynamic compilation of .proto
// schemas and on-the-fly decoding of gRPC-framed Protobuf messages
// carried in captured request/response bodies, with no generated code.
package grpcdecode

// Frame is one gRPC length-prefixed message: a 1-byte compressed flag
// followed by a 4-byte big-endian length and that many bytes of Protobuf
// payload (or, if Compressed is true, compressed Protobuf payload that
// this package does not itself decompress).
type Frame struct {
	Compressed bool
	Payload    []byte
}

const frameHeaderLen = 5

// ScanFrames splits a gRPC message stream into its component frames. If
// the last frame's declared length exceeds the bytes actually available
// (the body was still arriving, or capture ended mid-frame), ScanFrames
// stops cleanly and returns the frames decoded so far with no error, per
// the "declared length exceeds available bytes" boundary behavior.
//
// A nonzero compressed flag terminates decoding entirely: this package has
// no way to know which compression algorithm a per-message grpc-encoding
// applied, so a compressed frame's payload is not plain Protobuf and
// everything from that frame on is discarded rather than fed to the
// decoder as if it were.
func ScanFrames(data []byte) []Frame {
	var frames []Frame
	for len(data) >= frameHeaderLen {
		compressed := data[0] != 0
		length := uint32(data[1])<<24 | uint32(data[2])<<16 | uint32(data[3])<<8 | uint32(data[4])
		data = data[frameHeaderLen:]
		if uint64(length) > uint64(len(data)) {
			return frames
		}
		if compressed {
			return frames
		}
		frames = append(frames, Frame{Compressed: false, Payload: data[:length]})
		data = data[length:]
	}
	return frames
}
