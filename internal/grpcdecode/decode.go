package grpcdecode

import (
	"fmt"
	"strconv"
	"strings"

	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

// Decode parses payload as msgDesc's wire format into a dynamic message,
// with no generated Go type for msgDesc required.
func Decode(msgDesc protoreflect.MessageDescriptor, payload []byte) (*dynamicpb.Message, error) {
	msg := dynamicpb.NewMessage(msgDesc)
	if err := proto.Unmarshal(payload, msg); err != nil {
		return nil, fmt.Errorf("grpcdecode: decoding %s: %w", msgDesc.FullName(), err)
	}
	return msg, nil
}

// Render produces a human-readable tree of msg's fields, recursing into
// nested messages. Fields the schema didn't recognize are rendered as
// "[#N]" (field number N, parsed generically off the wire) rather than
// silently dropped; bytes that don't even parse as a well-formed field are
// rendered as "!! raw" rather than panicking.
func Render(msg protoreflect.Message) string {
	var b strings.Builder
	renderInto(&b, msg, 0)
	return b.String()
}

func renderInto(b *strings.Builder, msg protoreflect.Message, depth int) {
	indent := strings.Repeat("  ", depth)
	msg.Range(func(fd protoreflect.FieldDescriptor, v protoreflect.Value) bool {
		fmt.Fprintf(b, "%s%s: %s\n", indent, fd.Name(), renderValue(fd, v, depth))
		return true
	})
	renderUnknown(b, msg.GetUnknown(), depth)
}

func renderValue(fd protoreflect.FieldDescriptor, v protoreflect.Value, depth int) string {
	if fd.IsList() {
		list := v.List()
		var items []string
		for i := 0; i < list.Len(); i++ {
			items = append(items, renderScalarOrMessage(fd, list.Get(i), depth))
		}
		return "[" + strings.Join(items, ", ") + "]"
	}
	return renderScalarOrMessage(fd, v, depth)
}

func renderScalarOrMessage(fd protoreflect.FieldDescriptor, v protoreflect.Value, depth int) string {
	if fd.Kind() == protoreflect.MessageKind || fd.Kind() == protoreflect.GroupKind {
		var b strings.Builder
		b.WriteString("{\n")
		renderInto(&b, v.Message(), depth+1)
		b.WriteString(strings.Repeat("  ", depth) + "}")
		return b.String()
	}
	return fmt.Sprintf("%v", v.Interface())
}

// renderUnknown walks raw unknown-field bytes left over after Range, one
// wire-format field at a time, per §4.8's "[#N]"/"!! raw" contract.
func renderUnknown(b *strings.Builder, raw []byte, depth int) {
	indent := strings.Repeat("  ", depth)
	for len(raw) > 0 {
		num, typ, n := protowire.ConsumeTag(raw)
		if n < 0 {
			fmt.Fprintf(b, "%s!! raw\n", indent)
			return
		}
		raw = raw[n:]

		n = protowire.ConsumeFieldValue(num, typ, raw)
		if n < 0 {
			fmt.Fprintf(b, "%s!! raw\n", indent)
			return
		}
		fmt.Fprintf(b, "%s[#%d]: %s\n", indent, num, summarizeUnknownValue(typ, raw[:n]))
		raw = raw[n:]
	}
}

func summarizeUnknownValue(typ protowire.Type, raw []byte) string {
	switch typ {
	case protowire.VarintType:
		v, _ := protowire.ConsumeVarint(raw)
		return strconv.FormatUint(v, 10)
	case protowire.Fixed32Type:
		v, _ := protowire.ConsumeFixed32(raw)
		return strconv.FormatUint(uint64(v), 10)
	case protowire.Fixed64Type:
		v, _ := protowire.ConsumeFixed64(raw)
		return strconv.FormatUint(v, 10)
	case protowire.BytesType:
		return fmt.Sprintf("%d bytes", len(raw))
	default:
		return "!! raw"
	}
}

// Index flattens every leaf scalar in msg into a token list for
// internal/searchindex, recursing into nested and repeated messages.
func Index(msg protoreflect.Message) []string {
	var tokens []string
	indexInto(msg, &tokens)
	return tokens
}

func indexInto(msg protoreflect.Message, tokens *[]string) {
	msg.Range(func(fd protoreflect.FieldDescriptor, v protoreflect.Value) bool {
		indexValue(fd, v, tokens)
		return true
	})
}

func indexValue(fd protoreflect.FieldDescriptor, v protoreflect.Value, tokens *[]string) {
	if fd.IsList() {
		list := v.List()
		for i := 0; i < list.Len(); i++ {
			indexScalarOrMessage(fd, list.Get(i), tokens)
		}
		return
	}
	indexScalarOrMessage(fd, v, tokens)
}

func indexScalarOrMessage(fd protoreflect.FieldDescriptor, v protoreflect.Value, tokens *[]string) {
	if fd.Kind() == protoreflect.MessageKind || fd.Kind() == protoreflect.GroupKind {
		indexInto(v.Message(), tokens)
		return
	}
	*tokens = append(*tokens, fmt.Sprintf("%v", v.Interface()))
}
