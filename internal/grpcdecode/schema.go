package grpcdecode

import (
	"context"
	"fmt"

	"github.com/bufbuild/protocompile"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
)

// Schema holds the compiled descriptors for one set of .proto files,
// loaded without any generated Go code (§4.8's "no codegen" requirement).
// Grounded on bufbuild/protocompile's own self-contained-compiler example;
// this is the only place in the module that imports protocompile.
type Schema struct {
	files *protoregistry.Files
}

// CompileSchema parses and links the given .proto files (resolved under
// importPaths) into a Schema. Unlike protoc, this never shells out to an
// external binary or requires pre-generated descriptors.
func CompileSchema(ctx context.Context, importPaths []string, protoFiles []string) (*Schema, error) {
	compiler := protocompile.Compiler{
		Resolver: protocompile.WithStandardImports(&protocompile.SourceResolver{
			ImportPaths: importPaths,
		}),
		SourceInfoMode: protocompile.SourceInfoNone,
	}

	compiled, err := compiler.Compile(ctx, protoFiles...)
	if err != nil {
		return nil, fmt.Errorf("grpcdecode: compiling schema: %w", err)
	}

	files := &protoregistry.Files{}
	for _, f := range compiled {
		if err := files.RegisterFile(f); err != nil {
			return nil, fmt.Errorf("grpcdecode: registering %s: %w", f.Path(), err)
		}
	}
	return &Schema{files: files}, nil
}

// FindMethod resolves a Route to its request/response message descriptors.
func (s *Schema) FindMethod(route Route) (protoreflect.MethodDescriptor, bool) {
	desc, err := s.files.FindDescriptorByName(protoreflect.FullName(route.Service))
	if err != nil {
		return nil, false
	}
	svc, ok := desc.(protoreflect.ServiceDescriptor)
	if !ok {
		return nil, false
	}
	md := svc.Methods().ByName(protoreflect.Name(route.Method))
	if md == nil {
		return nil, false
	}
	return md, true
}
