package grpcdecode

import (
	"strings"
)

// Route identifies a gRPC method by its fully-qualified service and bare
// method name, as carried in a request URI of the form
// "/package.Service/Method".
type Route struct {
	Service string
	Method  string
}

const grpcContentTypePrefix = "application/grpc"

// IsGRPC reports whether contentType marks a gRPC request/response body,
// per §4.8 ("content-type: application/grpc" and its "+proto"/"+json"
// variants).
func IsGRPC(contentType string) bool {
	return strings.HasPrefix(contentType, grpcContentTypePrefix)
}

// ResolveRoute extracts the service and method from a gRPC request path.
// It takes the last two "/"-separated segments, so a path with an
// additional mount prefix (e.g. behind a load balancer rewrite) still
// resolves correctly.
func ResolveRoute(uriPath string) (Route, bool) {
	path := strings.TrimSuffix(uriPath, "/")
	segments := strings.Split(path, "/")
	if len(segments) < 2 {
		return Route{}, false
	}
	method := segments[len(segments)-1]
	service := segments[len(segments)-2]
	if method == "" || service == "" {
		return Route{}, false
	}
	return Route{Service: service, Method: method}, true
}
