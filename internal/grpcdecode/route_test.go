package grpcdecode

import "testing"

func TestResolveRouteTakesLastTwoSegments(t *testing.T) {
	r, ok := ResolveRoute("/helloworld.Greeter/SayHello")
	if !ok {
		t.Fatal("expected ok")
	}
	if r.Service != "helloworld.Greeter" || r.Method != "SayHello" {
		t.Fatalf("got %+v", r)
	}
}

func TestResolveRouteIgnoresMountPrefix(t *testing.T) {
	r, ok := ResolveRoute("/grpc-mount/helloworld.Greeter/SayHello")
	if !ok {
		t.Fatal("expected ok")
	}
	if r.Service != "helloworld.Greeter" || r.Method != "SayHello" {
		t.Fatalf("got %+v", r)
	}
}

func TestResolveRouteRejectsShortPaths(t *testing.T) {
	if _, ok := ResolveRoute("/onlyone"); ok {
		t.Fatal("expected not ok")
	}
}

func TestIsGRPCMatchesVariants(t *testing.T) {
	for _, ct := range []string{"application/grpc", "application/grpc+proto", "application/grpc+json"} {
		if !IsGRPC(ct) {
			t.Fatalf("%q should be recognized as gRPC", ct)
		}
	}
	if IsGRPC("application/json") {
		t.Fatal("plain json should not match")
	}
}
