package upstream_test

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/denisvmedia/proxide/internal/upstream"
)

type staticConfig struct {
	upstream string
	insecure bool
}

func (c staticConfig) Upstream() string          { return c.upstream }
func (c staticConfig) InsecureSkipVerify() bool  { return c.insecure }

func TestResolveProxyUsesConfiguredUpstream(t *testing.T) {
	mgr := upstream.NewManager(staticConfig{upstream: "http://proxy.internal:8080"})

	got, err := mgr.ResolveProxy("example.com:443")
	if err != nil {
		t.Fatalf("ResolveProxy: %v", err)
	}
	if got == nil || got.String() != "http://proxy.internal:8080" {
		t.Fatalf("got %v, want http://proxy.internal:8080", got)
	}
}

func TestResolveProxyHonorsCustomResolver(t *testing.T) {
	mgr := upstream.NewManager(staticConfig{})
	custom, _ := url.Parse("http://custom:9090")
	mgr.SetProxyResolver(func(*http.Request) (*url.URL, error) {
		return custom, nil
	})

	got, err := mgr.ResolveProxy("example.com:443")
	if err != nil {
		t.Fatalf("ResolveProxy: %v", err)
	}
	if got.String() != "http://custom:9090" {
		t.Fatalf("got %v, want http://custom:9090", got)
	}
}
