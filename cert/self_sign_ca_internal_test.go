// This file tests internal/unexported behavior (getStorePath, saveTo,
// caFile) that cannot be adequately exercised through the public CA
// interface alone.
package cert

import (
	"bytes"
	"crypto/tls"
	"os"
	"path/filepath"
	"testing"
)

func TestGetStorePath(t *testing.T) {
	path, err := getStorePath("")
	if err != nil {
		t.Fatal(err)
	}
	if path == "" {
		t.Fatal("should have path")
	}
}

func TestGetStorePathHonorsExplicitDir(t *testing.T) {
	dir := t.TempDir()
	path, err := getStorePath(dir)
	if err != nil {
		t.Fatal(err)
	}
	if path != dir {
		t.Fatalf("path = %q, want %q", path, dir)
	}
}

func TestSaveToAndCaFile(t *testing.T) {
	dir := t.TempDir()
	caAPI, err := NewSelfSignCA(dir)
	if err != nil {
		t.Fatal(err)
	}
	ca := caAPI.(*SelfSignCA)

	var buf bytes.Buffer
	if err := ca.saveTo(&buf); err != nil {
		t.Fatal(err)
	}

	fileContent, err := os.ReadFile(ca.caFile())
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(fileContent, buf.Bytes()) {
		t.Fatal("pem content should equal")
	}
	if ca.caFile() != filepath.Join(dir, "proxide_ca.crt") {
		t.Fatalf("caFile() = %q", ca.caFile())
	}
}

func TestGetCertCachesLeafPerHostname(t *testing.T) {
	caAPI, err := NewSelfSignCA(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	c1, err := caAPI.GetCert("api.example.test:443")
	if err != nil {
		t.Fatal(err)
	}
	c2, err := caAPI.GetCert("api.example.test")
	if err != nil {
		t.Fatal(err)
	}
	if c1 != c2 {
		t.Fatal("expected cached leaf for the same hostname (port stripped)")
	}

	other, err := caAPI.GetCert("other.test")
	if err != nil {
		t.Fatal(err)
	}
	if other == c1 {
		t.Fatal("expected distinct leaf for a different hostname")
	}
}

func TestGetCertProducesChainedLeaf(t *testing.T) {
	caAPI, err := NewSelfSignCA(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	leaf, err := caAPI.GetCert("svc.internal.test")
	if err != nil {
		t.Fatal(err)
	}

	var tlsCert tls.Certificate = *leaf
	if len(tlsCert.Certificate) != 2 {
		t.Fatalf("expected leaf+root chain, got %d certs", len(tlsCert.Certificate))
	}

	if caAPI.GetRootCA() == nil {
		t.Fatal("GetRootCA() = nil")
	}
}
