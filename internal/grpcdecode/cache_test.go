package grpcdecode

import "testing"

func TestSchemaCacheKeyIsOrderSensitive(t *testing.T) {
	a := schemaCacheKey([]string{"a.proto", "b.proto"})
	b := schemaCacheKey([]string{"b.proto", "a.proto"})
	if a == b {
		t.Fatal("expected different cache keys for different file orderings")
	}
}

func TestSchemaCacheKeyStableForSameInput(t *testing.T) {
	a := schemaCacheKey([]string{"a.proto", "b.proto"})
	b := schemaCacheKey([]string{"a.proto", "b.proto"})
	if a != b {
		t.Fatal("expected identical cache keys for identical input")
	}
}
