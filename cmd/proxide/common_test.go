package main

import (
	"reflect"
	"testing"
)

func TestNormalizeProtoPathsTrimsDropsAndDedupes(t *testing.T) {
	got := normalizeProtoPaths([]string{" /a/protos ", "", "/b/protos", "/a/protos", "   "})
	want := []string{"/a/protos", "/b/protos"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("normalizeProtoPaths() = %v, want %v", got, want)
	}
}

func TestNormalizeProtoPathsNilInput(t *testing.T) {
	if got := normalizeProtoPaths(nil); len(got) != 0 {
		t.Fatalf("normalizeProtoPaths(nil) = %v, want empty", got)
	}
}
