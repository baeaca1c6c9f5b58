package main

import (
	"testing"
	"time"

	uuid "github.com/satori/go.uuid"

	"github.com/denisvmedia/proxide/internal/session"
)

func TestBuildSearchIndexMatchesRequestAndResponseContent(t *testing.T) {
	s := session.New()
	connID := uuid.NewV4()
	reqID := uuid.NewV4()
	now := time.Now()

	s.Apply(session.NewConnectionEvent{ConnectionID: connID, Timestamp: now})
	s.Apply(session.NewRequestEvent{ConnectionID: connID, RequestID: reqID, Method: "POST", URI: "/svc.Foo/Bar", Timestamp: now})
	s.Apply(session.MessageDataEvent{RequestID: reqID, Part: session.PartRequest, Data: []byte("alpha beta")})
	s.Apply(session.MessageDataEvent{RequestID: reqID, Part: session.PartResponse, Data: []byte("gamma delta")})

	idx := buildSearchIndex(s)

	if got := idx.Search("alpha"); len(got) != 1 || got[0] != reqID {
		t.Fatalf("Search(alpha) = %v, want [%v]", got, reqID)
	}
	if got := idx.Search("delta"); len(got) != 1 || got[0] != reqID {
		t.Fatalf("Search(delta) = %v, want [%v]", got, reqID)
	}
	if got := idx.Search("nomatch"); len(got) != 0 {
		t.Fatalf("Search(nomatch) = %v, want empty", got)
	}
}
