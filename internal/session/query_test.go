package session

import (
	"testing"
	"time"

	uuid "github.com/satori/go.uuid"
)

func TestRequestsByMethodAndURIPrefix(t *testing.T) {
	s := New()
	connID := uuid.NewV4()
	now := time.Now()
	s.Apply(NewConnectionEvent{ConnectionID: connID, Timestamp: now})

	getID := uuid.NewV4()
	postID := uuid.NewV4()
	s.Apply(NewRequestEvent{ConnectionID: connID, RequestID: getID, Method: "GET", URI: "/svc.Foo/Bar", Timestamp: now})
	s.Apply(NewRequestEvent{ConnectionID: connID, RequestID: postID, Method: "POST", URI: "/svc.Foo/Baz", Timestamp: now})

	gets := s.RequestsByMethod("GET")
	if len(gets) != 1 || gets[0].ID != getID {
		t.Fatalf("RequestsByMethod(GET) = %+v", gets)
	}

	prefixed := s.RequestsWithURIPrefix("/svc.Foo/")
	if len(prefixed) != 2 {
		t.Fatalf("RequestsWithURIPrefix() = %d requests, want 2", len(prefixed))
	}
}

func TestFailedRequestsAndConnectionIDs(t *testing.T) {
	s := New()
	connID := uuid.NewV4()
	now := time.Now()
	s.Apply(NewConnectionEvent{ConnectionID: connID, Timestamp: now})

	okID := uuid.NewV4()
	failID := uuid.NewV4()
	s.Apply(NewRequestEvent{ConnectionID: connID, RequestID: okID, Timestamp: now})
	s.Apply(NewRequestEvent{ConnectionID: connID, RequestID: failID, Timestamp: now})
	s.Apply(RequestDoneEvent{RequestID: okID, Status: StatusSucceeded, Timestamp: now})
	s.Apply(RequestDoneEvent{RequestID: failID, Status: StatusFailed, Timestamp: now})

	failed := s.FailedRequests()
	if len(failed) != 1 || failed[0].ID != failID {
		t.Fatalf("FailedRequests() = %+v", failed)
	}

	ids := s.ConnectionIDs()
	if len(ids) != 1 || ids[0] != connID {
		t.Fatalf("ConnectionIDs() = %v", ids)
	}
}
