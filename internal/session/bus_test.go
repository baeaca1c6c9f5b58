package session

import (
	"sync"
	"testing"
	"time"

	uuid "github.com/satori/go.uuid"
)

func TestBusFansOutToAllSinks(t *testing.T) {
	bus := NewBus(4)

	var mu sync.Mutex
	var gotA, gotB []Event
	bus.Register(SinkFunc(func(e Event) {
		mu.Lock()
		gotA = append(gotA, e)
		mu.Unlock()
	}))
	bus.Register(SinkFunc(func(e Event) {
		mu.Lock()
		gotB = append(gotB, e)
		mu.Unlock()
	}))

	go bus.Run()

	ev := NewConnectionEvent{ConnectionID: uuid.NewV4()}
	bus.Emit(ev)
	bus.Close()

	// Give Run's goroutine a moment to drain; Bus offers no drained-signal
	// to wait on, so the test sleeps briefly instead.
	time.Sleep(10 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(gotA) != 1 || len(gotB) != 1 {
		t.Fatalf("fan-out mismatch: A=%d B=%d", len(gotA), len(gotB))
	}
}
