package events_test

import (
	"testing"

	"github.com/ardanlabs/powledger/foundation/events"
)

func Test_Events(t *testing.T) {
	evts := events.New()

	ch1 := evts.Acquire("one")
	ch2 := evts.Acquire("two")

	if again := evts.Acquire("one"); again != ch1 {
		t.Fatalf("Should get back the same channel for the same id.")
	}

	evts.Send("viewer: block")

	for i, ch := range []chan string{ch1, ch2} {
		if msg := <-ch; msg != "viewer: block" {
			t.Fatalf("Should receive the event on channel %d, got %q.", i, msg)
		}
	}

	if err := evts.Release("one"); err != nil {
		t.Fatalf("Should be able to release the channel: %v", err)
	}

	if _, open := <-ch1; open {
		t.Fatalf("Should close a released channel.")
	}

	if err := evts.Release("one"); err == nil {
		t.Fatalf("Should not release the same id twice.")
	}

	evts.Shutdown()

	if _, open := <-ch2; open {
		t.Fatalf("Should close every channel on shutdown.")
	}

	// Send must not block with no receivers.
	evts.Send("after shutdown")
}

func Test_EventsPrefix(t *testing.T) {
	evts := events.New()
	defer evts.Shutdown()

	blocks := evts.Acquire("blocks", "viewer: block:")
	all := evts.Acquire("all")

	evts.Send("state: AddTransaction: tx[a->b:10]")
	evts.Send(`viewer: block: {"hash":"00ab"}`)

	if msg := <-blocks; msg != `viewer: block: {"hash":"00ab"}` {
		t.Fatalf("Should only receive block events, got %q.", msg)
	}

	if len(blocks) != 0 {
		t.Fatalf("Should not receive events outside the prefix.")
	}

	if len(all) != 2 {
		t.Fatalf("Should receive every event without a prefix, got %d.", len(all))
	}
}
