package events_test

import (
	"testing"

	"github.com/ardanlabs/gossipchain/foundation/events"
)

func Test_Events(t *testing.T) {
	evts := events.New()

	ch1 := evts.Acquire("one")
	ch2 := evts.Acquire("two")

	if evts.Acquire("one") != ch1 || evts.Count() != 2 {
		t.Fatalf("Should reuse the channel of a known subscriber.")
	}

	evts.Send("viewer: block")

	for _, ch := range []chan string{ch1, ch2} {
		if got := <-ch; got != "viewer: block" {
			t.Fatalf("Should deliver the event to every subscriber: %s", got)
		}
	}

	if err := evts.Release("one"); err != nil {
		t.Fatalf("Should be able to release a subscriber: %s", err)
	}
	if _, open := <-ch1; open {
		t.Fatalf("Should close a released channel.")
	}
	if err := evts.Release("one"); err == nil {
		t.Fatalf("Should not release an unknown subscriber.")
	}

	// Send must not block on a subscriber that is behind.
	for i := 0; i < 200; i++ {
		evts.Send("event")
	}

	evts.Shutdown()
	if evts.Count() != 0 {
		t.Fatalf("Should remove every subscriber on shutdown.")
	}

	var buffered int
	for range ch2 {
		buffered++
	}
	if buffered != 100 {
		t.Fatalf("Should keep only what the subscriber can buffer: %d", buffered)
	}
}
