package eventbus

import (
	"testing"
	"time"
)

var _ Bus[*event] = (*InMemoryBus[*event])(nil)

type event struct {
	Kind string
	Text string
}

func TestSubscribePublishUnsubscribe(t *testing.T) {
	bus := NewInMemoryBus[*event]()
	ch := bus.Subscribe()

	bus.Publish(&event{Kind: "diff", Text: "ok"})

	select {
	case got := <-ch:
		if got.Text != "ok" {
			t.Fatalf("unexpected event text: %s", got.Text)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("did not receive event")
	}

	bus.Unsubscribe(ch)
	if _, open := <-ch; open {
		t.Fatal("channel not closed after Unsubscribe")
	}
	bus.mu.RLock()
	n := len(bus.subs)
	bus.mu.RUnlock()
	if n != 0 {
		t.Fatalf("%d subscribers after Unsubscribe, want 0", n)
	}
}

func TestDoesNotBlockOnSlowSubscriber(t *testing.T) {
	bus := NewInMemoryBus[*event]()
	ch := bus.Subscribe()

	// Fill channel to capacity (64) without reading.
	for i := 0; i < 64; i++ {
		bus.Publish(&event{Text: "x"})
	}

	done := make(chan struct{})
	go func() {
		// This publish should be dropped and return immediately.
		bus.Publish(&event{Text: "overflow"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("publish blocked on full channel")
	}

	bus.Unsubscribe(ch)
}

func TestMultipleSubscribers(t *testing.T) {
	bus := NewInMemoryBus[*event]()
	ch1 := bus.Subscribe()
	ch2 := bus.Subscribe()

	bus.Publish(&event{Text: "hello"})

	for _, ch := range []chan *event{ch1, ch2} {
		select {
		case got := <-ch:
			if got.Text != "hello" {
				t.Fatalf("unexpected text: %s", got.Text)
			}
		case <-time.After(500 * time.Millisecond):
			t.Fatal("subscriber did not receive event")
		}
	}

	bus.Unsubscribe(ch1)
	bus.Unsubscribe(ch2)
}

func TestUnsubscribeUnknownChannel(t *testing.T) {
	bus := NewInMemoryBus[*event]()
	ch := bus.Subscribe()

	// Must not panic or close ch.
	bus.Unsubscribe(make(chan *event))

	bus.Publish(&event{Text: "still here"})
	select {
	case got := <-ch:
		if got.Text != "still here" {
			t.Fatalf("unexpected text: %s", got.Text)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("subscriber lost after unrelated Unsubscribe")
	}
}
