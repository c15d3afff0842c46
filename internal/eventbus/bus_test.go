package eventbus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	t.Parallel()
	b := New()
	ch, unsub := b.Subscribe(4)
	defer unsub()

	b.Publish(Signal{Type: "x", Data: 1})

	select {
	case sig := <-ch:
		if sig.Type != "x" {
			t.Fatalf("Type = %q", sig.Type)
		}
		if sig.Time.IsZero() {
			t.Fatal("publish must stamp time")
		}
	case <-time.After(time.Second):
		t.Fatal("no signal received")
	}
}

func TestPublishDoesNotBlockOnFullSubscriber(t *testing.T) {
	t.Parallel()
	b := New()
	_, unsub := b.Subscribe(1)
	defer unsub()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			b.Publish(Signal{Type: "flood"})
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	t.Parallel()
	b := New()
	ch, unsub := b.Subscribe(4)
	unsub()

	b.Publish(Signal{Type: "after-unsub"})

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("received signal after unsubscribe")
		}
	case <-time.After(100 * time.Millisecond):
		// Channel may be closed or simply silent; both are acceptable.
	}
}

func TestMultipleSubscribers(t *testing.T) {
	t.Parallel()
	b := New()
	ch1, u1 := b.Subscribe(4)
	ch2, u2 := b.Subscribe(4)
	defer u1()
	defer u2()

	b.Publish(Signal{Type: "fanout"})

	for i, ch := range []<-chan Signal{ch1, ch2} {
		select {
		case sig := <-ch:
			if sig.Type != "fanout" {
				t.Fatalf("subscriber %d: Type = %q", i, sig.Type)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d: no signal", i)
		}
	}
}
