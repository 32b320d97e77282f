package chat

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSubscribeEmit(t *testing.T) {
	ev := NewEvents()
	done := make(chan *PresenceEvent, 1)
	ev.Subscribe(EventClientJoined, func(e Event) {
		if pe, ok := e.(*PresenceEvent); ok {
			done <- pe
		}
	})
	ev.Emit(&PresenceEvent{Kind: EventClientJoined, When: time.Now(), Name: "alice"})

	select {
	case pe := <-done:
		assert.Equal(t, "alice", pe.Name)
	case <-time.After(2 * time.Second):
		t.Fatalf("joined handler not invoked")
	}
}

func TestEmitOnlyMatchingType(t *testing.T) {
	ev := NewEvents()
	called := make(chan struct{}, 1)
	ev.Subscribe(EventClientLeft, func(Event) { called <- struct{}{} })
	ev.Emit(&PresenceEvent{Kind: EventClientJoined, When: time.Now()})

	select {
	case <-called:
		t.Fatalf("left handler invoked for joined event")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSubscribeCancelable(t *testing.T) {
	ev := NewEvents()
	called := make(chan struct{}, 1)
	cancel := ev.SubscribeCancelable(EventClientRejected, func(Event) { called <- struct{}{} })
	cancel()
	cancel()
	ev.Emit(&PresenceEvent{Kind: EventClientRejected, When: time.Now()})

	select {
	case <-called:
		t.Fatalf("handler invoked after cancel")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestEmitRecoversPanics(t *testing.T) {
	ev := NewEvents()
	done := make(chan struct{}, 1)
	ev.Subscribe(EventClientJoined, func(Event) { panic("boom") })
	ev.Subscribe(EventClientJoined, func(Event) { done <- struct{}{} })
	ev.Emit(&PresenceEvent{Kind: EventClientJoined, When: time.Now()})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("second handler not invoked")
	}
}

func TestEmitOnNilEvents(t *testing.T) {
	var ev *Events
	assert.NotPanics(t, func() {
		ev.Emit(&PresenceEvent{Kind: EventClientJoined})
	})
}

func TestSubscribeOrderedKeepsEmitOrder(t *testing.T) {
	ev := NewEvents()
	var (
		mu  sync.Mutex
		got []EventType
	)
	ev.SubscribeOrdered(func(e Event) {
		time.Sleep(time.Millisecond)
		mu.Lock()
		got = append(got, e.Type())
		mu.Unlock()
	}, EventClientJoined, EventClientLeft)

	want := make([]EventType, 0, 20)
	for i := 0; i < 10; i++ {
		ev.Emit(&PresenceEvent{Kind: EventClientJoined})
		ev.Emit(&PresenceEvent{Kind: EventClientLeft})
		want = append(want, EventClientJoined, EventClientLeft)
	}
	ev.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, want, got)
}

func TestSubscribeOrderedCancel(t *testing.T) {
	ev := NewEvents()
	var calls atomic.Int32
	cancel := ev.SubscribeOrdered(func(Event) { calls.Add(1) }, EventClientJoined, EventClientLeft)
	cancel()
	ev.Emit(&PresenceEvent{Kind: EventClientJoined})
	ev.Emit(&PresenceEvent{Kind: EventClientLeft})
	ev.Wait()
	assert.Zero(t, calls.Load())
}

func TestWaitDrainsInflightHandlers(t *testing.T) {
	ev := NewEvents()
	var done atomic.Bool
	ev.Subscribe(EventClientLeft, func(Event) {
		time.Sleep(50 * time.Millisecond)
		done.Store(true)
	})
	ev.Emit(&PresenceEvent{Kind: EventClientLeft})
	ev.Wait()
	assert.True(t, done.Load())
}

func TestWaitSurvivesPanickingOrderedHandler(t *testing.T) {
	ev := NewEvents()
	ev.SubscribeOrdered(func(Event) { panic("boom") }, EventClientJoined)
	ev.Emit(&PresenceEvent{Kind: EventClientJoined})
	ev.Emit(&PresenceEvent{Kind: EventClientJoined})

	waited := make(chan struct{})
	go func() {
		ev.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-time.After(2 * time.Second):
		t.Fatal("wait blocked after handler panic")
	}

	var nilEvents *Events
	assert.NotPanics(t, nilEvents.Wait)
}
