package engine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"scorekit/core"
)

func TestEventBusSyncDispatch(t *testing.T) {
	bus := NewEventBus(DispatchSync)
	defer bus.Close()

	var got atomic.Int32
	unsub := bus.Subscribe(core.EventScoreSubmitted, func(_ context.Context, e core.Event) {
		got.Add(1)
	})

	bus.Publish(context.Background(), core.NewScoreSubmitted("a", 100, 1, 1))
	bus.Publish(context.Background(), core.NewRankChange("a", 2, 1)) // different type, no delivery

	if got.Load() != 1 {
		t.Fatalf("deliveries = %d, want 1", got.Load())
	}

	unsub()
	bus.Publish(context.Background(), core.NewScoreSubmitted("a", 100, 1, 1))
	if got.Load() != 1 {
		t.Fatal("unsubscribed handler still invoked")
	}
}

func TestEventBusAsyncDispatch(t *testing.T) {
	bus := NewEventBus(DispatchAsync)
	defer bus.Close()

	done := make(chan core.Event, 1)
	bus.Subscribe(core.EventStreakMilestone, func(_ context.Context, e core.Event) {
		done <- e
	})

	bus.Publish(context.Background(), core.NewStreakMilestone("a", 3, 500))

	select {
	case ev := <-done:
		if ev.Streak != 3 || ev.Bonus != 500 {
			t.Fatalf("event = %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("async delivery timed out")
	}
}
