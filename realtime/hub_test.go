package realtime

import (
	"context"
	"testing"

	"scorekit/core"
)

func TestHubBroadcast(t *testing.T) {
	h := NewHub()
	id, ch := h.Subscribe(4)
	defer h.Unsubscribe(id)

	ev := core.NewScoreSubmitted("alice", 2220, 1, 1)
	h.Broadcast(context.Background(), ev)

	got := <-ch
	if got.Type != core.EventScoreSubmitted || got.UserID != "alice" {
		t.Fatalf("got %+v", got)
	}
}

func TestHubUserFilter(t *testing.T) {
	h := NewHub()
	id, ch := h.SubscribeUser("alice", 4)
	defer h.Unsubscribe(id)

	h.Broadcast(context.Background(), core.NewScoreSubmitted("bob", 100, 1, 2))
	h.Broadcast(context.Background(), core.NewAchievementUnlocked("alice", "first_level"))

	got := <-ch
	if got.UserID != "alice" || got.AchievementID != "first_level" {
		t.Fatalf("filter leaked: %+v", got)
	}
	select {
	case ev := <-ch:
		t.Fatalf("unexpected second event: %+v", ev)
	default:
	}
}

func TestHubUnsubscribeClosesChannel(t *testing.T) {
	h := NewHub()
	id, ch := h.Subscribe(1)
	h.Unsubscribe(id)
	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed")
	}
}

func TestHubDropsWhenFull(t *testing.T) {
	h := NewHub()
	id, ch := h.Subscribe(1)
	defer h.Unsubscribe(id)

	h.Broadcast(context.Background(), core.NewScoreSubmitted("a", 1, 1, 1))
	h.Broadcast(context.Background(), core.NewScoreSubmitted("a", 2, 1, 1))

	got := <-ch
	if got.Score != 1 {
		t.Fatalf("first event should survive, got %+v", got)
	}
	select {
	case ev := <-ch:
		t.Fatalf("second event should have been dropped: %+v", ev)
	default:
	}
}
