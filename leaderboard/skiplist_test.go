package leaderboard

import (
	"scorekit/core"
	"testing"
)

func TestSkipListBasic(t *testing.T) {
	s := NewSkipList()
	s.Update(core.UserID("a"), 10)
	s.Update(core.UserID("b"), 20)
	s.Update(core.UserID("c"), 15)
	top := s.TopN(3)
	if len(top) != 3 || top[0].User != core.UserID("b") || top[1].User != core.UserID("c") || top[2].User != core.UserID("a") {
		t.Fatalf("unexpected order: %#v", top)
	}
	s.Update(core.UserID("a"), 25)
	top = s.TopN(1)
	if top[0].User != core.UserID("a") {
		t.Fatalf("top should be a, got %#v", top)
	}
}

func TestSkipListRank(t *testing.T) {
	s := NewSkipList()
	s.Update(core.UserID("a"), 100)
	s.Update(core.UserID("b"), 300)
	s.Update(core.UserID("c"), 200)

	if r, ok := s.Rank(core.UserID("b")); !ok || r != 1 {
		t.Fatalf("rank(b) = %d/%v, want 1", r, ok)
	}
	if r, ok := s.Rank(core.UserID("a")); !ok || r != 3 {
		t.Fatalf("rank(a) = %d/%v, want 3", r, ok)
	}
	if _, ok := s.Rank(core.UserID("zz")); ok {
		t.Fatal("rank of unknown user should miss")
	}

	s.Remove(core.UserID("b"))
	if r, ok := s.Rank(core.UserID("c")); !ok || r != 1 {
		t.Fatalf("rank(c) after removal = %d/%v, want 1", r, ok)
	}
}
