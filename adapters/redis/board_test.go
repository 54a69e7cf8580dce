package redis

import (
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scorekit/core"
)

// newTestClient spins up a miniredis server and returns a client plus cleanup.
func newTestClient(t *testing.T) (*redis.Client, func()) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cleanup := func() {
		_ = client.Close()
		mr.Close()
	}
	return client, cleanup
}

func TestBoard_UpdateAndTopN(t *testing.T) {
	client, cleanup := newTestClient(t)
	defer cleanup()

	board := NewWithClient(client, "")

	board.Update(core.UserID("a"), 100)
	board.Update(core.UserID("b"), 300)
	board.Update(core.UserID("c"), 200)

	top := board.TopN(2)
	require.Len(t, top, 2)
	assert.Equal(t, core.UserID("b"), top[0].User)
	assert.Equal(t, int64(300), top[0].Score)
	assert.Equal(t, core.UserID("c"), top[1].User)

	// re-scoring moves the member, never duplicates it
	board.Update(core.UserID("a"), 500)
	top = board.TopN(3)
	require.Len(t, top, 3)
	assert.Equal(t, core.UserID("a"), top[0].User)
}

func TestBoard_GetAndRank(t *testing.T) {
	client, cleanup := newTestClient(t)
	defer cleanup()

	board := NewWithClient(client, "test:board")

	board.Update(core.UserID("a"), 100)
	board.Update(core.UserID("b"), 300)

	e, ok := board.Get(core.UserID("a"))
	require.True(t, ok)
	assert.Equal(t, int64(100), e.Score)

	rank, ok := board.Rank(core.UserID("b"))
	require.True(t, ok)
	assert.Equal(t, 1, rank)

	rank, ok = board.Rank(core.UserID("a"))
	require.True(t, ok)
	assert.Equal(t, 2, rank)

	_, ok = board.Rank(core.UserID("ghost"))
	assert.False(t, ok)
}

func TestBoard_Remove(t *testing.T) {
	client, cleanup := newTestClient(t)
	defer cleanup()

	board := NewWithClient(client, "test:board")
	board.Update(core.UserID("a"), 100)
	board.Remove(core.UserID("a"))

	_, ok := board.Get(core.UserID("a"))
	assert.False(t, ok)
	assert.Empty(t, board.TopN(5))
}
