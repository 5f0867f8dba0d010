package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_MatchEnqueuesWhenEmpty(t *testing.T) {
	q := NewQueue()
	c := newFakeConn("a")

	opponent, self, depth := q.Match(c)
	assert.Nil(t, opponent)
	require.NotNil(t, self)
	assert.Equal(t, 1, depth)
	assert.True(t, q.Contains(c.ID()))
}

func TestQueue_MatchPairsFIFO(t *testing.T) {
	q := NewQueue()
	first := newFakeConn("first")
	second := newFakeConn("second")
	third := newFakeConn("third")

	_, w1, _ := q.Match(first)
	require.NotNil(t, w1)
	_, w2, depth := q.Match(second)
	require.NotNil(t, w2)
	assert.Equal(t, 2, depth)

	opponent, self, _ := q.Match(third)
	require.NotNil(t, opponent)
	assert.Nil(t, self)
	assert.Equal(t, first.ID(), opponent.Conn().ID(), "earliest arrival pairs first")

	// Until the pair is confirmed the popped entry stays reserved, so a
	// re-request from it cannot create a duplicate.
	assert.True(t, q.Contains(first.ID()))
	o2, s2, _ := q.Match(first)
	assert.Nil(t, o2)
	assert.Nil(t, s2)

	q.Resolve(opponent, WaitMatched)
	assert.Equal(t, WaitMatched, opponent.Outcome())
	assert.False(t, q.Contains(first.ID()))
	assert.True(t, q.Contains(second.ID()))
}

func TestQueue_MatchSkipsDeadEntries(t *testing.T) {
	q := NewQueue()
	dead := newFakeConn("dead")
	live := newFakeConn("live")
	requester := newFakeConn("requester")

	_, deadWaiter, _ := q.Match(dead)
	_, _, _ = q.Match(live)
	dead.Close()

	opponent, _, _ := q.Match(requester)
	require.NotNil(t, opponent)
	assert.Equal(t, live.ID(), opponent.Conn().ID())

	// The dead waiter's signal resolves as disconnected so its goroutine exits.
	assert.Equal(t, WaitDisconnected, deadWaiter.Outcome())
	assert.False(t, q.Contains(dead.ID()))
}

func TestQueue_MatchAllDeadEnqueuesRequester(t *testing.T) {
	q := NewQueue()
	dead := newFakeConn("dead")
	requester := newFakeConn("requester")

	_, _, _ = q.Match(dead)
	dead.Close()

	opponent, self, depth := q.Match(requester)
	assert.Nil(t, opponent)
	require.NotNil(t, self)
	assert.Equal(t, 1, depth)
}

func TestQueue_DuplicateRequestIsNoOp(t *testing.T) {
	q := NewQueue()
	c := newFakeConn("a")

	_, self, _ := q.Match(c)
	require.NotNil(t, self)

	opponent, dup, _ := q.Match(c)
	assert.Nil(t, opponent)
	assert.Nil(t, dup)
	assert.Equal(t, 1, q.Len(), "re-request must not create a duplicate entry")
}

func TestQueue_Remove(t *testing.T) {
	q := NewQueue()
	c := newFakeConn("a")

	_, self, _ := q.Match(c)
	require.NotNil(t, self)

	assert.True(t, q.Remove(c.ID(), WaitCancelled))
	assert.Equal(t, WaitCancelled, self.Outcome())
	assert.False(t, q.Contains(c.ID()))
	assert.Equal(t, 0, q.Len())

	assert.False(t, q.Remove(c.ID(), WaitCancelled), "second remove is a no-op")
}

func TestQueue_ResolveOnlyOnce(t *testing.T) {
	q := NewQueue()
	c := newFakeConn("a")

	_, self, _ := q.Match(c)
	require.NotNil(t, self)

	q.Remove(c.ID(), WaitDisconnected)
	q.Resolve(self, WaitMatched)

	assert.Equal(t, WaitDisconnected, self.Outcome(), "first resolution wins")
	select {
	case extra := <-self.ch:
		t.Fatalf("waiter resolved twice, got extra outcome %v", extra)
	default:
	}
}
