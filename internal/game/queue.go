package game

import (
	"sync"

	"github.com/google/uuid"
)

// WaitOutcome is the single resolution delivered to a queued player's
// goroutine: it either got matched, cancelled matchmaking, or disconnected.
type WaitOutcome int

const (
	WaitMatched WaitOutcome = iota
	WaitCancelled
	WaitDisconnected
)

// Waiter is one queued connection plus its resolution signal. The signal
// channel is buffered and resolved exactly once.
type Waiter struct {
	conn Conn
	ch   chan WaitOutcome
	done bool
}

// Conn returns the queued connection.
func (w *Waiter) Conn() Conn { return w.conn }

// Outcome blocks until the waiter is resolved.
func (w *Waiter) Outcome() WaitOutcome { return <-w.ch }

// Queue is the FIFO matchmaking queue. Entries whose connection has since
// closed are discarded lazily when a later request scans the queue.
type Queue struct {
	mu      sync.Mutex
	waiters []*Waiter
	byID    map[uuid.UUID]*Waiter
}

// NewQueue creates an empty matchmaking queue.
func NewQueue() *Queue {
	return &Queue{byID: make(map[uuid.UUID]*Waiter)}
}

// Match atomically either pairs conn with the earliest live waiter or
// enqueues conn. It returns the opponent's waiter when a pair formed, or
// conn's own new waiter plus the queue depth when conn was enqueued.
// A connection already queued gets (nil, nil, 0): re-requests are no-ops.
func (q *Queue) Match(conn Conn) (opponent *Waiter, self *Waiter, depth int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, queued := q.byID[conn.ID()]; queued {
		return nil, nil, 0
	}

	// Pop the earliest entry still alive; discard dead ones as we go. A
	// popped waiter stays in the index until Resolve records the pair, so a
	// re-request from that handle mid-pairing is still a no-op.
	for len(q.waiters) > 0 {
		head := q.waiters[0]
		q.waiters = q.waiters[1:]
		if head.conn.Closed() {
			delete(q.byID, head.conn.ID())
			q.resolveLocked(head, WaitDisconnected)
			continue
		}
		return head, nil, 0
	}

	w := &Waiter{conn: conn, ch: make(chan WaitOutcome, 1)}
	q.waiters = append(q.waiters, w)
	q.byID[conn.ID()] = w
	return nil, w, len(q.waiters)
}

// Remove takes id out of the queue and resolves its wait signal with the
// given outcome. It reports whether id was queued; an entry already popped
// for pairing is no longer removable.
func (q *Queue) Remove(id uuid.UUID, outcome WaitOutcome) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	w, ok := q.byID[id]
	if !ok {
		return false
	}
	for i, queued := range q.waiters {
		if queued == w {
			q.waiters = append(q.waiters[:i], q.waiters[i+1:]...)
			delete(q.byID, id)
			q.resolveLocked(w, outcome)
			return true
		}
	}
	return false
}

// Resolve delivers the outcome to a waiter previously popped via Match and
// releases its reservation in the index.
func (q *Queue) Resolve(w *Waiter, outcome WaitOutcome) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.byID, w.conn.ID())
	q.resolveLocked(w, outcome)
}

// Contains reports whether id is currently queued.
func (q *Queue) Contains(id uuid.UUID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.byID[id]
	return ok
}

// Len returns the current queue depth.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiters)
}

func (q *Queue) resolveLocked(w *Waiter, outcome WaitOutcome) {
	if w.done {
		return
	}
	w.done = true
	w.ch <- outcome
}
