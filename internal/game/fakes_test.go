package game

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/KamingLo/TechType/internal/leaderboard"
)

// fakeConn is an in-memory game.Conn capturing every sent message.
type fakeConn struct {
	id     uuid.UUID
	name   string
	closed atomic.Bool
	msgs   chan any
}

func newFakeConn(name string) *fakeConn {
	return &fakeConn{id: uuid.New(), name: name, msgs: make(chan any, 64)}
}

func (f *fakeConn) ID() uuid.UUID { return f.id }

func (f *fakeConn) Closed() bool { return f.closed.Load() }

func (f *fakeConn) Close() error {
	f.closed.Store(true)
	return nil
}

func (f *fakeConn) Send(v any) error {
	if f.closed.Load() {
		return fmt.Errorf("connection %s is closed", f.name)
	}
	select {
	case f.msgs <- v:
		return nil
	default:
		return fmt.Errorf("send buffer full for %s", f.name)
	}
}

// next returns the next captured message, failing the test after a timeout.
func (f *fakeConn) next(t *testing.T) any {
	t.Helper()
	select {
	case v := <-f.msgs:
		return v
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for a message on %s", f.name)
		return nil
	}
}

// expectSilence asserts no message is pending.
func (f *fakeConn) expectSilence(t *testing.T) {
	t.Helper()
	select {
	case v := <-f.msgs:
		t.Fatalf("unexpected message on %s: %#v", f.name, v)
	default:
	}
}

// failingStore always errors, for the persistence-failure paths.
type failingStore struct {
	recordCalls atomic.Int32
}

func (f *failingStore) RecordScore(context.Context, string, int) error {
	f.recordCalls.Add(1)
	return fmt.Errorf("database is down")
}

func (f *failingStore) GetTop(context.Context, int) ([]leaderboard.Entry, error) {
	return nil, fmt.Errorf("database is down")
}
