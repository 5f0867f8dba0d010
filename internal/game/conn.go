package game

import "github.com/google/uuid"

// Conn is one live client connection as the coordinator sees it. The
// coordinator routes on the connection ID and never touches the underlying
// transport; raw sockets and bridged WebSocket clients look identical here.
type Conn interface {
	// ID is the connection identifier issued at accept time.
	ID() uuid.UUID
	// Send marshals v as one JSON line and enqueues it for delivery. A send
	// to a dead or saturated connection returns an error but must never
	// block the caller.
	Send(v any) error
	// Closed reports whether the connection is closing or gone.
	Closed() bool
	// Close tears down the transport. Idempotent.
	Close() error
}
