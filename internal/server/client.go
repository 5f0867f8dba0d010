package server

import (
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	writeTimeout   = 10 * time.Second
	sendBufferSize = 256
)

// Client is one accepted TCP connection. Outbound messages go through a
// buffered send channel drained by writePump, so a slow reader on one
// connection never blocks the goroutine of another. It implements game.Conn.
type Client struct {
	id     uuid.UUID
	conn   net.Conn
	send   chan []byte
	done   chan struct{}
	closed atomic.Bool
	once   sync.Once
}

func newClient(conn net.Conn) *Client {
	return &Client{
		id:   uuid.New(),
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		done: make(chan struct{}),
	}
}

// ID returns the connection identifier issued at accept time.
func (c *Client) ID() uuid.UUID { return c.id }

// Closed reports whether the connection is closing or gone.
func (c *Client) Closed() bool { return c.closed.Load() }

// Close tears down the connection. Idempotent.
func (c *Client) Close() error {
	c.once.Do(func() {
		c.closed.Store(true)
		close(c.done)
		_ = c.conn.Close()
	})
	return nil
}

// Send marshals v as one JSON line and enqueues it. A connection whose send
// buffer is full is treated as dead and closed; the caller never blocks.
func (c *Client) Send(v any) error {
	if c.closed.Load() {
		return fmt.Errorf("connection %s is closed", c.id)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	data = append(data, '\n')

	select {
	case c.send <- data:
		return nil
	default:
		log.Warn().Str("conn_id", c.id.String()).Msg("send buffer full, closing connection")
		c.Close()
		return fmt.Errorf("send buffer full for connection %s", c.id)
	}
}

// writePump drains the send channel onto the socket until the connection
// closes or a write fails.
func (c *Client) writePump() {
	defer c.Close()

	for {
		select {
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if _, err := c.conn.Write(data); err != nil {
				log.Debug().Err(err).Str("conn_id", c.id.String()).Msg("write failed")
				return
			}
		case <-c.done:
			return
		}
	}
}
