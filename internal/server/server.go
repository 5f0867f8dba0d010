// Package server is the TCP front of the coordinator: it accepts
// connections, performs the login handshake, and feeds newline-delimited
// JSON messages into the game coordinator, one goroutine per connection.
package server

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/KamingLo/TechType/internal/game"
	"github.com/KamingLo/TechType/internal/protocol"
)

// maxLineSize bounds one protocol line; anything larger is a broken client.
const maxLineSize = 256 * 1024

// Server accepts TCP connections and hands each one to the coordinator.
type Server struct {
	addr        string
	coordinator *game.Coordinator
	listener    net.Listener
	running     atomic.Bool
}

// New creates a server bound to addr once Run is called.
func New(addr string, coordinator *game.Coordinator) *Server {
	return &Server{addr: addr, coordinator: coordinator}
}

// Addr returns the bound listen address, valid after Listen.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Listen binds the listener without starting the accept loop.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln
	s.running.Store(true)
	log.Info().Str("addr", ln.Addr().String()).Msg("coordinator listening")
	return nil
}

// Serve runs the accept loop until ctx is cancelled. Each connection gets
// its own goroutine; a failure on one connection never touches another.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.running.Store(false)
		_ = s.listener.Close()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.running.Load() {
				return nil
			}
			log.Error().Err(err).Msg("accept failed")
			continue
		}
		go s.handleConn(ctx, conn)
	}
}

// Run binds and serves.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// handleConn owns one connection's lifecycle: handshake, message loop,
// disconnect cleanup.
func (s *Server) handleConn(ctx context.Context, netConn net.Conn) {
	client := newClient(netConn)
	go client.writePump()
	defer client.Close()

	log.Info().
		Str("conn_id", client.ID().String()).
		Str("remote", netConn.RemoteAddr().String()).
		Msg("connection accepted")

	scanner := bufio.NewScanner(netConn)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)

	// The first line must be a login handshake; anything else drops the
	// connection before it is registered anywhere.
	if !scanner.Scan() {
		return
	}
	handshake, err := protocol.DecodeClientMessage(bytes.TrimSpace(scanner.Bytes()))
	if err != nil || handshake.Type != protocol.TypeLogin {
		log.Warn().
			Str("conn_id", client.ID().String()).
			Str("remote", netConn.RemoteAddr().String()).
			Msg("handshake failed")
		return
	}

	s.coordinator.Login(ctx, client, handshake.Username)
	defer s.coordinator.Disconnect(client)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		msg, err := protocol.DecodeClientMessage(line)
		if err != nil {
			// Malformed line: drop it, keep reading.
			log.Debug().Err(err).Str("conn_id", client.ID().String()).Msg("skipping malformed line")
			continue
		}
		s.coordinator.HandleMessage(ctx, client, msg)
	}

	if err := scanner.Err(); err != nil {
		log.Debug().Err(err).Str("conn_id", client.ID().String()).Msg("read loop ended")
	}
}
