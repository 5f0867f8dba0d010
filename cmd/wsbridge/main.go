// Command wsbridge exposes the TCP coordinator to browsers. Each WebSocket
// text frame becomes one newline-terminated line on the upstream TCP
// connection and vice versa, 1:1 and in order, so the coordinator sees the
// same protocol from both transports.
package main

import (
	"bufio"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	writeTimeout = 10 * time.Second
	maxLineSize  = 256 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type bridge struct {
	upstreamAddr string
}

func (b *bridge) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		return
	}

	upstream, err := net.Dial("tcp", b.upstreamAddr)
	if err != nil {
		log.Error().Err(err).Str("upstream", b.upstreamAddr).Msg("failed to dial coordinator")
		_ = ws.Close()
		return
	}

	log.Info().
		Str("remote", r.RemoteAddr).
		Str("upstream", b.upstreamAddr).
		Msg("bridged connection established")

	done := make(chan struct{}, 2)

	// WebSocket frames -> TCP lines.
	go func() {
		defer func() { done <- struct{}{} }()
		for {
			msgType, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			if msgType != websocket.TextMessage {
				continue
			}
			_ = upstream.SetWriteDeadline(time.Now().Add(writeTimeout))
			if _, err := upstream.Write(append(data, '\n')); err != nil {
				return
			}
		}
	}()

	// TCP lines -> WebSocket frames.
	go func() {
		defer func() { done <- struct{}{} }()
		scanner := bufio.NewScanner(upstream)
		scanner.Buffer(make([]byte, 0, 4096), maxLineSize)
		for scanner.Scan() {
			_ = ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := ws.WriteMessage(websocket.TextMessage, scanner.Bytes()); err != nil {
				return
			}
		}
	}()

	// Either direction failing tears both sides down.
	<-done
	_ = ws.Close()
	_ = upstream.Close()
	log.Info().Str("remote", r.RemoteAddr).Msg("bridged connection closed")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	addr := getEnv("BRIDGE_ADDR", ":8080")
	b := &bridge{upstreamAddr: getEnv("UPSTREAM_ADDR", "localhost:50000")}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", b.handleWS)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodHead, http.MethodGet},
		AllowedHeaders: []string{"*"},
	})

	log.Info().Str("addr", addr).Str("upstream", b.upstreamAddr).Msg("starting websocket bridge")
	if err := http.ListenAndServe(addr, c.Handler(mux)); err != nil {
		log.Fatal().Err(err).Msg("bridge exited")
	}
}
