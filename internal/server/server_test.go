package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KamingLo/TechType/internal/game"
	"github.com/KamingLo/TechType/internal/leaderboard"
)

func startTestServer(t *testing.T, cfg game.Config) (string, *leaderboard.MemoryStore) {
	t.Helper()
	store := leaderboard.NewMemoryStore()
	coordinator := game.NewCoordinator(cfg, store, clockwork.NewRealClock())
	srv := New("127.0.0.1:0", coordinator)
	require.NoError(t, srv.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() {
		_ = srv.Serve(ctx)
	}()
	return srv.Addr(), store
}

type testClient struct {
	conn   net.Conn
	reader *bufio.Reader
}

func dialTestClient(t *testing.T, addr string) *testClient {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &testClient{conn: conn, reader: bufio.NewReader(conn)}
}

func (c *testClient) sendLine(t *testing.T, line string) {
	t.Helper()
	_, err := fmt.Fprintf(c.conn, "%s\n", line)
	require.NoError(t, err)
}

func (c *testClient) readJSON(t *testing.T) map[string]any {
	t.Helper()
	require.NoError(t, c.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	line, err := c.reader.ReadString('\n')
	require.NoError(t, err)

	var msg map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &msg))
	return msg
}

// readUntilType skips unrelated messages (e.g. leaderboard updates) until one
// with the wanted type arrives.
func (c *testClient) readUntilType(t *testing.T, wanted string) map[string]any {
	t.Helper()
	for i := 0; i < 20; i++ {
		msg := c.readJSON(t)
		if msg["type"] == wanted {
			return msg
		}
	}
	t.Fatalf("never received a %q message", wanted)
	return nil
}

func TestServer_LoginReturnsLeaderboard(t *testing.T) {
	addr, store := startTestServer(t, game.DefaultConfig())
	require.NoError(t, store.RecordScore(context.Background(), "alice", 120))

	client := dialTestClient(t, addr)
	client.sendLine(t, `{"type":"login","username":"bob"}`)

	res := client.readJSON(t)
	assert.Equal(t, "res_leaderboard", res["type"])
	data, ok := res["data"].([]any)
	require.True(t, ok)
	require.Len(t, data, 1)
	entry := data[0].(map[string]any)
	assert.Equal(t, "alice", entry["username"])
	assert.Equal(t, float64(120), entry["wpm"])
}

func TestServer_MalformedLinesAreSkipped(t *testing.T) {
	addr, _ := startTestServer(t, game.DefaultConfig())

	client := dialTestClient(t, addr)
	client.sendLine(t, `{"type":"login","username":"bob"}`)
	client.readJSON(t) // res_leaderboard

	client.sendLine(t, `this is not json`)
	client.sendLine(t, `{"type":"req_leaderboard"}`)

	res := client.readJSON(t)
	assert.Equal(t, "res_leaderboard", res["type"], "connection survives a malformed line")
}

func TestServer_HandshakeMustBeLogin(t *testing.T) {
	addr, _ := startTestServer(t, game.DefaultConfig())

	client := dialTestClient(t, addr)
	client.sendLine(t, `{"type":"req_leaderboard"}`)

	require.NoError(t, client.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, err := client.reader.ReadString('\n')
	assert.Error(t, err, "connection closes without a login handshake")
}

func TestServer_CancelMatchmakingOverTCP(t *testing.T) {
	addr, _ := startTestServer(t, game.DefaultConfig())

	client := dialTestClient(t, addr)
	client.sendLine(t, `{"type":"login","username":"bob"}`)
	client.readJSON(t) // res_leaderboard

	client.sendLine(t, `{"type":"req_matchmaking"}`)
	waiting := client.readJSON(t)
	assert.Equal(t, "waiting", waiting["status"])
	assert.Equal(t, float64(1), waiting["waiting_count"])

	// The read loop is free while queued, so the cancel gets through.
	client.sendLine(t, `{"type":"cancel_matchmaking"}`)
	ack := client.readJSON(t)
	assert.Equal(t, "matchmaking_canceled", ack["type"])
}

func TestServer_FullRaceOverTCP(t *testing.T) {
	if testing.Short() {
		t.Skip("full race waits out the real countdown")
	}

	cfg := game.DefaultConfig()
	cfg.Texts = []string{"the quick brown fox jumps over the lazy dog"}
	addr, _ := startTestServer(t, cfg)

	p1 := dialTestClient(t, addr)
	p1.sendLine(t, `{"type":"login","username":"p1"}`)
	p1.readJSON(t)

	p2 := dialTestClient(t, addr)
	p2.sendLine(t, `{"type":"login","username":"p2"}`)
	p2.readJSON(t)

	p1.sendLine(t, `{"type":"req_matchmaking"}`)
	waiting := p1.readJSON(t)
	assert.Equal(t, "waiting", waiting["status"])

	p2.sendLine(t, `{"type":"req_matchmaking"}`)
	assert.Equal(t, "p2", p1.readJSON(t)["opponent"])
	assert.Equal(t, "p1", p2.readJSON(t)["opponent"])

	// Countdown ticks 3, 2, 1 then the race starts with the same passage.
	for _, want := range []float64{3, 2, 1} {
		assert.Equal(t, want, p1.readJSON(t)["value"])
		assert.Equal(t, want, p2.readJSON(t)["value"])
	}
	start1 := p1.readJSON(t)
	start2 := p2.readJSON(t)
	assert.Equal(t, "start_game", start1["type"])
	assert.Equal(t, start1["text"], start2["text"])
	require.NotEmpty(t, start1["text"])

	p2.sendLine(t, `{"type":"progress","progress":50,"wpm":42}`)
	rel := p1.readJSON(t)
	assert.Equal(t, "opponent_progress", rel["type"])
	assert.Equal(t, float64(50), rel["progress"])

	p1.sendLine(t, `{"type":"finish"}`)

	over1 := p1.readUntilType(t, "game_over")
	assert.Equal(t, "won", over1["result"])
	over2 := p2.readUntilType(t, "game_over")
	assert.Equal(t, "lost", over2["result"])
	assert.Equal(t, "p1", over2["winner"])
}
