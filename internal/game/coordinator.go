// Package game implements the matchmaking-and-session coordinator: the FIFO
// queue that pairs waiting connections, the per-match state machine that
// drives countdown, race, and resolution, and the disconnect cleanup that
// keeps the cross-connection maps consistent under concurrent churn.
package game

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/KamingLo/TechType/internal/leaderboard"
	"github.com/KamingLo/TechType/internal/protocol"
)

// Config tunes the coordinator.
type Config struct {
	// RaceDuration is the fixed race budget; the duration monitor resolves
	// any session still running when it elapses.
	RaceDuration time.Duration
	// CountdownFrom is the first countdown tick (counts down to 1).
	CountdownFrom int
	// LeaderboardSize is the top-N returned to clients.
	LeaderboardSize int
	// Texts is the passage corpus; one is chosen at random per race.
	Texts []string
}

// DefaultConfig returns the coordinator defaults.
func DefaultConfig() Config {
	return Config{
		RaceDuration:    60 * time.Second,
		CountdownFrom:   3,
		LeaderboardSize: 10,
		Texts:           DefaultTexts,
	}
}

// Coordinator routes every client message, owns the matchmaking queue and
// the session registry, and resolves races. One goroutine per connection
// calls into it; shared state is guarded per structure, never globally.
type Coordinator struct {
	cfg      Config
	registry *Registry
	queue    *Queue
	scores   leaderboard.Source
	clock    clockwork.Clock
}

// NewCoordinator creates a coordinator. Pass clockwork.NewRealClock() in
// production; tests inject a fake clock to drive countdown and timeout.
func NewCoordinator(cfg Config, scores leaderboard.Source, clock clockwork.Clock) *Coordinator {
	if cfg.RaceDuration <= 0 {
		cfg.RaceDuration = 60 * time.Second
	}
	if cfg.CountdownFrom <= 0 {
		cfg.CountdownFrom = 3
	}
	if cfg.LeaderboardSize <= 0 {
		cfg.LeaderboardSize = 10
	}
	if len(cfg.Texts) == 0 {
		cfg.Texts = DefaultTexts
	}
	return &Coordinator{
		cfg:      cfg,
		registry: NewRegistry(),
		queue:    NewQueue(),
		scores:   scores,
		clock:    clock,
	}
}

// Registry exposes the registry for transport-level bookkeeping.
func (c *Coordinator) Registry() *Registry { return c.registry }

// Login registers the connection under its display name and answers with the
// current leaderboard. No identity verification happens here; the name is
// whatever the client supplied.
func (c *Coordinator) Login(ctx context.Context, conn Conn, username string) {
	c.registry.Register(conn, username)
	log.Info().
		Str("conn_id", conn.ID().String()).
		Str("username", username).
		Int("active", c.registry.ActiveCount()).
		Msg("user logged in")

	if err := conn.Send(protocol.NewResLeaderboard(c.leaderboard(ctx))); err != nil {
		log.Debug().Err(err).Str("conn_id", conn.ID().String()).Msg("failed to send login leaderboard")
	}
}

// HandleMessage dispatches one inbound message. Unrecognized types are
// ignored. Blocking operations (queue wait, countdown) run on the calling
// connection's goroutine and never stall other connections.
func (c *Coordinator) HandleMessage(ctx context.Context, conn Conn, msg protocol.ClientMessage) {
	switch msg.Type {
	case protocol.TypeReqLeaderboard:
		if err := conn.Send(protocol.NewResLeaderboard(c.leaderboard(ctx))); err != nil {
			log.Debug().Err(err).Str("conn_id", conn.ID().String()).Msg("failed to send leaderboard")
		}
	case protocol.TypeReqMatchmaking:
		c.RequestMatch(ctx, conn)
	case protocol.TypeCancelMatchmaking:
		c.CancelMatch(conn)
	case protocol.TypeProgress:
		c.RelayProgress(conn, msg.Progress, msg.WPM)
	case protocol.TypeFinish:
		c.Finish(ctx, conn)
	default:
		log.Debug().
			Str("conn_id", conn.ID().String()).
			Str("type", msg.Type).
			Msg("ignoring unrecognized message type")
	}
}

// RequestMatch enters the queue or pairs immediately with the earliest live
// waiter. A request from a connection already queued or already in a session
// is a no-op. When conn is enqueued the call suspends until the entry is
// matched, cancelled, or the connection disconnects.
func (c *Coordinator) RequestMatch(ctx context.Context, conn Conn) {
	id := conn.ID()
	if c.registry.InSession(id) {
		log.Debug().Str("conn_id", id.String()).Msg("matchmaking request while in session ignored")
		return
	}

	opponent, self, depth := c.queue.Match(conn)
	switch {
	case opponent != nil:
		c.beginMatch(ctx, opponent, conn)

	case self != nil:
		if err := conn.Send(protocol.NewWaiting(depth)); err != nil {
			log.Debug().Err(err).Str("conn_id", id.String()).Msg("failed to send waiting status")
		}
		log.Info().Str("conn_id", id.String()).Int("queue_depth", depth).Msg("player queued for matchmaking")

		// The wait suspends in its own goroutine so the connection's read
		// loop stays free to deliver a cancel or disconnect.
		go func() {
			switch self.Outcome() {
			case WaitMatched:
				// Pairing goroutine already ran the match setup.
			case WaitCancelled:
				if err := conn.Send(protocol.NewMatchmakingCanceled()); err != nil {
					log.Debug().Err(err).Str("conn_id", id.String()).Msg("failed to ack cancel")
				}
			case WaitDisconnected:
				// Connection is gone; nothing to deliver.
			}
		}()

	default:
		log.Debug().Str("conn_id", id.String()).Msg("duplicate matchmaking request ignored")
	}
}

// CancelMatch removes conn from the queue if present. The cancel is always
// acknowledged: a queued waiter acks from its own goroutine, everyone else
// gets the ack directly.
func (c *Coordinator) CancelMatch(conn Conn) {
	if c.queue.Remove(conn.ID(), WaitCancelled) {
		log.Info().Str("conn_id", conn.ID().String()).Msg("matchmaking cancelled")
		return
	}
	if err := conn.Send(protocol.NewMatchmakingCanceled()); err != nil {
		log.Debug().Err(err).Str("conn_id", conn.ID().String()).Msg("failed to ack cancel")
	}
}

// beginMatch creates the session, notifies both players, runs the blocking
// countdown, starts the race clock, and arms the duration monitor. It runs
// on the second requester's goroutine, mirroring the queue pop.
func (c *Coordinator) beginMatch(ctx context.Context, opponentWaiter *Waiter, conn Conn) {
	first := opponentWaiter.Conn()
	second := conn

	session := NewSession(first, second, pickText(c.cfg.Texts), c.cfg.RaceDuration)
	c.registry.Pair(first, second, session)

	log.Info().
		Str("session_id", session.ID.String()).
		Str("player_a", c.registry.Name(first.ID())).
		Str("player_b", c.registry.Name(second.ID())).
		Msg("match formed")

	c.queue.Resolve(opponentWaiter, WaitMatched)
	c.sendSilent(first, protocol.NewMatched(c.registry.Name(second.ID())))
	c.sendSilent(second, protocol.NewMatched(c.registry.Name(first.ID())))

	c.runCountdown(session)
	if session.Resolved() {
		// A disconnect ended the session before the race could start.
		return
	}

	session.MarkStarted(c.clock.Now())
	session.SetPhase(PhaseRunning)
	start := protocol.NewStartGame(session.TargetText, int(session.Duration.Seconds()))
	for _, p := range session.Players() {
		c.sendSilent(p, start)
	}

	go c.watchDuration(ctx, session)
}

// runCountdown broadcasts the countdown ticks one second apart. The ticks
// block this goroutine only; other connections keep processing.
func (c *Coordinator) runCountdown(session *Session) {
	session.SetPhase(PhaseCountdown)
	for value := c.cfg.CountdownFrom; value >= 1; value-- {
		tick := protocol.NewCountdown(value)
		for _, p := range session.Players() {
			c.sendSilent(p, tick)
		}
		c.clock.Sleep(time.Second)
	}
}

// watchDuration is the session's duration monitor. Stopping the timer is
// best-effort; resolveTimeout re-checks the finished flag, so a timer that
// fires after a finish is inert.
func (c *Coordinator) watchDuration(ctx context.Context, session *Session) {
	timer := c.clock.NewTimer(session.Duration)
	select {
	case <-timer.Chan():
		c.resolveTimeout(ctx, session)
	case <-ctx.Done():
		timer.Stop()
	}
}

// RelayProgress stores the report and forwards it verbatim to the opponent.
// Values are client-reported and untrusted.
func (c *Coordinator) RelayProgress(conn Conn, progress float64, wpm int) {
	session, ok := c.registry.Session(conn.ID())
	if !ok {
		return
	}
	session.RecordProgress(conn.ID(), progress, wpm)
	if opponent, ok := c.registry.Opponent(conn.ID()); ok {
		c.sendSilent(opponent, protocol.NewOpponentProgress(progress, wpm))
	}
}

// Finish triggers finish resolution for conn's session, if it has one and it
// has not already been resolved.
func (c *Coordinator) Finish(ctx context.Context, conn Conn) {
	session, ok := c.registry.Session(conn.ID())
	if !ok {
		return
	}
	c.resolveFinish(ctx, conn, session)
}

// resolveFinish ends the race with conn as the winner. The TryResolve guard
// makes this a no-op when the timeout monitor (or a racing finish) got there
// first.
func (c *Coordinator) resolveFinish(ctx context.Context, conn Conn, session *Session) {
	if !session.TryResolve() {
		return
	}

	winner := c.registry.Name(conn.ID())
	elapsed := session.Elapsed(c.clock.Now())
	wpm := CalculateWPM(float64(len(session.TargetText)), elapsed)
	session.SetWinner(winner)

	log.Info().
		Str("session_id", session.ID.String()).
		Str("winner", winner).
		Dur("elapsed", elapsed).
		Int("wpm", wpm).
		Msg("race finished")

	if err := c.scores.RecordScore(ctx, winner, wpm); err != nil {
		// Persistence failures never abort resolution or reach players.
		log.Error().Err(err).Str("username", winner).Int("wpm", wpm).Msg("failed to record score")
	}

	entries := c.leaderboard(ctx)
	c.BroadcastLeaderboard(entries)

	c.sendSilent(conn, protocol.GameOver{
		Type:        protocol.TypeGameOver,
		Result:      protocol.ResultWon,
		WPM:         wpm,
		Leaderboard: entries,
	})

	if opponent, ok := c.registry.Opponent(conn.ID()); ok {
		// The loser's WPM is derived from their last reported progress over
		// the same elapsed time.
		adjusted := CalculateWPM(session.ProgressChars(opponent.ID()), elapsed)
		c.sendSilent(opponent, protocol.GameOver{
			Type:        protocol.TypeGameOver,
			Result:      protocol.ResultLost,
			WPM:         adjusted,
			Winner:      winner,
			Leaderboard: entries,
		})
		c.registry.RemovePlayer(opponent.ID())
	}
	c.registry.RemovePlayer(conn.ID())
}

// resolveTimeout ends a race whose duration budget elapsed. Higher reported
// progress wins; equal progress is a draw. Each player's WPM is computed
// over the full fixed duration, since the deadline is the same clock for
// both. Timeout outcomes are not persisted.
func (c *Coordinator) resolveTimeout(ctx context.Context, session *Session) {
	if !session.TryResolve() {
		return
	}

	players := session.Players()
	a, b := players[0], players[1]
	progressA := session.Progress(a.ID())
	progressB := session.Progress(b.ID())
	wpmA := CalculateWPM(session.ProgressChars(a.ID()), session.Duration)
	wpmB := CalculateWPM(session.ProgressChars(b.ID()), session.Duration)

	resultA, resultB := protocol.ResultDraw, protocol.ResultDraw
	var winner string
	switch {
	case progressA > progressB:
		resultA, resultB = protocol.ResultWon, protocol.ResultLost
		winner = c.registry.Name(a.ID())
	case progressB > progressA:
		resultA, resultB = protocol.ResultLost, protocol.ResultWon
		winner = c.registry.Name(b.ID())
	}
	session.SetWinner(winner)

	log.Info().
		Str("session_id", session.ID.String()).
		Str("winner", winner).
		Float64("progress_a", progressA).
		Float64("progress_b", progressB).
		Msg("race timed out")

	// One leaderboard snapshot for both messages.
	entries := c.leaderboard(ctx)

	c.sendSilent(a, protocol.GameOver{
		Type:        protocol.TypeGameOver,
		Reason:      protocol.ReasonTimeout,
		Result:      resultA,
		WPM:         wpmA,
		Winner:      winner,
		Leaderboard: entries,
	})
	c.sendSilent(b, protocol.GameOver{
		Type:        protocol.TypeGameOver,
		Reason:      protocol.ReasonTimeout,
		Result:      resultB,
		WPM:         wpmB,
		Winner:      winner,
		Leaderboard: entries,
	})

	c.registry.RemovePlayer(a.ID())
	c.registry.RemovePlayer(b.ID())
}

// Disconnect is the terminal event for a connection. It removes the handle
// from the active set, cancels any queue wait, notifies a live opponent, and
// garbage-collects both sides' session bookkeeping. Safe to call for
// connections that never logged in.
func (c *Coordinator) Disconnect(conn Conn) {
	id := conn.ID()
	name := c.registry.Name(id)
	c.registry.Unregister(id)

	if c.queue.Remove(id, WaitDisconnected) {
		log.Info().Str("conn_id", id.String()).Str("username", name).Msg("queued player disconnected")
		return
	}

	if opponent, ok := c.registry.Opponent(id); ok {
		c.sendSilent(opponent, protocol.NewOpponentDisconnected(name))
		if session, ok := c.registry.Session(id); ok {
			// The opponent cannot race alone; claim resolution so the
			// duration monitor stays silent.
			session.TryResolve()
		}
		c.registry.RemovePlayer(opponent.ID())
	}
	c.registry.RemovePlayer(id)

	log.Info().Str("conn_id", id.String()).Str("username", name).Msg("connection closed")
}

// leaderboard reads the current top-N, swallowing persistence failures into
// an empty result.
func (c *Coordinator) leaderboard(ctx context.Context) []leaderboard.Entry {
	entries, err := c.scores.GetTop(ctx, c.cfg.LeaderboardSize)
	if err != nil {
		log.Error().Err(err).Msg("failed to read leaderboard")
		return nil
	}
	return entries
}

// sendSilent delivers to a possibly-dead connection; failures are logged at
// debug and otherwise dropped.
func (c *Coordinator) sendSilent(conn Conn, v any) {
	if conn.Closed() {
		return
	}
	if err := conn.Send(v); err != nil {
		log.Debug().Err(err).Str("conn_id", conn.ID().String()).Msg("dropped send to closing connection")
	}
}
