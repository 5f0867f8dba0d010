package game

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Phase is the coarse state of a session, used for logging only; disconnects
// are handled the same way in every phase.
type Phase int32

const (
	PhaseWaitingStart Phase = iota
	PhaseCountdown
	PhaseRunning
	PhaseResolved
)

func (p Phase) String() string {
	switch p {
	case PhaseWaitingStart:
		return "waiting_start"
	case PhaseCountdown:
		return "countdown"
	case PhaseRunning:
		return "running"
	case PhaseResolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// minElapsed floors the measured race time so the WPM division never blows
// up on a near-instant finish.
const minElapsed = 100 * time.Millisecond

// Session is the state for one two-player race. The finished flag is the
// single source of truth for "already resolved": finish and timeout both go
// through TryResolve, so exactly one of them performs resolution no matter
// how they interleave.
type Session struct {
	ID         uuid.UUID
	TargetText string
	Duration   time.Duration

	players  [2]Conn
	finished atomic.Bool
	phase    atomic.Int32

	mu        sync.Mutex
	startTime time.Time
	winner    string
	progress  map[uuid.UUID]float64
	wpm       map[uuid.UUID]int
}

// NewSession creates a session for the two paired players.
func NewSession(a, b Conn, targetText string, duration time.Duration) *Session {
	return &Session{
		ID:         uuid.New(),
		TargetText: targetText,
		Duration:   duration,
		players:    [2]Conn{a, b},
		progress:   make(map[uuid.UUID]float64, 2),
		wpm:        make(map[uuid.UUID]int, 2),
	}
}

// Players returns the two participants.
func (s *Session) Players() [2]Conn { return s.players }

// Opponent returns the other participant, or nil if id is not a player.
func (s *Session) Opponent(id uuid.UUID) Conn {
	switch id {
	case s.players[0].ID():
		return s.players[1]
	case s.players[1].ID():
		return s.players[0]
	default:
		return nil
	}
}

// IsPlayer reports whether id is one of the session's two players.
func (s *Session) IsPlayer(id uuid.UUID) bool {
	return s.players[0].ID() == id || s.players[1].ID() == id
}

// SetPhase advances the session's coarse state.
func (s *Session) SetPhase(p Phase) { s.phase.Store(int32(p)) }

// CurrentPhase returns the session's coarse state.
func (s *Session) CurrentPhase() Phase { return Phase(s.phase.Load()) }

// MarkStarted records the race start time once the countdown completes.
func (s *Session) MarkStarted(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startTime = now
}

// Elapsed returns the time since race start, floored at minElapsed.
func (s *Session) Elapsed(now time.Time) time.Duration {
	s.mu.Lock()
	start := s.startTime
	s.mu.Unlock()

	elapsed := now.Sub(start)
	if start.IsZero() || elapsed < minElapsed {
		return minElapsed
	}
	return elapsed
}

// RecordProgress stores a player's self-reported progress and WPM. Reports
// from anyone but the session's two players are dropped.
func (s *Session) RecordProgress(id uuid.UUID, progress float64, wpm int) {
	if !s.IsPlayer(id) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress[id] = progress
	s.wpm[id] = wpm
}

// Progress returns a player's last reported completion percentage (0-100).
func (s *Session) Progress(id uuid.UUID) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress[id]
}

// TryResolve atomically claims resolution of the session. Only the first
// caller gets true; concurrent finish and timeout triggers lose the race and
// must treat the session as already resolved.
func (s *Session) TryResolve() bool {
	if !s.finished.CompareAndSwap(false, true) {
		return false
	}
	s.SetPhase(PhaseResolved)
	return true
}

// Resolved reports whether the session has been resolved.
func (s *Session) Resolved() bool { return s.finished.Load() }

// SetWinner records the winning display name.
func (s *Session) SetWinner(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.winner = name
}

// Winner returns the winning display name, or "" for a draw or an
// unresolved session.
func (s *Session) Winner() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.winner
}

// ProgressChars converts a reported completion percentage into an implied
// count of characters typed.
func (s *Session) ProgressChars(id uuid.UUID) float64 {
	return s.Progress(id) / 100 * float64(len(s.TargetText))
}

// CalculateWPM computes words-per-minute for chars typed over elapsed time,
// with a word fixed at five characters. Results are rounded and floored at 1.
func CalculateWPM(chars float64, elapsed time.Duration) int {
	minutes := elapsed.Seconds() / 60
	if minutes < 1e-3 {
		minutes = 1e-3
	}
	wpm := int(math.Round(chars / 5 / minutes))
	if wpm < 1 {
		return 1
	}
	return wpm
}
