// Package protocol defines the newline-delimited JSON messages exchanged
// between clients and the match coordinator. Every message is one JSON
// object per line; the transport (raw TCP or the WebSocket bridge) preserves
// line boundaries and ordering.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/KamingLo/TechType/internal/leaderboard"
)

// Client message types.
const (
	TypeLogin             = "login"
	TypeReqMatchmaking    = "req_matchmaking"
	TypeCancelMatchmaking = "cancel_matchmaking"
	TypeProgress          = "progress"
	TypeFinish            = "finish"
	TypeReqLeaderboard    = "req_leaderboard"
)

// Server message types and statuses.
const (
	TypeResLeaderboard      = "res_leaderboard"
	TypeMatchmakingCanceled = "matchmaking_canceled"
	TypeCountdown           = "countdown"
	TypeStartGame           = "start_game"
	TypeOpponentProgress    = "opponent_progress"
	TypeGameOver            = "game_over"
	TypeLeaderboardUpdate   = "leaderboard_update"

	StatusWaiting              = "waiting"
	StatusMatched              = "matched"
	StatusOpponentDisconnected = "opponent_disconnected"
)

// Game-over result values.
const (
	ResultWon  = "won"
	ResultLost = "lost"
	ResultDraw = "draw"

	ReasonTimeout = "timeout"
)

// ClientMessage is the union of all inbound message shapes. Progress and WPM
// are client-reported and deliberately not validated.
type ClientMessage struct {
	Type     string  `json:"type"`
	Username string  `json:"username,omitempty"`
	Progress float64 `json:"progress,omitempty"`
	WPM      int     `json:"wpm,omitempty"`
}

// DecodeClientMessage parses one line from a client.
func DecodeClientMessage(line []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(line, &msg); err != nil {
		return ClientMessage{}, fmt.Errorf("failed to decode client message: %w", err)
	}
	return msg, nil
}

// ResLeaderboard answers a login or an explicit leaderboard request.
type ResLeaderboard struct {
	Type string              `json:"type"`
	Data []leaderboard.Entry `json:"data"`
}

func NewResLeaderboard(entries []leaderboard.Entry) ResLeaderboard {
	return ResLeaderboard{Type: TypeResLeaderboard, Data: entries}
}

// Waiting tells a queued player they are in the matchmaking queue.
type Waiting struct {
	Status       string `json:"status"`
	Message      string `json:"message"`
	WaitingCount int    `json:"waiting_count"`
}

func NewWaiting(count int) Waiting {
	return Waiting{
		Status:       StatusWaiting,
		Message:      "Waiting for another player...",
		WaitingCount: count,
	}
}

// Matched notifies a player that a match has formed, naming the opponent.
type Matched struct {
	Status   string `json:"status"`
	Opponent string `json:"opponent"`
}

func NewMatched(opponent string) Matched {
	return Matched{Status: StatusMatched, Opponent: opponent}
}

// MatchmakingCanceled acknowledges a cancel request.
type MatchmakingCanceled struct {
	Type string `json:"type"`
}

func NewMatchmakingCanceled() MatchmakingCanceled {
	return MatchmakingCanceled{Type: TypeMatchmakingCanceled}
}

// Countdown is one pre-race tick (3, 2, 1).
type Countdown struct {
	Type  string `json:"type"`
	Value int    `json:"value"`
}

func NewCountdown(value int) Countdown {
	return Countdown{Type: TypeCountdown, Value: value}
}

// StartGame carries the target passage and the race duration budget in seconds.
type StartGame struct {
	Type     string `json:"type"`
	Text     string `json:"text"`
	Duration int    `json:"duration"`
}

func NewStartGame(text string, durationSec int) StartGame {
	return StartGame{Type: TypeStartGame, Text: text, Duration: durationSec}
}

// OpponentProgress relays one player's self-reported progress to the other.
type OpponentProgress struct {
	Type     string  `json:"type"`
	Progress float64 `json:"progress"`
	WPM      int     `json:"wpm"`
}

func NewOpponentProgress(progress float64, wpm int) OpponentProgress {
	return OpponentProgress{Type: TypeOpponentProgress, Progress: progress, WPM: wpm}
}

// GameOver ends a race for one player. Winner is empty on a draw or when the
// recipient is the winner; Reason is set only for timeout resolutions.
type GameOver struct {
	Type        string              `json:"type"`
	Reason      string              `json:"reason,omitempty"`
	Result      string              `json:"result"`
	WPM         int                 `json:"wpm"`
	Winner      string              `json:"winner,omitempty"`
	Leaderboard []leaderboard.Entry `json:"leaderboard"`
}

// OpponentDisconnected tells the surviving player their opponent left.
type OpponentDisconnected struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func NewOpponentDisconnected(username string) OpponentDisconnected {
	return OpponentDisconnected{
		Status:  StatusOpponentDisconnected,
		Message: fmt.Sprintf("%s left the game.", username),
	}
}

// LeaderboardUpdate is fanned out to every connected client after a race
// produces a new persisted score.
type LeaderboardUpdate struct {
	Type        string              `json:"type"`
	Leaderboard []leaderboard.Entry `json:"leaderboard"`
}

func NewLeaderboardUpdate(entries []leaderboard.Entry) LeaderboardUpdate {
	return LeaderboardUpdate{Type: TypeLeaderboardUpdate, Leaderboard: entries}
}
