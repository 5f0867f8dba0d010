package game

import (
	"github.com/rs/zerolog/log"

	"github.com/KamingLo/TechType/internal/leaderboard"
	"github.com/KamingLo/TechType/internal/protocol"
)

// BroadcastLeaderboard fans the new standings out to every currently
// connected handle, not just the two racers. Slow or dead connections drop
// the update without blocking the fan-out.
func (c *Coordinator) BroadcastLeaderboard(entries []leaderboard.Entry) {
	update := protocol.NewLeaderboardUpdate(entries)
	conns := c.registry.ActiveConns()
	for _, conn := range conns {
		c.sendSilent(conn, update)
	}
	log.Debug().Int("connections", len(conns)).Msg("leaderboard update broadcast")
}
