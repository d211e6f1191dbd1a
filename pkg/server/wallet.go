package server

import (
	"context"

	"github.com/vctt94/tablegames/pkg/game"
)

// Balance returns the player's wallet in the guild, creating it on first
// use.
func (s *Server) Balance(ctx context.Context, guildID string, seat game.Seat) (*Wallet, error) {
	return s.db.Wallet(ctx, seat.ID, seat.Name, guildID)
}

// ClaimDaily grants the daily reward and returns the new balance.
// game.ErrAlreadyClaimed is returned on a second claim the same day.
func (s *Server) ClaimDaily(ctx context.Context, guildID string, seat game.Seat) (int64, error) {
	bal, err := s.db.ClaimDaily(ctx, seat.ID, seat.Name, guildID)
	if err != nil {
		return bal, err
	}
	s.log.Debugf("%s claimed the daily reward in %s, balance %d", seat.ID, guildID, bal)
	return bal, nil
}

// Richest returns the guild's wallets by balance.
func (s *Server) Richest(ctx context.Context, guildID string, limit int) ([]Wallet, error) {
	return s.db.RichestWallets(ctx, guildID, limit)
}

// Leaderboard returns the guild's best players of a game.
func (s *Server) Leaderboard(ctx context.Context, guildID string, kind game.Kind, order LeaderboardOrder, limit int) ([]Stats, error) {
	return s.db.Leaderboard(ctx, guildID, kind, order, limit)
}

// PlayerStats returns a player's record in a game. ErrNoStats is returned
// before their first game.
func (s *Server) PlayerStats(ctx context.Context, guildID, playerID string, kind game.Kind) (*Stats, error) {
	return s.db.Stats(ctx, playerID, guildID, kind)
}

// History returns the guild's latest finished games.
func (s *Server) History(ctx context.Context, guildID string, kind game.Kind, limit int) ([]GameSummary, error) {
	return s.db.RecentGames(ctx, guildID, kind, limit)
}
