package server

import (
	"context"
	"fmt"

	"github.com/vctt94/tablegames/pkg/game"
	"github.com/vctt94/tablegames/pkg/settlement"
)

// payFunc charges stakes against the guild's wallets. Each stake is taken
// only if the wallet covers it, and stakes already taken are refunded if a
// later one fails, so a room never sees a partial charge.
func (s *Server) payFunc(ctx context.Context, guildID string) game.PayFunc {
	return func(charges []game.Charge) error {
		taken := make([]game.Charge, 0, len(charges))
		for _, c := range charges {
			if err := s.db.Stake(ctx, c.PlayerID, guildID, c.Amount, c.Reason); err != nil {
				s.refund(ctx, guildID, taken)
				return fmt.Errorf("stake %d from %s: %w", c.Amount, c.PlayerID, err)
			}
			taken = append(taken, c)
		}
		return nil
	}
}

// refund returns charges, logging failures. It reports the total returned.
func (s *Server) refund(ctx context.Context, guildID string, charges []game.Charge) int64 {
	if len(charges) == 0 {
		return 0
	}
	plan := settlement.Refunds(charges)
	if err := settlement.Apply(ctx, s.db, guildID, plan); err != nil {
		s.log.Errorf("Refunding stakes in guild %s: %v", guildID, err)
	}
	var total int64
	for _, c := range charges {
		total += c.Amount
	}
	return total
}

// requireFunds rejects seating a player who cannot cover the stake.
func (s *Server) requireFunds(ctx context.Context, guildID string, seat game.Seat, stake int64) error {
	if stake <= 0 {
		return game.ErrInvalidStake
	}
	bal, err := s.db.Balance(ctx, seat.ID, seat.Name, guildID)
	if err != nil {
		return fmt.Errorf("balance of %s: %w", seat.ID, err)
	}
	if bal < stake {
		return fmt.Errorf("stake is %d but balance is %d: %w", stake, bal, game.ErrInsufficientFunds)
	}
	return nil
}
