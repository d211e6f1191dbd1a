package settlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/vctt94/tablegames/pkg/banker"
	"github.com/vctt94/tablegames/pkg/game"
	"github.com/vctt94/tablegames/pkg/showdown"
)

// ShowdownRecord builds the history entry for a settled showdown.
func ShowdownRecord(res *showdown.Result, plan *Plan) *game.GameRecord {
	rec := &game.GameRecord{
		Kind:     game.KindShowdown,
		Scope:    res.Scope,
		WinnerID: res.WinnerID,
		Pot:      res.Pot,
	}
	for _, e := range res.Entries {
		if e.Seat.ID == res.WinnerID {
			rec.WinnerTier = e.Hand.Tier.String()
		}
		rec.Hands = append(rec.Hands, game.HandRecord{
			PlayerID: e.Seat.ID,
			Name:     e.Seat.Name,
			Cards:    e.Hand.Cards,
			Tier:     e.Hand.Tier.String(),
			Score:    e.Hand.Score,
			Bet:      e.Bet,
			Net:      plan.Delta(e.Seat.ID),
			Folded:   e.Folded,
		})
	}
	return rec
}

// RecordShowdown updates stats after a showdown settled: a win for the pot
// taker, a loss of their bet for everyone else, then the history entry.
func RecordShowdown(ctx context.Context, stats game.StatsRecorder, res *showdown.Result, plan *Plan) (string, error) {
	var errs []error
	for _, e := range res.Entries {
		var err error
		if e.Seat.ID == res.WinnerID {
			err = stats.RecordWin(ctx, game.KindShowdown, res.Scope.GuildID, e.Seat, res.Pot, e.Hand.Tier.String())
		} else {
			err = stats.RecordLoss(ctx, game.KindShowdown, res.Scope.GuildID, e.Seat, e.Bet)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("stats for %s: %w", e.Seat.ID, err))
		}
	}
	id, err := stats.SaveGame(ctx, ShowdownRecord(res, plan))
	if err != nil {
		errs = append(errs, fmt.Errorf("saving showdown history: %w", err))
	}
	return id, errors.Join(errs...)
}

// RecordBanker updates the challenger's stats for one banker settlement.
func RecordBanker(ctx context.Context, stats game.StatsRecorder, s banker.Settlement) error {
	guild := s.Scope.GuildID
	switch s.Outcome {
	case banker.OutcomeNatural, banker.OutcomeWin:
		return stats.RecordWin(ctx, game.KindBanker, guild, s.Challenger, Winnings(s.Outcome, s.Bet), s.Hand.Tier.String())
	case banker.OutcomeLose:
		return stats.RecordLoss(ctx, game.KindBanker, guild, s.Challenger, s.Bet)
	case banker.OutcomePush:
		return stats.RecordPush(ctx, game.KindBanker, guild, s.Challenger)
	}
	return nil
}

// BankerRecord builds the history entry for a finished banker game. Pot is
// the total staked by challengers; the banker's hand comes last.
func BankerRecord(res *banker.Result) *game.GameRecord {
	rec := &game.GameRecord{
		Kind:  game.KindBanker,
		Scope: res.Scope,
	}
	var bankerNet int64
	for _, s := range res.Settlements {
		plan, err := Banker(s)
		var net int64
		if err == nil {
			net = plan.Delta(s.Challenger.ID)
			bankerNet += plan.Delta(s.Banker.ID)
		}
		rec.Pot += s.Bet
		rec.Hands = append(rec.Hands, game.HandRecord{
			PlayerID: s.Challenger.ID,
			Name:     s.Challenger.Name,
			Cards:    s.Hand.Cards,
			Tier:     s.Hand.Tier.String(),
			Score:    s.Hand.Score,
			Bet:      s.Bet,
			Net:      net,
		})
	}
	rec.Hands = append(rec.Hands, game.HandRecord{
		PlayerID: res.Banker.ID,
		Name:     res.Banker.Name,
		Cards:    res.BankerHand.Cards,
		Tier:     res.BankerHand.Tier.String(),
		Score:    res.BankerHand.Score,
		Net:      bankerNet,
	})
	return rec
}
