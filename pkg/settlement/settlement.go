// Package settlement turns finished game state into ledger instructions and
// per-player deltas. Stakes are already debited when a game settles, so the
// instructions only move money back out to players.
package settlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/vctt94/tablegames/pkg/banker"
	"github.com/vctt94/tablegames/pkg/game"
	"github.com/vctt94/tablegames/pkg/showdown"
)

// ErrNotConserved means a plan would create or destroy coins.
var ErrNotConserved = errors.New("settlement does not conserve coins")

// Op is a ledger operation.
type Op int

const (
	OpCredit Op = iota
	OpRefund
	OpDebit
)

func (o Op) String() string {
	switch o {
	case OpCredit:
		return "credit"
	case OpRefund:
		return "refund"
	case OpDebit:
		return "debit"
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// Instruction is one ledger call.
type Instruction struct {
	Op       Op
	PlayerID string
	Amount   int64
	Reason   string
}

// Plan is the full settlement of a game or of one banker challenger.
// Deltas hold each player's net change over the game, stakes included, and
// always sum to zero.
type Plan struct {
	Instructions []Instruction
	Deltas       map[string]int64
}

func newPlan() *Plan {
	return &Plan{Deltas: make(map[string]int64)}
}

func (p *Plan) add(op Op, playerID string, amount int64, reason string) {
	if amount <= 0 {
		return
	}
	p.Instructions = append(p.Instructions, Instruction{Op: op, PlayerID: playerID, Amount: amount, Reason: reason})
}

// Delta returns the net change for playerID.
func (p *Plan) Delta(playerID string) int64 {
	return p.Deltas[playerID]
}

// Net is the sum of all deltas, zero for a valid plan.
func (p *Plan) Net() int64 {
	var sum int64
	for _, d := range p.Deltas {
		sum += d
	}
	return sum
}

// Showdown settles a finished showdown: the winner takes the whole pot.
func Showdown(res *showdown.Result) (*Plan, error) {
	if res == nil || res.WinnerID == "" {
		return nil, fmt.Errorf("showdown result has no winner: %w", game.ErrInvalidState)
	}
	plan := newPlan()
	var staked int64
	found := false
	for _, e := range res.Entries {
		plan.Deltas[e.Seat.ID] -= e.Bet
		staked += e.Bet
		if e.Seat.ID == res.WinnerID {
			found = true
		}
	}
	if !found {
		return nil, fmt.Errorf("winner %s is not seated: %w", res.WinnerID, game.ErrNotSeated)
	}
	if staked != res.Pot {
		return nil, fmt.Errorf("pot %d differs from stakes %d: %w", res.Pot, staked, ErrNotConserved)
	}
	plan.add(OpCredit, res.WinnerID, res.Pot, "showdown pot")
	plan.Deltas[res.WinnerID] += res.Pot
	return plan, nil
}

// NaturalPayout is the win on a natural: one and a half stakes, rounded
// down.
func NaturalPayout(bet int64) int64 {
	return bet * 3 / 2
}

// Winnings returns what the challenger wins from the banker for outcome.
// Losses and pushes win nothing.
func Winnings(outcome banker.Outcome, bet int64) int64 {
	switch outcome {
	case banker.OutcomeNatural:
		return NaturalPayout(bet)
	case banker.OutcomeWin:
		return bet
	}
	return 0
}

// Banker settles one challenger against the banker. A winning challenger
// gets the stake back plus the winnings, paid by the banker; a losing
// challenger's stake goes to the banker; a push returns the stake.
func Banker(s banker.Settlement) (*Plan, error) {
	if s.Challenger.ID == "" || s.Banker.ID == "" {
		return nil, fmt.Errorf("incomplete banker settlement: %w", game.ErrInvalidState)
	}
	plan := newPlan()
	c, b := s.Challenger.ID, s.Banker.ID
	plan.Deltas[c] = -s.Bet
	plan.Deltas[b] = 0

	switch s.Outcome {
	case banker.OutcomeNatural, banker.OutcomeWin:
		won := Winnings(s.Outcome, s.Bet)
		plan.add(OpRefund, c, s.Bet, "banker stake returned")
		plan.add(OpCredit, c, won, "banker "+string(s.Outcome))
		plan.add(OpDebit, b, won, "banker pays "+c)
		plan.Deltas[c] += s.Bet + won
		plan.Deltas[b] -= won
	case banker.OutcomePush:
		plan.add(OpRefund, c, s.Bet, "banker push")
		plan.Deltas[c] += s.Bet
	case banker.OutcomeLose:
		plan.add(OpCredit, b, s.Bet, "banker collects from "+c)
		plan.Deltas[b] += s.Bet
	default:
		return nil, fmt.Errorf("challenger %s not settled: %w", c, game.ErrInvalidState)
	}
	if plan.Net() != 0 {
		return nil, ErrNotConserved
	}
	return plan, nil
}

// Refunds builds a plan that returns aborted stakes.
func Refunds(charges []game.Charge) *Plan {
	plan := newPlan()
	for _, ch := range charges {
		plan.add(OpRefund, ch.PlayerID, ch.Amount, ch.Reason)
	}
	return plan
}

// Apply executes the plan against the ledger. Every instruction is tried;
// the failures are returned joined.
func Apply(ctx context.Context, ledger game.Ledger, guildID string, plan *Plan) error {
	var errs []error
	for _, in := range plan.Instructions {
		var err error
		switch in.Op {
		case OpCredit:
			err = ledger.Credit(ctx, in.PlayerID, guildID, in.Amount, in.Reason)
		case OpRefund:
			err = ledger.Refund(ctx, in.PlayerID, guildID, in.Amount, in.Reason)
		case OpDebit:
			err = ledger.Debit(ctx, in.PlayerID, guildID, in.Amount, in.Reason)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s %d for %s: %w", in.Op, in.Amount, in.PlayerID, err))
		}
	}
	return errors.Join(errs...)
}
