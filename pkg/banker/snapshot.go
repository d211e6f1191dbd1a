package banker

import (
	"github.com/vctt94/tablegames/pkg/cards"
	"github.com/vctt94/tablegames/pkg/game"
)

// Settlement is one challenger settled against the banker. It is the input
// to payout computation.
type Settlement struct {
	Scope      game.Scope
	Banker     game.Seat
	BankerHand Hand
	Challenger game.Seat
	Bet        int64
	Hand       Hand
	Outcome    Outcome
}

// PlayerSnapshot is an immutable copy of a player's state.
type PlayerSnapshot struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Bet       int64   `json:"bet"`
	Banker    bool    `json:"banker"`
	Standing  bool    `json:"standing"`
	Busted    bool    `json:"busted"`
	Doubled   bool    `json:"doubled"`
	Revealed  bool    `json:"revealed"`
	Outcome   Outcome `json:"outcome,omitempty"`
	CardCount int     `json:"card_count"`
	Hand      *Hand   `json:"hand,omitempty"`
}

// Snapshot is an immutable copy of a room used for rendering and events.
type Snapshot struct {
	Scope       game.Scope       `json:"scope"`
	HostID      string           `json:"host_id"`
	BankerID    string           `json:"banker_id"`
	TurnID      string           `json:"turn_id,omitempty"`
	Status      string           `json:"status"`
	Stake       int64            `json:"stake"`
	GamesPlayed int              `json:"games_played"`
	Players     []PlayerSnapshot `json:"players"`
}

// Snapshot copies the room state. The caller holds the room lock.
func (r *Room) Snapshot() *Snapshot {
	s := &Snapshot{
		Scope:       r.scope,
		HostID:      r.hostID,
		BankerID:    r.players[r.bankerIndex%len(r.players)].id,
		Status:      r.sm.Current(),
		Stake:       r.stake,
		GamesPlayed: r.gamesPlayed,
		Players:     make([]PlayerSnapshot, 0, len(r.players)),
	}
	if cur := r.Current(); cur != nil {
		s.TurnID = cur.id
	}
	for _, p := range r.players {
		ps := PlayerSnapshot{
			ID:       p.id,
			Name:     p.name,
			Bet:      p.currentBet,
			Banker:   p.isBanker,
			Standing: p.isStanding,
			Busted:   p.isBusted,
			Doubled:  p.isDoubled,
			Revealed: p.isRevealed,
			Outcome:  p.outcome,
		}
		if p.hand != nil {
			h := *p.hand
			h.Cards = append([]cards.Card(nil), p.hand.Cards...)
			ps.Hand = &h
			ps.CardCount = len(h.Cards)
		}
		s.Players = append(s.Players, ps)
	}
	return s
}

// Player looks up a player in the snapshot.
func (s *Snapshot) Player(id string) *PlayerSnapshot {
	for i := range s.Players {
		if s.Players[i].ID == id {
			return &s.Players[i]
		}
	}
	return nil
}

// Result is the final state of a finished game.
type Result struct {
	Scope       game.Scope
	Banker      game.Seat
	BankerHand  Hand
	Settlements []Settlement
}

// Result returns the outcome of a finished game, one entry per challenger
// in seating order.
func (r *Room) Result() (*Result, error) {
	if !r.sm.Is(StateFinished) {
		return nil, game.ErrInvalidState
	}
	banker := r.Banker()
	res := &Result{
		Scope:      r.scope,
		Banker:     game.Seat{ID: banker.id, Name: banker.name},
		BankerHand: *banker.hand,
	}
	for _, p := range r.players {
		if p.isBanker {
			continue
		}
		res.Settlements = append(res.Settlements, Settlement{
			Scope:      r.scope,
			Banker:     res.Banker,
			BankerHand: res.BankerHand,
			Challenger: game.Seat{ID: p.id, Name: p.name},
			Bet:        p.currentBet,
			Hand:       *p.hand,
			Outcome:    p.outcome,
		})
	}
	return res, nil
}
