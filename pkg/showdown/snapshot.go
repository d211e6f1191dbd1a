package showdown

import (
	"github.com/vctt94/tablegames/pkg/cards"
	"github.com/vctt94/tablegames/pkg/game"
)

// PlayerSnapshot is an immutable copy of a player's state.
type PlayerSnapshot struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Bet      int64  `json:"bet"`
	Ready    bool   `json:"ready"`
	Folded   bool   `json:"folded"`
	Revealed bool   `json:"revealed"`
	OwesCall bool   `json:"owes_call"`
	Hand     *Hand  `json:"hand,omitempty"`
}

// Snapshot is an immutable copy of a room used for rendering and events.
type Snapshot struct {
	Scope        game.Scope       `json:"scope"`
	HostID       string           `json:"host_id"`
	Status       string           `json:"status"`
	Stake        int64            `json:"stake"`
	Pot          int64            `json:"pot"`
	CurrentRaise int64            `json:"current_raise"`
	MaxRaise     int64            `json:"max_raise"`
	RaiseByID    string           `json:"raise_by_id,omitempty"`
	BettingRound int              `json:"betting_round"`
	WinnerID     string           `json:"winner_id,omitempty"`
	GamesPlayed  int              `json:"games_played"`
	Players      []PlayerSnapshot `json:"players"`
}

// Snapshot copies the room state. The caller holds the room lock.
func (r *Room) Snapshot() *Snapshot {
	s := &Snapshot{
		Scope:        r.scope,
		HostID:       r.hostID,
		Status:       r.sm.Current(),
		Stake:        r.stake,
		Pot:          r.pot,
		CurrentRaise: r.currentRaise,
		MaxRaise:     r.MaxRaise(),
		RaiseByID:    r.raiseByID,
		BettingRound: r.bettingRound,
		WinnerID:     r.winnerID,
		GamesPlayed:  r.gamesPlayed,
		Players:      make([]PlayerSnapshot, 0, len(r.players)),
	}
	for _, p := range r.players {
		ps := PlayerSnapshot{
			ID:       p.id,
			Name:     p.name,
			Bet:      p.currentBet,
			Ready:    p.isReady,
			Folded:   p.hasFolded,
			Revealed: p.isRevealed,
			OwesCall: p.OwesCall() && r.raiseByID != "",
		}
		if p.hand != nil {
			h := *p.hand
			h.Cards = append([]cards.Card(nil), p.hand.Cards...)
			ps.Hand = &h
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

// Result is the final state of a finished game, input to settlement.
type Result struct {
	Scope    game.Scope
	WinnerID string
	Pot      int64
	Entries  []ResultEntry
}

// ResultEntry is one seat in a finished game.
type ResultEntry struct {
	Seat   game.Seat
	Bet    int64
	Hand   Hand
	Folded bool
}

// Result returns the outcome of a finished game.
func (r *Room) Result() (*Result, error) {
	if !r.sm.Is(StateFinished) {
		return nil, game.ErrInvalidState
	}
	res := &Result{
		Scope:    r.scope,
		WinnerID: r.winnerID,
		Pot:      r.pot,
		Entries:  make([]ResultEntry, 0, len(r.players)),
	}
	for _, p := range r.players {
		e := ResultEntry{
			Seat:   game.Seat{ID: p.id, Name: p.name},
			Bet:    p.currentBet,
			Folded: p.hasFolded,
		}
		if p.hand != nil {
			e.Hand = *p.hand
		}
		res.Entries = append(res.Entries, e)
	}
	return res, nil
}
