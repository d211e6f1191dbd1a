package showdown

import (
	"github.com/vctt94/tablegames/pkg/cards"
	"github.com/vctt94/tablegames/pkg/game"
)

// Player is a seat at a showdown room.
type Player struct {
	id   string
	name string

	hand           *Hand
	currentBet     int64
	isReady        bool
	hasFolded      bool
	isRevealed     bool
	hasCalledRaise bool
	actedThisRound bool
}

var _ game.Participant = (*Player)(nil)

func newPlayer(seat game.Seat, ready bool) *Player {
	return &Player{
		id:             seat.ID,
		name:           seat.Name,
		isReady:        ready,
		hasCalledRaise: true,
	}
}

func (p *Player) ID() string        { return p.id }
func (p *Player) Name() string      { return p.name }
func (p *Player) CurrentBet() int64 { return p.currentBet }
func (p *Player) IsReady() bool     { return p.isReady }
func (p *Player) HasFolded() bool   { return p.hasFolded }
func (p *Player) IsRevealed() bool  { return p.isRevealed }

// Cards returns a copy of the player's cards, nil outside a game.
func (p *Player) Cards() []cards.Card {
	if p.hand == nil {
		return nil
	}
	return append([]cards.Card(nil), p.hand.Cards...)
}

// Hand returns the evaluated hand, nil outside a game.
func (p *Player) Hand() *Hand {
	return p.hand
}

// OwesCall reports whether the player must call or fold before acting.
func (p *Player) OwesCall() bool {
	return p.active() && !p.hasCalledRaise
}

// active is a player still contesting the pot who has not shown their hand.
func (p *Player) active() bool {
	return !p.hasFolded && !p.isRevealed
}

// reset clears per-game state. ready is kept only when asked.
func (p *Player) reset(ready bool) {
	p.hand = nil
	p.currentBet = 0
	p.isReady = ready
	p.hasFolded = false
	p.isRevealed = false
	p.hasCalledRaise = true
	p.actedThisRound = false
}
