package banker

import (
	"github.com/vctt94/tablegames/pkg/cards"
	"github.com/vctt94/tablegames/pkg/game"
)

// Player is a seat at a banker room. Exactly one seat holds the banker
// role during a game.
type Player struct {
	id   string
	name string

	hand       *Hand
	currentBet int64
	isBanker   bool
	isStanding bool
	isBusted   bool
	isDoubled  bool
	isRevealed bool
	outcome    Outcome
}

var _ game.Participant = (*Player)(nil)

func newPlayer(seat game.Seat) *Player {
	return &Player{id: seat.ID, name: seat.Name}
}

func (p *Player) ID() string        { return p.id }
func (p *Player) Name() string      { return p.name }
func (p *Player) CurrentBet() int64 { return p.currentBet }
func (p *Player) IsBanker() bool    { return p.isBanker }
func (p *Player) IsStanding() bool  { return p.isStanding }
func (p *Player) IsBusted() bool    { return p.isBusted }
func (p *Player) IsDoubled() bool   { return p.isDoubled }
func (p *Player) IsRevealed() bool  { return p.isRevealed }
func (p *Player) Outcome() Outcome  { return p.outcome }

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

// done reports whether the player's turn is over.
func (p *Player) done() bool {
	return p.isStanding || p.isBusted
}

// take adds cards and re-evaluates from scratch. Busting or reaching five
// cards ends the turn.
func (p *Player) take(cs ...cards.Card) {
	var held []cards.Card
	if p.hand != nil {
		held = p.hand.Cards
	}
	hand := Evaluate(append(append([]cards.Card(nil), held...), cs...))
	p.hand = &hand
	if hand.Busted {
		p.isBusted = true
		p.isStanding = true
	}
	if hand.Tier == FiveCardCharlie {
		p.isStanding = true
	}
}

func (p *Player) reset() {
	p.hand = nil
	p.currentBet = 0
	p.isStanding = false
	p.isBusted = false
	p.isDoubled = false
	p.isRevealed = false
	p.outcome = OutcomeNone
}
