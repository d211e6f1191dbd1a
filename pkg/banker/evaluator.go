package banker

import (
	"fmt"

	"github.com/vctt94/tablegames/pkg/cards"
)

// Tier classifies a blackjack-style hand.
type Tier int

const (
	Plain Tier = iota + 1
	Natural
	FiveCardCharlie
)

func (t Tier) String() string {
	switch t {
	case FiveCardCharlie:
		return "Five-card charlie"
	case Natural:
		return "Natural"
	case Plain:
		return "Plain"
	}
	return fmt.Sprintf("Tier(%d)", int(t))
}

// BustLimit is the highest total a hand can hold without busting.
const BustLimit = 21

// MaxCards is the hand size that makes a five-card charlie.
const MaxCards = 5

// Hand is an evaluated hand. Score is the best total, soft aces counted as
// 11 whenever that stays within BustLimit.
type Hand struct {
	Cards  []cards.Card `json:"cards"`
	Hard   int          `json:"hard"`
	Score  int          `json:"score"`
	Tier   Tier         `json:"tier"`
	Busted bool         `json:"busted"`
}

// Description returns a short human readable summary.
func (h Hand) Description() string {
	switch {
	case h.Busted:
		return fmt.Sprintf("Bust (%d)", h.Hard)
	case h.Tier == Plain:
		return fmt.Sprintf("%d", h.Score)
	case h.Tier == Natural && h.isPairOfAces():
		return "Natural (pair of aces)"
	}
	return h.Tier.String()
}

func (h Hand) isPairOfAces() bool {
	return len(h.Cards) == 2 && h.Cards[0].Rank() == cards.Ace && h.Cards[1].Rank() == cards.Ace
}

func cardValue(r cards.Rank) int {
	if r >= cards.Ten {
		return 10
	}
	return int(r)
}

// Totals returns the hard total (aces as 1) and the best total.
func Totals(cs []cards.Card) (hard, best int) {
	aces := 0
	for _, c := range cs {
		if c.Rank() == cards.Ace {
			aces++
		}
		hard += cardValue(c.Rank())
	}
	best = hard
	for i := 0; i < aces; i++ {
		if best+10 <= BustLimit {
			best += 10
		}
	}
	return hard, best
}

// Evaluate classifies cs. It is a pure function of the cards.
func Evaluate(cs []cards.Card) Hand {
	hard, best := Totals(cs)
	hand := Hand{
		Cards:  append([]cards.Card(nil), cs...),
		Hard:   hard,
		Score:  best,
		Busted: hard > BustLimit,
		Tier:   Plain,
	}
	switch {
	case len(cs) == MaxCards && best <= BustLimit:
		hand.Tier = FiveCardCharlie
	case len(cs) == 2 && hand.isPairOfAces():
		hand.Tier = Natural
	case len(cs) == 2 && best == BustLimit:
		hand.Tier = Natural
	}
	return hand
}

// Outcome is a challenger's result against the banker.
type Outcome string

const (
	OutcomeNone    Outcome = ""
	OutcomeWin     Outcome = "win"
	OutcomeNatural Outcome = "natural"
	OutcomeLose    Outcome = "lose"
	OutcomePush    Outcome = "push"
)

// HeadToHead settles a challenger hand against the banker hand.
func HeadToHead(challenger, banker Hand) Outcome {
	if challenger.Busted {
		return OutcomeLose
	}
	if banker.Busted {
		if challenger.Tier == Natural {
			return OutcomeNatural
		}
		return OutcomeWin
	}
	if challenger.Tier == FiveCardCharlie {
		if banker.Tier == FiveCardCharlie {
			return OutcomePush
		}
		return OutcomeWin
	}
	if banker.Tier == FiveCardCharlie {
		return OutcomeLose
	}
	if challenger.Tier == Natural {
		if banker.Tier == Natural {
			return OutcomePush
		}
		return OutcomeNatural
	}
	if banker.Tier == Natural {
		return OutcomeLose
	}
	switch {
	case challenger.Score > banker.Score:
		return OutcomeWin
	case challenger.Score < banker.Score:
		return OutcomeLose
	}
	return OutcomePush
}
