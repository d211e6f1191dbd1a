package showdown

import (
	"fmt"
	"sort"

	"github.com/vctt94/tablegames/pkg/cards"
)

// Tier is the classification of a three card hand. Higher tiers beat lower
// ones regardless of score.
type Tier int

const (
	Plain Tier = iota + 1
	FaceTrio
	Triple
	Sequence
)

func (t Tier) String() string {
	switch t {
	case Sequence:
		return "Sequence"
	case Triple:
		return "Triple"
	case FaceTrio:
		return "Face-trio"
	case Plain:
		return "Plain"
	}
	return fmt.Sprintf("Tier(%d)", int(t))
}

// Hand is an evaluated three card hand.
type Hand struct {
	Cards []cards.Card `json:"cards"`
	Score int          `json:"score"`
	Tier  Tier         `json:"tier"`
}

// Description returns a short human readable summary.
func (h Hand) Description() string {
	if h.Tier == Plain {
		return fmt.Sprintf("%d points", h.Score)
	}
	return h.Tier.String()
}

// cardPoints is A=1, 2..9 face value, 10 and faces zero.
func cardPoints(r cards.Rank) int {
	if r >= cards.Ten {
		return 0
	}
	return int(r)
}

// Score returns the sum of card points modulo 10.
func Score(cs []cards.Card) int {
	total := 0
	for _, c := range cs {
		total += cardPoints(c.Rank())
	}
	return total % 10
}

func isTriple(cs []cards.Card) bool {
	return len(cs) == 3 && cs[0].Rank() == cs[1].Rank() && cs[1].Rank() == cs[2].Rank()
}

func isSequence(cs []cards.Card) bool {
	if len(cs) != 3 {
		return false
	}
	if cs[0].Suit() != cs[1].Suit() || cs[1].Suit() != cs[2].Suit() {
		return false
	}
	r := []int{int(cs[0].Rank()), int(cs[1].Rank()), int(cs[2].Rank())}
	sort.Ints(r)
	if r[1]-r[0] == 1 && r[2]-r[1] == 1 {
		return true
	}
	// Q-K-A wraps around.
	return r[0] == int(cards.Ace) && r[1] == int(cards.Queen) && r[2] == int(cards.King)
}

func isFaceTrio(cs []cards.Card) bool {
	if len(cs) != 3 {
		return false
	}
	for _, c := range cs {
		if !c.Rank().IsFace() {
			return false
		}
	}
	return true
}

// Evaluate classifies cs. It is a pure function of the cards.
func Evaluate(cs []cards.Card) Hand {
	hand := Hand{
		Cards: append([]cards.Card(nil), cs...),
		Score: Score(cs),
	}
	switch {
	case isSequence(cs):
		hand.Tier = Sequence
	case isTriple(cs):
		hand.Tier = Triple
	case isFaceTrio(cs):
		hand.Tier = FaceTrio
	default:
		hand.Tier = Plain
	}
	return hand
}

func highestRank(cs []cards.Card) cards.Rank {
	var max cards.Rank
	for _, c := range cs {
		if c.Rank() > max {
			max = c.Rank()
		}
	}
	return max
}

// Compare returns >0 when a beats b, <0 when b beats a and 0 on a draw.
func Compare(a, b Hand) int {
	if a.Tier != b.Tier {
		return int(a.Tier) - int(b.Tier)
	}
	switch a.Tier {
	case Plain:
		return a.Score - b.Score
	case Triple:
		return int(a.Cards[0].Rank()) - int(b.Cards[0].Rank())
	default:
		return int(highestRank(a.Cards)) - int(highestRank(b.Cards))
	}
}
