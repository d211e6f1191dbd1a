package cards

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
)

// ErrInsufficientCards is returned when more cards are requested than the
// deck holds. Under normal play it means an invariant was broken.
var ErrInsufficientCards = errors.New("insufficient cards in deck")

// Suit represents a card suit
type Suit string

const (
	Spades   Suit = "♠"
	Hearts   Suit = "♥"
	Diamonds Suit = "♦"
	Clubs    Suit = "♣"
)

// Suits lists the four suits in deck construction order.
var Suits = []Suit{Spades, Hearts, Diamonds, Clubs}

// Rank is the card rank, Ace low (1) through King (13).
type Rank int

const (
	Ace Rank = iota + 1
	Two
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
)

// Ranks lists the thirteen ranks in ascending order.
var Ranks = []Rank{Ace, Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King}

var rankNames = map[Rank]string{
	Ace: "A", Two: "2", Three: "3", Four: "4", Five: "5", Six: "6", Seven: "7",
	Eight: "8", Nine: "9", Ten: "10", Jack: "J", Queen: "Q", King: "K",
}

func (r Rank) String() string {
	if s, ok := rankNames[r]; ok {
		return s
	}
	return fmt.Sprintf("Rank(%d)", int(r))
}

// IsFace reports whether the rank is J, Q or K.
func (r Rank) IsFace() bool {
	return r >= Jack && r <= King
}

// Card represents a playing card
type Card struct {
	suit Suit
	rank Rank
}

// New creates a card from a suit and rank.
func New(suit Suit, rank Rank) Card {
	return Card{suit: suit, rank: rank}
}

// Suit returns the card's suit
func (c Card) Suit() Suit {
	return c.suit
}

// Rank returns the card's rank
func (c Card) Rank() Rank {
	return c.rank
}

// IsRed reports whether the card is a heart or diamond.
func (c Card) IsRed() bool {
	return c.suit == Hearts || c.suit == Diamonds
}

// String returns a string representation of the card
func (c Card) String() string {
	return c.rank.String() + string(c.suit)
}

// CardJSON represents a card for JSON serialization
type CardJSON struct {
	Suit string `json:"suit"`
	Rank string `json:"rank"`
}

// MarshalJSON implements json.Marshaler interface for Card
func (c Card) MarshalJSON() ([]byte, error) {
	return json.Marshal(CardJSON{
		Suit: string(c.suit),
		Rank: c.rank.String(),
	})
}

// UnmarshalJSON implements json.Unmarshaler interface for Card
func (c *Card) UnmarshalJSON(data []byte) error {
	var cardJSON CardJSON
	if err := json.Unmarshal(data, &cardJSON); err != nil {
		return err
	}
	suit, err := parseSuit(cardJSON.Suit)
	if err != nil {
		return err
	}
	rank, err := parseRank(cardJSON.Rank)
	if err != nil {
		return err
	}
	c.suit, c.rank = suit, rank
	return nil
}

func parseSuit(s string) (Suit, error) {
	switch s {
	case "♠", "s", "S", "spades", "Spades":
		return Spades, nil
	case "♥", "h", "H", "hearts", "Hearts":
		return Hearts, nil
	case "♦", "d", "D", "diamonds", "Diamonds":
		return Diamonds, nil
	case "♣", "c", "C", "clubs", "Clubs":
		return Clubs, nil
	}
	return "", fmt.Errorf("invalid suit: %s", s)
}

func parseRank(s string) (Rank, error) {
	switch strings.ToUpper(s) {
	case "A", "ACE":
		return Ace, nil
	case "K", "KING":
		return King, nil
	case "Q", "QUEEN":
		return Queen, nil
	case "J", "JACK":
		return Jack, nil
	case "10", "T", "TEN":
		return Ten, nil
	}
	for r := Two; r <= Nine; r++ {
		if s == r.String() {
			return r, nil
		}
	}
	return 0, fmt.Errorf("invalid rank: %s", s)
}

// Parse reads a card written as rank followed by suit, e.g. "10h", "Q♠" or "As".
func Parse(s string) (Card, error) {
	s = strings.TrimSpace(s)
	for _, suit := range []string{"♠", "♥", "♦", "♣"} {
		if strings.HasSuffix(s, suit) {
			rank, err := parseRank(strings.TrimSuffix(s, suit))
			if err != nil {
				return Card{}, err
			}
			return Card{suit: Suit(suit), rank: rank}, nil
		}
	}
	if len(s) < 2 {
		return Card{}, fmt.Errorf("invalid card: %q", s)
	}
	suit, err := parseSuit(s[len(s)-1:])
	if err != nil {
		return Card{}, err
	}
	rank, err := parseRank(s[:len(s)-1])
	if err != nil {
		return Card{}, err
	}
	return Card{suit: suit, rank: rank}, nil
}

// MustParseHand parses a space separated list of cards and panics on error.
// Intended for tests and fixtures.
func MustParseHand(s string) []Card {
	fields := strings.Fields(s)
	hand := make([]Card, 0, len(fields))
	for _, f := range fields {
		c, err := Parse(f)
		if err != nil {
			panic(err)
		}
		hand = append(hand, c)
	}
	return hand
}

// Deck represents a deck of cards
type Deck struct {
	cards []Card
	rng   *rand.Rand
}

// NewShuffledDeck builds the 52 card deck and applies a uniform
// Fisher-Yates permutation driven by rng.
func NewShuffledDeck(rng *rand.Rand) *Deck {
	deck := &Deck{
		cards: make([]Card, 0, 52),
		rng:   rng,
	}
	for _, suit := range Suits {
		for _, rank := range Ranks {
			deck.cards = append(deck.cards, Card{suit: suit, rank: rank})
		}
	}
	deck.Shuffle()
	return deck
}

// NewDeckFromCards creates a deck that deals the given cards in order.
func NewDeckFromCards(cards []Card, rng *rand.Rand) *Deck {
	deck := &Deck{
		cards: make([]Card, len(cards)),
		rng:   rng,
	}
	copy(deck.cards, cards)
	return deck
}

// Shuffle randomizes the order of cards in the deck
func (d *Deck) Shuffle() {
	for i := len(d.cards) - 1; i > 0; i-- {
		j := d.rng.Intn(i + 1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Draw removes and returns the top card from the deck
func (d *Deck) Draw() (Card, bool) {
	if len(d.cards) == 0 {
		return Card{}, false
	}
	card := d.cards[0]
	d.cards = d.cards[1:]
	return card, true
}

// Deal removes the first n cards from the deck.
func (d *Deck) Deal(n int) ([]Card, error) {
	if n < 0 || n > len(d.cards) {
		return nil, fmt.Errorf("deal %d of %d: %w", n, len(d.cards), ErrInsufficientCards)
	}
	dealt := make([]Card, n)
	copy(dealt, d.cards[:n])
	d.cards = d.cards[n:]
	return dealt, nil
}

// Size returns the number of cards remaining in the deck
func (d *Deck) Size() int {
	return len(d.cards)
}

// Cards returns a copy of the remaining cards.
func (d *Deck) Cards() []Card {
	out := make([]Card, len(d.cards))
	copy(out, d.cards)
	return out
}

// Format renders cards the way chat output shows them.
func Format(cs []Card) string {
	if len(cs) == 0 {
		return "None"
	}
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}
