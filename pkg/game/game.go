// Package game holds the types shared by every room variant: the
// (guild, channel) scope key, the common participant view, the error kinds
// surfaced to callers, and the ledger and stats collaborators the engine
// talks to.
package game

import (
	"context"
	"fmt"

	"github.com/vctt94/tablegames/pkg/cards"
)

// MaxPlayers is the seat capacity of every room.
const MaxPlayers = 6

// Kind identifies a game variant.
type Kind string

const (
	KindShowdown Kind = "showdown"
	KindBanker   Kind = "banker"
)

// Scope identifies the chat channel a room is bound to.
type Scope struct {
	GuildID   string `json:"guild_id"`
	ChannelID string `json:"channel_id"`
}

// Key returns the registry key for the scope.
func (s Scope) Key() string {
	return s.GuildID + "-" + s.ChannelID
}

func (s Scope) String() string {
	return s.Key()
}

// Seat is the identity a player brings into a room.
type Seat struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Participant is the view shared by every variant's player state.
type Participant interface {
	ID() string
	Name() string
	Cards() []cards.Card
	CurrentBet() int64
}

// Charge is a stake debit a room requires before it can apply an action.
type Charge struct {
	PlayerID string
	Amount   int64
	Reason   string
}

// PayFunc collects the given charges. Rooms call it after validating an
// action and before mutating any state; a non-nil error aborts the action.
type PayFunc func(charges []Charge) error

// Collect invokes pay when it is set. Rooms built without a ledger pass nil.
func Collect(pay PayFunc, charges ...Charge) error {
	if pay == nil || len(charges) == 0 {
		return nil
	}
	return pay(charges)
}

// Ledger is the external economy the engine consumes. Balances are kept per
// player and guild.
type Ledger interface {
	// Balance returns the player's balance in the guild, creating the
	// wallet with the starting amount if missing.
	Balance(ctx context.Context, playerID, name, guildID string) (int64, error)
	// Stake takes a bet from the player. It fails with
	// ErrInsufficientFunds, changing nothing, when the balance does not
	// cover amount.
	Stake(ctx context.Context, playerID, guildID string, amount int64, reason string) error
	// Debit subtracts amount unconditionally. A banker paying out may go
	// negative.
	Debit(ctx context.Context, playerID, guildID string, amount int64, reason string) error
	Credit(ctx context.Context, playerID, guildID string, amount int64, reason string) error
	// Refund returns a stake without counting it as a win.
	Refund(ctx context.Context, playerID, guildID string, amount int64, reason string) error
}

// HandRecord is one player's final hand as stored in game history.
type HandRecord struct {
	PlayerID string       `json:"player_id"`
	Name     string       `json:"name"`
	Cards    []cards.Card `json:"cards"`
	Tier     string       `json:"tier"`
	Score    int          `json:"score"`
	Bet      int64        `json:"bet"`
	Net      int64        `json:"net"`
	Folded   bool         `json:"folded,omitempty"`
}

// GameRecord is a finished game handed to the stats recorder.
type GameRecord struct {
	Kind       Kind         `json:"kind"`
	Scope      Scope        `json:"scope"`
	WinnerID   string       `json:"winner_id,omitempty"`
	WinnerTier string       `json:"winner_tier,omitempty"`
	Pot        int64        `json:"pot"`
	Hands      []HandRecord `json:"hands"`
}

// StatsRecorder keeps win/loss counts, streaks and history. It is only
// invoked after settlement.
type StatsRecorder interface {
	RecordWin(ctx context.Context, kind Kind, guildID string, seat Seat, amount int64, tier string) error
	RecordLoss(ctx context.Context, kind Kind, guildID string, seat Seat, amount int64) error
	RecordPush(ctx context.Context, kind Kind, guildID string, seat Seat) error
	SaveGame(ctx context.Context, rec *GameRecord) (string, error)
}

// Describe formats a participant for logs.
func Describe(p Participant) string {
	return fmt.Sprintf("%s(%s)", p.Name(), p.ID())
}
