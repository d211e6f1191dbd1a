package banker

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/decred/slog"
	"github.com/vctt94/tablegames/pkg/cards"
	"github.com/vctt94/tablegames/pkg/game"
	"github.com/vctt94/tablegames/pkg/statemachine"
)

// Room states.
const (
	StateWaiting    = "waiting"
	StatePlaying    = "playing"
	StateDealerTurn = "dealer_turn"
	StateFinished   = "finished"
)

const (
	evStart  = "start"
	evDealer = "dealer"
	evFinish = "finish"
	evReset  = "reset"
)

// InitialCards is the number of cards dealt to every seat at start.
const InitialCards = 2

// RotateEvery is the number of finished games after which the banker role
// moves to the next seat.
const RotateEvery = 5

// Config holds the settings for a new room.
type Config struct {
	Scope      game.Scope
	Host       game.Seat
	Stake      int64
	MaxPlayers int
	Rng        *rand.Rand
	Log        slog.Logger
}

// Room is one banker game bound to a channel. Its methods are not safe for
// concurrent use: callers hold the room lock (see lobby.WithRoom).
type Room struct {
	sync.Mutex

	log        slog.Logger
	scope      game.Scope
	stake      int64
	maxPlayers int
	rng        *rand.Rand
	createdAt  time.Time
	closed     bool

	hostID  string
	players []*Player
	deck    *cards.Deck
	newDeck func(*rand.Rand) *cards.Deck
	sm      *statemachine.StateMachine

	bankerIndex  int
	currentIndex int
	gamesPlayed  int

	settled []Settlement
}

// NewRoom creates a waiting room. The host holds the first bank.
func NewRoom(cfg Config) (*Room, error) {
	if cfg.Stake <= 0 {
		return nil, game.ErrInvalidStake
	}
	if cfg.MaxPlayers <= 0 {
		cfg.MaxPlayers = game.MaxPlayers
	}
	if cfg.Rng == nil {
		cfg.Rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if cfg.Log == nil {
		cfg.Log = slog.Disabled
	}

	r := &Room{
		log:        cfg.Log,
		scope:      cfg.Scope,
		stake:      cfg.Stake,
		maxPlayers: cfg.MaxPlayers,
		rng:        cfg.Rng,
		createdAt:  time.Now(),
		hostID:     cfg.Host.ID,
		players:    []*Player{newPlayer(cfg.Host)},
		newDeck:    cards.NewShuffledDeck,
	}
	r.players[0].isBanker = true
	r.sm = statemachine.NewStateMachine("banker "+cfg.Scope.Key(), StateWaiting, cfg.Log,
		statemachine.Transition{Event: evStart, From: []string{StateWaiting}, To: StatePlaying},
		statemachine.Transition{Event: evDealer, From: []string{StatePlaying}, To: StateDealerTurn},
		statemachine.Transition{Event: evFinish, From: []string{StateDealerTurn}, To: StateFinished},
		statemachine.Transition{Event: evReset, From: []string{StatePlaying, StateDealerTurn, StateFinished}, To: StateWaiting},
	)
	r.log.Debugf("Created banker room %s host=%s stake=%d", cfg.Scope, cfg.Host.ID, cfg.Stake)
	return r, nil
}

func (r *Room) Scope() game.Scope { return r.scope }
func (r *Room) HostID() string    { return r.hostID }
func (r *Room) Stake() int64      { return r.stake }
func (r *Room) Status() string    { return r.sm.Current() }
func (r *Room) GamesPlayed() int  { return r.gamesPlayed }
func (r *Room) Closed() bool      { return r.closed }

// CreatedAt is when the room was opened.
func (r *Room) CreatedAt() time.Time { return r.createdAt }

// MarkClosed flags the room as removed from its registry.
func (r *Room) MarkClosed() { r.closed = true }

// InProgress reports whether a game is dealt and unresolved.
func (r *Room) InProgress() bool {
	return r.sm.Is(StatePlaying) || r.sm.Is(StateDealerTurn)
}

// Waiting reports whether the room accepts new players.
func (r *Room) Waiting() bool { return r.sm.Is(StateWaiting) }

// Players returns the seated players in seating order.
func (r *Room) Players() []*Player {
	return append([]*Player(nil), r.players...)
}

// Player returns the seated player with id, or nil.
func (r *Room) Player(id string) *Player {
	for _, p := range r.players {
		if p.id == id {
			return p
		}
	}
	return nil
}

// HasPlayer reports whether id is seated.
func (r *Room) HasPlayer(id string) bool {
	return r.Player(id) != nil
}

// PlayerCount returns the number of seated players.
func (r *Room) PlayerCount() int { return len(r.players) }

// Banker returns the seat holding the bank.
func (r *Room) Banker() *Player {
	return r.players[r.bankerIndex]
}

// Current returns the player whose turn it is, nil outside a game.
func (r *Room) Current() *Player {
	if !r.InProgress() {
		return nil
	}
	return r.players[r.currentIndex]
}

// AddPlayer seats a challenger while the room is waiting.
func (r *Room) AddPlayer(seat game.Seat) error {
	if !r.Waiting() {
		return game.ErrGameInProgress
	}
	if r.HasPlayer(seat.ID) {
		return game.ErrAlreadyInRoom
	}
	if len(r.players) >= r.maxPlayers {
		return game.ErrRoomFull
	}
	r.players = append(r.players, newPlayer(seat))
	r.log.Debugf("Player %s joined %s (%d/%d)", seat.ID, r.scope, len(r.players), r.maxPlayers)
	return nil
}

// RemovePlayer unseats id while the room is waiting. When the host leaves,
// or nobody is left, closed is true and the room should be dropped.
func (r *Room) RemovePlayer(id string) (closed bool, err error) {
	if !r.Waiting() {
		return false, fmt.Errorf("cannot leave before the room is restarted: %w", game.ErrGameInProgress)
	}
	idx := -1
	for i, p := range r.players {
		if p.id == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, game.ErrNotSeated
	}
	if id == r.hostID {
		return true, nil
	}
	r.players = append(r.players[:idx], r.players[idx+1:]...)
	if len(r.players) == 0 {
		return true, nil
	}
	switch {
	case idx < r.bankerIndex:
		r.bankerIndex--
	case r.bankerIndex >= len(r.players):
		r.bankerIndex = 0
	}
	r.assignBanker()
	return false, nil
}

func (r *Room) assignBanker() {
	for i, p := range r.players {
		p.isBanker = i == r.bankerIndex
	}
}

// Start deals a new game. Every challenger antes the stake through pay
// before anything in the room changes; the banker antes nothing.
func (r *Room) Start(actorID string, pay game.PayFunc) error {
	if !r.Waiting() {
		return game.ErrGameInProgress
	}
	if actorID != r.hostID {
		return game.ErrNotHost
	}
	if len(r.players) < 2 {
		return game.ErrNotEnoughPlayers
	}
	r.bankerIndex %= len(r.players)

	deck := r.newDeck(r.rng)
	hands := make([][]cards.Card, len(r.players))
	for i := range r.players {
		dealt, err := deck.Deal(InitialCards)
		if err != nil {
			return fmt.Errorf("dealing banker hands: %w", err)
		}
		hands[i] = dealt
	}

	charges := make([]game.Charge, 0, len(r.players)-1)
	for i, p := range r.players {
		if i != r.bankerIndex {
			charges = append(charges, game.Charge{PlayerID: p.id, Amount: r.stake, Reason: "banker ante"})
		}
	}
	if err := game.Collect(pay, charges...); err != nil {
		return err
	}

	if err := r.sm.Fire(evStart); err != nil {
		return err
	}
	r.deck = deck
	r.settled = nil
	r.assignBanker()
	for i, p := range r.players {
		p.reset()
		if !p.isBanker {
			p.currentBet = r.stake
		}
		p.take(hands[i]...)
		if p.hand.Tier == Natural {
			p.isStanding = true
		}
	}
	r.currentIndex = (r.bankerIndex + 1) % len(r.players)
	r.log.Infof("Banker game %s started, banker %s, %d challengers", r.scope,
		r.Banker().id, len(r.players)-1)
	return r.advance()
}

// advance moves the turn pointer past finished challengers. Reaching the
// banker hands over the dealer turn; a banker who is already done ends the
// game.
func (r *Room) advance() error {
	if r.sm.Is(StatePlaying) {
		for i := 0; i < len(r.players); i++ {
			if r.currentIndex == r.bankerIndex {
				break
			}
			if !r.players[r.currentIndex].done() {
				return nil
			}
			r.currentIndex = (r.currentIndex + 1) % len(r.players)
		}
		r.currentIndex = r.bankerIndex
		if err := r.sm.Fire(evDealer); err != nil {
			return err
		}
		r.log.Debugf("Dealer turn in %s for %s", r.scope, r.Banker().id)
	}
	if r.sm.Is(StateDealerTurn) && r.Banker().done() {
		return r.finish()
	}
	return nil
}

func (r *Room) turnPlayer(playerID string) (*Player, error) {
	if !r.InProgress() {
		return nil, game.ErrInvalidState
	}
	p := r.Player(playerID)
	if p == nil {
		return nil, game.ErrNotSeated
	}
	if r.players[r.currentIndex] != p {
		return nil, game.ErrNotYourTurn
	}
	if p.done() {
		return nil, game.ErrAlreadyStanding
	}
	return p, nil
}

func (r *Room) draw() (cards.Card, error) {
	c, ok := r.deck.Draw()
	if !ok {
		return cards.Card{}, fmt.Errorf("drawing in %s: %w", r.scope, cards.ErrInsufficientCards)
	}
	return c, nil
}

// Hit draws one card for the player on turn. Busting or reaching five
// cards stands the player automatically.
func (r *Room) Hit(playerID string) error {
	p, err := r.turnPlayer(playerID)
	if err != nil {
		return err
	}
	c, err := r.draw()
	if err != nil {
		return err
	}
	p.take(c)
	r.log.Debugf("%s hit %s in %s: %s", p.id, c, r.scope, p.hand.Description())
	return r.advance()
}

// Stand ends the turn of the player on turn. A standing banker settles
// every challenger still unrevealed.
func (r *Room) Stand(playerID string) error {
	p, err := r.turnPlayer(playerID)
	if err != nil {
		return err
	}
	p.isStanding = true
	return r.advance()
}

// Double doubles a two-card challenger's stake, draws exactly one card and
// stands. The extra stake is charged through pay first.
func (r *Room) Double(playerID string, pay game.PayFunc) error {
	if !r.sm.Is(StatePlaying) {
		return fmt.Errorf("only challengers may double: %w", game.ErrCannotDouble)
	}
	p, err := r.turnPlayer(playerID)
	if err != nil {
		return err
	}
	if len(p.hand.Cards) != InitialCards {
		return fmt.Errorf("doubling needs exactly %d cards: %w", InitialCards, game.ErrCannotDouble)
	}
	if r.deck.Size() == 0 {
		return fmt.Errorf("drawing in %s: %w", r.scope, cards.ErrInsufficientCards)
	}
	extra := p.currentBet
	if err := game.Collect(pay, game.Charge{PlayerID: p.id, Amount: extra, Reason: "banker double"}); err != nil {
		return err
	}
	c, _ := r.deck.Draw()
	p.currentBet += extra
	p.isDoubled = true
	p.take(c)
	p.isStanding = true
	r.log.Debugf("%s doubled to %d in %s: %s", p.id, p.currentBet, r.scope, p.hand.Description())
	return r.advance()
}

// RevealPlayer lets the banker settle one challenger against the banker's
// current hand before standing.
func (r *Room) RevealPlayer(bankerID, targetID string) (Outcome, error) {
	if !r.sm.Is(StateDealerTurn) {
		return OutcomeNone, game.ErrInvalidState
	}
	banker := r.Banker()
	if banker.id != bankerID {
		return OutcomeNone, game.ErrNotBanker
	}
	target := r.Player(targetID)
	if target == nil {
		return OutcomeNone, game.ErrNotSeated
	}
	if target.isRevealed {
		return OutcomeNone, game.ErrAlreadyRevealed
	}
	if target == banker {
		return OutcomeNone, game.ErrSelfReveal
	}
	r.settle(target)
	return target.outcome, nil
}

func (r *Room) settle(p *Player) {
	banker := r.Banker()
	p.outcome = HeadToHead(*p.hand, *banker.hand)
	p.isRevealed = true
	r.settled = append(r.settled, Settlement{
		Scope:      r.scope,
		Banker:     game.Seat{ID: banker.id, Name: banker.name},
		BankerHand: *banker.hand,
		Challenger: game.Seat{ID: p.id, Name: p.name},
		Bet:        p.currentBet,
		Hand:       *p.hand,
		Outcome:    p.outcome,
	})
	r.log.Debugf("Settled %s against banker %s in %s: %s", p.id, banker.id, r.scope, p.outcome)
}

func (r *Room) finish() error {
	for _, p := range r.players {
		if !p.isBanker && !p.isRevealed {
			r.settle(p)
		}
	}
	if err := r.sm.Fire(evFinish); err != nil {
		return err
	}
	r.gamesPlayed++
	r.log.Infof("Banker game %s finished, banker %s with %s", r.scope, r.Banker().id,
		r.Banker().hand.Description())
	return nil
}

// DrainSettled returns the challengers settled since the last call.
func (r *Room) DrainSettled() []Settlement {
	out := r.settled
	r.settled = nil
	return out
}

// Restart returns a finished room to waiting with the same roster. The bank
// passes to the next seat after every RotateEvery finished games.
func (r *Room) Restart(actorID string) error {
	if actorID != r.hostID {
		return game.ErrNotHost
	}
	if !r.sm.Is(StateFinished) {
		return game.ErrInvalidState
	}
	if err := r.sm.Fire(evReset); err != nil {
		return err
	}
	if r.gamesPlayed%RotateEvery == 0 {
		r.bankerIndex = (r.bankerIndex + 1) % len(r.players)
		r.log.Infof("Bank in %s passes to %s after %d games", r.scope,
			r.players[r.bankerIndex].id, r.gamesPlayed)
	}
	r.clear()
	return nil
}

// Abort resets an unfinished game, returning the stakes of unsettled
// challengers so the caller can refund them.
func (r *Room) Abort() []game.Charge {
	if !r.InProgress() {
		return nil
	}
	var refunds []game.Charge
	for _, p := range r.players {
		if !p.isBanker && !p.isRevealed && p.currentBet > 0 {
			refunds = append(refunds, game.Charge{PlayerID: p.id, Amount: p.currentBet, Reason: "banker game cancelled"})
		}
	}
	if err := r.sm.Fire(evReset); err != nil {
		r.log.Errorf("Aborting banker room %s: %v", r.scope, err)
	}
	r.clear()
	return refunds
}

func (r *Room) clear() {
	r.deck = nil
	r.currentIndex = 0
	r.settled = nil
	r.assignBanker()
	for _, p := range r.players {
		p.reset()
	}
}
