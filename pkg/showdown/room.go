package showdown

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
	StateWaiting  = "waiting"
	StatePlaying  = "playing"
	StateFinished = "finished"
)

const (
	evStart  = "start"
	evFinish = "finish"
	evReset  = "reset"
)

// HandSize is the number of cards dealt to every player.
const HandSize = 3

// DefaultRaiseCap is the raise ceiling as a multiple of the stake.
const DefaultRaiseCap = 10

// Config holds the settings for a new room.
type Config struct {
	Scope      game.Scope
	Host       game.Seat
	Stake      int64
	MaxPlayers int
	RaiseCap   int64 // multiple of Stake, DefaultRaiseCap when zero
	Rng        *rand.Rand
	Log        slog.Logger
}

// Room is one showdown game bound to a channel. Its methods are not safe
// for concurrent use: callers hold the room lock (see lobby.WithRoom).
type Room struct {
	sync.Mutex

	log        slog.Logger
	scope      game.Scope
	stake      int64
	maxPlayers int
	raiseCap   int64
	rng        *rand.Rand
	createdAt  time.Time
	closed     bool

	hostID  string
	players []*Player
	deck    *cards.Deck
	sm      *statemachine.StateMachine

	currentRaise int64
	raiseByID    string
	pot          int64
	bettingRound int
	winnerID     string
	gamesPlayed  int
}

// NewRoom creates a waiting room with the host seated and ready.
func NewRoom(cfg Config) (*Room, error) {
	if cfg.Stake <= 0 {
		return nil, game.ErrInvalidStake
	}
	if cfg.MaxPlayers <= 0 {
		cfg.MaxPlayers = game.MaxPlayers
	}
	if cfg.RaiseCap <= 0 {
		cfg.RaiseCap = DefaultRaiseCap
	}
	if cfg.Rng == nil {
		cfg.Rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if cfg.Log == nil {
		cfg.Log = slog.Disabled
	}

	r := &Room{
		log:          cfg.Log,
		scope:        cfg.Scope,
		stake:        cfg.Stake,
		maxPlayers:   cfg.MaxPlayers,
		raiseCap:     cfg.RaiseCap,
		rng:          cfg.Rng,
		createdAt:    time.Now(),
		hostID:       cfg.Host.ID,
		players:      []*Player{newPlayer(cfg.Host, true)},
		currentRaise: cfg.Stake,
	}
	r.sm = statemachine.NewStateMachine("showdown "+cfg.Scope.Key(), StateWaiting, cfg.Log,
		statemachine.Transition{Event: evStart, From: []string{StateWaiting}, To: StatePlaying},
		statemachine.Transition{Event: evFinish, From: []string{StatePlaying}, To: StateFinished},
		statemachine.Transition{Event: evReset, From: []string{StatePlaying, StateFinished}, To: StateWaiting},
	)
	r.log.Debugf("Created showdown room %s host=%s stake=%d", cfg.Scope, cfg.Host.ID, cfg.Stake)
	return r, nil
}

func (r *Room) Scope() game.Scope { return r.scope }
func (r *Room) HostID() string    { return r.hostID }
func (r *Room) Stake() int64      { return r.stake }
func (r *Room) Pot() int64        { return r.pot }
func (r *Room) Status() string    { return r.sm.Current() }
func (r *Room) WinnerID() string  { return r.winnerID }
func (r *Room) Closed() bool      { return r.closed }

// CreatedAt is when the room was opened.
func (r *Room) CreatedAt() time.Time { return r.createdAt }

// MarkClosed flags the room as removed from its registry.
func (r *Room) MarkClosed() { r.closed = true }

// InProgress reports whether cards are out and the game is unresolved.
func (r *Room) InProgress() bool { return r.sm.Is(StatePlaying) }

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

// AddPlayer seats a new, not yet ready, player.
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
	r.players = append(r.players, newPlayer(seat, false))
	r.log.Debugf("Player %s joined %s (%d/%d)", seat.ID, r.scope, len(r.players), r.maxPlayers)
	return nil
}

// RemovePlayer unseats id. Hostship passes to the next seated player.
// empty is true when nobody is left and the room should be dropped.
func (r *Room) RemovePlayer(id string) (empty bool, err error) {
	if r.InProgress() {
		return false, fmt.Errorf("fold instead of leaving: %w", game.ErrGameInProgress)
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
	r.players = append(r.players[:idx], r.players[idx+1:]...)
	if len(r.players) == 0 {
		return true, nil
	}
	if id == r.hostID {
		r.hostID = r.players[0].id
		r.log.Debugf("Host of %s passed from %s to %s", r.scope, id, r.hostID)
	}
	return false, nil
}

// ToggleReady flips the player's ready flag while waiting.
func (r *Room) ToggleReady(playerID string) (bool, error) {
	if !r.Waiting() {
		return false, game.ErrGameInProgress
	}
	p := r.Player(playerID)
	if p == nil {
		return false, game.ErrNotSeated
	}
	p.isReady = !p.isReady
	return p.isReady, nil
}

// Start deals a new game. Every player antes the stake through pay before
// anything in the room changes.
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
	notReady := 0
	for _, p := range r.players {
		if !p.isReady {
			notReady++
		}
	}
	if notReady > 0 {
		return fmt.Errorf("%d player(s) not ready: %w", notReady, game.ErrNotReady)
	}

	deck := cards.NewShuffledDeck(r.rng)
	hands := make([][]cards.Card, len(r.players))
	for i := range r.players {
		dealt, err := deck.Deal(HandSize)
		if err != nil {
			return fmt.Errorf("dealing showdown hands: %w", err)
		}
		hands[i] = dealt
	}

	charges := make([]game.Charge, 0, len(r.players))
	for _, p := range r.players {
		charges = append(charges, game.Charge{PlayerID: p.id, Amount: r.stake, Reason: "showdown ante"})
	}
	if err := game.Collect(pay, charges...); err != nil {
		return err
	}

	if err := r.sm.Fire(evStart); err != nil {
		return err
	}
	r.deck = deck
	r.currentRaise = r.stake
	r.raiseByID = ""
	r.winnerID = ""
	r.pot = 0
	r.bettingRound = 1
	for i, p := range r.players {
		hand := Evaluate(hands[i])
		p.hand = &hand
		p.isRevealed = false
		p.hasFolded = false
		p.hasCalledRaise = true
		p.actedThisRound = false
		p.currentBet = r.stake
		r.pot += r.stake
	}
	r.log.Infof("Showdown %s started with %d players, pot %d", r.scope, len(r.players), r.pot)
	return nil
}

func (r *Room) playingPlayer(playerID string) (*Player, error) {
	if !r.sm.Is(StatePlaying) {
		return nil, game.ErrInvalidState
	}
	p := r.Player(playerID)
	if p == nil {
		return nil, game.ErrNotSeated
	}
	if p.hasFolded {
		return nil, game.ErrAlreadyFolded
	}
	if p.isRevealed {
		return nil, game.ErrAlreadyRevealed
	}
	return p, nil
}

// pending returns the active players other than exceptID who owe a call.
func (r *Room) pending(exceptID string) []*Player {
	var out []*Player
	for _, p := range r.players {
		if p.id != exceptID && p.OwesCall() {
			out = append(out, p)
		}
	}
	return out
}

// MaxRaise is the highest required bet a raise may set.
func (r *Room) MaxRaise() int64 { return r.stake * r.raiseCap }

// CurrentRaise is the bet every active player has to match.
func (r *Room) CurrentRaise() int64 { return r.currentRaise }

// Raise sets a new table-wide required bet and reopens the round. The
// difference from the raiser's current bet is charged first.
func (r *Room) Raise(playerID string, amount int64, pay game.PayFunc) (int64, error) {
	p, err := r.playingPlayer(playerID)
	if err != nil {
		return 0, err
	}
	if p.actedThisRound {
		return 0, game.ErrAlreadyActed
	}
	if owing := r.pending(playerID); len(owing) > 0 {
		return 0, fmt.Errorf("%d player(s) must call or fold first: %w", len(owing), game.ErrPendingCall)
	}
	if amount <= r.currentRaise || amount > r.MaxRaise() {
		return 0, fmt.Errorf("raise must be above %d and at most %d: %w",
			r.currentRaise, r.MaxRaise(), game.ErrInvalidRaiseAmount)
	}

	additional := amount - p.currentBet
	if err := game.Collect(pay, game.Charge{PlayerID: p.id, Amount: additional, Reason: "showdown raise"}); err != nil {
		return 0, err
	}

	r.bettingRound++
	r.currentRaise = amount
	r.raiseByID = p.id
	for _, other := range r.players {
		other.actedThisRound = false
		if other != p && other.active() {
			other.hasCalledRaise = false
		}
	}
	p.currentBet = amount
	p.hasCalledRaise = true
	p.actedThisRound = true
	r.pot += additional
	r.log.Debugf("%s raised to %d in %s (+%d, pot %d)", p.id, amount, r.scope, additional, r.pot)
	return additional, nil
}

// Call matches the current required bet.
func (r *Room) Call(playerID string, pay game.PayFunc) (int64, error) {
	p, err := r.playingPlayer(playerID)
	if err != nil {
		return 0, err
	}
	if p.hasCalledRaise {
		return 0, game.ErrNothingToCall
	}
	additional := r.currentRaise - p.currentBet
	if err := game.Collect(pay, game.Charge{PlayerID: p.id, Amount: additional, Reason: "showdown call"}); err != nil {
		return 0, err
	}
	p.currentBet = r.currentRaise
	p.hasCalledRaise = true
	p.actedThisRound = true
	r.pot += additional
	r.log.Debugf("%s called %d in %s (pot %d)", p.id, additional, r.scope, r.pot)
	return additional, nil
}

// Fold withdraws the player. When one contender remains they win at once.
// finished reports whether the fold ended the game.
func (r *Room) Fold(playerID string) (finished bool, err error) {
	p, err := r.playingPlayer(playerID)
	if err != nil {
		return false, err
	}
	p.hasFolded = true
	p.hasCalledRaise = true
	p.actedThisRound = true

	contenders := r.contenders()
	if len(contenders) == 1 {
		contenders[0].isRevealed = true
		return true, r.finish(contenders[0])
	}
	if r.allRevealed() {
		return true, r.finish(r.bestHand())
	}
	return false, nil
}

// Reveal shows the player's hand. Once every contender has revealed, the
// best hand wins.
func (r *Room) Reveal(playerID string) (finished bool, err error) {
	p, err := r.playingPlayer(playerID)
	if err != nil {
		return false, err
	}
	if !p.hasCalledRaise && r.raiseByID != "" {
		return false, game.ErrPendingCall
	}
	p.isRevealed = true
	p.actedThisRound = true
	if !r.allRevealed() {
		return false, nil
	}
	return true, r.finish(r.bestHand())
}

// contenders are the players who have not folded.
func (r *Room) contenders() []*Player {
	var out []*Player
	for _, p := range r.players {
		if !p.hasFolded {
			out = append(out, p)
		}
	}
	return out
}

func (r *Room) allRevealed() bool {
	for _, p := range r.contenders() {
		if !p.isRevealed {
			return false
		}
	}
	return true
}

// bestHand returns the strongest contender. Equal hands keep the earlier
// seat.
func (r *Room) bestHand() *Player {
	var best *Player
	for _, p := range r.contenders() {
		if p.hand == nil {
			continue
		}
		if best == nil || Compare(*p.hand, *best.hand) > 0 {
			best = p
		}
	}
	return best
}

func (r *Room) finish(winner *Player) error {
	if err := r.sm.Fire(evFinish); err != nil {
		return err
	}
	r.gamesPlayed++
	if winner != nil {
		r.winnerID = winner.id
		r.log.Infof("Showdown %s won by %s with %s, pot %d", r.scope, winner.id,
			winner.hand.Description(), r.pot)
	}
	return nil
}

// Restart returns a finished room to waiting with the same roster. Only
// the host stays ready.
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
	r.clear()
	return nil
}

// Abort resets an unfinished game, returning each player's stake so the
// caller can refund it. Used when the host ends the room mid-game.
func (r *Room) Abort() []game.Charge {
	if !r.InProgress() {
		return nil
	}
	refunds := make([]game.Charge, 0, len(r.players))
	for _, p := range r.players {
		if p.currentBet > 0 {
			refunds = append(refunds, game.Charge{PlayerID: p.id, Amount: p.currentBet, Reason: "showdown cancelled"})
		}
	}
	if err := r.sm.Fire(evReset); err != nil {
		r.log.Errorf("Aborting showdown room %s: %v", r.scope, err)
	}
	r.clear()
	return refunds
}

func (r *Room) clear() {
	r.deck = nil
	r.winnerID = ""
	r.currentRaise = r.stake
	r.raiseByID = ""
	r.pot = 0
	r.bettingRound = 0
	for _, p := range r.players {
		p.reset(p.id == r.hostID)
	}
}
