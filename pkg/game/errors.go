package game

import "errors"

// Errors reported synchronously to callers. None of them leave a room
// partially mutated.
var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrRoomExists         = errors.New("a room already exists in this channel")
	ErrRoomFull           = errors.New("room is full")
	ErrAlreadyInRoom      = errors.New("player already in this room")
	ErrAlreadyElsewhere   = errors.New("player is playing in another room")
	ErrGameInProgress     = errors.New("game already in progress")
	ErrNotSeated          = errors.New("player is not in this room")
	ErrNotHost            = errors.New("only the host can do that")
	ErrNotReady           = errors.New("not every player is ready")
	ErrNotEnoughPlayers   = errors.New("at least 2 players are required")
	ErrInvalidState       = errors.New("action not allowed in the current game state")
	ErrNotYourTurn        = errors.New("not your turn")
	ErrInvalidRaiseAmount = errors.New("invalid raise amount")
	ErrPendingCall        = errors.New("a raise must be called first")
	ErrAlreadyActed       = errors.New("already acted this betting round")
	ErrNothingToCall      = errors.New("nothing to call")
	ErrAlreadyFolded      = errors.New("player already folded")
	ErrAlreadyRevealed    = errors.New("hand already revealed")
	ErrAlreadyStanding    = errors.New("player already standing")
	ErrCannotDouble       = errors.New("cannot double down")
	ErrNotBanker          = errors.New("only the banker can do that")
	ErrSelfReveal         = errors.New("banker cannot reveal against themselves")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInvalidStake       = errors.New("stake must be positive")
	ErrAlreadyClaimed     = errors.New("daily reward already claimed today")
)
