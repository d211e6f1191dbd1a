// Package lobby is the process-wide registry of active rooms, keyed by the
// (guild, channel) they are bound to.
//
// Lock order is registry then room. No operation holds two room locks at
// once, and callbacks run by WithRoom and Close must not call back into the
// lobby.
package lobby

import (
	"fmt"
	"sort"
	"sync"

	"github.com/decred/slog"
	"github.com/vctt94/tablegames/pkg/game"
)

// Room is what the registry needs from a game room. Rooms are not
// self-locking; the registry serializes access through the embedded lock.
type Room interface {
	sync.Locker
	Scope() game.Scope
	HostID() string
	HasPlayer(id string) bool
	PlayerCount() int
	Waiting() bool
	InProgress() bool
	Closed() bool
	MarkClosed()
	AddPlayer(seat game.Seat) error
	RemovePlayer(id string) (closed bool, err error)
}

// Factory builds a new room with the host seated.
type Factory[R Room] func(scope game.Scope, host game.Seat, stake int64) (R, error)

// Config configures a Lobby.
type Config[R Room] struct {
	// Name labels log lines, e.g. "showdown".
	Name string
	New  Factory[R]
	// Exclusive limits a player to one room per guild.
	Exclusive bool
	Log       slog.Logger
}

// Lobby holds the active rooms of one game variant.
type Lobby[R Room] struct {
	mu        sync.RWMutex
	log       slog.Logger
	name      string
	newRoom   Factory[R]
	exclusive bool
	rooms     map[string]R
	// seats maps guild/player to the key of the room they sit in. Only
	// kept for exclusive lobbies.
	seats map[string]string
}

// New returns an empty lobby.
func New[R Room](cfg Config[R]) *Lobby[R] {
	if cfg.Log == nil {
		cfg.Log = slog.Disabled
	}
	return &Lobby[R]{
		log:       cfg.Log,
		name:      cfg.Name,
		newRoom:   cfg.New,
		exclusive: cfg.Exclusive,
		rooms:     make(map[string]R),
		seats:     make(map[string]string),
	}
}

func seatKey(guildID, playerID string) string {
	return guildID + "/" + playerID
}

// Create registers a new room for scope with host seated.
func (l *Lobby[R]) Create(scope game.Scope, host game.Seat, stake int64) (R, error) {
	var zero R
	l.mu.Lock()
	defer l.mu.Unlock()

	key := scope.Key()
	if _, ok := l.rooms[key]; ok {
		return zero, game.ErrRoomExists
	}
	room, err := l.newRoom(scope, host, stake)
	if err != nil {
		return zero, err
	}
	if err := l.vacateLocked(scope, host.ID); err != nil {
		return zero, err
	}
	l.rooms[key] = room
	if l.exclusive {
		l.seats[seatKey(scope.GuildID, host.ID)] = key
	}
	l.log.Infof("Created %s room %s (host %s, stake %d)", l.name, key, host.ID, stake)
	return room, nil
}

// vacateLocked enforces the one-room-per-guild policy before id sits in
// scope: a waiting room elsewhere is left automatically, a running one is
// an error. The registry lock is held.
func (l *Lobby[R]) vacateLocked(scope game.Scope, id string) error {
	if !l.exclusive {
		return nil
	}
	sk := seatKey(scope.GuildID, id)
	prevKey, ok := l.seats[sk]
	if !ok || prevKey == scope.Key() {
		return nil
	}
	prev, ok := l.rooms[prevKey]
	if !ok {
		delete(l.seats, sk)
		return nil
	}

	prev.Lock()
	defer prev.Unlock()
	if !prev.HasPlayer(id) {
		delete(l.seats, sk)
		return nil
	}
	if prev.InProgress() {
		return fmt.Errorf("seated in %s: %w", prevKey, game.ErrAlreadyElsewhere)
	}
	closed, err := prev.RemovePlayer(id)
	if err != nil {
		return err
	}
	delete(l.seats, sk)
	if closed {
		l.dropLocked(prevKey, prev)
	}
	l.log.Debugf("Moved %s out of %s room %s", id, l.name, prevKey)
	return nil
}

// dropLocked removes the room under key. Registry and room locks are held.
func (l *Lobby[R]) dropLocked(key string, room R) {
	delete(l.rooms, key)
	room.MarkClosed()
	for sk, k := range l.seats {
		if k == key {
			delete(l.seats, sk)
		}
	}
	l.log.Infof("Removed %s room %s", l.name, key)
}

// Get returns the room bound to scope.
func (l *Lobby[R]) Get(scope game.Scope) (R, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	room, ok := l.rooms[scope.Key()]
	if !ok {
		var zero R
		return zero, game.ErrRoomNotFound
	}
	return room, nil
}

// Join seats a player in the room bound to scope.
func (l *Lobby[R]) Join(scope game.Scope, seat game.Seat) (R, error) {
	var zero R
	l.mu.Lock()
	defer l.mu.Unlock()

	key := scope.Key()
	room, ok := l.rooms[key]
	if !ok {
		return zero, game.ErrRoomNotFound
	}

	room.Lock()
	err := joinable(room, seat.ID)
	room.Unlock()
	if err != nil {
		return zero, err
	}

	if err := l.vacateLocked(scope, seat.ID); err != nil {
		return zero, err
	}

	room.Lock()
	defer room.Unlock()
	if err := room.AddPlayer(seat); err != nil {
		return zero, err
	}
	if l.exclusive {
		l.seats[seatKey(scope.GuildID, seat.ID)] = key
	}
	return room, nil
}

func joinable(room Room, id string) error {
	if room.HasPlayer(id) {
		return game.ErrAlreadyInRoom
	}
	if !room.Waiting() {
		return game.ErrGameInProgress
	}
	if room.PlayerCount() >= game.MaxPlayers {
		return game.ErrRoomFull
	}
	return nil
}

// Leave unseats a player. closed reports whether the room was removed.
func (l *Lobby[R]) Leave(scope game.Scope, playerID string) (room R, closed bool, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := scope.Key()
	room, ok := l.rooms[key]
	if !ok {
		return room, false, game.ErrRoomNotFound
	}
	room.Lock()
	defer room.Unlock()

	closed, err = room.RemovePlayer(playerID)
	if err != nil {
		return room, false, err
	}
	delete(l.seats, seatKey(scope.GuildID, playerID))
	if closed {
		l.dropLocked(key, room)
	}
	return room, closed, nil
}

// Close removes the room bound to scope. check, when set, runs under the
// room lock first; a non-nil error keeps the room open.
func (l *Lobby[R]) Close(scope game.Scope, check func(R) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := scope.Key()
	room, ok := l.rooms[key]
	if !ok {
		return game.ErrRoomNotFound
	}
	room.Lock()
	defer room.Unlock()
	if check != nil {
		if err := check(room); err != nil {
			return err
		}
	}
	l.dropLocked(key, room)
	return nil
}

// WithRoom runs fn holding the lock of the room bound to scope.
func (l *Lobby[R]) WithRoom(scope game.Scope, fn func(R) error) error {
	room, err := l.Get(scope)
	if err != nil {
		return err
	}
	room.Lock()
	defer room.Unlock()
	if room.Closed() {
		return game.ErrRoomNotFound
	}
	return fn(room)
}

// List returns the active rooms ordered by key.
func (l *Lobby[R]) List() []R {
	l.mu.RLock()
	keys := make([]string, 0, len(l.rooms))
	for k := range l.rooms {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]R, 0, len(keys))
	for _, k := range keys {
		out = append(out, l.rooms[k])
	}
	l.mu.RUnlock()
	return out
}

// Len returns the number of active rooms.
func (l *Lobby[R]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.rooms)
}

// SeatOf returns the room a player sits in within guildID. Only exclusive
// lobbies track seats.
func (l *Lobby[R]) SeatOf(guildID, playerID string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	key, ok := l.seats[seatKey(guildID, playerID)]
	return key, ok
}
