package server

import (
	"time"

	"github.com/vctt94/tablegames/pkg/banker"
	"github.com/vctt94/tablegames/pkg/game"
	"github.com/vctt94/tablegames/pkg/showdown"
)

// showdownEvent snapshots a showdown room into an event. The caller holds
// the room lock.
func showdownEvent(room *showdown.Room, payload EventPayload) *GameEvent {
	return &GameEvent{
		Type:      payload.Kind(),
		Game:      game.KindShowdown,
		Scope:     room.Scope(),
		Payload:   payload,
		Showdown:  room.Snapshot(),
		Timestamp: time.Now(),
	}
}

// bankerEvent snapshots a banker room into an event. The caller holds the
// room lock.
func bankerEvent(room *banker.Room, payload EventPayload) *GameEvent {
	return &GameEvent{
		Type:      payload.Kind(),
		Game:      game.KindBanker,
		Scope:     room.Scope(),
		Payload:   payload,
		Banker:    room.Snapshot(),
		Timestamp: time.Now(),
	}
}

// closedEvent reports a room that is gone and has nothing to snapshot.
func closedEvent(kind game.Kind, scope game.Scope, payload EventPayload) *GameEvent {
	return &GameEvent{
		Type:      payload.Kind(),
		Game:      kind,
		Scope:     scope,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

func showdownPlayerIDs(room *showdown.Room) []string {
	players := room.Players()
	ids := make([]string, 0, len(players))
	for _, p := range players {
		ids = append(ids, p.ID())
	}
	return ids
}

func bankerPlayerIDs(room *banker.Room) []string {
	players := room.Players()
	ids := make([]string, 0, len(players))
	for _, p := range players {
		ids = append(ids, p.ID())
	}
	return ids
}

// RoomSummary is a line of the room list.
type RoomSummary struct {
	Game      game.Kind  `json:"game"`
	Scope     game.Scope `json:"scope"`
	HostID    string     `json:"host_id"`
	Status    string     `json:"status"`
	Stake     int64      `json:"stake"`
	Players   int        `json:"players"`
	CreatedAt time.Time  `json:"created_at"`
}

func summarizeShowdown(room *showdown.Room) RoomSummary {
	room.Lock()
	defer room.Unlock()
	return RoomSummary{
		Game:      game.KindShowdown,
		Scope:     room.Scope(),
		HostID:    room.HostID(),
		Status:    room.Status(),
		Stake:     room.Stake(),
		Players:   room.PlayerCount(),
		CreatedAt: room.CreatedAt(),
	}
}

func summarizeBanker(room *banker.Room) RoomSummary {
	room.Lock()
	defer room.Unlock()
	return RoomSummary{
		Game:      game.KindBanker,
		Scope:     room.Scope(),
		HostID:    room.HostID(),
		Status:    room.Status(),
		Stake:     room.Stake(),
		Players:   room.PlayerCount(),
		CreatedAt: room.CreatedAt(),
	}
}
