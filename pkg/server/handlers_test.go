package server

import (
	"testing"

	"github.com/decred/slog"
	"github.com/stretchr/testify/assert"
	"github.com/vctt94/tablegames/pkg/game"
	"github.com/vctt94/tablegames/pkg/showdown"
)

func newBareServer() *Server {
	return &Server{
		log:         slog.Disabled,
		subscribers: make(map[int]Subscriber),
	}
}

func TestNotificationHandlerFansOut(t *testing.T) {
	s := newBareServer()
	var a, b []GameEventType
	s.Subscribe(func(e *GameEvent) { a = append(a, e.Type) })
	unsubscribe := s.Subscribe(func(e *GameEvent) { b = append(b, e.Type) })

	nh := NewNotificationHandler(s)
	nh.HandleEvent(closedEvent(game.KindBanker, chan1, RoomClosedPayload{ClosedBy: "alice"}))
	unsubscribe()
	nh.HandleEvent(closedEvent(game.KindBanker, chan1, PlayerLeftPayload{PlayerID: "bob", Closed: true}))

	assert.Equal(t, []GameEventType{GameEventTypeRoomClosed, GameEventTypePlayerLeft}, a)
	assert.Equal(t, []GameEventType{GameEventTypeRoomClosed}, b)
}

func TestNotificationHandlerSkipsMismatchedPayload(t *testing.T) {
	s := newBareServer()
	delivered := 0
	s.Subscribe(func(*GameEvent) { delivered++ })

	nh := NewNotificationHandler(s)
	nh.HandleEvent(&GameEvent{Type: GameEventTypeBetMade, Scope: chan1})
	nh.HandleEvent(&GameEvent{Type: GameEventTypeBetMade, Scope: chan1, Payload: CallMadePayload{PlayerID: "p1"}})
	assert.Zero(t, delivered)
}

func TestTraceHandlerDumpsAtTraceLevel(t *testing.T) {
	room, err := showdown.NewRoom(showdown.Config{Scope: chan1, Host: seat("alice"), Stake: 10})
	assert.NoError(t, err)
	event := showdownEvent(room, RoomCreatedPayload{HostID: "alice", Stake: 10})

	// Disabled loggers skip the dump entirely.
	NewTraceHandler(slog.Disabled).HandleEvent(event)

	backend := slog.NewBackend(&discard{})
	log := backend.Logger("EVNT")
	log.SetLevel(slog.LevelTrace)
	assert.NotPanics(t, func() { NewTraceHandler(log).HandleEvent(event) })
}

type discard struct{ n int }

func (d *discard) Write(p []byte) (int, error) {
	d.n += len(p)
	return len(p), nil
}
