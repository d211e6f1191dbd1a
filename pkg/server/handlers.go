package server

import (
	"github.com/davecgh/go-spew/spew"
	"github.com/decred/slog"
)

// EventHandler defines the interface for handling events
type EventHandler interface {
	HandleEvent(event *GameEvent)
}

// NotificationHandler delivers events to the server's subscribers.
type NotificationHandler struct {
	server *Server
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(server *Server) *NotificationHandler {
	return &NotificationHandler{server: server}
}

// HandleEvent fans the event out to every subscriber.
func (nh *NotificationHandler) HandleEvent(event *GameEvent) {
	if event.Payload == nil || event.Payload.Kind() != event.Type {
		nh.server.log.Warnf("%s without matching payload; skipping (room=%s)", event.Type, event.Scope)
		return
	}
	nh.server.notifySubscribers(event)
}

// TraceHandler dumps every event at trace level.
type TraceHandler struct {
	log    slog.Logger
	config *spew.ConfigState
}

// NewTraceHandler creates a handler logging to log.
func NewTraceHandler(log slog.Logger) *TraceHandler {
	return &TraceHandler{
		log: log,
		config: &spew.ConfigState{
			Indent:                  "  ",
			DisablePointerAddresses: true,
			DisableCapacities:       true,
			SortKeys:                true,
		},
	}
}

func (th *TraceHandler) HandleEvent(event *GameEvent) {
	if th.log.Level() > slog.LevelTrace {
		return
	}
	th.log.Tracef("Event %s in %s:\n%s", event.Type, event.Scope, th.config.Sdump(event.Payload))
}
