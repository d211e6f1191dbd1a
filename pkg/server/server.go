// Package server runs the card rooms of every chat channel: it owns the
// room registries, charges stakes through the ledger, settles finished
// games and publishes room events.
package server

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/decred/slog"
	"github.com/vctt94/tablegames/pkg/banker"
	"github.com/vctt94/tablegames/pkg/game"
	"github.com/vctt94/tablegames/pkg/lobby"
	"github.com/vctt94/tablegames/pkg/showdown"
)

// Config configures a Server.
type Config struct {
	DB Database

	// Logger returns the logger of a subsystem. Nil disables logging.
	Logger func(subsystem string) slog.Logger

	// Seed makes room decks reproducible. Zero seeds from the clock.
	Seed int64

	// QueueSize and Workers size the event processor. A single worker
	// keeps the events of a channel in order.
	QueueSize int
	Workers   int
}

// Server implements the room operations of both games.
type Server struct {
	log  slog.Logger
	db   Database
	seed atomic.Int64

	showdownLog slog.Logger
	bankerLog   slog.Logger

	showdown *lobby.Lobby[*showdown.Room]
	banker   *lobby.Lobby[*banker.Room]

	// Event subscribers
	subscribers    map[int]Subscriber
	nextSubscriber int
	notificationMu sync.RWMutex

	eventProcessor *EventProcessor
}

// NewServer creates a server and starts its event processor.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = func(string) slog.Logger { return slog.Disabled }
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	s := &Server{
		log:         logger("SRVR"),
		db:          cfg.DB,
		showdownLog: logger("SHDN"),
		bankerLog:   logger("BNKR"),
		subscribers: make(map[int]Subscriber),
	}
	s.seed.Store(cfg.Seed)

	lobbyLog := logger("LOBY")
	s.showdown = lobby.New(lobby.Config[*showdown.Room]{
		Name:      "showdown",
		New:       s.newShowdownRoom,
		Exclusive: true,
		Log:       lobbyLog,
	})
	s.banker = lobby.New(lobby.Config[*banker.Room]{
		Name: "banker",
		New:  s.newBankerRoom,
		Log:  lobbyLog,
	})

	eventLog := logger("EVNT")
	s.eventProcessor = NewEventProcessor(eventLog, cfg.QueueSize, cfg.Workers,
		NewNotificationHandler(s), NewTraceHandler(eventLog))
	s.eventProcessor.Start()
	return s
}

// Stop gracefully stops the server
func (s *Server) Stop() {
	if s.eventProcessor != nil {
		s.eventProcessor.Stop()
	}
}

// nextRng returns an independent generator for a new room.
func (s *Server) nextRng() *rand.Rand {
	return rand.New(rand.NewSource(s.seed.Add(1)))
}

func (s *Server) newShowdownRoom(scope game.Scope, host game.Seat, stake int64) (*showdown.Room, error) {
	return showdown.NewRoom(showdown.Config{
		Scope: scope,
		Host:  host,
		Stake: stake,
		Rng:   s.nextRng(),
		Log:   s.showdownLog,
	})
}

func (s *Server) newBankerRoom(scope game.Scope, host game.Seat, stake int64) (*banker.Room, error) {
	return banker.NewRoom(banker.Config{
		Scope: scope,
		Host:  host,
		Stake: stake,
		Rng:   s.nextRng(),
		Log:   s.bankerLog,
	})
}

// ListRooms returns every active room of the guild, showdown rooms first.
// An empty guildID lists all guilds.
func (s *Server) ListRooms(guildID string) []RoomSummary {
	var out []RoomSummary
	for _, room := range s.showdown.List() {
		if guildID == "" || room.Scope().GuildID == guildID {
			out = append(out, summarizeShowdown(room))
		}
	}
	for _, room := range s.banker.List() {
		if guildID == "" || room.Scope().GuildID == guildID {
			out = append(out, summarizeBanker(room))
		}
	}
	return out
}
