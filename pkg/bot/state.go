// Package bot is the chat front end of the table server: it parses player
// commands, runs them against the server and relays room updates to the
// connected clients over websocket.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/decred/slog"
	"github.com/vctt94/tablegames/pkg/game"
	"github.com/vctt94/tablegames/pkg/server"
)

// Message is one chat line sent by a player in a channel.
type Message struct {
	Scope  game.Scope `json:"scope"`
	Sender game.Seat  `json:"sender"`
	Text   string     `json:"text"`
}

// State dispatches chat commands to the server.
type State struct {
	srv *server.Server
	log slog.Logger
}

// NewState creates the command dispatcher.
func NewState(srv *server.Server, log slog.Logger) *State {
	if log == nil {
		log = slog.Disabled
	}
	return &State{srv: srv, log: log}
}

// HandleMessage runs the command in msg and returns the reply for its
// sender. Lines that are not commands get an empty reply.
func (s *State) HandleMessage(ctx context.Context, msg Message) string {
	tokens := strings.Fields(msg.Text)
	if len(tokens) == 0 {
		return ""
	}
	if msg.Sender.Name == "" {
		msg.Sender.Name = msg.Sender.ID
	}

	cmd := strings.ToLower(tokens[0])
	s.log.Debugf("%s in %s: %s", msg.Sender.ID, msg.Scope, msg.Text)

	switch cmd {
	case "sd", "showdown":
		return s.handleShowdown(ctx, msg, tokens[1:])
	case "bk", "banker":
		return s.handleBanker(ctx, msg, tokens[1:])
	case "balance":
		return s.handleBalance(ctx, msg)
	case "daily":
		return s.handleDaily(ctx, msg)
	case "top":
		return s.handleTop(ctx, msg, tokens[1:])
	case "stats":
		return s.handleStats(ctx, msg, tokens[1:])
	case "history":
		return s.handleHistory(ctx, msg, tokens[1:])
	case "rooms":
		return s.handleRooms(msg)
	case "help":
		return helpText
	}
	return "Unknown command. Type 'help' for available commands."
}

const helpText = `Available commands:
Showdown (sd):
- sd create <stake>: open a room in this channel
- sd join | sd leave | sd ready
- sd start: host deals once everyone is ready
- sd raise <amount> | sd call | sd fold | sd reveal
- sd restart | sd end | sd status
Banker Game (bk):
- bk create <stake>: open a room, you hold the bank
- bk join | bk leave | bk start
- bk hit | bk stand | bk double
- bk reveal <player>: banker settles a challenger
- bk restart | bk end | bk status
Wallet:
- balance | daily | rooms
- top [sd|bk] [wins|streak|coins]: leaderboards, richest players without a game
- stats [sd|bk] | history [sd|bk]
- help: show this message`

// userError turns an engine error into a chat reply.
func userError(err error) string {
	switch {
	case errors.Is(err, game.ErrRoomNotFound):
		return "There is no room in this channel."
	case errors.Is(err, game.ErrInsufficientFunds):
		return "Insufficient balance for that stake. Try 'daily'."
	}
	return "Error: " + err.Error()
}

func parseAmount(tokens []string, usage string) (int64, error) {
	if len(tokens) < 1 {
		return 0, errors.New(usage)
	}
	amt, err := strconv.ParseInt(tokens[0], 10, 64)
	if err != nil || amt <= 0 {
		return 0, fmt.Errorf("invalid amount %q. %s", tokens[0], usage)
	}
	return amt, nil
}

// parseKind reads an optional game argument, defaulting to showdown.
func parseKind(tokens []string) (game.Kind, []string) {
	if len(tokens) == 0 {
		return game.KindShowdown, tokens
	}
	switch strings.ToLower(tokens[0]) {
	case "sd", "showdown":
		return game.KindShowdown, tokens[1:]
	case "bk", "banker":
		return game.KindBanker, tokens[1:]
	}
	return game.KindShowdown, tokens
}
