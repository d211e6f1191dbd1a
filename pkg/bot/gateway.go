package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/decred/slog"
	"github.com/gorilla/websocket"
	"github.com/vctt94/tablegames/pkg/game"
	"github.com/vctt94/tablegames/pkg/render"
	"github.com/vctt94/tablegames/pkg/server"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// Envelope types sent to clients.
const (
	EnvelopeReply = "reply"
	EnvelopeEvent = "event"
)

// Envelope is one message from the gateway to a client. View is the
// channel's room as the client's player may see it; it is nil once the
// room is gone.
type Envelope struct {
	Type  string               `json:"type"`
	Event server.GameEventType `json:"event,omitempty"`
	Text  string               `json:"text"`
	View  *render.TableView    `json:"view,omitempty"`
}

// Command is one message from a client to the gateway.
type Command struct {
	Text string `json:"text"`
}

type client struct {
	conn  *websocket.Conn
	scope game.Scope
	seat  game.Seat
	send  chan Envelope
	once  sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// Gateway serves chat clients over websocket. A client joins one channel
// as one player; its lines run as commands and it receives every event of
// that channel's rooms.
type Gateway struct {
	srv      *server.Server
	state    *State
	log      slog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}

	unsubscribe func()
}

// NewGateway creates a gateway and subscribes it to the server's events.
func NewGateway(srv *server.Server, log slog.Logger) *Gateway {
	if log == nil {
		log = slog.Disabled
	}
	g := &Gateway{
		srv:   srv,
		state: NewState(srv, log),
		log:   log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients: make(map[*client]struct{}),
	}
	g.unsubscribe = srv.Subscribe(g.broadcast)
	return g
}

// Router returns the gateway's HTTP routes.
func (g *Gateway) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", g.handleWebSocket)
	mux.HandleFunc("/rooms", g.handleRooms)
	return mux
}

// Close stops event delivery and disconnects every client.
func (g *Gateway) Close() {
	g.unsubscribe()
	g.mu.Lock()
	defer g.mu.Unlock()
	for c := range g.clients {
		c.close()
		delete(g.clients, c)
	}
}

// handleRooms lists the active rooms, of one guild when ?guild= is set.
func (g *Gateway) handleRooms(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(g.srv.ListRooms(r.URL.Query().Get("guild"))); err != nil {
		http.Error(w, "Failed to encode rooms", http.StatusInternalServerError)
	}
}

// handleWebSocket upgrades /ws?guild=&channel=&player=&name= connections.
func (g *Gateway) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	scope := game.Scope{GuildID: q.Get("guild"), ChannelID: q.Get("channel")}
	seat := game.Seat{ID: q.Get("player"), Name: q.Get("name")}
	if scope.GuildID == "" || scope.ChannelID == "" || seat.ID == "" {
		http.Error(w, "guild, channel and player are required", http.StatusBadRequest)
		return
	}
	if seat.Name == "" {
		seat.Name = seat.ID
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Warnf("WebSocket upgrade error: %v", err)
		return
	}
	c := &client{conn: conn, scope: scope, seat: seat, send: make(chan Envelope, sendBuffer)}

	g.mu.Lock()
	g.clients[c] = struct{}{}
	g.mu.Unlock()
	g.log.Infof("Client %s connected to %s", seat.ID, scope)

	go g.writePump(c)
	g.readPump(r.Context(), c)
}

func (g *Gateway) remove(c *client) {
	g.mu.Lock()
	if _, ok := g.clients[c]; ok {
		delete(g.clients, c)
		c.close()
	}
	g.mu.Unlock()
}

// readPump runs the client's commands until the connection drops.
func (g *Gateway) readPump(ctx context.Context, c *client) {
	defer func() {
		g.remove(c)
		c.conn.Close()
		g.log.Infof("Client %s disconnected from %s", c.seat.ID, c.scope)
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var cmd Command
		if err := c.conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				g.log.Warnf("WebSocket read error: %v", err)
			}
			return
		}
		reply := g.state.HandleMessage(ctx, Message{Scope: c.scope, Sender: c.seat, Text: cmd.Text})
		if reply == "" {
			continue
		}
		g.deliver(c, Envelope{Type: EnvelopeReply, Text: reply})
	}
}

// writePump is the only writer of the connection.
func (g *Gateway) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case env, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(env); err != nil {
				g.log.Debugf("Error writing to %s: %v", c.seat.ID, err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// deliver queues env for c, dropping the client when it cannot keep up.
func (g *Gateway) deliver(c *client, env Envelope) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.clients[c]; !ok {
		return
	}
	select {
	case c.send <- env:
	default:
		g.log.Warnf("Dropping slow client %s in %s", c.seat.ID, c.scope)
		delete(g.clients, c)
		c.close()
	}
}

// broadcast sends an event to every client of its channel, each with the
// view of their own player.
func (g *Gateway) broadcast(ev *server.GameEvent) {
	g.mu.Lock()
	targets := make([]*client, 0, len(g.clients))
	for c := range g.clients {
		if c.scope == ev.Scope {
			targets = append(targets, c)
		}
	}
	g.mu.Unlock()

	line := describeEvent(ev)
	for _, c := range targets {
		env := Envelope{Type: EnvelopeEvent, Event: ev.Type, Text: line, View: eventView(ev, c.seat.ID)}
		if env.View != nil {
			env.Text = line + "\n" + render.Text(env.View)
		}
		g.deliver(c, env)
	}
}

func eventView(ev *server.GameEvent, viewerID string) *render.TableView {
	switch {
	case ev.Showdown != nil:
		return render.ShowdownView(ev.Showdown, viewerID)
	case ev.Banker != nil:
		return render.BankerView(ev.Banker, viewerID)
	}
	return nil
}

// describeEvent renders the one line announcement of an event.
func describeEvent(ev *server.GameEvent) string {
	name := func(id string) string {
		if ev.Showdown != nil {
			if p := ev.Showdown.Player(id); p != nil {
				return p.Name
			}
		}
		if ev.Banker != nil {
			if p := ev.Banker.Player(id); p != nil {
				return p.Name
			}
		}
		return id
	}

	switch p := ev.Payload.(type) {
	case server.RoomCreatedPayload:
		return fmt.Sprintf("%s opened a %s room with a stake of %d.", name(p.HostID), render.GameTitle(ev.Game), p.Stake)
	case server.PlayerJoinedPayload:
		return fmt.Sprintf("%s joined.", name(p.PlayerID))
	case server.PlayerLeftPayload:
		if p.Closed {
			return fmt.Sprintf("%s left and the room closed.", p.PlayerID)
		}
		return fmt.Sprintf("%s left.", p.PlayerID)
	case server.PlayerReadyPayload:
		if p.Ready {
			return fmt.Sprintf("%s is ready.", name(p.PlayerID))
		}
		return fmt.Sprintf("%s is not ready.", name(p.PlayerID))
	case server.GameStartedPayload:
		return fmt.Sprintf("Cards are dealt to %d players.", len(p.PlayerIDs))
	case server.RoomRestartedPayload:
		if p.BankerID != "" {
			return fmt.Sprintf("New game. %s holds the bank.", name(p.BankerID))
		}
		return "New game. Get ready!"
	case server.RoomClosedPayload:
		if p.Refunded > 0 {
			return fmt.Sprintf("%s closed the room. %d refunded.", p.ClosedBy, p.Refunded)
		}
		return fmt.Sprintf("%s closed the room.", p.ClosedBy)
	case server.BetMadePayload:
		return fmt.Sprintf("%s raises to %d.", name(p.PlayerID), p.RaiseTo)
	case server.CallMadePayload:
		return fmt.Sprintf("%s calls %d.", name(p.PlayerID), p.Amount)
	case server.PlayerFoldedPayload:
		return fmt.Sprintf("%s folds.", name(p.PlayerID))
	case server.HandRevealedPayload:
		return fmt.Sprintf("%s reveals.", name(p.PlayerID))
	case server.ShowdownPayload:
		return fmt.Sprintf("%s wins the pot of %d with %s!", name(p.WinnerID), p.Pot, p.Tier)
	case server.CardDrawnPayload:
		if p.Doubled {
			return fmt.Sprintf("%s doubles down.", name(p.PlayerID))
		}
		return fmt.Sprintf("%s draws a card.", name(p.PlayerID))
	case server.PlayerStoodPayload:
		return fmt.Sprintf("%s stands.", name(p.PlayerID))
	case server.ChallengerSettledPayload:
		return fmt.Sprintf("%s vs the bank: %s (%+d).", name(p.ChallengerID), p.Outcome, p.Delta)
	case server.BankerFinishedPayload:
		return "All challengers settled. The game is over."
	case server.SettlementFailedPayload:
		return "Settlement failed: " + p.Error
	}
	return string(ev.Type)
}
