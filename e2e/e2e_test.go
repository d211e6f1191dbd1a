// This file contains end-to-end tests that spin up a full table server
// backed by a real SQLite file and drive it through websocket clients the
// way the terminal client does.

package e2e

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vctt94/tablegames/pkg/banker"
	"github.com/vctt94/tablegames/pkg/bot"
	"github.com/vctt94/tablegames/pkg/game"
	"github.com/vctt94/tablegames/pkg/server"
	"github.com/vctt94/tablegames/pkg/showdown"
)

var channel = game.Scope{GuildID: "guild", ChannelID: "cards"}

// testEnv holds a running server, its gateway and the database file they
// share. Each test gets its own.
type testEnv struct {
	t       *testing.T
	dbPath  string
	db      server.Database
	srv     *server.Server
	gateway *bot.Gateway
	http    *http.Server
	addr    string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return startEnv(t, filepath.Join(t.TempDir(), "tables.sqlite"))
}

func startEnv(t *testing.T, dbPath string) *testEnv {
	t.Helper()
	database, err := server.NewDatabase(dbPath)
	require.NoError(t, err)

	srv := server.NewServer(server.Config{DB: database, Seed: 7})
	gateway := bot.NewGateway(srv, nil)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	httpSrv := &http.Server{Handler: gateway.Router()}
	go func() { _ = httpSrv.Serve(lis) }()

	e := &testEnv{
		t:       t,
		dbPath:  dbPath,
		db:      database,
		srv:     srv,
		gateway: gateway,
		http:    httpSrv,
		addr:    lis.Addr().String(),
	}
	t.Cleanup(e.Close)
	return e
}

// Close shuts everything down. It is safe to call twice.
func (e *testEnv) Close() {
	if e.http == nil {
		return
	}
	e.gateway.Close()
	_ = e.http.Close()
	e.srv.Stop()
	_ = e.db.Close()
	e.http = nil
}

type player struct {
	t    *testing.T
	id   string
	conn *websocket.Conn
}

func (e *testEnv) connect(id string) *player {
	e.t.Helper()
	q := url.Values{}
	q.Set("guild", channel.GuildID)
	q.Set("channel", channel.ChannelID)
	q.Set("player", id)
	u := url.URL{Scheme: "ws", Host: e.addr, Path: "/ws", RawQuery: q.Encode()}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	require.NoError(e.t, err)
	e.t.Cleanup(func() { conn.Close() })

	p := &player{t: e.t, id: id, conn: conn}
	p.do("balance")
	return p
}

// do sends a command and returns the reply, skipping any events.
func (p *player) do(text string) string {
	p.t.Helper()
	require.NoError(p.t, p.conn.WriteJSON(bot.Command{Text: text}))
	require.NoError(p.t, p.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var env bot.Envelope
		require.NoError(p.t, p.conn.ReadJSON(&env))
		if env.Type == bot.EnvelopeReply {
			return env.Text
		}
	}
}

// awaitEvent reads until an event of typ arrives.
func (p *player) awaitEvent(typ server.GameEventType) bot.Envelope {
	p.t.Helper()
	require.NoError(p.t, p.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var env bot.Envelope
		require.NoError(p.t, p.conn.ReadJSON(&env))
		if env.Type == bot.EnvelopeEvent && env.Event == typ {
			return env
		}
	}
}

func (e *testEnv) balance(id string) int64 {
	e.t.Helper()
	w, err := e.srv.Balance(context.Background(), channel.GuildID, game.Seat{ID: id, Name: id})
	require.NoError(e.t, err)
	return w.Balance
}

func TestShowdownFoldOut(t *testing.T) {
	env := newTestEnv(t)
	ann, bob, cy := env.connect("ann"), env.connect("bob"), env.connect("cy")

	require.Contains(t, ann.do("sd create 100"), "Showdown room created")
	for _, p := range []*player{bob, cy} {
		require.NotContains(t, p.do("sd join"), "Error")
		require.Contains(t, p.do("sd ready"), "You are ready.")
	}
	require.Contains(t, ann.do("sd start"), "pot 300")
	assert.Equal(t, int64(900), env.balance("bob"))

	assert.Contains(t, bob.do("sd fold"), "folded")
	assert.Contains(t, cy.do("sd fold"), "ann wins the pot of 300!")
	assert.Equal(t, int64(1200), env.balance("ann"))
	assert.Contains(t, ann.do("stats"), "1 games, 1 wins")
}

func TestShowdownSettlesAndPersists(t *testing.T) {
	env := newTestEnv(t)
	ann, bob, cy := env.connect("ann"), env.connect("bob"), env.connect("cy")

	ann.do("sd create 100")
	for _, p := range []*player{bob, cy} {
		p.do("sd join")
		p.do("sd ready")
	}
	ann.do("sd start")

	assert.Contains(t, ann.do("sd raise 200"), "bet to match 200")
	assert.Contains(t, ann.do("sd reveal"), "revealed")
	assert.Contains(t, bob.do("sd reveal"), game.ErrPendingCall.Error())
	bob.do("sd call")
	cy.do("sd fold")
	bob.do("sd reveal")

	result := cy.awaitEvent(server.GameEventTypeShowdownResult)
	require.NotNil(t, result.View)
	assert.Equal(t, showdown.StateFinished, result.View.Status)
	winner := result.View.WinnerID
	require.Contains(t, []string{"ann", "bob"}, winner)
	assert.Equal(t, int64(500), result.View.Pot)
	// Both contenders revealed, so even the folded player sees them.
	assert.False(t, result.View.Seat("ann").Hidden())
	assert.False(t, result.View.Seat("bob").Hidden())

	total := env.balance("ann") + env.balance("bob") + env.balance("cy")
	assert.Equal(t, int64(3000), total)
	assert.Equal(t, int64(900), env.balance("cy"))
	assert.Equal(t, int64(1300), env.balance(winner))

	// Balances and history survive a restart of the server.
	env.Close()
	env = startEnv(t, env.dbPath)
	assert.Equal(t, int64(1300), env.balance(winner))
	assert.Equal(t, int64(900), env.balance("cy"))
	games, err := env.srv.History(context.Background(), channel.GuildID, game.KindShowdown, 5)
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, winner, games[0].WinnerID)

	// Rooms themselves do not.
	_, err = env.srv.ShowdownStatus(channel)
	assert.ErrorIs(t, err, game.ErrRoomNotFound)
}

func TestBankerEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	ann, bob, cy := env.connect("ann"), env.connect("bob"), env.connect("cy")
	players := map[string]*player{"ann": ann, "bob": bob, "cy": cy}

	require.Contains(t, ann.do("bk create 100"), "You hold the bank.")
	bob.do("bk join")
	cy.do("bk join")
	require.NotContains(t, ann.do("bk start"), "Error")

	for i := 0; ; i++ {
		snap, err := env.srv.BankerStatus(channel)
		require.NoError(t, err)
		if snap.Status == banker.StateFinished {
			break
		}
		require.Less(t, i, 10, "game did not finish")
		require.NotContains(t, players[snap.TurnID].do("bk stand"), "Error")
	}

	done := bob.awaitEvent(server.GameEventTypeBankerFinished)
	require.NotNil(t, done.View)
	for _, s := range done.View.Seats {
		assert.False(t, s.Hidden(), "every hand is shown at the end: %s", s.ID)
		if !s.Banker {
			assert.NotEmpty(t, s.Outcome, s.ID)
		}
	}

	total := env.balance("ann") + env.balance("bob") + env.balance("cy")
	assert.Equal(t, int64(3000), total)

	games, err := env.srv.History(context.Background(), channel.GuildID, game.KindBanker, 5)
	require.NoError(t, err)
	require.Len(t, games, 1)

	assert.Contains(t, ann.do("bk restart"), "| waiting")
	assert.Contains(t, ann.do("bk end"), "Room closed.")
}
