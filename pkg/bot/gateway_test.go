package bot

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vctt94/tablegames/pkg/banker"
	"github.com/vctt94/tablegames/pkg/cards"
	"github.com/vctt94/tablegames/pkg/game"
	"github.com/vctt94/tablegames/pkg/server"
	"github.com/vctt94/tablegames/pkg/showdown"
)

func newTestGateway(t *testing.T) (*Gateway, *httptest.Server) {
	t.Helper()
	g := NewGateway(newTestServer(t), nil)
	ts := httptest.NewServer(g.Router())
	t.Cleanup(func() {
		g.Close()
		ts.Close()
	})
	return g, ts
}

func dial(t *testing.T, ts *httptest.Server, scope game.Scope, player string) *websocket.Conn {
	t.Helper()
	q := url.Values{}
	q.Set("guild", scope.GuildID)
	q.Set("channel", scope.ChannelID)
	q.Set("player", player)
	u := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?" + q.Encode()
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	// A reply proves the client is registered for events.
	require.NoError(t, conn.WriteJSON(Command{Text: "help"}))
	readUntil(t, conn, isReply)
	return conn
}

func send(t *testing.T, conn *websocket.Conn, text string) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(Command{Text: text}))
}

// readUntil reads envelopes until match accepts one.
func readUntil(t *testing.T, conn *websocket.Conn, match func(Envelope) bool) Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var env Envelope
		require.NoError(t, conn.ReadJSON(&env))
		if match(env) {
			return env
		}
	}
}

func isReply(env Envelope) bool { return env.Type == EnvelopeReply }

func isEvent(typ server.GameEventType) func(Envelope) bool {
	return func(env Envelope) bool {
		return env.Type == EnvelopeEvent && env.Event == typ
	}
}

func TestGatewayRejectsMissingIdentity(t *testing.T) {
	_, ts := newTestGateway(t)
	resp, err := http.Get(ts.URL + "/ws?guild=g1&channel=tables")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGatewayRelaysCommandsAndEvents(t *testing.T) {
	_, ts := newTestGateway(t)
	ann := dial(t, ts, tables, "ann")
	bob := dial(t, ts, tables, "bob")
	other := dial(t, ts, game.Scope{GuildID: "g1", ChannelID: "lounge"}, "cy")

	send(t, ann, "sd create 100")
	reply := readUntil(t, ann, isReply)
	assert.Contains(t, reply.Text, "Showdown room created")

	created := readUntil(t, bob, isEvent(server.GameEventTypeRoomCreated))
	assert.Contains(t, created.Text, "ann opened a Showdown room with a stake of 100.")
	require.NotNil(t, created.View)
	assert.Equal(t, showdown.StateWaiting, created.View.Status)

	send(t, bob, "sd join")
	readUntil(t, bob, isReply)
	send(t, bob, "sd ready")
	readUntil(t, bob, isReply)
	send(t, ann, "sd start")

	// Each player sees their own cards only.
	started := readUntil(t, bob, isEvent(server.GameEventTypeGameStarted))
	require.NotNil(t, started.View)
	assert.Equal(t, int64(200), started.View.Pot)
	assert.True(t, started.View.Seat("ann").Hidden())
	assert.Len(t, started.View.Seat("bob").Cards, 3)
	assert.True(t, started.View.Seat("bob").Viewer)

	started = readUntil(t, ann, isEvent(server.GameEventTypeGameStarted))
	assert.True(t, started.View.Seat("bob").Hidden())
	assert.Len(t, started.View.Seat("ann").Cards, 3)

	send(t, bob, "sd fold")
	result := readUntil(t, ann, isEvent(server.GameEventTypeShowdownResult))
	assert.Contains(t, result.Text, "ann wins the pot of 200")
	assert.Equal(t, "ann", result.View.WinnerID)

	// Events of another channel are not delivered.
	send(t, other, "rooms")
	rooms := readUntil(t, other, func(Envelope) bool { return true })
	assert.Equal(t, EnvelopeReply, rooms.Type)
	assert.Contains(t, rooms.Text, "#tables Showdown: finished")

	resp, err := http.Get(ts.URL + "/rooms?guild=g1")
	require.NoError(t, err)
	defer resp.Body.Close()
	var summaries []server.RoomSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, 2, summaries[0].Players)
}

func TestDescribeEvent(t *testing.T) {
	snap := &banker.Snapshot{Players: []banker.PlayerSnapshot{{ID: "u1", Name: "Ann"}}}
	tests := []struct {
		ev   *server.GameEvent
		want string
	}{
		{
			&server.GameEvent{Banker: snap, Payload: server.ChallengerSettledPayload{ChallengerID: "u1", Outcome: banker.OutcomeNatural, Delta: 150}},
			"Ann vs the bank: natural (+150).",
		},
		{
			&server.GameEvent{Banker: snap, Payload: server.CardDrawnPayload{PlayerID: "u1", Doubled: true}},
			"Ann doubles down.",
		},
		{
			&server.GameEvent{Payload: server.RoomClosedPayload{ClosedBy: "u1", Refunded: 300}},
			"u1 closed the room. 300 refunded.",
		},
		{
			&server.GameEvent{Banker: snap, Payload: server.RoomRestartedPayload{BankerID: "u1"}},
			"New game. Ann holds the bank.",
		},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, describeEvent(tc.ev))
	}
}

func TestEventViewPerViewer(t *testing.T) {
	hand := showdown.Evaluate(cards.MustParseHand("As 2s 3s"))
	ev := &server.GameEvent{Showdown: &showdown.Snapshot{
		Status:  showdown.StatePlaying,
		Players: []showdown.PlayerSnapshot{{ID: "u1", Name: "Ann", Hand: &hand}},
	}}
	assert.False(t, eventView(ev, "u1").Seat("u1").Hidden())
	assert.True(t, eventView(ev, "u2").Seat("u1").Hidden())
	assert.Nil(t, eventView(&server.GameEvent{}, "u1"))
}
