package server

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vctt94/tablegames/pkg/banker"
	"github.com/vctt94/tablegames/pkg/game"
	"github.com/vctt94/tablegames/pkg/settlement"
	"github.com/vctt94/tablegames/pkg/showdown"
)

var (
	chan1 = game.Scope{GuildID: "g1", ChannelID: "c1"}
	chan2 = game.Scope{GuildID: "g1", ChannelID: "c2"}
)

func seat(id string) game.Seat { return game.Seat{ID: id, Name: id} }

func newTestDatabase(t *testing.T) Database {
	t.Helper()
	day := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	d, err := newDatabaseWithClock(":memory:", func() time.Time { return day })
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func newTestServerWith(t *testing.T, d Database, seed int64) *Server {
	t.Helper()
	s := NewServer(Config{DB: d, Seed: seed})
	t.Cleanup(s.Stop)
	return s
}

func newTestServer(t *testing.T) *Server {
	return newTestServerWith(t, newTestDatabase(t), 1)
}

func balanceOf(t *testing.T, s *Server, guildID, playerID string) int64 {
	t.Helper()
	w, err := s.Balance(context.Background(), guildID, seat(playerID))
	require.NoError(t, err)
	return w.Balance
}

// seatShowdown creates a room hosted by the first id and seats the others,
// everyone ready.
func seatShowdown(t *testing.T, s *Server, scope game.Scope, stake int64, ids ...string) {
	t.Helper()
	ctx := context.Background()
	_, err := s.ShowdownCreate(ctx, scope, seat(ids[0]), stake)
	require.NoError(t, err)
	for _, id := range ids[1:] {
		_, err := s.ShowdownJoin(ctx, scope, seat(id))
		require.NoError(t, err)
		ready, _, err := s.ShowdownReady(ctx, scope, id)
		require.NoError(t, err)
		require.True(t, ready)
	}
}

func TestShowdownFoldSettlesPot(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	seatShowdown(t, s, chan1, 100, "alice", "bob", "carol")

	snap, err := s.ShowdownStart(ctx, chan1, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(300), snap.Pot)
	assert.Equal(t, int64(900), balanceOf(t, s, "g1", "bob"))

	_, err = s.ShowdownRaise(ctx, chan1, "alice", 300)
	require.NoError(t, err)
	_, err = s.ShowdownCall(ctx, chan1, "bob")
	require.NoError(t, err)
	_, err = s.ShowdownFold(ctx, chan1, "carol")
	require.NoError(t, err)
	snap, err = s.ShowdownFold(ctx, chan1, "bob")
	require.NoError(t, err)

	assert.Equal(t, showdown.StateFinished, snap.Status)
	assert.Equal(t, "alice", snap.WinnerID)
	assert.Equal(t, int64(1400), balanceOf(t, s, "g1", "alice"))
	assert.Equal(t, int64(700), balanceOf(t, s, "g1", "bob"))
	assert.Equal(t, int64(900), balanceOf(t, s, "g1", "carol"))

	st, err := s.PlayerStats(ctx, "g1", "alice", game.KindShowdown)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Wins)
	st, err = s.PlayerStats(ctx, "g1", "bob", game.KindShowdown)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Losses)
	assert.Equal(t, int64(300), st.CoinsLost)

	games, err := s.History(ctx, "g1", game.KindShowdown, 5)
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, "alice", games[0].WinnerID)
	assert.Equal(t, int64(700), games[0].Pot)

	// Restart keeps the roster and returns to waiting.
	_, err = s.ShowdownRestart(ctx, chan1, "bob")
	assert.ErrorIs(t, err, game.ErrNotHost)
	snap, err = s.ShowdownRestart(ctx, chan1, "alice")
	require.NoError(t, err)
	assert.Equal(t, showdown.StateWaiting, snap.Status)
	assert.Len(t, snap.Players, 3)
}

func TestShowdownStartChargesAtomically(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	seatShowdown(t, s, chan1, 100, "alice", "bob")
	require.NoError(t, s.db.Debit(ctx, "bob", "g1", 950, "test"))

	_, err := s.ShowdownStart(ctx, chan1, "alice")
	assert.ErrorIs(t, err, game.ErrInsufficientFunds)
	assert.Equal(t, int64(1000), balanceOf(t, s, "g1", "alice"))

	snap, err := s.ShowdownStatus(chan1)
	require.NoError(t, err)
	assert.Equal(t, showdown.StateWaiting, snap.Status)
	assert.Zero(t, snap.Pot)
}

// flakyDB fails every stake of one player.
type flakyDB struct {
	Database
	failFor string
}

func (f *flakyDB) Stake(ctx context.Context, playerID, guildID string, amount int64, reason string) error {
	if playerID == f.failFor {
		return errors.New("ledger unavailable")
	}
	return f.Database.Stake(ctx, playerID, guildID, amount, reason)
}

func TestPayFuncRefundsPartialCharges(t *testing.T) {
	d := &flakyDB{Database: newTestDatabase(t), failFor: "carol"}
	s := newTestServerWith(t, d, 1)
	ctx := context.Background()

	err := s.payFunc(ctx, "g1")([]game.Charge{
		{PlayerID: "alice", Amount: 100, Reason: "ante"},
		{PlayerID: "bob", Amount: 100, Reason: "ante"},
		{PlayerID: "carol", Amount: 100, Reason: "ante"},
	})
	require.Error(t, err)
	assert.Equal(t, int64(1000), balanceOf(t, s, "g1", "alice"))
	assert.Equal(t, int64(1000), balanceOf(t, s, "g1", "bob"))
}

// gateDB holds the stakes of one player until a given number of callers
// arrived, so rooms charging that player race at the ledger.
type gateDB struct {
	Database
	playerID string
	arrived  sync.WaitGroup
}

func (g *gateDB) Stake(ctx context.Context, playerID, guildID string, amount int64, reason string) error {
	if playerID == g.playerID {
		g.arrived.Done()
		g.arrived.Wait()
	}
	return g.Database.Stake(ctx, playerID, guildID, amount, reason)
}

func TestConcurrentStakesCannotOverdraw(t *testing.T) {
	d := &gateDB{Database: newTestDatabase(t), playerID: "dave"}
	d.arrived.Add(2)
	s := newTestServerWith(t, d, 1)
	ctx := context.Background()

	for _, tc := range []struct {
		scope game.Scope
		host  string
	}{{chan1, "alice"}, {chan2, "bob"}} {
		_, err := s.BankerCreate(ctx, tc.scope, seat(tc.host), 600)
		require.NoError(t, err)
		_, err = s.BankerJoin(ctx, tc.scope, seat("dave"))
		require.NoError(t, err)
	}

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i, tc := range []struct {
		scope game.Scope
		host  string
	}{{chan1, "alice"}, {chan2, "bob"}} {
		i, tc := i, tc
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = s.BankerStart(ctx, tc.scope, tc.host)
		}()
	}
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, game.ErrInsufficientFunds)
			failed++
		}
	}
	assert.Equal(t, 1, failed)
	assert.Equal(t, int64(400), balanceOf(t, s, "g1", "dave"))
}

func TestJoinRequiresFunds(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	_, err := s.ShowdownCreate(ctx, chan1, seat("alice"), 2000)
	assert.ErrorIs(t, err, game.ErrInsufficientFunds)

	_, err = s.ShowdownCreate(ctx, chan1, seat("alice"), 500)
	require.NoError(t, err)
	require.NoError(t, s.db.Debit(ctx, "bob", "g1", 600, "test"))
	_, err = s.ShowdownJoin(ctx, chan1, seat("bob"))
	assert.ErrorIs(t, err, game.ErrInsufficientFunds)
}

func TestShowdownEndRefundsStakes(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	seatShowdown(t, s, chan1, 100, "alice", "bob")
	_, err := s.ShowdownStart(ctx, chan1, "alice")
	require.NoError(t, err)
	_, err = s.ShowdownRaise(ctx, chan1, "bob", 250)
	require.NoError(t, err)

	_, err = s.ShowdownEnd(ctx, chan1, "bob")
	assert.ErrorIs(t, err, game.ErrNotHost)

	refunded, err := s.ShowdownEnd(ctx, chan1, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(350), refunded)
	assert.Equal(t, int64(1000), balanceOf(t, s, "g1", "alice"))
	assert.Equal(t, int64(1000), balanceOf(t, s, "g1", "bob"))

	_, err = s.ShowdownStatus(chan1)
	assert.ErrorIs(t, err, game.ErrRoomNotFound)
}

func TestShowdownOneRoomPerGuild(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	seatShowdown(t, s, chan1, 100, "alice", "bob")
	_, err := s.ShowdownCreate(ctx, chan2, seat("carol"), 100)
	require.NoError(t, err)

	// A waiting room elsewhere is left automatically.
	_, err = s.ShowdownJoin(ctx, chan2, seat("bob"))
	require.NoError(t, err)
	snap, err := s.ShowdownStatus(chan1)
	require.NoError(t, err)
	assert.Nil(t, snap.Player("bob"))

	// A running room elsewhere blocks the move.
	_, err = s.ShowdownJoin(ctx, chan1, seat("dave"))
	require.NoError(t, err)
	_, _, err = s.ShowdownReady(ctx, chan1, "dave")
	require.NoError(t, err)
	_, err = s.ShowdownStart(ctx, chan1, "alice")
	require.NoError(t, err)
	_, err = s.ShowdownJoin(ctx, chan2, seat("dave"))
	assert.ErrorIs(t, err, game.ErrAlreadyElsewhere)

	_, _, err = s.ShowdownLeave(ctx, chan1, "dave")
	assert.ErrorIs(t, err, game.ErrGameInProgress)
}

func TestShowdownLeaveClosesEmptyRoom(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	seatShowdown(t, s, chan1, 100, "alice", "bob")

	snap, closed, err := s.ShowdownLeave(ctx, chan1, "alice")
	require.NoError(t, err)
	assert.False(t, closed)
	assert.Equal(t, "bob", snap.HostID)

	_, closed, err = s.ShowdownLeave(ctx, chan1, "bob")
	require.NoError(t, err)
	assert.True(t, closed)
	assert.Empty(t, s.ListRooms("g1"))
}

// playBanker stands every seat until the game is over.
func playBanker(t *testing.T, s *Server, scope game.Scope) *banker.Snapshot {
	t.Helper()
	ctx := context.Background()
	snap, err := s.BankerStatus(scope)
	require.NoError(t, err)
	for i := 0; snap.Status != banker.StateFinished; i++ {
		require.Less(t, i, 10, "game did not finish")
		snap, err = s.BankerStand(ctx, scope, snap.TurnID)
		require.NoError(t, err)
	}
	return snap
}

func seatBanker(t *testing.T, s *Server, scope game.Scope, ids ...string) {
	t.Helper()
	ctx := context.Background()
	_, err := s.BankerCreate(ctx, scope, seat(ids[0]), 100)
	require.NoError(t, err)
	for _, id := range ids[1:] {
		_, err := s.BankerJoin(ctx, scope, seat(id))
		require.NoError(t, err)
	}
}

func TestBankerGameConservesCoins(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	ids := []string{"alice", "bob", "carol"}
	seatBanker(t, s, chan1, ids...)

	for round := 0; round < 3; round++ {
		_, err := s.BankerStart(ctx, chan1, "alice")
		require.NoError(t, err)
		snap := playBanker(t, s, chan1)

		var total int64
		for _, id := range ids {
			total += balanceOf(t, s, "g1", id)
		}
		assert.Equal(t, int64(3000), total)
		for _, p := range snap.Players {
			if !p.Banker {
				assert.NotEmpty(t, p.Outcome)
			}
		}
		_, err = s.BankerRestart(ctx, chan1, "alice")
		require.NoError(t, err)
	}

	games, err := s.History(ctx, "g1", game.KindBanker, 10)
	require.NoError(t, err)
	assert.Len(t, games, 3)
	st, err := s.PlayerStats(ctx, "g1", "bob", game.KindBanker)
	require.NoError(t, err)
	assert.Equal(t, 3, st.Games)
	_, err = s.PlayerStats(ctx, "g1", "alice", game.KindBanker)
	assert.ErrorIs(t, err, ErrNoStats)
}

// dealerTurnServer returns a server whose banker room reached the dealer
// turn with every challenger standing.
func dealerTurnServer(t *testing.T) *Server {
	t.Helper()
	ctx := context.Background()
	for seed := int64(1); seed < 50; seed++ {
		s := newTestServerWith(t, newTestDatabase(t), seed)
		seatBanker(t, s, chan1, "alice", "bob", "carol")
		snap, err := s.BankerStart(ctx, chan1, "alice")
		require.NoError(t, err)
		for snap.Status == banker.StatePlaying {
			snap, err = s.BankerStand(ctx, chan1, snap.TurnID)
			require.NoError(t, err)
		}
		if snap.Status == banker.StateDealerTurn {
			return s
		}
	}
	t.Fatal("no seed reached the dealer turn")
	return nil
}

func TestBankerRevealPaysImmediately(t *testing.T) {
	s := dealerTurnServer(t)
	ctx := context.Background()

	_, _, err := s.BankerReveal(ctx, chan1, "bob", "carol")
	assert.ErrorIs(t, err, game.ErrNotBanker)
	_, _, err = s.BankerReveal(ctx, chan1, "alice", "alice")
	assert.ErrorIs(t, err, game.ErrSelfReveal)

	outcome, snap, err := s.BankerReveal(ctx, chan1, "alice", "bob")
	require.NoError(t, err)
	assert.True(t, snap.Player("bob").Revealed)

	var want int64 = 900
	switch outcome {
	case banker.OutcomeNatural, banker.OutcomeWin:
		want += 100 + settlement.Winnings(outcome, 100)
	case banker.OutcomePush:
		want += 100
	}
	assert.Equal(t, want, balanceOf(t, s, "g1", "bob"))
	assert.Equal(t, int64(2000)-want, balanceOf(t, s, "g1", "alice"))

	_, _, err = s.BankerReveal(ctx, chan1, "alice", "bob")
	assert.ErrorIs(t, err, game.ErrAlreadyRevealed)

	// Ending now refunds only the unsettled challenger.
	refunded, err := s.BankerEnd(ctx, chan1, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(100), refunded)
	assert.Equal(t, int64(1000), balanceOf(t, s, "g1", "carol"))
}

func TestBankerLeaveRules(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	seatBanker(t, s, chan1, "alice", "bob", "carol")

	snap, closed, err := s.BankerLeave(ctx, chan1, "carol")
	require.NoError(t, err)
	assert.False(t, closed)
	assert.Len(t, snap.Players, 2)

	_, err = s.BankerJoin(ctx, chan1, seat("carol"))
	require.NoError(t, err)
	_, err = s.BankerStart(ctx, chan1, "alice")
	require.NoError(t, err)
	_, _, err = s.BankerLeave(ctx, chan1, "bob")
	assert.ErrorIs(t, err, game.ErrGameInProgress)

	playBanker(t, s, chan1)
	_, _, err = s.BankerLeave(ctx, chan1, "bob")
	assert.ErrorIs(t, err, game.ErrGameInProgress, "leaving waits for the restart")

	_, err = s.BankerRestart(ctx, chan1, "alice")
	require.NoError(t, err)
	_, closed, err = s.BankerLeave(ctx, chan1, "alice")
	require.NoError(t, err)
	assert.True(t, closed, "the host leaving closes the room")
	_, err = s.BankerStatus(chan1)
	assert.ErrorIs(t, err, game.ErrRoomNotFound)
}

func TestBankerRoomsAreNotExclusive(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	seatBanker(t, s, chan1, "alice", "bob")
	_, err := s.BankerCreate(ctx, chan2, seat("bob"), 50)
	require.NoError(t, err)
	_, err = s.ShowdownCreate(ctx, game.Scope{GuildID: "g1", ChannelID: "c3"}, seat("bob"), 50)
	require.NoError(t, err)

	rooms := s.ListRooms("g1")
	require.Len(t, rooms, 3)
	assert.Equal(t, game.KindShowdown, rooms[0].Game)
	assert.Equal(t, game.KindBanker, rooms[1].Game)
	assert.Empty(t, s.ListRooms("g2"))
}

func TestClaimDailyOncePerDay(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	bal, err := s.ClaimDaily(ctx, "g1", seat("alice"))
	require.NoError(t, err)
	assert.Equal(t, int64(StartingBalance+DailyReward), bal)
	_, err = s.ClaimDaily(ctx, "g1", seat("alice"))
	assert.ErrorIs(t, err, game.ErrAlreadyClaimed)

	_, err = s.ClaimDaily(ctx, "g2", seat("alice"))
	require.NoError(t, err)
	top, err := s.Richest(ctx, "g1", 5)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "alice", top[0].PlayerID)
}

func TestEventsReachSubscribers(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	var (
		mu     sync.Mutex
		events []*GameEvent
	)
	unsubscribe := s.Subscribe(func(e *GameEvent) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	})
	seatShowdown(t, s, chan1, 100, "alice", "bob")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(events) == 3
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	assert.Equal(t, GameEventTypeRoomCreated, events[0].Type)
	assert.Equal(t, GameEventTypePlayerJoined, events[1].Type)
	assert.Equal(t, GameEventTypePlayerReady, events[2].Type)
	require.NotNil(t, events[2].Showdown)
	assert.True(t, events[2].Showdown.Player("bob").Ready)
	mu.Unlock()

	unsubscribe()
	_, err := s.ShowdownEnd(ctx, chan1, "alice")
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	assert.Len(t, events, 3)
	mu.Unlock()
}
