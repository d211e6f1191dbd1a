package settlement

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vctt94/tablegames/pkg/banker"
	"github.com/vctt94/tablegames/pkg/cards"
	"github.com/vctt94/tablegames/pkg/game"
	"github.com/vctt94/tablegames/pkg/showdown"
)

var scope = game.Scope{GuildID: "g1", ChannelID: "c1"}

type memLedger struct {
	balances map[string]int64
	failFor  string
}

func newMemLedger() *memLedger {
	return &memLedger{balances: make(map[string]int64)}
}

func (m *memLedger) Balance(_ context.Context, playerID, _, _ string) (int64, error) {
	return m.balances[playerID], nil
}

func (m *memLedger) move(playerID string, amount int64) error {
	if playerID == m.failFor {
		return errors.New("store offline")
	}
	m.balances[playerID] += amount
	return nil
}

func (m *memLedger) Stake(_ context.Context, playerID, _ string, amount int64, _ string) error {
	if m.balances[playerID] < amount {
		return game.ErrInsufficientFunds
	}
	return m.move(playerID, -amount)
}

func (m *memLedger) Debit(_ context.Context, playerID, _ string, amount int64, _ string) error {
	return m.move(playerID, -amount)
}

func (m *memLedger) Credit(_ context.Context, playerID, _ string, amount int64, _ string) error {
	return m.move(playerID, amount)
}

func (m *memLedger) Refund(_ context.Context, playerID, _ string, amount int64, _ string) error {
	return m.move(playerID, amount)
}

func showdownResult() *showdown.Result {
	h := func(s string) showdown.Hand { return showdown.Evaluate(cards.MustParseHand(s)) }
	return &showdown.Result{
		Scope:    scope,
		WinnerID: "p1",
		Pot:      500,
		Entries: []showdown.ResultEntry{
			{Seat: game.Seat{ID: "p1", Name: "Ann"}, Bet: 300, Hand: h("Qs Ks As")},
			{Seat: game.Seat{ID: "p2", Name: "Bo"}, Bet: 100, Hand: h("4d 5c Kh"), Folded: true},
			{Seat: game.Seat{ID: "p3", Name: "Cy"}, Bet: 100, Hand: h("2c 3d 9h")},
		},
	}
}

func TestShowdownPlan(t *testing.T) {
	plan, err := Showdown(showdownResult())
	require.NoError(t, err)

	require.Len(t, plan.Instructions, 1)
	assert.Equal(t, Instruction{Op: OpCredit, PlayerID: "p1", Amount: 500, Reason: "showdown pot"}, plan.Instructions[0])
	assert.Equal(t, int64(200), plan.Delta("p1"))
	assert.Equal(t, int64(-100), plan.Delta("p2"))
	assert.Equal(t, int64(-100), plan.Delta("p3"))
	assert.Zero(t, plan.Net())
}

func TestShowdownPlanRejectsBadResults(t *testing.T) {
	res := showdownResult()
	res.Pot = 600
	_, err := Showdown(res)
	assert.ErrorIs(t, err, ErrNotConserved)

	res = showdownResult()
	res.WinnerID = "p9"
	_, err = Showdown(res)
	assert.ErrorIs(t, err, game.ErrNotSeated)

	_, err = Showdown(nil)
	assert.ErrorIs(t, err, game.ErrInvalidState)
}

func bankerSettlement(outcome banker.Outcome, bet int64) banker.Settlement {
	return banker.Settlement{
		Scope:      scope,
		Banker:     game.Seat{ID: "bank", Name: "Bank"},
		Challenger: game.Seat{ID: "c", Name: "Challenger"},
		Bet:        bet,
		Outcome:    outcome,
	}
}

func TestBankerPlan(t *testing.T) {
	tests := []struct {
		name       string
		outcome    banker.Outcome
		bet        int64
		wantPlayer int64
		wantBanker int64
		wantOps    []Op
	}{
		{"natural pays one and a half", banker.OutcomeNatural, 100, 150, -150, []Op{OpRefund, OpCredit, OpDebit}},
		{"natural rounds down", banker.OutcomeNatural, 75, 112, -112, []Op{OpRefund, OpCredit, OpDebit}},
		{"win pays even", banker.OutcomeWin, 200, 200, -200, []Op{OpRefund, OpCredit, OpDebit}},
		{"push returns stake", banker.OutcomePush, 100, 0, 0, []Op{OpRefund}},
		{"lose pays banker", banker.OutcomeLose, 100, -100, 100, []Op{OpCredit}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := Banker(bankerSettlement(tt.outcome, tt.bet))
			require.NoError(t, err)
			assert.Equal(t, tt.wantPlayer, plan.Delta("c"))
			assert.Equal(t, tt.wantBanker, plan.Delta("bank"))
			assert.Zero(t, plan.Net())

			var ops []Op
			for _, in := range plan.Instructions {
				ops = append(ops, in.Op)
			}
			assert.Equal(t, tt.wantOps, ops)
		})
	}

	_, err := Banker(bankerSettlement(banker.OutcomeNone, 100))
	assert.ErrorIs(t, err, game.ErrInvalidState)
}

func TestApplyNaturalScenario(t *testing.T) {
	ledger := newMemLedger()
	ledger.balances["c"] = 1000 - 100 // ante already taken
	ledger.balances["bank"] = 1000

	plan, err := Banker(bankerSettlement(banker.OutcomeNatural, 100))
	require.NoError(t, err)
	require.NoError(t, Apply(context.Background(), ledger, "g1", plan))

	assert.Equal(t, int64(1150), ledger.balances["c"])
	assert.Equal(t, int64(850), ledger.balances["bank"])
}

func TestApplyContinuesPastFailures(t *testing.T) {
	ledger := newMemLedger()
	ledger.failFor = "c"

	plan, err := Banker(bankerSettlement(banker.OutcomeWin, 100))
	require.NoError(t, err)
	err = Apply(context.Background(), ledger, "g1", plan)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refund 100 for c")
	assert.Equal(t, int64(-100), ledger.balances["bank"], "banker debit still applied")
}

type statsLog struct {
	wins, losses, pushes []string
	tiers                []string
	saved                []*game.GameRecord
}

func (s *statsLog) RecordWin(_ context.Context, _ game.Kind, _ string, seat game.Seat, _ int64, tier string) error {
	s.wins = append(s.wins, seat.ID)
	s.tiers = append(s.tiers, tier)
	return nil
}

func (s *statsLog) RecordLoss(_ context.Context, _ game.Kind, _ string, seat game.Seat, _ int64) error {
	s.losses = append(s.losses, seat.ID)
	return nil
}

func (s *statsLog) RecordPush(_ context.Context, _ game.Kind, _ string, seat game.Seat) error {
	s.pushes = append(s.pushes, seat.ID)
	return nil
}

func (s *statsLog) SaveGame(_ context.Context, rec *game.GameRecord) (string, error) {
	s.saved = append(s.saved, rec)
	return "id-1", nil
}

func TestRecordShowdown(t *testing.T) {
	res := showdownResult()
	plan, err := Showdown(res)
	require.NoError(t, err)

	stats := &statsLog{}
	id, err := RecordShowdown(context.Background(), stats, res, plan)
	require.NoError(t, err)
	assert.Equal(t, "id-1", id)
	assert.Equal(t, []string{"p1"}, stats.wins)
	assert.Equal(t, []string{"Sequence"}, stats.tiers)
	assert.Equal(t, []string{"p2", "p3"}, stats.losses)

	require.Len(t, stats.saved, 1)
	rec := stats.saved[0]
	assert.Equal(t, "Sequence", rec.WinnerTier)
	assert.Equal(t, int64(500), rec.Pot)
	require.Len(t, rec.Hands, 3)
	assert.Equal(t, int64(200), rec.Hands[0].Net)
	assert.True(t, rec.Hands[1].Folded)
}

func TestRecordBanker(t *testing.T) {
	stats := &statsLog{}
	ctx := context.Background()
	require.NoError(t, RecordBanker(ctx, stats, bankerSettlement(banker.OutcomeNatural, 100)))
	require.NoError(t, RecordBanker(ctx, stats, bankerSettlement(banker.OutcomeLose, 100)))
	require.NoError(t, RecordBanker(ctx, stats, bankerSettlement(banker.OutcomePush, 100)))

	assert.Equal(t, []string{"c"}, stats.wins)
	assert.Equal(t, []string{"c"}, stats.losses)
	assert.Equal(t, []string{"c"}, stats.pushes)
}

func TestBankerRecord(t *testing.T) {
	res := &banker.Result{
		Scope:  scope,
		Banker: game.Seat{ID: "bank"},
		Settlements: []banker.Settlement{
			bankerSettlement(banker.OutcomeWin, 100),
			bankerSettlement(banker.OutcomeLose, 200),
		},
	}
	rec := BankerRecord(res)
	assert.Equal(t, game.KindBanker, rec.Kind)
	assert.Equal(t, int64(300), rec.Pot)
	require.Len(t, rec.Hands, 3)
	assert.Equal(t, int64(100), rec.Hands[0].Net)
	assert.Equal(t, int64(-200), rec.Hands[1].Net)
	assert.Equal(t, int64(100), rec.Hands[2].Net, "banker nets the difference")
}
