package bot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/vctt94/tablegames/pkg/banker"
	"github.com/vctt94/tablegames/pkg/game"
	"github.com/vctt94/tablegames/pkg/render"
	"github.com/vctt94/tablegames/pkg/server"
	"github.com/vctt94/tablegames/pkg/showdown"
)

const leaderboardSize = 10

func (s *State) showdownReply(snap *showdown.Snapshot, viewerID, prefix string) string {
	text := render.Text(render.ShowdownView(snap, viewerID))
	if prefix == "" {
		return text
	}
	return prefix + "\n" + text
}

func (s *State) bankerReply(snap *banker.Snapshot, viewerID, prefix string) string {
	text := render.Text(render.BankerView(snap, viewerID))
	if prefix == "" {
		return text
	}
	return prefix + "\n" + text
}

func (s *State) handleShowdown(ctx context.Context, msg Message, args []string) string {
	if len(args) == 0 {
		return "Usage: sd <create|join|leave|ready|start|raise|call|fold|reveal|restart|end|status>"
	}
	scope, me := msg.Scope, msg.Sender

	var (
		snap   *showdown.Snapshot
		prefix string
		err    error
	)
	switch strings.ToLower(args[0]) {
	case "create":
		stake, perr := parseAmount(args[1:], "Usage: sd create <stake>")
		if perr != nil {
			return perr.Error()
		}
		snap, err = s.srv.ShowdownCreate(ctx, scope, me, stake)
		prefix = fmt.Sprintf("Showdown room created with a stake of %d. Others can 'sd join'.", stake)

	case "join":
		snap, err = s.srv.ShowdownJoin(ctx, scope, me)

	case "leave":
		var closed bool
		snap, closed, err = s.srv.ShowdownLeave(ctx, scope, me.ID)
		if err == nil && closed {
			return "You left. The room was empty and has been closed."
		}
		prefix = "You left the room."

	case "ready":
		var ready bool
		ready, snap, err = s.srv.ShowdownReady(ctx, scope, me.ID)
		prefix = "You are not ready."
		if ready {
			prefix = "You are ready."
		}

	case "start":
		snap, err = s.srv.ShowdownStart(ctx, scope, me.ID)

	case "raise":
		amount, perr := parseAmount(args[1:], "Usage: sd raise <amount>")
		if perr != nil {
			return perr.Error()
		}
		snap, err = s.srv.ShowdownRaise(ctx, scope, me.ID, amount)

	case "call":
		snap, err = s.srv.ShowdownCall(ctx, scope, me.ID)

	case "fold":
		snap, err = s.srv.ShowdownFold(ctx, scope, me.ID)

	case "reveal":
		snap, err = s.srv.ShowdownReveal(ctx, scope, me.ID)

	case "restart":
		snap, err = s.srv.ShowdownRestart(ctx, scope, me.ID)

	case "end":
		refunded, eerr := s.srv.ShowdownEnd(ctx, scope, me.ID)
		if eerr != nil {
			return userError(eerr)
		}
		if refunded > 0 {
			return fmt.Sprintf("Room closed. %d refunded to the players.", refunded)
		}
		return "Room closed."

	case "status":
		snap, err = s.srv.ShowdownStatus(scope)

	default:
		return "Unknown showdown command. Type 'help' for available commands."
	}
	if err != nil {
		return userError(err)
	}
	if snap.Status == showdown.StateFinished && snap.WinnerID != "" {
		if w := snap.Player(snap.WinnerID); w != nil {
			prefix = fmt.Sprintf("%s wins the pot of %d!", w.Name, snap.Pot)
		}
	}
	return s.showdownReply(snap, me.ID, prefix)
}

// findBankerTarget resolves a reveal target by id or name.
func findBankerTarget(snap *banker.Snapshot, who string) (string, bool) {
	who = strings.TrimPrefix(who, "@")
	for _, p := range snap.Players {
		if p.ID == who || strings.EqualFold(p.Name, who) {
			return p.ID, true
		}
	}
	return "", false
}

func (s *State) handleBanker(ctx context.Context, msg Message, args []string) string {
	if len(args) == 0 {
		return "Usage: bk <create|join|leave|start|hit|stand|double|reveal|restart|end|status>"
	}
	scope, me := msg.Scope, msg.Sender

	var (
		snap   *banker.Snapshot
		prefix string
		err    error
	)
	switch strings.ToLower(args[0]) {
	case "create":
		stake, perr := parseAmount(args[1:], "Usage: bk create <stake>")
		if perr != nil {
			return perr.Error()
		}
		snap, err = s.srv.BankerCreate(ctx, scope, me, stake)
		prefix = fmt.Sprintf("Banker room created with a stake of %d. You hold the bank.", stake)

	case "join":
		snap, err = s.srv.BankerJoin(ctx, scope, me)

	case "leave":
		var closed bool
		snap, closed, err = s.srv.BankerLeave(ctx, scope, me.ID)
		if err == nil && closed {
			return "You left. The room has been closed."
		}
		prefix = "You left the room."

	case "start":
		snap, err = s.srv.BankerStart(ctx, scope, me.ID)

	case "hit":
		snap, err = s.srv.BankerHit(ctx, scope, me.ID)

	case "stand":
		snap, err = s.srv.BankerStand(ctx, scope, me.ID)

	case "double":
		snap, err = s.srv.BankerDouble(ctx, scope, me.ID)

	case "reveal":
		if len(args) < 2 {
			return "Usage: bk reveal <player>"
		}
		cur, serr := s.srv.BankerStatus(scope)
		if serr != nil {
			return userError(serr)
		}
		target, ok := findBankerTarget(cur, args[1])
		if !ok {
			return fmt.Sprintf("No player %q in this room.", args[1])
		}
		var outcome banker.Outcome
		outcome, snap, err = s.srv.BankerReveal(ctx, scope, me.ID, target)
		if err == nil {
			prefix = fmt.Sprintf("%s: %s", snap.Player(target).Name, outcome)
		}

	case "restart":
		snap, err = s.srv.BankerRestart(ctx, scope, me.ID)

	case "end":
		refunded, eerr := s.srv.BankerEnd(ctx, scope, me.ID)
		if eerr != nil {
			return userError(eerr)
		}
		if refunded > 0 {
			return fmt.Sprintf("Room closed. %d refunded to the players.", refunded)
		}
		return "Room closed."

	case "status":
		snap, err = s.srv.BankerStatus(scope)

	default:
		return "Unknown banker command. Type 'help' for available commands."
	}
	if err != nil {
		return userError(err)
	}
	return s.bankerReply(snap, me.ID, prefix)
}

func (s *State) handleBalance(ctx context.Context, msg Message) string {
	w, err := s.srv.Balance(ctx, msg.Scope.GuildID, msg.Sender)
	if err != nil {
		return "Error checking balance: " + err.Error()
	}
	return fmt.Sprintf("Your current balance is: %d coins (won %d, lost %d)", w.Balance, w.TotalWon, w.TotalLost)
}

func (s *State) handleDaily(ctx context.Context, msg Message) string {
	bal, err := s.srv.ClaimDaily(ctx, msg.Scope.GuildID, msg.Sender)
	if errors.Is(err, game.ErrAlreadyClaimed) {
		return "You already claimed today's reward. Come back tomorrow."
	}
	if err != nil {
		return "Error claiming reward: " + err.Error()
	}
	return fmt.Sprintf("Claimed %d coins. Your balance is now %d.", server.DailyReward, bal)
}

func (s *State) handleTop(ctx context.Context, msg Message, args []string) string {
	guildID := msg.Scope.GuildID
	if len(args) == 0 {
		wallets, err := s.srv.Richest(ctx, guildID, leaderboardSize)
		if err != nil {
			return "Error loading leaderboard: " + err.Error()
		}
		if len(wallets) == 0 {
			return "No wallets yet."
		}
		var b strings.Builder
		b.WriteString("Richest players:")
		for i, w := range wallets {
			fmt.Fprintf(&b, "\n%d. %s: %d", i+1, w.Name, w.Balance)
		}
		return b.String()
	}

	kind, rest := parseKind(args)
	order, label := server.ByWins, "wins"
	if len(rest) > 0 {
		switch strings.ToLower(rest[0]) {
		case "streak":
			order, label = server.ByStreak, "best streak"
		case "coins":
			order, label = server.ByCoinsWon, "coins won"
		case "wins":
		default:
			return "Usage: top [sd|bk] [wins|streak|coins]"
		}
	}
	stats, err := s.srv.Leaderboard(ctx, guildID, kind, order, leaderboardSize)
	if err != nil {
		return "Error loading leaderboard: " + err.Error()
	}
	if len(stats) == 0 {
		return "No games recorded yet."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s leaderboard by %s:", render.GameTitle(kind), label)
	for i, st := range stats {
		fmt.Fprintf(&b, "\n%d. %s: %d wins, best streak %d, %d coins won", i+1, st.Name, st.Wins, st.BestStreak, st.CoinsWon)
	}
	return b.String()
}

func (s *State) handleStats(ctx context.Context, msg Message, args []string) string {
	kind, _ := parseKind(args)
	st, err := s.srv.PlayerStats(ctx, msg.Scope.GuildID, msg.Sender.ID, kind)
	if errors.Is(err, server.ErrNoStats) {
		return fmt.Sprintf("You have not finished a %s game yet.", render.GameTitle(kind))
	}
	if err != nil {
		return "Error loading stats: " + err.Error()
	}
	text := fmt.Sprintf("%s stats for %s: %d games, %d wins, %d losses", render.GameTitle(kind), st.Name, st.Games, st.Wins, st.Losses)
	if kind == game.KindBanker {
		text += fmt.Sprintf(", %d pushes", st.Pushes)
	}
	text += fmt.Sprintf("\nCoins won %d, lost %d, highest win %d\nStreak %d (best %d)",
		st.CoinsWon, st.CoinsLost, st.HighestWin, st.CurrentStreak, st.BestStreak)
	tiers := make([]string, 0, len(st.TierWins))
	for tier := range st.TierWins {
		if tier != "Plain" {
			tiers = append(tiers, tier)
		}
	}
	if len(tiers) > 0 {
		sort.Strings(tiers)
		text += "\nWinning hands:"
		for _, tier := range tiers {
			text += fmt.Sprintf(" %s %d", tier, st.TierWins[tier])
		}
	}
	return text
}

func (s *State) handleHistory(ctx context.Context, msg Message, args []string) string {
	kind, _ := parseKind(args)
	games, err := s.srv.History(ctx, msg.Scope.GuildID, kind, 5)
	if err != nil {
		return "Error loading history: " + err.Error()
	}
	if len(games) == 0 {
		return "No games recorded yet."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Recent %s games:", render.GameTitle(kind))
	for _, g := range games {
		fmt.Fprintf(&b, "\n%s #%s pot %d", g.CreatedAt.Format("Jan 2 15:04"), g.ChannelID, g.Pot)
		if g.WinnerID != "" {
			fmt.Fprintf(&b, ", won by %s", g.WinnerID)
		}
		if g.WinnerTier != "" {
			fmt.Fprintf(&b, " (%s)", g.WinnerTier)
		}
	}
	return b.String()
}

func (s *State) handleRooms(msg Message) string {
	rooms := s.srv.ListRooms(msg.Scope.GuildID)
	if len(rooms) == 0 {
		return "No active rooms."
	}
	var b strings.Builder
	b.WriteString("Active rooms:")
	for _, r := range rooms {
		fmt.Fprintf(&b, "\n#%s %s: %s, stake %d, %d/%d players, open since %s",
			r.Scope.ChannelID, render.GameTitle(r.Game), r.Status, r.Stake, r.Players, game.MaxPlayers,
			r.CreatedAt.Format("15:04"))
	}
	return b.String()
}
