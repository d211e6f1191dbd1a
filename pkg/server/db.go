package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vctt94/tablegames/pkg/game"
	"github.com/vctt94/tablegames/pkg/server/internal/db"
)

// Database defines the persistence the server needs: the coin ledger, the
// stats recorder and the queries behind the wallet commands.
type Database interface {
	game.Ledger
	game.StatsRecorder

	// ClaimDaily grants the daily reward and returns the new balance.
	ClaimDaily(ctx context.Context, playerID, name, guildID string) (int64, error)
	Wallet(ctx context.Context, playerID, name, guildID string) (*Wallet, error)
	Transactions(ctx context.Context, playerID, guildID string, limit int) ([]Transaction, error)
	RichestWallets(ctx context.Context, guildID string, limit int) ([]Wallet, error)

	Stats(ctx context.Context, playerID, guildID string, kind game.Kind) (*Stats, error)
	Leaderboard(ctx context.Context, guildID string, kind game.Kind, order LeaderboardOrder, limit int) ([]Stats, error)
	RecentGames(ctx context.Context, guildID string, kind game.Kind, limit int) ([]GameSummary, error)

	// Close closes the database connection
	Close() error
}

type (
	Wallet           = db.Wallet
	Transaction      = db.Transaction
	Stats            = db.Stats
	GameSummary      = db.GameRecord
	LeaderboardOrder = db.LeaderboardOrder
)

// Leaderboard orderings.
const (
	ByWins     = db.ByWins
	ByStreak   = db.ByStreak
	ByCoinsWon = db.ByCoinsWon
)

// ErrNoStats is returned when a player has no recorded games of a kind.
var ErrNoStats = errors.New("no games recorded")

// StartingBalance is the balance of a new wallet.
const StartingBalance = db.StartingBalance

// DailyReward is the amount granted once per calendar day.
const DailyReward = db.DailyReward

// NewDatabase opens the sqlite store at dbPath, creating its directory.
func NewDatabase(dbPath string) (Database, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %v", err)
		}
	}
	d, err := db.NewDB(dbPath)
	if err != nil {
		return nil, err
	}
	return &store{db: d}, nil
}

// newDatabaseWithClock is NewDatabase with an overridden time source.
func newDatabaseWithClock(dbPath string, now func() time.Time) (Database, error) {
	d, err := NewDatabase(dbPath)
	if err != nil {
		return nil, err
	}
	d.(*store).db.SetClock(now)
	return d, nil
}

// store adapts the sqlite tables to the engine's ledger and stats
// collaborators.
type store struct {
	db *db.DB
}

var (
	_ game.Ledger        = (*store)(nil)
	_ game.StatsRecorder = (*store)(nil)
)

func (s *store) Balance(ctx context.Context, playerID, name, guildID string) (int64, error) {
	return s.db.GetPlayerBalance(ctx, playerID, name, guildID)
}

func (s *store) Stake(ctx context.Context, playerID, guildID string, amount int64, reason string) error {
	err := s.db.DebitIfCovered(ctx, playerID, guildID, amount, reason)
	if errors.Is(err, db.ErrInsufficientBalance) {
		return game.ErrInsufficientFunds
	}
	return err
}

func (s *store) Debit(ctx context.Context, playerID, guildID string, amount int64, reason string) error {
	return s.db.UpdatePlayerBalance(ctx, playerID, guildID, -amount, "debit", reason)
}

func (s *store) Credit(ctx context.Context, playerID, guildID string, amount int64, reason string) error {
	return s.db.UpdatePlayerBalance(ctx, playerID, guildID, amount, "credit", reason)
}

func (s *store) Refund(ctx context.Context, playerID, guildID string, amount int64, reason string) error {
	return s.db.UpdatePlayerBalance(ctx, playerID, guildID, amount, "refund", reason)
}

func (s *store) ClaimDaily(ctx context.Context, playerID, name, guildID string) (int64, error) {
	bal, err := s.db.ClaimDaily(ctx, playerID, name, guildID)
	if errors.Is(err, db.ErrAlreadyClaimed) {
		return bal, game.ErrAlreadyClaimed
	}
	return bal, err
}

func (s *store) Wallet(ctx context.Context, playerID, name, guildID string) (*Wallet, error) {
	return s.db.GetOrCreateWallet(ctx, playerID, name, guildID)
}

func (s *store) Transactions(ctx context.Context, playerID, guildID string, limit int) ([]Transaction, error) {
	return s.db.Transactions(ctx, playerID, guildID, limit)
}

func (s *store) RichestWallets(ctx context.Context, guildID string, limit int) ([]Wallet, error) {
	return s.db.RichestWallets(ctx, guildID, limit)
}

func (s *store) RecordWin(ctx context.Context, kind game.Kind, guildID string, seat game.Seat, amount int64, tier string) error {
	return s.db.RecordWin(ctx, seat.ID, seat.Name, guildID, string(kind), amount, tier)
}

func (s *store) RecordLoss(ctx context.Context, kind game.Kind, guildID string, seat game.Seat, amount int64) error {
	return s.db.RecordLoss(ctx, seat.ID, seat.Name, guildID, string(kind), amount)
}

func (s *store) RecordPush(ctx context.Context, kind game.Kind, guildID string, seat game.Seat) error {
	return s.db.RecordPush(ctx, seat.ID, seat.Name, guildID, string(kind))
}

func (s *store) SaveGame(ctx context.Context, rec *game.GameRecord) (string, error) {
	hands, err := json.Marshal(rec.Hands)
	if err != nil {
		return "", fmt.Errorf("encoding hands: %w", err)
	}
	return s.db.SaveGame(ctx, &db.GameRecord{
		Kind:       string(rec.Kind),
		GuildID:    rec.Scope.GuildID,
		ChannelID:  rec.Scope.ChannelID,
		WinnerID:   rec.WinnerID,
		WinnerTier: rec.WinnerTier,
		Pot:        rec.Pot,
		Hands:      hands,
	})
}

func (s *store) Stats(ctx context.Context, playerID, guildID string, kind game.Kind) (*Stats, error) {
	st, err := s.db.GetStats(ctx, playerID, guildID, string(kind))
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrNoStats
	}
	return st, err
}

func (s *store) Leaderboard(ctx context.Context, guildID string, kind game.Kind, order LeaderboardOrder, limit int) ([]Stats, error) {
	return s.db.Leaderboard(ctx, guildID, string(kind), order, limit)
}

func (s *store) RecentGames(ctx context.Context, guildID string, kind game.Kind, limit int) ([]GameSummary, error) {
	return s.db.RecentGames(ctx, guildID, string(kind), limit)
}

func (s *store) Close() error {
	return s.db.Close()
}
