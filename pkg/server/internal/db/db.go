package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// StartingBalance is the balance of a newly created wallet.
const StartingBalance = 1000

// DailyReward is the amount granted by ClaimDaily.
const DailyReward = 500

// ErrAlreadyClaimed is returned by ClaimDaily when the reward was taken
// earlier the same calendar day.
var ErrAlreadyClaimed = errors.New("daily reward already claimed")

// ErrNotFound is returned when a wallet or stats row does not exist.
var ErrNotFound = errors.New("not found")

// ErrInsufficientBalance is returned by DebitIfCovered when the wallet
// holds less than the amount.
var ErrInsufficientBalance = errors.New("insufficient balance")

// DB represents the database connection
type DB struct {
	*sql.DB
	now func() time.Time
}

// NewDB opens the sqlite database at dbPath and creates the schema.
// ":memory:" style paths are fine for tests.
func NewDB(dbPath string) (*DB, error) {
	sqldb, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	// sqlite serializes writers; a single connection also keeps an
	// in-memory database alive for the lifetime of DB.
	sqldb.SetMaxOpenConns(1)

	if err := createTables(sqldb); err != nil {
		sqldb.Close()
		return nil, err
	}
	return &DB{DB: sqldb, now: time.Now}, nil
}

// SetClock overrides the time source, used for daily claims.
func (db *DB) SetClock(now func() time.Time) {
	db.now = now
}

// createTables creates the necessary database tables
func createTables(db *sql.DB) error {
	stmts := []string{`
		CREATE TABLE IF NOT EXISTS wallets (
			player_id TEXT NOT NULL,
			guild_id TEXT NOT NULL,
			name TEXT NOT NULL,
			balance INTEGER NOT NULL DEFAULT 0,
			total_won INTEGER NOT NULL DEFAULT 0,
			total_lost INTEGER NOT NULL DEFAULT 0,
			last_daily TIMESTAMP,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (player_id, guild_id)
		)`, `
		CREATE TABLE IF NOT EXISTS transactions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			player_id TEXT NOT NULL,
			guild_id TEXT NOT NULL,
			amount INTEGER NOT NULL,
			type TEXT NOT NULL,
			description TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`, `
		CREATE TABLE IF NOT EXISTS stats (
			player_id TEXT NOT NULL,
			guild_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			name TEXT NOT NULL,
			games INTEGER NOT NULL DEFAULT 0,
			wins INTEGER NOT NULL DEFAULT 0,
			losses INTEGER NOT NULL DEFAULT 0,
			pushes INTEGER NOT NULL DEFAULT 0,
			coins_won INTEGER NOT NULL DEFAULT 0,
			coins_lost INTEGER NOT NULL DEFAULT 0,
			current_streak INTEGER NOT NULL DEFAULT 0,
			best_streak INTEGER NOT NULL DEFAULT 0,
			highest_win INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (player_id, guild_id, kind)
		)`, `
		CREATE TABLE IF NOT EXISTS tier_wins (
			player_id TEXT NOT NULL,
			guild_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			tier TEXT NOT NULL,
			count INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (player_id, guild_id, kind, tier)
		)`, `
		CREATE TABLE IF NOT EXISTS games (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			guild_id TEXT NOT NULL,
			channel_id TEXT NOT NULL,
			winner_id TEXT,
			winner_tier TEXT,
			pot INTEGER NOT NULL,
			hands TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	return nil
}

// Wallet is a player's balance in one guild.
type Wallet struct {
	PlayerID  string
	GuildID   string
	Name      string
	Balance   int64
	TotalWon  int64
	TotalLost int64
	LastDaily *time.Time
}

func ensureWallet(ctx context.Context, tx *sql.Tx, playerID, name, guildID string) error {
	if name == "" {
		name = playerID
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO wallets (player_id, guild_id, name, balance)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(player_id, guild_id) DO NOTHING
	`, playerID, guildID, name, StartingBalance)
	return err
}

// GetOrCreateWallet returns the wallet, creating it with StartingBalance
// when missing.
func (db *DB) GetOrCreateWallet(ctx context.Context, playerID, name, guildID string) (*Wallet, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := ensureWallet(ctx, tx, playerID, name, guildID); err != nil {
		return nil, fmt.Errorf("creating wallet: %w", err)
	}
	w, err := scanWallet(tx.QueryRowContext(ctx, walletQuery, playerID, guildID))
	if err != nil {
		return nil, err
	}
	return w, tx.Commit()
}

const walletQuery = `
	SELECT player_id, guild_id, name, balance, total_won, total_lost, last_daily
	FROM wallets WHERE player_id = ? AND guild_id = ?`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWallet(row rowScanner) (*Wallet, error) {
	var (
		w    Wallet
		last sql.NullTime
	)
	err := row.Scan(&w.PlayerID, &w.GuildID, &w.Name, &w.Balance, &w.TotalWon, &w.TotalLost, &last)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read wallet: %w", err)
	}
	if last.Valid {
		t := last.Time
		w.LastDaily = &t
	}
	return &w, nil
}

// GetPlayerBalance returns the balance of the player's wallet in guildID,
// creating the wallet when missing.
func (db *DB) GetPlayerBalance(ctx context.Context, playerID, name, guildID string) (int64, error) {
	w, err := db.GetOrCreateWallet(ctx, playerID, name, guildID)
	if err != nil {
		return 0, err
	}
	return w.Balance, nil
}

// UpdatePlayerBalance adds amount (negative to subtract) to the wallet and
// records the transaction. Positive amounts of type "credit" count toward
// total_won, negative "debit" amounts toward total_lost; refunds and daily
// rewards count toward neither.
func (db *DB) UpdatePlayerBalance(ctx context.Context, playerID, guildID string, amount int64, transactionType, description string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := ensureWallet(ctx, tx, playerID, "", guildID); err != nil {
		return fmt.Errorf("creating wallet: %w", err)
	}

	var won, lost int64
	switch {
	case transactionType == "credit" && amount > 0:
		won = amount
	case transactionType == "debit" && amount < 0:
		lost = -amount
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE wallets
		SET balance = balance + ?, total_won = total_won + ?, total_lost = total_lost + ?
		WHERE player_id = ? AND guild_id = ?
	`, amount, won, lost, playerID, guildID)
	if err != nil {
		return err
	}

	// Record transaction
	_, err = tx.ExecContext(ctx, `
		INSERT INTO transactions (player_id, guild_id, amount, type, description)
		VALUES (?, ?, ?, ?, ?)
	`, playerID, guildID, amount, transactionType, description)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// DebitIfCovered subtracts amount from the wallet only when the balance
// covers it. The check and the update are one statement, so concurrent
// debits of the same wallet cannot overdraw it.
func (db *DB) DebitIfCovered(ctx context.Context, playerID, guildID string, amount int64, description string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := ensureWallet(ctx, tx, playerID, "", guildID); err != nil {
		return fmt.Errorf("creating wallet: %w", err)
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE wallets
		SET balance = balance - ?, total_lost = total_lost + ?
		WHERE player_id = ? AND guild_id = ? AND balance >= ?
	`, amount, amount, playerID, guildID, amount)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInsufficientBalance
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (player_id, guild_id, amount, type, description)
		VALUES (?, ?, ?, 'debit', ?)
	`, playerID, guildID, -amount, description); err != nil {
		return err
	}
	return tx.Commit()
}

// ClaimDaily grants DailyReward once per calendar day.
func (db *DB) ClaimDaily(ctx context.Context, playerID, name, guildID string) (int64, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if err := ensureWallet(ctx, tx, playerID, name, guildID); err != nil {
		return 0, fmt.Errorf("creating wallet: %w", err)
	}
	w, err := scanWallet(tx.QueryRowContext(ctx, walletQuery, playerID, guildID))
	if err != nil {
		return 0, err
	}
	now := db.now()
	if w.LastDaily != nil && sameDay(w.LastDaily.In(now.Location()), now) {
		return w.Balance, ErrAlreadyClaimed
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE wallets SET balance = balance + ?, last_daily = ?
		WHERE player_id = ? AND guild_id = ?
	`, DailyReward, now, playerID, guildID); err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (player_id, guild_id, amount, type, description)
		VALUES (?, ?, ?, 'daily', 'daily reward')
	`, playerID, guildID, DailyReward); err != nil {
		return 0, err
	}
	return w.Balance + DailyReward, tx.Commit()
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Transaction represents a ledger movement.
type Transaction struct {
	ID          int64
	PlayerID    string
	GuildID     string
	Amount      int64
	Type        string
	Description string
	CreatedAt   time.Time
}

// Transactions returns the most recent movements of a player, newest first.
func (db *DB) Transactions(ctx context.Context, playerID, guildID string, limit int) ([]Transaction, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, player_id, guild_id, amount, type, COALESCE(description, ''), created_at
		FROM transactions WHERE player_id = ? AND guild_id = ?
		ORDER BY id DESC LIMIT ?
	`, playerID, guildID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.PlayerID, &t.GuildID, &t.Amount, &t.Type, &t.Description, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// RichestWallets returns the guild's wallets ordered by balance.
func (db *DB) RichestWallets(ctx context.Context, guildID string, limit int) ([]Wallet, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT player_id, guild_id, name, balance, total_won, total_lost, last_daily
		FROM wallets WHERE guild_id = ?
		ORDER BY balance DESC, player_id LIMIT ?
	`, guildID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *w)
	}
	return out, rows.Err()
}

// Stats are a player's results in one game kind within a guild.
type Stats struct {
	PlayerID      string
	GuildID       string
	Kind          string
	Name          string
	Games         int
	Wins          int
	Losses        int
	Pushes        int
	CoinsWon      int64
	CoinsLost     int64
	CurrentStreak int
	BestStreak    int
	HighestWin    int64
	TierWins      map[string]int
}

func ensureStats(ctx context.Context, tx *sql.Tx, playerID, guildID, kind, name string) error {
	if name == "" {
		name = playerID
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO stats (player_id, guild_id, kind, name) VALUES (?, ?, ?, ?)
		ON CONFLICT(player_id, guild_id, kind) DO UPDATE SET name = excluded.name
	`, playerID, guildID, kind, name)
	return err
}

// RecordWin counts a win of amount coins, extends the streak and bumps the
// counter of tier.
func (db *DB) RecordWin(ctx context.Context, playerID, name, guildID, kind string, amount int64, tier string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := ensureStats(ctx, tx, playerID, guildID, kind, name); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE stats SET
			games = games + 1,
			wins = wins + 1,
			coins_won = coins_won + ?,
			current_streak = current_streak + 1,
			best_streak = MAX(best_streak, current_streak + 1),
			highest_win = MAX(highest_win, ?)
		WHERE player_id = ? AND guild_id = ? AND kind = ?
	`, amount, amount, playerID, guildID, kind)
	if err != nil {
		return err
	}
	if tier != "" {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO tier_wins (player_id, guild_id, kind, tier, count) VALUES (?, ?, ?, ?, 1)
			ON CONFLICT(player_id, guild_id, kind, tier) DO UPDATE SET count = count + 1
		`, playerID, guildID, kind, tier)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// RecordLoss counts a loss of amount coins and resets the streak.
func (db *DB) RecordLoss(ctx context.Context, playerID, name, guildID, kind string, amount int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := ensureStats(ctx, tx, playerID, guildID, kind, name); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE stats SET
			games = games + 1,
			losses = losses + 1,
			coins_lost = coins_lost + ?,
			current_streak = 0
		WHERE player_id = ? AND guild_id = ? AND kind = ?
	`, amount, playerID, guildID, kind)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// RecordPush counts a game that returned the stake. The streak is kept.
func (db *DB) RecordPush(ctx context.Context, playerID, name, guildID, kind string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := ensureStats(ctx, tx, playerID, guildID, kind, name); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE stats SET games = games + 1, pushes = pushes + 1
		WHERE player_id = ? AND guild_id = ? AND kind = ?
	`, playerID, guildID, kind)
	if err != nil {
		return err
	}
	return tx.Commit()
}

const statsColumns = `player_id, guild_id, kind, name, games, wins, losses, pushes,
	coins_won, coins_lost, current_streak, best_streak, highest_win`

func scanStats(row rowScanner) (*Stats, error) {
	var s Stats
	err := row.Scan(&s.PlayerID, &s.GuildID, &s.Kind, &s.Name, &s.Games, &s.Wins, &s.Losses, &s.Pushes,
		&s.CoinsWon, &s.CoinsLost, &s.CurrentStreak, &s.BestStreak, &s.HighestWin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read stats: %w", err)
	}
	return &s, nil
}

// GetStats returns a player's stats including tier counters.
func (db *DB) GetStats(ctx context.Context, playerID, guildID, kind string) (*Stats, error) {
	s, err := scanStats(db.QueryRowContext(ctx, `SELECT `+statsColumns+`
		FROM stats WHERE player_id = ? AND guild_id = ? AND kind = ?`, playerID, guildID, kind))
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `
		SELECT tier, count FROM tier_wins WHERE player_id = ? AND guild_id = ? AND kind = ?
	`, playerID, guildID, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	s.TierWins = make(map[string]int)
	for rows.Next() {
		var (
			tier  string
			count int
		)
		if err := rows.Scan(&tier, &count); err != nil {
			return nil, err
		}
		s.TierWins[tier] = count
	}
	return s, rows.Err()
}

// LeaderboardOrder selects the ranking column of Leaderboard.
type LeaderboardOrder string

const (
	ByWins     LeaderboardOrder = "wins"
	ByStreak   LeaderboardOrder = "best_streak"
	ByCoinsWon LeaderboardOrder = "coins_won"
)

// Leaderboard returns the top players of a game kind in a guild.
func (db *DB) Leaderboard(ctx context.Context, guildID, kind string, order LeaderboardOrder, limit int) ([]Stats, error) {
	switch order {
	case ByWins, ByStreak, ByCoinsWon:
	default:
		return nil, fmt.Errorf("unknown leaderboard order %q", order)
	}
	rows, err := db.QueryContext(ctx, `SELECT `+statsColumns+`
		FROM stats WHERE guild_id = ? AND kind = ?
		ORDER BY `+string(order)+` DESC, player_id LIMIT ?`, guildID, kind, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Stats
	for rows.Next() {
		s, err := scanStats(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// GameRecord is a stored finished game.
type GameRecord struct {
	ID         string
	Kind       string
	GuildID    string
	ChannelID  string
	WinnerID   string
	WinnerTier string
	Pot        int64
	Hands      json.RawMessage
	CreatedAt  time.Time
}

// SaveGame stores a finished game under a fresh id.
func (db *DB) SaveGame(ctx context.Context, rec *GameRecord) (string, error) {
	id := uuid.NewString()
	created := rec.CreatedAt
	if created.IsZero() {
		created = db.now()
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO games (id, kind, guild_id, channel_id, winner_id, winner_tier, pot, hands, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, rec.Kind, rec.GuildID, rec.ChannelID, rec.WinnerID, rec.WinnerTier, rec.Pot, string(rec.Hands), created)
	if err != nil {
		return "", fmt.Errorf("failed to save game: %w", err)
	}
	return id, nil
}

// RecentGames returns the guild's latest games of kind, newest first.
func (db *DB) RecentGames(ctx context.Context, guildID, kind string, limit int) ([]GameRecord, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, kind, guild_id, channel_id, COALESCE(winner_id, ''), COALESCE(winner_tier, ''), pot, hands, created_at
		FROM games WHERE guild_id = ? AND kind = ?
		ORDER BY created_at DESC, rowid DESC LIMIT ?
	`, guildID, kind, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GameRecord
	for rows.Next() {
		var (
			g     GameRecord
			hands string
		)
		if err := rows.Scan(&g.ID, &g.Kind, &g.GuildID, &g.ChannelID, &g.WinnerID, &g.WinnerTier, &g.Pot, &hands, &g.CreatedAt); err != nil {
			return nil, err
		}
		g.Hands = json.RawMessage(hands)
		out = append(out, g)
	}
	return out, rows.Err()
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}
