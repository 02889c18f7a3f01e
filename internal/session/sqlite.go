// ABOUTME: SQLite implementation of the session Store using modernc.org/sqlite
// ABOUTME: One row per user with automatic schema creation and upsert writes

package session

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a session store at the given path. The schema is
// created if it doesn't exist, and parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "session-store")

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("session store initialized", "path", path)
	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS swap_sessions (
			user_id            TEXT PRIMARY KEY,
			screen             TEXT NOT NULL,
			previous_screen    TEXT NOT NULL DEFAULT '',
			input_symbol       TEXT NOT NULL DEFAULT '',
			output_symbol      TEXT NOT NULL DEFAULT '',
			amount             REAL NOT NULL DEFAULT 0,
			direction          TEXT NOT NULL DEFAULT 'input',
			slippage           REAL NOT NULL,
			max_splits         INTEGER NOT NULL,
			max_length         INTEGER NOT NULL,
			pending_route      BLOB,
			pending_request_id TEXT NOT NULL DEFAULT '',
			last_message_ref   TEXT NOT NULL DEFAULT '',
			selected_wallet    TEXT NOT NULL DEFAULT '',
			wallet_address     TEXT NOT NULL DEFAULT '',
			updated_at         TIMESTAMP NOT NULL
		);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Get returns the session for userID, or ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, userID string) (*SwapSession, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, screen, previous_screen,
		       input_symbol, output_symbol, amount, direction,
		       slippage, max_splits, max_length,
		       pending_route, pending_request_id, last_message_ref,
		       selected_wallet, wallet_address, updated_at
		FROM swap_sessions WHERE user_id = ?`, userID)

	var sess SwapSession
	var pendingRoute []byte
	err := row.Scan(
		&sess.UserID, &sess.Screen, &sess.PreviousScreen,
		&sess.Draft.InputSymbol, &sess.Draft.OutputSymbol, &sess.Draft.Amount, &sess.Draft.Direction,
		&sess.Options.Slippage, &sess.Options.MaxSplits, &sess.Options.MaxLength,
		&pendingRoute, &sess.PendingRequestID, &sess.LastMessageRef,
		&sess.SelectedWallet, &sess.WalletAddress, &sess.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}

	if len(pendingRoute) > 0 {
		sess.PendingRoute = pendingRoute
	}
	if !sess.Screen.Valid() {
		return nil, fmt.Errorf("loading session: unknown screen %q", sess.Screen)
	}
	return &sess, nil
}

// Put inserts or replaces the session.
func (s *SQLiteStore) Put(ctx context.Context, sess *SwapSession) error {
	sess.UpdatedAt = time.Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO swap_sessions (
			user_id, screen, previous_screen,
			input_symbol, output_symbol, amount, direction,
			slippage, max_splits, max_length,
			pending_route, pending_request_id, last_message_ref,
			selected_wallet, wallet_address, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			screen = excluded.screen,
			previous_screen = excluded.previous_screen,
			input_symbol = excluded.input_symbol,
			output_symbol = excluded.output_symbol,
			amount = excluded.amount,
			direction = excluded.direction,
			slippage = excluded.slippage,
			max_splits = excluded.max_splits,
			max_length = excluded.max_length,
			pending_route = excluded.pending_route,
			pending_request_id = excluded.pending_request_id,
			last_message_ref = excluded.last_message_ref,
			selected_wallet = excluded.selected_wallet,
			wallet_address = excluded.wallet_address,
			updated_at = excluded.updated_at`,
		sess.UserID, string(sess.Screen), string(sess.PreviousScreen),
		sess.Draft.InputSymbol, sess.Draft.OutputSymbol, sess.Draft.Amount, string(sess.Draft.Direction),
		sess.Options.Slippage, sess.Options.MaxSplits, sess.Options.MaxLength,
		[]byte(sess.PendingRoute), sess.PendingRequestID, sess.LastMessageRef,
		sess.SelectedWallet, sess.WalletAddress, sess.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// Delete removes the session for userID.
func (s *SQLiteStore) Delete(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM swap_sessions WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
