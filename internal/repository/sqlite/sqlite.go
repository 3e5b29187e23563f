// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY SQLITE?
// SQLite is an embedded database that lives inside the Go binary as a single
// file. No separate database server to run, and ":memory:" gives tests a fresh
// store per test.
//
// We use modernc.org/sqlite, a pure Go translation of SQLite, so the binary
// builds without a C toolchain.
//
// DATA LAYOUT:
// Relationships are rows, not arrays embedded in documents:
//
//	follows(follower_id, followee_id)   one row per edge
//	likes(user_id, post_id)             one row per like
//	notifications(seq, user_id, ...)    append-only log, ordered by seq
//
// "A follows B" and "B is followed by A" are two reads of the SAME row, so the
// two directions can never disagree. The composite primary keys make a second
// follow or like of the same pair impossible, even under concurrent requests.
//
// CONCURRENCY:
// The pool is capped at ONE connection. Every statement and transaction queues
// on it, so a read-modify-write inside withTx can never interleave with
// another writer. busy_timeout covers other processes holding the file lock.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sqlitedrv "modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"

	"github.com/sakif/chirp/internal/apperror"
)

// busyTimeoutMillis is how long SQLite waits on a locked database file
// before giving up with SQLITE_BUSY.
const busyTimeoutMillis = 5000

// DB wraps a sql.DB connection pool and implements every repository interface.
type DB struct {
	conn *sql.DB
}

// New creates a new SQLite database connection and runs migrations.
//
// dbPath examples:
//   - "data/chirp.db"  → file-based database (persistent)
//   - ":memory:"       → in-memory database (tests; lost on close)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// One connection: writers queue instead of racing, and an in-memory
	// database stays a single database (each new connection to ":memory:"
	// would otherwise get its own empty copy).
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	pragmas := []struct {
		stmt string
		what string
	}{
		{"PRAGMA journal_mode=WAL", "setting WAL mode"},
		{"PRAGMA foreign_keys=ON", "enabling foreign keys"},
		{fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeoutMillis), "setting busy timeout"},
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p.stmt); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", p.what, err)
		}
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the store is reachable. Used by /healthz.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return storeErr("pinging", err)
	}
	return nil
}

// migrate runs all database migrations.
//
// CREATE TABLE IF NOT EXISTS is idempotent, and columns added after the first
// release go through addColumnIfNotExists so old database files upgrade in
// place.
func (db *DB) migrate() error {
	// Phase 1: accounts.
	// handle and email compare case-insensitively. email is NULL for GitHub
	// accounts that hide their address (NULLs never collide on UNIQUE).
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			handle        TEXT NOT NULL UNIQUE COLLATE NOCASE,
			email         TEXT UNIQUE COLLATE NOCASE,
			password_hash TEXT NOT NULL DEFAULT '',
			github_id     INTEGER UNIQUE,
			bio           TEXT NOT NULL DEFAULT '',
			profile_img   TEXT NOT NULL DEFAULT '',
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// Phase 1: posts. Deleting a user removes their posts.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS posts (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			content    TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at);
		CREATE INDEX IF NOT EXISTS idx_posts_user_id ON posts(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating posts table: %w", err)
	}

	// Phase 2: image references arrived with media uploads.
	if err := db.addColumnIfNotExists("users", "cover_img", "TEXT NOT NULL DEFAULT ''"); err != nil {
		return fmt.Errorf("adding cover_img to users: %w", err)
	}
	if err := db.addColumnIfNotExists("posts", "img", "TEXT NOT NULL DEFAULT ''"); err != nil {
		return fmt.Errorf("adding img to posts: %w", err)
	}

	// Phase 3: the social graph.
	// The CHECK keeps self-edges out even if a caller skips validation.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS follows (
			follower_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			followee_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (follower_id, followee_id),
			CHECK (follower_id <> followee_id)
		);
		CREATE INDEX IF NOT EXISTS idx_follows_followee ON follows(followee_id);
	`)
	if err != nil {
		return fmt.Errorf("creating follows table: %w", err)
	}

	// A like disappears with its post, so a toggle racing a delete cannot
	// leave a like pointing at nothing.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS likes (
			user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			post_id    TEXT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, post_id)
		);
		CREATE INDEX IF NOT EXISTS idx_likes_post ON likes(post_id);
	`)
	if err != nil {
		return fmt.Errorf("creating likes table: %w", err)
	}

	// seq gives the log a total order independent of clock resolution.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS notifications (
			seq        INTEGER PRIMARY KEY AUTOINCREMENT,
			id         TEXT NOT NULL UNIQUE,
			user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			kind       TEXT NOT NULL,
			origin_id  TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, seq);
	`)
	if err != nil {
		return fmt.Errorf("creating notifications table: %w", err)
	}

	return nil
}

// addColumnIfNotExists adds a column to a table only if it doesn't already exist.
// Makes ALTER TABLE migrations idempotent: safe to run multiple times.
func (db *DB) addColumnIfNotExists(table, column, definition string) error {
	var count int
	err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`,
		table, column,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking column %s.%s: %w", table, column, err)
	}
	if count > 0 {
		return nil
	}
	_, err = db.conn.Exec(fmt.Sprintf(
		`ALTER TABLE %s ADD COLUMN %s %s`, table, column, definition,
	))
	return err
}

// withTx runs fn inside a transaction, committing if fn returns nil and
// rolling back otherwise.
//
// fn must use tx for every statement. The pool has a single connection and
// tx is holding it, so a call on db.conn from inside fn would wait forever.
func (db *DB) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return storeErr(op+": beginning transaction", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return storeErr(op+": committing", err)
	}
	return nil
}

// queryer is satisfied by both *sql.DB and *sql.Tx, so read helpers can run
// inside or outside a transaction.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// storeErr wraps a driver error with the operation that failed. Errors a
// client can sensibly retry (lock contention, deadlines) are tagged
// apperror.ErrTransient; domain errors pass through untouched.
func storeErr(op string, err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if isTransient(err) {
		return fmt.Errorf("sqlite: %s: %w", op, apperror.Transient(err))
	}
	return fmt.Errorf("sqlite: %s: %w", op, err)
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var sqlErr *sqlitedrv.Error
	if errors.As(err, &sqlErr) {
		switch sqlErr.Code() & 0xff {
		case sqlitelib.SQLITE_BUSY, sqlitelib.SQLITE_LOCKED:
			return true
		}
	}
	return false
}

// isUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY conflict.
func isUniqueViolation(err error) bool {
	var sqlErr *sqlitedrv.Error
	if !errors.As(err, &sqlErr) {
		return false
	}
	switch sqlErr.Code() {
	case sqlitelib.SQLITE_CONSTRAINT_UNIQUE, sqlitelib.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}

// userExists is used inside transactions to turn a missing reference into
// apperror.NotFound before a foreign key does it less helpfully.
func userExists(ctx context.Context, q queryer, id string) (bool, error) {
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE id = ?`, id).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}
