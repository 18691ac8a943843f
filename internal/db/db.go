package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/wesm/github-issue-chat/internal/models"
)

// MemoryPath keeps the journal in process memory
const MemoryPath = ":memory:"

// DB represents the notification journal
type DB struct {
	*sql.DB
}

// New creates a new database connection
func New(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to ":memory:" is its own database, and SQLite only has
	// one writer anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db}, nil
}

// Initialize creates the database schema if it doesn't exist
func (db *DB) Initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		caller_id TEXT NOT NULL,
		repository TEXT NOT NULL,
		issue_number INTEGER NOT NULL,
		title TEXT NOT NULL,
		url TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		notified_at TIMESTAMP NOT NULL,
		UNIQUE(caller_id, repository, issue_number)
	);

	CREATE INDEX IF NOT EXISTS idx_notifications_caller
		ON notifications (caller_id, notified_at);
	`

	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// SaveNotification records a notification. It returns false without error when
// the caller was already notified about the same issue.
func (db *DB) SaveNotification(ctx context.Context, n *models.Notification) (bool, error) {
	query := `
	INSERT INTO notifications (id, caller_id, repository, issue_number, title, url, created_at, notified_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(caller_id, repository, issue_number) DO NOTHING
	`

	res, err := db.ExecContext(ctx, query,
		n.ID,
		n.CallerID,
		n.Repository,
		n.IssueNumber,
		n.Title,
		n.URL,
		n.CreatedAt.UTC(),
		n.NotifiedAt.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to save notification: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to save notification: %w", err)
	}
	return rows > 0, nil
}

// ListNotifications returns notifications newest first. An empty callerID
// lists every caller. limit <= 0 means no limit.
func (db *DB) ListNotifications(ctx context.Context, callerID string, limit int) ([]*models.Notification, error) {
	query := `
	SELECT id, caller_id, repository, issue_number, title, url, created_at, notified_at
	FROM notifications
	WHERE (? = '' OR caller_id = ?)
	ORDER BY notified_at DESC, issue_number DESC
	LIMIT ?
	`
	if limit <= 0 {
		limit = -1
	}

	rows, err := db.QueryContext(ctx, query, callerID, callerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var out []*models.Notification
	for rows.Next() {
		var n models.Notification
		var createdAt, notifiedAt time.Time
		if err := rows.Scan(&n.ID, &n.CallerID, &n.Repository, &n.IssueNumber, &n.Title, &n.URL, &createdAt, &notifiedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.CreatedAt = createdAt
		n.NotifiedAt = notifiedAt
		out = append(out, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	return out, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}
