package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/evgeniytob14/table/internal/repository"
	_ "github.com/mattn/go-sqlite3" // sqlite driver
)

// Repository represents a data repository that interacts with the database
// and provides logging capabilities. It holds a reference to the database
// and a logger instance for logging operations.
type Repository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewRepository opens (or creates) the database file at storagePath and
// prepares the shared schema. It returns a pointer to the newly created
// Repository.
func NewRepository(ctx context.Context, log *slog.Logger, storagePath string) (*Repository, error) {
	// Open (or create if it doesn't exist) the database file.
	dtb, err := sql.Open("sqlite3", fmt.Sprintf("%s?_pragma=foreign_keys(1)", storagePath))
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// Check if the connection is actually established.
	if err = dtb.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("unable to establish connection to database: %w", err)
	}

	// Perform the initial schema migration.
	if err = initSchema(ctx, dtb); err != nil {
		return nil, fmt.Errorf("DB schema initialization error: %w", err)
	}

	return &Repository{db: dtb, log: log}, nil
}

// NewForTest wraps an existing database handle, bypassing schema setup.
func NewForTest(dtb *sql.DB) *Repository {
	return &Repository{db: dtb, log: slog.Default()}
}

// initSchema creates the shared tables if they don't already exist. The
// per-source item tables are created on source registration instead.
func initSchema(ctx context.Context, dtb *sql.DB) error {
	const migrationQuery = `
	CREATE TABLE IF NOT EXISTS profiles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		source_a TEXT NOT NULL,
		source_b TEXT NOT NULL,
		min_profit_percent REAL NOT NULL,
		hide_overstock INTEGER DEFAULT 0,
		is_active INTEGER DEFAULT 1,
		alerts_enabled INTEGER DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS notification_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		profile_id INTEGER NOT NULL,
		item_name TEXT NOT NULL,
		profit_percent REAL NOT NULL,
		was_unavailable INTEGER DEFAULT 0,
		timestamp TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_notification_logs_profile
		ON notification_logs(profile_id, item_name, timestamp);
	`
	_, err := dtb.ExecContext(ctx, migrationQuery)
	if err != nil {
		return fmt.Errorf("failed to execute migration query: %w", err)
	}

	return nil
}

// sourceIDPattern restricts ids that may become part of a table name.
var sourceIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// itemTable maps a source id to its table name. Characters that are not
// valid in an identifier are folded to underscores.
func itemTable(sourceID string) (string, error) {
	if !sourceIDPattern.MatchString(sourceID) {
		return "", fmt.Errorf("%w: %q", repository.ErrInvalidSourceID, sourceID)
	}

	safe := make([]rune, 0, len(sourceID))
	for _, r := range sourceID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			safe = append(safe, r)
		default:
			safe = append(safe, '_')
		}
	}

	return "items_" + string(safe), nil
}

// Close closes the connection to the database.
func (r *Repository) Close() error {
	if err := r.db.Close(); err != nil {
		r.log.Error("failed to close the database", "op", "repository.sqlite.Close", "error", err)
		return fmt.Errorf("failed to close the database: %w", err)
	}

	return nil
}

// DB is a getter for database handler.
func (r *Repository) DB() *sql.DB {
	return r.db
}
