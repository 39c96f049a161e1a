package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/evgeniytob14/table/internal/models"
)

// EnsureSource creates the item table for sourceID if it does not exist.
func (r *Repository) EnsureSource(ctx context.Context, sourceID string) error {
	const opn = "repository.sqlite.EnsureSource"

	table, err := itemTable(sourceID)
	if err != nil {
		return fmt.Errorf("%s: %w", opn, err)
	}

	query := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		name TEXT PRIMARY KEY NOT NULL,
		price INTEGER NOT NULL,
		stock TEXT NOT NULL,
		timestamp TEXT NOT NULL
	)`, table)

	if _, err = r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("%s: failed to create table for source %s: %w", opn, sourceID, err)
	}

	return nil
}

// ReplaceItems atomically swaps the complete item set of one source using
// a transaction: readers see either the previous set or the new one.
func (r *Repository) ReplaceItems(ctx context.Context, sourceID string, items []models.Item) error {
	const opn = "repository.sqlite.ReplaceItems"

	table, err := itemTable(sourceID)
	if err != nil {
		return fmt.Errorf("%s: %w", opn, err)
	}

	// 1. begin transaction
	tx, err := r.db.BeginTx(ctx, nil) //nolint:varnamelen // tx its a default naming for transaction
	if err != nil {
		return fmt.Errorf("%s: failed to begin transaction: %w", opn, err)
	}
	defer tx.Rollback() //nolint:errcheck // Because in Go, it's common practice to ignore the Rollback() error in a defer, since if the transaction committed successfully, the rollback would just return sql.ErrTxDone and it's not useful to log or act on.

	// 2. Completely clear the table to record the new current state.
	_, err = tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", table))
	if err != nil {
		return fmt.Errorf("%s: failed to delete old items: %w", opn, err)
	}

	// 3. Preparing a request for the effective insertion of new items.
	stmt, err := tx.PrepareContext(
		ctx,
		fmt.Sprintf("INSERT OR REPLACE INTO %s (name, price, stock, timestamp) VALUES (?, ?, ?, ?)", table),
	)
	if err != nil {
		return fmt.Errorf("%s: failed to prepare insert statement: %w", opn, err)
	}
	defer stmt.Close()

	// 4. Insert each new item into the table.
	for _, item := range items {
		observedAt := item.ObservedAt
		if observedAt.IsZero() {
			observedAt = time.Now()
		}
		_, err = stmt.ExecContext(ctx, item.Name, item.Price, item.Stock, observedAt.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("%s: failed to insert item %s: %w", opn, item.Name, err)
		}
	}

	// 5. If all operations went through without errors - confirm the transaction.
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: failed to commit transaction: %w", opn, err)
	}

	return nil
}

// GetItems returns the persisted item set of one source.
func (r *Repository) GetItems(ctx context.Context, sourceID string) ([]models.Item, error) {
	const opn = "repository.sqlite.GetItems"

	table, err := itemTable(sourceID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opn, err)
	}

	rows, err := r.db.QueryContext(ctx, fmt.Sprintf("SELECT name, price, stock, timestamp FROM %s", table))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get items: %w", opn, err)
	}
	defer rows.Close()

	var items []models.Item
	for rows.Next() {
		var item models.Item
		var rawTime string
		if err = rows.Scan(&item.Name, &item.Price, &item.Stock, &rawTime); err != nil {
			return nil, fmt.Errorf("%s: failed to scan item: %w", opn, err)
		}
		item.SourceID = sourceID
		if observedAt, parseErr := time.Parse(time.RFC3339Nano, rawTime); parseErr == nil {
			item.ObservedAt = observedAt
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows iteration error: %w", opn, err)
	}

	return items, nil
}
