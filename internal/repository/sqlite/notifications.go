package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/evgeniytob14/table/internal/models"
)

// LogNotification appends one record to the alert log.
func (r *Repository) LogNotification(ctx context.Context, record models.NotificationRecord) error {
	const opn = "repository.sqlite.LogNotification"

	timestamp := record.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notification_logs (profile_id, item_name, profit_percent, was_unavailable, timestamp)
		VALUES (?, ?, ?, ?, ?)`,
		record.ProfileID,
		record.ItemName,
		record.ProfitPercent,
		boolToInt(record.WasUnavailable),
		timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("%s: failed to insert notification record: %w", opn, err)
	}

	return nil
}

// LatestNotifications returns the most recent record per item name for one
// profile. Rows arrive newest first, the first hit per name wins.
func (r *Repository) LatestNotifications(
	ctx context.Context,
	profileID int64,
) (map[string]models.NotificationRecord, error) {
	const opn = "repository.sqlite.LatestNotifications"

	rows, err := r.db.QueryContext(ctx, `
		SELECT item_name, profit_percent, was_unavailable, timestamp
		FROM notification_logs
		WHERE profile_id = ?
		ORDER BY timestamp DESC`, profileID)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get notification records: %w", opn, err)
	}
	defer rows.Close()

	latest := make(map[string]models.NotificationRecord)
	for rows.Next() {
		var record models.NotificationRecord
		var wasUnavailable int
		var rawTime string
		if err = rows.Scan(&record.ItemName, &record.ProfitPercent, &wasUnavailable, &rawTime); err != nil {
			return nil, fmt.Errorf("%s: failed to scan notification record: %w", opn, err)
		}
		if _, seen := latest[record.ItemName]; seen {
			continue
		}
		record.ProfileID = profileID
		record.WasUnavailable = wasUnavailable == 1
		if timestamp, parseErr := time.Parse(time.RFC3339Nano, rawTime); parseErr == nil {
			record.Timestamp = timestamp
		}
		latest[record.ItemName] = record
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows iteration error: %w", opn, err)
	}

	return latest, nil
}
