package sqlite

import (
	"context"
	"fmt"

	"github.com/evgeniytob14/table/internal/models"
	"github.com/evgeniytob14/table/internal/repository"
)

// CreateProfile inserts a new profile and returns its id.
func (r *Repository) CreateProfile(ctx context.Context, profile models.Profile) (int64, error) {
	const opn = "repository.sqlite.CreateProfile"

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO profiles (name, source_a, source_b, min_profit_percent, hide_overstock, is_active, alerts_enabled)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		profile.Name,
		profile.SourceA,
		profile.SourceB,
		profile.MinProfitPercent,
		boolToInt(profile.HideOverstock),
		boolToInt(profile.IsActive),
		boolToInt(profile.AlertsEnabled),
	)
	if err != nil {
		return 0, fmt.Errorf("%s: failed to insert profile: %w", opn, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%s: failed to get inserted id: %w", opn, err)
	}

	return id, nil
}

// GetProfiles returns every stored profile ordered by name.
func (r *Repository) GetProfiles(ctx context.Context) ([]models.Profile, error) {
	return r.queryProfiles(ctx, "repository.sqlite.GetProfiles", `
		SELECT id, name, source_a, source_b, min_profit_percent, hide_overstock, is_active, alerts_enabled
		FROM profiles ORDER BY name`)
}

// GetActiveProfiles returns active profiles ordered by name.
func (r *Repository) GetActiveProfiles(ctx context.Context) ([]models.Profile, error) {
	return r.queryProfiles(ctx, "repository.sqlite.GetActiveProfiles", `
		SELECT id, name, source_a, source_b, min_profit_percent, hide_overstock, is_active, alerts_enabled
		FROM profiles WHERE is_active = 1 ORDER BY name`)
}

func (r *Repository) queryProfiles(ctx context.Context, opn, query string) ([]models.Profile, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get profiles: %w", opn, err)
	}
	defer rows.Close()

	var profiles []models.Profile
	for rows.Next() {
		var profile models.Profile
		var hideOverstock, isActive, alertsEnabled int
		err = rows.Scan(
			&profile.ID,
			&profile.Name,
			&profile.SourceA,
			&profile.SourceB,
			&profile.MinProfitPercent,
			&hideOverstock,
			&isActive,
			&alertsEnabled,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to scan profile: %w", opn, err)
		}
		profile.HideOverstock = hideOverstock == 1
		profile.IsActive = isActive == 1
		profile.AlertsEnabled = alertsEnabled == 1
		profiles = append(profiles, profile)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows iteration error: %w", opn, err)
	}

	return profiles, nil
}

// UpdateProfile rewrites an existing profile.
func (r *Repository) UpdateProfile(ctx context.Context, profile models.Profile) error {
	const opn = "repository.sqlite.UpdateProfile"

	res, err := r.db.ExecContext(ctx, `
		UPDATE profiles SET
			name = ?, source_a = ?, source_b = ?, min_profit_percent = ?,
			hide_overstock = ?, is_active = ?, alerts_enabled = ?
		WHERE id = ?`,
		profile.Name,
		profile.SourceA,
		profile.SourceB,
		profile.MinProfitPercent,
		boolToInt(profile.HideOverstock),
		boolToInt(profile.IsActive),
		boolToInt(profile.AlertsEnabled),
		profile.ID,
	)
	if err != nil {
		return fmt.Errorf("%s: failed to update profile: %w", opn, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: failed to get affected rows: %w", opn, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: id %d: %w", opn, profile.ID, repository.ErrProfileNotFound)
	}

	return nil
}

// DeleteProfile removes a profile by id.
func (r *Repository) DeleteProfile(ctx context.Context, id int64) error {
	const opn = "repository.sqlite.DeleteProfile"

	res, err := r.db.ExecContext(ctx, "DELETE FROM profiles WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("%s: failed to delete profile: %w", opn, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: failed to get affected rows: %w", opn, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: id %d: %w", opn, id, repository.ErrProfileNotFound)
	}

	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
