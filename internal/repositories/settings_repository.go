package repositories

import (
	"context"
	"database/sql"
	"errors"

	"tms/internal/domain/models"
)

type SettingsRepository struct {
	DB *sql.DB
}

func (r SettingsRepository) db() *sql.DB { return pick(r.DB) }

// BookingSettings returns the stored window or the defaults when the row is missing.
func (r SettingsRepository) BookingSettings(ctx context.Context) (models.BookingSettings, error) {
	var s models.BookingSettings
	err := r.db().QueryRowContext(ctx, `
		SELECT enabled, open_days_ahead, cutoff_hours_before FROM booking_settings WHERE id = 1`).
		Scan(&s.Enabled, &s.OpenDaysAhead, &s.CutoffHoursBefore)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DefaultBookingSettings(), nil
	}
	if err != nil {
		return models.BookingSettings{}, err
	}
	return s, nil
}

func (r SettingsRepository) SaveBookingSettings(ctx context.Context, s models.BookingSettings) error {
	_, err := r.db().ExecContext(ctx, `
		INSERT INTO booking_settings (id, enabled, open_days_ahead, cutoff_hours_before)
		VALUES (1, ?, ?, ?)
		ON DUPLICATE KEY UPDATE enabled = VALUES(enabled), open_days_ahead = VALUES(open_days_ahead),
		                        cutoff_hours_before = VALUES(cutoff_hours_before)`,
		s.Enabled, s.OpenDaysAhead, s.CutoffHoursBefore)
	return err
}
