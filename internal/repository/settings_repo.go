package repository

import (
	"database/sql"
	"fmt"

	"famhealth/internal/database"
)

type SettingsRepository struct {
	db *database.DB
}

func NewSettingsRepository(db *database.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetSetting retrieves a setting value by key. found is false when unset.
func (r *SettingsRepository) GetSetting(key string) (value string, found bool, err error) {
	err = r.db.QueryRow(`SELECT setting_value FROM settings WHERE setting_key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return value, true, nil
}

// SetSetting updates or inserts a setting
func (r *SettingsRepository) SetSetting(key, value string) error {
	if _, err := r.db.Exec(r.db.Dialect.UpsertSettingQuery(), key, value); err != nil {
		return fmt.Errorf("failed to set setting %s: %w", key, err)
	}
	return nil
}

func onboardingKey(userID string) string {
	return "onboarding_shown:" + userID
}

// IsOnboardingShown reports whether the user has seen the walkthrough
func (r *SettingsRepository) IsOnboardingShown(userID string) (bool, error) {
	value, _, err := r.GetSetting(onboardingKey(userID))
	if err != nil {
		return false, err
	}
	return value == "true", nil
}

// MarkOnboardingShown records that the walkthrough was completed
func (r *SettingsRepository) MarkOnboardingShown(userID string) error {
	return r.SetSetting(onboardingKey(userID), "true")
}
