package repository

import (
	"database/sql"
	"fmt"
	"time"

	"famhealth/internal/database"
	"famhealth/internal/models"
)

// ProfileRepository handles the account holder's own profile
type ProfileRepository struct {
	db *database.DB
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *database.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// GetProfile returns the user's profile, or nil if none exists
func (r *ProfileRepository) GetProfile(userID string) (*models.Profile, error) {
	query := `
		SELECT user_id, full_name, date_of_birth, sex, blood_type, phone, emergency_contact, updated_at
		FROM profiles
		WHERE user_id = ?
	`
	p := &models.Profile{}
	var dob sql.NullTime
	err := r.db.QueryRow(query, userID).Scan(
		&p.UserID,
		&p.FullName,
		&dob,
		&p.Sex,
		&p.BloodType,
		&p.Phone,
		&p.EmergencyContact,
		&p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	p.DateOfBirth = timePtr(dob)
	return p, nil
}

// EnsureProfile creates an empty profile row if the user has none
func (r *ProfileRepository) EnsureProfile(userID string) error {
	existing, err := r.GetProfile(userID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	return r.InsertProfile(&models.Profile{UserID: userID})
}

// InsertProfile stores a new profile row
func (r *ProfileRepository) InsertProfile(p *models.Profile) error {
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO profiles (user_id, full_name, date_of_birth, sex, blood_type, phone, emergency_contact, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, p.UserID, p.FullName, nullableTime(p.DateOfBirth), p.Sex, p.BloodType,
		p.Phone, p.EmergencyContact, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

// UpdateProfile overwrites the editable profile fields
func (r *ProfileRepository) UpdateProfile(p *models.Profile) error {
	p.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE profiles
		SET full_name = ?, date_of_birth = ?, sex = ?, blood_type = ?, phone = ?, emergency_contact = ?, updated_at = ?
		WHERE user_id = ?
	`
	_, err := r.db.Exec(query, p.FullName, nullableTime(p.DateOfBirth), p.Sex, p.BloodType,
		p.Phone, p.EmergencyContact, p.UpdatedAt, p.UserID)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return nil
}

// GetAllProfiles retrieves every profile
func (r *ProfileRepository) GetAllProfiles() ([]models.Profile, error) {
	rows, err := r.db.Query(`
		SELECT user_id, full_name, date_of_birth, sex, blood_type, phone, emergency_contact, updated_at
		FROM profiles
		ORDER BY user_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer rows.Close()

	var profiles []models.Profile
	for rows.Next() {
		var p models.Profile
		var dob sql.NullTime
		if err := rows.Scan(&p.UserID, &p.FullName, &dob, &p.Sex, &p.BloodType, &p.Phone, &p.EmergencyContact, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		p.DateOfBirth = timePtr(dob)
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}
