package repository

import (
	"database/sql"
	"fmt"
	"time"

	"famhealth/internal/database"
	"famhealth/internal/models"
)

// CodeRepository stores emailed one-time sign-in codes
type CodeRepository struct {
	db *database.DB
}

// NewCodeRepository creates a new code repository
func NewCodeRepository(db *database.DB) *CodeRepository {
	return &CodeRepository{db: db}
}

// CreateCode stores a hashed code for email
func (r *CodeRepository) CreateCode(email, codeHash string, expiresAt time.Time) (*models.OneTimeCode, error) {
	now := time.Now().UTC()
	query := `
		INSERT INTO one_time_codes (email, code_hash, attempts, expires_at, created_at)
		VALUES (?, ?, 0, ?, ?)
	`
	id, err := r.db.ExecReturningID(query, email, codeHash, expiresAt.UTC(), now)
	if err != nil {
		return nil, fmt.Errorf("failed to create one-time code: %w", err)
	}
	return &models.OneTimeCode{
		ID:        id,
		Email:     email,
		CodeHash:  codeHash,
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: now,
	}, nil
}

// GetLatestCode returns the most recently issued code for email
func (r *CodeRepository) GetLatestCode(email string) (*models.OneTimeCode, error) {
	query := `
		SELECT id, email, code_hash, attempts, expires_at, used_at, created_at
		FROM one_time_codes
		WHERE email = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	code := &models.OneTimeCode{}
	var usedAt sql.NullTime
	err := r.db.QueryRow(query, email).Scan(
		&code.ID,
		&code.Email,
		&code.CodeHash,
		&code.Attempts,
		&code.ExpiresAt,
		&usedAt,
		&code.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get one-time code: %w", err)
	}
	code.UsedAt = timePtr(usedAt)
	return code, nil
}

// CountCodesSince counts codes issued for email after since
func (r *CodeRepository) CountCodesSince(email string, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRow("SELECT COUNT(*) FROM one_time_codes WHERE email = ? AND created_at > ?", email, since.UTC()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count one-time codes: %w", err)
	}
	return n, nil
}

// ClaimAttempt reserves one verification attempt for an unused code.
// It reports false once max attempts have been claimed or the code is used.
func (r *CodeRepository) ClaimAttempt(id int64, max int) (bool, error) {
	result, err := r.db.Exec(
		"UPDATE one_time_codes SET attempts = attempts + 1 WHERE id = ? AND attempts < ? AND used_at IS NULL",
		id, max,
	)
	if err != nil {
		return false, fmt.Errorf("failed to record code attempt: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read code attempt: %w", err)
	}
	return n == 1, nil
}

// MarkUsed redeems a code. It reports false if the code was already used.
func (r *CodeRepository) MarkUsed(id int64) (bool, error) {
	result, err := r.db.Exec("UPDATE one_time_codes SET used_at = ? WHERE id = ? AND used_at IS NULL", time.Now().UTC(), id)
	if err != nil {
		return false, fmt.Errorf("failed to mark code used: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read code update: %w", err)
	}
	return n == 1, nil
}

// DeleteExpiredCodes removes codes past their expiry
func (r *CodeRepository) DeleteExpiredCodes() (int64, error) {
	result, err := r.db.Exec("DELETE FROM one_time_codes WHERE expires_at < ?", time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired codes: %w", err)
	}
	return result.RowsAffected()
}
