package repository

import (
	"database/sql"
	"fmt"
	"time"

	"famhealth/internal/database"
	"famhealth/internal/models"

	"github.com/google/uuid"
)

// FamilyRepository handles database operations for family members
type FamilyRepository struct {
	db *database.DB
}

// NewFamilyRepository creates a new family repository
func NewFamilyRepository(db *database.DB) *FamilyRepository {
	return &FamilyRepository{db: db}
}

const memberColumns = `id, user_id, name, relationship, date_of_birth, sex, blood_type, notes, created_at, updated_at`

func scanMember(row rowScanner) (*models.FamilyMember, error) {
	m := &models.FamilyMember{}
	var dob sql.NullTime
	err := row.Scan(
		&m.ID,
		&m.UserID,
		&m.Name,
		&m.Relationship,
		&dob,
		&m.Sex,
		&m.BloodType,
		&m.Notes,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	m.DateOfBirth = timePtr(dob)
	return m, err
}

// CreateMember inserts a family member, assigning an ID when missing
func (r *FamilyRepository) CreateMember(m *models.FamilyMember) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	stamp(&m.CreatedAt, &m.UpdatedAt)

	query := `
		INSERT INTO family_members (id, user_id, name, relationship, date_of_birth, sex, blood_type, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, m.ID, m.UserID, m.Name, m.Relationship, nullableTime(m.DateOfBirth),
		m.Sex, m.BloodType, m.Notes, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create family member: %w", err)
	}
	return nil
}

// GetMember retrieves a family member by ID
func (r *FamilyRepository) GetMember(id string) (*models.FamilyMember, error) {
	m, err := scanMember(r.db.QueryRow(`SELECT `+memberColumns+` FROM family_members WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family member: %w", err)
	}
	return m, nil
}

// ListMembers retrieves a user's family members ordered by name
func (r *FamilyRepository) ListMembers(userID string) ([]models.FamilyMember, error) {
	return r.queryMembers(`SELECT `+memberColumns+` FROM family_members WHERE user_id = ? ORDER BY name, created_at`, userID)
}

// GetAllMembers retrieves every family member
func (r *FamilyRepository) GetAllMembers() ([]models.FamilyMember, error) {
	return r.queryMembers(`SELECT ` + memberColumns + ` FROM family_members ORDER BY user_id, name`)
}

func (r *FamilyRepository) queryMembers(query string, args ...interface{}) ([]models.FamilyMember, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query family members: %w", err)
	}
	defer rows.Close()

	members := []models.FamilyMember{}
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan family member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

// UpdateMember overwrites a member's editable fields
func (r *FamilyRepository) UpdateMember(m *models.FamilyMember) error {
	m.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE family_members
		SET name = ?, relationship = ?, date_of_birth = ?, sex = ?, blood_type = ?, notes = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`
	_, err := r.db.Exec(query, m.Name, m.Relationship, nullableTime(m.DateOfBirth), m.Sex, m.BloodType,
		m.Notes, m.UpdatedAt, m.ID, m.UserID)
	if err != nil {
		return fmt.Errorf("failed to update family member: %w", err)
	}
	return nil
}

// recordTables hold rows keyed by member_id
var recordTables = []string{"diagnoses", "visits", "medical_tests", "documents"}

// DeleteMember removes a family member together with all of its records in
// one transaction. It returns the blob keys of the member's documents so the
// caller can remove the files.
func (r *FamilyRepository) DeleteMember(userID, memberID string) ([]string, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.Query(`SELECT file_path FROM documents WHERE owner_id = ? AND member_id = ?`, userID, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to query member documents: %w", err)
	}
	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan document path: %w", err)
		}
		paths = append(paths, p)
	}
	rows.Close()

	for _, table := range recordTables {
		if _, err := tx.Exec(`DELETE FROM `+table+` WHERE owner_id = ? AND member_id = ?`, userID, memberID); err != nil {
			return nil, fmt.Errorf("failed to delete %s: %w", table, err)
		}
	}

	result, err := tx.Exec(`DELETE FROM family_members WHERE id = ? AND user_id = ?`, memberID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete family member: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return nil, sql.ErrNoRows
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return paths, nil
}
