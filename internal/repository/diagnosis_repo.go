package repository

import (
	"database/sql"
	"fmt"
	"time"

	"famhealth/internal/database"
	"famhealth/internal/models"

	"github.com/google/uuid"
)

// DiagnosisRepository handles database operations for diagnoses
type DiagnosisRepository struct {
	db *database.DB
}

// NewDiagnosisRepository creates a new diagnosis repository
func NewDiagnosisRepository(db *database.DB) *DiagnosisRepository {
	return &DiagnosisRepository{db: db}
}

const diagnosisColumns = `id, owner_id, member_id, condition_name, diagnosed_on, status, doctor_name, notes, created_at, updated_at`

func scanDiagnosis(row rowScanner) (*models.Diagnosis, error) {
	d := &models.Diagnosis{}
	err := row.Scan(
		&d.ID,
		&d.OwnerID,
		&d.MemberID,
		&d.Condition,
		&d.DiagnosedOn,
		&d.Status,
		&d.DoctorName,
		&d.Notes,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	return d, err
}

// Create inserts a diagnosis, assigning an ID when missing
func (r *DiagnosisRepository) Create(d *models.Diagnosis) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	stamp(&d.CreatedAt, &d.UpdatedAt)

	query := `
		INSERT INTO diagnoses (` + diagnosisColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, d.ID, d.OwnerID, d.MemberID, d.Condition, d.DiagnosedOn.UTC(), d.Status,
		d.DoctorName, d.Notes, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create diagnosis: %w", err)
	}
	return nil
}

// GetByID retrieves a diagnosis by ID
func (r *DiagnosisRepository) GetByID(id string) (*models.Diagnosis, error) {
	d, err := scanDiagnosis(r.db.QueryRow(`SELECT `+diagnosisColumns+` FROM diagnoses WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get diagnosis: %w", err)
	}
	return d, nil
}

// ListByMember returns a member's diagnoses, most recent first
func (r *DiagnosisRepository) ListByMember(ownerID, memberID string) ([]models.Diagnosis, error) {
	return r.query(`
		SELECT `+diagnosisColumns+`
		FROM diagnoses
		WHERE owner_id = ? AND member_id = ?
		ORDER BY diagnosed_on DESC, created_at DESC
	`, ownerID, memberID)
}

// ListAll returns every diagnosis
func (r *DiagnosisRepository) ListAll() ([]models.Diagnosis, error) {
	return r.query(`SELECT ` + diagnosisColumns + ` FROM diagnoses ORDER BY created_at`)
}

func (r *DiagnosisRepository) query(query string, args ...interface{}) ([]models.Diagnosis, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query diagnoses: %w", err)
	}
	defer rows.Close()

	diagnoses := []models.Diagnosis{}
	for rows.Next() {
		d, err := scanDiagnosis(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan diagnosis: %w", err)
		}
		diagnoses = append(diagnoses, *d)
	}
	return diagnoses, rows.Err()
}

// Update overwrites a diagnosis' editable fields
func (r *DiagnosisRepository) Update(d *models.Diagnosis) error {
	d.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE diagnoses
		SET condition_name = ?, diagnosed_on = ?, status = ?, doctor_name = ?, notes = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?
	`
	_, err := r.db.Exec(query, d.Condition, d.DiagnosedOn.UTC(), d.Status, d.DoctorName, d.Notes,
		d.UpdatedAt, d.ID, d.OwnerID)
	if err != nil {
		return fmt.Errorf("failed to update diagnosis: %w", err)
	}
	return nil
}

// Delete removes a diagnosis
func (r *DiagnosisRepository) Delete(ownerID, id string) error {
	if _, err := r.db.Exec(`DELETE FROM diagnoses WHERE id = ? AND owner_id = ?`, id, ownerID); err != nil {
		return fmt.Errorf("failed to delete diagnosis: %w", err)
	}
	return nil
}
