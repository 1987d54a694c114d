package repository

import (
	"database/sql"
	"fmt"
	"time"

	"famhealth/internal/database"
	"famhealth/internal/models"

	"github.com/google/uuid"
)

// TestRepository handles database operations for medical test results
type TestRepository struct {
	db *database.DB
}

// NewTestRepository creates a new medical test repository
func NewTestRepository(db *database.DB) *TestRepository {
	return &TestRepository{db: db}
}

const testColumns = `id, owner_id, member_id, test_name, test_date, result, unit, reference_range, notes, created_at, updated_at`

func scanTest(row rowScanner) (*models.MedicalTest, error) {
	t := &models.MedicalTest{}
	err := row.Scan(
		&t.ID,
		&t.OwnerID,
		&t.MemberID,
		&t.TestName,
		&t.TestDate,
		&t.Result,
		&t.Unit,
		&t.ReferenceRange,
		&t.Notes,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	return t, err
}

// Create inserts a test result, assigning an ID when missing
func (r *TestRepository) Create(t *models.MedicalTest) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	stamp(&t.CreatedAt, &t.UpdatedAt)

	query := `
		INSERT INTO medical_tests (` + testColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, t.ID, t.OwnerID, t.MemberID, t.TestName, t.TestDate.UTC(), t.Result,
		t.Unit, t.ReferenceRange, t.Notes, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create medical test: %w", err)
	}
	return nil
}

// GetByID retrieves a test result by ID
func (r *TestRepository) GetByID(id string) (*models.MedicalTest, error) {
	t, err := scanTest(r.db.QueryRow(`SELECT `+testColumns+` FROM medical_tests WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get medical test: %w", err)
	}
	return t, nil
}

// ListByMember returns a member's test results, most recent first
func (r *TestRepository) ListByMember(ownerID, memberID string) ([]models.MedicalTest, error) {
	return r.query(`
		SELECT `+testColumns+`
		FROM medical_tests
		WHERE owner_id = ? AND member_id = ?
		ORDER BY test_date DESC, created_at DESC
	`, ownerID, memberID)
}

// ListAll returns every test result
func (r *TestRepository) ListAll() ([]models.MedicalTest, error) {
	return r.query(`SELECT ` + testColumns + ` FROM medical_tests ORDER BY created_at`)
}

func (r *TestRepository) query(query string, args ...interface{}) ([]models.MedicalTest, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query medical tests: %w", err)
	}
	defer rows.Close()

	tests := []models.MedicalTest{}
	for rows.Next() {
		t, err := scanTest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan medical test: %w", err)
		}
		tests = append(tests, *t)
	}
	return tests, rows.Err()
}

// Update overwrites a test result's editable fields
func (r *TestRepository) Update(t *models.MedicalTest) error {
	t.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE medical_tests
		SET test_name = ?, test_date = ?, result = ?, unit = ?, reference_range = ?, notes = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?
	`
	_, err := r.db.Exec(query, t.TestName, t.TestDate.UTC(), t.Result, t.Unit, t.ReferenceRange, t.Notes,
		t.UpdatedAt, t.ID, t.OwnerID)
	if err != nil {
		return fmt.Errorf("failed to update medical test: %w", err)
	}
	return nil
}

// Delete removes a test result
func (r *TestRepository) Delete(ownerID, id string) error {
	if _, err := r.db.Exec(`DELETE FROM medical_tests WHERE id = ? AND owner_id = ?`, id, ownerID); err != nil {
		return fmt.Errorf("failed to delete medical test: %w", err)
	}
	return nil
}
