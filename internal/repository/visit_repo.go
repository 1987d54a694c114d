package repository

import (
	"database/sql"
	"fmt"
	"time"

	"famhealth/internal/database"
	"famhealth/internal/models"

	"github.com/google/uuid"
)

// VisitRepository handles database operations for doctor visits
type VisitRepository struct {
	db *database.DB
}

// NewVisitRepository creates a new visit repository
func NewVisitRepository(db *database.DB) *VisitRepository {
	return &VisitRepository{db: db}
}

const visitColumns = `id, owner_id, member_id, visit_date, doctor_name, facility, reason, notes, follow_up_date, created_at, updated_at`

func scanVisit(row rowScanner) (*models.Visit, error) {
	v := &models.Visit{}
	var followUp sql.NullTime
	err := row.Scan(
		&v.ID,
		&v.OwnerID,
		&v.MemberID,
		&v.VisitDate,
		&v.DoctorName,
		&v.Facility,
		&v.Reason,
		&v.Notes,
		&followUp,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	v.FollowUpDate = timePtr(followUp)
	return v, err
}

// Create inserts a visit, assigning an ID when missing
func (r *VisitRepository) Create(v *models.Visit) error {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	stamp(&v.CreatedAt, &v.UpdatedAt)

	query := `
		INSERT INTO visits (` + visitColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, v.ID, v.OwnerID, v.MemberID, v.VisitDate.UTC(), v.DoctorName, v.Facility,
		v.Reason, v.Notes, nullableTime(v.FollowUpDate), v.CreatedAt, v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create visit: %w", err)
	}
	return nil
}

// GetByID retrieves a visit by ID
func (r *VisitRepository) GetByID(id string) (*models.Visit, error) {
	v, err := scanVisit(r.db.QueryRow(`SELECT `+visitColumns+` FROM visits WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get visit: %w", err)
	}
	return v, nil
}

// ListByMember returns a member's visits, most recent first
func (r *VisitRepository) ListByMember(ownerID, memberID string) ([]models.Visit, error) {
	return r.query(`
		SELECT `+visitColumns+`
		FROM visits
		WHERE owner_id = ? AND member_id = ?
		ORDER BY visit_date DESC, created_at DESC
	`, ownerID, memberID)
}

// ListAll returns every visit
func (r *VisitRepository) ListAll() ([]models.Visit, error) {
	return r.query(`SELECT ` + visitColumns + ` FROM visits ORDER BY created_at`)
}

func (r *VisitRepository) query(query string, args ...interface{}) ([]models.Visit, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query visits: %w", err)
	}
	defer rows.Close()

	visits := []models.Visit{}
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan visit: %w", err)
		}
		visits = append(visits, *v)
	}
	return visits, rows.Err()
}

// Update overwrites a visit's editable fields
func (r *VisitRepository) Update(v *models.Visit) error {
	v.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE visits
		SET visit_date = ?, doctor_name = ?, facility = ?, reason = ?, notes = ?, follow_up_date = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?
	`
	_, err := r.db.Exec(query, v.VisitDate.UTC(), v.DoctorName, v.Facility, v.Reason, v.Notes,
		nullableTime(v.FollowUpDate), v.UpdatedAt, v.ID, v.OwnerID)
	if err != nil {
		return fmt.Errorf("failed to update visit: %w", err)
	}
	return nil
}

// Delete removes a visit
func (r *VisitRepository) Delete(ownerID, id string) error {
	if _, err := r.db.Exec(`DELETE FROM visits WHERE id = ? AND owner_id = ?`, id, ownerID); err != nil {
		return fmt.Errorf("failed to delete visit: %w", err)
	}
	return nil
}
