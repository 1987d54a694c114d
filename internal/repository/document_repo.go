package repository

import (
	"database/sql"
	"fmt"
	"time"

	"famhealth/internal/database"
	"famhealth/internal/models"

	"github.com/google/uuid"
)

// DocumentRepository handles database operations for uploaded documents
type DocumentRepository struct {
	db *database.DB
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *database.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

const documentColumns = `id, owner_id, member_id, title, document_type, document_date, file_path, file_url, content_type, size_bytes, notes, created_at, updated_at`

func scanDocument(row rowScanner) (*models.Document, error) {
	d := &models.Document{}
	err := row.Scan(
		&d.ID,
		&d.OwnerID,
		&d.MemberID,
		&d.Title,
		&d.DocumentType,
		&d.DocumentDate,
		&d.FilePath,
		&d.FileURL,
		&d.ContentType,
		&d.SizeBytes,
		&d.Notes,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	return d, err
}

// Create inserts a document row, assigning an ID when missing
func (r *DocumentRepository) Create(d *models.Document) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	stamp(&d.CreatedAt, &d.UpdatedAt)

	query := `
		INSERT INTO documents (` + documentColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, d.ID, d.OwnerID, d.MemberID, d.Title, d.DocumentType, d.DocumentDate.UTC(),
		d.FilePath, d.FileURL, d.ContentType, d.SizeBytes, d.Notes, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

// GetByID retrieves a document by ID
func (r *DocumentRepository) GetByID(id string) (*models.Document, error) {
	d, err := scanDocument(r.db.QueryRow(`SELECT `+documentColumns+` FROM documents WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return d, nil
}

// ListByMember returns a member's documents, most recent first
func (r *DocumentRepository) ListByMember(ownerID, memberID string) ([]models.Document, error) {
	return r.query(`
		SELECT `+documentColumns+`
		FROM documents
		WHERE owner_id = ? AND member_id = ?
		ORDER BY document_date DESC, created_at DESC
	`, ownerID, memberID)
}

// ListAll returns every document
func (r *DocumentRepository) ListAll() ([]models.Document, error) {
	return r.query(`SELECT ` + documentColumns + ` FROM documents ORDER BY created_at`)
}

func (r *DocumentRepository) query(query string, args ...interface{}) ([]models.Document, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	docs := []models.Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, *d)
	}
	return docs, rows.Err()
}

// Update overwrites a document's descriptive fields. The stored file is immutable.
func (r *DocumentRepository) Update(d *models.Document) error {
	d.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE documents
		SET title = ?, document_type = ?, document_date = ?, notes = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?
	`
	_, err := r.db.Exec(query, d.Title, d.DocumentType, d.DocumentDate.UTC(), d.Notes, d.UpdatedAt, d.ID, d.OwnerID)
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	return nil
}

// Delete removes a document row
func (r *DocumentRepository) Delete(ownerID, id string) error {
	if _, err := r.db.Exec(`DELETE FROM documents WHERE id = ? AND owner_id = ?`, id, ownerID); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}
