package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"famhealth/internal/blob"
	"famhealth/internal/database"
	"famhealth/internal/models"
	"famhealth/internal/repository"
)

const backupVersion = "1.0"

// BackupData represents the complete database backup structure. Sessions
// and one-time codes are not exported; document files stay in blob storage
// and are referenced by file_path.
type BackupData struct {
	Version       string                             `json:"version"`
	ExportedAt    time.Time                          `json:"exported_at"`
	DatabaseType  string                             `json:"database_type"`
	Users         []UserBackup                       `json:"users"`
	Profiles      []models.Profile                   `json:"profiles"`
	FamilyMembers []models.FamilyMember              `json:"family_members"`
	Diagnoses     []RecordBackup[models.Diagnosis]   `json:"diagnoses"`
	Visits        []RecordBackup[models.Visit]       `json:"visits"`
	Tests         []RecordBackup[models.MedicalTest] `json:"tests"`
	Documents     []RecordBackup[models.Document]    `json:"documents"`
}

// UserBackup keeps the OAuth subject, which the API never serializes
type UserBackup struct {
	models.User
	OAuthSubject string `json:"oauth_subject,omitempty"`
}

// RecordBackup keeps the owner id, which the API never serializes
type RecordBackup[T any] struct {
	OwnerID string `json:"owner_id"`
	Record  T      `json:"record"`
}

// BackupService handles database backup and restore operations
type BackupService struct {
	db        *database.DB
	users     *repository.UserRepository
	profiles  *repository.ProfileRepository
	family    *repository.FamilyRepository
	diagnoses *repository.DiagnosisRepository
	visits    *repository.VisitRepository
	tests     *repository.TestRepository
	documents *repository.DocumentRepository
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB) *BackupService {
	return &BackupService{
		db:        db,
		users:     repository.NewUserRepository(db),
		profiles:  repository.NewProfileRepository(db),
		family:    repository.NewFamilyRepository(db),
		diagnoses: repository.NewDiagnosisRepository(db),
		visits:    repository.NewVisitRepository(db),
		tests:     repository.NewTestRepository(db),
		documents: repository.NewDocumentRepository(db),
	}
}

// Export creates a complete backup of the database to a file
func (s *BackupService) Export(outputPath string) error {
	log.Println("Starting database export...")

	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	backup, err := s.ExportToWriter(file)
	if err != nil {
		return err
	}

	log.Printf("Database exported successfully to %s", outputPath)
	log.Printf("Exported: %d users, %d profiles, %d family members, %d diagnoses, %d visits, %d tests, %d documents",
		len(backup.Users), len(backup.Profiles), len(backup.FamilyMembers),
		len(backup.Diagnoses), len(backup.Visits), len(backup.Tests), len(backup.Documents))
	return nil
}

// ExportToWriter writes the backup as indented JSON and returns what was written
func (s *BackupService) ExportToWriter(w io.Writer) (*BackupData, error) {
	backup, err := s.collect()
	if err != nil {
		return nil, err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return nil, fmt.Errorf("failed to encode backup: %w", err)
	}
	return backup, nil
}

func (s *BackupService) collect() (*BackupData, error) {
	backup := &BackupData{
		Version:      backupVersion,
		ExportedAt:   time.Now().UTC(),
		DatabaseType: "universal",
	}

	users, err := s.users.GetAllUsers()
	if err != nil {
		return nil, fmt.Errorf("failed to export users: %w", err)
	}
	for _, u := range users {
		backup.Users = append(backup.Users, UserBackup{User: u, OAuthSubject: u.OAuthSubject})
	}

	if backup.Profiles, err = s.profiles.GetAllProfiles(); err != nil {
		return nil, fmt.Errorf("failed to export profiles: %w", err)
	}
	if backup.FamilyMembers, err = s.family.GetAllMembers(); err != nil {
		return nil, fmt.Errorf("failed to export family members: %w", err)
	}

	diagnoses, err := s.diagnoses.ListAll()
	if err != nil {
		return nil, fmt.Errorf("failed to export diagnoses: %w", err)
	}
	for _, d := range diagnoses {
		backup.Diagnoses = append(backup.Diagnoses, RecordBackup[models.Diagnosis]{OwnerID: d.OwnerID, Record: d})
	}

	visits, err := s.visits.ListAll()
	if err != nil {
		return nil, fmt.Errorf("failed to export visits: %w", err)
	}
	for _, v := range visits {
		backup.Visits = append(backup.Visits, RecordBackup[models.Visit]{OwnerID: v.OwnerID, Record: v})
	}

	tests, err := s.tests.ListAll()
	if err != nil {
		return nil, fmt.Errorf("failed to export tests: %w", err)
	}
	for _, t := range tests {
		backup.Tests = append(backup.Tests, RecordBackup[models.MedicalTest]{OwnerID: t.OwnerID, Record: t})
	}

	documents, err := s.documents.ListAll()
	if err != nil {
		return nil, fmt.Errorf("failed to export documents: %w", err)
	}
	for _, d := range documents {
		backup.Documents = append(backup.Documents, RecordBackup[models.Document]{OwnerID: d.OwnerID, Record: d})
	}

	return backup, nil
}

// Import restores a database from a backup file
func (s *BackupService) Import(inputPath string) error {
	log.Printf("Starting database import from %s...", inputPath)

	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	return s.ImportFromReader(file)
}

// ImportFromReader restores a database from a backup reader
func (s *BackupService) ImportFromReader(reader io.Reader) error {
	var backup BackupData
	if err := json.NewDecoder(reader).Decode(&backup); err != nil {
		return fmt.Errorf("failed to decode backup: %w", err)
	}
	if backup.Version != backupVersion {
		return fmt.Errorf("unsupported backup version %q", backup.Version)
	}

	log.Printf("Backup version: %s, exported at: %s", backup.Version, backup.ExportedAt)

	// Import in order of dependencies
	log.Printf("Importing %d users...", len(backup.Users))
	for _, u := range backup.Users {
		user := u.User
		user.OAuthSubject = u.OAuthSubject
		if err := s.users.InsertUser(&user); err != nil {
			return fmt.Errorf("failed to import user %s: %w", user.ID, err)
		}
	}

	for i := range backup.Profiles {
		if err := s.profiles.InsertProfile(&backup.Profiles[i]); err != nil {
			return fmt.Errorf("failed to import profile %s: %w", backup.Profiles[i].UserID, err)
		}
	}

	log.Printf("Importing %d family members...", len(backup.FamilyMembers))
	for i := range backup.FamilyMembers {
		if err := s.family.CreateMember(&backup.FamilyMembers[i]); err != nil {
			return fmt.Errorf("failed to import family member %s: %w", backup.FamilyMembers[i].ID, err)
		}
	}

	log.Printf("Importing %d diagnoses, %d visits, %d tests, %d documents...",
		len(backup.Diagnoses), len(backup.Visits), len(backup.Tests), len(backup.Documents))
	for _, b := range backup.Diagnoses {
		d := b.Record
		d.OwnerID = b.OwnerID
		if err := s.diagnoses.Create(&d); err != nil {
			return fmt.Errorf("failed to import diagnosis %s: %w", d.ID, err)
		}
	}
	for _, b := range backup.Visits {
		v := b.Record
		v.OwnerID = b.OwnerID
		if err := s.visits.Create(&v); err != nil {
			return fmt.Errorf("failed to import visit %s: %w", v.ID, err)
		}
	}
	for _, b := range backup.Tests {
		t := b.Record
		t.OwnerID = b.OwnerID
		if err := s.tests.Create(&t); err != nil {
			return fmt.Errorf("failed to import test %s: %w", t.ID, err)
		}
	}
	for _, b := range backup.Documents {
		d := b.Record
		d.OwnerID = b.OwnerID
		if err := s.documents.Create(&d); err != nil {
			return fmt.Errorf("failed to import document %s: %w", d.ID, err)
		}
	}

	log.Println("Database import completed successfully")
	return nil
}

// clearOrder deletes children before parents
var clearOrder = []string{
	"documents", "medical_tests", "visits", "diagnoses",
	"family_members", "profiles", "one_time_codes", "sessions", "users", "settings",
}

// ClearAll deletes every row the backup covers, in one transaction
func (s *BackupService) ClearAll() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range clearOrder {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return tx.Commit()
}

// MissingDocumentFiles lists document file paths that have no object in
// store. checked is the number of documents inspected.
func (s *BackupService) MissingDocumentFiles(ctx context.Context, store blob.Store) (missing []string, checked int, err error) {
	documents, err := s.documents.ListAll()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list documents: %w", err)
	}
	for _, d := range documents {
		_, err := store.Head(ctx, d.FilePath)
		if errors.Is(err, blob.ErrNotFound) {
			missing = append(missing, d.FilePath)
		} else if err != nil {
			return nil, 0, fmt.Errorf("failed to check %s: %w", d.FilePath, err)
		}
		checked++
	}
	return missing, checked, nil
}
