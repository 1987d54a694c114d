package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"famhealth/internal/activemember"
	"famhealth/internal/blob"
	"famhealth/internal/models"
	"famhealth/internal/repository"
	"famhealth/internal/validation"
)

var ErrMemberNotFound = errors.New("family member not found")

// MemberInput carries editable family member fields as sent by the client
type MemberInput struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
	DateOfBirth  string `json:"date_of_birth"`
	Sex          string `json:"sex"`
	BloodType    string `json:"blood_type"`
	Notes        string `json:"notes"`
}

func (in MemberInput) apply(m *models.FamilyMember) error {
	if err := validation.ValidateName(in.Name); err != nil {
		return err
	}
	if err := validation.ValidateMaxLength("name", in.Name, 100); err != nil {
		return err
	}
	if err := validation.ValidateMaxLength("relationship", in.Relationship, 50); err != nil {
		return err
	}
	dob, err := validation.ParseOptionalDate("date_of_birth", in.DateOfBirth)
	if err != nil {
		return err
	}
	if err := validateSex(in.Sex); err != nil {
		return err
	}
	if err := validateBloodType(in.BloodType); err != nil {
		return err
	}

	m.Name = strings.TrimSpace(in.Name)
	m.Relationship = strings.TrimSpace(in.Relationship)
	m.DateOfBirth = dob
	m.Sex = in.Sex
	m.BloodType = in.BloodType
	m.Notes = in.Notes
	return nil
}

// FamilyService handles family member business logic
type FamilyService struct {
	familyRepo *repository.FamilyRepository
	blobs      blob.Store
	registry   *activemember.Registry
}

// NewFamilyService creates a new family service
func NewFamilyService(familyRepo *repository.FamilyRepository, blobs blob.Store, registry *activemember.Registry) *FamilyService {
	return &FamilyService{
		familyRepo: familyRepo,
		blobs:      blobs,
		registry:   registry,
	}
}

// ListMembers returns the user's family members ordered by name
func (s *FamilyService) ListMembers(userID string) ([]models.FamilyMember, error) {
	members, err := s.familyRepo.ListMembers(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list family members: %w", err)
	}
	return members, nil
}

// GetMember returns a member owned by userID
func (s *FamilyService) GetMember(userID, memberID string) (*models.FamilyMember, error) {
	m, err := s.familyRepo.GetMember(memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family member: %w", err)
	}
	if m == nil || m.UserID != userID {
		return nil, ErrMemberNotFound
	}
	return m, nil
}

// CreateMember adds a family member for userID
func (s *FamilyService) CreateMember(userID string, in MemberInput) (*models.FamilyMember, error) {
	m := &models.FamilyMember{UserID: userID}
	if err := in.apply(m); err != nil {
		return nil, err
	}
	if err := s.familyRepo.CreateMember(m); err != nil {
		return nil, err
	}
	return m, nil
}

// UpdateMember edits a family member owned by userID
func (s *FamilyService) UpdateMember(userID, memberID string, in MemberInput) (*models.FamilyMember, error) {
	m, err := s.GetMember(userID, memberID)
	if err != nil {
		return nil, err
	}
	if err := in.apply(m); err != nil {
		return nil, err
	}
	if err := s.familyRepo.UpdateMember(m); err != nil {
		return nil, err
	}
	return m, nil
}

// DeleteMember removes a family member with all of its records and files.
// Any session that had the member selected falls back to Self.
func (s *FamilyService) DeleteMember(ctx context.Context, userID, memberID string) error {
	paths, err := s.familyRepo.DeleteMember(userID, memberID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrMemberNotFound
	}
	if err != nil {
		return err
	}

	for _, p := range paths {
		if _, err := s.blobs.Delete(ctx, p); err != nil {
			log.Printf("Error deleting document file %s for member %s: %v", p, memberID, err)
		}
	}

	s.registry.ResetMember(userID, memberID)
	return nil
}

// ResolveMember turns a selection request into an ActiveMember the user may act on
func (s *FamilyService) ResolveMember(userID, memberID string) (models.ActiveMember, error) {
	if memberID == "" || memberID == userID {
		return models.SelfMember(userID), nil
	}
	m, err := s.GetMember(userID, memberID)
	if err != nil {
		return models.ActiveMember{}, err
	}
	return m.AsActiveMember(), nil
}

// Selectable lists every member the user can switch to, Self first
func (s *FamilyService) Selectable(userID string) ([]models.ActiveMember, error) {
	members, err := s.ListMembers(userID)
	if err != nil {
		return nil, err
	}
	out := make([]models.ActiveMember, 0, len(members)+1)
	out = append(out, models.SelfMember(userID))
	for _, m := range members {
		out = append(out, m.AsActiveMember())
	}
	return out, nil
}
