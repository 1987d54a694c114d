package service

import (
	"fmt"
	"strings"

	"famhealth/internal/models"
	"famhealth/internal/repository"
	"famhealth/internal/validation"
)

// ProfileInput carries editable profile fields as sent by the client
type ProfileInput struct {
	FullName         string `json:"full_name"`
	DateOfBirth      string `json:"date_of_birth"`
	Sex              string `json:"sex"`
	BloodType        string `json:"blood_type"`
	Phone            string `json:"phone"`
	EmergencyContact string `json:"emergency_contact"`
}

// ProfileService manages the account holder's own profile
type ProfileService struct {
	profileRepo *repository.ProfileRepository
}

// NewProfileService creates a new profile service
func NewProfileService(profileRepo *repository.ProfileRepository) *ProfileService {
	return &ProfileService{profileRepo: profileRepo}
}

// GetProfile returns the user's profile, creating an empty one if missing
func (s *ProfileService) GetProfile(userID string) (*models.Profile, error) {
	if err := s.profileRepo.EnsureProfile(userID); err != nil {
		return nil, fmt.Errorf("failed to ensure profile: %w", err)
	}
	return s.profileRepo.GetProfile(userID)
}

// UpdateProfile validates and saves the profile form
func (s *ProfileService) UpdateProfile(userID string, in ProfileInput) (*models.Profile, error) {
	if err := validation.ValidateName(in.FullName); err != nil {
		return nil, validation.ValidationError{Field: "full_name", Message: "full name is required"}
	}
	dob, err := validation.ParseDate("date_of_birth", in.DateOfBirth)
	if err != nil {
		return nil, err
	}
	for field, value := range map[string]string{
		"full_name":         in.FullName,
		"phone":             in.Phone,
		"emergency_contact": in.EmergencyContact,
	} {
		if err := validation.ValidateMaxLength(field, value, 200); err != nil {
			return nil, err
		}
	}
	if err := validateSex(in.Sex); err != nil {
		return nil, err
	}
	if err := validateBloodType(in.BloodType); err != nil {
		return nil, err
	}

	profile, err := s.GetProfile(userID)
	if err != nil {
		return nil, err
	}
	profile.FullName = strings.TrimSpace(in.FullName)
	profile.DateOfBirth = &dob
	profile.Sex = in.Sex
	profile.BloodType = in.BloodType
	profile.Phone = strings.TrimSpace(in.Phone)
	profile.EmergencyContact = strings.TrimSpace(in.EmergencyContact)

	if err := s.profileRepo.UpdateProfile(profile); err != nil {
		return nil, err
	}
	return profile, nil
}

var (
	sexes      = []string{"", "female", "male", "other"}
	bloodTypes = []string{"", "A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}
)

func validateSex(v string) error {
	return validation.ValidateOneOf("sex", v, sexes...)
}

func validateBloodType(v string) error {
	return validation.ValidateOneOf("blood_type", v, bloodTypes...)
}
