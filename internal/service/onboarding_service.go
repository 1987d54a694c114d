package service

import (
	"fmt"

	"famhealth/internal/repository"
)

// OnboardingStep tells the client which screen gates the main app
type OnboardingStep string

const (
	StepWalkthrough OnboardingStep = "walkthrough"
	StepProfile     OnboardingStep = "profile"
	StepReady       OnboardingStep = "ready"
)

// OnboardingService decides where a signed-in user lands
type OnboardingService struct {
	settingsRepo *repository.SettingsRepository
	profileRepo  *repository.ProfileRepository
}

// NewOnboardingService creates a new onboarding service
func NewOnboardingService(settingsRepo *repository.SettingsRepository, profileRepo *repository.ProfileRepository) *OnboardingService {
	return &OnboardingService{settingsRepo: settingsRepo, profileRepo: profileRepo}
}

// Step returns the walkthrough until it has been shown once, then the
// profile form until the profile is complete.
func (s *OnboardingService) Step(userID string) (OnboardingStep, error) {
	shown, err := s.settingsRepo.IsOnboardingShown(userID)
	if err != nil {
		return "", fmt.Errorf("failed to read onboarding flag: %w", err)
	}
	if !shown {
		return StepWalkthrough, nil
	}

	profile, err := s.profileRepo.GetProfile(userID)
	if err != nil {
		return "", fmt.Errorf("failed to get profile: %w", err)
	}
	if !profile.IsComplete() {
		return StepProfile, nil
	}
	return StepReady, nil
}

// CompleteWalkthrough records that the walkthrough has been shown
func (s *OnboardingService) CompleteWalkthrough(userID string) error {
	return s.settingsRepo.MarkOnboardingShown(userID)
}
