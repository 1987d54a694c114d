package service

import (
	"errors"
	"testing"

	"famhealth/internal/validation"
)

func TestOnboardingSteps(t *testing.T) {
	env := newTestEnv(t)
	userID := env.signIn(t, "ada@example.com").User.ID

	step, err := env.onboarding.Step(userID)
	if err != nil || step != StepWalkthrough {
		t.Fatalf("Step() = %q, %v; want walkthrough", step, err)
	}

	if err := env.onboarding.CompleteWalkthrough(userID); err != nil {
		t.Fatalf("CompleteWalkthrough() error = %v", err)
	}
	if step, _ := env.onboarding.Step(userID); step != StepProfile {
		t.Errorf("Step() after walkthrough = %q, want profile", step)
	}

	if _, err := env.profiles.UpdateProfile(userID, ProfileInput{FullName: "Ada Lovelace", DateOfBirth: "1985-12-10", BloodType: "A+"}); err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if step, _ := env.onboarding.Step(userID); step != StepReady {
		t.Errorf("Step() after profile = %q, want ready", step)
	}
}

func TestUpdateProfileValidation(t *testing.T) {
	env := newTestEnv(t)
	userID := env.signIn(t, "ada@example.com").User.ID

	tests := []struct {
		name  string
		input ProfileInput
		field string
	}{
		{name: "missing name", input: ProfileInput{DateOfBirth: "1985-12-10"}, field: "full_name"},
		{name: "missing birth date", input: ProfileInput{FullName: "Ada"}, field: "date_of_birth"},
		{name: "bad blood type", input: ProfileInput{FullName: "Ada", DateOfBirth: "1985-12-10", BloodType: "C"}, field: "blood_type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.profiles.UpdateProfile(userID, tt.input)
			var verr validation.ValidationError
			if !errors.As(err, &verr) || verr.Field != tt.field {
				t.Errorf("UpdateProfile() err = %v, want validation error on %s", err, tt.field)
			}
		})
	}

	p, err := env.profiles.GetProfile(userID)
	if err != nil {
		t.Fatalf("GetProfile() error = %v", err)
	}
	if p.IsComplete() {
		t.Error("rejected updates must not complete the profile")
	}
}
