package models

import (
	"strings"
	"time"
)

// Profile holds the account holder's own details
type Profile struct {
	UserID           string     `json:"user_id"`
	FullName         string     `json:"full_name"`
	DateOfBirth      *time.Time `json:"date_of_birth,omitempty"`
	Sex              string     `json:"sex"`
	BloodType        string     `json:"blood_type"`
	Phone            string     `json:"phone"`
	EmergencyContact string     `json:"emergency_contact"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// IsComplete reports whether onboarding may skip the profile form
func (p *Profile) IsComplete() bool {
	return p != nil && strings.TrimSpace(p.FullName) != "" && p.DateOfBirth != nil
}
