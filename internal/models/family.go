package models

import "time"

// FamilyMember is a relative whose records the account holder manages
type FamilyMember struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	Name         string     `json:"name"`
	Relationship string     `json:"relationship"`
	DateOfBirth  *time.Time `json:"date_of_birth,omitempty"`
	Sex          string     `json:"sex"`
	BloodType    string     `json:"blood_type"`
	Notes        string     `json:"notes"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// AsActiveMember converts the family member into a selectable subject
func (m FamilyMember) AsActiveMember() ActiveMember {
	return ActiveMember{ID: m.ID, Type: MemberTypeFamily, Label: m.Name}
}
