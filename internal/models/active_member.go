package models

// MemberType tells which identifier space an ActiveMember ID belongs to
type MemberType string

const (
	MemberTypeUser   MemberType = "user"
	MemberTypeFamily MemberType = "family"

	SelfLabel = "Self"
)

// ActiveMember is the profile that record screens currently operate against
type ActiveMember struct {
	ID    string     `json:"id"`
	Type  MemberType `json:"type"`
	Label string     `json:"label"`
}

// SelfMember returns the default selection for an account
func SelfMember(userID string) ActiveMember {
	return ActiveMember{ID: userID, Type: MemberTypeUser, Label: SelfLabel}
}

// IsSelf reports whether the member represents the account holder
func (m ActiveMember) IsSelf() bool {
	return m.Type == MemberTypeUser
}
