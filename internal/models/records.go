package models

import "time"

// Diagnosis statuses
const (
	DiagnosisActive   = "active"
	DiagnosisResolved = "resolved"
	DiagnosisChronic  = "chronic"
)

// Diagnosis records a condition diagnosed for a member
type Diagnosis struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"-"`
	MemberID    string    `json:"member_id"`
	Condition   string    `json:"condition"`
	DiagnosedOn time.Time `json:"diagnosed_on"`
	Status      string    `json:"status"`
	DoctorName  string    `json:"doctor_name"`
	Notes       string    `json:"notes"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Visit records a doctor or clinic visit
type Visit struct {
	ID           string     `json:"id"`
	OwnerID      string     `json:"-"`
	MemberID     string     `json:"member_id"`
	VisitDate    time.Time  `json:"visit_date"`
	DoctorName   string     `json:"doctor_name"`
	Facility     string     `json:"facility"`
	Reason       string     `json:"reason"`
	Notes        string     `json:"notes"`
	FollowUpDate *time.Time `json:"follow_up_date,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// MedicalTest records a lab or diagnostic test result
type MedicalTest struct {
	ID             string    `json:"id"`
	OwnerID        string    `json:"-"`
	MemberID       string    `json:"member_id"`
	TestName       string    `json:"test_name"`
	TestDate       time.Time `json:"test_date"`
	Result         string    `json:"result"`
	Unit           string    `json:"unit"`
	ReferenceRange string    `json:"reference_range"`
	Notes          string    `json:"notes"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Document is an uploaded file (scan, report, prescription) stored in blob storage
type Document struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"-"`
	MemberID     string    `json:"member_id"`
	Title        string    `json:"title"`
	DocumentType string    `json:"document_type"`
	DocumentDate time.Time `json:"document_date"`
	FilePath     string    `json:"file_path"`
	FileURL      string    `json:"file_url,omitempty"`
	ContentType  string    `json:"content_type"`
	SizeBytes    int64     `json:"size_bytes"`
	Notes        string    `json:"notes"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
