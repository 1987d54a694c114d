package service

import (
	"errors"
	"fmt"
	"strings"

	"famhealth/internal/models"
	"famhealth/internal/repository"
	"famhealth/internal/validation"
)

var ErrRecordNotFound = errors.New("record not found")

// RecordList is what a record screen renders: the rows for the active
// member, plus a message to show when there are none.
type RecordList[T any] struct {
	Member       models.ActiveMember `json:"member"`
	Items        []T                 `json:"items"`
	EmptyMessage string              `json:"empty_message,omitempty"`
}

func newRecordList[T any](member models.ActiveMember, items []T, noun string) RecordList[T] {
	list := RecordList[T]{Member: member, Items: items}
	if list.Items == nil {
		list.Items = []T{}
	}
	if len(list.Items) == 0 {
		list.EmptyMessage = fmt.Sprintf("No %s recorded for %s yet.", noun, member.Label)
	}
	return list
}

// DiagnosisInput carries diagnosis fields as sent by the client
type DiagnosisInput struct {
	Condition   string `json:"condition"`
	DiagnosedOn string `json:"diagnosed_on"`
	Status      string `json:"status"`
	DoctorName  string `json:"doctor_name"`
	Notes       string `json:"notes"`
}

func (in DiagnosisInput) apply(d *models.Diagnosis) error {
	if err := validation.ValidateRequired("condition", in.Condition); err != nil {
		return err
	}
	if err := validation.ValidateMaxLength("condition", in.Condition, 200); err != nil {
		return err
	}
	date, err := validation.ParseDate("diagnosed_on", in.DiagnosedOn)
	if err != nil {
		return err
	}
	status := in.Status
	if status == "" {
		status = models.DiagnosisActive
	}
	if err := validation.ValidateOneOf("status", status, models.DiagnosisActive, models.DiagnosisResolved, models.DiagnosisChronic); err != nil {
		return err
	}

	d.Condition = strings.TrimSpace(in.Condition)
	d.DiagnosedOn = date
	d.Status = status
	d.DoctorName = strings.TrimSpace(in.DoctorName)
	d.Notes = in.Notes
	return nil
}

// VisitInput carries visit fields as sent by the client
type VisitInput struct {
	VisitDate    string `json:"visit_date"`
	DoctorName   string `json:"doctor_name"`
	Facility     string `json:"facility"`
	Reason       string `json:"reason"`
	Notes        string `json:"notes"`
	FollowUpDate string `json:"follow_up_date"`
}

func (in VisitInput) apply(v *models.Visit) error {
	date, err := validation.ParseDate("visit_date", in.VisitDate)
	if err != nil {
		return err
	}
	followUp, err := validation.ParseOptionalDate("follow_up_date", in.FollowUpDate)
	if err != nil {
		return err
	}
	if followUp != nil && followUp.Before(date) {
		return validation.ValidationError{Field: "follow_up_date", Message: "follow-up date cannot be before the visit"}
	}
	if err := validation.ValidateMaxLength("reason", in.Reason, 500); err != nil {
		return err
	}

	v.VisitDate = date
	v.DoctorName = strings.TrimSpace(in.DoctorName)
	v.Facility = strings.TrimSpace(in.Facility)
	v.Reason = strings.TrimSpace(in.Reason)
	v.Notes = in.Notes
	v.FollowUpDate = followUp
	return nil
}

// TestInput carries test result fields as sent by the client
type TestInput struct {
	TestName       string `json:"test_name"`
	TestDate       string `json:"test_date"`
	Result         string `json:"result"`
	Unit           string `json:"unit"`
	ReferenceRange string `json:"reference_range"`
	Notes          string `json:"notes"`
}

func (in TestInput) apply(t *models.MedicalTest) error {
	if err := validation.ValidateRequired("test_name", in.TestName); err != nil {
		return err
	}
	if err := validation.ValidateMaxLength("test_name", in.TestName, 200); err != nil {
		return err
	}
	date, err := validation.ParseDate("test_date", in.TestDate)
	if err != nil {
		return err
	}

	t.TestName = strings.TrimSpace(in.TestName)
	t.TestDate = date
	t.Result = strings.TrimSpace(in.Result)
	t.Unit = strings.TrimSpace(in.Unit)
	t.ReferenceRange = strings.TrimSpace(in.ReferenceRange)
	t.Notes = in.Notes
	return nil
}

// RecordService serves the diagnosis, visit and test screens. Every list is
// scoped to the active member; every id-based call checks ownership.
type RecordService struct {
	diagnosisRepo *repository.DiagnosisRepository
	visitRepo     *repository.VisitRepository
	testRepo      *repository.TestRepository
}

// NewRecordService creates a new record service
func NewRecordService(
	diagnosisRepo *repository.DiagnosisRepository,
	visitRepo *repository.VisitRepository,
	testRepo *repository.TestRepository,
) *RecordService {
	return &RecordService{
		diagnosisRepo: diagnosisRepo,
		visitRepo:     visitRepo,
		testRepo:      testRepo,
	}
}

// ListDiagnoses returns the active member's diagnoses, newest first
func (s *RecordService) ListDiagnoses(userID string, active models.ActiveMember) (RecordList[models.Diagnosis], error) {
	items, err := s.diagnosisRepo.ListByMember(userID, active.ID)
	if err != nil {
		return RecordList[models.Diagnosis]{}, err
	}
	return newRecordList(active, items, "diagnoses"), nil
}

// GetDiagnosis returns a diagnosis owned by userID
func (s *RecordService) GetDiagnosis(userID, id string) (*models.Diagnosis, error) {
	d, err := s.diagnosisRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if d == nil || d.OwnerID != userID {
		return nil, ErrRecordNotFound
	}
	return d, nil
}

// CreateDiagnosis records a diagnosis for the active member
func (s *RecordService) CreateDiagnosis(userID string, active models.ActiveMember, in DiagnosisInput) (*models.Diagnosis, error) {
	d := &models.Diagnosis{OwnerID: userID, MemberID: active.ID}
	if err := in.apply(d); err != nil {
		return nil, err
	}
	if err := s.diagnosisRepo.Create(d); err != nil {
		return nil, err
	}
	return d, nil
}

// UpdateDiagnosis edits a diagnosis owned by userID
func (s *RecordService) UpdateDiagnosis(userID, id string, in DiagnosisInput) (*models.Diagnosis, error) {
	d, err := s.GetDiagnosis(userID, id)
	if err != nil {
		return nil, err
	}
	if err := in.apply(d); err != nil {
		return nil, err
	}
	if err := s.diagnosisRepo.Update(d); err != nil {
		return nil, err
	}
	return d, nil
}

// DeleteDiagnosis removes a diagnosis owned by userID
func (s *RecordService) DeleteDiagnosis(userID, id string) error {
	if _, err := s.GetDiagnosis(userID, id); err != nil {
		return err
	}
	return s.diagnosisRepo.Delete(userID, id)
}

// ListVisits returns the active member's visits, newest first
func (s *RecordService) ListVisits(userID string, active models.ActiveMember) (RecordList[models.Visit], error) {
	items, err := s.visitRepo.ListByMember(userID, active.ID)
	if err != nil {
		return RecordList[models.Visit]{}, err
	}
	return newRecordList(active, items, "visits"), nil
}

// GetVisit returns a visit owned by userID
func (s *RecordService) GetVisit(userID, id string) (*models.Visit, error) {
	v, err := s.visitRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if v == nil || v.OwnerID != userID {
		return nil, ErrRecordNotFound
	}
	return v, nil
}

// CreateVisit records a visit for the active member
func (s *RecordService) CreateVisit(userID string, active models.ActiveMember, in VisitInput) (*models.Visit, error) {
	v := &models.Visit{OwnerID: userID, MemberID: active.ID}
	if err := in.apply(v); err != nil {
		return nil, err
	}
	if err := s.visitRepo.Create(v); err != nil {
		return nil, err
	}
	return v, nil
}

// UpdateVisit edits a visit owned by userID
func (s *RecordService) UpdateVisit(userID, id string, in VisitInput) (*models.Visit, error) {
	v, err := s.GetVisit(userID, id)
	if err != nil {
		return nil, err
	}
	if err := in.apply(v); err != nil {
		return nil, err
	}
	if err := s.visitRepo.Update(v); err != nil {
		return nil, err
	}
	return v, nil
}

// DeleteVisit removes a visit owned by userID
func (s *RecordService) DeleteVisit(userID, id string) error {
	if _, err := s.GetVisit(userID, id); err != nil {
		return err
	}
	return s.visitRepo.Delete(userID, id)
}

// ListTests returns the active member's test results, newest first
func (s *RecordService) ListTests(userID string, active models.ActiveMember) (RecordList[models.MedicalTest], error) {
	items, err := s.testRepo.ListByMember(userID, active.ID)
	if err != nil {
		return RecordList[models.MedicalTest]{}, err
	}
	return newRecordList(active, items, "tests"), nil
}

// GetTest returns a test result owned by userID
func (s *RecordService) GetTest(userID, id string) (*models.MedicalTest, error) {
	t, err := s.testRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if t == nil || t.OwnerID != userID {
		return nil, ErrRecordNotFound
	}
	return t, nil
}

// CreateTest records a test result for the active member
func (s *RecordService) CreateTest(userID string, active models.ActiveMember, in TestInput) (*models.MedicalTest, error) {
	t := &models.MedicalTest{OwnerID: userID, MemberID: active.ID}
	if err := in.apply(t); err != nil {
		return nil, err
	}
	if err := s.testRepo.Create(t); err != nil {
		return nil, err
	}
	return t, nil
}

// UpdateTest edits a test result owned by userID
func (s *RecordService) UpdateTest(userID, id string, in TestInput) (*models.MedicalTest, error) {
	t, err := s.GetTest(userID, id)
	if err != nil {
		return nil, err
	}
	if err := in.apply(t); err != nil {
		return nil, err
	}
	if err := s.testRepo.Update(t); err != nil {
		return nil, err
	}
	return t, nil
}

// DeleteTest removes a test result owned by userID
func (s *RecordService) DeleteTest(userID, id string) error {
	if _, err := s.GetTest(userID, id); err != nil {
		return err
	}
	return s.testRepo.Delete(userID, id)
}
