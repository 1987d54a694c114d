package handlers

import (
	"net/http"

	"famhealth/internal/service"
)

// RecordHandler serves the diagnosis, visit and test screens. Lists and
// creates act on the session's active member.
type RecordHandler struct {
	recordService *service.RecordService
}

// NewRecordHandler creates a new record handler
func NewRecordHandler(recordService *service.RecordService) *RecordHandler {
	return &RecordHandler{recordService: recordService}
}

// ListDiagnoses lists the active member's diagnoses, newest first
func (h *RecordHandler) ListDiagnoses(w http.ResponseWriter, r *http.Request) {
	member, ok := activeMember(w, r)
	if !ok {
		return
	}
	list, err := h.recordService.ListDiagnoses(GetUserFromContext(r.Context()).ID, member)
	if err != nil {
		respondServiceError(w, "Error listing diagnoses", err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (h *RecordHandler) GetDiagnosis(w http.ResponseWriter, r *http.Request) {
	d, err := h.recordService.GetDiagnosis(GetUserFromContext(r.Context()).ID, r.PathValue("id"))
	if err != nil {
		respondServiceError(w, "Error loading diagnosis", err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

func (h *RecordHandler) CreateDiagnosis(w http.ResponseWriter, r *http.Request) {
	member, ok := activeMember(w, r)
	if !ok {
		return
	}
	var in service.DiagnosisInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", nil)
		return
	}
	d, err := h.recordService.CreateDiagnosis(GetUserFromContext(r.Context()).ID, member, in)
	if err != nil {
		respondServiceError(w, "Error creating diagnosis", err)
		return
	}
	respondJSON(w, http.StatusCreated, d)
}

func (h *RecordHandler) UpdateDiagnosis(w http.ResponseWriter, r *http.Request) {
	var in service.DiagnosisInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", nil)
		return
	}
	d, err := h.recordService.UpdateDiagnosis(GetUserFromContext(r.Context()).ID, r.PathValue("id"), in)
	if err != nil {
		respondServiceError(w, "Error updating diagnosis", err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

func (h *RecordHandler) DeleteDiagnosis(w http.ResponseWriter, r *http.Request) {
	if err := h.recordService.DeleteDiagnosis(GetUserFromContext(r.Context()).ID, r.PathValue("id")); err != nil {
		respondServiceError(w, "Error deleting diagnosis", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListVisits lists the active member's visits, newest first
func (h *RecordHandler) ListVisits(w http.ResponseWriter, r *http.Request) {
	member, ok := activeMember(w, r)
	if !ok {
		return
	}
	list, err := h.recordService.ListVisits(GetUserFromContext(r.Context()).ID, member)
	if err != nil {
		respondServiceError(w, "Error listing visits", err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (h *RecordHandler) GetVisit(w http.ResponseWriter, r *http.Request) {
	v, err := h.recordService.GetVisit(GetUserFromContext(r.Context()).ID, r.PathValue("id"))
	if err != nil {
		respondServiceError(w, "Error loading visit", err)
		return
	}
	respondJSON(w, http.StatusOK, v)
}

func (h *RecordHandler) CreateVisit(w http.ResponseWriter, r *http.Request) {
	member, ok := activeMember(w, r)
	if !ok {
		return
	}
	var in service.VisitInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", nil)
		return
	}
	v, err := h.recordService.CreateVisit(GetUserFromContext(r.Context()).ID, member, in)
	if err != nil {
		respondServiceError(w, "Error creating visit", err)
		return
	}
	respondJSON(w, http.StatusCreated, v)
}

func (h *RecordHandler) UpdateVisit(w http.ResponseWriter, r *http.Request) {
	var in service.VisitInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", nil)
		return
	}
	v, err := h.recordService.UpdateVisit(GetUserFromContext(r.Context()).ID, r.PathValue("id"), in)
	if err != nil {
		respondServiceError(w, "Error updating visit", err)
		return
	}
	respondJSON(w, http.StatusOK, v)
}

func (h *RecordHandler) DeleteVisit(w http.ResponseWriter, r *http.Request) {
	if err := h.recordService.DeleteVisit(GetUserFromContext(r.Context()).ID, r.PathValue("id")); err != nil {
		respondServiceError(w, "Error deleting visit", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListTests lists the active member's test results, newest first
func (h *RecordHandler) ListTests(w http.ResponseWriter, r *http.Request) {
	member, ok := activeMember(w, r)
	if !ok {
		return
	}
	list, err := h.recordService.ListTests(GetUserFromContext(r.Context()).ID, member)
	if err != nil {
		respondServiceError(w, "Error listing tests", err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (h *RecordHandler) GetTest(w http.ResponseWriter, r *http.Request) {
	t, err := h.recordService.GetTest(GetUserFromContext(r.Context()).ID, r.PathValue("id"))
	if err != nil {
		respondServiceError(w, "Error loading test", err)
		return
	}
	respondJSON(w, http.StatusOK, t)
}

func (h *RecordHandler) CreateTest(w http.ResponseWriter, r *http.Request) {
	member, ok := activeMember(w, r)
	if !ok {
		return
	}
	var in service.TestInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", nil)
		return
	}
	t, err := h.recordService.CreateTest(GetUserFromContext(r.Context()).ID, member, in)
	if err != nil {
		respondServiceError(w, "Error creating test", err)
		return
	}
	respondJSON(w, http.StatusCreated, t)
}

func (h *RecordHandler) UpdateTest(w http.ResponseWriter, r *http.Request) {
	var in service.TestInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", nil)
		return
	}
	t, err := h.recordService.UpdateTest(GetUserFromContext(r.Context()).ID, r.PathValue("id"), in)
	if err != nil {
		respondServiceError(w, "Error updating test", err)
		return
	}
	respondJSON(w, http.StatusOK, t)
}

func (h *RecordHandler) DeleteTest(w http.ResponseWriter, r *http.Request) {
	if err := h.recordService.DeleteTest(GetUserFromContext(r.Context()).ID, r.PathValue("id")); err != nil {
		respondServiceError(w, "Error deleting test", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
