package handlers

import (
	"net/http"

	"famhealth/internal/service"
)

// MemberHandler handles family member CRUD
type MemberHandler struct {
	familyService *service.FamilyService
}

// NewMemberHandler creates a new family member handler
func NewMemberHandler(familyService *service.FamilyService) *MemberHandler {
	return &MemberHandler{familyService: familyService}
}

// ListMembers returns the caller's family members ordered by name
func (h *MemberHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	members, err := h.familyService.ListMembers(user.ID)
	if err != nil {
		respondServiceError(w, "Error listing family members", err)
		return
	}
	respondJSON(w, http.StatusOK, members)
}

// GetMember returns one family member
func (h *MemberHandler) GetMember(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	member, err := h.familyService.GetMember(user.ID, r.PathValue("id"))
	if err != nil {
		respondServiceError(w, "Error loading family member", err)
		return
	}
	respondJSON(w, http.StatusOK, member)
}

// CreateMember adds a family member
func (h *MemberHandler) CreateMember(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var in service.MemberInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", nil)
		return
	}

	member, err := h.familyService.CreateMember(user.ID, in)
	if err != nil {
		respondServiceError(w, "Error creating family member", err)
		return
	}
	respondJSON(w, http.StatusCreated, member)
}

// UpdateMember edits a family member
func (h *MemberHandler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var in service.MemberInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", nil)
		return
	}

	member, err := h.familyService.UpdateMember(user.ID, r.PathValue("id"), in)
	if err != nil {
		respondServiceError(w, "Error updating family member", err)
		return
	}
	respondJSON(w, http.StatusOK, member)
}

// DeleteMember removes a family member with all of their records
func (h *MemberHandler) DeleteMember(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if err := h.familyService.DeleteMember(r.Context(), user.ID, r.PathValue("id")); err != nil {
		respondServiceError(w, "Error deleting family member", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
