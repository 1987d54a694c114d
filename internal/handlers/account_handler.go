package handlers

import (
	"net/http"
	"time"

	"famhealth/internal/models"
	"famhealth/internal/service"
)

// AccountHandler serves the signed-in user's session, active member,
// onboarding state and profile.
type AccountHandler struct {
	familyService     *service.FamilyService
	profileService    *service.ProfileService
	onboardingService *service.OnboardingService
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(familyService *service.FamilyService, profileService *service.ProfileService, onboardingService *service.OnboardingService) *AccountHandler {
	return &AccountHandler{
		familyService:     familyService,
		profileService:    profileService,
		onboardingService: onboardingService,
	}
}

type sessionResponse struct {
	User         *models.User         `json:"user"`
	ExpiresAt    time.Time            `json:"expires_at"`
	ActiveMember *models.ActiveMember `json:"active_member"`
}

// Session returns the current user, session expiry and active member
func (h *AccountHandler) Session(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	sess := GetSessionFromContext(r.Context())
	if user == nil || sess == nil {
		respondWithError(w, http.StatusUnauthorized, ErrUnauthorized, "", nil)
		return
	}

	resp := sessionResponse{User: user, ExpiresAt: sess.ExpiresAt}
	if store := GetActiveMemberStore(r.Context()); store != nil {
		if member, ok := store.Get(); ok {
			resp.ActiveMember = &member
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

type activeMemberResponse struct {
	ActiveMember models.ActiveMember   `json:"active_member"`
	Members      []models.ActiveMember `json:"members"`
}

// GetActiveMember returns the selection and every member the user can switch to
func (h *AccountHandler) GetActiveMember(w http.ResponseWriter, r *http.Request) {
	member, ok := activeMember(w, r)
	if !ok {
		return
	}
	user := GetUserFromContext(r.Context())

	members, err := h.familyService.Selectable(user.ID)
	if err != nil {
		respondServiceError(w, "Error listing selectable members", err)
		return
	}
	respondJSON(w, http.StatusOK, activeMemberResponse{ActiveMember: member, Members: members})
}

// SetActiveMember switches the selection. The id is resolved against the
// caller's own family so a selection can never point at another account.
func (h *AccountHandler) SetActiveMember(w http.ResponseWriter, r *http.Request) {
	store := GetActiveMemberStore(r.Context())
	user := GetUserFromContext(r.Context())
	if store == nil || user == nil {
		respondWithError(w, http.StatusUnauthorized, ErrUnauthorized, "", nil)
		return
	}

	var req struct {
		ID string `json:"id"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", nil)
		return
	}

	member, err := h.familyService.ResolveMember(user.ID, req.ID)
	if err != nil {
		respondServiceError(w, "Error resolving member", err)
		return
	}
	store.Set(member)

	respondJSON(w, http.StatusOK, member)
}

// Onboarding returns the step that gates the main app
func (h *AccountHandler) Onboarding(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	step, err := h.onboardingService.Step(user.ID)
	if err != nil {
		respondServiceError(w, "Error reading onboarding state", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]service.OnboardingStep{"step": step})
}

// CompleteWalkthrough marks the walkthrough as shown
func (h *AccountHandler) CompleteWalkthrough(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if err := h.onboardingService.CompleteWalkthrough(user.ID); err != nil {
		respondServiceError(w, "Error saving onboarding flag", err)
		return
	}
	h.Onboarding(w, r)
}

// GetProfile returns the account holder's profile
func (h *AccountHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	profile, err := h.profileService.GetProfile(user.ID)
	if err != nil {
		respondServiceError(w, "Error loading profile", err)
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

// UpdateProfile saves the profile form
func (h *AccountHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var in service.ProfileInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", nil)
		return
	}

	profile, err := h.profileService.UpdateProfile(user.ID, in)
	if err != nil {
		respondServiceError(w, "Error updating profile", err)
		return
	}
	respondJSON(w, http.StatusOK, profile)
}
