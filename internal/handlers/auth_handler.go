package handlers

import (
	"net/http"
	"time"

	"famhealth/internal/models"
	"famhealth/internal/security"
	"famhealth/internal/service"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	authService          *service.AuthService
	oauthProviders       map[string]OAuthProvider
	oauthRedirectBaseURL string
	appRedirectURL       string
	states               *security.StateSigner
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, oauthProviders map[string]OAuthProvider, oauthRedirectBaseURL, appRedirectURL string, states *security.StateSigner) *AuthHandler {
	return &AuthHandler{
		authService:          authService,
		oauthProviders:       oauthProviders,
		oauthRedirectBaseURL: oauthRedirectBaseURL,
		appRedirectURL:       appRedirectURL,
		states:               states,
	}
}

type tokenResponse struct {
	AccessToken     string       `json:"access_token"`
	AccessExpiresAt time.Time    `json:"access_expires_at"`
	RefreshToken    string       `json:"refresh_token"`
	SessionExpires  time.Time    `json:"session_expires_at"`
	User            *models.User `json:"user"`
	IsNewUser       bool         `json:"is_new_user"`
}

func newTokenResponse(res *service.AuthResult) tokenResponse {
	return tokenResponse{
		AccessToken:     res.AccessToken,
		AccessExpiresAt: res.AccessExpiresAt,
		RefreshToken:    res.Session.ID,
		SessionExpires:  res.Session.ExpiresAt,
		User:            res.User,
		IsNewUser:       res.IsNewUser,
	}
}

// RequestCode emails a one-time sign-in code
func (h *AuthHandler) RequestCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", nil)
		return
	}

	if err := h.authService.RequestCode(r.Context(), req.Email); err != nil {
		respondServiceError(w, "Error requesting sign-in code", err)
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]string{"status": "code_sent"})
}

// VerifyCode redeems a one-time code and returns tokens
func (h *AuthHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", nil)
		return
	}

	res, err := h.authService.VerifyCode(req.Email, req.Code)
	if err != nil {
		respondServiceError(w, "Error verifying sign-in code", err)
		return
	}

	respondJSON(w, http.StatusOK, newTokenResponse(res))
}

// Refresh extends a session and issues a new access token
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := decodeJSON(w, r, &req); err != nil || req.RefreshToken == "" {
		respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", nil)
		return
	}

	res, err := h.authService.Refresh(req.RefreshToken)
	if err != nil {
		respondServiceError(w, "Error refreshing session", err)
		return
	}

	respondJSON(w, http.StatusOK, newTokenResponse(res))
}

// Logout ends the session named by the refresh token or the bearer token
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	_ = decodeJSON(w, r, &req)

	sessionID := req.RefreshToken
	if sessionID == "" {
		if token := bearerToken(r); token != "" {
			if _, sess, err := h.authService.Authenticate(token); err == nil {
				sessionID = sess.ID
			}
		}
	}
	if sessionID == "" {
		respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", nil)
		return
	}

	if err := h.authService.Logout(sessionID); err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error logging out", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
