package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"famhealth/internal/models"
)

func TestSignInSelectsSelf(t *testing.T) {
	env := newAPIEnv(t, 100)
	tokens := env.signIn(t, "Ada@Example.com")

	if tokens.AccessToken == "" || tokens.RefreshToken == "" || !tokens.IsNewUser {
		t.Fatalf("tokens = %+v", tokens)
	}

	rec := env.do(t, http.MethodGet, "/api/session", tokens.AccessToken, nil)
	expectStatus(t, rec, http.StatusOK)
	var got sessionResponse
	decodeBody(t, rec, &got)

	want := models.SelfMember(tokens.User.ID)
	if got.ActiveMember == nil || *got.ActiveMember != want {
		t.Errorf("active member = %+v, want %+v", got.ActiveMember, want)
	}
	if got.User.Email != "ada@example.com" {
		t.Errorf("email = %q, want normalized", got.User.Email)
	}
}

func TestAPIRequiresBearerToken(t *testing.T) {
	env := newAPIEnv(t, 100)

	tests := []struct {
		name  string
		token string
	}{
		{name: "missing", token: ""},
		{name: "garbage", token: "not-a-jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, "/api/diagnoses", tt.token, nil)
			expectStatus(t, rec, http.StatusUnauthorized)
		})
	}
}

func TestVerifyCodeRejectsWrongCode(t *testing.T) {
	env := newAPIEnv(t, 100)
	env.do(t, http.MethodPost, "/auth/otp", "", map[string]string{"email": "ada@example.com"})

	wrong := "000000"
	if env.sender.last("ada@example.com") == wrong {
		wrong = "111111"
	}
	rec := env.do(t, http.MethodPost, "/auth/otp/verify", "", map[string]string{"email": "ada@example.com", "code": wrong})
	expectStatus(t, rec, http.StatusUnauthorized)

	rec = env.do(t, http.MethodPost, "/auth/otp", "", map[string]string{"email": "not-an-email"})
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestRefreshAndLogout(t *testing.T) {
	env := newAPIEnv(t, 100)
	tokens := env.signIn(t, "ada@example.com")

	rec := env.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{"refresh_token": tokens.RefreshToken})
	expectStatus(t, rec, http.StatusOK)
	var refreshed tokenResponse
	decodeBody(t, rec, &refreshed)
	if refreshed.RefreshToken != tokens.RefreshToken || refreshed.AccessToken == "" {
		t.Errorf("refreshed = %+v", refreshed)
	}

	rec = env.do(t, http.MethodPost, "/auth/logout", tokens.AccessToken, nil)
	expectStatus(t, rec, http.StatusNoContent)

	if _, ok := env.registry.For(models.Session{ID: tokens.RefreshToken}); ok {
		t.Error("active-member store survived sign-out")
	}

	rec = env.do(t, http.MethodGet, "/api/session", refreshed.AccessToken, nil)
	expectStatus(t, rec, http.StatusUnauthorized)

	rec = env.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{"refresh_token": tokens.RefreshToken})
	expectStatus(t, rec, http.StatusUnauthorized)
}

func TestOTPIsRateLimited(t *testing.T) {
	env := newAPIEnv(t, 2)

	for i := 0; i < 2; i++ {
		rec := env.do(t, http.MethodPost, "/auth/otp", "", map[string]string{"email": "ada@example.com"})
		expectStatus(t, rec, http.StatusAccepted)
	}
	rec := env.do(t, http.MethodPost, "/auth/otp", "", map[string]string{"email": "ada@example.com"})
	expectStatus(t, rec, http.StatusTooManyRequests)
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
}

func TestOTPLimitIgnoresSpoofedForwardedFor(t *testing.T) {
	env := newAPIEnv(t, 2)

	for i := 0; i < 5; i++ {
		body, _ := json.Marshal(map[string]string{"email": fmt.Sprintf("user%d@example.com", i)})
		req := httptest.NewRequest(http.MethodPost, "/auth/otp", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i))
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, req)

		want := http.StatusAccepted
		if i >= 2 {
			want = http.StatusTooManyRequests
		}
		expectStatus(t, rec, want)
	}
}

func TestOTPLimitedPerEmail(t *testing.T) {
	env := newAPIEnv(t, 100)

	for i := 0; i < 5; i++ {
		rec := env.do(t, http.MethodPost, "/auth/otp", "", map[string]string{"email": "ada@example.com"})
		expectStatus(t, rec, http.StatusAccepted)
	}
	rec := env.do(t, http.MethodPost, "/auth/otp", "", map[string]string{"email": "Ada@Example.com"})
	expectStatus(t, rec, http.StatusTooManyRequests)
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
}

func TestHealthAndMetrics(t *testing.T) {
	env := newAPIEnv(t, 100)

	rec := env.do(t, http.MethodGet, "/healthz", "", nil)
	expectStatus(t, rec, http.StatusOK)

	rec = env.do(t, http.MethodGet, "/metrics", "", nil)
	expectStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), `famhealth_http_requests_total{code="200",method="GET",route="GET /healthz"} 1`) {
		t.Errorf("metrics missing healthz counter:\n%s", rec.Body.String())
	}
}

type loadingState bool

func (l loadingState) Loading() bool { return bool(l) }

func TestHealthWaitsForSessionRestore(t *testing.T) {
	rt := &Router{Sessions: loadingState(true)}

	rec := httptest.NewRecorder()
	rt.health(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	expectStatus(t, rec, http.StatusServiceUnavailable)

	rt.Sessions = loadingState(false)
	rec = httptest.NewRecorder()
	rt.health(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	expectStatus(t, rec, http.StatusOK)
}
