package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/oauth2"

	"famhealth/internal/activemember"
	"famhealth/internal/blob"
	"famhealth/internal/database/dbtest"
	"famhealth/internal/repository"
	"famhealth/internal/security"
	"famhealth/internal/service"
	"famhealth/internal/session"
)

type fakeSender struct {
	mu    sync.Mutex
	codes map[string]string
}

func (f *fakeSender) SendSignInCode(_ context.Context, toEmail, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes[toEmail] = code
	return nil
}

func (f *fakeSender) last(email string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.codes[email]
}

type apiEnv struct {
	handler  http.Handler
	sender   *fakeSender
	registry *activemember.Registry
	states   *security.StateSigner
}

func newAPIEnv(t *testing.T, limit int) *apiEnv {
	t.Helper()
	db := dbtest.New(t)

	provider := session.NewProvider()
	registry := activemember.NewRegistry(provider)
	t.Cleanup(registry.Close)
	provider.Restore(nil)
	limiter := security.NewRateLimiter(limit, time.Minute)
	t.Cleanup(limiter.Stop)

	userRepo := repository.NewUserRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	blobs := blob.NewMemoryStore()
	sender := &fakeSender{codes: make(map[string]string)}

	authService := service.NewAuthService(userRepo, repository.NewCodeRepository(db), profileRepo,
		security.NewTokenIssuer("test-secret", time.Hour), provider, sender, 24*time.Hour)
	familyService := service.NewFamilyService(repository.NewFamilyRepository(db), blobs, registry)
	recordService := service.NewRecordService(repository.NewDiagnosisRepository(db),
		repository.NewVisitRepository(db), repository.NewTestRepository(db))
	documentService := service.NewDocumentService(repository.NewDocumentRepository(db), blobs, "", 15*time.Minute)

	states := security.NewStateSigner("test-secret")
	providers := map[string]OAuthProvider{
		"google": {
			Name:  "google",
			Label: "Google",
			Config: &oauth2.Config{
				ClientID:     "client",
				ClientSecret: "secret",
				Endpoint:     oauth2.Endpoint{AuthURL: "https://accounts.example.com/auth", TokenURL: "https://accounts.example.com/token"},
				Scopes:       []string{"openid", "email"},
			},
		},
		"facebook": {Name: "facebook", Label: "Facebook", Config: &oauth2.Config{}},
	}

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	router := &Router{
		Middleware: NewMiddleware(authService, registry, limiter, nil),
		Auth:       NewAuthHandler(authService, providers, "https://api.example.com", "famhealth://auth/callback", states),
		Account: NewAccountHandler(familyService, service.NewProfileService(profileRepo),
			service.NewOnboardingService(repository.NewSettingsRepository(db), profileRepo)),
		Members:   NewMemberHandler(familyService),
		Records:   NewRecordHandler(recordService),
		Documents: NewDocumentHandler(documentService, 1<<20),
		DB:        db,
		Sessions:  provider,
		Gatherer:  reg,
	}

	return &apiEnv{
		handler:  Logging(metrics, router.Routes()),
		sender:   sender,
		registry: registry,
		states:   states,
	}
}

func (e *apiEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

// signIn runs the one-time code flow over HTTP
func (e *apiEnv) signIn(t *testing.T, email string) tokenResponse {
	t.Helper()
	if rec := e.do(t, http.MethodPost, "/auth/otp", "", map[string]string{"email": email}); rec.Code != http.StatusAccepted {
		t.Fatalf("POST /auth/otp = %d: %s", rec.Code, rec.Body)
	}
	rec := e.do(t, http.MethodPost, "/auth/otp/verify", "", map[string]string{"email": email, "code": e.sender.last(email)})
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /auth/otp/verify = %d: %s", rec.Code, rec.Body)
	}
	var tokens tokenResponse
	decodeBody(t, rec, &tokens)
	return tokens
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body %q)", rec.Code, want, rec.Body.String())
	}
}
