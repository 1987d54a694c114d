package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"famhealth/internal/activemember"
	"famhealth/internal/blob"
	"famhealth/internal/database"
	"famhealth/internal/database/dbtest"
	"famhealth/internal/repository"
	"famhealth/internal/security"
	"famhealth/internal/session"
)

// fakeSender records codes instead of emailing them
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

type testEnv struct {
	db         *database.DB
	provider   *session.Provider
	registry   *activemember.Registry
	blobs      *blob.MemoryStore
	sender     *fakeSender
	auth       *AuthService
	profiles   *ProfileService
	onboarding *OnboardingService
	family     *FamilyService
	records    *RecordService
	documents  *DocumentService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := dbtest.New(t)

	provider := session.NewProvider()
	registry := activemember.NewRegistry(provider)
	t.Cleanup(registry.Close)

	userRepo := repository.NewUserRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	sender := &fakeSender{codes: make(map[string]string)}
	blobs := blob.NewMemoryStore()

	return &testEnv{
		db:       db,
		provider: provider,
		registry: registry,
		blobs:    blobs,
		sender:   sender,
		auth: NewAuthService(
			userRepo,
			repository.NewCodeRepository(db),
			profileRepo,
			security.NewTokenIssuer("test-secret", time.Hour),
			provider,
			sender,
			24*time.Hour,
		),
		profiles:   NewProfileService(profileRepo),
		onboarding: NewOnboardingService(repository.NewSettingsRepository(db), profileRepo),
		family:     NewFamilyService(repository.NewFamilyRepository(db), blobs, registry),
		records: NewRecordService(
			repository.NewDiagnosisRepository(db),
			repository.NewVisitRepository(db),
			repository.NewTestRepository(db),
		),
		documents: NewDocumentService(repository.NewDocumentRepository(db), blobs, "", 15*time.Minute),
	}
}

// signIn runs the email code flow and returns the result
func (e *testEnv) signIn(t *testing.T, email string) *AuthResult {
	t.Helper()
	if err := e.auth.RequestCode(context.Background(), email); err != nil {
		t.Fatalf("RequestCode() error = %v", err)
	}
	res, err := e.auth.VerifyCode(email, e.sender.last(email))
	if err != nil {
		t.Fatalf("VerifyCode() error = %v", err)
	}
	return res
}

func date(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}
