package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"famhealth/internal/credentials"
	"famhealth/internal/models"
	"famhealth/internal/repository"
	"famhealth/internal/security"
	"famhealth/internal/session"
	"famhealth/internal/validation"
)

var (
	ErrEmailTaken      = errors.New("email already linked to another sign-in provider")
	ErrInvalidCode     = errors.New("invalid or expired code")
	ErrTooManyAttempts = errors.New("too many attempts, request a new code")
	ErrTooManyCodes    = errors.New("too many codes requested, try again later")
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
)

const (
	codeTTL         = 10 * time.Minute
	maxCodeAttempts = 5
	// codes issued per address within one codeTTL
	maxCodesPerWindow = 5
)

// CodeSender delivers one-time sign-in codes
type CodeSender interface {
	SendSignInCode(ctx context.Context, toEmail, code string) error
}

// AuthResult is returned by every operation that starts or renews a session
type AuthResult struct {
	User            *models.User
	Session         *models.Session
	AccessToken     string
	AccessExpiresAt time.Time
	IsNewUser       bool
}

// AuthService handles authentication business logic
type AuthService struct {
	userRepo        *repository.UserRepository
	codeRepo        *repository.CodeRepository
	profileRepo     *repository.ProfileRepository
	tokens          *security.TokenIssuer
	sessions        *session.Provider
	sender          CodeSender
	sessionDuration time.Duration
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo *repository.UserRepository,
	codeRepo *repository.CodeRepository,
	profileRepo *repository.ProfileRepository,
	tokens *security.TokenIssuer,
	sessions *session.Provider,
	sender CodeSender,
	sessionDuration time.Duration,
) *AuthService {
	return &AuthService{
		userRepo:        userRepo,
		codeRepo:        codeRepo,
		profileRepo:     profileRepo,
		tokens:          tokens,
		sessions:        sessions,
		sender:          sender,
		sessionDuration: sessionDuration,
	}
}

// RequestCode issues a one-time code for email and sends it
func (s *AuthService) RequestCode(ctx context.Context, email string) error {
	if err := validation.ValidateEmail(email); err != nil {
		return err
	}
	email = validation.NormalizeEmail(email)

	recent, err := s.codeRepo.CountCodesSince(email, time.Now().Add(-codeTTL))
	if err != nil {
		return err
	}
	if recent >= maxCodesPerWindow {
		return ErrTooManyCodes
	}

	code, err := credentials.GenerateOneTimeCode()
	if err != nil {
		return fmt.Errorf("failed to generate code: %w", err)
	}
	hash, err := security.HashSecret(code)
	if err != nil {
		return fmt.Errorf("failed to hash code: %w", err)
	}
	if _, err := s.codeRepo.CreateCode(email, hash, time.Now().Add(codeTTL)); err != nil {
		return err
	}

	if err := s.sender.SendSignInCode(ctx, email, code); err != nil {
		return fmt.Errorf("failed to send code: %w", err)
	}
	return nil
}

// VerifyCode redeems a one-time code, creating the account on first sign-in
func (s *AuthService) VerifyCode(email, code string) (*AuthResult, error) {
	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := validation.ValidateOneTimeCode(code); err != nil {
		return nil, err
	}
	email = validation.NormalizeEmail(email)

	otc, err := s.codeRepo.GetLatestCode(email)
	if err != nil {
		return nil, fmt.Errorf("failed to get code: %w", err)
	}
	if otc == nil || otc.IsUsed() || otc.IsExpired() {
		return nil, ErrInvalidCode
	}
	// Claim the attempt before the compare so parallel guesses share the budget.
	claimed, err := s.codeRepo.ClaimAttempt(otc.ID, maxCodeAttempts)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, ErrTooManyAttempts
	}

	if !security.CheckSecret(strings.TrimSpace(code), otc.CodeHash) {
		return nil, ErrInvalidCode
	}

	redeemed, err := s.codeRepo.MarkUsed(otc.ID)
	if err != nil {
		return nil, err
	}
	if !redeemed {
		return nil, ErrInvalidCode
	}

	user, err := s.userRepo.GetUserByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	isNew := user == nil
	if isNew {
		user, err = s.createAccount(email, "", "", "")
		if err != nil {
			return nil, err
		}
	}

	return s.startSession(user, isNew)
}

// OAuthLogin authenticates or creates a user using a federated identity
func (s *AuthService) OAuthLogin(provider, subject, email, name string) (*AuthResult, error) {
	if provider == "" || subject == "" {
		return nil, errors.New("missing oauth provider information")
	}

	user, err := s.userRepo.GetUserByOAuth(provider, subject)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup oauth user: %w", err)
	}
	if user != nil {
		return s.startSession(user, false)
	}

	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}
	email = validation.NormalizeEmail(email)

	existing, err := s.userRepo.GetUserByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		if existing.OAuthProvider != "" && existing.OAuthProvider != provider {
			return nil, ErrEmailTaken
		}
		if err := s.userRepo.LinkOAuthProvider(existing.ID, provider, subject); err != nil {
			return nil, fmt.Errorf("failed to link oauth provider: %w", err)
		}
		return s.startSession(existing, false)
	}

	user, err = s.createAccount(email, name, provider, subject)
	if err != nil {
		return nil, err
	}
	return s.startSession(user, true)
}

// createAccount creates a user with an empty profile
func (s *AuthService) createAccount(email, name, provider, subject string) (*models.User, error) {
	user, err := s.userRepo.CreateUser(email, strings.TrimSpace(name), provider, subject)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	if err := s.profileRepo.EnsureProfile(user.ID); err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}
	log.Printf("New account created: user=%s provider=%q", user.ID, provider)
	return user, nil
}

func (s *AuthService) startSession(user *models.User, isNew bool) (*AuthResult, error) {
	sess, err := s.userRepo.CreateSession(security.GenerateSessionID(), user.ID, time.Now().Add(s.sessionDuration))
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	token, expiresAt, err := s.tokens.Issue(user.ID, sess.ID)
	if err != nil {
		return nil, err
	}

	s.sessions.Publish(session.Event{Kind: session.SignedIn, Session: *sess})

	return &AuthResult{
		User:            user,
		Session:         sess,
		AccessToken:     token,
		AccessExpiresAt: expiresAt,
		IsNewUser:       isNew,
	}, nil
}

// Refresh extends a session and issues a new access token. The refresh
// token is the session id.
func (s *AuthService) Refresh(refreshToken string) (*AuthResult, error) {
	sess, user, err := s.loadSession(refreshToken)
	if err != nil {
		return nil, err
	}

	expiresAt := time.Now().Add(s.sessionDuration).UTC()
	if err := s.userRepo.ExtendSession(sess.ID, expiresAt); err != nil {
		return nil, err
	}
	sess.ExpiresAt = expiresAt
	sess.RefreshedAt = time.Now().UTC()

	token, accessExpiresAt, err := s.tokens.Issue(user.ID, sess.ID)
	if err != nil {
		return nil, err
	}

	s.sessions.Publish(session.Event{Kind: session.Refreshed, Session: *sess})

	return &AuthResult{
		User:            user,
		Session:         sess,
		AccessToken:     token,
		AccessExpiresAt: accessExpiresAt,
	}, nil
}

// Authenticate resolves an access token to its user and live session
func (s *AuthService) Authenticate(accessToken string) (*models.User, *models.Session, error) {
	claims, err := s.tokens.Parse(accessToken)
	if err != nil {
		return nil, nil, err
	}
	sess, user, err := s.loadSession(claims.SessionID)
	if err != nil {
		return nil, nil, err
	}
	if user.ID != claims.Subject {
		return nil, nil, security.ErrInvalidToken
	}
	return user, sess, nil
}

// loadSession checks that a session exists and has not expired
func (s *AuthService) loadSession(sessionID string) (*models.Session, *models.User, error) {
	if sessionID == "" {
		return nil, nil, ErrSessionNotFound
	}
	sess, err := s.userRepo.GetSession(sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get session: %w", err)
	}
	if sess == nil {
		return nil, nil, ErrSessionNotFound
	}
	if sess.IsExpired() {
		_ = s.userRepo.DeleteSession(sessionID)
		s.sessions.Publish(session.Event{Kind: session.SignedOut, Session: *sess})
		return nil, nil, ErrSessionExpired
	}

	user, err := s.userRepo.GetUserByID(sess.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, nil, ErrSessionNotFound
	}
	return sess, user, nil
}

// Logout invalidates a session
func (s *AuthService) Logout(sessionID string) error {
	sess, err := s.userRepo.GetSession(sessionID)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}
	if err := s.userRepo.DeleteSession(sessionID); err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}
	if sess != nil {
		s.sessions.Publish(session.Event{Kind: session.SignedOut, Session: *sess})
	}
	return nil
}

// RestoreSessions loads unexpired sessions into the session provider
func (s *AuthService) RestoreSessions() error {
	sessions, err := s.userRepo.ListActiveSessions()
	if err != nil {
		return fmt.Errorf("failed to restore sessions: %w", err)
	}
	s.sessions.Restore(sessions)
	log.Printf("Restored %d active session(s)", len(sessions))
	return nil
}

// CleanupExpired removes expired sessions and one-time codes
func (s *AuthService) CleanupExpired() error {
	expired, err := s.userRepo.DeleteExpiredSessions()
	if err != nil {
		return fmt.Errorf("failed to cleanup sessions: %w", err)
	}
	for _, sess := range expired {
		s.sessions.Publish(session.Event{Kind: session.SignedOut, Session: sess})
	}

	codes, err := s.codeRepo.DeleteExpiredCodes()
	if err != nil {
		return fmt.Errorf("failed to cleanup codes: %w", err)
	}
	if len(expired) > 0 || codes > 0 {
		log.Printf("Cleanup removed %d session(s) and %d code(s)", len(expired), codes)
	}
	return nil
}
