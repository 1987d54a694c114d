package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
	"golang.org/x/oauth2/google"

	"famhealth/internal/activemember"
	"famhealth/internal/blob"
	"famhealth/internal/config"
	"famhealth/internal/database"
	"famhealth/internal/handlers"
	"famhealth/internal/repository"
	"famhealth/internal/security"
	"famhealth/internal/service"
	"famhealth/internal/session"
)

func main() {
	// Load configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Printf("Database connection established (type: %s)", cfg.DatabaseType)

	if err := db.RunMigrations(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Migrations completed successfully")

	ctx := context.Background()

	// Document storage
	blobs, err := blob.Open(ctx, blob.Config{
		Driver: cfg.BlobDriver,
		FSRoot: cfg.BlobFSRoot,
		S3: blob.S3Config{
			Region:    cfg.BlobS3Region,
			Bucket:    cfg.BlobS3Bucket,
			Endpoint:  cfg.BlobS3Endpoint,
			PathStyle: cfg.BlobS3PathStyle,
		},
	})
	if err != nil {
		log.Fatalf("Failed to open blob store: %v", err)
	}
	log.Printf("Blob storage ready (driver: %s)", blobs.Driver())

	emailService, err := service.NewEmailService(ctx, cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.Debug)
	if err != nil {
		log.Fatalf("Failed to initialize email service: %v", err)
	}
	if !emailService.IsEnabled() && !cfg.Debug {
		log.Println("Warning: sign-in codes cannot be delivered, only federated sign-in will work")
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	familyRepo := repository.NewFamilyRepository(db)

	// Session provider and the active-member registry watching it
	provider := session.NewProvider()
	registry := activemember.NewRegistry(provider)
	defer registry.Close()

	// Initialize services
	authService := service.NewAuthService(
		userRepo,
		repository.NewCodeRepository(db),
		profileRepo,
		security.NewTokenIssuer(cfg.TokenSecret, cfg.AccessTokenTTL),
		provider,
		emailService,
		cfg.SessionDuration,
	)
	familyService := service.NewFamilyService(familyRepo, blobs, registry)
	profileService := service.NewProfileService(profileRepo)
	onboardingService := service.NewOnboardingService(repository.NewSettingsRepository(db), profileRepo)
	recordService := service.NewRecordService(
		repository.NewDiagnosisRepository(db),
		repository.NewVisitRepository(db),
		repository.NewTestRepository(db),
	)
	documentService := service.NewDocumentService(repository.NewDocumentRepository(db), blobs, cfg.BlobPublicBaseURL, cfg.SignedURLExpiry)

	if err := authService.RestoreSessions(); err != nil {
		log.Fatalf("Failed to restore sessions: %v", err)
	}

	oauthProviders := map[string]handlers.OAuthProvider{
		"google": {
			Name:  "google",
			Label: "Google",
			Config: &oauth2.Config{
				ClientID:     cfg.GoogleClientID,
				ClientSecret: cfg.GoogleClientSecret,
				Endpoint:     google.Endpoint,
				Scopes:       []string{"openid", "email", "profile"},
			},
			UserInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
		},
		"facebook": {
			Name:  "facebook",
			Label: "Facebook",
			Config: &oauth2.Config{
				ClientID:     cfg.FacebookClientID,
				ClientSecret: cfg.FacebookClientSecret,
				Endpoint:     facebook.Endpoint,
				Scopes:       []string{"email", "public_profile"},
			},
			UserInfoURL: "https://graph.facebook.com/me?fields=id,name,email",
		},
		"apple": {
			Name:  "apple",
			Label: "Apple",
			Config: &oauth2.Config{
				ClientID:     cfg.AppleClientID,
				ClientSecret: cfg.AppleClientSecret,
				Endpoint: oauth2.Endpoint{
					AuthURL:  "https://appleid.apple.com/auth/authorize",
					TokenURL: "https://appleid.apple.com/auth/token",
				},
				Scopes: []string{"name", "email"},
			},
			AuthParams: map[string]string{
				"response_mode": "query",
			},
		},
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := handlers.NewMetrics(reg)

	// One-time code requests: 5 per minute per client IP
	limiter := security.NewRateLimiter(5, time.Minute)
	defer limiter.Stop()
	clientIP, err := security.NewClientIPResolver(cfg.TrustedProxies)
	if err != nil {
		log.Fatalf("Invalid TRUSTED_PROXIES: %v", err)
	}

	router := &handlers.Router{
		Middleware: handlers.NewMiddleware(authService, registry, limiter, clientIP),
		Auth:       handlers.NewAuthHandler(authService, oauthProviders, cfg.OAuthRedirectBaseURL, cfg.AppRedirectURL, security.NewStateSigner(cfg.TokenSecret)),
		Account:    handlers.NewAccountHandler(familyService, profileService, onboardingService),
		Members:    handlers.NewMemberHandler(familyService),
		Records:    handlers.NewRecordHandler(recordService),
		Documents:  handlers.NewDocumentHandler(documentService, cfg.UploadMaxSize),
		DB:         db,
		Sessions:   provider,
		Gatherer:   reg,
	}

	// Wrap with logging middleware
	handler := handlers.Logging(metrics, router.Routes())

	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start background cleanup of expired sessions and codes
	stopCleanup := make(chan struct{})
	go cleanupExpired(authService, stopCleanup)

	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	close(stopCleanup)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
}

// cleanupExpired periodically removes expired sessions and one-time codes
func cleanupExpired(authService *service.AuthService, stop <-chan struct{}) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := authService.CleanupExpired(); err != nil {
				log.Printf("Error cleaning up expired sessions: %v", err)
			}
		case <-stop:
			return
		}
	}
}
