package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger reports whether a backing store is reachable
type Pinger interface {
	PingContext(ctx context.Context) error
}

// SessionState reports whether persisted sessions are still being restored
type SessionState interface {
	Loading() bool
}

// Router bundles the handlers served by the API
type Router struct {
	Middleware *Middleware
	Auth       *AuthHandler
	Account    *AccountHandler
	Members    *MemberHandler
	Records    *RecordHandler
	Documents  *DocumentHandler
	DB         Pinger
	Sessions   SessionState
	Gatherer   prometheus.Gatherer
}

// Routes registers every route on a new ServeMux
func (rt *Router) Routes() *http.ServeMux {
	m := rt.Middleware
	mux := http.NewServeMux()

	// Health and metrics
	mux.HandleFunc("GET /healthz", rt.health)
	if rt.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(rt.Gatherer, promhttp.HandlerOpts{}))
	}

	// Sign-in
	mux.HandleFunc("POST /auth/otp", m.RateLimit(rt.Auth.RequestCode))
	mux.HandleFunc("POST /auth/otp/verify", m.RateLimit(rt.Auth.VerifyCode))
	mux.HandleFunc("GET /auth/providers", rt.Auth.ListProviders)
	mux.HandleFunc("GET /auth/{provider}/start", rt.Auth.StartOAuth)
	mux.HandleFunc("GET /auth/{provider}/callback", rt.Auth.OAuthCallback)
	mux.HandleFunc("POST /auth/refresh", rt.Auth.Refresh)
	mux.HandleFunc("POST /auth/logout", rt.Auth.Logout)

	// Account
	mux.HandleFunc("GET /api/session", m.RequireAuth(rt.Account.Session))
	mux.HandleFunc("GET /api/active-member", m.RequireAuth(rt.Account.GetActiveMember))
	mux.HandleFunc("PUT /api/active-member", m.RequireAuth(rt.Account.SetActiveMember))
	mux.HandleFunc("GET /api/onboarding", m.RequireAuth(rt.Account.Onboarding))
	mux.HandleFunc("POST /api/onboarding/walkthrough", m.RequireAuth(rt.Account.CompleteWalkthrough))
	mux.HandleFunc("GET /api/profile", m.RequireAuth(rt.Account.GetProfile))
	mux.HandleFunc("PUT /api/profile", m.RequireAuth(rt.Account.UpdateProfile))

	// Family members
	mux.HandleFunc("GET /api/members", m.RequireAuth(rt.Members.ListMembers))
	mux.HandleFunc("POST /api/members", m.RequireAuth(rt.Members.CreateMember))
	mux.HandleFunc("GET /api/members/{id}", m.RequireAuth(rt.Members.GetMember))
	mux.HandleFunc("PUT /api/members/{id}", m.RequireAuth(rt.Members.UpdateMember))
	mux.HandleFunc("DELETE /api/members/{id}", m.RequireAuth(rt.Members.DeleteMember))

	// Records
	mux.HandleFunc("GET /api/diagnoses", m.RequireAuth(rt.Records.ListDiagnoses))
	mux.HandleFunc("POST /api/diagnoses", m.RequireAuth(rt.Records.CreateDiagnosis))
	mux.HandleFunc("GET /api/diagnoses/{id}", m.RequireAuth(rt.Records.GetDiagnosis))
	mux.HandleFunc("PUT /api/diagnoses/{id}", m.RequireAuth(rt.Records.UpdateDiagnosis))
	mux.HandleFunc("DELETE /api/diagnoses/{id}", m.RequireAuth(rt.Records.DeleteDiagnosis))

	mux.HandleFunc("GET /api/visits", m.RequireAuth(rt.Records.ListVisits))
	mux.HandleFunc("POST /api/visits", m.RequireAuth(rt.Records.CreateVisit))
	mux.HandleFunc("GET /api/visits/{id}", m.RequireAuth(rt.Records.GetVisit))
	mux.HandleFunc("PUT /api/visits/{id}", m.RequireAuth(rt.Records.UpdateVisit))
	mux.HandleFunc("DELETE /api/visits/{id}", m.RequireAuth(rt.Records.DeleteVisit))

	mux.HandleFunc("GET /api/tests", m.RequireAuth(rt.Records.ListTests))
	mux.HandleFunc("POST /api/tests", m.RequireAuth(rt.Records.CreateTest))
	mux.HandleFunc("GET /api/tests/{id}", m.RequireAuth(rt.Records.GetTest))
	mux.HandleFunc("PUT /api/tests/{id}", m.RequireAuth(rt.Records.UpdateTest))
	mux.HandleFunc("DELETE /api/tests/{id}", m.RequireAuth(rt.Records.DeleteTest))

	// Documents
	mux.HandleFunc("GET /api/documents", m.RequireAuth(rt.Documents.ListDocuments))
	mux.HandleFunc("POST /api/documents", m.RequireAuth(rt.Documents.UploadDocument))
	mux.HandleFunc("GET /api/documents/{id}", m.RequireAuth(rt.Documents.GetDocument))
	mux.HandleFunc("PUT /api/documents/{id}", m.RequireAuth(rt.Documents.UpdateDocument))
	mux.HandleFunc("DELETE /api/documents/{id}", m.RequireAuth(rt.Documents.DeleteDocument))
	mux.HandleFunc("GET /api/documents/{id}/url", m.RequireAuth(rt.Documents.SignedURL))
	mux.HandleFunc("GET /api/documents/{id}/file", m.RequireAuth(rt.Documents.DownloadFile))

	return mux
}

func (rt *Router) health(w http.ResponseWriter, r *http.Request) {
	if rt.Sessions != nil && rt.Sessions.Loading() {
		respondWithError(w, http.StatusServiceUnavailable, "Restoring sessions", "", nil)
		return
	}
	if rt.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := rt.DB.PingContext(ctx); err != nil {
			respondWithError(w, http.StatusServiceUnavailable, "Database unavailable", "Health check failed", err)
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
