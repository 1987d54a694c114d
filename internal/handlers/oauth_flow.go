package handlers

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"famhealth/internal/security"
	"famhealth/internal/service"
)

const (
	oauthCookieTTL    = 10 * time.Minute
	oauthTimeout      = 10 * time.Second
	appleIssuer       = "https://appleid.apple.com"
	appleKeysEndpoint = "https://appleid.apple.com/auth/keys"
)

// OAuthProvider defines provider configuration and metadata
type OAuthProvider struct {
	Name        string
	Label       string
	Config      *oauth2.Config
	UserInfoURL string
	AuthParams  map[string]string
}

func (p OAuthProvider) configured() bool {
	return p.Config != nil && p.Config.ClientID != "" && p.Config.ClientSecret != ""
}

type oauthUserInfo struct {
	Subject string
	Email   string
	Name    string
}

// ListProviders returns the federated providers that are configured
func (h *AuthHandler) ListProviders(w http.ResponseWriter, r *http.Request) {
	type providerView struct {
		Name     string `json:"name"`
		Label    string `json:"label"`
		StartURL string `json:"start_url"`
	}
	views := []providerView{}
	for key, provider := range h.oauthProviders {
		if !provider.configured() {
			continue
		}
		views = append(views, providerView{Name: key, Label: provider.Label, StartURL: "/auth/" + key + "/start"})
	}
	respondJSON(w, http.StatusOK, views)
}

// StartOAuth initiates the OAuth flow for a provider
func (h *AuthHandler) StartOAuth(w http.ResponseWriter, r *http.Request) {
	providerKey := r.PathValue("provider")
	provider, ok := h.oauthProviders[providerKey]
	if !ok || !provider.configured() {
		respondWithError(w, http.StatusBadRequest, "OAuth provider not configured", "", nil)
		return
	}

	state := h.states.Issue()
	nonce := security.GenerateSessionID()

	http.SetCookie(w, security.CreateTempCookie(r, OAuthStateCookieName, state, oauthCookieTTL))
	http.SetCookie(w, security.CreateTempCookie(r, OAuthProviderCookieName, providerKey, oauthCookieTTL))
	http.SetCookie(w, security.CreateTempCookie(r, OAuthNonceCookieName, nonce, oauthCookieTTL))

	config := *provider.Config
	config.RedirectURL = h.oauthRedirectURL(r, providerKey)

	options := []oauth2.AuthCodeOption{oauth2.AccessTypeOnline}
	for key, value := range provider.AuthParams {
		options = append(options, oauth2.SetAuthURLParam(key, value))
	}
	if providerKey == "apple" {
		options = append(options, oauth2.SetAuthURLParam("nonce", nonce))
	}

	http.Redirect(w, r, config.AuthCodeURL(state, options...), http.StatusFound)
}

// OAuthCallback handles the provider callback and hands tokens to the app
func (h *AuthHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	providerKey := r.PathValue("provider")
	provider, ok := h.oauthProviders[providerKey]
	if !ok || !provider.configured() {
		respondWithError(w, http.StatusBadRequest, "OAuth provider not configured", "", nil)
		return
	}

	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")
	if code == "" {
		h.redirectWithError(w, r, "missing_code")
		return
	}

	stateCookie, err := r.Cookie(OAuthStateCookieName)
	if err != nil || stateCookie.Value != state || !h.states.Verify(state) {
		h.redirectWithError(w, r, "invalid_state")
		return
	}
	if providerCookie, err := r.Cookie(OAuthProviderCookieName); err == nil && providerCookie.Value != providerKey {
		h.redirectWithError(w, r, "provider_mismatch")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), oauthTimeout)
	defer cancel()

	config := *provider.Config
	config.RedirectURL = h.oauthRedirectURL(r, providerKey)

	token, err := config.Exchange(ctx, code)
	if err != nil {
		log.Printf("Error exchanging %s OAuth code: %v", providerKey, err)
		h.redirectWithError(w, r, "exchange_failed")
		return
	}

	userInfo, err := h.fetchOAuthUserInfo(ctx, providerKey, provider, token, r)
	if err != nil {
		log.Printf("Error fetching %s user info: %v", providerKey, err)
		h.redirectWithError(w, r, "userinfo_failed")
		return
	}

	h.clearOAuthCookies(w, r)

	res, err := h.authService.OAuthLogin(providerKey, userInfo.Subject, userInfo.Email, userInfo.Name)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			h.redirectWithError(w, r, "email_taken")
			return
		}
		log.Printf("Error completing %s sign-in: %v", providerKey, err)
		h.redirectWithError(w, r, "sign_in_failed")
		return
	}

	params := url.Values{
		"access_token":      {res.AccessToken},
		"refresh_token":     {res.Session.ID},
		"access_expires_at": {strconv.FormatInt(res.AccessExpiresAt.Unix(), 10)},
		"is_new_user":       {strconv.FormatBool(res.IsNewUser)},
	}
	http.Redirect(w, r, h.appRedirectURL+"#"+params.Encode(), http.StatusSeeOther)
}

func (h *AuthHandler) redirectWithError(w http.ResponseWriter, r *http.Request, reason string) {
	h.clearOAuthCookies(w, r)
	http.Redirect(w, r, h.appRedirectURL+"#"+url.Values{"error": {reason}}.Encode(), http.StatusSeeOther)
}

func (h *AuthHandler) clearOAuthCookies(w http.ResponseWriter, r *http.Request) {
	for _, name := range []string{OAuthStateCookieName, OAuthProviderCookieName, OAuthNonceCookieName} {
		http.SetCookie(w, security.CreateDeleteCookie(r, name))
	}
}

func (h *AuthHandler) fetchOAuthUserInfo(ctx context.Context, providerKey string, provider OAuthProvider, token *oauth2.Token, r *http.Request) (oauthUserInfo, error) {
	switch providerKey {
	case "google", "facebook":
		return fetchUserInfo(ctx, provider, token)
	case "apple":
		idToken, _ := token.Extra("id_token").(string)
		if idToken == "" {
			return oauthUserInfo{}, errors.New("missing Apple id_token")
		}
		nonce := ""
		if cookie, err := r.Cookie(OAuthNonceCookieName); err == nil {
			nonce = cookie.Value
		}
		return parseAppleIDToken(ctx, idToken, provider.Config.ClientID, nonce, fetchApplePublicKey)
	default:
		return oauthUserInfo{}, errors.New("unsupported OAuth provider")
	}
}

// fetchUserInfo reads {id, email, name} from a provider's user info endpoint
func fetchUserInfo(ctx context.Context, provider OAuthProvider, token *oauth2.Token) (oauthUserInfo, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	resp, err := client.Get(provider.UserInfoURL)
	if err != nil {
		return oauthUserInfo{}, fmt.Errorf("failed to fetch %s user info: %w", provider.Label, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return oauthUserInfo{}, fmt.Errorf("failed to fetch %s user info: status %d", provider.Label, resp.StatusCode)
	}

	var payload struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return oauthUserInfo{}, fmt.Errorf("failed to parse %s user info: %w", provider.Label, err)
	}

	return oauthUserInfo{Subject: payload.ID, Email: payload.Email, Name: payload.Name}, nil
}

func (h *AuthHandler) oauthRedirectURL(r *http.Request, providerKey string) string {
	baseURL := strings.TrimSpace(h.oauthRedirectBaseURL)
	if baseURL == "" {
		scheme := "http"
		if security.IsSecureRequest(r) {
			scheme = "https"
		}
		baseURL = fmt.Sprintf("%s://%s", scheme, r.Host)
	}
	return fmt.Sprintf("%s/auth/%s/callback", strings.TrimRight(baseURL, "/"), providerKey)
}

type appleTokenClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Nonce string `json:"nonce"`
}

type appleJWK struct {
	Keys []appleJWKKey `json:"keys"`
}

type appleJWKKey struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type appleKeyFunc func(ctx context.Context, kid string) (*rsa.PublicKey, error)

func parseAppleIDToken(ctx context.Context, idToken, clientID, nonce string, keys appleKeyFunc) (oauthUserInfo, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer(appleIssuer),
		jwt.WithAudience(clientID),
		jwt.WithExpirationRequired(),
	)
	claims := &appleTokenClaims{}

	_, err := parser.ParseWithClaims(idToken, claims, func(token *jwt.Token) (interface{}, error) {
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing key id")
		}
		return keys(ctx, kid)
	})
	if err != nil {
		return oauthUserInfo{}, fmt.Errorf("invalid Apple token: %w", err)
	}

	if nonce != "" && claims.Nonce != nonce {
		return oauthUserInfo{}, errors.New("invalid Apple nonce")
	}
	if claims.Email == "" {
		return oauthUserInfo{}, errors.New("Apple email not available")
	}

	return oauthUserInfo{Subject: claims.Subject, Email: claims.Email}, nil
}

func fetchApplePublicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, appleKeysEndpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(request)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New("failed to fetch Apple public keys")
	}

	var jwk appleJWK
	if err := json.NewDecoder(resp.Body).Decode(&jwk); err != nil {
		return nil, err
	}
	return jwk.find(kid)
}

func (set appleJWK) find(kid string) (*rsa.PublicKey, error) {
	for _, key := range set.Keys {
		if key.Kid != kid {
			continue
		}
		if key.Kty != "RSA" {
			return nil, errors.New("unexpected key type")
		}
		modulus, err := base64.RawURLEncoding.DecodeString(key.N)
		if err != nil {
			return nil, err
		}
		exponentBytes, err := base64.RawURLEncoding.DecodeString(key.E)
		if err != nil {
			return nil, err
		}
		exponent := 0
		for _, b := range exponentBytes {
			exponent = exponent*256 + int(b)
		}
		return &rsa.PublicKey{N: new(big.Int).SetBytes(modulus), E: exponent}, nil
	}
	return nil, errors.New("Apple public key not found")
}
