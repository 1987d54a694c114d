package handlers

const (
	OAuthStateCookieName    = "oauth_state"
	OAuthProviderCookieName = "oauth_provider"
	OAuthNonceCookieName    = "oauth_nonce"

	ErrInvalidRequestBody  = "Invalid request body"
	ErrUnauthorized        = "Unauthorized"
	ErrNotFound            = "Not found"
	ErrInternalServerError = "Internal server error"
	ErrTooManyRequests     = "Too many requests, try again later"
	ErrNoActiveMember      = "No active member selected"
)
