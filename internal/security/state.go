package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// StateSigner produces OAuth state values that can be verified without
// server-side storage: "<nonce>.<hex hmac-sha256(nonce)>".
type StateSigner struct {
	secret []byte
}

// NewStateSigner creates a signer keyed by secret
func NewStateSigner(secret string) *StateSigner {
	return &StateSigner{secret: []byte(secret)}
}

// Issue returns a fresh signed state
func (s *StateSigner) Issue() string {
	nonce := GenerateSessionID()
	return nonce + "." + s.sign(nonce)
}

// Verify reports whether state was produced by this signer
func (s *StateSigner) Verify(state string) bool {
	nonce, sig, ok := strings.Cut(state, ".")
	if !ok || nonce == "" || sig == "" {
		return false
	}
	return hmac.Equal([]byte(s.sign(nonce)), []byte(sig))
}

func (s *StateSigner) sign(nonce string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(nonce))
	return hex.EncodeToString(mac.Sum(nil))
}
