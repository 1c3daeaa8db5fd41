package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Validator checks webhook signatures with HMAC-SHA256 over the raw body.
// An empty secret disables validation entirely; callers decide whether to
// allow that weak mode.
type Validator struct {
	secret []byte
}

// New builds Validator with the configured shared secret.
func New(secret string) *Validator {
	return &Validator{secret: []byte(secret)}
}

// Configured reports whether a secret is set.
func (v *Validator) Configured() bool {
	return len(v.secret) > 0
}

// Sign computes the hex signature for a payload.
func (v *Validator) Sign(payload []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Valid reports whether the provided signature matches the payload. The
// comparison is constant time.
func (v *Validator) Valid(payload []byte, provided string) bool {
	expected := v.Sign(payload)
	return hmac.Equal([]byte(expected), []byte(provided))
}
