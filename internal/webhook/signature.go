package webhook

import (
	"strings"

	"github.com/google/go-github/v62/github"

	"github.com/sc2sm/sc2sm/internal/config"
)

const signaturePrefix = "sha256="

// Verify checks an X-Hub-Signature-256 header against body. An unset or
// placeholder secret accepts every delivery; callers that must reject in
// that case use a Verifier.
func Verify(body []byte, signature, secret string) bool {
	if secretUnset(secret) {
		return true
	}
	if !strings.HasPrefix(signature, signaturePrefix) {
		return false
	}
	return github.ValidateSignature(signature, body, []byte(secret)) == nil
}

func secretUnset(secret string) bool {
	return secret == "" || secret == config.PlaceholderWebhookSecret
}

// Verifier binds the webhook secret and whether unsigned deliveries may pass.
type Verifier struct {
	secret        string
	allowUnsigned bool
}

func NewVerifier(secret string, allowUnsigned bool) *Verifier {
	return &Verifier{secret: secret, allowUnsigned: allowUnsigned}
}

// NewVerifierFromConfig applies the environment rules for unsigned deliveries
func NewVerifierFromConfig(cfg *config.Config) *Verifier {
	return NewVerifier(cfg.WebhookSecret, cfg.WebhookVerificationDisabled())
}

// Verify reports whether a delivery with the given signature header is authentic.
func (v *Verifier) Verify(body []byte, signature string) bool {
	if secretUnset(v.secret) {
		return v.allowUnsigned
	}
	return Verify(body, signature, v.secret)
}
