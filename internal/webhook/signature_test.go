package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sc2sm/sc2sm/internal/config"
)

func sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

func TestVerify(t *testing.T) {
	body := []byte(`{"zen":"Keep it logically awesome."}`)
	secret := "s3cret"

	tests := []struct {
		name      string
		signature string
		secret    string
		want      bool
	}{
		{name: "valid signature", signature: sign(body, secret), secret: secret, want: true},
		{name: "wrong secret", signature: sign(body, "other"), secret: secret, want: false},
		{name: "missing header", signature: "", secret: secret, want: false},
		{name: "sha1 prefix", signature: "sha1=" + sign(body, secret)[len(signaturePrefix):], secret: secret, want: false},
		{name: "malformed hex", signature: "sha256=zz", secret: secret, want: false},
		{name: "unset secret", signature: "", secret: "", want: true},
		{name: "placeholder secret", signature: "", secret: config.PlaceholderWebhookSecret, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Verify(body, tt.signature, tt.secret))
		})
	}
}

func TestVerifyRejectsSingleBitChange(t *testing.T) {
	body := []byte(`{"ref":"refs/heads/main","commits":[]}`)
	signature := sign(body, "s3cret")
	assert.True(t, Verify(body, signature, "s3cret"))

	for i := range body {
		mutated := append([]byte(nil), body...)
		mutated[i] ^= 0x01
		assert.False(t, Verify(mutated, signature, "s3cret"), "byte %d", i)
	}
}

func TestVerifier(t *testing.T) {
	body := []byte(`{}`)

	t.Run("unset secret follows allow flag", func(t *testing.T) {
		assert.True(t, NewVerifier("", true).Verify(body, ""))
		assert.False(t, NewVerifier("", false).Verify(body, ""))
		assert.False(t, NewVerifier(config.PlaceholderWebhookSecret, false).Verify(body, ""))
	})

	t.Run("configured secret ignores allow flag", func(t *testing.T) {
		v := NewVerifier("s3cret", true)
		assert.True(t, v.Verify(body, sign(body, "s3cret")))
		assert.False(t, v.Verify(body, ""))
	})
}
