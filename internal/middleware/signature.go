package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/aura-media/vod-backend/pkg/response"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw request body, optionally prefixed with "sha256=".
const SignatureHeader = "X-Webhook-Signature"

// MaxWebhookBody bounds webhook request bodies.
const MaxWebhookBody = 1 << 20

// WebhookSignature rejects requests whose body is not signed with secret.
// An empty secret disables the check.
func WebhookSignature(secret string) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		if len(key) == 0 {
			c.Next()
			return
		}
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, MaxWebhookBody))
		if err != nil {
			response.BadRequest(c, "could not read request body")
			c.Abort()
			return
		}
		if !ValidSignature(key, body, c.GetHeader(SignatureHeader)) {
			response.Error(c, http.StatusUnauthorized, "invalid signature")
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		c.Next()
	}
}

// ValidSignature reports whether header is the HMAC-SHA256 of body under key.
func ValidSignature(key, body []byte, header string) bool {
	got, err := hex.DecodeString(strings.TrimPrefix(header, "sha256="))
	if err != nil || len(got) == 0 {
		return false
	}
	mac := hmac.New(sha256.New, key)
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

// Sign returns the signature header value for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
