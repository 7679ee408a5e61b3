// Package auth provides Binance API authentication using HMAC-SHA256 signatures.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
)

// APIKeyHeader carries the raw API key on authenticated and listen key requests.
const APIKeyHeader = "X-MBX-APIKEY"

// ErrMissingSecret is returned when a signature is requested without a secret.
var ErrMissingSecret = errors.New("API secret is required for signed requests")

// Credentials holds the API key and secret. The secret never leaves the process.
type Credentials struct {
	APIKey string // Sent in the X-MBX-APIKEY header
	Secret string // Used locally to compute signatures
}

// NewCredentials trims stray whitespace, which silently breaks signatures.
func NewCredentials(apiKey, secret string) Credentials {
	return Credentials{
		APIKey: strings.TrimSpace(apiKey),
		Secret: strings.TrimSpace(secret),
	}
}

// HasKey reports whether an API key is configured.
func (c Credentials) HasKey() bool {
	return c.APIKey != ""
}

// Apply sets the API key header on h. No-op when no key is configured.
func (c Credentials) Apply(h http.Header) {
	if c.APIKey != "" {
		h.Set(APIKeyHeader, c.APIKey)
	}
}

// Sign returns the signature of data under the account secret.
func (c Credentials) Sign(data string) (string, error) {
	if c.Secret == "" {
		return "", ErrMissingSecret
	}
	return Sign(c.Secret, data), nil
}

// Sign computes HMAC-SHA256(secret, data) as 64 lowercase hex characters.
func Sign(secret, data string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}
