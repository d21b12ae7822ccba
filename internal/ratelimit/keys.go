package ratelimit

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
)

// Fingerprint derives a stable device identifier from request headers. It is
// deliberately coarse: the goal is a second tracking axis next to IP, not
// client identification. Returns "" when no contributing header is present so
// the dimension is skipped instead of collapsing all header-less clients onto
// one counter.
func Fingerprint(r *http.Request) string {
	parts := []string{
		r.Header.Get("User-Agent"),
		r.Header.Get("Accept-Language"),
		r.Header.Get("Accept-Encoding"),
	}

	joined := strings.Join(parts, "|")
	if joined == "||" {
		return ""
	}

	sum := sha256.Sum256([]byte(joined))
	return hex.EncodeToString(sum[:16])
}

// NormalizeContact reduces a submitted email or phone to a canonical
// rate-limit key. Email wins when both are present. Returns "" when neither
// yields anything usable.
func NormalizeContact(email, phone string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	if email != "" {
		return email
	}

	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}

	return digits.String()
}
