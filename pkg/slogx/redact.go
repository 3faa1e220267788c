package slogx

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
)

// RedactToken returns a log attribute carrying a short fingerprint of a
// bearer token instead of the token itself. Two log lines mentioning the
// same token share the fingerprint.
func RedactToken(key, token string) slog.Attr {
	if token == "" {
		return slog.String(key, "")
	}
	sum := sha256.Sum256([]byte(token))
	return slog.String(key, "sha256:"+hex.EncodeToString(sum[:4]))
}
