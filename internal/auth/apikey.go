package auth

import (
	"strings"

	"github.com/google/uuid"
)

// APIKeyPrefix marks opaque API keys apart from JWTs in Authorization
// headers: the middleware routes "Bearer sk-..." to a database lookup instead
// of signature verification.
const APIKeyPrefix = "sk-"

// GenerateAPIKey returns a new opaque API key: "sk-" followed by two random
// UUIDs with the hyphens stripped (64 hex characters). The key is stored on
// the account and shown to the user exactly once; generating a new one
// replaces the old.
func GenerateAPIKey() string {
	raw := uuid.NewString() + uuid.NewString()
	return APIKeyPrefix + strings.ReplaceAll(raw, "-", "")
}

// IsAPIKey reports whether a bearer credential is an opaque API key rather
// than a JWT.
func IsAPIKey(credential string) bool {
	return strings.HasPrefix(credential, APIKeyPrefix)
}
