package domain

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Environment constants
const (
	EnvTest = "test"
	EnvLive = "live"
)

const (
	apiKeyPrefix = "hk"
	apiKeyLength = 32
	base62Chars  = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
)

var validEnvironments = map[string]bool{
	EnvTest: true,
	EnvLive: true,
}

// APIKey authenticates a producer or tenant dashboard against the service.
// Only the SHA-256 hash is stored.
type APIKey struct {
	ID          uuid.UUID  `json:"id"`
	TenantID    uuid.UUID  `json:"tenant_id"`
	Name        string     `json:"name"`
	KeyHash     string     `json:"-"`
	KeyPrefix   string     `json:"key_prefix"`
	Environment string     `json:"environment"`
	IsActive    bool       `json:"is_active"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// GenerateAPIKey creates a new key in the form hk_<env>_<random32>.
// Returns (plainKey, hash, displayPrefix). The plain key is shown once.
func GenerateAPIKey(env string) (string, string, string, error) {
	if !validEnvironments[env] {
		return "", "", "", errors.New("invalid environment: must be 'test' or 'live'")
	}

	randomPart, err := generateSecureRandomString(apiKeyLength)
	if err != nil {
		return "", "", "", err
	}

	prefix := apiKeyPrefix + "_" + env + "_"
	plainKey := prefix + randomPart

	hash := HashAPIKey(plainKey)

	// Display prefix: hk_live_A1b2C3
	keyPrefix := plainKey[:14]

	return plainKey, hash, keyPrefix, nil
}

// HashAPIKey returns the SHA-256 hex digest of a plain key.
func HashAPIKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}

// IsValidFormat checks the hk_<env>_<random32> shape without touching the store.
func IsValidFormat(key string) bool {
	parts := strings.SplitN(key, "_", 3)
	if len(parts) != 3 {
		return false
	}

	if parts[0] != apiKeyPrefix {
		return false
	}

	if !validEnvironments[parts[1]] {
		return false
	}

	randomPart := parts[2]
	if len(randomPart) != apiKeyLength {
		return false
	}

	for _, char := range randomPart {
		if !strings.ContainsRune(base62Chars, char) {
			return false
		}
	}

	return true
}

func generateSecureRandomString(length int) (string, error) {
	result := make([]byte, length)
	base62Len := big.NewInt(int64(len(base62Chars)))

	for i := 0; i < length; i++ {
		num, err := rand.Int(rand.Reader, base62Len)
		if err != nil {
			return "", err
		}
		result[i] = base62Chars[num.Int64()]
	}

	return string(result), nil
}

// GenerateWebhookSecret returns a random hex signing secret. It is exposed
// exactly once, at webhook creation.
func GenerateWebhookSecret() (string, error) {
	bytes := make([]byte, WebhookSecretLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
