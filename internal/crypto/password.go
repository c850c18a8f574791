package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

// HashPassword hashes a password with argon2id and returns the PHC encoded
// string. Parameters: m=65536, t=3, p=4, keyLen=32.
func HashPassword(password string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, 3, 65536, 4, 32)

	return fmt.Sprintf("$argon2id$v=19$m=65536,t=3,p=4$%s$%s",
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash)), nil
}

// VerifyPassword checks a password against a PHC-format argon2id hash.
// Format: $argon2id$v=19$m=65536,t=3,p=4$<salt>$<hash>
func VerifyPassword(password, encoded string) bool {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false
	}

	paramParts := strings.Split(parts[3], ",")
	if len(paramParts) != 3 {
		return false
	}

	memory, err := parseParam(paramParts[0], "m=")
	if err != nil {
		return false
	}
	iterations, err := parseParam(paramParts[1], "t=")
	if err != nil {
		return false
	}
	parallelism, err := parseParam(paramParts[2], "p=")
	if err != nil {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	expectedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false
	}

	computed := argon2.IDKey([]byte(password), salt, uint32(iterations), uint32(memory), uint8(parallelism), uint32(len(expectedHash)))
	return subtle.ConstantTimeCompare(computed, expectedHash) == 1
}

func parseParam(s, prefix string) (int, error) {
	if !strings.HasPrefix(s, prefix) {
		return 0, fmt.Errorf("missing prefix %s", prefix)
	}
	return strconv.Atoi(s[len(prefix):])
}

// HashAPIKey computes the SHA-256 hex digest stored for API key lookup.
func HashAPIKey(rawKey string) string {
	h := sha256.Sum256([]byte(rawKey))
	return hex.EncodeToString(h[:])
}
