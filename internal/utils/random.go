package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// RandomString returns a URL-safe token carrying the given number of random bytes.
func RandomString(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("utils: failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
