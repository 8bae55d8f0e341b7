package util

import (
	"crypto/rand"
	"math/big"
	"net/url"
	"strings"
)

const codeChars = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Lengths of generated identifiers.
const (
	ShortCodeLength = 7
	APIKeyLength    = 32
)

func ValidateURL(raw string) bool {
	u, err := url.ParseRequestURI(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

// RandomCode returns a random string of the given length drawn from a
// URL-safe base62 alphabet. Uniqueness is not guaranteed here; callers
// rely on the storage unique constraint and retry on collision.
func RandomCode(length int) (string, error) {
	b := make([]byte, length)
	max := big.NewInt(int64(len(codeChars)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = codeChars[n.Int64()]
	}
	return string(b), nil
}
