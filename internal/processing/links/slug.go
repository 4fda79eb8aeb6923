package links

import (
	"crypto/rand"
	"strings"
)

const (
	base62Alphabet    = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	defaultSlugLength = 6
	// Largest multiple of 62 that fits in a byte; higher bytes are rejected
	// so every symbol is equally likely.
	unbiasedLimit = 248
)

// reservedCodes are top-level path segments served by fixed routes, which
// take precedence over GET /{code}.
var reservedCodes = map[string]struct{}{
	"api":     {},
	"health":  {},
	"metrics": {},
	"ready":   {},
}

// IsReservedCode compares case-insensitively so lookalikes stay unambiguous.
func IsReservedCode(code string) bool {
	_, ok := reservedCodes[strings.ToLower(code)]
	return ok
}

type CryptoSlugger struct{}

func NewCryptoSlugger() *CryptoSlugger { return &CryptoSlugger{} }

func (s *CryptoSlugger) Generate(length int) (string, error) {
	if length <= 0 {
		length = defaultSlugLength
	}

	out := make([]byte, 0, length)
	buf := make([]byte, length+length/2)
	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if b >= unbiasedLimit {
				continue
			}
			out = append(out, base62Alphabet[int(b)%len(base62Alphabet)])
			if len(out) == length {
				break
			}
		}
	}

	return string(out), nil
}
