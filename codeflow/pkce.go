package codeflow

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/oauth2"
)

const (
	DefaultStateLength = 20

	stateAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// Largest multiple of len(stateAlphabet) that fits in a byte; bytes at or
	// above it are discarded so every letter is equally likely.
	stateAcceptBelow = 256 - 256%len(stateAlphabet)
)

// GenerateState returns a random alphanumeric string of length n.
func GenerateState(n int) (string, error) {
	if n <= 0 {
		n = DefaultStateLength
	}

	out := make([]byte, 0, n)
	buf := make([]byte, n+n/4)
	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("generating state: %w", err)
		}
		for _, b := range buf {
			if int(b) >= stateAcceptBelow {
				continue
			}
			out = append(out, stateAlphabet[int(b)%len(stateAlphabet)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}

// GenerateCodeVerifier returns 32 random bytes, base64url encoded without
// padding (RFC 7636 section 4.1).
func GenerateCodeVerifier() string {
	return oauth2.GenerateVerifier()
}

// CodeChallenge is BASE64URL(SHA256(verifier)) without padding.
func CodeChallenge(verifier string) string {
	return oauth2.S256ChallengeFromVerifier(verifier)
}
