package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefix for content-addressed expectation identity. The version
// suffix enables future algorithm migration.
const domainExpectation = "understudy/expectation/v1"

// Expectation identifies a behavior specification for override detection:
// two unguarded setups with equal expectations are duplicate specifications
// of the same call pattern, and the newer registration shadows the older.
//
// The digest is a domain-separated SHA-256 over canonical JSON of the
// argument pattern, so structurally equal patterns always collide and the
// identity is stable across processes.
type Expectation struct {
	Method Method
	Digest string
}

// NewExpectation computes the expectation identity for a call pattern.
// Returns an error if the pattern cannot be canonically marshaled.
func NewExpectation(m Method, pattern Value) (Expectation, error) {
	canonical, err := MarshalCanonical(pattern)
	if err != nil {
		return Expectation{}, fmt.Errorf("expectation for %s: %w", m, err)
	}
	return Expectation{Method: m, Digest: hashWithDomain(domainExpectation, canonical)}, nil
}

// MustExpectation is like NewExpectation but panics on error. Use only in
// tests or when the pattern is known to be canonical.
func MustExpectation(m Method, pattern Value) Expectation {
	e, err := NewExpectation(m, pattern)
	if err != nil {
		panic(err)
	}
	return e
}

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null separator prevents
// domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
