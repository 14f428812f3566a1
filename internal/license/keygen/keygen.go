// Package keygen produces license key identifiers.
//
// Keys look like PZDT-4F2A-9C01-BB37-0D6E: a fixed product prefix followed by
// four uppercase hexadecimal quads. The segmented shape exists for humans who
// type keys by hand; the 64 bits of entropy behind it make collisions across
// any realistic store population negligible.
package keygen

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

const (
	// Prefix identifies the product line a key belongs to.
	Prefix = "PZDT"

	segments    = 4
	segmentLen  = 4
	randomBytes = 8
)

var keyPattern = regexp.MustCompile(`^` + Prefix + `(-[0-9A-F]{4}){4}$`)

// Generator creates license keys from a cryptographically strong source.
// Predictable keys are a security failure, so there is no seeded mode.
type Generator struct{}

// New returns a Generator.
func New() *Generator {
	return &Generator{}
}

// Generate returns a fresh key. It only fails if the system entropy source
// does; uniqueness against the store is the caller's retry loop.
func (g *Generator) Generate() (string, error) {
	buf := make([]byte, randomBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}

	raw := strings.ToUpper(hex.EncodeToString(buf))
	parts := make([]string, 0, segments+1)
	parts = append(parts, Prefix)
	for i := 0; i < segments; i++ {
		parts = append(parts, raw[i*segmentLen:(i+1)*segmentLen])
	}
	return strings.Join(parts, "-"), nil
}

// ValidFormat reports whether key has the expected lexical shape. It says
// nothing about whether the key was ever issued.
func ValidFormat(key string) bool {
	return keyPattern.MatchString(key)
}
