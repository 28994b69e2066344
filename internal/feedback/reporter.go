// Package feedback - reporter.go derives stable pseudonymous reporter IDs.
// Community reports and feedback records carry a reporter ID so repeated
// reports from one installation can be grouped without identifying it.
package feedback

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/hkdf"
)

// seedBytes is the size of a freshly generated installation seed.
const seedBytes = 32

// minSeedBytes is the smallest seed accepted for derivation.
const minSeedBytes = 16

// reporterIDBytes is the derived identifier length before hex encoding.
const reporterIDBytes = 16

var reporterSalt = []byte("jobshield.reporter.v1")

// DeriveReporterID derives a stable pseudonymous reporter identifier from an
// installation seed. The same seed always yields the same ID; the seed cannot
// be recovered from the ID.
func DeriveReporterID(seed []byte) (string, error) {
	if len(seed) < minSeedBytes {
		return "", fmt.Errorf("reporter seed too short: %d bytes, need %d", len(seed), minSeedBytes)
	}
	reader := hkdf.New(sha256.New, seed, reporterSalt, []byte("reporter-id"))
	id := make([]byte, reporterIDBytes)
	if _, err := io.ReadFull(reader, id); err != nil {
		return "", fmt.Errorf("failed to derive reporter id: %w", err)
	}
	return hex.EncodeToString(id), nil
}

// NewSeed returns a fresh random installation seed.
func NewSeed() ([]byte, error) {
	seed := make([]byte, seedBytes)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("failed to generate reporter seed: %w", err)
	}
	return seed, nil
}

// LoadOrCreateSeed reads the installation seed at path, creating it with a
// fresh random value on first use.
func LoadOrCreateSeed(path string) ([]byte, error) {
	seed, err := os.ReadFile(path)
	if err == nil {
		if len(seed) < minSeedBytes {
			return nil, fmt.Errorf("reporter seed at %s is too short", path)
		}
		return seed, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read reporter seed: %w", err)
	}

	seed, err = NewSeed()
	if err != nil {
		return nil, err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create seed directory: %w", err)
		}
	}
	if err := os.WriteFile(path, seed, 0600); err != nil {
		return nil, fmt.Errorf("failed to write reporter seed: %w", err)
	}
	return seed, nil
}
