package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// ChecksumMatcher verifies whether a byte payload matches a previously
// recorded SHA-256 checksum. The ingest step does not use it; no duplicate
// file detection is performed.
type ChecksumMatcher struct {
	expectedChecksum string
}

// NewChecksumMatcher creates a new ChecksumMatcher with the expected checksum.
func NewChecksumMatcher(expectedChecksum string) *ChecksumMatcher {
	return &ChecksumMatcher{expectedChecksum: expectedChecksum}
}

// Match checks if the provided data's checksum matches the expected checksum.
func (cm *ChecksumMatcher) Match(data []byte) (bool, error) {
	if cm.expectedChecksum == "" {
		return false, errors.New("expected checksum is not set")
	}
	return HashBytes(data) == cm.expectedChecksum, nil
}

// HashBytes computes the hex-encoded SHA-256 of data — the hash the ingest
// step records as each uploaded file's checksum and external id.
func HashBytes(data []byte) string {
	hash := sha256.New()
	hash.Write(data)
	return hex.EncodeToString(hash.Sum(nil))
}
