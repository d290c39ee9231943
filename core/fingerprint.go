package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// hashPayload returns the hex-encoded sha256 digest of the payload.
func hashPayload(payload string) string {
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// FingerprintWindow is the coarse dataset fingerprint for a single-source
// run: the number of response rows read plus the window start. Two runs over
// an unchanged window produce the same hash; any ingestion in between almost
// certainly changes it.
func FingerprintWindow(rowCount int, since time.Time) string {
	return hashPayload(fmt.Sprintf("%d:%s", rowCount, since.UTC().Format(time.RFC3339)))
}

// FingerprintSnapshot is the dataset fingerprint for a detection run, which
// reads three result histories rather than raw responses.
func FingerprintSnapshot(cttRows, irtRows, exposureRows int, since time.Time) string {
	return hashPayload(fmt.Sprintf("%d:%d:%d:%s", cttRows, irtRows, exposureRows, since.UTC().Format(time.RFC3339)))
}
