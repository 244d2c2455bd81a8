// Package hash computes stable content fingerprints for probes.
//
// Probe ids must be deterministic across compilations of the same source so
// that capture events from different host processes can be correlated. The
// fingerprint covers the canonical probe spec and the probe's ordinal
// position in its program.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// FingerprintLen is the hex length of a probe fingerprint (96 bits).
const FingerprintLen = 24

// ProbeFingerprint returns the stable id for a probe: a truncated hex
// sha256 over the canonical spec string and the probe's position.
func ProbeFingerprint(spec string, ordinal int) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s#%d", spec, ordinal)))
	return hex.EncodeToString(h[:])[:FingerprintLen]
}
