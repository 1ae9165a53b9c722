// Package proof produces the integrity artifacts stored on a credential: a
// deterministic fingerprint over the canonical payload, a presentational
// Merkle proof, and a synthetic block reference.
//
// The fingerprint is the only artifact with a correctness contract: the same
// canonical payload must always re-derive to the same value, because
// verification recomputes it and compares against the stored copy. The proof
// and block reference are decorative and carry no cryptographic meaning.
package proof

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/blake2b"

	strutil "credtrust/pkg/platform/strings"
)

// CanonicalPayload is the timestamp-free serialization boundary for a
// credential fingerprint. Integrity fields (hash, proof, block reference) and
// mutable lifecycle fields (status, revocation metadata) are deliberately
// absent: the fingerprint must survive revocation unchanged.
//
// IssuedDate and ExpiryDate are RFC 3339 strings captured at issuance so the
// serialization cannot drift with time zones or clock reads at verify time.
type CanonicalPayload struct {
	ID             string            `json:"id"`
	RecipientID    string            `json:"recipientId"`
	IssuerID       string            `json:"issuerId"`
	CredentialType string            `json:"credentialType"`
	Title          string            `json:"title"`
	Description    string            `json:"description"`
	Skills         []string          `json:"skills"`
	IssuedDate     string            `json:"issuedDate"`
	ExpiryDate     string            `json:"expiryDate,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// canonicalize normalizes order-sensitive fields. Skills are a set; map keys
// are sorted by encoding/json already.
func (p CanonicalPayload) canonicalize() CanonicalPayload {
	p.Skills = strutil.DedupeSorted(p.Skills)
	return p
}

// Fingerprint returns the hex-encoded SHA-256 digest of the canonical
// serialization of the payload. Invariant: equal logical payloads always
// produce equal fingerprints.
func Fingerprint(payload CanonicalPayload) (string, error) {
	data, err := json.Marshal(payload.canonicalize())
	if err != nil {
		return "", fmt.Errorf("marshal canonical payload: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// proofLabels namespace the three derived proof segments.
var proofLabels = [3]string{"left", "right", "root"}

// DeriveProof returns the three-element presentational proof for a
// fingerprint. Stable for a given fingerprint; not an inclusion proof.
func DeriveProof(fingerprint string) [3]string {
	var out [3]string
	for i, label := range proofLabels {
		sum := blake2b.Sum256([]byte(fingerprint + ":" + label))
		out[i] = hex.EncodeToString(sum[:16])
	}
	return out
}
