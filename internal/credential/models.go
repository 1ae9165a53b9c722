package credential

import (
	"time"

	"credtrust/internal/proof"
	id "credtrust/pkg/domain"
	dErrors "credtrust/pkg/domain-errors"
	strutil "credtrust/pkg/platform/strings"
)

// Type classifies what kind of achievement a credential attests.
type Type string

const (
	TypeCertification Type = "certification"
	TypeBadge         Type = "badge"
	TypeDegree        Type = "degree"
	TypeLicense       Type = "license"
)

var validTypes = map[Type]bool{
	TypeCertification: true,
	TypeBadge:         true,
	TypeDegree:        true,
	TypeLicense:       true,
}

// ParseType constructs a Type from external input, enforcing the allowlist.
func ParseType(s string) (Type, error) {
	t := Type(s)
	if !validTypes[t] {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid credential type: "+s)
	}
	return t, nil
}

// VerificationStatus describes a credential's standing. Only verified and
// revoked are ever persisted; the remaining values exist for verification
// responses.
type VerificationStatus string

const (
	StatusVerified VerificationStatus = "verified"
	StatusRevoked  VerificationStatus = "revoked"
	StatusInvalid  VerificationStatus = "invalid"
	StatusNotFound VerificationStatus = "not_found"
	StatusError    VerificationStatus = "error"
)

// Persistable reports whether a status may be written to the store.
func (s VerificationStatus) Persistable() bool {
	return s == StatusVerified || s == StatusRevoked
}

// Credential is a verifiable claim record bound to a recipient and issuer.
// Created once by issuance, mutated only by revocation (terminal), never
// deleted.
type Credential struct {
	ID          id.CredentialID
	RecipientID id.UserID
	IssuerID    id.UserID

	Type        Type
	Title       string
	Description string
	Skills      []string

	IssuedDate time.Time
	ExpiryDate *time.Time

	// Integrity fields. Hash must always equal the fingerprint of the
	// canonical payload; the verifier's sole correctness check is that
	// equality.
	Hash            string
	MerkleProof     [3]string
	BlockNumber     int64
	TransactionHash string

	Status           VerificationStatus
	RevocationReason string
	RevokedAt        *time.Time

	Metadata map[string]string
}

// CanonicalPayload maps the credential onto the fingerprint serialization
// boundary. Integrity and lifecycle fields are excluded so revocation never
// changes the fingerprint.
func (c Credential) CanonicalPayload() proof.CanonicalPayload {
	p := proof.CanonicalPayload{
		ID:             c.ID.String(),
		RecipientID:    c.RecipientID.String(),
		IssuerID:       c.IssuerID.String(),
		CredentialType: string(c.Type),
		Title:          c.Title,
		Description:    c.Description,
		Skills:         c.Skills,
		IssuedDate:     c.IssuedDate.UTC().Format(time.RFC3339),
		Metadata:       c.Metadata,
	}
	if c.ExpiryDate != nil {
		p.ExpiryDate = c.ExpiryDate.UTC().Format(time.RFC3339)
	}
	return p
}

// IssueRequest is the input to credential issuance.
type IssueRequest struct {
	RecipientID id.UserID
	IssuerID    id.UserID
	Type        Type
	Title       string
	Description string
	Skills      []string
	ExpiryDate  *time.Time
	Metadata    map[string]string
}

// Validate enforces the issuance preconditions.
func (r IssueRequest) Validate() error {
	if r.RecipientID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "recipient ID is required")
	}
	if r.IssuerID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "issuer ID is required")
	}
	if _, err := ParseType(string(r.Type)); err != nil {
		return err
	}
	if r.Title == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "title is required")
	}
	return nil
}

// normalizedSkills trims and dedupes the requested skill set, preserving the
// caller's order for display.
func (r IssueRequest) normalizedSkills() []string {
	return strutil.DedupeAndTrim(r.Skills)
}

// VerificationDetails accompany a positive verification result.
type VerificationDetails struct {
	BlockNumber     int64
	TransactionHash string
	MerkleProof     [3]string
	VerifiedAt      time.Time
}

// VerificationResult is the structured outcome of a verification. Not-found
// and hash mismatch are results, not errors; Status is error only when the
// check itself could not run.
type VerificationResult struct {
	IsValid bool
	Status  VerificationStatus

	// Populated only when the credential verified successfully.
	Credential *Credential
	Details    *VerificationDetails
}

// StatusUpdate is the revocation write applied through the store.
type StatusUpdate struct {
	Status    VerificationStatus
	Reason    string
	RevokedAt time.Time
}
