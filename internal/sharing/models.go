package sharing

import (
	"time"

	id "credtrust/pkg/domain"
	dErrors "credtrust/pkg/domain-errors"
)

// SharedWithType scopes who a grant is addressed to.
type SharedWithType string

const (
	SharedPublic              SharedWithType = "public"
	SharedSpecificUser        SharedWithType = "specific_user"
	SharedOrganization        SharedWithType = "organization"
	SharedVerificationService SharedWithType = "verification_service"
)

func ParseSharedWithType(s string) (SharedWithType, error) {
	switch SharedWithType(s) {
	case SharedPublic, SharedSpecificUser, SharedOrganization, SharedVerificationService:
		return SharedWithType(s), nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown shared-with type: "+s)
	}
}

// PermissionLevel is the access tier conveyed by a grant.
type PermissionLevel string

const (
	PermissionView       PermissionLevel = "view"
	PermissionVerify     PermissionLevel = "verify"
	PermissionFullAccess PermissionLevel = "full_access"
)

func ParsePermissionLevel(s string) (PermissionLevel, error) {
	switch PermissionLevel(s) {
	case PermissionView, PermissionVerify, PermissionFullAccess:
		return PermissionLevel(s), nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown permission level: "+s)
	}
}

// FieldWildcard in FieldsAccessible grants every field.
const FieldWildcard = "*"

// Grant is a scoped, expiring, access-counted permission to read a subset of
// a credential's fields. Revocation flips IsActive; grants are never deleted.
type Grant struct {
	ID           id.GrantID
	CredentialID id.CredentialID
	OwnerID      id.UserID

	SharedWithType SharedWithType
	SharedWithID   string
	Permission     PermissionLevel

	FieldsAccessible []string
	ExpiresAt        *time.Time

	// Token is set only for public grants; addressed grants are redeemed by
	// identity, not by bearer token.
	Token string

	AccessCount    int
	MaxAccessCount *int
	IsActive       bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// allows reports whether the grant's allow-list covers the field.
func (g Grant) allows(field string) bool {
	for _, f := range g.FieldsAccessible {
		if f == FieldWildcard || f == field {
			return true
		}
	}
	return false
}

// CreateGrantRequest carries the caller-supplied grant attributes.
type CreateGrantRequest struct {
	CredentialID     id.CredentialID
	SharedWithType   SharedWithType
	SharedWithID     string
	Permission       PermissionLevel
	FieldsAccessible []string
	ExpiresAt        *time.Time
	MaxAccessCount   *int
}

func (r CreateGrantRequest) Validate() error {
	if r.CredentialID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "credential id is required")
	}
	if _, err := ParseSharedWithType(string(r.SharedWithType)); err != nil {
		return err
	}
	if _, err := ParsePermissionLevel(string(r.Permission)); err != nil {
		return err
	}
	if r.SharedWithType != SharedPublic && r.SharedWithID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "shared-with id is required for addressed grants")
	}
	if len(r.FieldsAccessible) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "fields accessible must not be empty")
	}
	if r.MaxAccessCount != nil && *r.MaxAccessCount <= 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "max access count must be positive")
	}
	return nil
}

// GrantUpdate is a partial update; nil fields are left untouched.
type GrantUpdate struct {
	Permission       *PermissionLevel
	FieldsAccessible []string
	ExpiresAt        *time.Time
	MaxAccessCount   *int
}

// AccessDecision is the structured outcome of a redemption attempt. Denials
// are decisions, not errors; DenialReason is set only when HasAccess is
// false.
type AccessDecision struct {
	HasAccess    bool
	DenialReason string

	// Populated only on granted access.
	Grant  *Grant
	Fields []string
}
