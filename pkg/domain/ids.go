// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "credtrust/pkg/domain-errors"
)

// Distinct ID types - compiler prevents passing a UserID where a CredentialID
// is expected.
type (
	UserID       uuid.UUID
	CredentialID uuid.UUID
	GrantID      uuid.UUID
	DisputeID    uuid.UUID
	ExportID     uuid.UUID
)

// Parse functions - use at trust boundaries (application layer inputs).

func ParseUserID(s string) (UserID, error) {
	id, err := parseUUID(s, "user ID")
	return UserID(id), err
}

func ParseCredentialID(s string) (CredentialID, error) {
	id, err := parseUUID(s, "credential ID")
	return CredentialID(id), err
}

func ParseGrantID(s string) (GrantID, error) {
	id, err := parseUUID(s, "grant ID")
	return GrantID(id), err
}

func ParseDisputeID(s string) (DisputeID, error) {
	id, err := parseUUID(s, "dispute ID")
	return DisputeID(id), err
}

func ParseExportID(s string) (ExportID, error) {
	id, err := parseUUID(s, "export ID")
	return ExportID(id), err
}

// New functions - use when creating entities.

func NewCredentialID() CredentialID { return CredentialID(uuid.New()) }
func NewGrantID() GrantID           { return GrantID(uuid.New()) }
func NewDisputeID() DisputeID       { return DisputeID(uuid.New()) }
func NewExportID() ExportID         { return ExportID(uuid.New()) }

// String methods - for logging and debugging.

func (id UserID) String() string       { return uuid.UUID(id).String() }
func (id CredentialID) String() string { return uuid.UUID(id).String() }
func (id GrantID) String() string      { return uuid.UUID(id).String() }
func (id DisputeID) String() string    { return uuid.UUID(id).String() }
func (id ExportID) String() string     { return uuid.UUID(id).String() }

// IsNil checks - used for service-layer validation.

func (id UserID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id CredentialID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id GrantID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id DisputeID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id ExportID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }

// parseUUID is the shared validation logic.
// Note: Nil UUIDs are allowed here. Use IsNil() at the service layer for
// business validation, which allows store lookups to return proper
// "not found" errors for consistency.
func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label+" format")
	}
	return id, nil
}
