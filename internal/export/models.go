package export

import (
	"encoding/json"
	"time"

	id "credtrust/pkg/domain"
	dErrors "credtrust/pkg/domain-errors"
)

// Format selects the payload transformation applied to a credential.
type Format string

const (
	FormatOpenBadges Format = "open_badges"
	FormatEuropass   Format = "europass"
	FormatJSONLD     Format = "json_ld"
	FormatPrint      Format = "print"
)

func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatOpenBadges, FormatEuropass, FormatJSONLD, FormatPrint:
		return Format(s), nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown export format: "+s)
	}
}

// Record is a persisted export: the transformed payload plus the
// access-counted download token guarding it.
type Record struct {
	ID           id.ExportID
	CredentialID id.CredentialID
	UserID       id.UserID

	Format  Format
	Payload json.RawMessage

	DownloadToken  string
	ExpiresAt      time.Time
	AccessCount    int
	MaxAccessCount *int

	CreatedAt time.Time
}

// DownloadDecision is the structured outcome of a download attempt. Denials
// are decisions, not errors, mirroring sharing grant redemption.
type DownloadDecision struct {
	Allowed      bool
	DenialReason string

	// Populated only on an allowed download.
	Record  *Record
	Payload json.RawMessage
}
