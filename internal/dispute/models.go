package dispute

import (
	"time"

	id "credtrust/pkg/domain"
	dErrors "credtrust/pkg/domain-errors"
)

// Type classifies what the filer claims is wrong with the credential.
type Type string

const (
	TypeIncorrectInfo        Type = "incorrect_info"
	TypeUnauthorizedIssuance Type = "unauthorized_issuance"
	TypeRevocationRequest    Type = "revocation_request"
	TypeIdentityTheft        Type = "identity_theft"
)

func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeIncorrectInfo, TypeUnauthorizedIssuance, TypeRevocationRequest, TypeIdentityTheft:
		return Type(s), nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown dispute type: "+s)
	}
}

// Status is the dispute's position in the review pipeline. The machine is
// linear: pending → under_review → {resolved, rejected}. Resolved and
// rejected are terminal; nothing transitions back to pending.
type Status string

const (
	StatusPending     Status = "pending"
	StatusUnderReview Status = "under_review"
	StatusResolved    Status = "resolved"
	StatusRejected    Status = "rejected"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusResolved || s == StatusRejected
}

// Action is what resolution does to the disputed credential.
type Action string

const (
	ActionNone             Action = "no_action"
	ActionRevokeCredential Action = "revoke_credential"
	ActionUpdateCredential Action = "update_credential"
)

func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionNone, ActionRevokeCredential, ActionUpdateCredential:
		return Action(s), nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown resolution action: "+s)
	}
}

// Dispute is a formal challenge against a credential's validity.
type Dispute struct {
	ID           id.DisputeID
	CredentialID id.CredentialID
	DisputedBy   id.UserID

	Type     Type
	Reason   string
	Evidence string

	Status          Status
	AssignedTo      *id.UserID
	ResolutionNotes string
	ActionTaken     Action
	ResolvedAt      *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// FileRequest carries the filer-supplied dispute attributes.
type FileRequest struct {
	CredentialID id.CredentialID
	Type         Type
	Reason       string
	Evidence     string
}

func (r FileRequest) Validate() error {
	if r.CredentialID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "credential id is required")
	}
	if _, err := ParseType(string(r.Type)); err != nil {
		return err
	}
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "dispute reason is required")
	}
	return nil
}

// Resolution is the reviewer's verdict.
type Resolution struct {
	// Outcome must be StatusResolved or StatusRejected.
	Outcome Status
	Action  Action
	Notes   string
}

func (r Resolution) Validate() error {
	if r.Outcome != StatusResolved && r.Outcome != StatusRejected {
		return dErrors.New(dErrors.CodeInvalidInput, "resolution outcome must be resolved or rejected")
	}
	if _, err := ParseAction(string(r.Action)); err != nil {
		return err
	}
	return nil
}
