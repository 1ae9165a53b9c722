package audit

import (
	"time"

	id "credtrust/pkg/domain"
)

// OperationType classifies what a caller was doing when an entry was written.
type OperationType string

const (
	OperationIssue    OperationType = "issue"
	OperationVerify   OperationType = "verify"
	OperationRevoke   OperationType = "revoke"
	OperationView     OperationType = "view"
	OperationDownload OperationType = "download"
	OperationShare    OperationType = "share"
)

// Result is the structured outcome of an audited operation. Mutating
// operations typically write a pending entry first and a terminal entry
// (success or failure) when the outcome is known.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
	ResultPending Result = "pending"
)

// Details carries the operation-specific payload of an entry.
type Details struct {
	Action       string
	Target       string
	Metadata     map[string]string
	Result       Result
	ErrorMessage string
}

// Entry is a single append-only audit record. Entries are never mutated or
// deleted; bounded retention is a storage concern, not a core invariant.
type Entry struct {
	UserID       id.UserID
	CredentialID *id.CredentialID
	Operation    OperationType
	Details      Details

	// Chain fields mirror the synthetic block reference of the affected
	// credential when one exists.
	TransactionHash string
	BlockNumber     int64
	GasUsed         int64

	Timestamp time.Time
}
