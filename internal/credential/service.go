package credential

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"credtrust/internal/audit"
	"credtrust/internal/platform/metrics"
	"credtrust/internal/proof"
	id "credtrust/pkg/domain"
	dErrors "credtrust/pkg/domain-errors"
	"credtrust/pkg/platform/sentinel"
)

// Service owns the credential lifecycle: issuance, verification, revocation.
// Every operation writes audit entries through the recorder; audit failures
// never surface to callers.
type Service struct {
	store    Store
	provider proof.Provider
	recorder *audit.Recorder
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	now      func() time.Time
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the time source. Test hook.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, provider proof.Provider, recorder *audit.Recorder, opts ...Option) *Service {
	s := &Service{
		store:    store,
		provider: provider,
		recorder: recorder,
		tracer:   otel.Tracer("credtrust/credential"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue validates the request, computes the integrity artifacts, and persists
// the credential with status verified. A pending audit entry precedes the
// attempt and a terminal entry always follows, so no issuance path is
// silent. Errors are returned to the caller after the failure entry is
// written.
func (s *Service) Issue(ctx context.Context, req IssueRequest) (Credential, error) {
	ctx, span := s.tracer.Start(ctx, "credential.Issue")
	defer span.End()
	start := s.now()

	s.recorder.Pending(ctx, req.IssuerID, nil, audit.OperationIssue, "credential issuance initiated")

	credential, err := s.issue(ctx, req)
	if err != nil {
		s.recorder.Failed(ctx, req.IssuerID, nil, audit.OperationIssue, "credential issuance", err.Error())
		s.metrics.IncrementOutcome("issue", "failure")
		span.RecordError(err)
		return Credential{}, err
	}

	s.recorder.Succeeded(ctx, audit.Entry{
		UserID:       req.IssuerID,
		CredentialID: &credential.ID,
		Operation:    audit.OperationIssue,
		Details: audit.Details{
			Action: "credential issued",
			Target: credential.Title,
			Metadata: map[string]string{
				"credential_hash": credential.Hash,
				"block_number":    strconv.FormatInt(credential.BlockNumber, 10),
			},
		},
		TransactionHash: credential.TransactionHash,
		BlockNumber:     credential.BlockNumber,
	})
	s.metrics.IncrementOutcome("issue", "success")
	s.metrics.ObserveIssueLatency(s.now().Sub(start))

	if s.logger != nil {
		s.logger.InfoContext(ctx, "credential issued",
			"credential_id", credential.ID.String(),
			"recipient_id", credential.RecipientID.String(),
			"type", string(credential.Type),
		)
	}
	return credential, nil
}

func (s *Service) issue(ctx context.Context, req IssueRequest) (Credential, error) {
	if err := req.Validate(); err != nil {
		return Credential{}, err
	}

	credential := Credential{
		ID:          id.NewCredentialID(),
		RecipientID: req.RecipientID,
		IssuerID:    req.IssuerID,
		Type:        req.Type,
		Title:       req.Title,
		Description: req.Description,
		Skills:      req.normalizedSkills(),
		IssuedDate:  s.now().UTC(),
		ExpiryDate:  req.ExpiryDate,
		Metadata:    req.Metadata,
		Status:      StatusVerified,
	}

	fingerprint, err := proof.Fingerprint(credential.CanonicalPayload())
	if err != nil {
		return Credential{}, dErrors.Wrap(err, dErrors.CodeInternal, "compute credential fingerprint")
	}
	credential.Hash = fingerprint
	credential.MerkleProof = proof.DeriveProof(fingerprint)

	blockRef, err := s.provider.BlockRef(ctx, fingerprint)
	if err != nil {
		return Credential{}, dErrors.Wrap(err, dErrors.CodeInternal, "obtain block reference")
	}
	credential.BlockNumber = blockRef.BlockNumber
	credential.TransactionHash = blockRef.TransactionHash

	if err := s.store.Insert(ctx, credential); err != nil {
		return Credential{}, dErrors.Wrap(err, dErrors.CodeInternal, "persist credential")
	}
	return credential, nil
}

// Verify recomputes the fingerprint over the stored canonical fields and
// compares it to the stored hash. Not-found and mismatch are structured
// negative results, not errors; a mismatch is a completed verification with
// a negative outcome. Revocation status is orthogonal to hash validity:
// callers needing "currently trustworthy" must also check Status on the
// returned credential.
//
// verifier is optional; anonymous verifications are not audited.
func (s *Service) Verify(ctx context.Context, credentialID id.CredentialID, verifier *id.UserID) (VerificationResult, error) {
	ctx, span := s.tracer.Start(ctx, "credential.Verify")
	defer span.End()
	start := s.now()
	defer func() { s.metrics.ObserveVerifyLatency(s.now().Sub(start)) }()

	if verifier != nil {
		s.recorder.Pending(ctx, *verifier, &credentialID, audit.OperationVerify, "credential verification initiated")
	}

	credential, err := s.store.FindByID(ctx, credentialID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.auditVerify(ctx, verifier, credentialID, false, "credential not found")
			s.metrics.IncrementOutcome("verify", "not_found")
			return VerificationResult{IsValid: false, Status: StatusNotFound}, nil
		}
		s.auditVerify(ctx, verifier, credentialID, false, err.Error())
		s.metrics.IncrementOutcome("verify", "error")
		span.RecordError(err)
		return VerificationResult{IsValid: false, Status: StatusError},
			dErrors.Wrap(err, dErrors.CodeInternal, "load credential")
	}

	recomputed, err := proof.Fingerprint(credential.CanonicalPayload())
	if err != nil {
		s.auditVerify(ctx, verifier, credentialID, false, err.Error())
		s.metrics.IncrementOutcome("verify", "error")
		span.RecordError(err)
		return VerificationResult{IsValid: false, Status: StatusError},
			dErrors.Wrap(err, dErrors.CodeInternal, "recompute fingerprint")
	}

	if recomputed != credential.Hash {
		s.auditVerify(ctx, verifier, credentialID, false, "credential hash mismatch")
		s.metrics.IncrementOutcome("verify", "invalid")
		return VerificationResult{IsValid: false, Status: StatusInvalid}, nil
	}

	s.auditVerify(ctx, verifier, credentialID, true, "")
	s.metrics.IncrementOutcome("verify", "success")
	return VerificationResult{
		IsValid:    true,
		Status:     StatusVerified,
		Credential: &credential,
		Details: &VerificationDetails{
			BlockNumber:     credential.BlockNumber,
			TransactionHash: credential.TransactionHash,
			MerkleProof:     credential.MerkleProof,
			VerifiedAt:      s.now().UTC(),
		},
	}, nil
}

// auditVerify writes the terminal verification entry when an actor is known.
// A failure entry records a negative outcome, not necessarily a system error.
func (s *Service) auditVerify(ctx context.Context, verifier *id.UserID, credentialID id.CredentialID, valid bool, reason string) {
	if verifier == nil {
		return
	}
	if valid {
		s.recorder.Succeeded(ctx, audit.Entry{
			UserID:       *verifier,
			CredentialID: &credentialID,
			Operation:    audit.OperationVerify,
			Details:      audit.Details{Action: "credential verified"},
		})
		return
	}
	s.recorder.Failed(ctx, *verifier, &credentialID, audit.OperationVerify, "credential verification", reason)
}

// Revoke transitions the credential to its terminal revoked state. The
// transition is idempotent in effect: revoking an already revoked credential
// re-applies the same state, and each call writes its own audit trail.
func (s *Service) Revoke(ctx context.Context, credentialID id.CredentialID, reason string, revoker id.UserID) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "credential.Revoke")
	defer span.End()

	s.recorder.Pending(ctx, revoker, &credentialID, audit.OperationRevoke, "credential revocation initiated")

	if reason == "" {
		err := dErrors.New(dErrors.CodeInvalidInput, "revocation reason is required")
		s.recorder.Failed(ctx, revoker, &credentialID, audit.OperationRevoke, "credential revocation", err.Error())
		s.metrics.IncrementOutcome("revoke", "failure")
		return false, err
	}

	update := StatusUpdate{
		Status:    StatusRevoked,
		Reason:    reason,
		RevokedAt: s.now().UTC(),
	}
	if err := s.store.UpdateStatus(ctx, credentialID, update); err != nil {
		s.recorder.Failed(ctx, revoker, &credentialID, audit.OperationRevoke, "credential revocation", err.Error())
		s.metrics.IncrementOutcome("revoke", "failure")
		span.RecordError(err)
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, dErrors.New(dErrors.CodeNotFound, "credential not found")
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "update credential status")
	}

	s.recorder.Succeeded(ctx, audit.Entry{
		UserID:       revoker,
		CredentialID: &credentialID,
		Operation:    audit.OperationRevoke,
		Details: audit.Details{
			Action:   "credential revoked",
			Metadata: map[string]string{"reason": reason},
		},
	})
	s.metrics.IncrementOutcome("revoke", "success")

	if s.logger != nil {
		s.logger.InfoContext(ctx, "credential revoked",
			"credential_id", credentialID.String(),
			"revoker_id", revoker.String(),
		)
	}
	return true, nil
}

// BatchRevoke revokes each credential independently. A failed item never
// aborts the remaining items; the result reports both sides.
func (s *Service) BatchRevoke(ctx context.Context, credentialIDs []string, reason string, revoker id.UserID) id.BatchResult {
	var result id.BatchResult
	for _, raw := range credentialIDs {
		credentialID, err := id.ParseCredentialID(raw)
		if err == nil {
			_, err = s.Revoke(ctx, credentialID, reason, revoker)
		}
		if err != nil {
			result.RecordFailure(raw, err)
			continue
		}
		result.RecordSuccess(raw)
	}
	return result
}

// ListByRecipient returns the recipient's credentials and records a view
// entry for the acting user.
func (s *Service) ListByRecipient(ctx context.Context, recipientID id.UserID) ([]Credential, error) {
	credentials, err := s.store.FindByRecipient(ctx, recipientID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list credentials")
	}
	s.recorder.Succeeded(ctx, audit.Entry{
		UserID:    recipientID,
		Operation: audit.OperationView,
		Details: audit.Details{
			Action:   "credentials viewed",
			Metadata: map[string]string{"count": strconv.Itoa(len(credentials))},
		},
	})
	return credentials, nil
}
