package dispute

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"credtrust/internal/audit"
	"credtrust/internal/credential"
	"credtrust/internal/platform/metrics"
	id "credtrust/pkg/domain"
	dErrors "credtrust/pkg/domain-errors"
	"credtrust/pkg/platform/sentinel"
)

// Service routes disputes through filing, assignment, and resolution.
//
// Dispute activity is audited under the revoke operation type: the audit
// taxonomy has no dispute kind, and downstream reporting already groups
// credential-challenging activity under revoke. See DESIGN.md before adding
// a dedicated kind.
type Service struct {
	store           Store
	credentialStore credential.Store
	recorder        *audit.Recorder
	logger          *slog.Logger
	metrics         *metrics.Metrics
	tracer          trace.Tracer
	now             func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the time source. Test hook.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, credentialStore credential.Store, recorder *audit.Recorder, opts ...Option) *Service {
	s := &Service{
		store:           store,
		credentialStore: credentialStore,
		recorder:        recorder,
		tracer:          otel.Tracer("credtrust/dispute"),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// File opens a dispute against a credential. The credential must exist; the
// dispute starts pending and unassigned.
func (s *Service) File(ctx context.Context, disputedBy id.UserID, req FileRequest) (Dispute, error) {
	ctx, span := s.tracer.Start(ctx, "dispute.File")
	defer span.End()

	s.recorder.Pending(ctx, disputedBy, &req.CredentialID, audit.OperationRevoke, "dispute filing initiated")

	dispute, err := s.file(ctx, disputedBy, req)
	if err != nil {
		s.recorder.Failed(ctx, disputedBy, &req.CredentialID, audit.OperationRevoke, "dispute filing", err.Error())
		s.metrics.IncrementOutcome("dispute_file", "failure")
		span.RecordError(err)
		return Dispute{}, err
	}

	s.recorder.Succeeded(ctx, audit.Entry{
		UserID:       disputedBy,
		CredentialID: &req.CredentialID,
		Operation:    audit.OperationRevoke,
		Details: audit.Details{
			Action: "dispute filed",
			Metadata: map[string]string{
				"dispute_id":   dispute.ID.String(),
				"dispute_type": string(dispute.Type),
			},
		},
	})
	s.metrics.IncrementOutcome("dispute_file", "success")

	if s.logger != nil {
		s.logger.InfoContext(ctx, "dispute filed",
			"dispute_id", dispute.ID.String(),
			"credential_id", dispute.CredentialID.String(),
			"dispute_type", string(dispute.Type),
		)
	}
	return dispute, nil
}

func (s *Service) file(ctx context.Context, disputedBy id.UserID, req FileRequest) (Dispute, error) {
	if err := req.Validate(); err != nil {
		return Dispute{}, err
	}

	if _, err := s.credentialStore.FindByID(ctx, req.CredentialID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Dispute{}, dErrors.New(dErrors.CodeNotFound, "disputed credential not found")
		}
		return Dispute{}, dErrors.Wrap(err, dErrors.CodeInternal, "load disputed credential")
	}

	now := s.now().UTC()
	dispute := Dispute{
		ID:           id.NewDisputeID(),
		CredentialID: req.CredentialID,
		DisputedBy:   disputedBy,
		Type:         req.Type,
		Reason:       req.Reason,
		Evidence:     req.Evidence,
		Status:       StatusPending,
		ActionTaken:  ActionNone,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Insert(ctx, dispute); err != nil {
		return Dispute{}, dErrors.Wrap(err, dErrors.CodeInternal, "persist dispute")
	}
	return dispute, nil
}

// Assign moves a pending dispute under review. Re-assigning a dispute that is
// already under review swaps the reviewer without a state change; terminal
// disputes cannot be assigned.
func (s *Service) Assign(ctx context.Context, disputeID id.DisputeID, assignee id.UserID, by id.UserID) (Dispute, error) {
	ctx, span := s.tracer.Start(ctx, "dispute.Assign")
	defer span.End()

	dispute, err := s.load(ctx, disputeID)
	if err != nil {
		return Dispute{}, err
	}
	if dispute.Status.Terminal() {
		return Dispute{}, dErrors.New(dErrors.CodeInvalidState, "dispute is already "+string(dispute.Status))
	}

	dispute.Status = StatusUnderReview
	dispute.AssignedTo = &assignee
	dispute.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, dispute); err != nil {
		span.RecordError(err)
		return Dispute{}, dErrors.Wrap(err, dErrors.CodeInternal, "update dispute")
	}

	s.recorder.Succeeded(ctx, audit.Entry{
		UserID:       by,
		CredentialID: &dispute.CredentialID,
		Operation:    audit.OperationRevoke,
		Details: audit.Details{
			Action: "dispute assigned",
			Metadata: map[string]string{
				"dispute_id":  dispute.ID.String(),
				"assigned_to": assignee.String(),
			},
		},
	})
	return dispute, nil
}

// Resolve closes a dispute with a verdict. A resolution carrying
// ActionRevokeCredential revokes the credential through the store update
// path directly; the dispute's own audit entry stands in for the revoker's.
// Resolving a terminal dispute is an invalid-state error, never a silent
// re-transition.
func (s *Service) Resolve(ctx context.Context, disputeID id.DisputeID, resolution Resolution, by id.UserID) (Dispute, error) {
	ctx, span := s.tracer.Start(ctx, "dispute.Resolve")
	defer span.End()

	dispute, err := s.resolve(ctx, disputeID, resolution)
	if err != nil {
		var credID *id.CredentialID
		if !dispute.CredentialID.IsNil() {
			credID = &dispute.CredentialID
		}
		s.recorder.Failed(ctx, by, credID, audit.OperationRevoke, "dispute resolution", err.Error())
		s.metrics.IncrementOutcome("dispute_resolve", "failure")
		span.RecordError(err)
		return Dispute{}, err
	}

	s.recorder.Succeeded(ctx, audit.Entry{
		UserID:       by,
		CredentialID: &dispute.CredentialID,
		Operation:    audit.OperationRevoke,
		Details: audit.Details{
			Action: "dispute resolved",
			Metadata: map[string]string{
				"dispute_id":   dispute.ID.String(),
				"outcome":      string(dispute.Status),
				"action_taken": string(dispute.ActionTaken),
			},
		},
	})
	s.metrics.IncrementOutcome("dispute_resolve", "success")

	if s.logger != nil {
		s.logger.InfoContext(ctx, "dispute resolved",
			"dispute_id", dispute.ID.String(),
			"outcome", string(dispute.Status),
			"action_taken", string(dispute.ActionTaken),
		)
	}
	return dispute, nil
}

func (s *Service) resolve(ctx context.Context, disputeID id.DisputeID, resolution Resolution) (Dispute, error) {
	if err := resolution.Validate(); err != nil {
		return Dispute{}, err
	}

	dispute, err := s.load(ctx, disputeID)
	if err != nil {
		return Dispute{}, err
	}
	if dispute.Status.Terminal() {
		return dispute, dErrors.New(dErrors.CodeInvalidState, "dispute is already "+string(dispute.Status))
	}

	now := s.now().UTC()
	if resolution.Outcome == StatusResolved && resolution.Action == ActionRevokeCredential {
		update := credential.StatusUpdate{
			Status:    credential.StatusRevoked,
			Reason:    "dispute " + dispute.ID.String() + ": " + dispute.Reason,
			RevokedAt: now,
		}
		if err := s.credentialStore.UpdateStatus(ctx, dispute.CredentialID, update); err != nil {
			return dispute, dErrors.Wrap(err, dErrors.CodeInternal, "revoke disputed credential")
		}
	}

	dispute.Status = resolution.Outcome
	dispute.ActionTaken = resolution.Action
	dispute.ResolutionNotes = resolution.Notes
	dispute.ResolvedAt = &now
	dispute.UpdatedAt = now
	if err := s.store.Update(ctx, dispute); err != nil {
		return dispute, dErrors.Wrap(err, dErrors.CodeInternal, "update dispute")
	}
	return dispute, nil
}

func (s *Service) load(ctx context.Context, disputeID id.DisputeID) (Dispute, error) {
	dispute, err := s.store.FindByID(ctx, disputeID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Dispute{}, dErrors.New(dErrors.CodeNotFound, "dispute not found")
		}
		return Dispute{}, dErrors.Wrap(err, dErrors.CodeInternal, "load dispute")
	}
	return dispute, nil
}

// ListByCredential returns all disputes filed against a credential.
func (s *Service) ListByCredential(ctx context.Context, credentialID id.CredentialID) ([]Dispute, error) {
	disputes, err := s.store.FindByCredential(ctx, credentialID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list disputes")
	}
	return disputes, nil
}
