package sharing

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"credtrust/internal/audit"
	"credtrust/internal/platform/metrics"
	id "credtrust/pkg/domain"
	dErrors "credtrust/pkg/domain-errors"
	"credtrust/pkg/platform/sentinel"
)

// Service owns the grant lifecycle: creation, update, revocation, and
// redemption. Redemption denials are decisions, never errors.
type Service struct {
	store    Store
	index    *RedisTokenIndex
	recorder *audit.Recorder
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	now      func() time.Time

	// defaultTTL bounds grants created without an explicit expiry.
	// Zero means grants without an expiry never expire.
	defaultTTL time.Duration
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithTokenIndex attaches the Redis lookup accelerator for public tokens.
func WithTokenIndex(index *RedisTokenIndex) Option {
	return func(s *Service) { s.index = index }
}

// WithDefaultGrantTTL sets an expiry applied to grants created without one.
func WithDefaultGrantTTL(d time.Duration) Option {
	return func(s *Service) { s.defaultTTL = d }
}

// WithClock overrides the time source. Test hook.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, recorder *audit.Recorder, opts ...Option) *Service {
	s := &Service{
		store:    store,
		recorder: recorder,
		tracer:   otel.Tracer("credtrust/sharing"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// newSharingToken returns a 256-bit random bearer token in hex.
func newSharingToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate sharing token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// CreateGrant persists a new grant for the owner. A bearer token is minted
// only for public grants; addressed grants carry none.
func (s *Service) CreateGrant(ctx context.Context, ownerID id.UserID, req CreateGrantRequest) (Grant, error) {
	ctx, span := s.tracer.Start(ctx, "sharing.CreateGrant")
	defer span.End()

	s.recorder.Pending(ctx, ownerID, &req.CredentialID, audit.OperationShare, "sharing grant creation initiated")

	grant, err := s.createGrant(ctx, ownerID, req)
	if err != nil {
		s.recorder.Failed(ctx, ownerID, &req.CredentialID, audit.OperationShare, "sharing grant creation", err.Error())
		s.metrics.IncrementOutcome("share", "failure")
		span.RecordError(err)
		return Grant{}, err
	}

	s.recorder.Succeeded(ctx, audit.Entry{
		UserID:       ownerID,
		CredentialID: &req.CredentialID,
		Operation:    audit.OperationShare,
		Details: audit.Details{
			Action: "sharing grant created",
			Metadata: map[string]string{
				"grant_id":         grant.ID.String(),
				"shared_with_type": string(grant.SharedWithType),
				"permission_level": string(grant.Permission),
			},
		},
	})
	s.metrics.IncrementOutcome("share", "success")

	if s.logger != nil {
		s.logger.InfoContext(ctx, "sharing grant created",
			"grant_id", grant.ID.String(),
			"credential_id", grant.CredentialID.String(),
			"shared_with_type", string(grant.SharedWithType),
		)
	}
	return grant, nil
}

func (s *Service) createGrant(ctx context.Context, ownerID id.UserID, req CreateGrantRequest) (Grant, error) {
	if err := req.Validate(); err != nil {
		return Grant{}, err
	}

	now := s.now().UTC()
	expiresAt := req.ExpiresAt
	if expiresAt == nil && s.defaultTTL > 0 {
		t := now.Add(s.defaultTTL)
		expiresAt = &t
	}
	grant := Grant{
		ID:               id.NewGrantID(),
		CredentialID:     req.CredentialID,
		OwnerID:          ownerID,
		SharedWithType:   req.SharedWithType,
		SharedWithID:     req.SharedWithID,
		Permission:       req.Permission,
		FieldsAccessible: req.FieldsAccessible,
		ExpiresAt:        expiresAt,
		MaxAccessCount:   req.MaxAccessCount,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if req.SharedWithType == SharedPublic {
		token, err := newSharingToken()
		if err != nil {
			return Grant{}, dErrors.Wrap(err, dErrors.CodeInternal, "mint sharing token")
		}
		grant.Token = token
	}

	if err := s.store.Insert(ctx, grant); err != nil {
		return Grant{}, dErrors.Wrap(err, dErrors.CodeInternal, "persist sharing grant")
	}

	if grant.Token != "" {
		ttl := time.Duration(0)
		if grant.ExpiresAt != nil {
			ttl = grant.ExpiresAt.Sub(now)
		}
		if err := s.index.Put(ctx, grant.Token, grant.ID, ttl); err != nil && s.logger != nil {
			// Lookup falls back to the store, so an index miss is tolerable.
			s.logger.WarnContext(ctx, "sharing token index write failed", "error", err)
		}
	}
	return grant, nil
}

// loadOwned fetches a grant and enforces owner scoping.
func (s *Service) loadOwned(ctx context.Context, grantID id.GrantID, ownerID id.UserID) (Grant, error) {
	grant, err := s.store.FindByID(ctx, grantID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Grant{}, dErrors.New(dErrors.CodeNotFound, "sharing grant not found")
		}
		return Grant{}, dErrors.Wrap(err, dErrors.CodeInternal, "load sharing grant")
	}
	if grant.OwnerID != ownerID {
		return Grant{}, dErrors.New(dErrors.CodeForbidden, "grant does not belong to caller")
	}
	return grant, nil
}

// UpdateGrant applies a partial update to an owned grant.
func (s *Service) UpdateGrant(ctx context.Context, grantID id.GrantID, ownerID id.UserID, update GrantUpdate) (Grant, error) {
	ctx, span := s.tracer.Start(ctx, "sharing.UpdateGrant")
	defer span.End()

	grant, err := s.loadOwned(ctx, grantID, ownerID)
	if err != nil {
		s.recorder.Failed(ctx, ownerID, nil, audit.OperationShare, "sharing grant update", err.Error())
		return Grant{}, err
	}

	if update.Permission != nil {
		grant.Permission = *update.Permission
	}
	if update.FieldsAccessible != nil {
		grant.FieldsAccessible = update.FieldsAccessible
	}
	if update.ExpiresAt != nil {
		grant.ExpiresAt = update.ExpiresAt
	}
	if update.MaxAccessCount != nil {
		grant.MaxAccessCount = update.MaxAccessCount
	}
	grant.UpdatedAt = s.now().UTC()

	if err := s.store.Update(ctx, grant); err != nil {
		s.recorder.Failed(ctx, ownerID, &grant.CredentialID, audit.OperationShare, "sharing grant update", err.Error())
		span.RecordError(err)
		return Grant{}, dErrors.Wrap(err, dErrors.CodeInternal, "update sharing grant")
	}

	s.recorder.Succeeded(ctx, audit.Entry{
		UserID:       ownerID,
		CredentialID: &grant.CredentialID,
		Operation:    audit.OperationShare,
		Details: audit.Details{
			Action:   "sharing grant updated",
			Metadata: map[string]string{"grant_id": grant.ID.String()},
		},
	})
	return grant, nil
}

// RevokeGrant deactivates an owned grant. The row survives with
// IsActive=false; only the token index entry is dropped.
func (s *Service) RevokeGrant(ctx context.Context, grantID id.GrantID, ownerID id.UserID) error {
	ctx, span := s.tracer.Start(ctx, "sharing.RevokeGrant")
	defer span.End()

	grant, err := s.loadOwned(ctx, grantID, ownerID)
	if err != nil {
		s.recorder.Failed(ctx, ownerID, nil, audit.OperationShare, "sharing grant revocation", err.Error())
		return err
	}

	grant.IsActive = false
	grant.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, grant); err != nil {
		s.recorder.Failed(ctx, ownerID, &grant.CredentialID, audit.OperationShare, "sharing grant revocation", err.Error())
		span.RecordError(err)
		return dErrors.Wrap(err, dErrors.CodeInternal, "revoke sharing grant")
	}

	if err := s.index.Forget(ctx, grant.Token); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "sharing token index delete failed", "error", err)
	}

	s.recorder.Succeeded(ctx, audit.Entry{
		UserID:       ownerID,
		CredentialID: &grant.CredentialID,
		Operation:    audit.OperationShare,
		Details: audit.Details{
			Action:   "sharing grant revoked",
			Metadata: map[string]string{"grant_id": grant.ID.String()},
		},
	})
	return nil
}

// Redeem evaluates a public token against the requested fields. The checks
// run in a fixed order: active, expiry, access budget, field allow-list. Any
// failed check denies without incrementing the access count; only a granted
// access increments. Denials return a nil error.
func (s *Service) Redeem(ctx context.Context, token string, requestedFields []string) (AccessDecision, error) {
	ctx, span := s.tracer.Start(ctx, "sharing.Redeem")
	defer span.End()

	grant, found, err := s.findByToken(ctx, token)
	if err != nil {
		span.RecordError(err)
		return AccessDecision{}, dErrors.Wrap(err, dErrors.CodeInternal, "resolve sharing token")
	}
	if !found {
		return s.deny(ctx, nil, "grant not found"), nil
	}

	if !grant.IsActive {
		return s.deny(ctx, &grant, "grant is revoked"), nil
	}
	if grant.ExpiresAt != nil && !s.now().Before(*grant.ExpiresAt) {
		return s.deny(ctx, &grant, "grant has expired"), nil
	}
	if grant.MaxAccessCount != nil && grant.AccessCount >= *grant.MaxAccessCount {
		return s.deny(ctx, &grant, "grant access budget exhausted"), nil
	}
	for _, field := range requestedFields {
		if !grant.allows(field) {
			return s.deny(ctx, &grant, "field not accessible: "+field), nil
		}
	}

	if err := s.store.IncrementAccess(ctx, grant.ID); err != nil {
		span.RecordError(err)
		return AccessDecision{}, dErrors.Wrap(err, dErrors.CodeInternal, "increment grant access count")
	}
	grant.AccessCount++

	s.metrics.IncrementRedemption("granted")
	s.recorder.Succeeded(ctx, audit.Entry{
		UserID:       grant.OwnerID,
		CredentialID: &grant.CredentialID,
		Operation:    audit.OperationShare,
		Details: audit.Details{
			Action:   "sharing grant redeemed",
			Metadata: map[string]string{"grant_id": grant.ID.String()},
		},
	})

	return AccessDecision{
		HasAccess: true,
		Grant:     &grant,
		Fields:    requestedFields,
	}, nil
}

// deny records a denied redemption. The owner's audit trail carries the
// denial when the grant resolved; unresolvable tokens have no owner to
// attribute.
func (s *Service) deny(ctx context.Context, grant *Grant, reason string) AccessDecision {
	s.metrics.IncrementRedemption("denied")
	if grant != nil {
		s.recorder.Failed(ctx, grant.OwnerID, &grant.CredentialID, audit.OperationShare, "sharing grant redemption", reason)
	}
	return AccessDecision{HasAccess: false, DenialReason: reason}
}

// findByToken resolves a token through the index when available, falling back
// to the store on a miss.
func (s *Service) findByToken(ctx context.Context, token string) (Grant, bool, error) {
	if token == "" {
		return Grant{}, false, nil
	}

	if grantID, hit, err := s.index.Lookup(ctx, token); err == nil && hit {
		grant, err := s.store.FindByID(ctx, grantID)
		if err == nil {
			return grant, true, nil
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			return Grant{}, false, err
		}
		// Stale index entry; fall through to the store scan.
	} else if err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "sharing token index lookup failed", "error", err)
	}

	grant, err := s.store.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Grant{}, false, nil
		}
		return Grant{}, false, err
	}
	return grant, true, nil
}

// ListByOwner returns all grants the owner has created, active or not.
func (s *Service) ListByOwner(ctx context.Context, ownerID id.UserID) ([]Grant, error) {
	grants, err := s.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list sharing grants")
	}
	return grants, nil
}

// BatchShare creates one grant per credential id with the same settings. A
// failed item never aborts the remaining items.
func (s *Service) BatchShare(ctx context.Context, ownerID id.UserID, credentialIDs []string, req CreateGrantRequest) id.BatchResult {
	var result id.BatchResult
	for _, raw := range credentialIDs {
		credentialID, err := id.ParseCredentialID(raw)
		if err == nil {
			itemReq := req
			itemReq.CredentialID = credentialID
			_, err = s.CreateGrant(ctx, ownerID, itemReq)
		}
		if err != nil {
			result.RecordFailure(raw, err)
			continue
		}
		result.RecordSuccess(raw)
	}
	return result
}
