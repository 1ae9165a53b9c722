package export

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"credtrust/internal/audit"
	"credtrust/internal/credential"
	"credtrust/internal/platform/metrics"
	"credtrust/internal/token"
	id "credtrust/pkg/domain"
	dErrors "credtrust/pkg/domain-errors"
	"credtrust/pkg/platform/sentinel"
)

// DefaultDownloadTTL bounds how long a download token stays redeemable when
// the caller does not override it.
const DefaultDownloadTTL = 15 * time.Minute

// Service renders credentials into portable formats and guards the resulting
// payloads behind signed, access-counted download tokens.
type Service struct {
	store           Store
	credentialStore credential.Store
	tokens          *token.Service
	recorder        *audit.Recorder
	logger          *slog.Logger
	metrics         *metrics.Metrics
	tracer          trace.Tracer
	downloadTTL     time.Duration
	now             func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithDownloadTTL overrides the download token lifetime.
func WithDownloadTTL(ttl time.Duration) Option {
	return func(s *Service) { s.downloadTTL = ttl }
}

// WithClock overrides the time source. Test hook.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, credentialStore credential.Store, tokens *token.Service, recorder *audit.Recorder, opts ...Option) *Service {
	s := &Service{
		store:           store,
		credentialStore: credentialStore,
		tokens:          tokens,
		recorder:        recorder,
		tracer:          otel.Tracer("credtrust/export"),
		downloadTTL:     DefaultDownloadTTL,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ExportRequest carries the export parameters. MaxAccessCount of nil means
// the token is bounded by time only.
type ExportRequest struct {
	CredentialID   id.CredentialID
	Format         Format
	MaxAccessCount *int
}

// Export renders the credential into the requested format and persists the
// record with a fresh download token.
func (s *Service) Export(ctx context.Context, userID id.UserID, req ExportRequest) (Record, error) {
	ctx, span := s.tracer.Start(ctx, "export.Export")
	defer span.End()

	s.recorder.Pending(ctx, userID, &req.CredentialID, audit.OperationDownload, "credential export initiated")

	record, err := s.export(ctx, userID, req)
	if err != nil {
		s.recorder.Failed(ctx, userID, &req.CredentialID, audit.OperationDownload, "credential export", err.Error())
		s.metrics.IncrementOutcome("export", "failure")
		span.RecordError(err)
		return Record{}, err
	}

	s.recorder.Succeeded(ctx, audit.Entry{
		UserID:       userID,
		CredentialID: &req.CredentialID,
		Operation:    audit.OperationDownload,
		Details: audit.Details{
			Action: "credential exported",
			Metadata: map[string]string{
				"export_id": record.ID.String(),
				"format":    string(record.Format),
			},
		},
	})
	s.metrics.IncrementOutcome("export", "success")

	if s.logger != nil {
		s.logger.InfoContext(ctx, "credential exported",
			"export_id", record.ID.String(),
			"credential_id", record.CredentialID.String(),
			"format", string(record.Format),
		)
	}
	return record, nil
}

func (s *Service) export(ctx context.Context, userID id.UserID, req ExportRequest) (Record, error) {
	if _, err := ParseFormat(string(req.Format)); err != nil {
		return Record{}, err
	}
	if req.MaxAccessCount != nil && *req.MaxAccessCount <= 0 {
		return Record{}, dErrors.New(dErrors.CodeInvalidInput, "max access count must be positive")
	}

	cred, err := s.credentialStore.FindByID(ctx, req.CredentialID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Record{}, dErrors.New(dErrors.CodeNotFound, "credential not found")
		}
		return Record{}, dErrors.Wrap(err, dErrors.CodeInternal, "load credential")
	}

	payload, err := buildPayload(cred, req.Format)
	if err != nil {
		return Record{}, dErrors.Wrap(err, dErrors.CodeInternal, "build export payload")
	}

	now := s.now().UTC()
	record := Record{
		ID:             id.NewExportID(),
		CredentialID:   req.CredentialID,
		UserID:         userID,
		Format:         req.Format,
		Payload:        payload,
		ExpiresAt:      now.Add(s.downloadTTL),
		MaxAccessCount: req.MaxAccessCount,
		CreatedAt:      now,
	}

	downloadToken, err := s.tokens.GenerateDownloadToken(
		uuid.UUID(userID),
		uuid.UUID(req.CredentialID),
		uuid.UUID(record.ID),
		string(req.Format),
		s.downloadTTL,
	)
	if err != nil {
		return Record{}, dErrors.Wrap(err, dErrors.CodeInternal, "mint download token")
	}
	record.DownloadToken = downloadToken

	if err := s.store.Insert(ctx, record); err != nil {
		return Record{}, dErrors.Wrap(err, dErrors.CodeInternal, "persist export record")
	}
	return record, nil
}

// RedeemDownload exchanges a download token for the export payload. The
// guard order mirrors sharing redemption: token validity, record existence,
// expiry, access budget. Any failed check denies without incrementing; denial
// returns a nil error.
func (s *Service) RedeemDownload(ctx context.Context, tokenString string) (DownloadDecision, error) {
	ctx, span := s.tracer.Start(ctx, "export.RedeemDownload")
	defer span.End()

	claims, err := s.tokens.ValidateDownloadToken(tokenString)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeExpired) {
			return s.deny(ctx, nil, "download token has expired"), nil
		}
		return s.deny(ctx, nil, "invalid download token"), nil
	}

	exportID, err := uuid.Parse(claims.ExportID)
	if err != nil {
		return s.deny(ctx, nil, "invalid download token"), nil
	}

	record, err := s.store.FindByID(ctx, id.ExportID(exportID))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return s.deny(ctx, nil, "export record not found"), nil
		}
		span.RecordError(err)
		return DownloadDecision{}, dErrors.Wrap(err, dErrors.CodeInternal, "load export record")
	}

	if !s.now().Before(record.ExpiresAt) {
		return s.deny(ctx, &record, "export has expired"), nil
	}
	if record.MaxAccessCount != nil && record.AccessCount >= *record.MaxAccessCount {
		return s.deny(ctx, &record, "download budget exhausted"), nil
	}

	if err := s.store.IncrementAccess(ctx, record.ID); err != nil {
		span.RecordError(err)
		return DownloadDecision{}, dErrors.Wrap(err, dErrors.CodeInternal, "increment export access count")
	}
	record.AccessCount++

	s.metrics.IncrementRedemption("granted")
	s.recorder.Succeeded(ctx, audit.Entry{
		UserID:       record.UserID,
		CredentialID: &record.CredentialID,
		Operation:    audit.OperationDownload,
		Details: audit.Details{
			Action:   "export downloaded",
			Metadata: map[string]string{"export_id": record.ID.String()},
		},
	})

	return DownloadDecision{
		Allowed: true,
		Record:  &record,
		Payload: record.Payload,
	}, nil
}

// deny records a refused download. Denials on an unresolvable token have no
// record to attribute and are counted only.
func (s *Service) deny(ctx context.Context, record *Record, reason string) DownloadDecision {
	s.metrics.IncrementRedemption("denied")
	if record != nil {
		s.recorder.Failed(ctx, record.UserID, &record.CredentialID, audit.OperationDownload, "export download", reason)
	}
	return DownloadDecision{Allowed: false, DenialReason: reason}
}

// BatchDownload exports each credential independently in the same format. A
// failed item never aborts the remaining items.
func (s *Service) BatchDownload(ctx context.Context, userID id.UserID, credentialIDs []string, format Format) id.BatchResult {
	var result id.BatchResult
	for _, raw := range credentialIDs {
		credentialID, err := id.ParseCredentialID(raw)
		if err == nil {
			_, err = s.Export(ctx, userID, ExportRequest{CredentialID: credentialID, Format: format})
		}
		if err != nil {
			result.RecordFailure(raw, err)
			continue
		}
		result.RecordSuccess(raw)
	}
	return result
}

// ListByUser returns the caller's export history.
func (s *Service) ListByUser(ctx context.Context, userID id.UserID) ([]Record, error) {
	records, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list export records")
	}
	return records, nil
}
