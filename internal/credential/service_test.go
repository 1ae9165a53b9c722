package credential

//go:generate mockgen -source=store.go -destination=mocks/mocks.go -package=mocks Store

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"credtrust/internal/audit"
	"credtrust/internal/proof"
	id "credtrust/pkg/domain"
	dErrors "credtrust/pkg/domain-errors"
)

type ServiceSuite struct {
	suite.Suite
	store      *InMemoryStore
	auditStore *audit.InMemoryStore
	service    *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.auditStore = audit.NewInMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	recorder := audit.NewRecorder(s.auditStore, audit.WithLogger(logger))
	s.service = NewService(s.store, proof.NewSyntheticProvider(), recorder, WithLogger(logger))
}

func (s *ServiceSuite) issueSample() Credential {
	credential, err := s.service.Issue(context.Background(), IssueRequest{
		RecipientID: id.UserID(uuid.New()),
		IssuerID:    id.UserID(uuid.New()),
		Type:        TypeCertification,
		Title:       "Data Analytics Certificate",
		Description: "Completed the data analytics track",
		Skills:      []string{"SQL", "Python"},
		Metadata:    map[string]string{"issuer_name": "State Workforce Board"},
	})
	s.Require().NoError(err)
	return credential
}

func (s *ServiceSuite) TestIssue() {
	ctx := context.Background()

	s.Run("issued credential carries valid integrity fields", func() {
		credential := s.issueSample()

		s.Equal(StatusVerified, credential.Status)
		s.NotEmpty(credential.Hash)
		s.NotEmpty(credential.MerkleProof[0])
		s.NotEmpty(credential.MerkleProof[1])
		s.NotEmpty(credential.MerkleProof[2])
		s.Greater(credential.BlockNumber, int64(0))

		// The stored hash must be valid against the credential's own fields.
		recomputed, err := proof.Fingerprint(credential.CanonicalPayload())
		s.Require().NoError(err)
		s.Equal(credential.Hash, recomputed)
	})

	s.Run("invalid request is rejected", func() {
		_, err := s.service.Issue(ctx, IssueRequest{
			IssuerID: id.UserID(uuid.New()),
			Type:     TypeBadge,
			Title:    "Orphan Badge",
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("skills are deduped", func() {
		credential, err := s.service.Issue(ctx, IssueRequest{
			RecipientID: id.UserID(uuid.New()),
			IssuerID:    id.UserID(uuid.New()),
			Type:        TypeBadge,
			Title:       "Skill Badge",
			Skills:      []string{" go ", "go", "sql"},
		})
		s.Require().NoError(err)
		s.Equal([]string{"go", "sql"}, credential.Skills)
	})
}

func (s *ServiceSuite) TestIssueAuditCompleteness() {
	ctx := context.Background()
	issuerID := id.UserID(uuid.New())

	s.Run("successful issuance writes pending then success", func() {
		_, err := s.service.Issue(ctx, IssueRequest{
			RecipientID: id.UserID(uuid.New()),
			IssuerID:    issuerID,
			Type:        TypeCertification,
			Title:       "Audited Certificate",
		})
		s.Require().NoError(err)

		entries, err := s.auditStore.ListByUser(ctx, issuerID.String())
		s.Require().NoError(err)
		s.Require().Len(entries, 2)
		s.Equal(audit.ResultPending, entries[0].Details.Result)
		s.Equal(audit.ResultSuccess, entries[1].Details.Result)
	})

	s.Run("failed issuance writes pending then failure", func() {
		failingIssuer := id.UserID(uuid.New())
		_, err := s.service.Issue(ctx, IssueRequest{
			IssuerID: failingIssuer,
			Type:     TypeCertification,
			Title:    "No Recipient",
		})
		s.Require().Error(err)

		entries, err := s.auditStore.ListByUser(ctx, failingIssuer.String())
		s.Require().NoError(err)
		s.Require().Len(entries, 2)
		s.Equal(audit.ResultPending, entries[0].Details.Result)
		s.Equal(audit.ResultFailure, entries[1].Details.Result)
		s.NotEmpty(entries[1].Details.ErrorMessage)
	})
}

func (s *ServiceSuite) TestVerify() {
	ctx := context.Background()

	s.Run("freshly issued credential verifies", func() {
		credential := s.issueSample()

		result, err := s.service.Verify(ctx, credential.ID, nil)
		s.Require().NoError(err)
		s.True(result.IsValid)
		s.Equal(StatusVerified, result.Status)
		s.Require().NotNil(result.Details)
		s.Equal(credential.TransactionHash, result.Details.TransactionHash)
		s.Require().NotNil(result.Credential)
		s.Equal(credential.ID, result.Credential.ID)
	})

	s.Run("unknown credential returns not_found without error", func() {
		result, err := s.service.Verify(ctx, id.NewCredentialID(), nil)
		s.Require().NoError(err)
		s.False(result.IsValid)
		s.Equal(StatusNotFound, result.Status)
		s.Nil(result.Credential)
		s.Nil(result.Details)
	})

	s.Run("tampered field flips validity", func() {
		credential := s.issueSample()

		// Simulate tampering with the stored record.
		s.store.mu.Lock()
		tampered := s.store.credentials[credential.ID]
		tampered.Title = "Data Analytics Certificate (Honors)"
		s.store.credentials[credential.ID] = tampered
		s.store.mu.Unlock()

		result, err := s.service.Verify(ctx, credential.ID, nil)
		s.Require().NoError(err)
		s.False(result.IsValid)
		s.Equal(StatusInvalid, result.Status)
		s.Nil(result.Credential)
	})

	s.Run("actor-attributed verification is audited", func() {
		credential := s.issueSample()
		verifier := id.UserID(uuid.New())

		_, err := s.service.Verify(ctx, credential.ID, &verifier)
		s.Require().NoError(err)

		entries, err := s.auditStore.ListByUser(ctx, verifier.String())
		s.Require().NoError(err)
		s.Require().Len(entries, 2)
		s.Equal(audit.OperationVerify, entries[0].Operation)
		s.Equal(audit.ResultPending, entries[0].Details.Result)
		s.Equal(audit.ResultSuccess, entries[1].Details.Result)
	})
}

func (s *ServiceSuite) TestRevoke() {
	ctx := context.Background()
	revoker := id.UserID(uuid.New())

	s.Run("revocation flips status but not hash validity", func() {
		credential := s.issueSample()

		ok, err := s.service.Revoke(ctx, credential.ID, "issued in error", revoker)
		s.Require().NoError(err)
		s.True(ok)

		stored, err := s.store.FindByID(ctx, credential.ID)
		s.Require().NoError(err)
		s.Equal(StatusRevoked, stored.Status)
		s.Equal("issued in error", stored.RevocationReason)
		s.Require().NotNil(stored.RevokedAt)

		// Hash validity and revocation are orthogonal.
		result, err := s.service.Verify(ctx, credential.ID, nil)
		s.Require().NoError(err)
		s.True(result.IsValid)
		s.Equal(StatusRevoked, result.Credential.Status)
	})

	s.Run("revoking twice re-applies the terminal state without error", func() {
		credential := s.issueSample()

		ok, err := s.service.Revoke(ctx, credential.ID, "first", revoker)
		s.Require().NoError(err)
		s.True(ok)
		ok, err = s.service.Revoke(ctx, credential.ID, "second", revoker)
		s.Require().NoError(err)
		s.True(ok)

		stored, err := s.store.FindByID(ctx, credential.ID)
		s.Require().NoError(err)
		s.Equal(StatusRevoked, stored.Status)
	})

	s.Run("missing reason is rejected", func() {
		credential := s.issueSample()
		ok, err := s.service.Revoke(ctx, credential.ID, "", revoker)
		s.Require().Error(err)
		s.False(ok)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("unknown credential returns not found", func() {
		ok, err := s.service.Revoke(ctx, id.NewCredentialID(), "reason", revoker)
		s.Require().Error(err)
		s.False(ok)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestBatchRevoke() {
	ctx := context.Background()
	revoker := id.UserID(uuid.New())
	credential := s.issueSample()
	bogus := id.NewCredentialID().String()

	result := s.service.BatchRevoke(ctx, []string{credential.ID.String(), bogus, "not-a-uuid"}, "cleanup", revoker)

	s.Equal([]string{credential.ID.String()}, result.Successful)
	s.Require().Len(result.Failed, 2)
	s.Equal(bogus, result.Failed[0].ID)
	s.Equal("not-a-uuid", result.Failed[1].ID)
	s.Equal(3, result.TotalProcessed)
}
