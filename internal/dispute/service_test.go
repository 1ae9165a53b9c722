package dispute

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"credtrust/internal/audit"
	"credtrust/internal/credential"
	id "credtrust/pkg/domain"
	dErrors "credtrust/pkg/domain-errors"
)

type ServiceSuite struct {
	suite.Suite
	store      *InMemoryStore
	credStore  *credential.InMemoryStore
	auditStore *audit.InMemoryStore
	service    *Service
	credID     id.CredentialID
	filerID    id.UserID
	reviewerID id.UserID
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.credStore = credential.NewInMemoryStore()
	s.auditStore = audit.NewInMemoryStore()
	s.filerID = id.UserID(uuid.New())
	s.reviewerID = id.UserID(uuid.New())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	recorder := audit.NewRecorder(s.auditStore, audit.WithLogger(logger))
	s.service = NewService(s.store, s.credStore, recorder, WithLogger(logger))

	s.credID = id.NewCredentialID()
	err := s.credStore.Insert(context.Background(), credential.Credential{
		ID:          s.credID,
		RecipientID: id.UserID(uuid.New()),
		IssuerID:    id.UserID(uuid.New()),
		Type:        credential.TypeCertification,
		Title:       "Disputed Certificate",
		IssuedDate:  time.Now().UTC(),
		Status:      credential.StatusVerified,
	})
	s.Require().NoError(err)
}

func (s *ServiceSuite) fileSample() Dispute {
	dispute, err := s.service.File(context.Background(), s.filerID, FileRequest{
		CredentialID: s.credID,
		Type:         TypeIncorrectInfo,
		Reason:       "issue date is wrong",
	})
	s.Require().NoError(err)
	return dispute
}

func (s *ServiceSuite) TestFile() {
	ctx := context.Background()

	s.Run("new dispute starts pending and unassigned", func() {
		dispute := s.fileSample()
		s.Equal(StatusPending, dispute.Status)
		s.Nil(dispute.AssignedTo)
		s.Equal(ActionNone, dispute.ActionTaken)
	})

	s.Run("disputing a missing credential is rejected", func() {
		_, err := s.service.File(ctx, s.filerID, FileRequest{
			CredentialID: id.NewCredentialID(),
			Type:         TypeIdentityTheft,
			Reason:       "never heard of this issuer",
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("missing reason is rejected", func() {
		_, err := s.service.File(ctx, s.filerID, FileRequest{
			CredentialID: s.credID,
			Type:         TypeRevocationRequest,
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("filing is audited under the revoke operation", func() {
		s.auditStore.Clear()
		s.fileSample()

		entries, err := s.auditStore.ListByUser(ctx, s.filerID.String())
		s.Require().NoError(err)
		s.Require().Len(entries, 2)
		s.Equal(audit.OperationRevoke, entries[0].Operation)
		s.Equal(audit.ResultPending, entries[0].Details.Result)
		s.Equal(audit.ResultSuccess, entries[1].Details.Result)
	})
}

func (s *ServiceSuite) TestAssign() {
	ctx := context.Background()

	s.Run("assignment moves the dispute under review", func() {
		dispute := s.fileSample()

		assigned, err := s.service.Assign(ctx, dispute.ID, s.reviewerID, s.reviewerID)
		s.Require().NoError(err)
		s.Equal(StatusUnderReview, assigned.Status)
		s.Require().NotNil(assigned.AssignedTo)
		s.Equal(s.reviewerID, *assigned.AssignedTo)
	})

	s.Run("reassignment swaps the reviewer", func() {
		dispute := s.fileSample()
		_, err := s.service.Assign(ctx, dispute.ID, s.reviewerID, s.reviewerID)
		s.Require().NoError(err)

		other := id.UserID(uuid.New())
		assigned, err := s.service.Assign(ctx, dispute.ID, other, s.reviewerID)
		s.Require().NoError(err)
		s.Equal(StatusUnderReview, assigned.Status)
		s.Equal(other, *assigned.AssignedTo)
	})

	s.Run("terminal dispute cannot be assigned", func() {
		dispute := s.fileSample()
		_, err := s.service.Resolve(ctx, dispute.ID, Resolution{
			Outcome: StatusRejected,
			Action:  ActionNone,
		}, s.reviewerID)
		s.Require().NoError(err)

		_, err = s.service.Assign(ctx, dispute.ID, s.reviewerID, s.reviewerID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func (s *ServiceSuite) TestResolve() {
	ctx := context.Background()

	s.Run("resolution with no action leaves the credential untouched", func() {
		dispute := s.fileSample()
		_, err := s.service.Assign(ctx, dispute.ID, s.reviewerID, s.reviewerID)
		s.Require().NoError(err)

		resolved, err := s.service.Resolve(ctx, dispute.ID, Resolution{
			Outcome: StatusRejected,
			Action:  ActionNone,
			Notes:   "evidence does not support the claim",
		}, s.reviewerID)
		s.Require().NoError(err)
		s.Equal(StatusRejected, resolved.Status)
		s.Require().NotNil(resolved.ResolvedAt)

		cred, err := s.credStore.FindByID(ctx, s.credID)
		s.Require().NoError(err)
		s.Equal(credential.StatusVerified, cred.Status)
	})

	s.Run("revoke action revokes the credential", func() {
		dispute := s.fileSample()
		_, err := s.service.Assign(ctx, dispute.ID, s.reviewerID, s.reviewerID)
		s.Require().NoError(err)

		resolved, err := s.service.Resolve(ctx, dispute.ID, Resolution{
			Outcome: StatusResolved,
			Action:  ActionRevokeCredential,
			Notes:   "issuer confirmed the record is wrong",
		}, s.reviewerID)
		s.Require().NoError(err)
		s.Equal(StatusResolved, resolved.Status)
		s.Equal(ActionRevokeCredential, resolved.ActionTaken)

		cred, err := s.credStore.FindByID(ctx, s.credID)
		s.Require().NoError(err)
		s.Equal(credential.StatusRevoked, cred.Status)
		s.Contains(cred.RevocationReason, dispute.ID.String())
	})

	s.Run("terminal dispute cannot be resolved again", func() {
		dispute := s.fileSample()
		_, err := s.service.Resolve(ctx, dispute.ID, Resolution{
			Outcome: StatusResolved,
			Action:  ActionNone,
		}, s.reviewerID)
		s.Require().NoError(err)

		_, err = s.service.Resolve(ctx, dispute.ID, Resolution{
			Outcome: StatusRejected,
			Action:  ActionNone,
		}, s.reviewerID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))

		stored, err := s.store.FindByID(ctx, dispute.ID)
		s.Require().NoError(err)
		s.Equal(StatusResolved, stored.Status)
	})

	s.Run("invalid outcome is rejected", func() {
		dispute := s.fileSample()
		_, err := s.service.Resolve(ctx, dispute.ID, Resolution{
			Outcome: StatusPending,
			Action:  ActionNone,
		}, s.reviewerID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *ServiceSuite) TestListByCredential() {
	ctx := context.Background()
	s.fileSample()
	s.fileSample()

	disputes, err := s.service.ListByCredential(ctx, s.credID)
	s.Require().NoError(err)
	s.Len(disputes, 2)
}
