//go:build integration

package dispute_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"credtrust/internal/dispute"
	id "credtrust/pkg/domain"
	"credtrust/pkg/platform/sentinel"
	"credtrust/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *dispute.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = dispute.NewPostgresStore(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "credential_disputes"))
}

func newStoredDispute() dispute.Dispute {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return dispute.Dispute{
		ID:           id.NewDisputeID(),
		CredentialID: id.NewCredentialID(),
		DisputedBy:   id.UserID(uuid.New()),
		Type:         dispute.TypeIncorrectInfo,
		Reason:       "issue date is wrong",
		Status:       dispute.StatusPending,
		ActionTaken:  dispute.ActionNone,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (s *PostgresStoreSuite) TestInsertAndFindByID() {
	ctx := context.Background()
	d := newStoredDispute()
	s.Require().NoError(s.store.Insert(ctx, d))

	found, err := s.store.FindByID(ctx, d.ID)
	s.Require().NoError(err)
	s.Equal(d.ID, found.ID)
	s.Equal(dispute.StatusPending, found.Status)
	s.Nil(found.AssignedTo)
	s.Nil(found.ResolvedAt)
}

func (s *PostgresStoreSuite) TestUpdateThroughResolution() {
	ctx := context.Background()
	d := newStoredDispute()
	s.Require().NoError(s.store.Insert(ctx, d))

	reviewer := id.UserID(uuid.New())
	resolvedAt := time.Now().UTC().Truncate(time.Microsecond)
	d.Status = dispute.StatusResolved
	d.AssignedTo = &reviewer
	d.ResolutionNotes = "issuer confirmed the error"
	d.ActionTaken = dispute.ActionRevokeCredential
	d.ResolvedAt = &resolvedAt
	d.UpdatedAt = resolvedAt
	s.Require().NoError(s.store.Update(ctx, d))

	found, err := s.store.FindByID(ctx, d.ID)
	s.Require().NoError(err)
	s.Equal(dispute.StatusResolved, found.Status)
	s.Equal(dispute.ActionRevokeCredential, found.ActionTaken)
	s.Require().NotNil(found.AssignedTo)
	s.Equal(reviewer, *found.AssignedTo)
	s.Require().NotNil(found.ResolvedAt)
}

func (s *PostgresStoreSuite) TestUpdateNotFound() {
	d := newStoredDispute()
	s.Require().ErrorIs(s.store.Update(context.Background(), d), sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestFindByCredential() {
	ctx := context.Background()
	first := newStoredDispute()
	second := newStoredDispute()
	second.CredentialID = first.CredentialID
	s.Require().NoError(s.store.Insert(ctx, first))
	s.Require().NoError(s.store.Insert(ctx, second))
	s.Require().NoError(s.store.Insert(ctx, newStoredDispute()))

	found, err := s.store.FindByCredential(ctx, first.CredentialID)
	s.Require().NoError(err)
	s.Len(found, 2)
}
