//go:build integration

package export_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"credtrust/internal/export"
	id "credtrust/pkg/domain"
	"credtrust/pkg/platform/sentinel"
	"credtrust/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *export.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = export.NewPostgresStore(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "export_records"))
}

func newStoredRecord() export.Record {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return export.Record{
		ID:            id.NewExportID(),
		CredentialID:  id.NewCredentialID(),
		UserID:        id.UserID(uuid.New()),
		Format:        export.FormatOpenBadges,
		Payload:       json.RawMessage(`{"type":"Assertion"}`),
		DownloadToken: uuid.NewString(),
		ExpiresAt:     now.Add(15 * time.Minute),
		CreatedAt:     now,
	}
}

func (s *PostgresStoreSuite) TestInsertAndFindByID() {
	ctx := context.Background()
	record := newStoredRecord()
	s.Require().NoError(s.store.Insert(ctx, record))

	found, err := s.store.FindByID(ctx, record.ID)
	s.Require().NoError(err)
	s.Equal(record.ID, found.ID)
	s.Equal(export.FormatOpenBadges, found.Format)
	s.JSONEq(string(record.Payload), string(found.Payload))
	s.WithinDuration(record.ExpiresAt, found.ExpiresAt, time.Millisecond)
}

func (s *PostgresStoreSuite) TestIncrementAccess() {
	ctx := context.Background()
	record := newStoredRecord()
	s.Require().NoError(s.store.Insert(ctx, record))

	s.Require().NoError(s.store.IncrementAccess(ctx, record.ID))

	found, err := s.store.FindByID(ctx, record.ID)
	s.Require().NoError(err)
	s.Equal(1, found.AccessCount)
}

func (s *PostgresStoreSuite) TestIncrementAccessNotFound() {
	err := s.store.IncrementAccess(context.Background(), id.NewExportID())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListByUser() {
	ctx := context.Background()
	first := newStoredRecord()
	second := newStoredRecord()
	second.UserID = first.UserID
	s.Require().NoError(s.store.Insert(ctx, first))
	s.Require().NoError(s.store.Insert(ctx, second))
	s.Require().NoError(s.store.Insert(ctx, newStoredRecord()))

	records, err := s.store.ListByUser(ctx, first.UserID)
	s.Require().NoError(err)
	s.Len(records, 2)
}
