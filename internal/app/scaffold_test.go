package app_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"credtrust/internal/app"
	"credtrust/internal/credential"
	"credtrust/internal/platform/config"
	id "credtrust/pkg/domain"
	"credtrust/pkg/testutil"
)

// TestVerificationScaffold exercises the wired application end to end with
// in-memory backends, in the shape external callers will use it.
func TestVerificationScaffold(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := app.New(config.Config{TokenSigningKey: "scaffold-key"}, logger)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	ctx := context.Background()
	require.NoError(t, a.Health(ctx))

	testutil.Given(t, "an issued credential", func(t *testing.T) {
		issued, err := a.Credentials.Issue(ctx, credential.IssueRequest{
			RecipientID: id.UserID(uuid.New()),
			IssuerID:    id.UserID(uuid.New()),
			Type:        credential.TypeCertification,
			Title:       "Forklift Operator License",
		})
		require.NoError(t, err)
		require.NotEmpty(t, issued.Hash)

		testutil.When(t, "the untampered record is verified", func(t *testing.T) {
			result, err := a.Credentials.Verify(ctx, issued.ID, nil)
			require.NoError(t, err)

			testutil.Then(t, "the stored hash matches", func(t *testing.T) {
				require.True(t, result.IsValid)
				require.Equal(t, credential.StatusVerified, result.Status)
			})
		})
	})
}
