package token

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "credtrust/pkg/domain-errors"
)

var tokenService = NewService(
	"test-signing-key",
	"test-issuer",
	"test-audience",
)
var userID = uuid.New()
var credentialID = uuid.New()
var exportID = uuid.New()
var format = "open_badges"
var expiresIn = 15 * time.Minute

func Test_GenerateDownloadToken(t *testing.T) {
	token, err := tokenService.GenerateDownloadToken(userID, credentialID, exportID, format, expiresIn)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := tokenService.ValidateDownloadToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, credentialID.String(), claims.CredentialID)
	assert.Equal(t, exportID.String(), claims.ExportID)
	assert.Equal(t, format, claims.Format)
	assert.WithinDuration(t, time.Now().Add(expiresIn), claims.ExpiresAt.Time, time.Minute)
}

func Test_ValidateDownloadToken_InvalidToken(t *testing.T) {
	_, err := tokenService.ValidateDownloadToken("invalid-token-string")
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid download token"))
}

func Test_ValidateDownloadToken_ExpiredToken(t *testing.T) {
	token, err := tokenService.GenerateDownloadToken(userID, credentialID, exportID, format, -time.Hour)
	require.NoError(t, err)

	_, err = tokenService.ValidateDownloadToken(token)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeExpired, "download token has expired"))
}

func Test_ValidateDownloadToken_WrongKey(t *testing.T) {
	other := NewService("other-signing-key", "test-issuer", "test-audience")
	token, err := other.GenerateDownloadToken(userID, credentialID, exportID, format, expiresIn)
	require.NoError(t, err)

	_, err = tokenService.ValidateDownloadToken(token)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid download token"))
}

func Test_ExtractExportID(t *testing.T) {
	token, err := tokenService.GenerateDownloadToken(userID, credentialID, exportID, format, expiresIn)
	require.NoError(t, err)

	extracted, err := tokenService.ExtractExportID(token)
	require.NoError(t, err)
	assert.Equal(t, exportID, extracted)
}

func Test_ValidateDownloadToken_ForeignIssuer(t *testing.T) {
	// Same signing key, different service identity: must not validate here.
	other := NewService("test-signing-key", "other-service", "test-audience")
	token, err := other.GenerateDownloadToken(userID, credentialID, exportID, format, expiresIn)
	require.NoError(t, err)

	_, err = tokenService.ValidateDownloadToken(token)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid download token"))
}

func Test_ValidateDownloadToken_ForeignAudience(t *testing.T) {
	other := NewService("test-signing-key", "test-issuer", "other-audience")
	token, err := other.GenerateDownloadToken(userID, credentialID, exportID, format, expiresIn)
	require.NoError(t, err)

	_, err = tokenService.ValidateDownloadToken(token)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid download token"))
}

func Test_ValidateDownloadToken_PinnedClock(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := NewService("test-signing-key", "test-issuer", "test-audience")
	svc.now = func() time.Time { return base }

	token, err := svc.GenerateDownloadToken(userID, credentialID, exportID, format, 10*time.Minute)
	require.NoError(t, err)

	// Validation uses the same clock, so the token is live at base time.
	_, err = svc.ValidateDownloadToken(token)
	require.NoError(t, err)

	svc.now = func() time.Time { return base.Add(11 * time.Minute) }
	_, err = svc.ValidateDownloadToken(token)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeExpired, "download token has expired"))
}
