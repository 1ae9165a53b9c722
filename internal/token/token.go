// Package token issues and validates the signed download tokens handed out
// by the export service. Tokens are HS256 JWTs carrying the export and
// credential identity plus the requested format.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "credtrust/pkg/domain-errors"
)

// DownloadClaims are the claims carried by a download token.
type DownloadClaims struct {
	UserID       string `json:"user_id"`
	CredentialID string `json:"credential_id"`
	ExportID     string `json:"export_id"`
	Format       string `json:"format"`
	jwt.RegisteredClaims
}

// Service signs and validates download tokens with a shared HMAC key.
type Service struct {
	signingKey []byte
	issuer     string
	audience   string
	now        func() time.Time
}

func NewService(signingKey string, issuer string, audience string) *Service {
	return &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
		now:        time.Now,
	}
}

// GenerateDownloadToken mints a single-purpose token for retrieving an export
// payload. The token expires after expiresIn; redemption limits are enforced
// by the export service, not the token.
func (s *Service) GenerateDownloadToken(
	userID uuid.UUID,
	credentialID uuid.UUID,
	exportID uuid.UUID,
	format string,
	expiresIn time.Duration) (string, error) {
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, DownloadClaims{
		UserID:       userID.String(),
		CredentialID: credentialID.String(),
		ExportID:     exportID.String(),
		Format:       format,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(s.now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(s.now()),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	})

	signedToken, err := newToken.SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	return signedToken, nil
}

// ValidateDownloadToken parses and verifies a download token. Expiry maps to
// CodeExpired so callers can distinguish a stale token from a forged one.
func (s *Service) ValidateDownloadToken(tokenString string) (*DownloadClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &DownloadClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithTimeFunc(s.now),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeExpired, "download token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid download token")
	}

	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid download token")
	}

	claims, ok := parsed.Claims.(*DownloadClaims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid download token claims")
	}

	return claims, nil
}

// ExtractExportID validates the token and returns the export it points at.
func (s *Service) ExtractExportID(tokenString string) (uuid.UUID, error) {
	claims, err := s.ValidateDownloadToken(tokenString)
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(claims.ExportID)
}
