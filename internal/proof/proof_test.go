package proof

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePayload() CanonicalPayload {
	return CanonicalPayload{
		ID:             "7f9c0b1e-0000-4000-8000-000000000001",
		RecipientID:    "7f9c0b1e-0000-4000-8000-000000000002",
		IssuerID:       "7f9c0b1e-0000-4000-8000-000000000003",
		CredentialType: "certification",
		Title:          "Data Analytics Certificate",
		Description:    "Completed the data analytics track",
		Skills:         []string{"SQL", "Python"},
		IssuedDate:     "2026-01-15T10:00:00Z",
		Metadata:       map[string]string{"issuer_name": "State Workforce Board"},
	}
}

func TestFingerprintStability(t *testing.T) {
	payload := samplePayload()

	first, err := Fingerprint(payload)
	require.NoError(t, err)
	second, err := Fingerprint(payload)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
}

func TestFingerprintSkillOrderIrrelevant(t *testing.T) {
	a := samplePayload()
	b := samplePayload()
	b.Skills = []string{"Python", "SQL", "Python"}

	fa, err := Fingerprint(a)
	require.NoError(t, err)
	fb, err := Fingerprint(b)
	require.NoError(t, err)

	assert.Equal(t, fa, fb)
}

func TestFingerprintDetectsFieldChange(t *testing.T) {
	original, err := Fingerprint(samplePayload())
	require.NoError(t, err)

	tampered := samplePayload()
	tampered.Title = "Data Analytics Certificate (Honors)"
	changed, err := Fingerprint(tampered)
	require.NoError(t, err)

	assert.NotEqual(t, original, changed)
}

func TestDeriveProofStable(t *testing.T) {
	fp, err := Fingerprint(samplePayload())
	require.NoError(t, err)

	first := DeriveProof(fp)
	second := DeriveProof(fp)

	assert.Equal(t, first, second)
	assert.NotEqual(t, first[0], first[1])
	assert.NotEqual(t, first[1], first[2])
}

func TestSyntheticProviderBlockRef(t *testing.T) {
	fp, err := Fingerprint(samplePayload())
	require.NoError(t, err)

	provider := NewSyntheticProvider()
	ref, err := provider.BlockRef(context.Background(), fp)
	require.NoError(t, err)

	assert.Greater(t, ref.BlockNumber, int64(0))
	assert.True(t, strings.HasPrefix(ref.TransactionHash, "0x"))

	// Transaction hash is derived from the fingerprint, so it repeats.
	again, err := provider.BlockRef(context.Background(), fp)
	require.NoError(t, err)
	assert.Equal(t, ref.TransactionHash, again.TransactionHash)
}
