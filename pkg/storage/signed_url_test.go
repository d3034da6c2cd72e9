package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedURLRoundTrip(t *testing.T) {
	signer := NewSignedURLSigner("test-secret", time.Hour)

	token, expiresAt, err := signer.Generate("job-1", "schedule_job-1.csv")
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	jobID, relPath, parsedExpiry, err := signer.Parse(token, false)
	require.NoError(t, err)
	assert.Equal(t, "job-1", jobID)
	assert.Equal(t, "schedule_job-1.csv", relPath)
	assert.WithinDuration(t, expiresAt, parsedExpiry, time.Second)
}

func TestSignedURLRejectsTamperedToken(t *testing.T) {
	signer := NewSignedURLSigner("test-secret", time.Hour)

	token, _, err := signer.Generate("job-1", "schedule_job-1.pdf")
	require.NoError(t, err)

	_, _, _, err = signer.Parse(token+"x", false)
	assert.Error(t, err)

	other := NewSignedURLSigner("different-secret", time.Hour)
	_, _, _, err = other.Parse(token, false)
	assert.Error(t, err)
}

func TestSignedURLExpiry(t *testing.T) {
	// The constructor clamps non-positive TTLs, so build the signer directly
	// to mint a token that expired a minute ago.
	signer := &SignedURLSigner{secret: []byte("test-secret"), ttl: -time.Minute}

	token, expiresAt, err := signer.Generate("job-1", "schedule.csv")
	require.NoError(t, err)
	require.True(t, expiresAt.Before(time.Now()))

	_, _, _, err = signer.Parse(token, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")

	// Cleanup routines still read expired tokens.
	jobID, _, _, err := signer.Parse(token, true)
	require.NoError(t, err)
	assert.Equal(t, "job-1", jobID)
}

func TestNewSignedURLSignerClampsTTL(t *testing.T) {
	signer := NewSignedURLSigner("test-secret", -time.Minute)

	_, expiresAt, err := signer.Generate("job-1", "schedule.csv")
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))
}
