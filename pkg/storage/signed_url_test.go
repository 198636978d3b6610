package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedURLRoundTrip(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)

	token, expiresAt, err := signer.Generate("export-1", "booklets/export-1.pdf")
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	exportID, relPath, parsedExpiry, err := signer.Parse(token, false)
	require.NoError(t, err)
	assert.Equal(t, "export-1", exportID)
	assert.Equal(t, "booklets/export-1.pdf", relPath)
	assert.Equal(t, expiresAt.Unix(), parsedExpiry.Unix())
}

func TestSignedURLTampered(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)

	token, _, err := signer.Generate("export-1", "booklets/export-1.pdf")
	require.NoError(t, err)

	_, _, _, err = signer.Parse(token+"x", false)
	assert.Error(t, err)
}

func TestSignedURLExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Nanosecond)

	token, _, err := signer.Generate("export-1", "booklets/export-1.pdf")
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	_, _, _, err = signer.Parse(token, false)
	assert.Error(t, err)

	_, _, _, err = signer.Parse(token, true)
	assert.NoError(t, err)
}
