package client

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatic_ReturnsIdentity(t *testing.T) {
	src := Static("user-1", "ct_key")

	id, err := src.Identity()
	require.NoError(t, err)
	assert.Equal(t, "user-1", id.UserID)
	assert.Equal(t, "ct_key", id.APIKey)
}

func TestStatic_EmptyUserID(t *testing.T) {
	src := Static("", "ct_key")

	_, err := src.Identity()
	assert.ErrorIs(t, err, ErrNoIdentity)
}

func TestFromFile_ReadsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.yaml")
	require.NoError(t, os.WriteFile(path, []byte("user_id: user-7\napi_key: ct_secret\n"), 0o600))

	src := FromFile(path)
	id, err := src.Identity()
	require.NoError(t, err)
	assert.Equal(t, "user-7", id.UserID)
	assert.Equal(t, "ct_secret", id.APIKey)
}

func TestFromFile_MissingFile(t *testing.T) {
	src := FromFile(filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := src.Identity()
	assert.ErrorIs(t, err, ErrNoIdentity)
}

func TestFromFile_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.yaml")
	require.NoError(t, os.WriteFile(path, []byte("user_id: [unclosed"), 0o600))

	src := FromFile(path)
	_, err := src.Identity()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoIdentity)
}

func TestFromFile_MissingUserID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_key: ct_only_key\n"), 0o600))

	src := FromFile(path)
	_, err := src.Identity()
	assert.ErrorIs(t, err, ErrNoIdentity)
}
