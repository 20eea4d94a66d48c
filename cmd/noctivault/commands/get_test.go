package commands

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/sha3"

	"github.com/systmms/noctivault/internal/storefile"
)

const refsDoc = `platform: google
gcp_project_id: proj-a
secret-refs:
  - cast: password
    ref: db_password
  - key: database
    children:
      - cast: port
        ref: db_port
        type: int
`

const getStoreDoc = `platform: google
gcp_project_id: proj-a
secret-mocks:
  - name: db_password
    value: hunter2
    version: 1
  - name: db_port
    value: 5432
    version: 1
`

func writeGetLocation(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, storefile.RefsName), []byte(refsDoc), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, storefile.PlainName), []byte(getStoreDoc), 0o600))
	return dir
}

func TestGet_MaskedTree(t *testing.T) {
	t.Parallel()

	dir := writeGetLocation(t)
	out, err := runCommand(t, NewGetCommand(testConfig()), dir)
	require.NoError(t, err)

	assert.NotContains(t, out, "hunter2")
	assert.NotContains(t, out, "5432")
	assert.Contains(t, out, "password: '***'")
	assert.Contains(t, out, "port: '***'")
}

func TestGet_PathValue(t *testing.T) {
	t.Parallel()

	dir := writeGetLocation(t)

	out, err := runCommand(t, NewGetCommand(testConfig()), dir, "password")
	require.NoError(t, err)
	assert.Equal(t, "hunter2\n", out)

	out, err = runCommand(t, NewGetCommand(testConfig()), dir, "database.port")
	require.NoError(t, err)
	assert.Equal(t, "5432\n", out)
}

func TestGet_UnknownPath(t *testing.T) {
	t.Parallel()

	dir := writeGetLocation(t)
	_, err := runCommand(t, NewGetCommand(testConfig()), dir, "database.missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.missing")
}

func TestGet_RejectsUnknownSource(t *testing.T) {
	t.Parallel()

	dir := writeGetLocation(t)
	_, err := runCommand(t, NewGetCommand(testConfig()), dir, "--source", "vault")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown secret source")
}

func TestHash(t *testing.T) {
	t.Parallel()

	dir := writeGetLocation(t)
	out, err := runCommand(t, NewHashCommand(testConfig()), dir, "password")
	require.NoError(t, err)

	sum := sha3.Sum256([]byte("hunter2"))
	assert.Equal(t, hex.EncodeToString(sum[:])+"\n", out)
}

func TestHash_TypedValueHashesRawString(t *testing.T) {
	t.Parallel()

	dir := writeGetLocation(t)
	out, err := runCommand(t, NewHashCommand(testConfig()), dir, "database.port")
	require.NoError(t, err)

	// The digest covers the pre-cast raw string, not the typed value.
	sum := sha3.Sum256([]byte("5432"))
	assert.Equal(t, hex.EncodeToString(sum[:])+"\n", out)
}
