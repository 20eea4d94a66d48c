package keymat

import (
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/systmms/noctivault/internal/envelope"
	nverrors "github.com/systmms/noctivault/internal/errors"
)

func writeKey(t *testing.T, path string) []byte {
	t.Helper()
	key := make([]byte, envelope.KeySize)
	_, err := rand.Read(key)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, key, 0o600))
	return key
}

// isolate points HOME at an empty directory and disables the keyring so
// only the sources a test sets up can resolve.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv(EnvKeyFile, "")
	t.Setenv(EnvPassphrase, "")
	keyring.MockInitWithError(keyring.ErrNotFound)
}

func TestResolveKey_ExplicitBeatsEnv(t *testing.T) {
	isolate(t)

	dir := t.TempDir()
	explicit := writeKey(t, filepath.Join(dir, "explicit.key"))
	writeKey(t, filepath.Join(dir, "env.key"))
	t.Setenv(EnvKeyFile, filepath.Join(dir, "env.key"))

	key, err := ResolveKey(Config{KeyFile: filepath.Join(dir, "explicit.key")}, "")
	require.NoError(t, err)
	assert.Equal(t, explicit, key)
}

func TestResolveKey_EnvBeatsSibling(t *testing.T) {
	isolate(t)

	dir := t.TempDir()
	envKey := writeKey(t, filepath.Join(dir, "env.key"))
	writeKey(t, filepath.Join(dir, siblingKeyName))
	t.Setenv(EnvKeyFile, filepath.Join(dir, "env.key"))

	key, err := ResolveKey(Config{}, filepath.Join(dir, "noctivault.local-store.enc"))
	require.NoError(t, err)
	assert.Equal(t, envKey, key)
}

func TestResolveKey_SiblingNextToEnvelope(t *testing.T) {
	isolate(t)

	dir := t.TempDir()
	sibling := writeKey(t, filepath.Join(dir, siblingKeyName))

	key, err := ResolveKey(Config{}, filepath.Join(dir, "noctivault.local-store.enc"))
	require.NoError(t, err)
	assert.Equal(t, sibling, key)
}

func TestResolveKey_DefaultPath(t *testing.T) {
	isolate(t)

	home := t.TempDir()
	t.Setenv("HOME", home)
	configDir := filepath.Join(home, ".config", "noctivault")
	require.NoError(t, os.MkdirAll(configDir, 0o700))
	want := writeKey(t, filepath.Join(configDir, siblingKeyName))

	key, err := ResolveKey(Config{}, "")
	require.NoError(t, err)
	assert.Equal(t, want, key)
}

func TestResolveKey_KeyringFallback(t *testing.T) {
	isolate(t)
	keyring.MockInit()

	want := make([]byte, envelope.KeySize)
	_, err := rand.Read(want)
	require.NoError(t, err)
	require.NoError(t, StoreInKeyring(want))

	key, err := ResolveKey(Config{}, "")
	require.NoError(t, err)
	assert.Equal(t, want, key)
}

func TestResolveKey_NothingResolves(t *testing.T) {
	isolate(t)

	_, err := ResolveKey(Config{}, "")
	var missingErr nverrors.MissingKeyMaterialError
	require.ErrorAs(t, err, &missingErr)
	assert.Equal(t, "key-file", missingErr.Mode)
}

func TestResolveKey_ExplicitPathErrorsPropagate(t *testing.T) {
	isolate(t)

	// An explicitly requested file that is missing must not fall through
	// to weaker sources.
	_, err := ResolveKey(Config{KeyFile: filepath.Join(t.TempDir(), "absent.key")}, "")
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}

func TestResolveKey_RejectsWrongLength(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "short.key")
	require.NoError(t, os.WriteFile(path, []byte("short"), 0o600))

	_, err := ResolveKey(Config{KeyFile: path}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "32 bytes")
}

func TestResolvePassphrase(t *testing.T) {
	isolate(t)

	pw, err := ResolvePassphrase(Config{Passphrase: "explicit"}, false)
	require.NoError(t, err)
	assert.Equal(t, "explicit", pw)

	t.Setenv(EnvPassphrase, "from-env")
	pw, err = ResolvePassphrase(Config{}, false)
	require.NoError(t, err)
	assert.Equal(t, "from-env", pw)

	// Explicit beats the environment.
	pw, err = ResolvePassphrase(Config{Passphrase: "explicit"}, false)
	require.NoError(t, err)
	assert.Equal(t, "explicit", pw)

	t.Setenv(EnvPassphrase, "")
	_, err = ResolvePassphrase(Config{}, false)
	var missingErr nverrors.MissingKeyMaterialError
	require.ErrorAs(t, err, &missingErr)
	assert.Equal(t, "passphrase", missingErr.Mode)
}

func TestGenerateKeyFile(t *testing.T) {
	isolate(t)

	out := filepath.Join(t.TempDir(), "nested", "dir", "local.key")
	path, err := GenerateKeyFile(out)
	require.NoError(t, err)
	assert.Equal(t, out, path)

	key, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, key, envelope.KeySize)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestGenerateKeyFile_DefaultPath(t *testing.T) {
	isolate(t)

	path, err := GenerateKeyFile("")
	require.NoError(t, err)

	want, err := DefaultKeyPath()
	require.NoError(t, err)
	assert.Equal(t, want, path)

	key, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, key, envelope.KeySize)
}
