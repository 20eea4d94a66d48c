package noctivault

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/sha3"

	"github.com/systmms/noctivault/internal/envelope"
	nverrors "github.com/systmms/noctivault/internal/errors"
	"github.com/systmms/noctivault/internal/keymat"
	"github.com/systmms/noctivault/internal/storefile"
	"github.com/systmms/noctivault/pkg/secrettree"
)

const refsYAML = `
platform: google
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

const storeYAML = `
platform: google
gcp_project_id: proj-a
secret-mocks:
  - name: db_password
    value: hunter2
    version: 1
  - name: db_port
    value: 5432
    version: 1
`

func writeLocation(t *testing.T, store []byte, storeName string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, storefile.RefsName), []byte(refsYAML), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, storeName), store, 0o600))
	return dir
}

func newTestClient(t *testing.T, settings Settings) *Client {
	t.Helper()
	client, err := New(settings, nil)
	require.NoError(t, err)
	return client
}

func assertLoadedTree(t *testing.T, client *Client, tree *secrettree.Node) {
	t.Helper()

	password, err := client.Get("password")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", password)

	port, err := client.Get("database.port")
	require.NoError(t, err)
	assert.Equal(t, 5432, port)

	sum := sha3.Sum256([]byte("hunter2"))
	digest, err := client.DisplayHash("password")
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(sum[:]), digest)

	masked := tree.ToMap(false)
	assert.Equal(t, secrettree.Mask, masked["password"])
}

func TestClient_LoadPlaintextStore(t *testing.T) {
	t.Parallel()

	dir := writeLocation(t, []byte(storeYAML), storefile.PlainName)
	client := newTestClient(t, Settings{})

	tree, err := client.Load(context.Background(), dir)
	require.NoError(t, err)
	assertLoadedTree(t, client, tree)
}

func TestClient_LoadEncryptedStoreWithKeyFile(t *testing.T) {
	t.Parallel()

	key := make([]byte, envelope.KeySize)
	_, err := rand.Read(key)
	require.NoError(t, err)
	sealed, err := envelope.SealWithKey([]byte(storeYAML), key)
	require.NoError(t, err)

	dir := writeLocation(t, sealed, storefile.EncName)
	keyPath := filepath.Join(dir, "store.key")
	require.NoError(t, os.WriteFile(keyPath, key, 0o600))

	client := newTestClient(t, Settings{KeyFile: keyPath})
	tree, err := client.Load(context.Background(), dir)
	require.NoError(t, err)
	assertLoadedTree(t, client, tree)
}

func TestClient_LoadEncryptedStoreWithSiblingKey(t *testing.T) {
	t.Parallel()

	key := make([]byte, envelope.KeySize)
	_, err := rand.Read(key)
	require.NoError(t, err)
	sealed, err := envelope.SealWithKey([]byte(storeYAML), key)
	require.NoError(t, err)

	dir := writeLocation(t, sealed, storefile.EncName)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "local.key"), key, 0o600))

	client := newTestClient(t, Settings{})
	tree, err := client.Load(context.Background(), dir)
	require.NoError(t, err)
	assertLoadedTree(t, client, tree)
}

func TestClient_LoadEncryptedStoreWithPassphrase(t *testing.T) {
	t.Parallel()

	sealed, err := envelope.SealWithPassphrase([]byte(storeYAML), "open sesame")
	require.NoError(t, err)
	dir := writeLocation(t, sealed, storefile.EncName)

	client := newTestClient(t, Settings{Passphrase: "open sesame"})
	tree, err := client.Load(context.Background(), dir)
	require.NoError(t, err)
	assertLoadedTree(t, client, tree)
}

func TestClient_EncryptedStorePreferred(t *testing.T) {
	t.Parallel()

	// The plaintext sibling holds a different value, so the resolved
	// value proves which file was read.
	sealed, err := envelope.SealWithPassphrase([]byte(storeYAML), "pw")
	require.NoError(t, err)
	dir := writeLocation(t, sealed, storefile.EncName)
	otherStore := []byte(`
platform: google
gcp_project_id: proj-a
secret-mocks:
  - name: db_password
    value: plaintext-sibling
    version: 1
  - name: db_port
    value: 1111
    version: 1
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, storefile.PlainName), otherStore, 0o600))

	client := newTestClient(t, Settings{Passphrase: "pw"})
	_, err = client.Load(context.Background(), dir)
	require.NoError(t, err)

	password, err := client.Get("password")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", password)
}

func TestClient_WrongPassphraseFailsLoad(t *testing.T) {
	t.Parallel()

	sealed, err := envelope.SealWithPassphrase([]byte(storeYAML), "right")
	require.NoError(t, err)
	dir := writeLocation(t, sealed, storefile.EncName)

	client := newTestClient(t, Settings{Passphrase: "wrong"})
	_, err = client.Load(context.Background(), dir)
	var decryptErr nverrors.DecryptError
	assert.ErrorAs(t, err, &decryptErr)
}

func TestClient_MissingKeyMaterialFailsBeforeDecrypt(t *testing.T) {
	sealed, err := envelope.SealWithPassphrase([]byte(storeYAML), "pw")
	require.NoError(t, err)
	dir := writeLocation(t, sealed, storefile.EncName)

	t.Setenv(keymat.EnvPassphrase, "")
	client := newTestClient(t, Settings{})
	_, err = client.Load(context.Background(), dir)
	var missingErr nverrors.MissingKeyMaterialError
	require.ErrorAs(t, err, &missingErr)
	assert.Equal(t, "passphrase", missingErr.Mode)
}

func TestClient_RejectsMocksAsRefs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, storefile.RefsName), []byte(storeYAML), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, storefile.PlainName), []byte(storeYAML), 0o600))

	client := newTestClient(t, Settings{})
	_, err := client.Load(context.Background(), dir)
	var schemaErr nverrors.SchemaValidationError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "secret-refs", schemaErr.Field)
}

func TestClient_RejectsRefsAsStore(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, storefile.RefsName), []byte(refsYAML), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, storefile.PlainName), []byte(refsYAML), 0o600))

	client := newTestClient(t, Settings{})
	_, err := client.Load(context.Background(), dir)
	var schemaErr nverrors.SchemaValidationError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "secret-mocks", schemaErr.Field)
}

func TestClient_LookupsBeforeLoad(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, Settings{})
	_, err := client.Get("password")
	assert.ErrorContains(t, err, "call Load first")
	assert.Nil(t, client.Tree())
}

func TestClient_PathNotFound(t *testing.T) {
	t.Parallel()

	dir := writeLocation(t, []byte(storeYAML), storefile.PlainName)
	client := newTestClient(t, Settings{})
	_, err := client.Load(context.Background(), dir)
	require.NoError(t, err)

	var notFound nverrors.PathNotFoundError
	_, err = client.Get("database.missing")
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "database.missing", notFound.Path)

	// A group path is not a value path.
	_, err = client.Get("database")
	assert.ErrorAs(t, err, &notFound)
}

func TestClient_RejectsUnknownSource(t *testing.T) {
	t.Parallel()

	_, err := New(Settings{Source: "vault"}, nil)
	var sourceErr nverrors.UnknownSourceError
	require.ErrorAs(t, err, &sourceErr)
	assert.Equal(t, "vault", sourceErr.Source)
}
