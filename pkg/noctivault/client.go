// Package noctivault is the programmatic surface for resolving declared
// secret references into a masked secret tree.
//
// A Client is configured once with immutable Settings, loads a store
// location into a SecretTree, and afterwards answers direct value and
// display-hash lookups by dotted path. Load either returns a complete,
// internally consistent tree or an error; partial trees are never exposed.
package noctivault

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"

	"github.com/systmms/noctivault/internal/config"
	"github.com/systmms/noctivault/internal/envelope"
	nverrors "github.com/systmms/noctivault/internal/errors"
	"github.com/systmms/noctivault/internal/keymat"
	"github.com/systmms/noctivault/internal/logging"
	"github.com/systmms/noctivault/internal/mocks"
	"github.com/systmms/noctivault/internal/providers"
	"github.com/systmms/noctivault/internal/resolve"
	"github.com/systmms/noctivault/internal/schema"
	"github.com/systmms/noctivault/internal/storefile"
	"github.com/systmms/noctivault/pkg/provider"
	"github.com/systmms/noctivault/pkg/secrettree"
)

// Settings re-exports the configuration value consumed by New.
type Settings = config.Settings

// Source constants for Settings.Source.
const (
	SourceLocal  = config.SourceLocal
	SourceRemote = config.SourceRemote
)

// Client resolves references and serves lookups over the loaded tree.
// Load must complete before Get or DisplayHash. A loaded client is safe
// for concurrent reads.
type Client struct {
	settings config.Settings
	logger   *logging.Logger

	mu     sync.RWMutex
	tree   *secrettree.Node
	leaves map[string]*secrettree.Value
}

// New creates a client. A nil logger gets a quiet default.
func New(settings Settings, logger *logging.Logger) (*Client, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.New(false, false)
	}
	return &Client{settings: settings, logger: logger}, nil
}

// Load reads the reference configuration at location, resolves every
// reference against the configured source, and returns the secret tree.
// For the local source the store file at the same location supplies the
// values, with an encrypted store preferred over a plaintext one.
func (c *Client) Load(ctx context.Context, location string) (*secrettree.Node, error) {
	refsPath, err := storefile.ResolveRefs(location)
	if err != nil {
		return nil, err
	}
	refData, err := os.ReadFile(refsPath)
	if err != nil {
		return nil, err
	}
	refDoc, err := schema.Validate(refData)
	if err != nil {
		return nil, err
	}
	if refDoc.Kind != schema.KindRefs {
		return nil, nverrors.SchemaValidationError{
			Field:   "secret-refs",
			Message: "reference configuration must contain secret-refs",
		}
	}

	fetcher, err := c.newFetcher(ctx, location)
	if err != nil {
		return nil, err
	}

	node, err := resolve.New(fetcher, c.logger).Resolve(ctx, refDoc.Refs)
	if err != nil {
		return nil, err
	}

	leaves := make(map[string]*secrettree.Value)
	indexLeaves(leaves, nil, node)

	c.mu.Lock()
	c.tree = node
	c.leaves = leaves
	c.mu.Unlock()
	return node, nil
}

func (c *Client) newFetcher(ctx context.Context, location string) (provider.Fetcher, error) {
	if c.settings.EffectiveSource() == config.SourceRemote {
		return providers.NewRemote(ctx, c.logger, providers.RemoteOptions{
			CredentialsFile: c.settings.CredentialsFile,
		})
	}

	src, err := storefile.ResolveStore(location)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(src.Path)
	if err != nil {
		return nil, err
	}
	if src.Encrypted {
		data, err = c.openStore(data, src.Path)
		if err != nil {
			return nil, err
		}
	}
	storeDoc, err := schema.Validate(data)
	if err != nil {
		return nil, err
	}
	if storeDoc.Kind != schema.KindMocks {
		return nil, nverrors.SchemaValidationError{
			Field:   "secret-mocks",
			Message: "local store must contain secret-mocks",
		}
	}
	return providers.NewLocal(mocks.BuildIndex(storeDoc)), nil
}

// openStore decrypts an encrypted store, resolving key material per the
// envelope's own mode. Programmatic loads never prompt; interactive
// passphrase entry is a CLI concern.
func (c *Client) openStore(data []byte, path string) ([]byte, error) {
	mode, err := envelope.Mode(data)
	if err != nil {
		return nil, err
	}
	km := keymat.Config{KeyFile: c.settings.KeyFile, Passphrase: c.settings.Passphrase}
	if mode == envelope.ModePassphrase {
		passphrase, err := keymat.ResolvePassphrase(km, false)
		if err != nil {
			return nil, err
		}
		return envelope.OpenWithPassphrase(data, passphrase)
	}
	key, err := keymat.ResolveKey(km, path)
	if err != nil {
		return nil, err
	}
	return envelope.OpenWithKey(data, key)
}

// Get returns the typed value at a dotted path, e.g. "database.password".
func (c *Client) Get(path string) (interface{}, error) {
	leaf, err := c.leaf(path)
	if err != nil {
		return nil, err
	}
	return leaf.Get()
}

// DisplayHash returns the SHA3-256 hex digest of the pre-cast raw string
// at a dotted path.
func (c *Client) DisplayHash(path string) (string, error) {
	leaf, err := c.leaf(path)
	if err != nil {
		return "", err
	}
	return leaf.DisplayHash(), nil
}

// Tree returns the loaded secret tree, or nil before Load.
func (c *Client) Tree() *secrettree.Node {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tree
}

func (c *Client) leaf(path string) (*secrettree.Value, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.leaves == nil {
		return nil, errors.New("secrets not loaded; call Load first")
	}
	leaf, ok := c.leaves[path]
	if !ok {
		return nil, nverrors.PathNotFoundError{Path: path}
	}
	return leaf, nil
}

func indexLeaves(out map[string]*secrettree.Value, prefix []string, node *secrettree.Node) {
	for _, segment := range node.Keys() {
		path := append(append([]string{}, prefix...), segment)
		if child, err := node.Child(segment); err == nil {
			indexLeaves(out, path, child)
			continue
		}
		if leaf, err := node.Value(segment); err == nil {
			out[strings.Join(path, ".")] = leaf
		}
	}
}
