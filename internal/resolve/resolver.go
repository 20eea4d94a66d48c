// Package resolve reconciles validated secret references against a value
// source and assembles the resulting secret tree.
package resolve

import (
	"context"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	nverrors "github.com/systmms/noctivault/internal/errors"
	"github.com/systmms/noctivault/internal/logging"
	"github.com/systmms/noctivault/internal/schema"
	"github.com/systmms/noctivault/pkg/provider"
	"github.com/systmms/noctivault/pkg/secrettree"
)

// maxConcurrent bounds parallel provider fetches.
const maxConcurrent = 10

// flatRef is one leaf reference with its final tree path.
type flatRef struct {
	path []string
	leaf *schema.RefLeaf
}

// Resolver walks a reference tree, fetches each leaf's raw value through
// the provider capability, validates the declared cast, and assembles the
// final tree. A run either produces a complete, valid tree or fails
// outright; partial trees are never returned.
type Resolver struct {
	fetcher provider.Fetcher
	logger  *logging.Logger
}

// New creates a resolver over a value source.
func New(fetcher provider.Fetcher, logger *logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.New(false, false)
	}
	return &Resolver{fetcher: fetcher, logger: logger}
}

// Resolve fetches every reference and builds the secret tree. Fetches run
// concurrently (bounded); duplicate-path detection happens at assembly
// time, after all fetches, so the outcome is independent of fetch order.
func (r *Resolver) Resolve(ctx context.Context, entries []schema.RefEntry) (*secrettree.Node, error) {
	flat := flatten(nil, entries)
	r.logger.Debug("resolving %d secret references", len(flat))

	// Results land in a slice indexed by declaration position so tree
	// assembly order stays deterministic regardless of fetch completion
	// order.
	raws := make([]string, len(flat))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)
	for i, fr := range flat {
		g.Go(func() error {
			raw, err := r.fetcher.Fetch(gctx, provider.Ref{
				Platform: fr.leaf.Platform,
				Project:  fr.leaf.Project,
				Name:     fr.leaf.Name,
				Version:  fr.leaf.Version,
			})
			if err != nil {
				return err
			}
			if err := validateCast(raw, fr); err != nil {
				return err
			}
			raws[i] = raw
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	treeEntries := make([]secrettree.Entry, len(flat))
	for i, fr := range flat {
		treeEntries[i] = secrettree.Entry{
			Path:  fr.path,
			Value: secrettree.NewValue(raws[i], secrettree.Type(fr.leaf.Type)),
		}
	}
	return secrettree.Build(treeEntries)
}

// flatten walks the reference tree depth-first, accumulating group keys
// into each leaf's final path. The leaf's cast name is the last segment.
func flatten(prefix []string, entries []schema.RefEntry) []flatRef {
	var out []flatRef
	for _, entry := range entries {
		if entry.Group != nil {
			childPrefix := append(append([]string{}, prefix...), entry.Group.Key)
			out = append(out, flatten(childPrefix, entry.Group.Children)...)
			continue
		}
		path := append(append([]string{}, prefix...), entry.Leaf.Cast)
		out = append(out, flatRef{path: path, leaf: entry.Leaf})
	}
	return out
}

// validateCast checks the declared cast against the fetched raw value so a
// bad value fails the load during resolution, not at first read.
func validateCast(raw string, fr flatRef) error {
	if fr.leaf.Type != schema.TypeInt {
		return nil
	}
	if _, err := strconv.Atoi(raw); err != nil {
		return nverrors.TypeCastError{
			Type: string(schema.TypeInt),
			Path: strings.Join(fr.path, "."),
		}
	}
	return nil
}
