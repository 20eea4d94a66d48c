// Package providers implements the two value sources behind the
// provider.Fetcher capability: the local mock store and Google Secret
// Manager.
package providers

import (
	"context"

	"github.com/systmms/noctivault/internal/mocks"
	"github.com/systmms/noctivault/pkg/provider"
)

// Local serves raw values from an in-memory mock index. Lookups are pure
// and never retried.
type Local struct {
	index *mocks.Index
}

// NewLocal wraps a built mock index as a Fetcher.
func NewLocal(index *mocks.Index) *Local {
	return &Local{index: index}
}

// Fetch implements provider.Fetcher.
func (l *Local) Fetch(_ context.Context, ref provider.Ref) (string, error) {
	return l.index.Lookup(ref)
}
