// Package mocks indexes local stand-in secret values for lookup by
// (platform, project, name) and version.
package mocks

import (
	nverrors "github.com/systmms/noctivault/internal/errors"
	"github.com/systmms/noctivault/internal/schema"
	"github.com/systmms/noctivault/pkg/provider"
)

type key struct {
	platform provider.Platform
	project  string
	name     string
}

// Index maps each (platform, project, name) to its available versions.
// It is built fresh per load from a validated store document and is
// read-only afterwards.
type Index struct {
	entries map[key]map[int]string
}

// BuildIndex indexes the mock entries of a store document. Effective
// platform and project per entry were already inherited during schema
// validation. A later entry with the same (platform, project, name,
// version) overwrites an earlier one, matching last-wins map semantics of
// the store file.
func BuildIndex(doc *schema.Document) *Index {
	entries := make(map[key]map[int]string, len(doc.Mocks))
	for _, m := range doc.Mocks {
		k := key{platform: m.Platform, project: m.Project, name: m.Name}
		versions, ok := entries[k]
		if !ok {
			versions = make(map[int]string)
			entries[k] = versions
		}
		versions[m.Version] = m.Value
	}
	return &Index{entries: entries}
}

// Lookup returns the raw value for a reference. A "latest" version selects
// the maximum integer version present for the exact key; otherwise the
// version must match exactly. Fails with MissingLocalMockError when no
// entry matches.
func (ix *Index) Lookup(ref provider.Ref) (string, error) {
	versions, ok := ix.entries[key{platform: ref.Platform, project: ref.Project, name: ref.Name}]
	if !ok || len(versions) == 0 {
		return "", missing(ref)
	}
	n := ref.Version.Number()
	if ref.Version.IsLatest() {
		for v := range versions {
			if v > n {
				n = v
			}
		}
	}
	value, ok := versions[n]
	if !ok {
		return "", missing(ref)
	}
	return value, nil
}

func missing(ref provider.Ref) error {
	return nverrors.MissingLocalMockError{
		Platform: string(ref.Platform),
		Project:  ref.Project,
		Name:     ref.Name,
		Version:  ref.Version.String(),
	}
}
