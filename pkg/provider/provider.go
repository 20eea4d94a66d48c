// Package provider defines the capability interface for secret value sources.
//
// noctivault resolves declared secret references against exactly two kinds
// of source: a local mock store and Google Secret Manager. Both implement
// the single-method Fetcher interface; the resolver depends only on it.
package provider

import (
	"context"
	"strconv"
)

// Platform identifies the secret-manager backend a reference targets.
type Platform string

// PlatformGoogle is the only supported platform.
const PlatformGoogle Platform = "google"

// Valid reports whether the platform is supported.
func (p Platform) Valid() bool {
	return p == PlatformGoogle
}

// Version selects a secret version: either a concrete positive integer or
// the "latest" sentinel meaning the highest version available.
type Version struct {
	latest bool
	number int
}

// Latest returns the sentinel version selecting the highest available version.
func Latest() Version {
	return Version{latest: true}
}

// Exact returns a version selecting exactly n. The schema layer enforces
// n >= 1 before a Version is constructed.
func Exact(n int) Version {
	return Version{number: n}
}

// IsLatest reports whether this is the "latest" sentinel.
func (v Version) IsLatest() bool { return v.latest }

// Number returns the concrete version number. Only meaningful when
// IsLatest is false.
func (v Version) Number() int { return v.number }

func (v Version) String() string {
	if v.latest {
		return "latest"
	}
	return strconv.Itoa(v.number)
}

// Ref addresses one secret value in a source.
type Ref struct {
	Platform Platform
	Project  string
	Name     string
	Version  Version
}

// Fetcher is the uniform capability for fetching a raw secret value.
//
// Implementations must be safe for concurrent use: the resolver dispatches
// independent fetches in parallel. The returned string is the raw,
// pre-cast value; type casting happens in the resolver.
type Fetcher interface {
	Fetch(ctx context.Context, ref Ref) (string, error)
}
