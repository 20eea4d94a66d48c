package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlatformValid(t *testing.T) {
	t.Parallel()

	assert.True(t, PlatformGoogle.Valid())
	assert.False(t, Platform("aws").Valid())
	assert.False(t, Platform("").Valid())
	assert.False(t, Platform("Google").Valid())
}

func TestVersion(t *testing.T) {
	t.Parallel()

	latest := Latest()
	assert.True(t, latest.IsLatest())
	assert.Equal(t, "latest", latest.String())

	exact := Exact(3)
	assert.False(t, exact.IsLatest())
	assert.Equal(t, 3, exact.Number())
	assert.Equal(t, "3", exact.String())
}
