package logging

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecret_Redaction(t *testing.T) {
	t.Parallel()

	s := Secret("hunter2")

	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%s", s))
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%v", s))
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%#v", s))
	assert.NotContains(t, fmt.Sprintf("fetched %s from store", s), "hunter2")
}

func TestSecret_JSONStillExposesValue(t *testing.T) {
	t.Parallel()

	// json.Marshal bypasses Stringer, so Secret must never be serialized
	// directly. This pins the behavior the redaction relies on callers
	// knowing about.
	out, err := json.Marshal(Secret("hunter2"))
	require.NoError(t, err)
	assert.Equal(t, `"hunter2"`, string(out))
}

func TestSecret_FormattedIntoLogLine(t *testing.T) {
	t.Parallel()

	l, buf := captureLogger(true, true)
	l.Debug("accessing %s", Secret("projects/p/secrets/db_password/versions/1"))
	assert.Contains(t, buf.String(), "[REDACTED]")
	assert.NotContains(t, buf.String(), "db_password")
}
