package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "smtp-pass")
	require.NoError(t, os.WriteFile(file, []byte("  from-file\n"), 0o600))

	t.Setenv("CV_RANKER_TEST_SECRET", "from-env")

	got, err := Load(Source{Name: "smtp password", File: file, Env: "CV_RANKER_TEST_SECRET", Value: "inline"})
	require.NoError(t, err)
	assert.Equal(t, "from-file", got)

	got, err = Load(Source{Name: "smtp password", Env: "CV_RANKER_TEST_SECRET", Value: "inline"})
	require.NoError(t, err)
	assert.Equal(t, "from-env", got)

	got, err = Load(Source{Name: "smtp password", Env: "CV_RANKER_UNSET_SECRET", Value: " inline "})
	require.NoError(t, err)
	assert.Equal(t, "inline", got)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.WriteFile(empty, []byte("  \n"), 0o600))

	_, err := Load(Source{Name: "gemini api key", File: empty})
	assert.ErrorContains(t, err, "is empty")

	_, err = Load(Source{Name: "gemini api key", File: filepath.Join(dir, "missing")})
	assert.ErrorContains(t, err, "reading gemini api key")

	_, err = Load(Source{})
	assert.EqualError(t, err, "secret is not configured")
}

func TestOptional(t *testing.T) {
	got, err := Optional(Source{Name: "smtp password"})
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = Optional(Source{Name: "smtp password", File: filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)
}
