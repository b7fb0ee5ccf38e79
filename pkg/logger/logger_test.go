package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInDirRoutesByLevel(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer

	log, err := NewInDir("info", dir, &console)
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("lookup done", "nip", "1234563218")
	log.Error("registry down", "provider", "krs")

	info, err := os.ReadFile(filepath.Join(dir, "info.log"))
	require.NoError(t, err)
	errs, err := os.ReadFile(filepath.Join(dir, "error.log"))
	require.NoError(t, err)

	assert.NotContains(t, console.String(), "hidden")
	assert.Contains(t, console.String(), "lookup done")
	assert.Contains(t, string(info), `"nip":"1234563218"`)
	assert.Contains(t, string(info), "registry down")
	assert.NotContains(t, string(errs), "lookup done")
	assert.Contains(t, string(errs), `"provider":"krs"`)
}

func TestNewInDirWithoutFiles(t *testing.T) {
	var console bytes.Buffer
	log, err := NewInDir("debug", "", &console)
	require.NoError(t, err)

	log.Debug("verbose")
	assert.Contains(t, console.String(), "verbose")
}

func TestParseLevel(t *testing.T) {
	for _, name := range []string{"debug", "INFO", "", "warn", "warning", "error"} {
		_, err := parseLevel(name)
		assert.NoError(t, err, name)
	}

	_, err := parseLevel("trace")
	assert.ErrorIs(t, err, ErrInvalidLevel)
}
