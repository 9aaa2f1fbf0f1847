package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	binderrors "git.home.luguber.info/inful/bindery/internal/errors"
)

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, binderrors.IsCategory(err, binderrors.CategoryConfig))
}

func TestLoadOrDefaultFallsBack(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ".md", cfg.Suffix)
	assert.Equal(t, "xelatex", cfg.Typesetter)
	assert.Equal(t, []string{"html", "tex"}, cfg.Formats)
	assert.Equal(t, 15, cfg.Daemon.IntervalMinutes)
}

func TestLoadFillsDefaultsForOmittedKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bindery.yaml")
	require.NoError(t, os.WriteFile(path, []byte("suffix: .markdown\noptions:\n  fontsize: 11pt\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ".markdown", cfg.Suffix)
	assert.Equal(t, "11pt", cfg.Options["fontsize"])
	assert.Equal(t, "xelatex", cfg.Typesetter)
	assert.Equal(t, "pdfimpose", cfg.Imposer)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("BINDERY_TYPESETTER", "lualatex")
	t.Setenv("BINDERY_HISTORY_DB", "/tmp/custom.db")

	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "lualatex", cfg.Typesetter)
	assert.Equal(t, "/tmp/custom.db", cfg.HistoryDB)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bindery.yaml")
	require.NoError(t, os.WriteFile(path, []byte("suffix: [broken\n"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bindery.yaml")
	require.NoError(t, Init(path, false))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ".md", cfg.Suffix)

	// existing files are protected unless forced
	assert.Error(t, Init(path, false))
	assert.NoError(t, Init(path, true))
}
