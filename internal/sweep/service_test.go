package sweep

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/bindery/internal/config"
	"git.home.luguber.info/inful/bindery/internal/history"
	"git.home.luguber.info/inful/bindery/internal/unit"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.HistoryDB = ""
	return cfg
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

const sweepSource = "---\ntitle: Unit\n---\n\n# Section\n\nText.\n"

func TestCompileUnitProducesArtifactsAndStatus(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"guide.md": sweepSource})

	svc := NewService(testConfig(), nil, nil)
	err := svc.CompileUnit(context.Background(), root, "guide", []unit.Format{unit.FormatHTML, unit.FormatTex}, nil)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(root, "guide.html"))
	assert.FileExists(t, filepath.Join(root, "guide.tex"))
	assert.FileExists(t, filepath.Join(root, "guide.status"))
	assert.NoFileExists(t, filepath.Join(root, "guide.lock"))
}

func TestCompileUnitRecordsHistory(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"guide.md": sweepSource})

	store, err := history.NewStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	svc := NewService(testConfig(), store, nil)
	require.NoError(t, svc.CompileUnit(context.Background(), root, "guide", []unit.Format{unit.FormatHTML}, nil))

	runs, err := store.ByUnit(context.Background(), "guide", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "ok", runs[0].Outcome)
	assert.Equal(t, "html", runs[0].Format)
	assert.NotEmpty(t, runs[0].Fingerprint)
}

func TestCompileUnitAbortsOnFailure(t *testing.T) {
	root := t.TempDir()
	// unclosed frontmatter fails the open-time scan
	writeTree(t, root, map[string]string{"guide.md": "---\ntitle: broken\n"})

	svc := NewService(testConfig(), nil, nil)
	err := svc.CompileUnit(context.Background(), root, "guide", []unit.Format{unit.FormatHTML}, nil)
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(root, "guide.status"))
	assert.NoFileExists(t, filepath.Join(root, "guide.lock"))
}

func TestCompileMergedRendersVirtualUnit(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"one.md": "---\ntitle: One\nlanguage: english\n---\n\n# A\n\nEnglish.\n",
		"two.md": "---\ntitle: Two\nlanguage: russian\n---\n\n# B\n\nRussian.\n",
	})

	svc := NewService(testConfig(), nil, nil)
	err := svc.CompileMerged(context.Background(), root, "book",
		[]string{filepath.Join(root, "one.md"), filepath.Join(root, "two.md")},
		map[string]string{"title": "Collected"}, []unit.Format{unit.FormatTex}, nil)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, "book.tex"))
	require.NoError(t, err)
	tex := string(data)
	assert.Contains(t, tex, `\title{Collected}`)
	assert.Contains(t, tex, `\selectlanguage{russian}`)
	assert.Contains(t, tex, `\usepackage[russian,english]{babel}`)
	// a merged book always fronts a cover and a table of contents
	assert.Contains(t, tex, `\maketitle`)
	assert.Contains(t, tex, `\tableofcontents`)
}

func TestSweepCompilesStaleAndSkipsFresh(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.md":         sweepSource,
		"sub/b.md":     sweepSource,
		".hidden/c.md": sweepSource,
		"notes.txt":    "not a source",
	})

	svc := NewService(testConfig(), nil, nil)
	ctx := context.Background()
	formats := []unit.Format{unit.FormatHTML}

	result, err := svc.Sweep(ctx, root, formats)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Compiled, "dot-directories and foreign files are ignored")
	assert.Equal(t, 0, result.Failed)

	// a second sweep finds everything fresh
	result, err = svc.Sweep(ctx, root, formats)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Compiled)
	assert.Equal(t, 2, result.Skipped)

	// touching a source makes exactly that unit stale again
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(filepath.Join(root, "a.md"), future, future))
	result, err = svc.Sweep(ctx, root, formats)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Compiled)
	assert.Equal(t, 1, result.Skipped)
}

func TestSweepSkipsBusyUnits(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.md": sweepSource})
	lockContent := []byte("pid: " + strconv.Itoa(os.Getpid()) + "\n")
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.lock"), lockContent, 0o644))

	svc := NewService(testConfig(), nil, nil)
	result, err := svc.Sweep(context.Background(), root, []unit.Format{unit.FormatHTML})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Compiled)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 0, result.Failed)
}

func TestSweepPurgesDeletedUnits(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.md": sweepSource})

	svc := NewService(testConfig(), nil, nil)
	ctx := context.Background()
	formats := []unit.Format{unit.FormatHTML}

	_, err := svc.Sweep(ctx, root, formats)
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(root, "a.html"))

	// mark deleted and make the unit stale
	future := time.Now().Add(time.Minute)
	writeTree(t, root, map[string]string{"a.md": "---\ndeleted: true\n---\n\nGone.\n"})
	require.NoError(t, os.Chtimes(filepath.Join(root, "a.md"), future, future))

	_, err = svc.Sweep(ctx, root, formats)
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(root, "a.html"))
}
