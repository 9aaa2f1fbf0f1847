// Package sweep is the directory-walking caller on top of the compilation
// unit: it scans a file tree for sources, decides which units need
// recompiling from their status sidecars, and compiles them one by one.
package sweep

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/bindery/internal/config"
	"git.home.luguber.info/inful/bindery/internal/document"
	"git.home.luguber.info/inful/bindery/internal/history"
	"git.home.luguber.info/inful/bindery/internal/lockfile"
	"git.home.luguber.info/inful/bindery/internal/merge"
	"git.home.luguber.info/inful/bindery/internal/metrics"
	"git.home.luguber.info/inful/bindery/internal/observability"
	"git.home.luguber.info/inful/bindery/internal/render"
	"git.home.luguber.info/inful/bindery/internal/typeset"
	"git.home.luguber.info/inful/bindery/internal/unit"
)

// Service compiles units with a shared collaborator set.
type Service struct {
	cfg       *config.Config
	templates *render.TemplateSet
	recorder  metrics.Recorder
	store     *history.Store // nil disables history recording
	buildLoop *typeset.BuildLoop
	imposer   typeset.Imposer
}

// NewService wires the compile collaborators from configuration. The
// history store may be nil.
func NewService(cfg *config.Config, store *history.Store, rec metrics.Recorder) *Service {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Service{
		cfg:       cfg,
		templates: render.Builtin(),
		recorder:  rec,
		store:     store,
		buildLoop: typeset.NewBuildLoop(typeset.NewExecTypesetter(cfg.Typesetter), rec),
		imposer:   typeset.NewExecImposer(cfg.Imposer),
	}
}

func (s *Service) deps() unit.Deps {
	return unit.Deps{
		Templates: s.templates,
		Options:   render.Options(s.cfg.Options),
		BuildLoop: s.buildLoop,
		Imposer:   s.imposer,
		Recorder:  s.recorder,
	}
}

// CompileUnit opens the named unit, renders the requested formats in order,
// and closes it. A busy unit returns unit.ErrBusy untouched. A failed
// render aborts the unit so it stays eligible for recompilation.
func (s *Service) CompileUnit(ctx context.Context, dir, name string, formats []unit.Format, explicit render.Options) error {
	u, err := unit.New(dir, name, s.cfg.Suffix, s.deps())
	if err != nil {
		return err
	}
	return s.compile(ctx, u, formats, explicit)
}

// CompileMerged compiles an ordered set of source files as one virtual
// unit named outName, with the caller-supplied header fields.
func (s *Service) CompileMerged(ctx context.Context, dir, outName string, sources []string, header map[string]string, formats []unit.Format, explicit render.Options) error {
	docs := make([]document.Document, 0, len(sources))
	for _, src := range sources {
		doc, err := document.Open(src)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
	}

	merged, err := merge.New(outName, header, docs)
	if err != nil {
		return err
	}

	deps := s.deps()
	deps.Virtual = true
	deps.Factory = func() (document.Document, error) { return merged, nil }

	u, err := unit.New(dir, outName, s.cfg.Suffix, deps)
	if err != nil {
		return err
	}
	return s.compile(ctx, u, formats, explicit)
}

func (s *Service) compile(ctx context.Context, u *unit.Unit, formats []unit.Format, explicit render.Options) error {
	runID := uuid.NewString()
	ctx = observability.WithRunID(observability.WithUnit(ctx, u.Name()), runID)

	if err := u.Open(ctx); err != nil {
		return err
	}

	if u.IsDeleted() {
		observability.InfoContext(ctx, "Unit deleted, artifacts purged")
		s.record(ctx, runID, u, "", "deleted", time.Time{})
		return u.Close()
	}

	for _, format := range formats {
		started := time.Now()
		if err := u.Render(ctx, format, explicit); err != nil {
			s.record(ctx, runID, u, format, "error", started)
			_ = u.Abort()
			return err
		}
		s.record(ctx, runID, u, format, "ok", started)
	}
	return u.Close()
}

// record appends a history row; history failures are advisory only.
func (s *Service) record(ctx context.Context, runID string, u *unit.Unit, format unit.Format, outcome string, started time.Time) {
	if s.store == nil {
		return
	}

	fingerprint := ""
	if outcome == "ok" {
		var err error
		path := strings.TrimSuffix(u.SourcePath(), s.cfg.Suffix) + format.PrimaryExtension()
		fingerprint, err = history.FingerprintFile(path)
		if err != nil {
			observability.WarnContext(ctx, "Could not fingerprint artifact", slog.Any("error", err))
		}
	}
	if started.IsZero() {
		started = time.Now()
	}

	err := s.store.Record(ctx, history.Run{
		ID:          uuid.NewString(),
		Unit:        u.Name(),
		Format:      string(format),
		Outcome:     outcome,
		Fingerprint: fingerprint,
		Started:     started,
		Duration:    time.Since(started),
	})
	if err != nil {
		observability.WarnContext(ctx, "Could not record compile history", slog.Any("error", err))
	}
}

// Result summarizes one tree sweep.
type Result struct {
	Compiled int
	Skipped  int
	Failed   int
}

// Sweep walks the tree under root, compiling every unit whose status
// sidecar is missing or older than its source. Busy and up-to-date units
// are skipped; individual failures do not stop the sweep.
func (s *Service) Sweep(ctx context.Context, root string, formats []unit.Format) (Result, error) {
	var result Result

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if name := d.Name(); name != "." && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), s.cfg.Suffix) {
			return nil
		}

		dir := filepath.Dir(path)
		name := strings.TrimSuffix(d.Name(), s.cfg.Suffix)

		if !s.needsRecompile(path, dir, name) {
			result.Skipped++
			return nil
		}

		switch err := s.CompileUnit(ctx, dir, name, formats, nil); {
		case err == nil:
			result.Compiled++
		case errors.Is(err, unit.ErrBusy):
			observability.InfoContext(ctx, "Unit busy, skipping", slog.String("unit", name))
			result.Skipped++
		default:
			observability.ErrorContext(ctx, "Unit compilation failed",
				slog.String("unit", name), slog.Any("error", err))
			result.Failed++
		}
		return nil
	})

	s.recorder.UnitsSwept(result.Compiled, result.Skipped, result.Failed)
	return result, err
}

// needsRecompile reports whether the unit's status sidecar is missing or
// predates the source.
func (s *Service) needsRecompile(sourcePath, dir, name string) bool {
	status := lockfile.NewStatus(filepath.Join(dir, name+unit.ExtStatus))
	if !status.Exists() {
		return true
	}
	info, err := os.Stat(sourcePath)
	if err != nil {
		// a vanished source still needs an open to purge its artifacts
		return true
	}
	return info.ModTime().After(status.ModTime())
}
