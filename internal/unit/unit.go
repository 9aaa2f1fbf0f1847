// Package unit implements the compilation orchestrator: the state machine
// governing a single compilation unit's lifecycle (open, render, close),
// artifact purging, and dispatch to the build loop, imposition step, and
// packagers.
package unit

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"git.home.luguber.info/inful/bindery/internal/document"
	binderrors "git.home.luguber.info/inful/bindery/internal/errors"
	"git.home.luguber.info/inful/bindery/internal/lockfile"
	"git.home.luguber.info/inful/bindery/internal/metrics"
	"git.home.luguber.info/inful/bindery/internal/observability"
	"git.home.luguber.info/inful/bindery/internal/packaging"
	"git.home.luguber.info/inful/bindery/internal/render"
	"git.home.luguber.info/inful/bindery/internal/typeset"
)

// ErrBusy is returned by Open when another live process holds the unit.
var ErrBusy = lockfile.ErrBusy

// State is the lifecycle state of a unit.
type State int

const (
	StateUnknown State = iota
	StateActive
	StateDeleted
	StateClosed
)

// DocumentFactory builds the unit's document model. Construction is
// expensive, so the unit invokes the factory at most once per process and
// reuses the instance for every requested format.
type DocumentFactory func() (document.Document, error)

// Deps carries the unit's collaborators. Zero values get working defaults.
type Deps struct {
	Templates *render.TemplateSet
	Factory   DocumentFactory // nil: file-backed markdown model
	Options   render.Options  // the unit's persisted option map
	BuildLoop *typeset.BuildLoop
	Imposer   typeset.Imposer
	Recorder  metrics.Recorder
	Virtual   bool // true when backed by a merge instead of a real file
}

// Unit is one named compilation unit scheduled for output generation.
type Unit struct {
	dir    string
	name   string
	suffix string

	templates *render.TemplateSet
	factory   DocumentFactory
	options   render.Options
	buildLoop *typeset.BuildLoop
	imposer   typeset.Imposer
	recorder  metrics.Recorder
	virtual   bool

	lock   *lockfile.Lock
	status *lockfile.Status
	state  State

	docOnce sync.Once
	doc     document.Document
	docErr  error
}

// New creates a compilation unit for <dir>/<name><suffix>.
func New(dir, name, suffix string, deps Deps) (*Unit, error) {
	if name == "" {
		return nil, binderrors.MissingConstructorArg("name")
	}
	if suffix == "" {
		return nil, binderrors.MissingConstructorArg("suffix")
	}
	if deps.Templates == nil {
		return nil, binderrors.MissingConstructorArg("templates")
	}
	if deps.Recorder == nil {
		deps.Recorder = metrics.NoopRecorder{}
	}
	if deps.BuildLoop == nil {
		deps.BuildLoop = typeset.NewBuildLoop(typeset.NewExecTypesetter(""), deps.Recorder)
	}
	if deps.Imposer == nil {
		deps.Imposer = typeset.NewExecImposer("")
	}

	u := &Unit{
		dir:       dir,
		name:      name,
		suffix:    suffix,
		templates: deps.Templates,
		factory:   deps.Factory,
		options:   deps.Options,
		buildLoop: deps.BuildLoop,
		imposer:   deps.Imposer,
		recorder:  deps.Recorder,
		virtual:   deps.Virtual,
		lock:      lockfile.NewLock(filepath.Join(dir, name+ExtLock)),
		status:    lockfile.NewStatus(filepath.Join(dir, name+ExtStatus)),
	}
	if u.factory == nil {
		source := u.SourcePath()
		u.factory = func() (document.Document, error) { return document.Open(source) }
	}
	return u, nil
}

// Name returns the unit's base name.
func (u *Unit) Name() string { return u.name }

// State returns the unit's lifecycle state.
func (u *Unit) State() State { return u.state }

// IsDeleted reports whether Open found the unit's source gone or marked
// deleted.
func (u *Unit) IsDeleted() bool { return u.state == StateDeleted }

// SourcePath returns the path of the unit's source file.
func (u *Unit) SourcePath() string { return u.artifactPath(u.suffix) }

func (u *Unit) artifactPath(ext string) string {
	return filepath.Join(u.dir, u.name+ext)
}

// Open acquires the unit's lock and classifies the unit as active or
// deleted. If another live process holds the lock, Open returns ErrBusy
// without mutating any state.
func (u *Unit) Open(ctx context.Context) error {
	if err := u.lock.Acquire(); err != nil {
		return err
	}

	if u.virtual {
		// a merge is never backed by a single scannable source
		u.state = StateActive
		return nil
	}

	scan, err := document.FastScan(u.SourcePath())
	if err != nil {
		_ = u.lock.Release()
		return err
	}

	if scan.Missing || scan.Deleted {
		observability.InfoContext(ctx, "Unit is deleted, purging artifacts",
			slog.Bool("source_missing", scan.Missing))
		if err := u.PurgeAll(); err != nil {
			_ = u.lock.Release()
			return err
		}
		u.state = StateDeleted
		return nil
	}

	if !scan.Valid {
		_ = u.lock.Release()
		return binderrors.InvalidSource(u.SourcePath(), scan.Reason)
	}

	u.state = StateActive
	return nil
}

// Close releases the lock and records completion. Calling Close on a unit
// that never opened is a caller bug.
func (u *Unit) Close() error {
	if err := u.lock.Release(); err != nil {
		return err
	}
	if err := u.status.Write(); err != nil {
		return err
	}
	u.state = StateClosed
	return nil
}

// Abort releases the lock without recording completion, leaving the unit
// eligible for recompilation after a failed run.
func (u *Unit) Abort() error {
	u.state = StateUnknown
	return u.lock.Release()
}

// Cleanup removes only the completion marker, forcing the next sweep to
// recompile the unit.
func (u *Unit) Cleanup() error {
	return u.status.Remove()
}

// Purge removes the artifacts with the given extensions. Removing a
// nonexistent file is not an error; removing the source extension is.
func (u *Unit) Purge(exts ...string) error {
	for _, ext := range exts {
		if ext == u.suffix {
			return binderrors.SourcePurgeAttempt(ext)
		}
		path := u.artifactPath(ext)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return binderrors.FileSystemError(path, err)
		}
	}
	return nil
}

// PurgeAll removes every known artifact extension and the completion
// marker. The lock sidecar stays.
func (u *Unit) PurgeAll() error {
	if err := u.Purge(artifactExtensions...); err != nil {
		return err
	}
	return u.status.Remove()
}

// Render produces one output format. A deleted unit renders nothing and
// returns nil. Prior artifacts of the requested kind are purged first, so a
// failed render never leaves a stale or partial artifact behind.
func (u *Unit) Render(ctx context.Context, format Format, explicit render.Options) error {
	if u.state == StateDeleted {
		return nil
	}
	if u.state != StateActive {
		return binderrors.New(binderrors.CategoryStructural, binderrors.SeverityFatal,
			"render called on a unit that is not open").WithContext("state", int(u.state))
	}

	ctx = observability.WithUnit(observability.WithFormat(ctx, string(format)), u.name)
	u.recorder.CompileStarted(u.name, string(format))
	start := time.Now()

	err := u.render(ctx, format, explicit)
	u.recorder.CompileFinished(u.name, string(format), time.Since(start), err)
	return err
}

func (u *Unit) render(ctx context.Context, format Format, explicit render.Options) error {
	if err := u.Purge(formatExtensions[format]...); err != nil {
		return err
	}

	switch format {
	case FormatTex:
		return u.expandTo(ctx, "tex", document.NotationTex, ExtTex, explicit)
	case FormatHTML:
		return u.expandTo(ctx, "html", document.NotationHTML, ExtHTML, explicit)
	case FormatBareHTML:
		return u.expandTo(ctx, "bare-html", document.NotationHTML, ExtBareHTML, explicit)
	case FormatPDF:
		return u.renderPDF(ctx, explicit)
	case FormatBookletA4:
		return u.renderBooklet(ctx, explicit, "a5paper", ExtBookletA4)
	case FormatBookletLetter:
		return u.renderBooklet(ctx, explicit, "halfletter", ExtBookletLetter)
	case FormatEPUB:
		return u.renderEPUB(ctx)
	case FormatZip:
		return u.renderZip(ctx, explicit)
	default:
		return binderrors.New(binderrors.CategoryStructural, binderrors.SeverityFatal,
			"unknown output format").WithContext("format", string(format))
	}
}

// lazyDoc builds the document model at most once and reuses it for every
// format request.
func (u *Unit) lazyDoc() (document.Document, error) {
	u.docOnce.Do(func() {
		u.doc, u.docErr = u.factory()
	})
	return u.doc, u.docErr
}

// rawOptions merges the caller's raw map over the unit's persisted map
// without validation; raw values may carry inline formatting.
func (u *Unit) rawOptions(explicit render.Options) render.Options {
	out := render.Options{}
	for k, v := range u.options {
		out[k] = v
	}
	for k, v := range explicit {
		out[k] = v
	}
	return out
}

// expandTo expands a named template and atomically writes the artifact.
func (u *Unit) expandTo(ctx context.Context, templateName string, notation document.Notation, ext string, explicit render.Options) error {
	ctx = observability.WithStage(ctx, "expand")
	doc, err := u.lazyDoc()
	if err != nil {
		return err
	}

	sanitized := render.Sanitize(explicit, u.options)
	tokens, err := render.BuildTokens(doc, notation, u.rawOptions(explicit), sanitized)
	if err != nil {
		return err
	}

	out, err := u.templates.Expand(templateName, tokens)
	if err != nil {
		return err
	}

	path := u.artifactPath(ext)
	if err := render.WriteAtomic(path, []byte(out)); err != nil {
		return err
	}
	observability.DebugContext(ctx, "Artifact written", slog.String("path", path))
	return nil
}

// renderPDF drives the build loop. When no typesetting source exists yet,
// it is rendered first with default options.
func (u *Unit) renderPDF(ctx context.Context, explicit render.Options) error {
	ctx = observability.WithStage(ctx, "typeset")
	texPath := u.artifactPath(ExtTex)
	if _, err := os.Stat(texPath); os.IsNotExist(err) {
		if err := u.expandTo(ctx, "tex", document.NotationTex, ExtTex, nil); err != nil {
			return err
		}
	}

	produced, err := u.buildLoop.Run(ctx, texPath)
	if err != nil {
		return err
	}
	if !produced {
		observability.WarnContext(ctx, "Typesetter produced nothing for this unit")
	}
	return nil
}

// renderBooklet force-regenerates the typesetting source with a half-size
// paper variant, builds the standalone half-size print result, then hands
// it to the imposition procedure.
func (u *Unit) renderBooklet(ctx context.Context, explicit render.Options, halfPaper, targetExt string) error {
	ctx = observability.WithStage(ctx, "impose")

	// leftovers from an earlier pdf run would make the build loop
	// misread a failed typesetter start as a genuine build failure
	if err := u.Purge(ExtLog, ExtAux, ExtTOC); err != nil {
		return err
	}

	forced := render.Options{}
	for k, v := range explicit {
		forced[k] = v
	}
	forced["papersize"] = halfPaper

	if err := u.expandTo(ctx, "tex", document.NotationTex, ExtTex, forced); err != nil {
		return err
	}

	texPath := u.artifactPath(ExtTex)
	produced, err := u.buildLoop.Run(ctx, texPath)
	if err != nil {
		return err
	}
	pdfPath := u.artifactPath(ExtPDF)
	if !produced {
		return binderrors.ImpositionFailed(u.artifactPath(targetExt),
			binderrors.New(binderrors.CategoryBuild, binderrors.SeverityFatal,
				"standalone print result was not produced").WithContext("source", pdfPath))
	}

	return u.imposer.Impose(ctx, pdfPath, u.artifactPath(targetExt), typeset.DefaultImpositionSpec())
}

func (u *Unit) renderEPUB(ctx context.Context) error {
	ctx = observability.WithStage(ctx, "package")
	doc, err := u.lazyDoc()
	if err != nil {
		return err
	}
	fragments, err := doc.Fragments()
	if err != nil {
		return err
	}
	header := doc.Header(document.EscapeMarkup)

	path := u.artifactPath(ExtEPUB)
	if err := packaging.WriteEPUB(path, packaging.Book{
		Title:       header["title"],
		Author:      header["author"],
		Language:    doc.LanguageCode(),
		Fragments:   fragments,
		Attachments: doc.Attachments(),
	}); err != nil {
		return err
	}
	observability.DebugContext(ctx, "Artifact written", slog.String("path", path))
	return nil
}

// renderZip bundles the full page, the bare fragment, and the attachments
// into one archive.
func (u *Unit) renderZip(ctx context.Context, explicit render.Options) error {
	ctx = observability.WithStage(ctx, "package")
	doc, err := u.lazyDoc()
	if err != nil {
		return err
	}

	sanitized := render.Sanitize(explicit, u.options)
	files := map[string][]byte{}
	for templateName, name := range map[string]string{
		"html":      u.name + ExtHTML,
		"bare-html": u.name + ExtBareHTML,
	} {
		tokens, err := render.BuildTokens(doc, document.NotationHTML, u.rawOptions(explicit), sanitized)
		if err != nil {
			return err
		}
		out, err := u.templates.Expand(templateName, tokens)
		if err != nil {
			return err
		}
		files[name] = []byte(out)
	}

	path := u.artifactPath(ExtZip)
	if err := packaging.WriteZip(path, packaging.Bundle{
		Files:       files,
		Attachments: doc.Attachments(),
	}); err != nil {
		return err
	}
	observability.DebugContext(ctx, "Artifact written", slog.String("path", path))
	return nil
}
