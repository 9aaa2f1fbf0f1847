package typeset

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"strings"

	binderrors "git.home.luguber.info/inful/bindery/internal/errors"
	"git.home.luguber.info/inful/bindery/internal/metrics"
	"git.home.luguber.info/inful/bindery/internal/observability"
)

// passBudget is the fixed number of typesetter passes. The first pass
// establishes page anchors, the second resolves the table of contents
// against final page numbers, the third stabilizes numbering that shifted
// because the table of contents itself added pages. This is a fixed budget,
// not a convergence check; callers rely on the exact count.
const passBudget = 3

// hardErrorMarker starts a hard-error line in the typesetter's output.
const hardErrorMarker = "!"

// BuildLoop drives the external typesetter to a stable print result.
type BuildLoop struct {
	typesetter Typesetter
	recorder   metrics.Recorder
}

// NewBuildLoop creates a build loop around a typesetter.
func NewBuildLoop(t Typesetter, rec metrics.Recorder) *BuildLoop {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &BuildLoop{typesetter: t, recorder: rec}
}

// Run executes the fixed pass budget against the given typesetting source.
//
// Outcomes:
//   - produced=true, err=nil: the print result is on disk and usable.
//   - produced=false, err=nil: the typesetter could not even start a run
//     (nonzero exit and no log side-product); nothing to produce, not fatal.
//   - err!=nil: a genuine build failure; any partial print result has been
//     removed before the error propagates.
func (b *BuildLoop) Run(ctx context.Context, texPath string) (produced bool, err error) {
	base := strings.TrimSuffix(texPath, ".tex")
	pdfPath := base + ".pdf"
	logPath := base + ".log"

	for pass := 1; pass <= passBudget; pass++ {
		b.recorder.TypesetPass(base, pass)
		observability.DebugContext(ctx, "Running typesetter pass", slog.Int("pass", pass))

		exitCode, output, runErr := b.typesetter.Run(ctx, texPath)
		if runErr != nil {
			return false, binderrors.TypesetFailed(texPath, runErr)
		}

		forwardHardErrors(ctx, output)

		if exitCode != 0 {
			if _, statErr := os.Stat(logPath); statErr == nil {
				// a log side-product means a run happened and broke partway;
				// never return a partial print result
				if rmErr := os.Remove(pdfPath); rmErr != nil && !os.IsNotExist(rmErr) {
					return false, binderrors.FileSystemError(pdfPath, rmErr)
				}
				return false, binderrors.TypesetFailed(texPath,
					binderrors.New(binderrors.CategoryTypeset, binderrors.SeverityFatal,
						"typesetter exited nonzero").WithContext("exit_code", exitCode).WithContext("pass", pass))
			}
			observability.WarnContext(ctx, "Typesetter could not start a run, nothing produced",
				slog.Int("exit_code", exitCode), slog.Int("pass", pass))
			return false, nil
		}
	}

	scanMissingGlyphs(ctx, logPath)
	return true, nil
}

// forwardHardErrors scans combined typesetter output and, once a hard-error
// marker line is seen, forwards it and every subsequent line to the log
// sink. Chatter before the first real error is dropped.
func forwardHardErrors(ctx context.Context, output []byte) {
	forwarding := false
	for _, line := range strings.Split(string(output), "\n") {
		if !forwarding && strings.HasPrefix(line, hardErrorMarker) {
			forwarding = true
		}
		if forwarding && strings.TrimSpace(line) != "" {
			observability.ErrorContext(ctx, "Typesetter error output", slog.String("line", line))
		}
	}
}

// scanMissingGlyphs surfaces missing-character warnings from the raw log
// file. The typesetter wraps long lines without regard for multi-byte
// boundaries, so the log is split as raw bytes and only matched lines are
// decoded.
func scanMissingGlyphs(ctx context.Context, logPath string) {
	raw, err := os.ReadFile(logPath)
	if err != nil {
		return
	}
	for _, line := range bytes.Split(raw, []byte("\n")) {
		if bytes.Contains(line, []byte("Missing character:")) {
			observability.WarnContext(ctx, "Font is missing a glyph",
				slog.String("detail", strings.ToValidUTF8(string(line), "�")))
		}
	}
}
