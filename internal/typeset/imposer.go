package typeset

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	binderrors "git.home.luguber.info/inful/bindery/internal/errors"
)

// ImpositionSpec configures how standalone pages are arranged into printer
// signatures.
type ImpositionSpec struct {
	// SignatureMin and SignatureMax bound the signature size in leaves.
	SignatureMin int
	SignatureMax int
	// PagesPerSide is the n-up layout on each side of a sheet.
	PagesPerSide int
	// Cover reserves the outermost sheet for cover pages.
	Cover bool
}

// DefaultImpositionSpec is the fixed booklet policy: signatures between 40
// and 80 leaves, 2-up, cover handling enabled.
func DefaultImpositionSpec() ImpositionSpec {
	return ImpositionSpec{
		SignatureMin: 40,
		SignatureMax: 80,
		PagesPerSide: 2,
		Cover:        true,
	}
}

// Imposer derives a booklet-ready print file from a standalone one.
type Imposer interface {
	Impose(ctx context.Context, sourcePDF, targetPDF string, spec ImpositionSpec) error
}

// ExecImposer invokes an external imposition binary.
type ExecImposer struct {
	Binary string
}

// NewExecImposer returns the default imposition invocation.
func NewExecImposer(binary string) *ExecImposer {
	if binary == "" {
		binary = "pdfimpose"
	}
	return &ExecImposer{Binary: binary}
}

func (i *ExecImposer) Impose(ctx context.Context, sourcePDF, targetPDF string, spec ImpositionSpec) error {
	// imposing an absent file must never silently succeed
	if _, err := os.Stat(sourcePDF); err != nil {
		return binderrors.ImpositionFailed(targetPDF, fmt.Errorf("standalone print result missing: %w", err))
	}

	args := []string{
		"--signature-min", fmt.Sprint(spec.SignatureMin),
		"--signature-max", fmt.Sprint(spec.SignatureMax),
		"--nup", fmt.Sprint(spec.PagesPerSide),
	}
	if spec.Cover {
		args = append(args, "--cover")
	}
	args = append(args, "--output", targetPDF, sourcePDF)

	cmd := exec.CommandContext(ctx, i.Binary, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return binderrors.ImpositionFailed(targetPDF,
			fmt.Errorf("%s: %w: %s", i.Binary, err, string(output)))
	}
	return nil
}
