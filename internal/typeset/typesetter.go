// Package typeset drives the external typesetting process to a stable
// paginated result and derives imposed booklet output from it.
package typeset

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"
)

// Typesetter runs one pass of the external typesetting process against a
// source file. It returns the process exit code and its combined output.
// A process that could not be started at all reports exit code -1; the
// caller classifies that through the absence of the log side-product.
type Typesetter interface {
	Run(ctx context.Context, sourcePath string) (exitCode int, output []byte, err error)
}

// ExecTypesetter invokes a typesetter binary as a subprocess, running in the
// source file's directory so side-products land next to the source.
type ExecTypesetter struct {
	Binary string
	Args   []string
}

// NewExecTypesetter returns the default typesetter invocation.
func NewExecTypesetter(binary string) *ExecTypesetter {
	if binary == "" {
		binary = "xelatex"
	}
	return &ExecTypesetter{
		Binary: binary,
		Args:   []string{"-interaction=nonstopmode"},
	}
}

func (t *ExecTypesetter) Run(ctx context.Context, sourcePath string) (int, []byte, error) {
	args := append(append([]string{}, t.Args...), filepath.Base(sourcePath))
	cmd := exec.CommandContext(ctx, t.Binary, args...)
	cmd.Dir = filepath.Dir(sourcePath)

	output, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), output, nil
		}
		// the process never ran; report it like a failed start with no output
		return -1, []byte(err.Error()), nil
	}
	return 0, output, nil
}
