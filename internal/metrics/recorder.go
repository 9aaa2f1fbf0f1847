// Package metrics provides an observability hook for compile metrics.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so no nil checks are needed anywhere in the pipeline. The
// Prometheus implementation is swapped in when the daemon exposes /metrics.
package metrics

import "time"

// Recorder records compile pipeline metrics.
type Recorder interface {
	// CompileStarted is called when a unit begins compiling a format.
	CompileStarted(unit, format string)
	// CompileFinished is called when a format render completes.
	CompileFinished(unit, format string, duration time.Duration, err error)
	// TypesetPass is called once per typesetter pass.
	TypesetPass(unit string, pass int)
	// UnitsSwept records the outcome of a tree sweep.
	UnitsSwept(compiled, skipped, failed int)
}

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

func (NoopRecorder) CompileStarted(string, string)                        {}
func (NoopRecorder) CompileFinished(string, string, time.Duration, error) {}
func (NoopRecorder) TypesetPass(string, int)                              {}
func (NoopRecorder) UnitsSwept(int, int, int)                             {}
