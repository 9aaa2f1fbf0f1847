package observability

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

// captureLogs routes the default logger into a buffer for the test's
// lifetime.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	return &buf
}

func TestContextAttrsTravelToTheLogLine(t *testing.T) {
	buf := captureLogs(t)

	ctx := WithRunID(context.Background(), "run-1")
	ctx = WithUnit(ctx, "notes")
	ctx = WithFormat(ctx, "pdf")
	ctx = WithStage(ctx, "typeset")

	InfoContext(ctx, "pass complete", slog.Int("pass", 2))

	line := buf.String()
	assert.Contains(t, line, "run.id=run-1")
	assert.Contains(t, line, "unit=notes")
	assert.Contains(t, line, "format=pdf")
	assert.Contains(t, line, "stage=typeset")
	assert.Contains(t, line, "pass=2")
}

func TestWithStageReplacesEarlierStage(t *testing.T) {
	buf := captureLogs(t)

	ctx := WithStage(WithUnit(context.Background(), "notes"), "expand")
	ctx = WithStage(ctx, "typeset")
	WarnContext(ctx, "something")

	line := buf.String()
	assert.Contains(t, line, "stage=typeset")
	assert.NotContains(t, line, "stage=expand")
}

func TestEmptyContextAddsNoAttrs(t *testing.T) {
	buf := captureLogs(t)

	DebugContext(context.Background(), "bare message")

	line := buf.String()
	assert.Contains(t, line, "bare message")
	assert.NotContains(t, line, "unit=")
	assert.NotContains(t, line, "stage=")
}

func TestDerivedContextDoesNotMutateParent(t *testing.T) {
	buf := captureLogs(t)

	parent := WithUnit(context.Background(), "notes")
	_ = WithStage(parent, "impose")
	ErrorContext(parent, "from the parent")

	assert.NotContains(t, buf.String(), "stage=")
}
