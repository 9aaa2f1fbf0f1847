package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	err := New(CategoryLock, SeverityFatal, "lock sidecar operation failed")
	want := "lock (fatal): lock sidecar operation failed"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	wrapped := Wrap(fmt.Errorf("disk full"), CategoryFileSystem, SeverityFatal, "write failed")
	if got := wrapped.Error(); got != "filesystem (fatal): write failed: disk full" {
		t.Errorf("Error() = %q", got)
	}
}

func TestUnwrap(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := Wrap(cause, CategoryBuild, SeverityError, "stage failed")
	if !errors.Is(err, cause) {
		t.Error("wrapped cause not reachable through errors.Is")
	}
}

func TestCategoryClassification(t *testing.T) {
	err := TypesetFailed("unit.tex", fmt.Errorf("exit 1"))
	if !IsCategory(err, CategoryTypeset) {
		t.Error("TypesetFailed not classified as typeset")
	}
	if IsCategory(err, CategoryBuild) {
		t.Error("typeset error misclassified as build")
	}
	if GetCategory(err) != CategoryTypeset {
		t.Errorf("GetCategory = %q", GetCategory(err))
	}
	if GetCategory(fmt.Errorf("plain")) != CategoryInternal {
		t.Error("plain errors must default to internal")
	}
}

func TestWithContext(t *testing.T) {
	err := MissingConstructorArg("name")
	if err.Context["argument"] != "name" {
		t.Errorf("context argument = %v", err.Context["argument"])
	}
	err.WithContext("extra", 42)
	if err.Context["extra"] != 42 {
		t.Error("WithContext did not record the value")
	}
}
