package errors

// Convenience functions for common error patterns

// Structural errors

func MissingConstructorArg(arg string) *BinderyError {
	return New(CategoryStructural, SeverityFatal, "required constructor argument missing").
		WithContext("argument", arg)
}

func SourcePurgeAttempt(suffix string) *BinderyError {
	return New(CategoryStructural, SeverityFatal, "refusing to purge the source extension").
		WithContext("suffix", suffix)
}

func MergeInconsistency(message string, unit string) *BinderyError {
	return New(CategoryInternal, SeverityFatal, message).
		WithContext("unit", unit)
}

// Environment errors

func FileSystemError(path string, cause error) *BinderyError {
	return Wrap(cause, CategoryFileSystem, SeverityFatal, "filesystem operation failed").
		WithContext("path", path)
}

func LockError(path string, cause error) *BinderyError {
	return Wrap(cause, CategoryLock, SeverityFatal, "lock sidecar operation failed").
		WithContext("path", path)
}

// Build pipeline errors

func TypesetFailed(source string, cause error) *BinderyError {
	return Wrap(cause, CategoryTypeset, SeverityFatal, "typesetter run failed").
		WithContext("source", source)
}

func TemplateFailed(template string, cause error) *BinderyError {
	return Wrap(cause, CategoryTemplate, SeverityFatal, "template expansion failed").
		WithContext("template", template)
}

func ImpositionFailed(target string, cause error) *BinderyError {
	return Wrap(cause, CategoryBuild, SeverityFatal, "booklet imposition failed").
		WithContext("target", target)
}

func BuildFailed(stage string, cause error) *BinderyError {
	return Wrap(cause, CategoryBuild, SeverityFatal, "build failed").
		WithContext("stage", stage)
}

// Configuration errors

func ConfigNotFound(path string) *BinderyError {
	return New(CategoryConfig, SeverityFatal, "configuration file not found").
		WithContext("path", path)
}

func InvalidSource(path, reason string) *BinderyError {
	return New(CategoryValidation, SeverityFatal, "source does not look like a document").
		WithContext("path", path).
		WithContext("reason", reason)
}
