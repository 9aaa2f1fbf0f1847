package render

import (
	"os"
	"path/filepath"

	binderrors "git.home.luguber.info/inful/bindery/internal/errors"
)

// WriteAtomic writes content to path through a temp file and rename, so a
// successful expansion fully replaces any prior output and a failed one
// leaves no partial file behind.
func WriteAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return binderrors.FileSystemError(path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return binderrors.FileSystemError(path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return binderrors.FileSystemError(path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return binderrors.FileSystemError(path, err)
	}
	return nil
}
