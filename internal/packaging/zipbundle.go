package packaging

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	binderrors "git.home.luguber.info/inful/bindery/internal/errors"
	"git.home.luguber.info/inful/bindery/internal/render"
)

// Bundle is the content of an archived unit: rendered artifacts keyed by
// their file name inside the archive, plus attachment files copied in.
type Bundle struct {
	Files       map[string][]byte
	Attachments []string
}

// WriteZip packages the bundle into a zip archive at path, atomically.
func WriteZip(path string, bundle Bundle) error {
	if len(bundle.Files) == 0 {
		return binderrors.New(binderrors.CategoryBuild, binderrors.SeverityFatal,
			"archive bundle is empty").WithContext("path", path)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, name := range sortedKeys(bundle.Files) {
		if err := addZipFile(zw, name, bundle.Files[name]); err != nil {
			return err
		}
	}

	for _, attachment := range bundle.Attachments {
		data, err := os.ReadFile(attachment)
		if err != nil {
			return binderrors.FileSystemError(attachment, err)
		}
		if err := addZipFile(zw, "attachments/"+filepath.Base(attachment), data); err != nil {
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}
	return render.WriteAtomic(path, buf.Bytes())
}

func sortedKeys(m map[string][]byte) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
