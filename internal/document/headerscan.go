package document

import (
	"bytes"
	"errors"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	binderrors "git.home.luguber.info/inful/bindery/internal/errors"
)

// headScanLimit bounds the fast header scan. Frontmatter larger than this is
// treated as malformed.
const headScanLimit = 64 * 1024

// ErrMissingClosingDelimiter indicates the document started with a YAML
// frontmatter delimiter but did not contain a closing delimiter.
var ErrMissingClosingDelimiter = errors.New("yaml frontmatter start delimiter found but closing delimiter is missing")

// HeaderScan is the result of the fast header scan a unit performs at open
// time, before the full document model is built.
type HeaderScan struct {
	Missing bool
	Valid   bool
	Deleted bool
	Reason  string
	Fields  map[string]any
}

// FastScan reads only the head of a source file and inspects its frontmatter
// for a deletion marker and basic validity. It never parses the body.
func FastScan(path string) (HeaderScan, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return HeaderScan{Missing: true}, nil
		}
		return HeaderScan{}, binderrors.FileSystemError(path, err)
	}
	defer f.Close()

	head, err := io.ReadAll(io.LimitReader(f, headScanLimit))
	if err != nil {
		return HeaderScan{}, binderrors.FileSystemError(path, err)
	}

	if len(bytes.TrimSpace(head)) == 0 {
		return HeaderScan{Reason: "source is empty"}, nil
	}

	frontmatter, _, had, err := splitFrontmatter(head)
	if err != nil {
		return HeaderScan{Reason: err.Error()}, nil
	}

	scan := HeaderScan{Valid: true, Fields: map[string]any{}}
	if !had {
		return scan, nil
	}

	fields, err := parseFrontmatterYAML(frontmatter)
	if err != nil {
		return HeaderScan{Reason: "malformed frontmatter: " + err.Error()}, nil
	}
	scan.Fields = fields

	if deleted, ok := fields["deleted"].(bool); ok && deleted {
		scan.Deleted = true
	}
	return scan, nil
}

// splitFrontmatter separates YAML frontmatter (`---` delimited) from the
// Markdown body.
//
// If the document does not start with a frontmatter delimiter, had is false
// and body is the full input.
func splitFrontmatter(content []byte) (frontmatter []byte, body []byte, had bool, err error) {
	open := []byte("---\n")
	if !bytes.HasPrefix(content, open) {
		return nil, content, false, nil
	}

	start := len(open)
	if bytes.HasPrefix(content[start:], open) {
		return []byte{}, content[start+len(open):], true, nil
	}

	closeSeq := []byte("\n---\n")
	idx := bytes.Index(content[start:], closeSeq)
	if idx < 0 {
		return nil, nil, false, ErrMissingClosingDelimiter
	}

	end := start + idx + 1
	bodyStart := start + idx + len(closeSeq)
	return content[start:end], content[bodyStart:], true, nil
}

// parseFrontmatterYAML parses raw YAML frontmatter (without delimiters) into
// a map.
func parseFrontmatterYAML(frontmatter []byte) (map[string]any, error) {
	if len(frontmatter) == 0 {
		return map[string]any{}, nil
	}

	var fields map[string]any
	if err := yaml.Unmarshal(frontmatter, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}
