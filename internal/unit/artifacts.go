package unit

import (
	"fmt"
	"sort"
	"strings"
)

// Format is one requested output kind.
type Format string

const (
	FormatTex           Format = "tex"
	FormatPDF           Format = "pdf"
	FormatBookletA4     Format = "booklet-a4"
	FormatBookletLetter Format = "booklet-letter"
	FormatHTML          Format = "html"
	FormatBareHTML      Format = "bare-html"
	FormatEPUB          Format = "epub"
	FormatZip           Format = "zip"
)

// Artifact extensions, including the typesetter side-products.
const (
	ExtTex           = ".tex"
	ExtLog           = ".log"
	ExtAux           = ".aux"
	ExtTOC           = ".toc"
	ExtPDF           = ".pdf"
	ExtBookletA4     = ".a4.pdf"
	ExtBookletLetter = ".lt.pdf"
	ExtHTML          = ".html"
	ExtBareHTML      = ".bare.html"
	ExtEPUB          = ".epub"
	ExtZip           = ".zip"

	ExtLock   = ".lock"
	ExtStatus = ".status"
)

// artifactExtensions is every extension a compile run may produce. The
// source suffix is deliberately not in this set.
var artifactExtensions = []string{
	ExtTex, ExtLog, ExtAux, ExtTOC, ExtPDF,
	ExtBookletA4, ExtBookletLetter,
	ExtHTML, ExtBareHTML, ExtEPUB, ExtZip,
}

// formatExtensions maps a format to the extensions a render of it replaces.
var formatExtensions = map[Format][]string{
	FormatTex:           {ExtTex},
	FormatPDF:           {ExtPDF, ExtLog, ExtAux, ExtTOC},
	FormatBookletA4:     {ExtBookletA4},
	FormatBookletLetter: {ExtBookletLetter},
	FormatHTML:          {ExtHTML},
	FormatBareHTML:      {ExtBareHTML},
	FormatEPUB:          {ExtEPUB},
	FormatZip:           {ExtZip},
}

// PrimaryExtension returns the extension of the format's main artifact.
func (f Format) PrimaryExtension() string {
	exts := formatExtensions[f]
	if len(exts) == 0 {
		return ""
	}
	return exts[0]
}

// ParseFormat validates a caller-supplied format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := formatExtensions[f]; !ok {
		return "", fmt.Errorf("unknown output format %q (known: %s)", s, strings.Join(FormatNames(), ", "))
	}
	return f, nil
}

// FormatNames lists the known format names, sorted.
func FormatNames() []string {
	names := make([]string, 0, len(formatExtensions))
	for f := range formatExtensions {
		names = append(names, string(f))
	}
	sort.Strings(names)
	return names
}
