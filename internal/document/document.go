// Package document defines the read contract the compile pipeline consumes
// for a source document, together with a markdown-backed implementation.
//
// A Document can be backed by a single file on disk or by a virtual merge of
// several files (internal/merge); the rest of the pipeline is unaware which.
package document

// Notation identifies a target body notation.
type Notation string

const (
	NotationHTML Notation = "html"
	NotationTex  Notation = "tex"
	NotationText Notation = "text"
)

// Escape identifies the escaping applied to header field values. The print
// and markup render contexts escape differently, so both variants are kept.
type Escape int

const (
	EscapeMarkup Escape = iota // HTML entity escaping
	EscapePrint                // TeX special-character escaping
)

// Entry is one table-of-contents entry. Index is the zero-based position of
// the fragment the entry points at.
type Entry struct {
	Index int
	Level int
	Label string
}

// Fragment is one body fragment for paginated output: a titled slice of the
// rendered body.
type Fragment struct {
	Title string
	Body  string
}

// Document is the read contract satisfied by real and virtual documents.
type Document interface {
	// Language returns the babel-style lowercase language name, e.g. "russian".
	Language() string
	// LanguageCode returns the machine code, e.g. "ru".
	LanguageCode() string
	// Hyphenation returns the hyphenation table name for the typesetter.
	Hyphenation() string

	// Header returns the header field map escaped for the given context.
	Header(esc Escape) map[string]string

	// Body renders the document body in the given notation.
	Body(n Notation) (string, error)
	// Fragments returns the titled body fragments for paginated output.
	Fragments() ([]Fragment, error)
	// TOC returns the table-of-contents entries.
	TOC() ([]Entry, error)

	// Attachments lists files shipped alongside the document.
	Attachments() []string

	HasTOC() bool
	WantsCover() bool
	IsDeleted() bool
}
