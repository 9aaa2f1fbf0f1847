// Package merge presents an ordered list of source documents as one
// compilable unit satisfying the same read contract as a single document.
//
// A Merged document is immutable after construction; recomposing with a
// different file list requires a new instance.
package merge

import (
	"fmt"
	"strings"

	"git.home.luguber.info/inful/bindery/internal/document"
	binderrors "git.home.luguber.info/inful/bindery/internal/errors"
)

// startOfBodyLabel is the label of the synthetic entry reconciling a
// document whose body starts ahead of its first heading.
const startOfBodyLabel = "Introduction"

// Merged is a virtual document composed of ordered underlying documents.
type Merged struct {
	name string
	docs []document.Document

	mainLang string
	mainCode string

	otherLangs []string
	otherCodes []string

	headerPrint  map[string]string
	headerMarkup map[string]string
}

// New composes a virtual document. The header map is caller-supplied and is
// never inferred from the underlying documents; language and hyphenation
// come from the first document.
func New(name string, header map[string]string, docs []document.Document) (*Merged, error) {
	if name == "" {
		return nil, binderrors.MissingConstructorArg("name")
	}
	if len(docs) == 0 {
		return nil, binderrors.MissingConstructorArg("documents")
	}

	m := &Merged{
		name:         name,
		docs:         docs,
		mainLang:     docs[0].Language(),
		mainCode:     docs[0].LanguageCode(),
		headerPrint:  document.EscapeHeader(header, document.EscapePrint),
		headerMarkup: document.EscapeHeader(header, document.EscapeMarkup),
	}

	// Distinct languages of subsequent documents that differ from the main
	// one, after alias folding.
	mainFolded := document.BabelAlias(m.mainLang)
	seen := map[string]bool{mainFolded: true}
	for _, doc := range docs[1:] {
		folded := document.BabelAlias(doc.Language())
		if seen[folded] {
			continue
		}
		seen[folded] = true
		m.otherLangs = append(m.otherLangs, doc.Language())
		m.otherCodes = append(m.otherCodes, doc.LanguageCode())
	}

	return m, nil
}

func (m *Merged) Language() string     { return m.mainLang }
func (m *Merged) LanguageCode() string { return m.mainCode }
func (m *Merged) Hyphenation() string  { return document.HyphenationFor(m.mainLang) }

// OtherLanguages returns the deduplicated language names of subsequent
// documents differing from the main language. Empty means not multilingual.
func (m *Merged) OtherLanguages() []string { return m.otherLangs }

// OtherLanguageCodes returns the machine codes matching OtherLanguages.
func (m *Merged) OtherLanguageCodes() []string { return m.otherCodes }

// Header returns the caller-supplied header map escaped for the given render
// context. Both variants are rendered once at construction.
func (m *Merged) Header(esc document.Escape) map[string]string {
	if esc == document.EscapePrint {
		return m.headerPrint
	}
	return m.headerMarkup
}

// Body renders the merged body in the given notation. For the print notation
// an explicit language-switch directive is inserted ahead of any document
// whose language differs from the running current language.
func (m *Merged) Body(n document.Notation) (string, error) {
	if n == document.NotationTex {
		return m.composeTex()
	}

	var sb strings.Builder
	for _, doc := range m.docs {
		body, err := doc.Body(n)
		if err != nil {
			return "", err
		}
		sb.WriteString(body)
	}
	return sb.String(), nil
}

// composeTex concatenates each document's print body, tracking the current
// language across the whole sequence starting from the main language. Alias
// folding happens before comparison so near-equivalent languages do not
// trigger spurious switches.
func (m *Merged) composeTex() (string, error) {
	var sb strings.Builder
	current := document.BabelAlias(m.mainLang)
	for _, doc := range m.docs {
		lang := document.BabelAlias(doc.Language())
		if lang != current {
			fmt.Fprintf(&sb, "\\selectlanguage{%s}\n", lang)
			current = lang
		}
		body, err := doc.Body(document.NotationTex)
		if err != nil {
			return "", err
		}
		sb.WriteString(body)
	}
	return sb.String(), nil
}

// Fragments emits, for each underlying document, a synthetic title fragment
// ahead of its body fragments, so the merged table of contents can
// distinguish "start of document N" from "start of its first section".
func (m *Merged) Fragments() ([]document.Fragment, error) {
	var out []document.Fragment
	for i, doc := range m.docs {
		// the title is already markup-escaped by the document header
		title := m.docTitle(doc, i)
		out = append(out, document.Fragment{
			Title: title,
			Body:  fmt.Sprintf("<h1>%s</h1>\n", title),
		})
		fragments, err := doc.Fragments()
		if err != nil {
			return nil, err
		}
		out = append(out, fragments...)
	}
	return out, nil
}

// TOC renumbers every entry sequentially across the merged fragment list.
// A document whose fragment count exceeds its entry count by exactly one
// gets a synthetic start-of-body entry; any other mismatch is a consistency
// violation between the renderer and the entry extractor.
func (m *Merged) TOC() ([]document.Entry, error) {
	var out []document.Entry
	base := 0
	for i, doc := range m.docs {
		out = append(out, document.Entry{Index: base, Level: 1, Label: m.docTitle(doc, i)})
		base++

		fragments, err := doc.Fragments()
		if err != nil {
			return nil, err
		}
		entries, err := doc.TOC()
		if err != nil {
			return nil, err
		}

		switch len(fragments) - len(entries) {
		case 0:
		case 1:
			out = append(out, document.Entry{Index: base, Level: 2, Label: startOfBodyLabel})
		default:
			return nil, binderrors.MergeInconsistency(
				fmt.Sprintf("document %d has %d fragments but %d toc entries", i+1, len(fragments), len(entries)),
				m.name)
		}

		for _, e := range entries {
			out = append(out, document.Entry{Index: base + e.Index, Level: e.Level + 1, Label: e.Label})
		}
		base += len(fragments)
	}
	return out, nil
}

// Attachments returns the deduplicated union of every underlying document's
// attachment list. Order is not significant.
func (m *Merged) Attachments() []string {
	seen := map[string]bool{}
	var out []string
	for _, doc := range m.docs {
		for _, a := range doc.Attachments() {
			if seen[a] {
				continue
			}
			seen[a] = true
			out = append(out, a)
		}
	}
	return out
}

// HasTOC is always true for a merge.
func (m *Merged) HasTOC() bool { return true }

// WantsCover is always true: a merged book gets cover and closing pages.
func (m *Merged) WantsCover() bool { return true }

// IsDeleted is always false: a merge is a synthetic construct that is never
// individually deleted.
func (m *Merged) IsDeleted() bool { return false }

// docTitle resolves the display title for an underlying document.
func (m *Merged) docTitle(doc document.Document, i int) string {
	if title := doc.Header(document.EscapeMarkup)["title"]; title != "" {
		return title
	}
	return fmt.Sprintf("Document %d", i+1)
}
