package document

import (
	"bytes"
	"fmt"
	"os"
	"sync"

	"github.com/yuin/goldmark"

	binderrors "git.home.luguber.info/inful/bindery/internal/errors"
)

// Markdown is the file-backed document model. Building one reads and parses
// the whole source, so a compilation unit constructs it at most once and
// reuses it for every requested format.
type Markdown struct {
	path   string
	body   []byte
	fields map[string]any

	langName string
	langCode string
	deleted  bool

	htmlOnce sync.Once
	html     string
	htmlErr  error
}

// Open reads and parses a markdown source into a document model.
func Open(path string) (*Markdown, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, binderrors.FileSystemError(path, err)
	}

	frontmatter, body, had, err := splitFrontmatter(content)
	if err != nil {
		return nil, binderrors.InvalidSource(path, err.Error())
	}

	fields := map[string]any{}
	if had {
		fields, err = parseFrontmatterYAML(frontmatter)
		if err != nil {
			return nil, binderrors.InvalidSource(path, "malformed frontmatter: "+err.Error())
		}
	}

	doc := &Markdown{
		path:   path,
		body:   body,
		fields: fields,
	}

	langField, _ := fields["language"].(string)
	doc.langName, doc.langCode = ResolveLanguage(langField)
	if deleted, ok := fields["deleted"].(bool); ok {
		doc.deleted = deleted
	}
	return doc, nil
}

// Path returns the source path backing this document.
func (d *Markdown) Path() string { return d.path }

func (d *Markdown) Language() string     { return d.langName }
func (d *Markdown) LanguageCode() string { return d.langCode }
func (d *Markdown) Hyphenation() string  { return HyphenationFor(d.langName) }
func (d *Markdown) IsDeleted() bool      { return d.deleted }

// Header returns the scalar frontmatter fields escaped for the given render
// context. List and map values (attachments etc.) have dedicated accessors.
func (d *Markdown) Header(esc Escape) map[string]string {
	out := map[string]string{}
	for k, v := range d.fields {
		switch v.(type) {
		case []any, map[string]any:
			continue
		}
		out[k] = EscapeValue(fmt.Sprintf("%v", v), esc)
	}
	return out
}

// Body renders the document body in the given notation.
func (d *Markdown) Body(n Notation) (string, error) {
	switch n {
	case NotationHTML:
		return d.renderHTML()
	case NotationTex:
		return renderTex(d.body)
	case NotationText:
		return renderText(d.body)
	default:
		return "", binderrors.New(binderrors.CategoryStructural, binderrors.SeverityFatal,
			"unknown body notation").WithContext("notation", string(n))
	}
}

func (d *Markdown) renderHTML() (string, error) {
	d.htmlOnce.Do(func() {
		var buf bytes.Buffer
		if err := goldmark.New().Convert(d.body, &buf); err != nil {
			d.htmlErr = fmt.Errorf("render markdown body: %w", err)
			return
		}
		d.html = buf.String()
	})
	return d.html, d.htmlErr
}

// Fragments splits the rendered body at headings, one titled fragment per
// section. Content ahead of the first heading becomes an untitled leading
// fragment.
func (d *Markdown) Fragments() ([]Fragment, error) {
	html, err := d.renderHTML()
	if err != nil {
		return nil, err
	}
	fragments, _, err := splitHTML(html)
	return fragments, err
}

// TOC returns one entry per heading-titled fragment. The leading untitled
// fragment, when present, carries no entry.
func (d *Markdown) TOC() ([]Entry, error) {
	html, err := d.renderHTML()
	if err != nil {
		return nil, err
	}
	_, entries, err := splitHTML(html)
	return entries, err
}

// Attachments lists the files declared in the frontmatter attachments field.
func (d *Markdown) Attachments() []string {
	raw, ok := d.fields["attachments"].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// HasTOC reports whether the document wants a table of contents. Defaults to
// true unless the frontmatter disables it.
func (d *Markdown) HasTOC() bool {
	if v, ok := d.fields["toc"].(bool); ok {
		return v
	}
	return true
}

// WantsCover reports whether the document wants cover and closing pages.
func (d *Markdown) WantsCover() bool {
	if v, ok := d.fields["cover"].(bool); ok {
		return v
	}
	return false
}
