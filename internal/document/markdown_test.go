package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSource = `---
title: Field Guide & Notes
author: A. Writer
language: russian
toc: false
attachments:
  - images/map.png
  - images/key.png
---

Preamble paragraph.

# Orientation

Some body text.
`

func TestOpenParsesHeader(t *testing.T) {
	doc, err := Open(writeSource(t, sampleSource))
	require.NoError(t, err)

	assert.Equal(t, "russian", doc.Language())
	assert.Equal(t, "ru", doc.LanguageCode())
	assert.Equal(t, "russian", doc.Hyphenation())
	assert.False(t, doc.IsDeleted())
	assert.False(t, doc.HasTOC())
	assert.False(t, doc.WantsCover())
	assert.Equal(t, []string{"images/map.png", "images/key.png"}, doc.Attachments())
}

func TestHeaderEscapesPerContext(t *testing.T) {
	doc, err := Open(writeSource(t, sampleSource))
	require.NoError(t, err)

	assert.Equal(t, "Field Guide &amp; Notes", doc.Header(EscapeMarkup)["title"])
	assert.Equal(t, `Field Guide \& Notes`, doc.Header(EscapePrint)["title"])

	// list-valued fields never leak into the scalar header map
	_, ok := doc.Header(EscapeMarkup)["attachments"]
	assert.False(t, ok)
}

func TestBodyNotations(t *testing.T) {
	doc, err := Open(writeSource(t, sampleSource))
	require.NoError(t, err)

	html, err := doc.Body(NotationHTML)
	require.NoError(t, err)
	assert.Contains(t, html, "<h1>Orientation</h1>")

	tex, err := doc.Body(NotationTex)
	require.NoError(t, err)
	assert.Contains(t, tex, `\section{Orientation}`)

	text, err := doc.Body(NotationText)
	require.NoError(t, err)
	assert.Contains(t, text, "Some body text.")
	assert.NotContains(t, text, "<h1>")

	_, err = doc.Body(Notation("docx"))
	assert.Error(t, err)
}

func TestFragmentsAndTOCAgreeOnLeadingPreamble(t *testing.T) {
	doc, err := Open(writeSource(t, sampleSource))
	require.NoError(t, err)

	fragments, err := doc.Fragments()
	require.NoError(t, err)
	entries, err := doc.TOC()
	require.NoError(t, err)

	// preamble ahead of the first heading yields one more fragment than entries
	assert.Len(t, fragments, 2)
	assert.Len(t, entries, 1)
	assert.Equal(t, "Orientation", entries[0].Label)
}

func TestOpenDefaults(t *testing.T) {
	doc, err := Open(writeSource(t, "# Untitled\n\nNo frontmatter at all.\n"))
	require.NoError(t, err)

	assert.Equal(t, "english", doc.Language())
	assert.True(t, doc.HasTOC())
	assert.Nil(t, doc.Attachments())
}

func TestOpenDeletedMarker(t *testing.T) {
	doc, err := Open(writeSource(t, "---\ndeleted: true\n---\n\nGone.\n"))
	require.NoError(t, err)
	assert.True(t, doc.IsDeleted())
}

func TestOpenRejectsUnclosedFrontmatter(t *testing.T) {
	_, err := Open(writeSource(t, "---\ntitle: Broken\n"))
	assert.Error(t, err)
}

func TestEscapeTex(t *testing.T) {
	assert.Equal(t, `100\% \& \#1 \_x \{y\}`, EscapeTex(`100% & #1 _x {y}`))
	assert.Equal(t, `\textbackslash{}cmd`, EscapeTex(`\cmd`))
}
