package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTexBlocks(t *testing.T) {
	src := `## Findings

Plain text with 50% more & better results.

> quoted line

- first
- second
  - nested

1. one
2. two
`
	tex, err := renderTex([]byte(src))
	require.NoError(t, err)

	assert.Contains(t, tex, `\subsection{Findings}`)
	assert.Contains(t, tex, `50\% more \& better`)
	assert.Contains(t, tex, "\\begin{quote}\nquoted line")
	assert.Contains(t, tex, "\\begin{itemize}\n\\item first")
	assert.Contains(t, tex, "\\item second\n\\begin{itemize}\n\\item nested")
	assert.Contains(t, tex, "\\begin{enumerate}\n\\item one")
}

func TestRenderTexInlines(t *testing.T) {
	tex, err := renderTex([]byte("Mix *em* and **strong** and `code_x` and [site](https://example.com).\n"))
	require.NoError(t, err)

	assert.Contains(t, tex, `\emph{em}`)
	assert.Contains(t, tex, `\textbf{strong}`)
	assert.Contains(t, tex, `\texttt{code\_x}`)
	assert.Contains(t, tex, `\href{https://example.com}{site}`)
}

func TestRenderTexCodeBlockIsVerbatim(t *testing.T) {
	tex, err := renderTex([]byte("```\nif x & y {\n}\n```\n"))
	require.NoError(t, err)
	// verbatim content is not escaped
	assert.Contains(t, tex, "\\begin{verbatim}\nif x & y {\n}\n\\end{verbatim}")
}

func TestRenderTextStripsMarkup(t *testing.T) {
	text, err := renderText([]byte("# Head\n\nBody with *emphasis*.\n"))
	require.NoError(t, err)
	assert.Contains(t, text, "Head")
	assert.Contains(t, text, "Body with emphasis.")
	assert.NotContains(t, text, "*")
}
