package document

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// renderTex converts a Markdown body into TeX notation by walking the
// Goldmark AST. The conversion covers the constructs the built-in print
// templates expect; unknown nodes degrade to their text content.
func renderTex(body []byte) (string, error) {
	root := goldmark.New().Parser().Parse(text.NewReader(body))
	var sb strings.Builder
	if err := texBlocks(&sb, root, body); err != nil {
		return "", fmt.Errorf("convert body to tex: %w", err)
	}
	return sb.String(), nil
}

var texSectioning = []string{"\\section", "\\subsection", "\\subsubsection", "\\paragraph"}

func texBlocks(sb *strings.Builder, parent gmast.Node, source []byte) error {
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *gmast.Heading:
			level := node.Level
			if level > len(texSectioning) {
				level = len(texSectioning)
			}
			sb.WriteString(texSectioning[level-1])
			sb.WriteString("{")
			texInlines(sb, node, source)
			sb.WriteString("}\n\n")
		case *gmast.Paragraph:
			texInlines(sb, node, source)
			sb.WriteString("\n\n")
		case *gmast.Blockquote:
			sb.WriteString("\\begin{quote}\n")
			if err := texBlocks(sb, node, source); err != nil {
				return err
			}
			sb.WriteString("\\end{quote}\n\n")
		case *gmast.FencedCodeBlock, *gmast.CodeBlock:
			sb.WriteString("\\begin{verbatim}\n")
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				sb.Write(seg.Value(source))
			}
			sb.WriteString("\\end{verbatim}\n\n")
		case *gmast.List:
			if err := texList(sb, node, source); err != nil {
				return err
			}
			sb.WriteString("\n")
		case *gmast.ThematicBreak:
			sb.WriteString("\\medskip\\hrule\\medskip\n\n")
		case *gmast.HTMLBlock:
			// raw HTML has no print rendering
		default:
			texInlines(sb, n, source)
			sb.WriteString("\n\n")
		}
	}
	return nil
}

func texList(sb *strings.Builder, list *gmast.List, source []byte) error {
	env := "itemize"
	if list.IsOrdered() {
		env = "enumerate"
	}
	sb.WriteString("\\begin{" + env + "}\n")
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		sb.WriteString("\\item ")
		if err := texListItem(sb, item, source); err != nil {
			return err
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\\end{" + env + "}\n")
	return nil
}

// texListItem renders a list item's paragraphs inline, recursing into nested
// lists.
func texListItem(sb *strings.Builder, item gmast.Node, source []byte) error {
	for c := item.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *gmast.List:
			sb.WriteString("\n")
			if err := texList(sb, node, source); err != nil {
				return err
			}
		default:
			texInlines(sb, c, source)
		}
	}
	return nil
}

func texInlines(sb *strings.Builder, parent gmast.Node, source []byte) {
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *gmast.Text:
			sb.WriteString(EscapeTex(string(node.Segment.Value(source))))
			if node.SoftLineBreak() {
				sb.WriteString("\n")
			} else if node.HardLineBreak() {
				sb.WriteString("\\\\\n")
			}
		case *gmast.String:
			sb.WriteString(EscapeTex(string(node.Value)))
		case *gmast.Emphasis:
			cmd := "\\emph{"
			if node.Level >= 2 {
				cmd = "\\textbf{"
			}
			sb.WriteString(cmd)
			texInlines(sb, node, source)
			sb.WriteString("}")
		case *gmast.CodeSpan:
			sb.WriteString("\\texttt{")
			sb.WriteString(EscapeTex(string(node.Text(source))))
			sb.WriteString("}")
		case *gmast.Link:
			sb.WriteString("\\href{")
			sb.WriteString(string(node.Destination))
			sb.WriteString("}{")
			texInlines(sb, node, source)
			sb.WriteString("}")
		case *gmast.AutoLink:
			sb.WriteString("\\url{")
			sb.WriteString(string(node.URL(source)))
			sb.WriteString("}")
		case *gmast.Image:
			// images travel as attachments; print the alt text
			texInlines(sb, node, source)
		case *gmast.RawHTML:
			// raw HTML has no print rendering
		default:
			texInlines(sb, n, source)
		}
	}
}

// renderText extracts the plain text content of a Markdown body.
func renderText(body []byte) (string, error) {
	root := goldmark.New().Parser().Parse(text.NewReader(body))
	var sb strings.Builder
	err := gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			if _, ok := n.(*gmast.Paragraph); ok {
				sb.WriteString("\n\n")
			}
			if _, ok := n.(*gmast.Heading); ok {
				sb.WriteString("\n\n")
			}
			return gmast.WalkContinue, nil
		}
		if t, ok := n.(*gmast.Text); ok {
			sb.Write(t.Segment.Value(body))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteString("\n")
			}
		}
		return gmast.WalkContinue, nil
	})
	if err != nil {
		return "", fmt.Errorf("extract body text: %w", err)
	}
	return strings.TrimSpace(sb.String()) + "\n", nil
}
