package document

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var headingLevels = map[atom.Atom]int{
	atom.H1: 1,
	atom.H2: 2,
	atom.H3: 3,
	atom.H4: 4,
}

// splitHTML splits a rendered body at heading elements into titled fragments
// and derives one table-of-contents entry per heading. Content ahead of the
// first heading becomes an untitled fragment with no entry, which is why a
// document's fragment count may exceed its entry count by exactly one.
func splitHTML(src string) ([]Fragment, []Entry, error) {
	bodyNode := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(src), bodyNode)
	if err != nil {
		return nil, nil, fmt.Errorf("parse rendered body: %w", err)
	}

	var fragments []Fragment
	var entries []Entry
	var buf strings.Builder
	current := Fragment{}
	started := false

	flush := func() {
		if !started {
			return
		}
		current.Body = buf.String()
		if strings.TrimSpace(current.Body) != "" || current.Title != "" {
			fragments = append(fragments, current)
		}
		buf.Reset()
	}

	for _, n := range nodes {
		if level, ok := headingLevels[n.DataAtom]; ok && n.Type == html.ElementNode {
			flush()
			title := nodeText(n)
			current = Fragment{Title: title}
			started = true
			entries = append(entries, Entry{Index: len(fragments), Level: level, Label: title})
		} else if !started {
			current = Fragment{}
			started = true
		}
		if err := html.Render(&buf, n); err != nil {
			return nil, nil, fmt.Errorf("render body fragment: %w", err)
		}
	}
	flush()

	return fragments, entries, nil
}

// nodeText collects the concatenated text content of a node's descendants.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(sb.String())
}
