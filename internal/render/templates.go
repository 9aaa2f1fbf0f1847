package render

import (
	"bytes"
	"fmt"
	"text/template"

	binderrors "git.home.luguber.info/inful/bindery/internal/errors"
)

const texPageTemplate = `\documentclass[{{.ClassOptions}}]{article}
\usepackage{fontspec}
\usepackage[{{.BabelList}}]{babel}
\usepackage[margin={{.Sanitized.margin}}]{geometry}
\usepackage{hyperref}
\linespread{{group .Sanitized.linespread}}
\setmainfont{{group .Sanitized.mainfont}}
\title{{group .Title}}
\author{{group .Author}}
\date{{group .Date}}
\begin{document}
{{if .WantsCover}}\maketitle
{{end}}{{if .HasTOC}}\tableofcontents
{{end}}{{.Body}}
{{if .WantsCover}}\label{lastpage}
{{end}}\end{document}
`

const htmlPageTemplate = `<!DOCTYPE html>
<html lang="{{.LanguageCode}}">
<head>
<meta charset="utf-8">
<meta name="generator" content="bindery">
<title>{{.Title}}</title>
</head>
<body>
{{if .Title}}<h1 class="doc-title">{{.Title}}</h1>
{{end}}{{.Body}}</body>
</html>
`

const bareHTMLTemplate = `{{.Body}}`

// TemplateSet holds the parsed named templates a unit expands artifacts
// from.
type TemplateSet struct {
	templates map[string]*template.Template
}

var builtinFuncs = template.FuncMap{
	// group wraps a value in TeX braces; writing literal braces around an
	// action would collide with the template delimiters.
	"group": func(v any) string { return fmt.Sprintf("{%v}", v) },
}

// Builtin returns the built-in template set.
func Builtin() *TemplateSet {
	ts, err := NewTemplateSet(map[string]string{
		"tex":       texPageTemplate,
		"html":      htmlPageTemplate,
		"bare-html": bareHTMLTemplate,
	})
	if err != nil {
		// the built-in sources are constants; failing to parse them is a bug
		panic(err)
	}
	return ts
}

// NewTemplateSet parses a named template map.
func NewTemplateSet(sources map[string]string) (*TemplateSet, error) {
	ts := &TemplateSet{templates: make(map[string]*template.Template, len(sources))}
	for name, src := range sources {
		tpl, err := template.New(name).Funcs(builtinFuncs).Option("missingkey=error").Parse(src)
		if err != nil {
			return nil, binderrors.TemplateFailed(name, err)
		}
		ts.templates[name] = tpl
	}
	return ts, nil
}

// Expand renders the named template against the token map. An engine failure
// is surfaced verbatim, wrapped with the template name.
func (ts *TemplateSet) Expand(name string, data map[string]any) (string, error) {
	tpl, ok := ts.templates[name]
	if !ok {
		return "", binderrors.New(binderrors.CategoryStructural, binderrors.SeverityFatal,
			"unknown template").WithContext("template", name)
	}

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", binderrors.TemplateFailed(name, err)
	}
	return buf.String(), nil
}
