package document

import (
	"html"
	"strings"
)

var texReplacer = strings.NewReplacer(
	"\\", `\textbackslash{}`,
	"&", `\&`,
	"%", `\%`,
	"$", `\$`,
	"#", `\#`,
	"_", `\_`,
	"{", `\{`,
	"}", `\}`,
	"~", `\textasciitilde{}`,
	"^", `\textasciicircum{}`,
)

// EscapeTex escapes TeX special characters in plain text.
func EscapeTex(s string) string {
	return texReplacer.Replace(s)
}

// EscapeValue escapes a header value for the given render context.
func EscapeValue(s string, esc Escape) string {
	if esc == EscapePrint {
		return EscapeTex(s)
	}
	return html.EscapeString(s)
}

// EscapeHeader escapes every value of a header field map for the given
// render context.
func EscapeHeader(fields map[string]string, esc Escape) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = EscapeValue(v, esc)
	}
	return out
}
