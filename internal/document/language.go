package document

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// babelNames maps language names the header scan accepts to BCP 47 codes.
// Forward resolution (code to name) goes through x/text/display instead.
var babelNames = map[string]string{
	"english":   "en",
	"german":    "de",
	"french":    "fr",
	"italian":   "it",
	"spanish":   "es",
	"russian":   "ru",
	"ukrainian": "uk",
	"croatian":  "hr",
	"bosnian":   "bs",
	"serbian":   "sr",
	"polish":    "pl",
	"czech":     "cs",
}

// babelAliases maps languages that the typesetter has no own support for to
// the language whose hyphenation and caption rules they are typeset with.
var babelAliases = map[string]string{
	"ukrainian": "russian",
	"bosnian":   "croatian",
}

// DefaultLanguage is assumed when a source declares no language.
const DefaultLanguage = "english"

// ResolveLanguage turns a header language field (a name like "russian" or a
// code like "ru") into a lowercase babel-style name and its machine code.
// An unrecognized value falls back to DefaultLanguage.
func ResolveLanguage(field string) (name, code string) {
	field = strings.ToLower(strings.TrimSpace(field))
	if field == "" {
		return DefaultLanguage, babelNames[DefaultLanguage]
	}

	if code, ok := babelNames[field]; ok {
		return field, code
	}

	tag, err := language.Parse(field)
	if err != nil {
		return DefaultLanguage, babelNames[DefaultLanguage]
	}
	base, _ := tag.Base()
	name = strings.ToLower(display.English.Languages().Name(tag))
	return name, base.String()
}

// BabelAlias folds a language onto the language whose typesetting rules it
// borrows. Languages without an alias map to themselves.
func BabelAlias(name string) string {
	if target, ok := babelAliases[name]; ok {
		return target
	}
	return name
}

// HyphenationFor returns the hyphenation table name for a language, after
// alias folding.
func HyphenationFor(name string) string {
	return BabelAlias(name)
}
