package render

import (
	"strings"
	"time"

	"git.home.luguber.info/inful/bindery/internal/document"
)

// multilingual is satisfied by merged documents that carry languages beyond
// the main one.
type multilingual interface {
	OtherLanguages() []string
}

// BuildTokens prepares the token map a template is expanded against. Both
// the raw and the sanitized option maps are passed through; only the
// sanitized map is referenced inside the built-in templates.
func BuildTokens(doc document.Document, notation document.Notation, raw, sanitized Options) (map[string]any, error) {
	esc := document.EscapeMarkup
	if notation == document.NotationTex {
		esc = document.EscapePrint
	}
	header := doc.Header(esc)

	body, err := doc.Body(notation)
	if err != nil {
		return nil, err
	}

	babel := document.BabelAlias(doc.Language())
	var otherBabel []string
	if ml, ok := doc.(multilingual); ok {
		seen := map[string]bool{babel: true}
		for _, lang := range ml.OtherLanguages() {
			folded := document.BabelAlias(lang)
			if seen[folded] {
				continue
			}
			seen[folded] = true
			otherBabel = append(otherBabel, folded)
		}
	}

	// babel expects the main language last
	babelList := strings.Join(append(otherBabel, babel), ",")

	classOptions := []string{sanitized["fontsize"], sanitized["papersize"]}
	if sanitized["twoside"] == "yes" {
		classOptions = append(classOptions, "twoside")
	}

	return map[string]any{
		"Title":        header["title"],
		"Author":       header["author"],
		"Header":       header,
		"Body":         body,
		"Language":     doc.Language(),
		"LanguageCode": doc.LanguageCode(),
		"Babel":        babel,
		"BabelList":    babelList,
		"ClassOptions": strings.Join(classOptions, ","),
		"HasTOC":       doc.HasTOC(),
		"WantsCover":   doc.WantsCover(),
		"Options":      raw,
		"Sanitized":    sanitized,
		"Date":         time.Now().UTC().Format("2006-01-02"),
	}, nil
}
