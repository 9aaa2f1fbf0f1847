package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	defaults := Defaults()
	assert.Equal(t, "10pt", defaults["fontsize"])
	assert.Equal(t, "a4paper", defaults["papersize"])
	assert.Equal(t, "no", defaults["twoside"])
	assert.Equal(t, "1.0", defaults["linespread"])
}

func TestSanitizePrecedence(t *testing.T) {
	persisted := Options{"fontsize": "11pt", "papersize": "letterpaper"}
	explicit := Options{"fontsize": "12pt"}

	out := Sanitize(explicit, persisted)

	assert.Equal(t, "12pt", out["fontsize"], "explicit beats persisted")
	assert.Equal(t, "letterpaper", out["papersize"], "persisted beats default")
	assert.Equal(t, "no", out["twoside"], "untouched keys keep defaults")
}

func TestSanitizeDropsInvalidValuesToDefaults(t *testing.T) {
	out := Sanitize(Options{
		"fontsize":   "13pt",
		"margin":     "wide",
		"linespread": "9.5",
		"mainfont":   "../../etc/passwd",
	}, nil)

	assert.Equal(t, "10pt", out["fontsize"])
	assert.Equal(t, "20mm", out["margin"])
	assert.Equal(t, "1.0", out["linespread"])
	assert.Equal(t, "Latin Modern Roman", out["mainfont"])
}

func TestSanitizeAcceptsValidValues(t *testing.T) {
	out := Sanitize(Options{
		"margin":     "2.5cm",
		"linespread": "1.4",
		"mainfont":   "Noto Serif",
		"twoside":    "yes",
	}, nil)

	assert.Equal(t, "2.5cm", out["margin"])
	assert.Equal(t, "1.4", out["linespread"])
	assert.Equal(t, "Noto Serif", out["mainfont"])
	assert.Equal(t, "yes", out["twoside"])
}

func TestSanitizeIgnoresUnknownKeys(t *testing.T) {
	out := Sanitize(Options{"watermark": "DRAFT"}, nil)
	_, ok := out["watermark"]
	assert.False(t, ok)
}
