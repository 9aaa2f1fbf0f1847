// Package render turns a caller's raw option map into the validated token
// map consumed by the built-in templates, and expands those templates.
//
// Option validation deliberately degrades invalid values to their defaults
// with a warning instead of failing the build: cosmetic options favor
// best-effort output, unlike the fail-fast policy of the structural pipeline.
package render

import (
	"log/slog"
	"regexp"
	"strconv"
)

// Options is a flat option map. Raw values are pre-interpreted as markup and
// may contain inline formatting; sanitized values are safe for direct use
// inside the built-in templates.
type Options map[string]string

type ruleKind int

const (
	ruleEnum ruleKind = iota
	ruleRange
	rulePattern
)

type rule struct {
	kind    ruleKind
	allowed map[string]bool
	min     float64
	max     float64
	pattern *regexp.Regexp
	def     string
}

func enumRule(def string, allowed ...string) rule {
	set := make(map[string]bool, len(allowed))
	for _, v := range allowed {
		set[v] = true
	}
	return rule{kind: ruleEnum, allowed: set, def: def}
}

func rangeRule(def string, min, max float64) rule {
	return rule{kind: ruleRange, min: min, max: max, def: def}
}

func patternRule(def, pattern string) rule {
	return rule{kind: rulePattern, pattern: regexp.MustCompile(pattern), def: def}
}

// optionRules is the table-driven validation policy, one rule per recognized
// key. Unrecognized keys pass through to the raw map only.
var optionRules = map[string]rule{
	"fontsize":   enumRule("10pt", "10pt", "11pt", "12pt"),
	"papersize":  enumRule("a4paper", "a4paper", "letterpaper", "a5paper", "halfletter"),
	"twoside":    enumRule("no", "yes", "no"),
	"mainfont":   patternRule("Latin Modern Roman", `^[A-Za-z][A-Za-z0-9 -]*$`),
	"margin":     patternRule("20mm", `^\d+(\.\d+)?(mm|cm|in|pt)$`),
	"linespread": rangeRule("1.0", 0.8, 2.0),
}

// Defaults returns the in-force default for every recognized option key.
func Defaults() Options {
	out := make(Options, len(optionRules))
	for key, r := range optionRules {
		out[key] = r.def
	}
	return out
}

// Sanitize derives the validated option map. Precedence: explicit per-call
// arguments override the unit's persisted options, which override defaults.
// An invalid value is dropped to the in-force default with a warning; it
// never aborts the build.
func Sanitize(explicit, persisted Options) Options {
	out := Defaults()
	for _, layer := range []Options{persisted, explicit} {
		for key, value := range layer {
			r, ok := optionRules[key]
			if !ok {
				continue
			}
			if !r.accepts(value) {
				slog.Warn("Ignoring invalid option value", "key", key, "value", value, "default", out[key])
				continue
			}
			out[key] = value
		}
	}
	return out
}

func (r rule) accepts(value string) bool {
	switch r.kind {
	case ruleEnum:
		return r.allowed[value]
	case ruleRange:
		f, err := strconv.ParseFloat(value, 64)
		return err == nil && f >= r.min && f <= r.max
	case rulePattern:
		return r.pattern.MatchString(value)
	}
	return false
}
