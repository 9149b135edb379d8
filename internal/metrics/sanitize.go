package metrics

import (
	"regexp"
	"unicode/utf8"
)

// MaxLabelLength bounds the stored operation label.
const MaxLabelLength = 200

var (
	positionalParam = regexp.MustCompile(`\$\d+`)

	// single-quoted string literal, '' is an escaped quote
	stringLiteral = regexp.MustCompile(`'(?:[^']|'')*'`)
)

// Sanitize strips literal values and positional placeholders from an
// operation label so recorded history never carries user data.
func Sanitize(label string) (out string) {
	defer func() {
		if recover() != nil {
			out = "UNKNOWN"
		}
	}()

	out = positionalParam.ReplaceAllString(label, "?")
	out = stringLiteral.ReplaceAllString(out, "?")

	if utf8.RuneCountInString(out) > MaxLabelLength {
		out = string([]rune(out)[:MaxLabelLength])
	}
	return out
}
