// Package indicator parses capability-indicator strings such as
// "5.2.3 知情同意" or "知情同意(5.2.3)" into a dotted code and a display name.
package indicator

import (
	"regexp"
	"strings"

	"crc-quiz-server/models"
)

var (
	codePattern     = regexp.MustCompile(`(\d+(?:\.\d+){0,3})`)
	leadingCode     = regexp.MustCompile(`^\s*\d+(?:\.\d+){0,3}\s*[-．。\s]*`)
	bracketedCode   = regexp.MustCompile(`[\(（]\s*\d+(?:\.\d+){0,3}\s*[\)）]`)
	firstLevelDigit = regexp.MustCompile(`^\s*(\d+)`)
)

// Parse extracts the first dotted numeric code and the name left once code
// prefixes and parenthesized codes are removed. When nothing is left the
// whole trimmed text is the name. Blank input yields an empty pair.
func Parse(text string) models.IndicatorCode {
	t := strings.TrimSpace(text)
	if t == "" {
		return models.IndicatorCode{}
	}
	var id string
	if m := codePattern.FindStringSubmatch(t); m != nil {
		id = m[1]
	}
	name := leadingCode.ReplaceAllString(t, "")
	name = strings.TrimSpace(bracketedCode.ReplaceAllString(name, ""))
	if name == "" {
		name = t
	}
	return models.IndicatorCode{ID: id, Name: name}
}

// FirstLevel returns the leading integer segment of id, or "" when id does
// not start with digits.
func FirstLevel(id string) string {
	m := firstLevelDigit.FindStringSubmatch(strings.TrimSpace(id))
	if m == nil {
		return ""
	}
	return m[1]
}
