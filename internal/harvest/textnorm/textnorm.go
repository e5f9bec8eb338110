// internal/harvest/textnorm/textnorm.go

// Package textnorm canonicalizes noisy menu-item labels for
// deduplication. Normalize is deterministic, and idempotent for any
// label whose expansions stay within the length gate; an empty result
// means "discard this item".
package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	minLabelLen = 3
	maxLabelLen = 70
)

var (
	punctPattern = regexp.MustCompile(`[*"$#]`)

	// A numeric quantity followed by a unit word, optionally trailed
	// by "of": "16 oz. of", "2 pieces", "1/2 lb" (the digit token pass
	// catches the fraction remainder).
	unitPattern = regexp.MustCompile(
		`\d+\s*(lb|pounds|pound|oz|ounces|ounce|inches|inch` +
			`|grams|gram|pcs|pieces|piece|each|cup` +
			`|bowl|scoops|scoop|pot|liters|liter` +
			`|or less|off)\s*((of)*)\.*\s+`)

	digitTokenPattern = regexp.MustCompile(`\s*\S*[0-9]\S*`)

	stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// RemoveBrackets strips bracketed sub-content from a label. Square and
// round brackets track separate depth counters so nested or interleaved
// brackets of either kind are fully removed without corrupting the
// surrounding text. Stray closing brackets pass through.
func RemoveBrackets(label string) string {
	var out strings.Builder
	squareDepth := 0
	roundDepth := 0

	for _, ch := range label {
		switch {
		case ch == '[':
			squareDepth++
		case ch == '(':
			roundDepth++
		case ch == ']' && squareDepth > 0:
			squareDepth--
		case ch == ')' && roundDepth > 0:
			roundDepth--
		case squareDepth == 0 && roundDepth == 0:
			out.WriteRune(ch)
		}
	}
	return out.String()
}

// Normalize runs the full canonicalization pipeline:
//
//  1. strip bracketed content
//  2. reject labels shorter than 3 or longer than 70 characters
//  3. transliterate to plain ASCII lowercase, expand "&", "-", " w/",
//     and drop * " $ #
//  4. strip quantity-plus-unit tokens
//  5. strip any remaining token containing a digit
//  6. collapse whitespace and remove residual periods
//  7. reject results shorter than 3 characters or on the noise list
func Normalize(label string) string {
	label = strings.TrimSpace(RemoveBrackets(label))
	if len(label) < minLabelLen || len(label) > maxLabelLen {
		return ""
	}

	label = toASCII(label + " ")
	label = strings.ToLower(label)
	label = strings.ReplaceAll(label, ".", ". ")
	label = strings.ReplaceAll(label, "&", "and")
	label = strings.ReplaceAll(label, "-", " ")
	label = strings.ReplaceAll(label, " w/", " with ")

	label = punctPattern.ReplaceAllString(label, " ")
	label = unitPattern.ReplaceAllString(label, " ")
	label = digitTokenPattern.ReplaceAllString(label, " ")

	label = strings.Join(strings.Fields(strings.ReplaceAll(label, ".", "")), " ")

	if len(label) < minLabelLen || noiseLabels[label] {
		return ""
	}
	return label
}

// toASCII decomposes accented characters, drops the combining marks and
// then any rune still outside ASCII.
func toASCII(s string) string {
	stripped, _, err := transform.String(stripMarks, s)
	if err != nil {
		stripped = s
	}

	var out strings.Builder
	out.Grow(len(stripped))
	for _, r := range stripped {
		if r < 128 {
			out.WriteRune(r)
		}
	}
	return out.String()
}
