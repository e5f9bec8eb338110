package textnorm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// ==========================
// Bracket Removal
// ==========================

func TestRemoveBrackets(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"no brackets", "chicken tikka", "chicken tikka"},
		{"round brackets", "wings (6 pcs)", "wings "},
		{"square brackets", "combo [weekday only]", "combo "},
		{"nested same kind", "a (b (c) d) e", "a  e"},
		{"interleaved kinds", "a [b (c] d) e", "a  e"},
		{"unclosed bracket eats the rest", "soup (of the day", "soup "},
		{"stray closer passes through", "soup ) of the day", "soup ) of the day"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, RemoveBrackets(tt.input))
		})
	}
}

// ==========================
// Normalization Pipeline
// ==========================

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain label passes through lowered", "Chicken Tikka", "chicken tikka"},
		{"ampersand expands", "Fish & Chips", "fish and chips"},
		{"hyphen becomes space", "stir-fried rice", "stir fried rice"},
		{"w slash expands", "burger w/ fries", "burger with fries"},
		{"punctuation set stripped", `"House" Special* $`, "house special"},
		{"unit and quantity stripped", "16 oz of ribeye steak", "ribeye steak"},
		{"pieces unit stripped", "6 pieces dumplings", "dumplings"},
		{"digit tokens stripped", "pad thai no2 lunch99", "pad thai"},
		{"accents transliterated", "Crème Brûlée", "creme brulee"},
		{"bracketed quantity dropped", "wings (6 pcs)", "wings"},
		{"whitespace collapsed", "  lamb    curry  ", "lamb curry"},
		{"periods removed", "b.l.t. sandwich deluxe", "b l t sandwich deluxe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestNormalize_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"too short", "ab"},
		{"too long", strings.Repeat("x", 71)},
		{"only brackets", "(everything bracketed)"},
		{"noise word coffee", "Coffee"},
		{"noise word coke", "coke"},
		{"noise phrase", "roll of garbage bags"},
		{"shrinks below minimum", "a1 b2"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, "", Normalize(tt.input))
		})
	}
}

// Normalizing an already-normalized non-empty label must be a no-op.
func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"Chicken Tikka Masala",
		"Fish & Chips (large)",
		"burger w/ fries",
		"16 oz ribeye steak",
		"Crème Brûlée",
		"B.L.T. Sandwich Deluxe",
		"stir-fried rice [spicy]",
	}

	for _, input := range inputs {
		once := Normalize(input)
		if once == "" {
			continue
		}
		assert.Equal(t, once, Normalize(once), "input %q", input)
	}
}

func TestNormalize_LengthBoundaries(t *testing.T) {
	// Exactly 3 characters survives, 2 does not.
	assert.Equal(t, "pie", Normalize("pie"))
	assert.Equal(t, "", Normalize("pi"))

	// Exactly 70 characters is still accepted.
	label := strings.Repeat("ab ", 23) + "c" // 70 chars
	assert.Equal(t, 70, len(label))
	assert.NotEqual(t, "", Normalize(label))
}
