// internal/mana/land.go
package mana

import (
	"regexp"
	"strings"
)

var basicLandTypes = []struct {
	word  string
	color Color
}{
	{"plains", White},
	{"island", Blue},
	{"swamp", Black},
	{"mountain", Red},
	{"forest", Green},
}

var anyColorPhrases = []string{
	"add one mana of any color",
	"adds one mana of any color",
	"add mana of any color",
	"any one color",
	"mana of any type",
}

var (
	addRunPattern     = regexp.MustCompile(`(?i)add\s+(?:\{[wubrgc]\}(?:\s*(?:,|or)\s*)?)+`)
	landSymbolPattern = regexp.MustCompile(`(?i)\{([wubrgc])\}`)
)

// lookback is how far before a symbol we look for "add" or "produce".
const lookback = 20

// DetectLandMana guesses which colors a permanent can tap for.
//
// This is a text heuristic, not a rules parser. Basic land types on the type
// line win outright. Otherwise the oracle text is scanned for "any color"
// phrasing and for mana symbols near "add"/"produce". Anything unmatched is
// treated as colorless. Lands with conditional or unusual mana abilities can
// come back wrong; clients can always name a color explicitly.
func DetectLandMana(typeLine, oracleText string) []Color {
	tl := strings.ToLower(typeLine)
	var colors []Color
	for _, b := range basicLandTypes {
		if strings.Contains(tl, b.word) {
			colors = append(colors, b.color)
		}
	}
	if len(colors) > 0 {
		return colors
	}

	if parsed := manaFromText(oracleText); len(parsed) > 0 {
		return parsed
	}
	return []Color{Colorless}
}

func manaFromText(oracleText string) []Color {
	text := strings.ToLower(oracleText)
	for _, phrase := range anyColorPhrases {
		if strings.Contains(text, phrase) {
			return append([]Color(nil), FiveColors...)
		}
	}

	var seen [numColors]bool
	var colors []Color
	push := func(c Color) {
		if !seen[c] {
			seen[c] = true
			colors = append(colors, c)
		}
	}

	for _, run := range addRunPattern.FindAllString(text, -1) {
		for _, col := range AllColors {
			if strings.Contains(run, "{"+strings.ToLower(col.String())+"}") {
				push(col)
			}
		}
	}

	for _, loc := range landSymbolPattern.FindAllStringSubmatchIndex(text, -1) {
		start := max(0, loc[0]-lookback)
		context := text[start:loc[0]]
		if !strings.Contains(context, "add") && !strings.Contains(context, "produce") {
			continue
		}
		if c, ok := ParseColor(text[loc[2]:loc[3]]); ok {
			push(c)
		}
	}
	return colors
}
