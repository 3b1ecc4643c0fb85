package sanitizer

import (
	"fmt"
	"unicode"
)

// DetectorMode identifies which confusable table a detector carries.
type DetectorMode string

const (
	// ModeFull is the complete confusable table plus mixed-script token
	// analysis.
	ModeFull DetectorMode = "full"

	// ModeDegraded is the reduced Cyrillic/Greek lookalike table used when
	// the full table is unavailable. Coverage is narrower but the contract
	// is identical.
	ModeDegraded DetectorMode = "degraded"
)

// HomoglyphFinding describes one confusable or mixed-script hit.
type HomoglyphFinding struct {
	Code     ReasonCode
	Position int // rune offset in the query
	Message  string
}

// HomoglyphDetector inspects a query for characters confusable with ASCII
// keyword characters. Implementations are pure and safe for concurrent use.
type HomoglyphDetector interface {
	Scan(query string) []HomoglyphFinding
	Mode() DetectorMode
}

// NewHomoglyphDetector returns the full-table detector.
func NewHomoglyphDetector() HomoglyphDetector {
	return &fullDetector{}
}

// NewDegradedHomoglyphDetector returns the reduced-table fallback detector.
func NewDegradedHomoglyphDetector() HomoglyphDetector {
	return &degradedDetector{}
}

// fullDetector checks the complete confusable table and additionally flags
// tokens that mix scripts, which catches keywords spelled with one Cyrillic
// and several Latin letters.
type fullDetector struct{}

func (d *fullDetector) Mode() DetectorMode { return ModeFull }

func (d *fullDetector) Scan(query string) []HomoglyphFinding {
	findings := scanConfusables(query, confusableTable)
	findings = append(findings, scanMixedScriptTokens(query)...)
	return findings
}

// degradedDetector covers the Cyrillic and Greek lookalike subsets only.
// Mixed-script analysis is skipped; single-script spoofing of a whole
// keyword is still caught by the table.
type degradedDetector struct{}

func (d *degradedDetector) Mode() DetectorMode { return ModeDegraded }

func (d *degradedDetector) Scan(query string) []HomoglyphFinding {
	return scanConfusables(query, degradedTable)
}

func scanConfusables(query string, table map[rune]rune) []HomoglyphFinding {
	var findings []HomoglyphFinding
	pos := 0
	for _, r := range query {
		if latin, ok := table[r]; ok {
			findings = append(findings, HomoglyphFinding{
				Code:     ReasonHomoglyph,
				Position: pos,
				Message: fmt.Sprintf("character U+%04X is confusable with ASCII '%c'",
					r, latin),
			})
		}
		pos++
	}
	return findings
}

// scanMixedScriptTokens flags tokens composed from more than one script.
// Tokens are maximal runs of letters; digits and punctuation split them.
func scanMixedScriptTokens(query string) []HomoglyphFinding {
	var findings []HomoglyphFinding

	tokenStart := -1
	var seen map[string]bool
	pos := 0
	flush := func() {
		if tokenStart >= 0 && len(seen) > 1 {
			findings = append(findings, HomoglyphFinding{
				Code:     ReasonMixedScript,
				Position: tokenStart,
				Message:  fmt.Sprintf("token mixes %d scripts", len(seen)),
			})
		}
		tokenStart = -1
		seen = nil
	}

	for _, r := range query {
		if unicode.IsLetter(r) {
			if tokenStart < 0 {
				tokenStart = pos
				seen = make(map[string]bool, 2)
			}
			seen[scriptOf(r)] = true
		} else {
			flush()
		}
		pos++
	}
	flush()

	return findings
}

// scriptOf buckets a letter into a script name. Only the scripts that occur
// in confusable attacks against ASCII keywords are distinguished; everything
// else shares one bucket so legitimately multilingual string content does
// not explode into findings.
func scriptOf(r rune) string {
	switch {
	case r <= 0x7F:
		return "latin"
	case unicode.Is(unicode.Latin, r):
		return "latin"
	case unicode.Is(unicode.Cyrillic, r):
		return "cyrillic"
	case unicode.Is(unicode.Greek, r):
		return "greek"
	case unicode.Is(unicode.Armenian, r):
		return "armenian"
	case unicode.Is(unicode.Cherokee, r):
		return "cherokee"
	default:
		return "other"
	}
}

// confusableTable maps non-Latin characters to the ASCII letter they are
// visually confusable with. The rows cover the scripts observed in keyword
// spoofing: Cyrillic, Greek, Armenian, Cherokee, and fullwidth forms are
// folded by NFKC before this table is consulted.
var confusableTable = func() map[rune]rune {
	t := make(map[rune]rune, len(cyrillicConfusables)+len(greekConfusables)+len(extraConfusables))
	for r, l := range cyrillicConfusables {
		t[r] = l
	}
	for r, l := range greekConfusables {
		t[r] = l
	}
	for r, l := range extraConfusables {
		t[r] = l
	}
	return t
}()

// degradedTable is the reduced fallback: Cyrillic and Greek only.
var degradedTable = func() map[rune]rune {
	t := make(map[rune]rune, len(cyrillicConfusables)+len(greekConfusables))
	for r, l := range cyrillicConfusables {
		t[r] = l
	}
	for r, l := range greekConfusables {
		t[r] = l
	}
	return t
}()

var cyrillicConfusables = map[rune]rune{
	'а': 'a', 'А': 'A',
	'В': 'B',
	'с': 'c', 'С': 'C',
	'е': 'e', 'Е': 'E',
	'Н': 'H',
	'і': 'i', 'І': 'I',
	'ј': 'j', 'Ј': 'J',
	'К': 'K',
	'М': 'M',
	'о': 'o', 'О': 'O',
	'р': 'p', 'Р': 'P',
	'ѕ': 's', 'Ѕ': 'S',
	'Т': 'T',
	'х': 'x', 'Х': 'X',
	'у': 'y', 'У': 'Y',
}

var greekConfusables = map[rune]rune{
	'Α': 'A', 'Β': 'B', 'Ε': 'E', 'Ζ': 'Z', 'Η': 'H',
	'Ι': 'I', 'Κ': 'K', 'Μ': 'M', 'Ν': 'N', 'Ο': 'O',
	'Ρ': 'P', 'Τ': 'T', 'Υ': 'Y', 'Χ': 'X',
	'ο': 'o', 'ν': 'v',
}

var extraConfusables = map[rune]rune{
	// Armenian
	'ո': 'n', 'ս': 'u', 'օ': 'o', 'Տ': 'S',
	// Cherokee
	'Ꭺ': 'A', 'Ᏼ': 'B', 'Ꮯ': 'C', 'Ꭰ': 'D', 'Ꭼ': 'E',
	'Ꮐ': 'G', 'Ꮋ': 'H', 'Ꭻ': 'J', 'Ꮶ': 'K', 'Ꮮ': 'L',
	'Ꮇ': 'M', 'Ꮲ': 'P', 'Ꮢ': 'R', 'Ꮪ': 'S', 'Ꭲ': 'T',
	'Ꮩ': 'V', 'Ꮃ': 'W', 'Ꮓ': 'Z',
	// Lisu
	'ꓐ': 'B', 'ꓒ': 'P', 'ꓓ': 'D', 'ꓔ': 'T', 'ꓖ': 'G',
	'ꓗ': 'K', 'ꓙ': 'J', 'ꓚ': 'C', 'ꓛ': 'Q', 'ꓝ': 'F',
	'ꓞ': 'S', 'ꓟ': 'M', 'ꓠ': 'N', 'ꓡ': 'L', 'ꓢ': 'S',
	'ꓣ': 'R', 'ꓦ': 'V', 'ꓧ': 'H', 'ꓪ': 'W', 'ꓫ': 'X',
	'ꓬ': 'Y', 'ꓮ': 'A', 'ꓰ': 'E', 'ꓲ': 'I', 'ꓳ': 'O',
	'ꓴ': 'U', 'ꓸ': '.',
}
