package sanitizer

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Unicode ranges that are rejected outright. Combining diacritical marks
// survive NFKC, and mathematical alphanumeric symbols fold into plain ASCII
// under NFKC, so a naive post-normalization filter never sees either; both
// are meaningless in a structural keyword and only ever appear in
// obfuscation attempts.
const (
	combiningMarksLo = 0x0300
	combiningMarksHi = 0x036F

	mathAlphanumericLo = 0x1D400
	mathAlphanumericHi = 0x1D7FF
)

// Normalize applies the canonical Unicode normalization used by the
// sanitizer: NFKC with format characters (zero-width, BOM, directional
// overrides) removed. The result is idempotent.
func Normalize(query string) string {
	folded := norm.NFKC.String(query)
	out := make([]rune, 0, len(folded))
	for _, r := range folded {
		if unicode.Is(unicode.Cf, r) {
			continue
		}
		out = append(out, r)
	}
	return string(out)
}

// checkUnicode runs the normalization stage of the pipeline. It returns a
// rejecting verdict, or nil if the stage passed. On success the normalized
// query is written to *normalized.
func checkUnicode(query string, policy *Policy, normalized *string) *Verdict {
	if !utf8.ValidString(query) {
		v := reject(ReasonInvisibleCharacter, "query contains invalid UTF-8")
		return &v
	}

	for _, r := range query {
		if unicode.Is(unicode.Cf, r) {
			v := reject(ReasonInvisibleCharacter,
				fmt.Sprintf("query contains invisible character U+%04X", r))
			return &v
		}
		if r < 0x20 && r != '\t' && r != '\n' && r != '\r' {
			v := reject(ReasonInvisibleCharacter,
				fmt.Sprintf("query contains control character U+%04X", r))
			return &v
		}
		if r >= combiningMarksLo && r <= combiningMarksHi {
			v := reject(ReasonForbiddenRange,
				fmt.Sprintf("query contains combining mark U+%04X", r))
			return &v
		}
		if r >= mathAlphanumericLo && r <= mathAlphanumericHi {
			v := reject(ReasonForbiddenRange,
				fmt.Sprintf("query contains mathematical alphanumeric symbol U+%04X", r))
			return &v
		}
		if policy.BlockNonASCII && r > 0x7F {
			v := reject(ReasonNonASCII, "query contains non-ASCII characters and the policy requires ASCII")
			return &v
		}
	}

	n := Normalize(query)

	// A query that shrinks substantially under normalization was carrying
	// characters that vanish while leaving the visible text apparently
	// unchanged.
	origLen := utf8.RuneCountInString(query)
	normLen := utf8.RuneCountInString(n)
	if origLen > 0 {
		shrinkage := float64(origLen-normLen) / float64(origLen)
		if shrinkage > policy.NormalizationShrinkage {
			v := reject(ReasonNormalizationShrinkage,
				fmt.Sprintf("query shrank %.0f%% under normalization", shrinkage*100))
			return &v
		}
	}

	*normalized = n
	return nil
}
