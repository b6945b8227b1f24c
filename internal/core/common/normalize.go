package common

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	MinKeywordLength = 2
	MaxKeywordLength = 120
)

var ErrInvalidKeyword = errors.New("invalid keyword")

var whitespaceRe = regexp.MustCompile(`\s+`)

// NormalizeKeyword lowercases raw, collapses whitespace and strips Latin
// combining accents. Thai vowel and tone marks are combining marks too, but
// they carry meaning and are kept.
func NormalizeKeyword(raw string) string {
	s := stripAccents(raw)
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidateKeyword checks a normalized keyword before it is stored.
func ValidateKeyword(normalized string) error {
	n := utf8.RuneCountInString(normalized)
	if n < MinKeywordLength || n > MaxKeywordLength {
		return fmt.Errorf("%w: length %d outside %d..%d", ErrInvalidKeyword, n, MinKeywordLength, MaxKeywordLength)
	}
	for _, r := range normalized {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return nil
		}
	}
	return fmt.Errorf("%w: %q has no letters or digits", ErrInvalidKeyword, normalized)
}

func stripAccents(s string) string {
	decomposed := norm.NFD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		// U+0300..U+036F: Combining Diacritical Marks
		if r >= 0x0300 && r <= 0x036F {
			continue
		}
		b.WriteRune(r)
	}
	return norm.NFC.String(b.String())
}
