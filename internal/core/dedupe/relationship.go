package dedupe

import (
	"strings"
	"unicode/utf8"

	"github.com/agenthands/kwmerge/internal/core/model"
)

// MinRemovableLength is the shortest keyword (in characters) that may be
// treated as a redundant child. Shorter terms such as "ทุน" or "หอ" are common
// standalone searches and are never removed.
const MinRemovableLength = 5

const minComparableLength = 2

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// FindRelationship reports whether one keyword contains the other. The
// contained keyword is the child and must be at least MinRemovableLength long.
func FindRelationship(keyword1, keyword2 string) (model.Relationship, bool) {
	k1, k2 := normalize(keyword1), normalize(keyword2)
	if k1 == k2 {
		return model.Relationship{}, false
	}

	len1, len2 := utf8.RuneCountInString(k1), utf8.RuneCountInString(k2)
	if len1 < minComparableLength || len2 < minComparableLength {
		return model.Relationship{}, false
	}

	switch {
	case strings.Contains(k1, k2):
		if len2 < MinRemovableLength {
			return model.Relationship{}, false
		}
		return model.Relationship{Parent: k1, Child: k2}, true
	case strings.Contains(k2, k1):
		if len1 < MinRemovableLength {
			return model.Relationship{}, false
		}
		return model.Relationship{Parent: k2, Child: k1}, true
	}

	return model.Relationship{}, false
}
