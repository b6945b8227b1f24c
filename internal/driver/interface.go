package driver

import (
	"context"
	"errors"
	"strings"

	"github.com/agenthands/kwmerge/internal/core/model"
)

var ErrNotFound = errors.New("record not found")

// nested reports whether one text contains the other, ignoring case across
// all of Unicode.
func nested(a, b string) bool {
	a, b = strings.ToLower(a), strings.ToLower(b)
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// Queries is the read/write surface over keywords and their answer links.
// Every backend implements it both directly and inside WithTx.
type Queries interface {
	// KeywordsForAnswer returns the keywords linked to answerID, longest text first.
	KeywordsForAnswer(ctx context.Context, answerID string) ([]model.Keyword, error)
	// SharedKeywordPairs returns keyword pairs where one text contains the other
	// (case-insensitively) and both tag at least one common answer.
	SharedKeywordPairs(ctx context.Context) ([]model.KeywordPair, error)
	KeywordTexts(ctx context.Context) ([]string, error)

	GetKeyword(ctx context.Context, keywordID string) (model.Keyword, error)
	FindKeywordByNormalized(ctx context.Context, normalized string) (model.Keyword, error)
	CreateKeyword(ctx context.Context, text, normalized string) (model.Keyword, error)
	DeleteKeyword(ctx context.Context, keywordID string) error

	// LinkKeyword reports false when the link already existed.
	LinkKeyword(ctx context.Context, keywordID, answerID string) (bool, error)
	UnlinkKeyword(ctx context.Context, keywordID, answerID string) error
	// RepointLinks moves links from one keyword to another, skipping answers
	// the target keyword already tags. It returns the number of moved links.
	RepointLinks(ctx context.Context, fromID, toID string) (int64, error)
	DeleteLinks(ctx context.Context, keywordID string) (int64, error)
	CountLinks(ctx context.Context, keywordID string) (int, error)

	DeleteOrphans(ctx context.Context) ([]model.Keyword, error)
	Stats(ctx context.Context) (model.Stats, error)
}

type KeywordStore interface {
	Queries
	// WithTx runs fn in a single transaction, committing only if fn returns nil.
	WithTx(ctx context.Context, fn func(q Queries) error) error
	BuildIndices(ctx context.Context) error
	Close(ctx context.Context) error
}
