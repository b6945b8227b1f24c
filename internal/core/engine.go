package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/agenthands/kwmerge/internal/config"
	"github.com/agenthands/kwmerge/internal/core/common"
	"github.com/agenthands/kwmerge/internal/core/dedupe"
	"github.com/agenthands/kwmerge/internal/core/family"
	"github.com/agenthands/kwmerge/internal/core/fuzzy"
	"github.com/agenthands/kwmerge/internal/core/model"
	"github.com/agenthands/kwmerge/internal/driver"
)

var (
	ErrInvalidInput    = dedupe.ErrInvalidInput
	ErrKeywordNotFound = dedupe.ErrKeywordNotFound
)

// Engine is the entry point the HTTP server and the CLI share.
type Engine struct {
	Store        driver.KeywordStore
	Deduplicator *dedupe.Deduplicator
	Detector     *family.Detector
	Matching     config.MatchingConfig
	Log          zerolog.Logger
}

func NewEngine(store driver.KeywordStore, matching config.MatchingConfig, log zerolog.Logger) *Engine {
	return &Engine{
		Store:        store,
		Deduplicator: dedupe.NewDeduplicator(store, log),
		Detector:     family.NewDetector(),
		Matching:     matching,
		Log:          log.With().Str("component", "engine").Logger(),
	}
}

func (e *Engine) Similarity(a, b string) float64 {
	return fuzzy.Similarity(a, b)
}

// DefaultThreshold is the configured threshold, for callers that were not
// given one.
func (e *Engine) DefaultThreshold() float64 {
	return e.Matching.Threshold
}

// ClosestMatch compares input against candidates ignoring case and returns the
// best candidate as it was given. The threshold is used as is, so 0 accepts
// every candidate.
func (e *Engine) ClosestMatch(input string, candidates []string, threshold float64) (model.Match, bool) {
	matches := e.score(input, candidates, threshold)
	if len(matches) == 0 {
		return model.Match{}, false
	}
	return matches[0], true
}

// AllMatches is ClosestMatch returning every qualifying candidate, best first.
func (e *Engine) AllMatches(input string, candidates []string, threshold float64) []model.Match {
	return e.score(input, candidates, threshold)
}

// MatchVocabulary scores input against every stored keyword text. It returns
// at most Matching.MaxResults matches and the number of texts compared.
func (e *Engine) MatchVocabulary(ctx context.Context, input string, threshold float64) ([]model.Match, int, error) {
	texts, err := e.Store.KeywordTexts(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load vocabulary: %w", err)
	}

	matches := e.score(input, texts, threshold)
	if limit := e.Matching.MaxResults; limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, len(texts), nil
}

func (e *Engine) score(input string, candidates []string, threshold float64) []model.Match {
	matches := []model.Match{}
	needle := strings.ToLower(input)
	if needle == "" {
		return matches
	}

	for _, c := range candidates {
		s := fuzzy.Similarity(needle, strings.ToLower(c))
		if s >= threshold {
			matches = append(matches, model.Match{Text: c, Score: s})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}

// AttachKeyword tags answerID with text, reusing an existing keyword with the
// same normalized form, and deduplicates the answer's keywords in the same
// transaction.
func (e *Engine) AttachKeyword(ctx context.Context, answerID, text string) (model.Keyword, []model.Removal, error) {
	answerID = strings.TrimSpace(answerID)
	if answerID == "" {
		return model.Keyword{}, nil, fmt.Errorf("%w: answer id is required", ErrInvalidInput)
	}
	normalized := common.NormalizeKeyword(text)
	if err := common.ValidateKeyword(normalized); err != nil {
		return model.Keyword{}, nil, err
	}

	var (
		kw       model.Keyword
		removals []model.Removal
	)
	err := e.Store.WithTx(ctx, func(q driver.Queries) error {
		var err error
		kw, err = q.FindKeywordByNormalized(ctx, normalized)
		if errors.Is(err, driver.ErrNotFound) {
			kw, err = q.CreateKeyword(ctx, strings.TrimSpace(text), normalized)
		}
		if err != nil {
			return err
		}
		if _, err = q.LinkKeyword(ctx, kw.ID, answerID); err != nil {
			return err
		}
		removals, err = e.Deduplicator.DedupeIn(ctx, q, answerID)
		return err
	})
	if err != nil {
		return model.Keyword{}, nil, fmt.Errorf("failed to attach keyword %q to answer %s: %w", normalized, answerID, err)
	}

	e.Log.Debug().Str("answer_id", answerID).Str("keyword_id", kw.ID).Msg("attached keyword")
	e.Deduplicator.LogRemovals(removals)
	return kw, removals, nil
}

func (e *Engine) DeduplicateAnswer(ctx context.Context, answerID string) ([]model.Removal, error) {
	return e.Deduplicator.DeduplicateAnswer(ctx, answerID)
}

// AnswerDuplicates previews DeduplicateAnswer.
func (e *Engine) AnswerDuplicates(ctx context.Context, answerID string) ([]model.Keyword, []model.Removal, error) {
	return e.Deduplicator.FindDuplicates(ctx, answerID)
}

func (e *Engine) SuggestMerges(ctx context.Context) ([]model.MergeSuggestion, error) {
	return e.Deduplicator.SuggestMerges(ctx)
}

func (e *Engine) MergeKeywords(ctx context.Context, parentID, childID string) (model.MergeResult, error) {
	return e.Deduplicator.MergeKeywords(ctx, parentID, childID)
}

func (e *Engine) Families(ctx context.Context) ([]model.Family, error) {
	suggestions, err := e.Deduplicator.SuggestMerges(ctx)
	if err != nil {
		return nil, err
	}
	return e.Detector.Detect(suggestions), nil
}

func (e *Engine) Stats(ctx context.Context) (model.Stats, error) {
	stats, err := e.Store.Stats(ctx)
	if err != nil {
		return model.Stats{}, fmt.Errorf("failed to load stats: %w", err)
	}
	return stats, nil
}

// CleanupOrphans deletes every keyword that tags no answer.
func (e *Engine) CleanupOrphans(ctx context.Context) (model.CleanupResult, error) {
	result := model.CleanupResult{Deleted: []model.Keyword{}}
	err := e.Store.WithTx(ctx, func(q driver.Queries) error {
		deleted, err := q.DeleteOrphans(ctx)
		if err != nil {
			return err
		}
		result.Deleted = append(result.Deleted, deleted...)
		return nil
	})
	if err != nil {
		return model.CleanupResult{}, fmt.Errorf("failed to clean up keywords: %w", err)
	}

	e.Log.Info().Int("deleted", len(result.Deleted)).Msg("cleaned up orphaned keywords")
	return result, nil
}
