package dedupe

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agenthands/kwmerge/internal/core/model"
	"github.com/agenthands/kwmerge/internal/driver"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrKeywordNotFound = errors.New("keyword not found")
)

// Deduplicator collapses keyword variants that are substrings of one another.
// It keeps no state between calls; every call reads the store afresh.
type Deduplicator struct {
	Store driver.KeywordStore
	Log   zerolog.Logger
}

func NewDeduplicator(store driver.KeywordStore, log zerolog.Logger) *Deduplicator {
	return &Deduplicator{
		Store: store,
		Log:   log.With().Str("component", "dedupe").Logger(),
	}
}

// DeduplicateAnswer unlinks every keyword on answerID that a longer keyword on
// the same answer already contains. Keyword records are left alone since they
// may tag other answers.
func (d *Deduplicator) DeduplicateAnswer(ctx context.Context, answerID string) ([]model.Removal, error) {
	answerID = strings.TrimSpace(answerID)
	if answerID == "" {
		return nil, fmt.Errorf("%w: answer id is required", ErrInvalidInput)
	}

	var removals []model.Removal
	err := d.Store.WithTx(ctx, func(q driver.Queries) error {
		var err error
		removals, err = d.DedupeIn(ctx, q, answerID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to deduplicate answer %s: %w", answerID, err)
	}

	d.LogRemovals(removals)
	return removals, nil
}

// DedupeIn unlinks the nested keywords of answerID through q, so callers can
// fold deduplication into a transaction they already hold.
func (d *Deduplicator) DedupeIn(ctx context.Context, q driver.Queries, answerID string) ([]model.Removal, error) {
	keywords, err := q.KeywordsForAnswer(ctx, answerID)
	if err != nil {
		return nil, err
	}
	if len(keywords) < 2 {
		d.Log.Debug().Str("answer_id", answerID).Int("keywords", len(keywords)).Msg("skip deduplication")
		return []model.Removal{}, nil
	}

	removals := findRemovals(answerID, keywords)
	for _, r := range removals {
		if err := q.UnlinkKeyword(ctx, r.Child.ID, answerID); err != nil {
			return nil, err
		}
	}
	return removals, nil
}

// LogRemovals records removals once their transaction has committed.
func (d *Deduplicator) LogRemovals(removals []model.Removal) {
	for _, r := range removals {
		d.Log.Info().
			Str("answer_id", r.AnswerID).
			Str("removed", r.Child.Text).
			Str("kept", r.Parent.Text).
			Msg("deduplicated keyword")
	}
}

// FindDuplicates lists the keywords of answerID and the removals
// DeduplicateAnswer would make, without changing anything.
func (d *Deduplicator) FindDuplicates(ctx context.Context, answerID string) ([]model.Keyword, []model.Removal, error) {
	answerID = strings.TrimSpace(answerID)
	if answerID == "" {
		return nil, nil, fmt.Errorf("%w: answer id is required", ErrInvalidInput)
	}

	keywords, err := d.Store.KeywordsForAnswer(ctx, answerID)
	if err != nil {
		return nil, nil, err
	}
	if keywords == nil {
		keywords = []model.Keyword{}
	}
	return keywords, findRemovals(answerID, keywords), nil
}

// findRemovals scans keywords longest first. A keyword picked as a child is
// not considered again, so each keyword is removed at most once.
func findRemovals(answerID string, keywords []model.Keyword) []model.Removal {
	sorted := make([]model.Keyword, len(keywords))
	copy(sorted, keywords)
	sort.SliceStable(sorted, func(i, j int) bool {
		return utf8.RuneCountInString(normalize(sorted[i].Text)) > utf8.RuneCountInString(normalize(sorted[j].Text))
	})

	removals := []model.Removal{}
	checked := make([]bool, len(sorted))
	for i := range sorted {
		if checked[i] {
			continue
		}
		for j := i + 1; j < len(sorted); j++ {
			if checked[j] {
				continue
			}
			rel, ok := FindRelationship(sorted[i].Text, sorted[j].Text)
			if !ok {
				continue
			}

			parent, child := i, j
			if rel.Child == normalize(sorted[i].Text) {
				parent, child = j, i
			}
			removals = append(removals, model.Removal{
				AnswerID: answerID,
				Parent:   sorted[parent],
				Child:    sorted[child],
			})
			checked[child] = true
			if child == i {
				break
			}
		}
	}
	return removals
}

// SuggestMerges lists parent/child keyword pairs across the whole vocabulary,
// most shared answers first, then the most specific parent.
func (d *Deduplicator) SuggestMerges(ctx context.Context) ([]model.MergeSuggestion, error) {
	pairs, err := d.Store.SharedKeywordPairs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to suggest merges: %w", err)
	}

	suggestions := []model.MergeSuggestion{}
	for _, p := range pairs {
		if p.SharedAnswers < 1 {
			continue
		}
		rel, ok := FindRelationship(p.First.Text, p.Second.Text)
		if !ok {
			continue
		}

		parent, child := p.First, p.Second
		if rel.Parent != normalize(p.First.Text) {
			parent, child = p.Second, p.First
		}
		suggestions = append(suggestions, model.MergeSuggestion{
			ParentText:        parent.Text,
			ParentID:          parent.ID,
			ChildText:         child.Text,
			ChildID:           child.ID,
			SharedAnswerCount: p.SharedAnswers,
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		a, b := suggestions[i], suggestions[j]
		if a.SharedAnswerCount != b.SharedAnswerCount {
			return a.SharedAnswerCount > b.SharedAnswerCount
		}
		la, lb := utf8.RuneCountInString(a.ParentText), utf8.RuneCountInString(b.ParentText)
		if la != lb {
			return la > lb
		}
		if a.ParentText != b.ParentText {
			return a.ParentText < b.ParentText
		}
		return a.ChildText < b.ChildText
	})

	d.Log.Debug().Int("suggestions", len(suggestions)).Msg("computed merge suggestions")
	return suggestions, nil
}

// MergeKeywords moves every answer link of childID onto parentID and deletes
// the child keyword once it has no links left. All of it happens in one
// transaction.
//
// Ids that are not keyword ids at all are rejected. A well-formed child id
// that no longer exists while the parent does is reported as AlreadyMerged
// rather than as an error, so repeating a merge or losing a race to a
// concurrent merge is harmless.
func (d *Deduplicator) MergeKeywords(ctx context.Context, parentID, childID string) (model.MergeResult, error) {
	parentID, childID = strings.TrimSpace(parentID), strings.TrimSpace(childID)
	if parentID == "" || childID == "" {
		return model.MergeResult{}, fmt.Errorf("%w: parent and child keyword ids are required", ErrInvalidInput)
	}
	if parentID == childID {
		return model.MergeResult{}, fmt.Errorf("%w: parent and child keywords must be different", ErrInvalidInput)
	}
	for _, id := range []string{parentID, childID} {
		if _, err := uuid.Parse(id); err != nil {
			return model.MergeResult{}, fmt.Errorf("%w: %w: malformed keyword id %q", ErrInvalidInput, ErrKeywordNotFound, id)
		}
	}

	result := model.MergeResult{ParentID: parentID, ChildID: childID}
	err := d.Store.WithTx(ctx, func(q driver.Queries) error {
		if _, err := q.GetKeyword(ctx, parentID); err != nil {
			if errors.Is(err, driver.ErrNotFound) {
				return fmt.Errorf("%w: %w: parent %s", ErrInvalidInput, ErrKeywordNotFound, parentID)
			}
			return err
		}
		if _, err := q.GetKeyword(ctx, childID); err != nil {
			if errors.Is(err, driver.ErrNotFound) {
				d.Log.Warn().Str("parent_id", parentID).Str("child_id", childID).Msg("child keyword is gone, nothing to merge")
				result.AlreadyMerged = true
				return nil
			}
			return err
		}

		moved, err := q.RepointLinks(ctx, childID, parentID)
		if err != nil {
			return err
		}
		// Whatever is left duplicates a link the parent already has.
		dropped, err := q.DeleteLinks(ctx, childID)
		if err != nil {
			return err
		}
		remaining, err := q.CountLinks(ctx, childID)
		if err != nil {
			return err
		}
		if remaining == 0 {
			if err := q.DeleteKeyword(ctx, childID); err != nil {
				return err
			}
			result.ChildDeleted = true
		}

		result.Repointed = moved
		result.Dropped = dropped
		return nil
	})
	if err != nil {
		return model.MergeResult{}, fmt.Errorf("failed to merge keyword %s into %s: %w", childID, parentID, err)
	}

	d.Log.Info().
		Str("parent_id", parentID).
		Str("child_id", childID).
		Int64("repointed", result.Repointed).
		Int64("dropped", result.Dropped).
		Bool("child_deleted", result.ChildDeleted).
		Bool("already_merged", result.AlreadyMerged).
		Msg("merged keyword")
	return result, nil
}
