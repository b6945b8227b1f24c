//go:build integration

package integration

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/kwmerge/internal/config"
	"github.com/agenthands/kwmerge/internal/core"
	"github.com/agenthands/kwmerge/internal/core/model"
	"github.com/agenthands/kwmerge/internal/driver"
)

func openStore(t *testing.T, cfg config.StoreConfig) driver.KeywordStore {
	t.Helper()
	store, err := driver.Open(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close(context.Background()) })
	return store
}

func containsSuggestion(suggestions []model.MergeSuggestion, parentID, childID string) bool {
	for _, s := range suggestions {
		if s.ParentID == parentID && s.ChildID == childID {
			return true
		}
	}
	return false
}

// runKeywordFlow drives attach, dedupe, suggestions, merge and cleanup against
// a live store. Texts and answer ids carry a random suffix so runs against a
// shared database do not collide.
func runKeywordFlow(t *testing.T, store driver.KeywordStore) {
	ctx := context.Background()
	engine := core.NewEngine(store, config.MatchingConfig{Threshold: 0.75, MaxResults: 10}, zerolog.Nop())

	suffix := uuid.NewString()[:8]
	answerA := "qa-a-" + suffix
	answerB := "qa-b-" + suffix
	parentText := "ทุนเรียนดี-" + suffix
	childText := "เรียนดี-" + suffix

	// attaching a contained variant to the same answer removes it again
	parent, _, err := engine.AttachKeyword(ctx, answerA, parentText)
	require.NoError(t, err)
	child, removals, err := engine.AttachKeyword(ctx, answerA, childText)
	require.NoError(t, err)
	require.Len(t, removals, 1)
	assert.Equal(t, child.ID, removals[0].Child.ID)

	kws, err := store.KeywordsForAnswer(ctx, answerA)
	require.NoError(t, err)
	require.Len(t, kws, 1)
	assert.Equal(t, parent.ID, kws[0].ID)

	// re-link the child directly so the pair shows up as a suggestion
	for _, a := range []string{answerA, answerB} {
		_, err := store.LinkKeyword(ctx, child.ID, a)
		require.NoError(t, err)
	}

	suggestions, err := engine.SuggestMerges(ctx)
	require.NoError(t, err)
	assert.True(t, containsSuggestion(suggestions, parent.ID, child.ID))

	matches, _, err := engine.MatchVocabulary(ctx, parentText, 0.95)
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, parentText, matches[0].Text)

	result, err := engine.MergeKeywords(ctx, parent.ID, child.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Repointed)
	assert.Equal(t, int64(1), result.Dropped)
	assert.True(t, result.ChildDeleted)

	again, err := engine.MergeKeywords(ctx, parent.ID, child.ID)
	require.NoError(t, err)
	assert.True(t, again.AlreadyMerged)

	n, err := store.CountLinks(ctx, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// an orphan is removed by cleanup
	orphan, err := store.CreateKeyword(ctx, "orphan-"+suffix, "orphan-"+suffix)
	require.NoError(t, err)
	cleaned, err := engine.CleanupOrphans(ctx)
	require.NoError(t, err)
	var found bool
	for _, kw := range cleaned.Deleted {
		found = found || kw.ID == orphan.ID
	}
	assert.True(t, found)

	// leave nothing behind
	for _, a := range []string{answerA, answerB} {
		require.NoError(t, store.UnlinkKeyword(ctx, parent.ID, a))
	}
	require.NoError(t, store.DeleteKeyword(ctx, parent.ID))
}
