package dedupe

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/kwmerge/internal/core/model"
	"github.com/agenthands/kwmerge/internal/driver"
)

func seed(t *testing.T, s driver.KeywordStore, text string, answers ...string) model.Keyword {
	t.Helper()
	ctx := context.Background()
	kw, err := s.CreateKeyword(ctx, text, normalize(text))
	require.NoError(t, err)
	for _, a := range answers {
		_, err := s.LinkKeyword(ctx, kw.ID, a)
		require.NoError(t, err)
	}
	return kw
}

func keywordTexts(t *testing.T, s driver.KeywordStore, answerID string) []string {
	t.Helper()
	kws, err := s.KeywordsForAnswer(context.Background(), answerID)
	require.NoError(t, err)
	out := make([]string, len(kws))
	for i, kw := range kws {
		out[i] = kw.Text
	}
	return out
}

func TestDeduplicateAnswer(t *testing.T) {
	store := driver.NewMemoryStore()
	d := NewDeduplicator(store, zerolog.Nop())
	ctx := context.Background()

	seed(t, store, "ทุน", "qa-1")
	parent := seed(t, store, "ทุนเรียนดี", "qa-1")
	child := seed(t, store, "เรียนดี", "qa-1", "qa-2")
	seed(t, store, "ขอทุน", "qa-1")

	removals, err := d.DeduplicateAnswer(ctx, "qa-1")
	require.NoError(t, err)
	require.Len(t, removals, 1)
	assert.Equal(t, model.Removal{AnswerID: "qa-1", Parent: parent, Child: child}, removals[0])

	assert.ElementsMatch(t, []string{"ทุนเรียนดี", "ทุน", "ขอทุน"}, keywordTexts(t, store, "qa-1"))

	// the child keyword survives and keeps its other answer
	_, err = store.GetKeyword(ctx, child.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"เรียนดี"}, keywordTexts(t, store, "qa-2"))
}

func TestDeduplicateAnswer_Chain(t *testing.T) {
	store := driver.NewMemoryStore()
	d := NewDeduplicator(store, zerolog.Nop())

	seed(t, store, "scholarship", "qa-1")
	seed(t, store, "merit scholarship", "qa-1")
	seed(t, store, "merit scholarship application", "qa-1")
	seed(t, store, "dorm", "qa-1")

	removals, err := d.DeduplicateAnswer(context.Background(), "qa-1")
	require.NoError(t, err)
	require.Len(t, removals, 2)

	// the longest keyword claims both shorter variants
	for _, r := range removals {
		assert.Equal(t, "merit scholarship application", r.Parent.Text)
	}
	assert.Equal(t, []string{"merit scholarship application", "dorm"}, keywordTexts(t, store, "qa-1"))
}

func TestDeduplicateAnswer_LeavesNoRelatedPairs(t *testing.T) {
	store := driver.NewMemoryStore()
	d := NewDeduplicator(store, zerolog.Nop())

	for _, text := range []string{
		"ทุน", "ทุนเรียนดี", "เรียนดี", "ขอทุนเรียนดี", "ทุนการศึกษา", "การศึกษา",
		"ปฏิทินการศึกษา", "หอพัก", "หอพักนักศึกษา", "นักศึกษา",
	} {
		seed(t, store, text, "qa-1")
	}

	_, err := d.DeduplicateAnswer(context.Background(), "qa-1")
	require.NoError(t, err)

	left := keywordTexts(t, store, "qa-1")
	for i := range left {
		for j := range left {
			if i == j {
				continue
			}
			_, related := FindRelationship(left[i], left[j])
			assert.False(t, related, "%q and %q still related", left[i], left[j])
		}
	}
	assert.Contains(t, left, "ทุน")
}

func TestDeduplicateAnswer_NothingToDo(t *testing.T) {
	store := driver.NewMemoryStore()
	d := NewDeduplicator(store, zerolog.Nop())
	ctx := context.Background()

	removals, err := d.DeduplicateAnswer(ctx, "qa-empty")
	require.NoError(t, err)
	assert.Empty(t, removals)

	seed(t, store, "ทุนเรียนดี", "qa-1")
	removals, err = d.DeduplicateAnswer(ctx, "qa-1")
	require.NoError(t, err)
	assert.Empty(t, removals)

	_, err = d.DeduplicateAnswer(ctx, " ")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestFindDuplicates_DoesNotMutate(t *testing.T) {
	store := driver.NewMemoryStore()
	d := NewDeduplicator(store, zerolog.Nop())

	seed(t, store, "ทุนเรียนดี", "qa-1")
	seed(t, store, "เรียนดี", "qa-1")

	keywords, removals, err := d.FindDuplicates(context.Background(), "qa-1")
	require.NoError(t, err)
	assert.Len(t, keywords, 2)
	require.Len(t, removals, 1)
	assert.Equal(t, "เรียนดี", removals[0].Child.Text)
	assert.Len(t, keywordTexts(t, store, "qa-1"), 2)
}

func TestSuggestMerges(t *testing.T) {
	store := driver.NewMemoryStore()
	d := NewDeduplicator(store, zerolog.Nop())

	p1 := seed(t, store, "ทุนเรียนดี", "qa-1", "qa-2", "qa-3")
	c1 := seed(t, store, "เรียนดี", "qa-1", "qa-2")
	seed(t, store, "ทุน", "qa-1", "qa-2", "qa-3") // protected
	p2 := seed(t, store, "หอพักนักศึกษา", "qa-4")
	c2 := seed(t, store, "นักศึกษา", "qa-4")
	seed(t, store, "หอพักนักศึกษาหญิง", "qa-9") // contains หอพักนักศึกษา but shares nothing

	suggestions, err := d.SuggestMerges(context.Background())
	require.NoError(t, err)
	require.Len(t, suggestions, 2)

	assert.Equal(t, model.MergeSuggestion{
		ParentText: p1.Text, ParentID: p1.ID,
		ChildText: c1.Text, ChildID: c1.ID,
		SharedAnswerCount: 2,
	}, suggestions[0])
	assert.Equal(t, model.MergeSuggestion{
		ParentText: p2.Text, ParentID: p2.ID,
		ChildText: c2.Text, ChildID: c2.ID,
		SharedAnswerCount: 1,
	}, suggestions[1])
}

func TestSuggestMerges_OrderingAndCounts(t *testing.T) {
	store := driver.NewMemoryStore()
	d := NewDeduplicator(store, zerolog.Nop())

	seed(t, store, "library", "qa-1")
	seed(t, store, "library hours", "qa-1")
	seed(t, store, "library opening hours", "qa-1")
	seed(t, store, "opening hours", "qa-1")

	suggestions, err := d.SuggestMerges(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, suggestions)

	for i, s := range suggestions {
		assert.GreaterOrEqual(t, s.SharedAnswerCount, 1)
		if i > 0 {
			prev := suggestions[i-1]
			assert.GreaterOrEqual(t, prev.SharedAnswerCount, s.SharedAnswerCount)
			if prev.SharedAnswerCount == s.SharedAnswerCount {
				assert.GreaterOrEqual(t, len([]rune(prev.ParentText)), len([]rune(s.ParentText)))
			}
		}
	}
	assert.Equal(t, "library opening hours", suggestions[0].ParentText)
}

func TestSuggestMerges_Empty(t *testing.T) {
	d := NewDeduplicator(driver.NewMemoryStore(), zerolog.Nop())
	suggestions, err := d.SuggestMerges(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, suggestions)
	assert.Empty(t, suggestions)
}

func TestMergeKeywords(t *testing.T) {
	store := driver.NewMemoryStore()
	d := NewDeduplicator(store, zerolog.Nop())
	ctx := context.Background()

	parent := seed(t, store, "ทุนเรียนดี", "qa-1", "qa-2")
	child := seed(t, store, "เรียนดี", "qa-2", "qa-3", "qa-4")

	result, err := d.MergeKeywords(ctx, parent.ID, child.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MergeResult{
		ParentID:     parent.ID,
		ChildID:      child.ID,
		Repointed:    2,
		Dropped:      1,
		ChildDeleted: true,
	}, result)

	for _, a := range []string{"qa-1", "qa-2", "qa-3", "qa-4"} {
		assert.Equal(t, []string{"ทุนเรียนดี"}, keywordTexts(t, store, a), a)
	}
	_, err = store.GetKeyword(ctx, child.ID)
	assert.ErrorIs(t, err, driver.ErrNotFound)
}

func TestMergeKeywords_Idempotent(t *testing.T) {
	store := driver.NewMemoryStore()
	d := NewDeduplicator(store, zerolog.Nop())
	ctx := context.Background()

	parent := seed(t, store, "ทุนเรียนดี", "qa-1")
	child := seed(t, store, "เรียนดี", "qa-1", "qa-2")

	_, err := d.MergeKeywords(ctx, parent.ID, child.ID)
	require.NoError(t, err)

	result, err := d.MergeKeywords(ctx, parent.ID, child.ID)
	require.NoError(t, err)
	assert.True(t, result.AlreadyMerged)
	assert.False(t, result.ChildDeleted)

	n, err := store.CountLinks(ctx, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestMergeKeywords_InvalidInput(t *testing.T) {
	store := driver.NewMemoryStore()
	d := NewDeduplicator(store, zerolog.Nop())
	ctx := context.Background()

	kw := seed(t, store, "ทุนเรียนดี", "qa-1")

	_, err := d.MergeKeywords(ctx, kw.ID, kw.ID)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = d.MergeKeywords(ctx, "", kw.ID)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = d.MergeKeywords(ctx, "missing", kw.ID)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.ErrorIs(t, err, ErrKeywordNotFound)

	_, err = d.MergeKeywords(ctx, uuid.NewString(), kw.ID)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.ErrorIs(t, err, ErrKeywordNotFound)

	// a child id that was never issued is rejected, not reported as merged
	result, err := d.MergeKeywords(ctx, kw.ID, "no-such-keyword")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.ErrorIs(t, err, ErrKeywordNotFound)
	assert.False(t, result.AlreadyMerged)

	// nothing moved
	n, err := store.CountLinks(ctx, kw.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

// failingStore fails DeleteLinks inside transactions.
type failingStore struct {
	*driver.MemoryStore
	err error
}

type failingQueries struct {
	driver.Queries
	err error
}

func (q failingQueries) DeleteLinks(ctx context.Context, keywordID string) (int64, error) {
	return 0, q.err
}

func (s *failingStore) WithTx(ctx context.Context, fn func(q driver.Queries) error) error {
	return s.MemoryStore.WithTx(ctx, func(q driver.Queries) error {
		return fn(failingQueries{Queries: q, err: s.err})
	})
}

func TestMergeKeywords_RollsBackOnStoreFailure(t *testing.T) {
	mem := driver.NewMemoryStore()
	store := &failingStore{MemoryStore: mem, err: errors.New("connection reset")}
	d := NewDeduplicator(store, zerolog.Nop())
	ctx := context.Background()

	parent := seed(t, store, "ทุนเรียนดี", "qa-1")
	child := seed(t, store, "เรียนดี", "qa-2")

	_, err := d.MergeKeywords(ctx, parent.ID, child.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.err)

	// the repoint that ran before the failure was rolled back
	assert.Equal(t, []string{"เรียนดี"}, keywordTexts(t, store, "qa-2"))
	n, err := store.CountLinks(ctx, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
