package fuzzy

import (
	"testing"

	"github.com/agnivade/levenshtein"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
		{"หอพก", "หอพัก", 1},
		{"หอพัก", "ห้องพัก", 2},
		{"ทุน", "ทุนเรียนดี", 7},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, Distance(tt.a, tt.b))
		})
	}
}

func TestDistance_AgreesWithReference(t *testing.T) {
	words := []string{
		"", "a", "ab", "scholarship", "schoolarship", "หอพัก", "หอพก", "ห้องพัก",
		"ทุนเรียนดี", "เรียนดี", "ขอทุน", "ทุน", "dormitory", "dorm",
	}
	for _, a := range words {
		for _, b := range words {
			assert.Equal(t, levenshtein.ComputeDistance(a, b), Distance(a, b), "%q vs %q", a, b)
		}
	}
}

func TestSimilarity_Properties(t *testing.T) {
	words := []string{"a", "ab", "หอพัก", "หอพก", "ห้องพัก", "registration", "ทุนเรียนดี"}

	for _, x := range words {
		assert.Equal(t, 1.0, Similarity(x, x), "identity for %q", x)
		assert.Equal(t, 0.0, Similarity("", x))
		assert.Equal(t, 0.0, Similarity(x, ""))

		for _, y := range words {
			s := Similarity(x, y)
			assert.Equal(t, s, Similarity(y, x), "symmetry for %q/%q", x, y)
			assert.GreaterOrEqual(t, s, 0.0)
			assert.LessOrEqual(t, s, 1.0)
		}
	}

	assert.Equal(t, 0.0, Similarity("", ""))
}

func TestSimilarity_Values(t *testing.T) {
	assert.InDelta(t, 0.8, Similarity("หอพก", "หอพัก"), 1e-9)
	assert.InDelta(t, 1-3.0/7.0, Similarity("kitten", "sitting"), 1e-9)
	assert.Equal(t, 0.0, Similarity("abc", "xyz"))
	// case is not folded
	assert.Less(t, Similarity("ABC", "abc"), 1.0)
}

func TestClosestMatch(t *testing.T) {
	m, ok := ClosestMatch("หอพก", []string{"หอพัก", "ห้องพัก"}, 0.6)
	require.True(t, ok)
	assert.Equal(t, "หอพัก", m.Text)
	assert.GreaterOrEqual(t, m.Score, 0.6)

	_, ok = ClosestMatch("หอพก", []string{"ห้องสมุด"}, DefaultThreshold)
	assert.False(t, ok)
}

func TestClosestMatch_TiesGoToFirstSeen(t *testing.T) {
	m, ok := ClosestMatch("abcd", []string{"abcx", "abxd", "abcd"}, 0.5)
	require.True(t, ok)
	assert.Equal(t, "abcd", m.Text)

	m, ok = ClosestMatch("abcd", []string{"abcx", "abxd"}, 0.5)
	require.True(t, ok)
	assert.Equal(t, "abcx", m.Text)
	assert.Equal(t, 0.75, m.Score)
}

func TestClosestMatch_ThresholdIsInclusive(t *testing.T) {
	m, ok := ClosestMatch("abcd", []string{"abcx"}, 0.75)
	require.True(t, ok)
	assert.Equal(t, 0.75, m.Score)

	_, ok = ClosestMatch("abcd", []string{"abcx"}, 0.7500001)
	assert.False(t, ok)
}

func TestClosestMatch_ZeroThresholdAcceptsZeroScore(t *testing.T) {
	m, ok := ClosestMatch("abc", []string{"xyz"}, 0)
	require.True(t, ok)
	assert.Equal(t, "xyz", m.Text)
	assert.Equal(t, 0.0, m.Score)
}

func TestClosestMatch_EmptyInputs(t *testing.T) {
	_, ok := ClosestMatch("", []string{"a"}, 0)
	assert.False(t, ok)

	_, ok = ClosestMatch("a", nil, 0)
	assert.False(t, ok)
}

func TestAllMatches(t *testing.T) {
	candidates := []string{"abxd", "zzzz", "abcd", "abcx", "abyy"}

	matches := AllMatches("abcd", candidates, 0.5)
	require.Len(t, matches, 4)

	assert.Equal(t, "abcd", matches[0].Text)
	assert.Equal(t, 1.0, matches[0].Score)
	// equal scores keep input order
	assert.Equal(t, "abxd", matches[1].Text)
	assert.Equal(t, "abcx", matches[2].Text)
	assert.Equal(t, "abyy", matches[3].Text)

	for i := 1; i < len(matches); i++ {
		assert.GreaterOrEqual(t, matches[i-1].Score, matches[i].Score)
	}
}

func TestAllMatches_Empty(t *testing.T) {
	assert.Empty(t, AllMatches("", []string{"a"}, 0))
	assert.Empty(t, AllMatches("a", nil, 0))
	assert.NotNil(t, AllMatches("a", nil, 0))
	assert.Empty(t, AllMatches("abc", []string{"xyz"}, DefaultThreshold))
}
