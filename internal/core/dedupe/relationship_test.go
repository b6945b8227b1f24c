package dedupe

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agenthands/kwmerge/internal/core/model"
)

func TestFindRelationship(t *testing.T) {
	tests := []struct {
		name   string
		k1, k2 string
		want   model.Relationship
		found  bool
	}{
		{"child contained in parent", "เรียนดี", "ทุนเรียนดี", model.Relationship{Parent: "ทุนเรียนดี", Child: "เรียนดี"}, true},
		{"argument order does not matter", "ทุนเรียนดี", "เรียนดี", model.Relationship{Parent: "ทุนเรียนดี", Child: "เรียนดี"}, true},
		{"short child is protected", "ทุน", "ทุนเรียนดี", model.Relationship{}, false},
		{"short child protected either order", "ขอทุนเรียนดี", "ทุน", model.Relationship{}, false},
		{"four letters still protected", "dorm", "dormitory", model.Relationship{}, false},
		{"five letters removable", "dormitory fees", "dormi", model.Relationship{Parent: "dormitory fees", Child: "dormi"}, true},
		{"case and whitespace folded", "  Library  ", "LIBRARY hours", model.Relationship{Parent: "library hours", Child: "library"}, true},
		{"identical after folding", "Library", " library ", model.Relationship{}, false},
		{"too short to compare", "a", "abcdef", model.Relationship{}, false},
		{"unrelated", "หอพัก", "ทุนเรียนดี", model.Relationship{}, false},
		{"overlap is not containment", "registration", "station fees", model.Relationship{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := FindRelationship(tt.k1, tt.k2)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFindRelationship_IdenticalNeverRelated(t *testing.T) {
	for _, k := range []string{"ทุน", "ทุนเรียนดี", "scholarship", "", "x"} {
		_, found := FindRelationship(k, k)
		assert.False(t, found, k)
	}
}
