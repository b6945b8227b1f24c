package family

import (
	"sort"
	"unicode/utf8"

	"github.com/agenthands/kwmerge/internal/core/model"
)

// Detector groups merge suggestions into families: keywords connected through
// parent/child pairs, such as "ทุนเรียนดี", "เรียนดี" and "ทุนเรียนดีเด่น".
type Detector struct{}

func NewDetector() *Detector {
	return &Detector{}
}

// Detect returns the connected components of the suggestion graph with more
// than one member. Families with the most shared answers come first.
func (d *Detector) Detect(suggestions []model.MergeSuggestion) []model.Family {
	keywords := make(map[string]model.Keyword)
	adj := make(map[string][]string)
	isChild := make(map[string]bool)
	var order []string

	add := func(id, text string) {
		if _, ok := keywords[id]; ok {
			return
		}
		keywords[id] = model.Keyword{ID: id, Text: text}
		order = append(order, id)
	}

	for _, s := range suggestions {
		if s.ParentID == "" || s.ChildID == "" || s.ParentID == s.ChildID {
			continue
		}
		add(s.ParentID, s.ParentText)
		add(s.ChildID, s.ChildText)
		adj[s.ParentID] = append(adj[s.ParentID], s.ChildID)
		adj[s.ChildID] = append(adj[s.ChildID], s.ParentID)
		isChild[s.ChildID] = true
	}

	visited := make(map[string]bool)
	component := make(map[string]int)
	var groups [][]string
	for _, id := range order {
		if visited[id] {
			continue
		}
		var members []string
		d.dfs(id, adj, visited, &members)
		for _, m := range members {
			component[m] = len(groups)
		}
		groups = append(groups, members)
	}

	families := make([]model.Family, len(groups))
	shared := make([]int, len(groups))
	for i, ids := range groups {
		members := make([]model.Keyword, len(ids))
		for j, id := range ids {
			members[j] = keywords[id]
		}
		sortMembers(members)
		families[i] = model.Family{
			Root:        pickRoot(members, isChild),
			Members:     members,
			Suggestions: []model.MergeSuggestion{},
		}
	}
	for _, s := range suggestions {
		i, ok := component[s.ParentID]
		if !ok || s.ParentID == s.ChildID {
			continue
		}
		families[i].Suggestions = append(families[i].Suggestions, s)
		shared[i] += s.SharedAnswerCount
	}

	out := make([]model.Family, 0, len(families))
	outShared := make([]int, 0, len(families))
	for i, f := range families {
		if len(f.Members) < 2 {
			continue
		}
		out = append(out, f)
		outShared = append(outShared, shared[i])
	}

	idx := make([]int, len(out))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		if outShared[idx[a]] != outShared[idx[b]] {
			return outShared[idx[a]] > outShared[idx[b]]
		}
		return out[idx[a]].Root.Text < out[idx[b]].Root.Text
	})

	sorted := make([]model.Family, len(out))
	for i, j := range idx {
		sorted[i] = out[j]
	}
	return sorted
}

func (d *Detector) dfs(u string, adj map[string][]string, visited map[string]bool, component *[]string) {
	visited[u] = true
	*component = append(*component, u)
	for _, v := range adj[u] {
		if !visited[v] {
			d.dfs(v, adj, visited, component)
		}
	}
}

// sortMembers orders keywords longest first, then by text and id.
func sortMembers(members []model.Keyword) {
	sort.SliceStable(members, func(i, j int) bool {
		li, lj := utf8.RuneCountInString(members[i].Text), utf8.RuneCountInString(members[j].Text)
		if li != lj {
			return li > lj
		}
		if members[i].Text != members[j].Text {
			return members[i].Text < members[j].Text
		}
		return members[i].ID < members[j].ID
	})
}

// pickRoot expects members already sorted by sortMembers.
func pickRoot(members []model.Keyword, isChild map[string]bool) model.Keyword {
	for _, m := range members {
		if !isChild[m.ID] {
			return m
		}
	}
	return members[0]
}
