package driver

import (
	"context"
	"sort"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/agenthands/kwmerge/internal/core/model"
)

// MemoryStore keeps keywords in process memory. Transactions are serialized
// and commit by swapping in the state the transaction worked on.
type MemoryStore struct {
	mu    sync.Mutex
	state *memState
}

type memKeyword struct {
	model.Keyword
	normalized string
	seq        int
}

type memState struct {
	keywords map[string]memKeyword
	links    map[string]map[string]struct{} // keyword id -> answer ids
	nextSeq  int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemState()}
}

func newMemState() *memState {
	return &memState{
		keywords: make(map[string]memKeyword),
		links:    make(map[string]map[string]struct{}),
	}
}

func (s *memState) clone() *memState {
	c := &memState{
		keywords: make(map[string]memKeyword, len(s.keywords)),
		links:    make(map[string]map[string]struct{}, len(s.links)),
		nextSeq:  s.nextSeq,
	}
	for id, kw := range s.keywords {
		c.keywords[id] = kw
	}
	for id, answers := range s.links {
		set := make(map[string]struct{}, len(answers))
		for a := range answers {
			set[a] = struct{}{}
		}
		c.links[id] = set
	}
	return c
}

func (s *MemoryStore) WithTx(ctx context.Context, fn func(q Queries) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.state.clone()
	if err := fn(&memTx{state: work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = work
	return nil
}

func (s *MemoryStore) BuildIndices(ctx context.Context) error { return nil }

func (s *MemoryStore) Close(ctx context.Context) error { return nil }

// view runs fn against the live state under the store lock.
func (s *MemoryStore) view(fn func(tx *memTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&memTx{state: s.state})
}

func (s *MemoryStore) KeywordsForAnswer(ctx context.Context, answerID string) (out []model.Keyword, err error) {
	err = s.view(func(tx *memTx) error {
		out, err = tx.KeywordsForAnswer(ctx, answerID)
		return err
	})
	return out, err
}

func (s *MemoryStore) SharedKeywordPairs(ctx context.Context) (out []model.KeywordPair, err error) {
	err = s.view(func(tx *memTx) error {
		out, err = tx.SharedKeywordPairs(ctx)
		return err
	})
	return out, err
}

func (s *MemoryStore) KeywordTexts(ctx context.Context) (out []string, err error) {
	err = s.view(func(tx *memTx) error {
		out, err = tx.KeywordTexts(ctx)
		return err
	})
	return out, err
}

func (s *MemoryStore) GetKeyword(ctx context.Context, keywordID string) (out model.Keyword, err error) {
	err = s.view(func(tx *memTx) error {
		out, err = tx.GetKeyword(ctx, keywordID)
		return err
	})
	return out, err
}

func (s *MemoryStore) FindKeywordByNormalized(ctx context.Context, normalized string) (out model.Keyword, err error) {
	err = s.view(func(tx *memTx) error {
		out, err = tx.FindKeywordByNormalized(ctx, normalized)
		return err
	})
	return out, err
}

func (s *MemoryStore) CreateKeyword(ctx context.Context, text, normalized string) (out model.Keyword, err error) {
	err = s.view(func(tx *memTx) error {
		out, err = tx.CreateKeyword(ctx, text, normalized)
		return err
	})
	return out, err
}

func (s *MemoryStore) DeleteKeyword(ctx context.Context, keywordID string) error {
	return s.view(func(tx *memTx) error {
		return tx.DeleteKeyword(ctx, keywordID)
	})
}

func (s *MemoryStore) LinkKeyword(ctx context.Context, keywordID, answerID string) (created bool, err error) {
	err = s.view(func(tx *memTx) error {
		created, err = tx.LinkKeyword(ctx, keywordID, answerID)
		return err
	})
	return created, err
}

func (s *MemoryStore) UnlinkKeyword(ctx context.Context, keywordID, answerID string) error {
	return s.view(func(tx *memTx) error {
		return tx.UnlinkKeyword(ctx, keywordID, answerID)
	})
}

func (s *MemoryStore) RepointLinks(ctx context.Context, fromID, toID string) (n int64, err error) {
	err = s.view(func(tx *memTx) error {
		n, err = tx.RepointLinks(ctx, fromID, toID)
		return err
	})
	return n, err
}

func (s *MemoryStore) DeleteLinks(ctx context.Context, keywordID string) (n int64, err error) {
	err = s.view(func(tx *memTx) error {
		n, err = tx.DeleteLinks(ctx, keywordID)
		return err
	})
	return n, err
}

func (s *MemoryStore) CountLinks(ctx context.Context, keywordID string) (n int, err error) {
	err = s.view(func(tx *memTx) error {
		n, err = tx.CountLinks(ctx, keywordID)
		return err
	})
	return n, err
}

func (s *MemoryStore) DeleteOrphans(ctx context.Context) (out []model.Keyword, err error) {
	err = s.view(func(tx *memTx) error {
		out, err = tx.DeleteOrphans(ctx)
		return err
	})
	return out, err
}

func (s *MemoryStore) Stats(ctx context.Context) (out model.Stats, err error) {
	err = s.view(func(tx *memTx) error {
		out, err = tx.Stats(ctx)
		return err
	})
	return out, err
}

// memTx implements Queries on a state owned by the caller.
type memTx struct {
	state *memState
}

func (tx *memTx) sorted() []memKeyword {
	all := make([]memKeyword, 0, len(tx.state.keywords))
	for _, kw := range tx.state.keywords {
		all = append(all, kw)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].seq < all[j].seq })
	return all
}

func (tx *memTx) KeywordsForAnswer(ctx context.Context, answerID string) ([]model.Keyword, error) {
	var linked []memKeyword
	for _, kw := range tx.sorted() {
		if _, ok := tx.state.links[kw.ID][answerID]; ok {
			linked = append(linked, kw)
		}
	}
	sort.SliceStable(linked, func(i, j int) bool {
		return utf8.RuneCountInString(linked[i].Text) > utf8.RuneCountInString(linked[j].Text)
	})

	out := make([]model.Keyword, len(linked))
	for i, kw := range linked {
		out[i] = kw.Keyword
	}
	return out, nil
}

func (tx *memTx) SharedKeywordPairs(ctx context.Context) ([]model.KeywordPair, error) {
	all := tx.sorted()
	var pairs []model.KeywordPair
	for i := 0; i < len(all); i++ {
		for j := i + 1; j < len(all); j++ {
			if !nested(all[i].Text, all[j].Text) {
				continue
			}
			shared := 0
			for answerID := range tx.state.links[all[i].ID] {
				if _, ok := tx.state.links[all[j].ID][answerID]; ok {
					shared++
				}
			}
			if shared == 0 {
				continue
			}
			pairs = append(pairs, model.KeywordPair{
				First:         all[i].Keyword,
				Second:        all[j].Keyword,
				SharedAnswers: shared,
			})
		}
	}
	return pairs, nil
}

func (tx *memTx) KeywordTexts(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	var texts []string
	for _, kw := range tx.sorted() {
		if kw.Text == "" {
			continue
		}
		if _, ok := seen[kw.Text]; ok {
			continue
		}
		seen[kw.Text] = struct{}{}
		texts = append(texts, kw.Text)
	}
	return texts, nil
}

func (tx *memTx) GetKeyword(ctx context.Context, keywordID string) (model.Keyword, error) {
	kw, ok := tx.state.keywords[keywordID]
	if !ok {
		return model.Keyword{}, ErrNotFound
	}
	return kw.Keyword, nil
}

func (tx *memTx) FindKeywordByNormalized(ctx context.Context, normalized string) (model.Keyword, error) {
	for _, kw := range tx.sorted() {
		if kw.normalized == normalized {
			return kw.Keyword, nil
		}
	}
	return model.Keyword{}, ErrNotFound
}

func (tx *memTx) CreateKeyword(ctx context.Context, text, normalized string) (model.Keyword, error) {
	tx.state.nextSeq++
	kw := memKeyword{
		Keyword:    model.Keyword{ID: uuid.NewString(), Text: text},
		normalized: normalized,
		seq:        tx.state.nextSeq,
	}
	tx.state.keywords[kw.ID] = kw
	return kw.Keyword, nil
}

func (tx *memTx) DeleteKeyword(ctx context.Context, keywordID string) error {
	delete(tx.state.keywords, keywordID)
	delete(tx.state.links, keywordID)
	return nil
}

func (tx *memTx) LinkKeyword(ctx context.Context, keywordID, answerID string) (bool, error) {
	if _, ok := tx.state.keywords[keywordID]; !ok {
		return false, ErrNotFound
	}
	answers, ok := tx.state.links[keywordID]
	if !ok {
		answers = make(map[string]struct{})
		tx.state.links[keywordID] = answers
	}
	if _, ok := answers[answerID]; ok {
		return false, nil
	}
	answers[answerID] = struct{}{}
	return true, nil
}

func (tx *memTx) UnlinkKeyword(ctx context.Context, keywordID, answerID string) error {
	delete(tx.state.links[keywordID], answerID)
	return nil
}

func (tx *memTx) RepointLinks(ctx context.Context, fromID, toID string) (int64, error) {
	if _, ok := tx.state.keywords[toID]; !ok {
		return 0, nil
	}
	target, ok := tx.state.links[toID]
	if !ok {
		target = make(map[string]struct{})
		tx.state.links[toID] = target
	}

	var moved int64
	for answerID := range tx.state.links[fromID] {
		if _, exists := target[answerID]; exists {
			continue
		}
		target[answerID] = struct{}{}
		delete(tx.state.links[fromID], answerID)
		moved++
	}
	return moved, nil
}

func (tx *memTx) DeleteLinks(ctx context.Context, keywordID string) (int64, error) {
	n := int64(len(tx.state.links[keywordID]))
	delete(tx.state.links, keywordID)
	return n, nil
}

func (tx *memTx) CountLinks(ctx context.Context, keywordID string) (int, error) {
	return len(tx.state.links[keywordID]), nil
}

func (tx *memTx) DeleteOrphans(ctx context.Context) ([]model.Keyword, error) {
	var deleted []model.Keyword
	for _, kw := range tx.sorted() {
		if len(tx.state.links[kw.ID]) > 0 {
			continue
		}
		deleted = append(deleted, kw.Keyword)
		delete(tx.state.keywords, kw.ID)
		delete(tx.state.links, kw.ID)
	}
	return deleted, nil
}

func (tx *memTx) Stats(ctx context.Context) (model.Stats, error) {
	stats := model.Stats{TotalKeywords: len(tx.state.keywords)}
	answers := make(map[string]struct{})
	linkedKeywords, totalLinks := 0, 0
	for id := range tx.state.keywords {
		n := len(tx.state.links[id])
		if n == 0 {
			stats.OrphanedKeywords++
			continue
		}
		linkedKeywords++
		totalLinks += n
		for a := range tx.state.links[id] {
			answers[a] = struct{}{}
		}
	}
	stats.LinkedAnswers = len(answers)
	if linkedKeywords > 0 {
		stats.AvgAnswersPerKeyword = float64(totalLinks) / float64(linkedKeywords)
	}
	return stats, nil
}
