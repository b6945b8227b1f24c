package driver

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog"

	"github.com/agenthands/kwmerge/internal/core/model"
)

// MemgraphStore keeps keywords as a graph: (:Keyword)-[:TAGS]->(:Answer).
type MemgraphStore struct {
	*memgraphQueries
	Driver neo4j.DriverWithContext
	log    zerolog.Logger
}

func NewMemgraphStore(ctx context.Context, uri, username, password string, log zerolog.Logger) (*MemgraphStore, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, err
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, err
	}

	log.Info().Str("uri", uri).Msg("connected to Memgraph")
	s := &MemgraphStore{Driver: driver, log: log}
	s.memgraphQueries = &memgraphQueries{runner: s}
	return s, nil
}

func (s *MemgraphStore) Close(ctx context.Context) error {
	return s.Driver.Close(ctx)
}

func (s *MemgraphStore) ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	result, err := neo4j.ExecuteQuery(ctx, s.Driver, query, params, neo4j.EagerResultTransformer)
	if err != nil {
		return neo4j.EagerResult{}, fmt.Errorf("failed to execute query: %w", err)
	}
	return *result, nil
}

func (s *MemgraphStore) run(ctx context.Context, query string, params map[string]interface{}) ([]*neo4j.Record, error) {
	result, err := s.ExecuteQuery(ctx, query, params)
	if err != nil {
		return nil, err
	}
	return result.Records, nil
}

func (s *MemgraphStore) BuildIndices(ctx context.Context) error {
	queries := []string{
		"CREATE INDEX ON :Keyword(id);",
		"CREATE INDEX ON :Keyword(normalized);",
		"CREATE INDEX ON :Answer(id);",
	}

	for _, q := range queries {
		if _, err := s.ExecuteQuery(ctx, q, nil); err != nil {
			// index may already exist
			s.log.Warn().Err(err).Str("query", q).Msg("failed to create index")
		}
	}

	return nil
}

// WithTx runs fn in an explicit transaction. Managed transactions would retry
// fn on transient errors, which callers do not expect.
func (s *MemgraphStore) WithTx(ctx context.Context, fn func(q Queries) error) error {
	session := s.Driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	tx, err := session.BeginTransaction(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(&memgraphQueries{runner: txRunner{tx: tx}}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			s.log.Error().Err(rbErr).Msg("rollback failed")
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type cypherRunner interface {
	run(ctx context.Context, query string, params map[string]interface{}) ([]*neo4j.Record, error)
}

type txRunner struct {
	tx neo4j.ExplicitTransaction
}

func (r txRunner) run(ctx context.Context, query string, params map[string]interface{}) ([]*neo4j.Record, error) {
	result, err := r.tx.Run(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	return result.Collect(ctx)
}

type memgraphQueries struct {
	runner cypherRunner
}

func recordString(rec *neo4j.Record, key string) (string, error) {
	v, _, err := neo4j.GetRecordValue[string](rec, key)
	return v, err
}

func recordInt(rec *neo4j.Record, key string) (int64, error) {
	v, _, err := neo4j.GetRecordValue[int64](rec, key)
	return v, err
}

func (q *memgraphQueries) keywords(ctx context.Context, query string, params map[string]interface{}) ([]model.Keyword, error) {
	records, err := q.runner.run(ctx, query, params)
	if err != nil {
		return nil, err
	}

	out := make([]model.Keyword, 0, len(records))
	for _, rec := range records {
		id, err := recordString(rec, "id")
		if err != nil {
			return nil, err
		}
		text, err := recordString(rec, "text")
		if err != nil {
			return nil, err
		}
		out = append(out, model.Keyword{ID: id, Text: text})
	}
	return out, nil
}

func (q *memgraphQueries) keyword(ctx context.Context, query string, params map[string]interface{}) (model.Keyword, error) {
	kws, err := q.keywords(ctx, query, params)
	if err != nil {
		return model.Keyword{}, err
	}
	if len(kws) == 0 {
		return model.Keyword{}, ErrNotFound
	}
	return kws[0], nil
}

func (q *memgraphQueries) count(ctx context.Context, query string, params map[string]interface{}, key string) (int64, error) {
	records, err := q.runner.run(ctx, query, params)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}
	return recordInt(records[0], key)
}

func (q *memgraphQueries) KeywordsForAnswer(ctx context.Context, answerID string) ([]model.Keyword, error) {
	kws, err := q.keywords(ctx, KeywordsForAnswerQuery, map[string]interface{}{"answer_id": answerID})
	if err != nil {
		return nil, fmt.Errorf("failed to load keywords for answer %s: %w", answerID, err)
	}
	return kws, nil
}

func (q *memgraphQueries) SharedKeywordPairs(ctx context.Context) ([]model.KeywordPair, error) {
	records, err := q.runner.run(ctx, SharedKeywordPairsQuery, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load keyword pairs: %w", err)
	}

	pairs := make([]model.KeywordPair, 0, len(records))
	for _, rec := range records {
		var p model.KeywordPair
		var shared int64
		if p.First.ID, err = recordString(rec, "first_id"); err != nil {
			return nil, err
		}
		if p.First.Text, err = recordString(rec, "first_text"); err != nil {
			return nil, err
		}
		if p.Second.ID, err = recordString(rec, "second_id"); err != nil {
			return nil, err
		}
		if p.Second.Text, err = recordString(rec, "second_text"); err != nil {
			return nil, err
		}
		if shared, err = recordInt(rec, "shared"); err != nil {
			return nil, err
		}
		p.SharedAnswers = int(shared)
		if nested(p.First.Text, p.Second.Text) {
			pairs = append(pairs, p)
		}
	}
	return pairs, nil
}

func (q *memgraphQueries) KeywordTexts(ctx context.Context) ([]string, error) {
	records, err := q.runner.run(ctx, KeywordTextsQuery, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load keyword texts: %w", err)
	}
	texts := make([]string, 0, len(records))
	for _, rec := range records {
		text, err := recordString(rec, "text")
		if err != nil {
			return nil, err
		}
		texts = append(texts, text)
	}
	return texts, nil
}

func (q *memgraphQueries) GetKeyword(ctx context.Context, keywordID string) (model.Keyword, error) {
	return q.keyword(ctx, GetKeywordQuery, map[string]interface{}{"id": keywordID})
}

func (q *memgraphQueries) FindKeywordByNormalized(ctx context.Context, normalized string) (model.Keyword, error) {
	return q.keyword(ctx, FindKeywordByNormalizedQuery, map[string]interface{}{"normalized": normalized})
}

func (q *memgraphQueries) CreateKeyword(ctx context.Context, text, normalized string) (model.Keyword, error) {
	kw := model.Keyword{ID: uuid.NewString(), Text: text}
	params := map[string]interface{}{
		"id":         kw.ID,
		"text":       kw.Text,
		"normalized": normalized,
		"created_at": time.Now().UTC().UnixNano(),
	}
	if _, err := q.runner.run(ctx, CreateKeywordQuery, params); err != nil {
		return model.Keyword{}, fmt.Errorf("failed to create keyword %q: %w", text, err)
	}
	return kw, nil
}

func (q *memgraphQueries) DeleteKeyword(ctx context.Context, keywordID string) error {
	if _, err := q.runner.run(ctx, DeleteKeywordQuery, map[string]interface{}{"id": keywordID}); err != nil {
		return fmt.Errorf("failed to delete keyword %s: %w", keywordID, err)
	}
	return nil
}

func (q *memgraphQueries) LinkKeyword(ctx context.Context, keywordID, answerID string) (bool, error) {
	records, err := q.runner.run(ctx, LinkKeywordQuery, map[string]interface{}{
		"keyword_id": keywordID,
		"answer_id":  answerID,
	})
	if err != nil {
		return false, fmt.Errorf("failed to link keyword %s to answer %s: %w", keywordID, answerID, err)
	}
	if len(records) == 0 {
		return false, ErrNotFound
	}
	existed, _, err := neo4j.GetRecordValue[bool](records[0], "existed")
	if err != nil {
		return false, err
	}
	return !existed, nil
}

func (q *memgraphQueries) UnlinkKeyword(ctx context.Context, keywordID, answerID string) error {
	_, err := q.runner.run(ctx, UnlinkKeywordQuery, map[string]interface{}{
		"keyword_id": keywordID,
		"answer_id":  answerID,
	})
	if err != nil {
		return fmt.Errorf("failed to unlink keyword %s from answer %s: %w", keywordID, answerID, err)
	}
	return nil
}

func (q *memgraphQueries) RepointLinks(ctx context.Context, fromID, toID string) (int64, error) {
	n, err := q.count(ctx, RepointLinksQuery, map[string]interface{}{"from_id": fromID, "to_id": toID}, "moved")
	if err != nil {
		return 0, fmt.Errorf("failed to repoint links from %s to %s: %w", fromID, toID, err)
	}
	return n, nil
}

func (q *memgraphQueries) DeleteLinks(ctx context.Context, keywordID string) (int64, error) {
	n, err := q.count(ctx, DeleteLinksQuery, map[string]interface{}{"keyword_id": keywordID}, "deleted")
	if err != nil {
		return 0, fmt.Errorf("failed to delete links of keyword %s: %w", keywordID, err)
	}
	return n, nil
}

func (q *memgraphQueries) CountLinks(ctx context.Context, keywordID string) (int, error) {
	n, err := q.count(ctx, CountLinksQuery, map[string]interface{}{"keyword_id": keywordID}, "links")
	if err != nil {
		return 0, fmt.Errorf("failed to count links of keyword %s: %w", keywordID, err)
	}
	return int(n), nil
}

func (q *memgraphQueries) DeleteOrphans(ctx context.Context) ([]model.Keyword, error) {
	kws, err := q.keywords(ctx, DeleteOrphansQuery, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to delete orphaned keywords: %w", err)
	}
	return kws, nil
}

func (q *memgraphQueries) Stats(ctx context.Context) (model.Stats, error) {
	records, err := q.runner.run(ctx, KeywordStatsQuery, nil)
	if err != nil {
		return model.Stats{}, fmt.Errorf("failed to compute keyword stats: %w", err)
	}

	var stats model.Stats
	if len(records) > 0 {
		rec := records[0]
		total, err := recordInt(rec, "total")
		if err != nil {
			return model.Stats{}, err
		}
		orphaned, err := recordInt(rec, "orphaned")
		if err != nil {
			return model.Stats{}, err
		}
		linked, err := recordInt(rec, "linked")
		if err != nil {
			return model.Stats{}, err
		}
		links, err := recordInt(rec, "links")
		if err != nil {
			return model.Stats{}, err
		}
		stats.TotalKeywords = int(total)
		stats.OrphanedKeywords = int(orphaned)
		if linked > 0 {
			stats.AvgAnswersPerKeyword = float64(links) / float64(linked)
		}
	}

	answers, err := q.count(ctx, LinkedAnswersQuery, nil, "answers")
	if err != nil {
		return model.Stats{}, fmt.Errorf("failed to count linked answers: %w", err)
	}
	stats.LinkedAnswers = int(answers)
	return stats, nil
}
