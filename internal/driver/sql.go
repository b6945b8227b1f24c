package driver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/agenthands/kwmerge/internal/core/model"
)

const (
	DialectSQLite   = "sqlite3"
	DialectPostgres = "postgres"
)

// DB is satisfied by both *sql.DB and *sql.Tx.
type DB interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// SQLStore keeps keywords in a relational database (SQLite or Postgres).
type SQLStore struct {
	*sqlQueries
	db *sql.DB
}

func NewSQLStore(db *sql.DB, dialect string) *SQLStore {
	return &SQLStore{
		sqlQueries: &sqlQueries{conn: db, dialect: dialect},
		db:         db,
	}
}

// OpenSQLite opens a SQLite database at path. ":memory:" gives a private
// in-memory database, which only survives on a single connection.
func OpenSQLite(path string) (*SQLStore, error) {
	db, err := sql.Open(DialectSQLite, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database '%s': %w", path, err)
	}
	db.SetMaxOpenConns(1)
	return NewSQLStore(db, DialectSQLite), nil
}

func OpenPostgres(ctx context.Context, dsn string, maxOpenConns int) (*SQLStore, error) {
	db, err := sql.Open(DialectPostgres, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres database: %w", err)
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return NewSQLStore(db, DialectPostgres), nil
}

func (s *SQLStore) BuildIndices(ctx context.Context) error {
	stmts := []string{
		createKeywordsTableSQL,
		createAnswersKeywordsTableSQL,
		createKeywordsNormalizedIndexSQL,
		createAnswersKeywordsKeywordIndexSQL,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

func (s *SQLStore) WithTx(ctx context.Context, fn func(q Queries) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(&sqlQueries{conn: tx, dialect: s.dialect}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rollback failed: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *SQLStore) Close(ctx context.Context) error {
	return s.db.Close()
}

type sqlQueries struct {
	conn    DB
	dialect string
}

// rebind turns '?' placeholders into '$n' for postgres.
func (q *sqlQueries) rebind(query string) string {
	if q.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (q *sqlQueries) exec(ctx context.Context, query string, args ...interface{}) (int64, error) {
	res, err := q.conn.ExecContext(ctx, q.rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *sqlQueries) queryKeywords(ctx context.Context, query string, args ...interface{}) ([]model.Keyword, error) {
	rows, err := q.conn.QueryContext(ctx, q.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Keyword
	for rows.Next() {
		var kw model.Keyword
		if err := rows.Scan(&kw.ID, &kw.Text); err != nil {
			return nil, err
		}
		out = append(out, kw)
	}
	return out, rows.Err()
}

func (q *sqlQueries) queryKeyword(ctx context.Context, query string, args ...interface{}) (model.Keyword, error) {
	var kw model.Keyword
	err := q.conn.QueryRowContext(ctx, q.rebind(query), args...).Scan(&kw.ID, &kw.Text)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Keyword{}, ErrNotFound
	}
	return kw, err
}

func (q *sqlQueries) KeywordsForAnswer(ctx context.Context, answerID string) ([]model.Keyword, error) {
	kws, err := q.queryKeywords(ctx, keywordsForAnswerSQL, answerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load keywords for answer %s: %w", answerID, err)
	}
	return kws, nil
}

func (q *sqlQueries) SharedKeywordPairs(ctx context.Context) ([]model.KeywordPair, error) {
	rows, err := q.conn.QueryContext(ctx, q.rebind(sharedKeywordPairsSQL))
	if err != nil {
		return nil, fmt.Errorf("failed to load keyword pairs: %w", err)
	}
	defer rows.Close()

	var pairs []model.KeywordPair
	for rows.Next() {
		var p model.KeywordPair
		if err := rows.Scan(&p.First.ID, &p.First.Text, &p.Second.ID, &p.Second.Text, &p.SharedAnswers); err != nil {
			return nil, fmt.Errorf("failed to scan keyword pair: %w", err)
		}
		if nested(p.First.Text, p.Second.Text) {
			pairs = append(pairs, p)
		}
	}
	return pairs, rows.Err()
}

func (q *sqlQueries) KeywordTexts(ctx context.Context) ([]string, error) {
	rows, err := q.conn.QueryContext(ctx, q.rebind(keywordTextsSQL))
	if err != nil {
		return nil, fmt.Errorf("failed to load keyword texts: %w", err)
	}
	defer rows.Close()

	var texts []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, err
		}
		texts = append(texts, text)
	}
	return texts, rows.Err()
}

func (q *sqlQueries) GetKeyword(ctx context.Context, keywordID string) (model.Keyword, error) {
	return q.queryKeyword(ctx, getKeywordSQL, keywordID)
}

func (q *sqlQueries) FindKeywordByNormalized(ctx context.Context, normalized string) (model.Keyword, error) {
	return q.queryKeyword(ctx, findKeywordByNormalizedSQL, normalized)
}

func (q *sqlQueries) CreateKeyword(ctx context.Context, text, normalized string) (model.Keyword, error) {
	kw := model.Keyword{ID: uuid.NewString(), Text: text}
	if _, err := q.exec(ctx, insertKeywordSQL, kw.ID, kw.Text, normalized, time.Now().UTC()); err != nil {
		return model.Keyword{}, fmt.Errorf("failed to insert keyword %q: %w", text, err)
	}
	return kw, nil
}

func (q *sqlQueries) DeleteKeyword(ctx context.Context, keywordID string) error {
	if _, err := q.exec(ctx, deleteKeywordLinksSQL, keywordID); err != nil {
		return fmt.Errorf("failed to delete links of keyword %s: %w", keywordID, err)
	}
	if _, err := q.exec(ctx, deleteKeywordSQL, keywordID); err != nil {
		return fmt.Errorf("failed to delete keyword %s: %w", keywordID, err)
	}
	return nil
}

func (q *sqlQueries) LinkKeyword(ctx context.Context, keywordID, answerID string) (bool, error) {
	if _, err := q.GetKeyword(ctx, keywordID); err != nil {
		return false, err
	}
	n, err := q.exec(ctx, insertLinkSQL, answerID, keywordID)
	if err != nil {
		return false, fmt.Errorf("failed to link keyword %s to answer %s: %w", keywordID, answerID, err)
	}
	return n > 0, nil
}

func (q *sqlQueries) UnlinkKeyword(ctx context.Context, keywordID, answerID string) error {
	if _, err := q.exec(ctx, deleteLinkSQL, answerID, keywordID); err != nil {
		return fmt.Errorf("failed to unlink keyword %s from answer %s: %w", keywordID, answerID, err)
	}
	return nil
}

func (q *sqlQueries) RepointLinks(ctx context.Context, fromID, toID string) (int64, error) {
	n, err := q.exec(ctx, repointLinksSQL, toID, fromID, toID)
	if err != nil {
		return 0, fmt.Errorf("failed to repoint links from %s to %s: %w", fromID, toID, err)
	}
	return n, nil
}

func (q *sqlQueries) DeleteLinks(ctx context.Context, keywordID string) (int64, error) {
	n, err := q.exec(ctx, deleteKeywordLinksSQL, keywordID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete links of keyword %s: %w", keywordID, err)
	}
	return n, nil
}

func (q *sqlQueries) CountLinks(ctx context.Context, keywordID string) (int, error) {
	var n int
	if err := q.conn.QueryRowContext(ctx, q.rebind(countLinksSQL), keywordID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count links of keyword %s: %w", keywordID, err)
	}
	return n, nil
}

func (q *sqlQueries) DeleteOrphans(ctx context.Context) ([]model.Keyword, error) {
	orphans, err := q.queryKeywords(ctx, orphanedKeywordsSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to find orphaned keywords: %w", err)
	}
	for _, kw := range orphans {
		if _, err := q.exec(ctx, deleteKeywordSQL, kw.ID); err != nil {
			return nil, fmt.Errorf("failed to delete orphaned keyword %s: %w", kw.ID, err)
		}
	}
	return orphans, nil
}

func (q *sqlQueries) Stats(ctx context.Context) (model.Stats, error) {
	var stats model.Stats
	var totalLinks, linkedKeywords int
	err := q.conn.QueryRowContext(ctx, q.rebind(keywordStatsSQL)).Scan(
		&stats.TotalKeywords, &stats.LinkedAnswers, &stats.OrphanedKeywords,
		&totalLinks, &linkedKeywords,
	)
	if err != nil {
		return model.Stats{}, fmt.Errorf("failed to compute keyword stats: %w", err)
	}
	if linkedKeywords > 0 {
		stats.AvgAnswersPerKeyword = float64(totalLinks) / float64(linkedKeywords)
	}
	return stats, nil
}
