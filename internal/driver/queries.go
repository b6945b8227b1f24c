package driver

// SQL statements use '?' placeholders; the postgres dialect rebinds them.
const (
	createKeywordsTableSQL = `
		CREATE TABLE IF NOT EXISTS keywords (
			keyword_id      TEXT PRIMARY KEY,
			keyword_text    TEXT NOT NULL,
			normalized_text TEXT NOT NULL,
			created_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`

	createAnswersKeywordsTableSQL = `
		CREATE TABLE IF NOT EXISTS answers_keywords (
			answer_id  TEXT NOT NULL,
			keyword_id TEXT NOT NULL REFERENCES keywords (keyword_id),
			PRIMARY KEY (answer_id, keyword_id)
		)
	`

	createKeywordsNormalizedIndexSQL = `CREATE INDEX IF NOT EXISTS idx_keywords_normalized ON keywords (normalized_text)`

	createAnswersKeywordsKeywordIndexSQL = `CREATE INDEX IF NOT EXISTS idx_answers_keywords_keyword ON answers_keywords (keyword_id)`

	keywordsForAnswerSQL = `
		SELECT k.keyword_id, k.keyword_text
		FROM keywords k
		INNER JOIN answers_keywords ak ON k.keyword_id = ak.keyword_id
		WHERE ak.answer_id = ?
		ORDER BY LENGTH(k.keyword_text) DESC, k.created_at ASC, k.keyword_id ASC
	`

	// Containment is checked in Go: SQLite's LOWER and LIKE only fold ASCII.
	sharedKeywordPairsSQL = `
		SELECT k1.keyword_id, k1.keyword_text, k2.keyword_id, k2.keyword_text,
		       COUNT(DISTINCT ak1.answer_id) AS shared_count
		FROM keywords k1
		INNER JOIN keywords k2 ON k1.keyword_id < k2.keyword_id
		INNER JOIN answers_keywords ak1 ON k1.keyword_id = ak1.keyword_id
		INNER JOIN answers_keywords ak2 ON k2.keyword_id = ak2.keyword_id
			AND ak1.answer_id = ak2.answer_id
		GROUP BY k1.keyword_id, k1.keyword_text, k2.keyword_id, k2.keyword_text
		HAVING COUNT(DISTINCT ak1.answer_id) >= 1
	`

	keywordTextsSQL = `
		SELECT DISTINCT keyword_text FROM keywords
		WHERE keyword_text IS NOT NULL AND keyword_text <> ''
		ORDER BY keyword_text
	`

	getKeywordSQL = `SELECT keyword_id, keyword_text FROM keywords WHERE keyword_id = ?`

	findKeywordByNormalizedSQL = `
		SELECT keyword_id, keyword_text FROM keywords
		WHERE normalized_text = ?
		ORDER BY created_at ASC, keyword_id ASC
		LIMIT 1
	`

	insertKeywordSQL = `INSERT INTO keywords (keyword_id, keyword_text, normalized_text, created_at) VALUES (?, ?, ?, ?)`

	deleteKeywordLinksSQL = `DELETE FROM answers_keywords WHERE keyword_id = ?`

	deleteKeywordSQL = `DELETE FROM keywords WHERE keyword_id = ?`

	insertLinkSQL = `
		INSERT INTO answers_keywords (answer_id, keyword_id) VALUES (?, ?)
		ON CONFLICT (answer_id, keyword_id) DO NOTHING
	`

	deleteLinkSQL = `DELETE FROM answers_keywords WHERE answer_id = ? AND keyword_id = ?`

	repointLinksSQL = `
		UPDATE answers_keywords
		SET keyword_id = ?
		WHERE keyword_id = ?
		AND answer_id NOT IN (
			SELECT answer_id FROM answers_keywords WHERE keyword_id = ?
		)
	`

	countLinksSQL = `SELECT COUNT(*) FROM answers_keywords WHERE keyword_id = ?`

	orphanedKeywordsSQL = `
		SELECT k.keyword_id, k.keyword_text
		FROM keywords k
		LEFT JOIN answers_keywords ak ON k.keyword_id = ak.keyword_id
		WHERE ak.keyword_id IS NULL
		ORDER BY k.created_at ASC, k.keyword_id ASC
	`

	keywordStatsSQL = `
		SELECT
			(SELECT COUNT(*) FROM keywords) AS total_keywords,
			(SELECT COUNT(DISTINCT answer_id) FROM answers_keywords) AS linked_answers,
			(SELECT COUNT(*) FROM keywords k
			 WHERE NOT EXISTS (SELECT 1 FROM answers_keywords ak WHERE ak.keyword_id = k.keyword_id)) AS orphaned_keywords,
			(SELECT COUNT(*) FROM answers_keywords) AS total_links,
			(SELECT COUNT(DISTINCT keyword_id) FROM answers_keywords) AS linked_keywords
	`
)

// Cypher statements for the graph model (:Keyword)-[:TAGS]->(:Answer).
const (
	KeywordsForAnswerQuery = `
		MATCH (k:Keyword)-[:TAGS]->(:Answer {id: $answer_id})
		WITH DISTINCT k
		RETURN k.id AS id, k.text AS text
		ORDER BY size(k.text) DESC, k.created_at ASC, k.id ASC
	`

	SharedKeywordPairsQuery = `
		MATCH (k1:Keyword)-[:TAGS]->(a:Answer)<-[:TAGS]-(k2:Keyword)
		WHERE k1.id < k2.id
		RETURN k1.id AS first_id, k1.text AS first_text,
		       k2.id AS second_id, k2.text AS second_text,
		       count(DISTINCT a) AS shared
	`

	KeywordTextsQuery = `
		MATCH (k:Keyword)
		WHERE k.text IS NOT NULL AND k.text <> ""
		RETURN DISTINCT k.text AS text
		ORDER BY text
	`

	GetKeywordQuery = `
		MATCH (k:Keyword {id: $id})
		RETURN k.id AS id, k.text AS text
	`

	FindKeywordByNormalizedQuery = `
		MATCH (k:Keyword {normalized: $normalized})
		RETURN k.id AS id, k.text AS text
		ORDER BY k.created_at ASC, k.id ASC
		LIMIT 1
	`

	CreateKeywordQuery = `
		CREATE (k:Keyword {id: $id, text: $text, normalized: $normalized, created_at: $created_at})
		RETURN k.id AS id
	`

	DeleteKeywordQuery = `
		MATCH (k:Keyword {id: $id})
		DETACH DELETE k
	`

	LinkKeywordQuery = `
		MATCH (k:Keyword {id: $keyword_id})
		MERGE (a:Answer {id: $answer_id})
		WITH k, a, exists((k)-[:TAGS]->(a)) AS existed
		MERGE (k)-[:TAGS]->(a)
		RETURN existed
	`

	UnlinkKeywordQuery = `
		MATCH (:Keyword {id: $keyword_id})-[r:TAGS]->(:Answer {id: $answer_id})
		DELETE r
	`

	RepointLinksQuery = `
		MATCH (p:Keyword {id: $to_id})
		MATCH (c:Keyword {id: $from_id})-[r:TAGS]->(a:Answer)
		WHERE NOT (p)-[:TAGS]->(a)
		CREATE (p)-[:TAGS]->(a)
		DELETE r
		RETURN count(a) AS moved
	`

	DeleteLinksQuery = `
		MATCH (:Keyword {id: $keyword_id})-[r:TAGS]->(:Answer)
		DELETE r
		RETURN count(*) AS deleted
	`

	CountLinksQuery = `
		MATCH (:Keyword {id: $keyword_id})-[r:TAGS]->(:Answer)
		RETURN count(r) AS links
	`

	DeleteOrphansQuery = `
		MATCH (k:Keyword)
		WHERE NOT (k)-[:TAGS]->(:Answer)
		WITH k, k.id AS id, k.text AS text, k.created_at AS created_at
		DETACH DELETE k
		RETURN id, text
		ORDER BY created_at ASC, id ASC
	`

	KeywordStatsQuery = `
		MATCH (k:Keyword)
		OPTIONAL MATCH (k)-[:TAGS]->(a:Answer)
		WITH k, count(a) AS n
		RETURN count(k) AS total,
		       sum(CASE WHEN n = 0 THEN 1 ELSE 0 END) AS orphaned,
		       sum(CASE WHEN n > 0 THEN 1 ELSE 0 END) AS linked,
		       sum(n) AS links
	`

	LinkedAnswersQuery = `
		MATCH (:Keyword)-[:TAGS]->(a:Answer)
		RETURN count(DISTINCT a) AS answers
	`
)
