package knowledge

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/taskgenie/internal/state"
)

// Document is a knowledge base entry.
type Document struct {
	// ID is the document identifier. Add assigns one derived from SourceURI
	// when empty.
	ID        string
	SourceURI string
	Content   string
	// Metadata holds filterable attributes such as workItemType or areaPath.
	Metadata  map[string]string
	CreatedAt time.Time
}

// DocumentID returns the stable identifier for a source URI.
func DocumentID(sourceURI string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(sourceURI)).String()
}

// Store is an SQLite full-text knowledge base. It implements Searcher.
type Store struct {
	db *state.DB
}

// NewStore creates a Store on db and applies the knowledge base migrations.
func NewStore(db *state.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.Migrate(); err != nil {
		return nil, fmt.Errorf("migrate knowledge base: %w", err)
	}
	return s, nil
}

// Migrate creates the knowledge base tables if they don't exist.
func (s *Store) Migrate() error {
	return s.db.ApplyMigrations("knowledge_schema_version", []state.Migration{
		{Version: 1, SQL: migrationV1Documents},
	})
}

const migrationV1Documents = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	source_uri TEXT,
	content TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_source_uri ON documents(source_uri);

CREATE TABLE IF NOT EXISTS document_metadata (
	document_id TEXT NOT NULL,
	key TEXT NOT NULL,
	value TEXT NOT NULL,
	PRIMARY KEY (document_id, key),
	FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_document_metadata_key_value ON document_metadata(key, value);

CREATE VIRTUAL TABLE IF NOT EXISTS documents_fts USING fts5(
	content,
	content='documents',
	content_rowid='rowid'
);

CREATE TRIGGER IF NOT EXISTS documents_ai AFTER INSERT ON documents BEGIN
	INSERT INTO documents_fts(rowid, content) VALUES (NEW.rowid, NEW.content);
END;

CREATE TRIGGER IF NOT EXISTS documents_ad AFTER DELETE ON documents BEGIN
	INSERT INTO documents_fts(documents_fts, rowid, content) VALUES ('delete', OLD.rowid, OLD.content);
END;

CREATE TRIGGER IF NOT EXISTS documents_au AFTER UPDATE ON documents BEGIN
	INSERT INTO documents_fts(documents_fts, rowid, content) VALUES ('delete', OLD.rowid, OLD.content);
	INSERT INTO documents_fts(rowid, content) VALUES (NEW.rowid, NEW.content);
END;
`

// Add inserts doc, replacing any document with the same ID, and returns the
// ID used.
func (s *Store) Add(ctx context.Context, doc Document) (string, error) {
	if strings.TrimSpace(doc.Content) == "" {
		return "", errors.New("add document: content is empty")
	}
	if doc.ID == "" {
		if doc.SourceURI != "" {
			doc.ID = DocumentID(doc.SourceURI)
		} else {
			doc.ID = uuid.NewString()
		}
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	err := s.db.Transaction(ctx, func(tx *sql.Tx) error {
		if err := deleteDocument(ctx, tx, doc.ID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO documents (id, source_uri, content, created_at) VALUES (?, ?, ?, ?)`,
			doc.ID, doc.SourceURI, doc.Content, state.FormatTime(doc.CreatedAt))
		if err != nil {
			return fmt.Errorf("insert document: %w", err)
		}
		for k, v := range doc.Metadata {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO document_metadata (document_id, key, value) VALUES (?, ?, ?)`,
				doc.ID, k, v)
			if err != nil {
				return fmt.Errorf("insert metadata %s: %w", k, err)
			}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("add document: %w", err)
	}
	return doc.ID, nil
}

// Delete removes a document. Deleting a missing document returns
// state.ErrNotFound.
func (s *Store) Delete(ctx context.Context, id string) error {
	var found bool
	err := s.db.Transaction(ctx, func(tx *sql.Tx) error {
		var n int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE id = ?`, id).Scan(&n); err != nil {
			return err
		}
		found = n > 0
		return deleteDocument(ctx, tx, id)
	})
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if !found {
		return state.ErrNotFound
	}
	return nil
}

// deleteDocument removes metadata explicitly since foreign key enforcement is
// per connection.
func deleteDocument(ctx context.Context, tx *sql.Tx, id string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM document_metadata WHERE document_id = ?`, id); err != nil {
		return fmt.Errorf("delete metadata: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete document row: %w", err)
	}
	return nil
}

// Count returns the number of stored documents.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

// Get returns a document with its metadata, or state.ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Document, error) {
	var (
		doc    Document
		source sql.NullString
		ts     string
	)
	err := s.db.QueryRow(ctx, `SELECT id, source_uri, content, created_at FROM documents WHERE id = ?`, id).
		Scan(&doc.ID, &source, &doc.Content, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, state.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	doc.SourceURI = source.String
	if doc.CreatedAt, err = state.ParseTime(ts); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	rows, err := s.db.Query(ctx, `SELECT key, value FROM document_metadata WHERE document_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("get metadata: %w", err)
	}
	defer rows.Close()

	doc.Metadata = make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan metadata: %w", err)
		}
		doc.Metadata[k] = v
	}
	return &doc, rows.Err()
}

// Search ranks documents against the keywords of query with BM25, keeping
// only those whose metadata satisfies filter. The score is the negated BM25
// rank so higher is more relevant. A query without keywords returns the most
// recent matching documents with a zero score.
func (s *Store) Search(ctx context.Context, query string, filter *Filter, topK int) ([]SearchResult, error) {
	if topK <= 0 {
		topK = DefaultMaxDocuments
	}

	where, args := filterClause(filter)
	keywords := extractKeywords(query)

	var (
		sqlQuery string
		params   []any
	)
	if len(keywords) > 0 {
		quoted := make([]string, len(keywords))
		for i, k := range keywords {
			quoted[i] = `"` + k + `"`
		}
		sqlQuery = `
			SELECT d.source_uri, d.content, -bm25(documents_fts) AS score
			FROM documents_fts
			JOIN documents d ON d.rowid = documents_fts.rowid
			WHERE documents_fts MATCH ?` + where + `
			ORDER BY bm25(documents_fts)
			LIMIT ?`
		params = append(params, strings.Join(quoted, " OR "))
	} else {
		sqlQuery = `
			SELECT d.source_uri, d.content, 0.0 AS score
			FROM documents d
			WHERE 1 = 1` + where + `
			ORDER BY d.created_at DESC
			LIMIT ?`
	}
	params = append(params, args...)
	params = append(params, topK)

	rows, err := s.db.Query(ctx, sqlQuery, params...)
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var (
			r      SearchResult
			source sql.NullString
		)
		if err := rows.Scan(&source, &r.Content, &r.Score); err != nil {
			return nil, fmt.Errorf("scan search result: %w", err)
		}
		r.SourceURI = source.String
		results = append(results, r)
	}
	return results, rows.Err()
}

// filterClause renders filter as EXISTS clauses over document_metadata.
func filterClause(filter *Filter) (string, []any) {
	var (
		b    strings.Builder
		args []any
	)
	for _, c := range filter.Conditions() {
		b.WriteString(` AND EXISTS (SELECT 1 FROM document_metadata m WHERE m.document_id = d.id AND m.key = ? AND m.value = ?)`)
		args = append(args, c.Key, c.Value)
	}
	return b.String(), args
}

var _ Searcher = (*Store)(nil)
