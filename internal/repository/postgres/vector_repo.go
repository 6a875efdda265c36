package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gita-knowledge-api/internal/models"
	"github.com/gita-knowledge-api/internal/repository"
	"github.com/jmoiron/sqlx"
	"github.com/pgvector/pgvector-go"
)

// Ensure VectorSearchRepository implements repository.Index and repository.Exporter
var (
	_ repository.Index    = (*VectorSearchRepository)(nil)
	_ repository.Exporter = (*VectorSearchRepository)(nil)
)

// VectorSearchRepository implements repository.Index for PostgreSQL with pgvector
type VectorSearchRepository struct {
	db         *sqlx.DB
	collection string
}

// NewVectorSearchRepository creates the pgvector tables when missing and returns the repository.
// dimensions fixes the vector column width on first creation.
func NewVectorSearchRepository(ctx context.Context, db *sqlx.DB, collection string, dimensions int) (*VectorSearchRepository, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("pgvector requires positive dimensions, got %d", dimensions)
	}

	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS gita_verses (
			collection          TEXT    NOT NULL,
			id                  TEXT    NOT NULL,
			verse               INTEGER NOT NULL,
			text                TEXT    NOT NULL,
			translation         TEXT    NOT NULL,
			english_translation TEXT    NOT NULL,
			document            TEXT    NOT NULL,
			embedding           vector(%d) NOT NULL,
			PRIMARY KEY (collection, id)
		)`, dimensions),
		`CREATE TABLE IF NOT EXISTS gita_index_schema (
			collection         TEXT PRIMARY KEY,
			embedding_provider TEXT    NOT NULL,
			embedding_model    TEXT    NOT NULL,
			dimensions         INTEGER NOT NULL,
			document_template  TEXT    NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("create pgvector schema: %w", err)
		}
	}

	return &VectorSearchRepository{db: db, collection: collection}, nil
}

// DB exposes the connection for backends that keep verse metadata here
func (r *VectorSearchRepository) DB() *sqlx.DB {
	return r.db
}

// Collection returns the collection name
func (r *VectorSearchRepository) Collection() string {
	return r.collection
}

// Count returns the number of documents in the collection
func (r *VectorSearchRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM gita_verses WHERE collection = $1`, r.collection); err != nil {
		return 0, fmt.Errorf("count verses: %w", err)
	}
	return n, nil
}

// Upsert inserts or replaces documents in a single transaction
func (r *VectorSearchRepository) Upsert(ctx context.Context, docs []models.IndexedDocument, embeddings [][]float32) error {
	if err := repository.CheckUpsert(docs, embeddings); err != nil {
		return err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, doc := range docs {
		v := doc.Metadata
		_, err := tx.ExecContext(ctx, `
			INSERT INTO gita_verses (collection, id, verse, text, translation, english_translation, document, embedding)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (collection, id) DO UPDATE SET
				verse = EXCLUDED.verse,
				text = EXCLUDED.text,
				translation = EXCLUDED.translation,
				english_translation = EXCLUDED.english_translation,
				document = EXCLUDED.document,
				embedding = EXCLUDED.embedding
		`, r.collection, doc.ID, v.Verse, v.Text, v.Translation, v.EnglishTranslation, doc.Text, pgvector.NewVector(embeddings[i]))
		if err != nil {
			return fmt.Errorf("upsert %s: %w", doc.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert: %w", err)
	}
	return nil
}

// Query performs cosine-distance nearest neighbour search using pgvector
func (r *VectorSearchRepository) Query(ctx context.Context, embedding []float32, k int) ([]models.Match, error) {
	if k <= 0 {
		return []models.Match{}, nil
	}
	vec := pgvector.NewVector(embedding)

	rows, err := r.db.QueryxContext(ctx, `
		SELECT id, verse, text, translation, english_translation, embedding,
		       embedding <=> $1::vector AS distance
		FROM gita_verses
		WHERE collection = $2
		ORDER BY embedding <=> $1::vector, id
		LIMIT $3
	`, vec, r.collection, k)
	if err != nil {
		return nil, fmt.Errorf("vector search verses: %w", err)
	}
	defer rows.Close()

	results := []models.Match{}
	for rows.Next() {
		var (
			m   models.Match
			emb pgvector.Vector
		)
		if err := rows.Scan(&m.ID, &m.Metadata.Verse, &m.Metadata.Text, &m.Metadata.Translation,
			&m.Metadata.EnglishTranslation, &emb, &m.Distance); err != nil {
			return nil, fmt.Errorf("scan verse result: %w", err)
		}
		m.Embedding = emb.Slice()
		results = append(results, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate verse results: %w", err)
	}
	return results, nil
}

// LookupVerses returns verse metadata and stored embeddings for the given ids, keyed by id
func (r *VectorSearchRepository) LookupVerses(ctx context.Context, ids []string) (map[string]models.Match, error) {
	if len(ids) == 0 {
		return map[string]models.Match{}, nil
	}

	query, args, err := sqlx.In(`
		SELECT id, verse, text, translation, english_translation, embedding
		FROM gita_verses
		WHERE collection = ? AND id IN (?)
	`, r.collection, ids)
	if err != nil {
		return nil, fmt.Errorf("build IN query: %w", err)
	}
	query = r.db.Rebind(query)

	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query verses: %w", err)
	}
	defer rows.Close()

	out := make(map[string]models.Match, len(ids))
	for rows.Next() {
		var (
			m   models.Match
			emb pgvector.Vector
		)
		if err := rows.Scan(&m.ID, &m.Metadata.Verse, &m.Metadata.Text, &m.Metadata.Translation,
			&m.Metadata.EnglishTranslation, &emb); err != nil {
			return nil, fmt.Errorf("scan verse: %w", err)
		}
		m.Embedding = emb.Slice()
		out[m.ID] = m
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate verses: %w", err)
	}
	return out, nil
}

// All streams every document of the collection in verse order
func (r *VectorSearchRepository) All(ctx context.Context, fn func(models.Match) error) error {
	rows, err := r.db.QueryxContext(ctx, `
		SELECT id, verse, text, translation, english_translation, embedding
		FROM gita_verses
		WHERE collection = $1
		ORDER BY verse
	`, r.collection)
	if err != nil {
		return fmt.Errorf("query verses: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			m   models.Match
			emb pgvector.Vector
		)
		if err := rows.Scan(&m.ID, &m.Metadata.Verse, &m.Metadata.Text, &m.Metadata.Translation,
			&m.Metadata.EnglishTranslation, &emb); err != nil {
			return fmt.Errorf("scan verse: %w", err)
		}
		m.Embedding = emb.Slice()
		if err := fn(m); err != nil {
			return err
		}
	}
	return rows.Err()
}

// LoadSchema returns the recorded schema for the collection, or nil
func (r *VectorSearchRepository) LoadSchema(ctx context.Context) (*models.IndexSchema, error) {
	var s models.IndexSchema
	err := r.db.GetContext(ctx, &s, `
		SELECT collection, embedding_provider, embedding_model, dimensions, document_template
		FROM gita_index_schema WHERE collection = $1
	`, r.collection)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load index schema: %w", err)
	}
	return &s, nil
}

// SaveSchema records the schema for the collection
func (r *VectorSearchRepository) SaveSchema(ctx context.Context, schema models.IndexSchema) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO gita_index_schema (collection, embedding_provider, embedding_model, dimensions, document_template)
		VALUES (:collection, :embedding_provider, :embedding_model, :dimensions, :document_template)
		ON CONFLICT (collection) DO UPDATE SET
			embedding_provider = EXCLUDED.embedding_provider,
			embedding_model = EXCLUDED.embedding_model,
			dimensions = EXCLUDED.dimensions,
			document_template = EXCLUDED.document_template
	`, schema)
	if err != nil {
		return fmt.Errorf("save index schema: %w", err)
	}
	return nil
}

// Close closes the database
func (r *VectorSearchRepository) Close() error {
	return r.db.Close()
}
