package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/gita-knowledge-api/internal/models"
	"github.com/gita-knowledge-api/internal/repository"
	"github.com/jmoiron/sqlx"
)

// Ensure VectorSearchRepository implements repository.Index and repository.Exporter
var (
	_ repository.Index    = (*VectorSearchRepository)(nil)
	_ repository.Exporter = (*VectorSearchRepository)(nil)
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS verse_documents (
	collection          TEXT    NOT NULL,
	id                  TEXT    NOT NULL,
	verse               INTEGER NOT NULL,
	text                TEXT    NOT NULL,
	translation         TEXT    NOT NULL,
	english_translation TEXT    NOT NULL,
	document            TEXT    NOT NULL,
	embedding           BLOB    NOT NULL,
	PRIMARY KEY (collection, id)
);
CREATE TABLE IF NOT EXISTS index_schema (
	collection         TEXT PRIMARY KEY,
	embedding_provider TEXT    NOT NULL,
	embedding_model    TEXT    NOT NULL,
	dimensions         INTEGER NOT NULL,
	document_template  TEXT    NOT NULL
);`

// VectorSearchRepository is a local on-disk collection of verse embeddings.
// Nearest neighbours are found by exact cosine ranking in process, which suits a one-chapter corpus.
type VectorSearchRepository struct {
	db         *sqlx.DB
	collection string
}

// NewVectorSearchRepository opens the collection, creating tables when missing
func NewVectorSearchRepository(ctx context.Context, db *sqlx.DB, collection string) (*VectorSearchRepository, error) {
	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}
	return &VectorSearchRepository{db: db, collection: collection}, nil
}

// Count returns the number of documents in the collection
func (r *VectorSearchRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM verse_documents WHERE collection = ?`, r.collection); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
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

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO verse_documents (collection, id, verse, text, translation, english_translation, document, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (collection, id) DO UPDATE SET
			verse = excluded.verse,
			text = excluded.text,
			translation = excluded.translation,
			english_translation = excluded.english_translation,
			document = excluded.document,
			embedding = excluded.embedding
	`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for i, doc := range docs {
		v := doc.Metadata
		if _, err := stmt.ExecContext(ctx, r.collection, doc.ID, v.Verse, v.Text, v.Translation,
			v.EnglishTranslation, doc.Text, encodeVector(embeddings[i])); err != nil {
			return fmt.Errorf("upsert %s: %w", doc.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert: %w", err)
	}
	return nil
}

type documentRow struct {
	ID                 string `db:"id"`
	Verse              int    `db:"verse"`
	Text               string `db:"text"`
	Translation        string `db:"translation"`
	EnglishTranslation string `db:"english_translation"`
	Embedding          []byte `db:"embedding"`
}

// Query ranks every document in the collection against the embedding
func (r *VectorSearchRepository) Query(ctx context.Context, embedding []float32, k int) ([]models.Match, error) {
	candidates, err := r.load(ctx, "")
	if err != nil {
		return nil, err
	}
	return repository.RankByCosine(embedding, candidates, k), nil
}

// All streams every document of the collection in verse order
func (r *VectorSearchRepository) All(ctx context.Context, fn func(models.Match) error) error {
	docs, err := r.load(ctx, "ORDER BY verse")
	if err != nil {
		return err
	}
	for _, m := range docs {
		if err := fn(m); err != nil {
			return err
		}
	}
	return nil
}

func (r *VectorSearchRepository) load(ctx context.Context, orderBy string) ([]models.Match, error) {
	var rows []documentRow
	if err := r.db.SelectContext(ctx, &rows, `
		SELECT id, verse, text, translation, english_translation, embedding
		FROM verse_documents
		WHERE collection = ?
	`+orderBy, r.collection); err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}

	out := make([]models.Match, 0, len(rows))
	for _, row := range rows {
		vec, err := decodeVector(row.Embedding)
		if err != nil {
			return nil, fmt.Errorf("decode embedding for %s: %w", row.ID, err)
		}
		out = append(out, models.Match{
			ID: row.ID,
			Metadata: models.Verse{
				Verse:              row.Verse,
				Text:               row.Text,
				Translation:        row.Translation,
				EnglishTranslation: row.EnglishTranslation,
			},
			Embedding: vec,
		})
	}
	return out, nil
}

// LoadSchema returns the recorded schema for the collection, or nil
func (r *VectorSearchRepository) LoadSchema(ctx context.Context) (*models.IndexSchema, error) {
	var s models.IndexSchema
	err := r.db.GetContext(ctx, &s, `
		SELECT collection, embedding_provider, embedding_model, dimensions, document_template
		FROM index_schema WHERE collection = ?
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
		INSERT INTO index_schema (collection, embedding_provider, embedding_model, dimensions, document_template)
		VALUES (:collection, :embedding_provider, :embedding_model, :dimensions, :document_template)
		ON CONFLICT (collection) DO UPDATE SET
			embedding_provider = excluded.embedding_provider,
			embedding_model = excluded.embedding_model,
			dimensions = excluded.dimensions,
			document_template = excluded.document_template
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

func encodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob: len=%d (not multiple of 4)", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
