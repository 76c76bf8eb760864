package vecindex

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pgvector/pgvector-go"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/1Kunalvats9/dorry-backend/internal/ai"
	"github.com/1Kunalvats9/dorry-backend/internal/model"
	appErr "github.com/1Kunalvats9/dorry-backend/internal/pkg/errors"
)

// Embedder is the slice of the AI gateway the index needs.
type Embedder interface {
	Embed(ctx context.Context, text string, taskType string) ([]float32, error)
}

// Hit is a single similarity-search result. Text stays internal to the
// retrieval path and is never handed to API clients.
type Hit struct {
	PointID    string
	ChunkID    string
	DocumentID string
	Text       string
	Score      float64
}

// Index owns the vector point collection. Every read and delete is scoped to
// a tenant; an unfiltered query against this table is a security defect.
type Index struct {
	db       *sqlx.DB
	embedder Embedder
	dim      int
}

func New(db *sqlx.DB, embedder Embedder, dim int) *Index {
	return &Index{db: db, embedder: embedder, dim: dim}
}

// EnsureCollection creates the point table and its secondary indexes if they
// are absent. Index creation failures are logged and swallowed: search still
// works without them, only slower.
func (x *Index) EnsureCollection(ctx context.Context) error {
	logger := logutil.GetLogger(ctx)
	if _, err := x.db.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("%w: create extension: %v", appErr.ErrVectorStoreUnavailable, err)
	}
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS vector_points (
			id          TEXT PRIMARY KEY,
			user_id     TEXT NOT NULL,
			document_id TEXT NOT NULL,
			chunk_id    TEXT NOT NULL,
			content     TEXT NOT NULL,
			kind        TEXT NOT NULL,
			embedding   vector(%d) NOT NULL,
			ctime       BIGINT NOT NULL
		)`, x.dim)
	if _, err := x.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("%w: create collection: %v", appErr.ErrVectorStoreUnavailable, err)
	}
	secondary := []string{
		`CREATE INDEX IF NOT EXISTS idx_vector_points_user ON vector_points (user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_vector_points_document ON vector_points (document_id)`,
		`CREATE INDEX IF NOT EXISTS idx_vector_points_embedding ON vector_points USING hnsw (embedding vector_cosine_ops)`,
	}
	for _, stmt := range secondary {
		if _, err := x.db.ExecContext(ctx, stmt); err != nil {
			logger.Warn("create vector index failed", zap.Error(err))
		}
	}
	return nil
}

// UpsertChunks embeds each chunk and writes one acknowledged point per chunk
// under a fresh point identity. The chunk's PointID field is filled in place
// so the caller can persist the back-reference.
func (x *Index) UpsertChunks(ctx context.Context, userID, documentID, kind string, chunks []*model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	const insert = `
		INSERT INTO vector_points (id, user_id, document_id, chunk_id, content, kind, embedding, ctime)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	now := time.Now().UnixMilli()
	for _, chunk := range chunks {
		vec, err := x.embedder.Embed(ctx, chunk.Content, ai.TaskTypeDocument)
		if err != nil {
			return err
		}
		pointID := uuid.NewString()
		if _, err := x.db.ExecContext(ctx, insert,
			pointID, userID, documentID, chunk.ID, chunk.Content, kind,
			pgvector.NewVector(vec), now,
		); err != nil {
			return fmt.Errorf("%w: upsert point: %v", appErr.ErrVectorStoreUnavailable, err)
		}
		chunk.PointID = pointID
	}
	return nil
}

// Search embeds the query and returns up to limit points for the tenant,
// ordered by descending cosine similarity.
func (x *Index) Search(ctx context.Context, userID, query string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 5
	}
	vec, err := x.embedder.Embed(ctx, query, ai.TaskTypeQuery)
	if err != nil {
		return nil, err
	}
	const search = `
		SELECT id, chunk_id, document_id, content, 1 - (embedding <=> $1) AS score
		FROM vector_points
		WHERE user_id = $2
		ORDER BY embedding <=> $1
		LIMIT $3
	`
	rows, err := x.db.QueryContext(ctx, search, pgvector.NewVector(vec), userID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %v", appErr.ErrVectorStoreUnavailable, err)
	}
	defer rows.Close()
	var hits []Hit
	for rows.Next() {
		var h Hit
		if err := rows.Scan(&h.PointID, &h.ChunkID, &h.DocumentID, &h.Text, &h.Score); err != nil {
			return nil, fmt.Errorf("%w: scan hit: %v", appErr.ErrVectorStoreUnavailable, err)
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

func (x *Index) DeleteByTenant(ctx context.Context, userID string) error {
	if _, err := x.db.ExecContext(ctx, `DELETE FROM vector_points WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("%w: delete by tenant: %v", appErr.ErrVectorStoreUnavailable, err)
	}
	return nil
}

func (x *Index) DeleteByDocument(ctx context.Context, userID, documentID string) error {
	if _, err := x.db.ExecContext(ctx, `DELETE FROM vector_points WHERE user_id = $1 AND document_id = $2`, userID, documentID); err != nil {
		return fmt.Errorf("%w: delete by document: %v", appErr.ErrVectorStoreUnavailable, err)
	}
	return nil
}
