package repo

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/1Kunalvats9/dorry-backend/internal/model"
)

type ChunkRepo struct {
	db *sqlx.DB
}

func NewChunkRepo(db *sqlx.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

func (r *ChunkRepo) CreateBatch(ctx context.Context, chunks []*model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	const query = `
		INSERT INTO chunks (id, document_id, user_id, content, seq, point_id, ctime)
		VALUES (:id, :document_id, :user_id, :content, :seq, :point_id, :ctime)
	`
	_, err := r.db.NamedExecContext(ctx, query, chunks)
	return err
}

func (r *ChunkRepo) UpdatePointIDs(ctx context.Context, chunks []*model.Chunk) error {
	const query = `UPDATE chunks SET point_id = $1 WHERE id = $2`
	for _, chunk := range chunks {
		if _, err := r.db.ExecContext(ctx, query, chunk.PointID, chunk.ID); err != nil {
			return err
		}
	}
	return nil
}

// ListByDocument returns a document's chunks in sequence order so the full
// text can be reconstructed.
func (r *ChunkRepo) ListByDocument(ctx context.Context, userID, docID string) ([]model.Chunk, error) {
	const query = `
		SELECT * FROM chunks
		WHERE document_id = $1 AND user_id = $2
		ORDER BY seq
	`
	var chunks []model.Chunk
	if err := r.db.SelectContext(ctx, &chunks, query, docID, userID); err != nil {
		return nil, err
	}
	return chunks, nil
}
