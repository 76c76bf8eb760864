package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/1Kunalvats9/dorry-backend/internal/model"
	appErr "github.com/1Kunalvats9/dorry-backend/internal/pkg/errors"
)

type DocumentRepo struct {
	db *sqlx.DB
}

func NewDocumentRepo(db *sqlx.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

func (r *DocumentRepo) Create(ctx context.Context, doc *model.Document) error {
	const query = `
		INSERT INTO documents (id, user_id, title, kind, content, status, fail_reason, blob_key, ctime, mtime)
		VALUES (:id, :user_id, :title, :kind, :content, :status, :fail_reason, :blob_key, :ctime, :mtime)
	`
	_, err := r.db.NamedExecContext(ctx, query, doc)
	return err
}

func (r *DocumentRepo) GetByID(ctx context.Context, userID, docID string) (*model.Document, error) {
	const query = `SELECT * FROM documents WHERE id = $1 AND user_id = $2`
	var doc model.Document
	if err := r.db.GetContext(ctx, &doc, query, docID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

func (r *DocumentRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Document, error) {
	const query = `
		SELECT * FROM documents
		WHERE user_id = $1
		ORDER BY ctime DESC
		LIMIT $2 OFFSET $3
	`
	if limit <= 0 {
		limit = 50
	}
	var docs []model.Document
	if err := r.db.SelectContext(ctx, &docs, query, userID, limit, offset); err != nil {
		return nil, err
	}
	return docs, nil
}

// SetContent stores the extracted text and flips the document to ready.
func (r *DocumentRepo) SetContent(ctx context.Context, userID, docID, content string, mtime int64) error {
	const query = `
		UPDATE documents
		SET content = $1, status = $2, fail_reason = '', mtime = $3
		WHERE id = $4 AND user_id = $5
	`
	return r.updateOne(ctx, query, content, model.DocumentStatusReady, mtime, docID, userID)
}

// MarkFailed records a terminal pipeline failure with the causing message.
func (r *DocumentRepo) MarkFailed(ctx context.Context, userID, docID, reason string, mtime int64) error {
	const query = `
		UPDATE documents
		SET status = $1, fail_reason = $2, mtime = $3
		WHERE id = $4 AND user_id = $5
	`
	return r.updateOne(ctx, query, model.DocumentStatusFailed, reason, mtime, docID, userID)
}

// ClearBlobKey drops the temporary blob reference once the upload copy has
// been deleted from external storage.
func (r *DocumentRepo) ClearBlobKey(ctx context.Context, userID, docID string) error {
	const query = `UPDATE documents SET blob_key = '' WHERE id = $1 AND user_id = $2`
	return r.updateOne(ctx, query, docID, userID)
}

func (r *DocumentRepo) Delete(ctx context.Context, userID, docID string) error {
	const query = `DELETE FROM documents WHERE id = $1 AND user_id = $2`
	return r.updateOne(ctx, query, docID, userID)
}

func (r *DocumentRepo) DeleteByUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE user_id = $1`, userID)
	return err
}

// ListWithoutEvents returns ready documents that have no detected events yet,
// for the backfill sweep.
func (r *DocumentRepo) ListWithoutEvents(ctx context.Context, limit int) ([]model.Document, error) {
	const query = `
		SELECT d.* FROM documents d
		LEFT JOIN detected_events e ON d.id = e.document_id
		WHERE e.id IS NULL AND d.status = $1
		ORDER BY d.ctime
		LIMIT $2
	`
	var docs []model.Document
	if err := r.db.SelectContext(ctx, &docs, query, model.DocumentStatusReady, limit); err != nil {
		return nil, err
	}
	return docs, nil
}

// ListStaleBlobs returns failed documents still holding a blob reference, so
// the cleanup job can retry the delete that was swallowed at failure time.
func (r *DocumentRepo) ListStaleBlobs(ctx context.Context, limit int) ([]model.Document, error) {
	const query = `
		SELECT * FROM documents
		WHERE status = $1 AND blob_key <> ''
		ORDER BY mtime
		LIMIT $2
	`
	var docs []model.Document
	if err := r.db.SelectContext(ctx, &docs, query, model.DocumentStatusFailed, limit); err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *DocumentRepo) updateOne(ctx context.Context, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}
