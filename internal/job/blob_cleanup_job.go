package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/1Kunalvats9/dorry-backend/internal/filestore"
	"github.com/1Kunalvats9/dorry-backend/internal/model"
)

const cleanupBatchSize = 50

type staleBlobStore interface {
	ListStaleBlobs(ctx context.Context, limit int) ([]model.Document, error)
	ClearBlobKey(ctx context.Context, userID, docID string) error
}

// BlobCleanupJob retries blob deletes that failed during ingestion. Failed
// documents keep their blob key until the underlying object is actually gone.
type BlobCleanupJob struct {
	docs  staleBlobStore
	blobs filestore.Store
}

func NewBlobCleanupJob(docs staleBlobStore, blobs filestore.Store) *BlobCleanupJob {
	return &BlobCleanupJob{docs: docs, blobs: blobs}
}

func (j *BlobCleanupJob) Name() string {
	return "blob_cleanup"
}

func (j *BlobCleanupJob) Run(ctx context.Context) error {
	docs, err := j.docs.ListStaleBlobs(ctx, cleanupBatchSize)
	if err != nil {
		return err
	}
	logger := logutil.GetLogger(ctx)
	cleaned := 0
	for _, doc := range docs {
		if err := j.blobs.Delete(ctx, doc.BlobKey); err != nil {
			logger.Warn("stale blob delete failed",
				zap.String("doc_id", doc.ID), zap.String("blob_key", doc.BlobKey), zap.Error(err))
			continue
		}
		if err := j.docs.ClearBlobKey(ctx, doc.UserID, doc.ID); err != nil {
			logger.Warn("clear blob key failed", zap.String("doc_id", doc.ID), zap.Error(err))
			continue
		}
		cleaned++
	}
	if cleaned > 0 {
		logger.Info("stale blobs cleaned", zap.Int("count", cleaned))
	}
	return nil
}
