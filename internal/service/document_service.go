package service

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/1Kunalvats9/dorry-backend/internal/filestore"
	"github.com/1Kunalvats9/dorry-backend/internal/model"
)

const purgeBatchLimit = 10000

type DocumentService struct {
	docs  DocumentStore
	index VectorIndex
	blobs filestore.Store
}

func NewDocumentService(docs DocumentStore, index VectorIndex, blobs filestore.Store) *DocumentService {
	return &DocumentService{docs: docs, index: index, blobs: blobs}
}

func (s *DocumentService) Get(ctx context.Context, userID, docID string) (*model.Document, error) {
	return s.docs.GetByID(ctx, userID, docID)
}

func (s *DocumentService) List(ctx context.Context, userID string, limit, offset int) ([]model.Document, error) {
	return s.docs.ListByUser(ctx, userID, limit, offset)
}

// Delete removes a document and everything derived from it. Vector points go
// first so a half-finished delete can never leave points referencing rows
// that no longer exist; the relational cascade then takes chunks, messages
// stay untouched, and any leftover blob is cleaned up best-effort.
func (s *DocumentService) Delete(ctx context.Context, userID, docID string) error {
	doc, err := s.docs.GetByID(ctx, userID, docID)
	if err != nil {
		return err
	}
	if err := s.index.DeleteByDocument(ctx, userID, docID); err != nil {
		return err
	}
	if doc.BlobKey != "" {
		if err := s.blobs.Delete(ctx, doc.BlobKey); err != nil {
			logutil.GetLogger(ctx).Warn("delete document blob failed",
				zap.String("doc_id", docID), zap.String("blob_key", doc.BlobKey), zap.Error(err))
		}
	}
	return s.docs.Delete(ctx, userID, docID)
}

// Purge wipes every document the tenant owns. Vector points go first, then
// leftover blobs best-effort, then the relational rows and their cascades.
func (s *DocumentService) Purge(ctx context.Context, userID string) error {
	if err := s.index.DeleteByTenant(ctx, userID); err != nil {
		return err
	}
	docs, err := s.docs.ListByUser(ctx, userID, purgeBatchLimit, 0)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		if doc.BlobKey == "" {
			continue
		}
		if err := s.blobs.Delete(ctx, doc.BlobKey); err != nil {
			logutil.GetLogger(ctx).Warn("purge blob failed",
				zap.String("doc_id", doc.ID), zap.String("blob_key", doc.BlobKey), zap.Error(err))
		}
	}
	return s.docs.DeleteByUser(ctx, userID)
}
