package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/1Kunalvats9/dorry-backend/internal/model"
	appErr "github.com/1Kunalvats9/dorry-backend/internal/pkg/errors"
)

func TestDeleteRemovesVectorsAndBlob(t *testing.T) {
	docs := newMemDocStore()
	index := newFakeIndex()
	blobs := newMemBlobStore()
	svc := NewDocumentService(docs, index, blobs)

	blobs.blobs["blob-1"] = []byte("pdf bytes")
	require.NoError(t, docs.Create(context.Background(), &model.Document{
		ID: "d1", UserID: "u1", Kind: model.DocumentKindPDF, Status: model.DocumentStatusFailed, BlobKey: "blob-1",
	}))
	index.upserted["d1"] = []model.Chunk{{ID: "c1"}}

	require.NoError(t, svc.Delete(context.Background(), "u1", "d1"))
	require.Equal(t, []string{"d1"}, index.deleted)
	require.Equal(t, 1, blobs.deleteCount("blob-1"))

	_, err := svc.Get(context.Background(), "u1", "d1")
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestDeleteUnknownDocument(t *testing.T) {
	svc := NewDocumentService(newMemDocStore(), newFakeIndex(), newMemBlobStore())

	err := svc.Delete(context.Background(), "u1", "missing")
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestDeleteIsTenantScoped(t *testing.T) {
	docs := newMemDocStore()
	svc := NewDocumentService(docs, newFakeIndex(), newMemBlobStore())

	require.NoError(t, docs.Create(context.Background(), &model.Document{ID: "d1", UserID: "owner"}))

	err := svc.Delete(context.Background(), "intruder", "d1")
	require.ErrorIs(t, err, appErr.ErrNotFound)

	_, err = svc.Get(context.Background(), "owner", "d1")
	require.NoError(t, err)
}

func TestPurgeRemovesOnlyTenantDocuments(t *testing.T) {
	docs := newMemDocStore()
	index := newFakeIndex()
	blobs := newMemBlobStore()
	svc := NewDocumentService(docs, index, blobs)

	blobs.blobs["blob-1"] = []byte("x")
	require.NoError(t, docs.Create(context.Background(), &model.Document{ID: "d1", UserID: "u1", BlobKey: "blob-1"}))
	require.NoError(t, docs.Create(context.Background(), &model.Document{ID: "d2", UserID: "u1"}))
	require.NoError(t, docs.Create(context.Background(), &model.Document{ID: "d3", UserID: "u2"}))

	require.NoError(t, svc.Purge(context.Background(), "u1"))
	require.Equal(t, 1, blobs.deleteCount("blob-1"))

	_, err := svc.Get(context.Background(), "u1", "d1")
	require.ErrorIs(t, err, appErr.ErrNotFound)
	_, err = svc.Get(context.Background(), "u2", "d3")
	require.NoError(t, err)
}
