package job

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/1Kunalvats9/dorry-backend/internal/model"
)

type fakeStaleBlobStore struct {
	docs    []model.Document
	cleared []string
}

func (f *fakeStaleBlobStore) ListStaleBlobs(_ context.Context, limit int) ([]model.Document, error) {
	return f.docs, nil
}

func (f *fakeStaleBlobStore) ClearBlobKey(_ context.Context, userID, docID string) error {
	f.cleared = append(f.cleared, docID)
	return nil
}

type fakeBlobs struct {
	deleted []string
	failOn  string
}

func (f *fakeBlobs) Save(_ context.Context, key string, r io.Reader, size int64) (string, error) {
	return key, nil
}

func (f *fakeBlobs) Open(_ context.Context, key string) (io.ReadCloser, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeBlobs) Delete(_ context.Context, key string) error {
	if key == f.failOn {
		return fmt.Errorf("delete failed")
	}
	f.deleted = append(f.deleted, key)
	return nil
}

func TestBlobCleanupClearsKeys(t *testing.T) {
	docs := &fakeStaleBlobStore{docs: []model.Document{
		{ID: "d1", UserID: "u1", BlobKey: "blob-1"},
		{ID: "d2", UserID: "u1", BlobKey: "blob-2"},
	}}
	blobs := &fakeBlobs{}
	job := NewBlobCleanupJob(docs, blobs)

	require.NoError(t, job.Run(context.Background()))
	require.Equal(t, []string{"blob-1", "blob-2"}, blobs.deleted)
	require.Equal(t, []string{"d1", "d2"}, docs.cleared)
}

func TestBlobCleanupKeepsKeyOnDeleteFailure(t *testing.T) {
	docs := &fakeStaleBlobStore{docs: []model.Document{
		{ID: "d1", UserID: "u1", BlobKey: "blob-1"},
		{ID: "d2", UserID: "u1", BlobKey: "blob-2"},
	}}
	blobs := &fakeBlobs{failOn: "blob-1"}
	job := NewBlobCleanupJob(docs, blobs)

	require.NoError(t, job.Run(context.Background()))
	// d1's key stays set so the next sweep retries it.
	require.Equal(t, []string{"d2"}, docs.cleared)
}
