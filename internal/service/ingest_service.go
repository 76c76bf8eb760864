package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/1Kunalvats9/dorry-backend/internal/ai"
	"github.com/1Kunalvats9/dorry-backend/internal/filestore"
	"github.com/1Kunalvats9/dorry-backend/internal/model"
	"github.com/1Kunalvats9/dorry-backend/internal/pdfextract"
	appErr "github.com/1Kunalvats9/dorry-backend/internal/pkg/errors"
	"github.com/1Kunalvats9/dorry-backend/internal/task"
)

// IngestService drives the document -> chunks -> vectors pipeline. Plain text
// runs synchronously inside the request; PDFs run detached on the task runner
// and report progress only through the document's status field.
type IngestService struct {
	docs       DocumentStore
	chunks     ChunkStore
	index      VectorIndex
	blobs      filestore.Store
	extractor  pdfextract.Extractor
	events     *EventService
	runner     *task.Runner
	chunkWords int
}

func NewIngestService(
	docs DocumentStore,
	chunks ChunkStore,
	index VectorIndex,
	blobs filestore.Store,
	extractor pdfextract.Extractor,
	events *EventService,
	runner *task.Runner,
	chunkWords int,
) *IngestService {
	if chunkWords <= 0 {
		chunkWords = ai.DefaultChunkWords
	}
	return &IngestService{
		docs:       docs,
		chunks:     chunks,
		index:      index,
		blobs:      blobs,
		extractor:  extractor,
		events:     events,
		runner:     runner,
		chunkWords: chunkWords,
	}
}

// IngestText creates a ready document from raw text and indexes it in one
// pass. Any failure surfaces to the caller as a request error.
func (s *IngestService) IngestText(ctx context.Context, userID, title, content string, markdown bool) (*model.Document, error) {
	text := content
	if markdown {
		text = ai.MarkdownToPlain(content)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty document content", appErr.ErrInvalid)
	}

	now := time.Now().UnixMilli()
	doc := &model.Document{
		ID:      newID(),
		UserID:  userID,
		Title:   strings.TrimSpace(title),
		Kind:    model.DocumentKindText,
		Content: text,
		Status:  model.DocumentStatusReady,
		Ctime:   now,
		Mtime:   now,
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, err
	}
	if err := s.indexDocument(ctx, doc, text); err != nil {
		return nil, err
	}
	if err := s.runner.Submit(task.Task{
		Name: "event_extract",
		Run: func(taskCtx context.Context) error {
			_, err := s.events.Extract(taskCtx, userID, doc.ID)
			return err
		},
	}); err != nil {
		logutil.GetLogger(ctx).Warn("schedule event extraction failed", zap.Error(err))
	}
	return doc, nil
}

// IngestPDF stores the upload, creates a processing document, and returns
// immediately. The rest of the pipeline runs detached; callers poll the
// document status to find out how it went.
func (s *IngestService) IngestPDF(ctx context.Context, userID, title string, data []byte) (*model.Document, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty upload", appErr.ErrInvalid)
	}
	blobKey := uuid.NewString() + ".pdf"
	if _, err := s.blobs.Save(ctx, blobKey, bytes.NewReader(data), int64(len(data))); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	now := time.Now().UnixMilli()
	doc := &model.Document{
		ID:      newID(),
		UserID:  userID,
		Title:   strings.TrimSpace(title),
		Kind:    model.DocumentKindPDF,
		Status:  model.DocumentStatusProcessing,
		BlobKey: blobKey,
		Ctime:   now,
		Mtime:   now,
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, err
	}

	submitErr := s.runner.Submit(task.Task{
		Name: "pdf_ingest",
		Run: func(taskCtx context.Context) error {
			return s.processPDF(taskCtx, userID, doc.ID, blobKey)
		},
	})
	if submitErr != nil {
		// No worker will ever pick this up; fail the document now so the
		// caller is not left polling a document stuck in processing.
		s.failDocument(ctx, userID, doc.ID, blobKey, false, submitErr)
		return nil, fmt.Errorf("schedule ingestion: %w", submitErr)
	}
	return doc, nil
}

// processPDF is the detached pipeline: extract -> persist text -> chunk ->
// index -> cleanup -> event extraction. Failures in any step up to indexing
// mark the document failed; cleanup and event extraction failures only log.
func (s *IngestService) processPDF(ctx context.Context, userID, docID, blobKey string) error {
	logger := logutil.GetLogger(ctx).With(zap.String("doc_id", docID), zap.String("user_id", userID))
	blobDeleted := false

	pipeline := func() error {
		reader, err := s.blobs.Open(ctx, blobKey)
		if err != nil {
			return fmt.Errorf("open upload: %w", err)
		}
		data, err := io.ReadAll(reader)
		reader.Close()
		if err != nil {
			return fmt.Errorf("read upload: %w", err)
		}

		text, err := s.extractor.Extract(data)
		if err != nil {
			return fmt.Errorf("%w: %v", appErr.ErrNoExtractableText, err)
		}
		if strings.TrimSpace(text) == "" {
			return appErr.ErrNoExtractableText
		}

		if err := s.docs.SetContent(ctx, userID, docID, text, time.Now().UnixMilli()); err != nil {
			return fmt.Errorf("persist text: %w", err)
		}

		doc := &model.Document{ID: docID, UserID: userID, Kind: model.DocumentKindPDF}
		return s.indexDocument(ctx, doc, text)
	}

	if err := pipeline(); err != nil {
		s.failDocument(ctx, userID, docID, blobKey, blobDeleted, err)
		return err
	}

	// The document is usable from here on: cleanup problems never roll
	// the pipeline back.
	if err := s.blobs.Delete(ctx, blobKey); err != nil {
		logger.Warn("delete upload blob failed", zap.Error(err))
	} else {
		blobDeleted = true
		if err := s.docs.ClearBlobKey(ctx, userID, docID); err != nil {
			logger.Warn("clear blob key failed", zap.Error(err))
		}
	}

	if err := s.runner.Submit(task.Task{
		Name: "event_extract",
		Run: func(taskCtx context.Context) error {
			_, err := s.events.Extract(taskCtx, userID, docID)
			return err
		},
	}); err != nil {
		logger.Warn("schedule event extraction failed", zap.Error(err))
	}
	return nil
}

// indexDocument chunks text, persists the chunk rows, then writes the vector
// points. Relational rows land first so a crash between the two stores leaves
// re-entrant state, not dangling vectors.
func (s *IngestService) indexDocument(ctx context.Context, doc *model.Document, text string) error {
	pieces := ai.SplitWords(text, s.chunkWords)
	if len(pieces) == 0 {
		return appErr.ErrNoChunksProduced
	}
	now := time.Now().UnixMilli()
	chunks := make([]*model.Chunk, 0, len(pieces))
	for i, piece := range pieces {
		chunks = append(chunks, &model.Chunk{
			ID:         newID(),
			DocumentID: doc.ID,
			UserID:     doc.UserID,
			Content:    piece,
			Seq:        i,
			Ctime:      now,
		})
	}
	if err := s.chunks.CreateBatch(ctx, chunks); err != nil {
		return fmt.Errorf("persist chunks: %w", err)
	}
	if err := s.index.UpsertChunks(ctx, doc.UserID, doc.ID, doc.Kind, chunks); err != nil {
		return err
	}
	if err := s.chunks.UpdatePointIDs(ctx, chunks); err != nil {
		return fmt.Errorf("persist point ids: %w", err)
	}
	return nil
}

// failDocument is the pipeline's terminal error handler: best-effort blob
// cleanup (skipped when the blob is already gone), then the failed-status
// transition carrying the error message.
func (s *IngestService) failDocument(ctx context.Context, userID, docID, blobKey string, blobDeleted bool, cause error) {
	logger := logutil.GetLogger(ctx).With(zap.String("doc_id", docID), zap.String("user_id", userID))
	if !blobDeleted && blobKey != "" {
		if err := s.blobs.Delete(ctx, blobKey); err != nil {
			// Leave blob_key set so the cleanup job retries this delete.
			logger.Warn("cleanup upload blob failed", zap.Error(err))
		} else if err := s.docs.ClearBlobKey(ctx, userID, docID); err != nil {
			logger.Warn("clear blob key failed", zap.Error(err))
		}
	}
	if err := s.docs.MarkFailed(ctx, userID, docID, cause.Error(), time.Now().UnixMilli()); err != nil {
		logger.Error("mark document failed", zap.Error(err))
	}
	logger.Error("pdf ingestion failed", zap.Error(cause))
}
