package service

import (
	"context"

	"github.com/1Kunalvats9/dorry-backend/internal/model"
	"github.com/1Kunalvats9/dorry-backend/internal/vecindex"
)

// Storage interfaces are defined here, on the consumer side, so services can
// be exercised in tests against in-memory fakes.

type DocumentStore interface {
	Create(ctx context.Context, doc *model.Document) error
	GetByID(ctx context.Context, userID, docID string) (*model.Document, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Document, error)
	SetContent(ctx context.Context, userID, docID, content string, mtime int64) error
	MarkFailed(ctx context.Context, userID, docID, reason string, mtime int64) error
	ClearBlobKey(ctx context.Context, userID, docID string) error
	Delete(ctx context.Context, userID, docID string) error
	DeleteByUser(ctx context.Context, userID string) error
}

type ChunkStore interface {
	CreateBatch(ctx context.Context, chunks []*model.Chunk) error
	UpdatePointIDs(ctx context.Context, chunks []*model.Chunk) error
	ListByDocument(ctx context.Context, userID, docID string) ([]model.Chunk, error)
}

type ConversationStore interface {
	Create(ctx context.Context, conv *model.Conversation) error
	GetByID(ctx context.Context, userID, convID string) (*model.Conversation, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Conversation, error)
	UpdateTitle(ctx context.Context, userID, convID, title string, mtime int64) error
	Touch(ctx context.Context, userID, convID string, mtime int64) error
	AppendMessage(ctx context.Context, msg *model.Message) error
	ListMessages(ctx context.Context, convID string) ([]model.Message, error)
}

type EventStore interface {
	CreateBatch(ctx context.Context, events []*model.DetectedEvent) error
	CountByDocument(ctx context.Context, docID string) (int, error)
	ListByDocument(ctx context.Context, userID, docID string) ([]model.DetectedEvent, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]model.DetectedEvent, error)
}

type VectorIndex interface {
	UpsertChunks(ctx context.Context, userID, documentID, kind string, chunks []*model.Chunk) error
	Search(ctx context.Context, userID, query string, limit int) ([]vecindex.Hit, error)
	DeleteByTenant(ctx context.Context, userID string) error
	DeleteByDocument(ctx context.Context, userID, documentID string) error
}

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
