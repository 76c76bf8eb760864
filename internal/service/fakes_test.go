package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/1Kunalvats9/dorry-backend/internal/model"
	appErr "github.com/1Kunalvats9/dorry-backend/internal/pkg/errors"
	"github.com/1Kunalvats9/dorry-backend/internal/vecindex"
)

type memDocStore struct {
	mu   sync.Mutex
	docs map[string]*model.Document
}

func newMemDocStore() *memDocStore {
	return &memDocStore{docs: make(map[string]*model.Document)}
}

func (s *memDocStore) Create(_ context.Context, doc *model.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *doc
	s.docs[doc.ID] = &cp
	return nil
}

func (s *memDocStore) GetByID(_ context.Context, userID, docID string) (*model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[docID]
	if !ok || doc.UserID != userID {
		return nil, appErr.ErrNotFound
	}
	cp := *doc
	return &cp, nil
}

func (s *memDocStore) ListByUser(_ context.Context, userID string, limit, offset int) ([]model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Document
	for _, doc := range s.docs {
		if doc.UserID == userID {
			out = append(out, *doc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ctime > out[j].Ctime })
	return out, nil
}

func (s *memDocStore) SetContent(_ context.Context, userID, docID, content string, mtime int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[docID]
	if !ok || doc.UserID != userID {
		return appErr.ErrNotFound
	}
	doc.Content = content
	doc.Status = model.DocumentStatusReady
	doc.FailReason = ""
	doc.Mtime = mtime
	return nil
}

func (s *memDocStore) MarkFailed(_ context.Context, userID, docID, reason string, mtime int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[docID]
	if !ok || doc.UserID != userID {
		return appErr.ErrNotFound
	}
	doc.Status = model.DocumentStatusFailed
	doc.FailReason = reason
	doc.Mtime = mtime
	return nil
}

func (s *memDocStore) ClearBlobKey(_ context.Context, userID, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[docID]
	if !ok || doc.UserID != userID {
		return appErr.ErrNotFound
	}
	doc.BlobKey = ""
	return nil
}

func (s *memDocStore) DeleteByUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, doc := range s.docs {
		if doc.UserID == userID {
			delete(s.docs, id)
		}
	}
	return nil
}

func (s *memDocStore) Delete(_ context.Context, userID, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[docID]
	if !ok || doc.UserID != userID {
		return appErr.ErrNotFound
	}
	delete(s.docs, docID)
	return nil
}

type memChunkStore struct {
	mu     sync.Mutex
	chunks map[string][]model.Chunk // keyed by document id
}

func newMemChunkStore() *memChunkStore {
	return &memChunkStore{chunks: make(map[string][]model.Chunk)}
}

func (s *memChunkStore) CreateBatch(_ context.Context, chunks []*model.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, chunk := range chunks {
		s.chunks[chunk.DocumentID] = append(s.chunks[chunk.DocumentID], *chunk)
	}
	return nil
}

func (s *memChunkStore) UpdatePointIDs(_ context.Context, chunks []*model.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, chunk := range chunks {
		stored := s.chunks[chunk.DocumentID]
		for i := range stored {
			if stored[i].ID == chunk.ID {
				stored[i].PointID = chunk.PointID
			}
		}
	}
	return nil
}

func (s *memChunkStore) ListByDocument(_ context.Context, userID, docID string) ([]model.Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Chunk
	for _, chunk := range s.chunks[docID] {
		if chunk.UserID == userID {
			out = append(out, chunk)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

type memConvStore struct {
	mu       sync.Mutex
	convs    map[string]*model.Conversation
	messages map[string][]model.Message
}

func newMemConvStore() *memConvStore {
	return &memConvStore{
		convs:    make(map[string]*model.Conversation),
		messages: make(map[string][]model.Message),
	}
}

func (s *memConvStore) Create(_ context.Context, conv *model.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *conv
	s.convs[conv.ID] = &cp
	return nil
}

func (s *memConvStore) GetByID(_ context.Context, userID, convID string) (*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.convs[convID]
	if !ok || conv.UserID != userID {
		return nil, appErr.ErrNotFound
	}
	cp := *conv
	return &cp, nil
}

func (s *memConvStore) ListByUser(_ context.Context, userID string, limit, offset int) ([]model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Conversation
	for _, conv := range s.convs {
		if conv.UserID == userID {
			out = append(out, *conv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Mtime > out[j].Mtime })
	return out, nil
}

func (s *memConvStore) UpdateTitle(_ context.Context, userID, convID, title string, mtime int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.convs[convID]
	if !ok || conv.UserID != userID {
		return appErr.ErrNotFound
	}
	conv.Title = title
	conv.Mtime = mtime
	return nil
}

func (s *memConvStore) Touch(_ context.Context, userID, convID string, mtime int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.convs[convID]
	if !ok || conv.UserID != userID {
		return appErr.ErrNotFound
	}
	conv.Mtime = mtime
	return nil
}

func (s *memConvStore) AppendMessage(_ context.Context, msg *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg.Seq = len(s.messages[msg.ConversationID])
	s.messages[msg.ConversationID] = append(s.messages[msg.ConversationID], *msg)
	return nil
}

func (s *memConvStore) ListMessages(_ context.Context, convID string) ([]model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Message(nil), s.messages[convID]...), nil
}

type memEventStore struct {
	mu     sync.Mutex
	events []model.DetectedEvent
}

func newMemEventStore() *memEventStore {
	return &memEventStore{}
}

func (s *memEventStore) CreateBatch(_ context.Context, events []*model.DetectedEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, event := range events {
		s.events = append(s.events, *event)
	}
	return nil
}

func (s *memEventStore) CountByDocument(_ context.Context, docID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, event := range s.events {
		if event.DocumentID == docID {
			count++
		}
	}
	return count, nil
}

func (s *memEventStore) ListByDocument(_ context.Context, userID, docID string) ([]model.DetectedEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.DetectedEvent
	for _, event := range s.events {
		if event.UserID == userID && event.DocumentID == docID {
			out = append(out, event)
		}
	}
	return out, nil
}

func (s *memEventStore) ListByUser(_ context.Context, userID string, limit int) ([]model.DetectedEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.DetectedEvent
	for _, event := range s.events {
		if event.UserID == userID {
			out = append(out, event)
		}
	}
	return out, nil
}

// fakeIndex records upserts and serves canned search hits.
type fakeIndex struct {
	mu        sync.Mutex
	upserted  map[string][]model.Chunk // keyed by document id
	deleted   []string                 // document ids
	hits      []vecindex.Hit
	searchErr error
	upsertErr error
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{upserted: make(map[string][]model.Chunk)}
}

func (f *fakeIndex) UpsertChunks(_ context.Context, userID, documentID, kind string, chunks []*model.Chunk) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, chunk := range chunks {
		chunk.PointID = fmt.Sprintf("point-%s-%d", documentID, i)
		f.upserted[documentID] = append(f.upserted[documentID], *chunk)
	}
	return nil
}

func (f *fakeIndex) Search(_ context.Context, userID, query string, limit int) ([]vecindex.Hit, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if limit < len(f.hits) {
		return f.hits[:limit], nil
	}
	return f.hits, nil
}

func (f *fakeIndex) DeleteByTenant(_ context.Context, userID string) error {
	return nil
}

func (f *fakeIndex) DeleteByDocument(_ context.Context, userID, documentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, documentID)
	delete(f.upserted, documentID)
	return nil
}

// fakeGen replays scripted responses and records prompts.
type fakeGen struct {
	mu      sync.Mutex
	replies []string
	err     error
	prompts []string
}

func (f *fakeGen) Generate(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "", fmt.Errorf("no scripted reply")
	}
	reply := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	return reply, nil
}

func (f *fakeGen) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

type memBlobStore struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	deletes map[string]int
	saveErr error
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{blobs: make(map[string][]byte), deletes: make(map[string]int)}
}

func (s *memBlobStore) Save(_ context.Context, key string, r io.Reader, size int64) (string, error) {
	if s.saveErr != nil {
		return "", s.saveErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = data
	return key, nil
}

func (s *memBlobStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[key]
	if !ok {
		return nil, fmt.Errorf("blob not found: %s", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memBlobStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes[key]++
	delete(s.blobs, key)
	return nil
}

func (s *memBlobStore) deleteCount(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deletes[key]
}

type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) Extract(data []byte) (string, error) {
	return f.text, f.err
}
