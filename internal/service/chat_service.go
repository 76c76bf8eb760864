package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/1Kunalvats9/dorry-backend/internal/model"
	appErr "github.com/1Kunalvats9/dorry-backend/internal/pkg/errors"
	"github.com/1Kunalvats9/dorry-backend/internal/vecindex"
)

const (
	contextSeparator = "\n\n---\n\n"
	historyWindow    = 20
	titleMaxRunes    = 60
)

// ChunkRef identifies a retrieved chunk for the client. Chunk text stays
// internal to the composer and is never returned here.
type ChunkRef struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Score      float64 `json:"score"`
}

type ChatResult struct {
	ConversationID string     `json:"conversation_id"`
	Reply          string     `json:"reply"`
	References     []ChunkRef `json:"references"`
}

type Searcher interface {
	Search(ctx context.Context, userID, query string, limit int) ([]vecindex.Hit, error)
}

// ChatService assembles retrieved chunks and conversation history into a
// generation request, appending exactly one user turn and one assistant turn
// per successful request.
type ChatService struct {
	convs    ConversationStore
	searcher Searcher
	gen      Generator
	topK     int
	locks    *keyedMutex
}

func NewChatService(convs ConversationStore, searcher Searcher, gen Generator, topK int) *ChatService {
	if topK <= 0 {
		topK = 5
	}
	return &ChatService{
		convs:    convs,
		searcher: searcher,
		gen:      gen,
		topK:     topK,
		locks:    newKeyedMutex(),
	}
}

// Respond answers query inside the given conversation. With retrieval on it
// grounds the answer in the tenant's indexed chunks, falling back to plain
// conversation when nothing relevant is stored. A generation failure leaves
// the user turn in place with no paired assistant turn.
func (s *ChatService) Respond(ctx context.Context, userID, conversationID, query string, useRetrieval bool) (*ChatResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty message", appErr.ErrInvalid)
	}

	conv, err := s.openConversation(ctx, userID, conversationID, query)
	if err != nil {
		return nil, err
	}

	// One writer per conversation: concurrent requests against the same
	// conversation id queue up here instead of interleaving turns.
	s.locks.Lock(conv.ID)
	defer s.locks.Unlock(conv.ID)

	history, err := s.convs.ListMessages(ctx, conv.ID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UnixMilli()
	userMsg := &model.Message{
		ID:             newID(),
		ConversationID: conv.ID,
		Role:           model.RoleUser,
		Content:        query,
		Ctime:          now,
	}
	if err := s.convs.AppendMessage(ctx, userMsg); err != nil {
		return nil, err
	}

	var hits []vecindex.Hit
	if useRetrieval {
		hits, err = s.searcher.Search(ctx, userID, query, s.topK)
		if err != nil {
			return nil, err
		}
	}

	var prompt string
	if len(hits) > 0 {
		prompt = groundedPrompt(hits, history, query)
	} else {
		prompt = conversationalPrompt(history, query)
	}

	reply, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		logutil.GetLogger(ctx).Error("chat generation failed",
			zap.String("conversation_id", conv.ID), zap.Error(err))
		return nil, err
	}

	assistantMsg := &model.Message{
		ID:             newID(),
		ConversationID: conv.ID,
		Role:           model.RoleAssistant,
		Content:        reply,
		Ctime:          time.Now().UnixMilli(),
	}
	if err := s.convs.AppendMessage(ctx, assistantMsg); err != nil {
		return nil, err
	}
	if err := s.convs.Touch(ctx, userID, conv.ID, assistantMsg.Ctime); err != nil {
		logutil.GetLogger(ctx).Warn("touch conversation failed", zap.Error(err))
	}

	refs := make([]ChunkRef, 0, len(hits))
	for _, hit := range hits {
		refs = append(refs, ChunkRef{ChunkID: hit.ChunkID, DocumentID: hit.DocumentID, Score: hit.Score})
	}
	return &ChatResult{ConversationID: conv.ID, Reply: reply, References: refs}, nil
}

func (s *ChatService) ListConversations(ctx context.Context, userID string, limit, offset int) ([]model.Conversation, error) {
	return s.convs.ListByUser(ctx, userID, limit, offset)
}

func (s *ChatService) RenameConversation(ctx context.Context, userID, conversationID, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("%w: empty title", appErr.ErrInvalid)
	}
	if len([]rune(title)) > titleMaxRunes {
		title = string([]rune(title)[:titleMaxRunes])
	}
	if _, err := s.convs.GetByID(ctx, userID, conversationID); err != nil {
		return err
	}
	return s.convs.UpdateTitle(ctx, userID, conversationID, title, time.Now().UnixMilli())
}

func (s *ChatService) ListMessages(ctx context.Context, userID, conversationID string) ([]model.Message, error) {
	if _, err := s.convs.GetByID(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	return s.convs.ListMessages(ctx, conversationID)
}

func (s *ChatService) openConversation(ctx context.Context, userID, conversationID, query string) (*model.Conversation, error) {
	if conversationID != "" {
		return s.convs.GetByID(ctx, userID, conversationID)
	}
	now := time.Now().UnixMilli()
	conv := &model.Conversation{
		ID:     newID(),
		UserID: userID,
		Title:  deriveTitle(query),
		Ctime:  now,
		Mtime:  now,
	}
	if err := s.convs.Create(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

func deriveTitle(query string) string {
	runes := []rune(strings.TrimSpace(query))
	if len(runes) <= titleMaxRunes {
		return string(runes)
	}
	return string(runes[:titleMaxRunes])
}

func formatHistory(history []model.Message) string {
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	var sb strings.Builder
	for _, msg := range history {
		label := "User"
		if msg.Role == model.RoleAssistant {
			label = "Assistant"
		}
		sb.WriteString(label)
		sb.WriteString(": ")
		sb.WriteString(msg.Content)
		sb.WriteString("\n")
	}
	if sb.Len() == 0 {
		return "(none)"
	}
	return strings.TrimRight(sb.String(), "\n")
}

func groundedPrompt(hits []vecindex.Hit, history []model.Message, query string) string {
	texts := make([]string, 0, len(hits))
	for _, hit := range hits {
		texts = append(texts, hit.Text)
	}
	return fmt.Sprintf(`You are a personal assistant who knows the user's notes and documents inside out.
Use the reference material below to answer, speaking as if it were your own knowledge.
- Answer in the same language as the question.
- Never mention documents, sources, context, or how you know things.
- Be concise.

REFERENCE MATERIAL:
%s

CONVERSATION SO FAR:
%s

QUESTION:
%s`, strings.Join(texts, contextSeparator), formatHistory(history), query)
}

func conversationalPrompt(history []model.Message, query string) string {
	return fmt.Sprintf(`You are a helpful personal assistant.
- Answer in the same language as the question.
- Never mention documents, sources, context, or retrieval.
- Be concise.

CONVERSATION SO FAR:
%s

QUESTION:
%s`, formatHistory(history), query)
}
