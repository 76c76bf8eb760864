package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/1Kunalvats9/dorry-backend/internal/model"
)

const (
	minExtractableRunes = 50
	maxExcerptRunes     = 1000
	minEventConfidence  = 0.6
)

type ExtractResult struct {
	Skipped  bool `json:"skipped"`
	Detected int  `json:"detected"`
}

// EventService mines scheduled events (meetings, deadlines, recurring
// activities) out of ingested documents. Extraction is best-effort: model and
// parse failures degrade to zero events and never reach the caller.
type EventService struct {
	events EventStore
	chunks ChunkStore
	gen    Generator
	locks  *keyedMutex
}

func NewEventService(events EventStore, chunks ChunkStore, gen Generator) *EventService {
	return &EventService{events: events, chunks: chunks, gen: gen, locks: newKeyedMutex()}
}

// Extract runs at most once per document: if any event already exists the
// call is a no-op. Documents with less than 50 characters of text are skipped
// as carrying too little signal.
func (s *EventService) Extract(ctx context.Context, userID, docID string) (*ExtractResult, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("doc_id", docID), zap.String("user_id", userID))

	// The ingestion task and the backfill sweep can both reach the same
	// document; the existence check and the insert must not interleave.
	s.locks.Lock(docID)
	defer s.locks.Unlock(docID)

	existing, err := s.events.CountByDocument(ctx, docID)
	if err != nil {
		return nil, err
	}
	if existing > 0 {
		return &ExtractResult{Skipped: true}, nil
	}

	chunks, err := s.chunks.ListByDocument(ctx, userID, docID)
	if err != nil {
		return nil, err
	}
	texts := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		texts = append(texts, chunk.Content)
	}
	combined := strings.Join(texts, " ")
	if len([]rune(combined)) < minExtractableRunes {
		return &ExtractResult{Skipped: true}, nil
	}

	output, err := s.gen.Generate(ctx, extractionPrompt(combined))
	if err != nil {
		logger.Warn("event extraction model call failed", zap.Error(err))
		return &ExtractResult{}, nil
	}

	candidates := parseEventCandidates(output)
	if len(candidates) == 0 {
		return &ExtractResult{}, nil
	}

	excerpt := combined
	if runes := []rune(combined); len(runes) > maxExcerptRunes {
		excerpt = string(runes[:maxExcerptRunes])
	}

	now := time.Now().UnixMilli()
	events := make([]*model.DetectedEvent, 0, len(candidates))
	for _, candidate := range candidates {
		event, ok := sanitizeEvent(candidate)
		if !ok {
			continue
		}
		event.ID = newID()
		event.UserID = userID
		event.DocumentID = docID
		event.SourceText = excerpt
		event.Ctime = now
		events = append(events, event)
	}
	if len(events) == 0 {
		return &ExtractResult{}, nil
	}
	if err := s.events.CreateBatch(ctx, events); err != nil {
		return nil, err
	}
	logger.Info("events detected", zap.Int("count", len(events)))
	return &ExtractResult{Detected: len(events)}, nil
}

func (s *EventService) ListByDocument(ctx context.Context, userID, docID string) ([]model.DetectedEvent, error) {
	return s.events.ListByDocument(ctx, userID, docID)
}

func (s *EventService) ListByUser(ctx context.Context, userID string, limit int) ([]model.DetectedEvent, error) {
	return s.events.ListByUser(ctx, userID, limit)
}

func extractionPrompt(text string) string {
	return fmt.Sprintf(`You are an assistant that finds scheduled events in documents.
From the text below, extract only events with an explicitly stated time or schedule: meetings, deadlines, recurring activities.
Return ONLY a JSON array, no prose. Each element has this shape:
{"title": "short event name", "start_time": "ISO 8601 datetime or null", "end_time": "ISO 8601 datetime or null", "recurrence": "natural description like 'every Monday' or null", "confidence": 0.0 to 1.0}
If the text contains no such events, return [].

TEXT:
%s`, text)
}

type eventCandidate struct {
	Title      *string  `json:"title"`
	StartTime  *string  `json:"start_time"`
	EndTime    *string  `json:"end_time"`
	Recurrence *string  `json:"recurrence"`
	Confidence *float64 `json:"confidence"`
}

// parseEventCandidates tolerates the model wrapping its JSON in a fenced code
// block or surrounding prose: direct parse first, then the outermost array
// substring. Anything unparseable counts as zero events.
func parseEventCandidates(output string) []json.RawMessage {
	clean := strings.TrimSpace(output)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)

	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(clean), &raw); err == nil {
		return raw
	}
	start := strings.Index(clean, "[")
	end := strings.LastIndex(clean, "]")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(clean[start:end+1]), &raw); err == nil {
			return raw
		}
	}
	return nil
}

// sanitizeEvent validates one candidate record. Rejections: missing or
// mistyped title, non-numeric confidence, confidence below 0.6, and records
// that end up with no start, no end, and no recurrence after defensive time
// parsing (a title alone carries no actionable schedule).
func sanitizeEvent(raw json.RawMessage) (*model.DetectedEvent, bool) {
	var candidate eventCandidate
	if err := json.Unmarshal(raw, &candidate); err != nil {
		return nil, false
	}
	if candidate.Title == nil {
		return nil, false
	}
	title := strings.TrimSpace(*candidate.Title)
	if title == "" {
		return nil, false
	}
	if candidate.Confidence == nil {
		return nil, false
	}
	confidence := *candidate.Confidence
	if confidence < minEventConfidence {
		return nil, false
	}
	if confidence > 1 {
		confidence = 1
	}

	start := parseEventTime(candidate.StartTime)
	end := parseEventTime(candidate.EndTime)
	recurrence := ""
	if candidate.Recurrence != nil {
		recurrence = strings.TrimSpace(*candidate.Recurrence)
	}
	if start == nil && end == nil && recurrence == "" {
		return nil, false
	}
	return &model.DetectedEvent{
		Title:      title,
		StartTime:  start,
		EndTime:    end,
		Recurrence: recurrence,
		Confidence: confidence,
	}, true
}

var eventTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	"January 2, 2006 3:04 PM",
	"January 2, 2006",
}

// parseEventTime parses a model-supplied timestamp defensively: anything the
// known layouts cannot handle becomes nil instead of failing the record.
func parseEventTime(value *string) *time.Time {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" || strings.EqualFold(trimmed, "null") {
		return nil
	}
	for _, layout := range eventTimeLayouts {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			return &parsed
		}
	}
	return nil
}
