package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/1Kunalvats9/dorry-backend/internal/model"
)

func seedChunks(t *testing.T, store *memChunkStore, userID, docID, text string) {
	t.Helper()
	require.NoError(t, store.CreateBatch(context.Background(), []*model.Chunk{
		{ID: "chunk1", DocumentID: docID, UserID: userID, Content: text, Seq: 0},
	}))
}

const meetingText = "The weekly engineering sync happens every Monday at 10:00 in the main room, and the quarterly report is due on 2026-09-15."

func TestExtractDetectsEvents(t *testing.T) {
	events := newMemEventStore()
	chunks := newMemChunkStore()
	seedChunks(t, chunks, "u1", "d1", meetingText)
	gen := &fakeGen{replies: []string{`[
		{"title": "Engineering sync", "start_time": null, "end_time": null, "recurrence": "every Monday at 10:00", "confidence": 0.9},
		{"title": "Quarterly report deadline", "start_time": "2026-09-15", "end_time": null, "recurrence": null, "confidence": 0.85}
	]`}}
	svc := NewEventService(events, chunks, gen)

	result, err := svc.Extract(context.Background(), "u1", "d1")
	require.NoError(t, err)
	require.False(t, result.Skipped)
	require.Equal(t, 2, result.Detected)

	stored, err := events.ListByDocument(context.Background(), "u1", "d1")
	require.NoError(t, err)
	require.Len(t, stored, 2)
	require.Equal(t, "Engineering sync", stored[0].Title)
	require.Equal(t, "every Monday at 10:00", stored[0].Recurrence)
	require.Nil(t, stored[0].StartTime)
	require.NotNil(t, stored[1].StartTime)
	require.Equal(t, time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC), stored[1].StartTime.UTC())
	require.Equal(t, meetingText, stored[0].SourceText)
}

func TestExtractIdempotent(t *testing.T) {
	events := newMemEventStore()
	chunks := newMemChunkStore()
	seedChunks(t, chunks, "u1", "d1", meetingText)
	require.NoError(t, events.CreateBatch(context.Background(), []*model.DetectedEvent{
		{ID: "e1", UserID: "u1", DocumentID: "d1", Title: "existing"},
	}))
	gen := &fakeGen{err: fmt.Errorf("must not be called")}
	svc := NewEventService(events, chunks, gen)

	result, err := svc.Extract(context.Background(), "u1", "d1")
	require.NoError(t, err)
	require.True(t, result.Skipped)
	require.Empty(t, gen.prompts)
}

func TestExtractSkipsShortDocuments(t *testing.T) {
	events := newMemEventStore()
	chunks := newMemChunkStore()
	seedChunks(t, chunks, "u1", "d1", "too short")
	gen := &fakeGen{err: fmt.Errorf("must not be called")}
	svc := NewEventService(events, chunks, gen)

	result, err := svc.Extract(context.Background(), "u1", "d1")
	require.NoError(t, err)
	require.True(t, result.Skipped)
	require.Empty(t, gen.prompts)
}

// slowGen holds every generation open long enough that overlapping Extract
// calls would both be mid-flight without per-document serialization.
type slowGen struct {
	inner *fakeGen
}

func (g *slowGen) Generate(ctx context.Context, prompt string) (string, error) {
	time.Sleep(20 * time.Millisecond)
	return g.inner.Generate(ctx, prompt)
}

func TestExtractConcurrentCallsWriteOnce(t *testing.T) {
	events := newMemEventStore()
	chunks := newMemChunkStore()
	seedChunks(t, chunks, "u1", "d1", meetingText)
	gen := &fakeGen{replies: []string{`[{"title": "Sync", "recurrence": "weekly", "confidence": 0.9}]`}}
	svc := NewEventService(events, chunks, &slowGen{inner: gen})

	results := make([]*ExtractResult, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := svc.Extract(context.Background(), "u1", "d1")
			require.NoError(t, err)
			results[i] = result
		}(i)
	}
	wg.Wait()

	stored, err := events.ListByDocument(context.Background(), "u1", "d1")
	require.NoError(t, err)
	require.Len(t, stored, 1)

	detected, skipped := 0, 0
	for _, result := range results {
		if result.Skipped {
			skipped++
		}
		detected += result.Detected
	}
	require.Equal(t, 1, detected)
	require.Equal(t, 1, skipped)
}

func TestExtractModelFailureYieldsNoEvents(t *testing.T) {
	events := newMemEventStore()
	chunks := newMemChunkStore()
	seedChunks(t, chunks, "u1", "d1", meetingText)
	gen := &fakeGen{err: fmt.Errorf("model exploded")}
	svc := NewEventService(events, chunks, gen)

	result, err := svc.Extract(context.Background(), "u1", "d1")
	require.NoError(t, err)
	require.False(t, result.Skipped)
	require.Zero(t, result.Detected)
}

func TestExtractParsesFencedOutput(t *testing.T) {
	events := newMemEventStore()
	chunks := newMemChunkStore()
	seedChunks(t, chunks, "u1", "d1", meetingText)
	gen := &fakeGen{replies: []string{"```json\n[{\"title\": \"Standup\", \"recurrence\": \"daily\", \"confidence\": 0.8}]\n```"}}
	svc := NewEventService(events, chunks, gen)

	result, err := svc.Extract(context.Background(), "u1", "d1")
	require.NoError(t, err)
	require.Equal(t, 1, result.Detected)
}

func TestExtractParsesArrayBuriedInProse(t *testing.T) {
	events := newMemEventStore()
	chunks := newMemChunkStore()
	seedChunks(t, chunks, "u1", "d1", meetingText)
	gen := &fakeGen{replies: []string{`Here is what I found: [{"title": "Standup", "recurrence": "daily", "confidence": 0.8}] hope that helps!`}}
	svc := NewEventService(events, chunks, gen)

	result, err := svc.Extract(context.Background(), "u1", "d1")
	require.NoError(t, err)
	require.Equal(t, 1, result.Detected)
}

func TestExtractGarbageOutputYieldsNoEvents(t *testing.T) {
	events := newMemEventStore()
	chunks := newMemChunkStore()
	seedChunks(t, chunks, "u1", "d1", meetingText)
	gen := &fakeGen{replies: []string{"I could not find any events, sorry about that."}}
	svc := NewEventService(events, chunks, gen)

	result, err := svc.Extract(context.Background(), "u1", "d1")
	require.NoError(t, err)
	require.Zero(t, result.Detected)
}

func TestSanitizeEventRules(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		ok   bool
	}{
		{"confidence at threshold", `{"title": "Sync", "recurrence": "weekly", "confidence": 0.6}`, true},
		{"confidence below threshold", `{"title": "Sync", "recurrence": "weekly", "confidence": 0.59}`, false},
		{"confidence missing", `{"title": "Sync", "recurrence": "weekly"}`, false},
		{"confidence mistyped", `{"title": "Sync", "recurrence": "weekly", "confidence": "high"}`, false},
		{"title missing", `{"recurrence": "weekly", "confidence": 0.9}`, false},
		{"title blank", `{"title": "   ", "recurrence": "weekly", "confidence": 0.9}`, false},
		{"title only", `{"title": "Sync", "confidence": 0.9}`, false},
		{"unparseable time only", `{"title": "Sync", "start_time": "sometime next week", "confidence": 0.9}`, false},
		{"valid start time", `{"title": "Sync", "start_time": "2026-09-15T10:00:00Z", "confidence": 0.9}`, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, ok := sanitizeEvent([]byte(tc.raw))
			require.Equal(t, tc.ok, ok)
		})
	}
}

func TestSanitizeEventClampsConfidence(t *testing.T) {
	event, ok := sanitizeEvent([]byte(`{"title": "Sync", "recurrence": "weekly", "confidence": 1.7}`))
	require.True(t, ok)
	require.Equal(t, 1.0, event.Confidence)
}

func TestExtractCapsExcerpt(t *testing.T) {
	events := newMemEventStore()
	chunks := newMemChunkStore()
	seedChunks(t, chunks, "u1", "d1", strings.Repeat("meeting every Monday ", 200))
	gen := &fakeGen{replies: []string{`[{"title": "Sync", "recurrence": "every Monday", "confidence": 0.9}]`}}
	svc := NewEventService(events, chunks, gen)

	result, err := svc.Extract(context.Background(), "u1", "d1")
	require.NoError(t, err)
	require.Equal(t, 1, result.Detected)

	stored, err := events.ListByDocument(context.Background(), "u1", "d1")
	require.NoError(t, err)
	require.Len(t, stored[0].SourceText, maxExcerptRunes)
}
