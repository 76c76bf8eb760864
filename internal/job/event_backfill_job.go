package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/1Kunalvats9/dorry-backend/internal/model"
	"github.com/1Kunalvats9/dorry-backend/internal/service"
)

const backfillBatchSize = 50

type backfillDocLister interface {
	ListWithoutEvents(ctx context.Context, limit int) ([]model.Document, error)
}

// EventBackfillJob sweeps ready documents that never got an event extraction
// pass, typically because the detached task was dropped or the process died
// mid-pipeline. Extraction is idempotent, so re-running a document is safe.
type EventBackfillJob struct {
	docs   backfillDocLister
	events *service.EventService
}

func NewEventBackfillJob(docs backfillDocLister, events *service.EventService) *EventBackfillJob {
	return &EventBackfillJob{docs: docs, events: events}
}

func (j *EventBackfillJob) Name() string {
	return "event_backfill"
}

func (j *EventBackfillJob) Run(ctx context.Context) error {
	docs, err := j.docs.ListWithoutEvents(ctx, backfillBatchSize)
	if err != nil {
		return err
	}
	logger := logutil.GetLogger(ctx)
	detected := 0
	for _, doc := range docs {
		result, err := j.events.Extract(ctx, doc.UserID, doc.ID)
		if err != nil {
			logger.Warn("backfill extraction failed", zap.String("doc_id", doc.ID), zap.Error(err))
			continue
		}
		detected += result.Detected
	}
	if len(docs) > 0 {
		logger.Info("event backfill swept", zap.Int("documents", len(docs)), zap.Int("detected", detected))
	}
	return nil
}
