package repo

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/1Kunalvats9/dorry-backend/internal/model"
)

type EventRepo struct {
	db *sqlx.DB
}

func NewEventRepo(db *sqlx.DB) *EventRepo {
	return &EventRepo{db: db}
}

func (r *EventRepo) CreateBatch(ctx context.Context, events []*model.DetectedEvent) error {
	if len(events) == 0 {
		return nil
	}
	const query = `
		INSERT INTO detected_events (id, user_id, document_id, title, start_time, end_time, recurrence, confidence, source_text, ctime)
		VALUES (:id, :user_id, :document_id, :title, :start_time, :end_time, :recurrence, :confidence, :source_text, :ctime)
	`
	_, err := r.db.NamedExecContext(ctx, query, events)
	return err
}

func (r *EventRepo) CountByDocument(ctx context.Context, docID string) (int, error) {
	const query = `SELECT COUNT(*) FROM detected_events WHERE document_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, docID); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *EventRepo) ListByDocument(ctx context.Context, userID, docID string) ([]model.DetectedEvent, error) {
	const query = `
		SELECT * FROM detected_events
		WHERE document_id = $1 AND user_id = $2
		ORDER BY start_time NULLS LAST, ctime
	`
	var events []model.DetectedEvent
	if err := r.db.SelectContext(ctx, &events, query, docID, userID); err != nil {
		return nil, err
	}
	return events, nil
}

func (r *EventRepo) ListByUser(ctx context.Context, userID string, limit int) ([]model.DetectedEvent, error) {
	const query = `
		SELECT * FROM detected_events
		WHERE user_id = $1
		ORDER BY start_time NULLS LAST, ctime
		LIMIT $2
	`
	if limit <= 0 {
		limit = 100
	}
	var events []model.DetectedEvent
	if err := r.db.SelectContext(ctx, &events, query, userID, limit); err != nil {
		return nil, err
	}
	return events, nil
}
