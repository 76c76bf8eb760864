package model

import "time"

// DetectedEvent is a schedule entry mined from a document by the event
// extractor. At most one extraction pass ever writes events for a given
// document.
type DetectedEvent struct {
	ID         string     `json:"id" db:"id"`
	UserID     string     `json:"user_id" db:"user_id"`
	DocumentID string     `json:"document_id" db:"document_id"`
	Title      string     `json:"title" db:"title"`
	StartTime  *time.Time `json:"start_time,omitempty" db:"start_time"`
	EndTime    *time.Time `json:"end_time,omitempty" db:"end_time"`
	Recurrence string     `json:"recurrence,omitempty" db:"recurrence"`
	Confidence float64    `json:"confidence" db:"confidence"`
	SourceText string     `json:"source_text" db:"source_text"`
	Ctime      int64      `json:"ctime" db:"ctime"`
}
