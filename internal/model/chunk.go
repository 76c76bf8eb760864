package model

// Chunk is the unit of embedding and retrieval: a bounded word-count slice
// of a document's text. Chunks are written once at ingestion time and ordered
// by Seq for reconstruction.
type Chunk struct {
	ID         string `json:"id" db:"id"`
	DocumentID string `json:"document_id" db:"document_id"`
	UserID     string `json:"user_id" db:"user_id"`
	Content    string `json:"content" db:"content"`
	Seq        int    `json:"seq" db:"seq"`
	PointID    string `json:"point_id,omitempty" db:"point_id"`
	Ctime      int64  `json:"ctime" db:"ctime"`
}
