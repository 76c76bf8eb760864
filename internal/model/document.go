package model

const (
	DocumentKindText = "text"
	DocumentKindPDF  = "pdf"
)

const (
	DocumentStatusProcessing = "processing"
	DocumentStatusReady      = "ready"
	DocumentStatusFailed     = "failed"
)

type Document struct {
	ID         string `json:"id" db:"id"`
	UserID     string `json:"user_id" db:"user_id"`
	Title      string `json:"title" db:"title"`
	Kind       string `json:"kind" db:"kind"`
	Content    string `json:"content" db:"content"`
	Status     string `json:"status" db:"status"`
	FailReason string `json:"fail_reason,omitempty" db:"fail_reason"`
	BlobKey    string `json:"-" db:"blob_key"`
	Ctime      int64  `json:"ctime" db:"ctime"`
	Mtime      int64  `json:"mtime" db:"mtime"`
}
