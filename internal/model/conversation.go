package model

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Conversation struct {
	ID     string `json:"id" db:"id"`
	UserID string `json:"user_id" db:"user_id"`
	Title  string `json:"title" db:"title"`
	Ctime  int64  `json:"ctime" db:"ctime"`
	Mtime  int64  `json:"mtime" db:"mtime"`
}

type Message struct {
	ID             string `json:"id" db:"id"`
	ConversationID string `json:"conversation_id" db:"conversation_id"`
	Role           string `json:"role" db:"role"`
	Content        string `json:"content" db:"content"`
	Seq            int    `json:"seq" db:"seq"`
	Ctime          int64  `json:"ctime" db:"ctime"`
}
