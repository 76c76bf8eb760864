package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/1Kunalvats9/dorry-backend/internal/model"
	appErr "github.com/1Kunalvats9/dorry-backend/internal/pkg/errors"
)

type ConversationRepo struct {
	db *sqlx.DB
}

func NewConversationRepo(db *sqlx.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

func (r *ConversationRepo) Create(ctx context.Context, conv *model.Conversation) error {
	const query = `
		INSERT INTO conversations (id, user_id, title, ctime, mtime)
		VALUES (:id, :user_id, :title, :ctime, :mtime)
	`
	_, err := r.db.NamedExecContext(ctx, query, conv)
	return err
}

func (r *ConversationRepo) GetByID(ctx context.Context, userID, convID string) (*model.Conversation, error) {
	const query = `SELECT * FROM conversations WHERE id = $1 AND user_id = $2`
	var conv model.Conversation
	if err := r.db.GetContext(ctx, &conv, query, convID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return &conv, nil
}

func (r *ConversationRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Conversation, error) {
	const query = `
		SELECT * FROM conversations
		WHERE user_id = $1
		ORDER BY mtime DESC
		LIMIT $2 OFFSET $3
	`
	if limit <= 0 {
		limit = 50
	}
	var convs []model.Conversation
	if err := r.db.SelectContext(ctx, &convs, query, userID, limit, offset); err != nil {
		return nil, err
	}
	return convs, nil
}

func (r *ConversationRepo) UpdateTitle(ctx context.Context, userID, convID, title string, mtime int64) error {
	const query = `UPDATE conversations SET title = $1, mtime = $2 WHERE id = $3 AND user_id = $4`
	_, err := r.db.ExecContext(ctx, query, title, mtime, convID, userID)
	return err
}

func (r *ConversationRepo) Touch(ctx context.Context, userID, convID string, mtime int64) error {
	const query = `UPDATE conversations SET mtime = $1 WHERE id = $2 AND user_id = $3`
	_, err := r.db.ExecContext(ctx, query, mtime, convID, userID)
	return err
}

// AppendMessage appends one turn at the next sequence number. Turns are
// strictly ordered and never reordered or truncated.
func (r *ConversationRepo) AppendMessage(ctx context.Context, msg *model.Message) error {
	const query = `
		INSERT INTO messages (id, conversation_id, role, content, seq, ctime)
		VALUES ($1, $2, $3, $4,
			(SELECT COALESCE(MAX(seq), -1) + 1 FROM messages WHERE conversation_id = $2),
			$5)
		RETURNING seq
	`
	return r.db.QueryRowContext(ctx, query,
		msg.ID, msg.ConversationID, msg.Role, msg.Content, msg.Ctime,
	).Scan(&msg.Seq)
}

func (r *ConversationRepo) ListMessages(ctx context.Context, convID string) ([]model.Message, error) {
	const query = `SELECT * FROM messages WHERE conversation_id = $1 ORDER BY seq`
	var msgs []model.Message
	if err := r.db.SelectContext(ctx, &msgs, query, convID); err != nil {
		return nil, err
	}
	return msgs, nil
}
