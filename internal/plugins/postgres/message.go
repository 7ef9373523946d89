package postgres

import (
	"context"
	"database/sql"

	"github.com/IdiegeA21/chat-app/internal/core/domain"
)

type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{
		db: db,
	}
}

// CreateMessage inserts the message and fills ID and CreatedAt.
func (r *MessageRepo) CreateMessage(ctx context.Context, msg *domain.Message) error {
	if msg.RoomID <= 0 {
		return domain.ErrInvalidRoomID
	}
	if msg.Type == "" {
		msg.Type = domain.MessageText
	}
	query := `
		INSERT INTO messages (room_id, user_id, content, message_type)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`
	exec := GetExecutor(ctx, r.db)
	return exec.QueryRowContext(ctx, query, msg.RoomID, msg.UserID, msg.Content, msg.Type).
		Scan(&msg.ID, &msg.CreatedAt)
}

// ListRoomMessages returns newest first.
func (r *MessageRepo) ListRoomMessages(ctx context.Context, roomID int64, limit, offset int) ([]domain.Message, error) {
	if roomID <= 0 {
		return nil, domain.ErrInvalidRoomID
	}
	query := `
		SELECT m.id, m.room_id, m.user_id, u.username, m.content, m.message_type, m.created_at
		FROM messages m
		JOIN users u ON u.id = m.user_id
		WHERE m.room_id = $1
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT $2 OFFSET $3`
	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query, roomID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.RoomID, &m.UserID, &m.Username, &m.Content, &m.Type, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
