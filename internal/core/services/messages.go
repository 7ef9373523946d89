package services

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/IdiegeA21/chat-app/internal/core/contracts"
	"github.com/IdiegeA21/chat-app/internal/core/domain"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

type Pagination struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	HasMore bool `json:"hasMore"`
}

// MessagePage is one page of history, oldest message first.
type MessagePage struct {
	Messages   []domain.Message `json:"messages"`
	Pagination Pagination       `json:"pagination"`
}

type IMessageService interface {
	// History returns page of the room's messages, counting pages from the newest.
	History(ctx context.Context, userID, roomID int64, page, limit int) (*MessagePage, error)
	// Post persists a message sent over HTTP and broadcasts it to live subscribers.
	Post(ctx context.Context, user *domain.User, roomID int64, content string) (*domain.Message, error)
}

type MessageService struct {
	log       *slog.Logger
	messages  domain.MessageRepository
	members   domain.MembershipRepository
	transport contracts.Transport
}

func NewMessageService(
	log *slog.Logger,
	messages domain.MessageRepository,
	members domain.MembershipRepository,
	transport contracts.Transport,
) *MessageService {
	return &MessageService{log: log, messages: messages, members: members, transport: transport}
}

func (s *MessageService) History(ctx context.Context, userID, roomID int64, page, limit int) (*MessagePage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	isMember, err := s.members.IsMember(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, domain.ErrNotAMember
	}
	msgs, err := s.messages.ListRoomMessages(ctx, roomID, limit, (page-1)*limit)
	if err != nil {
		s.log.ErrorContext(ctx, "messages - history - list failed", "room_id", roomID, "err", err)
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	return &MessagePage{
		Messages:   msgs,
		Pagination: Pagination{Page: page, Limit: limit, HasMore: len(msgs) == limit},
	}, nil
}

func (s *MessageService) Post(ctx context.Context, user *domain.User, roomID int64, content string) (*domain.Message, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, domain.ErrEmptyMessage
	}
	if utf8.RuneCountInString(content) > MaxMessageLength {
		return nil, domain.ErrMessageTooLong
	}
	isMember, err := s.members.IsMember(ctx, roomID, user.ID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, domain.ErrNotAMember
	}
	msg := &domain.Message{
		RoomID:  roomID,
		UserID:  user.ID,
		Content: trimmed,
		Type:    domain.MessageText,
	}
	if err := s.messages.CreateMessage(ctx, msg); err != nil {
		s.log.ErrorContext(ctx, "messages - post - create message failed", "room_id", roomID, "user_id", user.ID, "err", err)
		return nil, err
	}
	msg.Username = user.Username
	if s.transport != nil {
		s.transport.EmitToRoom(ctx, roomID, domain.EventReceiveMessage, domain.MessagePayload{
			ID:        msg.ID,
			Content:   msg.Content,
			UserID:    user.ID,
			Username:  user.Username,
			RoomID:    roomID,
			CreatedAt: msg.CreatedAt,
		}, "")
	}
	return msg, nil
}
