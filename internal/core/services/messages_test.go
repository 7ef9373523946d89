package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/IdiegeA21/chat-app/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMessageService(repo *memRooms, tr *fakeTransport) *MessageService {
	return NewMessageService(slog.New(slog.NewTextHandler(io.Discard, nil)), repo, repo, tr)
}

func TestMessageService_PostBroadcasts(t *testing.T) {
	repo := newMemRooms()
	require.NoError(t, repo.AddMember(context.Background(), &domain.Membership{RoomID: 1, UserID: 1}))
	tr := newFakeTransport()
	tr.Subscribe("a1", 1)
	svc := newMessageService(repo, tr)

	msg, err := svc.Post(context.Background(), &domain.User{ID: 1, Username: "alice"}, 1, " hi ")

	require.NoError(t, err)
	assert.Equal(t, "hi", msg.Content)
	assert.Equal(t, "alice", msg.Username)
	got := tr.last(t, "a1", domain.EventReceiveMessage).(domain.MessagePayload)
	assert.Equal(t, msg.ID, got.ID)
}

func TestMessageService_PostValidation(t *testing.T) {
	repo := newMemRooms()
	require.NoError(t, repo.AddMember(context.Background(), &domain.Membership{RoomID: 1, UserID: 1}))
	svc := newMessageService(repo, newFakeTransport())
	alice := &domain.User{ID: 1, Username: "alice"}

	_, err := svc.Post(context.Background(), alice, 1, "  ")
	assert.ErrorIs(t, err, domain.ErrEmptyMessage)
	_, err = svc.Post(context.Background(), alice, 1, strings.Repeat("x", 1001))
	assert.ErrorIs(t, err, domain.ErrMessageTooLong)
	_, err = svc.Post(context.Background(), alice, 2, "hi")
	assert.ErrorIs(t, err, domain.ErrNotAMember)
	assert.Empty(t, repo.messages)
}

func TestMessageService_History(t *testing.T) {
	repo := newMemRooms()
	ctx := context.Background()
	require.NoError(t, repo.AddMember(ctx, &domain.Membership{RoomID: 1, UserID: 1}))
	svc := newMessageService(repo, newFakeTransport())
	alice := &domain.User{ID: 1, Username: "alice"}
	for i := 1; i <= 5; i++ {
		_, err := svc.Post(ctx, alice, 1, fmt.Sprintf("m%d", i))
		require.NoError(t, err)
	}

	first, err := svc.History(ctx, 1, 1, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"m4", "m5"}, contents(first.Messages))
	assert.True(t, first.Pagination.HasMore)

	last, err := svc.History(ctx, 1, 1, 3, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"m1"}, contents(last.Messages))
	assert.False(t, last.Pagination.HasMore)

	past, err := svc.History(ctx, 1, 1, 9, 2)
	require.NoError(t, err)
	assert.NotNil(t, past.Messages)
	assert.Empty(t, past.Messages)

	defaults, err := svc.History(ctx, 1, 1, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, Pagination{Page: 1, Limit: DefaultPageSize, HasMore: false}, defaults.Pagination)

	_, err = svc.History(ctx, 2, 1, 1, 10)
	assert.ErrorIs(t, err, domain.ErrNotAMember)
}

func contents(msgs []domain.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Content)
	}
	return out
}
