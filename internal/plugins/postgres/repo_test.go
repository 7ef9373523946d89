package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/IdiegeA21/chat-app/internal/core/domain"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

var (
	ts       = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	dupErr   = &pgconn.PgError{Code: uniqueViolation}
	userCols = []string{"id", "username", "email", "password_hash", "is_online", "last_seen", "created_at"}
	roomCols = []string{"id", "name", "description", "is_private", "invite_code", "created_by", "created_at"}
	q        = regexp.QuoteMeta
	bg       = context.Background()
)

func TestUserRepo_CreateUser(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(q("INSERT INTO users")).
		WithArgs("alice", "a@example.com", "hash").
		WillReturnRows(sqlmock.NewRows([]string{"id", "is_online", "last_seen", "created_at"}).AddRow(7, false, ts, ts))
	u := &domain.User{Username: "alice", Email: "a@example.com", PasswordHash: "hash"}
	require.NoError(t, repo.CreateUser(bg, u))
	assert.Equal(t, int64(7), u.ID)
	assert.Equal(t, ts, u.CreatedAt)

	mock.ExpectQuery(q("INSERT INTO users")).WillReturnError(dupErr)
	assert.ErrorIs(t, repo.CreateUser(bg, &domain.User{Username: "alice"}), domain.ErrUserExists)
}

func TestUserRepo_Get(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(q("FROM users WHERE id = $1")).WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(7, "alice", "a@example.com", "hash", true, ts, ts))
	u, err := repo.GetUserByID(bg, 7)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.True(t, u.IsOnline)

	mock.ExpectQuery(q("FROM users WHERE email = $1")).WithArgs("nobody@example.com").
		WillReturnError(sql.ErrNoRows)
	_, err = repo.GetUserByEmail(bg, "nobody@example.com")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = repo.GetUserByID(bg, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidUserID)
}

func TestUserRepo_SetOnline(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(q("UPDATE users SET is_online = $2, last_seen = $3 WHERE id = $1")).
		WithArgs(int64(7), true, ts).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.SetOnline(bg, 7, true, ts))

	mock.ExpectExec(q("UPDATE users")).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.SetOnline(bg, 8, false, ts), domain.ErrUserNotFound)
}

func TestRoomRepo_CreateAndGet(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRoomRepository(db)

	mock.ExpectQuery(q("INSERT INTO rooms")).
		WithArgs("general", "", false, sql.NullString{}, int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(3, ts))
	room := &domain.Room{Name: "general", CreatedBy: 1}
	require.NoError(t, repo.CreateRoom(bg, room))
	assert.Equal(t, int64(3), room.ID)

	mock.ExpectQuery(q("FROM rooms r WHERE r.invite_code = $1")).WithArgs("abcd1234").
		WillReturnRows(sqlmock.NewRows(roomCols).AddRow(4, "secret", "", true, "abcd1234", 1, ts))
	got, err := repo.GetRoomByInviteCode(bg, "abcd1234")
	require.NoError(t, err)
	assert.True(t, got.IsPrivate)
	assert.Equal(t, "abcd1234", got.InviteCode)

	mock.ExpectQuery(q("FROM rooms r WHERE r.id = $1")).WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(roomCols).AddRow(3, "general", "", false, nil, 1, ts))
	got, err = repo.GetRoom(bg, 3)
	require.NoError(t, err)
	assert.Empty(t, got.InviteCode)

	mock.ExpectQuery(q("FROM rooms r WHERE r.id = $1")).WithArgs(int64(99)).WillReturnError(sql.ErrNoRows)
	_, err = repo.GetRoom(bg, 99)
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestRoomRepo_ListRoomsForUser(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRoomRepository(db)

	cols := append(append([]string{}, roomCols...), "role", "joined_at")
	mock.ExpectQuery(q("JOIN room_members m ON m.room_id = r.id")).WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(3, "general", "", false, nil, 1, ts, "admin", ts).
			AddRow(4, "secret", "", true, "abcd1234", 2, ts, "member", ts))

	rooms, err := repo.ListRoomsForUser(bg, 1)
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, domain.RoleAdmin, rooms[0].Role)
	assert.Equal(t, "secret", rooms[1].Name)
}

func TestMemberRepo(t *testing.T) {
	db, mock := newMock(t)
	repo := NewMemberRepository(db)

	mock.ExpectQuery(q("SELECT EXISTS")).WithArgs(int64(3), int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	ok, err := repo.IsMember(bg, 3, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectQuery(q("FROM room_members")).WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"room_id", "user_id", "role", "joined_at"}).
			AddRow(3, 1, "admin", ts).AddRow(4, 1, "member", ts))
	ms, err := repo.ListMembershipsFor(bg, 1)
	require.NoError(t, err)
	assert.Len(t, ms, 2)

	mock.ExpectQuery(q("JOIN users u ON u.id = m.user_id")).WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "is_online", "last_seen", "role", "joined_at"}).
			AddRow(1, "alice", true, ts, "admin", ts))
	members, err := repo.ListMembers(bg, 3)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "alice", members[0].Username)

	mock.ExpectQuery(q("INSERT INTO room_members")).WithArgs(int64(3), int64(2), "member").
		WillReturnRows(sqlmock.NewRows([]string{"joined_at"}).AddRow(ts))
	m := &domain.Membership{RoomID: 3, UserID: 2}
	require.NoError(t, repo.AddMember(bg, m))
	assert.Equal(t, domain.RoleMember, m.Role)

	mock.ExpectQuery(q("INSERT INTO room_members")).WillReturnError(dupErr)
	assert.ErrorIs(t, repo.AddMember(bg, &domain.Membership{RoomID: 3, UserID: 2}), domain.ErrAlreadyMember)

	mock.ExpectExec(q("DELETE FROM room_members")).WithArgs(int64(3), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.RemoveMember(bg, 3, 2), domain.ErrNotAMember)
}

func TestMessageRepo(t *testing.T) {
	db, mock := newMock(t)
	repo := NewMessageRepo(db)

	mock.ExpectQuery(q("INSERT INTO messages")).WithArgs(int64(3), int64(1), "hi", "text").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(11, ts))
	msg := &domain.Message{RoomID: 3, UserID: 1, Content: "hi"}
	require.NoError(t, repo.CreateMessage(bg, msg))
	assert.Equal(t, int64(11), msg.ID)
	assert.Equal(t, domain.MessageText, msg.Type)

	mock.ExpectQuery(q("ORDER BY m.created_at DESC, m.id DESC")).WithArgs(int64(3), 2, 4).
		WillReturnRows(sqlmock.NewRows([]string{"id", "room_id", "user_id", "username", "content", "message_type", "created_at"}).
			AddRow(11, 3, 1, "alice", "hi", "text", ts))
	msgs, err := repo.ListRoomMessages(bg, 3, 2, 4)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "alice", msgs[0].Username)

	mock.ExpectQuery(q("ORDER BY m.created_at DESC")).WillReturnError(errors.New("boom"))
	_, err = repo.ListRoomMessages(bg, 3, 2, 0)
	assert.Error(t, err)
}

func TestTxManager(t *testing.T) {
	db, mock := newMock(t)
	tm := NewTxManager(db)
	repo := NewMemberRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(q("DELETE FROM room_members")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	err := tm.WithTx(bg, func(ctx context.Context) error {
		return repo.RemoveMember(ctx, 1, 1)
	})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec(q("DELETE FROM room_members")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()
	err = tm.WithTx(bg, func(ctx context.Context) error {
		return tm.WithTx(ctx, func(inner context.Context) error {
			return repo.RemoveMember(inner, 1, 1)
		})
	})
	assert.ErrorIs(t, err, domain.ErrNotAMember)
}
