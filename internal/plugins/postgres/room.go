package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/IdiegeA21/chat-app/internal/core/domain"
)

type RoomRepo struct {
	db *sql.DB
}

func NewRoomRepository(db *sql.DB) *RoomRepo {
	return &RoomRepo{db: db}
}

const roomColumns = `r.id, r.name, r.description, r.is_private, r.invite_code, r.created_by, r.created_at`

type scanner interface {
	Scan(dest ...any) error
}

func (r *RoomRepo) CreateRoom(ctx context.Context, room *domain.Room) error {
	query := `
		INSERT INTO rooms (name, description, is_private, invite_code, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`
	invite := sql.NullString{String: room.InviteCode, Valid: room.InviteCode != ""}
	exec := GetExecutor(ctx, r.db)
	return exec.QueryRowContext(ctx, query, room.Name, room.Description, room.IsPrivate, invite, room.CreatedBy).
		Scan(&room.ID, &room.CreatedAt)
}

func (r *RoomRepo) GetRoom(ctx context.Context, id int64) (*domain.Room, error) {
	if id <= 0 {
		return nil, domain.ErrInvalidRoomID
	}
	query := `SELECT ` + roomColumns + ` FROM rooms r WHERE r.id = $1`
	return r.getOne(ctx, query, id)
}

func (r *RoomRepo) GetRoomByInviteCode(ctx context.Context, code string) (*domain.Room, error) {
	if code == "" {
		return nil, domain.ErrRoomNotFound
	}
	query := `SELECT ` + roomColumns + ` FROM rooms r WHERE r.invite_code = $1`
	return r.getOne(ctx, query, code)
}

func (r *RoomRepo) ListRoomsForUser(ctx context.Context, userID int64) ([]domain.RoomWithMembership, error) {
	query := `
		SELECT ` + roomColumns + `, m.role, m.joined_at
		FROM rooms r
		JOIN room_members m ON m.room_id = r.id
		WHERE m.user_id = $1
		ORDER BY r.id`
	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []domain.RoomWithMembership{}
	for rows.Next() {
		var rm domain.RoomWithMembership
		room, err := scanRoom(rows, &rm.Role, &rm.JoinedAt)
		if err != nil {
			return nil, err
		}
		rm.Room = *room
		out = append(out, rm)
	}
	return out, rows.Err()
}

func (r *RoomRepo) getOne(ctx context.Context, query string, arg any) (*domain.Room, error) {
	room, err := scanRoom(GetExecutor(ctx, r.db).QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRoomNotFound
	}
	return room, err
}

func scanRoom(s scanner, extra ...any) (*domain.Room, error) {
	var (
		room   domain.Room
		invite sql.NullString
	)
	dest := append([]any{
		&room.ID, &room.Name, &room.Description, &room.IsPrivate, &invite, &room.CreatedBy, &room.CreatedAt,
	}, extra...)
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}
	room.InviteCode = invite.String
	return &room, nil
}
