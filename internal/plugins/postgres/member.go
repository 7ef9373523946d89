package postgres

import (
	"context"
	"database/sql"

	"github.com/IdiegeA21/chat-app/internal/core/domain"
)

type MemberRepo struct {
	db *sql.DB
}

func NewMemberRepository(db *sql.DB) *MemberRepo {
	return &MemberRepo{db: db}
}

func (r *MemberRepo) IsMember(ctx context.Context, roomID, userID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM room_members WHERE room_id = $1 AND user_id = $2)`
	var ok bool
	err := GetExecutor(ctx, r.db).QueryRowContext(ctx, query, roomID, userID).Scan(&ok)
	return ok, err
}

func (r *MemberRepo) ListMembershipsFor(ctx context.Context, userID int64) ([]domain.Membership, error) {
	query := `
		SELECT room_id, user_id, role, joined_at
		FROM room_members
		WHERE user_id = $1
		ORDER BY room_id`
	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []domain.Membership{}
	for rows.Next() {
		var m domain.Membership
		if err := rows.Scan(&m.RoomID, &m.UserID, &m.Role, &m.JoinedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ListMembers returns the room's members joined with their user rows, in
// join order.
func (r *MemberRepo) ListMembers(ctx context.Context, roomID int64) ([]domain.Member, error) {
	query := `
		SELECT u.id, u.username, u.is_online, u.last_seen, m.role, m.joined_at
		FROM room_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.room_id = $1
		ORDER BY m.joined_at, u.id`
	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []domain.Member{}
	for rows.Next() {
		var m domain.Member
		if err := rows.Scan(&m.UserID, &m.Username, &m.IsOnline, &m.LastSeen, &m.Role, &m.JoinedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *MemberRepo) AddMember(ctx context.Context, m *domain.Membership) error {
	if m.Role == "" {
		m.Role = domain.RoleMember
	}
	query := `
		INSERT INTO room_members (room_id, user_id, role)
		VALUES ($1, $2, $3)
		RETURNING joined_at`
	err := GetExecutor(ctx, r.db).QueryRowContext(ctx, query, m.RoomID, m.UserID, m.Role).Scan(&m.JoinedAt)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyMember
	}
	return err
}

func (r *MemberRepo) RemoveMember(ctx context.Context, roomID, userID int64) error {
	query := `DELETE FROM room_members WHERE room_id = $1 AND user_id = $2`
	result, err := GetExecutor(ctx, r.db).ExecContext(ctx, query, roomID, userID)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return domain.ErrNotAMember
	}
	return nil
}
