package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/IdiegeA21/chat-app/internal/core/contracts"
	"github.com/IdiegeA21/chat-app/internal/core/domain"
	"github.com/google/uuid"
)

// RoomEvictor unwires a user's live connections from a room after the
// membership row is gone.
type RoomEvictor interface {
	EvictFromRoom(ctx context.Context, userID, roomID int64)
}

type RoomService struct {
	log     *slog.Logger
	rooms   domain.RoomRepository
	members domain.MembershipRepository
	tx      contracts.Transactor
	evictor RoomEvictor
}

func NewRoomService(
	log *slog.Logger,
	rooms domain.RoomRepository,
	members domain.MembershipRepository,
	tx contracts.Transactor,
	evictor RoomEvictor,
) *RoomService {
	return &RoomService{log: log, rooms: rooms, members: members, tx: tx, evictor: evictor}
}

// CreateRoom stores the room and makes the creator its admin in one
// transaction. Private rooms get an 8 character invite code.
func (s *RoomService) CreateRoom(ctx context.Context, userID int64, name, description string, isPrivate bool) (*domain.Room, error) {
	room := &domain.Room{
		Name:        name,
		Description: description,
		IsPrivate:   isPrivate,
		CreatedBy:   userID,
	}
	if isPrivate {
		room.InviteCode = uuid.NewString()[:8]
	}
	err := s.tx.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.rooms.CreateRoom(txCtx, room); err != nil {
			return err
		}
		return s.members.AddMember(txCtx, &domain.Membership{
			RoomID: room.ID,
			UserID: userID,
			Role:   domain.RoleAdmin,
		})
	})
	if err != nil {
		s.log.ErrorContext(ctx, "rooms - create room - transaction failed", "user_id", userID, "err", err)
		return nil, err
	}
	s.log.InfoContext(ctx, "rooms - create room - success", "room_id", room.ID, "user_id", userID, "private", isPrivate)
	return room, nil
}

// JoinRoom adds a membership, looking the room up by id or by invite code.
// A private room needs its invite code either way.
func (s *RoomService) JoinRoom(ctx context.Context, userID, roomID int64, inviteCode string) (*domain.Room, error) {
	var (
		room *domain.Room
		err  error
	)
	switch {
	case roomID > 0:
		room, err = s.rooms.GetRoom(ctx, roomID)
	case inviteCode != "":
		room, err = s.rooms.GetRoomByInviteCode(ctx, inviteCode)
	default:
		return nil, domain.ErrInvalidRoomID
	}
	if err != nil {
		return nil, err
	}
	isMember, err := s.members.IsMember(ctx, room.ID, userID)
	if err != nil {
		return nil, err
	}
	if isMember {
		return nil, domain.ErrAlreadyMember
	}
	if room.IsPrivate && (inviteCode == "" || inviteCode != room.InviteCode) {
		return nil, domain.ErrInviteRequired
	}
	if err := s.members.AddMember(ctx, &domain.Membership{
		RoomID: room.ID,
		UserID: userID,
		Role:   domain.RoleMember,
	}); err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "rooms - join room - success", "room_id", room.ID, "user_id", userID)
	return room, nil
}

func (s *RoomService) ListRooms(ctx context.Context, userID int64) ([]domain.RoomWithMembership, error) {
	return s.rooms.ListRoomsForUser(ctx, userID)
}

// Members lists a room's members. Only members may look.
func (s *RoomService) Members(ctx context.Context, userID, roomID int64) ([]domain.Member, error) {
	isMember, err := s.members.IsMember(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, domain.ErrNotAMember
	}
	return s.members.ListMembers(ctx, roomID)
}

// LeaveRoom deletes the membership and unwires any live connections.
func (s *RoomService) LeaveRoom(ctx context.Context, userID, roomID int64) error {
	if err := s.members.RemoveMember(ctx, roomID, userID); err != nil {
		if !errors.Is(err, domain.ErrNotAMember) {
			s.log.ErrorContext(ctx, "rooms - leave room - remove member failed", "room_id", roomID, "user_id", userID, "err", err)
		}
		return err
	}
	if s.evictor != nil {
		s.evictor.EvictFromRoom(ctx, userID, roomID)
	}
	s.log.InfoContext(ctx, "rooms - leave room - success", "room_id", roomID, "user_id", userID)
	return nil
}
