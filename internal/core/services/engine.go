package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/IdiegeA21/chat-app/internal/core/contracts"
	"github.com/IdiegeA21/chat-app/internal/core/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MaxMessageLength is counted in characters, before trimming.
const MaxMessageLength = 1000

var tracer = otel.Tracer("chat-engine")

// Authenticator resolves a bearer token to a user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.User, error)
}

type MembershipReader interface {
	IsMember(ctx context.Context, roomID, userID int64) (bool, error)
	ListMembershipsFor(ctx context.Context, userID int64) ([]domain.Membership, error)
	ListMembers(ctx context.Context, roomID int64) ([]domain.Member, error)
}

type RoomReader interface {
	GetRoom(ctx context.Context, roomID int64) (*domain.Room, error)
}

type OnlineWriter interface {
	SetOnline(ctx context.Context, userID int64, online bool, at time.Time) error
}

type MessageWriter interface {
	CreateMessage(ctx context.Context, msg *domain.Message) error
}

// EngineDeps groups the collaborators of the engine. Mirror is optional.
type EngineDeps struct {
	Auth      Authenticator
	Members   MembershipReader
	Rooms     RoomReader
	Users     OnlineWriter
	Messages  MessageWriter
	Transport contracts.Transport
	Presence  *PresenceRegistry
	Typing    *TypingRegistry
	Limiter   *RateLimiter
	Mirror    contracts.PresenceStore
	MirrorTTL time.Duration
}

// Engine owns the per-connection session state machine and routes room
// events to the right set of live connections.
type Engine struct {
	log       *slog.Logger
	auth      Authenticator
	members   MembershipReader
	rooms     RoomReader
	users     OnlineWriter
	messages  MessageWriter
	transport contracts.Transport
	presence  *PresenceRegistry
	typing    *TypingRegistry
	limiter   *RateLimiter
	mirror    contracts.PresenceStore
	mirrorTTL time.Duration

	mu       sync.RWMutex
	sessions map[string]*domain.Session
	now      func() time.Time
}

func NewEngine(log *slog.Logger, deps EngineDeps) *Engine {
	if deps.Presence == nil {
		deps.Presence = NewPresenceRegistry()
	}
	if deps.Typing == nil {
		deps.Typing = NewTypingRegistry()
	}
	if deps.Limiter == nil {
		deps.Limiter = NewRateLimiter(DefaultMessagePolicy, DefaultTypingPolicy)
	}
	if deps.MirrorTTL <= 0 {
		deps.MirrorTTL = time.Minute
	}
	return &Engine{
		log:       log,
		auth:      deps.Auth,
		members:   deps.Members,
		rooms:     deps.Rooms,
		users:     deps.Users,
		messages:  deps.Messages,
		transport: deps.Transport,
		presence:  deps.Presence,
		typing:    deps.Typing,
		limiter:   deps.Limiter,
		mirror:    deps.Mirror,
		mirrorTTL: deps.MirrorTTL,
		sessions:  make(map[string]*domain.Session),
		now:       time.Now,
	}
}

// WithClock replaces the time source used for timestamps. Used by tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// HandleEvent decodes one inbound frame and dispatches it. Frames of a single
// connection must be passed in arrival order, one at a time.
func (e *Engine) HandleEvent(ctx context.Context, connID string, raw []byte) error {
	var env domain.Envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Event == "" {
		e.emitError(ctx, connID, domain.EventError, "Invalid payload")
		return domain.ErrInvalidPayload
	}
	switch env.Event {
	case domain.EventAuthenticate:
		token, err := decodeToken(env.Data)
		if err != nil {
			e.rejectAuth(ctx, connID, "Invalid token")
			return domain.ErrInvalidToken
		}
		return e.Authenticate(ctx, connID, token)
	case domain.EventJoinRoom, domain.EventLeaveRoom, domain.EventTypingStart, domain.EventTypingStop:
		var req domain.RoomRequest
		if err := json.Unmarshal(env.Data, &req); err != nil || req.RoomID <= 0 {
			e.emitError(ctx, connID, domain.EventError, "Invalid payload")
			return domain.ErrInvalidPayload
		}
		switch env.Event {
		case domain.EventJoinRoom:
			return e.JoinRoom(ctx, connID, req.RoomID)
		case domain.EventLeaveRoom:
			return e.LeaveRoom(ctx, connID, req.RoomID)
		case domain.EventTypingStart:
			return e.TypingStart(ctx, connID, req.RoomID)
		default:
			return e.TypingStop(ctx, connID, req.RoomID)
		}
	case domain.EventSendMessage:
		var req domain.SendMessageRequest
		if err := json.Unmarshal(env.Data, &req); err != nil || req.RoomID <= 0 {
			e.emitError(ctx, connID, domain.EventMessageError, "Invalid payload")
			return domain.ErrInvalidPayload
		}
		return e.SendMessage(ctx, connID, req.RoomID, req.Content)
	default:
		e.emitError(ctx, connID, domain.EventError, "Unknown event: "+env.Event)
		return fmt.Errorf("%w: %s", domain.ErrUnknownEvent, env.Event)
	}
}

// Authenticate binds a session to the connection. On failure the connection
// receives auth_error and is closed.
func (e *Engine) Authenticate(ctx context.Context, connID, token string) error {
	ctx, span := tracer.Start(ctx, "Engine.Authenticate", trace.WithAttributes(
		attribute.String("conn_id", connID),
	))
	defer span.End()
	if _, ok := e.session(connID); ok {
		e.emitError(ctx, connID, domain.EventError, "Already authenticated")
		return domain.ErrAlreadyAuthenticated
	}
	user, err := e.auth.Authenticate(ctx, token)
	if err != nil || user == nil {
		span.RecordError(domain.ErrInvalidToken)
		span.SetStatus(codes.Error, "invalid token")
		e.log.WarnContext(ctx, "engine - authenticate - invalid token", "conn_id", connID, "err", err)
		e.rejectAuth(ctx, connID, "Invalid token")
		return domain.ErrInvalidToken
	}
	span.SetAttributes(attribute.Int64("user_id", user.ID))
	memberships, err := e.members.ListMembershipsFor(ctx, user.ID)
	if err != nil {
		return e.failAuth(ctx, span, connID, user.ID, "list memberships", err)
	}
	rooms := roomIDs(memberships)
	now := e.now()
	if err := e.users.SetOnline(ctx, user.ID, true, now); err != nil {
		return e.failAuth(ctx, span, connID, user.ID, "set online", err)
	}

	sess := domain.NewSession(connID, user.ID, user.Username, rooms)
	e.mu.Lock()
	e.sessions[connID] = sess
	e.mu.Unlock()
	cameOnline := e.presence.Add(user.ID, connID)
	for _, roomID := range rooms {
		e.transport.Subscribe(connID, roomID)
	}
	if cameOnline {
		e.mirrorOnline(ctx, user.ID)
	}

	status := domain.StatusPayload{UserID: user.ID, Username: user.Username, IsOnline: true, Timestamp: now}
	for _, roomID := range rooms {
		e.transport.EmitToRoom(ctx, roomID, domain.EventUserStatus, status, "")
	}
	e.transport.EmitTo(ctx, connID, domain.EventAuthenticated, domain.AuthenticatedPayload{
		User:  domain.UserRef{ID: user.ID, Username: user.Username},
		Rooms: rooms,
	})
	span.SetStatus(codes.Ok, "authenticated")
	e.log.InfoContext(ctx, "engine - authenticate - success", "conn_id", connID, "user_id", user.ID, "rooms", len(rooms))
	return nil
}

// JoinRoom wires the connection into a room it is already a persisted member of.
func (e *Engine) JoinRoom(ctx context.Context, connID string, roomID int64) error {
	ctx, span := tracer.Start(ctx, "Engine.JoinRoom", trace.WithAttributes(
		attribute.String("conn_id", connID),
		attribute.Int64("room_id", roomID),
	))
	defer span.End()
	sess, ok := e.session(connID)
	if !ok {
		e.emitError(ctx, connID, domain.EventError, "Not authenticated")
		return domain.ErrNotAuthenticated
	}
	sess.Lock()
	defer sess.Unlock()
	isMember, err := e.members.IsMember(ctx, roomID, sess.UserID)
	if err != nil {
		return e.persistenceFailure(ctx, span, connID, domain.EventError, "Failed to join room", "join room - is member", err)
	}
	if !isMember {
		e.log.InfoContext(ctx, "engine - join room - not a member", "conn_id", connID, "user_id", sess.UserID, "room_id", roomID)
		e.emitError(ctx, connID, domain.EventError, "Not a member of this room")
		return domain.ErrNotAMember
	}
	room, err := e.rooms.GetRoom(ctx, roomID)
	if errors.Is(err, domain.ErrRoomNotFound) {
		e.emitError(ctx, connID, domain.EventError, "Room not found")
		return err
	}
	if err != nil {
		return e.persistenceFailure(ctx, span, connID, domain.EventError, "Failed to join room", "join room - get room", err)
	}
	members, err := e.members.ListMembers(ctx, roomID)
	if err != nil {
		return e.persistenceFailure(ctx, span, connID, domain.EventError, "Failed to join room", "join room - list members", err)
	}

	e.transport.Subscribe(connID, roomID)
	e.addRoom(sess, roomID)

	e.transport.EmitTo(ctx, connID, domain.EventRoomJoined, domain.RoomJoinedPayload{
		Room: domain.RoomInfo{
			ID:          room.ID,
			Name:        room.Name,
			Description: room.Description,
			IsPrivate:   room.IsPrivate,
		},
		Members: e.memberStatuses(roomID, members),
	})
	e.transport.EmitToRoom(ctx, roomID, domain.EventUserOnline, domain.PresencePayload{
		UserID:   sess.UserID,
		Username: sess.Username,
	}, connID)
	e.log.InfoContext(ctx, "engine - join room - success", "conn_id", connID, "user_id", sess.UserID, "room_id", roomID)
	return nil
}

// LeaveRoom unwires the connection from a room. Membership is not touched.
func (e *Engine) LeaveRoom(ctx context.Context, connID string, roomID int64) error {
	sess, ok := e.session(connID)
	if !ok {
		e.emitError(ctx, connID, domain.EventError, "Not authenticated")
		return domain.ErrNotAuthenticated
	}
	sess.Lock()
	defer sess.Unlock()
	e.leave(ctx, sess, roomID)
	return nil
}

// leave unwires sess from roomID. Caller holds the session lock.
func (e *Engine) leave(ctx context.Context, sess *domain.Session, roomID int64) {
	e.transport.Unsubscribe(sess.ConnID, roomID)
	e.removeRoom(sess, roomID)
	e.transport.EmitTo(ctx, sess.ConnID, domain.EventRoomLeft, domain.RoomLeftPayload{RoomID: roomID})
	e.transport.EmitToRoom(ctx, roomID, domain.EventUserOffline, domain.PresencePayload{
		UserID:   sess.UserID,
		Username: sess.Username,
	}, sess.ConnID)
	e.log.InfoContext(ctx, "engine - leave room - success", "conn_id", sess.ConnID, "user_id", sess.UserID, "room_id", roomID)
}

// SendMessage validates, persists and broadcasts a chat message. Checks run
// in order: empty, length, rate limit, membership.
func (e *Engine) SendMessage(ctx context.Context, connID string, roomID int64, content string) error {
	ctx, span := tracer.Start(ctx, "Engine.SendMessage", trace.WithAttributes(
		attribute.String("conn_id", connID),
		attribute.Int64("room_id", roomID),
		attribute.Int("content_length", len(content)),
	))
	defer span.End()
	sess, ok := e.session(connID)
	if !ok {
		e.emitError(ctx, connID, domain.EventMessageError, "Not authenticated")
		return domain.ErrNotAuthenticated
	}
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		e.emitError(ctx, connID, domain.EventMessageError, "Message content cannot be empty")
		return domain.ErrEmptyMessage
	}
	if utf8.RuneCountInString(content) > MaxMessageLength {
		e.emitError(ctx, connID, domain.EventMessageError, "Message too long")
		return domain.ErrMessageTooLong
	}
	if !e.limiter.AllowMessage(sess.UserID) {
		e.log.InfoContext(ctx, "engine - send message - rate limited", "user_id", sess.UserID, "room_id", roomID)
		e.emitError(ctx, connID, domain.EventMessageError, "Rate limit exceeded")
		return domain.ErrRateLimited
	}
	isMember, err := e.members.IsMember(ctx, roomID, sess.UserID)
	if err != nil {
		return e.persistenceFailure(ctx, span, connID, domain.EventMessageError, "Failed to send message", "send message - is member", err)
	}
	if !isMember {
		e.emitError(ctx, connID, domain.EventMessageError, "Not a member of this room")
		return domain.ErrNotAMember
	}
	msg := &domain.Message{
		RoomID:  roomID,
		UserID:  sess.UserID,
		Content: trimmed,
		Type:    domain.MessageText,
	}
	if err := e.messages.CreateMessage(ctx, msg); err != nil {
		return e.persistenceFailure(ctx, span, connID, domain.EventMessageError, "Failed to send message", "send message - create message", err)
	}
	span.SetAttributes(attribute.Int64("message_id", msg.ID))

	e.transport.EmitToRoom(ctx, roomID, domain.EventReceiveMessage, domain.MessagePayload{
		ID:        msg.ID,
		Content:   msg.Content,
		UserID:    sess.UserID,
		Username:  sess.Username,
		RoomID:    roomID,
		CreatedAt: msg.CreatedAt,
	}, "")
	e.stopTyping(ctx, sess, roomID)
	e.log.DebugContext(ctx, "engine - send message - success", "user_id", sess.UserID, "room_id", roomID, "message_id", msg.ID)
	return nil
}

// TypingStart flags the user as typing. Over-limit calls and rooms the
// connection has not joined are dropped without telling the client.
func (e *Engine) TypingStart(ctx context.Context, connID string, roomID int64) error {
	sess, ok := e.session(connID)
	if !ok {
		return domain.ErrNotAuthenticated
	}
	if !e.joined(sess, roomID) {
		return domain.ErrNotAMember
	}
	if !e.limiter.AllowTyping(sess.UserID) {
		return domain.ErrRateLimited
	}
	e.typing.Start(roomID, sess.UserID)
	e.transport.EmitToRoom(ctx, roomID, domain.EventUserTyping, domain.TypingPayload{
		UserID:   sess.UserID,
		Username: sess.Username,
		RoomID:   roomID,
		IsTyping: true,
	}, connID)
	return nil
}

// TypingStop is never rate limited and is idempotent. Outside a joined room
// the flag is cleared without a broadcast.
func (e *Engine) TypingStop(ctx context.Context, connID string, roomID int64) error {
	sess, ok := e.session(connID)
	if !ok {
		return domain.ErrNotAuthenticated
	}
	if !e.joined(sess, roomID) {
		e.typing.Stop(roomID, sess.UserID)
		return domain.ErrNotAMember
	}
	e.stopTyping(ctx, sess, roomID)
	return nil
}

// Disconnect tears down the connection's session. Presence only changes when
// the user's last connection goes away.
func (e *Engine) Disconnect(ctx context.Context, connID string) error {
	ctx, span := tracer.Start(ctx, "Engine.Disconnect", trace.WithAttributes(
		attribute.String("conn_id", connID),
	))
	defer span.End()
	sess, ok := e.session(connID)
	if !ok {
		return nil
	}
	sess.Lock()
	e.mu.Lock()
	live := e.sessions[connID] == sess
	delete(e.sessions, connID)
	rooms := sortedRooms(sess)
	e.mu.Unlock()
	sess.Unlock()
	if !live {
		return nil
	}
	for _, roomID := range rooms {
		e.transport.Unsubscribe(connID, roomID)
	}
	if !e.presence.Remove(sess.UserID, connID) {
		e.log.InfoContext(ctx, "engine - disconnect - user still online", "conn_id", connID, "user_id", sess.UserID)
		return nil
	}

	now := e.now()
	var persistErr error
	if err := e.users.SetOnline(ctx, sess.UserID, false, now); err != nil {
		span.RecordError(err)
		e.log.ErrorContext(ctx, "engine - disconnect - set offline failed", "user_id", sess.UserID, "err", err)
		persistErr = fmt.Errorf("%w: %w", domain.ErrPersistenceUnavailable, err)
	}
	e.limiter.ClearUser(sess.UserID)
	e.typing.ClearUser(sess.UserID)
	e.mirrorOffline(ctx, sess.UserID, now)

	status := domain.StatusPayload{UserID: sess.UserID, Username: sess.Username, IsOnline: false, Timestamp: now}
	for _, roomID := range rooms {
		e.transport.EmitToRoom(ctx, roomID, domain.EventUserStatus, status, connID)
	}
	e.log.InfoContext(ctx, "engine - disconnect - user offline", "conn_id", connID, "user_id", sess.UserID, "rooms", len(rooms))
	return persistErr
}

// EvictFromRoom runs LeaveRoom for every live connection of the user that is
// wired into roomID. Called once the membership row has been deleted.
func (e *Engine) EvictFromRoom(ctx context.Context, userID, roomID int64) {
	for _, connID := range e.presence.Connections(userID) {
		sess, ok := e.session(connID)
		if !ok {
			continue
		}
		e.evict(ctx, sess, roomID)
	}
}

// evict waits for any join in flight on the connection, then leaves roomID
// if the session is still live and wired into it.
func (e *Engine) evict(ctx context.Context, sess *domain.Session, roomID int64) {
	sess.Lock()
	defer sess.Unlock()
	e.mu.RLock()
	live := e.sessions[sess.ConnID] == sess
	e.mu.RUnlock()
	if !live || !e.joined(sess, roomID) {
		return
	}
	e.leave(ctx, sess, roomID)
}

// IsOnline reports live presence for a user.
func (e *Engine) IsOnline(userID int64) bool {
	return e.presence.IsOnline(userID)
}

// OnlineUsers returns the users with at least one live connection.
func (e *Engine) OnlineUsers() []int64 {
	return e.presence.OnlineUsers()
}

// Stats returns the number of online users and live authenticated connections.
func (e *Engine) Stats() (users, connections int) {
	return e.presence.Count(), e.presence.ConnectionCount()
}

// SessionRooms returns the rooms the connection is wired into, or false if
// the connection has no session.
func (e *Engine) SessionRooms(connID string) ([]int64, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	sess, ok := e.sessions[connID]
	if !ok {
		return nil, false
	}
	return sortedRooms(sess), true
}

func (e *Engine) stopTyping(ctx context.Context, sess *domain.Session, roomID int64) {
	e.typing.Stop(roomID, sess.UserID)
	e.transport.EmitToRoom(ctx, roomID, domain.EventUserTyping, domain.TypingPayload{
		UserID:   sess.UserID,
		Username: sess.Username,
		RoomID:   roomID,
		IsTyping: false,
	}, sess.ConnID)
}

func (e *Engine) memberStatuses(roomID int64, members []domain.Member) []domain.MemberStatus {
	typing := make(map[int64]struct{})
	for _, id := range e.typing.TypingUsersIn(roomID) {
		typing[id] = struct{}{}
	}
	out := make([]domain.MemberStatus, 0, len(members))
	for _, m := range members {
		_, isTyping := typing[m.UserID]
		out = append(out, domain.MemberStatus{
			ID:       m.UserID,
			Username: m.Username,
			IsOnline: e.presence.IsOnline(m.UserID),
			IsTyping: isTyping,
			LastSeen: m.LastSeen,
			Role:     m.Role,
			JoinedAt: m.JoinedAt,
		})
	}
	return out
}

func (e *Engine) session(connID string) (*domain.Session, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.sessions[connID]
	return s, ok
}

func (e *Engine) joined(sess *domain.Session, roomID int64) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := sess.Rooms[roomID]
	return ok
}

func (e *Engine) addRoom(sess *domain.Session, roomID int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	sess.Rooms[roomID] = struct{}{}
}

func (e *Engine) removeRoom(sess *domain.Session, roomID int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(sess.Rooms, roomID)
}

func (e *Engine) emitError(ctx context.Context, connID, event, msg string) {
	e.transport.EmitTo(ctx, connID, event, domain.ErrorPayload{Error: msg})
}

func (e *Engine) rejectAuth(ctx context.Context, connID, msg string) {
	e.emitError(ctx, connID, domain.EventAuthError, msg)
	e.transport.Close(connID)
}

func (e *Engine) failAuth(ctx context.Context, span trace.Span, connID string, userID int64, step string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, step+" failed")
	e.log.ErrorContext(ctx, "engine - authenticate - "+step+" failed", "conn_id", connID, "user_id", userID, "err", err)
	e.rejectAuth(ctx, connID, "Authentication failed")
	return fmt.Errorf("%w: %w", domain.ErrPersistenceUnavailable, err)
}

func (e *Engine) persistenceFailure(ctx context.Context, span trace.Span, connID, event, clientMsg, step string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, step+" failed")
	e.log.ErrorContext(ctx, "engine - "+step+" failed", "conn_id", connID, "err", err)
	e.emitError(ctx, connID, event, clientMsg)
	return fmt.Errorf("%w: %w", domain.ErrPersistenceUnavailable, err)
}

func (e *Engine) mirrorOnline(ctx context.Context, userID int64) {
	if e.mirror == nil {
		return
	}
	if err := e.mirror.MarkOnline(ctx, userID, e.mirrorTTL); err != nil {
		e.log.WarnContext(ctx, "engine - presence mirror - mark online failed", "user_id", userID, "err", err)
	}
}

func (e *Engine) mirrorOffline(ctx context.Context, userID int64, at time.Time) {
	if e.mirror == nil {
		return
	}
	if err := e.mirror.MarkOffline(ctx, userID, at); err != nil {
		e.log.WarnContext(ctx, "engine - presence mirror - mark offline failed", "user_id", userID, "err", err)
	}
}

// decodeToken accepts either a bare JSON string or {"token": "..."}.
func decodeToken(data json.RawMessage) (string, error) {
	var token string
	if err := json.Unmarshal(data, &token); err == nil {
		return token, nil
	}
	var req domain.AuthenticateRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return "", err
	}
	return req.Token, nil
}

func roomIDs(memberships []domain.Membership) []int64 {
	out := make([]int64, 0, len(memberships))
	for _, m := range memberships {
		out = append(out, m.RoomID)
	}
	return out
}

func sortedRooms(sess *domain.Session) []int64 {
	if sess == nil {
		return nil
	}
	out := make([]int64, 0, len(sess.Rooms))
	for id := range sess.Rooms {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
