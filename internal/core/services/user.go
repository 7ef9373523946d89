package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/IdiegeA21/chat-app/internal/core/domain"
	"golang.org/x/crypto/bcrypt"
)

// AuthResult is returned by register and login.
type AuthResult struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

type UserService struct {
	log    *slog.Logger
	repo   domain.UserRepository
	tokens *TokenService
	cost   int
	now    func() time.Time
}

func NewUserService(log *slog.Logger, repo domain.UserRepository, tokens *TokenService, bcryptCost int) *UserService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &UserService{log: log, repo: repo, tokens: tokens, cost: bcryptCost, now: time.Now}
}

// Register creates the account and issues a token for it.
func (s *UserService) Register(ctx context.Context, username, email, password string) (*AuthResult, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &domain.User{
		Username:     username,
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: string(hash),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if !errors.Is(err, domain.ErrUserExists) {
			s.log.ErrorContext(ctx, "user - register - create user failed", "email", user.Email, "err", err)
		}
		return nil, err
	}
	token, err := s.tokens.GenerateToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	s.log.InfoContext(ctx, "user - register - success", "user_id", user.ID)
	return &AuthResult{Token: token, User: user}, nil
}

// Login checks the password and marks the user online.
func (s *UserService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrInvalidCredential
	}
	if err != nil {
		s.log.ErrorContext(ctx, "user - login - get user failed", "err", err)
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.log.InfoContext(ctx, "user - login - wrong password", "user_id", user.ID)
		return nil, domain.ErrInvalidCredential
	}
	now := s.now()
	if err := s.repo.SetOnline(ctx, user.ID, true, now); err != nil {
		s.log.ErrorContext(ctx, "user - login - set online failed", "user_id", user.ID, "err", err)
		return nil, err
	}
	user.IsOnline, user.LastSeen = true, now
	token, err := s.tokens.GenerateToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	s.log.InfoContext(ctx, "user - login - success", "user_id", user.ID)
	return &AuthResult{Token: token, User: user}, nil
}

func (s *UserService) Logout(ctx context.Context, userID int64) error {
	if err := s.repo.SetOnline(ctx, userID, false, s.now()); err != nil {
		s.log.ErrorContext(ctx, "user - logout - set offline failed", "user_id", userID, "err", err)
		return err
	}
	return nil
}

func (s *UserService) Profile(ctx context.Context, userID int64) (*domain.User, error) {
	return s.repo.GetUserByID(ctx, userID)
}

// Authenticate verifies a bearer token and loads its user. Every failure is
// reported as ErrInvalidToken.
func (s *UserService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	userID, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			s.log.ErrorContext(ctx, "user - authenticate - get user failed", "user_id", userID, "err", err)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	return user, nil
}
