package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/IdiegeA21/chat-app/internal/core/domain"
)

type UserRepo struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

const userColumns = `id, username, email, password_hash, is_online, last_seen, created_at`

func (r *UserRepo) CreateUser(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (username, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, is_online, last_seen, created_at`
	exec := GetExecutor(ctx, r.db)
	err := exec.QueryRowContext(ctx, query, u.Username, u.Email, u.PasswordHash).
		Scan(&u.ID, &u.IsOnline, &u.LastSeen, &u.CreatedAt)
	if isUniqueViolation(err) {
		return domain.ErrUserExists
	}
	return err
}

func (r *UserRepo) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	if id <= 0 {
		return nil, domain.ErrInvalidUserID
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(GetExecutor(ctx, r.db).QueryRowContext(ctx, query, id))
}

func (r *UserRepo) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(GetExecutor(ctx, r.db).QueryRowContext(ctx, query, email))
}

// SetOnline writes the persisted presence flag and last_seen.
func (r *UserRepo) SetOnline(ctx context.Context, id int64, online bool, at time.Time) error {
	query := `UPDATE users SET is_online = $2, last_seen = $3 WHERE id = $1`
	exec := GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, query, id, online, at)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func scanUser(row *sql.Row) (*domain.User, error) {
	u := &domain.User{}
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsOnline, &u.LastSeen, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}
