package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/example/game-missions/internal/model"
	"github.com/example/game-missions/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts a user and returns its ID.  The creation timestamp the
// database assigns anchors the user's mission eligibility window.
func (r *UserRepo) Create(ctx context.Context, email, password string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash) VALUES (?,?)",
		email, hash)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,email,password_hash,created_at FROM users WHERE email=? LIMIT 1",
		email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	return u, err
}

// Exists reports whether a user id is present.
func (r *UserRepo) Exists(ctx context.Context, id uint64) (bool, error) {
	var count int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE id=?", id).Scan(&count)
	return count > 0, err
}

// GetCreatedAt returns the user's creation timestamp, or
// ErrUserNotFound when the id does not exist.
func (r *UserRepo) GetCreatedAt(ctx context.Context, id uint64) (time.Time, error) {
	var createdAt time.Time
	err := r.DB.QueryRowContext(ctx,
		"SELECT created_at FROM users WHERE id=? LIMIT 1", id).Scan(&createdAt)
	if err == sql.ErrNoRows {
		return time.Time{}, ErrUserNotFound
	}
	return createdAt, err
}
