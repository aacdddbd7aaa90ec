package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/MJSteenberg/xfinance/internal/domain/user"
)

// UserRepository implements user.Repository on PostgreSQL.
type UserRepository struct {
	db *DB
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, params user.CreateUserParams) (*user.User, error) {
	var u user.User
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO users (id, username, display_name, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id, username, display_name, created_at
	`, params.ID, params.Username, params.DisplayName, params.PasswordHash).Scan(
		&u.ID, &u.Username, &u.DisplayName, &u.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	var u user.User
	err := r.db.QueryRowContext(ctx, `
		SELECT id, username, display_name, created_at
		FROM users
		WHERE id = $1
	`, id).Scan(&u.ID, &u.Username, &u.DisplayName, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*user.User, string, error) {
	var u user.User
	var passwordHash string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, username, display_name, password_hash, created_at
		FROM users
		WHERE username = $1
	`, username).Scan(&u.ID, &u.Username, &u.DisplayName, &passwordHash, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to get user by username: %w", err)
	}
	return &u, passwordHash, nil
}
