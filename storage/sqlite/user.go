package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	autherrors "github.com/jrsteele09/go-otp-auth-server/internal/errors"
	"github.com/jrsteele09/go-otp-auth-server/users"
)

type userRepo struct {
	db *sql.DB
}

var _ users.UserRepo = (*userRepo)(nil)

func (r *userRepo) Create(ctx context.Context, user *users.User) error {
	query := `
		INSERT INTO users (id, username, password_hash, otp_secret, otp_verified, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.PasswordHash,
		user.OTPSecret,
		user.OTPVerified,
		user.CreatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: users.username") {
			return autherrors.ErrUserExists
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*users.User, error) {
	query := `
		SELECT id, username, password_hash, otp_secret, otp_verified, created_at
		FROM users
		WHERE username = ?
	`
	return r.scanUser(r.db.QueryRowContext(ctx, query, username))
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*users.User, error) {
	query := `
		SELECT id, username, password_hash, otp_secret, otp_verified, created_at
		FROM users
		WHERE id = ?
	`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *userRepo) SetOTPVerified(ctx context.Context, username string, verified bool) error {
	query := `UPDATE users SET otp_verified = ? WHERE username = ?`

	result, err := r.db.ExecContext(ctx, query, verified, username)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return autherrors.ErrUserNotFound
	}
	return nil
}

func (r *userRepo) scanUser(row *sql.Row) (*users.User, error) {
	user := &users.User{}
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.OTPSecret,
		&user.OTPVerified,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, autherrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}
