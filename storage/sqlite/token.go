package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	autherrors "github.com/jrsteele09/go-otp-auth-server/internal/errors"
	"github.com/jrsteele09/go-otp-auth-server/oauth2"
	"github.com/jrsteele09/go-otp-auth-server/token"
)

type tokenRepo struct {
	db *sql.DB
}

var _ token.Repo = (*tokenRepo)(nil)

const tokenColumns = `id, user_id, client_id, grant_type, scope, access_token,
	refresh_fingerprint, issued_at, lifetime_seconds, revoked`

func (r *tokenRepo) Insert(ctx context.Context, tok *token.Token) error {
	if err := insertToken(ctx, r.db, tok); err != nil {
		return err
	}
	return nil
}

func (r *tokenRepo) GetByAccessToken(ctx context.Context, accessToken string) (*token.Token, error) {
	query := `SELECT ` + tokenColumns + ` FROM oauth2_tokens WHERE access_token = ?`
	return scanToken(r.db.QueryRowContext(ctx, query, accessToken))
}

func (r *tokenRepo) GetByRefreshFingerprint(ctx context.Context, fingerprint string) (*token.Token, error) {
	query := `SELECT ` + tokenColumns + ` FROM oauth2_tokens WHERE refresh_fingerprint = ?`
	return scanToken(r.db.QueryRowContext(ctx, query, fingerprint))
}

// Rotate revokes the old token and inserts its replacement atomically. The
// revoked = 0 guard makes a concurrent double exchange lose: only one
// transaction sees an unrevoked row.
func (r *tokenRepo) Rotate(ctx context.Context, oldID string, replacement *token.Token) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	result, err := tx.ExecContext(ctx, `UPDATE oauth2_tokens SET revoked = 1 WHERE id = ? AND revoked = 0`, oldID)
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return autherrors.ErrTokenRevoked
	}

	if err := insertToken(ctx, tx, replacement); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rotation: %w", err)
	}
	return nil
}

func (r *tokenRepo) Revoke(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE oauth2_tokens SET revoked = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return autherrors.ErrTokenNotFound
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertToken(ctx context.Context, db execer, tok *token.Token) error {
	query := `
		INSERT INTO oauth2_tokens (` + tokenColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var userID, fingerprint sql.NullString
	if tok.UserID != "" {
		userID = sql.NullString{String: tok.UserID, Valid: true}
	}
	if tok.RefreshFingerprint != "" {
		fingerprint = sql.NullString{String: tok.RefreshFingerprint, Valid: true}
	}

	_, err := db.ExecContext(ctx, query,
		tok.ID,
		userID,
		tok.ClientID,
		string(tok.GrantType),
		tok.Scope,
		tok.AccessToken,
		fingerprint,
		tok.IssuedAt,
		int64(tok.Lifetime.Seconds()),
		tok.Revoked,
	)
	if err != nil {
		return fmt.Errorf("failed to insert token: %w", err)
	}
	return nil
}

func scanToken(row *sql.Row) (*token.Token, error) {
	tok := &token.Token{}
	var userID, fingerprint sql.NullString
	var grantType string
	var lifetimeSeconds int64

	err := row.Scan(
		&tok.ID,
		&userID,
		&tok.ClientID,
		&grantType,
		&tok.Scope,
		&tok.AccessToken,
		&fingerprint,
		&tok.IssuedAt,
		&lifetimeSeconds,
		&tok.Revoked,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, autherrors.ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	tok.UserID = userID.String
	tok.RefreshFingerprint = fingerprint.String
	tok.GrantType = oauth2.GrantType(grantType)
	tok.Lifetime = time.Duration(lifetimeSeconds) * time.Second
	return tok, nil
}
