package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jrsteele09/go-otp-auth-server/clients"
	autherrors "github.com/jrsteele09/go-otp-auth-server/internal/errors"
)

type clientRepo struct {
	db *sql.DB
}

var _ clients.Repo = (*clientRepo)(nil)

func (r *clientRepo) Create(ctx context.Context, client *clients.Client) error {
	metadata, err := json.Marshal(client.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal client metadata: %w", err)
	}

	query := `
		INSERT INTO oauth2_clients (client_id, client_secret, client_name, client_metadata, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		client.ID,
		client.Secret,
		client.Name,
		string(metadata),
		client.CreatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: oauth2_clients.client_name") {
			return autherrors.ErrClientExists
		}
		return fmt.Errorf("failed to insert client: %w", err)
	}
	return nil
}

func (r *clientRepo) Get(ctx context.Context, clientID string) (*clients.Client, error) {
	query := `
		SELECT client_id, client_secret, client_name, client_metadata, created_at
		FROM oauth2_clients
		WHERE client_id = ?
	`

	client := &clients.Client{}
	var metadata string

	err := r.db.QueryRowContext(ctx, query, clientID).Scan(
		&client.ID,
		&client.Secret,
		&client.Name,
		&metadata,
		&client.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, autherrors.ErrClientNotFound
		}
		return nil, fmt.Errorf("failed to get client: %w", err)
	}

	if err := json.Unmarshal([]byte(metadata), &client.Metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal client metadata: %w", err)
	}
	return client, nil
}
