package clients

import "context"

type Repo interface {
	// Create persists a new client. Returns errors.ErrClientExists if the
	// client name is already registered.
	Create(ctx context.Context, client *Client) error
	Get(ctx context.Context, clientID string) (*Client, error)
}
