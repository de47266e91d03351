package users

import "context"

type UserRepo interface {
	// Create persists a new user. Returns errors.ErrUserExists if the
	// username is already taken.
	Create(ctx context.Context, user *User) error
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	// SetOTPVerified flips the verification flag. This is the only
	// post-creation mutation a user record receives.
	SetOTPVerified(ctx context.Context, username string, verified bool) error
}
