package user

import "context"

// Repository is the identity provider's storage boundary. The engine only
// ever consumes stable user IDs from it; session handling lives elsewhere.
type Repository interface {
	Create(ctx context.Context, params CreateUserParams) (*User, error)
	// GetByID returns nil when the user does not exist.
	GetByID(ctx context.Context, id string) (*User, error)
	// GetByUsername returns the user and its password hash, or nil when absent.
	GetByUsername(ctx context.Context, username string) (*User, string, error)
}
