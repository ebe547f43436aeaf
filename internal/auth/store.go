package auth

import "context"

// UserStore is the credential store. Lookups return business.ErrNotFound for unknown keys.
type UserStore interface {
	FindUserByLogin(ctx context.Context, login string) (User, error)
	FindUser(ctx context.Context, id string) (User, error)
	UpdateUser(ctx context.Context, u User) error
	UserOrganizations(ctx context.Context, userID string) ([]Organization, error)
}
