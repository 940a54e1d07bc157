package profiles

import (
	"context"
	"errors"
	"fmt"

	"github.com/orbitsocial/backend/internal/models"
)

var (
	// ErrResolverUnavailable indicates the profile resolver is not configured.
	ErrResolverUnavailable = errors.New("profile resolver unavailable")
)

// Resolver maps user ids to display names.
type Resolver interface {
	Username(ctx context.Context, userID string) (string, error)
}

// UserFinder is the slice of the user repository the resolver needs.
type UserFinder interface {
	FindByID(ctx context.Context, id string) (models.User, error)
}

// RepositoryResolver resolves usernames from the user repository.
type RepositoryResolver struct {
	users UserFinder
}

// NewRepositoryResolver constructs a resolver backed by the user repository.
func NewRepositoryResolver(users UserFinder) *RepositoryResolver {
	return &RepositoryResolver{users: users}
}

// Username returns the display name stored for the user.
func (r *RepositoryResolver) Username(ctx context.Context, userID string) (string, error) {
	if r == nil || r.users == nil {
		return "", ErrResolverUnavailable
	}

	user, err := r.users.FindByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("resolve username for %s: %w", userID, err)
	}

	return user.Username, nil
}
