package repositories

import (
	"context"

	"github.com/orbitsocial/backend/internal/models"
)

// FriendRequestRepository defines data access for friend requests.
type FriendRequestRepository interface {
	CreateRequest(ctx context.Context, request models.FriendRequest) error
	ListForUser(ctx context.Context, userID string) ([]models.FriendRequest, error)
	AcceptedByReceiver(ctx context.Context, userID string) ([]models.FriendRequest, error)
	AcceptedBySender(ctx context.Context, userID string) ([]models.FriendRequest, error)
	UpdateStatus(ctx context.Context, requestID, status string) error
	Complete(ctx context.Context, requestID string) error
}

// FriendListRepository defines data access for directed friend edges.
// Append has set semantics: inserting an edge that already exists is a no-op.
type FriendListRepository interface {
	Entries(ctx context.Context, ownerID string) ([]models.FriendEntry, error)
	Append(ctx context.Context, ownerID string, entry models.FriendEntry) error
}
