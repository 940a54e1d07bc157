package handlers

import (
	"context"

	"github.com/orbitsocial/backend/internal/friends"
	"github.com/orbitsocial/backend/internal/models"
)

// UserStore captures the persistence operations required by the auth handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
}

// SessionManager issues and refreshes authentication tokens for users.
type SessionManager interface {
	Issue(ctx context.Context, userID string) (models.SessionTokens, error)
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error)
}

// FriendRequestStore captures request persistence required by the friend handlers.
type FriendRequestStore interface {
	CreateRequest(ctx context.Context, request models.FriendRequest) error
	ListForUser(ctx context.Context, userID string) ([]models.FriendRequest, error)
	UpdateStatus(ctx context.Context, requestID, status string) error
}

// FriendListStore exposes read access to a user's friend list.
type FriendListStore interface {
	Entries(ctx context.Context, ownerID string) ([]models.FriendEntry, error)
}

// FriendReconciler repairs friend edges and request statuses for a user.
type FriendReconciler interface {
	Run(ctx context.Context, session friends.Session) (friends.Report, error)
}

// UsernameResolver maps user ids to display names.
type UsernameResolver interface {
	Username(ctx context.Context, userID string) (string, error)
}

// PostStore captures persistence for the posting and feed workflows.
type PostStore interface {
	Create(ctx context.Context, post models.Post) error
	ListFeed(ctx context.Context, userID string) ([]models.Post, error)
}

// PostIngestor schedules background mirroring of post images.
type PostIngestor interface {
	Enqueue(ctx context.Context, post models.Post) error
}

// ModerationStore captures the single-write moderation operations.
type ModerationStore interface {
	CreateReport(ctx context.Context, report models.Report) error
	CreateBlock(ctx context.Context, block models.Block) error
}
