package repositories

import (
	"context"

	"github.com/orbitsocial/backend/internal/models"
)

// PostRepository defines data access for feed posts.
type PostRepository interface {
	Create(ctx context.Context, post models.Post) error
	ListFeed(ctx context.Context, userID string) ([]models.Post, error)
	MarkAssetReady(ctx context.Context, postID, location string, size int64) error
	MarkAssetFailed(ctx context.Context, postID string) error
}

// ModerationRepository defines the single-write moderation operations.
type ModerationRepository interface {
	CreateReport(ctx context.Context, report models.Report) error
	CreateBlock(ctx context.Context, block models.Block) error
}
