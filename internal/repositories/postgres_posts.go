package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/orbitsocial/backend/internal/db"
	"github.com/orbitsocial/backend/internal/models"
)

// PostgresPostRepository provides PostgreSQL-backed persistence for feed posts.
type PostgresPostRepository struct {
	pool db.Pool
}

// NewPostgresPostRepository constructs a post repository backed by PostgreSQL.
func NewPostgresPostRepository(pool db.Pool) *PostgresPostRepository {
	return &PostgresPostRepository{pool: pool}
}

// Create stores a new post record.
func (r *PostgresPostRepository) Create(ctx context.Context, post models.Post) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	status := post.AssetStatus
	if strings.TrimSpace(post.ImageURL) != "" && status == models.AssetStatusNone {
		status = models.AssetStatusPending
	}

	_, err = conn.Exec(ctx, `
        INSERT INTO posts (id, owner_id, body, image_url, asset_url, asset_status, asset_size, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `, post.ID, post.OwnerID, post.Body, post.ImageURL, post.AssetURL, status, post.AssetSize, post.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return ErrConflict
			case "23503":
				return ErrNotFound
			}
		}
		return fmt.Errorf("insert post: %w", err)
	}

	return nil
}

// ListFeed returns a reverse chronological feed: the user's own posts plus
// posts from everyone on their friend list, minus blocked authors.
func (r *PostgresPostRepository) ListFeed(ctx context.Context, userID string) ([]models.Post, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT id, owner_id, body, image_url, asset_url, asset_status, asset_size, created_at
        FROM posts
        WHERE (owner_id = $1
               OR owner_id IN (SELECT friend_id FROM friend_list_entries WHERE owner_id = $1))
          AND owner_id NOT IN (SELECT blocked_id FROM blocks WHERE blocker_id = $1)
        ORDER BY created_at DESC
        LIMIT 100
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("query post feed: %w", err)
	}
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		var post models.Post
		if err := rows.Scan(&post.ID, &post.OwnerID, &post.Body, &post.ImageURL, &post.AssetURL, &post.AssetStatus, &post.AssetSize, &post.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, post)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate post feed: %w", err)
	}

	return posts, nil
}

// MarkAssetReady updates a post's asset metadata after successful mirroring.
func (r *PostgresPostRepository) MarkAssetReady(ctx context.Context, postID, location string, size int64) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE posts
        SET asset_status = $2,
            asset_url = $3,
            asset_size = $4
        WHERE id = $1
    `, postID, models.AssetStatusReady, location, size)
	if err != nil {
		return fmt.Errorf("update post asset status ready: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// MarkAssetFailed records a failed mirroring attempt for the provided post.
func (r *PostgresPostRepository) MarkAssetFailed(ctx context.Context, postID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE posts
        SET asset_status = $2,
            asset_url = '',
            asset_size = 0
        WHERE id = $1
    `, postID, models.AssetStatusFailed)
	if err != nil {
		return fmt.Errorf("update post asset status failed: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// PostgresModerationRepository persists reports and blocks.
type PostgresModerationRepository struct {
	pool db.Pool
}

// NewPostgresModerationRepository constructs a moderation repository backed by PostgreSQL.
func NewPostgresModerationRepository(pool db.Pool) *PostgresModerationRepository {
	return &PostgresModerationRepository{pool: pool}
}

// CreateReport stores a moderation report.
func (r *PostgresModerationRepository) CreateReport(ctx context.Context, report models.Report) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	postID := sql.NullString{String: report.PostID, Valid: report.PostID != ""}

	_, err = conn.Exec(ctx, `
        INSERT INTO reports (id, reporter_id, subject_id, post_id, reason, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, report.ID, report.ReporterID, report.SubjectID, postID, report.Reason, report.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrNotFound
		}
		return fmt.Errorf("insert report: %w", err)
	}

	return nil
}

// CreateBlock stores a block edge. Blocking the same user twice is a no-op.
func (r *PostgresModerationRepository) CreateBlock(ctx context.Context, block models.Block) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO blocks (blocker_id, blocked_id, created_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (blocker_id, blocked_id) DO NOTHING
    `, block.BlockerID, block.BlockedID, block.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrNotFound
		}
		return fmt.Errorf("insert block: %w", err)
	}

	return nil
}

var _ PostRepository = (*PostgresPostRepository)(nil)
var _ ModerationRepository = (*PostgresModerationRepository)(nil)
