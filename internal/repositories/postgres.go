package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/orbitsocial/backend/internal/db"
	"github.com/orbitsocial/backend/internal/models"
)

// PostgresUserRepository provides PostgreSQL-backed persistence for users.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create persists a new user record.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, email, username, password_hash, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, user.ID, user.Email, user.Username, user.Password, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FindByEmail fetches a user by their email address.
func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, email, username, password_hash, created_at, updated_at
        FROM users
        WHERE email = $1
    `, email)

	return scanUser(row)
}

// FindByID fetches a user by their identifier.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, email, username, password_hash, created_at, updated_at
        FROM users
        WHERE id = $1
    `, id)

	return scanUser(row)
}

// Update modifies an existing user record.
func (r *PostgresUserRepository) Update(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET email = $2, username = $3, password_hash = $4, updated_at = $5
        WHERE id = $1
    `, user.ID, user.Email, user.Username, user.Password, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("update user: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	if err := row.Scan(&user.ID, &user.Email, &user.Username, &user.Password, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("select user: %w", err)
	}
	return user, nil
}

// PostgresFriendRequestRepository provides PostgreSQL-backed persistence for friend requests.
type PostgresFriendRequestRepository struct {
	pool db.Pool
}

// NewPostgresFriendRequestRepository constructs a friend request repository backed by PostgreSQL.
func NewPostgresFriendRequestRepository(pool db.Pool) *PostgresFriendRequestRepository {
	return &PostgresFriendRequestRepository{pool: pool}
}

// CreateRequest persists a new friend request.
func (r *PostgresFriendRequestRepository) CreateRequest(ctx context.Context, request models.FriendRequest) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO friend_requests (id, sender_id, receiver_id, status, sender_username, receiver_username, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `, request.ID, request.SenderID, request.ReceiverID, request.Status, request.SenderUsername, request.ReceiverUsername, request.CreatedAt, request.UpdatedAt)
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
		return fmt.Errorf("insert friend request: %w", err)
	}

	return nil
}

// ListForUser returns friend requests where the user is the sender or receiver.
func (r *PostgresFriendRequestRepository) ListForUser(ctx context.Context, userID string) ([]models.FriendRequest, error) {
	return r.queryRequests(ctx, `
        SELECT id, sender_id, receiver_id, status, sender_username, receiver_username, created_at, updated_at
        FROM friend_requests
        WHERE sender_id = $1 OR receiver_id = $1
        ORDER BY created_at DESC
    `, userID)
}

// AcceptedByReceiver returns accepted requests addressed to the user.
func (r *PostgresFriendRequestRepository) AcceptedByReceiver(ctx context.Context, userID string) ([]models.FriendRequest, error) {
	return r.queryRequests(ctx, `
        SELECT id, sender_id, receiver_id, status, sender_username, receiver_username, created_at, updated_at
        FROM friend_requests
        WHERE receiver_id = $1 AND status = 'accepted'
        ORDER BY created_at
    `, userID)
}

// AcceptedBySender returns accepted requests sent by the user.
func (r *PostgresFriendRequestRepository) AcceptedBySender(ctx context.Context, userID string) ([]models.FriendRequest, error) {
	return r.queryRequests(ctx, `
        SELECT id, sender_id, receiver_id, status, sender_username, receiver_username, created_at, updated_at
        FROM friend_requests
        WHERE sender_id = $1 AND status = 'accepted'
        ORDER BY created_at
    `, userID)
}

func (r *PostgresFriendRequestRepository) queryRequests(ctx context.Context, query, userID string) ([]models.FriendRequest, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query friend requests: %w", err)
	}
	defer rows.Close()

	var requests []models.FriendRequest
	for rows.Next() {
		var (
			req       models.FriendRequest
			updatedAt sql.NullTime
		)

		if err := rows.Scan(&req.ID, &req.SenderID, &req.ReceiverID, &req.Status, &req.SenderUsername, &req.ReceiverUsername, &req.CreatedAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan friend request: %w", err)
		}

		if updatedAt.Valid {
			t := updatedAt.Time.UTC()
			req.UpdatedAt = &t
		}

		requests = append(requests, req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate friend requests: %w", err)
	}

	return requests, nil
}

// UpdateStatus updates the status (and updated_at) for a friend request.
func (r *PostgresFriendRequestRepository) UpdateStatus(ctx context.Context, requestID, status string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE friend_requests
        SET status = $2, updated_at = NOW()
        WHERE id = $1
    `, requestID, status)
	if err != nil {
		return fmt.Errorf("update friend request: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Complete advances an accepted friend request to completed with a server-side
// timestamp. A request that is no longer in the accepted state is left alone:
// the other participant's reconciliation run may have advanced it already.
func (r *PostgresFriendRequestRepository) Complete(ctx context.Context, requestID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        UPDATE friend_requests
        SET status = 'completed', updated_at = NOW()
        WHERE id = $1 AND status = 'accepted'
    `, requestID)
	if err != nil {
		return fmt.Errorf("complete friend request: %w", err)
	}

	return nil
}

// PostgresFriendListRepository provides PostgreSQL-backed persistence for friend edges.
// Each list entry is its own row keyed by (owner, friend), so concurrent
// appends from racing reconciliation runs cannot clobber one another.
type PostgresFriendListRepository struct {
	pool db.Pool
}

// NewPostgresFriendListRepository constructs a friend list repository backed by PostgreSQL.
func NewPostgresFriendListRepository(pool db.Pool) *PostgresFriendListRepository {
	return &PostgresFriendListRepository{pool: pool}
}

// Entries returns the owner's friend list in insertion order. A user with no
// list yet yields an empty slice, not an error.
func (r *PostgresFriendListRepository) Entries(ctx context.Context, ownerID string) ([]models.FriendEntry, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT friend_id, username, added_at
        FROM friend_list_entries
        WHERE owner_id = $1
        ORDER BY added_at, friend_id
    `, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query friend list: %w", err)
	}
	defer rows.Close()

	var entries []models.FriendEntry
	for rows.Next() {
		var entry models.FriendEntry
		if err := rows.Scan(&entry.UID, &entry.Username, &entry.AddedAt); err != nil {
			return nil, fmt.Errorf("scan friend entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate friend list: %w", err)
	}

	return entries, nil
}

// Append inserts a friend edge if it is not already present. The insert is
// atomic and commutative, so concurrent runs for the same owner converge on
// a single row per friend.
func (r *PostgresFriendListRepository) Append(ctx context.Context, ownerID string, entry models.FriendEntry) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO friend_list_entries (owner_id, friend_id, username, added_at)
        VALUES ($1, $2, $3, NOW())
        ON CONFLICT (owner_id, friend_id) DO NOTHING
    `, ownerID, entry.UID, entry.Username)
	if err != nil {
		return fmt.Errorf("append friend entry: %w", err)
	}

	return nil
}

var _ UserRepository = (*PostgresUserRepository)(nil)
var _ FriendRequestRepository = (*PostgresFriendRequestRepository)(nil)
var _ FriendListRepository = (*PostgresFriendListRepository)(nil)
