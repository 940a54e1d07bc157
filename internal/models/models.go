package models

import "time"

// User represents an account within the Orbit platform.
type User struct {
	ID        string
	Email     string
	Username  string
	Password  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FriendRequest represents the invitation workflow between two users.
// Usernames are denormalized onto the request at creation time so clients
// and the reconciler can render the other participant without a lookup.
type FriendRequest struct {
	ID               string
	SenderID         string
	ReceiverID       string
	Status           string
	SenderUsername   string
	ReceiverUsername string
	CreatedAt        time.Time
	UpdatedAt        *time.Time
}

const (
	FriendStatusPending   = "pending"
	FriendStatusAccepted  = "accepted"
	FriendStatusRejected  = "rejected"
	FriendStatusCancelled = "cancelled"
	FriendStatusCompleted = "completed"
)

// FriendEntry is one directed friend edge: the list owner knows the friend
// by uid and display name.
type FriendEntry struct {
	UID      string
	Username string
	AddedAt  time.Time
}

// Post is a feed entry, optionally carrying an image that gets mirrored
// into object storage.
type Post struct {
	ID          string
	OwnerID     string
	Body        string
	ImageURL    string
	AssetURL    string
	AssetStatus string
	AssetSize   int64
	CreatedAt   time.Time
}

const (
	AssetStatusNone    = ""
	AssetStatusPending = "pending"
	AssetStatusReady   = "ready"
	AssetStatusFailed  = "failed"
)

// Report is a moderation report filed by one user against another,
// optionally referencing a specific post.
type Report struct {
	ID         string
	ReporterID string
	SubjectID  string
	PostID     string
	Reason     string
	CreatedAt  time.Time
}

// Block hides one user's content from another.
type Block struct {
	BlockerID string
	BlockedID string
	CreatedAt time.Time
}

// SessionTokens groups the bearer credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}
