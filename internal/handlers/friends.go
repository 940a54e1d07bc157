package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/orbitsocial/backend/internal/friends"
	"github.com/orbitsocial/backend/internal/logging"
	"github.com/orbitsocial/backend/internal/models"
	"github.com/orbitsocial/backend/internal/repositories"
)

// FriendHandler provides friend invite, response, listing, and sync endpoints.
type FriendHandler struct {
	Requests   FriendRequestStore
	Lists      FriendListStore
	Reconciler FriendReconciler
	Profiles   UsernameResolver
	NowFunc    func() time.Time
}

// Invite handles POST /api/v1/friends/invite.
func (h FriendHandler) Invite(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Requests == nil {
		logger.Error("friend request store unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "friend services unavailable"})
		return
	}

	var req inviteFriendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid invite payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.SenderID = strings.TrimSpace(req.SenderID)
	req.ReceiverID = strings.TrimSpace(req.ReceiverID)
	if req.SenderID == "" || req.ReceiverID == "" {
		logger.Warn("invite missing participants", "senderId", req.SenderID, "receiverId", req.ReceiverID)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "sender and receiver are required"})
		return
	}

	if req.SenderID == req.ReceiverID {
		logger.Warn("invite to self", "senderId", req.SenderID)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "cannot send a friend request to yourself"})
		return
	}

	request := models.FriendRequest{
		ID:               uuid.NewString(),
		SenderID:         req.SenderID,
		ReceiverID:       req.ReceiverID,
		Status:           models.FriendStatusPending,
		SenderUsername:   h.resolveUsername(r, req.SenderID),
		ReceiverUsername: h.resolveUsername(r, req.ReceiverID),
		CreatedAt:        h.now(),
	}

	if err := h.Requests.CreateRequest(ctx, request); err != nil {
		switch {
		case errors.Is(err, repositories.ErrConflict):
			logger.Warn("invite already exists", "senderId", req.SenderID, "receiverId", req.ReceiverID)
			respondJSON(ctx, w, http.StatusConflict, map[string]string{"error": "friend request already exists"})
		case errors.Is(err, repositories.ErrNotFound):
			logger.Warn("invite references unknown user", "senderId", req.SenderID, "receiverId", req.ReceiverID)
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "user not found"})
		default:
			logger.Error("invite failed", "error", err)
			respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to create friend request"})
		}
		return
	}

	respondJSON(ctx, w, http.StatusCreated, friendRequestResponse{Request: toRequestPayload(request)})
}

// Respond handles POST /api/v1/friends/respond.
func (h FriendHandler) Respond(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Requests == nil {
		logger.Error("friend request store unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "friend services unavailable"})
		return
	}

	var req respondFriendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid respond payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.RequestID = strings.TrimSpace(req.RequestID)
	req.Action = strings.TrimSpace(strings.ToLower(req.Action))
	if req.RequestID == "" || req.Action == "" {
		logger.Warn("respond missing fields", "requestId", req.RequestID, "action", req.Action)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "request id and action are required"})
		return
	}

	status, ok := actionStatus[req.Action]
	if !ok {
		logger.Warn("respond unknown action", "action", req.Action)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "action must be accept, reject, or cancel"})
		return
	}

	if err := h.Requests.UpdateStatus(ctx, req.RequestID, status); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			logger.Warn("respond unknown request", "requestId", req.RequestID)
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "friend request not found"})
			return
		}
		logger.Error("respond failed", "error", err, "requestId", req.RequestID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to update friend request"})
		return
	}

	// Accepting creates the expectation of a symmetric edge; repair it right
	// away for the responder instead of waiting for the next sync.
	if status == models.FriendStatusAccepted && h.Reconciler != nil && req.UserID != "" {
		if report, err := h.Reconciler.Run(ctx, friends.Session{UserID: req.UserID}); err != nil {
			logger.Warn("post-accept reconciliation failed", "userId", req.UserID, "error", err)
		} else if err := report.Err(); err != nil {
			logger.Warn("post-accept reconciliation incomplete", "userId", req.UserID, "error", err)
		}
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": status})
}

// List handles GET /api/v1/friends requests, returning the user's friend list.
func (h FriendHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	userID := strings.TrimSpace(r.URL.Query().Get("user"))
	if userID == "" {
		logger.Warn("friend list missing user")
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "user query parameter is required"})
		return
	}

	if h.Lists == nil {
		logger.Error("friend list store unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "friend services unavailable"})
		return
	}

	entries, err := h.Lists.Entries(ctx, userID)
	if err != nil {
		logger.Error("friend list lookup failed", "error", err, "userId", userID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to load friends"})
		return
	}

	payload := listFriendsResponse{Friends: make([]friendEntryPayload, 0, len(entries))}
	for _, entry := range entries {
		payload.Friends = append(payload.Friends, friendEntryPayload{
			UID:      entry.UID,
			Username: entry.Username,
			AddedAt:  entry.AddedAt,
		})
	}

	respondJSON(ctx, w, http.StatusOK, payload)
}

// ListRequests handles GET /api/v1/friends/requests.
func (h FriendHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	userID := strings.TrimSpace(r.URL.Query().Get("user"))
	if userID == "" {
		logger.Warn("friend requests missing user")
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "user query parameter is required"})
		return
	}

	if h.Requests == nil {
		logger.Error("friend request store unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "friend services unavailable"})
		return
	}

	requests, err := h.Requests.ListForUser(ctx, userID)
	if err != nil {
		logger.Error("friend requests lookup failed", "error", err, "userId", userID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to load friend requests"})
		return
	}

	payload := listRequestsResponse{Requests: make([]friendRequestPayload, 0, len(requests))}
	for _, request := range requests {
		payload.Requests = append(payload.Requests, toRequestPayload(request))
	}

	respondJSON(ctx, w, http.StatusOK, payload)
}

// Sync handles POST /api/v1/friends/sync, running edge reconciliation for a user.
func (h FriendHandler) Sync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Reconciler == nil {
		logger.Error("friend reconciler unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "friend services unavailable"})
		return
	}

	var req syncFriendsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid sync payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		logger.Warn("sync missing user")
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "user id is required"})
		return
	}

	report, err := h.Reconciler.Run(ctx, friends.Session{UserID: req.UserID})
	if err != nil {
		logger.Error("friend sync failed", "error", err, "userId", req.UserID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to sync friends"})
		return
	}

	payload := syncFriendsResponse{Results: make([]syncResultPayload, 0, len(report.Results))}
	for _, result := range report.Results {
		entry := syncResultPayload{RequestID: result.RequestID, Completed: result.Completed}
		if result.Err != nil {
			entry.Error = result.Err.Error()
		}
		payload.Results = append(payload.Results, entry)
	}

	respondJSON(ctx, w, http.StatusOK, payload)
}

// resolveUsername looks up a display name for the request stamps, falling
// back to the uid when the resolver is absent or fails. A missing username
// is never fatal to an invite.
func (h FriendHandler) resolveUsername(r *http.Request, userID string) string {
	if h.Profiles == nil {
		return userID
	}

	username, err := h.Profiles.Username(r.Context(), userID)
	if err != nil || username == "" {
		logging.FromContext(r.Context()).Warn("username resolution failed", "userId", userID, "error", err)
		return userID
	}
	return username
}

var actionStatus = map[string]string{
	"accept": models.FriendStatusAccepted,
	"reject": models.FriendStatusRejected,
	"cancel": models.FriendStatusCancelled,
}

const (
	friendStatusPending  = models.FriendStatusPending
	friendStatusAccepted = models.FriendStatusAccepted
)

type inviteFriendRequest struct {
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
}

type respondFriendRequest struct {
	RequestID string `json:"requestId"`
	Action    string `json:"action"`
	UserID    string `json:"userId"`
}

type syncFriendsRequest struct {
	UserID string `json:"userId"`
}

type friendRequestPayload struct {
	ID               string     `json:"id"`
	SenderID         string     `json:"senderId"`
	ReceiverID       string     `json:"receiverId"`
	Status           string     `json:"status"`
	SenderUsername   string     `json:"senderUsername,omitempty"`
	ReceiverUsername string     `json:"receiverUsername,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        *time.Time `json:"updatedAt,omitempty"`
}

type friendEntryPayload struct {
	UID      string    `json:"uid"`
	Username string    `json:"username"`
	AddedAt  time.Time `json:"addedAt"`
}

type friendRequestResponse struct {
	Request friendRequestPayload `json:"request"`
}

type listFriendsResponse struct {
	Friends []friendEntryPayload `json:"friends"`
}

type listRequestsResponse struct {
	Requests []friendRequestPayload `json:"requests"`
}

type syncResultPayload struct {
	RequestID string `json:"requestId"`
	Completed bool   `json:"completed"`
	Error     string `json:"error,omitempty"`
}

type syncFriendsResponse struct {
	Results []syncResultPayload `json:"results"`
}

func toRequestPayload(request models.FriendRequest) friendRequestPayload {
	return friendRequestPayload{
		ID:               request.ID,
		SenderID:         request.SenderID,
		ReceiverID:       request.ReceiverID,
		Status:           request.Status,
		SenderUsername:   request.SenderUsername,
		ReceiverUsername: request.ReceiverUsername,
		CreatedAt:        request.CreatedAt,
		UpdatedAt:        request.UpdatedAt,
	}
}

func (h FriendHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
