package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/orbitsocial/backend/internal/logging"
	"github.com/orbitsocial/backend/internal/models"
)

const maxPostBodyLength = 2000

// PostHandler implements post creation and feed endpoints.
type PostHandler struct {
	Posts    PostStore
	Ingestor PostIngestor
	NowFunc  func() time.Time
}

// Create handles POST /api/v1/posts requests.
func (h PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Posts == nil {
		logger.Error("post store unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "post services unavailable"})
		return
	}

	var req createPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid post payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.OwnerID = strings.TrimSpace(req.OwnerID)
	req.Body = strings.TrimSpace(req.Body)
	req.ImageURL = strings.TrimSpace(req.ImageURL)

	if req.OwnerID == "" {
		logger.Warn("post missing owner")
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "owner id is required"})
		return
	}

	if req.Body == "" && req.ImageURL == "" {
		logger.Warn("post without content", "ownerId", req.OwnerID)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "post requires text or an image"})
		return
	}

	if len(req.Body) > maxPostBodyLength {
		logger.Warn("post body too long", "ownerId", req.OwnerID, "length", len(req.Body))
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "post body is too long"})
		return
	}

	if req.ImageURL != "" {
		parsed, err := url.Parse(req.ImageURL)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			logger.Warn("post invalid image url", "ownerId", req.OwnerID, "url", req.ImageURL)
			respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "image url must be http or https"})
			return
		}
	}

	post := models.Post{
		ID:        uuid.NewString(),
		OwnerID:   req.OwnerID,
		Body:      req.Body,
		ImageURL:  req.ImageURL,
		CreatedAt: h.now(),
	}

	if post.ImageURL != "" {
		if h.Ingestor != nil {
			post.AssetStatus = models.AssetStatusPending
		} else {
			// No mirroring pipeline configured; serve the original URL.
			post.AssetStatus = models.AssetStatusReady
			post.AssetURL = post.ImageURL
		}
	}

	if err := h.Posts.Create(ctx, post); err != nil {
		logger.Error("failed to create post", "error", err, "ownerId", req.OwnerID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to create post"})
		return
	}

	if post.AssetStatus == models.AssetStatusPending && h.Ingestor != nil {
		if err := h.Ingestor.Enqueue(ctx, post); err != nil {
			logger.Error("failed to enqueue image mirroring", "error", err, "postId", post.ID)
		}
	}

	respondJSON(ctx, w, http.StatusCreated, postResponse{Post: toPostPayload(post)})
}

// Feed handles GET /api/v1/posts/feed requests.
func (h PostHandler) Feed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	userID := strings.TrimSpace(r.URL.Query().Get("user"))
	if userID == "" {
		logger.Warn("feed missing user")
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "user query parameter is required"})
		return
	}

	if h.Posts == nil {
		logger.Error("post store unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "post services unavailable"})
		return
	}

	posts, err := h.Posts.ListFeed(ctx, userID)
	if err != nil {
		logger.Error("feed lookup failed", "error", err, "userId", userID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to load feed"})
		return
	}

	payload := feedResponse{Posts: make([]postPayload, 0, len(posts))}
	for _, post := range posts {
		payload.Posts = append(payload.Posts, toPostPayload(post))
	}

	respondJSON(ctx, w, http.StatusOK, payload)
}

type createPostRequest struct {
	OwnerID  string `json:"ownerId"`
	Body     string `json:"body"`
	ImageURL string `json:"imageUrl"`
}

type postPayload struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	Body        string    `json:"body,omitempty"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	AssetURL    string    `json:"assetUrl,omitempty"`
	AssetStatus string    `json:"assetStatus,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type postResponse struct {
	Post postPayload `json:"post"`
}

type feedResponse struct {
	Posts []postPayload `json:"posts"`
}

func toPostPayload(post models.Post) postPayload {
	return postPayload{
		ID:          post.ID,
		OwnerID:     post.OwnerID,
		Body:        post.Body,
		ImageURL:    post.ImageURL,
		AssetURL:    post.AssetURL,
		AssetStatus: post.AssetStatus,
		CreatedAt:   post.CreatedAt,
	}
}

func (h PostHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
