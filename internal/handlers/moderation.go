package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/orbitsocial/backend/internal/logging"
	"github.com/orbitsocial/backend/internal/models"
	"github.com/orbitsocial/backend/internal/repositories"
)

// ModerationHandler implements content report and user block endpoints.
type ModerationHandler struct {
	Moderation ModerationStore
	NowFunc    func() time.Time
}

// Report handles POST /api/v1/moderation/reports requests.
func (h ModerationHandler) Report(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Moderation == nil {
		logger.Error("moderation store unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "moderation services unavailable"})
		return
	}

	var req createReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid report payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.ReporterID = strings.TrimSpace(req.ReporterID)
	req.SubjectID = strings.TrimSpace(req.SubjectID)
	req.PostID = strings.TrimSpace(req.PostID)
	req.Reason = strings.TrimSpace(req.Reason)

	if req.ReporterID == "" || req.SubjectID == "" {
		logger.Warn("report missing participants", "reporterId", req.ReporterID, "subjectId", req.SubjectID)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "reporter and subject are required"})
		return
	}

	if req.ReporterID == req.SubjectID {
		logger.Warn("report against self", "reporterId", req.ReporterID)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "cannot report yourself"})
		return
	}

	if req.Reason == "" {
		logger.Warn("report missing reason", "reporterId", req.ReporterID)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "reason is required"})
		return
	}

	report := models.Report{
		ID:         uuid.NewString(),
		ReporterID: req.ReporterID,
		SubjectID:  req.SubjectID,
		PostID:     req.PostID,
		Reason:     req.Reason,
		CreatedAt:  h.now(),
	}

	if err := h.Moderation.CreateReport(ctx, report); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			logger.Warn("report references unknown record", "reporterId", req.ReporterID, "subjectId", req.SubjectID, "postId", req.PostID)
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "reported user or post not found"})
			return
		}
		logger.Error("failed to create report", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to submit report"})
		return
	}

	respondJSON(ctx, w, http.StatusCreated, map[string]string{"reportId": report.ID})
}

// Block handles POST /api/v1/moderation/blocks requests.
func (h ModerationHandler) Block(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Moderation == nil {
		logger.Error("moderation store unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "moderation services unavailable"})
		return
	}

	var req createBlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid block payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.BlockerID = strings.TrimSpace(req.BlockerID)
	req.BlockedID = strings.TrimSpace(req.BlockedID)

	if req.BlockerID == "" || req.BlockedID == "" {
		logger.Warn("block missing participants", "blockerId", req.BlockerID, "blockedId", req.BlockedID)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "blocker and blocked user are required"})
		return
	}

	if req.BlockerID == req.BlockedID {
		logger.Warn("block against self", "blockerId", req.BlockerID)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "cannot block yourself"})
		return
	}

	block := models.Block{
		BlockerID: req.BlockerID,
		BlockedID: req.BlockedID,
		CreatedAt: h.now(),
	}

	if err := h.Moderation.CreateBlock(ctx, block); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			logger.Warn("block references unknown user", "blockerId", req.BlockerID, "blockedId", req.BlockedID)
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "user not found"})
			return
		}
		logger.Error("failed to create block", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to block user"})
		return
	}

	respondJSON(ctx, w, http.StatusCreated, map[string]string{"status": "blocked"})
}

type createReportRequest struct {
	ReporterID string `json:"reporterId"`
	SubjectID  string `json:"subjectId"`
	PostID     string `json:"postId"`
	Reason     string `json:"reason"`
}

type createBlockRequest struct {
	BlockerID string `json:"blockerId"`
	BlockedID string `json:"blockedId"`
}

func (h ModerationHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
