package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/orbitsocial/backend/internal/friends"
	"github.com/orbitsocial/backend/internal/models"
	"github.com/orbitsocial/backend/internal/repositories"
)

type inMemoryRequestStore struct {
	requests map[string]models.FriendRequest
}

func newInMemoryRequestStore() *inMemoryRequestStore {
	return &inMemoryRequestStore{requests: make(map[string]models.FriendRequest)}
}

func (s *inMemoryRequestStore) CreateRequest(_ context.Context, request models.FriendRequest) error {
	for _, existing := range s.requests {
		if existing.SenderID == request.SenderID && existing.ReceiverID == request.ReceiverID {
			return repositories.ErrConflict
		}
	}
	s.requests[request.ID] = request
	return nil
}

func (s *inMemoryRequestStore) ListForUser(_ context.Context, userID string) ([]models.FriendRequest, error) {
	var out []models.FriendRequest
	for _, request := range s.requests {
		if request.SenderID == userID || request.ReceiverID == userID {
			out = append(out, request)
		}
	}
	return out, nil
}

func (s *inMemoryRequestStore) UpdateStatus(_ context.Context, requestID, status string) error {
	request, ok := s.requests[requestID]
	if !ok {
		return repositories.ErrNotFound
	}
	request.Status = status
	updatedAt := time.Now().UTC()
	request.UpdatedAt = &updatedAt
	s.requests[requestID] = request
	return nil
}

type stubRequestStore struct {
	createErr error
	listErr   error
	updateErr error
}

func (s *stubRequestStore) CreateRequest(context.Context, models.FriendRequest) error {
	return s.createErr
}

func (s *stubRequestStore) ListForUser(context.Context, string) ([]models.FriendRequest, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return []models.FriendRequest{{ID: "req-1"}}, nil
}

func (s *stubRequestStore) UpdateStatus(context.Context, string, string) error {
	return s.updateErr
}

type stubListStore struct {
	entries []models.FriendEntry
	err     error
}

func (s *stubListStore) Entries(context.Context, string) ([]models.FriendEntry, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.entries, nil
}

type stubReconciler struct {
	report  friends.Report
	err     error
	lastUID string
}

func (s *stubReconciler) Run(_ context.Context, session friends.Session) (friends.Report, error) {
	s.lastUID = session.UserID
	return s.report, s.err
}

type stubResolver struct {
	names map[string]string
	err   error
}

func (s *stubResolver) Username(_ context.Context, userID string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.names[userID], nil
}

func TestFriendHandlerInvite(t *testing.T) {
	store := newInMemoryRequestStore()
	now := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	resolver := &stubResolver{names: map[string]string{"user-1": "ava", "user-2": "ben"}}
	handler := FriendHandler{Requests: store, Profiles: resolver, NowFunc: func() time.Time { return now }}

	body, err := json.Marshal(inviteFriendRequest{SenderID: "user-1", ReceiverID: "user-2"})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/friends/invite", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Invite(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d got %d", http.StatusCreated, rec.Code)
	}

	var resp friendRequestResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if resp.Request.Status != friendStatusPending {
		t.Fatalf("expected status %q got %q", friendStatusPending, resp.Request.Status)
	}

	if resp.Request.SenderUsername != "ava" || resp.Request.ReceiverUsername != "ben" {
		t.Fatalf("expected resolved usernames, got %+v", resp.Request)
	}

	if resp.Request.CreatedAt != now {
		t.Fatalf("expected createdAt to use NowFunc")
	}

	if _, ok := store.requests[resp.Request.ID]; !ok {
		t.Fatalf("expected request to be stored")
	}
}

func TestFriendHandlerInviteUsernameFallback(t *testing.T) {
	store := newInMemoryRequestStore()
	handler := FriendHandler{Requests: store, Profiles: &stubResolver{err: errors.New("resolver down")}}

	body := []byte(`{"senderId":"user-1","receiverId":"user-2"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/friends/invite", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Invite(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d got %d", http.StatusCreated, rec.Code)
	}

	var resp friendRequestResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if resp.Request.SenderUsername != "user-1" || resp.Request.ReceiverUsername != "user-2" {
		t.Fatalf("expected uid fallback usernames, got %+v", resp.Request)
	}
}

func TestFriendHandlerInviteFailures(t *testing.T) {
	body := []byte(`{"senderId":"user-1","receiverId":"user-2"}`)

	cases := []struct {
		name       string
		handler    FriendHandler
		method     string
		body       []byte
		wantStatus int
	}{
		{"wrongMethod", FriendHandler{Requests: newInMemoryRequestStore()}, http.MethodGet, body, http.StatusMethodNotAllowed},
		{"missingStore", FriendHandler{}, http.MethodPost, body, http.StatusInternalServerError},
		{"badJSON", FriendHandler{Requests: newInMemoryRequestStore()}, http.MethodPost, []byte("{"), http.StatusBadRequest},
		{"missingFields", FriendHandler{Requests: newInMemoryRequestStore()}, http.MethodPost, []byte(`{"senderId":"","receiverId":""}`), http.StatusBadRequest},
		{"selfInvite", FriendHandler{Requests: newInMemoryRequestStore()}, http.MethodPost, []byte(`{"senderId":"same","receiverId":"same"}`), http.StatusBadRequest},
		{"conflict", FriendHandler{Requests: &stubRequestStore{createErr: repositories.ErrConflict}}, http.MethodPost, body, http.StatusConflict},
		{"notFound", FriendHandler{Requests: &stubRequestStore{createErr: repositories.ErrNotFound}}, http.MethodPost, body, http.StatusNotFound},
		{"internal", FriendHandler{Requests: &stubRequestStore{createErr: errors.New("boom")}}, http.MethodPost, body, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/api/v1/friends/invite", bytes.NewReader(tc.body))
			rec := httptest.NewRecorder()

			tc.handler.Invite(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected status %d got %d", tc.wantStatus, rec.Code)
			}
		})
	}
}

func TestFriendHandlerList(t *testing.T) {
	added := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)
	lists := &stubListStore{entries: []models.FriendEntry{{UID: "user-2", Username: "ben", AddedAt: added}}}
	handler := FriendHandler{Lists: lists}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/friends?user=user-1", nil)
	rec := httptest.NewRecorder()

	handler.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}

	var resp listFriendsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if len(resp.Friends) != 1 || resp.Friends[0].UID != "user-2" || resp.Friends[0].Username != "ben" {
		t.Fatalf("unexpected response payload: %+v", resp)
	}
}

func TestFriendHandlerListFailures(t *testing.T) {
	handler := FriendHandler{Lists: &stubListStore{err: errors.New("db down")}}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/friends", nil)
	rec := httptest.NewRecorder()
	handler.List(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected method not allowed got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/friends", nil)
	rec = httptest.NewRecorder()
	handler.List(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected bad request got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/friends?user=user-1", nil)
	rec = httptest.NewRecorder()
	handler = FriendHandler{}
	handler.List(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected internal error got %d", rec.Code)
	}

	handler = FriendHandler{Lists: &stubListStore{err: errors.New("db down")}}
	rec = httptest.NewRecorder()
	handler.List(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected internal error got %d", rec.Code)
	}
}

func TestFriendHandlerListRequests(t *testing.T) {
	store := newInMemoryRequestStore()
	store.requests["req-1"] = models.FriendRequest{ID: "req-1", SenderID: "user-1", ReceiverID: "user-2", Status: friendStatusPending}
	handler := FriendHandler{Requests: store}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/friends/requests?user=user-1", nil)
	rec := httptest.NewRecorder()

	handler.ListRequests(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}

	var resp listRequestsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if len(resp.Requests) != 1 || resp.Requests[0].ID != "req-1" {
		t.Fatalf("unexpected response payload: %+v", resp)
	}
}

func TestFriendHandlerRespond(t *testing.T) {
	store := newInMemoryRequestStore()
	store.requests["req-1"] = models.FriendRequest{ID: "req-1", SenderID: "user-1", ReceiverID: "user-2", Status: friendStatusPending}
	reconciler := &stubReconciler{}
	handler := FriendHandler{Requests: store, Reconciler: reconciler}

	body, err := json.Marshal(respondFriendRequest{RequestID: "req-1", Action: "accept", UserID: "user-2"})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/friends/respond", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Respond(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}

	updated := store.requests["req-1"]
	if updated.Status != friendStatusAccepted {
		t.Fatalf("expected status %q got %q", friendStatusAccepted, updated.Status)
	}

	if updated.UpdatedAt == nil {
		t.Fatalf("expected updatedAt to be set")
	}

	if reconciler.lastUID != "user-2" {
		t.Fatalf("expected reconciliation for responder, got %q", reconciler.lastUID)
	}
}

func TestFriendHandlerRespondRejectSkipsReconciliation(t *testing.T) {
	store := newInMemoryRequestStore()
	store.requests["req-1"] = models.FriendRequest{ID: "req-1", SenderID: "user-1", ReceiverID: "user-2", Status: friendStatusPending}
	reconciler := &stubReconciler{}
	handler := FriendHandler{Requests: store, Reconciler: reconciler}

	body := []byte(`{"requestId":"req-1","action":"reject","userId":"user-2"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/friends/respond", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Respond(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
	if store.requests["req-1"].Status != models.FriendStatusRejected {
		t.Fatalf("expected rejected status, got %q", store.requests["req-1"].Status)
	}
	if reconciler.lastUID != "" {
		t.Fatalf("expected no reconciliation run, got %q", reconciler.lastUID)
	}
}

func TestFriendHandlerRespondReconcilerFailureIsNotFatal(t *testing.T) {
	store := newInMemoryRequestStore()
	store.requests["req-1"] = models.FriendRequest{ID: "req-1", SenderID: "user-1", ReceiverID: "user-2", Status: friendStatusPending}
	handler := FriendHandler{Requests: store, Reconciler: &stubReconciler{err: errors.New("sync failed")}}

	body := []byte(`{"requestId":"req-1","action":"accept","userId":"user-2"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/friends/respond", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Respond(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
}

func TestFriendHandlerRespondFailures(t *testing.T) {
	handler := FriendHandler{Requests: &stubRequestStore{updateErr: repositories.ErrNotFound}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/friends/respond", nil)
	rec := httptest.NewRecorder()
	handler.Respond(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected method not allowed got %d", rec.Code)
	}

	handler = FriendHandler{}
	body := []byte(`{"requestId":"req-1","action":"accept"}`)
	req = httptest.NewRequest(http.MethodPost, "/api/v1/friends/respond", bytes.NewReader(body))
	rec = httptest.NewRecorder()
	handler.Respond(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected internal error got %d", rec.Code)
	}

	handler = FriendHandler{Requests: &stubRequestStore{}}
	req = httptest.NewRequest(http.MethodPost, "/api/v1/friends/respond", bytes.NewReader([]byte("{")))
	rec = httptest.NewRecorder()
	handler.Respond(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected bad request got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/friends/respond", bytes.NewReader([]byte(`{"requestId":"","action":""}`)))
	rec = httptest.NewRecorder()
	handler.Respond(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected bad request got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/friends/respond", bytes.NewReader([]byte(`{"requestId":"req-1","action":"maybe"}`)))
	rec = httptest.NewRecorder()
	handler.Respond(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected bad request got %d", rec.Code)
	}

	handler = FriendHandler{Requests: &stubRequestStore{updateErr: repositories.ErrNotFound}}
	req = httptest.NewRequest(http.MethodPost, "/api/v1/friends/respond", bytes.NewReader(body))
	rec = httptest.NewRecorder()
	handler.Respond(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected not found got %d", rec.Code)
	}

	handler = FriendHandler{Requests: &stubRequestStore{updateErr: errors.New("db down")}}
	req = httptest.NewRequest(http.MethodPost, "/api/v1/friends/respond", bytes.NewReader(body))
	rec = httptest.NewRecorder()
	handler.Respond(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected internal error got %d", rec.Code)
	}
}

func TestFriendHandlerSync(t *testing.T) {
	reconciler := &stubReconciler{report: friends.Report{Results: []friends.RequestResult{
		{RequestID: "req-1", Completed: true},
		{RequestID: "req-2", Err: errors.New("list unavailable")},
	}}}
	handler := FriendHandler{Reconciler: reconciler}

	body := []byte(`{"userId":"user-1"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/friends/sync", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Sync(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
	if reconciler.lastUID != "user-1" {
		t.Fatalf("expected run for user-1, got %q", reconciler.lastUID)
	}

	var resp syncFriendsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if len(resp.Results) != 2 {
		t.Fatalf("expected two results, got %+v", resp)
	}
	if !resp.Results[0].Completed || resp.Results[0].Error != "" {
		t.Fatalf("unexpected first result: %+v", resp.Results[0])
	}
	if resp.Results[1].Completed || resp.Results[1].Error == "" {
		t.Fatalf("unexpected second result: %+v", resp.Results[1])
	}
}

func TestFriendHandlerSyncFailures(t *testing.T) {
	handler := FriendHandler{Reconciler: &stubReconciler{}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/friends/sync", nil)
	rec := httptest.NewRecorder()
	handler.Sync(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected method not allowed got %d", rec.Code)
	}

	handler = FriendHandler{}
	req = httptest.NewRequest(http.MethodPost, "/api/v1/friends/sync", bytes.NewReader([]byte(`{"userId":"user-1"}`)))
	rec = httptest.NewRecorder()
	handler.Sync(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected internal error got %d", rec.Code)
	}

	handler = FriendHandler{Reconciler: &stubReconciler{}}
	req = httptest.NewRequest(http.MethodPost, "/api/v1/friends/sync", bytes.NewReader([]byte(`{"userId":""}`)))
	rec = httptest.NewRecorder()
	handler.Sync(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected bad request got %d", rec.Code)
	}

	handler = FriendHandler{Reconciler: &stubReconciler{err: errors.New("db down")}}
	req = httptest.NewRequest(http.MethodPost, "/api/v1/friends/sync", bytes.NewReader([]byte(`{"userId":"user-1"}`)))
	rec = httptest.NewRecorder()
	handler.Sync(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected internal error got %d", rec.Code)
	}
}
