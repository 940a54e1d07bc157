// Package friends repairs asymmetric friend relationships.
//
// A friend relation between A and B is two directed edges: A lists B and B
// lists A. Accepting a request only guarantees the accepting side intends the
// relation; either client may crash between writing its own edge and marking
// the request done. The reconciler runs on behalf of one user, writes the
// edges that user is missing, and advances requests to completed once both
// directions are observable. It is safe to re-run any number of times.
package friends

import (
	"context"
	"errors"
	"fmt"

	"github.com/orbitsocial/backend/internal/logging"
	"github.com/orbitsocial/backend/internal/models"
)

// Session identifies the user a reconciliation run acts for. Passing it
// explicitly keeps the reconciler free of ambient auth state.
type Session struct {
	UserID string
}

// ListStore is the friend-list access the reconciler needs. Entries returns
// an empty slice for users with no list yet. Append must have set semantics:
// appending an edge that already exists is a no-op, and concurrent appends of
// the same edge converge on a single entry.
type ListStore interface {
	Entries(ctx context.Context, ownerID string) ([]models.FriendEntry, error)
	Append(ctx context.Context, ownerID string, entry models.FriendEntry) error
}

// RequestStore is the friend-request access the reconciler needs. Complete
// advances an accepted request to completed with an updated-at stamp.
type RequestStore interface {
	AcceptedByReceiver(ctx context.Context, userID string) ([]models.FriendRequest, error)
	AcceptedBySender(ctx context.Context, userID string) ([]models.FriendRequest, error)
	Complete(ctx context.Context, requestID string) error
}

// RequestResult records the outcome of reconciling a single request.
type RequestResult struct {
	RequestID string
	Completed bool
	Err       error
}

// Report aggregates per-request outcomes of one reconciliation run.
type Report struct {
	Results []RequestResult
}

// Err joins the failures of individual requests, or returns nil when every
// request reconciled cleanly.
func (r Report) Err() error {
	var errs []error
	for _, result := range r.Results {
		if result.Err != nil {
			errs = append(errs, fmt.Errorf("request %s: %w", result.RequestID, result.Err))
		}
	}
	return errors.Join(errs...)
}

// Reconciler brings one user's friend list and related request statuses into
// agreement. It only ever writes to the session user's own list and to
// requests that user participates in.
type Reconciler struct {
	lists    ListStore
	requests RequestStore
}

// NewReconciler constructs a Reconciler over the provided stores.
func NewReconciler(lists ListStore, requests RequestStore) *Reconciler {
	if lists == nil || requests == nil {
		panic("friends: reconciler stores must not be nil")
	}
	return &Reconciler{lists: lists, requests: requests}
}

// Run reconciles the session user's accepted friend requests. With no
// authenticated user it is a successful no-op. Failures while loading the
// user's own list or discovering requests abort the run; failures while
// processing an individual request are recorded in the report and do not
// stop the remaining requests.
func (r *Reconciler) Run(ctx context.Context, session Session) (Report, error) {
	myUID := session.UserID
	if myUID == "" {
		return Report{}, nil
	}

	logger := logging.FromContext(ctx)

	mine, err := r.lists.Entries(ctx, myUID)
	if err != nil {
		return Report{}, fmt.Errorf("load friend list for %s: %w", myUID, err)
	}

	have := make(map[string]struct{}, len(mine))
	for _, entry := range mine {
		have[entry.UID] = struct{}{}
	}

	toMe, err := r.requests.AcceptedByReceiver(ctx, myUID)
	if err != nil {
		return Report{}, fmt.Errorf("query accepted requests to %s: %w", myUID, err)
	}

	fromMe, err := r.requests.AcceptedBySender(ctx, myUID)
	if err != nil {
		return Report{}, fmt.Errorf("query accepted requests from %s: %w", myUID, err)
	}

	// To-me first, then from-me; sender and receiver differ by construction
	// but the union is still deduplicated by request id.
	seen := make(map[string]struct{})
	var pending []models.FriendRequest
	for _, req := range append(toMe, fromMe...) {
		if _, ok := seen[req.ID]; ok {
			continue
		}
		seen[req.ID] = struct{}{}
		pending = append(pending, req)
	}

	report := Report{}
	for _, req := range pending {
		result := RequestResult{RequestID: req.ID}
		result.Completed, result.Err = r.reconcileRequest(ctx, myUID, req, have)
		if result.Err != nil {
			logger.Warn("friend request reconciliation failed", "requestId", req.ID, "error", result.Err)
		}
		report.Results = append(report.Results, result)
	}

	return report, nil
}

// reconcileRequest handles one accepted request: ensure the caller's edge to
// the other participant exists, then complete the request if the other side
// has already reciprocated. A one-sided edge is the expected steady state
// until the other participant runs their own reconciliation.
func (r *Reconciler) reconcileRequest(ctx context.Context, myUID string, req models.FriendRequest, have map[string]struct{}) (bool, error) {
	otherUID, otherUsername := otherParticipant(myUID, req)
	if otherUID == "" {
		return false, fmt.Errorf("request has no counterpart for %s", myUID)
	}

	if _, ok := have[otherUID]; !ok {
		if err := r.lists.Append(ctx, myUID, models.FriendEntry{UID: otherUID, Username: otherUsername}); err != nil {
			return false, fmt.Errorf("append %s to own list: %w", otherUID, err)
		}
		// Visible to later iterations of this run even before a re-read.
		have[otherUID] = struct{}{}
	}

	theirs, err := r.lists.Entries(ctx, otherUID)
	if err != nil {
		return false, fmt.Errorf("load friend list for %s: %w", otherUID, err)
	}

	if !containsUID(theirs, myUID) {
		return false, nil
	}

	if _, ok := have[otherUID]; !ok {
		return false, nil
	}

	if err := r.requests.Complete(ctx, req.ID); err != nil {
		return false, fmt.Errorf("complete request: %w", err)
	}

	return true, nil
}

// otherParticipant returns the uid and display name of the request participant
// that is not the given user. The display name falls back to the uid when no
// username was stamped on the request.
func otherParticipant(myUID string, req models.FriendRequest) (string, string) {
	var uid, username string
	switch myUID {
	case req.SenderID:
		uid, username = req.ReceiverID, req.ReceiverUsername
	case req.ReceiverID:
		uid, username = req.SenderID, req.SenderUsername
	default:
		return "", ""
	}

	if uid == myUID {
		return "", ""
	}
	if username == "" {
		username = uid
	}
	return uid, username
}

func containsUID(entries []models.FriendEntry, uid string) bool {
	for _, entry := range entries {
		if entry.UID == uid {
			return true
		}
	}
	return false
}
