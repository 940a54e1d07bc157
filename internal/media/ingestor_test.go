package media

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/orbitsocial/backend/internal/models"
)

type postUpdaterStub struct {
	readyCalls  []string
	readyLoc    string
	readySize   int64
	failedCalls []string
	readyErr    error
	failedErr   error
}

func (s *postUpdaterStub) MarkAssetReady(ctx context.Context, postID, location string, size int64) error {
	_ = ctx
	s.readyCalls = append(s.readyCalls, postID)
	s.readyLoc = location
	s.readySize = size
	return s.readyErr
}

func (s *postUpdaterStub) MarkAssetFailed(ctx context.Context, postID string) error {
	_ = ctx
	s.failedCalls = append(s.failedCalls, postID)
	return s.failedErr
}

func TestIngestorSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("image-bytes"))
	}))
	defer server.Close()

	fetcher := NewHTTPFetcher(time.Second, 1<<20)
	storage := &assetStorageStub{}
	updater := &postUpdaterStub{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ingestor := NewIngestor(fetcher, storage, updater, IngestorConfig{QueueSize: 1, Workers: 1}, logger)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = ingestor.Shutdown(ctx)
	}()

	post := models.Post{ID: "post-1", ImageURL: server.URL + "/photos/cat.png"}
	if err := ingestor.Enqueue(context.Background(), post); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	waitForCondition(t, func() bool { return len(updater.readyCalls) > 0 }, time.Second)

	if _, ok := storage.saved[filepath.Join(post.ID, "cat.png")]; !ok {
		t.Fatalf("expected asset to be saved with post prefix, got %+v", storage.saved)
	}
	if updater.readyLoc == "" {
		t.Fatalf("expected ready location to be populated")
	}
	if updater.readySize != int64(len("image-bytes")) {
		t.Fatalf("unexpected asset size: %d", updater.readySize)
	}
}

func TestIngestorFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	fetcher := NewHTTPFetcher(time.Second, 1<<20)
	storage := &assetStorageStub{}
	updater := &postUpdaterStub{}
	ingestor := NewIngestor(fetcher, storage, updater, IngestorConfig{QueueSize: 1, Workers: 1}, nil)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = ingestor.Shutdown(ctx)
	}()

	post := models.Post{ID: "post-2", ImageURL: server.URL + "/broken.png"}
	if err := ingestor.Enqueue(context.Background(), post); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	waitForCondition(t, func() bool { return len(updater.failedCalls) > 0 }, time.Second)
	if len(updater.readyCalls) != 0 {
		t.Fatalf("expected no ready calls on failure")
	}
}

func TestIngestorEnqueueAfterShutdown(t *testing.T) {
	fetcher := NewHTTPFetcher(time.Second, 1<<20)
	ingestor := NewIngestor(fetcher, &assetStorageStub{}, &postUpdaterStub{}, IngestorConfig{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := ingestor.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	if err := ingestor.Enqueue(context.Background(), models.Post{ID: "post-3"}); err == nil {
		t.Fatal("expected error when enqueueing after shutdown")
	}
}

func waitForCondition(t *testing.T, predicate func() bool, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if predicate() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}
