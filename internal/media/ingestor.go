package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/orbitsocial/backend/internal/models"
)

// PostAssetUpdater persists mirroring status updates for posts.
type PostAssetUpdater interface {
	MarkAssetReady(ctx context.Context, postID, location string, size int64) error
	MarkAssetFailed(ctx context.Context, postID string) error
}

// IngestorConfig controls the concurrency characteristics of the ingestor.
type IngestorConfig struct {
	QueueSize int
	Workers   int
}

// Ingestor asynchronously mirrors post images into object storage.
type Ingestor struct {
	fetcher *HTTPFetcher
	storage AssetStorage
	updater PostAssetUpdater
	logger  *slog.Logger

	jobs   chan ingestJob
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

type ingestJob struct {
	post models.Post
}

var errIngestorClosed = errors.New("media ingestor closed")

// NewIngestor constructs a background worker pool that mirrors post images.
func NewIngestor(fetcher *HTTPFetcher, storage AssetStorage, updater PostAssetUpdater, cfg IngestorConfig, logger *slog.Logger) *Ingestor {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	ing := &Ingestor{
		fetcher: fetcher,
		storage: storage,
		updater: updater,
		logger:  logger,
		jobs:    make(chan ingestJob, cfg.QueueSize),
		ctx:     ctx,
		cancel:  cancel,
	}

	ing.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go ing.worker()
	}

	return ing
}

// Enqueue schedules image mirroring for the supplied post.
func (i *Ingestor) Enqueue(ctx context.Context, post models.Post) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-i.ctx.Done():
		return errIngestorClosed
	default:
	}

	job := ingestJob{post: post}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-i.ctx.Done():
		return errIngestorClosed
	case i.jobs <- job:
		return nil
	}
}

// Shutdown waits for the worker pool to drain outstanding jobs.
func (i *Ingestor) Shutdown(ctx context.Context) error {
	i.once.Do(func() {
		i.cancel()
		close(i.jobs)
	})

	done := make(chan struct{})
	go func() {
		i.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (i *Ingestor) worker() {
	defer i.wg.Done()

	for {
		select {
		case <-i.ctx.Done():
			return
		case job, ok := <-i.jobs:
			if !ok {
				return
			}
			i.handleJob(job)
		}
	}
}

func (i *Ingestor) handleJob(job ingestJob) {
	if i.fetcher == nil || i.storage == nil || i.updater == nil {
		i.logger.Error("media ingestor missing dependencies", "hasFetcher", i.fetcher != nil, "hasStorage", i.storage != nil, "hasUpdater", i.updater != nil)
		return
	}

	fetchCtx, cancel := context.WithTimeout(context.Background(), maxDuration(2*i.fetcher.Timeout, 2*time.Minute))
	defer cancel()

	prefixed := &prefixedStorage{prefix: job.post.ID, base: i.storage}
	asset, err := i.fetcher.Fetch(fetchCtx, job.post.ImageURL, prefixed)
	if err != nil {
		i.logger.Error("image mirroring failed", "postId", job.post.ID, "url", job.post.ImageURL, "error", err)
		i.recordFailure(job.post.ID)
		return
	}

	if err := i.recordSuccess(job.post.ID, asset.Location, asset.Size); err != nil {
		i.logger.Error("mark asset ready", "postId", job.post.ID, "error", err)
		i.recordFailure(job.post.ID)
	}
}

func (i *Ingestor) recordFailure(postID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := i.updater.MarkAssetFailed(ctx, postID); err != nil {
		i.logger.Error("record asset failure", "postId", postID, "error", err)
	}
}

func (i *Ingestor) recordSuccess(postID, location string, size int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return i.updater.MarkAssetReady(ctx, postID, location, size)
}

type prefixedStorage struct {
	prefix string
	base   AssetStorage
}

func (p *prefixedStorage) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	if p.base == nil {
		return "", fmt.Errorf("prefix storage: %w", ErrStorageUnavailable)
	}
	key := path.Join(p.prefix, name)
	if strings.TrimSpace(key) == "" {
		return "", errors.New("prefix storage: empty key")
	}
	return p.base.Save(ctx, key, r)
}

func maxDuration(a, b time.Duration) time.Duration {
	if a >= b {
		return a
	}
	return b
}
