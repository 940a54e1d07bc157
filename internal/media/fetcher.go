package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

// AssetStorage persists fetched assets and returns a public location.
type AssetStorage interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
}

// FetchedAsset describes an image that was mirrored into storage.
type FetchedAsset struct {
	Location string
	Size     int64
}

// HTTPFetcher downloads remote images over HTTP. The client is injectable so
// tests can stub transport behavior.
type HTTPFetcher struct {
	Client   *http.Client
	Timeout  time.Duration
	MaxBytes int64
}

// NewHTTPFetcher constructs a fetcher with the provided timeout and size cap.
func NewHTTPFetcher(timeout time.Duration, maxBytes int64) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &HTTPFetcher{
		Client:   &http.Client{Timeout: timeout},
		Timeout:  timeout,
		MaxBytes: maxBytes,
	}
}

// Fetch downloads the image at rawURL and saves it into storage under a name
// derived from the URL and response content type.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string, storage AssetStorage) (FetchedAsset, error) {
	if storage == nil {
		return FetchedAsset{}, ErrStorageUnavailable
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return FetchedAsset{}, fmt.Errorf("build image request: %w", err)
	}

	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: f.Timeout}
	}

	resp, err := client.Do(req)
	if err != nil {
		return FetchedAsset{}, fmt.Errorf("fetch image %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return FetchedAsset{}, fmt.Errorf("fetch image %s: unexpected status %d", rawURL, resp.StatusCode)
	}

	if resp.ContentLength > f.MaxBytes {
		return FetchedAsset{}, ErrAssetTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.MaxBytes+1))
	if err != nil {
		return FetchedAsset{}, fmt.Errorf("read image body: %w", err)
	}
	if int64(len(data)) > f.MaxBytes {
		return FetchedAsset{}, ErrAssetTooLarge
	}

	name := assetName(rawURL, resp.Header.Get("Content-Type"))

	location, err := storage.Save(ctx, name, bytes.NewReader(data))
	if err != nil {
		return FetchedAsset{}, fmt.Errorf("save image: %w", err)
	}

	return FetchedAsset{Location: location, Size: int64(len(data))}, nil
}

// assetName picks a storage key from the source URL, falling back to an
// extension inferred from the content type when the URL has none.
func assetName(rawURL, contentType string) string {
	name := "image"
	if parsed, err := url.Parse(rawURL); err == nil {
		if base := path.Base(parsed.Path); base != "" && base != "/" && base != "." {
			name = base
		}
	}

	if path.Ext(name) == "" {
		if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
			if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
				name += exts[0]
			}
		}
	}

	return strings.TrimLeft(name, "/")
}
