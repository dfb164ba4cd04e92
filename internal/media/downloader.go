package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/therealutkarshpriyadarshi/operashorts/internal/failure"
)

// DefaultDownloadConcurrency bounds simultaneous source-video downloads per host
const DefaultDownloadConcurrency = 2

// Downloader fetches source videos from URLs with a bounded number in flight
type Downloader struct {
	client *http.Client
	sem    *semaphore.Weighted
}

// NewDownloader creates a downloader allowing at most concurrency parallel transfers
func NewDownloader(client *http.Client, concurrency int64) *Downloader {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Minute}
	}
	if concurrency < 1 {
		concurrency = DefaultDownloadConcurrency
	}
	return &Downloader{
		client: client,
		sem:    semaphore.NewWeighted(concurrency),
	}
}

// Download writes the body at url to destPath and returns the number of bytes written.
// It blocks while the concurrency limit is reached.
func (d *Downloader) Download(ctx context.Context, url, destPath string) (int64, error) {
	if err := d.sem.Acquire(ctx, 1); err != nil {
		return 0, fmt.Errorf("waiting for download slot: %w", err)
	}
	defer d.sem.Release(1)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, failure.Validation("invalid video_url: %v", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, &failure.IntegrationFailure{Service: "download", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, failure.MaxResponseBodyLength))
		return 0, &failure.IntegrationFailure{Service: "download", StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return 0, fmt.Errorf("failed to create download directory: %w", err)
	}

	file, err := os.Create(destPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create destination file: %w", err)
	}

	written, err := io.Copy(file, resp.Body)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(destPath)
		return 0, &failure.IntegrationFailure{Service: "download", Err: err}
	}

	return written, nil
}
